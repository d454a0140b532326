package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/fal1winter/mentorsys/internal/domain/document"
	"github.com/fal1winter/mentorsys/internal/domain/entity"
)

// OpDelete is the only operation that removes a record; anything else upserts.
const OpDelete = "DELETE"

type paperMessage struct {
	PaperID      *int64              `json:"paperId"`
	Operation    string              `json:"operation"`
	Title        string              `json:"title"`
	AbstractText string              `json:"abstractText"`
	Keywords     document.StringList `json:"keywords"`
	Authors      document.StringList `json:"authors"`
}

type noteMessage struct {
	NoteID      *int64 `json:"noteId"`
	Operation   string `json:"operation"`
	PaperID     *int64 `json:"paperId"`
	PaperTitle  string `json:"paperTitle"`
	Summary     string `json:"summary"`
	NoteContent string `json:"noteContent"`
}

type scholarMessage struct {
	ScholarID *int64 `json:"scholarId"`
	Operation string `json:"operation"`
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return nil
}

func requireID(field string, id *int64) (int64, error) {
	if id == nil || *id <= 0 {
		return 0, fmt.Errorf("%w: %s is required", ErrMalformed, field)
	}
	return *id, nil
}

// PaperHandler applies paper change events.
func PaperHandler(idx Indexer, logger *zap.Logger) Handler {
	return func(ctx context.Context, body []byte) error {
		var msg paperMessage
		if err := decode(body, &msg); err != nil {
			return err
		}
		id, err := requireID("paperId", msg.PaperID)
		if err != nil {
			return err
		}
		logger.Info("paper change event", zap.Int64("paper_id", id), zap.String("operation", msg.Operation))

		if msg.Operation == OpDelete {
			return idx.Remove(ctx, entity.Paper, id)
		}
		return idx.Index(ctx, document.Paper{
			ID:           id,
			Title:        msg.Title,
			AbstractText: msg.AbstractText,
			Keywords:     msg.Keywords,
			Authors:      msg.Authors,
		})
	}
}

// NoteHandler applies note change events.
func NoteHandler(idx Indexer, logger *zap.Logger) Handler {
	return func(ctx context.Context, body []byte) error {
		var msg noteMessage
		if err := decode(body, &msg); err != nil {
			return err
		}
		id, err := requireID("noteId", msg.NoteID)
		if err != nil {
			return err
		}
		logger.Info("note change event", zap.Int64("note_id", id), zap.String("operation", msg.Operation))

		if msg.Operation == OpDelete {
			return idx.Remove(ctx, entity.Note, id)
		}
		var paperID int64
		if msg.PaperID != nil {
			paperID = *msg.PaperID
		}
		return idx.Index(ctx, document.Note{
			ID:          id,
			PaperID:     paperID,
			PaperTitle:  msg.PaperTitle,
			Summary:     msg.Summary,
			NoteContent: msg.NoteContent,
		})
	}
}

// ScholarHandler acknowledges scholar change events without indexing them.
// Scholars have no collection; the stream is drained so the producer's
// queue does not grow.
func ScholarHandler(logger *zap.Logger) Handler {
	return func(_ context.Context, body []byte) error {
		var msg scholarMessage
		if err := decode(body, &msg); err != nil {
			return err
		}
		var id int64
		if msg.ScholarID != nil {
			id = *msg.ScholarID
		}
		logger.Info("scholar change event dropped, scholars are not indexed",
			zap.Int64("scholar_id", id), zap.String("operation", msg.Operation))
		return nil
	}
}
