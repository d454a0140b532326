package document

import (
	"encoding/json"
	"strconv"

	"github.com/fal1winter/mentorsys/internal/domain/entity"
)

// StoredFields returns the persisted attribute names of a kind.
func StoredFields(kind entity.Kind) []string {
	switch kind {
	case entity.Paper:
		return []string{AttrTitle, AttrAbstract, AttrKeywords}
	case entity.Note:
		return []string{AttrPaperID, AttrPaperTitle, AttrSummary}
	case entity.Mentor:
		return []string{AttrName, AttrResearchAreas, AttrInstitution}
	case entity.Student:
		return []string{AttrName, AttrResearchInterests, AttrInstitution}
	}
	return nil
}

// Present maps stored attributes to the fields returned to clients.
// Missing attributes come back as zero values, never as absent keys.
func Present(kind entity.Kind, stored map[string]string) map[string]any {
	switch kind {
	case entity.Paper:
		return map[string]any{
			"title":    stored[AttrTitle],
			"abstract": stored[AttrAbstract],
			"keywords": decodeKeywords(stored[AttrKeywords]),
		}
	case entity.Note:
		return map[string]any{
			"paperId":    parseID(stored[AttrPaperID]),
			"paperTitle": stored[AttrPaperTitle],
			"summary":    stored[AttrSummary],
		}
	case entity.Mentor:
		return map[string]any{
			"name":          stored[AttrName],
			"researchAreas": stored[AttrResearchAreas],
			"institution":   stored[AttrInstitution],
		}
	case entity.Student:
		return map[string]any{
			"name":              stored[AttrName],
			"researchInterests": stored[AttrResearchInterests],
			"institution":       stored[AttrInstitution],
		}
	}
	return map[string]any{}
}

func decodeKeywords(raw string) []string {
	out := []string{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
