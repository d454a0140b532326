// Package document turns entity payloads into embeddable text and bounded attributes.
package document

import (
	"encoding/json"
	"strings"

	"github.com/fal1winter/mentorsys/internal/domain/entity"
)

// Attribute length bounds, in characters.
const (
	MaxTitleLen       = 500
	MaxAbstractLen    = 1000
	MaxSummaryLen     = 1000
	MaxNameLen        = 200
	MaxInstitutionLen = 200
	MaxResearchLen    = 500
	MaxNoteContentLen = 2000
)

// Persisted attribute names.
const (
	AttrTitle             = "title"
	AttrAbstract          = "abstract"
	AttrKeywords          = "keywords"
	AttrPaperID           = "paper_id"
	AttrPaperTitle        = "paper_title"
	AttrSummary           = "summary"
	AttrName              = "name"
	AttrResearchAreas     = "research_areas"
	AttrResearchInterests = "research_interests"
	AttrInstitution       = "institution"
)

// Source is an entity payload that can be indexed.
type Source interface {
	Kind() entity.Kind
	EntityID() int64
	Assemble() Assembled
}

// Assembled is the output of an assembly rule: text to embed and attributes to persist.
type Assembled struct {
	Text       string
	Attributes map[string]string
}

// Paper is a publication payload.
type Paper struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	AbstractText string     `json:"abstractText"`
	Keywords     StringList `json:"keywords"`
	Authors      StringList `json:"authors"`
}

// Kind implements Source.
func (p Paper) Kind() entity.Kind { return entity.Paper }

// EntityID implements Source.
func (p Paper) EntityID() int64 { return p.ID }

// Assemble implements Source.
func (p Paper) Assemble() Assembled {
	return Assembled{
		Text: join(p.Title, p.AbstractText, p.Keywords.Join(), p.Authors.Join()),
		Attributes: map[string]string{
			AttrTitle:    Truncate(p.Title, MaxTitleLen),
			AttrAbstract: Truncate(p.AbstractText, MaxAbstractLen),
			AttrKeywords: p.Keywords.JSON(),
		},
	}
}

// QueryText is the text embedded when a paper is used as a similarity probe.
// Authors are left out so that papers by the same people are not favored.
func (p Paper) QueryText() string {
	return join(p.Title, p.AbstractText, p.Keywords.Join())
}

// Note is a reading note attached to a paper.
type Note struct {
	ID          int64  `json:"id"`
	PaperID     int64  `json:"paperId"`
	PaperTitle  string `json:"paperTitle"`
	Summary     string `json:"summary"`
	NoteContent string `json:"noteContent"`
}

// Kind implements Source.
func (n Note) Kind() entity.Kind { return entity.Note }

// EntityID implements Source.
func (n Note) EntityID() int64 { return n.ID }

// Assemble implements Source. The note body is embedded but never stored.
func (n Note) Assemble() Assembled {
	return Assembled{
		Text: join(n.PaperTitle, n.Summary, Truncate(n.NoteContent, MaxNoteContentLen)),
		Attributes: map[string]string{
			AttrPaperID:    formatID(n.PaperID),
			AttrPaperTitle: Truncate(n.PaperTitle, MaxTitleLen),
			AttrSummary:    Truncate(n.Summary, MaxSummaryLen),
		},
	}
}

// Mentor is a mentor profile.
type Mentor struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Title         string `json:"title"`
	Institution   string `json:"institution"`
	ResearchAreas string `json:"researchAreas"`
	Bio           string `json:"bio"`
}

// Kind implements Source.
func (m Mentor) Kind() entity.Kind { return entity.Mentor }

// EntityID implements Source.
func (m Mentor) EntityID() int64 { return m.ID }

// Assemble implements Source.
func (m Mentor) Assemble() Assembled {
	return Assembled{
		Text: join(m.Name, m.Title, m.Institution, m.ResearchAreas, m.Bio),
		Attributes: map[string]string{
			AttrName:          Truncate(m.Name, MaxNameLen),
			AttrResearchAreas: Truncate(m.ResearchAreas, MaxResearchLen),
			AttrInstitution:   Truncate(m.Institution, MaxInstitutionLen),
		},
	}
}

// Student is a student profile.
type Student struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Major             string `json:"major"`
	Institution       string `json:"institution"`
	ResearchInterests string `json:"researchInterests"`
	Bio               string `json:"bio"`
}

// Kind implements Source.
func (s Student) Kind() entity.Kind { return entity.Student }

// EntityID implements Source.
func (s Student) EntityID() int64 { return s.ID }

// Assemble implements Source.
func (s Student) Assemble() Assembled {
	return Assembled{
		Text: join(s.Name, s.Major, s.Institution, s.ResearchInterests, s.Bio),
		Attributes: map[string]string{
			AttrName:              Truncate(s.Name, MaxNameLen),
			AttrResearchInterests: Truncate(s.ResearchInterests, MaxResearchLen),
			AttrInstitution:       Truncate(s.Institution, MaxInstitutionLen),
		},
	}
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// join concatenates parts with single spaces. Empty parts are kept so the
// layout of the text does not depend on which fields are present.
func join(parts ...string) string {
	return strings.Join(parts, " ")
}

// StringList is a list of strings decoded leniently: a JSON array, a string
// containing a JSON array, or a plain string taken as a single element.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// null and other shapes degrade to an empty list
		*l = nil
		return nil //nolint:nilerr // lenient by contract
	}
	*l = ParseStringList(s)
	return nil
}

// ParseStringList reads a list from a raw column or message value.
func ParseStringList(s string) StringList {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var arr []string
		if err := json.Unmarshal([]byte(s), &arr); err == nil {
			return arr
		}
	}
	return StringList{s}
}

// Join returns the elements separated by single spaces.
func (l StringList) Join() string {
	return strings.Join(l, " ")
}

// JSON returns the list encoded as a JSON array, "[]" when empty.
func (l StringList) JSON() string {
	if len(l) == 0 {
		return "[]"
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return "[]"
	}
	return string(data)
}
