package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the wire format for updatedAt and publishedAt.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// CurrentSchemaVersion is stamped on every new page.
const CurrentSchemaVersion = 1

type PageType string

const (
	PageTypeJob         PageType = "job"
	PageTypeResult      PageType = "result"
	PageTypeAdmission   PageType = "admission"
	PageTypeAnswerKey   PageType = "answer_key"
	PageTypeOfflineForm PageType = "offline_form"
)

var PageTypes = []PageType{PageTypeJob, PageTypeResult, PageTypeAdmission, PageTypeAnswerKey, PageTypeOfflineForm}

func (t PageType) Valid() bool {
	for _, known := range PageTypes {
		if t == known {
			return true
		}
	}
	return false
}

type PageStatus string

const (
	StatusDraft     PageStatus = "DRAFT"
	StatusPublished PageStatus = "PUBLISHED"
	StatusArchived  PageStatus = "ARCHIVED"
	StatusTrashed   PageStatus = "TRASHED"
)

var PageStatuses = []PageStatus{StatusDraft, StatusPublished, StatusArchived, StatusTrashed}

func (s PageStatus) Valid() bool {
	for _, known := range PageStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type ImportantDates struct {
	StartDateOfApplication string `json:"startDateOfApplication,omitempty"`
	LastDateOfApplication  string `json:"lastDateOfApplication,omitempty"`
}

// Page is the root document edited by the editor and stored by the repository.
type Page struct {
	ID             string          `json:"_id"`
	SchemaVersion  int             `json:"schemaVersion"`
	Title          string          `json:"title"`
	Slug           string          `json:"slug"`
	Description    string          `json:"description,omitempty"`
	Type           PageType        `json:"type"`
	Status         PageStatus      `json:"status,omitempty"`
	Category       string          `json:"category,omitempty"`
	ImportantDates *ImportantDates `json:"importantDates,omitempty"`
	PublishedAt    string          `json:"publishedAt,omitempty"`
	UpdatedAt      string          `json:"updatedAt,omitempty"`
	DisplayConfig  map[string]any  `json:"displayConfig,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
	Sections       []Section       `json:"sections"`
}

// NewPage returns an empty draft job page with a fresh id.
func NewPage() *Page {
	return &Page{
		ID:            NewID(),
		SchemaVersion: CurrentSchemaVersion,
		Type:          PageTypeJob,
		Status:        StatusDraft,
		UpdatedAt:     Now(),
		Sections:      []Section{},
	}
}

func NewID() string {
	return uuid.NewString()
}

// Now formats the current instant the way updatedAt is stored.
func Now() string {
	return FormatTime(time.Now())
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func (p Page) MarshalJSON() ([]byte, error) {
	type alias Page
	out := alias(p)
	if out.Sections == nil {
		out.Sections = []Section{}
	}
	return json.Marshal(out)
}

// Clone returns a deep copy of the page, including every section and block.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	cp := *p
	if p.ImportantDates != nil {
		dates := *p.ImportantDates
		cp.ImportantDates = &dates
	}
	cp.DisplayConfig = cloneObject(p.DisplayConfig)
	cp.Metadata = cloneObject(p.Metadata)
	cp.Sections = make([]Section, len(p.Sections))
	for i := range p.Sections {
		cp.Sections[i] = p.Sections[i].Clone()
	}
	return &cp
}

// FindSection returns the index of the section with the given id, or -1.
func (p *Page) FindSection(id string) int {
	for i := range p.Sections {
		if p.Sections[i].ID == id {
			return i
		}
	}
	return -1
}

// cloneObject copies a top-level free-form object. An empty object becomes
// nil, which is how it reads back after omitempty drops it.
func cloneObject(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return cloneMap(m)
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = cloneValue(val[i])
		}
		return out
	default:
		return val
	}
}
