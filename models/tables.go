package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// User is an editor account allowed into the admin API.
type User struct {
	ID           int       `gorm:"primary_key;autoIncrement" json:"id"`
	PasswordHash string    `gorm:"not null" json:"-"` // json:"-" prevents password from being exposed in API
	Email        string    `gorm:"unique;not null" json:"email"`
	CreatedAt    time.Time `json:"created_at"`
}

// PageRecord is the relational row for a Page. The tree and the free-form
// objects are kept as JSON columns.
type PageRecord struct {
	ID             string         `gorm:"primaryKey;size:64"`
	SchemaVersion  int            `gorm:"not null;default:1"`
	Title          string         `gorm:"not null"`
	Slug           string         `gorm:"uniqueIndex;not null"`
	Description    string         `gorm:"type:text"`
	Type           string         `gorm:"not null;index"`
	Status         string         `gorm:"not null;index"`
	Category       string         `gorm:"index"`
	ImportantDates datatypes.JSON `gorm:"column:important_dates"`
	PublishedAt    string
	LastUpdated    string         `gorm:"column:updated_at;index"`
	DisplayConfig  datatypes.JSON `gorm:"column:display_config"`
	Metadata       datatypes.JSON
	Sections       datatypes.JSON `gorm:"not null"`
	CreatedAt      time.Time
}

func (PageRecord) TableName() string {
	return "pages"
}

// NewPageRecord flattens a page into its row form.
func NewPageRecord(p *Page) (*PageRecord, error) {
	sections := p.Sections
	if sections == nil {
		sections = []Section{}
	}
	sectionsJSON, err := json.Marshal(sections)
	if err != nil {
		return nil, err
	}
	rec := &PageRecord{
		ID:            p.ID,
		SchemaVersion: p.SchemaVersion,
		Title:         p.Title,
		Slug:          p.Slug,
		Description:   p.Description,
		Type:          string(p.Type),
		Status:        string(p.Status),
		Category:      p.Category,
		PublishedAt:   p.PublishedAt,
		LastUpdated:   p.UpdatedAt,
		Sections:      datatypes.JSON(sectionsJSON),
	}
	if p.ImportantDates != nil {
		if rec.ImportantDates, err = json.Marshal(p.ImportantDates); err != nil {
			return nil, err
		}
	}
	if p.DisplayConfig != nil {
		if rec.DisplayConfig, err = json.Marshal(p.DisplayConfig); err != nil {
			return nil, err
		}
	}
	if p.Metadata != nil {
		if rec.Metadata, err = json.Marshal(p.Metadata); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// ToPage rebuilds the typed page from a row.
func (r *PageRecord) ToPage() (*Page, error) {
	p := &Page{
		ID:            r.ID,
		SchemaVersion: r.SchemaVersion,
		Title:         r.Title,
		Slug:          r.Slug,
		Description:   r.Description,
		Type:          PageType(r.Type),
		Status:        PageStatus(r.Status),
		Category:      r.Category,
		PublishedAt:   r.PublishedAt,
		UpdatedAt:     r.LastUpdated,
		Sections:      []Section{},
	}
	if len(r.Sections) > 0 {
		if err := json.Unmarshal(r.Sections, &p.Sections); err != nil {
			return nil, err
		}
	}
	if len(r.ImportantDates) > 0 && string(r.ImportantDates) != "null" {
		p.ImportantDates = &ImportantDates{}
		if err := json.Unmarshal(r.ImportantDates, p.ImportantDates); err != nil {
			return nil, err
		}
	}
	if len(r.DisplayConfig) > 0 {
		if err := json.Unmarshal(r.DisplayConfig, &p.DisplayConfig); err != nil {
			return nil, err
		}
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &p.Metadata); err != nil {
			return nil, err
		}
	}
	return p, nil
}
