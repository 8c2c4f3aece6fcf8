package models

import "fmt"

// MetadataPatch carries the top-level page fields an edit may overwrite.
// Nil fields are left alone. It has no way to touch _id or sections.
type MetadataPatch struct {
	SchemaVersion  *int            `json:"schemaVersion,omitempty"`
	Title          *string         `json:"title,omitempty"`
	Slug           *string         `json:"slug,omitempty"`
	Description    *string         `json:"description,omitempty"`
	Type           *PageType       `json:"type,omitempty"`
	Status         *PageStatus     `json:"status,omitempty"`
	Category       *string         `json:"category,omitempty"`
	ImportantDates *ImportantDates `json:"importantDates,omitempty"`
	PublishedAt    *string         `json:"publishedAt,omitempty"`
	DisplayConfig  map[string]any  `json:"displayConfig,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
}

func (m MetadataPatch) IsEmpty() bool {
	return m.SchemaVersion == nil && m.Title == nil && m.Slug == nil && m.Description == nil &&
		m.Type == nil && m.Status == nil && m.Category == nil && m.ImportantDates == nil &&
		m.PublishedAt == nil && m.DisplayConfig == nil && m.Metadata == nil
}

// Validate rejects enum values outside their closed sets.
func (m MetadataPatch) Validate() error {
	if m.Type != nil && !m.Type.Valid() {
		return fmt.Errorf("invalid page type %q", *m.Type)
	}
	if m.Status != nil && !m.Status.Valid() {
		return fmt.Errorf("invalid page status %q", *m.Status)
	}
	if m.SchemaVersion != nil && *m.SchemaVersion < 1 {
		return fmt.Errorf("invalid schema version %d", *m.SchemaVersion)
	}
	return nil
}

// Apply copies every set field onto p. It does not touch updatedAt.
func (m MetadataPatch) Apply(p *Page) {
	if m.SchemaVersion != nil {
		p.SchemaVersion = *m.SchemaVersion
	}
	if m.Title != nil {
		p.Title = *m.Title
	}
	if m.Slug != nil {
		p.Slug = *m.Slug
	}
	if m.Description != nil {
		p.Description = *m.Description
	}
	if m.Type != nil {
		p.Type = *m.Type
	}
	if m.Status != nil {
		p.Status = *m.Status
	}
	if m.Category != nil {
		p.Category = *m.Category
	}
	if m.ImportantDates != nil {
		dates := *m.ImportantDates
		p.ImportantDates = &dates
	}
	if m.PublishedAt != nil {
		p.PublishedAt = *m.PublishedAt
	}
	if m.DisplayConfig != nil {
		p.DisplayConfig = cloneObject(m.DisplayConfig)
	}
	if m.Metadata != nil {
		p.Metadata = cloneObject(m.Metadata)
	}
}
