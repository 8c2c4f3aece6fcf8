package editor

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"noticeboard/models"
	"noticeboard/schema"
)

type ViewMode string

const (
	ViewEdit    ViewMode = "edit"
	ViewPreview ViewMode = "preview"
)

func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(s); m {
	case ViewEdit, ViewPreview:
		return m, nil
	}
	return "", fmt.Errorf("invalid view mode %q", s)
}

// DocumentStore owns one page being edited plus the editor's view mode.
// Every change goes through its methods, one at a time. A mutation works on
// a copy that replaces the current page only when the mutation succeeds.
type DocumentStore struct {
	mu       sync.Mutex
	page     *models.Page
	viewMode ViewMode
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{page: models.NewPage(), viewMode: ViewEdit}
}

// Page returns a snapshot; changing it does not affect the store.
func (s *DocumentStore) Page() *models.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page.Clone()
}

// SetPage replaces the page with a copy of p. A missing id or schema version
// is filled in so the stored page always exports as a valid document.
func (s *DocumentStore) SetPage(p *models.Page) {
	cp := p.Clone()
	if cp.ID == "" {
		cp.ID = models.NewID()
	}
	if cp.SchemaVersion < 1 {
		cp.SchemaVersion = models.CurrentSchemaVersion
	}
	if cp.Sections == nil {
		cp.Sections = []models.Section{}
	}
	s.mu.Lock()
	s.page = cp
	s.mu.Unlock()
}

// ResetPage discards the current page in favour of a fresh empty one.
func (s *DocumentStore) ResetPage() {
	s.mu.Lock()
	s.page = models.NewPage()
	s.mu.Unlock()
}

func (s *DocumentStore) ViewMode() ViewMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewMode
}

func (s *DocumentStore) SetViewMode(m ViewMode) {
	s.mu.Lock()
	s.viewMode = m
	s.mu.Unlock()
}

func (s *DocumentStore) apply(fn func(p *models.Page) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.page.Clone()
	if err := fn(next); err != nil {
		return err
	}
	// structural edits refresh updatedAt; no-ops leave the page as it was
	if !reflect.DeepEqual(next.Sections, s.page.Sections) {
		next.UpdatedAt = models.Now()
	}
	s.page = next
	return nil
}

func (s *DocumentStore) mutate(fn func(p *models.Page)) {
	_ = s.apply(func(p *models.Page) error {
		fn(p)
		return nil
	})
}

func (s *DocumentStore) AddSection() string {
	var id string
	s.mutate(func(p *models.Page) { id = AddSection(p) })
	return id
}

func (s *DocumentStore) UpdateSection(sectionID, title string) {
	s.mutate(func(p *models.Page) { UpdateSection(p, sectionID, title) })
}

func (s *DocumentStore) DeleteSection(sectionID string) {
	s.mutate(func(p *models.Page) { DeleteSection(p, sectionID) })
}

func (s *DocumentStore) MoveSection(index int, dir Direction) {
	s.mutate(func(p *models.Page) { MoveSection(p, index, dir) })
}

func (s *DocumentStore) ReorderSections(from, to int) {
	s.mutate(func(p *models.Page) { ReorderSections(p, from, to) })
}

func (s *DocumentStore) AddSubSection(sectionID string) string {
	var id string
	s.mutate(func(p *models.Page) { id = AddSubSection(p, sectionID) })
	return id
}

func (s *DocumentStore) UpdateSubSection(sectionID, subSectionID, title string) {
	s.mutate(func(p *models.Page) { UpdateSubSection(p, sectionID, subSectionID, title) })
}

func (s *DocumentStore) AddBlock(sectionID, subSectionID string, t models.FieldType) (string, error) {
	var id string
	err := s.apply(func(p *models.Page) error {
		var err error
		id, err = AddBlock(p, sectionID, subSectionID, t)
		return err
	})
	return id, err
}

func (s *DocumentStore) UpdateBlock(sectionID, subSectionID, blockID string, patch BlockPatch) {
	s.mutate(func(p *models.Page) { UpdateBlock(p, sectionID, subSectionID, blockID, patch) })
}

func (s *DocumentStore) DeleteChild(sectionID, subSectionID, childID string) {
	s.mutate(func(p *models.Page) { DeleteChild(p, sectionID, subSectionID, childID) })
}

func (s *DocumentStore) MoveChild(sectionID, subSectionID string, index int, dir Direction) {
	s.mutate(func(p *models.Page) { MoveChild(p, sectionID, subSectionID, index, dir) })
}

func (s *DocumentStore) ReorderChildren(sectionID, subSectionID string, from, to int) {
	s.mutate(func(p *models.Page) { ReorderChildren(p, sectionID, subSectionID, from, to) })
}

func (s *DocumentStore) UpdateMetadata(patch models.MetadataPatch) {
	s.mutate(func(p *models.Page) { UpdateMetadata(p, patch) })
}

func (s *DocumentStore) AddTableColumn(ref TableRef, name string) error {
	return s.apply(func(p *models.Page) error { return AddTableColumn(p, ref, name) })
}

func (s *DocumentStore) RemoveTableColumn(ref TableRef, name string) {
	s.mutate(func(p *models.Page) { RemoveTableColumn(p, ref, name) })
}

func (s *DocumentStore) AddTableRow(ref TableRef) {
	s.mutate(func(p *models.Page) { AddTableRow(p, ref) })
}

func (s *DocumentStore) UpdateTableCell(ref TableRef, row int, column, value string) {
	s.mutate(func(p *models.Page) { UpdateTableCell(p, ref, row, column, value) })
}

func (s *DocumentStore) RemoveTableRow(ref TableRef, row int) {
	s.mutate(func(p *models.Page) { RemoveTableRow(p, ref, row) })
}

// ImportJSON replaces the page with a hand-edited document. The document is
// validated first; on any error the current page is kept.
func (s *DocumentStore) ImportJSON(data []byte) error {
	if err := schema.ValidateJSON(data); err != nil {
		return err
	}
	var p models.Page
	if err := json.Unmarshal(data, &p); err != nil {
		return &schema.ValidationError{Path: schema.RootPath, Reason: err.Error()}
	}
	s.SetPage(&p)
	return nil
}

// ExportJSON returns the page as indented JSON, the same shape ImportJSON takes.
func (s *DocumentStore) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(s.Page(), "", "  ")
}
