// Package repository persists pages. Two backends share one contract:
// a gorm store (sqlite or postgres) and a SurrealDB document store.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"noticeboard/models"
	"noticeboard/schema"
)

var (
	ErrNotFound    = errors.New("page not found")
	ErrConflict    = errors.New("page already exists")
	ErrInvalidPage = errors.New("invalid page")
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ConflictError reports which unique field collided.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("a page with %s %q already exists", e.Field, e.Value)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

type ListFilter struct {
	Type     models.PageType
	Status   models.PageStatus
	Category string
	Search   string
}

type ListResult struct {
	Items      []*models.Page `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
	HasMore    bool           `json:"hasMore"`
}

type Stats struct {
	Total     int64 `json:"total"`
	Published int64 `json:"published"`
	Drafts    int64 `json:"drafts"`
}

// PageUpdate is a partial update. Sections, when set, replace the whole tree.
type PageUpdate struct {
	models.MetadataPatch
	Sections *[]models.Section `json:"sections,omitempty"`
}

type PageRepository interface {
	Create(ctx context.Context, p *models.Page) (*models.Page, error)
	GetByID(ctx context.Context, id string) (*models.Page, error)
	GetBySlug(ctx context.Context, slug string) (*models.Page, error)
	List(ctx context.Context, filter ListFilter, page, limit int) (*ListResult, error)
	Update(ctx context.Context, id string, upd PageUpdate) (*models.Page, error)
	SoftDelete(ctx context.Context, id string) (*models.Page, error)
	HardDelete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*Stats, error)
}

var (
	_ PageRepository = (*GormRepository)(nil)
	_ PageRepository = (*SurrealRepository)(nil)
)

// NormalizeSlug trims and lower-cases a slug the way it is stored.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// Paginate applies the defaults for a 1-based page number and page size.
func Paginate(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func newListResult(items []*models.Page, total int64, page, limit int) *ListResult {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	if items == nil {
		items = []*models.Page{}
	}
	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}
}

// prepareNew fills creation defaults on a copy of p and checks it.
func prepareNew(p *models.Page) (*models.Page, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: page is nil", ErrInvalidPage)
	}
	page := p.Clone()
	if page.ID == "" {
		page.ID = models.NewID()
	}
	if page.Status == "" {
		page.Status = models.StatusDraft
	}
	if page.SchemaVersion == 0 {
		page.SchemaVersion = models.CurrentSchemaVersion
	}
	if page.Sections == nil {
		page.Sections = []models.Section{}
	}
	page.Slug = NormalizeSlug(page.Slug)
	page.Title = strings.TrimSpace(page.Title)
	page.Category = strings.TrimSpace(page.Category)
	stampPublished(page)
	page.UpdatedAt = models.Now()

	if err := checkRequired(page); err != nil {
		return nil, err
	}
	if err := schema.ValidatePage(page); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPage, err)
	}
	return page, nil
}

// applyUpdate merges upd into a copy of current and checks the result.
func applyUpdate(current *models.Page, upd PageUpdate) (*models.Page, error) {
	if err := upd.MetadataPatch.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPage, err)
	}
	page := current.Clone()
	upd.MetadataPatch.Apply(page)
	if upd.Sections != nil {
		page.Sections = make([]models.Section, len(*upd.Sections))
		for i, s := range *upd.Sections {
			page.Sections[i] = s.Clone()
		}
	}
	page.Slug = NormalizeSlug(page.Slug)
	stampPublished(page)
	page.UpdatedAt = models.Now()

	if err := checkRequired(page); err != nil {
		return nil, err
	}
	if err := schema.ValidatePage(page); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPage, err)
	}
	return page, nil
}

func checkRequired(p *models.Page) error {
	missing := []string{}
	if p.Title == "" {
		missing = append(missing, "title")
	}
	if p.Slug == "" {
		missing = append(missing, "slug")
	}
	if p.Type == "" {
		missing = append(missing, "type")
	}
	if p.Category == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrInvalidPage, strings.Join(missing, ", "))
	}
	return nil
}

func stampPublished(p *models.Page) {
	if p.Status == models.StatusPublished && p.PublishedAt == "" {
		p.PublishedAt = models.Now()
	}
}

func trashed() PageUpdate {
	status := models.StatusTrashed
	return PageUpdate{MetadataPatch: models.MetadataPatch{Status: &status}}
}
