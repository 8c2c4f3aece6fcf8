// Package extraction turns raw notice text into a draft page. A draft is
// only handed back once it passes the schema validator; nothing here writes
// to a store.
package extraction

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"noticeboard/models"
	"noticeboard/schema"
)

var (
	ErrEmptyInput = errors.New("extraction: input is empty")
	// ErrUpstream marks failures talking to a remote extractor.
	ErrUpstream = errors.New("extraction: upstream failure")
)

const untitled = "Untitled notice"

type Extractor interface {
	Extract(ctx context.Context, raw string) (*models.Page, error)
}

type Pipeline struct {
	extractor Extractor
}

func NewPipeline(e Extractor) *Pipeline {
	return &Pipeline{extractor: e}
}

// Draft runs the extractor, completes the result with ids and page defaults
// and validates it.
func (p *Pipeline) Draft(ctx context.Context, raw string) (*models.Page, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyInput
	}

	page, err := p.extractor.Extract(ctx, raw)
	if err != nil {
		return nil, err
	}
	complete(page)

	if err := schema.ValidatePage(page); err != nil {
		log.Warn().Err(err).Str("slug", page.Slug).Msg("extracted draft failed validation")
		return nil, err
	}
	log.Debug().Str("slug", page.Slug).Int("sections", len(page.Sections)).Msg("draft extracted")
	return page, nil
}

func complete(p *models.Page) {
	if p.ID == "" {
		p.ID = models.NewID()
	}
	if p.SchemaVersion < 1 {
		p.SchemaVersion = models.CurrentSchemaVersion
	}
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		p.Title = untitled
	}
	if p.Slug == "" {
		p.Slug = models.Slugify(p.Title)
	}
	if p.Slug == "" {
		p.Slug = "notice-" + models.NewID()[:8]
	}
	if !p.Type.Valid() {
		p.Type = models.PageTypeJob
	}
	if !p.Status.Valid() {
		p.Status = models.StatusDraft
	}
	if p.UpdatedAt == "" {
		p.UpdatedAt = models.Now()
	}
	if p.Sections == nil {
		p.Sections = []models.Section{}
	}
	for i := range p.Sections {
		s := &p.Sections[i]
		if s.ID == "" {
			s.ID = models.NewID()
		}
		for _, child := range s.Children {
			fillID(child)
			if sub, ok := child.(*models.SubSection); ok {
				for _, b := range sub.Children {
					fillID(b)
				}
			}
		}
	}
}

func fillID(c models.SectionChild) {
	if c.GetID() != "" {
		return
	}
	id := models.NewID()
	switch v := c.(type) {
	case *models.KeyValueBlock:
		v.ID = id
	case *models.DateBlock:
		v.ID = id
	case *models.LinkBlock:
		v.ID = id
	case *models.MarkdownBlock:
		v.ID = id
	case *models.TableBlock:
		v.ID = id
	case *models.SubSection:
		v.ID = id
	}
}
