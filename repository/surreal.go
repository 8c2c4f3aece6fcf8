package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	surrealdb "github.com/surrealdb/surrealdb.go"
	sdbmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"noticeboard/models"
)

const surrealTable = "pages"

// SurrealConfig holds the connection settings for SurrealRepository.
type SurrealConfig struct {
	URL       string `yaml:"url"`
	Namespace string `yaml:"namespace"`
	Database  string `yaml:"database"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

// SurrealRepository keeps each page as one SurrealDB record. Filterable
// fields are stored flat; the tree is kept as a JSON document string so the
// block type tags survive the CBOR encoding.
type SurrealRepository struct {
	db *surrealdb.DB
}

type surrealPage struct {
	ID        *sdbmodels.RecordID `json:"id,omitempty"`
	PageID    string              `json:"page_id"`
	Title     string              `json:"title"`
	Slug      string              `json:"slug"`
	Type      string              `json:"type"`
	Status    string              `json:"status"`
	Category  string              `json:"category"`
	Desc      string              `json:"description"`
	UpdatedAt string              `json:"updated_at"`
	Document  string              `json:"document"`
}

type surrealCount struct {
	Total     int64 `json:"total"`
	Published int64 `json:"published"`
	Drafts    int64 `json:"drafts"`
}

func NewSurrealRepository(ctx context.Context, cfg SurrealConfig) (*SurrealRepository, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}
	if cfg.Username != "" && cfg.Password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": cfg.Username,
			"pass": cfg.Password,
		}); err != nil {
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}
	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}
	log.Info().Str("url", cfg.URL).Str("namespace", cfg.Namespace).Msg("connected to SurrealDB")
	return &SurrealRepository{db: db}, nil
}

func (r *SurrealRepository) Close(ctx context.Context) error {
	return r.db.Close(ctx)
}

func toSurreal(p *models.Page) (map[string]any, error) {
	doc, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"page_id":     p.ID,
		"title":       p.Title,
		"slug":        p.Slug,
		"type":        string(p.Type),
		"status":      string(p.Status),
		"category":    p.Category,
		"description": p.Description,
		"updated_at":  p.UpdatedAt,
		"document":    string(doc),
	}, nil
}

func (sp surrealPage) toPage() (*models.Page, error) {
	var p models.Page
	if err := json.Unmarshal([]byte(sp.Document), &p); err != nil {
		return nil, fmt.Errorf("decode page %s: %w", sp.PageID, err)
	}
	return &p, nil
}

// query runs one statement and returns the rows of its first result.
func query[T any](ctx context.Context, db *surrealdb.DB, sql string, vars map[string]any) ([]T, error) {
	results, err := surrealdb.Query[[]T](ctx, db, sql, vars)
	if err != nil {
		return nil, err
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	first := (*results)[0]
	if first.Status != "OK" {
		return nil, fmt.Errorf("surrealdb query failed with status %s", first.Status)
	}
	return first.Result, nil
}

func (r *SurrealRepository) Create(ctx context.Context, p *models.Page) (*models.Page, error) {
	page, err := prepareNew(p)
	if err != nil {
		return nil, err
	}

	existing, err := query[surrealPage](ctx, r.db,
		"SELECT * FROM type::table($tb) WHERE page_id = $id OR slug = $slug",
		map[string]any{"tb": surrealTable, "id": page.ID, "slug": page.Slug})
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if e.PageID == page.ID {
			return nil, &ConflictError{Field: "_id", Value: page.ID}
		}
	}
	if len(existing) > 0 {
		return nil, &ConflictError{Field: "slug", Value: page.Slug}
	}

	content, err := toSurreal(page)
	if err != nil {
		return nil, err
	}
	if _, err := query[surrealPage](ctx, r.db,
		"CREATE type::thing($tb, $id) CONTENT $content",
		map[string]any{"tb": surrealTable, "id": page.ID, "content": content}); err != nil {
		return nil, err
	}

	log.Info().Str("page_id", page.ID).Str("slug", page.Slug).Msg("page created")
	return page, nil
}

func (r *SurrealRepository) GetByID(ctx context.Context, id string) (*models.Page, error) {
	return r.one(ctx, "SELECT * FROM type::thing($tb, $id)", map[string]any{"tb": surrealTable, "id": id})
}

func (r *SurrealRepository) GetBySlug(ctx context.Context, slug string) (*models.Page, error) {
	return r.one(ctx, "SELECT * FROM type::table($tb) WHERE slug = $slug LIMIT 1",
		map[string]any{"tb": surrealTable, "slug": NormalizeSlug(slug)})
}

func (r *SurrealRepository) one(ctx context.Context, sql string, vars map[string]any) (*models.Page, error) {
	rows, err := query[surrealPage](ctx, r.db, sql, vars)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0].toPage()
}

// where builds the condition for a filter. Values only ever travel as vars.
func where(filter ListFilter, vars map[string]any) string {
	conds := []string{}
	if filter.Type != "" {
		conds = append(conds, "type = $type")
		vars["type"] = string(filter.Type)
	}
	if filter.Status != "" {
		conds = append(conds, "status = $status")
		vars["status"] = string(filter.Status)
	}
	if filter.Category != "" {
		conds = append(conds, "category = $category")
		vars["category"] = filter.Category
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conds = append(conds, "(string::lowercase(title) CONTAINS $search OR string::lowercase(description) CONTAINS $search OR string::lowercase(category) CONTAINS $search)")
		vars["search"] = strings.ToLower(search)
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func (r *SurrealRepository) List(ctx context.Context, filter ListFilter, page, limit int) (*ListResult, error) {
	page, limit = Paginate(page, limit)
	vars := map[string]any{"tb": surrealTable, "limit": limit, "start": (page - 1) * limit}
	cond := where(filter, vars)

	counts, err := query[surrealCount](ctx, r.db, "SELECT count() AS total FROM type::table($tb)"+cond+" GROUP ALL", vars)
	if err != nil {
		return nil, err
	}
	var total int64
	if len(counts) > 0 {
		total = counts[0].Total
	}

	rows, err := query[surrealPage](ctx, r.db,
		"SELECT * FROM type::table($tb)"+cond+" ORDER BY updated_at DESC LIMIT $limit START $start", vars)
	if err != nil {
		return nil, err
	}
	items := make([]*models.Page, 0, len(rows))
	for _, row := range rows {
		p, err := row.toPage()
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return newListResult(items, total, page, limit), nil
}

func (r *SurrealRepository) Update(ctx context.Context, id string, upd PageUpdate) (*models.Page, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := applyUpdate(current, upd)
	if err != nil {
		return nil, err
	}
	if next.Slug != current.Slug {
		clash, err := query[surrealPage](ctx, r.db,
			"SELECT * FROM type::table($tb) WHERE slug = $slug AND page_id != $id",
			map[string]any{"tb": surrealTable, "slug": next.Slug, "id": id})
		if err != nil {
			return nil, err
		}
		if len(clash) > 0 {
			return nil, &ConflictError{Field: "slug", Value: next.Slug}
		}
	}

	content, err := toSurreal(next)
	if err != nil {
		return nil, err
	}
	if _, err := query[surrealPage](ctx, r.db,
		"UPDATE type::thing($tb, $id) CONTENT $content",
		map[string]any{"tb": surrealTable, "id": id, "content": content}); err != nil {
		return nil, err
	}

	log.Info().Str("page_id", id).Str("status", string(next.Status)).Msg("page updated")
	return next, nil
}

func (r *SurrealRepository) SoftDelete(ctx context.Context, id string) (*models.Page, error) {
	return r.Update(ctx, id, trashed())
}

func (r *SurrealRepository) HardDelete(ctx context.Context, id string) error {
	removed, err := query[surrealPage](ctx, r.db,
		"DELETE type::thing($tb, $id) RETURN BEFORE",
		map[string]any{"tb": surrealTable, "id": id})
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		return ErrNotFound
	}
	log.Info().Str("page_id", id).Msg("page deleted")
	return nil
}

func (r *SurrealRepository) Stats(ctx context.Context) (*Stats, error) {
	rows, err := query[surrealCount](ctx, r.db,
		"SELECT count() AS total, count(status = $published) AS published, count(status = $draft) AS drafts "+
			"FROM type::table($tb) WHERE status != $trashed GROUP ALL",
		map[string]any{
			"tb":        surrealTable,
			"published": string(models.StatusPublished),
			"draft":     string(models.StatusDraft),
			"trashed":   string(models.StatusTrashed),
		})
	if err != nil {
		return nil, err
	}
	stats := &Stats{}
	if len(rows) > 0 {
		stats.Total, stats.Published, stats.Drafts = rows[0].Total, rows[0].Published, rows[0].Drafts
	}
	return stats, nil
}
