package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"noticeboard/models"
)

// GormRepository stores pages as rows of models.PageRecord.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, p *models.Page) (*models.Page, error) {
	page, err := prepareNew(p)
	if err != nil {
		return nil, err
	}
	rec, err := models.NewPageRecord(page)
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkUnique(tx, "id", page.ID, ""); err != nil {
			return err
		}
		if err := checkUnique(tx, "slug", page.Slug, ""); err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ConflictError{Field: "slug", Value: page.Slug}
		}
		return nil, err
	}

	log.Info().Str("page_id", page.ID).Str("slug", page.Slug).Msg("page created")
	return page, nil
}

// checkUnique fails with a ConflictError when another row already holds value.
func checkUnique(tx *gorm.DB, column, value, exceptID string) error {
	var count int64
	q := tx.Model(&models.PageRecord{}).Where(column+" = ?", value)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		field := column
		if column == "id" {
			field = "_id"
		}
		return &ConflictError{Field: field, Value: value}
	}
	return nil
}

func (r *GormRepository) GetByID(ctx context.Context, id string) (*models.Page, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *GormRepository) GetBySlug(ctx context.Context, slug string) (*models.Page, error) {
	return r.first(r.db.WithContext(ctx).Where("slug = ?", NormalizeSlug(slug)))
}

func (r *GormRepository) first(q *gorm.DB) (*models.Page, error) {
	var rec models.PageRecord
	if err := q.First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec.ToPage()
}

func (r *GormRepository) List(ctx context.Context, filter ListFilter, page, limit int) (*ListResult, error) {
	page, limit = Paginate(page, limit)

	q := r.db.WithContext(ctx).Model(&models.PageRecord{})
	if filter.Type != "" {
		q = q.Where("type = ?", string(filter.Type))
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		q = q.Where(
			`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var recs []models.PageRecord
	err := q.Order("updated_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	items := make([]*models.Page, 0, len(recs))
	for i := range recs {
		p, err := recs[i].ToPage()
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return newListResult(items, total, page, limit), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *GormRepository) Update(ctx context.Context, id string, upd PageUpdate) (*models.Page, error) {
	var updated *models.Page
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.PageRecord
		if err := tx.Where("id = ?", id).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		current, err := existing.ToPage()
		if err != nil {
			return err
		}
		next, err := applyUpdate(current, upd)
		if err != nil {
			return err
		}
		if next.Slug != current.Slug {
			if err := checkUnique(tx, "slug", next.Slug, id); err != nil {
				return err
			}
		}
		rec, err := models.NewPageRecord(next)
		if err != nil {
			return err
		}
		rec.CreatedAt = existing.CreatedAt
		if err := tx.Save(rec).Error; err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("page_id", id).Str("status", string(updated.Status)).Msg("page updated")
	return updated, nil
}

func (r *GormRepository) SoftDelete(ctx context.Context, id string) (*models.Page, error) {
	return r.Update(ctx, id, trashed())
}

func (r *GormRepository) HardDelete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PageRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	log.Info().Str("page_id", id).Msg("page deleted")
	return nil
}

func (r *GormRepository) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	db := r.db.WithContext(ctx).Model(&models.PageRecord{})
	if err := db.Session(&gorm.Session{}).Where("status <> ?", string(models.StatusTrashed)).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("status = ?", string(models.StatusPublished)).Count(&stats.Published).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("status = ?", string(models.StatusDraft)).Count(&stats.Drafts).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
