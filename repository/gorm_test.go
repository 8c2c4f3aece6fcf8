package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"noticeboard/models"
	"noticeboard/schema"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.PageRecord{}))
	return db
}

func newTestPage(title, slug, category string) *models.Page {
	p := models.NewPage()
	p.Title = title
	p.Slug = slug
	p.Category = category
	return p
}

func TestGormCreate_Defaults(t *testing.T) {
	repo := NewGormRepository(setupTestDB(t))
	ctx := context.Background()

	in := &models.Page{Title: " SSC GD ", Slug: " SSC-GD ", Type: models.PageTypeJob, Category: "ssc"}
	created, err := repo.Create(ctx, in)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "ssc-gd", created.Slug)
	assert.Equal(t, "SSC GD", created.Title)
	assert.Equal(t, models.StatusDraft, created.Status)
	assert.Equal(t, 1, created.SchemaVersion)
	assert.NotEmpty(t, created.UpdatedAt)
	assert.Empty(t, in.ID, "input must not be modified")

	got, err := repo.GetBySlug(ctx, "SSC-GD")
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestGormCreate_RequiredFields(t *testing.T) {
	repo := NewGormRepository(setupTestDB(t))

	_, err := repo.Create(context.Background(), &models.Page{Title: "x", Type: models.PageTypeJob})
	assert.ErrorIs(t, err, ErrInvalidPage)
	assert.Contains(t, err.Error(), "slug")
	assert.Contains(t, err.Error(), "category")
}

func TestGormCreate_SchemaViolation(t *testing.T) {
	repo := NewGormRepository(setupTestDB(t))
	p := newTestPage("x", "x", "c")
	p.Sections = []models.Section{{ID: "", Title: "S"}}

	_, err := repo.Create(context.Background(), p)
	assert.ErrorIs(t, err, ErrInvalidPage)
	var verr *schema.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestGormCreate_Conflicts(t *testing.T) {
	repo := NewGormRepository(setupTestDB(t))
	ctx := context.Background()

	first, err := repo.Create(ctx, newTestPage("A", "same-slug", "bank"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newTestPage("B", "same-slug", "bank"))
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "slug", conflict.Field)
	assert.ErrorIs(t, err, ErrConflict)

	dup := newTestPage("C", "other-slug", "bank")
	dup.ID = first.ID
	_, err = repo.Create(ctx, dup)
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "_id", conflict.Field)
}

func TestGormGet_NotFound(t *testing.T) {
	repo := NewGormRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormList_FiltersAndPagination(t *testing.T) {
	repo := NewGormRepository(setupTestDB(t))
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		p := newTestPage(fmt.Sprintf("Bank PO %d", i), fmt.Sprintf("bank-po-%d", i), "bank")
		if i%2 == 0 {
			p.Status = models.StatusPublished
		}
		_, err := repo.Create(ctx, p)
		require.NoError(t, err)
	}
	result := newTestPage("Railway Result", "railway-result", "railway")
	result.Type = models.PageTypeResult
	result.Description = "Group D 100% marks list"
	_, err := repo.Create(ctx, result)
	require.NoError(t, err)

	all, err := repo.List(ctx, ListFilter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(13), all.Total)
	assert.Len(t, all.Items, DefaultLimit)
	assert.Equal(t, 2, all.TotalPages)
	assert.True(t, all.HasMore)

	second, err := repo.List(ctx, ListFilter{}, 2, 10)
	require.NoError(t, err)
	assert.Len(t, second.Items, 3)
	assert.False(t, second.HasMore)

	published, err := repo.List(ctx, ListFilter{Type: models.PageTypeJob, Status: models.StatusPublished}, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(6), published.Total)

	search, err := repo.List(ctx, ListFilter{Search: "GROUP d"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, search.Items, 1)
	assert.Equal(t, "railway-result", search.Items[0].Slug)

	literal, err := repo.List(ctx, ListFilter{Search: "100%"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), literal.Total)

	byCategory, err := repo.List(ctx, ListFilter{Category: "railway"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), byCategory.Total)
}

func TestGormUpdate(t *testing.T) {
	repo := NewGormRepository(setupTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, newTestPage("Admit Card", "admit-card", "ssc"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newTestPage("Taken", "taken", "ssc"))
	require.NoError(t, err)

	status := models.StatusPublished
	sections := []models.Section{models.NewSection("Dates")}
	updated, err := repo.Update(ctx, created.ID, PageUpdate{
		MetadataPatch: models.MetadataPatch{Status: &status},
		Sections:      &sections,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, updated.Status)
	assert.NotEmpty(t, updated.PublishedAt)
	assert.Len(t, updated.Sections, 1)

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, stored)

	slug := "taken"
	_, err = repo.Update(ctx, created.ID, PageUpdate{MetadataPatch: models.MetadataPatch{Slug: &slug}})
	assert.ErrorIs(t, err, ErrConflict)

	bad := models.PageStatus("GONE")
	_, err = repo.Update(ctx, created.ID, PageUpdate{MetadataPatch: models.MetadataPatch{Status: &bad}})
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, err = repo.Update(ctx, "missing", PageUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormDeleteAndStats(t *testing.T) {
	repo := NewGormRepository(setupTestDB(t))
	ctx := context.Background()

	a, err := repo.Create(ctx, newTestPage("A", "a", "c"))
	require.NoError(t, err)
	b := newTestPage("B", "b", "c")
	b.Status = models.StatusPublished
	_, err = repo.Create(ctx, b)
	require.NoError(t, err)
	c, err := repo.Create(ctx, newTestPage("C", "c", "c"))
	require.NoError(t, err)

	trashed, err := repo.SoftDelete(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTrashed, trashed.Status)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{Total: 2, Published: 1, Drafts: 1}, stats)

	require.NoError(t, repo.HardDelete(ctx, c.ID))
	assert.ErrorIs(t, repo.HardDelete(ctx, c.ID), ErrNotFound)
	_, err = repo.GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPaginate(t *testing.T) {
	page, limit := Paginate(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultLimit, limit)

	_, limit = Paginate(3, 1000)
	assert.Equal(t, MaxLimit, limit)
}
