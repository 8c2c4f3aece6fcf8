package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"noticeboard/analytics"
	"noticeboard/common"
	"noticeboard/models"
	"noticeboard/repository"
)

const (
	statsDays     = 30
	statsTopPages = 10
)

type statsResponse struct {
	Pages    *repository.Stats     `json:"pages"`
	Views    []analytics.DayViews  `json:"views,omitempty"`
	TopPages []analytics.PageViews `json:"topPages,omitempty"`
}

func (a *AdminModule) stats(c *gin.Context) {
	stats, err := a.repo.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	resp := statsResponse{Pages: stats}
	if a.analytics != nil {
		resp.Views = a.analytics.GetViewsByDay(statsDays)
		resp.TopPages = a.analytics.GetTopPages(statsDays, statsTopPages)
	}
	common.OK(c, http.StatusOK, "Statistics retrieved", resp)
}

func (a *AdminModule) suggestSlug(c *gin.Context) {
	title := c.Query("title")
	slug := models.Slugify(title)
	if slug == "" {
		badRequest(c, "Title is required")
		return
	}
	common.OK(c, http.StatusOK, "Slug generated", gin.H{"slug": slug})
}

func (a *AdminModule) listPages(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(repository.DefaultLimit)))

	filter := repository.ListFilter{
		Type:     models.PageType(c.Query("type")),
		Status:   models.PageStatus(c.Query("status")),
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	if filter.Type != "" && !filter.Type.Valid() {
		badRequest(c, "Unknown page type")
		return
	}
	if filter.Status != "" && !filter.Status.Valid() {
		badRequest(c, "Unknown page status")
		return
	}

	result, err := a.repo.List(c.Request.Context(), filter, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	common.OK(c, http.StatusOK, "Pages retrieved", result)
}

func (a *AdminModule) createPage(c *gin.Context) {
	var page models.Page
	if err := c.ShouldBindJSON(&page); err != nil {
		badRequest(c, "Invalid page JSON: "+err.Error())
		return
	}
	created, err := a.repo.Create(c.Request.Context(), &page)
	if err != nil {
		respondError(c, err)
		return
	}
	common.OK(c, http.StatusCreated, "Page created", created)
}

func (a *AdminModule) getPage(c *gin.Context) {
	page, err := a.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	common.OK(c, http.StatusOK, "Page retrieved", page)
}

func (a *AdminModule) updatePage(c *gin.Context) {
	var upd repository.PageUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		badRequest(c, "Invalid update JSON: "+err.Error())
		return
	}
	updated, err := a.savePage(c, c.Param("id"), upd)
	if err != nil {
		respondError(c, err)
		return
	}
	common.OK(c, http.StatusOK, "Page updated", updated)
}

func (a *AdminModule) trashPage(c *gin.Context) {
	id := c.Param("id")
	before, err := a.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := a.repo.SoftDelete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	a.invalidate(before.Slug, page.Slug)
	common.OK(c, http.StatusOK, "Page moved to trash", page)
}

func (a *AdminModule) deletePage(c *gin.Context) {
	id := c.Param("id")
	before, err := a.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := a.repo.HardDelete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	a.invalidate(before.Slug)
	common.OK(c, http.StatusOK, "Page deleted", nil)
}

// savePage updates a stored page and drops the cached copies under both the
// old and the new slug.
func (a *AdminModule) savePage(c *gin.Context, id string, upd repository.PageUpdate) (*models.Page, error) {
	before, err := a.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	updated, err := a.repo.Update(c.Request.Context(), id, upd)
	if err != nil {
		return nil, err
	}
	a.invalidate(before.Slug, updated.Slug)
	return updated, nil
}

func (a *AdminModule) invalidate(slugs ...string) {
	if a.cache == nil {
		return
	}
	a.cache.Invalidate(slugs...)
	log.Debug().Strs("slugs", slugs).Msg("page cache invalidated")
}
