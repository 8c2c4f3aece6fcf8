// Package site serves the public read side: the jobs API, rendered pages
// and the sitemap.
package site

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"noticeboard/analytics"
	"noticeboard/cache"
	"noticeboard/common"
	"noticeboard/models"
	"noticeboard/render"
	"noticeboard/repository"
)

//go:embed views/*.html
var views embed.FS

const (
	defaultJobsLimit = 12
	homeLimit        = 20
)

type SiteModule struct {
	repo      repository.PageRepository
	cache     *cache.Store
	analytics *analytics.AnalyticsModule
	domain    string
}

func NewSiteModule(repo repository.PageRepository, store *cache.Store, an *analytics.AnalyticsModule, domain string) *SiteModule {
	return &SiteModule{
		repo:      repo,
		cache:     store,
		analytics: an,
		domain:    strings.TrimSuffix(domain, "/"),
	}
}

// Templates parses the embedded views with the helpers they use.
func (s *SiteModule) Templates() *template.Template {
	return template.Must(template.New("site").Funcs(template.FuncMap{
		"now":    time.Now,
		"domain": func() string { return s.domain },
	}).ParseFS(views, "views/*.html"))
}

func (s *SiteModule) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(s.Templates())

	router.GET("/", s.index)
	router.GET("/api/jobs", s.jobs)
	router.GET("/sitemap.xml", s.sitemap)

	handlers := []gin.HandlerFunc{s.analytics.Middleware()}
	if s.cache != nil {
		handlers = append(handlers, s.cache.Middleware())
	}
	router.GET("/page/:slug", append(handlers, s.page)...)
}

func (s *SiteModule) index(c *gin.Context) {
	result, err := s.repo.List(c.Request.Context(), repository.ListFilter{Status: models.StatusPublished}, 1, homeLimit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list published pages")
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.HTML(http.StatusOK, "home.html", gin.H{
		"title":     "Latest notices",
		"canonical": s.domain + "/",
		"pages":     result.Items,
	})
}

// JobSummary is the public projection of a page in listings.
type JobSummary struct {
	ID             string                 `json:"_id"`
	Title          string                 `json:"title"`
	Slug           string                 `json:"slug"`
	Category       string                 `json:"category,omitempty"`
	Description    string                 `json:"description,omitempty"`
	ImportantDates *models.ImportantDates `json:"importantDates,omitempty"`
	PublishedAt    string                 `json:"publishedAt,omitempty"`
	UpdatedAt      string                 `json:"updatedAt"`
}

type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
	HasMore    bool  `json:"hasMore"`
}

func summarize(p *models.Page) JobSummary {
	return JobSummary{
		ID:             p.ID,
		Title:          p.Title,
		Slug:           p.Slug,
		Category:       p.Category,
		Description:    p.Description,
		ImportantDates: p.ImportantDates,
		PublishedAt:    p.PublishedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

func (s *SiteModule) jobs(c *gin.Context) {
	page, okPage := queryInt(c, "page", 1)
	limit, okLimit := queryInt(c, "limit", defaultJobsLimit)
	if !okPage || !okLimit || page < 1 || limit < 1 || limit > repository.MaxLimit {
		common.Fail(c, http.StatusBadRequest, "Invalid pagination parameters")
		return
	}

	category := strings.TrimSpace(c.Query("category"))
	if category == "all" {
		category = ""
	}
	search := strings.TrimSpace(c.Query("search"))

	result, err := s.repo.List(c.Request.Context(), repository.ListFilter{
		Type:     models.PageTypeJob,
		Status:   models.StatusPublished,
		Category: category,
		Search:   search,
	}, page, limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list jobs")
		common.Fail(c, http.StatusInternalServerError, "An error occurred while fetching jobs")
		return
	}

	jobs := make([]JobSummary, len(result.Items))
	for i, p := range result.Items {
		jobs[i] = summarize(p)
	}

	var filters []string
	if category != "" {
		filters = append(filters, "category: "+category)
	}
	if search != "" {
		filters = append(filters, `search: "`+search+`"`)
	}
	message := "Retrieved " + strconv.Itoa(len(jobs)) + " job(s)"
	if len(filters) > 0 {
		message = "Found " + strconv.Itoa(len(jobs)) + " job(s) matching: " + strings.Join(filters, ", ")
	}
	message += " (Page " + strconv.Itoa(result.Page) + " of " + strconv.Itoa(result.TotalPages) + ")"

	common.OK(c, http.StatusOK, message, gin.H{
		"jobs": jobs,
		"pagination": Pagination{
			Total:      result.Total,
			Page:       result.Page,
			Limit:      result.Limit,
			TotalPages: result.TotalPages,
			HasMore:    result.HasMore,
		},
	})
}

func (s *SiteModule) page(c *gin.Context) {
	slug := c.Param("slug")

	p, err := s.repo.GetBySlug(c.Request.Context(), slug)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Error().Err(err).Str("slug", slug).Msg("failed to load page")
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	if p == nil || p.Status != models.StatusPublished {
		c.HTML(http.StatusNotFound, "not_found.html", gin.H{"title": "Page not found"})
		return
	}

	body, err := render.Page(p)
	if err != nil {
		log.Error().Err(err).Str("page_id", p.ID).Msg("failed to render page")
		c.String(http.StatusInternalServerError, "internal error")
		return
	}

	c.HTML(http.StatusOK, "page.html", gin.H{
		"title":       p.Title,
		"description": p.Description,
		"canonical":   s.domain + "/page/" + p.Slug,
		"page":        p,
		"body":        body,
	})
}

func (s *SiteModule) sitemap(c *gin.Context) {
	var sitemap strings.Builder
	sitemap.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sitemap.WriteString("\n")
	sitemap.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	sitemap.WriteString("\n")

	sitemap.WriteString("  <url>\n")
	sitemap.WriteString("    <loc>" + template.HTMLEscapeString(s.domain) + "/</loc>\n")
	sitemap.WriteString("    <changefreq>daily</changefreq>\n")
	sitemap.WriteString("    <priority>1.0</priority>\n")
	sitemap.WriteString("  </url>\n")

	filter := repository.ListFilter{Status: models.StatusPublished}
	for page := 1; ; page++ {
		result, err := s.repo.List(c.Request.Context(), filter, page, repository.MaxLimit)
		if err != nil {
			log.Error().Err(err).Msg("failed to build sitemap")
			c.String(http.StatusInternalServerError, "internal error")
			return
		}
		for _, p := range result.Items {
			sitemap.WriteString("  <url>\n")
			sitemap.WriteString("    <loc>" + template.HTMLEscapeString(s.domain+"/page/"+p.Slug) + "</loc>\n")
			if p.UpdatedAt != "" {
				sitemap.WriteString("    <lastmod>" + template.HTMLEscapeString(p.UpdatedAt) + "</lastmod>\n")
			}
			sitemap.WriteString("    <changefreq>weekly</changefreq>\n")
			sitemap.WriteString("    <priority>0.7</priority>\n")
			sitemap.WriteString("  </url>\n")
		}
		if !result.HasMore {
			break
		}
	}

	sitemap.WriteString("</urlset>\n")
	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, sitemap.String())
}
