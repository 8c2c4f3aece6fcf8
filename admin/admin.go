// Package admin is the authenticated JSON API behind the page editor.
package admin

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"noticeboard/analytics"
	"noticeboard/cache"
	"noticeboard/config"
	"noticeboard/editor"
	"noticeboard/extraction"
	"noticeboard/repository"
)

type Options struct {
	DB        *gorm.DB // users
	Repo      repository.PageRepository
	Sessions  *editor.Sessions
	Pipeline  *extraction.Pipeline
	Cache     *cache.Store // nil disables invalidation
	Analytics *analytics.AnalyticsModule
	Admin     config.AdminConfig
}

type AdminModule struct {
	db        *gorm.DB
	repo      repository.PageRepository
	sessions  *editor.Sessions
	pipeline  *extraction.Pipeline
	cache     *cache.Store
	analytics *analytics.AnalyticsModule
	access    config.AdminConfig
}

func NewAdminModule(opts Options) *AdminModule {
	if opts.Sessions == nil {
		opts.Sessions = editor.NewSessions(0)
	}
	if opts.Pipeline == nil {
		opts.Pipeline = extraction.NewPipeline(extraction.NewHTMLExtractor())
	}
	return &AdminModule{
		db:        opts.DB,
		repo:      opts.Repo,
		sessions:  opts.Sessions,
		pipeline:  opts.Pipeline,
		cache:     opts.Cache,
		analytics: opts.Analytics,
		access:    opts.Admin,
	}
}

func (a *AdminModule) RegisterRoutes(router *gin.Engine) {
	router.POST("/admin/login", a.login)
	router.POST("/admin/logout", a.logout)

	api := router.Group("/admin/api")
	api.Use(a.requireAuth)
	{
		api.GET("/me", a.me)
		api.GET("/stats", a.stats)
		api.GET("/slug", a.suggestSlug)

		api.GET("/pages", a.listPages)
		api.POST("/pages", a.createPage)
		api.GET("/pages/:id", a.getPage)
		api.PATCH("/pages/:id", a.updatePage)
		api.DELETE("/pages/:id", a.deletePage)
		api.POST("/pages/:id/trash", a.trashPage)

		api.POST("/validate", a.validate)
	}

	sess := api.Group("/editor/sessions")
	{
		sess.POST("", a.openSession)
	}
	ed := sess.Group("/:sid")
	ed.Use(a.loadSession)
	{
		ed.GET("", a.getSession)
		ed.DELETE("", a.closeSession)
		ed.POST("/reset", a.resetSession)
		ed.POST("/import", a.importJSON)
		ed.GET("/export", a.exportJSON)
		ed.PUT("/view", a.setViewMode)
		ed.GET("/preview", a.preview)
		ed.PATCH("/metadata", a.updateMetadata)
		ed.POST("/extract", a.extract)
		ed.POST("/submit", a.submit)

		ed.POST("/sections", a.addSection)
		ed.POST("/sections/move", a.moveSection)
		ed.POST("/sections/reorder", a.reorderSections)
		ed.PATCH("/sections/:secId", a.updateSection)
		ed.DELETE("/sections/:secId", a.deleteSection)
		ed.POST("/sections/:secId/subsections", a.addSubSection)
		ed.PATCH("/sections/:secId/subsections/:subId", a.updateSubSection)
		ed.POST("/sections/:secId/blocks", a.addBlock)
		ed.PATCH("/sections/:secId/blocks/:blockId", a.updateBlock)
		ed.DELETE("/sections/:secId/children/:childId", a.deleteChild)
		ed.POST("/sections/:secId/children/move", a.moveChild)
		ed.POST("/sections/:secId/children/reorder", a.reorderChildren)

		ed.POST("/tables/columns", a.addTableColumn)
		ed.POST("/tables/columns/remove", a.removeTableColumn)
		ed.POST("/tables/rows", a.addTableRow)
		ed.POST("/tables/rows/remove", a.removeTableRow)
		ed.PATCH("/tables/cells", a.updateTableCell)
	}
}
