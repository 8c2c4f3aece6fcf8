package admin

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"noticeboard/common"
	"noticeboard/editor"
	"noticeboard/models"
	"noticeboard/render"
	"noticeboard/repository"
	"noticeboard/schema"
)

const editorSessionKey = "editor_session"

// SessionView is what every editor endpoint answers with.
type SessionView struct {
	SessionID string          `json:"sessionId"`
	PageID    string          `json:"pageId,omitempty"`
	ViewMode  editor.ViewMode `json:"viewMode"`
	Page      *models.Page    `json:"page"`
	NewID     string          `json:"newId,omitempty"`
}

type openRequest struct {
	PageID string `json:"pageId"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type viewRequest struct {
	Mode string `json:"mode" binding:"required"`
}

type moveRequest struct {
	SubSectionID string `json:"subSectionId"`
	Index        int    `json:"index"`
	Direction    string `json:"direction" binding:"required"`
}

type reorderRequest struct {
	SubSectionID string `json:"subSectionId"`
	From         int    `json:"from"`
	To           int    `json:"to"`
}

type addBlockRequest struct {
	SubSectionID string `json:"subSectionId"`
	Type         string `json:"type" binding:"required"`
}

type updateBlockRequest struct {
	SubSectionID string `json:"subSectionId"`
	editor.BlockPatch
}

type extractRequest struct {
	Input string `json:"input"`
}

type columnRequest struct {
	editor.TableRef
	Name string `json:"name"`
}

type rowRequest struct {
	editor.TableRef
	Row int `json:"row"`
}

type cellRequest struct {
	editor.TableRef
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

func (a *AdminModule) loadSession(c *gin.Context) {
	sess, ok := a.sessions.Get(c.Param("sid"))
	if !ok {
		common.Fail(c, http.StatusNotFound, "Editor session not found")
		return
	}
	c.Set(editorSessionKey, sess)
	c.Next()
}

func currentSession(c *gin.Context) *editor.Session {
	return c.MustGet(editorSessionKey).(*editor.Session)
}

func view(sess *editor.Session) SessionView {
	return SessionView{
		SessionID: sess.ID,
		PageID:    sess.Source(),
		ViewMode:  sess.Store.ViewMode(),
		Page:      sess.Store.Page(),
	}
}

func respondView(c *gin.Context, message string, sess *editor.Session) {
	common.OK(c, http.StatusOK, message, view(sess))
}

// bind decodes the JSON body into req, answering 400 itself on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return false
	}
	return true
}

func direction(c *gin.Context, s string) (editor.Direction, bool) {
	dir, err := editor.ParseDirection(s)
	if err != nil {
		badRequest(c, err.Error())
		return 0, false
	}
	return dir, true
}

func (a *AdminModule) openSession(c *gin.Context) {
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	var page *models.Page
	if req.PageID != "" {
		stored, err := a.repo.GetByID(c.Request.Context(), req.PageID)
		if err != nil {
			respondError(c, err)
			return
		}
		page = stored
	}
	sess := a.sessions.Open(page)
	common.OK(c, http.StatusCreated, "Editor session opened", view(sess))
}

func (a *AdminModule) getSession(c *gin.Context) {
	respondView(c, "Editor session", currentSession(c))
}

func (a *AdminModule) closeSession(c *gin.Context) {
	a.sessions.Close(currentSession(c).ID)
	common.OK(c, http.StatusOK, "Editor session closed", nil)
}

func (a *AdminModule) resetSession(c *gin.Context) {
	sess := currentSession(c)
	sess.Store.ResetPage()
	sess.Bind("")
	respondView(c, "Editor reset", sess)
}

func (a *AdminModule) importJSON(c *gin.Context) {
	sess := currentSession(c)
	data, err := c.GetRawData()
	if err != nil {
		badRequest(c, "Could not read request body")
		return
	}
	if err := sess.Store.ImportJSON(data); err != nil {
		respondError(c, err)
		return
	}
	respondView(c, "Page imported", sess)
}

func (a *AdminModule) exportJSON(c *gin.Context) {
	sess := currentSession(c)
	data, err := sess.Store.ExportJSON()
	if err != nil {
		respondError(c, err)
		return
	}
	name := sess.Store.Page().Slug
	if name == "" {
		name = "page"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.json"`, name))
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (a *AdminModule) setViewMode(c *gin.Context) {
	var req viewRequest
	if !bind(c, &req) {
		return
	}
	mode, err := editor.ParseViewMode(req.Mode)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	sess := currentSession(c)
	sess.Store.SetViewMode(mode)
	respondView(c, "View mode updated", sess)
}

func (a *AdminModule) preview(c *gin.Context) {
	body, err := render.Page(currentSession(c).Store.Page())
	if err != nil {
		respondError(c, err)
		return
	}
	if c.Query("format") == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
		return
	}
	common.OK(c, http.StatusOK, "Preview rendered", gin.H{"html": string(body)})
}

func (a *AdminModule) updateMetadata(c *gin.Context) {
	var patch models.MetadataPatch
	if !bind(c, &patch) {
		return
	}
	if err := patch.Validate(); err != nil {
		respondError(c, &schema.ValidationError{Path: schema.RootPath, Reason: err.Error()})
		return
	}
	sess := currentSession(c)
	sess.Store.UpdateMetadata(patch)
	respondView(c, "Metadata updated", sess)
}

func (a *AdminModule) extract(c *gin.Context) {
	var req extractRequest
	if !bind(c, &req) {
		return
	}
	sess := currentSession(c)
	draft, err := a.pipeline.Draft(c.Request.Context(), req.Input)
	if err != nil {
		respondError(c, err)
		return
	}
	sess.Store.SetPage(draft)
	log.Info().Str("session", sess.ID).Str("slug", draft.Slug).Msg("draft extracted into editor")
	respondView(c, "Draft extracted", sess)
}

// submit saves the edited page. A session opened from a stored page updates
// it; otherwise the page is created and the session is bound to it. When the
// save fails the store keeps the unsaved page.
func (a *AdminModule) submit(c *gin.Context) {
	sess := currentSession(c)
	page := sess.Store.Page()

	var (
		saved   *models.Page
		err     error
		status  = http.StatusOK
		message = "Page updated"
	)
	if id := sess.Source(); id != "" {
		saved, err = a.savePage(c, id, fullUpdate(page))
	} else {
		saved, err = a.repo.Create(c.Request.Context(), page)
		status, message = http.StatusCreated, "Page created"
	}
	if err != nil {
		log.Warn().Err(err).Str("session", sess.ID).Msg("submit failed")
		respondError(c, err)
		return
	}

	sess.Store.SetPage(saved)
	sess.Bind(saved.ID)
	common.OK(c, status, message, view(sess))
}

// fullUpdate turns an edited page into an update that overwrites every
// editable field of the stored one.
func fullUpdate(p *models.Page) repository.PageUpdate {
	sections := p.Sections
	return repository.PageUpdate{
		MetadataPatch: models.MetadataPatch{
			SchemaVersion:  &p.SchemaVersion,
			Title:          &p.Title,
			Slug:           &p.Slug,
			Description:    &p.Description,
			Type:           &p.Type,
			Status:         &p.Status,
			Category:       &p.Category,
			ImportantDates: p.ImportantDates,
			PublishedAt:    &p.PublishedAt,
			DisplayConfig:  p.DisplayConfig,
			Metadata:       p.Metadata,
		},
		Sections: &sections,
	}
}

func (a *AdminModule) addSection(c *gin.Context) {
	sess := currentSession(c)
	id := sess.Store.AddSection()
	v := view(sess)
	v.NewID = id
	common.OK(c, http.StatusCreated, "Section added", v)
}

func (a *AdminModule) updateSection(c *gin.Context) {
	var req titleRequest
	if !bind(c, &req) {
		return
	}
	sess := currentSession(c)
	sess.Store.UpdateSection(c.Param("secId"), req.Title)
	respondView(c, "Section updated", sess)
}

func (a *AdminModule) deleteSection(c *gin.Context) {
	sess := currentSession(c)
	sess.Store.DeleteSection(c.Param("secId"))
	respondView(c, "Section deleted", sess)
}

func (a *AdminModule) moveSection(c *gin.Context) {
	var req moveRequest
	if !bind(c, &req) {
		return
	}
	dir, ok := direction(c, req.Direction)
	if !ok {
		return
	}
	sess := currentSession(c)
	sess.Store.MoveSection(req.Index, dir)
	respondView(c, "Section moved", sess)
}

func (a *AdminModule) reorderSections(c *gin.Context) {
	var req reorderRequest
	if !bind(c, &req) {
		return
	}
	sess := currentSession(c)
	sess.Store.ReorderSections(req.From, req.To)
	respondView(c, "Sections reordered", sess)
}

func (a *AdminModule) addSubSection(c *gin.Context) {
	sess := currentSession(c)
	id := sess.Store.AddSubSection(c.Param("secId"))
	if id == "" {
		common.Fail(c, http.StatusNotFound, "Section not found")
		return
	}
	v := view(sess)
	v.NewID = id
	common.OK(c, http.StatusCreated, "Sub-section added", v)
}

func (a *AdminModule) updateSubSection(c *gin.Context) {
	var req titleRequest
	if !bind(c, &req) {
		return
	}
	sess := currentSession(c)
	sess.Store.UpdateSubSection(c.Param("secId"), c.Param("subId"), req.Title)
	respondView(c, "Sub-section updated", sess)
}

func (a *AdminModule) addBlock(c *gin.Context) {
	var req addBlockRequest
	if !bind(c, &req) {
		return
	}
	t, err := models.ParseFieldType(req.Type)
	if err != nil {
		respondError(c, err)
		return
	}
	sess := currentSession(c)
	id, err := sess.Store.AddBlock(c.Param("secId"), req.SubSectionID, t)
	if err != nil {
		respondError(c, err)
		return
	}
	if id == "" {
		common.Fail(c, http.StatusNotFound, "Section not found")
		return
	}
	v := view(sess)
	v.NewID = id
	common.OK(c, http.StatusCreated, "Block added", v)
}

func (a *AdminModule) updateBlock(c *gin.Context) {
	var req updateBlockRequest
	if !bind(c, &req) {
		return
	}
	sess := currentSession(c)
	sess.Store.UpdateBlock(c.Param("secId"), req.SubSectionID, c.Param("blockId"), req.BlockPatch)
	respondView(c, "Block updated", sess)
}

func (a *AdminModule) deleteChild(c *gin.Context) {
	sess := currentSession(c)
	sess.Store.DeleteChild(c.Param("secId"), c.Query("subSectionId"), c.Param("childId"))
	respondView(c, "Child deleted", sess)
}

func (a *AdminModule) moveChild(c *gin.Context) {
	var req moveRequest
	if !bind(c, &req) {
		return
	}
	dir, ok := direction(c, req.Direction)
	if !ok {
		return
	}
	sess := currentSession(c)
	sess.Store.MoveChild(c.Param("secId"), req.SubSectionID, req.Index, dir)
	respondView(c, "Child moved", sess)
}

func (a *AdminModule) reorderChildren(c *gin.Context) {
	var req reorderRequest
	if !bind(c, &req) {
		return
	}
	sess := currentSession(c)
	sess.Store.ReorderChildren(c.Param("secId"), req.SubSectionID, req.From, req.To)
	respondView(c, "Children reordered", sess)
}

func (a *AdminModule) addTableColumn(c *gin.Context) {
	var req columnRequest
	if !bind(c, &req) {
		return
	}
	sess := currentSession(c)
	if err := sess.Store.AddTableColumn(req.TableRef, req.Name); err != nil {
		respondError(c, err)
		return
	}
	respondView(c, "Column added", sess)
}

func (a *AdminModule) removeTableColumn(c *gin.Context) {
	var req columnRequest
	if !bind(c, &req) {
		return
	}
	sess := currentSession(c)
	sess.Store.RemoveTableColumn(req.TableRef, req.Name)
	respondView(c, "Column removed", sess)
}

func (a *AdminModule) addTableRow(c *gin.Context) {
	var ref editor.TableRef
	if !bind(c, &ref) {
		return
	}
	sess := currentSession(c)
	sess.Store.AddTableRow(ref)
	respondView(c, "Row added", sess)
}

func (a *AdminModule) removeTableRow(c *gin.Context) {
	var req rowRequest
	if !bind(c, &req) {
		return
	}
	sess := currentSession(c)
	sess.Store.RemoveTableRow(req.TableRef, req.Row)
	respondView(c, "Row removed", sess)
}

func (a *AdminModule) updateTableCell(c *gin.Context) {
	var req cellRequest
	if !bind(c, &req) {
		return
	}
	sess := currentSession(c)
	sess.Store.UpdateTableCell(req.TableRef, req.Row, req.Column, req.Value)
	respondView(c, "Cell updated", sess)
}

func (a *AdminModule) validate(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		badRequest(c, "Could not read request body")
		return
	}
	if err := schema.ValidateJSON(data); err != nil {
		respondError(c, err)
		return
	}
	common.OK(c, http.StatusOK, "Page is valid", nil)
}
