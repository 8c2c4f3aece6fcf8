package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"noticeboard/common"
	"noticeboard/editor"
	"noticeboard/extraction"
	"noticeboard/models"
	"noticeboard/repository"
	"noticeboard/schema"
)

// ErrorBody is the data attached to a 422 so the editor can point at the field.
type ErrorBody struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func statusFor(err error) int {
	var verr *schema.ValidationError
	switch {
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.As(err, &verr), errors.Is(err, repository.ErrInvalidPage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrUnsupportedBlockType),
		errors.Is(err, editor.ErrEmptyColumnName),
		errors.Is(err, editor.ErrDuplicateColumn),
		errors.Is(err, extraction.ErrEmptyInput),
		errors.Is(err, models.ErrUnknownFieldType):
		return http.StatusBadRequest
	case errors.Is(err, extraction.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes err with the status it maps to. Server errors are
// logged and their text is not sent back.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("admin request failed")
		if status == http.StatusBadGateway {
			common.Fail(c, status, "Extraction service unavailable")
			return
		}
		common.Fail(c, status, "Internal server error")
		return
	}

	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		c.AbortWithStatusJSON(status, common.Response{
			Success: false,
			Message: err.Error(),
			Data:    ErrorBody{Path: verr.Path, Reason: verr.Reason},
		})
		return
	}
	common.Fail(c, status, err.Error())
}

func badRequest(c *gin.Context, message string) {
	common.Fail(c, http.StatusBadRequest, message)
}
