package cache

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Middleware serves GET requests for routes with a :slug param from the
// store and records successful HTML responses on a miss.
func (s *Store) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")
		if c.Request.Method != http.MethodGet || slug == "" {
			c.Next()
			return
		}

		if cached, found := s.Read(slug); found {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "text/html; charset=utf-8", cached)
			c.Abort()
			return
		}

		c.Header("X-Cache", "MISS")
		writer := &responseWriter{ResponseWriter: c.Writer, body: bytes.NewBuffer(nil)}
		c.Writer = writer

		c.Next()

		if writer.Status() == http.StatusOK &&
			strings.HasPrefix(writer.Header().Get("Content-Type"), "text/html") {
			if err := s.Write(slug, writer.body.Bytes()); err != nil {
				log.Warn().Err(err).Str("slug", slug).Msg("failed to cache page")
			}
		}
	}
}
