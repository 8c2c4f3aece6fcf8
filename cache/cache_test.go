package cache

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath_StableAndDistinct(t *testing.T) {
	s := NewStore("cache", time.Minute)

	assert.Equal(t, s.Path("ssc-cgl"), s.Path("ssc-cgl"))
	assert.NotEqual(t, s.Path("ssc-cgl"), s.Path("SSC-CGL"))
	assert.Regexp(t, `^ssc-cgl_[0-9a-f]{16}\.html$`, filepath.Base(s.Path("ssc-cgl")))
	assert.Regexp(t, `^___etc_[0-9a-f]{16}\.html$`, filepath.Base(s.Path("../etc")))
}

func TestWriteReadInvalidate(t *testing.T) {
	s := NewStore(t.TempDir(), time.Minute)

	_, found := s.Read("clerk")
	assert.False(t, found)

	require.NoError(t, s.Write("clerk", []byte("<p>hi</p>")))
	got, found := s.Read("clerk")
	require.True(t, found)
	assert.Equal(t, "<p>hi</p>", string(got))

	s.Invalidate("clerk", "")
	_, found = s.Read("clerk")
	assert.False(t, found)
}

func TestReadExpired(t *testing.T) {
	s := NewStore(t.TempDir(), time.Minute)
	require.NoError(t, s.Write("old", []byte("x")))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(s.Path("old"), past, past))

	_, found := s.Read("old")
	assert.False(t, found)

	removed, err := s.Prune()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestPrune_MissingDir(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope"), time.Minute)
	removed, err := s.Prune()
	assert.NoError(t, err)
	assert.Zero(t, removed)
}

func TestMiddleware_MissThenHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewStore(t.TempDir(), time.Minute)

	calls := 0
	router := gin.New()
	router.GET("/page/:slug", s.Middleware(), func(c *gin.Context) {
		calls++
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("<h1>"+c.Param("slug")+"</h1>"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/page/clerk", nil))
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, "<h1>clerk</h1>", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/page/clerk", nil))
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, "<h1>clerk</h1>", w.Body.String())
	assert.Equal(t, 1, calls)
}

func TestMiddleware_SkipsErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewStore(t.TempDir(), time.Minute)

	router := gin.New()
	router.GET("/page/:slug", s.Middleware(), func(c *gin.Context) {
		c.Data(http.StatusNotFound, "text/html; charset=utf-8", []byte("missing"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/page/gone", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, found := s.Read("gone")
	assert.False(t, found)
}
