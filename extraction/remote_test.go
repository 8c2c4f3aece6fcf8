package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noticeboard/models"
	"noticeboard/schema"
)

const gatewayDraft = `{
  "title": "SSC GD Constable 2026",
  "shortDescription": "Staff Selection Commission notice.",
  "lastDate": "2026-12-31",
  "sections": [
    {"id": "s1", "title": "Links", "children": [
      {"type": "LINKS", "key": "Apply", "value": "https://example.com/apply"},
      {"type": "DATES", "key": "Exam Date", "value": "2027-01-15"},
      {"type": "SUB_SECTION", "title": "Fee", "children": [
        {"type": "KEY_VALUE", "key": "General", "value": "100"}
      ]}
    ]}
  ]
}`

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestRemoteExtractor_NormalizesDraft(t *testing.T) {
	var got remoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(gatewayDraft))
	}))
	defer srv.Close()

	e := NewRemoteExtractor(RemoteConfig{URL: srv.URL, APIKey: "secret", RateLimit: 100, Burst: 10, Retry: fastRetry()})
	page, err := e.Extract(context.Background(), "raw notice text")
	require.NoError(t, err)

	assert.Equal(t, "raw notice text", got.Input)
	assert.Equal(t, Prompt, got.Instructions)

	assert.Equal(t, "ssc-gd-constable-2026", page.Slug)
	assert.Equal(t, "Staff Selection Commission notice.", page.Description)
	require.NotNil(t, page.ImportantDates)
	assert.Equal(t, "2026-12-31", page.ImportantDates.LastDateOfApplication)

	require.Len(t, page.Sections, 1)
	assert.Equal(t, "s1", page.Sections[0].ID)
	children := page.Sections[0].Children
	require.Len(t, children, 3)
	assert.Equal(t, models.FieldLink, children[0].Kind())
	assert.Equal(t, models.FieldDate, children[1].Kind())
	assert.NotEmpty(t, children[2].(*models.SubSection).Children[0].GetID())
}

func TestRemoteExtractor_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"draft": {"title": "Retried", "sections": []}}`))
	}))
	defer srv.Close()

	e := NewRemoteExtractor(RemoteConfig{URL: srv.URL, RateLimit: 100, Burst: 10, Retry: fastRetry()})
	page, err := e.Extract(context.Background(), "raw")
	require.NoError(t, err)

	assert.Equal(t, "Retried", page.Title)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRemoteExtractor_NoRetryOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	e := NewRemoteExtractor(RemoteConfig{URL: srv.URL, RateLimit: 100, Burst: 10, Retry: fastRetry()})
	_, err := e.Extract(context.Background(), "raw")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRemoteExtractor_InvalidDraft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title": "Bad", "sections": [{"title": "S", "children": [{"type": "VIDEO"}]}]}`))
	}))
	defer srv.Close()

	e := NewRemoteExtractor(RemoteConfig{URL: srv.URL, RateLimit: 100, Burst: 10, Retry: fastRetry()})
	_, err := e.Extract(context.Background(), "raw")

	var verr *schema.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Page.sections[0].children[0]", verr.Path)
}

func TestBackoff_Capped(t *testing.T) {
	cfg := RetryConfig{BaseDelay: time.Second, MaxDelay: 2 * time.Second, Multiplier: 10}
	d := backoff(5, cfg)
	assert.LessOrEqual(t, d, time.Duration(float64(2*time.Second)*1.2))
	assert.GreaterOrEqual(t, d, time.Duration(float64(2*time.Second)*0.8))
}
