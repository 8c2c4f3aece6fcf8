package editor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"noticeboard/models"
)

// Session is one open editor: a document store plus the stored page it was
// opened from, if any.
type Session struct {
	ID        string
	Store     *DocumentStore
	CreatedAt time.Time

	mu       sync.Mutex
	sourceID string
	lastUsed time.Time
}

// Source is the id of the stored page this session edits, or "" for a page
// that has not been saved yet.
func (s *Session) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceID
}

// Bind records that the session's page is now stored under pageID.
func (s *Session) Bind(pageID string) {
	s.mu.Lock()
	s.sourceID = pageID
	s.mu.Unlock()
}

// Sessions keeps the editor sessions of the admin API, keyed by session id.
type Sessions struct {
	mu    sync.Mutex
	items map[string]*Session
	ttl   time.Duration
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{items: make(map[string]*Session), ttl: ttl}
}

// Open starts a session. With a nil page the store starts from an empty page;
// otherwise it edits a copy of p and remembers p's id.
func (r *Sessions) Open(p *models.Page) *Session {
	store := NewDocumentStore()
	sourceID := ""
	if p != nil {
		store.SetPage(p)
		sourceID = p.ID
	}
	now := time.Now()
	sess := &Session{
		ID:        models.NewID(),
		Store:     store,
		CreatedAt: now,
		sourceID:  sourceID,
		lastUsed:  now,
	}

	r.mu.Lock()
	r.items[sess.ID] = sess
	r.mu.Unlock()

	log.Debug().Str("session", sess.ID).Str("page_id", sourceID).Msg("editor session opened")
	return sess
}

func (r *Sessions) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.items[id]
	if ok {
		sess.lastUsed = time.Now()
	}
	return sess, ok
}

// Close abandons a session and resets its store.
func (r *Sessions) Close(id string) bool {
	r.mu.Lock()
	sess, ok := r.items[id]
	delete(r.items, id)
	r.mu.Unlock()

	if ok {
		sess.Store.ResetPage()
		log.Debug().Str("session", id).Msg("editor session closed")
	}
	return ok
}

func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Prune closes sessions idle for longer than the ttl and returns how many.
func (r *Sessions) Prune(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	var stale []string
	r.mu.Lock()
	for id, sess := range r.items {
		if now.Sub(sess.lastUsed) > r.ttl {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()

	closed := 0
	for _, id := range stale {
		if r.closeIfIdle(id, now) {
			closed++
		}
	}
	return closed
}

// closeIfIdle closes the session only if it is still idle at now. A Get
// between selection and close keeps it open.
func (r *Sessions) closeIfIdle(id string, now time.Time) bool {
	r.mu.Lock()
	sess, ok := r.items[id]
	if !ok || now.Sub(sess.lastUsed) <= r.ttl {
		r.mu.Unlock()
		return false
	}
	delete(r.items, id)
	r.mu.Unlock()

	sess.Store.ResetPage()
	log.Debug().Str("session", id).Msg("idle editor session closed")
	return true
}

// Run prunes idle sessions every interval until ctx is done.
func (r *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.Prune(now); n > 0 {
				log.Info().Int("count", n).Msg("pruned idle editor sessions")
			}
		}
	}
}
