// Package analytics records public page views in a separate database.
// A nil *AnalyticsModule is valid and records nothing.
package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	visitorCookie = "noticeboard_visitor_id"
	throttle      = 30 * time.Minute
	dayLayout     = "2006-01-02"
)

type PageView struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Slug      string    `gorm:"not null;index"`
	CookieID  string    `gorm:"not null;index"`
	IP        string    `gorm:"not null"`
	Language  *string   // nullable
	Browser   *string   // nullable
	CreatedAt time.Time `gorm:"index"`
}

type AnalyticsModule struct {
	db      *gorm.DB
	pending sync.WaitGroup
}

func NewAnalyticsModule(db *gorm.DB) *AnalyticsModule {
	if db == nil {
		log.Info().Msg("analytics disabled")
		return nil
	}
	if err := db.AutoMigrate(&PageView{}); err != nil {
		log.Error().Err(err).Msg("failed to migrate page_views")
		return nil
	}
	return &AnalyticsModule{db: db}
}

// Middleware counts successful GETs of routes with a :slug param. It runs
// before any cache so hits are counted too.
func (a *AnalyticsModule) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")
		if a == nil || slug == "" || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		cookieID := getOrCreateCookieID(c)
		c.Next()

		if c.Writer.Status() == http.StatusOK {
			a.TrackView(c, slug, cookieID)
		}
	}
}

// TrackView records a view of slug unless the same visitor viewed it within
// the last 30 minutes. The insert runs in the background.
func (a *AnalyticsModule) TrackView(c *gin.Context, slug, cookieID string) {
	if a == nil {
		return
	}

	since := time.Now().UTC().Add(-throttle)
	var recent PageView
	err := a.db.Where("cookie_id = ? AND slug = ? AND created_at > ?", cookieID, slug, since).
		First(&recent).Error
	if err == nil {
		return
	}

	view := PageView{
		Slug:      slug,
		CookieID:  cookieID,
		IP:        getClientIP(c),
		Language:  extractLanguage(c.GetHeader("Accept-Language")),
		Browser:   extractBrowser(c.Request.UserAgent()),
		CreatedAt: time.Now().UTC(),
	}

	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		if err := a.db.Create(&view).Error; err != nil {
			log.Error().Err(err).Str("slug", view.Slug).Msg("failed to save page view")
		}
	}()
}

// Wait blocks until background inserts have finished.
func (a *AnalyticsModule) Wait() {
	if a != nil {
		a.pending.Wait()
	}
}

func getOrCreateCookieID(c *gin.Context) string {
	if cookie, err := c.Cookie(visitorCookie); err == nil && cookie != "" {
		return cookie
	}

	hash := sha256.Sum256([]byte(time.Now().String() + c.ClientIP() + c.Request.UserAgent()))
	cookieID := hex.EncodeToString(hash[:])
	c.SetCookie(visitorCookie, cookieID, 60*60*24*365*2, "/", "", false, true)
	return cookieID
}

// getClientIP prefers proxy headers over the socket address.
func getClientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := c.GetHeader("CF-Connecting-IP"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

func extractBrowser(userAgent string) *string {
	if userAgent == "" {
		return nil
	}

	ua := strings.ToLower(userAgent)
	var browser string
	// most specific first
	switch {
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr"):
		browser = "Opera"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "msie") || strings.Contains(ua, "trident"):
		browser = "Internet Explorer"
	default:
		browser = "Other"
	}
	return &browser
}

// extractLanguage returns the first entry of an Accept-Language header,
// e.g. "hi-IN" for "hi-IN,en;q=0.8".
func extractLanguage(header string) *string {
	if header == "" {
		return nil
	}
	lang := strings.TrimSpace(strings.Split(strings.Split(header, ",")[0], ";")[0])
	if lang == "" {
		return nil
	}
	return &lang
}

type DayViews struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type PageViews struct {
	Slug  string `json:"slug"`
	Count int64  `json:"count"`
}

func (a *AnalyticsModule) GetPageViewCount(slug string) int64 {
	if a == nil {
		return 0
	}
	var count int64
	a.db.Model(&PageView{}).Where("slug = ?", slug).Count(&count)
	return count
}

// GetViewsByDay returns one entry per day for the last days days (UTC),
// oldest first, with zero counts filled in.
func (a *AnalyticsModule) GetViewsByDay(days int) []DayViews {
	if a == nil || days < 1 {
		return []DayViews{}
	}

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)

	var rows []PageView
	a.db.Select("created_at").Where("created_at >= ?", start).Find(&rows)

	counts := make(map[string]int64, days)
	for _, r := range rows {
		counts[r.CreatedAt.UTC().Format(dayLayout)]++
	}

	out := make([]DayViews, days)
	for i := range out {
		date := now.AddDate(0, 0, -(days - 1 - i)).Format(dayLayout)
		out[i] = DayViews{Date: date, Count: counts[date]}
	}
	return out
}

// GetTopPages returns the most viewed pages of the last days days.
func (a *AnalyticsModule) GetTopPages(days, limit int) []PageViews {
	if a == nil {
		return []PageViews{}
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	results := []PageViews{}
	a.db.Model(&PageView{}).
		Select("slug, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group("slug").
		Order("count DESC").
		Limit(limit).
		Scan(&results)
	return results
}
