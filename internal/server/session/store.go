package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/koreanssam/docmark/internal/pipeline"
)

// CookieName carries the browser session id.
const CookieName = "docmark_session"

// Entry is what one browser session currently displays. It is replaced, never mutated.
type Entry struct {
	Result    *pipeline.Result
	Error     string
	FileName  string
	UpdatedAt time.Time
}

// Store keeps the latest display state per session, bounded by capacity.
// The least recently used session is dropped first.
type Store struct {
	cache  *lru.Cache[string, *Entry]
	logger *slog.Logger
}

func NewStore(capacity int, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if capacity <= 0 {
		capacity = 256
	}
	cache, err := lru.NewWithEvict[string, *Entry](capacity, func(id string, _ *Entry) {
		logger.Debug("session.evicted", "session_id", id)
	})
	if err != nil {
		return nil, err
	}
	return &Store{cache: cache, logger: logger}, nil
}

func (s *Store) Get(id string) (*Entry, bool) {
	return s.cache.Get(id)
}

func (s *Store) Put(id string, e *Entry) {
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now()
	}
	s.cache.Add(id, e)
}

// Clear discards the session's state and reports whether there was any.
func (s *Store) Clear(id string) bool {
	return s.cache.Remove(id)
}

func (s *Store) Len() int {
	return s.cache.Len()
}

// EnsureID returns the session id from the request cookie, issuing a new one
// when the browser has none.
func EnsureID(c *gin.Context) string {
	if id, err := c.Cookie(CookieName); err == nil && id != "" {
		return id
	}
	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, id, 0, "/", "", false, true)
	return id
}
