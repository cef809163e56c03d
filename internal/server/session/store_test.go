package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koreanssam/docmark/internal/pipeline"
)

func TestStore_PutGetClear(t *testing.T) {
	s, err := NewStore(2, nil)
	require.NoError(t, err)

	s.Put("a", &Entry{Result: &pipeline.Result{Text: "hello"}})
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "hello", got.Result.Text)
	assert.False(t, got.UpdatedAt.IsZero())

	assert.True(t, s.Clear("a"))
	assert.False(t, s.Clear("a"))
	_, ok = s.Get("a")
	assert.False(t, ok)
}

func TestStore_EvictsLeastRecentlyUsed(t *testing.T) {
	s, err := NewStore(2, nil)
	require.NoError(t, err)

	s.Put("a", &Entry{})
	s.Put("b", &Entry{})
	_, _ = s.Get("a")
	s.Put("c", &Entry{})

	_, okA := s.Get("a")
	_, okB := s.Get("b")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.Equal(t, 2, s.Len())
}

func TestEnsureID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	id := EnsureID(c)
	assert.NotEmpty(t, id)
	assert.Contains(t, w.Header().Get("Set-Cookie"), CookieName+"="+id)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.AddCookie(&http.Cookie{Name: CookieName, Value: "existing"})
	assert.Equal(t, "existing", EnsureID(c))
	assert.Empty(t, w.Header().Get("Set-Cookie"))
}
