package symbols

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"taxlot-matcher-go/internal/config"
	"taxlot-matcher-go/internal/models"
)

// MockSource is a mock implementation of Source.
type MockSource struct {
	mock.Mock
}

func (m *MockSource) Fetch(ctx context.Context) ([]Entry, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Entry), args.Error(1)
}

// setupTestServer creates a test server and a RestClient configured to use it.
func setupTestServer(handler http.Handler) (*RestClient, *httptest.Server) {
	server := httptest.NewServer(handler)

	rc := &RestClient{
		client:  resty.New().SetBaseURL(server.URL),
		logger:  zap.NewNop(),
		limiter: rate.NewLimiter(rate.Inf, 1),
		backoff: time.Millisecond,
	}
	return rc, server
}

func TestRestClient_Fetch(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/renames", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"old":"FB","new":"META","date":"2022-06-09"},{"old":"X","new":"Y","date":"bad"}]`))
		})
		rc, server := setupTestServer(handler)
		defer server.Close()

		// Act
		entries, err := rc.Fetch(context.Background())

		// Assert
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, Entry{Old: "FB", New: "META", Date: time.Date(2022, 6, 9, 0, 0, 0, 0, time.UTC)}, entries[0])
	})

	t.Run("RetriesServerErrors", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[]`))
		})
		rc, server := setupTestServer(handler)
		defer server.Close()

		entries, err := rc.Fetch(context.Background())

		assert.NoError(t, err)
		assert.Empty(t, entries)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("ClientErrorIsNotRetried", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusNotFound)
		})
		rc, server := setupTestServer(handler)
		defer server.Close()

		_, err := rc.Fetch(context.Background())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get renames")
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestNewRestClient(t *testing.T) {
	rc := NewRestClient(&config.Renames{URL: "http://localhost", RateLimit: 5, RateLimitBurst: 1, Timeout: time.Second}, zap.NewNop())
	assert.NotNil(t, rc)
	assert.Equal(t, rate.Limit(5), rc.limiter.Limit())
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "renames.csv")
	require.NoError(t, os.WriteFile(path, []byte("old,new,date\nFB,META,2022-06-09\nTWTR, X ,2023-07-24\n"), 0o600))

	entries, err := FileSource{Path: path}.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "X", entries[1].New)
	assert.Equal(t, 2023, entries[1].Date.Year())

	_, err = FileSource{Path: filepath.Join(dir, "missing.csv")}.Fetch(context.Background())
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	manualDate := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := []models.SymbolMapping{
		{Symbol: "GOOG", Ticker: "GOOGL", Manual: true},
		{Symbol: "OLD", Ticker: "OLDER", ChangeDate: &manualDate},
		{Symbol: "FB", Ticker: "FB"},
	}
	history := []Entry{
		{Old: "FB", New: "META", Date: time.Date(2022, 6, 9, 0, 0, 0, 0, time.UTC)},
		{Old: "GOOG", New: "ALPHABET", Date: time.Date(2022, 6, 9, 0, 0, 0, 0, time.UTC)},
		{Old: "OLD", New: "NEWER", Date: time.Date(2022, 6, 9, 0, 0, 0, 0, time.UTC)},
		{Old: "SQ", New: "XYZ", Date: time.Date(2025, 1, 21, 0, 0, 0, 0, time.UTC)},
		{Old: "UNTRADED", New: "OTHER", Date: time.Date(2025, 1, 21, 0, 0, 0, 0, time.UTC)},
	}
	traded := map[string]bool{"FB": true, "GOOG": true, "OLD": true, "SQ": true}

	merged := Merge(existing, history, traded)

	require.Len(t, merged, 4)
	assert.Equal(t, "META", merged[0].Ticker)
	assert.Equal(t, "GOOGL", merged[1].Ticker)
	assert.Equal(t, "OLDER", merged[2].Ticker)
	assert.Equal(t, "SQ", merged[3].Symbol)
	assert.Equal(t, "XYZ", merged[3].Ticker)
	require.NotNil(t, merged[3].ChangeDate)
}

func TestSync(t *testing.T) {
	t.Run("merges fetched history", func(t *testing.T) {
		src := new(MockSource)
		src.On("Fetch", mock.Anything).Return([]Entry{{Old: "FB", New: "META", Date: time.Now()}}, nil)

		merged, err := Sync(context.Background(), src, nil, map[string]bool{"FB": true})

		require.NoError(t, err)
		require.Len(t, merged, 1)
		src.AssertExpectations(t)
	})

	t.Run("wraps source errors", func(t *testing.T) {
		src := new(MockSource)
		src.On("Fetch", mock.Anything).Return([]Entry(nil), errors.New("boom"))

		_, err := Sync(context.Background(), src, nil, nil)

		assert.ErrorContains(t, err, "boom")
	})

	t.Run("no source", func(t *testing.T) {
		_, err := Sync(context.Background(), nil, nil, nil)
		assert.ErrorIs(t, err, ErrHistoryUnavailable)
	})
}
