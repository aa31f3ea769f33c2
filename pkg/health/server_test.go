package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smith3v/tg-word-keeper/pkg/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type failingChecker struct{}

func (failingChecker) EnsureSchema(ctx context.Context) error {
	return errors.New("connection refused")
}

func TestHealthReportsDatabaseAlive(t *testing.T) {
	store := testutil.SetupTestStore(t)
	router := NewRouter(store, "", nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, HealthyText, rr.Body.String())
}

func TestHealthReportsDatabaseError(t *testing.T) {
	router := NewRouter(failingChecker{}, "", nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, DegradedText, rr.Body.String())
}

func TestWebhookRouteForwardsUpdates(t *testing.T) {
	var received string
	webhook := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})
	router := NewRouter(failingChecker{}, "/secret-token", webhook)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/secret-token", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "/secret-token", received)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/wrong-token", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWebhookRouteAbsentInPollingMode(t *testing.T) {
	router := NewRouter(failingChecker{}, "/secret-token", nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/secret-token", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServerRunShutsDownOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	server := NewServer(addr, NewRouter(failingChecker{}, "", nil))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServerRunReportsListenError(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	server := NewServer(listener.Addr().String(), NewRouter(failingChecker{}, "", nil))
	err = server.Run(context.Background())
	assert.Error(t, err)
}
