package admin_http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"igmp-stats/pkg/commtypes"
	"igmp-stats/pkg/stats_manager"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newTestServer(t *testing.T, secret string) (*stats_manager.StatisticsManager, http.Handler) {
	t.Helper()
	m := stats_manager.NewStatisticsManager(stats_manager.ManagerConfig{})
	assert.NoError(t, m.Activate())
	t.Cleanup(m.Deactivate)
	events := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	return m, New(m, events, secret, zerolog.Nop()).Router()
}

func do(h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndStats(t *testing.T) {
	m, h := newTestServer(t, "")
	m.Increment(commtypes.JoinRequest)
	m.Increment(commtypes.JoinRequest)

	rr := do(h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"active":true}`, rr.Body.String())

	rr = do(h, http.MethodGet, "/stats", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	var counts map[string]uint64
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &counts))
	assert.Equal(t, uint64(2), counts["igmpJoinReq"])
	assert.Len(t, counts, commtypes.NumCounters)

	rr = do(h, http.MethodGet, "/events", "", "")
	assert.Equal(t, http.StatusTeapot, rr.Code)

	m.Deactivate()
	rr = do(h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"active":false}`, rr.Body.String())
	rr = do(h, http.MethodGet, "/stats", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	rr = do(h, http.MethodPut, "/config/statisticsGenerationPeriod", "5", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestPutPeriod(t *testing.T) {
	m, h := newTestServer(t, "")

	rr := do(h, http.MethodPut, "/config/statisticsGenerationPeriod", "5", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"statisticsGenerationPeriod":5}`, rr.Body.String())
	assert.Equal(t, 5, m.Period())

	rr = do(h, http.MethodPut, "/config/statisticsGenerationPeriod", "abc", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"statisticsGenerationPeriod":10}`, rr.Body.String())

	do(h, http.MethodPut, "/config/statisticsGenerationPeriod", "3", "")
	rr = do(h, http.MethodPut, "/config/statisticsGenerationPeriod", "", "")
	assert.JSONEq(t, `{"statisticsGenerationPeriod":10}`, rr.Body.String())

	rr = do(h, http.MethodGet, "/config/statisticsGenerationPeriod", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"statisticsGenerationPeriod":10}`, rr.Body.String())

	rr = do(h, http.MethodPut, "/config/statisticsGenerationPeriod", strings.Repeat("1", 100), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestPutPeriodRequiresToken(t *testing.T) {
	const secret = "test-secret"
	m, h := newTestServer(t, secret)

	rr := do(h, http.MethodPut, "/config/statisticsGenerationPeriod", "5", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = do(h, http.MethodPut, "/config/statisticsGenerationPeriod", "5", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	wrong, err := IssueToken("other-secret", "ops", time.Minute)
	assert.NoError(t, err)
	rr = do(h, http.MethodPut, "/config/statisticsGenerationPeriod", "5", wrong)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	expired, err := IssueToken(secret, "ops", -time.Minute)
	assert.NoError(t, err)
	rr = do(h, http.MethodPut, "/config/statisticsGenerationPeriod", "5", expired)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, 10, m.Period())

	good, err := IssueToken(secret, "ops", time.Minute)
	assert.NoError(t, err)
	rr = do(h, http.MethodPut, "/config/statisticsGenerationPeriod", "5", good)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, m.Period())

	// reads stay open
	rr = do(h, http.MethodGet, "/stats", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	_, h := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodOptions, "/config/statisticsGenerationPeriod", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
}
