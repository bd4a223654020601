package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"wisecal/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStatus struct {
	view domain.StatusView
}

func (f fixedStatus) View() domain.StatusView { return f.view }

type countingTrigger struct {
	calls int
	ok    bool
}

func (c *countingTrigger) Trigger() bool {
	c.calls++
	return c.ok
}

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatusRoutes(t *testing.T) {
	check := time.Date(2025, 10, 8, 12, 0, 0, 0, time.UTC)
	trigger := &countingTrigger{ok: true}
	r := NewRouter(fixedStatus{view: domain.StatusView{LastCheck: check, Running: true}}, trigger)

	rec := serve(t, r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, r, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.StatusView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.LastCheck.Equal(check))
	assert.True(t, got.LastUpdate.IsZero())
	assert.True(t, got.Running)

	rec = serve(t, r, http.MethodPost, "/api/sync")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, trigger.calls)

	trigger.ok = false
	rec = serve(t, r, http.MethodPost, "/api/sync")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(t, r, http.MethodGet, "/api/sync")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, 2, trigger.calls)

	rec = serve(t, r, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
