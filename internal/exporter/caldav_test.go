package exporter

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"wisecal/internal/render"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type davRequest struct {
	Method string
	Path   string
	Body   string
}

type davServer struct {
	mu       sync.Mutex
	requests []davRequest
	status   map[string]int
}

func (d *davServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	d.mu.Lock()
	d.requests = append(d.requests, davRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	code, ok := d.status[r.Method+" "+r.URL.Path]
	d.mu.Unlock()
	if !ok {
		switch r.Method {
		case "PROPFIND":
			code = http.StatusMultiStatus
		case "MKCALENDAR", http.MethodPut:
			code = http.StatusCreated
		default:
			code = http.StatusNoContent
		}
	}
	if r.Method == http.MethodPut {
		w.Header().Set("ETag", `"1"`)
	}
	w.WriteHeader(code)
}

func (d *davServer) methods() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.requests))
	for _, r := range d.requests {
		out = append(out, r.Method+" "+r.Path)
	}
	return out
}

func newTestCalDAV(t *testing.T, d *davServer) *CalDAV {
	srv := httptest.NewServer(d)
	t.Cleanup(srv.Close)
	cd, err := NewCalDAVWithOptions(CalDAVOptions{
		URL:      srv.URL + "/dav/calendars/ana",
		User:     "ana",
		Password: "secret",
		Workers:  2,
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	return cd
}

func TestCalDAVCreateContainer(t *testing.T) {
	d := &davServer{}
	cd := newTestCalDAV(t, d)

	container, err := cd.CreateContainer(context.Background(), "ana", "FERI <RIT> 1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(container, "/dav/calendars/ana/wisecal-"))
	assert.True(t, strings.HasSuffix(container, "/"))

	require.Len(t, d.requests, 1)
	assert.Equal(t, "MKCALENDAR", d.requests[0].Method)
	assert.Contains(t, d.requests[0].Body, "<D:displayname>FERI &lt;RIT&gt; 1</D:displayname>")
}

func TestCalDAVDefaultTimeout(t *testing.T) {
	cd, err := NewCalDAVWithOptions(CalDAVOptions{URL: "http://localhost/dav/"})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cd.timeout)
	assert.Equal(t, 30*time.Second, cd.rc.GetClient().Timeout)
	assert.Equal(t, 1, cd.workers)
}

func TestCalDAVUpsertEvents(t *testing.T) {
	container := "/dav/calendars/ana/wisecal-x/"
	d := &davServer{status: map[string]int{"PUT " + container + "bad.ics": http.StatusForbidden}}
	cd := newTestCalDAV(t, d)
	start := time.Date(2025, 10, 8, 11, 0, 0, 0, time.UTC)

	results := cd.UpsertEvents(context.Background(), container, []render.Event{
		{ID: "good", Title: "Baze podatkov RV", Start: start, End: start.Add(time.Hour), Color: 3},
		{ID: "bad", Title: "Other", Start: start, End: start.Add(time.Hour), Color: 3},
	})
	require.Len(t, results, 2)
	assert.Equal(t, OK("good"), results[0])
	assert.Equal(t, "bad", results[1].ID)
	assert.Equal(t, StatusFailed, results[1].Status)
	assert.ElementsMatch(t, []string{"PUT " + container + "good.ics", "PUT " + container + "bad.ics"}, d.methods())
}

func TestCalDAVDeleteEventsClassifiesNotFound(t *testing.T) {
	container := "/dav/calendars/ana/wisecal-x/"
	d := &davServer{status: map[string]int{
		"DELETE " + container + "missing.ics": http.StatusNotFound,
		"DELETE " + container + "broken.ics":  http.StatusInternalServerError,
	}}
	cd := newTestCalDAV(t, d)

	results := cd.DeleteEvents(context.Background(), container, []string{"present", "missing", "broken"})
	require.Len(t, results, 3)
	assert.Equal(t, StatusOK, results[0].Status)
	assert.Equal(t, StatusNotFound, results[1].Status)
	assert.ErrorIs(t, results[1].Err, ErrNotFound)
	assert.Equal(t, StatusFailed, results[2].Status)
}

func TestCalDAVContainerExists(t *testing.T) {
	d := &davServer{status: map[string]int{"PROPFIND /dav/calendars/ana/old/": http.StatusNotFound}}
	cd := newTestCalDAV(t, d)

	ok, err := cd.ContainerExists(context.Background(), "/dav/calendars/ana/live/")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cd.ContainerExists(context.Background(), "/dav/calendars/ana/old/")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEncodeEvent(t *testing.T) {
	start := time.Date(2025, 10, 8, 11, 0, 0, 0, time.UTC)
	cal := EncodeEvent(render.Event{
		ID:          "abc",
		Title:       "Baze podatkov RV",
		Location:    "G2-P01",
		Description: "Baze podatkov, Dr. Kovač",
		Start:       start,
		End:         start.Add(2 * time.Hour),
		Color:       8,
	})

	var sb strings.Builder
	require.NoError(t, ical.NewEncoder(&sb).Encode(cal))
	out := sb.String()
	assert.Contains(t, out, "UID:abc")
	assert.Contains(t, out, "SUMMARY:Baze podatkov RV")
	assert.Contains(t, out, "DTSTART:20251008T110000Z")
	assert.Contains(t, out, "COLOR:gray")
	assert.Contains(t, out, "X-WISECAL-COLOR:8")
}
