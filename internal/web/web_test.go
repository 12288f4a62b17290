package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekcal/internal/board"
	"weekcal/internal/config"
	"weekcal/internal/layout"
	"weekcal/internal/week"
)

var thisWeek = week.Week{Start: time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC), Days: 7}

type fakeRefresher struct {
	b   *board.Board
	err error
}

func (f *fakeRefresher) RefreshNow(context.Context) (board.Snapshot, error) {
	if f.err != nil {
		return board.Snapshot{}, f.err
	}
	return f.b.Replace(thisWeek, []layout.Event{{ID: "fresh", Column: 2, Start: 600, End: 660}}), nil
}

func newTestServer(t *testing.T, cfg *config.Config, refresher Refresher) (*httptest.Server, *board.Board) {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	b := board.New(thisWeek, cfg.SnapMinutes)
	b.Replace(thisWeek, []layout.Event{
		{ID: "review", Column: 0, Start: 540, End: 600, Assignees: []string{"Joe"}, Color: "tomato"},
		{ID: "lunch", Column: 0, Start: 570, End: 630, Assignees: []string{"Amy"}},
	})
	if f, ok := refresher.(*fakeRefresher); ok {
		f.b = b
	}
	srv := httptest.NewServer(NewServer(cfg, b, refresher).Handler())
	t.Cleanup(srv.Close)
	return srv, b
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLayout(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/api/layout")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[layoutResponse](t, resp)
	assert.Equal(t, uint64(1), got.Version)
	assert.Equal(t, "2025-01-06", got.WeekStart)
	assert.Equal(t, "UTC", got.Timezone)
	assert.Equal(t, 7, got.Days)

	require.Len(t, got.Events, 2)
	assert.Equal(t, positionedDTO{
		ID: "review", Column: 0, Start: 540, End: 600,
		StartClock: "09:00", EndClock: "10:00",
		Assignees: []string{"Joe"}, Color: "tomato",
		Offset: 0, ClusterID: 0, MaxOffset: 2,
	}, got.Events[0])
	assert.Equal(t, 1, got.Events[1].Offset)

	require.Len(t, got.Clusters, 1)
	assert.Equal(t, []string{"Joe", "Amy"}, got.Clusters[0].Assignees)

	// Default hours: Sunday closed, so six of seven columns carry hours.
	require.Len(t, got.CompanyHours, 6)
	assert.Equal(t, companyHoursDTO{Column: 0, Weekday: "Monday", Start: 540, End: 1020}, got.CompanyHours[0])
	assert.Equal(t, companyHoursDTO{Column: 4, Weekday: "Friday", Start: 600, End: 840}, got.CompanyHours[4])
}

func TestEvents(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/api/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	got := decode[eventsResponse](t, resp)
	require.Len(t, got.Events, 2)
	assert.ElementsMatch(t, []string{"review", "lunch"}, []string{got.Events[0].ID, got.Events[1].ID})
}

func TestMove(t *testing.T) {
	srv, b := newTestServer(t, nil, nil)

	resp := post(t, srv.URL+"/api/events/move", `{"event_id":"lunch","start":607,"column":0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[layoutResponse](t, resp)
	assert.Equal(t, uint64(2), got.Version)
	for _, e := range got.Events {
		assert.Equal(t, 0, e.Offset, e.ID)
		assert.Equal(t, 1, e.MaxOffset, e.ID)
	}
	assert.Equal(t, uint64(2), b.Snapshot().Version)
}

func TestCommitErrors(t *testing.T) {
	srv, b := newTestServer(t, nil, nil)

	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{"bad json", "/api/events/move", `{"event_id":`, http.StatusBadRequest},
		{"unknown field", "/api/events/move", `{"event_id":"lunch","start":600,"column":0,"day":1}`, http.StatusBadRequest},
		{"missing column", "/api/events/move", `{"event_id":"lunch","start":600}`, http.StatusBadRequest},
		{"unknown event", "/api/events/move", `{"event_id":"nope","start":600,"column":0}`, http.StatusNotFound},
		{"column out of range", "/api/events/move", `{"event_id":"lunch","start":600,"column":9}`, http.StatusUnprocessableEntity},
		{"past midnight", "/api/events/move", `{"event_id":"lunch","start":1420,"column":0}`, http.StatusUnprocessableEntity},
		{"missing end", "/api/events/resize", `{"event_id":"lunch"}`, http.StatusBadRequest},
		{"end before start", "/api/events/resize", `{"event_id":"lunch","end":500}`, http.StatusUnprocessableEntity},
		{"resize unknown", "/api/events/resize", `{"event_id":"nope","end":700}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := post(t, srv.URL+tc.path, tc.body)
			assert.Equal(t, tc.want, resp.StatusCode)
			assert.NotEmpty(t, decode[map[string]string](t, resp)["error"])
		})
	}
	assert.Equal(t, uint64(1), b.Snapshot().Version)
}

func TestResize(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	resp := post(t, srv.URL+"/api/events/resize", `{"event_id":"review","end":570}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[layoutResponse](t, resp)
	require.Len(t, got.Clusters, 2)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/api/events/move")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRefresh(t *testing.T) {
	srv, _ := newTestServer(t, nil, &fakeRefresher{})

	resp := post(t, srv.URL+"/api/refresh", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[layoutResponse](t, resp)
	require.Len(t, got.Events, 1)
	assert.Equal(t, "fresh", got.Events[0].ID)
}

func TestRefresh_Failures(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, post(t, srv.URL+"/api/refresh", "").StatusCode)

	srv, _ = newTestServer(t, nil, &fakeRefresher{err: errors.New("upstream down")})
	assert.Equal(t, http.StatusBadGateway, post(t, srv.URL+"/api/refresh", "").StatusCode)
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "joe", Password: "s3cret"}
	srv, _ := newTestServer(t, cfg, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/layout")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Basic")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/layout", nil)
	require.NoError(t, err)
	req.SetBasicAuth("joe", "s3cret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, secureCompare("abc", "abc"))
	assert.False(t, secureCompare("abc", "abd"))
	assert.False(t, secureCompare("abc", "abcd"))
}

func TestEncodeLayout(t *testing.T) {
	cfg := config.DefaultConfig()
	b := board.New(thisWeek, cfg.SnapMinutes)
	snap := b.Replace(thisWeek, []layout.Event{{ID: "solo", Column: 3, Start: 60, End: 90}})

	var out strings.Builder
	require.NoError(t, NewServer(cfg, b, nil).EncodeLayout(&out, snap))

	var got layoutResponse
	require.NoError(t, json.Unmarshal([]byte(out.String()), &got))
	require.Len(t, got.Events, 1)
	assert.Equal(t, "01:00", got.Events[0].StartClock)
	assert.Equal(t, "01:30", got.Events[0].EndClock)
	assert.Equal(t, []string{}, got.Events[0].Assignees)
}
