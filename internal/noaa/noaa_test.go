package noaa

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/tide-clock/internal/tideclock"
)

const hiloBody = `{"predictions":[
{"t":"2026-01-01 02:50","v":"8.081","type":"H"},
{"t":"2026-01-01 09:13","v":"-0.612","type":"L"},
{"t":"2026-01-01 15:31","v":"7.402","type":"H"},
{"t":"2026-01-01 21:40","v":"2.915","type":"L"}
]}`

var now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, <-chan url.Values) {
	t.Helper()
	queries := make(chan url.Values, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case queries <- r.URL.Query():
		default:
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, queries
}

func newTestClient(server string) *Client {
	return New(Config{
		Server:      server,
		Station:     "9444900",
		Application: "tide-clock-test",
		Timeout:     time.Second,
	}, zerolog.Nop())
}

func TestNextTide(t *testing.T) {
	srv, queries := newTestServer(t, http.StatusOK, hiloBody)
	c := newTestClient(srv.URL)

	p, err := c.NextTide(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, tideclock.High, p.Kind)
	assert.True(t, p.Time.Equal(time.Date(2026, 1, 1, 15, 31, 0, 0, time.UTC)))
	assert.InDelta(t, 7.402, p.Height, 1e-9)

	q := <-queries
	assert.Equal(t, "predictions", q.Get("product"))
	assert.Equal(t, "hilo", q.Get("interval"))
	assert.Equal(t, "20260101", q.Get("begin_date"))
	assert.Equal(t, "48", q.Get("range"))
	assert.Equal(t, "9444900", q.Get("station"))
	assert.Equal(t, "gmt", q.Get("time_zone"))
	assert.Equal(t, "json", q.Get("format"))
}

func TestNextTideNoneAfterNow(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, hiloBody)
	c := newTestClient(srv.URL)

	_, err := c.NextTide(context.Background(), now.Add(12*time.Hour))
	assert.True(t, errors.Is(err, ErrNoUpcomingTide), "got %v", err)
}

func TestPredictionsErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"server error", http.StatusInternalServerError, "oops", "unexpected status"},
		{"bad json", http.StatusOK, "{", "decode predictions"},
		{"api error", http.StatusOK, `{"error":{"message":"No Predictions data was found."}}`, "No Predictions data"},
		{"bad time", http.StatusOK, `{"predictions":[{"t":"yesterday","v":"1.0","type":"H"}]}`, "parse prediction time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.body)
			_, err := newTestClient(srv.URL).Predictions(context.Background(), now)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSupplier(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, hiloBody)
	supply := newTestClient(srv.URL).Supplier(func() time.Time { return now })

	ev := supply()
	assert.Equal(t, tideclock.High, ev.Kind)
	assert.True(t, ev.Time.Equal(time.Date(2026, 1, 1, 15, 31, 0, 0, time.UTC)))
}

func TestSupplierUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusServiceUnavailable, "")
	supply := newTestClient(srv.URL).Supplier(func() time.Time { return now })

	ev := supply()
	assert.Equal(t, tideclock.Unavailable, ev.Kind)
	assert.False(t, ev.Valid())
}
