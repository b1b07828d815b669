package crm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uncertaindrop/tickethelper/internal/browser"
)

func dashboardServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != DashboardPath {
			http.NotFound(w, r)
			return
		}
		if ck, err := r.Cookie("sess"); err == nil && ck.Value == "ok" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProbe_ValidCookies(t *testing.T) {
	srv := dashboardServer(t)
	c := NewClient(srv.URL)

	err := c.Probe(context.Background(), []browser.Cookie{{Name: "sess", Value: "ok"}})
	require.NoError(t, err)
}

func TestProbe_ExpiredCookiesRedirected(t *testing.T) {
	srv := dashboardServer(t)
	c := NewClient(srv.URL)

	err := c.Probe(context.Background(), []browser.Cookie{{Name: "sess", Value: "stale"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestProbe_NoCookies(t *testing.T) {
	c := NewClient("http://unused.invalid")
	err := c.Probe(context.Background(), nil)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestURLJoining(t *testing.T) {
	c := NewClient("https://crm.example.com/")
	assert.Equal(t, "https://crm.example.com/tickets/addtickets", c.URL(AddTicketPath))
}
