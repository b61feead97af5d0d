package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	bidding "auction-house/internal/biddingService"
	"auction-house/internal/config"
	identity "auction-house/internal/identityService"
	listing "auction-house/internal/listingService"
	"auction-house/internal/repository"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo := repository.NewMemoryRepo()
	cfg := &config.Config{
		RateLimitMax:       10,
		RateLimitWindow:    time.Minute,
		CORSAllowedOrigins: "https://shop.example.com",
	}
	router := SetupRouter(cfg, Services{
		Bidding:  bidding.NewBiddingService(repo),
		Listing:  listing.NewListingService(repo),
		Identity: identity.NewIdentityService(repo, identity.NewMemoryRevocationList(), "test-secret", time.Hour),
	}, nil)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestSetupRouter_OpsEndpoints(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSetupRouter_ProtectedRoutesRequireAuth(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/auctions"},
		{http.MethodPost, "/auctions/a1/bids"},
		{http.MethodPost, "/auctions/a1/close"},
		{http.MethodPost, "/auctions/a1/comments"},
		{http.MethodPost, "/categories"},
		{http.MethodGet, "/watchlist"},
		{http.MethodPut, "/watchlist/a1"},
		{http.MethodDelete, "/watchlist/a1"},
		{http.MethodPost, "/auth/logout"},
		{http.MethodGet, "/auth/me"},
	}

	for _, r := range routes {
		req, err := http.NewRequest(r.method, srv.URL+r.path, strings.NewReader(`{}`))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", r.method, r.path)
	}
}

func TestSetupRouter_CORS(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/auctions", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, "https://shop.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}
