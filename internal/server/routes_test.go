package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/citychase/tagmode/internal/transport"
)

func newTestServer(t *testing.T, token string) (*httptest.Server, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	hub := NewHub()
	hub.nowFn = func() time.Time { return base }
	NewAPI(hub, zerolog.Nop(), token, "http://hunt.local").Mount(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, hub
}

func TestGatewayRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t, "")
	gw := transport.NewHTTPGateway(ts.URL, transport.StaticCredentials("dev-token"))
	ctx := context.Background()

	snap, err := gw.CreateSession(ctx, transport.CreateSessionRequest{HuntID: "hunt-9", Settings: huntSettings()})
	if err != nil {
		t.Fatalf("create should succeed: %v", err)
	}
	if snap.HuntID != "hunt-9" {
		t.Fatalf("expected hunt-9, got %s", snap.HuntID)
	}

	if _, err := gw.JoinSession(ctx, transport.JoinRequest{HuntID: "hunt-9", PlayerID: "p1", PlayerName: "Ada"}); err != nil {
		t.Fatalf("join should succeed: %v", err)
	}
	snap, err = gw.JoinSession(ctx, transport.JoinRequest{HuntID: "hunt-9", PlayerID: "p2", PlayerName: "Grace"})
	if err != nil {
		t.Fatalf("join should succeed: %v", err)
	}
	if len(snap.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(snap.Players))
	}

	// close enough to tag after both locations are pushed
	if err := gw.PushLocation(ctx, transport.LocationPush{HuntID: "hunt-9", PlayerID: "p1", Latitude: 0, Longitude: 0, Timestamp: base}); err != nil {
		t.Fatalf("location push should succeed: %v", err)
	}
	if err := gw.PushLocation(ctx, transport.LocationPush{HuntID: "hunt-9", PlayerID: "p2", Latitude: 0, Longitude: 0.0003, Timestamp: base}); err != nil {
		t.Fatalf("location push should succeed: %v", err)
	}

	snap, err = gw.AttemptTag(ctx, transport.TagRequest{HuntID: "hunt-9", ActorID: "p1", TargetID: "p2"})
	if err != nil {
		t.Fatalf("tag should confirm: %v", err)
	}
	for _, p := range snap.Players {
		if p.ID == "p1" && p.TagsCompleted != 1 {
			t.Fatalf("actor should have a completed tag: %+v", p)
		}
	}

	snap, err = gw.RefreshSession(ctx, "hunt-9")
	if err != nil {
		t.Fatalf("refresh should succeed: %v", err)
	}
	if len(snap.Players) != 2 {
		t.Fatalf("refresh should return the full roster, got %d", len(snap.Players))
	}
}

func TestGatewayFailureSurfacesServerMessage(t *testing.T) {
	ts, _ := newTestServer(t, "")
	gw := transport.NewHTTPGateway(ts.URL, transport.StaticCredentials("dev-token"))

	_, err := gw.RefreshSession(context.Background(), "missing")
	if err == nil || err.Error() != "hunt not found" {
		t.Fatalf("server message should surface verbatim, got %v", err)
	}
}

func TestGatewayMissingCredentialNeverHitsNetwork(t *testing.T) {
	hits := 0
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer backend.Close()

	gw := transport.NewHTTPGateway(backend.URL, transport.StaticCredentials(""))
	_, err := gw.RefreshSession(context.Background(), "hunt-9")
	if !errors.Is(err, transport.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if hits != 0 {
		t.Fatalf("missing credential must fail before any network call, got %d hits", hits)
	}
}

func TestAuthTokenEnforced(t *testing.T) {
	ts, hub := newTestServer(t, "sekrit")
	hub.nowFn = func() time.Time { return base }

	gw := transport.NewHTTPGateway(ts.URL, transport.StaticCredentials("wrong"))
	_, err := gw.CreateSession(context.Background(), transport.CreateSessionRequest{HuntID: "h", Settings: huntSettings()})
	if err == nil || err.Error() != "invalid credential" {
		t.Fatalf("expected credential rejection, got %v", err)
	}

	gw = transport.NewHTTPGateway(ts.URL, transport.StaticCredentials("sekrit"))
	if _, err := gw.CreateSession(context.Background(), transport.CreateSessionRequest{HuntID: "h", Settings: huntSettings()}); err != nil {
		t.Fatalf("correct token should pass: %v", err)
	}
}

func TestMissingBearerRejected(t *testing.T) {
	ts, _ := newTestServer(t, "")
	resp, err := http.Get(ts.URL + "/api/hunts/x")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer, got %d", resp.StatusCode)
	}
}

func TestJoinQRCode(t *testing.T) {
	ts, hub := newTestServer(t, "")
	hub.CreateHunt(transport.CreateSessionRequest{HuntID: "hunt-7", Settings: huntSettings()})

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/hunts/hunt-7/qr", nil)
	req.Header.Set("Authorization", "Bearer dev-token")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %s", ct)
	}
}
