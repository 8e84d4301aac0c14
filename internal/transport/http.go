package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/citychase/tagmode/internal/game"
)

// HTTPGateway talks JSON over HTTP to the authoritative hunt server.
type HTTPGateway struct {
	BaseURL string
	creds   CredentialStore
	http    *http.Client
}

func NewHTTPGateway(baseURL string, creds CredentialStore) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		http:    &http.Client{Timeout: 20 * time.Second},
	}
}

func (g *HTTPGateway) CreateSession(ctx context.Context, req CreateSessionRequest) (*game.Snapshot, error) {
	return g.postSnapshot(ctx, "/api/hunts", req)
}

func (g *HTTPGateway) JoinSession(ctx context.Context, req JoinRequest) (*game.Snapshot, error) {
	return g.postSnapshot(ctx, "/api/hunts/"+req.HuntID+"/join", req)
}

func (g *HTTPGateway) LeaveSession(ctx context.Context, huntID, playerID string) error {
	payload := map[string]string{"playerId": playerID}
	_, err := g.do(ctx, http.MethodPost, "/api/hunts/"+huntID+"/leave", payload)
	return err
}

func (g *HTTPGateway) PushLocation(ctx context.Context, req LocationPush) error {
	_, err := g.do(ctx, http.MethodPost, "/api/hunts/"+req.HuntID+"/location", req)
	return err
}

func (g *HTTPGateway) AttemptTag(ctx context.Context, req TagRequest) (*game.Snapshot, error) {
	return g.postSnapshot(ctx, "/api/hunts/"+req.HuntID+"/tag", req)
}

func (g *HTTPGateway) ActivateStealth(ctx context.Context, req StealthRequest) (*game.Snapshot, error) {
	return g.postSnapshot(ctx, "/api/hunts/"+req.HuntID+"/stealth", req)
}

func (g *HTTPGateway) DeploySabotage(ctx context.Context, req SabotageRequest) (*game.Snapshot, error) {
	return g.postSnapshot(ctx, "/api/hunts/"+req.HuntID+"/sabotage", req)
}

func (g *HTTPGateway) PlaceBounty(ctx context.Context, req BountyRequest) (*game.Snapshot, error) {
	return g.postSnapshot(ctx, "/api/hunts/"+req.HuntID+"/bounties", req)
}

func (g *HTTPGateway) ClaimBounty(ctx context.Context, req BountyClaimRequest) (*game.Snapshot, error) {
	return g.postSnapshot(ctx, "/api/hunts/"+req.HuntID+"/bounties/claim", req)
}

func (g *HTTPGateway) FormAlliance(ctx context.Context, req AllianceRequest) (*game.Snapshot, error) {
	return g.postSnapshot(ctx, "/api/hunts/"+req.HuntID+"/alliances", req)
}

func (g *HTTPGateway) LeaveAlliance(ctx context.Context, req AllianceLeaveRequest) (*game.Snapshot, error) {
	return g.postSnapshot(ctx, "/api/hunts/"+req.HuntID+"/alliances/leave", req)
}

func (g *HTTPGateway) BetrayAlliance(ctx context.Context, req AllianceBetrayRequest) (*game.Snapshot, error) {
	return g.postSnapshot(ctx, "/api/hunts/"+req.HuntID+"/alliances/betray", req)
}

func (g *HTTPGateway) RefreshSession(ctx context.Context, huntID string) (*game.Snapshot, error) {
	body, err := g.do(ctx, http.MethodGet, "/api/hunts/"+huntID, nil)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(body)
}

func (g *HTTPGateway) postSnapshot(ctx context.Context, path string, payload any) (*game.Snapshot, error) {
	body, err := g.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(body)
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	token, err := g.creds.Token()
	if err != nil {
		return nil, err
	}

	var reader *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}

	if resp.StatusCode/100 != 2 {
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(buf.Bytes(), &body) == nil && body.Error != "" {
			return nil, errors.New(body.Error)
		}
		return nil, fmt.Errorf("server status %d", resp.StatusCode)
	}
	return buf.Bytes(), nil
}

func decodeSnapshot(body []byte) (*game.Snapshot, error) {
	var snap game.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
