package transport

import (
	"context"
	"errors"

	"github.com/citychase/tagmode/internal/game"
)

var (
	ErrMissingCredential = errors.New("not authenticated")
	ErrMissingField      = errors.New("missing required field")
)

// Gateway is the boundary to the authoritative hunt server. Every mutating
// call returns the server's canonical session snapshot, which callers are
// expected to adopt wholesale in place of local state. Failure reasons are
// human-readable and surfaced verbatim.
type Gateway interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*game.Snapshot, error)
	JoinSession(ctx context.Context, req JoinRequest) (*game.Snapshot, error)
	LeaveSession(ctx context.Context, huntID, playerID string) error

	// PushLocation is fire-and-forget on the caller side; it returns an
	// error for logging only and never a snapshot.
	PushLocation(ctx context.Context, req LocationPush) error

	AttemptTag(ctx context.Context, req TagRequest) (*game.Snapshot, error)
	ActivateStealth(ctx context.Context, req StealthRequest) (*game.Snapshot, error)
	DeploySabotage(ctx context.Context, req SabotageRequest) (*game.Snapshot, error)
	PlaceBounty(ctx context.Context, req BountyRequest) (*game.Snapshot, error)
	ClaimBounty(ctx context.Context, req BountyClaimRequest) (*game.Snapshot, error)
	FormAlliance(ctx context.Context, req AllianceRequest) (*game.Snapshot, error)
	LeaveAlliance(ctx context.Context, req AllianceLeaveRequest) (*game.Snapshot, error)
	BetrayAlliance(ctx context.Context, req AllianceBetrayRequest) (*game.Snapshot, error)

	RefreshSession(ctx context.Context, huntID string) (*game.Snapshot, error)
}

// CredentialStore supplies the bearer credential for authenticated calls.
// An empty token is treated as a fatal precondition for any server-bound
// action.
type CredentialStore interface {
	Token() (string, error)
}

// StaticCredentials is a CredentialStore holding a fixed token.
type StaticCredentials string

func (s StaticCredentials) Token() (string, error) {
	if s == "" {
		return "", ErrMissingCredential
	}
	return string(s), nil
}
