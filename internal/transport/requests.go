package transport

import (
	"fmt"
	"time"

	"github.com/citychase/tagmode/internal/game"
)

// One request type per action kind, carrying exactly the fields that action
// needs. Constructors validate required fields so malformed intents never
// reach the wire.

type CreateSessionRequest struct {
	HuntID   string        `json:"huntId"`
	Settings game.Settings `json:"settings"`
}

func NewCreateSessionRequest(huntID string, settings game.Settings) (CreateSessionRequest, error) {
	if huntID == "" {
		return CreateSessionRequest{}, fmt.Errorf("%w: huntId", ErrMissingField)
	}
	return CreateSessionRequest{HuntID: huntID, Settings: settings}, nil
}

type JoinRequest struct {
	HuntID     string `json:"huntId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
}

func NewJoinRequest(huntID, playerID, playerName string) (JoinRequest, error) {
	if huntID == "" {
		return JoinRequest{}, fmt.Errorf("%w: huntId", ErrMissingField)
	}
	if playerID == "" {
		return JoinRequest{}, fmt.Errorf("%w: playerId", ErrMissingField)
	}
	if playerName == "" {
		return JoinRequest{}, fmt.Errorf("%w: playerName", ErrMissingField)
	}
	return JoinRequest{HuntID: huntID, PlayerID: playerID, PlayerName: playerName}, nil
}

type LocationPush struct {
	HuntID    string    `json:"huntId"`
	PlayerID  string    `json:"playerId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Zone      string    `json:"zone"`
	Timestamp time.Time `json:"timestamp"`
}

type TagRequest struct {
	HuntID     string `json:"huntId"`
	ActorID    string `json:"actorId"`
	TargetID   string `json:"targetId"`
	ProofMedia string `json:"proofMedia,omitempty"`
}

func NewTagRequest(huntID, actorID, targetID, proofMedia string) (TagRequest, error) {
	if huntID == "" {
		return TagRequest{}, fmt.Errorf("%w: huntId", ErrMissingField)
	}
	if actorID == "" {
		return TagRequest{}, fmt.Errorf("%w: actorId", ErrMissingField)
	}
	if targetID == "" {
		return TagRequest{}, fmt.Errorf("%w: targetId", ErrMissingField)
	}
	return TagRequest{HuntID: huntID, ActorID: actorID, TargetID: targetID, ProofMedia: proofMedia}, nil
}

type StealthRequest struct {
	HuntID   string `json:"huntId"`
	PlayerID string `json:"playerId"`
}

func NewStealthRequest(huntID, playerID string) (StealthRequest, error) {
	if huntID == "" || playerID == "" {
		return StealthRequest{}, fmt.Errorf("%w: huntId, playerId", ErrMissingField)
	}
	return StealthRequest{HuntID: huntID, PlayerID: playerID}, nil
}

type SabotageRequest struct {
	HuntID       string            `json:"huntId"`
	DeployerID   string            `json:"deployerId"`
	Kind         game.SabotageKind `json:"kind"`
	Latitude     float64           `json:"latitude"`
	Longitude    float64           `json:"longitude"`
	RadiusMeters float64           `json:"radiusMeters"`
}

func NewSabotageRequest(huntID, deployerID string, kind game.SabotageKind, lat, lon, radius float64) (SabotageRequest, error) {
	if huntID == "" || deployerID == "" {
		return SabotageRequest{}, fmt.Errorf("%w: huntId, deployerId", ErrMissingField)
	}
	if kind == "" {
		return SabotageRequest{}, fmt.Errorf("%w: kind", ErrMissingField)
	}
	if radius <= 0 {
		return SabotageRequest{}, fmt.Errorf("sabotage radius must be positive, got %f", radius)
	}
	return SabotageRequest{
		HuntID: huntID, DeployerID: deployerID, Kind: kind,
		Latitude: lat, Longitude: lon, RadiusMeters: radius,
	}, nil
}

type BountyRequest struct {
	HuntID   string `json:"huntId"`
	PlacerID string `json:"placerId"`
	TargetID string `json:"targetId"`
	Reward   int    `json:"reward"`
}

func NewBountyRequest(huntID, placerID, targetID string, reward int) (BountyRequest, error) {
	if huntID == "" || placerID == "" || targetID == "" {
		return BountyRequest{}, fmt.Errorf("%w: huntId, placerId, targetId", ErrMissingField)
	}
	if reward <= 0 {
		return BountyRequest{}, fmt.Errorf("bounty reward must be positive, got %d", reward)
	}
	return BountyRequest{HuntID: huntID, PlacerID: placerID, TargetID: targetID, Reward: reward}, nil
}

type BountyClaimRequest struct {
	HuntID    string `json:"huntId"`
	BountyID  string `json:"bountyId"`
	ClaimerID string `json:"claimerId"`
}

func NewBountyClaimRequest(huntID, bountyID, claimerID string) (BountyClaimRequest, error) {
	if huntID == "" || bountyID == "" || claimerID == "" {
		return BountyClaimRequest{}, fmt.Errorf("%w: huntId, bountyId, claimerId", ErrMissingField)
	}
	return BountyClaimRequest{HuntID: huntID, BountyID: bountyID, ClaimerID: claimerID}, nil
}

type AllianceRequest struct {
	HuntID         string   `json:"huntId"`
	Name           string   `json:"name"`
	MemberIDs      []string `json:"memberIds"`
	LeaderID       string   `json:"leaderId"`
	SharedProgress bool     `json:"sharedProgress"`
}

func NewAllianceRequest(huntID, name, leaderID string, memberIDs []string, shared bool) (AllianceRequest, error) {
	if huntID == "" || name == "" || leaderID == "" {
		return AllianceRequest{}, fmt.Errorf("%w: huntId, name, leaderId", ErrMissingField)
	}
	if len(memberIDs) < 2 {
		return AllianceRequest{}, fmt.Errorf("an alliance needs at least 2 members, got %d", len(memberIDs))
	}
	return AllianceRequest{
		HuntID: huntID, Name: name, MemberIDs: memberIDs,
		LeaderID: leaderID, SharedProgress: shared,
	}, nil
}

type AllianceLeaveRequest struct {
	HuntID     string `json:"huntId"`
	AllianceID string `json:"allianceId"`
	PlayerID   string `json:"playerId"`
}

func NewAllianceLeaveRequest(huntID, allianceID, playerID string) (AllianceLeaveRequest, error) {
	if huntID == "" || allianceID == "" || playerID == "" {
		return AllianceLeaveRequest{}, fmt.Errorf("%w: huntId, allianceId, playerId", ErrMissingField)
	}
	return AllianceLeaveRequest{HuntID: huntID, AllianceID: allianceID, PlayerID: playerID}, nil
}

type AllianceBetrayRequest struct {
	HuntID     string `json:"huntId"`
	AllianceID string `json:"allianceId"`
	BetrayerID string `json:"betrayerId"`
}

func NewAllianceBetrayRequest(huntID, allianceID, betrayerID string) (AllianceBetrayRequest, error) {
	if huntID == "" || allianceID == "" || betrayerID == "" {
		return AllianceBetrayRequest{}, fmt.Errorf("%w: huntId, allianceId, betrayerId", ErrMissingField)
	}
	return AllianceBetrayRequest{HuntID: huntID, AllianceID: allianceID, BetrayerID: betrayerID}, nil
}
