package game

import (
	"time"
)

type Mode string

const (
	ModeClassic      Mode = "classic"
	ModeHunterHunted Mode = "hunter_hunted"
	ModeFreeForAll   Mode = "free_for_all"
	ModeTeamTag      Mode = "team_tag"
)

type Role string

const (
	RoleHunter  Role = "hunter"
	RoleHunted  Role = "hunted"
	RoleNeutral Role = "neutral"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusTagged   Status = "tagged"
	StatusImmune   Status = "immune"
	StatusSafeZone Status = "safe_zone"
	StatusStealth  Status = "stealth"
)

type AlertLevel string

const (
	AlertDangerClose AlertLevel = "danger_close"
	AlertNearby      AlertLevel = "nearby"
	AlertApproaching AlertLevel = "approaching"
)

type SabotageKind string

const (
	SabotageDecoy       SabotageKind = "decoy"
	SabotageTrap        SabotageKind = "trap"
	SabotageScrambler   SabotageKind = "scrambler"
	SabotageSmokescreen SabotageKind = "smokescreen"
)

// ActiveHours is an hour-of-day window. Start > End means the window wraps
// midnight ("active overnight").
type ActiveHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type SafeZone struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Latitude     float64      `json:"latitude"`
	Longitude    float64      `json:"longitude"`
	RadiusMeters float64      `json:"radiusMeters"`
	ActiveHours  *ActiveHours `json:"activeHours,omitempty"`
}

type Settings struct {
	Mode                   Mode          `json:"mode"`
	TagRadiusMeters        float64       `json:"tagRadiusMeters"`
	ImmunityDuration       time.Duration `json:"immunityDuration"`
	StealthCost            int           `json:"stealthCost"`
	StealthDuration        time.Duration `json:"stealthDuration"`
	StealthCooldown        time.Duration `json:"stealthCooldown"`
	HunterRotationInterval time.Duration `json:"hunterRotationInterval"`
	SabotagesAllowed       bool          `json:"sabotagesAllowed"`
	AlliancesAllowed       bool          `json:"alliancesAllowed"`
	BountiesAllowed        bool          `json:"bountiesAllowed"`
	MaxAllianceSize        int           `json:"maxAllianceSize"`
	SafeZones              []SafeZone    `json:"safeZones"`
}

type Coordinate struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// ZoneInfo is the coarse location exposed to other players in place of an
// exact coordinate.
type ZoneInfo struct {
	Label            string `json:"label"`
	DistanceCategory string `json:"distanceCategory,omitempty"`
}

type PlayerState struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`

	Role   Role   `json:"role"`
	Status Status `json:"status"`

	ExactLocation *Coordinate `json:"exactLocation,omitempty"`
	LastKnownZone *ZoneInfo   `json:"lastKnownZone,omitempty"`

	TagsCompleted       int `json:"tagsCompleted"`
	TimesTagged         int `json:"timesTagged"`
	ChallengesCompleted int `json:"challengesCompleted"`
	SabotagesDeployed   int `json:"sabotagesDeployed"`
	BountiesClaimed     int `json:"bountiesClaimed"`

	ImmuneUntil  *time.Time `json:"immuneUntil,omitempty"`
	StealthUntil *time.Time `json:"stealthUntil,omitempty"`

	AllianceID     string   `json:"allianceId,omitempty"`
	ActiveBounties []string `json:"activeBounties,omitempty"`

	Score       int `json:"score"`
	BonusPoints int `json:"bonusPoints"`
}

type Sabotage struct {
	ID           string       `json:"id"`
	Kind         SabotageKind `json:"kind"`
	DeployerID   string       `json:"deployerId"`
	Latitude     float64      `json:"latitude"`
	Longitude    float64      `json:"longitude"`
	RadiusMeters float64      `json:"radiusMeters"`
	ExpiresAt    time.Time    `json:"expiresAt"`
	Triggered    bool         `json:"triggered"`
	TriggeredBy  string       `json:"triggeredBy,omitempty"`
}

type Bounty struct {
	ID        string    `json:"id"`
	TargetID  string    `json:"targetId"`
	PlacerID  string    `json:"placerId"`
	Reward    int       `json:"reward"`
	ExpiresAt time.Time `json:"expiresAt"`
	Claimed   bool      `json:"claimed"`
	ClaimedBy string    `json:"claimedBy,omitempty"`
}

type Alliance struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	MemberIDs      []string   `json:"memberIds"`
	LeaderID       string     `json:"leaderId"`
	SharedProgress bool       `json:"sharedProgress"`
	BetrayedAt     *time.Time `json:"betrayedAt,omitempty"`
	BetrayedBy     string     `json:"betrayedBy,omitempty"`
}

// ProximityAlert is ephemeral, recomputed from the player set on every
// location sample and never persisted.
type ProximityAlert struct {
	PlayerID   string     `json:"playerId"`
	PlayerName string     `json:"playerName"`
	Level      AlertLevel `json:"level"`
	Meters     float64    `json:"meters"`
	Bearing    string     `json:"bearing"`
	IsHunter   bool       `json:"isHunter"`
}

// Snapshot is the canonical session state as returned by the server. The
// client replaces its local copy wholesale with one of these on every
// successful mutating call.
type Snapshot struct {
	HuntID           string         `json:"huntId"`
	Settings         Settings       `json:"settings"`
	Players          []*PlayerState `json:"players"`
	Sabotages        []*Sabotage    `json:"sabotages"`
	Bounties         []*Bounty      `json:"bounties"`
	Alliances        []*Alliance    `json:"alliances"`
	CurrentHunterID  string         `json:"currentHunterId,omitempty"`
	RotationDeadline *time.Time     `json:"rotationDeadline,omitempty"`
}
