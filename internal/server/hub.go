package server

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/citychase/tagmode/internal/game"
	"github.com/citychase/tagmode/internal/geo"
	"github.com/citychase/tagmode/internal/transport"
)

var (
	ErrHuntNotFound   = errors.New("hunt not found")
	ErrHuntExists     = errors.New("hunt already exists")
	ErrPlayerNotFound = errors.New("player not found in hunt")
	ErrTargetImmune   = errors.New("target is currently immune")
	ErrTargetSafe     = errors.New("target is inside a safe zone")
	ErrOutOfRange     = errors.New("target is out of tag range")
	ErrBountyNotFound = errors.New("bounty not found")
	ErrBountyClosed   = errors.New("bounty already claimed or expired")
	ErrAllianceClosed = errors.New("alliance has been betrayed")
	ErrNotMember      = errors.New("player is not a member of this alliance")
)

const (
	tagPoints      = 100
	sabotageTTL    = 30 * time.Minute
	bountyTTL      = time.Hour
	defaultMaxSize = 2
)

// HuntCtx is one authoritative hunt session. Its canonical state is what
// clients replace their replicas with on every mutating call.
type HuntCtx struct {
	ID        string
	CreatedAt time.Time
	Settings  game.Settings

	Players   map[string]*game.PlayerState
	Sabotages map[string]*game.Sabotage
	Bounties  map[string]*game.Bounty
	Alliances map[string]*game.Alliance

	CurrentHunterID  string
	RotationDeadline *time.Time

	safety *game.SafeZoneEvaluator

	mu sync.Mutex
}

// Hub owns every active hunt, keyed by hunt id.
type Hub struct {
	mu    sync.RWMutex
	hunts map[string]*HuntCtx

	nowFn func() time.Time
}

func NewHub() *Hub {
	return &Hub{hunts: make(map[string]*HuntCtx), nowFn: time.Now}
}

func (h *Hub) CreateHunt(req transport.CreateSessionRequest) (*game.Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.hunts[req.HuntID] != nil {
		return nil, ErrHuntExists
	}
	settings := req.Settings
	if settings.MaxAllianceSize == 0 {
		settings.MaxAllianceSize = defaultMaxSize
	}
	huntCtx := &HuntCtx{
		ID:        req.HuntID,
		CreatedAt: h.nowFn().UTC(),
		Settings:  settings,
		Players:   make(map[string]*game.PlayerState),
		Sabotages: make(map[string]*game.Sabotage),
		Bounties:  make(map[string]*game.Bounty),
		Alliances: make(map[string]*game.Alliance),
		safety:    game.NewSafeZoneEvaluator(settings.SafeZones),
	}
	h.hunts[req.HuntID] = huntCtx
	return huntCtx.snapshotLocked(h.nowFn()), nil
}

func (h *Hub) Get(huntID string) (*HuntCtx, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	huntCtx := h.hunts[huntID]
	if huntCtx == nil {
		return nil, ErrHuntNotFound
	}
	return huntCtx, nil
}

func (h *Hub) now() time.Time { return h.nowFn() }

// Join adds a player. In hunter_hunted mode the first joiner becomes the
// hunter and starts the rotation clock; everyone after is hunted.
func (c *HuntCtx) Join(req transport.JoinRequest, now time.Time) *game.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Players[req.PlayerID] == nil {
		role := game.RoleNeutral
		if c.Settings.Mode == game.ModeHunterHunted {
			role = game.RoleHunted
			if len(c.Players) == 0 {
				role = game.RoleHunter
			}
		}
		p := &game.PlayerState{
			ID:        req.PlayerID,
			Name:      req.PlayerName,
			AvatarURL: req.AvatarURL,
			Role:      role,
			Status:    game.StatusActive,
		}
		c.Players[p.ID] = p
		if role == game.RoleHunter && c.CurrentHunterID == "" {
			c.CurrentHunterID = p.ID
			c.resetRotationLocked(now)
		}
	}
	return c.snapshotLocked(now)
}

func (c *HuntCtx) Leave(playerID string, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Players[playerID] == nil {
		return ErrPlayerNotFound
	}
	delete(c.Players, playerID)
	if c.CurrentHunterID == playerID {
		c.CurrentHunterID = ""
		c.rotateHunterLocked(now)
	}
	return nil
}

// RecordLocation ingests a client's throttled location push.
func (c *HuntCtx) RecordLocation(req transport.LocationPush) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.Players[req.PlayerID]
	if p == nil {
		return ErrPlayerNotFound
	}
	p.ExactLocation = &game.Coordinate{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Timestamp: req.Timestamp,
	}
	p.LastKnownZone = &game.ZoneInfo{Label: req.Zone}
	return nil
}

// ConfirmTag is the authoritative legality check and the only place tag
// state is ever mutated. Distance is re-verified with the last locations
// the server knows about.
func (c *HuntCtx) ConfirmTag(req transport.TagRequest, now time.Time) (*game.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maybeRotateLocked(now)

	actor := c.Players[req.ActorID]
	target := c.Players[req.TargetID]
	if actor == nil || target == nil {
		return nil, ErrPlayerNotFound
	}
	if target.ImmuneUntil != nil && now.Before(*target.ImmuneUntil) {
		return nil, ErrTargetImmune
	}
	if target.ExactLocation != nil &&
		c.safety.IsInSafeZone(target.ExactLocation.Latitude, target.ExactLocation.Longitude, now) {
		return nil, ErrTargetSafe
	}
	if actor.ExactLocation != nil && target.ExactLocation != nil {
		d := geo.DistanceMeters(
			actor.ExactLocation.Latitude, actor.ExactLocation.Longitude,
			target.ExactLocation.Latitude, target.ExactLocation.Longitude,
		)
		// generous server-side bound: client locations lag the push throttle
		if d > c.Settings.TagRadiusMeters*2 {
			return nil, fmt.Errorf("%w: %.0fm apart", ErrOutOfRange, d)
		}
	}

	actor.TagsCompleted++
	actor.Score += tagPoints
	target.TimesTagged++
	target.Status = game.StatusTagged
	if c.Settings.ImmunityDuration > 0 {
		until := now.Add(c.Settings.ImmunityDuration)
		target.ImmuneUntil = &until
		// immunity grant releases the tagged state
		target.Status = game.StatusImmune
	}

	// an open bounty on the target pays out to whoever lands the tag
	for _, b := range c.Bounties {
		if b.TargetID == target.ID && !b.Claimed && now.Before(b.ExpiresAt) {
			b.Claimed = true
			b.ClaimedBy = actor.ID
			actor.BountiesClaimed++
			actor.BonusPoints += b.Reward
		}
	}
	target.ActiveBounties = nil

	if c.Settings.Mode == game.ModeHunterHunted && actor.ID == c.CurrentHunterID {
		// the tagged player becomes the hunter
		actor.Role = game.RoleHunted
		target.Role = game.RoleHunter
		c.CurrentHunterID = target.ID
		c.resetRotationLocked(now)
	}

	return c.snapshotLocked(now), nil
}

// ChargeStealth deducts the stealth cost exactly once and opens the
// stealth window.
func (c *HuntCtx) ChargeStealth(req transport.StealthRequest, now time.Time) (*game.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.Players[req.PlayerID]
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	if cost := c.Settings.StealthCost; cost > 0 {
		if p.Score+p.BonusPoints < cost {
			return nil, fmt.Errorf("not enough points for stealth: need %d", cost)
		}
		p.Score -= cost
	}
	until := now.Add(c.Settings.StealthDuration)
	p.StealthUntil = &until
	p.Status = game.StatusStealth
	return c.snapshotLocked(now), nil
}

func (c *HuntCtx) DeploySabotage(req transport.SabotageRequest, now time.Time) (*game.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.Players[req.DeployerID]
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	sab := &game.Sabotage{
		ID:           uuid.NewString(),
		Kind:         req.Kind,
		DeployerID:   req.DeployerID,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		RadiusMeters: req.RadiusMeters,
		ExpiresAt:    now.Add(sabotageTTL),
	}
	c.Sabotages[sab.ID] = sab
	p.SabotagesDeployed++
	return c.snapshotLocked(now), nil
}

func (c *HuntCtx) PlaceBounty(req transport.BountyRequest, now time.Time) (*game.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Players[req.PlacerID] == nil {
		return nil, ErrPlayerNotFound
	}
	target := c.Players[req.TargetID]
	if target == nil {
		return nil, ErrPlayerNotFound
	}
	b := &game.Bounty{
		ID:        uuid.NewString(),
		TargetID:  req.TargetID,
		PlacerID:  req.PlacerID,
		Reward:    req.Reward,
		ExpiresAt: now.Add(bountyTTL),
	}
	c.Bounties[b.ID] = b
	target.ActiveBounties = append(target.ActiveBounties, b.ID)
	return c.snapshotLocked(now), nil
}

func (c *HuntCtx) ClaimBounty(req transport.BountyClaimRequest, now time.Time) (*game.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	claimer := c.Players[req.ClaimerID]
	if claimer == nil {
		return nil, ErrPlayerNotFound
	}
	b := c.Bounties[req.BountyID]
	if b == nil {
		return nil, ErrBountyNotFound
	}
	if b.Claimed || now.After(b.ExpiresAt) || b.TargetID == req.ClaimerID {
		return nil, ErrBountyClosed
	}
	b.Claimed = true
	b.ClaimedBy = claimer.ID
	claimer.BountiesClaimed++
	claimer.BonusPoints += b.Reward
	return c.snapshotLocked(now), nil
}

func (c *HuntCtx) FormAlliance(req transport.AllianceRequest, now time.Time) (*game.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if max := c.Settings.MaxAllianceSize; max > 0 && len(req.MemberIDs) > max {
		return nil, fmt.Errorf("alliances are capped at %d members", max)
	}
	for _, id := range req.MemberIDs {
		p := c.Players[id]
		if p == nil {
			return nil, ErrPlayerNotFound
		}
		if p.AllianceID != "" {
			if a := c.Alliances[p.AllianceID]; a != nil && a.BetrayedAt == nil {
				return nil, fmt.Errorf("%s is already in an alliance", p.Name)
			}
		}
	}
	a := &game.Alliance{
		ID:             uuid.NewString(),
		Name:           req.Name,
		MemberIDs:      append([]string(nil), req.MemberIDs...),
		LeaderID:       req.LeaderID,
		SharedProgress: req.SharedProgress,
	}
	c.Alliances[a.ID] = a
	for _, id := range req.MemberIDs {
		c.Players[id].AllianceID = a.ID
	}
	return c.snapshotLocked(now), nil
}

// LeaveAlliance removes the member; an alliance that drops below two
// members dissolves entirely.
func (c *HuntCtx) LeaveAlliance(req transport.AllianceLeaveRequest, now time.Time) (*game.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a := c.Alliances[req.AllianceID]
	if a == nil {
		return nil, ErrNotMember
	}
	found := false
	members := a.MemberIDs[:0]
	for _, id := range a.MemberIDs {
		if id == req.PlayerID {
			found = true
			continue
		}
		members = append(members, id)
	}
	if !found {
		return nil, ErrNotMember
	}
	a.MemberIDs = members
	if p := c.Players[req.PlayerID]; p != nil {
		p.AllianceID = ""
	}
	if len(a.MemberIDs) < 2 {
		for _, id := range a.MemberIDs {
			if p := c.Players[id]; p != nil {
				p.AllianceID = ""
			}
		}
		delete(c.Alliances, a.ID)
	}
	return c.snapshotLocked(now), nil
}

// BetrayAlliance is terminal and irreversible: the record survives with
// the betrayer's identity and the pact's benefits end for everyone.
func (c *HuntCtx) BetrayAlliance(req transport.AllianceBetrayRequest, now time.Time) (*game.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a := c.Alliances[req.AllianceID]
	if a == nil {
		return nil, ErrNotMember
	}
	if a.BetrayedAt != nil {
		return nil, ErrAllianceClosed
	}
	member := false
	for _, id := range a.MemberIDs {
		if id == req.BetrayerID {
			member = true
			break
		}
	}
	if !member {
		return nil, ErrNotMember
	}
	at := now
	a.BetrayedAt = &at
	a.BetrayedBy = req.BetrayerID
	return c.snapshotLocked(now), nil
}

func (c *HuntCtx) Snapshot(now time.Time) *game.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maybeRotateLocked(now)
	return c.snapshotLocked(now)
}

func (c *HuntCtx) resetRotationLocked(now time.Time) {
	if c.Settings.HunterRotationInterval <= 0 {
		c.RotationDeadline = nil
		return
	}
	deadline := now.Add(c.Settings.HunterRotationInterval)
	c.RotationDeadline = &deadline
}

// maybeRotateLocked hands the hunter role to the next player (by id
// order) when the rotation deadline has lapsed.
func (c *HuntCtx) maybeRotateLocked(now time.Time) {
	if c.Settings.Mode != game.ModeHunterHunted || c.RotationDeadline == nil || now.Before(*c.RotationDeadline) {
		return
	}
	c.rotateHunterLocked(now)
}

func (c *HuntCtx) rotateHunterLocked(now time.Time) {
	ids := make([]string, 0, len(c.Players))
	for id := range c.Players {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		c.CurrentHunterID = ""
		c.RotationDeadline = nil
		return
	}
	sort.Strings(ids)
	next := ids[0]
	for i, id := range ids {
		if id == c.CurrentHunterID {
			next = ids[(i+1)%len(ids)]
			break
		}
	}
	if cur := c.Players[c.CurrentHunterID]; cur != nil {
		cur.Role = game.RoleHunted
	}
	c.Players[next].Role = game.RoleHunter
	c.CurrentHunterID = next
	c.resetRotationLocked(now)
}

// snapshotLocked renders deep copies so handler goroutines can serialize
// without holding the lock.
func (c *HuntCtx) snapshotLocked(now time.Time) *game.Snapshot {
	snap := &game.Snapshot{
		HuntID:          c.ID,
		Settings:        c.Settings,
		CurrentHunterID: c.CurrentHunterID,
	}
	if c.RotationDeadline != nil {
		d := *c.RotationDeadline
		snap.RotationDeadline = &d
	}
	for _, p := range c.Players {
		cp := *p
		cp.ActiveBounties = append([]string(nil), p.ActiveBounties...)
		snap.Players = append(snap.Players, &cp)
	}
	for _, sab := range c.Sabotages {
		cp := *sab
		snap.Sabotages = append(snap.Sabotages, &cp)
	}
	for _, b := range c.Bounties {
		cp := *b
		snap.Bounties = append(snap.Bounties, &cp)
	}
	for _, a := range c.Alliances {
		cp := *a
		cp.MemberIDs = append([]string(nil), a.MemberIDs...)
		snap.Alliances = append(snap.Alliances, &cp)
	}
	return snap
}
