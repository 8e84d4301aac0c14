package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/citychase/tagmode/internal/game"
	"github.com/citychase/tagmode/internal/geo"
	"github.com/citychase/tagmode/internal/transport"
)

var (
	ErrNotInHunt       = errors.New("you are not in this hunt")
	ErrTargetNotFound  = errors.New("target is not in this hunt")
	ErrAlreadyTracking = errors.New("location tracking already started")
)

const (
	// proximity alert bands
	dangerCloseMeters = 30
	nearbyMeters      = 60
	approachingMeters = 100

	// read-side visibility radius for sabotages
	sabotageVisibilityMeters = 200

	// minimum interval between outbound location pushes per player
	pushInterval = 5 * time.Second
)

// Session is the client-side replica of one hunt's pursuit game. All
// mutation flows through its methods; the server's snapshot replaces the
// replica wholesale whenever a mutating call succeeds.
type Session struct {
	mu sync.Mutex

	huntID  string
	localID string

	settings  game.Settings
	players   map[string]*game.PlayerState
	sabotages map[string]*game.Sabotage
	bounties  map[string]*game.Bounty
	alliances map[string]*game.Alliance

	currentHunterID  string
	rotationDeadline *time.Time

	alerts []game.ProximityAlert

	inSafeZone     map[string]bool
	lastPush       map[string]time.Time
	stealthReadyAt map[string]time.Time

	lastErr string

	resolver *geo.Resolver
	safety   *game.SafeZoneEvaluator

	gw  transport.Gateway
	log zerolog.Logger

	nowFn func() time.Time

	// background work (location pushes) is bound to this context so it
	// cannot outlive the session
	ctx    context.Context
	cancel context.CancelFunc

	trackMu sync.Mutex
	feed    LocationFeed
	stopCh  chan struct{}
	trackWG sync.WaitGroup
}

func New(huntID, localPlayerID string, settings game.Settings, gw transport.Gateway, logger zerolog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		huntID:         huntID,
		localID:        localPlayerID,
		settings:       settings,
		players:        make(map[string]*game.PlayerState),
		sabotages:      make(map[string]*game.Sabotage),
		bounties:       make(map[string]*game.Bounty),
		alliances:      make(map[string]*game.Alliance),
		inSafeZone:     make(map[string]bool),
		lastPush:       make(map[string]time.Time),
		stealthReadyAt: make(map[string]time.Time),
		resolver:       geo.NewResolver(0),
		safety:         game.NewSafeZoneEvaluator(settings.SafeZones),
		gw:             gw,
		log:            logger,
		nowFn:          time.Now,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Close stops tracking and cancels any in-flight background pushes.
func (s *Session) Close() {
	s.StopTracking()
	s.cancel()
}

func (s *Session) currentHuntID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.huntID
}

// Create registers this hunt with the server and adopts its canonical
// state.
func (s *Session) Create(ctx context.Context) error {
	s.mu.Lock()
	huntID, settings := s.huntID, s.settings
	s.mu.Unlock()
	req, err := transport.NewCreateSessionRequest(huntID, settings)
	if err != nil {
		return s.fail(err)
	}
	snap, err := s.gw.CreateSession(ctx, req)
	if err != nil {
		return s.fail(err)
	}
	s.applySnapshot(snap)
	return nil
}

// Join adds the local player to the hunt.
func (s *Session) Join(ctx context.Context, name string) error {
	req, err := transport.NewJoinRequest(s.currentHuntID(), s.localID, name)
	if err != nil {
		return s.fail(err)
	}
	snap, err := s.gw.JoinSession(ctx, req)
	if err != nil {
		return s.fail(err)
	}
	s.applySnapshot(snap)
	return nil
}

// Leave removes the local player and halts tracking. Tracking stops even
// when the server call fails, so a player who walks away never keeps
// sampling in the background.
func (s *Session) Leave(ctx context.Context) error {
	s.StopTracking()
	if err := s.gw.LeaveSession(ctx, s.currentHuntID(), s.localID); err != nil {
		return s.fail(err)
	}
	s.mu.Lock()
	delete(s.players, s.localID)
	s.mu.Unlock()
	return nil
}

// Refresh pulls the canonical session state from the server.
func (s *Session) Refresh(ctx context.Context) error {
	snap, err := s.gw.RefreshSession(ctx, s.currentHuntID())
	if err != nil {
		return s.fail(err)
	}
	s.applySnapshot(snap)
	return nil
}

// UpdateLocation ingests one location sample for the acting player. It
// only touches local derived state and therefore has no error path.
func (s *Session) UpdateLocation(playerID string, lat, lon float64, now time.Time) {
	s.mu.Lock()

	p := s.players[playerID]
	if p == nil {
		s.mu.Unlock()
		return
	}

	p.ExactLocation = &game.Coordinate{Latitude: lat, Longitude: lon, Timestamp: now}
	p.LastKnownZone = &game.ZoneInfo{Label: s.resolver.ZoneLabel(lat, lon)}

	// replaced wholesale every sample; alerts only ever reflect the latest
	alerts := make([]game.ProximityAlert, 0)
	for _, other := range s.players {
		if other.ID == playerID || other.ExactLocation == nil {
			continue
		}
		d := geo.DistanceMeters(lat, lon, other.ExactLocation.Latitude, other.ExactLocation.Longitude)
		if d >= approachingMeters {
			continue
		}
		level := game.AlertApproaching
		switch {
		case d < dangerCloseMeters:
			level = game.AlertDangerClose
		case d < nearbyMeters:
			level = game.AlertNearby
		}
		alerts = append(alerts, game.ProximityAlert{
			PlayerID:   other.ID,
			PlayerName: other.Name,
			Level:      level,
			Meters:     d,
			Bearing:    string(geo.BearingDirection(lat, lon, other.ExactLocation.Latitude, other.ExactLocation.Longitude)),
			IsHunter:   s.isHunterLocked(other),
		})
	}
	s.alerts = alerts

	s.inSafeZone[playerID] = s.safety.IsInSafeZone(lat, lon, now)
	p.Status = s.statusLocked(p, now)

	zone := p.LastKnownZone.Label
	huntID := s.huntID
	shouldPush := false
	if last, ok := s.lastPush[playerID]; !ok || now.Sub(last) >= pushInterval {
		s.lastPush[playerID] = now
		shouldPush = true
	}
	s.mu.Unlock()

	if shouldPush {
		push := transport.LocationPush{
			HuntID:    huntID,
			PlayerID:  playerID,
			Latitude:  lat,
			Longitude: lon,
			Zone:      zone,
			Timestamp: now,
		}
		go func() {
			if err := s.gw.PushLocation(s.ctx, push); err != nil {
				s.log.Debug().Err(err).Str("player", playerID).Msg("location push dropped")
			}
		}()
	}
}

// AttemptTag checks the tag preconditions in order and, only when all
// pass, submits the attempt to the server. A locally failed precondition
// never reaches the wire.
func (s *Session) AttemptTag(ctx context.Context, actorID, targetID, proofMedia string) error {
	s.mu.Lock()
	now := s.nowFn()

	actor := s.players[actorID]
	if actor == nil {
		s.mu.Unlock()
		return s.fail(ErrNotInHunt)
	}
	switch s.statusLocked(actor, now) {
	case game.StatusTagged:
		s.mu.Unlock()
		return s.fail(errors.New("you cannot tag while tagged"))
	case game.StatusSafeZone:
		s.mu.Unlock()
		return s.fail(errors.New("you cannot tag from inside a safe zone"))
	}

	target := s.players[targetID]
	if target == nil {
		s.mu.Unlock()
		return s.fail(ErrTargetNotFound)
	}
	switch s.statusLocked(target, now) {
	case game.StatusImmune:
		s.mu.Unlock()
		return s.fail(errors.New("target is currently immune"))
	case game.StatusSafeZone:
		s.mu.Unlock()
		return s.fail(errors.New("target is inside a safe zone"))
	}

	if s.alliedLocked(actorID, targetID) {
		s.mu.Unlock()
		return s.fail(errors.New("you cannot tag your alliance partner"))
	}

	if actor.ExactLocation == nil {
		s.mu.Unlock()
		return s.fail(errors.New("your location is not known yet"))
	}
	if target.ExactLocation == nil {
		s.mu.Unlock()
		return s.fail(errors.New("target location is not known"))
	}

	d := geo.DistanceMeters(
		actor.ExactLocation.Latitude, actor.ExactLocation.Longitude,
		target.ExactLocation.Latitude, target.ExactLocation.Longitude,
	)
	radius := s.settings.TagRadiusMeters
	huntID := s.huntID
	s.mu.Unlock()

	// GPS is not sub-meter accurate; compare whole meters, boundary inclusive
	if math.Round(d) > radius {
		return s.fail(fmt.Errorf("target is %.0fm away, tag radius is %.0fm", d, radius))
	}

	req, err := transport.NewTagRequest(huntID, actorID, targetID, proofMedia)
	if err != nil {
		return s.fail(err)
	}
	snap, err := s.gw.AttemptTag(ctx, req)
	if err != nil {
		return s.fail(err)
	}
	s.applySnapshot(snap)
	return nil
}

// ActivateStealth charges the stealth cost server-side; the charge must
// happen exactly once, so activation is a round-trip.
func (s *Session) ActivateStealth(ctx context.Context, playerID string) error {
	s.mu.Lock()
	now := s.nowFn()
	if s.players[playerID] == nil {
		s.mu.Unlock()
		return s.fail(ErrNotInHunt)
	}
	if ready, ok := s.stealthReadyAt[playerID]; ok && now.Before(ready) {
		remaining := ready.Sub(now).Round(time.Second)
		s.mu.Unlock()
		return s.fail(fmt.Errorf("stealth on cooldown for another %s", remaining))
	}
	huntID := s.huntID
	s.mu.Unlock()

	req, err := transport.NewStealthRequest(huntID, playerID)
	if err != nil {
		return s.fail(err)
	}
	snap, err := s.gw.ActivateStealth(ctx, req)
	if err != nil {
		return s.fail(err)
	}
	s.applySnapshot(snap)

	s.mu.Lock()
	s.stealthReadyAt[playerID] = now.Add(s.settings.StealthDuration + s.settings.StealthCooldown)
	s.mu.Unlock()
	return nil
}

// DeactivateStealth drops out of stealth immediately. Leaving stealth has
// no cost, so no server round-trip is needed.
func (s *Session) DeactivateStealth(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.players[playerID]
	if p == nil {
		return
	}
	p.StealthUntil = nil
	p.Status = s.statusLocked(p, s.nowFn())
}

func (s *Session) DeploySabotage(ctx context.Context, kind game.SabotageKind, lat, lon, radius float64) error {
	s.mu.Lock()
	if !s.settings.SabotagesAllowed {
		s.mu.Unlock()
		return s.fail(errors.New("sabotages are disabled in this hunt"))
	}
	if s.players[s.localID] == nil {
		s.mu.Unlock()
		return s.fail(ErrNotInHunt)
	}
	huntID := s.huntID
	s.mu.Unlock()

	req, err := transport.NewSabotageRequest(huntID, s.localID, kind, lat, lon, radius)
	if err != nil {
		return s.fail(err)
	}
	snap, err := s.gw.DeploySabotage(ctx, req)
	if err != nil {
		return s.fail(err)
	}
	s.applySnapshot(snap)
	return nil
}

func (s *Session) PlaceBounty(ctx context.Context, targetID string, reward int) error {
	s.mu.Lock()
	if !s.settings.BountiesAllowed {
		s.mu.Unlock()
		return s.fail(errors.New("bounties are disabled in this hunt"))
	}
	if s.players[targetID] == nil {
		s.mu.Unlock()
		return s.fail(ErrTargetNotFound)
	}
	huntID := s.huntID
	s.mu.Unlock()

	req, err := transport.NewBountyRequest(huntID, s.localID, targetID, reward)
	if err != nil {
		return s.fail(err)
	}
	snap, err := s.gw.PlaceBounty(ctx, req)
	if err != nil {
		return s.fail(err)
	}
	s.applySnapshot(snap)
	return nil
}

func (s *Session) ClaimBounty(ctx context.Context, bountyID string) error {
	s.mu.Lock()
	if s.bounties[bountyID] == nil {
		s.mu.Unlock()
		return s.fail(errors.New("bounty not found"))
	}
	huntID := s.huntID
	s.mu.Unlock()

	req, err := transport.NewBountyClaimRequest(huntID, bountyID, s.localID)
	if err != nil {
		return s.fail(err)
	}
	snap, err := s.gw.ClaimBounty(ctx, req)
	if err != nil {
		return s.fail(err)
	}
	s.applySnapshot(snap)
	return nil
}

func (s *Session) FormAlliance(ctx context.Context, name string, memberIDs []string, shared bool) error {
	s.mu.Lock()
	if !s.settings.AlliancesAllowed {
		s.mu.Unlock()
		return s.fail(errors.New("alliances are disabled in this hunt"))
	}
	if max := s.settings.MaxAllianceSize; max > 0 && len(memberIDs) > max {
		s.mu.Unlock()
		return s.fail(fmt.Errorf("alliances are capped at %d members", max))
	}
	huntID := s.huntID
	s.mu.Unlock()

	req, err := transport.NewAllianceRequest(huntID, name, s.localID, memberIDs, shared)
	if err != nil {
		return s.fail(err)
	}
	snap, err := s.gw.FormAlliance(ctx, req)
	if err != nil {
		return s.fail(err)
	}
	s.applySnapshot(snap)
	return nil
}

func (s *Session) LeaveAlliance(ctx context.Context, allianceID string) error {
	req, err := transport.NewAllianceLeaveRequest(s.currentHuntID(), allianceID, s.localID)
	if err != nil {
		return s.fail(err)
	}
	snap, err := s.gw.LeaveAlliance(ctx, req)
	if err != nil {
		return s.fail(err)
	}
	s.applySnapshot(snap)
	return nil
}

// BetrayAlliance is terminal: the record keeps the betrayer's identity and
// the partner exemption stops applying for both members.
func (s *Session) BetrayAlliance(ctx context.Context, allianceID string) error {
	req, err := transport.NewAllianceBetrayRequest(s.currentHuntID(), allianceID, s.localID)
	if err != nil {
		return s.fail(err)
	}
	snap, err := s.gw.BetrayAlliance(ctx, req)
	if err != nil {
		return s.fail(err)
	}
	s.applySnapshot(snap)
	return nil
}

// StartTracking begins consuming the location feed for the local player.
// Returns the feed's error untouched when the platform refuses to start
// sampling (e.g. permission denied).
func (s *Session) StartTracking(feed LocationFeed) error {
	s.trackMu.Lock()
	defer s.trackMu.Unlock()
	if s.stopCh != nil {
		return ErrAlreadyTracking
	}

	ch, err := feed.Start()
	if err != nil {
		return s.fail(err)
	}

	stop := make(chan struct{})
	s.feed = feed
	s.stopCh = stop
	s.trackWG.Add(1)
	go func() {
		defer s.trackWG.Done()
		for {
			select {
			case <-stop:
				return
			case smp, ok := <-ch:
				if !ok {
					return
				}
				s.UpdateLocation(s.localID, smp.Latitude, smp.Longitude, smp.Timestamp)
			}
		}
	}()
	return nil
}

// StopTracking halts the feed. Safe to call when not tracking, and once it
// returns no further sample can mutate session state.
func (s *Session) StopTracking() {
	s.trackMu.Lock()
	if s.stopCh == nil {
		s.trackMu.Unlock()
		return
	}
	close(s.stopCh)
	s.stopCh = nil
	feed := s.feed
	s.feed = nil
	s.trackMu.Unlock()

	feed.Stop()
	s.trackWG.Wait()
}

// --- reads ---

// Player returns a copy of the player's state with status evaluated at
// the current instant.
func (s *Session) Player(id string) (game.PlayerState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.players[id]
	if p == nil {
		return game.PlayerState{}, false
	}
	cp := *p
	cp.Status = s.statusLocked(p, s.nowFn())
	return cp, true
}

// Status evaluates the player's observable status at the current instant.
func (s *Session) Status(playerID string) game.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.players[playerID]
	if p == nil {
		return ""
	}
	return s.statusLocked(p, s.nowFn())
}

// ProximityAlerts returns the alerts from the most recent location sample.
func (s *Session) ProximityAlerts() []game.ProximityAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]game.ProximityAlert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// NearbySabotages lists untriggered, unexpired sabotages within 200m of
// the player's last known exact location. Purely a read-side filter.
func (s *Session) NearbySabotages(playerID string) []*game.Sabotage {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.players[playerID]
	if p == nil || p.ExactLocation == nil {
		return nil
	}
	now := s.nowFn()
	out := make([]*game.Sabotage, 0)
	for _, sab := range s.sabotages {
		if sab.Triggered || now.After(sab.ExpiresAt) {
			continue
		}
		d := geo.DistanceMeters(p.ExactLocation.Latitude, p.ExactLocation.Longitude, sab.Latitude, sab.Longitude)
		if d <= sabotageVisibilityMeters {
			cp := *sab
			out = append(out, &cp)
		}
	}
	return out
}

// ActiveBounties lists bounties that are unclaimed and unexpired right
// now. Recomputed on every read since expiry is time-relative.
func (s *Session) ActiveBounties() []*game.Bounty {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFn()
	out := make([]*game.Bounty, 0)
	for _, b := range s.bounties {
		if b.Claimed || now.After(b.ExpiresAt) {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	return out
}

// Alliance returns a copy of the alliance record, if present.
func (s *Session) Alliance(id string) (game.Alliance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.alliances[id]
	if a == nil {
		return game.Alliance{}, false
	}
	return *a, true
}

// Snapshot renders the local replica in wire form.
func (s *Session) Snapshot() *game.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &game.Snapshot{
		HuntID:           s.huntID,
		Settings:         s.settings,
		CurrentHunterID:  s.currentHunterID,
		RotationDeadline: s.rotationDeadline,
	}
	now := s.nowFn()
	for _, p := range s.players {
		cp := *p
		cp.Status = s.statusLocked(p, now)
		snap.Players = append(snap.Players, &cp)
	}
	for _, sab := range s.sabotages {
		cp := *sab
		snap.Sabotages = append(snap.Sabotages, &cp)
	}
	for _, b := range s.bounties {
		cp := *b
		snap.Bounties = append(snap.Bounties, &cp)
	}
	for _, a := range s.alliances {
		cp := *a
		snap.Alliances = append(snap.Alliances, &cp)
	}
	return snap
}

// LastError returns the most recent failure message, for direct display.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""
}

// --- internals ---

// statusLocked derives the single observable status field. The safe-zone
// verdict wins the display while stealth/immunity timers keep running
// underneath; tagged is only cleared by a server-confirmed snapshot.
func (s *Session) statusLocked(p *game.PlayerState, now time.Time) game.Status {
	if p.Status == game.StatusTagged {
		return game.StatusTagged
	}
	if s.inSafeZone[p.ID] {
		return game.StatusSafeZone
	}
	if p.StealthUntil != nil && now.Before(*p.StealthUntil) {
		return game.StatusStealth
	}
	if p.ImmuneUntil != nil && now.Before(*p.ImmuneUntil) {
		return game.StatusImmune
	}
	return game.StatusActive
}

func (s *Session) isHunterLocked(p *game.PlayerState) bool {
	return p.Role == game.RoleHunter || (s.currentHunterID != "" && p.ID == s.currentHunterID)
}

// alliedLocked reports whether two players share an unbetrayed alliance.
func (s *Session) alliedLocked(a, b string) bool {
	pa := s.players[a]
	pb := s.players[b]
	if pa == nil || pb == nil || pa.AllianceID == "" || pa.AllianceID != pb.AllianceID {
		return false
	}
	al := s.alliances[pa.AllianceID]
	return al != nil && al.BetrayedAt == nil
}

// applySnapshot replaces the local replica wholesale. No merging: the last
// server response wins.
func (s *Session) applySnapshot(snap *game.Snapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.HuntID != "" {
		s.huntID = snap.HuntID
	}
	s.settings = snap.Settings
	s.safety = game.NewSafeZoneEvaluator(snap.Settings.SafeZones)
	s.currentHunterID = snap.CurrentHunterID
	s.rotationDeadline = snap.RotationDeadline

	s.players = make(map[string]*game.PlayerState, len(snap.Players))
	for _, p := range snap.Players {
		cp := *p
		s.players[cp.ID] = &cp
	}
	s.sabotages = make(map[string]*game.Sabotage, len(snap.Sabotages))
	for _, sab := range snap.Sabotages {
		cp := *sab
		s.sabotages[cp.ID] = &cp
	}
	s.bounties = make(map[string]*game.Bounty, len(snap.Bounties))
	for _, b := range snap.Bounties {
		cp := *b
		s.bounties[cp.ID] = &cp
	}
	s.alliances = make(map[string]*game.Alliance, len(snap.Alliances))
	for _, a := range snap.Alliances {
		cp := *a
		s.alliances[cp.ID] = &cp
	}
}

// fail records the failure message for display and passes the error on.
func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
	return err
}
