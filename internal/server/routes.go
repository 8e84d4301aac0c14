package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/citychase/tagmode/internal/transport"
)

// API mounts the sync wire surface on a gin router.
type API struct {
	hub       *Hub
	log       zerolog.Logger
	authToken string
	publicURL string
}

func NewAPI(hub *Hub, logger zerolog.Logger, authToken, publicURL string) *API {
	return &API{hub: hub, log: logger, authToken: authToken, publicURL: strings.TrimRight(publicURL, "/")}
}

func (a *API) Mount(r *gin.Engine) {
	api := r.Group("/api", a.requireBearer)
	api.POST("/hunts", a.createHunt)
	api.GET("/hunts/:id", a.getHunt)
	api.GET("/hunts/:id/qr", a.huntQR)
	api.POST("/hunts/:id/join", a.joinHunt)
	api.POST("/hunts/:id/leave", a.leaveHunt)
	api.POST("/hunts/:id/location", a.pushLocation)
	api.POST("/hunts/:id/tag", a.attemptTag)
	api.POST("/hunts/:id/stealth", a.activateStealth)
	api.POST("/hunts/:id/sabotage", a.deploySabotage)
	api.POST("/hunts/:id/bounties", a.placeBounty)
	api.POST("/hunts/:id/bounties/claim", a.claimBounty)
	api.POST("/hunts/:id/alliances", a.formAlliance)
	api.POST("/hunts/:id/alliances/leave", a.leaveAlliance)
	api.POST("/hunts/:id/alliances/betray", a.betrayAlliance)
}

// requireBearer enforces the bearer credential. When no token is
// configured any non-empty credential is accepted, which keeps local
// development friction-free.
func (a *API) requireBearer(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	if a.authToken != "" && token != a.authToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credential"})
		return
	}
	c.Next()
}

func (a *API) createHunt(c *gin.Context) {
	var req transport.CreateSessionRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	snap, err := a.hub.CreateHunt(req)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.log.Info().Str("hunt", req.HuntID).Msg("hunt created")
	c.JSON(http.StatusOK, snap)
}

func (a *API) getHunt(c *gin.Context) {
	hunt, err := a.hub.Get(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, hunt.Snapshot(a.hub.now()))
}

// huntQR renders the hunt's join URL as a QR code so players can scan in.
func (a *API) huntQR(c *gin.Context) {
	huntID := c.Param("id")
	if _, err := a.hub.Get(huntID); err != nil {
		a.fail(c, err)
		return
	}
	joinURL := a.publicURL + "/join/" + huntID
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not render QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (a *API) joinHunt(c *gin.Context) {
	hunt, err := a.hub.Get(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	var req transport.JoinRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.HuntID = hunt.ID
	snap := hunt.Join(req, a.hub.now())
	a.log.Info().Str("hunt", hunt.ID).Str("player", req.PlayerID).Msg("player joined")
	c.JSON(http.StatusOK, snap)
}

func (a *API) leaveHunt(c *gin.Context) {
	hunt, err := a.hub.Get(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := hunt.Leave(req.PlayerID, a.hub.now()); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) pushLocation(c *gin.Context) {
	hunt, err := a.hub.Get(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	var req transport.LocationPush
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.HuntID = hunt.ID
	if err := hunt.RecordLocation(req); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) attemptTag(c *gin.Context) {
	hunt, err := a.hub.Get(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	var req transport.TagRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.HuntID = hunt.ID
	snap, err := hunt.ConfirmTag(req, a.hub.now())
	if err != nil {
		a.fail(c, err)
		return
	}
	a.log.Info().Str("hunt", hunt.ID).Str("actor", req.ActorID).Str("target", req.TargetID).Msg("tag confirmed")
	c.JSON(http.StatusOK, snap)
}

func (a *API) activateStealth(c *gin.Context) {
	hunt, err := a.hub.Get(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	var req transport.StealthRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.HuntID = hunt.ID
	snap, err := hunt.ChargeStealth(req, a.hub.now())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (a *API) deploySabotage(c *gin.Context) {
	hunt, err := a.hub.Get(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	var req transport.SabotageRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.HuntID = hunt.ID
	snap, err := hunt.DeploySabotage(req, a.hub.now())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (a *API) placeBounty(c *gin.Context) {
	hunt, err := a.hub.Get(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	var req transport.BountyRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.HuntID = hunt.ID
	snap, err := hunt.PlaceBounty(req, a.hub.now())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (a *API) claimBounty(c *gin.Context) {
	hunt, err := a.hub.Get(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	var req transport.BountyClaimRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.HuntID = hunt.ID
	snap, err := hunt.ClaimBounty(req, a.hub.now())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (a *API) formAlliance(c *gin.Context) {
	hunt, err := a.hub.Get(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	var req transport.AllianceRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.HuntID = hunt.ID
	snap, err := hunt.FormAlliance(req, a.hub.now())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (a *API) leaveAlliance(c *gin.Context) {
	hunt, err := a.hub.Get(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	var req transport.AllianceLeaveRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.HuntID = hunt.ID
	snap, err := hunt.LeaveAlliance(req, a.hub.now())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (a *API) betrayAlliance(c *gin.Context) {
	hunt, err := a.hub.Get(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	var req transport.AllianceBetrayRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.HuntID = hunt.ID
	snap, err := hunt.BetrayAlliance(req, a.hub.now())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// fail maps hub errors to HTTP statuses; the message travels verbatim so
// clients can show it directly.
func (a *API) fail(c *gin.Context, err error) {
	status := http.StatusConflict
	switch {
	case errors.Is(err, ErrHuntNotFound), errors.Is(err, ErrPlayerNotFound),
		errors.Is(err, ErrBountyNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrHuntExists):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
