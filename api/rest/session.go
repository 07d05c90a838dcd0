package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/mazechase/game/ai"
	"github.com/kasuganosora/mazechase/game/difficulty"
	"github.com/kasuganosora/mazechase/game/world"
)

// Maze dimensions accepted from clients, in cells.
const (
	minMapSide = 5
	maxMapSide = 201
)

// SessionHandler exposes simulation sessions over REST.
type SessionHandler struct {
	wm          *world.Manager
	defaultMode difficulty.Mode
	logger      *zap.Logger
}

// NewSessionHandler creates a SessionHandler. Sessions created without a
// mode start in defaultMode.
func NewSessionHandler(wm *world.Manager, defaultMode difficulty.Mode, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{wm: wm, defaultMode: defaultMode.Normalize(), logger: logger}
}

// Register mounts the session routes on g (normally /api/sessions).
func (h *SessionHandler) Register(g gin.IRoutes) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.GET("/:id/map", h.Map)
	g.POST("/:id/player", h.SetPlayer)
	g.POST("/:id/pause", h.Pause)
	g.POST("/:id/resume", h.Resume)
	g.POST("/:id/reposition", h.Reposition)
	g.POST("/:id/difficulty", h.Difficulty)
	g.POST("/:id/effects", h.Effect)
	g.DELETE("/:id", h.Delete)
}

type createRequest struct {
	Mode   difficulty.Mode `json:"mode"`
	Width  int             `json:"width"`
	Height int             `json:"height"`
}

// Create starts a session.
// POST /api/sessions {mode, width?, height?}
func (h *SessionHandler) Create(c *gin.Context) {
	var req createRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if (req.Width != 0 || req.Height != 0) && !validSide(req.Width, req.Height) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "width and height must be between 5 and 201"})
		return
	}
	mode := req.Mode
	if mode == 0 {
		mode = h.defaultMode
	}

	s, err := h.wm.Create(mode.Normalize(), req.Width, req.Height)
	if err != nil {
		if errors.Is(err, world.ErrTooManySessions) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("create session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create session failed"})
		return
	}
	snap := s.Snapshot()
	c.JSON(http.StatusCreated, gin.H{
		"id":      s.ID,
		"width":   snap.Width,
		"height":  snap.Height,
		"tile":    snap.Tile,
		"profile": snap.Profile,
	})
}

func validSide(w, h int) bool {
	return w >= minMapSide && w <= maxMapSide && h >= minMapSide && h <= maxMapSide
}

// List returns the live session ids.
// GET /api/sessions
func (h *SessionHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.wm.IDs()})
}

// Get returns the latest snapshot.
// GET /api/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// Map returns the maze rows, '#' for wall and '.' for floor.
// GET /api/sessions/:id/map
func (h *SessionHandler) Map(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	snap := s.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"width":  snap.Grid.W,
		"height": snap.Grid.H,
		"tile":   snap.Tile,
		"rows":   snap.Grid.Rows(),
	})
}

type playerRequest struct {
	X *float64 `json:"x" binding:"required"`
	Y *float64 `json:"y" binding:"required"`
}

// SetPlayer reports the player position in world units.
// POST /api/sessions/:id/player {x, y}
func (h *SessionHandler) SetPlayer(c *gin.Context) {
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.submit(c, world.SetPlayer{X: *req.X, Y: *req.Y})
}

// POST /api/sessions/:id/pause
func (h *SessionHandler) Pause(c *gin.Context) { h.submit(c, world.Pause{}) }

// POST /api/sessions/:id/resume
func (h *SessionHandler) Resume(c *gin.Context) { h.submit(c, world.Resume{}) }

// POST /api/sessions/:id/reposition
func (h *SessionHandler) Reposition(c *gin.Context) { h.submit(c, world.RepositionAll{}) }

type difficultyRequest struct {
	Mode       difficulty.Mode `json:"mode" binding:"required"`
	Regenerate bool            `json:"regenerate"`
}

// Difficulty switches profile, optionally carving a new maze.
// POST /api/sessions/:id/difficulty {mode, regenerate}
func (h *SessionHandler) Difficulty(c *gin.Context) {
	var req difficultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.submit(c, world.ResetProfile{Mode: req.Mode.Normalize(), Regenerate: req.Regenerate})
}

type effectRequest struct {
	// Chaser is the chaser index; omitted targets every chaser.
	Chaser *int   `json:"chaser"`
	Effect string `json:"effect" binding:"required"`
}

// Effect applies an item effect to a chaser.
// POST /api/sessions/:id/effects {chaser?, effect}
func (h *SessionHandler) Effect(c *gin.Context) {
	var req effectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	effect := ai.Effect(req.Effect)
	if !effect.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown effect"})
		return
	}
	idx := -1
	if req.Chaser != nil {
		idx = *req.Chaser
	}
	h.submit(c, world.ApplyEffect{Chaser: idx, Effect: effect})
}

// Delete stops a session.
// DELETE /api/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.wm.Destroy(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *SessionHandler) session(c *gin.Context) (*world.Session, bool) {
	s, err := h.wm.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return s, true
}

// submit queues cmd for the session's next tick.
func (h *SessionHandler) submit(c *gin.Context, cmd world.Command) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	switch err := s.Submit(cmd); {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
	case errors.Is(err, world.ErrQueueFull):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, world.ErrSessionStopped):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
