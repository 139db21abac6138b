package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"giveaway/internal/metrics"
	"giveaway/internal/models"
	"giveaway/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

// HTTPHandler holds the dependencies for the HTTP handlers, like the lottery service.
type HTTPHandler struct {
	service    *services.LotteryService
	adminToken string
	limiter    *RateLimiter
}

// NewHTTPHandler creates a new HTTPHandler. An empty adminToken leaves the command routes open.
func NewHTTPHandler(service *services.LotteryService, adminToken string, limiter *RateLimiter) *HTTPHandler {
	return &HTTPHandler{
		service:    service,
		adminToken: adminToken,
		limiter:    limiter,
	}
}

// startRequest is the body of the start command. Duration is in minutes.
type startRequest struct {
	Duration         int    `json:"duration" binding:"required,min=1"`
	Channel          string `json:"channel" binding:"required"`
	Winners          int    `json:"winners" binding:"required,min=1"`
	Prize            string `json:"prize" binding:"required"`
	MultiplierRole   string `json:"multiplierRole"`
	MultiplierWeight int    `json:"multiplierWeight" binding:"omitempty,min=1,max=1000"`
}

// messageRequest is a chat message forwarded by the platform gateway.
type messageRequest struct {
	ChannelID string   `json:"channelId" binding:"required"`
	AuthorID  string   `json:"authorId" binding:"required"`
	Bot       bool     `json:"bot"`
	Roles     []string `json:"roles"`
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.Use(metrics.Middleware())
	h.RegisterPublicRoutes(router)

	commands := router.Group("/commands")
	commands.Use(h.AuthMiddleware())
	if h.limiter != nil {
		commands.Use(h.limiter.Middleware())
	}
	h.RegisterCommandRoutes(commands)

	events := router.Group("/events")
	events.Use(h.AuthMiddleware())
	events.POST("/message", h.HandleMessage)
}

// RegisterPublicRoutes registers routes that need no credentials.
func (h *HTTPHandler) RegisterPublicRoutes(router *gin.Engine) {
	router.GET("/", h.KeepAlive)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// RegisterCommandRoutes registers the operator commands.
func (h *HTTPHandler) RegisterCommandRoutes(group *gin.RouterGroup) {
	group.POST("/start", h.StartLottery)
	group.POST("/end", h.EndLottery)
	group.POST("/reroll", h.Reroll)
	group.GET("/info", h.Info)
}

// AuthMiddleware requires "Authorization: Bearer <token>" when an admin token is configured.
func (h *HTTPHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.adminToken == "" {
			c.Next()
			return
		}
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
			logger.Warningf("Rejected %s %s from %s: bad or missing token", c.Request.Method, c.Request.URL.Path, c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// KeepAlive answers uptime probes.
func (h *HTTPHandler) KeepAlive(c *gin.Context) {
	c.String(http.StatusOK, "Bot is alive!")
}

// StartLottery handles the start command.
func (h *HTTPHandler) StartLottery(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.service.Start(c.Request.Context(), models.StartOptions{
		ScopeID:          req.Channel,
		Duration:         time.Duration(req.Duration) * time.Minute,
		WinnersCount:     req.Winners,
		Prize:            req.Prize,
		MultiplierRoleID: req.MultiplierRole,
		MultiplierWeight: req.MultiplierWeight,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// EndLottery resolves the running lottery now.
func (h *HTTPHandler) EndLottery(c *gin.Context) {
	res, err := h.service.EndEarly(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Reroll draws a single extra winner from the running lottery.
func (h *HTTPHandler) Reroll(c *gin.Context) {
	res, err := h.service.Reroll()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Info reports on the running lottery.
func (h *HTTPHandler) Info(c *gin.Context) {
	res, err := h.service.Info()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scopeId":          res.ScopeID,
		"prize":            res.Prize,
		"winnersCount":     res.WinnersCount,
		"participants":     res.Participants,
		"entries":          res.Entries,
		"endTime":          res.EndTime,
		"remainingSeconds": int64(res.Remaining / time.Second),
	})
}

// HandleMessage enters the message author into the running lottery.
func (h *HTTPHandler) HandleMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entered := h.service.HandleMessage(models.MessageEvent{
		ScopeID:       req.ChannelID,
		ParticipantID: req.AuthorID,
		Bot:           req.Bot,
		RoleIDs:       req.Roles,
	})
	c.JSON(http.StatusOK, gin.H{"entered": entered})
}

func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrAlreadyRunning):
		status = http.StatusConflict
	case errors.Is(err, services.ErrNothingRunning):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrNoParticipants):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvalidArgument):
		status = http.StatusBadRequest
	default:
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
