package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dirsoacha/resilience-api/internal/alerting"
	"github.com/dirsoacha/resilience-api/internal/assistant"
	"github.com/dirsoacha/resilience-api/internal/geodata"
	"github.com/dirsoacha/resilience-api/internal/models"
	"github.com/dirsoacha/resilience-api/internal/stream"
)

// Subscriptions is the push subscription side of the relay.
type Subscriptions interface {
	Configured() bool
	PublicKey() string
	Subscribe(ctx context.Context, sub models.PushSubscription) (bool, error)
	Unsubscribe(ctx context.Context, endpoint string) error
	Count(ctx context.Context) (int, error)
}

type Sender interface {
	SendNow(ctx context.Context, msg models.PushMessage) (models.SendSummary, error)
}

type History interface {
	ListNotifications(ctx context.Context, limit int) ([]models.NotificationRecord, error)
}

// Deps are the services behind the routes. Zones and Assistant may be nil,
// in which case their routes answer 503.
type Deps struct {
	Tracker       *alerting.Tracker
	Subscriptions Subscriptions
	Sender        Sender
	History       History
	Live          *stream.Broadcaster
	Zones         *geodata.Zones
	Assistant     *assistant.Assistant
	OllamaLocal   string
	SurveyCSV     string
	AIRateLimit   int
}

type Handler struct {
	deps      Deps
	proxy     *http.Client
	now       func() time.Time
	pingEvery time.Duration
}

func NewHandler(deps Deps) *Handler {
	return &Handler{
		deps:      deps,
		proxy:     &http.Client{},
		now:       time.Now,
		pingEvery: 30 * time.Second,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api")

	n := api.Group("/notifications")
	n.POST("/subscribe", h.subscribe)
	n.GET("/subscribe", h.vapidKey)
	n.DELETE("/subscribe", h.unsubscribe)
	n.POST("/send", h.sendNotification)
	n.GET("/send", h.sendStatus)
	n.GET("/history", h.notificationHistory)

	rep := api.Group("/reports")
	rep.POST("", h.addReport)
	rep.GET("", h.listReports)
	rep.DELETE("", h.resetReports)
	rep.POST("/:id/resolve", h.resolveReport)
	rep.GET("/live", h.live)
	rep.GET("/export", h.exportReports)

	z := api.Group("/zones")
	z.GET("", h.zones)
	z.GET("/locate", h.locateZone)
	z.GET("/:name", h.zone)

	ai := api.Group("/ollama")
	if h.deps.AIRateLimit > 0 {
		ai.Use(ClientRateLimitMiddleware(h.deps.AIRateLimit))
	}
	ai.POST("/voice", h.voice)
	ai.GET("/voice", h.voiceUsage)
	ai.POST("/chat-bot", h.chatBot)
	ai.GET("/chat-bot", h.chatBotUsage)
	ai.POST("/analyze", h.analyze)
	ai.POST("/flood-risk", h.floodRisk)
	ai.POST("/emergency", h.emergency)
	ai.POST("/predict", h.predict)
	ai.POST("/structured", h.structured)
	ai.POST("/web-search", h.webSearch)
	ai.POST("/web-fetch", h.webFetch)
	ai.POST("/research", h.research)
	ai.POST("/zone-analysis", h.zoneAnalysis)
	ai.POST("/report", h.communityReport)
	ai.GET("/status", h.aiStatus)

	api.POST("/chat", h.chatProxy)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}

// bindJSON decodes the body into v and answers 400 on malformed JSON.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body", "details": err.Error()})
		return false
	}
	return true
}
