package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dirsoacha/resilience-api/internal/alerting"
	"github.com/dirsoacha/resilience-api/internal/models"
	"github.com/dirsoacha/resilience-api/internal/stream"
)

const sessionHeader = "X-Session-ID"

type addReportRequest struct {
	Severity  string `json:"severity"`
	SessionID string `json:"sessionId"`
}

// sessionID reads the session from the header, then the query string.
func sessionID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(sessionHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(c.Query("sessionId"))
}

func (h *Handler) addReport(c *gin.Context) {
	var req addReportRequest
	if !bindJSON(c, &req) {
		return
	}

	sev, err := models.ParseSeverity(req.Severity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "severity must be one of high, medium, low"})
		return
	}

	id := sessionID(c)
	if id == "" {
		id = strings.TrimSpace(req.SessionID)
	}
	if id == "" {
		id = alerting.NewSessionID()
	}

	res, err := h.deps.Tracker.AddReport(c.Request.Context(), id, sev)
	if errors.Is(err, alerting.ErrTooManySessions) {
		slog.Warn("report session limit reached", "session", id)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many active report sessions, try again later"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.broadcast(stream.NewEvent(stream.EventReportAdded, id, res.Report))

	c.Header(sessionHeader, id)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) listReports(c *gin.Context) {
	id := sessionID(c)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id is required"})
		return
	}
	c.JSON(http.StatusOK, h.deps.Tracker.Snapshot(id))
}

func (h *Handler) resolveReport(c *gin.Context) {
	id := sessionID(c)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id is required"})
		return
	}

	report, err := h.deps.Tracker.Resolve(id, c.Param("id"))
	if errors.Is(err, alerting.ErrReportNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.broadcast(stream.NewEvent(stream.EventReportResolved, id, report))

	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

func (h *Handler) resetReports(c *gin.Context) {
	id := sessionID(c)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id is required"})
		return
	}

	h.deps.Tracker.Reset(id)
	h.broadcast(stream.NewEvent(stream.EventSessionReset, id, nil))
	slog.Info("report session reset", "session", id)

	c.JSON(http.StatusOK, gin.H{"success": true, "sessionId": id})
}

func (h *Handler) broadcast(e stream.Event) {
	if h.deps.Live != nil {
		h.deps.Live.Broadcast(e)
	}
}
