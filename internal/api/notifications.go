package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dirsoacha/resilience-api/internal/models"
	"github.com/dirsoacha/resilience-api/internal/push"
	"github.com/dirsoacha/resilience-api/internal/repository"
)

func (h *Handler) subscribe(c *gin.Context) {
	var sub models.PushSubscription
	if !bindJSON(c, &sub) {
		return
	}
	if sub.Endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Suscripción inválida"})
		return
	}

	created, err := h.deps.Subscriptions.Subscribe(c.Request.Context(), sub)
	if err != nil {
		slog.Error("error saving subscription", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	message := "Suscripción registrada exitosamente"
	if !created {
		message = "Suscripción actualizada"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   message,
		"timestamp": h.timestamp(),
	})
}

func (h *Handler) vapidKey(c *gin.Context) {
	if !h.deps.Subscriptions.Configured() {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "VAPID keys no configuradas correctamente.\n\n" +
				"Pasos para solucionar:\n" +
				"1. Ejecuta: vapid-keys --write\n" +
				"2. Verifica que .env tenga las keys\n" +
				"3. Reinicia el servidor",
			"publicKey":  nil,
			"configured": false,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"publicKey":  h.deps.Subscriptions.PublicKey(),
		"configured": true,
	})
}

func (h *Handler) unsubscribe(c *gin.Context) {
	var body struct {
		Endpoint string `json:"endpoint"`
	}
	if !bindJSON(c, &body) {
		return
	}

	err := h.deps.Subscriptions.Unsubscribe(c.Request.Context(), body.Endpoint)
	switch {
	case errors.Is(err, push.ErrInvalidSubscription):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Suscripción inválida"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Suscripción no encontrada"})
	case err != nil:
		slog.Error("error deleting subscription", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "timestamp": h.timestamp()})
	}
}

func (h *Handler) sendNotification(c *gin.Context) {
	var msg models.PushMessage
	if !bindJSON(c, &msg) {
		return
	}
	if msg.Title == "" || msg.Body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Título y mensaje son requeridos"})
		return
	}

	ctx := c.Request.Context()
	count, err := h.deps.Subscriptions.Count(ctx)
	if err != nil {
		slog.Error("error counting subscriptions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if count == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "No hay suscriptores registrados",
			"sent":    0,
		})
		return
	}

	summary, err := h.deps.Sender.SendNow(ctx, msg)
	switch {
	case errors.Is(err, push.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "VAPID keys no configuradas"})
		return
	case err != nil:
		slog.Error("error sending notifications", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sent":      summary.Sent,
		"failed":    summary.Failed,
		"total":     summary.Total,
		"timestamp": h.timestamp(),
	})
}

func (h *Handler) sendStatus(c *gin.Context) {
	count, err := h.deps.Subscriptions.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	message := fmt.Sprintf("%d suscriptor(es) registrado(s)", count)
	if count == 0 {
		message = "No hay suscriptores. Activa las notificaciones desde /alerts"
	}
	c.JSON(http.StatusOK, gin.H{
		"subscribersCount": count,
		"configured":       h.deps.Subscriptions.Configured(),
		"message":          message,
	})
}

func (h *Handler) notificationHistory(c *gin.Context) {
	limit := repository.DefaultHistoryLimit
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 {
			limit = lim
		}
	}

	records, err := h.deps.History.ListNotifications(c.Request.Context(), limit)
	if err != nil {
		slog.Error("error listing notifications", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch notifications"})
		return
	}
	if records == nil {
		records = []models.NotificationRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": records, "count": len(records)})
}
