package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dirsoacha/resilience-api/internal/assistant"
	"github.com/dirsoacha/resilience-api/internal/models"
	"github.com/dirsoacha/resilience-api/internal/ollama"
)

const defaultSearchResults = 5

type queryRequest struct {
	Query   string           `json:"query"`
	Context string           `json:"context"`
	History []ollama.Message `json:"history"`
}

// requireAssistant answers 503 when no assistant is wired.
func (h *Handler) requireAssistant(c *gin.Context) bool {
	if h.deps.Assistant == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "AI assistant is not enabled"})
		return false
	}
	return true
}

// aiFailure writes the error response for an AI route. Input errors get the
// route's own 400 message, everything else a 500 with the friendly text.
func aiFailure(c *gin.Context, err error, invalidMsg, failMsg string) {
	if errors.Is(err, assistant.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": invalidMsg})
		return
	}
	slog.Error("ai request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   failMsg,
		"details": assistant.FriendlyError(err, err.Error()),
	})
}

// conversationFailure maps voice and chat errors to the messages the
// assistant widgets display.
func conversationFailure(c *gin.Context, err error, max int, fallback string) {
	switch {
	case errors.Is(err, assistant.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "La consulta no puede estar vacía"})
		return
	case errors.Is(err, assistant.ErrQueryTooLong):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   fmt.Sprintf("La consulta es demasiado larga. Máximo %d caracteres.", max),
		})
		return
	}

	slog.Error("assistant conversation failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": assistant.FriendlyError(err, fallback)})
}

func (h *Handler) voice(c *gin.Context) {
	if !h.requireAssistant(c) {
		return
	}
	var req queryRequest
	if !bindJSON(c, &req) {
		return
	}

	answer, err := h.deps.Assistant.VoiceQuery(c.Request.Context(), req.Query, req.Context)
	if err != nil {
		conversationFailure(c, err, assistant.MaxVoiceQuery, "Error procesando tu consulta")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"response":  answer,
		"query":     req.Query,
		"timestamp": h.timestamp(),
	})
}

func (h *Handler) chatBot(c *gin.Context) {
	if !h.requireAssistant(c) {
		return
	}
	var req queryRequest
	if !bindJSON(c, &req) {
		return
	}

	answer, err := h.deps.Assistant.ChatBot(c.Request.Context(), req.Query, req.Context, req.History)
	if err != nil {
		conversationFailure(c, err, assistant.MaxChatQuery, "Error procesando tu mensaje")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"response":  answer,
		"query":     req.Query,
		"timestamp": h.timestamp(),
	})
}

func (h *Handler) voiceUsage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"endpoint":    "/api/ollama/voice",
		"method":      "POST",
		"description": "Procesa consultas de voz y retorna respuestas conversacionales",
		"parameters": gin.H{
			"query":   fmt.Sprintf("string (requerido) - Consulta transcrita del usuario, máximo %d caracteres", assistant.MaxVoiceQuery),
			"context": "string (opcional) - Contexto de la conversación (default: " + assistant.ContextResilience + ")",
		},
		"example": gin.H{
			"query":   "¿Cuál es el riesgo de inundación en El Danubio?",
			"context": assistant.ContextResilience,
		},
	})
}

func (h *Handler) chatBotUsage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"endpoint":    "/api/ollama/chat-bot",
		"method":      "POST",
		"description": "Procesa mensajes conversacionales con contexto e historial",
		"parameters": gin.H{
			"query":   fmt.Sprintf("string (requerido) - Mensaje del usuario, máximo %d caracteres", assistant.MaxChatQuery),
			"context": "string (opcional) - Contexto de la conversación (default: " + assistant.ContextResilience + ")",
			"history": fmt.Sprintf("array (opcional) - Mensajes previos {role, content}; se usan los últimos %d", assistant.MaxChatHistory),
		},
		"example": gin.H{
			"query":   "¿Qué hago si el agua empieza a subir?",
			"context": assistant.ContextResilience,
			"history": []gin.H{{"role": "user", "content": "Hola"}, {"role": "assistant", "content": "¡Hola! ¿En qué te ayudo?"}},
		},
	})
}

func (h *Handler) analyze(c *gin.Context) {
	if !h.requireAssistant(c) {
		return
	}
	var data assistant.VulnerabilityData
	if !bindJSON(c, &data) {
		return
	}

	analysis, err := h.deps.Assistant.AnalyzeVulnerability(c.Request.Context(), data)
	if err != nil {
		aiFailure(c, err, "Datos de vulnerabilidad incompletos", "Error al procesar el análisis")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "analysis": analysis, "timestamp": h.timestamp()})
}

func (h *Handler) floodRisk(c *gin.Context) {
	if !h.requireAssistant(c) {
		return
	}
	var loc assistant.FloodLocation
	if !bindJSON(c, &loc) {
		return
	}

	assessment, err := h.deps.Assistant.AssessFloodRisk(c.Request.Context(), loc)
	if err != nil {
		aiFailure(c, err, "Datos de ubicación incompletos", "Error al evaluar el riesgo de inundación")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"assessment": assessment,
		"location":   loc.Name,
		"timestamp":  h.timestamp(),
	})
}

func (h *Handler) emergency(c *gin.Context) {
	if !h.requireAssistant(c) {
		return
	}
	var in assistant.Incident
	if !bindJSON(c, &in) {
		return
	}

	recs, err := h.deps.Assistant.EmergencyResponse(c.Request.Context(), in)
	if err != nil {
		aiFailure(c, err, "Datos del incidente incompletos", "Error al generar recomendaciones")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"recommendations": recs,
		"incident": gin.H{
			"type":     in.Type,
			"location": in.Location,
			"severity": in.Severity,
		},
		"timestamp": h.timestamp(),
	})
}

func (h *Handler) predict(c *gin.Context) {
	if !h.requireAssistant(c) {
		return
	}
	var data assistant.HistoricalData
	if !bindJSON(c, &data) {
		return
	}

	prediction, err := h.deps.Assistant.PredictRiskPatterns(c.Request.Context(), data)
	if err != nil {
		aiFailure(c, err, "Datos históricos inválidos", "Error al generar la predicción")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "prediction": prediction, "timestamp": h.timestamp()})
}

func (h *Handler) structured(c *gin.Context) {
	if !h.requireAssistant(c) {
		return
	}
	var in assistant.StructuredInput
	if !bindJSON(c, &in) {
		return
	}

	result, err := h.deps.Assistant.StructuredRiskAssessment(c.Request.Context(), in)
	if errors.Is(err, assistant.ErrInvalidOutput) {
		slog.Warn("structured assessment rejected", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err != nil {
		aiFailure(c, err, "Datos inválidos", "Error al generar la evaluación estructurada")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result, "timestamp": h.timestamp()})
}

func (h *Handler) webSearch(c *gin.Context) {
	if !h.requireAssistant(c) {
		return
	}
	var req struct {
		Query      string `json:"query"`
		MaxResults int    `json:"maxResults"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.MaxResults == 0 {
		req.MaxResults = defaultSearchResults
	}

	results, err := h.deps.Assistant.WebSearch(c.Request.Context(), req.Query, req.MaxResults)
	if err != nil {
		aiFailure(c, err, "Query is required", "Web search failed")
		return
	}
	if results == nil {
		results = []ollama.SearchResult{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "results": results, "count": len(results), "timestamp": h.timestamp()})
}

func (h *Handler) webFetch(c *gin.Context) {
	if !h.requireAssistant(c) {
		return
	}
	var req struct {
		URL string `json:"url"`
	}
	if !bindJSON(c, &req) {
		return
	}

	page, err := h.deps.Assistant.WebFetch(c.Request.Context(), req.URL)
	if err != nil {
		aiFailure(c, err, "URL is required", "Web fetch failed")
		return
	}
	links := page.Links
	if links == nil {
		links = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"title":   page.Title,
		"content": page.Content,
		"links":   links,
	})
}

func (h *Handler) research(c *gin.Context) {
	if !h.requireAssistant(c) {
		return
	}
	var q assistant.ResearchQuery
	if !bindJSON(c, &q) {
		return
	}

	res, err := h.deps.Assistant.ClimateResearch(c.Request.Context(), q)
	if errors.Is(err, assistant.ErrNoSearchResult) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "No se encontraron resultados de búsqueda"})
		return
	}
	if err != nil {
		aiFailure(c, err, "Location and topic are required", "Research failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"synthesis": res.Synthesis,
		"sources":   res.Sources,
		"timestamp": h.timestamp(),
	})
}

func (h *Handler) zoneAnalysis(c *gin.Context) {
	if !h.requireAssistant(c) {
		return
	}
	var req assistant.ZoneRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Community == nil && h.deps.Zones != nil {
		if z, err := h.deps.Zones.Get(req.Zone.Name); err == nil {
			req.Community = communityFromZone(z)
			if req.Zone.Level == "" {
				req.Zone.Level = z.RiskLevel
			}
		}
	}

	analysis, err := h.deps.Assistant.ZoneAnalysis(c.Request.Context(), req)
	if err != nil {
		aiFailure(c, err, "Zone data is required", "Error al analizar la zona")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"analysis":  analysis,
		"zone":      req.Zone.Name,
		"timestamp": h.timestamp(),
	})
}

// communityReport streams the generated report as server-sent events:
// "chunk" events with the text, then "done" or "error".
func (h *Handler) communityReport(c *gin.Context) {
	if !h.requireAssistant(c) {
		return
	}
	var data assistant.ReportData
	if !bindJSON(c, &data) {
		return
	}

	ctx := c.Request.Context()
	started := false
	err := h.deps.Assistant.CommunityReport(ctx, data, func(chunk string) error {
		if !started {
			c.Header("Cache-Control", "no-store")
			started = true
		}
		c.SSEvent("chunk", gin.H{"content": chunk})
		c.Writer.Flush()
		return ctx.Err()
	})
	if err != nil && !started {
		aiFailure(c, err, "La comunidad es requerida", "Error al generar el reporte")
		return
	}
	if err != nil {
		slog.Error("community report stream failed", "error", err)
		c.SSEvent("error", gin.H{"error": assistant.FriendlyError(err, "Error al generar el reporte")})
		c.Writer.Flush()
		return
	}
	c.SSEvent("done", gin.H{"timestamp": h.timestamp()})
	c.Writer.Flush()
}

func (h *Handler) aiStatus(c *gin.Context) {
	if !h.requireAssistant(c) {
		return
	}
	st := h.deps.Assistant.Status(c.Request.Context())
	if st.Configured && !st.Success {
		c.JSON(http.StatusInternalServerError, st)
		return
	}
	c.JSON(http.StatusOK, st)
}

func communityFromZone(z models.Zone) *assistant.CommunityInfo {
	v := map[string]float64{}
	if z.Vulnerabilities.NoEvacuationKnowledge > 0 {
		v["no_evacuation_knowledge"] = z.Vulnerabilities.NoEvacuationKnowledge
	}
	if z.Vulnerabilities.NoEmergencySavings > 0 {
		v["no_emergency_savings"] = z.Vulnerabilities.NoEmergencySavings
	}
	if z.Vulnerabilities.FoodInsecurity > 0 {
		v["food_insecurity"] = z.Vulnerabilities.FoodInsecurity
	}
	return &assistant.CommunityInfo{
		Name:            strings.TrimSpace(z.Name),
		Population:      z.Population,
		Vulnerabilities: v,
	}
}
