package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DefaultOllamaLocal = "http://localhost:11434"
	maxChatBody        = 1 << 20
)

// chatProxy forwards the body to the local Ollama /api/chat and streams the
// answer back as it arrives.
func (h *Handler) chatProxy(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxChatBody))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
		return
	}
	if err != nil || !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	base := h.deps.OllamaLocal
	if base == "" {
		base = DefaultOllamaLocal
	}
	url := strings.TrimRight(base, "/") + "/api/chat"

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.proxy.Do(req)
	if err != nil {
		slog.Warn("local ollama unreachable", "url", url, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to connect to local Ollama", "message": err.Error()})
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode >= 300 && strings.Contains(contentType, "application/json") {
		var details any = gin.H{}
		if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
			details = gin.H{}
		}
		c.JSON(resp.StatusCode, gin.H{"error": "Upstream error", "details": details})
		return
	}

	if contentType != "" {
		c.Header("Content-Type", contentType)
	}
	c.Header("Cache-Control", "no-store")
	c.Status(resp.StatusCode)

	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := c.Writer.Write(buf[:n]); werr != nil {
				return
			}
			c.Writer.Flush()
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			slog.Warn("local ollama stream interrupted", "error", err)
			return
		}
	}
}
