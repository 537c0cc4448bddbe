package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dirsoacha/resilience-api/internal/export"
)

func (h *Handler) exportReports(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	limit := export.ParseLimit(c.Query("limit"))

	table, err := export.ReadFile(h.deps.SurveyCSV, limit)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, os.ErrNotExist) {
			status = http.StatusNotFound
		}
		slog.Error("error reading survey export", "path", h.deps.SurveyCSV, "error", err)
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	if format == "json" {
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"data":      table.Records(),
			"count":     len(table.Rows),
			"timestamp": h.now().UnixMilli(),
		})
		return
	}

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", `attachment; filename="reports-export.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
