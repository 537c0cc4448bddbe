package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dirsoacha/resilience-api/internal/geodata"
)

func (h *Handler) zones(c *gin.Context) {
	if h.deps.Zones == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "zone data not loaded"})
		return
	}
	c.Data(http.StatusOK, "application/geo+json", h.deps.Zones.FeatureCollection())
}

func (h *Handler) zone(c *gin.Context) {
	if h.deps.Zones == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "zone data not loaded"})
		return
	}
	z, err := h.deps.Zones.Get(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "zone not found"})
		return
	}
	c.JSON(http.StatusOK, z)
}

func (h *Handler) locateZone(c *gin.Context) {
	if h.deps.Zones == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "zone data not loaded"})
		return
	}

	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng query parameters are required"})
		return
	}

	z, err := h.deps.Zones.Locate(lat, lng)
	switch {
	case errors.Is(err, geodata.ErrInvalidPoint):
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
	case errors.Is(err, geodata.ErrZoneNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no zone contains this point"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, z)
	}
}
