// Package geodata serves the static community zones of Soacha loaded from a
// GeoJSON file.
package geodata

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
	"github.com/mmcloughlin/geohash"

	"github.com/dirsoacha/resilience-api/internal/models"
)

var (
	ErrZoneNotFound = errors.New("zone not found")
	ErrInvalidPoint = errors.New("invalid coordinates")
)

const geohashPrecision = 7

// Feature property names used by the dashboard map layer.
const (
	propName          = "Barrio"
	propRiskLevel     = "Nivel_Riesgo"
	propArea          = "area_m2"
	propPopulation    = "poblacion"
	propHouseholds    = "hogares"
	propNoEvacuation  = "sin_protocolo_evacuacion"
	propNoSavings     = "sin_ahorros"
	propFloodIncident = "incidencia_inundacion"
	propFoodInsecure  = "inseguridad_alimentaria"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string         `json:"type"`
	Geometry   geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// polygon is an outer ring followed by its holes.
type polygon []*s2.Loop

type zone struct {
	models.Zone
	polygons []polygon
}

// Zones is the read-only zone index.
type Zones struct {
	raw    json.RawMessage
	zones  []zone
	byName map[string]int
}

func Load(path string) (*Zones, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zones file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Zones, error) {
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("decode geojson: expected FeatureCollection, got %q", fc.Type)
	}

	z := &Zones{
		raw:    json.RawMessage(data),
		byName: make(map[string]int, len(fc.Features)),
	}
	for i, f := range fc.Features {
		polys, err := parseGeometry(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		entry := zone{Zone: zoneFromProperties(f.Properties), polygons: polys}
		if entry.Name == "" {
			entry.Name = fmt.Sprintf("Zona %d", i+1)
		}
		entry.Centroid, entry.Geohash = centroid(polys)

		key := strings.ToLower(entry.Name)
		if _, dup := z.byName[key]; dup {
			return nil, fmt.Errorf("feature %d: duplicate zone %q", i, entry.Name)
		}
		z.byName[key] = len(z.zones)
		z.zones = append(z.zones, entry)
	}
	return z, nil
}

// FeatureCollection returns the file contents unchanged.
func (z *Zones) FeatureCollection() json.RawMessage {
	return z.raw
}

func (z *Zones) All() []models.Zone {
	out := make([]models.Zone, 0, len(z.zones))
	for _, e := range z.zones {
		out = append(out, e.Zone)
	}
	return out
}

// Get looks a zone up by name, ignoring case and surrounding spaces.
func (z *Zones) Get(name string) (models.Zone, error) {
	i, ok := z.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return models.Zone{}, fmt.Errorf("%w: %q", ErrZoneNotFound, name)
	}
	return z.zones[i].Zone, nil
}

// Locate returns the first zone whose polygon contains the point.
func (z *Zones) Locate(lat, lng float64) (models.Zone, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return models.Zone{}, ErrInvalidPoint
	}
	pt := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lng))
	for _, e := range z.zones {
		for _, p := range e.polygons {
			if p.contains(pt) {
				return e.Zone, nil
			}
		}
	}
	return models.Zone{}, ErrZoneNotFound
}

func (p polygon) contains(pt s2.Point) bool {
	if len(p) == 0 || !p[0].ContainsPoint(pt) {
		return false
	}
	for _, hole := range p[1:] {
		if hole.ContainsPoint(pt) {
			return false
		}
	}
	return true
}

func parseGeometry(g geometry) ([]polygon, error) {
	switch g.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("decode polygon: %w", err)
		}
		p, err := buildPolygon(rings)
		if err != nil {
			return nil, err
		}
		return []polygon{p}, nil
	case "MultiPolygon":
		var polys [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
			return nil, fmt.Errorf("decode multipolygon: %w", err)
		}
		out := make([]polygon, 0, len(polys))
		for _, rings := range polys {
			p, err := buildPolygon(rings)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
	}
}

func buildPolygon(rings [][][]float64) (polygon, error) {
	if len(rings) == 0 {
		return nil, errors.New("polygon without rings")
	}
	p := make(polygon, 0, len(rings))
	for _, ring := range rings {
		loop, err := buildLoop(ring)
		if err != nil {
			return nil, err
		}
		p = append(p, loop)
	}
	return p, nil
}

// buildLoop turns a GeoJSON ring ([lng, lat] pairs, closed) into an s2 loop.
func buildLoop(ring [][]float64) (*s2.Loop, error) {
	if n := len(ring); n > 1 && equalPos(ring[0], ring[n-1]) {
		ring = ring[:n-1]
	}
	if len(ring) < 3 {
		return nil, fmt.Errorf("ring needs at least 3 distinct positions, got %d", len(ring))
	}

	points := make([]s2.Point, 0, len(ring))
	for _, pos := range ring {
		if len(pos) < 2 {
			return nil, errors.New("position needs longitude and latitude")
		}
		points = append(points, s2.PointFromLatLng(s2.LatLngFromDegrees(pos[1], pos[0])))
	}

	// Rings wound clockwise come out as the complement of the zone, which
	// covers almost the whole sphere.
	loop := s2.LoopFromPoints(points)
	if loop.Area() > 0.1 {
		loop.Invert()
	}
	return loop, nil
}

func equalPos(a, b []float64) bool {
	return len(a) >= 2 && len(b) >= 2 && a[0] == b[0] && a[1] == b[1]
}

func centroid(polys []polygon) (models.Coordinates, string) {
	rect := s2.EmptyRect()
	for _, p := range polys {
		if len(p) > 0 {
			rect = rect.Union(p[0].RectBound())
		}
	}
	if rect.IsEmpty() {
		return models.Coordinates{}, ""
	}
	c := rect.Center()
	lat, lng := c.Lat.Degrees(), c.Lng.Degrees()
	return models.Coordinates{Latitude: lat, Longitude: lng}, geohash.EncodeWithPrecision(lat, lng, geohashPrecision)
}

func zoneFromProperties(props map[string]any) models.Zone {
	return models.Zone{
		Name:       stringProp(props, propName),
		RiskLevel:  stringProp(props, propRiskLevel),
		AreaM2:     numberProp(props, propArea),
		Population: int(numberProp(props, propPopulation)),
		Households: int(numberProp(props, propHouseholds)),
		Vulnerabilities: models.Vulnerabilities{
			NoEvacuationKnowledge: numberProp(props, propNoEvacuation),
			NoEmergencySavings:    numberProp(props, propNoSavings),
			FloodIncidence:        numberProp(props, propFloodIncident),
			FoodInsecurity:        numberProp(props, propFoodInsecure),
		},
	}
}

func stringProp(props map[string]any, key string) string {
	switch v := props[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// numberProp accepts JSON numbers and numeric strings; anything else is 0.
func numberProp(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}
