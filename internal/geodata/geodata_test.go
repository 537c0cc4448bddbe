package geodata

import (
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mmcloughlin/geohash"

	"github.com/dirsoacha/resilience-api/internal/models"
)

func loadTestZones(t *testing.T) *Zones {
	t.Helper()
	z, err := Load(filepath.Join("testdata", "zones.geojson"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return z
}

func TestLoad_Properties(t *testing.T) {
	z := loadTestZones(t)

	got, err := z.Get("El Danubio")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	want := models.Vulnerabilities{
		NoEvacuationKnowledge: 62,
		NoEmergencySavings:    81,
		FloodIncidence:        71,
		FoodInsecurity:        27,
	}
	if diff := cmp.Diff(want, got.Vulnerabilities); diff != "" {
		t.Errorf("vulnerabilities mismatch (-want +got):\n%s", diff)
	}
	if got.RiskLevel != "Alto" || got.Population != 3640 || got.Households != 1040 {
		t.Errorf("unexpected zone: %+v", got)
	}

	maria, err := z.Get("La María")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if maria.AreaM2 != 298000 || maria.Population != 3360 {
		t.Errorf("numeric strings should be parsed, got %+v", maria)
	}
}

func TestGet_CaseInsensitive(t *testing.T) {
	z := loadTestZones(t)

	for _, name := range []string{"la maría", "LA MARÍA", "  La María "} {
		if _, err := z.Get(name); err != nil {
			t.Errorf("Get(%q) failed: %v", name, err)
		}
	}
	if _, err := z.Get("Compartir"); !errors.Is(err, ErrZoneNotFound) {
		t.Errorf("expected ErrZoneNotFound, got %v", err)
	}
}

func TestLocate(t *testing.T) {
	z := loadTestZones(t)

	tests := []struct {
		name     string
		lat, lng float64
		want     string
		wantErr  error
	}{
		{"inside counter-clockwise ring", 4.575, -74.220, "El Danubio", nil},
		{"inside clockwise ring", 4.590, -74.205, "La María", nil},
		{"between zones", 4.582, -74.212, "", ErrZoneNotFound},
		{"far away", 6.244, -75.581, "", ErrZoneNotFound},
		{"invalid latitude", 91, -74.2, "", ErrInvalidPoint},
		{"nan", math.NaN(), -74.2, "", ErrInvalidPoint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := z.Locate(tt.lat, tt.lng)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Locate failed: %v", err)
			}
			if got.Name != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Name)
			}
		})
	}
}

func TestCentroidAndGeohash(t *testing.T) {
	z := loadTestZones(t)
	got, _ := z.Get("El Danubio")

	if math.Abs(got.Centroid.Latitude-4.575) > 1e-6 || math.Abs(got.Centroid.Longitude+74.220) > 1e-6 {
		t.Errorf("unexpected centroid %+v", got.Centroid)
	}
	if len(got.Geohash) != geohashPrecision {
		t.Fatalf("expected %d char geohash, got %q", geohashPrecision, got.Geohash)
	}
	lat, lng := geohash.DecodeCenter(got.Geohash)
	if math.Abs(lat-4.575) > 0.01 || math.Abs(lng+74.220) > 0.01 {
		t.Errorf("geohash %s decodes to %f,%f", got.Geohash, lat, lng)
	}
}

func TestFeatureCollection_Passthrough(t *testing.T) {
	z := loadTestZones(t)

	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(z.FeatureCollection(), &fc); err != nil {
		t.Fatalf("raw collection should stay valid JSON: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 2 {
		t.Errorf("unexpected collection: %s with %d features", fc.Type, len(fc.Features))
	}
	if len(z.All()) != 2 {
		t.Errorf("expected 2 zones, got %d", len(z.All()))
	}
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"not json":     `{`,
		"wrong type":   `{"type":"Feature"}`,
		"point":        `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]}}]}`,
		"short ring":   `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,1],[0,0]]]}}]}`,
		"duplicate":    `{"type":"FeatureCollection","features":[` + square("A") + `,` + square("a") + `]}`,
		"no positions": `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Polygon","coordinates":[]}}]}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParse_MultiPolygonWithHole(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"Barrio":"Ciudad Verde"},
	"geometry":{"type":"MultiPolygon","coordinates":[
		[[[0,0],[1,0],[1,1],[0,1],[0,0]],[[0.4,0.4],[0.6,0.4],[0.6,0.6],[0.4,0.6],[0.4,0.4]]],
		[[[2,2],[3,2],[3,3],[2,3],[2,2]]]
	]}}]}`
	z, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if _, err := z.Locate(0.2, 0.2); err != nil {
		t.Errorf("point in first polygon: %v", err)
	}
	if _, err := z.Locate(0.5, 0.5); !errors.Is(err, ErrZoneNotFound) {
		t.Errorf("point in hole should not match, got %v", err)
	}
	if _, err := z.Locate(2.5, 2.5); err != nil {
		t.Errorf("point in second polygon: %v", err)
	}
}

func TestParse_UnnamedFeature(t *testing.T) {
	z, err := Parse([]byte(`{"type":"FeatureCollection","features":[` + square("") + `]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := z.Get("Zona 1"); err != nil {
		t.Errorf("unnamed features get a positional name: %v", err)
	}
}

func square(name string) string {
	return `{"type":"Feature","properties":{"Barrio":"` + name + `"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}`
}
