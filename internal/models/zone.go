package models

// Vulnerabilities are CRMC/AVCA survey percentages for a community.
type Vulnerabilities struct {
	NoEvacuationKnowledge float64 `json:"no_evacuation_knowledge,omitempty"`
	NoEmergencySavings    float64 `json:"no_emergency_savings,omitempty"`
	FloodIncidence        float64 `json:"flood_incidence,omitempty"`
	FoodInsecurity        float64 `json:"food_insecurity,omitempty"`
}

type Zone struct {
	Name            string          `json:"name"`
	RiskLevel       string          `json:"risk_level"`
	AreaM2          float64         `json:"area_m2,omitempty"`
	Population      int             `json:"population,omitempty"`
	Households      int             `json:"households,omitempty"`
	Vulnerabilities Vulnerabilities `json:"vulnerabilities"`
	Centroid        Coordinates     `json:"centroid"`
	Geohash         string          `json:"geohash"`
}

type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}
