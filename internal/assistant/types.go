package assistant

type VulnerabilityData struct {
	Community            string   `json:"community"`
	NoEvacuationProtocol float64  `json:"noEvacuationProtocol" validate:"required"`
	NoEmergencySavings   float64  `json:"noEmergencySavings" validate:"required"`
	FoodInsecurity       float64  `json:"foodInsecurity"`
	LeadershipTrust      float64  `json:"leadershipTrust"`
	Threats              []string `json:"threats"`
}

type FloodLocation struct {
	Name               string   `json:"name" validate:"required"`
	Coordinates        any      `json:"coordinates" validate:"required"`
	WaterBodies        []string `json:"waterBodies"`
	SewerageType       string   `json:"sewerageType"`
	SoilImpermeability string   `json:"soilImpermeability"`
	Population         int      `json:"population"`
	Season             string   `json:"season"`
	RiskLevel          string   `json:"riskLevel"`
	Description        string   `json:"description"`
}

type Incident struct {
	Type               string   `json:"type" validate:"required"`
	Location           string   `json:"location" validate:"required"`
	Severity           string   `json:"severity" validate:"required"`
	AffectedPopulation any      `json:"affectedPopulation"`
	AvailableResources []string `json:"availableResources"`
	LocalCapacities    []string `json:"localCapacities"`
}

type HistoricalData struct {
	Precipitation  any      `json:"precipitation"`
	FloodIncidents any      `json:"floodIncidents"`
	ClimateEvents  []string `json:"climateEvents"`
	CurrentMonth   string   `json:"currentMonth"`
}

type StructuredInput struct {
	Location   string         `json:"location"`
	Threats    []string       `json:"threats"`
	Indicators map[string]any `json:"indicators"`
}

// RiskAssessment is the schema the model must answer with.
type RiskAssessment struct {
	Location        string   `json:"location" validate:"required"`
	RiskLevel       string   `json:"riskLevel" validate:"required,oneof=Alto Medio Bajo"`
	KeyFactors      []string `json:"keyFactors" validate:"min=1,dive,required"`
	Recommendations []string `json:"recommendations" validate:"min=1,dive,required"`
}

type ReportData struct {
	Community     string   `json:"community" validate:"required"`
	Period        string   `json:"period"`
	Population    int      `json:"population"`
	Incidents     []any    `json:"incidents"`
	IncidentTypes []string `json:"incidentTypes"`
	Actions       []any    `json:"actions"`
	Participation float64  `json:"participation"`
}

type ResearchQuery struct {
	Location     string `json:"location" validate:"required"`
	Topic        string `json:"topic" validate:"required"`
	LocalContext string `json:"localContext"`
}

type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type ResearchResult struct {
	Synthesis string   `json:"synthesis"`
	Sources   []Source `json:"sources"`
}

type ZoneInfo struct {
	Name           string `json:"name" validate:"required"`
	Level          string `json:"level"`
	Description    string `json:"description"`
	Infrastructure string `json:"infrastructure"`
}

type CommunityInfo struct {
	Name            string             `json:"name"`
	Population      int                `json:"population"`
	Vulnerabilities map[string]float64 `json:"vulnerabilities"`
}

type ZoneRequest struct {
	Zone         ZoneInfo       `json:"zone"`
	Community    *CommunityInfo `json:"community"`
	AnalysisType string         `json:"analysisType"`
}

type FullZoneAnalysis struct {
	Vulnerability string `json:"vulnerability"`
	FloodRisk     string `json:"floodRisk"`
	Emergency     string `json:"emergency"`
}

type StatusResult struct {
	Configured bool   `json:"configured"`
	Success    bool   `json:"success"`
	Model      string `json:"model,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}
