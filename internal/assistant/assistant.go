package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/dirsoacha/resilience-api/internal/ollama"
)

const (
	TempAnalysis        = 0.3
	TempRecommendations = 0.5
	TempCreative        = 0.7

	MaxVoiceQuery   = 500
	MaxChatQuery    = 1000
	MaxChatHistory  = 8
	voiceNumPredict = 200
	chatNumPredict  = 300
	researchNumCtx  = 32000
	researchResults = 3
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrEmptyQuery     = fmt.Errorf("%w: empty query", ErrInvalidInput)
	ErrQueryTooLong   = fmt.Errorf("%w: query too long", ErrInvalidInput)
	ErrNoSearchResult = errors.New("no se encontraron resultados de búsqueda")
	ErrInvalidOutput  = errors.New("model output failed validation")
)

// LLM is the subset of the Ollama client the assistant needs.
type LLM interface {
	Chat(ctx context.Context, req ollama.ChatRequest) (*ollama.ChatResponse, error)
	ChatStream(ctx context.Context, req ollama.ChatRequest, fn func(chunk string) error) error
	WebSearch(ctx context.Context, query string, maxResults int) ([]ollama.SearchResult, error)
	WebFetch(ctx context.Context, url string) (*ollama.FetchResult, error)
	Configured() bool
	Model() string
}

type Assistant struct {
	llm      LLM
	validate *validator.Validate
}

func New(llm LLM) *Assistant {
	return &Assistant{llm: llm, validate: validator.New()}
}

func (a *Assistant) Configured() bool {
	return a.llm.Configured()
}

func (a *Assistant) VoiceQuery(ctx context.Context, query, convContext string) (string, error) {
	if err := checkQuery(query, MaxVoiceQuery); err != nil {
		return "", err
	}
	return a.complete(ctx, []ollama.Message{
		{Role: "system", Content: promptFor(voicePrompts, convContext)},
		{Role: "user", Content: query},
	}, &ollama.Options{Temperature: ollama.Temp(TempCreative), NumPredict: voiceNumPredict})
}

// ChatBot answers with the last MaxChatHistory turns of history as context.
func (a *Assistant) ChatBot(ctx context.Context, query, convContext string, history []ollama.Message) (string, error) {
	if err := checkQuery(query, MaxChatQuery); err != nil {
		return "", err
	}
	if len(history) > MaxChatHistory {
		history = history[len(history)-MaxChatHistory:]
	}

	messages := make([]ollama.Message, 0, len(history)+2)
	messages = append(messages, ollama.Message{Role: "system", Content: promptFor(chatPrompts, convContext)})
	for _, m := range history {
		if m.Role == "system" || m.Content == "" {
			continue
		}
		messages = append(messages, m)
	}
	messages = append(messages, ollama.Message{Role: "user", Content: query})

	return a.complete(ctx, messages, &ollama.Options{Temperature: ollama.Temp(TempCreative), NumPredict: chatNumPredict})
}

func (a *Assistant) AnalyzeVulnerability(ctx context.Context, d VulnerabilityData) (string, error) {
	if err := a.check(d); err != nil {
		return "", err
	}
	if len(d.Threats) == 0 {
		d.Threats = []string{"Inundaciones"}
	}
	community := d.Community
	if community == "" {
		community = "El Danubio y La María"
	}

	prompt := fmt.Sprintf(`Analiza los datos de vulnerabilidad de %s en Soacha, Colombia:

Datos CRMC:
- %s%% de la población no conoce protocolos de evacuación
- %s%% de hogares sin ahorros para emergencias
- %s%% de hogares con inseguridad alimentaria
- %s%% de confianza en líderes comunitarios

Amenazas principales: %s

Entrega:
1. Vulnerabilidades más críticas
2. Recomendaciones prioritarias para fortalecer la resiliencia
3. Estrategias de mitigación específicas`,
		community, pct(d.NoEvacuationProtocol), pct(d.NoEmergencySavings), pct(d.FoodInsecurity),
		pct(d.LeadershipTrust), strings.Join(d.Threats, ", "))

	return a.ask(ctx, systemVulnerability, prompt, TempAnalysis)
}

func (a *Assistant) AssessFloodRisk(ctx context.Context, loc FloodLocation) (string, error) {
	if err := a.check(loc); err != nil {
		return "", err
	}
	if len(loc.WaterBodies) == 0 {
		loc.WaterBodies = []string{"Río Bogotá", "Quebrada Tibanica"}
	}

	prompt := fmt.Sprintf(`Evalúa el riesgo de inundación para esta ubicación en Soacha:

Ubicación: %s
Coordenadas: %s
Nivel de riesgo registrado: %s
Características:
- Proximidad a %s
- Tipo de alcantarillado: %s
- Impermeabilización del suelo: %s
- Población estimada: %s habitantes
- Temporada: %s
%s
Con base en los patrones locales (71%% de incidencia, picos en marzo-junio y octubre-noviembre), entrega:
1. Nivel de riesgo (Alto/Medio/Bajo)
2. Factores agravantes
3. Medidas preventivas recomendadas`,
		loc.Name, formatValue(loc.Coordinates), orUnknown(loc.RiskLevel),
		strings.Join(loc.WaterBodies, ", "), orDefault(loc.SewerageType, "alcantarillado artesanal"),
		orUnknown(loc.SoilImpermeability), intOrUnknown(loc.Population), orUnknown(loc.Season),
		optionalLine("Descripción", loc.Description))

	return a.ask(ctx, systemFloodRisk, prompt, TempAnalysis)
}

func (a *Assistant) EmergencyResponse(ctx context.Context, in Incident) (string, error) {
	if err := a.check(in); err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`Genera recomendaciones de respuesta inmediata para este incidente:

Tipo de incidente: %s
Ubicación: %s
Severidad: %s
Población afectada: %s
Recursos disponibles: %s
Capacidades locales: %s

Entrega:
1. Acciones inmediatas prioritarias
2. Protocolo de evacuación recomendado
3. Coordinación con recursos locales
4. Comunicación con la comunidad`,
		in.Type, in.Location, in.Severity, formatValue(in.AffectedPopulation),
		listOrUnknown(in.AvailableResources), listOrUnknown(in.LocalCapacities))

	return a.ask(ctx, systemEmergency, prompt, TempRecommendations)
}

func (a *Assistant) PredictRiskPatterns(ctx context.Context, h HistoricalData) (string, error) {
	prompt := fmt.Sprintf(`Analiza estos patrones históricos de riesgo climático en Soacha:

- Precipitación mensual: %s
- Inundaciones por mes: %s
- Fenómenos climáticos: %s

Mes actual: %s

Entrega:
1. Predicción de riesgo para los próximos 3 meses
2. Períodos críticos
3. Recomendaciones de preparación
4. Indicadores clave a monitorear`,
		jsonValue(h.Precipitation), jsonValue(h.FloodIncidents), listOrUnknown(h.ClimateEvents), orUnknown(h.CurrentMonth))

	return a.ask(ctx, systemPrediction, prompt, TempAnalysis)
}

// ZoneAnalysis runs one analysis for the zone, or all three in parallel when
// the type is empty or "full".
func (a *Assistant) ZoneAnalysis(ctx context.Context, req ZoneRequest) (any, error) {
	if err := a.check(req); err != nil {
		return nil, err
	}

	vuln := zoneVulnerability(req)
	flood := FloodLocation{
		Name:         req.Zone.Name,
		Coordinates:  "Soacha, Cundinamarca",
		SewerageType: orDefault(req.Zone.Infrastructure, "Sistema de alcantarillado artesanal"),
		RiskLevel:    req.Zone.Level,
		Description:  req.Zone.Description,
	}
	incident := Incident{
		Type:     "Potencial inundación en " + req.Zone.Name,
		Location: req.Zone.Name,
		Severity: orDefault(req.Zone.Level, "Medio"),
	}
	if req.Community != nil && req.Community.Population > 0 {
		flood.Population = req.Community.Population
		incident.AffectedPopulation = req.Community.Population
	}

	switch req.AnalysisType {
	case "vulnerability":
		return a.AnalyzeVulnerability(ctx, vuln)
	case "flood-risk":
		return a.AssessFloodRisk(ctx, flood)
	case "emergency":
		return a.EmergencyResponse(ctx, incident)
	}

	var full FullZoneAnalysis
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		full.Vulnerability, err = a.AnalyzeVulnerability(gctx, vuln)
		return err
	})
	g.Go(func() (err error) {
		full.FloodRisk, err = a.AssessFloodRisk(gctx, flood)
		return err
	})
	g.Go(func() (err error) {
		full.Emergency, err = a.EmergencyResponse(gctx, incident)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return full, nil
}

// StructuredRiskAssessment asks for JSON matching riskAssessmentSchema and
// validates the answer.
func (a *Assistant) StructuredRiskAssessment(ctx context.Context, in StructuredInput) (*RiskAssessment, error) {
	if in.Location == "" {
		in.Location = "El Danubio"
	}
	if len(in.Threats) == 0 {
		in.Threats = []string{"Inundaciones", "Obstrucción de alcantarillas"}
	}
	if len(in.Indicators) == 0 {
		in.Indicators = map[string]any{"noEvac": 62, "noSavings": 81, "foodInsec": 27}
	}

	prompt := fmt.Sprintf(`Genera un resumen estructurado para la comunidad %s en Soacha.
Contexto:
- Amenazas principales: %s
- Indicadores: %s

Requisitos:
- Usa SOLO este esquema JSON: %s
- No incluyas texto fuera del JSON
- Campos: location, riskLevel (Alto/Medio/Bajo), keyFactors[], recommendations[]`,
		in.Location, strings.Join(in.Threats, ", "), jsonValue(in.Indicators), riskAssessmentSchema)

	resp, err := a.llm.Chat(ctx, ollama.ChatRequest{
		Messages: []ollama.Message{
			{Role: "system", Content: systemStructured},
			{Role: "user", Content: prompt},
		},
		Format:  json.RawMessage(riskAssessmentSchema),
		Options: &ollama.Options{Temperature: ollama.Temp(0)},
	})
	if err != nil {
		return nil, err
	}

	raw := strings.TrimSpace(resp.Message.Content)
	if raw == "" {
		raw = "{}"
	}
	var out RiskAssessment
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: la respuesta no es JSON válido", ErrInvalidOutput)
	}
	if err := a.validate.Struct(out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return &out, nil
}

// CommunityReport streams the narrative report chunk by chunk.
func (a *Assistant) CommunityReport(ctx context.Context, d ReportData, fn func(chunk string) error) error {
	if err := a.check(d); err != nil {
		return err
	}

	prompt := fmt.Sprintf(`Genera un reporte comunitario para %s:

Período: %s
Población: %s habitantes
Incidentes reportados: %d
Tipos: %s
Acciones realizadas: %d
Participación comunitaria: %s%%

El reporte debe incluir:
1. Resumen ejecutivo
2. Análisis de tendencias
3. Logros en resiliencia
4. Áreas de mejora
5. Recomendaciones para el próximo período`,
		d.Community, orUnknown(d.Period), intOrUnknown(d.Population), len(d.Incidents),
		listOrUnknown(d.IncidentTypes), len(d.Actions), pct(d.Participation))

	return a.llm.ChatStream(ctx, ollama.ChatRequest{
		Messages: []ollama.Message{
			{Role: "system", Content: systemReport},
			{Role: "user", Content: prompt},
		},
		Options: &ollama.Options{Temperature: ollama.Temp(TempRecommendations)},
	}, fn)
}

func (a *Assistant) WebSearch(ctx context.Context, query string, maxResults int) ([]ollama.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	return a.llm.WebSearch(ctx, query, maxResults)
}

func (a *Assistant) WebFetch(ctx context.Context, url string) (*ollama.FetchResult, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}
	return a.llm.WebFetch(ctx, url)
}

// ClimateResearch searches the web for the topic and has the model synthesize
// the results with the local context.
func (a *Assistant) ClimateResearch(ctx context.Context, q ResearchQuery) (*ResearchResult, error) {
	if err := a.check(q); err != nil {
		return nil, err
	}

	results, err := a.llm.WebSearch(ctx,
		fmt.Sprintf("%s %s Colombia clima cambio climático 2025", q.Topic, q.Location), researchResults)
	if err != nil {
		return nil, fmt.Errorf("web search failed: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoSearchResult
	}

	var sb strings.Builder
	sources := make([]Source, 0, len(results))
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] %s\n%s\n%s\n\n", i+1, r.Title, r.URL, r.Content)
		sources = append(sources, Source{Title: r.Title, URL: r.URL})
	}

	prompt := fmt.Sprintf(`Analiza la siguiente información de la web y sintetízala con el contexto local.

CONTEXTO LOCAL (%s):
%s

INFORMACIÓN DE LA WEB:
%s
TEMA: %s

Entrega:
1. Síntesis de la información
2. Relevancia para %s
3. Recomendaciones basadas en buenas prácticas
4. Referencias a las fuentes consultadas`,
		q.Location, orDefault(q.LocalContext, "Comunidades vulnerables a inundaciones, con infraestructura artesanal"),
		sb.String(), q.Topic, q.Location)

	resp, err := a.llm.Chat(ctx, ollama.ChatRequest{
		Messages: []ollama.Message{
			{Role: "system", Content: systemResearch},
			{Role: "user", Content: prompt},
		},
		Options: &ollama.Options{Temperature: ollama.Temp(TempRecommendations), NumCtx: researchNumCtx},
	})
	if err != nil {
		return nil, err
	}
	return &ResearchResult{Synthesis: resp.Message.Content, Sources: sources}, nil
}

// Status reports whether the key is set and, if so, whether a test prompt succeeds.
func (a *Assistant) Status(ctx context.Context) StatusResult {
	if !a.llm.Configured() {
		return StatusResult{
			Configured: false,
			Message:    "Ollama API key not configured. Set OLLAMA_API_KEY in .env",
		}
	}

	resp, err := a.llm.Chat(ctx, ollama.ChatRequest{
		Messages: []ollama.Message{{Role: "user", Content: statusPrompt}},
	})
	if err != nil {
		slog.Warn("ollama status check failed", "error", err)
		return StatusResult{Configured: true, Model: a.llm.Model(), Error: err.Error()}
	}
	return StatusResult{Configured: true, Success: true, Model: a.llm.Model(), Message: resp.Message.Content}
}

// FriendlyError turns transport and auth failures into messages for
// dashboard users. Other errors yield fallback.
func FriendlyError(err error, fallback string) string {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return "No se pudo conectar con el servicio de IA. Verifica la configuración de Ollama."
	case errors.Is(err, ollama.ErrUnauthorized), errors.Is(err, ollama.ErrNotConfigured):
		return "Configuración de API incorrecta. Contacta al administrador."
	}
	return fallback
}

func (a *Assistant) ask(ctx context.Context, system, prompt string, temperature float64) (string, error) {
	return a.complete(ctx, []ollama.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: prompt},
	}, &ollama.Options{Temperature: ollama.Temp(temperature)})
}

func (a *Assistant) complete(ctx context.Context, messages []ollama.Message, opts *ollama.Options) (string, error) {
	resp, err := a.llm.Chat(ctx, ollama.ChatRequest{Messages: messages, Options: opts})
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

func (a *Assistant) check(v any) error {
	if err := a.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func checkQuery(q string, max int) error {
	if strings.TrimSpace(q) == "" {
		return ErrEmptyQuery
	}
	if utf8.RuneCountInString(q) > max {
		return fmt.Errorf("%w: more than %d characters", ErrQueryTooLong, max)
	}
	return nil
}

func zoneVulnerability(req ZoneRequest) VulnerabilityData {
	d := VulnerabilityData{
		Community:            req.Zone.Name,
		NoEvacuationProtocol: 62,
		NoEmergencySavings:   81,
		Threats:              []string{"Inundaciones", "Obstrucción de alcantarillas"},
	}
	if c := req.Community; c != nil {
		if c.Name != "" {
			d.Community = c.Name
		}
		if v := c.Vulnerabilities["no_evacuation_knowledge"]; v > 0 {
			d.NoEvacuationProtocol = v
		}
		if v := c.Vulnerabilities["no_emergency_savings"]; v > 0 {
			d.NoEmergencySavings = v
		}
		d.FoodInsecurity = c.Vulnerabilities["food_insecurity"]
	}
	return d
}
