package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dirsoacha/resilience-api/internal/config"
	"github.com/dirsoacha/resilience-api/internal/ollama"
)

type fakeLLM struct {
	mu         sync.Mutex
	requests   []ollama.ChatRequest
	reply      func(req ollama.ChatRequest) (string, error)
	chunks     []string
	results    []ollama.SearchResult
	searchErr  error
	searches   []string
	configured bool
}

func (f *fakeLLM) Chat(_ context.Context, req ollama.ChatRequest) (*ollama.ChatResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	content := "respuesta"
	if f.reply != nil {
		var err error
		if content, err = f.reply(req); err != nil {
			return nil, err
		}
	}
	return &ollama.ChatResponse{Message: ollama.Message{Role: "assistant", Content: content}, Done: true}, nil
}

func (f *fakeLLM) ChatStream(_ context.Context, req ollama.ChatRequest, fn func(string) error) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	for _, c := range f.chunks {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeLLM) WebSearch(_ context.Context, query string, _ int) ([]ollama.SearchResult, error) {
	f.mu.Lock()
	f.searches = append(f.searches, query)
	f.mu.Unlock()
	return f.results, f.searchErr
}

func (f *fakeLLM) WebFetch(_ context.Context, u string) (*ollama.FetchResult, error) {
	return &ollama.FetchResult{Title: "page", Content: "contenido de " + u}, nil
}

func (f *fakeLLM) Configured() bool { return f.configured }
func (f *fakeLLM) Model() string    { return "gpt-oss:120b" }

func (f *fakeLLM) last(t *testing.T) ollama.ChatRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func TestVoiceQuery(t *testing.T) {
	llm := &fakeLLM{}
	a := New(llm)

	out, err := a.VoiceQuery(context.Background(), "¿Qué hago si sube el río?", "")
	require.NoError(t, err)
	assert.Equal(t, "respuesta", out)

	req := llm.last(t)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, voicePrompts[ContextResilience], req.Messages[0].Content)
	assert.Equal(t, 0.7, *req.Options.Temperature)
	assert.Equal(t, 200, req.Options.NumPredict)

	_, err = a.VoiceQuery(context.Background(), "hola", "unknown-context")
	require.NoError(t, err)
	assert.Equal(t, voicePrompts[ContextGeneral], llm.last(t).Messages[0].Content)
}

func TestVoiceQuery_Validation(t *testing.T) {
	a := New(&fakeLLM{})

	_, err := a.VoiceQuery(context.Background(), "   ", "")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = a.VoiceQuery(context.Background(), strings.Repeat("a", MaxVoiceQuery+1), "")
	assert.ErrorIs(t, err, ErrQueryTooLong)

	// Limits count characters, not bytes.
	_, err = a.VoiceQuery(context.Background(), strings.Repeat("ñ", MaxVoiceQuery), "")
	assert.NoError(t, err)
}

func TestChatBot_TrimsHistory(t *testing.T) {
	llm := &fakeLLM{}
	a := New(llm)

	var history []ollama.Message
	for i := 0; i < 12; i++ {
		history = append(history, ollama.Message{Role: "user", Content: fmt.Sprintf("m%d", i)})
	}
	history = append(history[:5], append([]ollama.Message{{Role: "system", Content: "ignore"}}, history[5:]...)...)

	_, err := a.ChatBot(context.Background(), "¿Y ahora?", ContextResilience, history)
	require.NoError(t, err)

	req := llm.last(t)
	assert.Equal(t, chatPrompts[ContextResilience], req.Messages[0].Content)
	assert.Equal(t, "¿Y ahora?", req.Messages[len(req.Messages)-1].Content)
	// The window keeps the last eight turns, then drops the injected system turn.
	assert.Len(t, req.Messages, MaxChatHistory+1)
	assert.Equal(t, "m5", req.Messages[1].Content)
	assert.Equal(t, 300, req.Options.NumPredict)

	_, err = a.ChatBot(context.Background(), strings.Repeat("x", MaxChatQuery+1), "", nil)
	assert.ErrorIs(t, err, ErrQueryTooLong)
}

func TestAnalyzeVulnerability(t *testing.T) {
	llm := &fakeLLM{}
	a := New(llm)

	_, err := a.AnalyzeVulnerability(context.Background(), VulnerabilityData{NoEvacuationProtocol: 62})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = a.AnalyzeVulnerability(context.Background(), VulnerabilityData{
		NoEvacuationProtocol: 62,
		NoEmergencySavings:   81,
		FoodInsecurity:       27,
	})
	require.NoError(t, err)

	req := llm.last(t)
	assert.Equal(t, systemVulnerability, req.Messages[0].Content)
	assert.Contains(t, req.Messages[1].Content, "62% de la población")
	assert.Contains(t, req.Messages[1].Content, "Inundaciones")
	assert.Equal(t, TempAnalysis, *req.Options.Temperature)
}

func TestAssessFloodRisk(t *testing.T) {
	llm := &fakeLLM{}
	a := New(llm)

	_, err := a.AssessFloodRisk(context.Background(), FloodLocation{Name: "El Danubio"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = a.AssessFloodRisk(context.Background(), FloodLocation{
		Name:        "El Danubio",
		Coordinates: []any{4.58, -74.21},
	})
	require.NoError(t, err)

	prompt := llm.last(t).Messages[1].Content
	assert.Contains(t, prompt, "Río Bogotá, Quebrada Tibanica")
	assert.Contains(t, prompt, "4.58, -74.21")
}

func TestEmergencyResponse(t *testing.T) {
	llm := &fakeLLM{}
	a := New(llm)

	_, err := a.EmergencyResponse(context.Background(), Incident{Type: "Inundación", Location: "La María"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = a.EmergencyResponse(context.Background(), Incident{Type: "Inundación", Location: "La María", Severity: "Alta"})
	require.NoError(t, err)
	assert.Equal(t, TempRecommendations, *llm.last(t).Options.Temperature)
}

func TestStructuredRiskAssessment(t *testing.T) {
	valid := `{"location":"El Danubio","riskLevel":"Alto","keyFactors":["alcantarillado"],"recommendations":["evacuar"]}`

	tests := []struct {
		name    string
		reply   string
		wantErr error
	}{
		{"valid", valid, nil},
		{"not json", "El riesgo es alto", ErrInvalidOutput},
		{"bad level", `{"location":"x","riskLevel":"Extremo","keyFactors":["a"],"recommendations":["b"]}`, ErrInvalidOutput},
		{"empty factors", `{"location":"x","riskLevel":"Bajo","keyFactors":[],"recommendations":["b"]}`, ErrInvalidOutput},
		{"empty", "", ErrInvalidOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{reply: func(ollama.ChatRequest) (string, error) { return tt.reply, nil }}
			out, err := New(llm).StructuredRiskAssessment(context.Background(), StructuredInput{})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Alto", out.RiskLevel)

			req := llm.last(t)
			assert.Equal(t, 0.0, *req.Options.Temperature)
			assert.True(t, json.Valid(req.Format))
			assert.Contains(t, req.Messages[1].Content, "El Danubio")
			assert.Contains(t, req.Messages[1].Content, `"noSavings":81`)
		})
	}
}

func TestCommunityReport_Streams(t *testing.T) {
	llm := &fakeLLM{chunks: []string{"Resumen ", "ejecutivo"}}
	a := New(llm)

	var sb strings.Builder
	err := a.CommunityReport(context.Background(), ReportData{Community: "El Danubio"}, func(c string) error {
		sb.WriteString(c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Resumen ejecutivo", sb.String())

	err = a.CommunityReport(context.Background(), ReportData{}, func(string) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClimateResearch(t *testing.T) {
	llm := &fakeLLM{results: []ollama.SearchResult{
		{Title: "IDEAM", URL: "https://ideam.gov.co", Content: "lluvias"},
		{Title: "UNGRD", URL: "https://ungrd.gov.co", Content: "alertas"},
	}}
	a := New(llm)

	res, err := a.ClimateResearch(context.Background(), ResearchQuery{Location: "Soacha", Topic: "inundaciones"})
	require.NoError(t, err)
	assert.Equal(t, []Source{
		{Title: "IDEAM", URL: "https://ideam.gov.co"},
		{Title: "UNGRD", URL: "https://ungrd.gov.co"},
	}, res.Sources)
	assert.Equal(t, "inundaciones Soacha Colombia clima cambio climático 2025", llm.searches[0])

	req := llm.last(t)
	assert.Equal(t, 32000, req.Options.NumCtx)
	assert.Contains(t, req.Messages[1].Content, "[1] IDEAM")

	_, err = New(&fakeLLM{}).ClimateResearch(context.Background(), ResearchQuery{Location: "Soacha", Topic: "x"})
	assert.ErrorIs(t, err, ErrNoSearchResult)

	_, err = a.ClimateResearch(context.Background(), ResearchQuery{Topic: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestWebSearchAndFetch_RequireInput(t *testing.T) {
	a := New(&fakeLLM{})

	_, err := a.WebSearch(context.Background(), " ", 5)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = a.WebFetch(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	page, err := a.WebFetch(context.Background(), "https://example.org")
	require.NoError(t, err)
	assert.Equal(t, "page", page.Title)
}

func TestZoneAnalysis(t *testing.T) {
	llm := &fakeLLM{reply: func(req ollama.ChatRequest) (string, error) {
		return req.Messages[0].Content[:10], nil
	}}
	a := New(llm)
	req := ZoneRequest{
		Zone: ZoneInfo{Name: "El Danubio", Level: "Alto"},
		Community: &CommunityInfo{
			Population:      3640,
			Vulnerabilities: map[string]float64{"no_evacuation_knowledge": 70},
		},
	}

	out, err := a.ZoneAnalysis(context.Background(), req)
	require.NoError(t, err)
	full, ok := out.(FullZoneAnalysis)
	require.True(t, ok, "expected full analysis, got %T", out)
	assert.Equal(t, systemVulnerability[:10], full.Vulnerability)
	assert.Equal(t, systemFloodRisk[:10], full.FloodRisk)
	assert.Equal(t, systemEmergency[:10], full.Emergency)
	assert.Len(t, llm.requests, 3)

	req.AnalysisType = "vulnerability"
	out, err = a.ZoneAnalysis(context.Background(), req)
	require.NoError(t, err)
	assert.IsType(t, "", out)
	assert.Contains(t, llm.last(t).Messages[1].Content, "70% de la población")

	_, err = a.ZoneAnalysis(context.Background(), ZoneRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestZoneAnalysis_FullFailsTogether(t *testing.T) {
	boom := errors.New("boom")
	llm := &fakeLLM{reply: func(req ollama.ChatRequest) (string, error) {
		if req.Messages[0].Content == systemFloodRisk {
			return "", boom
		}
		return "ok", nil
	}}

	_, err := New(llm).ZoneAnalysis(context.Background(), ZoneRequest{Zone: ZoneInfo{Name: "La María"}})
	assert.ErrorIs(t, err, boom)
}

func TestStatus(t *testing.T) {
	st := New(&fakeLLM{}).Status(context.Background())
	assert.False(t, st.Configured)
	assert.False(t, st.Success)
	assert.Contains(t, st.Message, "OLLAMA_API_KEY")

	st = New(&fakeLLM{configured: true}).Status(context.Background())
	assert.True(t, st.Configured)
	assert.True(t, st.Success)
	assert.Equal(t, "gpt-oss:120b", st.Model)

	failing := &fakeLLM{configured: true, reply: func(ollama.ChatRequest) (string, error) {
		return "", ollama.ErrUnauthorized
	}}
	st = New(failing).Status(context.Background())
	assert.True(t, st.Configured)
	assert.False(t, st.Success)
	assert.NotEmpty(t, st.Error)
}

func TestFriendlyError(t *testing.T) {
	refused := &url.Error{Op: "Post", URL: "http://localhost:11434", Err: &net.OpError{
		Op:  "dial",
		Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED},
	}}

	assert.Equal(t, "No se pudo conectar con el servicio de IA. Verifica la configuración de Ollama.",
		FriendlyError(fmt.Errorf("chat: %w", refused), "fallback"))
	assert.Equal(t, "Configuración de API incorrecta. Contacta al administrador.",
		FriendlyError(fmt.Errorf("chat: %w", ollama.ErrUnauthorized), "fallback"))
	assert.Equal(t, "fallback", FriendlyError(errors.New("boom"), "fallback"))
}

func TestFriendlyError_MissingAPIKey(t *testing.T) {
	a := New(ollama.NewClient(config.OllamaConfig{Host: "http://127.0.0.1:1"}))

	_, err := a.VoiceQuery(context.Background(), "¿Va a llover?", "")
	require.ErrorIs(t, err, ollama.ErrNotConfigured)
	assert.Equal(t, "Configuración de API incorrecta. Contacta al administrador.",
		FriendlyError(err, "fallback"))
}
