package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tareqmamari/elastic-otel-mcp/internal/diagnostics"
	mcperrors "github.com/tareqmamari/elastic-otel-mcp/internal/errors"
	"github.com/tareqmamari/elastic-otel-mcp/internal/reports"
)

type fakeSource struct {
	mu          sync.Mutex
	perf        *reports.PerformanceReport
	errs        *reports.ErrorReport
	resources   map[string]*reports.ResourceReport
	resourceErr error

	thresholds []int64
	severities []string
	calls      int
}

func (f *fakeSource) ErrorAnalysis(_ context.Context, _, severity string) *reports.ErrorReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.severities = append(f.severities, severity)
	if f.errs == nil {
		return &reports.ErrorReport{Errors: []reports.ErrorEntry{}}
	}
	return f.errs
}

func (f *fakeSource) PerformanceIssues(_ context.Context, _ string, thresholdMs int64) *reports.PerformanceReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.thresholds = append(f.thresholds, thresholdMs)
	if f.perf == nil {
		return &reports.PerformanceReport{SlowOperations: []reports.SlowOperation{}}
	}
	return f.perf
}

func (f *fakeSource) ResourceUtilization(_ context.Context, _, resourceType string) (*reports.ResourceReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.resourceErr != nil {
		return nil, f.resourceErr
	}
	if r, ok := f.resources[resourceType]; ok {
		return r, nil
	}
	return &reports.ResourceReport{ResourceType: resourceType, Utilization: map[string]reports.Utilization{}}, nil
}

func util(percent float64) reports.Utilization {
	return reports.Utilization{
		Value:  percent,
		Unit:   reports.UnitPercent,
		Status: diagnostics.UtilizationStatus(percent / 100),
	}
}

func TestPerformanceRecommendations(t *testing.T) {
	source := &fakeSource{perf: &reports.PerformanceReport{SlowOperations: []reports.SlowOperation{
		{Service: "checkout", Operation: "POST /pay", Count: 4, AvgDurationMs: 2500, MaxDurationMs: 4000},
		{Service: "cart", Operation: "GET /cart", Count: 9, AvgDurationMs: 1200, MaxDurationMs: 1900},
		{Service: "search", Operation: "GET /q", Count: 2, AvgDurationMs: 2000, MaxDurationMs: 2000},
	}}}
	engine := NewEngine(source, zap.NewNop())

	report, err := engine.Recommend(context.Background(), AnalysisPerformance, "1h")
	require.NoError(t, err)

	assert.Equal(t, []int64{SlowThresholdMs}, source.thresholds, "the caller's threshold is never used")
	require.Len(t, report.Recommendations, 3)

	first := report.Recommendations[0]
	assert.Equal(t, Recommendation{
		Type:       TypePerformance,
		Priority:   PriorityHigh,
		Service:    "checkout",
		Operation:  "POST /pay",
		Issue:      "Slow operation: POST /pay averaging 2500ms",
		Suggestion: suggestionPerformance,
	}, first)
	assert.Equal(t, PriorityMedium, report.Recommendations[1].Priority)
	assert.Equal(t, PriorityMedium, report.Recommendations[2].Priority, "exactly 2000ms is not above the cutoff")
}

func TestErrorRecommendationsTopFive(t *testing.T) {
	entries := make([]reports.ErrorEntry, 0, 8)
	for i := 0; i < 8; i++ {
		entries = append(entries, reports.ErrorEntry{
			Service: fmt.Sprintf("svc-%d", i),
			Message: fmt.Sprintf("failure %d", i),
			Count:   int64(100 - i*10),
		})
	}
	source := &fakeSource{errs: &reports.ErrorReport{Errors: entries}}
	engine := NewEngine(source, zap.NewNop())

	report, err := engine.Recommend(context.Background(), AnalysisErrors, "15m")
	require.NoError(t, err)

	assert.Equal(t, []string{reports.DefaultSeverity}, source.severities)
	require.Len(t, report.Recommendations, 5)
	for i, rec := range report.Recommendations {
		assert.Equal(t, TypeError, rec.Type)
		assert.Equal(t, PriorityHigh, rec.Priority)
		assert.Equal(t, fmt.Sprintf("svc-%d", i), rec.Service)
		assert.Equal(t, fmt.Sprintf("Frequent error: failure %d (%d occurrences)", i, 100-i*10), rec.Issue)
	}
}

func TestResourceRecommendations(t *testing.T) {
	source := &fakeSource{resources: map[string]*reports.ResourceReport{
		"cpu": {
			Utilization: map[string]reports.Utilization{
				"host-b": util(97.5),
				"host-a": util(93),
				"host-c": util(85),
			},
			Hosts: []string{"host-b", "host-a", "host-c"},
		},
		"memory": {
			Utilization: map[string]reports.Utilization{
				"host-a": util(91.4),
				"host-d": util(50),
			},
			Hosts: []string{"host-a", "host-d"},
		},
	}}
	engine := NewEngine(source, zap.NewNop())

	report, err := engine.Recommend(context.Background(), AnalysisResources, "15m")
	require.NoError(t, err)

	require.Len(t, report.Recommendations, 3)
	assert.Equal(t, "host-b", report.Recommendations[0].Host)
	assert.Equal(t, "High CPU usage: 97.5%", report.Recommendations[0].Issue)
	assert.Equal(t, Recommendation{
		Type:       TypeResource,
		Priority:   PriorityHigh,
		Host:       "host-a",
		Resource:   "CPU",
		Issue:      "High CPU usage: 93.0%",
		Suggestion: suggestionCPU,
	}, report.Recommendations[1])
	assert.Equal(t, Recommendation{
		Type:       TypeResource,
		Priority:   PriorityHigh,
		Host:       "host-a",
		Resource:   "Memory",
		Issue:      "High memory usage: 91.4%",
		Suggestion: suggestionMemory,
	}, report.Recommendations[2])
}

func TestResourceRecommendationsPropagateError(t *testing.T) {
	source := &fakeSource{resourceErr: mcperrors.NewInvalidInput("bad")}
	engine := NewEngine(source, zap.NewNop())

	_, err := engine.Recommend(context.Background(), AnalysisResources, "15m")
	assert.Error(t, err)
}

func TestTraceRecommendationsEmpty(t *testing.T) {
	source := &fakeSource{
		perf: &reports.PerformanceReport{SlowOperations: []reports.SlowOperation{{Service: "x", AvgDurationMs: 9000}}},
		errs: &reports.ErrorReport{Errors: []reports.ErrorEntry{{Service: "x", Count: 99}}},
	}
	engine := NewEngine(source, zap.NewNop())

	report, err := engine.Recommend(context.Background(), AnalysisTraces, "15m")
	require.NoError(t, err)

	assert.Empty(t, report.Recommendations)
	assert.Zero(t, source.calls, "traces analysis issues no queries")

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"recommendations":[]`)
	assert.Contains(t, string(raw), `"analysis_type":"traces"`)
}

func TestUnknownAnalysisType(t *testing.T) {
	engine := NewEngine(&fakeSource{}, zap.NewNop())

	_, err := engine.Recommend(context.Background(), AnalysisType("latency"), "15m")
	require.Error(t, err)
	assert.Equal(t, mcperrors.CodeInvalidInput, mcperrors.CodeOf(err))
}

func TestParseAnalysisType(t *testing.T) {
	for _, at := range AnalysisTypes {
		got, err := ParseAnalysisType(string(at))
		require.NoError(t, err)
		assert.Equal(t, at, got)
	}

	_, err := ParseAnalysisType("Performance")
	assert.Error(t, err)
}

func TestScopeFieldsOmittedWhenEmpty(t *testing.T) {
	raw, err := json.Marshal(Recommendation{Type: TypeError, Priority: PriorityHigh, Service: "api", Issue: "i", Suggestion: "s"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","priority":"high","service":"api","issue":"i","suggestion":"s"}`, string(raw))
}
