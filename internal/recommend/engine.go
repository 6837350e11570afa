// Package recommend derives prioritized remediation suggestions from
// diagnostic reports.
package recommend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tareqmamari/elastic-otel-mcp/internal/diagnostics"
	mcperrors "github.com/tareqmamari/elastic-otel-mcp/internal/errors"
	"github.com/tareqmamari/elastic-otel-mcp/internal/reports"
)

// AnalysisType selects which reports feed the recommendations.
type AnalysisType string

// Analysis types
const (
	AnalysisPerformance AnalysisType = "performance"
	AnalysisErrors      AnalysisType = "errors"
	AnalysisResources   AnalysisType = "resources"
	AnalysisTraces      AnalysisType = "traces"
)

// AnalysisTypes lists the accepted analysis types in catalog order.
var AnalysisTypes = []AnalysisType{AnalysisPerformance, AnalysisErrors, AnalysisResources, AnalysisTraces}

// Recommendation categories and priorities
const (
	TypePerformance = "performance"
	TypeError       = "error"
	TypeResource    = "resource"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
)

// Tuning constants
const (
	SlowThresholdMs   = 500
	HighPriorityAvgMs = 2000
	TopErrors         = 5
)

const (
	suggestionPerformance = "Consider optimizing this operation, adding caching, or using async processing"
	suggestionError       = "Add proper error handling, validation, or fix the root cause"
	suggestionCPU         = "Consider scaling horizontally, optimizing CPU-intensive operations, or upgrading resources"
	suggestionMemory      = "Check for memory leaks, optimize memory usage, or increase available memory"
)

// Recommendation is one actionable finding. Scope fields are set only where
// they apply to the recommendation type.
type Recommendation struct {
	Type       string `json:"type"`
	Priority   string `json:"priority"`
	Service    string `json:"service,omitempty"`
	Operation  string `json:"operation,omitempty"`
	Host       string `json:"host,omitempty"`
	Resource   string `json:"resource,omitempty"`
	Issue      string `json:"issue"`
	Suggestion string `json:"suggestion"`
}

// Report is the result of one recommendation request.
type Report struct {
	Timestamp       string           `json:"timestamp"`
	AnalysisType    AnalysisType     `json:"analysis_type"`
	TimeRange       string           `json:"time_range"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Source is the subset of the report assembler the engine draws on.
type Source interface {
	ErrorAnalysis(ctx context.Context, timeRange, severity string) *reports.ErrorReport
	PerformanceIssues(ctx context.Context, timeRange string, thresholdMs int64) *reports.PerformanceReport
	ResourceUtilization(ctx context.Context, timeRange, resourceType string) (*reports.ResourceReport, error)
}

// Engine produces recommendations by reusing the report assembler.
type Engine struct {
	source Source
	logger *zap.Logger
	now    func() time.Time
}

// NewEngine creates an engine over source.
func NewEngine(source Source, logger *zap.Logger) *Engine {
	return &Engine{source: source, logger: logger, now: time.Now}
}

// ParseAnalysisType validates an analysis type argument.
func ParseAnalysisType(s string) (AnalysisType, error) {
	for _, t := range AnalysisTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", mcperrors.NewInvalidInput(fmt.Sprintf("invalid analysis_type %q", s)).
		WithSuggestion("Use one of: performance, errors, resources, traces")
}

// Recommend builds recommendations for analysisType over timeRange.
func (e *Engine) Recommend(ctx context.Context, analysisType AnalysisType, timeRange string) (*Report, error) {
	report := &Report{
		Timestamp:       e.now().Format(time.RFC3339),
		AnalysisType:    analysisType,
		TimeRange:       timeRange,
		Recommendations: []Recommendation{},
	}

	var (
		recs []Recommendation
		err  error
	)
	switch analysisType {
	case AnalysisPerformance:
		recs = e.performanceFindings(ctx, timeRange)
	case AnalysisErrors:
		recs = e.errorFindings(ctx, timeRange)
	case AnalysisResources:
		recs, err = e.resourceFindings(ctx, timeRange)
	case AnalysisTraces:
		// No trace-derived recommendations exist yet.
	default:
		_, err = ParseAnalysisType(string(analysisType))
	}
	if err != nil {
		return nil, err
	}

	report.Recommendations = append(report.Recommendations, recs...)

	e.logger.Debug("Recommendations generated",
		zap.String("analysis_type", string(analysisType)),
		zap.Int("count", len(report.Recommendations)),
	)

	return report, nil
}

func (e *Engine) performanceFindings(ctx context.Context, timeRange string) []Recommendation {
	perf := e.source.PerformanceIssues(ctx, timeRange, SlowThresholdMs)

	recs := make([]Recommendation, 0, len(perf.SlowOperations))
	for _, op := range perf.SlowOperations {
		priority := PriorityMedium
		if op.AvgDurationMs > HighPriorityAvgMs {
			priority = PriorityHigh
		}
		recs = append(recs, Recommendation{
			Type:       TypePerformance,
			Priority:   priority,
			Service:    op.Service,
			Operation:  op.Operation,
			Issue:      fmt.Sprintf("Slow operation: %s averaging %.0fms", op.Operation, op.AvgDurationMs),
			Suggestion: suggestionPerformance,
		})
	}
	return recs
}

func (e *Engine) errorFindings(ctx context.Context, timeRange string) []Recommendation {
	errs := e.source.ErrorAnalysis(ctx, timeRange, reports.DefaultSeverity)

	top := errs.Errors
	if len(top) > TopErrors {
		top = top[:TopErrors]
	}

	recs := make([]Recommendation, 0, len(top))
	for _, entry := range top {
		recs = append(recs, Recommendation{
			Type:       TypeError,
			Priority:   PriorityHigh,
			Service:    entry.Service,
			Issue:      fmt.Sprintf("Frequent error: %s (%d occurrences)", entry.Message, entry.Count),
			Suggestion: suggestionError,
		})
	}
	return recs
}

// resourceFindings fetches cpu and memory concurrently but always emits cpu
// findings before memory findings, hosts in backend order.
func (e *Engine) resourceFindings(ctx context.Context, timeRange string) ([]Recommendation, error) {
	kinds := []struct {
		resourceType string
		suggestion   string
	}{
		{"cpu", suggestionCPU},
		{"memory", suggestionMemory},
	}

	fetched := make([]*reports.ResourceReport, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, k := range kinds {
		g.Go(func() error {
			r, err := e.source.ResourceUtilization(gctx, timeRange, k.resourceType)
			fetched[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var recs []Recommendation
	for i, k := range kinds {
		label := diagnostics.ResourceLabel(k.resourceType)
		for _, host := range fetched[i].Hosts {
			u := fetched[i].Utilization[host]
			if u.Status != diagnostics.StatusCritical {
				continue
			}
			recs = append(recs, Recommendation{
				Type:       TypeResource,
				Priority:   PriorityHigh,
				Host:       host,
				Resource:   label,
				Issue:      fmt.Sprintf("High %s usage: %.1f%%", issueLabel(label), u.Value),
				Suggestion: k.suggestion,
			})
		}
	}
	return recs, nil
}

// issueLabel keeps acronyms as they are and lower-cases words, so issues
// read "High CPU usage" and "High memory usage".
func issueLabel(label string) string {
	if strings.ToUpper(label) == label {
		return label
	}
	return cases.Lower(language.English).String(label)
}
