// Package services wires the analysis pipeline together behind one facade:
// dataset loading, filtering, hotspot detection, trend aggregation,
// forecasting and export, all scoped to a working session.
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/crimelens/crimelens-engine/internal/forecast"
	"github.com/crimelens/crimelens-engine/internal/hotspot"
	"github.com/crimelens/crimelens-engine/internal/loader"
	"github.com/crimelens/crimelens-engine/internal/metrics"
	"github.com/crimelens/crimelens-engine/internal/models"
	"github.com/crimelens/crimelens-engine/internal/report"
	"github.com/crimelens/crimelens-engine/internal/session"
	"github.com/crimelens/crimelens-engine/internal/trend"
	"github.com/crimelens/crimelens-engine/internal/utils"
)

// Service errors surfaced to the transport layer.
var (
	ErrNoDataset       = errors.New("no dataset loaded in this session")
	ErrNoClustering    = errors.New("no clustering has been run in this session")
	ErrHorizonTooLarge = errors.New("forecast horizon exceeds the configured maximum")
)

// ActivityLogger records user actions for the audit trail.
type ActivityLogger interface {
	LogActivity(ctx context.Context, username, action, detail string) error
}

// AnalysisService orchestrates the hotspot analysis pipeline.
type AnalysisService struct {
	logger     *slog.Logger
	loader     *loader.Loader
	sessions   *session.Manager
	activity   ActivityLogger
	latencies  *utils.LatencyTracker
	maxHorizon int
}

// NewAnalysisService constructs the analysis facade. activity may be nil when
// auditing is disabled.
func NewAnalysisService(logger *slog.Logger, ldr *loader.Loader, sessions *session.Manager, activity ActivityLogger, maxHorizon int) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if maxHorizon <= 0 {
		maxHorizon = 90
	}
	return &AnalysisService{
		logger:     logger,
		loader:     ldr,
		sessions:   sessions,
		activity:   activity,
		latencies:  utils.NewLatencyTracker(1024),
		maxHorizon: maxHorizon,
	}
}

// Sessions exposes the session manager for transport-level auth checks.
func (s *AnalysisService) Sessions() *session.Manager {
	return s.sessions
}

// LoadDataset parses an upload into the session, replacing any previous
// dataset and everything derived from it. On failure the session keeps its
// previous state.
func (s *AnalysisService) LoadDataset(ctx context.Context, sessionID, name string, r io.Reader) (models.Dataset, error) {
	state, err := s.sessions.Get(sessionID)
	if err != nil {
		return models.Dataset{}, err
	}

	dataset, err := s.loader.Load(ctx, name, r)
	if err != nil {
		metrics.ObserveDatasetLoad(metrics.OutcomeError)
		return models.Dataset{}, utils.NewAppError("LoadDataset", "parse upload", err)
	}
	metrics.ObserveDatasetLoad(metrics.OutcomeSuccess)

	if err := s.sessions.Update(sessionID, func(st *session.State) {
		st.SetDataset(dataset)
	}); err != nil {
		return models.Dataset{}, err
	}

	s.logActivity(ctx, state.Username, "upload_dataset",
		fmt.Sprintf("%s: %d observations, %d dropped", name, len(dataset.Observations), dataset.Dropped))
	return dataset, nil
}

// SetFilter installs a category/date filter over the loaded dataset.
func (s *AnalysisService) SetFilter(ctx context.Context, sessionID string, filter models.Filter) (int, error) {
	state, err := s.sessions.Get(sessionID)
	if err != nil {
		return 0, err
	}
	if state.Dataset == nil {
		return 0, ErrNoDataset
	}

	matched := len(filter.Apply(state.Dataset.Observations))
	if err := s.sessions.Update(sessionID, func(st *session.State) {
		st.SetFilter(filter)
	}); err != nil {
		return 0, err
	}

	s.logActivity(ctx, state.Username, "set_filter", fmt.Sprintf("%d observations match", matched))
	return matched, nil
}

// Categories lists the distinct crime categories in the loaded dataset.
func (s *AnalysisService) Categories(sessionID string) ([]string, error) {
	state, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if state.Dataset == nil {
		return nil, ErrNoDataset
	}
	return models.Categories(state.Dataset.Observations), nil
}

// DetectHotspots clusters the current selection and stores the result in the
// session. A failed run leaves the previous clustering intact.
func (s *AnalysisService) DetectHotspots(ctx context.Context, sessionID string, opts hotspot.Options) (models.ClusterAssignment, []models.ClusterSummary, error) {
	state, err := s.sessions.Get(sessionID)
	if err != nil {
		return models.ClusterAssignment{}, nil, err
	}
	if state.Dataset == nil {
		return models.ClusterAssignment{}, nil, ErrNoDataset
	}

	observations := state.FilteredObservations()

	start := time.Now()
	assignment, err := hotspot.Detect(observations, opts)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveDetection(opts.Algorithm, duration, metrics.OutcomeError)
		return models.ClusterAssignment{}, nil, utils.NewAppError("DetectHotspots", "cluster observations", err)
	}
	metrics.ObserveDetection(opts.Algorithm, duration, metrics.OutcomeSuccess)
	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("detection latency",
			slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}

	summaries := hotspot.Summaries(assignment)
	if err := s.sessions.Update(sessionID, func(st *session.State) {
		st.SetAssignment(assignment, summaries)
	}); err != nil {
		return models.ClusterAssignment{}, nil, err
	}

	s.logActivity(ctx, state.Username, "detect_hotspots",
		fmt.Sprintf("%s: %d clusters, %d noise", opts.Algorithm, len(summaries), assignment.NoiseCount()))
	return assignment, summaries, nil
}

// Summaries returns the per-cluster summaries of the stored clustering.
func (s *AnalysisService) Summaries(sessionID string) ([]models.ClusterSummary, error) {
	state, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if state.Assignment == nil {
		return nil, ErrNoClustering
	}
	return state.Summaries, nil
}

// SeriesForCluster builds the zero-filled daily incident series for one
// cluster of the stored clustering.
func (s *AnalysisService) SeriesForCluster(sessionID string, label int) (models.DailySeries, error) {
	state, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if state.Assignment == nil {
		return nil, ErrNoClustering
	}

	series, err := trend.DailySeries(*state.Assignment, label)
	if err != nil {
		return nil, utils.NewAppError("SeriesForCluster", "aggregate daily series", err)
	}

	if err := s.sessions.Update(sessionID, func(st *session.State) {
		st.LastSeries = &series
		st.ReportPDF = nil
	}); err != nil {
		return nil, err
	}
	return series, nil
}

// ForecastCluster fits a seasonal model to a cluster's daily series and
// returns the forecast. A series that is too short or fails to fit yields an
// unavailable result, not an error.
func (s *AnalysisService) ForecastCluster(ctx context.Context, sessionID string, label, horizon int) (models.ForecastResult, error) {
	state, err := s.sessions.Get(sessionID)
	if err != nil {
		return models.ForecastResult{}, err
	}
	if state.Assignment == nil {
		return models.ForecastResult{}, ErrNoClustering
	}
	if horizon > s.maxHorizon {
		return models.ForecastResult{}, fmt.Errorf("%w: %d > %d", ErrHorizonTooLarge, horizon, s.maxHorizon)
	}

	series, err := trend.DailySeries(*state.Assignment, label)
	if err != nil {
		return models.ForecastResult{}, err
	}

	start := time.Now()
	result := forecast.Forecast(series, label, horizon)
	duration := time.Since(start)

	outcome := metrics.OutcomeSuccess
	if !result.Available {
		outcome = metrics.OutcomeUnavailable
	}
	metrics.ObserveForecast(duration, outcome)

	if err := s.sessions.Update(sessionID, func(st *session.State) {
		st.LastSeries = &series
		st.LastForecast = &result
		st.ReportPDF = nil
	}); err != nil {
		return models.ForecastResult{}, err
	}

	s.logActivity(ctx, state.Username, "forecast",
		fmt.Sprintf("cluster %d, horizon %d, available=%t", label, horizon, result.Available))
	return result, nil
}

// ExportCSV writes the stored clustering as a labeled CSV table.
func (s *AnalysisService) ExportCSV(ctx context.Context, sessionID string, w io.Writer) error {
	state, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	if state.Assignment == nil {
		return ErrNoClustering
	}

	if err := report.WriteCSV(w, *state.Assignment); err != nil {
		return err
	}
	s.logActivity(ctx, state.Username, "export_csv",
		fmt.Sprintf("%d observations", len(state.Assignment.Observations)))
	return nil
}

// BuildReport renders the PDF report for the session's current results. The
// rendered bytes are kept in the session so repeated downloads are free.
func (s *AnalysisService) BuildReport(ctx context.Context, sessionID string, w io.Writer) error {
	state, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	if state.Dataset == nil {
		return ErrNoDataset
	}
	if state.Assignment == nil {
		return ErrNoClustering
	}

	if state.ReportPDF != nil {
		_, err := w.Write(state.ReportPDF)
		return err
	}

	data := report.Data{
		Username:     state.Username,
		DatasetName:  state.Dataset.Name,
		GeneratedAt:  time.Now().UTC(),
		Observations: len(state.Dataset.Observations),
		Dropped:      state.Dataset.Dropped,
		Algorithm:    state.Assignment.Algorithm,
		Summaries:    state.Summaries,
		Noise:        state.Assignment.NoiseCount(),
		Forecast:     state.LastForecast,
	}
	data.RangeStart, data.RangeEnd = state.Dataset.DateRange()
	data.Hourly = trend.HourlyProfile(state.Assignment.Observations)
	data.Weekday = trend.WeekdayProfile(state.Assignment.Observations)
	if state.LastSeries != nil {
		data.Series = *state.LastSeries
		if state.LastForecast != nil {
			data.SeriesLabel = state.LastForecast.Label
		}
	}

	var buf bytes.Buffer
	if err := report.BuildPDF(&buf, data); err != nil {
		return err
	}

	if err := s.sessions.Update(sessionID, func(st *session.State) {
		st.ReportPDF = buf.Bytes()
	}); err != nil {
		return err
	}

	s.logActivity(ctx, state.Username, "export_report", state.Dataset.Name)
	_, err = w.Write(buf.Bytes())
	return err
}

func (s *AnalysisService) logActivity(ctx context.Context, username, action, detail string) {
	if s.activity == nil || username == "" {
		return
	}
	if err := s.activity.LogActivity(ctx, username, action, detail); err != nil {
		s.logger.Warn("activity log write failed",
			slog.String("action", action), slog.Any("error", err))
	}
}
