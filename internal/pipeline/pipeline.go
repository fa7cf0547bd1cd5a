// Package pipeline sequences an extraction run: a session is opened, each
// stage transforms the shared state, and the session is closed complete or
// incomplete depending on the outcome.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"teacli/internal/storage"
	"teacli/pkg/contracts/domain"
)

var (
	stageRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "teacli",
		Subsystem: "pipeline",
		Name:      "stage_runs_total",
		Help:      "Stage executions by stage ID and outcome.",
	}, []string{"stage", "outcome"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "teacli",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Stage execution time by stage ID.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	sessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "teacli",
		Subsystem: "pipeline",
		Name:      "sessions_total",
		Help:      "Extraction sessions by final status.",
	}, []string{"status"})
)

// State is the shared working set a run accumulates. Stages append to it;
// the runner persists it.
type State struct {
	Session        domain.ExtractionSession
	Streams        []domain.StreamRecord
	Equipment      []domain.EquipmentRecord
	HeatExchangers []domain.HeatExchangerRecord
	Warnings       []string
}

// Warn records a non-fatal finding on the run.
func (s *State) Warn(format string, args ...interface{}) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// Summary aggregates the state into the counts stored on session completion.
func (s *State) Summary() domain.SessionSummary {
	summary := domain.SessionSummary{
		StreamCount:    len(s.Streams),
		EquipmentCount: len(s.Equipment),
		HexCount:       len(s.HeatExchangers),
	}
	for _, hx := range s.HeatExchangers {
		if hx.DutyKW != nil {
			summary.TotalDutyKW += *hx.DutyKW
		}
		if hx.AreaM2 != nil {
			summary.TotalAreaM2 += *hx.AreaM2
		}
	}
	return summary
}

// Stage is one step of an extraction run. A returned error aborts the run
// and marks the session incomplete.
type Stage interface {
	ID() string
	Name() string
	Execute(ctx context.Context, state *State) error
}

// Runner drives the stages against the store.
type Runner struct {
	store  *storage.Store
	stages []Stage
	logger *slog.Logger
}

func NewRunner(store *storage.Store, logger *slog.Logger, stages ...Stage) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{store: store, stages: stages, logger: logger}
}

// Run opens a session, executes every stage in order and persists the
// outcome. Stage failures are recorded on the session before the error is
// returned; persisted records from earlier stages stay available.
func (r *Runner) Run(ctx context.Context, session domain.ExtractionSession) (*State, error) {
	state := &State{Session: session}

	if err := r.store.BeginSession(ctx, session); err != nil {
		return nil, err
	}
	r.logger.Info("extraction session started",
		slog.String("session", session.ID),
		slog.String("sim_file", session.SimFilePath))

	for _, stage := range r.stages {
		start := time.Now()
		err := stage.Execute(ctx, state)
		stageDuration.WithLabelValues(stage.ID()).Observe(time.Since(start).Seconds())

		if err != nil {
			stageRuns.WithLabelValues(stage.ID(), "error").Inc()
			sessionsTotal.WithLabelValues(string(domain.SessionIncomplete)).Inc()
			note := fmt.Sprintf("stage %s failed: %v", stage.ID(), err)
			if markErr := r.store.MarkIncomplete(ctx, session.ID, note); markErr != nil {
				r.logger.Error("marking session incomplete failed",
					slog.String("session", session.ID),
					slog.String("error", markErr.Error()))
			}
			return state, fmt.Errorf("stage %s (%s): %w", stage.ID(), stage.Name(), err)
		}

		stageRuns.WithLabelValues(stage.ID(), "ok").Inc()
		r.logger.Info("stage finished",
			slog.String("session", session.ID),
			slog.String("stage", stage.ID()),
			slog.Duration("elapsed", time.Since(start)))
	}

	if err := r.persist(ctx, state); err != nil {
		sessionsTotal.WithLabelValues(string(domain.SessionIncomplete)).Inc()
		if markErr := r.store.MarkIncomplete(ctx, session.ID, fmt.Sprintf("persisting records failed: %v", err)); markErr != nil {
			r.logger.Error("marking session incomplete failed",
				slog.String("session", session.ID),
				slog.String("error", markErr.Error()))
		}
		return state, err
	}

	if err := r.store.CompleteSession(ctx, session.ID, state.Summary()); err != nil {
		return state, err
	}
	sessionsTotal.WithLabelValues(string(domain.SessionComplete)).Inc()
	r.logger.Info("extraction session complete",
		slog.String("session", session.ID),
		slog.Int("streams", len(state.Streams)),
		slog.Int("equipment", len(state.Equipment)),
		slog.Int("heat_exchangers", len(state.HeatExchangers)),
		slog.Int("warnings", len(state.Warnings)))
	return state, nil
}

func (r *Runner) persist(ctx context.Context, state *State) error {
	if err := r.store.WriteStreams(ctx, state.Session.ID, state.Streams); err != nil {
		return err
	}
	if err := r.store.WriteEquipment(ctx, state.Session.ID, state.Equipment); err != nil {
		return err
	}
	return r.store.WriteHeatExchangers(ctx, state.Session.ID, state.HeatExchangers)
}

// StageFunc adapts a function to the Stage interface.
type StageFunc struct {
	StageID   string
	StageName string
	Fn        func(ctx context.Context, state *State) error
}

func (s StageFunc) ID() string   { return s.StageID }
func (s StageFunc) Name() string { return s.StageName }
func (s StageFunc) Execute(ctx context.Context, state *State) error {
	return s.Fn(ctx, state)
}
