package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/philippe-ths/ai-running-coach/pkg/observability"
	"github.com/philippe-ths/ai-running-coach/pkg/store"
	"github.com/philippe-ths/ai-running-coach/pkg/types"
)

// historyWindow is how many prior activities feed the classifier.
const historyWindow = 20

// effortHistoryWindow is how many recent effort scores feed load-spike
// detection.
const effortHistoryWindow = 7

// Engine runs the full processing pipeline for one activity and upserts
// the derived-metric row. Steps are strictly sequential; any failure
// aborts the run without writing a partial row.
type Engine struct {
	store  *store.Store
	logger *slog.Logger
}

// NewEngine builds the orchestrator over the store.
func NewEngine(st *store.Store, logger *slog.Logger) *Engine {
	return &Engine{store: st, logger: logger.With("component", "processing")}
}

// Process derives and persists the metric row for the activity. The
// optional plan drives workout matching when the session is an interval
// workout.
func (e *Engine) Process(ctx context.Context, activityID int64, plan *types.PlannedWorkout) (*store.DerivedMetric, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	activity, err := e.store.GetActivity(activityID)
	if err != nil {
		observability.ActivitiesProcessedTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("loading activity %d: %w", activityID, err)
	}

	history, err := e.store.RecentActivitiesBefore(activity.UserID, activity.StartDate, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	streams, err := e.store.GetStreams(activityID)
	if err != nil {
		return nil, fmt.Errorf("loading streams: %w", err)
	}

	checkIn, err := e.store.GetCheckIn(activityID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("loading check-in: %w", err)
	}

	var profile *store.UserProfile
	profile, err = e.store.GetProfile(activity.UserID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("loading profile: %w", err)
		}
		profile = nil
	}
	zoneMaxHR := profile.EffectiveMaxHR()

	metric := &store.DerivedMetric{
		ActivityID: activityID,
		// Effort is anchored to the session's own recorded max HR; the
		// profile's calibrated max only scales the zone boundaries.
		EffortScore:     EffortScore(activity.MovingTimeS, activity.AverageHR, activity.MaxHR),
		TimeInZones:     TimeInZones(streams.Heartrate, zoneMaxHR),
		PaceVariability: PaceVariability(streams.Velocity),
		HRDrift:         HRDrift(streams.Heartrate, streams.Velocity),
	}
	metric.EfficiencyAnalysis = AnalyzeEfficiency(streams.Heartrate, streams.Velocity)
	metric.StopsAnalysis = AnalyzeStops(streams)

	metric.ActivityClass = Classify(activity, history)

	// Interval detection only runs for sessions classified as intervals.
	if metric.ActivityClass == types.ClassIntervals {
		metric.IntervalStructure = DetectIntervals(streams)
		metric.WorkoutMatch = MatchWorkout(metric.IntervalStructure, plan)
		metric.IntervalKPIs = BuildIntervalKPIs(metric.IntervalStructure, metric.TimeInZones, profile.ZonesCalibrated())
	}

	recentEfforts, err := e.store.RecentEffortScores(activity.UserID, activity.StartDate, effortHistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("loading effort history: %w", err)
	}

	metric.Flags = GenerateFlags(FlagInputs{
		Activity:      activity,
		Class:         metric.ActivityClass,
		MaxHR:         activity.MaxHR,
		HRDrift:       metric.HRDrift,
		PaceVariation: metric.PaceVariability,
		EffortScore:   metric.EffortScore,
		RecentEfforts: recentEfforts,
		CheckIn:       checkIn,
	})

	window, err := e.store.ListWithMetricsBetween(activity.UserID,
		activity.StartDate.Add(-7*24*time.Hour), activity.StartDate)
	if err != nil {
		return nil, fmt.Errorf("loading training window: %w", err)
	}
	trainingContext := BuildTrainingContext(activity.StartDate, window)

	metric.RiskScore, metric.RiskLevel, metric.RiskReasons = ScoreRisk(metric.Flags, checkIn, trainingContext)

	metric.Confidence, metric.ConfidenceReasons = ComputeConfidence(ConfidenceInputs{
		Activity:  activity,
		Streams:   streams,
		CheckIn:   checkIn,
		Class:     metric.ActivityClass,
		Structure: metric.IntervalStructure,
		Match:     metric.WorkoutMatch,
	})

	if err := e.store.UpsertDerivedMetric(metric); err != nil {
		observability.ActivitiesProcessedTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	observability.ActivitiesProcessedTotal.WithLabelValues("ok").Inc()
	e.logger.Info("activity processed",
		"activity_id", activityID,
		"class", metric.ActivityClass,
		"effort", metric.EffortScore,
		"risk", metric.RiskLevel,
		"confidence", metric.Confidence)
	return metric, nil
}

// TrainingContextFor recomputes the 7-day training context for an
// activity. Used by the context pack builder.
func (e *Engine) TrainingContextFor(activity *store.Activity) (*types.TrainingContext, error) {
	window, err := e.store.ListWithMetricsBetween(activity.UserID,
		activity.StartDate.Add(-7*24*time.Hour), activity.StartDate)
	if err != nil {
		return nil, err
	}
	return BuildTrainingContext(activity.StartDate, window), nil
}
