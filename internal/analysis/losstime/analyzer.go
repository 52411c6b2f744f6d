package losstime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/analysis"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/cache"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/config"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/repository"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/sink"
)

// SkillName is the registry name of the loss-time analyzer
const SkillName = "loss_time"

func init() {
	analysis.RegisterAnalyzer(SkillName, NewAnalyzer)
}

// OptionsFromConfig translates configuration into engine options
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	opts.Pair.MaxDuration = cfg.MaxDuration
	opts.Pair.SameDay = cfg.SameDayOnly
	opts.Pair.Selection = Selection(cfg.PairSelection)
	opts.Classifier.CategoryMode = CategoryMode(cfg.CategoryMode)
	opts.Classifier.StrictCoverage = cfg.StrictCoverage
	opts.SensitiveTags = cfg.SensitiveTags
	opts.Workers = cfg.EngineWorkers
	return opts
}

// RunSummary is stored as the task's result summary
type RunSummary struct {
	RunID     string        `json:"runId"`
	Mode      string        `json:"mode"`
	StartDate string        `json:"startDate,omitempty"`
	EndDate   string        `json:"endDate,omitempty"`
	Events    int           `json:"events"`
	Persons   int           `json:"persons"`
	Records   int           `json:"records"`
	Disrupted int           `json:"disrupted"`
	Replaced  int64         `json:"replaced"`
	Anomalies AnomalyCounts `json:"anomalies"`
	SinkError string        `json:"sinkError,omitempty"`
	Duration  string        `json:"duration"`
}

// Analyzer runs the loss-time engine over stored events and replaces the
// stored intervals of the analysed date range.
type Analyzer struct {
	*analysis.BaseAnalyzer
	engine    *Engine
	loader    *analysis.BatchLoader
	intervals *repository.IntervalRepository
	sink      sink.Sink
	cache     *cache.ReportCache
	loc       *time.Location
	sameDay   bool
	maxDur    time.Duration
}

// NewAnalyzer builds the analyzer. An invalid schedule or option set is
// reported here, before any task runs.
func NewAnalyzer(deps analysis.Deps) (analysis.Analyzer, error) {
	opts := OptionsFromConfig(deps.Config)
	engine, err := NewEngine(deps.Schedule, opts)
	if err != nil {
		return nil, err
	}

	loc := time.Local
	if deps.Config != nil {
		if loc, err = deps.Config.Location(); err != nil {
			return nil, err
		}
	}
	base := analysis.NewBaseAnalyzer(deps, SkillName)
	events := repository.NewEventRepository(deps.DB, loc)

	return &Analyzer{
		BaseAnalyzer: base,
		engine:       engine,
		loader:       analysis.NewBatchLoader(events, base.Tasks, 5000),
		intervals:    repository.NewIntervalRepository(deps.DB, loc),
		sink:         deps.Sink,
		cache:        deps.Cache,
		loc:          loc,
		sameDay:      opts.Pair.SameDay,
		maxDur:       opts.Pair.MaxDuration,
	}, nil
}

// Analyze loads the events of the requested range, classifies them and
// stores the resulting intervals.
func (a *Analyzer) Analyze(ctx context.Context, taskID int64, mode string) error {
	started := time.Now()
	a.Logger.Info("starting analysis", "task_id", taskID, "mode", mode)

	if err := a.Tasks.MarkAsRunning(taskID); err != nil {
		return err
	}

	task, err := a.Tasks.GetByID(taskID)
	if err != nil {
		return err
	}
	var params models.AnalysisParams
	if task != nil && task.ParamsJSON != "" {
		if err := json.Unmarshal([]byte(task.ParamsJSON), &params); err != nil {
			return fmt.Errorf("invalid task params: %w", err)
		}
	}

	startDate, endDate, err := a.resolveRange(ctx, mode, params)
	if err != nil {
		return err
	}
	tr, err := a.timeRange(startDate, endDate)
	if err != nil {
		return err
	}

	events, err := a.loader.Load(ctx, taskID, tr)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}

	res := a.engine.Run(events, events)

	runID := uuid.NewString()
	records := make([]models.ClassifiedInterval, 0, len(res.Records))
	disrupted := 0
	for _, rec := range res.Records {
		if (startDate != "" && rec.Date < startDate) || (endDate != "" && rec.Date > endDate) {
			continue
		}
		rec.RunID = runID
		if rec.Disrupted {
			disrupted++
		}
		records = append(records, rec)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	replaced, err := a.intervals.ReplaceRange(ctx, startDate, endDate, records)
	if err != nil {
		return err
	}

	summary := RunSummary{
		RunID:     runID,
		Mode:      mode,
		StartDate: startDate,
		EndDate:   endDate,
		Events:    res.Events,
		Persons:   res.Persons,
		Records:   len(records),
		Disrupted: disrupted,
		Replaced:  replaced,
		Anomalies: res.Anomalies,
	}

	if a.sink != nil && len(records) > 0 {
		if err := a.sink.Write(ctx, records); err != nil {
			a.Logger.Warn("sink write failed", "task_id", taskID, "error", err)
			summary.SinkError = err.Error()
		}
	}
	if err := a.cache.Invalidate(ctx); err != nil {
		a.Logger.Warn("cache invalidation failed", "error", err)
	}

	summary.Duration = time.Since(started).Round(time.Millisecond).String()
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode result summary: %w", err)
	}
	if err := a.Tasks.MarkAsCompleted(taskID, string(payload)); err != nil {
		return err
	}

	a.Logger.Info("analysis completed",
		"task_id", taskID,
		"events", res.Events,
		"records", len(records),
		"anomalies", res.Anomalies.Total(),
		"unmatched_in", res.Anomalies.UnmatchedIn,
		"disrupted", disrupted,
	)
	return nil
}

// resolveRange picks the dates to analyse. Explicit params win. Otherwise a
// full run covers everything and an incremental run restarts from the latest
// stored date, which may have been incomplete.
func (a *Analyzer) resolveRange(ctx context.Context, mode string, params models.AnalysisParams) (string, string, error) {
	for _, d := range []string{params.StartDate, params.EndDate} {
		if d == "" {
			continue
		}
		if _, err := time.ParseInLocation(models.DateLayout, d, a.loc); err != nil {
			return "", "", fmt.Errorf("invalid date %q: %w", d, err)
		}
	}
	if params.StartDate != "" && params.EndDate != "" && params.EndDate < params.StartDate {
		return "", "", fmt.Errorf("end date %s is before start date %s", params.EndDate, params.StartDate)
	}
	if params.StartDate != "" || params.EndDate != "" || mode == analysis.ModeFull {
		return params.StartDate, params.EndDate, nil
	}

	latest, err := a.intervals.LatestDate(ctx)
	if err != nil {
		return "", "", err
	}
	return latest, "", nil
}

// timeRange converts inclusive dates into event timestamps. When pairing is
// not limited to one day, events up to MaxDuration past the end are included
// so late OUTs can still find their IN.
func (a *Analyzer) timeRange(startDate, endDate string) (repository.TimeRange, error) {
	var tr repository.TimeRange
	if startDate != "" {
		from, err := time.ParseInLocation(models.DateLayout, startDate, a.loc)
		if err != nil {
			return tr, err
		}
		tr.From = from
	}
	if endDate != "" {
		end, err := time.ParseInLocation(models.DateLayout, endDate, a.loc)
		if err != nil {
			return tr, err
		}
		tr.To = end.AddDate(0, 0, 1)
		if !a.sameDay {
			tr.To = tr.To.Add(a.maxDur)
		}
	}
	return tr, nil
}
