// Package productivity builds completion reports over a range of days from
// cached per-day "done items" data.
package productivity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/christopherklint97/marvinr/internal/completion"
	"github.com/christopherklint97/marvinr/internal/marvin"
)

const DefaultTopProjects = 5

type Reporter struct {
	source      Source
	cache       *completion.Cache
	aggregator  *Aggregator
	recorder    Recorder
	defaultDays int
	maxDays     int
	topN        int
	logger      *slog.Logger
}

type ReporterConfig struct {
	Source      Source
	Cache       *completion.Cache
	Recorder    Recorder // optional
	DefaultDays int
	MaxDays     int // longest accepted range; defaults to DefaultMaxDays
	TopProjects int
	Logger      *slog.Logger
}

func NewReporter(cfg ReporterConfig) *Reporter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.DefaultDays <= 0 {
		cfg.DefaultDays = DefaultDays
	}
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = DefaultMaxDays
	}
	if cfg.TopProjects <= 0 {
		cfg.TopProjects = DefaultTopProjects
	}
	return &Reporter{
		source:      cfg.Source,
		cache:       cfg.Cache,
		aggregator:  NewAggregator(cfg.Cache, logger),
		recorder:    cfg.Recorder,
		defaultDays: cfg.DefaultDays,
		maxDays:     cfg.MaxDays,
		topN:        cfg.TopProjects,
		logger:      logger,
	}
}

func (r *Reporter) Cache() *completion.Cache { return r.cache }

// BuildReport never fails outright: upstream problems degrade the report and
// anything worse comes back as Outcome.Failure.
func (r *Reporter) BuildReport(ctx context.Context, req RangeRequest) Outcome {
	started := time.Now()
	summary, err := r.build(ctx, req)

	var out Outcome
	if err != nil {
		r.logger.Error("building productivity report", "error", err, "days", req.Days, "start_date", req.StartDate, "end_date", req.EndDate)
		out = Outcome{Failure: NewErrorReport(err)}
	} else {
		r.logger.Info("productivity report built",
			"start_date", summary.StartDate,
			"end_date", summary.EndDate,
			"total_completed", summary.TotalCompleted,
			"api_calls", summary.apiCalls,
			"elapsed", time.Since(started))
		out = Outcome{Report: summary}
	}

	r.record(ctx, started, out)
	return out
}

func (r *Reporter) build(ctx context.Context, req RangeRequest) (*RangeSummary, error) {
	if req.StartDate == "" && req.Days == 0 {
		req.Days = r.defaultDays
	}

	rng, err := Expand(req, r.cache.Now(), r.maxDays)
	if err != nil {
		return nil, fmt.Errorf("expanding date range: %w", err)
	}

	s := NewRangeSummary()
	s.StartDate = completion.DateKey(rng.Start)
	s.EndDate = completion.DateKey(rng.End)
	s.TotalDays = len(rng.Dates)

	r.aggregator.Accumulate(ctx, rng.Dates, r.source.GetDoneItems, s)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("aggregating completions: %w", err)
	}

	ComputeStats(s)

	s.TopProjects = rankProjects(s, r.topN)
	r.resolveProjectNames(ctx, s)

	stats := r.cache.Stats()
	s.CacheEfficiency = CacheEfficiency{
		CachedDates:      stats.CachedDates,
		TotalCachedItems: stats.TotalCachedItems,
		TotalAPICalls:    s.apiCalls,
	}
	return s, nil
}

// resolveProjectNames is best effort: if projects cannot be listed the raw
// top projects stay and the named list is left empty.
func (r *Reporter) resolveProjectNames(ctx context.Context, s *RangeSummary) {
	projects, err := r.source.GetProjects(ctx)
	if err != nil {
		r.logger.Warn("resolving project names failed", "error", err)
		return
	}

	for _, p := range projects {
		s.ProjectNames[p.ID] = p.Title
	}

	for _, pc := range s.TopProjects {
		s.TopProjectsWithNames = append(s.TopProjectsWithNames, NamedProjectCount{
			ProjectID:   pc.ProjectID,
			ProjectName: projectName(s.ProjectNames, pc.ProjectID),
			Count:       pc.Count,
		})
	}
}

func projectName(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	if id == UnassignedProject {
		return "Unassigned"
	}
	return id
}

func (r *Reporter) record(ctx context.Context, at time.Time, out Outcome) {
	if r.recorder == nil {
		return
	}
	s := out.Summary()
	run := Run{
		RequestedAt:    at,
		StartDate:      s.StartDate,
		EndDate:        s.EndDate,
		TotalDays:      s.TotalDays,
		TotalCompleted: s.TotalCompleted,
		APICalls:       s.apiCalls,
	}
	if out.Failure != nil {
		run.Error = out.Failure.Error
	}
	// The request context may already be done; history is written regardless.
	if err := r.recorder.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		r.logger.Warn("recording report run", "error", err)
	}
}

// CompletedOn returns one day's completed items through the cache.
func (r *Reporter) CompletedOn(ctx context.Context, date time.Time) ([]marvin.Item, error) {
	items, _, err := r.cache.Get(ctx, date, r.source.GetDoneItems)
	if err != nil {
		return nil, fmt.Errorf("getting completed items for %s: %w", completion.DateKey(date), err)
	}
	return items, nil
}
