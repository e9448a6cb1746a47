package productivity

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/christopherklint97/marvinr/internal/completion"
	"github.com/christopherklint97/marvinr/internal/marvin"
)

// dayResult is the outcome of loading one day: either items or err.
type dayResult struct {
	date    time.Time
	items   []marvin.Item
	fetched bool
	err     error
}

type Aggregator struct {
	cache  *completion.Cache
	logger *slog.Logger
}

func NewAggregator(cache *completion.Cache, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Aggregator{cache: cache, logger: logger}
}

// Accumulate loads every date through the cache and folds the results into s.
// A failed day is recorded with zero completions; it never stops the others.
func (a *Aggregator) Accumulate(ctx context.Context, dates []time.Time, fetch completion.FetchFunc, s *RangeSummary) {
	todayKey := completion.DateKey(a.cache.Now())
	for _, date := range dates {
		res := a.load(ctx, date, fetch)
		if res.fetched {
			s.apiCalls++
		}
		s.fold(res, todayKey)
	}
}

func (a *Aggregator) load(ctx context.Context, date time.Time, fetch completion.FetchFunc) dayResult {
	items, fetched, err := a.cache.Get(ctx, date, fetch)
	if err != nil {
		a.logger.Warn("fetching completed items failed", "date", completion.DateKey(date), "error", err)
	}
	return dayResult{date: date, items: items, fetched: fetched, err: err}
}

func (s *RangeSummary) fold(res dayResult, todayKey string) {
	key := completion.DateKey(res.date)
	day := DayBreakdown{
		Date:    key,
		Weekday: res.date.Weekday().String(),
		IsToday: key == todayKey,
		Items:   []marvin.Item{},
	}

	if res.err != nil {
		day.FetchFail = res.err.Error()
		s.DailyBreakdown = append(s.DailyBreakdown, day)
		return
	}

	if res.items != nil {
		day.Items = res.items
	}
	day.Count = len(res.items)
	s.DailyBreakdown = append(s.DailyBreakdown, day)
	s.TotalCompleted += day.Count

	for _, item := range res.items {
		s.CompletedItems = append(s.CompletedItems, item)
		s.ByDate[key] = append(s.ByDate[key], item)

		project := item.ParentID()
		if project == "" {
			project = UnassignedProject
		}
		if _, seen := s.ProjectBreakdown[project]; !seen {
			s.projectOrder = append(s.projectOrder, project)
		}
		s.ProjectBreakdown[project]++
		s.ByProject[project] = append(s.ByProject[project], item)
	}
}
