package productivity

import "sort"

// ComputeStats fills the most/least productive days and the daily average.
// Ties keep range order: the first minimum and the last maximum win.
func ComputeStats(s *RangeSummary) {
	if len(s.DailyBreakdown) == 0 {
		s.MostProductiveDay = nil
		s.LeastProductiveDay = nil
		s.AveragePerDay = 0
		return
	}

	days := make([]DayBreakdown, len(s.DailyBreakdown))
	copy(days, s.DailyBreakdown)
	sort.SliceStable(days, func(i, j int) bool { return days[i].Count < days[j].Count })

	least, most := days[0], days[len(days)-1]
	s.LeastProductiveDay = &DayStat{Date: least.Date, Count: least.Count, Weekday: least.Weekday}
	s.MostProductiveDay = &DayStat{Date: most.Date, Count: most.Count, Weekday: most.Weekday}
	s.AveragePerDay = float64(s.TotalCompleted) / float64(len(s.DailyBreakdown))
}

// rankProjects orders projects by completions, highest first, with equal
// counts ordered by project id.
func rankProjects(s *RangeSummary, limit int) []ProjectCount {
	ranked := make([]ProjectCount, 0, len(s.projectOrder))
	for _, id := range s.projectOrder {
		ranked = append(ranked, ProjectCount{ProjectID: id, Count: s.ProjectBreakdown[id]})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].ProjectID < ranked[j].ProjectID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
