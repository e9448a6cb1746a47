package productivity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaryWithCounts(counts ...int) *RangeSummary {
	s := NewRangeSummary()
	for i, c := range counts {
		s.DailyBreakdown = append(s.DailyBreakdown, DayBreakdown{
			Date:    []string{"d1", "d2", "d3", "d4", "d5"}[i],
			Count:   c,
			Weekday: "Monday",
		})
		s.TotalCompleted += c
	}
	return s
}

func TestComputeStats(t *testing.T) {
	s := summaryWithCounts(2, 0, 5)
	ComputeStats(s)

	require.NotNil(t, s.MostProductiveDay)
	require.NotNil(t, s.LeastProductiveDay)
	assert.Equal(t, "d3", s.MostProductiveDay.Date)
	assert.Equal(t, 5, s.MostProductiveDay.Count)
	assert.Equal(t, "d2", s.LeastProductiveDay.Date)
	assert.Equal(t, 0, s.LeastProductiveDay.Count)
	assert.InDelta(t, 2.3333, s.AveragePerDay, 0.001)
}

func TestComputeStats_TiesFollowRangeOrder(t *testing.T) {
	s := summaryWithCounts(3, 1, 3, 1)
	ComputeStats(s)

	assert.Equal(t, "d2", s.LeastProductiveDay.Date, "first minimum wins")
	assert.Equal(t, "d3", s.MostProductiveDay.Date, "last maximum wins")
}

func TestComputeStats_Empty(t *testing.T) {
	s := NewRangeSummary()
	ComputeStats(s)

	assert.Nil(t, s.MostProductiveDay)
	assert.Nil(t, s.LeastProductiveDay)
	assert.Zero(t, s.AveragePerDay)
}

func TestRankProjects(t *testing.T) {
	s := NewRangeSummary()
	for _, p := range []string{"b", "a", "c", "a", "d", "e", "f", "c", "a"} {
		if _, ok := s.ProjectBreakdown[p]; !ok {
			s.projectOrder = append(s.projectOrder, p)
		}
		s.ProjectBreakdown[p]++
	}

	got := rankProjects(s, 5)
	assert.Equal(t, []ProjectCount{
		{ProjectID: "a", Count: 3},
		{ProjectID: "c", Count: 2},
		{ProjectID: "b", Count: 1},
		{ProjectID: "d", Count: 1},
		{ProjectID: "e", Count: 1},
	}, got)
}

func TestRankProjects_TiesByID(t *testing.T) {
	s := NewRangeSummary()
	for _, p := range []string{"zeta", "alpha", "mid", "mid"} {
		if _, ok := s.ProjectBreakdown[p]; !ok {
			s.projectOrder = append(s.projectOrder, p)
		}
		s.ProjectBreakdown[p]++
	}

	assert.Equal(t, []ProjectCount{
		{ProjectID: "mid", Count: 2},
		{ProjectID: "alpha", Count: 1},
		{ProjectID: "zeta", Count: 1},
	}, rankProjects(s, 0))
}
