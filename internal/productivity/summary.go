package productivity

import (
	"encoding/json"

	"github.com/christopherklint97/marvinr/internal/marvin"
)

// UnassignedProject groups completed items that have no parent project.
const UnassignedProject = "unassigned"

// DayBreakdown is one calendar day of a range report.
type DayBreakdown struct {
	Date      string        `json:"date"`
	Count     int           `json:"count"`
	Weekday   string        `json:"weekday"`
	IsToday   bool          `json:"is_today"`
	Items     []marvin.Item `json:"items"`
	FetchFail string        `json:"fetch_error,omitempty"`
}

type DayStat struct {
	Date    string `json:"date"`
	Count   int    `json:"count"`
	Weekday string `json:"weekday"`
}

type ProjectCount struct {
	ProjectID string `json:"project_id"`
	Count     int    `json:"count"`
}

type NamedProjectCount struct {
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`
	Count       int    `json:"count"`
}

type CacheEfficiency struct {
	CachedDates      int `json:"cached_dates"`
	TotalCachedItems int `json:"total_cached_items"`
	TotalAPICalls    int `json:"total_api_calls"`
}

// RangeSummary accumulates one report request. It is built fresh for every
// request and never shared.
type RangeSummary struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	TotalDays      int     `json:"total_days"`
	TotalCompleted int     `json:"total_completed"`
	AveragePerDay  float64 `json:"average_per_day"`

	DailyBreakdown   []DayBreakdown           `json:"daily_breakdown"`
	ProjectBreakdown map[string]int           `json:"project_breakdown"`
	CompletedItems   []marvin.Item            `json:"completed_items"`
	ByDate           map[string][]marvin.Item `json:"by_date"`
	ByProject        map[string][]marvin.Item `json:"by_project"`

	MostProductiveDay  *DayStat `json:"most_productive_day"`
	LeastProductiveDay *DayStat `json:"least_productive_day"`

	TopProjects          []ProjectCount      `json:"top_projects"`
	TopProjectsWithNames []NamedProjectCount `json:"top_projects_with_names"`
	ProjectNames         map[string]string   `json:"project_names"`

	CacheEfficiency CacheEfficiency `json:"cache_efficiency"`

	projectOrder []string
	apiCalls     int
}

func NewRangeSummary() *RangeSummary {
	return &RangeSummary{
		DailyBreakdown:       []DayBreakdown{},
		ProjectBreakdown:     map[string]int{},
		CompletedItems:       []marvin.Item{},
		ByDate:               map[string][]marvin.Item{},
		ByProject:            map[string][]marvin.Item{},
		TopProjects:          []ProjectCount{},
		TopProjectsWithNames: []NamedProjectCount{},
		ProjectNames:         map[string]string{},
	}
}

// ErrorReport is returned instead of a summary when the request could not be
// processed at all. Totals are zero and collections are empty.
type ErrorReport struct {
	Error string `json:"error"`
	RangeSummary
}

func NewErrorReport(err error) *ErrorReport {
	return &ErrorReport{Error: err.Error(), RangeSummary: *NewRangeSummary()}
}

// Outcome holds exactly one of Report or Failure.
type Outcome struct {
	Report  *RangeSummary
	Failure *ErrorReport
}

func (o Outcome) OK() bool { return o.Report != nil }

// Summary returns the report, or the zeroed summary carried by the failure.
func (o Outcome) Summary() *RangeSummary {
	if o.Report != nil {
		return o.Report
	}
	if o.Failure != nil {
		return &o.Failure.RangeSummary
	}
	return NewRangeSummary()
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Failure != nil {
		return json.Marshal(o.Failure)
	}
	return json.Marshal(o.Report)
}
