package productivity

import (
	"context"
	"time"

	"github.com/christopherklint97/marvinr/internal/marvin"
)

// Source is the slice of the Marvin API the report needs. *marvin.Client
// satisfies it; failures are *marvin.UpstreamError.
type Source interface {
	GetDoneItems(ctx context.Context, date time.Time) ([]marvin.Item, error)
	GetProjects(ctx context.Context) ([]marvin.Project, error)
}

// Run is the metadata of one report request, kept for the history command.
type Run struct {
	RequestedAt    time.Time
	StartDate      string
	EndDate        string
	TotalDays      int
	TotalCompleted int
	APICalls       int
	Error          string
}

// Recorder persists report runs. Recording failures never affect the report.
type Recorder interface {
	RecordRun(ctx context.Context, run Run) error
}
