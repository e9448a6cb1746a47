package digest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopherklint97/marvinr/internal/completion"
	"github.com/christopherklint97/marvinr/internal/config"
	"github.com/christopherklint97/marvinr/internal/marvin"
	"github.com/christopherklint97/marvinr/internal/productivity"
)

// Tuesday
var tuesday = time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)

type stubSource struct {
	items    []marvin.Item
	projects []marvin.Project
	err      error
}

func (s *stubSource) GetDoneItems(ctx context.Context, date time.Time) ([]marvin.Item, error) {
	return s.items, s.err
}

func (s *stubSource) GetProjects(ctx context.Context) ([]marvin.Project, error) {
	return s.projects, nil
}

func newTestScheduler(src productivity.Source, notify Notifier, out *strings.Builder) *Scheduler {
	cache := completion.NewCache(completion.DefaultTTL, completion.DefaultCleanupGrace, time.UTC, nil)
	cache.SetClock(func() time.Time { return tuesday })
	reporter := productivity.NewReporter(productivity.ReporterConfig{Source: src, Cache: cache})
	s := New(Options{
		Reporter: reporter,
		Digest:   config.DefaultConfig().Digest,
		Notify:   notify,
		Out:      out,
	})
	s.now = func() time.Time { return tuesday }
	return s
}

func TestNextAlignedTick(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name     string
		now      time.Time
		interval time.Duration
		want     time.Time
	}{
		{"hourly", time.Date(2025, 6, 10, 9, 15, 0, 0, loc), time.Hour, time.Date(2025, 6, 10, 10, 0, 0, 0, loc)},
		{"on the hour", time.Date(2025, 6, 10, 9, 0, 0, 0, loc), time.Hour, time.Date(2025, 6, 10, 10, 0, 0, 0, loc)},
		{"half hour", time.Date(2025, 6, 10, 9, 40, 0, 0, loc), 30 * time.Minute, time.Date(2025, 6, 10, 10, 0, 0, 0, loc)},
		{"two hours from odd hour", time.Date(2025, 6, 10, 9, 15, 0, 0, loc), 2 * time.Hour, time.Date(2025, 6, 10, 10, 0, 0, 0, loc)},
		{"two hours from even hour", time.Date(2025, 6, 10, 10, 5, 0, 0, loc), 2 * time.Hour, time.Date(2025, 6, 10, 12, 0, 0, 0, loc)},
		{"crosses midnight", time.Date(2025, 6, 10, 23, 30, 0, 0, loc), time.Hour, time.Date(2025, 6, 11, 0, 0, 0, 0, loc)},
		{"zero interval means hourly", time.Date(2025, 6, 10, 9, 15, 0, 0, loc), 0, time.Date(2025, 6, 10, 10, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextAlignedTick(tt.now, tt.interval))
		})
	}
}

func TestIsWorkTime(t *testing.T) {
	s := New(Options{Digest: config.DefaultConfig().Digest})

	assert.True(t, s.isWorkTime(time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)))
	assert.True(t, s.isWorkTime(time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)))
	assert.False(t, s.isWorkTime(time.Date(2025, 6, 10, 8, 59, 0, 0, time.UTC)))
	assert.False(t, s.isWorkTime(time.Date(2025, 6, 10, 18, 1, 0, 0, time.UTC)))
	assert.False(t, s.isWorkTime(time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)), "saturday")
	assert.False(t, s.isWorkTime(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)), "sunday")
}

func TestParseTime(t *testing.T) {
	h, m := parseTime("07:45", 9)
	assert.Equal(t, []int{7, 45}, []int{h, m})

	h, m = parseTime("7:45", 9)
	assert.Equal(t, []int{9, 0}, []int{h, m})

	h, m = parseTime("ab:cd", 18)
	assert.Equal(t, []int{18, 0}, []int{h, m})
}

func TestDigest_NotifiesWithTopProject(t *testing.T) {
	src := &stubSource{
		items: []marvin.Item{
			{"_id": "a", "parentId": "p1"},
			{"_id": "b", "parentId": "p1"},
			{"_id": "c"},
		},
		projects: []marvin.Project{{ID: "p1", Title: "Work", Type: "project"}},
	}
	var gotTitle, gotMsg string
	var out strings.Builder
	s := newTestScheduler(src, func(title, message string) error {
		gotTitle, gotMsg = title, message
		return nil
	}, &out)

	res := s.Digest(context.Background())

	require.True(t, res.OK())
	assert.Equal(t, 1, res.Report.TotalDays)
	assert.Equal(t, "marvinr", gotTitle)
	assert.Equal(t, "3 tasks completed today, mostly in Work", gotMsg)
	assert.Contains(t, out.String(), "[14:30] 3 tasks completed today")
}

func TestDigest_NotifierErrorIsNotFatal(t *testing.T) {
	var out strings.Builder
	s := newTestScheduler(&stubSource{}, func(string, string) error {
		return errors.New("no notification daemon")
	}, &out)

	res := s.Digest(context.Background())
	assert.True(t, res.OK())
	assert.Contains(t, out.String(), "No tasks completed yet today")
}

type memState map[string]string

func (m memState) GetState(key string) (string, error) { return m[key], nil }
func (m memState) SetState(key, value string) error    { m[key] = value; return nil }

func TestDigest_SkipsRepeatedNotification(t *testing.T) {
	src := &stubSource{items: []marvin.Item{{"_id": "a"}}}
	sent := 0
	var out strings.Builder
	s := newTestScheduler(src, func(string, string) error {
		sent++
		return nil
	}, &out)
	s.state = memState{}

	s.Digest(context.Background())
	s.Digest(context.Background())
	assert.Equal(t, 1, sent)

	src.items = append(src.items, marvin.Item{"_id": "b"})
	s.Digest(context.Background())
	assert.Equal(t, 2, sent)
}

func TestMessage(t *testing.T) {
	one := productivity.NewRangeSummary()
	one.TotalCompleted = 1
	one.TopProjects = []productivity.ProjectCount{{ProjectID: productivity.UnassignedProject, Count: 1}}
	assert.Equal(t, "1 task completed today", Message(productivity.Outcome{Report: one}))

	failed := productivity.Outcome{Failure: productivity.NewErrorReport(errors.New("boom"))}
	assert.Equal(t, "Could not build today's digest: boom", Message(failed))
}

func TestRun_StopsOnCancelAndCleansPID(t *testing.T) {
	var out strings.Builder
	s := newTestScheduler(&stubSource{}, nil, &out)
	s.pidPath = filepath.Join(t.TempDir(), "marvinr.pid")
	s.now = time.Now

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(s.pidPath)
		return err == nil
	}, time.Second, 10*time.Millisecond)

	pid, err := ReadPID(s.pidPath)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	cancel()
	require.NoError(t, <-done)
	_, err = os.Stat(s.pidPath)
	assert.True(t, os.IsNotExist(err))
}

func TestReadPID_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadPID(filepath.Join(dir, "missing.pid"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.pid")
	require.NoError(t, os.WriteFile(bad, []byte("not-a-pid"), 0644))
	_, err = ReadPID(bad)
	assert.Error(t, err)

	good := filepath.Join(dir, "good.pid")
	require.NoError(t, os.WriteFile(good, []byte(strconv.Itoa(4242)+"\n"), 0644))
	pid, err := ReadPID(good)
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)
}

func TestPIDPath_UsesConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MARVINR_CONFIG_DIR", dir)
	path, err := PIDPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "marvinr.pid"), path)
}
