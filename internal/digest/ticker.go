// Package digest posts a periodic "completed today" notification during
// working hours.
package digest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/christopherklint97/marvinr/internal/config"
	"github.com/christopherklint97/marvinr/internal/productivity"
)

// Notifier delivers one desktop notification.
type Notifier func(title, message string) error

// StateStore persists small key/value markers. *store.DB implements it.
type StateStore interface {
	GetState(key string) (string, error)
	SetState(key, value string) error
}

const lastDigestKey = "digest.last"

type Scheduler struct {
	reporter *productivity.Reporter
	cfg      config.DigestConfig
	notify   Notifier
	state    StateStore
	pidPath  string
	out      io.Writer
	logger   *slog.Logger
	now      func() time.Time
}

type Options struct {
	Reporter *productivity.Reporter
	Digest   config.DigestConfig
	// Notify is nil when notifications are disabled; digests are then only
	// written to Out.
	Notify   Notifier
	// State, when set, suppresses a notification identical to the previous
	// one on the same day.
	State    StateStore
	PIDPath  string
	Out      io.Writer
	Logger   *slog.Logger
}

func New(opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Scheduler{
		reporter: opts.Reporter,
		cfg:      opts.Digest,
		notify:   opts.Notify,
		state:    opts.State,
		pidPath:  opts.PIDPath,
		out:      out,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Scheduler) Run(ctx context.Context) error {
	if s.pidPath != "" {
		if err := writePID(s.pidPath); err != nil {
			return fmt.Errorf("writing PID file: %w", err)
		}
		defer os.Remove(s.pidPath)
	}

	interval := time.Duration(s.cfg.IntervalMinutes) * time.Minute

	fmt.Fprintf(s.out, "Digest started (interval: %s, hours: %s-%s)\n",
		interval, s.cfg.WorkStart, s.cfg.WorkEnd)

	for {
		nextTick := nextAlignedTick(s.now(), interval)
		fmt.Fprintf(s.out, "Next digest at %s\n", nextTick.Format("15:04"))

		timer := time.NewTimer(time.Until(nextTick))
		select {
		case <-ctx.Done():
			timer.Stop()
			fmt.Fprintln(s.out, "\nDigest stopped.")
			return nil
		case <-timer.C:
		}

		if !s.isWorkTime(s.now()) {
			continue
		}
		s.Digest(ctx)
	}
}

// Digest builds today's report and announces it.
func (s *Scheduler) Digest(ctx context.Context) productivity.Outcome {
	out := s.reporter.BuildReport(ctx, productivity.RangeRequest{Days: 1})
	msg := Message(out)
	fmt.Fprintf(s.out, "[%s] %s\n", s.now().Format("15:04"), msg)

	if s.notify != nil && s.changed(msg) {
		if err := s.notify("marvinr", msg); err != nil {
			s.logger.Warn("sending digest notification", "error", err)
		}
	}
	return out
}

// changed records msg as the latest digest and reports whether it differs
// from the one before it today.
func (s *Scheduler) changed(msg string) bool {
	if s.state == nil {
		return true
	}
	marker := s.now().Format("2006-01-02") + "|" + msg
	prev, err := s.state.GetState(lastDigestKey)
	if err != nil {
		s.logger.Warn("reading last digest", "error", err)
	}
	if prev == marker {
		s.logger.Debug("digest unchanged, not notifying")
		return false
	}
	if err := s.state.SetState(lastDigestKey, marker); err != nil {
		s.logger.Warn("saving last digest", "error", err)
	}
	return true
}

// Message is the one-line text of a single-day report.
func Message(out productivity.Outcome) string {
	if !out.OK() {
		return "Could not build today's digest: " + out.Failure.Error
	}
	s := out.Report
	switch s.TotalCompleted {
	case 0:
		return "No tasks completed yet today"
	case 1:
		return "1 task completed today" + topProjectSuffix(s)
	default:
		return fmt.Sprintf("%d tasks completed today", s.TotalCompleted) + topProjectSuffix(s)
	}
}

func topProjectSuffix(s *productivity.RangeSummary) string {
	if len(s.TopProjects) == 0 || s.TopProjects[0].ProjectID == productivity.UnassignedProject {
		return ""
	}
	name := s.TopProjects[0].ProjectID
	if len(s.TopProjectsWithNames) > 0 {
		name = s.TopProjectsWithNames[0].ProjectName
	}
	return ", mostly in " + name
}

func nextAlignedTick(now time.Time, interval time.Duration) time.Time {
	mins := int(interval.Minutes())
	if mins <= 0 {
		mins = 60
	}

	// Align to the interval within the day so two-hour digests land on even hours.
	dayMinute := now.Hour()*60 + now.Minute()
	nextMinute := ((dayMinute / mins) + 1) * mins

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return midnight.Add(time.Duration(nextMinute) * time.Minute)
}

func (s *Scheduler) isWorkTime(t time.Time) bool {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday = 7
	}

	isWorkDay := false
	for _, d := range s.cfg.WorkDays {
		if d == weekday {
			isWorkDay = true
			break
		}
	}
	if !isWorkDay {
		return false
	}

	startH, startM := parseTime(s.cfg.WorkStart, 9)
	endH, endM := parseTime(s.cfg.WorkEnd, 18)

	nowMins := t.Hour()*60 + t.Minute()
	startMins := startH*60 + startM
	endMins := endH*60 + endM

	return nowMins >= startMins && nowMins <= endMins
}

// parseTime reads "HH:MM", falling back to fallbackHour:00.
func parseTime(s string, fallbackHour int) (int, int) {
	if len(s) == 5 && s[2] == ':' {
		h, errH := strconv.Atoi(s[:2])
		m, errM := strconv.Atoi(s[3:])
		if errH == nil && errM == nil {
			return h, m
		}
	}
	return fallbackHour, 0
}

func PIDPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "marvinr.pid"), nil
}

func writePID(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("no running digest found")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file")
	}

	return pid, nil
}
