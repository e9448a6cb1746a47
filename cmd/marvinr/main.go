package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/christopherklint97/marvinr/internal/completion"
	"github.com/christopherklint97/marvinr/internal/config"
	"github.com/christopherklint97/marvinr/internal/digest"
	"github.com/christopherklint97/marvinr/internal/marvin"
	"github.com/christopherklint97/marvinr/internal/productivity"
	"github.com/christopherklint97/marvinr/internal/render"
	"github.com/christopherklint97/marvinr/internal/server"
	"github.com/christopherklint97/marvinr/internal/store"
	"github.com/christopherklint97/marvinr/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:          "marvinr",
	Short:        "Amazing Marvin productivity reports and MCP server",
	Long:         "marvinr serves Amazing Marvin to MCP clients and reports how many tasks you completed over a range of days.",
	Version:      server.Version,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	RunE:  runServe,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show completed tasks over a range of days",
	RunE:  runReport,
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Browse the report interactively",
	RunE:  runDashboard,
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List Amazing Marvin projects",
	RunE:  runProjects,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent report runs",
	RunE:  runHistory,
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Send a completion digest at regular intervals during work hours",
	RunE:  runDigest,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running digest",
	RunE:  runStop,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of a report",
	RunE:  runSchema,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

func init() {
	reportCmd.Flags().Int("days", 0, "Trailing days ending today (default from config)")
	reportCmd.Flags().String("start", "", "First day, YYYY-MM-DD or e.g. \"last monday\"")
	reportCmd.Flags().String("end", "", "Last day (default today)")
	reportCmd.Flags().Bool("json", false, "Print the report as JSON")
	reportCmd.Flags().Bool("notify", false, "Also send the summary as a desktop notification")

	dashboardCmd.Flags().Int("days", 0, "Initial number of days (default from config)")

	historyCmd.Flags().Int("limit", 20, "Number of runs to show")
	historyCmd.Flags().Int("prune-days", 0, "Delete runs older than this many days first")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
}

func newMarvinClient(cfg *config.Config, logger *slog.Logger) *marvin.Client {
	return marvin.NewClient(cfg.Marvin.APIKey, cfg.Marvin.BaseURL, cfg.Timeout(), cfg.Marvin.MaxRetries, logger)
}

func openStore() (*store.DB, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	db, err := store.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// app bundles what every report-producing command needs.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	client   *marvin.Client
	reporter *productivity.Reporter
	db       *store.DB
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)
	client := newMarvinClient(cfg, logger)

	a := &app{cfg: cfg, logger: logger, client: client}

	var recorder productivity.Recorder
	if cfg.History.Enabled {
		db, err := openStore()
		if err != nil {
			logger.Warn("report history disabled", "error", err)
		} else {
			a.db = db
			recorder = db
		}
	}

	cache := completion.NewCache(cfg.CacheTTL(), cfg.CleanupGrace(), cfg.Location(), logger)
	a.reporter = productivity.NewReporter(productivity.ReporterConfig{
		Source:      client,
		Cache:       cache,
		Recorder:    recorder,
		DefaultDays: cfg.Report.DefaultDays,
		MaxDays:     cfg.Report.MaxDays,
		TopProjects: cfg.Report.TopProjects,
		Logger:      logger,
	})
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(server.Config{
		API:      a.client,
		Reporter: a.reporter,
		Logger:   a.logger,
	})
	a.logger.Info("serving MCP on stdio", "version", server.Version)
	return srv.ServeStdio()
}

func runReport(cmd *cobra.Command, args []string) error {
	days, _ := cmd.Flags().GetInt("days")
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	asJSON, _ := cmd.Flags().GetBool("json")
	notify, _ := cmd.Flags().GetBool("notify")

	if end != "" && start == "" {
		return fmt.Errorf("--end requires --start")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	out := a.reporter.BuildReport(ctx, productivity.RangeRequest{
		Days:      days,
		StartDate: start,
		EndDate:   end,
	})

	if asJSON {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		fmt.Println(string(data))
	} else if err := render.Report(os.Stdout, out); err != nil {
		return err
	}

	if notify && a.cfg.Notifications.Enabled {
		send := digest.DesktopNotifier("marvinr")
		if err := send("marvinr", rangeMessage(out)); err != nil {
			a.logger.Warn("sending report notification", "error", err)
		}
	}

	if !out.OK() {
		return errors.New(out.Failure.Error)
	}
	return nil
}

func rangeMessage(out productivity.Outcome) string {
	if !out.OK() {
		return "Report failed: " + out.Failure.Error
	}
	s := out.Report
	return fmt.Sprintf("%d tasks completed %s to %s (%.1f per day)",
		s.TotalCompleted, s.StartDate, s.EndDate, s.AveragePerDay)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	days, _ := cmd.Flags().GetInt("days")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if days <= 0 {
		days = a.cfg.Report.DefaultDays
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(tui.NewDashboard(ctx, a.reporter, days), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}

func runProjects(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := newMarvinClient(cfg, newLogger(cfg))
	projects, err := client.GetProjects(context.Background())
	if err != nil {
		return fmt.Errorf("fetching projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return nil
	}

	fmt.Printf("Found %d projects:\n\n", len(projects))
	for _, p := range projects {
		fmt.Printf("  %s  %s\n", p.ID, p.Title)
	}

	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	pruneDays, _ := cmd.Flags().GetInt("prune-days")

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if pruneDays > 0 {
		n, err := db.PruneRuns(ctx, time.Now().AddDate(0, 0, -pruneDays))
		if err != nil {
			return fmt.Errorf("pruning history: %w", err)
		}
		fmt.Printf("Removed %d old runs.\n\n", n)
	}

	runs, err := db.RecentRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}
	return render.Runs(os.Stdout, runs)
}

func runDigest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	pidPath, err := digest.PIDPath()
	if err != nil {
		return err
	}

	opts := digest.Options{
		Reporter: a.reporter,
		Digest:   a.cfg.Digest,
		PIDPath:  pidPath,
		Out:      os.Stdout,
		Logger:   a.logger,
	}
	if a.cfg.Notifications.Enabled {
		opts.Notify = digest.DesktopNotifier("marvinr")
	}
	if a.db != nil {
		opts.State = a.db
	}

	ctx, cancel := signalContext()
	defer cancel()

	return digest.New(opts).Run(ctx)
}

func runStop(cmd *cobra.Command, args []string) error {
	pidPath, err := digest.PIDPath()
	if err != nil {
		return err
	}
	pid, err := digest.ReadPID(pidPath)
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending stop signal: %w", err)
	}

	fmt.Printf("Sent stop signal to marvinr digest (PID %d)\n", pid)
	return nil
}

func runSchema(cmd *cobra.Command, args []string) error {
	data, err := render.ReportSchema()
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if err := config.WriteDefault(configPath); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", configPath, editor)

	proc := os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
	process, err := os.StartProcess(editor, []string{editor, configPath}, &proc)
	if err != nil {
		fmt.Printf("Could not open editor. Config file is at: %s\n", configPath)
		return nil
	}
	_, err = process.Wait()
	return err
}
