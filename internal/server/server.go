// Package server exposes the Marvin API and the completion reports as MCP tools.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/christopherklint97/marvinr/internal/marvin"
	"github.com/christopherklint97/marvinr/internal/productivity"
)

const Version = "0.3.0"

// API is the Marvin surface the tools call. *marvin.Client implements it.
type API interface {
	GetDoneItems(ctx context.Context, date time.Time) ([]marvin.Item, error)
	GetTodayItems(ctx context.Context) ([]marvin.Item, error)
	GetDueItems(ctx context.Context) ([]marvin.Item, error)
	GetCategories(ctx context.Context) ([]marvin.Item, error)
	GetProjects(ctx context.Context) ([]marvin.Project, error)
	GetChildren(ctx context.Context, parentID string) ([]marvin.Item, error)
	GetLabels(ctx context.Context) ([]marvin.Item, error)
	GetGoals(ctx context.Context) ([]marvin.Item, error)
	GetAccount(ctx context.Context) (marvin.Item, error)
	GetKudos(ctx context.Context) (marvin.Item, error)
	GetTrackedItem(ctx context.Context) (marvin.Item, error)
	CreateTask(ctx context.Context, task marvin.TaskRequest) (marvin.Item, error)
	CreateProject(ctx context.Context, project marvin.ProjectRequest) (marvin.Item, error)
	MarkDone(ctx context.Context, itemID string, timezoneOffset int) (marvin.Item, error)
	StartTracking(ctx context.Context, taskID string) (marvin.Item, error)
	StopTracking(ctx context.Context, taskID string) (marvin.Item, error)
	GetTimeTracks(ctx context.Context, taskIDs []string) (any, error)
	ClaimRewardPoints(ctx context.Context, points int, itemID, date string) (marvin.Item, error)
	TestConnection(ctx context.Context) (string, error)
}

type Server struct {
	mcpServer *server.MCPServer
	api       API
	reporter  *productivity.Reporter
	logger    *slog.Logger
}

type Config struct {
	API      API
	Reporter *productivity.Reporter
	Logger   *slog.Logger
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		api:      cfg.API,
		reporter: cfg.Reporter,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"marvinr",
		Version,
		server.WithLogging(),
		server.WithRecovery(),
	)
	s.registerTools(mcpServer)
	s.mcpServer = mcpServer
	return s
}

// ServeStdio serves MCP over stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

func (s *Server) registerTools(m *server.MCPServer) {
	// Plain API calls
	m.AddTool(mcp.NewTool("get_tasks",
		mcp.WithDescription("Get today's scheduled tasks and projects"),
	), s.handleGetTasks)
	m.AddTool(mcp.NewTool("get_projects",
		mcp.WithDescription("Get all projects"),
	), s.handleGetProjects)
	m.AddTool(mcp.NewTool("get_categories",
		mcp.WithDescription("Get all categories, projects included"),
	), s.handleGetCategories)
	m.AddTool(mcp.NewTool("get_due_items",
		mcp.WithDescription("Get all due items"),
	), s.handleGetDueItems)
	m.AddTool(mcp.NewTool("get_child_tasks",
		mcp.WithDescription("Get child tasks of a task or project"),
		mcp.WithString("parent_id", mcp.Required(), mcp.Description("Parent task or project ID, or \"unassigned\"")),
	), s.handleGetChildTasks)
	m.AddTool(mcp.NewTool("get_labels",
		mcp.WithDescription("Get all labels"),
	), s.handleGetLabels)
	m.AddTool(mcp.NewTool("get_goals",
		mcp.WithDescription("Get all goals"),
	), s.handleGetGoals)
	m.AddTool(mcp.NewTool("get_account_info",
		mcp.WithDescription("Get account information"),
	), s.handleGetAccountInfo)
	m.AddTool(mcp.NewTool("get_currently_tracked_item",
		mcp.WithDescription("Get the item currently being time-tracked"),
	), s.handleGetTrackedItem)
	m.AddTool(mcp.NewTool("get_kudos_info",
		mcp.WithDescription("Get kudos and achievement information"),
	), s.handleGetKudos)
	m.AddTool(mcp.NewTool("test_api_connection",
		mcp.WithDescription("Check that the API token works"),
	), s.handleTestConnection)
	m.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Create a new task"),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
		mcp.WithString("project_id", mcp.Description("Parent project ID")),
		mcp.WithString("category_id", mcp.Description("Category ID")),
		mcp.WithString("due_date", mcp.Description("Due date, YYYY-MM-DD")),
		mcp.WithString("note", mcp.Description("Task note")),
	), s.handleCreateTask)
	m.AddTool(mcp.NewTool("create_project",
		mcp.WithDescription("Create a new project"),
		mcp.WithString("title", mcp.Required(), mcp.Description("Project title")),
		mcp.WithString("project_type", mcp.Description("Project type (default project)")),
	), s.handleCreateProject)
	m.AddTool(mcp.NewTool("mark_task_done",
		mcp.WithDescription("Mark a task as completed"),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithNumber("timezone_offset", mcp.Description("Minutes offset from UTC (default 0)")),
	), s.handleMarkDone)
	m.AddTool(mcp.NewTool("start_time_tracking",
		mcp.WithDescription("Start time tracking for a task"),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task ID")),
	), s.handleStartTracking)
	m.AddTool(mcp.NewTool("stop_time_tracking",
		mcp.WithDescription("Stop time tracking for a task"),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task ID")),
	), s.handleStopTracking)
	m.AddTool(mcp.NewTool("get_time_tracks",
		mcp.WithDescription("Get time tracking data for tasks"),
		mcp.WithArray("task_ids", mcp.Required(), mcp.Description("Task IDs"), mcp.WithStringItems()),
	), s.handleGetTimeTracks)
	m.AddTool(mcp.NewTool("claim_reward_points",
		mcp.WithDescription("Claim reward points for a completed task"),
		mcp.WithNumber("points", mcp.Required(), mcp.Description("Points to claim")),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date, YYYY-MM-DD")),
	), s.handleClaimRewardPoints)

	// Aggregations
	m.AddTool(mcp.NewTool("get_productivity_summary_for_time_range",
		mcp.WithDescription("Completed-task statistics over a range of days: per-day counts, most and least productive days, top projects"),
		mcp.WithNumber("days", mcp.Description("Trailing days ending today (default 7); ignored when start_date is set")),
		mcp.WithString("start_date", mcp.Description("First day, YYYY-MM-DD or e.g. \"last monday\"")),
		mcp.WithString("end_date", mcp.Description("Last day (default today)")),
	), s.handleRangeSummary)
	m.AddTool(mcp.NewTool("get_completed_tasks_for_date",
		mcp.WithDescription("Get tasks completed on a specific day"),
		mcp.WithString("date", mcp.Required(), mcp.Description("Day, YYYY-MM-DD or e.g. \"yesterday\"")),
		mcp.WithBoolean("refresh", mcp.Description("Refetch the day instead of using cached data")),
	), s.handleCompletedForDate)
	m.AddTool(mcp.NewTool("get_completed_tasks",
		mcp.WithDescription("Get tasks completed today and yesterday, grouped by project"),
	), s.handleRecentCompleted)
	m.AddTool(mcp.NewTool("get_daily_focus",
		mcp.WithDescription("Today's focus items: scheduled and due, deduplicated"),
	), s.handleDailyFocus)
	m.AddTool(mcp.NewTool("quick_daily_planning",
		mcp.WithDescription("Daily planning overview with suggestions"),
	), s.handleDailyPlanning)
	m.AddTool(mcp.NewTool("get_project_overview",
		mcp.WithDescription("Project tasks and completion rate"),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project ID")),
	), s.handleProjectOverview)
	m.AddTool(mcp.NewTool("get_productivity_summary",
		mcp.WithDescription("Today's goals, account stats and tracking status"),
	), s.handleProductivitySummary)
	m.AddTool(mcp.NewTool("time_tracking_summary",
		mcp.WithDescription("Current tracking status with account and kudos stats"),
	), s.handleTimeTrackingSummary)
	m.AddTool(mcp.NewTool("batch_create_tasks",
		mcp.WithDescription("Create several tasks at once"),
		mcp.WithArray("task_list", mcp.Required(), mcp.Description("Task titles or task objects")),
		mcp.WithString("project_id", mcp.Description("Project for tasks without one")),
		mcp.WithString("category_id", mcp.Description("Category for tasks without one")),
	), s.handleBatchCreate)
	m.AddTool(mcp.NewTool("batch_mark_done",
		mcp.WithDescription("Mark several tasks as done"),
		mcp.WithArray("task_ids", mcp.Required(), mcp.Description("Task IDs"), mcp.WithStringItems()),
	), s.handleBatchMarkDone)
	m.AddTool(mcp.NewTool("create_project_with_tasks",
		mcp.WithDescription("Create a project and its tasks in one call"),
		mcp.WithString("project_title", mcp.Required(), mcp.Description("Project title")),
		mcp.WithArray("task_titles", mcp.Required(), mcp.Description("Task titles"), mcp.WithStringItems()),
		mcp.WithString("project_type", mcp.Description("Project type (default project)")),
	), s.handleCreateProjectWithTasks)

	// Cache
	m.AddTool(mcp.NewTool("get_cache_stats",
		mcp.WithDescription("Completion cache statistics"),
	), s.handleCacheStats)
	m.AddTool(mcp.NewTool("clear_cache",
		mcp.WithDescription("Drop all cached completion data"),
	), s.handleClearCache)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("encoding result: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func apiError(what string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(what + ": " + err.Error())
}
