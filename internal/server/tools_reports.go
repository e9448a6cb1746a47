package server

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/christopherklint97/marvinr/internal/completion"
	"github.com/christopherklint97/marvinr/internal/marvin"
	"github.com/christopherklint97/marvinr/internal/productivity"
)

const heavyDayThreshold = 5

func (s *Server) handleRangeSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := s.reporter.BuildReport(ctx, productivity.RangeRequest{
		Days:      req.GetInt("days", 0),
		StartDate: req.GetString("start_date", ""),
		EndDate:   req.GetString("end_date", ""),
	})
	return jsonResult(out)
}

func (s *Server) handleCompletedForDate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := req.GetString("date", "")
	if raw == "" {
		return mcp.NewToolResultError("date is required"), nil
	}
	date, err := productivity.ParseDate(raw, s.reporter.Cache().Now())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid date %q: %v", raw, err)), nil
	}
	if req.GetBool("refresh", false) {
		s.reporter.Cache().Invalidate(date)
	}

	items, err := s.reporter.CompletedOn(ctx, date)
	if err != nil {
		return apiError("failed to get completed tasks", err), nil
	}
	return jsonResult(completedPayload(completion.DateKey(date), items))
}

// handleRecentCompleted degrades per day: a day that cannot be fetched is
// logged and listed under failed_dates while the other day still counts.
func (s *Server) handleRecentCompleted(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	today := s.reporter.Cache().Now()
	yesterday := today.AddDate(0, 0, -1)

	var items []marvin.Item
	byDate := map[string]int{}
	checked := []string{}
	failed := []string{}
	for _, day := range []time.Time{today, yesterday} {
		key := completion.DateKey(day)
		done, err := s.reporter.CompletedOn(ctx, day)
		if err != nil {
			s.logger.Warn("skipping completed tasks for day", "date", key, "error", err)
			failed = append(failed, key)
			continue
		}
		checked = append(checked, key)
		byDate[key] = len(dedupe(done))
		items = append(items, done...)
	}

	out := completedPayload(completion.DateKey(today), items)
	out["by_date"] = byDate
	out["sources_checked"] = checked
	out["failed_dates"] = failed
	return jsonResult(out)
}

func completedPayload(date string, items []marvin.Item) map[string]any {
	unique := dedupe(items)
	byProject := map[string][]marvin.Item{}
	for _, it := range unique {
		project := it.ParentID()
		if project == "" {
			project = productivity.UnassignedProject
		}
		byProject[project] = append(byProject[project], it)
	}
	return map[string]any{
		"date":            date,
		"completed_tasks": unique,
		"total_completed": len(unique),
		"by_project":      byProject,
	}
}

// dedupe keeps the first item per ID; items without an ID are dropped.
func dedupe(items []marvin.Item) []marvin.Item {
	seen := make(map[string]bool, len(items))
	out := make([]marvin.Item, 0, len(items))
	for _, it := range items {
		id := it.ID()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, it)
	}
	return out
}

func (s *Server) handleDailyFocus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	today, err := s.api.GetTodayItems(ctx)
	if err != nil {
		return apiError("failed to get today items", err), nil
	}
	due, err := s.api.GetDueItems(ctx)
	if err != nil {
		return apiError("failed to get due items", err), nil
	}

	all := dedupe(append(append([]marvin.Item{}, today...), due...))
	highPriority := []marvin.Item{}
	projects := []marvin.Item{}
	tasks := []marvin.Item{}
	for _, it := range all {
		if it.Priority() == "high" {
			highPriority = append(highPriority, it)
		}
		if it.Type() == "project" {
			projects = append(projects, it)
		} else {
			tasks = append(tasks, it)
		}
	}

	return jsonResult(map[string]any{
		"total_focus_items":   len(all),
		"high_priority_items": highPriority,
		"projects":            projects,
		"tasks":               tasks,
		"all_items":           all,
	})
}

func (s *Server) handleDailyPlanning(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	today, err := s.api.GetTodayItems(ctx)
	if err != nil {
		return apiError("failed to get today items", err), nil
	}
	due, err := s.api.GetDueItems(ctx)
	if err != nil {
		return apiError("failed to get due items", err), nil
	}
	projects, err := s.api.GetProjects(ctx)
	if err != nil {
		return apiError("failed to get projects", err), nil
	}

	suggestions := []string{}
	if len(due) > 0 {
		suggestions = append(suggestions, fmt.Sprintf("Focus on %d overdue items first", len(due)))
	}
	if len(today) > heavyDayThreshold {
		suggestions = append(suggestions, "Consider rescheduling some tasks - you have a heavy day")
	}
	if len(today) == 0 && len(due) == 0 {
		suggestions = append(suggestions, "No urgent tasks today - time to work on your goals")
	}

	return jsonResult(map[string]any{
		"planning_date":   completion.DateKey(s.reporter.Cache().Now()),
		"overdue_items":   len(due),
		"scheduled_today": len(today),
		"active_projects": len(projects),
		"suggestions":     suggestions,
		"due_items":       firstN(due, 5),
		"today_items":     firstN(today, 5),
		"quick_summary":   fmt.Sprintf("%d due, %d scheduled", len(due), len(today)),
	})
}

func firstN(items []marvin.Item, n int) []marvin.Item {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func (s *Server) handleProjectOverview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	if projectID == "" {
		return mcp.NewToolResultError("project_id is required"), nil
	}

	children, err := s.api.GetChildren(ctx, projectID)
	if err != nil {
		return apiError("failed to get project tasks", err), nil
	}

	completed := 0
	for _, c := range children {
		if c.Done() {
			completed++
		}
	}
	rate := 0.0
	if len(children) > 0 {
		rate = math.Round(float64(completed)/float64(len(children))*10000) / 100
	}

	var info marvin.Item
	if categories, err := s.api.GetCategories(ctx); err != nil {
		s.logger.Warn("project overview without project info", "project_id", projectID, "error", err)
	} else {
		for _, c := range categories {
			if c.ID() == projectID {
				info = c
				break
			}
		}
	}

	return jsonResult(map[string]any{
		"project_id":      projectID,
		"project_info":    info,
		"total_tasks":     len(children),
		"completed_tasks": completed,
		"pending_tasks":   len(children) - completed,
		"completion_rate": rate,
		"tasks":           children,
	})
}

func (s *Server) handleProductivitySummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goals, err := s.api.GetGoals(ctx)
	if err != nil {
		return apiError("failed to get goals", err), nil
	}
	account, err := s.api.GetAccount(ctx)
	if err != nil {
		return apiError("failed to get account", err), nil
	}
	tracked, err := s.api.GetTrackedItem(ctx)
	if err != nil {
		return apiError("failed to get tracked item", err), nil
	}
	if goals == nil {
		goals = []marvin.Item{}
	}

	return jsonResult(map[string]any{
		"date":               completion.DateKey(s.reporter.Cache().Now()),
		"active_goals":       len(goals),
		"goals":              goals,
		"account_stats":      account,
		"currently_tracking": tracked,
		"summary":            fmt.Sprintf("You have %d active goals", len(goals)),
	})
}

func (s *Server) handleTimeTrackingSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tracked, err := s.api.GetTrackedItem(ctx)
	if err != nil {
		return apiError("failed to get tracked item", err), nil
	}
	account, err := s.api.GetAccount(ctx)
	if err != nil {
		return apiError("failed to get account", err), nil
	}
	kudos, err := s.api.GetKudos(ctx)
	if err != nil {
		return apiError("failed to get kudos", err), nil
	}

	result := map[string]any{
		"currently_tracking": tracked != nil,
		"tracked_item":       tracked,
		"account_stats":      account,
		"kudos_info":         kudos,
		"tracking_status":    "Not tracking",
		"suggestion":         "Start tracking a task to measure productivity",
	}
	if tracked != nil {
		title := tracked.Title()
		if title == "" {
			title = "Unknown task"
		}
		result["tracking_status"] = "Active"
		result["suggestion"] = "Currently tracking: " + title
	}
	return jsonResult(result)
}

func (s *Server) handleBatchCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, ok := req.GetArguments()["task_list"].([]any)
	if !ok || len(list) == 0 {
		return mcp.NewToolResultError("task_list is required"), nil
	}
	projectID := req.GetString("project_id", "")
	categoryID := req.GetString("category_id", "")

	created := []marvin.Item{}
	failed := []map[string]any{}
	for _, entry := range list {
		task, err := taskFromArg(entry)
		if err == nil {
			if task.ParentID == "" {
				task.ParentID = projectID
			}
			if task.CategoryID == "" {
				task.CategoryID = categoryID
			}
			var item marvin.Item
			item, err = s.api.CreateTask(ctx, task)
			if err == nil {
				created = append(created, item)
				continue
			}
		}
		failed = append(failed, map[string]any{"task": entry, "error": err.Error()})
	}

	return jsonResult(map[string]any{
		"created_tasks":   created,
		"failed_tasks":    failed,
		"success_count":   len(created),
		"failure_count":   len(failed),
		"total_requested": len(list),
	})
}

func taskFromArg(v any) (marvin.TaskRequest, error) {
	switch t := v.(type) {
	case string:
		return marvin.TaskRequest{Title: t}, nil
	case map[string]any:
		str := func(k string) string {
			s, _ := t[k].(string)
			return s
		}
		return marvin.TaskRequest{
			Title:      str("title"),
			ParentID:   str("parentId"),
			CategoryID: str("categoryId"),
			DueDate:    str("dueDate"),
			Note:       str("note"),
		}, nil
	default:
		return marvin.TaskRequest{}, fmt.Errorf("unsupported task entry %T", v)
	}
}

func (s *Server) handleBatchMarkDone(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := req.GetStringSlice("task_ids", nil)
	if len(ids) == 0 {
		return mcp.NewToolResultError("task_ids is required"), nil
	}

	completed := []marvin.Item{}
	failed := []map[string]string{}
	for _, id := range ids {
		item, err := s.api.MarkDone(ctx, id, 0)
		if err != nil {
			failed = append(failed, map[string]string{"task_id": id, "error": err.Error()})
			continue
		}
		completed = append(completed, item)
	}

	return jsonResult(map[string]any{
		"completed_tasks": completed,
		"failed_tasks":    failed,
		"success_count":   len(completed),
		"failure_count":   len(failed),
		"total_requested": len(ids),
	})
}

func (s *Server) handleCreateProjectWithTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("project_title", "")
	if title == "" {
		return mcp.NewToolResultError("project_title is required"), nil
	}
	titles := req.GetStringSlice("task_titles", nil)

	project, err := s.api.CreateProject(ctx, marvin.ProjectRequest{
		Title: title,
		Type:  req.GetString("project_type", "project"),
	})
	if err != nil {
		return apiError("failed to create project", err), nil
	}

	created := []marvin.Item{}
	if projectID := project.ID(); projectID != "" {
		for _, t := range titles {
			task, err := s.api.CreateTask(ctx, marvin.TaskRequest{Title: t, ParentID: projectID})
			if err != nil {
				s.logger.Warn("creating project task", "project_id", projectID, "title", t, "error", err)
				continue
			}
			created = append(created, task)
		}
	}

	return jsonResult(map[string]any{
		"created_project": project,
		"created_tasks":   created,
		"task_count":      len(created),
	})
}

func (s *Server) handleCacheStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.reporter.Cache().Stats())
}

func (s *Server) handleClearCache(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.reporter.Cache().Clear()
	return mcp.NewToolResultText(`{"success": true, "message": "Completion cache cleared"}`), nil
}
