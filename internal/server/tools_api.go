package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/christopherklint97/marvinr/internal/marvin"
)

func (s *Server) handleGetTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.api.GetTodayItems(ctx)
	if err != nil {
		return apiError("failed to get tasks", err), nil
	}
	return jsonResult(map[string]any{"tasks": items})
}

func (s *Server) handleGetProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.api.GetProjects(ctx)
	if err != nil {
		return apiError("failed to get projects", err), nil
	}
	return jsonResult(map[string]any{"projects": projects})
}

func (s *Server) handleGetCategories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	categories, err := s.api.GetCategories(ctx)
	if err != nil {
		return apiError("failed to get categories", err), nil
	}
	return jsonResult(map[string]any{"categories": categories})
}

func (s *Server) handleGetDueItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.api.GetDueItems(ctx)
	if err != nil {
		return apiError("failed to get due items", err), nil
	}
	return jsonResult(map[string]any{"due_items": items})
}

func (s *Server) handleGetChildTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parentID := req.GetString("parent_id", "")
	if parentID == "" {
		return mcp.NewToolResultError("parent_id is required"), nil
	}
	children, err := s.api.GetChildren(ctx, parentID)
	if err != nil {
		return apiError("failed to get children", err), nil
	}
	return jsonResult(map[string]any{"children": children, "parent_id": parentID})
}

func (s *Server) handleGetLabels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	labels, err := s.api.GetLabels(ctx)
	if err != nil {
		return apiError("failed to get labels", err), nil
	}
	return jsonResult(map[string]any{"labels": labels})
}

func (s *Server) handleGetGoals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goals, err := s.api.GetGoals(ctx)
	if err != nil {
		return apiError("failed to get goals", err), nil
	}
	return jsonResult(map[string]any{"goals": goals})
}

func (s *Server) handleGetAccountInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	account, err := s.api.GetAccount(ctx)
	if err != nil {
		return apiError("failed to get account", err), nil
	}
	return jsonResult(map[string]any{"account": account})
}

func (s *Server) handleGetTrackedItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	item, err := s.api.GetTrackedItem(ctx)
	if err != nil {
		return apiError("failed to get tracked item", err), nil
	}
	if item == nil {
		return jsonResult(map[string]any{"tracked_item": map[string]string{"message": "No item currently being tracked"}})
	}
	return jsonResult(map[string]any{"tracked_item": item})
}

func (s *Server) handleGetKudos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kudos, err := s.api.GetKudos(ctx)
	if err != nil {
		return apiError("failed to get kudos", err), nil
	}
	return jsonResult(map[string]any{"kudos": kudos})
}

func (s *Server) handleTestConnection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.api.TestConnection(ctx)
	if err != nil {
		return apiError("connection test failed", err), nil
	}
	return jsonResult(map[string]any{"status": status})
}

func (s *Server) handleCreateTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task := marvin.TaskRequest{
		Title:      req.GetString("title", ""),
		ParentID:   req.GetString("project_id", ""),
		CategoryID: req.GetString("category_id", ""),
		DueDate:    req.GetString("due_date", ""),
		Note:       req.GetString("note", ""),
	}
	if task.Title == "" {
		return mcp.NewToolResultError("title is required"), nil
	}
	created, err := s.api.CreateTask(ctx, task)
	if err != nil {
		return apiError("failed to create task", err), nil
	}
	return jsonResult(map[string]any{"created_task": created})
}

func (s *Server) handleCreateProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	if title == "" {
		return mcp.NewToolResultError("title is required"), nil
	}
	created, err := s.api.CreateProject(ctx, marvin.ProjectRequest{
		Title: title,
		Type:  req.GetString("project_type", "project"),
	})
	if err != nil {
		return apiError("failed to create project", err), nil
	}
	return jsonResult(map[string]any{"created_project": created})
}

func (s *Server) handleMarkDone(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemID := req.GetString("item_id", "")
	if itemID == "" {
		return mcp.NewToolResultError("item_id is required"), nil
	}
	done, err := s.api.MarkDone(ctx, itemID, req.GetInt("timezone_offset", 0))
	if err != nil {
		return apiError("failed to mark task done", err), nil
	}
	return jsonResult(map[string]any{"completed_task": done})
}

func (s *Server) handleStartTracking(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := req.GetString("task_id", "")
	if taskID == "" {
		return mcp.NewToolResultError("task_id is required"), nil
	}
	res, err := s.api.StartTracking(ctx, taskID)
	if err != nil {
		return apiError("failed to start tracking", err), nil
	}
	return jsonResult(map[string]any{"tracking": res})
}

func (s *Server) handleStopTracking(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := req.GetString("task_id", "")
	if taskID == "" {
		return mcp.NewToolResultError("task_id is required"), nil
	}
	res, err := s.api.StopTracking(ctx, taskID)
	if err != nil {
		return apiError("failed to stop tracking", err), nil
	}
	return jsonResult(map[string]any{"tracking": res})
}

func (s *Server) handleGetTimeTracks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := req.GetStringSlice("task_ids", nil)
	if len(ids) == 0 {
		return mcp.NewToolResultError("task_ids is required"), nil
	}
	tracks, err := s.api.GetTimeTracks(ctx, ids)
	if err != nil {
		return apiError("failed to get time tracks", err), nil
	}
	return jsonResult(map[string]any{"time_tracks": tracks})
}

func (s *Server) handleClaimRewardPoints(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemID := req.GetString("item_id", "")
	date := req.GetString("date", "")
	points := req.GetInt("points", 0)
	if itemID == "" || date == "" || points <= 0 {
		return mcp.NewToolResultError("points, item_id and date are required"), nil
	}
	reward, err := s.api.ClaimRewardPoints(ctx, points, itemID, date)
	if err != nil {
		return apiError("failed to claim reward points", err), nil
	}
	return jsonResult(map[string]any{"reward": reward})
}
