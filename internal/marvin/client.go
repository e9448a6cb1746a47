package marvin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://serv.amazingmarvin.com/api"
	dateLayout     = "2006-01-02"
	categoryTTL    = 5 * time.Minute
)

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	categories *CategoryCache
	logger     *slog.Logger
	sleep      func(time.Duration)
}

func NewClient(apiKey string, baseURL string, timeout time.Duration, maxRetries int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: maxRetries,
		categories: NewCategoryCache(categoryTTL),
		logger:     logger,
		sleep:      time.Sleep,
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	c.logger.Debug("marvin API request", "method", method, "path", path)

	var resp *http.Response
	requestStart := time.Now()
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("X-API-Token", c.apiKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if attempt == c.maxRetries || ctx.Err() != nil {
				c.logger.Error("API request transport error", "method", method, "path", path, "error", err, "elapsed", time.Since(requestStart))
				return nil, &UpstreamError{Method: method, Endpoint: path, Err: err}
			}
			c.logger.Debug("API request transport error, retrying", "method", method, "path", path, "attempt", attempt+1, "error", err)
			c.sleep(backoff(attempt))
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			if attempt == c.maxRetries {
				break
			}
			resp.Body.Close()
			c.logger.Debug("API request retryable error", "method", method, "path", path, "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(backoff(attempt))
			continue
		}
		break
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Method: method, Endpoint: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	c.logger.Debug("marvin API response", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(respBody), "elapsed", time.Since(requestStart))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("API request failed", "method", method, "path", path, "status", resp.StatusCode, "response", truncate(string(respBody), 200))
		return nil, &UpstreamError{
			Method:     method,
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(respBody)), 200),
		}
	}

	return respBody, nil
}

func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// getJSON decodes a response into out. Empty bodies (204 and friends) leave
// out untouched.
func (c *Client) getJSON(ctx context.Context, method, path string, body, out interface{}) error {
	data, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s response: %w", path, err)
	}
	return nil
}

func (c *Client) list(ctx context.Context, path, what string) ([]Item, error) {
	var items []Item
	if err := c.getJSON(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, fmt.Errorf("getting %s: %w", what, err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

func (c *Client) object(ctx context.Context, method, path, what string, body interface{}) (Item, error) {
	item := Item{}
	if err := c.getJSON(ctx, method, path, body, &item); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return item, nil
}

// GetDoneItems returns the items completed on the given calendar day.
func (c *Client) GetDoneItems(ctx context.Context, date time.Time) ([]Item, error) {
	path := "/doneItems?date=" + url.QueryEscape(date.Format(dateLayout))
	return c.list(ctx, path, "done items")
}

func (c *Client) GetTodayItems(ctx context.Context) ([]Item, error) {
	return c.list(ctx, "/todayItems", "today items")
}

func (c *Client) GetDueItems(ctx context.Context) ([]Item, error) {
	return c.list(ctx, "/dueItems", "due items")
}

func (c *Client) GetCategories(ctx context.Context) ([]Item, error) {
	if cached := c.categories.Get(); cached != nil {
		return cached, nil
	}
	categories, err := c.list(ctx, "/categories", "categories")
	if err != nil {
		return nil, err
	}
	c.categories.Set(categories)
	return categories, nil
}

// GetProjects returns categories of type "project". Most accounts start with
// the default "Work" and "Personal" projects.
func (c *Client) GetProjects(ctx context.Context) ([]Project, error) {
	categories, err := c.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting projects: %w", err)
	}
	projects := make([]Project, 0, len(categories))
	for _, cat := range categories {
		if cat.Type() != "project" {
			continue
		}
		projects = append(projects, Project{
			ID:       cat.ID(),
			Title:    cat.Title(),
			Type:     cat.Type(),
			ParentID: cat.ParentID(),
		})
	}
	return projects, nil
}

// GetChildren lists the children of a task or project. The endpoint is
// experimental and answers 404 for some parents; that is treated as empty.
func (c *Client) GetChildren(ctx context.Context, parentID string) ([]Item, error) {
	items, err := c.list(ctx, "/children?parentId="+url.QueryEscape(parentID), "children")
	if err != nil {
		if IsNotFound(err) {
			c.logger.Warn("children endpoint not available", "parent_id", parentID)
			return []Item{}, nil
		}
		return nil, err
	}
	return items, nil
}

func (c *Client) GetLabels(ctx context.Context) ([]Item, error) {
	return c.list(ctx, "/labels", "labels")
}

func (c *Client) GetGoals(ctx context.Context) ([]Item, error) {
	return c.list(ctx, "/goals", "goals")
}

func (c *Client) GetAccount(ctx context.Context) (Item, error) {
	return c.object(ctx, http.MethodGet, "/me", "getting account", nil)
}

func (c *Client) GetKudos(ctx context.Context) (Item, error) {
	return c.object(ctx, http.MethodGet, "/kudos", "getting kudos", nil)
}

// GetTrackedItem returns the item currently being tracked, or nil when
// nothing is.
func (c *Client) GetTrackedItem(ctx context.Context) (Item, error) {
	item, err := c.object(ctx, http.MethodGet, "/trackedItem", "getting tracked item", nil)
	if err != nil {
		return nil, err
	}
	if len(item) == 0 {
		return nil, nil
	}
	return item, nil
}

func (c *Client) CreateTask(ctx context.Context, task TaskRequest) (Item, error) {
	if task.Title == "" {
		return nil, fmt.Errorf("creating task: title is empty")
	}
	return c.object(ctx, http.MethodPost, "/addTask", "creating task", task)
}

func (c *Client) CreateProject(ctx context.Context, project ProjectRequest) (Item, error) {
	if project.Type == "" {
		project.Type = "project"
	}
	created, err := c.object(ctx, http.MethodPost, "/addProject", "creating project", project)
	if err != nil {
		return nil, err
	}
	c.categories.Invalidate()
	return created, nil
}

func (c *Client) MarkDone(ctx context.Context, itemID string, timezoneOffset int) (Item, error) {
	return c.object(ctx, http.MethodPost, "/markDone", "marking item done", markDoneRequest{ItemID: itemID, TimeZoneOffset: timezoneOffset})
}

func (c *Client) StartTracking(ctx context.Context, taskID string) (Item, error) {
	return c.object(ctx, http.MethodPost, "/track", "starting tracking", trackRequest{TaskID: taskID, Action: "START"})
}

func (c *Client) StopTracking(ctx context.Context, taskID string) (Item, error) {
	return c.object(ctx, http.MethodPost, "/track", "stopping tracking", trackRequest{TaskID: taskID, Action: "STOP"})
}

func (c *Client) GetTimeTracks(ctx context.Context, taskIDs []string) (any, error) {
	var out any
	if err := c.getJSON(ctx, http.MethodPost, "/tracks", tracksRequest{TaskIDs: taskIDs}, &out); err != nil {
		return nil, fmt.Errorf("getting time tracks: %w", err)
	}
	return out, nil
}

func (c *Client) ClaimRewardPoints(ctx context.Context, points int, itemID, date string) (Item, error) {
	return c.object(ctx, http.MethodPost, "/claimRewardPoints", "claiming reward points", rewardRequest{Points: points, ItemID: itemID, Date: date})
}

// TestConnection posts to /test, which answers with plain "OK".
func (c *Client) TestConnection(ctx context.Context) (string, error) {
	data, err := c.doRequest(ctx, http.MethodPost, "/test", nil)
	if err != nil {
		return "", fmt.Errorf("testing connection: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
