package marvin

// Item is a Marvin document (task, project, done item) kept as the raw JSON
// object so fields the API adds later pass through untouched.
type Item map[string]any

func (it Item) str(key string) string {
	if v, ok := it[key].(string); ok {
		return v
	}
	return ""
}

func (it Item) ID() string       { return it.str("_id") }
func (it Item) Title() string    { return it.str("title") }
func (it Item) ParentID() string { return it.str("parentId") }
func (it Item) Type() string     { return it.str("type") }

func (it Item) Done() bool {
	done, _ := it["done"].(bool)
	return done
}

// Priority returns the item's priority label ("high", "mid", "low") if set.
func (it Item) Priority() string { return it.str("priority") }

type Project struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	ParentID string `json:"parentId,omitempty"`
}

type TaskRequest struct {
	Title      string `json:"title"`
	ParentID   string `json:"parentId,omitempty"`
	CategoryID string `json:"categoryId,omitempty"`
	DueDate    string `json:"dueDate,omitempty"`
	Note       string `json:"note,omitempty"`
}

type ProjectRequest struct {
	Title string `json:"title"`
	Type  string `json:"type"`
}

type markDoneRequest struct {
	ItemID         string `json:"itemId"`
	TimeZoneOffset int    `json:"timeZoneOffset"`
}

type trackRequest struct {
	TaskID string `json:"taskId"`
	Action string `json:"action"`
}

type tracksRequest struct {
	TaskIDs []string `json:"taskIds"`
}

type rewardRequest struct {
	Points int    `json:"points"`
	ItemID string `json:"itemId"`
	Date   string `json:"date"`
}
