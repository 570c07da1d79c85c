package models

import "time"

// Task status constants
const (
	StatusTodo       = "todo"
	StatusInProgress = "inprogress"
	StatusDone       = "done"
)

// Request types

type GenerateRequest struct {
	Vision string `json:"vision"`
}

type PatchTaskRequest struct {
	EstDays *int    `json:"est_days,omitempty"`
	Status  *string `json:"status,omitempty"`
	Done    *bool   `json:"done,omitempty"`
}

// ChangeItem is a single user-intended field edit.
type ChangeItem struct {
	Entity   string `json:"entity"`
	ID       int64  `json:"id"`
	Field    string `json:"field"`
	NewValue any    `json:"new_value"`
}

// SuggestedOp is a proposed edit: either the user's original change
// (Original=true) or a ripple derived from it.
type SuggestedOp struct {
	Entity   string `json:"entity"`
	ID       int64  `json:"id"`
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
	Reason   string `json:"reason"`
	Original bool   `json:"original"`
}

type PropagationRequest struct {
	Changes []ChangeItem `json:"changes"`
}

type ApplyRequest struct {
	Ops []SuggestedOp `json:"ops"`
}

// Response types

type GenerateResponse struct {
	ProjectID int64 `json:"project_id"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type PropagationPreview struct {
	Suggestions []SuggestedOp `json:"suggestions"`
}

type ApplyResult struct {
	Applied int `json:"applied"`
}

type KPIResponse struct {
	Outcomes       int     `json:"outcomes"`
	Benefits       int     `json:"benefits"`
	Deliverables   int     `json:"deliverables"`
	Tasks          int     `json:"tasks"`
	ActivityEvents int     `json:"activity_events"`
	SchemaPassRate float64 `json:"schema_pass_rate"`
}

type BudgetSummary struct {
	Total      float64            `json:"total"`
	ByCategory map[string]float64 `json:"by_category"`
}

// RiskSummary is a 5x5 count matrix: Matrix[p-1][i-1] holds the number
// of risks with (clamped) probability p and impact i.
type RiskSummary struct {
	Matrix [5][5]int `json:"matrix"`
}

type BacklogItem struct {
	TaskID        int64  `json:"task_id"`
	Name          string `json:"name"`
	EstDays       int    `json:"est_days"`
	DeliverableID int64  `json:"deliverable_id"`
	Status        string `json:"status"`
}

type BacklogResponse struct {
	Columns map[string][]BacklogItem `json:"columns"`
}

// TimelineEntry is a half-open window [Start, End) in YYYY-MM-DD dates.
type TimelineEntry struct {
	TaskID        int64  `json:"task_id"`
	Name          string `json:"name"`
	DeliverableID int64  `json:"deliverable_id"`
	Start         string `json:"start"`
	End           string `json:"end"`
	EstDays       int    `json:"est_days"`
}

type TimelineResponse struct {
	Entries []TimelineEntry `json:"entries"`
}

type BurnResponse struct {
	Days        []string  `json:"days"`
	Ideal       []float64 `json:"ideal"`
	Actual      []float64 `json:"actual"`
	TotalPoints float64   `json:"total_points"`
}

type VelocityWindow struct {
	Start  string  `json:"start"`
	End    string  `json:"end"`
	Points float64 `json:"points"`
}

type VelocityResponse struct {
	Windows []VelocityWindow `json:"windows"`
}

type CadenceResponse struct {
	Sprint int    `json:"sprint"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

// Domain types

type Project struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Vision      string  `json:"vision"`
	Description *string `json:"description"`
}

type Outcome struct {
	ID          int64   `json:"id"`
	ProjectID   int64   `json:"project_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type Benefit struct {
	ID          int64   `json:"id"`
	OutcomeID   int64   `json:"outcome_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type Deliverable struct {
	ID          int64   `json:"id"`
	BenefitID   int64   `json:"benefit_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type Task struct {
	ID            int64  `json:"id"`
	DeliverableID int64  `json:"deliverable_id"`
	Name          string `json:"name"`
	EstDays       int    `json:"est_days"`
	DependsOnID   *int64 `json:"depends_on_id"`
}

type BudgetLine struct {
	ID       int64   `json:"id"`
	Item     string  `json:"item"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
}

type GovernanceEvent struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Cadence string  `json:"cadence"`
	Owner   *string `json:"owner"`
}

type ReportSpec struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Frequency string  `json:"frequency"`
	Audience  *string `json:"audience"`
}

type Risk struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Probability int     `json:"probability"`
	Impact      int     `json:"impact"`
	Mitigation  *string `json:"mitigation"`
}

type TaskState struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	Status    string    `json:"status"`
	Done      bool      `json:"done"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Nested tree served by GET /projects/{id}

type TaskNode struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	EstDays     int    `json:"est_days"`
	DependsOnID *int64 `json:"depends_on_id"`
}

type DeliverableTree struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Tasks       []TaskNode `json:"tasks"`
}

type BenefitTree struct {
	ID           int64             `json:"id"`
	Name         string            `json:"name"`
	Description  *string           `json:"description"`
	Deliverables []DeliverableTree `json:"deliverables"`
}

type OutcomeTree struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description *string       `json:"description"`
	Benefits    []BenefitTree `json:"benefits"`
}

type ProjectTree struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Vision      string            `json:"vision"`
	Description *string           `json:"description"`
	Outcomes    []OutcomeTree     `json:"outcomes"`
	Budget      []BudgetLine      `json:"budget"`
	Governance  []GovernanceEvent `json:"governance"`
	Reporting   []ReportSpec      `json:"reporting"`
	Risks       []Risk            `json:"risks"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
