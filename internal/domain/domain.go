package domain

// LessonPlan is a teacher-authored plan for a class session.
type LessonPlan struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Subject    string `json:"subject,omitempty"`
	GradeLevel string `json:"grade_level,omitempty"`
	Objectives string `json:"objectives,omitempty"`
	CreatedAt  string `json:"created_at" format:"date-time"`
	UpdatedAt  string `json:"updated_at" format:"date-time"`
}

type Assignment struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Subject     string `json:"subject,omitempty"`
	Status      string `json:"status" enum:"draft,assigned,submitted,graded"`
	TotalPoints int    `json:"total_points,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type Resource struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Kind      string `json:"kind,omitempty"`
	URL       string `json:"url,omitempty"`
	Subject   string `json:"subject,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// CalendarEvent is a dated entry; deadline-flagged events also feed the
// progress calculator.
type CalendarEvent struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Date      string `json:"date" format:"date-time"`
	Type      string `json:"type" enum:"lesson,meeting,deadline,other"`
	Label     string `json:"label,omitempty"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// ActivityItem is one entry of the unified dashboard feed.
type ActivityItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp" format:"date-time"`
	Category  string `json:"category" enum:"lesson,resource,grade,meeting,deadline,assessment,other"`
	Details   string `json:"details,omitempty"`
}

// DeadlineItem is the progress calculator's view of a deadline event.
type DeadlineItem struct {
	ID        string `json:"id"`
	Task      string `json:"task"`
	DueDate   string `json:"due_date" format:"date-time"`
	Completed bool   `json:"completed"`
	Category  string `json:"category" enum:"grading,planning,meeting,other"`
	Priority  string `json:"priority" enum:"high,medium,low"`
}

// ProgressBreakdown buckets every deadline into exactly one of four states.
type ProgressBreakdown struct {
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Overdue    int `json:"overdue"`
	Upcoming   int `json:"upcoming"`
}

func (b ProgressBreakdown) Total() int {
	return b.Completed + b.InProgress + b.Overdue + b.Upcoming
}

type Stat struct {
	Key       string `json:"key"`
	Value     int    `json:"value"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
