package server

import (
	"classline/internal/domain"
)

// Request payloads

type CreateLessonPlanRequest struct {
	ID         *string `json:"id,omitempty"`
	Title      string  `json:"title"`
	Subject    *string `json:"subject,omitempty"`
	GradeLevel *string `json:"grade_level,omitempty"`
	Objectives *string `json:"objectives,omitempty"`
}

type UpdateLessonPlanRequest struct {
	Title      *string `json:"title,omitempty"`
	Subject    *string `json:"subject,omitempty"`
	GradeLevel *string `json:"grade_level,omitempty"`
	Objectives *string `json:"objectives,omitempty"`
}

type CreateAssignmentRequest struct {
	ID          *string `json:"id,omitempty"`
	Title       string  `json:"title"`
	Subject     *string `json:"subject,omitempty"`
	Status      *string `json:"status,omitempty" enum:"draft,assigned,submitted,graded"`
	TotalPoints *int    `json:"total_points,omitempty"`
}

type UpdateAssignmentStatusRequest struct {
	Status string `json:"status" enum:"assigned,submitted,graded"`
}

type CreateResourceRequest struct {
	ID      *string `json:"id,omitempty"`
	Title   string  `json:"title"`
	Kind    *string `json:"kind,omitempty"`
	URL     *string `json:"url,omitempty"`
	Subject *string `json:"subject,omitempty"`
}

type CreateCalendarEventRequest struct {
	ID    *string `json:"id,omitempty"`
	Title string  `json:"title"`
	Date  string  `json:"date" format:"date-time"`
	Type  *string `json:"type,omitempty" enum:"lesson,meeting,deadline,other"`
	Label *string `json:"label,omitempty"`
}

type UpdateStatRequest struct {
	Value int `json:"value"`
}

type SyncRequest struct {
	NoMockData      bool `json:"no_mock_data,omitempty"`
	UseRealDataOnly bool `json:"use_real_data_only,omitempty"`
	ForceRealData   bool `json:"force_real_data,omitempty"`
}

type LogActivityRequest struct {
	Text     string  `json:"text"`
	Category *string `json:"category,omitempty" enum:"lesson,resource,grade,meeting,deadline,assessment,other"`
	Details  *string `json:"details,omitempty"`
}

// Response payloads

type SyncResponse struct {
	WeeklyProgress int            `json:"weekly_progress"`
	RecordCounts   map[string]int `json:"record_counts"`
}

type ProgressResponse struct {
	Breakdown      domain.ProgressBreakdown `json:"breakdown"`
	WeeklyProgress int                      `json:"weekly_progress"`
	Deadlines      []domain.DeadlineItem    `json:"deadlines"`
}

type ActivityFeedResponse struct {
	Items []domain.ActivityItem `json:"items"`
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
