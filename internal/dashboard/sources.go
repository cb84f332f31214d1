package dashboard

import (
	"context"

	"classline/internal/domain"
	"classline/internal/repo"
)

// The four backend record stores the feed is reconciled from. Each is
// an independent read-only collaborator; fetches may fail without
// taking the other sources down.

type LessonSource interface {
	RecentLessonPlans(ctx context.Context, limit int) ([]domain.LessonPlan, error)
}

type AssignmentSource interface {
	RecentAssignments(ctx context.Context, limit int) ([]domain.Assignment, error)
}

type ResourceSource interface {
	RecentResources(ctx context.Context, limit int) ([]domain.Resource, error)
}

type CalendarSource interface {
	CalendarEvents(ctx context.Context) ([]domain.CalendarEvent, error)
}

// Sources bundles the adapters the aggregator fans out over.
type Sources struct {
	Lessons     LessonSource
	Assignments AssignmentSource
	Resources   ResourceSource
	Calendar    CalendarSource
}

// RepoSources serves the adapters straight from the workspace database.
type RepoSources struct {
	Repo repo.Repo
}

func (s RepoSources) RecentLessonPlans(ctx context.Context, limit int) ([]domain.LessonPlan, error) {
	return s.Repo.ListLessonPlans(ctx, limit)
}

func (s RepoSources) RecentAssignments(ctx context.Context, limit int) ([]domain.Assignment, error) {
	return s.Repo.ListAssignments(ctx, limit)
}

func (s RepoSources) RecentResources(ctx context.Context, limit int) ([]domain.Resource, error) {
	return s.Repo.ListResources(ctx, limit)
}

func (s RepoSources) CalendarEvents(ctx context.Context) ([]domain.CalendarEvent, error) {
	return s.Repo.ListCalendarEvents(ctx, 0)
}

// NewRepoSources wires all four adapters to one repo.
func NewRepoSources(r repo.Repo) Sources {
	rs := RepoSources{Repo: r}
	return Sources{Lessons: rs, Assignments: rs, Resources: rs, Calendar: rs}
}

// --- record mapping ---
//
// Adapter ids are derived from the external record so repeated
// aggregation runs produce the same ids and stay de-duplicable.

func (e *Engine) lessonActivities(plans []domain.LessonPlan) []domain.ActivityItem {
	var out []domain.ActivityItem
	for _, p := range plans {
		if p.ID == "" || p.Title == "" {
			e.warnf("skipping lesson plan record: %v", ErrMalformedRecord)
			continue
		}
		ts := p.UpdatedAt
		if ts == "" {
			ts = p.CreatedAt
		}
		out = append(out, domain.ActivityItem{
			ID:        "lesson_created_" + p.ID,
			Text:      "Created lesson plan: " + p.Title,
			Timestamp: ts,
			Category:  "lesson",
			Details:   p.Subject,
		})
	}
	return out
}

// assignmentActivities emits a created entry per assignment plus a
// graded entry when grading has happened.
func (e *Engine) assignmentActivities(assignments []domain.Assignment) []domain.ActivityItem {
	var out []domain.ActivityItem
	for _, a := range assignments {
		if a.ID == "" || a.Title == "" {
			e.warnf("skipping assignment record: %v", ErrMalformedRecord)
			continue
		}
		out = append(out, domain.ActivityItem{
			ID:        "assignment_created_" + a.ID,
			Text:      "Created assignment: " + a.Title,
			Timestamp: a.CreatedAt,
			Category:  "grade",
			Details:   a.Subject,
		})
		if a.Status == "graded" {
			out = append(out, domain.ActivityItem{
				ID:        "assignment_graded_" + a.ID,
				Text:      "Graded assignment: " + a.Title,
				Timestamp: a.UpdatedAt,
				Category:  "grade",
				Details:   a.Subject,
			})
		}
	}
	return out
}

func (e *Engine) resourceActivities(resources []domain.Resource) []domain.ActivityItem {
	var out []domain.ActivityItem
	for _, res := range resources {
		if res.ID == "" || res.Title == "" {
			e.warnf("skipping resource record: %v", ErrMalformedRecord)
			continue
		}
		out = append(out, domain.ActivityItem{
			ID:        "resource_added_" + res.ID,
			Text:      "Added resource: " + res.Title,
			Timestamp: res.CreatedAt,
			Category:  "resource",
			Details:   res.Kind,
		})
	}
	return out
}

// calendarActivities maps the newest non-deadline events onto the
// feed. Deadline-flagged events feed the progress calculator instead,
// via Deadlines.
func (e *Engine) calendarActivities(events []domain.CalendarEvent) []domain.ActivityItem {
	var out []domain.ActivityItem
	for _, ev := range events {
		if len(out) >= e.Limits.Events {
			break
		}
		if ev.ID == "" || ev.Title == "" {
			e.warnf("skipping calendar record: %v", ErrMalformedRecord)
			continue
		}
		if e.Classifier.IsDeadline(ev) {
			continue
		}
		out = append(out, domain.ActivityItem{
			ID:        "event_scheduled_" + ev.ID,
			Text:      "Scheduled event: " + ev.Title,
			Timestamp: ev.Date,
			Category:  e.Classifier.EventCategory(ev.Type),
			Details:   ev.Label,
		})
	}
	return out
}

// Deadlines fetches the calendar store and returns every
// deadline-flagged event as a DeadlineItem.
func (e *Engine) Deadlines(ctx context.Context) ([]domain.DeadlineItem, error) {
	events, err := e.Sources.Calendar.CalendarEvents(ctx)
	if err != nil {
		return nil, sourceErr("calendar", err)
	}
	var out []domain.DeadlineItem
	for _, ev := range events {
		if !e.Classifier.IsDeadline(ev) {
			continue
		}
		if ev.ID == "" || ev.Title == "" || ev.Date == "" {
			e.warnf("skipping deadline record: %v", ErrMalformedRecord)
			continue
		}
		out = append(out, domain.DeadlineItem{
			ID:        ev.ID,
			Task:      ev.Title,
			DueDate:   ev.Date,
			Completed: ev.Completed,
			Category:  e.Classifier.DeadlineCategory(ev.Label),
			Priority:  e.Classifier.Priority(ev.Label),
		})
	}
	return out, nil
}
