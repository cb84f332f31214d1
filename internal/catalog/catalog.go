package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"classline/internal/domain"
	"classline/internal/events"
	"classline/internal/repo"
)

// Service owns the write paths for the four record stores. Every
// mutation runs in a transaction and appends an audit event.
type Service struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Now    func() time.Time
}

func New(db *sql.DB) Service {
	return Service{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Now:    time.Now,
	}
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Service) nowStr() string {
	return s.now().UTC().Format(time.RFC3339)
}

// LessonPlanOptions are parameters for creating or updating a plan.
type LessonPlanOptions struct {
	ID         string
	Title      string
	Subject    string
	GradeLevel string
	Objectives string
	ActorID    string
}

func (s Service) CreateLessonPlan(ctx context.Context, opts LessonPlanOptions) (domain.LessonPlan, error) {
	if opts.Title == "" {
		return domain.LessonPlan{}, errors.New("title is required")
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := s.nowStr()
	p := domain.LessonPlan{
		ID:         id,
		Title:      opts.Title,
		Subject:    opts.Subject,
		GradeLevel: opts.GradeLevel,
		Objectives: opts.Objectives,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.LessonPlan{}, err
	}
	defer tx.Rollback()
	if err := s.Repo.InsertLessonPlan(ctx, tx, p); err != nil {
		return domain.LessonPlan{}, fmt.Errorf("insert lesson plan: %w", err)
	}
	if err := s.Events.Append(ctx, tx, "lesson.created", "lesson_plan", p.ID, opts.ActorID, events.EventPayload{"title": p.Title}); err != nil {
		return domain.LessonPlan{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.LessonPlan{}, err
	}
	return p, nil
}

func (s Service) UpdateLessonPlan(ctx context.Context, opts LessonPlanOptions) (domain.LessonPlan, error) {
	p, err := s.Repo.GetLessonPlan(ctx, opts.ID)
	if err != nil {
		return p, err
	}
	if opts.Title != "" {
		p.Title = opts.Title
	}
	if opts.Subject != "" {
		p.Subject = opts.Subject
	}
	if opts.GradeLevel != "" {
		p.GradeLevel = opts.GradeLevel
	}
	if opts.Objectives != "" {
		p.Objectives = opts.Objectives
	}
	p.UpdatedAt = s.nowStr()
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()
	if err := s.Repo.UpdateLessonPlan(ctx, tx, p); err != nil {
		return p, err
	}
	if err := s.Events.Append(ctx, tx, "lesson.updated", "lesson_plan", p.ID, opts.ActorID, events.EventPayload{"title": p.Title}); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}

func (s Service) DeleteLessonPlan(ctx context.Context, id, actorID string) error {
	if err := s.Repo.DeleteLessonPlan(ctx, id); err != nil {
		return err
	}
	return s.appendEvent(ctx, "lesson.deleted", "lesson_plan", id, actorID, nil)
}

// AssignmentOptions are parameters for creating an assignment.
type AssignmentOptions struct {
	ID          string
	Title       string
	Subject     string
	Status      string
	TotalPoints int
	ActorID     string
}

func (s Service) CreateAssignment(ctx context.Context, opts AssignmentOptions) (domain.Assignment, error) {
	if opts.Title == "" {
		return domain.Assignment{}, errors.New("title is required")
	}
	if opts.Status == "" {
		opts.Status = "draft"
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := s.nowStr()
	a := domain.Assignment{
		ID:          id,
		Title:       opts.Title,
		Subject:     opts.Subject,
		Status:      opts.Status,
		TotalPoints: opts.TotalPoints,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Assignment{}, err
	}
	defer tx.Rollback()
	if err := s.Repo.InsertAssignment(ctx, tx, a); err != nil {
		return domain.Assignment{}, fmt.Errorf("insert assignment: %w", err)
	}
	if err := s.Events.Append(ctx, tx, "assignment.created", "assignment", a.ID, opts.ActorID, events.EventPayload{"title": a.Title, "status": a.Status}); err != nil {
		return domain.Assignment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Assignment{}, err
	}
	return a, nil
}

func ensureAssignmentTransition(oldStatus, newStatus string) error {
	switch oldStatus {
	case "draft":
		if newStatus == "assigned" {
			return nil
		}
	case "assigned":
		if newStatus == "submitted" || newStatus == "graded" {
			return nil
		}
	case "submitted":
		if newStatus == "graded" {
			return nil
		}
	}
	return fmt.Errorf("invalid assignment status transition %s -> %s", oldStatus, newStatus)
}

// SetAssignmentStatus moves an assignment along its lifecycle.
func (s Service) SetAssignmentStatus(ctx context.Context, id, status, actorID string) (domain.Assignment, error) {
	a, err := s.Repo.GetAssignment(ctx, id)
	if err != nil {
		return a, err
	}
	if status == a.Status {
		return a, nil
	}
	if err := ensureAssignmentTransition(a.Status, status); err != nil {
		return a, err
	}
	from := a.Status
	a.Status = status
	a.UpdatedAt = s.nowStr()
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return a, err
	}
	defer tx.Rollback()
	if err := s.Repo.UpdateAssignment(ctx, tx, a); err != nil {
		return a, err
	}
	evtType := "assignment.updated"
	if status == "graded" {
		evtType = "assignment.graded"
	}
	if err := s.Events.Append(ctx, tx, evtType, "assignment", a.ID, actorID, events.EventPayload{"from_status": from, "to_status": status}); err != nil {
		return a, err
	}
	if err := tx.Commit(); err != nil {
		return a, err
	}
	return a, nil
}

func (s Service) DeleteAssignment(ctx context.Context, id, actorID string) error {
	if err := s.Repo.DeleteAssignment(ctx, id); err != nil {
		return err
	}
	return s.appendEvent(ctx, "assignment.deleted", "assignment", id, actorID, nil)
}

// ResourceOptions are parameters for adding a catalog resource.
type ResourceOptions struct {
	ID      string
	Title   string
	Kind    string
	URL     string
	Subject string
	ActorID string
}

func (s Service) CreateResource(ctx context.Context, opts ResourceOptions) (domain.Resource, error) {
	if opts.Title == "" {
		return domain.Resource{}, errors.New("title is required")
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	res := domain.Resource{
		ID:        id,
		Title:     opts.Title,
		Kind:      opts.Kind,
		URL:       opts.URL,
		Subject:   opts.Subject,
		CreatedAt: s.nowStr(),
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Resource{}, err
	}
	defer tx.Rollback()
	if err := s.Repo.InsertResource(ctx, tx, res); err != nil {
		return domain.Resource{}, fmt.Errorf("insert resource: %w", err)
	}
	if err := s.Events.Append(ctx, tx, "resource.added", "resource", res.ID, opts.ActorID, events.EventPayload{"title": res.Title}); err != nil {
		return domain.Resource{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Resource{}, err
	}
	return res, nil
}

func (s Service) DeleteResource(ctx context.Context, id, actorID string) error {
	if err := s.Repo.DeleteResource(ctx, id); err != nil {
		return err
	}
	return s.appendEvent(ctx, "resource.deleted", "resource", id, actorID, nil)
}

// CalendarEventOptions are parameters for creating an event.
type CalendarEventOptions struct {
	ID      string
	Title   string
	Date    string
	Type    string
	Label   string
	ActorID string
}

func (s Service) CreateCalendarEvent(ctx context.Context, opts CalendarEventOptions) (domain.CalendarEvent, error) {
	if opts.Title == "" {
		return domain.CalendarEvent{}, errors.New("title is required")
	}
	if opts.Date == "" {
		return domain.CalendarEvent{}, errors.New("date is required")
	}
	if _, err := time.Parse(time.RFC3339, opts.Date); err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("invalid date: %w", err)
	}
	if opts.Type == "" {
		opts.Type = "other"
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	ev := domain.CalendarEvent{
		ID:        id,
		Title:     opts.Title,
		Date:      opts.Date,
		Type:      opts.Type,
		Label:     opts.Label,
		CreatedAt: s.nowStr(),
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.CalendarEvent{}, err
	}
	defer tx.Rollback()
	if err := s.Repo.InsertCalendarEvent(ctx, tx, ev); err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("insert calendar event: %w", err)
	}
	if err := s.Events.Append(ctx, tx, "event.created", "calendar_event", ev.ID, opts.ActorID, events.EventPayload{"title": ev.Title, "type": ev.Type}); err != nil {
		return domain.CalendarEvent{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.CalendarEvent{}, err
	}
	return ev, nil
}

// ToggleEventCompleted flips completion; used by the deadline toggle.
func (s Service) ToggleEventCompleted(ctx context.Context, id, actorID string) (domain.CalendarEvent, error) {
	ev, err := s.Repo.GetCalendarEvent(ctx, id)
	if err != nil {
		return ev, err
	}
	ev.Completed = !ev.Completed
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return ev, err
	}
	defer tx.Rollback()
	if err := s.Repo.UpdateCalendarEvent(ctx, tx, ev); err != nil {
		return ev, err
	}
	evtType := "event.reopened"
	if ev.Completed {
		evtType = "event.completed"
	}
	if err := s.Events.Append(ctx, tx, evtType, "calendar_event", ev.ID, actorID, events.EventPayload{"completed": ev.Completed}); err != nil {
		return ev, err
	}
	if err := tx.Commit(); err != nil {
		return ev, err
	}
	return ev, nil
}

func (s Service) DeleteCalendarEvent(ctx context.Context, id, actorID string) error {
	if err := s.Repo.DeleteCalendarEvent(ctx, id); err != nil {
		return err
	}
	return s.appendEvent(ctx, "event.deleted", "calendar_event", id, actorID, nil)
}

// UpdateStat upserts a single-field statistic.
func (s Service) UpdateStat(ctx context.Context, key string, value int, actorID string) (domain.Stat, error) {
	if key == "" {
		return domain.Stat{}, errors.New("key is required")
	}
	now := s.nowStr()
	if err := s.Repo.UpsertStat(ctx, key, value, now); err != nil {
		return domain.Stat{}, err
	}
	return domain.Stat{Key: key, Value: value, UpdatedAt: now}, nil
}

func (s Service) appendEvent(ctx context.Context, evtType, entityKind, entityID, actorID string, payload events.EventPayload) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := s.Events.Append(ctx, tx, evtType, entityKind, entityID, actorID, payload); err != nil {
		return err
	}
	return tx.Commit()
}
