package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"classline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// --- lesson plans ---

func (r Repo) InsertLessonPlan(ctx context.Context, tx *sql.Tx, p domain.LessonPlan) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO lesson_plans(id,title,subject,grade_level,objectives,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		p.ID, p.Title, nullable(p.Subject), nullable(p.GradeLevel), nullable(p.Objectives), p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) GetLessonPlan(ctx context.Context, id string) (domain.LessonPlan, error) {
	var p domain.LessonPlan
	err := r.DB.QueryRowContext(ctx, `SELECT id,title,COALESCE(subject,''),COALESCE(grade_level,''),COALESCE(objectives,''),created_at,updated_at FROM lesson_plans WHERE id=?`, id).
		Scan(&p.ID, &p.Title, &p.Subject, &p.GradeLevel, &p.Objectives, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// ListLessonPlans returns the newest plans first; limit<=0 means all.
func (r Repo) ListLessonPlans(ctx context.Context, limit int) ([]domain.LessonPlan, error) {
	query := `SELECT id,title,COALESCE(subject,''),COALESCE(grade_level,''),COALESCE(objectives,''),created_at,updated_at FROM lesson_plans ORDER BY updated_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.LessonPlan
	for rows.Next() {
		var p domain.LessonPlan
		if err := rows.Scan(&p.ID, &p.Title, &p.Subject, &p.GradeLevel, &p.Objectives, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) UpdateLessonPlan(ctx context.Context, tx *sql.Tx, p domain.LessonPlan) error {
	res, err := tx.ExecContext(ctx, `UPDATE lesson_plans SET title=?,subject=?,grade_level=?,objectives=?,updated_at=? WHERE id=?`,
		p.Title, nullable(p.Subject), nullable(p.GradeLevel), nullable(p.Objectives), p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteLessonPlan(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM lesson_plans WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- assignments ---

func (r Repo) InsertAssignment(ctx context.Context, tx *sql.Tx, a domain.Assignment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO assignments(id,title,subject,status,total_points,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		a.ID, a.Title, nullable(a.Subject), a.Status, nullableInt(a.TotalPoints), a.CreatedAt, a.UpdatedAt)
	return err
}

func (r Repo) GetAssignment(ctx context.Context, id string) (domain.Assignment, error) {
	var a domain.Assignment
	err := r.DB.QueryRowContext(ctx, `SELECT id,title,COALESCE(subject,''),status,COALESCE(total_points,0),created_at,updated_at FROM assignments WHERE id=?`, id).
		Scan(&a.ID, &a.Title, &a.Subject, &a.Status, &a.TotalPoints, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

func (r Repo) ListAssignments(ctx context.Context, limit int) ([]domain.Assignment, error) {
	query := `SELECT id,title,COALESCE(subject,''),status,COALESCE(total_points,0),created_at,updated_at FROM assignments ORDER BY updated_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(&a.ID, &a.Title, &a.Subject, &a.Status, &a.TotalPoints, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) UpdateAssignment(ctx context.Context, tx *sql.Tx, a domain.Assignment) error {
	res, err := tx.ExecContext(ctx, `UPDATE assignments SET title=?,subject=?,status=?,total_points=?,updated_at=? WHERE id=?`,
		a.Title, nullable(a.Subject), a.Status, nullableInt(a.TotalPoints), a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteAssignment(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM assignments WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- resources ---

func (r Repo) InsertResource(ctx context.Context, tx *sql.Tx, res domain.Resource) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO resources(id,title,kind,url,subject,created_at) VALUES (?,?,?,?,?,?)`,
		res.ID, res.Title, nullable(res.Kind), nullable(res.URL), nullable(res.Subject), res.CreatedAt)
	return err
}

func (r Repo) GetResource(ctx context.Context, id string) (domain.Resource, error) {
	var res domain.Resource
	err := r.DB.QueryRowContext(ctx, `SELECT id,title,COALESCE(kind,''),COALESCE(url,''),COALESCE(subject,''),created_at FROM resources WHERE id=?`, id).
		Scan(&res.ID, &res.Title, &res.Kind, &res.URL, &res.Subject, &res.CreatedAt)
	if err == sql.ErrNoRows {
		return res, ErrNotFound
	}
	return res, err
}

func (r Repo) ListResources(ctx context.Context, limit int) ([]domain.Resource, error) {
	query := `SELECT id,title,COALESCE(kind,''),COALESCE(url,''),COALESCE(subject,''),created_at FROM resources ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Resource
	for rows.Next() {
		var res domain.Resource
		if err := rows.Scan(&res.ID, &res.Title, &res.Kind, &res.URL, &res.Subject, &res.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r Repo) DeleteResource(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM resources WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- calendar events ---

func (r Repo) InsertCalendarEvent(ctx context.Context, tx *sql.Tx, ev domain.CalendarEvent) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO calendar_events(id,title,date,type,label,completed,created_at) VALUES (?,?,?,?,?,?,?)`,
		ev.ID, ev.Title, ev.Date, ev.Type, nullable(ev.Label), boolInt(ev.Completed), ev.CreatedAt)
	return err
}

func (r Repo) GetCalendarEvent(ctx context.Context, id string) (domain.CalendarEvent, error) {
	var ev domain.CalendarEvent
	var completed int
	err := r.DB.QueryRowContext(ctx, `SELECT id,title,date,type,COALESCE(label,''),completed,created_at FROM calendar_events WHERE id=?`, id).
		Scan(&ev.ID, &ev.Title, &ev.Date, &ev.Type, &ev.Label, &completed, &ev.CreatedAt)
	if err == sql.ErrNoRows {
		return ev, ErrNotFound
	}
	ev.Completed = completed != 0
	return ev, err
}

func (r Repo) ListCalendarEvents(ctx context.Context, limit int) ([]domain.CalendarEvent, error) {
	query := `SELECT id,title,date,type,COALESCE(label,''),completed,created_at FROM calendar_events ORDER BY date DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CalendarEvent
	for rows.Next() {
		var ev domain.CalendarEvent
		var completed int
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Date, &ev.Type, &ev.Label, &completed, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Completed = completed != 0
		res = append(res, ev)
	}
	return res, rows.Err()
}

func (r Repo) UpdateCalendarEvent(ctx context.Context, tx *sql.Tx, ev domain.CalendarEvent) error {
	res, err := tx.ExecContext(ctx, `UPDATE calendar_events SET title=?,date=?,type=?,label=?,completed=? WHERE id=?`,
		ev.Title, ev.Date, ev.Type, nullable(ev.Label), boolInt(ev.Completed), ev.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteCalendarEvent(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM calendar_events WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- stats ---

func (r Repo) UpsertStat(ctx context.Context, key string, value int, updatedAt string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO stats(key,value,updated_at) VALUES (?,?,?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`, key, value, updatedAt)
	return err
}

func (r Repo) GetStat(ctx context.Context, key string) (domain.Stat, error) {
	var s domain.Stat
	err := r.DB.QueryRowContext(ctx, `SELECT key,value,updated_at FROM stats WHERE key=?`, key).
		Scan(&s.Key, &s.Value, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) ListStats(ctx context.Context) ([]domain.Stat, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT key,value,updated_at FROM stats ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Stat
	for rows.Next() {
		var s domain.Stat
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// CountRecords reports row counts per record store, used by the bulk
// sync endpoint's response.
func (r Repo) CountRecords(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{}
	for name, table := range map[string]string{
		"lesson_plans":    "lesson_plans",
		"assignments":     "assignments",
		"resources":       "resources",
		"calendar_events": "calendar_events",
	} {
		var n int
		if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		counts[name] = n
	}
	return counts, nil
}

// --- audit events ---

func (r Repo) ListEvents(ctx context.Context, limit int, types []string) ([]domain.Event, error) {
	query := `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events`
	var args []any
	if len(types) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(types)), ",")
		query += fmt.Sprintf(` WHERE type IN (%s)`, placeholders)
		for _, t := range types {
			args = append(args, t)
		}
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var ev domain.Event
		if err := rows.Scan(&ev.ID, &ev.TS, &ev.Type, &ev.EntityKind, &ev.EntityID, &ev.ActorID, &ev.Payload); err != nil {
			return nil, err
		}
		res = append(res, ev)
	}
	return res, rows.Err()
}

// --- helpers ---

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
