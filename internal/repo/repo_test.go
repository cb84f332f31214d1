package repo_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"classline/internal/db"
	"classline/internal/domain"
	"classline/internal/migrate"
	"classline/internal/repo"
)

func newTestRepo(t *testing.T) repo.Repo {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn}
}

func inTx(t *testing.T, r repo.Repo, fn func(tx *sql.Tx) error) {
	t.Helper()
	tx, err := r.DB.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		t.Fatalf("tx op: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestListLessonPlansOrderAndLimit(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		ts := base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339)
		p := domain.LessonPlan{
			ID:        fmt.Sprintf("lp%d", i),
			Title:     fmt.Sprintf("Plan %d", i),
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		inTx(t, r, func(tx *sql.Tx) error { return r.InsertLessonPlan(ctx, tx, p) })
	}

	items, err := r.ListLessonPlans(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].ID != "lp3" || items[1].ID != "lp2" {
		t.Fatalf("items = %v, want newest two first", items)
	}

	all, err := r.ListLessonPlans(ctx, 0)
	if err != nil || len(all) != 4 {
		t.Fatalf("list all = %d items (%v), want 4", len(all), err)
	}
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	if _, err := r.GetLessonPlan(ctx, "nope"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("lesson plan err = %v", err)
	}
	if _, err := r.GetAssignment(ctx, "nope"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("assignment err = %v", err)
	}
	if _, err := r.GetCalendarEvent(ctx, "nope"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("event err = %v", err)
	}
	if _, err := r.GetStat(ctx, "nope"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("stat err = %v", err)
	}
	if err := r.DeleteResource(ctx, "nope"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("delete err = %v", err)
	}
}

func TestUpsertStat(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC).Format(time.RFC3339)
	if err := r.UpsertStat(ctx, "weekly_progress", 25, now); err != nil {
		t.Fatalf("insert stat: %v", err)
	}
	if err := r.UpsertStat(ctx, "weekly_progress", 75, now); err != nil {
		t.Fatalf("update stat: %v", err)
	}
	s, err := r.GetStat(ctx, "weekly_progress")
	if err != nil || s.Value != 75 {
		t.Fatalf("stat = %+v (%v), want 75", s, err)
	}
	stats, err := r.ListStats(ctx)
	if err != nil || len(stats) != 1 {
		t.Fatalf("list stats = %v (%v)", stats, err)
	}
}

func TestCountRecords(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC).Format(time.RFC3339)
	inTx(t, r, func(tx *sql.Tx) error {
		return r.InsertResource(ctx, tx, domain.Resource{ID: "r1", Title: "Chart", CreatedAt: now})
	})
	inTx(t, r, func(tx *sql.Tx) error {
		return r.InsertCalendarEvent(ctx, tx, domain.CalendarEvent{ID: "e1", Title: "Review", Date: now, Type: "other", CreatedAt: now})
	})
	counts, err := r.CountRecords(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	want := map[string]int{"lesson_plans": 0, "assignments": 0, "resources": 1, "calendar_events": 1}
	for k, v := range want {
		if counts[k] != v {
			t.Fatalf("counts[%s] = %d, want %d (all: %v)", k, counts[k], v, counts)
		}
	}
}
