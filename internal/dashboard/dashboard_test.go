package dashboard_test

import (
	"context"
	"errors"
	"io"
	"log"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"classline/internal/config"
	"classline/internal/dashboard"
	"classline/internal/domain"
)

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func ts(offset time.Duration) string {
	return testNow.Add(offset).Format(time.RFC3339)
}

type fakeSources struct {
	mu          sync.Mutex
	plans       []domain.LessonPlan
	plansErr    error
	assignments []domain.Assignment
	assignErr   error
	resources   []domain.Resource
	resErr      error
	events      []domain.CalendarEvent
	eventsErr   error
}

func (f *fakeSources) RecentLessonPlans(ctx context.Context, limit int) ([]domain.LessonPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.plansErr != nil {
		return nil, f.plansErr
	}
	return clip(f.plans, limit), nil
}

func (f *fakeSources) RecentAssignments(ctx context.Context, limit int) ([]domain.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assignErr != nil {
		return nil, f.assignErr
	}
	return clip(f.assignments, limit), nil
}

func (f *fakeSources) RecentResources(ctx context.Context, limit int) ([]domain.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resErr != nil {
		return nil, f.resErr
	}
	return clip(f.resources, limit), nil
}

func (f *fakeSources) CalendarEvents(ctx context.Context) ([]domain.CalendarEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return append([]domain.CalendarEvent(nil), f.events...), nil
}

func (f *fakeSources) setEvents(events []domain.CalendarEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = events
}

func (f *fakeSources) bundle() dashboard.Sources {
	return dashboard.Sources{Lessons: f, Assignments: f, Resources: f, Calendar: f}
}

func clip[T any](items []T, limit int) []T {
	out := append([]T(nil), items...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type fakeStats struct {
	mu     sync.Mutex
	values map[string]int
	err    error
}

func (f *fakeStats) PublishStat(ctx context.Context, key string, value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.values == nil {
		f.values = map[string]int{}
	}
	f.values[key] = value
	return nil
}

func (f *fakeStats) get(key string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok
}

func newTestEngine(t *testing.T, src *fakeSources, stats *fakeStats) *dashboard.Engine {
	t.Helper()
	cfg := config.Default("test-ws")
	eng := dashboard.New(cfg, src.bundle(), stats)
	eng.Now = func() time.Time { return testNow }
	eng.Logger = log.New(io.Discard, "", 0)
	return eng
}

func TestLogCapacityAndOrder(t *testing.T) {
	l := dashboard.NewLog(50)
	for i := 0; i < 55; i++ {
		l.Add("entry", "other", "")
	}
	if l.Len() != 50 {
		t.Fatalf("log length = %d, want 50", l.Len())
	}
	item := l.Add("newest", "other", "")
	if !strings.HasPrefix(item.ID, "local_") {
		t.Fatalf("log id = %q, want local_ prefix", item.ID)
	}
	items := l.Items()
	if items[0].Text != "newest" {
		t.Fatalf("first item = %q, want newest entry first", items[0].Text)
	}
	if len(items) != 50 {
		t.Fatalf("log length after add = %d, want 50", len(items))
	}
}

func TestLogClear(t *testing.T) {
	l := dashboard.NewLog(10)
	l.Add("one", "other", "")
	l.Add("two", "other", "")
	l.Clear()
	if l.Len() != 0 {
		t.Fatalf("log length after clear = %d, want 0", l.Len())
	}
}

func TestLogItemsCopy(t *testing.T) {
	l := dashboard.NewLog(10)
	l.Add("one", "other", "")
	items := l.Items()
	items[0].Text = "mutated"
	if l.Items()[0].Text != "one" {
		t.Fatalf("log item mutated through snapshot: %q", l.Items()[0].Text)
	}
}

func TestAggregateMergesAndSorts(t *testing.T) {
	src := &fakeSources{
		plans: []domain.LessonPlan{
			{ID: "lp1", Title: "Fractions", Subject: "Math", CreatedAt: ts(-3 * time.Hour), UpdatedAt: ts(-3 * time.Hour)},
		},
		assignments: []domain.Assignment{
			{ID: "a1", Title: "Quiz 4", Status: "graded", CreatedAt: ts(-4 * time.Hour), UpdatedAt: ts(-1 * time.Hour)},
		},
		resources: []domain.Resource{
			{ID: "r1", Title: "Worksheet", Kind: "pdf", CreatedAt: ts(-2 * time.Hour)},
		},
		events: []domain.CalendarEvent{
			{ID: "e1", Title: "Parent meeting", Date: ts(-5 * time.Hour), Type: "meeting"},
		},
	}
	eng := newTestEngine(t, src, &fakeStats{})
	eng.Log.Add("graded extra credit", "grade", "")

	feed, err := eng.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	wantIDs := []string{"assignment_graded_a1", "resource_added_r1", "lesson_created_lp1", "assignment_created_a1", "event_scheduled_e1"}
	var gotIDs []string
	for _, item := range feed {
		if strings.HasPrefix(item.ID, "local_") {
			if item.Text != "Graded extra credit" {
				t.Fatalf("local item text = %q", item.Text)
			}
			continue
		}
		gotIDs = append(gotIDs, item.ID)
	}
	if !reflect.DeepEqual(gotIDs, wantIDs) {
		t.Fatalf("feed order = %v, want %v", gotIDs, wantIDs)
	}
	for i := 1; i < len(feed); i++ {
		a, _ := time.Parse(time.RFC3339, feed[i-1].Timestamp)
		b, _ := time.Parse(time.RFC3339, feed[i].Timestamp)
		if b.After(a) {
			t.Fatalf("feed not time-descending at %d: %s before %s", i, feed[i-1].Timestamp, feed[i].Timestamp)
		}
	}
}

func TestAggregateDeduplicatesKeepFirst(t *testing.T) {
	src := &fakeSources{
		events: []domain.CalendarEvent{
			{ID: "e1", Title: "Staff meeting", Date: ts(-1 * time.Hour), Type: "meeting", Label: "first"},
			{ID: "e1", Title: "Staff meeting copy", Date: ts(-2 * time.Hour), Type: "meeting", Label: "second"},
		},
	}
	eng := newTestEngine(t, src, &fakeStats{})
	feed, err := eng.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	var hits []domain.ActivityItem
	for _, item := range feed {
		if item.ID == "event_scheduled_e1" {
			hits = append(hits, item)
		}
	}
	if len(hits) != 1 {
		t.Fatalf("duplicate ids in feed: %d entries for event_scheduled_e1", len(hits))
	}
	if hits[0].Details != "first" {
		t.Fatalf("dedup kept %q, want the first occurrence", hits[0].Details)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	src := &fakeSources{
		plans: []domain.LessonPlan{
			{ID: "lp1", Title: "Poetry", CreatedAt: ts(-1 * time.Hour)},
			{ID: "lp2", Title: "Geometry", CreatedAt: ts(-2 * time.Hour)},
		},
		events: []domain.CalendarEvent{
			{ID: "e1", Title: "Assembly", Date: ts(-90 * time.Minute), Type: "other"},
		},
	}
	eng := newTestEngine(t, src, &fakeStats{})
	first, err := eng.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	second, err := eng.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("aggregate again: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("aggregate is not idempotent:\nfirst:  %v\nsecond: %v", first, second)
	}
}

func TestAggregateFiltersSystemPhrases(t *testing.T) {
	eng := newTestEngine(t, &fakeSources{}, &fakeStats{})
	eng.Log.Add("Dashboard loaded", "other", "")
	eng.Log.Add("deadline sync refreshed", "other", "")
	eng.Log.Add("graded spelling test", "grade", "")

	feed, err := eng.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(feed) != 1 {
		t.Fatalf("feed length = %d, want 1 (system phrases filtered)", len(feed))
	}
	if feed[0].Text != "Graded spelling test" {
		t.Fatalf("feed text = %q", feed[0].Text)
	}
}

func TestAggregateSingleSourceFailure(t *testing.T) {
	src := &fakeSources{
		plans:  []domain.LessonPlan{{ID: "lp1", Title: "Reading", CreatedAt: ts(-1 * time.Hour)}},
		resErr: errors.New("store offline"),
	}
	eng := newTestEngine(t, src, &fakeStats{})
	feed, err := eng.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("aggregate with one failed source: %v", err)
	}
	if len(feed) != 1 || feed[0].ID != "lesson_created_lp1" {
		t.Fatalf("feed = %v, want the surviving lesson entry", feed)
	}
}

func TestAggregateAllSourcesFailed(t *testing.T) {
	boom := errors.New("store offline")
	src := &fakeSources{plansErr: boom, assignErr: boom, resErr: boom, eventsErr: boom}
	eng := newTestEngine(t, src, &fakeStats{})
	_, err := eng.Aggregate(context.Background())
	if !errors.Is(err, dashboard.ErrAllSourcesFailed) {
		t.Fatalf("err = %v, want ErrAllSourcesFailed", err)
	}
}

func TestAggregateSkipsMalformedRecords(t *testing.T) {
	src := &fakeSources{
		plans: []domain.LessonPlan{
			{ID: "lp1", Title: "", CreatedAt: ts(-1 * time.Hour)},
			{ID: "lp2", Title: "Algebra", CreatedAt: ts(-2 * time.Hour)},
		},
		assignments: []domain.Assignment{
			{ID: "", Title: "No id", CreatedAt: ts(-1 * time.Hour)},
		},
	}
	eng := newTestEngine(t, src, &fakeStats{})
	feed, err := eng.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(feed) != 1 || feed[0].ID != "lesson_created_lp2" {
		t.Fatalf("feed = %v, want only the well-formed lesson", feed)
	}
}

func TestCalendarFeedLimitAndDeadlineSplit(t *testing.T) {
	events := []domain.CalendarEvent{
		{ID: "d1", Title: "Grade essays", Date: ts(24 * time.Hour), Type: "deadline"},
		{ID: "e1", Title: "Assembly", Date: ts(-1 * time.Hour), Type: "other"},
		{ID: "e2", Title: "PTA meeting", Date: ts(-2 * time.Hour), Type: "meeting"},
		{ID: "e3", Title: "Field trip", Date: ts(-3 * time.Hour), Type: "other"},
		{ID: "e4", Title: "Fire drill", Date: ts(-4 * time.Hour), Type: "other"},
	}
	src := &fakeSources{events: events}
	eng := newTestEngine(t, src, &fakeStats{})

	feed, err := eng.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(feed) != 3 {
		t.Fatalf("feed length = %d, want 3 (event fetch limit)", len(feed))
	}
	for _, item := range feed {
		if item.ID == "event_scheduled_d1" {
			t.Fatalf("deadline event leaked into the activity feed")
		}
	}

	deadlines, err := eng.Deadlines(context.Background())
	if err != nil {
		t.Fatalf("deadlines: %v", err)
	}
	if len(deadlines) != 1 || deadlines[0].ID != "d1" {
		t.Fatalf("deadlines = %v, want the single deadline event", deadlines)
	}
}

func TestDeadlineClassification(t *testing.T) {
	src := &fakeSources{events: []domain.CalendarEvent{
		{ID: "d1", Title: "Grade quizzes", Date: ts(24 * time.Hour), Type: "deadline", Label: "urgent grading"},
		{ID: "d2", Title: "Plan unit", Date: ts(48 * time.Hour), Type: "other", Label: "planning deadline, low stakes"},
		{ID: "d3", Title: "Sign forms", Date: ts(72 * time.Hour), Type: "deadline"},
	}}
	eng := newTestEngine(t, src, &fakeStats{})
	deadlines, err := eng.Deadlines(context.Background())
	if err != nil {
		t.Fatalf("deadlines: %v", err)
	}
	byID := map[string]domain.DeadlineItem{}
	for _, d := range deadlines {
		byID[d.ID] = d
	}
	if d := byID["d1"]; d.Category != "grading" || d.Priority != "high" {
		t.Fatalf("d1 = %+v, want grading/high", d)
	}
	if d := byID["d2"]; d.Category != "planning" || d.Priority != "low" {
		t.Fatalf("d2 = %+v, want planning/low (label-based deadline detection)", d)
	}
	if d := byID["d3"]; d.Category != "other" || d.Priority != "medium" {
		t.Fatalf("d3 = %+v, want other/medium fallbacks", d)
	}
}

func TestBreakdownBuckets(t *testing.T) {
	eng := newTestEngine(t, &fakeSources{}, &fakeStats{})
	deadlines := []domain.DeadlineItem{
		{ID: "a", DueDate: ts(-time.Hour), Completed: true},    // completed wins over overdue
		{ID: "b", DueDate: ts(-time.Hour), Priority: "high"},   // overdue wins over priority
		{ID: "c", DueDate: ts(time.Hour), Priority: "high"},    // future high priority
		{ID: "d", DueDate: ts(time.Hour), Priority: "medium"},  // future other
		{ID: "e", DueDate: "not-a-timestamp", Priority: "low"}, // unparsable due date counts overdue
	}
	b := eng.Breakdown(deadlines)
	want := domain.ProgressBreakdown{Completed: 1, Overdue: 2, InProgress: 1, Upcoming: 1}
	if b != want {
		t.Fatalf("breakdown = %+v, want %+v", b, want)
	}
	if b.Total() != len(deadlines) {
		t.Fatalf("total = %d, want %d (every deadline in exactly one bucket)", b.Total(), len(deadlines))
	}
}

func TestWeeklyProgress(t *testing.T) {
	cases := []struct {
		b    domain.ProgressBreakdown
		want int
	}{
		{domain.ProgressBreakdown{}, 0},
		{domain.ProgressBreakdown{Completed: 1, Upcoming: 2}, 33},
		{domain.ProgressBreakdown{Completed: 2, Upcoming: 1}, 67},
		{domain.ProgressBreakdown{Completed: 4}, 100},
	}
	for _, c := range cases {
		if got := dashboard.WeeklyProgress(c.b); got != c.want {
			t.Fatalf("WeeklyProgress(%+v) = %d, want %d", c.b, got, c.want)
		}
	}
}

func TestComputeProgressPublishesStat(t *testing.T) {
	src := &fakeSources{events: []domain.CalendarEvent{
		{ID: "d1", Title: "Done", Date: ts(time.Hour), Type: "deadline", Completed: true},
		{ID: "d2", Title: "Open", Date: ts(time.Hour), Type: "deadline"},
	}}
	stats := &fakeStats{}
	eng := newTestEngine(t, src, stats)
	b, err := eng.ComputeProgress(context.Background())
	if err != nil {
		t.Fatalf("compute progress: %v", err)
	}
	if b.Completed != 1 || b.Upcoming != 1 {
		t.Fatalf("breakdown = %+v", b)
	}
	if v, ok := stats.get(dashboard.WeeklyProgressKey); !ok || v != 50 {
		t.Fatalf("published stat = %d (%v), want 50", v, ok)
	}
}

func TestComputeProgressSurvivesStatFailure(t *testing.T) {
	src := &fakeSources{events: []domain.CalendarEvent{
		{ID: "d1", Title: "Open", Date: ts(time.Hour), Type: "deadline"},
	}}
	eng := newTestEngine(t, src, &fakeStats{err: errors.New("write rejected")})
	b, err := eng.ComputeProgress(context.Background())
	if err != nil {
		t.Fatalf("compute progress with failing stat write: %v", err)
	}
	if b.Upcoming != 1 {
		t.Fatalf("breakdown = %+v", b)
	}
}

func TestClassifierRuleOrder(t *testing.T) {
	eng := newTestEngine(t, &fakeSources{}, &fakeStats{})
	c := eng.Classifier
	// "urgent" precedes "low" in the default rules; first match wins.
	if got := c.Priority("urgent but low effort"); got != "high" {
		t.Fatalf("priority = %q, want high (rule order)", got)
	}
	if got := c.EventCategory("study group"); got != "other" {
		t.Fatalf("event category fallback = %q, want other", got)
	}
	if got := c.DeadlineCategory("meet parents"); got != "meeting" {
		t.Fatalf("deadline category = %q, want meeting", got)
	}
}

func TestNormalizeText(t *testing.T) {
	eng := newTestEngine(t, &fakeSources{}, &fakeStats{})
	c := eng.Classifier
	cases := map[string]string{
		"graded quizzes":     "Graded quizzes",
		"homework task":      "Added homework task",
		"lesson plan review": "Created lesson plan review",
		"grading stack":      "Created grading stack",
	}
	for in, want := range cases {
		if got := c.NormalizeText(in); got != want {
			t.Fatalf("NormalizeText(%q) = %q, want %q", in, got, want)
		}
	}
	if got := c.NormalizeText("   "); got != "" {
		t.Fatalf("NormalizeText(blank) = %q, want empty", got)
	}
}

type updateRecorder struct {
	mu      sync.Mutex
	updates []dashboard.Update
}

func (r *updateRecorder) record(u dashboard.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *updateRecorder) snapshot() []dashboard.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dashboard.Update(nil), r.updates...)
}

func newTestSyncer(eng *dashboard.Engine, rec *updateRecorder, delay time.Duration) *dashboard.Syncer {
	return &dashboard.Syncer{
		Engine:   eng,
		Primary:  dashboard.LocalSync{Engine: eng},
		Delay:    delay,
		OnUpdate: rec.record,
		Logger:   log.New(io.Discard, "", 0),
	}
}

func TestForceSyncPublishesUpdate(t *testing.T) {
	src := &fakeSources{events: []domain.CalendarEvent{
		{ID: "d1", Title: "Grade tests", Date: ts(time.Hour), Type: "deadline", Label: "grading"},
	}}
	eng := newTestEngine(t, src, &fakeStats{})
	rec := &updateRecorder{}
	syncer := newTestSyncer(eng, rec, time.Hour) // delayed refetch stays out of this test

	if err := syncer.ForceSync(context.Background()); err != nil {
		t.Fatalf("force sync: %v", err)
	}
	updates := rec.snapshot()
	if len(updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(updates))
	}
	u := updates[0]
	if u.Delayed {
		t.Fatalf("immediate update marked delayed")
	}
	if len(u.Deadlines) != 1 || u.Progress.Upcoming != 1 {
		t.Fatalf("update = %+v, want the single upcoming deadline", u)
	}
	// The housekeeping log entry is a system phrase and must not leak.
	for _, item := range u.Feed {
		if strings.Contains(strings.ToLower(item.Text), "sync") {
			t.Fatalf("housekeeping entry leaked into feed: %q", item.Text)
		}
	}
}

func TestDelayedRefetchRepublishes(t *testing.T) {
	src := &fakeSources{}
	eng := newTestEngine(t, src, &fakeStats{})
	rec := &updateRecorder{}
	syncer := newTestSyncer(eng, rec, 20*time.Millisecond)

	if err := syncer.ForceSync(context.Background()); err != nil {
		t.Fatalf("force sync: %v", err)
	}
	// Deadline shows up only after the immediate fetch, as a lagging
	// backend would deliver it.
	src.setEvents([]domain.CalendarEvent{
		{ID: "d1", Title: "Late arrival", Date: ts(time.Hour), Type: "deadline"},
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		updates := rec.snapshot()
		if len(updates) == 2 {
			if !updates[1].Delayed {
				t.Fatalf("second update not marked delayed: %+v", updates[1])
			}
			if len(updates[1].Deadlines) != 1 {
				t.Fatalf("delayed update deadlines = %v", updates[1].Deadlines)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("delayed refetch never republished; updates = %v", updates)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDelayedRefetchSkippedWhenImmediateHadDeadlines(t *testing.T) {
	src := &fakeSources{events: []domain.CalendarEvent{
		{ID: "d1", Title: "Already there", Date: ts(time.Hour), Type: "deadline"},
	}}
	eng := newTestEngine(t, src, &fakeStats{})
	rec := &updateRecorder{}
	syncer := newTestSyncer(eng, rec, 10*time.Millisecond)

	if err := syncer.ForceSync(context.Background()); err != nil {
		t.Fatalf("force sync: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if updates := rec.snapshot(); len(updates) != 1 {
		t.Fatalf("updates = %d, want 1 (no republish when immediate fetch had data)", len(updates))
	}
}

func TestLatestUpdateWins(t *testing.T) {
	src := &fakeSources{}
	eng := newTestEngine(t, src, &fakeStats{})
	rec := &updateRecorder{}
	syncer := newTestSyncer(eng, rec, 50*time.Millisecond)

	// First sync sees no deadlines and schedules a delayed refetch.
	if err := syncer.ForceSync(context.Background()); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	src.setEvents([]domain.CalendarEvent{
		{ID: "d1", Title: "New deadline", Date: ts(time.Hour), Type: "deadline"},
	})
	// Second sync publishes the newer state before the first sync's
	// delayed refetch fires.
	if err := syncer.ForceSync(context.Background()); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	updates := rec.snapshot()
	for _, u := range updates[2:] {
		if u.Delayed && u.Token < updates[1].Token {
			t.Fatalf("stale delayed update delivered after newer state: %+v", u)
		}
	}
	last := updates[len(updates)-1]
	if len(last.Deadlines) != 1 {
		t.Fatalf("final state lost the deadline: %+v", last)
	}
}
