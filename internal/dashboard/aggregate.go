package dashboard

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"classline/internal/config"
	"classline/internal/domain"
)

// Engine computes the dashboard's derived views: the unified activity
// feed and the deadline progress breakdown. It owns the session's
// ephemeral log; everything else it reads through the source adapters.
type Engine struct {
	Log        *Log
	Sources    Sources
	Classifier *Classifier
	Stats      StatWriter
	Limits     config.FetchLimits
	Now        func() time.Time
	Logger     *log.Logger
}

// New builds an engine for one dashboard session. The session starts
// with a cleared log so repeated initializations do not stack entries.
func New(cfg *config.Config, sources Sources, stats StatWriter) *Engine {
	e := &Engine{
		Log:        NewLog(cfg.Dashboard.LogCapacity),
		Sources:    sources,
		Classifier: NewClassifier(cfg),
		Stats:      stats,
		Limits:     cfg.Dashboard.FetchLimits,
		Now:        time.Now,
	}
	e.Log.Clear()
	return e
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) warnf(format string, args ...any) {
	logger := e.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("WARNING: "+format, args...)
}

// Aggregate merges the ephemeral log with all four source adapters
// into one id-deduplicated, time-descending feed. It only reads; the
// log and backend state are never mutated.
func (e *Engine) Aggregate(ctx context.Context) ([]domain.ActivityItem, error) {
	local := e.localActivities()

	fetched, failures := e.fetchAll(ctx)
	if failures == len(fetched) {
		return nil, fmt.Errorf("%w: %d sources", ErrAllSourcesFailed, failures)
	}

	merged := make([]domain.ActivityItem, 0, len(local)+16)
	merged = append(merged, local...)
	for _, batch := range fetched {
		merged = append(merged, batch.items...)
	}

	seen := make(map[string]bool, len(merged))
	feed := merged[:0]
	for _, item := range merged {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		feed = append(feed, item)
	}

	sort.SliceStable(feed, func(i, j int) bool {
		return parseTime(feed[i].Timestamp).After(parseTime(feed[j].Timestamp))
	})
	return feed, nil
}

// localActivities snapshots the log, drops system housekeeping
// entries, and normalizes the remaining texts.
func (e *Engine) localActivities() []domain.ActivityItem {
	var out []domain.ActivityItem
	for _, item := range e.Log.Items() {
		if e.Classifier.IsSystemPhrase(item.Text) {
			continue
		}
		item.Text = e.Classifier.NormalizeText(item.Text)
		out = append(out, item)
	}
	return out
}

type sourceBatch struct {
	name  string
	items []domain.ActivityItem
	err   error
}

// fetchAll runs the four adapter fetches concurrently and collects
// them in a fixed order so repeated runs yield identical feeds. A
// failed adapter contributes an empty batch and a logged warning.
func (e *Engine) fetchAll(ctx context.Context) ([]sourceBatch, int) {
	batches := []sourceBatch{
		{name: "lessons"},
		{name: "assignments"},
		{name: "resources"},
		{name: "calendar"},
	}
	var wg sync.WaitGroup
	run := func(i int, fetch func() ([]domain.ActivityItem, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batches[i].items, batches[i].err = fetch()
		}()
	}
	run(0, func() ([]domain.ActivityItem, error) {
		plans, err := e.Sources.Lessons.RecentLessonPlans(ctx, e.Limits.Lessons)
		if err != nil {
			return nil, err
		}
		return e.lessonActivities(plans), nil
	})
	run(1, func() ([]domain.ActivityItem, error) {
		assignments, err := e.Sources.Assignments.RecentAssignments(ctx, e.Limits.Assignments)
		if err != nil {
			return nil, err
		}
		return e.assignmentActivities(assignments), nil
	})
	run(2, func() ([]domain.ActivityItem, error) {
		resources, err := e.Sources.Resources.RecentResources(ctx, e.Limits.Resources)
		if err != nil {
			return nil, err
		}
		return e.resourceActivities(resources), nil
	})
	run(3, func() ([]domain.ActivityItem, error) {
		events, err := e.Sources.Calendar.CalendarEvents(ctx)
		if err != nil {
			return nil, err
		}
		return e.calendarActivities(events), nil
	})
	wg.Wait()

	failures := 0
	for i := range batches {
		if batches[i].err != nil {
			failures++
			e.warnf("%v", sourceErr(batches[i].name, batches[i].err))
			batches[i].items = nil
		}
	}
	return batches, failures
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
