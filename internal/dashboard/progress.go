package dashboard

import (
	"context"
	"math"
	"time"

	"classline/internal/domain"
	"classline/internal/repo"
)

// WeeklyProgressKey is the backend statistic the calculator publishes.
const WeeklyProgressKey = "weekly_progress"

// StatWriter publishes a single derived statistic to the backend.
type StatWriter interface {
	PublishStat(ctx context.Context, key string, value int) error
}

// RepoStats writes statistics straight to the workspace database.
type RepoStats struct {
	Repo repo.Repo
	Now  func() time.Time
}

func (s RepoStats) PublishStat(ctx context.Context, key string, value int) error {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	return s.Repo.UpsertStat(ctx, key, value, now().UTC().Format(time.RFC3339))
}

// ComputeProgress buckets every deadline into exactly one of four
// states and publishes the weekly completion percentage as a side
// effect. The write-back is fire-and-forget: a failure is logged and
// the breakdown is still returned.
func (e *Engine) ComputeProgress(ctx context.Context) (domain.ProgressBreakdown, error) {
	deadlines, err := e.Deadlines(ctx)
	if err != nil {
		return domain.ProgressBreakdown{}, err
	}
	breakdown := e.Breakdown(deadlines)
	e.PublishWeeklyProgress(ctx, breakdown)
	return breakdown, nil
}

// Breakdown classifies deadlines relative to the engine clock. The
// predicates are mutually exclusive and exhaustive: completed wins
// over everything, overdue over priority, and priority only splits
// future incomplete deadlines.
func (e *Engine) Breakdown(deadlines []domain.DeadlineItem) domain.ProgressBreakdown {
	now := e.now()
	var b domain.ProgressBreakdown
	for _, d := range deadlines {
		switch {
		case d.Completed:
			b.Completed++
		case parseTime(d.DueDate).Before(now):
			b.Overdue++
		case d.Priority == "high":
			b.InProgress++
		default:
			b.Upcoming++
		}
	}
	return b
}

// WeeklyProgress is the completion percentage over the deadline set,
// 0 when the set is empty.
func WeeklyProgress(b domain.ProgressBreakdown) int {
	total := b.Total()
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(b.Completed) / float64(total)))
}

// PublishWeeklyProgress writes the percentage back to the backend
// statistic, logging instead of failing when the write is rejected.
func (e *Engine) PublishWeeklyProgress(ctx context.Context, b domain.ProgressBreakdown) {
	if e.Stats == nil {
		return
	}
	if err := e.Stats.PublishStat(ctx, WeeklyProgressKey, WeeklyProgress(b)); err != nil {
		e.warnf("%v: weekly progress: %v", ErrSyncWrite, err)
	}
}
