package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"classline/internal/domain"
)

// SyncFlags are opaque pass-through switches for the backend sync
// endpoint. Their backend semantics are not observable from this
// layer; nothing here may infer local behavior from their names.
type SyncFlags struct {
	NoMockData      bool `json:"no_mock_data"`
	UseRealDataOnly bool `json:"use_real_data_only"`
	ForceRealData   bool `json:"force_real_data"`
}

// SyncBackend issues one forced recomputation request against the
// backend.
type SyncBackend interface {
	Sync(ctx context.Context, flags SyncFlags) error
}

// Update carries a recomputed dashboard state to the subscriber.
// Token orders updates: a subscriber never sees state older than what
// it already has.
type Update struct {
	Token     int64
	Delayed   bool
	Feed      []domain.ActivityItem
	Progress  domain.ProgressBreakdown
	Deadlines []domain.DeadlineItem
}

// Syncer coordinates the best-effort cache-invalidation sequence: a
// direct sync call, the same call through the standard client as a
// second leg, an immediate recompute, and one delayed deadline
// refetch to absorb backend eventual-consistency lag.
type Syncer struct {
	Engine    *Engine
	Primary   SyncBackend
	Secondary SyncBackend
	Flags     SyncFlags
	Delay     time.Duration
	OnUpdate  func(Update)
	Logger    *log.Logger

	mu      sync.Mutex
	token   int64
	applied int64
}

func (s *Syncer) warnf(format string, args ...any) {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("WARNING: "+format, args...)
}

func (s *Syncer) nextToken() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token++
	return s.token
}

// publish delivers an update unless a newer one was already applied.
// Latest wins, not first-completed: a slow delayed refetch from an
// older sync never regresses the subscriber's state.
func (s *Syncer) publish(u Update) bool {
	s.mu.Lock()
	if u.Token < s.applied {
		s.mu.Unlock()
		return false
	}
	s.applied = u.Token
	s.mu.Unlock()
	if s.OnUpdate != nil {
		s.OnUpdate(u)
	}
	return true
}

// ForceSync runs the full sequence. Every step is best-effort: sync
// call failures are logged and the sequence continues. Only a total
// aggregation failure is surfaced to the caller.
func (s *Syncer) ForceSync(ctx context.Context) error {
	token := s.nextToken()

	// Housekeeping entry; the aggregator's system-phrase filter keeps
	// it out of the user-facing feed.
	s.Engine.Log.Add("deadline sync refreshed", "other", "")

	if s.Primary != nil {
		if err := s.Primary.Sync(ctx, s.Flags); err != nil {
			s.warnf("direct sync call failed: %v", err)
		}
	}
	if s.Secondary != nil {
		if err := s.Secondary.Sync(ctx, s.Flags); err != nil {
			s.warnf("fallback sync call failed: %v", err)
		}
	}

	feed, err := s.Engine.Aggregate(ctx)
	if err != nil {
		return err
	}
	deadlines, err := s.Engine.Deadlines(ctx)
	if err != nil {
		s.warnf("deadline fetch during sync failed: %v", err)
	}
	breakdown := s.Engine.Breakdown(deadlines)
	s.Engine.PublishWeeklyProgress(ctx, breakdown)
	s.publish(Update{Token: token, Feed: feed, Progress: breakdown, Deadlines: deadlines})

	s.scheduleRefetch(token, len(deadlines))
	return nil
}

// scheduleRefetch re-reads deadlines once after the configured delay.
// A just-created deadline is sometimes missing from the very next
// read; the delayed pass catches it and republishes when the
// immediate fetch came back empty.
func (s *Syncer) scheduleRefetch(token int64, immediateCount int) {
	delay := s.Delay
	time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		deadlines, err := s.Engine.Deadlines(ctx)
		if err != nil {
			s.warnf("delayed deadline refetch failed: %v", err)
			return
		}
		if immediateCount > 0 || len(deadlines) == 0 {
			return
		}
		breakdown := s.Engine.Breakdown(deadlines)
		s.Engine.PublishWeeklyProgress(ctx, breakdown)
		s.publish(Update{Token: token, Delayed: true, Progress: breakdown, Deadlines: deadlines})
	})
}

// DirectSync posts to the backend sync endpoint with a raw HTTP
// client, bypassing the standard API client, with a cache-busting
// query parameter.
type DirectSync struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Now        func() time.Time
}

func (d DirectSync) Sync(ctx context.Context, flags SyncFlags) error {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	client := d.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	body, err := json.Marshal(flags)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/v0/sync?ts=%d", d.BaseURL, now().UnixNano())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if d.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.Token)
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("sync endpoint status %d", res.StatusCode)
	}
	return nil
}

// LocalSync serves the sync call in single-binary mode: there is no
// remote cache to bust, so a forced recompute of the weekly progress
// statistic is the whole job. The flags stay opaque.
type LocalSync struct {
	Engine *Engine
}

func (l LocalSync) Sync(ctx context.Context, _ SyncFlags) error {
	_, err := l.Engine.ComputeProgress(ctx)
	return err
}
