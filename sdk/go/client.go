package classlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Classline HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	ActorID     string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// LessonPlan represents the API lesson plan model.
type LessonPlan struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Subject    string `json:"subject,omitempty"`
	GradeLevel string `json:"grade_level,omitempty"`
	Objectives string `json:"objectives,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type Assignment struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Subject     string `json:"subject,omitempty"`
	Status      string `json:"status"`
	TotalPoints int    `json:"total_points,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type Resource struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Kind      string `json:"kind,omitempty"`
	URL       string `json:"url,omitempty"`
	Subject   string `json:"subject,omitempty"`
	CreatedAt string `json:"created_at"`
}

type CalendarEvent struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	Type      string `json:"type"`
	Label     string `json:"label,omitempty"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"created_at"`
}

type Stat struct {
	Key       string `json:"key"`
	Value     int    `json:"value"`
	UpdatedAt string `json:"updated_at"`
}

// SyncResult reports what the bulk sync endpoint recomputed.
type SyncResult struct {
	WeeklyProgress int            `json:"weekly_progress"`
	RecordCounts   map[string]int `json:"record_counts"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// ListLessonPlans returns the newest lesson plans, newest first.
func (c *Client) ListLessonPlans(ctx context.Context, limit int) ([]LessonPlan, error) {
	var resp []LessonPlan
	err := c.do(ctx, http.MethodGet, withLimit("v0/lesson-plans", limit), nil, &resp)
	return resp, err
}

// CreateLessonPlan creates a lesson plan.
func (c *Client) CreateLessonPlan(ctx context.Context, title, subject, gradeLevel, objectives string) (LessonPlan, error) {
	body := map[string]any{
		"title":       title,
		"subject":     subject,
		"grade_level": gradeLevel,
		"objectives":  objectives,
	}
	var resp LessonPlan
	err := c.do(ctx, http.MethodPost, "v0/lesson-plans", body, &resp)
	return resp, err
}

// ListAssignments returns the newest assignments, newest first.
func (c *Client) ListAssignments(ctx context.Context, limit int) ([]Assignment, error) {
	var resp []Assignment
	err := c.do(ctx, http.MethodGet, withLimit("v0/assignments", limit), nil, &resp)
	return resp, err
}

// ListResources returns the newest resources, newest first.
func (c *Client) ListResources(ctx context.Context, limit int) ([]Resource, error) {
	var resp []Resource
	err := c.do(ctx, http.MethodGet, withLimit("v0/resources", limit), nil, &resp)
	return resp, err
}

// ListCalendarEvents returns calendar events, newest first.
func (c *Client) ListCalendarEvents(ctx context.Context, limit int) ([]CalendarEvent, error) {
	var resp []CalendarEvent
	err := c.do(ctx, http.MethodGet, withLimit("v0/events", limit), nil, &resp)
	return resp, err
}

// CreateCalendarEvent creates an event; deadline-typed events drive
// the progress indicator.
func (c *Client) CreateCalendarEvent(ctx context.Context, title, date, eventType, label string) (CalendarEvent, error) {
	body := map[string]any{
		"title": title,
		"date":  date,
		"type":  eventType,
		"label": label,
	}
	var resp CalendarEvent
	err := c.do(ctx, http.MethodPost, "v0/events", body, &resp)
	return resp, err
}

// ToggleEventCompleted flips an event's completion state.
func (c *Client) ToggleEventCompleted(ctx context.Context, id string) (CalendarEvent, error) {
	var resp CalendarEvent
	endpoint := fmt.Sprintf("v0/events/%s/toggle", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// DeleteCalendarEvent removes an event.
func (c *Client) DeleteCalendarEvent(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("v0/events/%s", url.PathEscape(id))
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

// UpdateStat publishes a single-field statistic.
func (c *Client) UpdateStat(ctx context.Context, key string, value int) (Stat, error) {
	body := map[string]any{"value": value}
	var resp Stat
	endpoint := fmt.Sprintf("v0/stats/%s", url.PathEscape(key))
	err := c.do(ctx, http.MethodPut, endpoint, body, &resp)
	return resp, err
}

// GetStat reads a statistic.
func (c *Client) GetStat(ctx context.Context, key string) (Stat, error) {
	var resp Stat
	endpoint := fmt.Sprintf("v0/stats/%s", url.PathEscape(key))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Sync asks the backend to recompute derived data now. The flags are
// passed through opaquely.
func (c *Client) Sync(ctx context.Context, noMockData, useRealDataOnly, forceRealData bool) (SyncResult, error) {
	body := map[string]any{
		"no_mock_data":       noMockData,
		"use_real_data_only": useRealDataOnly,
		"force_real_data":    forceRealData,
	}
	var resp SyncResult
	err := c.do(ctx, http.MethodPost, "v0/sync", body, &resp)
	return resp, err
}

func withLimit(endpoint string, limit int) string {
	if limit > 0 {
		return fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	return endpoint
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	} else if c.ActorID != "" {
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
