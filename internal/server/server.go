package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"classline/internal/catalog"
	"classline/internal/dashboard"
	"classline/internal/domain"
	"classline/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Catalog   catalog.Service
	Dashboard *dashboard.Engine
	Syncer    *dashboard.Syncer
	BasePath  string
	Auth      AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"lesson plan not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Classline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Classline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerLessonPlans(group, cfg.Catalog)
	registerAssignments(group, cfg.Catalog)
	registerResources(group, cfg.Catalog)
	registerCalendarEvents(group, cfg.Catalog)
	registerStats(group, cfg.Catalog)
	registerSync(group, cfg.Catalog, cfg.Dashboard)
	registerDashboard(group, cfg.Dashboard, cfg.Syncer)
	registerAuditLog(group, cfg.Catalog)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, dashboard.ErrAllSourcesFailed) {
		return newAPIError(http.StatusServiceUnavailable, "all_sources_failed", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "transition"):
		return newAPIError(http.StatusUnprocessableEntity, "invalid_transition", msg, nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusServiceUnavailable:
		return "all_sources_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Classline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt;.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type limitQuery struct {
	Limit int `query:"limit" minimum:"0"`
}

func registerLessonPlans(api huma.API, svc catalog.Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-lesson-plan",
		Method:        http.MethodPost,
		Path:          "/lesson-plans",
		Summary:       "Create lesson plan",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateLessonPlanRequest `json:"body"`
	}) (*struct {
		Body domain.LessonPlan `json:"body"`
	}, error) {
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := svc.CreateLessonPlan(ctx, catalog.LessonPlanOptions{
			ID:         stringOrEmpty(input.Body.ID),
			Title:      input.Body.Title,
			Subject:    stringOrEmpty(input.Body.Subject),
			GradeLevel: stringOrEmpty(input.Body.GradeLevel),
			Objectives: stringOrEmpty(input.Body.Objectives),
			ActorID:    actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.LessonPlan `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-lesson-plans",
		Method:      http.MethodGet,
		Path:        "/lesson-plans",
		Summary:     "List lesson plans",
	}, func(ctx context.Context, input *limitQuery) (*struct {
		Body []domain.LessonPlan `json:"body"`
	}, error) {
		items, err := svc.Repo.ListLessonPlans(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.LessonPlan `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-lesson-plan",
		Method:      http.MethodGet,
		Path:        "/lesson-plans/{id}",
		Summary:     "Get lesson plan",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.LessonPlan `json:"body"`
	}, error) {
		p, err := svc.Repo.GetLessonPlan(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.LessonPlan `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-lesson-plan",
		Method:      http.MethodPatch,
		Path:        "/lesson-plans/{id}",
		Summary:     "Update lesson plan",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                  `path:"id"`
		Body UpdateLessonPlanRequest `json:"body"`
	}) (*struct {
		Body domain.LessonPlan `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := svc.UpdateLessonPlan(ctx, catalog.LessonPlanOptions{
			ID:         input.ID,
			Title:      stringOrEmpty(input.Body.Title),
			Subject:    stringOrEmpty(input.Body.Subject),
			GradeLevel: stringOrEmpty(input.Body.GradeLevel),
			Objectives: stringOrEmpty(input.Body.Objectives),
			ActorID:    actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.LessonPlan `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-lesson-plan",
		Method:      http.MethodDelete,
		Path:        "/lesson-plans/{id}",
		Summary:     "Delete lesson plan",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := svc.DeleteLessonPlan(ctx, input.ID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerAssignments(api huma.API, svc catalog.Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-assignment",
		Method:        http.MethodPost,
		Path:          "/assignments",
		Summary:       "Create assignment",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateAssignmentRequest `json:"body"`
	}) (*struct {
		Body domain.Assignment `json:"body"`
	}, error) {
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := svc.CreateAssignment(ctx, catalog.AssignmentOptions{
			ID:          stringOrEmpty(input.Body.ID),
			Title:       input.Body.Title,
			Subject:     stringOrEmpty(input.Body.Subject),
			Status:      stringOrEmpty(input.Body.Status),
			TotalPoints: intOrZero(input.Body.TotalPoints),
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Assignment `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-assignments",
		Method:      http.MethodGet,
		Path:        "/assignments",
		Summary:     "List assignments",
	}, func(ctx context.Context, input *limitQuery) (*struct {
		Body []domain.Assignment `json:"body"`
	}, error) {
		items, err := svc.Repo.ListAssignments(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Assignment `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-assignment",
		Method:      http.MethodGet,
		Path:        "/assignments/{id}",
		Summary:     "Get assignment",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Assignment `json:"body"`
	}, error) {
		a, err := svc.Repo.GetAssignment(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Assignment `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-assignment-status",
		Method:      http.MethodPatch,
		Path:        "/assignments/{id}/status",
		Summary:     "Update assignment status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID   string                        `path:"id"`
		Body UpdateAssignmentStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Assignment `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := svc.SetAssignmentStatus(ctx, input.ID, input.Body.Status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Assignment `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-assignment",
		Method:      http.MethodDelete,
		Path:        "/assignments/{id}",
		Summary:     "Delete assignment",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := svc.DeleteAssignment(ctx, input.ID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerResources(api huma.API, svc catalog.Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-resource",
		Method:        http.MethodPost,
		Path:          "/resources",
		Summary:       "Add resource",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateResourceRequest `json:"body"`
	}) (*struct {
		Body domain.Resource `json:"body"`
	}, error) {
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := svc.CreateResource(ctx, catalog.ResourceOptions{
			ID:      stringOrEmpty(input.Body.ID),
			Title:   input.Body.Title,
			Kind:    stringOrEmpty(input.Body.Kind),
			URL:     stringOrEmpty(input.Body.URL),
			Subject: stringOrEmpty(input.Body.Subject),
			ActorID: actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Resource `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-resources",
		Method:      http.MethodGet,
		Path:        "/resources",
		Summary:     "List resources",
	}, func(ctx context.Context, input *limitQuery) (*struct {
		Body []domain.Resource `json:"body"`
	}, error) {
		items, err := svc.Repo.ListResources(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Resource `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-resource",
		Method:      http.MethodDelete,
		Path:        "/resources/{id}",
		Summary:     "Delete resource",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := svc.DeleteResource(ctx, input.ID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerCalendarEvents(api huma.API, svc catalog.Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-event",
		Method:        http.MethodPost,
		Path:          "/events",
		Summary:       "Create calendar event",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateCalendarEventRequest `json:"body"`
	}) (*struct {
		Body domain.CalendarEvent `json:"body"`
	}, error) {
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ev, err := svc.CreateCalendarEvent(ctx, catalog.CalendarEventOptions{
			ID:      stringOrEmpty(input.Body.ID),
			Title:   input.Body.Title,
			Date:    input.Body.Date,
			Type:    stringOrEmpty(input.Body.Type),
			Label:   stringOrEmpty(input.Body.Label),
			ActorID: actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CalendarEvent `json:"body"`
		}{Body: ev}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List calendar events",
	}, func(ctx context.Context, input *limitQuery) (*struct {
		Body []domain.CalendarEvent `json:"body"`
	}, error) {
		items, err := svc.Repo.ListCalendarEvents(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.CalendarEvent `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-event",
		Method:      http.MethodGet,
		Path:        "/events/{id}",
		Summary:     "Get calendar event",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.CalendarEvent `json:"body"`
	}, error) {
		ev, err := svc.Repo.GetCalendarEvent(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CalendarEvent `json:"body"`
		}{Body: ev}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-event",
		Method:      http.MethodPost,
		Path:        "/events/{id}/toggle",
		Summary:     "Toggle event completion",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.CalendarEvent `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ev, err := svc.ToggleEventCompleted(ctx, input.ID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CalendarEvent `json:"body"`
		}{Body: ev}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-event",
		Method:      http.MethodDelete,
		Path:        "/events/{id}",
		Summary:     "Delete calendar event",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := svc.DeleteCalendarEvent(ctx, input.ID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerStats(api huma.API, svc catalog.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-stats",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "List statistics",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Stat `json:"body"`
	}, error) {
		items, err := svc.Repo.ListStats(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Stat `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-stat",
		Method:      http.MethodGet,
		Path:        "/stats/{key}",
		Summary:     "Get statistic",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Key string `path:"key"`
	}) (*struct {
		Body domain.Stat `json:"body"`
	}, error) {
		s, err := svc.Repo.GetStat(ctx, input.Key)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Stat `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-stat",
		Method:      http.MethodPut,
		Path:        "/stats/{key}",
		Summary:     "Update statistic",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Key  string            `path:"key"`
		Body UpdateStatRequest `json:"body"`
	}) (*struct {
		Body domain.Stat `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := svc.UpdateStat(ctx, input.Key, input.Body.Value, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Stat `json:"body"`
		}{Body: s}, nil
	})
}

// registerSync exposes the bulk sync endpoint. The request flags are
// opaque pass-through switches; the endpoint always recomputes the
// weekly progress statistic from current deadline data.
func registerSync(api huma.API, svc catalog.Service, engine *dashboard.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "sync",
		Method:      http.MethodPost,
		Path:        "/sync",
		Summary:     "Force recompute of derived data",
		Errors:      []int{http.StatusServiceUnavailable, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		TS   int64       `query:"ts"`
		Body SyncRequest `json:"body"`
	}) (*struct {
		Body SyncResponse `json:"body"`
	}, error) {
		breakdown, err := engine.ComputeProgress(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		counts, err := svc.Repo.CountRecords(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SyncResponse `json:"body"`
		}{Body: SyncResponse{
			WeeklyProgress: dashboard.WeeklyProgress(breakdown),
			RecordCounts:   counts,
		}}, nil
	})
}

func registerDashboard(api huma.API, engine *dashboard.Engine, syncer *dashboard.Syncer) {
	huma.Register(api, huma.Operation{
		OperationID: "dashboard-activity",
		Method:      http.MethodGet,
		Path:        "/dashboard/activity",
		Summary:     "Unified activity feed",
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ActivityFeedResponse `json:"body"`
	}, error) {
		items, err := engine.Aggregate(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActivityFeedResponse `json:"body"`
		}{Body: ActivityFeedResponse{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dashboard-progress",
		Method:      http.MethodGet,
		Path:        "/dashboard/progress",
		Summary:     "Deadline progress breakdown",
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ProgressResponse `json:"body"`
	}, error) {
		deadlines, err := engine.Deadlines(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		breakdown := engine.Breakdown(deadlines)
		engine.PublishWeeklyProgress(ctx, breakdown)
		return &struct {
			Body ProgressResponse `json:"body"`
		}{Body: ProgressResponse{
			Breakdown:      breakdown,
			WeeklyProgress: dashboard.WeeklyProgress(breakdown),
			Deadlines:      deadlines,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dashboard-sync",
		Method:      http.MethodPost,
		Path:        "/dashboard/sync",
		Summary:     "Force sync and recompute the dashboard",
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ProgressResponse `json:"body"`
	}, error) {
		if err := syncer.ForceSync(ctx); err != nil {
			return nil, handleError(err)
		}
		deadlines, err := engine.Deadlines(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		breakdown := engine.Breakdown(deadlines)
		return &struct {
			Body ProgressResponse `json:"body"`
		}{Body: ProgressResponse{
			Breakdown:      breakdown,
			WeeklyProgress: dashboard.WeeklyProgress(breakdown),
			Deadlines:      deadlines,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "dashboard-log-activity",
		Method:        http.MethodPost,
		Path:          "/dashboard/activity/log",
		Summary:       "Record a user action in the session log",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body LogActivityRequest `json:"body"`
	}) (*struct {
		Body domain.ActivityItem `json:"body"`
	}, error) {
		if input.Body.Text == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "text is required", nil)
		}
		item := engine.Log.Add(input.Body.Text, stringOrEmpty(input.Body.Category), stringOrEmpty(input.Body.Details))
		return &struct {
			Body domain.ActivityItem `json:"body"`
		}{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dashboard-clear-activity",
		Method:      http.MethodPost,
		Path:        "/dashboard/activity/clear",
		Summary:     "Clear the session activity log",
	}, func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		engine.Log.Clear()
		return &struct{}{}, nil
	})
}

func registerAuditLog(api huma.API, svc catalog.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "audit-log",
		Method:      http.MethodGet,
		Path:        "/audit-log",
		Summary:     "Recent audit events",
	}, func(ctx context.Context, input *struct {
		Limit int      `query:"limit" minimum:"0"`
		Types []string `query:"type"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		limit := input.Limit
		if limit == 0 {
			limit = 50
		}
		items, err := svc.Repo.ListEvents(ctx, limit, input.Types)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: items}, nil
	})
}
