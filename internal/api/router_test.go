package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/analysis"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/analysis/losstime"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/config"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/database"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/handler"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/ingest"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/middleware"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/repository"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/schedule"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/service"
)

const secret = "router-test-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "api.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrationManager(db, logger).RunMigrations())

	cfg := &config.Config{
		JWTSecret:     secret,
		MaxMemory:     8 << 20,
		Timezone:      "UTC",
		MaxDuration:   losstime.DefaultMaxDuration,
		SameDayOnly:   true,
		PairSelection: "nearest",
		CategoryMode:  "last",
	}
	sched := schedule.Default()
	eventRepo := repository.NewEventRepository(db, time.UTC)
	deps := analysis.Deps{DB: db, Config: cfg, Schedule: sched, Logger: logger}
	tasks := service.NewAnalysisTaskService(repository.NewAnalysisTaskRepository(db), eventRepo, deps, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tasks.Shutdown(ctx)
	})

	limiter := middleware.NewRateLimiter(1000, time.Minute)
	t.Cleanup(limiter.Stop)

	return SetupRouter(cfg, Handlers{
		Events:    handler.NewEventHandler(service.NewEventService(eventRepo, ingest.NewReader(time.UTC, nil), logger)),
		Intervals: handler.NewIntervalHandler(service.NewIntervalService(repository.NewIntervalRepository(db, time.UTC))),
		Stats:     handler.NewStatsHandler(service.NewStatsService(repository.NewStatsRepository(db), nil)),
		Schedule:  handler.NewScheduleHandler(sched),
		Tasks:     handler.NewAnalysisTaskHandler(tasks),
	}, limiter, logger)
}

func do(t *testing.T, r *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if bytes.HasPrefix(w.Body.Bytes(), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func adminRequest(t *testing.T, method, path string, body io.Reader) *http.Request {
	t.Helper()
	token, err := middleware.IssueToken(secret, "supervisor", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func uploadRequest(t *testing.T, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "badges.csv")
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

const badges = `person_id,name,date,time,direction,location
E-1,Ana,2024-03-04,10:50,OUT,gate
E-1,Ana,2024-03-04,11:10,IN,gate
E-2,Budi,2024-03-04,09:00,OUT,gate
E-2,Budi,2024-03-04,09:25,IN,gate
`

func TestHealth(t *testing.T) {
	r := newTestServer(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestEndToEnd(t *testing.T) {
	r := newTestServer(t)

	w, env := do(t, r, uploadRequest(t, badges))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"imported":4`)

	w, env = do(t, r, uploadRequest(t, badges))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"imported":0`)
	assert.Contains(t, string(env.Data), `"duplicates":4`)

	w, env = do(t, r, adminRequest(t, http.MethodPost, "/api/admin/analysis/tasks",
		bytes.NewBufferString(`{"skill_name":"loss_time","task_type":"FULL_RECOMPUTE"}`)))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var task struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &task))

	require.Eventually(t, func() bool {
		_, env := do(t, r, adminRequest(t, http.MethodGet, fmt.Sprintf("/api/admin/analysis/tasks/%d", task.ID), nil))
		return bytes.Contains(env.Data, []byte(`"status":"completed"`))
	}, 5*time.Second, 20*time.Millisecond)

	w, env = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/intervals?category=Lunch", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Total int64 `json:"total"`
		Data  []struct {
			PersonID    string  `json:"personId"`
			LossMinutes float64 `json:"lossMinutes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, "E-1", page.Data[0].PersonID)
	assert.InDelta(t, 10.0, page.Data[0].LossMinutes, 1e-9)

	w, env = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/stats/summary", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"totalLossMinutes":35`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/intervals/export", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/intervals/export?format=xlsx", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	w, env = do(t, r, adminRequest(t, http.MethodDelete, fmt.Sprintf("/api/admin/analysis/tasks/%d", task.ID), nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, http.StatusConflict, env.Code)
}

func TestErrorMapping(t *testing.T) {
	r := newTestServer(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"admin without token", httptest.NewRequest(http.MethodGet, "/api/admin/analysis/tasks", nil), http.StatusUnauthorized},
		{"unknown task", adminRequest(t, http.MethodGet, "/api/admin/analysis/tasks/99", nil), http.StatusNotFound},
		{"non numeric id", adminRequest(t, http.MethodGet, "/api/admin/analysis/tasks/abc", nil), http.StatusBadRequest},
		{"unknown skill", adminRequest(t, http.MethodPost, "/api/admin/analysis/tasks",
			bytes.NewBufferString(`{"skill_name":"nope","task_type":"INCREMENTAL"}`)), http.StatusBadRequest},
		{"missing body fields", adminRequest(t, http.MethodPost, "/api/admin/analysis/tasks",
			bytes.NewBufferString(`{}`)), http.StatusBadRequest},
		{"reversed dates", httptest.NewRequest(http.MethodGet, "/api/v1/stats/summary?startDate=2024-03-05&endDate=2024-03-01", nil), http.StatusBadRequest},
		{"upload without file", httptest.NewRequest(http.MethodPost, "/api/v1/events/import", nil), http.StatusBadRequest},
		{"bad csv header", uploadRequest(t, "a,b\n1,2\n"), http.StatusBadRequest},
		{"unknown export format", httptest.NewRequest(http.MethodGet, "/api/v1/intervals/export?format=pdf", nil), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, r, tt.req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.status, env.Code)
		})
	}
}

func TestExportRejectsBadDatesAsJSON(t *testing.T) {
	r := newTestServer(t)
	w, env := do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/intervals/export?startDate=03-04-2024", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, http.StatusBadRequest, env.Code)
	assert.Empty(t, w.Header().Get("Content-Disposition"))
}

func TestScheduleEndpoint(t *testing.T) {
	r := newTestServer(t)
	w, env := do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/schedule", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var file schedule.File
	require.NoError(t, json.Unmarshal(env.Data, &file))
	require.Len(t, file.Shifts, 3)
	assert.Equal(t, "Shift 1", file.Shifts[0].Label)
	assert.Equal(t, "-", file.Shifts[0].Slots[0].Kind)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestServer(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/events", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
