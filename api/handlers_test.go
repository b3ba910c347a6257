package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dmitchell6/trello-weekly-report/integrations"
	"github.com/dmitchell6/trello-weekly-report/internal/config"
	"github.com/dmitchell6/trello-weekly-report/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	listsBody = `[{"id":"L1","name":"Done"},{"id":"L2","name":"Doing"}]`
	cardsBody = `[
		{"id":"C1","name":"shipped","idList":"L1","labels":[{"name":"feature","color":"green"}],"dateLastActivity":"2024-01-10T12:00:00.000Z","url":"https://trello.com/c/c1"},
		{"id":"C2","name":"older","idList":"L1","labels":[],"dateLastActivity":"2024-02-01T12:00:00.000Z","url":"https://trello.com/c/c2"}
	]`
)

type fixture struct {
	router   *gin.Engine
	db       *gorm.DB
	upstream *httptest.Server
	requests *atomic.Int64
}

func newFixture(t *testing.T, upstream http.HandlerFunc) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		upstream(w, r)
	}))
	t.Cleanup(srv.Close)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ReportRun{}))

	cfg := &config.Config{
		Env:           "test",
		StaticDir:     t.TempDir(),
		DoneListName:  "Done",
		DoingListName: "Doing",
	}

	h := &Handler{
		Cfg:    cfg,
		DB:     db,
		Trello: integrations.NewTrelloClient(srv.URL, "test-key", "test-token"),
	}

	return &fixture{
		router:   NewRouter(cfg, zap.NewNop(), h),
		db:       db,
		upstream: srv,
		requests: &requests,
	}
}

func trelloStub(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/lists"):
		w.Write([]byte(listsBody))
	case strings.HasSuffix(r.URL.Path, "/cards"):
		w.Write([]byte(cardsBody))
	default:
		http.NotFound(w, r)
	}
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	f.router.ServeHTTP(w, req)
	return w
}

func TestListsProxyPassthrough(t *testing.T) {
	f := newFixture(t, trelloStub)

	w := f.get("/api/lists?boardId=B1")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, listsBody, w.Body.String())
}

func TestCardsProxyPassthrough(t *testing.T) {
	f := newFixture(t, trelloStub)

	w := f.get("/api/cards?boardId=B1")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, cardsBody, w.Body.String())
}

func TestProxyUpstreamFailure(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	w := f.get("/api/lists?boardId=B1")

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "error")
	// Generic message only; upstream detail stays in the server log.
	assert.NotContains(t, body["error"], "boom")
	assert.Equal(t, int64(1), f.requests.Load(), "no retry on failure")
}

func TestReportFiltersByRange(t *testing.T) {
	f := newFixture(t, trelloStub)

	w := f.get("/api/report?boardId=B1&start=2024-01-01&end=2024-01-31")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Count int `json:"count"`
		Tasks []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"tasks"`
		HTML string `json:"html"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	// Only C1 falls inside January; C2's activity is in February.
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Tasks, 1)
	assert.Equal(t, "shipped", resp.Tasks[0].Name)
	assert.Equal(t, "Done", resp.Tasks[0].Status)
	assert.Contains(t, resp.HTML, "shipped")

	// Lists and cards fetched once each.
	assert.Equal(t, int64(2), f.requests.Load())
}

func TestReportRejectsReversedRangeBeforeFetching(t *testing.T) {
	f := newFixture(t, trelloStub)

	w := f.get("/api/report?boardId=B1&start=2024-02-01&end=2024-01-01")

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int64(0), f.requests.Load(), "validation must precede network calls")
}

func TestReportRequiresBoardID(t *testing.T) {
	f := newFixture(t, trelloStub)

	w := f.get("/api/report?start=2024-01-01&end=2024-01-31")

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int64(0), f.requests.Load())
}

func TestReportMissingDoneList(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/lists"):
			w.Write([]byte(`[{"id":"L9","name":"Backlog"}]`))
		case strings.HasSuffix(r.URL.Path, "/cards"):
			w.Write([]byte(`[]`))
		}
	})

	w := f.get("/api/report?boardId=B1&start=2024-01-01&end=2024-01-31")

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "Done")
}

func TestReportEmptyBoard(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/lists"):
			w.Write([]byte(listsBody))
		case strings.HasSuffix(r.URL.Path, "/cards"):
			w.Write([]byte(`[]`))
		}
	})

	w := f.get("/api/report?boardId=B1&start=2024-01-01&end=2024-01-31")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Count int             `json:"count"`
		Tasks json.RawMessage `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
	assert.JSONEq(t, `[]`, string(resp.Tasks))
}

func TestReportRunPersisted(t *testing.T) {
	f := newFixture(t, trelloStub)

	w := f.get("/api/report?boardId=B1&start=2024-01-01&end=2024-01-31")
	require.Equal(t, http.StatusOK, w.Code)

	var runs []models.ReportRun
	require.NoError(t, f.db.Find(&runs).Error)
	require.Len(t, runs, 1)
	assert.Equal(t, "B1", runs[0].BoardID)
	assert.Equal(t, 1, runs[0].TaskCount)
	assert.False(t, runs[0].Emailed)

	w = f.get("/api/reports")
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.ReportRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)
}

func TestReportEmailUnconfigured(t *testing.T) {
	f := newFixture(t, trelloStub)

	w := f.get("/api/report?boardId=B1&start=2024-01-01&end=2024-01-31&email=true")

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "email")
	assert.Equal(t, int64(0), f.requests.Load())
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t, trelloStub)

	w := f.get("/api/health")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestStaticFallbackToIndex(t *testing.T) {
	f := newFixture(t, trelloStub)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>power-up</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "js"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "js", "report.js"), []byte("// widget"), 0o644))

	cfg := &config.Config{Env: "test", StaticDir: dir, DoneListName: "Done"}
	h := &Handler{Cfg: cfg, DB: f.db, Trello: integrations.NewTrelloClient(f.upstream.URL, "k", "t")}
	router := NewRouter(cfg, zap.NewNop(), h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/js/report.js", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "// widget", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/no/such/page", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "power-up")
}
