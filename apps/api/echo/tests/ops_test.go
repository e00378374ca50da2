package tests

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/qlearn/apps/api/echo"
	"github.com/trezcool/qlearn/core/user"
	"github.com/trezcool/qlearn/tests"
)

type downDB struct{}

func (downDB) PingContext(context.Context) error { return errors.New("connection refused") }

func Test_server_home(t *testing.T) {
	e := setup(t)
	rec := e.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to QLearn API!", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func Test_server_health(t *testing.T) {
	runHTTPTests(t, setup(t), []httpTest{
		{
			name:     "up",
			method:   http.MethodGet,
			path:     "/health",
			wantCode: http.StatusOK,
			wantData: []byte(`{"status": "ok"}`),
		},
	})

	down := setup(t, func(deps *ServerDeps) { deps.DB = downDB{} })
	runHTTPTests(t, down, []httpTest{
		{
			name:     "down",
			method:   http.MethodGet,
			path:     "/health",
			wantCode: http.StatusServiceUnavailable,
			wantData: []byte(`{"status": "unavailable"}`),
		},
	})
}

func Test_server_notFound(t *testing.T) {
	e := setup(t)
	rec := e.do(http.MethodGet, "/api/nowhere", e.token(t, e.createUser(t, "Kim", user.RoleStudent)))
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
}

func Test_server_metrics(t *testing.T) {
	e := setup(t)
	ada := e.createUser(t, "Ada", user.RoleInstructor)
	kim := e.createUser(t, "Kim", user.RoleStudent)
	crs := testutil.CreateCourse(t, e.courses, "Go Basics", ada.ID, 1)
	testutil.Enroll(t, e.courses, kim.ID, crs.ID)
	lessonID := crs.Modules[0].Lessons[0].ID

	rec := e.do(http.MethodPut, fmt.Sprintf("/api/lessons/%d/test", lessonID), e.token(t, ada), marchallObj(t, twoQuestionTest(50)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = e.do(http.MethodPost, fmt.Sprintf("/api/lessons/%d/test/submit", lessonID), e.token(t, kim), []byte(`{"answers": {}}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	e.do(http.MethodGet, "/", "")
	e.do(http.MethodGet, "/", "")

	rec = e.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `qlearn_http_requests_total{code="200",method="GET",route="/"} 2`)
	assert.Contains(t, body, `qlearn_http_requests_total{code="200",method="POST",route="/api/lessons/:id/test/submit"} 1`)
	assert.Contains(t, body, `qlearn_test_submissions_total{passed="false"} 1`)
	assert.Contains(t, body, "qlearn_http_request_duration_seconds_bucket")
}
