package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/qlearn/apps/api/echo"
	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/attendance"
	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/event"
	"github.com/trezcool/qlearn/core/instructor"
	"github.com/trezcool/qlearn/core/mapping"
	"github.com/trezcool/qlearn/core/parent"
	"github.com/trezcool/qlearn/core/progress"
	"github.com/trezcool/qlearn/core/user"
	"github.com/trezcool/qlearn/services/email"
	"github.com/trezcool/qlearn/services/logger"
	"github.com/trezcool/qlearn/services/session"
	"github.com/trezcool/qlearn/storage/database/dummy"
	"github.com/trezcool/qlearn/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// env is a server wired to an in-memory database.
type env struct {
	app     Server
	conf    *core.Config
	db      *dummydb.DB
	users   user.Repository
	courses course.Repository
	mail    *emailsvc.ConsoleServiceMock
}

// setup wires every service over a fresh in-memory database; opts may override dependencies.
func setup(t *testing.T, opts ...func(*ServerDeps)) *env {
	conf := core.NewTestConfig()

	// set up DB & repos
	db, err := dummydb.Open()
	require.NoError(t, err)
	usrRepo := dummydb.NewUserRepository(db)
	courseRepo := dummydb.NewCourseRepository(db)
	progressRepo := dummydb.NewProgressRepository(db)

	// set up services
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "API : ", log.LstdFlags), conf)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewServiceMock(usrRepo, mailSvc, conf)
	progressSvc := progress.NewService(progressRepo, courseRepo)
	attendanceSvc := attendance.NewService(dummydb.NewAttendanceRepository(db), conf.Grading.AttendanceWindow)
	eventSvc := event.NewService(dummydb.NewEventRepository(db), courseRepo)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up server
	deps := ServerDeps{
		Conf:          conf,
		Logger:        logger,
		DB:            db,
		Sessions:      sessionsvc.NewMemoryStore(),
		UserSvc:       usrSvc,
		CourseSvc:     course.NewService(courseRepo, usrSvc),
		ProgressSvc:   progressSvc,
		MappingSvc:    mapping.NewService(dummydb.NewMappingRepository(db), usrSvc),
		AttendanceSvc: attendanceSvc,
		EventSvc:      eventSvc,
		ParentSvc: parent.NewService(dummydb.NewParentRepository(db), parent.Deps{
			Users:      usrSvc,
			Progress:   progressSvc,
			Attendance: attendanceSvc,
			Events:     eventSvc,
			Mail:       mailSvc,
		}, conf),
		InstructorSvc: instructor.NewService(dummydb.NewInstructorRepository(db), progressSvc),
		Validate:      validate,
		Translator:    translator,
		Registry:      prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	app := NewServer(deps)

	return &env{
		app:     app,
		conf:    conf,
		db:      db,
		users:   usrRepo,
		courses: courseRepo,
		mail:    mailSvc,
	}
}

func (e *env) createUser(t *testing.T, name, role string) user.User {
	return testutil.CreateUser(t, e.users, name, role, true)
}

func (e *env) token(t *testing.T, usr user.User) string {
	return getToken(t, e.conf, usr)
}

// do serves the request and returns the recorded response.
func (e *env) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	e.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, usr user.User, origIat ...int64) string {
	token, err := GenerateToken(conf, GetUserClaims(conf, usr, origIat...))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// decode unmarshals the recorded body into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, e *env, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
