package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/user"
)

func TestRollbarLoggerPrints(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), core.NewTestConfig())

	logger.Error("saving progress", errors.New("boom"), user.User{ID: 7, Email: "kim@test.io"})

	out := buf.String()
	assert.Contains(t, out, "[ERROR] saving progress")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "user: 7 <kim@test.io>")
}

func TestRollbarLoggerPrepare(t *testing.T) {
	logger := NewRollbarLogger(log.New(&bytes.Buffer{}, "", 0), core.NewTestConfig())
	extras := map[string]interface{}{"lessonId": 3}

	args := logger.prepare("msg", []interface{}{user.User{ID: 1}, extras, user.User{ID: 2}})
	assert.Equal(t, []interface{}{"msg", extras}, args)
}
