package primitives

import (
	"testing"
	"time"

	"github.com/BenIlies/NoPASARAN-sub000/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval(t *testing.T) {
	m := newMachine(t, core.Variables{
		"n":    2,
		"code": "return n * 21;",
		"bad":  "return (;",
	})

	require.NoError(t, do(t, m, "eval(code)(answer)"))
	assert.EqualValues(t, 42, m.Vars["answer"])

	assert.Error(t, do(t, m, "eval(bad)(answer)"))
	assert.Error(t, do(t, m, "eval(missing)(answer)"))
}

func TestWaitCron(t *testing.T) {
	defer func() { now = time.Now }()

	// Half a second before the top of a minute.
	at := time.Date(2020, 1, 1, 0, 0, 59, 500*int(time.Millisecond), time.Local)
	now = func() time.Time { return at }

	m := newMachine(t, core.Variables{"every": "* * * * *"})
	then := time.Now()
	require.NoError(t, do(t, m, "wait_cron(every 5)"))
	assert.Equal(t, core.EventCron, m.State)
	assert.True(t, 400*time.Millisecond <= time.Since(then))
}

func TestWaitCronTimeout(t *testing.T) {
	m := newMachine(t, core.Variables{"yearly": "0 0 1 1 *"})
	require.NoError(t, do(t, m, "wait_cron(yearly 0.05)"))
	assert.Equal(t, core.EventTimeout, m.State)
}

func TestWaitCronBad(t *testing.T) {
	m := newMachine(t, core.Variables{"n": 3, "bad": "every tuesday"})
	assert.Error(t, do(t, m, "wait_cron(n 1)"))
	assert.Error(t, do(t, m, "wait_cron(bad 1)"))
	assert.Error(t, do(t, m, "wait_cron(@hourly soon)"))
}
