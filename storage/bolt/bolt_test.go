package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/BenIlies/NoPASARAN-sub000/core"
	"github.com/BenIlies/NoPASARAN-sub000/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpl(t *testing.T) {
	var _ storage.Storage = &Storage{}
	var _ storage.Storage = &storage.NoopStorage{}
}

func TestBasics(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "runs.db")

	s, err := NewStorage(filename)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Open(ctx))
	defer func() {
		if err := s.Close(ctx); err != nil {
			t.Fatal(err)
		}
	}()

	then := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	later := &storage.Report{
		Id:        "b",
		Chart:     "client",
		Machine:   "client-xyz",
		State:     "end",
		Variables: core.Variables{"likes": "queso"},
		Started:   then.Add(time.Minute),
		Finished:  then.Add(2 * time.Minute),
		Error:     "broken",
	}
	earlier := &storage.Report{
		Id:        "a",
		Chart:     "server",
		Machine:   "server-abc",
		State:     "end",
		Variables: core.Variables{"likes": "tacos"},
		Started:   then,
		Finished:  then.Add(time.Second),
		Steps: []*core.Step{
			{Machine: "server-abc", Chart: "server", Kind: core.StepEvent, Event: "STARTED", From: "start", To: "end", At: then},
		},
	}

	require.NoError(t, s.WriteReport(ctx, later))
	require.NoError(t, s.WriteReport(ctx, earlier))

	r, err := s.GetReport(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "tacos", r.Variables["likes"])
	require.Len(t, r.Steps, 1)
	assert.Equal(t, core.StepEvent, r.Steps[0].Kind)
	assert.True(t, then.Equal(r.Started))

	_, err = s.GetReport(ctx, "nope")
	assert.Equal(t, storage.NotFound, err)

	rs, err := s.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "a", rs[0].Id)
	assert.Nil(t, rs[0].Steps)
	assert.Equal(t, "b", rs[1].Id)
	assert.Equal(t, "broken", rs[1].Error)

	assert.Error(t, s.WriteReport(ctx, &storage.Report{}))
}

func TestReopen(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	s, err := NewStorage(filename)
	require.NoError(t, err)
	require.NoError(t, s.Open(ctx))
	require.NoError(t, s.WriteReport(ctx, &storage.Report{Id: "x", State: "done"}))
	require.NoError(t, s.Close(ctx))

	s, err = NewStorage(filename)
	require.NoError(t, err)
	require.NoError(t, s.Open(ctx))
	defer s.Close(ctx)

	r, err := s.GetReport(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "done", r.State)
}

func TestNoFilename(t *testing.T) {
	_, err := NewStorage("")
	assert.Error(t, err)
}
