package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/crisistriage/core/model"
)

func sampleRecords(base time.Time) []Record {
	return []Record{
		{Timestamp: base, RequestID: "r1", Action: ActionSubmit, Status: model.StatusPending, Urgency: model.UrgencyCritical, MatchSource: "rule", TopResource: "amb-1"},
		{Timestamp: base.Add(time.Minute), RequestID: "r2", Action: ActionSubmit, Status: model.StatusPending, Urgency: model.UrgencyLow},
		{Timestamp: base.Add(2 * time.Minute), RequestID: "r1", Action: ActionConfirm, Status: model.StatusDispatched, SelectedResource: "amb-2", DispatcherID: "d1", Override: true, OverrideReason: "closer"},
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, r := range sampleRecords(base) {
		require.NoError(t, s.Append(ctx, r))
	}

	all, err := s.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r1", all[0].RequestID)
	assert.Equal(t, ActionConfirm, all[2].Action)
	assert.True(t, all[2].Override)

	byReq, err := s.Query(ctx, Query{RequestID: "r1"})
	require.NoError(t, err)
	assert.Len(t, byReq, 2)

	byAction, err := s.Query(ctx, Query{Action: ActionSubmit})
	require.NoError(t, err)
	assert.Len(t, byAction, 2)

	window, err := s.Query(ctx, Query{Start: base.Add(30 * time.Second), End: base.Add(90 * time.Second)})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "r2", window[0].RequestID)

	limited, err := s.Query(ctx, Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, ActionConfirm, limited[0].Action)
}

func TestJSONLStore(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestRotatingJSONLStore(t *testing.T) {
	s, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "logs", "audit.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestRotatingJSONLStore_ReadsBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")
	s, err := NewRotatingJSONLStore(path, 1, 3, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	rec := Record{Timestamp: time.Now(), RequestID: "r", Action: ActionSubmit, OverrideReason: strings.Repeat("x", 4000)}
	for i := 0; i < 300; i++ {
		require.NoError(t, s.Append(ctx, rec))
	}
	backups, err := filepath.Glob(filepath.Join(dir, "audit-*.jsonl"))
	require.NoError(t, err)
	assert.NotEmpty(t, backups)

	out, err := s.Query(ctx, Query{RequestID: "r"})
	require.NoError(t, err)
	assert.Len(t, out, 300)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	s, err := Open(Config{})
	require.NoError(t, err)
	assert.IsType(t, NopStore{}, s)

	s, err = Open(Config{Backend: "jsonl", Path: filepath.Join(t.TempDir(), "a.jsonl")})
	require.NoError(t, err)
	assert.IsType(t, &JSONLStore{}, s)

	_, err = Open(Config{Backend: "kafka"})
	assert.Error(t, err)
}

func TestRecord_JSON(t *testing.T) {
	data, err := json.Marshal(Record{Timestamp: time.Unix(0, 0), RequestID: "r1", Action: ActionConfirm, Status: model.StatusCancelled})
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, k := range []string{"timestamp", "request_id", "action", "status", "override"} {
		assert.Contains(t, m, k)
	}
	assert.NotContains(t, m, "selected_resource")
}
