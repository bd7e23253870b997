package scenarios

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/crisistriage/core/errs"
	"github.com/kilianp07/crisistriage/core/model"
	"github.com/kilianp07/crisistriage/internal/fixture"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		sc, err := Load(f)
		require.NoError(t, err, f)
		t.Run(sc.Name, func(t *testing.T) {
			failures, err := Run(context.Background(), sc)
			require.NoError(t, err)
			assert.Empty(t, failures)
		})
	}
}

func TestRun_ReportsMismatches(t *testing.T) {
	sc := &Scenario{
		Name: "wrong",
		Resources: []fixture.Resource{
			{ID: "supplies-001", Type: "supplies", Capacity: 10, Capabilities: []string{"other"}},
		},
		Steps: []Step{{
			Message:    "help",
			Extraction: ExtractionDef{Needs: []NeedDef{{Type: "other", Confidence: 0.5}}},
			Expect:     StepExpect{TopMatch: "ambulance-001"},
		}},
		Expected: Expected{Dispatched: 1},
	}
	failures, err := Run(context.Background(), sc)
	require.NoError(t, err)
	assert.Len(t, failures, 2)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load("no-file.yaml")
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(":"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)

	unnamed := filepath.Join(dir, "unnamed.yaml")
	require.NoError(t, os.WriteFile(unnamed, []byte("steps: []\n"), 0o600))
	_, err = Load(unnamed)
	assert.ErrorContains(t, err, "name is required")

	dup := filepath.Join(dir, "dup.yaml")
	require.NoError(t, os.WriteFile(dup, []byte("name: d\nsteps:\n  - message: a\n  - message: a\n"), 0o600))
	_, err = Load(dup)
	assert.ErrorContains(t, err, "repeats message")
}

func TestExtractionDefaults(t *testing.T) {
	info := ExtractionDef{Needs: []NeedDef{{Type: "unknown", Confidence: 0.4}}}.ToModel()
	assert.Equal(t, model.UrgencyMedium, info.UrgencyLevel)
	assert.Equal(t, 0.9, info.ExtractionConfidence)
	assert.Equal(t, model.NeedOther, info.Needs[0].Type)
}

func TestErrKind(t *testing.T) {
	assert.ErrorIs(t, errKind("conflict"), errs.ErrCapacityConflict)
	assert.ErrorIs(t, errKind("transition"), errs.ErrInvalidTransition)
	assert.ErrorIs(t, errKind("not_found"), errs.ErrNotFound)
	assert.ErrorIs(t, errKind("validation"), errs.ErrValidation)
	assert.Error(t, errKind("other"))
}
