package services

import (
	"testing"

	"github.com/deliverypulse/engine/internal/models"
	appErr "github.com/deliverypulse/engine/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideFullMode(t *testing.T) {
	cases := []struct {
		state ProjectState
		token string
		want  Action
	}{
		{StateActive, "closed", ActionArchive},
		{StateActive, " Hided ", ActionArchive},
		{StateHistorical, "CLOSED", ActionSkip},
		{StateHistorical, "hided", ActionSkip},
		{StateHistorical, "Normal", ActionRestore},
		{StateActive, "normal", ActionIngest},
		{StateActive, "paused", ActionSkip},
		{StateHistorical, "paused", ActionSkip},
		{StateActive, "", ActionSkip},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Decide(models.ImportFull, tc.state, tc.token), "%s/%q", tc.state, tc.token)
	}
}

func TestDecideSubsetIgnoresStatus(t *testing.T) {
	for _, token := range []string{"closed", "hided", "normal", "", "weird"} {
		assert.Equal(t, ActionIngest, Decide(models.ImportSubset, StateActive, token))
		assert.Equal(t, ActionIngest, Decide(models.ImportSubset, StateHistorical, token))
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]models.ImportMode{"": models.ImportSubset, "SUBSET": models.ImportSubset, "ALL": models.ImportFull, "full": models.ImportFull} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("partial")
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestStateOf(t *testing.T) {
	assert.Equal(t, StateActive, StateOf(nil))
	assert.Equal(t, StateActive, StateOf(&models.Project{}))
	assert.Equal(t, StateHistorical, StateOf(&models.Project{IsHistorical: true}))
}

func TestComputeDeltas(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	prev := &models.SnapshotMetrics{RealHours: f(20), TheoreticalHours: f(10), ProgressW: f(40), DeviationPct: f(5)}
	cur := models.SnapshotMetrics{RealHours: f(30), TheoreticalHours: f(15), ProgressW: f(50), OrderedTotal: f(100)}

	d := ComputeDeltas(prev, cur)
	assert.Equal(t, 10.0, *d.RealHoursDelta)
	assert.Equal(t, 5.0, *d.TheoreticalHoursDelta)
	assert.Equal(t, 10.0, *d.ProgressWDelta)
	assert.Equal(t, 2.0, *d.ProductivityRatio)
	assert.Nil(t, d.OrderedTotalDelta)
	assert.Nil(t, d.DeviationPctDelta)

	assert.Equal(t, models.Deltas{}, ComputeDeltas(nil, cur))

	flat := ComputeDeltas(&models.SnapshotMetrics{RealHours: f(1), TheoreticalHours: f(15)}, cur)
	assert.Nil(t, flat.ProductivityRatio, "zero theoretical delta has no ratio")
}
