package biomech

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierSteps(t *testing.T) {
	t.Parallel()
	assert.Equal(t, TierMedium, TierHigh.StepDown())
	assert.Equal(t, TierLow, TierMedium.StepDown())
	assert.Equal(t, TierMinimal, TierLow.StepDown())
	assert.Equal(t, TierMinimal, TierMinimal.StepDown())

	assert.Equal(t, TierLow, TierMinimal.StepUp())
	assert.Equal(t, TierHigh, TierMedium.StepUp())
	assert.Equal(t, TierHigh, TierHigh.StepUp())
}

func TestParseTier(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Tier
		wantErr bool
	}{
		{in: "HIGH", want: TierHigh},
		{in: "medium", want: TierMedium},
		{in: " Low ", want: TierLow},
		{in: "minimal", want: TierMinimal},
		{in: "ultra", want: TierHigh, wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTier(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestTierJSON(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(map[string]Tier{"tier": TierMedium})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tier":"MEDIUM"}`, string(b))

	var out struct{ Tier Tier }
	require.NoError(t, json.Unmarshal([]byte(`{"Tier":"low"}`), &out))
	assert.Equal(t, TierLow, out.Tier)

	assert.Equal(t, "Tier(9)", Tier(9).String())
	_, err = Tier(9).MarshalText()
	assert.Error(t, err)
}
