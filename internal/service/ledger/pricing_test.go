package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saphire-ai/backend/internal/domain"
	"github.com/saphire-ai/backend/internal/service/ledger"
)

func TestSimulationCost(t *testing.T) {
	tests := []struct {
		name            string
		simulationType  string
		durationMinutes int
		want            int64
	}{
		{"interview flat rate", "interview", 0, 10},
		{"interview ignores duration", "interview", 90, 10},
		{"presentation base", "presentation", 15, 15},
		{"presentation short of base", "presentation", 5, 15},
		{"presentation zero duration", "presentation", 0, 15},
		{"presentation partial extra block", "presentation", 29, 15},
		{"presentation one extra block", "presentation", 30, 20},
		{"presentation just under two blocks", "presentation", 44, 20},
		{"presentation two extra blocks", "presentation", 45, 25},
		{"presentation hour long", "presentation", 60, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ledger.SimulationCost(tt.simulationType, tt.durationMinutes)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSimulationCost_UnknownType(t *testing.T) {
	_, err := ledger.SimulationCost("karaoke", 10)
	require.ErrorIs(t, err, domain.ErrInvalidSimulationType)
}

func TestCosts_ListsAllTypes(t *testing.T) {
	costs := ledger.Costs()
	assert.Equal(t, int64(10), costs["interview"])
	assert.Equal(t, int64(15), costs["presentation"])
}
