package ledger

import (
	"fmt"

	"github.com/saphire-ai/backend/internal/domain"
)

const (
	SimulationTypeInterview    = "interview"
	SimulationTypePresentation = "presentation"
)

const (
	interviewCost            int64 = 10
	presentationBaseCost     int64 = 15
	presentationBlockMinutes       = 15
	presentationBlockCost    int64 = 5
)

// SimulationCost is the fixed pricing catalog. An interview costs a flat
// amount; a presentation costs a base amount plus a surcharge for every full
// extra time block beyond the base duration. Pure and deterministic.
func SimulationCost(simulationType string, durationMinutes int) (int64, error) {
	switch simulationType {
	case SimulationTypeInterview:
		return interviewCost, nil
	case SimulationTypePresentation:
		cost := presentationBaseCost
		if durationMinutes > presentationBlockMinutes {
			extra := durationMinutes - presentationBlockMinutes
			cost += int64(extra/presentationBlockMinutes) * presentationBlockCost
		}
		return cost, nil
	default:
		return 0, fmt.Errorf("SimulationCost: %q: %w", simulationType, domain.ErrInvalidSimulationType)
	}
}

// Costs returns the catalog for the costs endpoint.
func Costs() map[string]int64 {
	return map[string]int64{
		SimulationTypeInterview:    interviewCost,
		SimulationTypePresentation: presentationBaseCost,
	}
}
