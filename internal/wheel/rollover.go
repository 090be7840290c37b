package wheel

import (
	"fmt"

	"github.com/openclaw/wheelhouse/internal/models"
)

// InvalidRolloverError means the rollover inputs are malformed: the
// existing position is not a short option, or its symbol cannot be parsed.
type InvalidRolloverError struct {
	Field  string
	Reason string
}

func (e *InvalidRolloverError) Error() string {
	return fmt.Sprintf("invalid rollover: %s: %s", e.Field, e.Reason)
}

// AnalyzeRollover computes the cost/benefit of closing an existing short
// option and opening the candidate in its place. Net credit is the
// candidate's bid minus the per-share buy-to-close cost of the existing
// leg; breakeven shift is candidate strike minus existing strike, so a put
// rolled down reports a negative shift and a call rolled up a positive one.
func AnalyzeRollover(existing models.Position, candidate models.OptionContract) (*models.RolloverPlan, error) {
	if existing.Kind != models.KindOption {
		return nil, &InvalidRolloverError{Field: "instrument_kind", Reason: fmt.Sprintf("expected option, got %s", existing.Kind)}
	}
	if !existing.IsShort() {
		return nil, &InvalidRolloverError{Field: "quantity", Reason: fmt.Sprintf("position must be short, got %.2f", existing.Quantity)}
	}
	if !candidate.Right.Valid() {
		return nil, &InvalidRolloverError{Field: "candidate.right", Reason: fmt.Sprintf("unknown right %q", candidate.Right)}
	}

	_, _, existingRight, existingStrike, err := models.ParseOSI(existing.Symbol)
	if err != nil {
		return nil, &InvalidRolloverError{Field: "symbol", Reason: err.Error()}
	}
	if existingRight != candidate.Right {
		return nil, &InvalidRolloverError{Field: "candidate.right",
			Reason: fmt.Sprintf("existing leg is a %s, candidate is a %s", existingRight, candidate.Right)}
	}

	costToClose := existing.CostToClose()
	return &models.RolloverPlan{
		Existing:       existing,
		Candidate:      candidate,
		NetCredit:      candidate.Bid - costToClose,
		BreakevenShift: candidate.Strike - existingStrike,
	}, nil
}
