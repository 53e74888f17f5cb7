package stage

import (
	"spool/internal/fetchplan"
	"spool/internal/services"
)

// ParsePlan parses a stored download plan and returns the envelope.
// On failure it returns a services.ErrValidation suitable for stage Execute methods.
func ParsePlan(raw string) (fetchplan.Envelope, error) {
	env, err := fetchplan.Parse(raw)
	if err != nil {
		return fetchplan.Envelope{}, services.Wrap(
			services.ErrValidation, "stage", "parse download plan",
			"Download plan missing or invalid; rerun extraction", err)
	}
	return env, nil
}
