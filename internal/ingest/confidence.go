package ingest

import (
	"math"

	"github.com/trackmail/trackmail-backend/internal/models"
)

// Score derives the extraction confidence for a parsed email: three equal
// contributions for company present, position present, and status present
// and not the default "applied". This is a count heuristic, not a calibrated
// probability; a correctly classified "applied" scores the same as an
// unknown status because the default carries no information.
func Score(parsed ParsedFields) float64 {
	score := 0.0
	if parsed.Company != "" {
		score++
	}
	if parsed.Position != "" {
		score++
	}
	if parsed.Status != "" && parsed.Status != models.StatusApplied {
		score++
	}
	return math.Round(score/3.0*100) / 100
}
