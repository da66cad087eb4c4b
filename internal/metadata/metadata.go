// Package metadata decorates a detected match with movie details from the
// external metadata service. It is consulted only after a match claim
// succeeds, and its failure never blocks the broadcast: the dispatcher falls
// back to a minimal payload instead.
package metadata

import (
	"context"
	"fmt"

	id "cinematch/pkg/domain"
)

// Enrichment is the self-contained descriptive payload attached to a match
// notification so subscribers can render it without a follow-up request.
type Enrichment struct {
	Title      string   `json:"title"`
	ArtworkURL string   `json:"artworkURL,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	// Degraded marks a fallback payload produced when the metadata service
	// was unavailable.
	Degraded bool `json:"degraded,omitempty"`
}

// Describer fetches descriptive metadata for an item.
type Describer interface {
	Describe(ctx context.Context, item id.ItemID) (Enrichment, error)
}

// Fallback builds the minimal payload used when enrichment is unavailable.
func Fallback(item id.ItemID) Enrichment {
	return Enrichment{
		Title:    fmt.Sprintf("Movie #%d", int64(item)),
		Degraded: true,
	}
}
