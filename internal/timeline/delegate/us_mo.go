package delegate

import (
	"time"

	"caseline/internal/timeline/models"
)

// usMO: Missouri.
//
// Supervision types are mutually exclusive: a person on dual supervision is
// tracked as its own population, so spans without a resolved supervision type
// are excluded from supervision population counts. Data entry lags produce
// one-day gaps between continuation records, so adjacency tolerates a
// 24-hour gap.
func usMO(d *Delegate) {
	d.Adjacent = AdjacentWithin(24 * time.Hour)
	d.IncludeSpan = func(s models.Span) Inclusion {
		if base := defaultIncludeSpan(s); !base.Include {
			return base
		}
		if s.Attrs.Supervision && s.Attrs.SupervisionType == "" {
			return Excluded("supervision_type_resolved", "supervision span without a resolved supervision type")
		}
		return Included
	}
}
