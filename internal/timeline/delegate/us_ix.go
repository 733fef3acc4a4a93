package delegate

import (
	"time"

	dErrors "caseline/pkg/domain-errors"

	"caseline/internal/timeline/models"
)

// usIX: Idaho (Atlas).
//
// Movement records are exported with a 48-hour batching lag, so adjacency
// tolerates a two-day gap. The export is also expected to be internally
// consistent: a zero-length supervision period indicates a corrupted export
// row and is fatal, not noise.
func usIX(d *Delegate) {
	d.Adjacent = AdjacentWithin(48 * time.Hour)
	d.Validate = func(p models.Period) error {
		if err := defaultValidate(p); err != nil {
			return err
		}
		if p.Kind == models.KindSupervision && p.ZeroDuration() {
			return dErrors.Newf(dErrors.CodeValidation,
				"zero-length supervision period seq %d in US-IX export", p.Seq)
		}
		return nil
	}
}
