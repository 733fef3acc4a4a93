package delegate

import "caseline/internal/timeline/models"

// usND: North Dakota.
//
// Violation events are timestamped at the violation date rather than the
// response date when the source reports both; responses can lag violations by
// months there. The violation date is only used when it falls inside one of
// the spans overlapping the response, keeping every event's timestamp inside
// the span that produced it.
func usND(d *Delegate) {
	d.QualifyEvent = func(signal models.Period, active []models.Span) (models.Event, bool) {
		event, ok := defaultQualifyEvent(signal, active)
		if !ok {
			return models.Event{}, false
		}
		violated := signal.Attrs.ViolationDate
		if violated.IsZero() {
			return event, true
		}
		for _, span := range active {
			if span.Attrs.Supervision && span.Contains(violated) {
				event.Timestamp = violated
				break
			}
		}
		return event, true
	}
}
