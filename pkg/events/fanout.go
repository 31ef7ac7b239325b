package events

import "go.uber.org/multierr"

// Fanout forwards every event to each sink in order. A failing sink does not
// stop delivery to the rest.
type Fanout []Sink

func (f Fanout) Record(e Event) error {
	var errs error
	for _, s := range f {
		errs = multierr.Append(errs, s.Record(e))
	}
	return errs
}
