package dedupe

import "time"

// Option applies a configuration option to the deduper.
type Option func(*inFlightDeduper)

// WithTimeout bounds each deduplicated call. Zero or less means no bound
// beyond the work's own cancellation checks.
func WithTimeout(timeout time.Duration) Option {
	return func(d *inFlightDeduper) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}
