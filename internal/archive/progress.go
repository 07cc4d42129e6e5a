package archive

// ProgressFunc receives progress after each unit of work: entries
// processed for create/extract/validate, bytes hashed for Hash. A nil
// ProgressFunc is valid and reports nothing. Consumers may render a
// bar, emit structured events, or ignore the calls entirely.
type ProgressFunc func(current, total int64, fraction float64, label string)

// report invokes the sink with a fraction derived from current/total.
// Safe to call on a nil function.
func (p ProgressFunc) report(current, total int64, label string) {
	if p == nil {
		return
	}
	fraction := 0.0
	if total > 0 {
		fraction = float64(current) / float64(total)
	}
	p(current, total, fraction, label)
}
