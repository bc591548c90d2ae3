package compliance

import "time"

// =============================================================================
// FREQUENCY RULE EVALUATOR
// =============================================================================

// IsDue reports whether a template with the given frequency and start date has
// an instance due in the target month.
//
// Both the target and the start date are compared as first-of-month dates, so
// a template starting mid-month is already due in its start month. Weekly and
// Daily templates produce one instance per month. Event-driven templates and
// templates without a start date are never due.
func IsDue(freq Frequency, start Date, year int, month time.Month) bool {
	target := Period{Year: year, Month: month}
	if start.IsZero() || !target.Valid() {
		return false
	}

	elapsed := target.Index() - start.Period().Index()
	if elapsed < 0 {
		return false
	}

	switch freq {
	case FrequencyMonthly, FrequencyWeekly, FrequencyDaily:
		return true
	case FrequencyQuarterly:
		return elapsed%3 == 0
	case FrequencyAnnually:
		return month == start.Month()
	case FrequencyEventDriven:
		return false
	default:
		return false
	}
}
