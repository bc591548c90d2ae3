package compliance

// DefaultDueSoonDays is the window, in days, in which an open check is due soon.
const DefaultDueSoonDays = 7

// EffectiveStatus derives the display status of c as of today.
// Completed and monitoring checks keep their status.
func EffectiveStatus(c ComplianceCheck, today Date, dueSoonDays int) Status {
	if c.Status == StatusCompleted || c.Status == StatusMonitoring || c.DueDate.IsZero() {
		return c.Status
	}
	switch {
	case c.DueDate.Before(today):
		return StatusOverdue
	case DaysBetween(today, c.DueDate) <= dueSoonDays:
		return StatusDueSoon
	default:
		return StatusPending
	}
}

// RefreshStatuses returns copies of the checks whose status changes as of
// today, with the new status applied.
func RefreshStatuses(checks []ComplianceCheck, today Date, dueSoonDays int) []ComplianceCheck {
	var changed []ComplianceCheck
	for _, c := range checks {
		next := EffectiveStatus(c, today, dueSoonDays)
		if next == c.Status {
			continue
		}
		c.Status = next
		changed = append(changed, c)
	}
	return changed
}

// ApplyStatus moves c to status, maintaining completedDate.
func ApplyStatus(c *ComplianceCheck, status Status, on Date) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	c.Status = status
	if status == StatusCompleted {
		d := on
		c.CompletedDate = &d
	} else {
		c.CompletedDate = nil
	}
	return nil
}
