package services

import "payminder/internal/core"

// PriorityTier assigns Priority to records overdue by more than
// MinDaysOverdue days.
type PriorityTier struct {
	MinDaysOverdue int
	Priority       core.Priority
}

// priorityTiers is evaluated top-down; the first tier whose threshold is
// exceeded wins. The last tier catches everything from zero days.
var priorityTiers = []PriorityTier{
	{MinDaysOverdue: 30, Priority: core.PriorityHigh},
	{MinDaysOverdue: 7, Priority: core.PriorityMedium},
	{MinDaysOverdue: -1, Priority: core.PriorityLow},
}

// PriorityFor returns the priority tier for a number of days overdue:
// over 30 is High, 8 to 30 is Medium, 0 to 7 is Low.
func PriorityFor(daysOverdue int) core.Priority {
	for _, tier := range priorityTiers {
		if daysOverdue > tier.MinDaysOverdue {
			return tier.Priority
		}
	}
	return core.PriorityLow
}
