package integration

import "time"

// AfterDate computes the lower bound of an incremental order pull.
//
//	cutoff    = max(sinceDate, now - daysBack)
//	afterDate = max(cutoff, lastSyncAt)
//
// Absent inputs count as minus infinity. A nil result means no lower bound.
func AfterDate(now time.Time, daysBack *int, sinceDate, lastSyncAt *time.Time) *time.Time {
	var bound *time.Time

	raise := func(t time.Time) {
		if bound == nil || t.After(*bound) {
			tt := t
			bound = &tt
		}
	}

	if sinceDate != nil {
		raise(*sinceDate)
	}
	if daysBack != nil && *daysBack > 0 {
		raise(now.AddDate(0, 0, -*daysBack))
	}
	if lastSyncAt != nil {
		raise(*lastSyncAt)
	}
	return bound
}

// OrderAfterDate applies AfterDate to a store's backlog settings
func (s *Store) OrderAfterDate(now time.Time) *time.Time {
	return AfterDate(now, s.OrderDaysBack, s.OrderSinceDate, s.LastSyncAt)
}
