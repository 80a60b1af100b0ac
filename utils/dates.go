// utils/dates.go
package utils

import "time"

// BeginningOfDay truncates a timestamp to local midnight. Alert and trend
// windows are whole-day ranges, so cutoffs always align to day boundaries.
func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
