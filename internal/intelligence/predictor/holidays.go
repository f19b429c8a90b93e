// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package predictor

import "time"

// fixedHolidays are the fixed-date national holidays of the India calendar,
// keyed month then day. Movable festival dates (Diwali, Holi, Eid) shift
// with lunar calendars and are not modeled; the holiday flag is a coarse
// demand signal, not a civic calendar.
var fixedHolidays = map[time.Month]map[int]string{
	time.January:  {26: "Republic Day"},
	time.May:      {1: "May Day"},
	time.August:   {15: "Independence Day"},
	time.October:  {2: "Gandhi Jayanti"},
	time.December: {25: "Christmas Day"},
}

// isHoliday reports whether the date is a fixed national holiday.
func isHoliday(t time.Time) bool {
	days, ok := fixedHolidays[t.Month()]
	if !ok {
		return false
	}
	_, ok = days[t.Day()]
	return ok
}
