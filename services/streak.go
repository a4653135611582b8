package services

import (
	"math"
	"time"

	"github.com/jinzhu/now"
)

// NextStreak returns the streak after a completion at completedAt, given the previous
// completion time and streak. Calendar days are taken in loc.
//
//	no previous completion        -> 1
//	previous completion today     -> currentStreak
//	previous completion yesterday -> currentStreak + 1
//	anything else (gap or future) -> 1
func NextStreak(completedAt time.Time, loc *time.Location, lastCompletion *time.Time, currentStreak int) int {
	if lastCompletion == nil {
		return 1
	}
	switch calendarDaysBetween(*lastCompletion, completedAt, loc) {
	case 0:
		return currentStreak
	case 1:
		return currentStreak + 1
	default:
		return 1
	}
}

// calendarDaysBetween counts whole calendar days from a to b in loc, ignoring the
// time of day. Midnights a DST shift apart are 23 or 25 hours apart, hence the rounding.
func calendarDaysBetween(a, b time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	da := now.With(a.In(loc)).BeginningOfDay()
	db := now.With(b.In(loc)).BeginningOfDay()
	return int(math.Round(db.Sub(da).Hours() / 24))
}
