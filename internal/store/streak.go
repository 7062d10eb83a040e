package store

import (
	"errors"
	"log"
	"time"

	"promodo/internal/session"
)

// UpdateStreakOnAppOpen records that the app was opened on now's calendar
// day and returns the consecutive-day streak. Calling it again on the same
// day returns the same value. Unreadable state counts as a first run; a
// failed write is returned together with the computed streak.
func (r *Repository) UpdateStreakOnAppOpen(now time.Time) (int, error) {
	today := session.DayKey(now)

	var lastLogin string
	if err := r.Get(KeyLastLogin, &lastLogin); err != nil && !errors.Is(err, ErrNotFound) {
		log.Printf("store: read %s: %v", KeyLastLogin, err)
		lastLogin = ""
	}
	var streak int
	if err := r.Get(KeyStreak, &streak); err != nil && !errors.Is(err, ErrNotFound) {
		log.Printf("store: read %s: %v", KeyStreak, err)
		streak = 0
	}

	switch {
	case lastLogin == today && streak > 0:
		return streak, nil
	case lastLogin == today:
		streak = 1
	case lastLogin == session.DayKey(now.AddDate(0, 0, -1)) && streak > 0:
		streak++
	default:
		streak = 1
	}

	tx, err := r.db.Begin()
	if err != nil {
		return streak, err
	}
	defer tx.Rollback()
	if err := put(tx, KeyLastLogin, today); err != nil {
		return streak, err
	}
	if err := put(tx, KeyStreak, streak); err != nil {
		return streak, err
	}
	return streak, tx.Commit()
}
