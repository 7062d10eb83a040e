package store

import (
	"testing"
	"time"
)

func TestUpdateStreakOnAppOpen(t *testing.T) {
	day := func(d, hour int) time.Time {
		return time.Date(2024, 1, d, hour, 0, 0, 0, time.Local)
	}

	tests := []struct {
		name   string
		opens  []time.Time
		streak []int
	}{
		{"first run", []time.Time{day(10, 9)}, []int{1}},
		{"same day twice", []time.Time{day(10, 9), day(10, 22)}, []int{1, 1}},
		{"consecutive days", []time.Time{day(10, 9), day(11, 8), day(12, 23), day(12, 23)}, []int{1, 2, 3, 3}},
		{"two day gap resets", []time.Time{day(10, 9), day(11, 9), day(13, 9)}, []int{1, 2, 1}},
		{"just after midnight", []time.Time{day(10, 23), day(11, 0)}, []int{1, 2}},
		{"month boundary", []time.Time{day(31, 12), time.Date(2024, 2, 1, 8, 0, 0, 0, time.Local)}, []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepo(t)
			for i, now := range tt.opens {
				got, err := repo.UpdateStreakOnAppOpen(now)
				if err != nil {
					t.Fatalf("open %d: %v", i, err)
				}
				if got != tt.streak[i] {
					t.Fatalf("open %d at %v: streak=%d, want %d", i, now, got, tt.streak[i])
				}
			}
		})
	}
}

func TestUpdateStreakRecoversFromCorruptState(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.Local)

	if err := repo.Put(KeyLastLogin, "2024-01-09"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Put(KeyStreak, "not a number"); err != nil {
		t.Fatal(err)
	}
	got, err := repo.UpdateStreakOnAppOpen(now)
	if err != nil {
		t.Fatalf("UpdateStreakOnAppOpen: %v", err)
	}
	if got != 1 {
		t.Fatalf("streak=%d, want 1", got)
	}

	var stored int
	if err := repo.Get(KeyStreak, &stored); err != nil || stored != 1 {
		t.Fatalf("stored streak=%d, %v", stored, err)
	}
}
