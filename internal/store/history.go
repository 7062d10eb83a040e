package store

import (
	"encoding/json"
	"fmt"
	"time"

	"promodo/internal/session"
)

// AppendSession persists one finished session.
func (r *Repository) AppendSession(l session.Log) error {
	return insertSession(r.db, l)
}

// ReplaceAllSessions clears the history and writes logs in its place. It is
// used when restoring from a backup; there is no merge.
func (r *Repository) ReplaceAllSessions(logs []session.Log) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM history"); err != nil {
		return err
	}
	for _, l := range logs {
		if err := insertSession(tx, l); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListSessions returns every logged session ordered by start time.
func (r *Repository) ListSessions() ([]session.Log, error) {
	rows, err := r.db.Query(
		"SELECT id, start_time, end_time, zone, zone_offset, duration_minutes, mode, completed, task_ids FROM history ORDER BY start_time",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []session.Log{}
	for rows.Next() {
		var l session.Log
		var startTime, endTime int64
		var zone, mode, taskIDs string
		var offset, completed int
		if err := rows.Scan(&l.ID, &startTime, &endTime, &zone, &offset, &l.DurationMinutes, &mode, &completed, &taskIDs); err != nil {
			return nil, err
		}
		loc := restoreZone(zone, offset, time.Unix(0, startTime))
		l.StartedAt = time.Unix(0, startTime).In(loc)
		l.EndedAt = time.Unix(0, endTime).In(loc)
		l.Mode = session.Mode(mode)
		l.Completed = completed == 1
		if err := json.Unmarshal([]byte(taskIDs), &l.TaskIDs); err != nil {
			return nil, fmt.Errorf("decode task ids of %s: %w", l.ID, err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func insertSession(db execer, l session.Log) error {
	taskIDs := l.TaskIDs
	if taskIDs == nil {
		taskIDs = []string{}
	}
	raw, err := json.Marshal(taskIDs)
	if err != nil {
		return err
	}
	completed := 0
	if l.Completed {
		completed = 1
	}
	zone, offset := l.StartedAt.Zone()
	if name := l.StartedAt.Location().String(); name == "UTC" || name == "Local" {
		zone = name
	} else if _, err := time.LoadLocation(name); err == nil && name != "" {
		zone = name
	}
	_, err = db.Exec(
		"INSERT INTO history (id, start_time, end_time, zone, zone_offset, duration_minutes, mode, completed, task_ids) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		l.ID,
		l.StartedAt.UnixNano(),
		l.EndedAt.UnixNano(),
		zone,
		offset,
		l.DurationMinutes,
		string(l.Mode),
		completed,
		string(raw),
	)
	if err != nil {
		return fmt.Errorf("append session %s: %w", l.ID, err)
	}
	return nil
}

// restoreZone maps a stored zone back to a location. UTC, Local and IANA
// names load as themselves when the stored offset still matches; anything
// else becomes a fixed zone.
func restoreZone(name string, offset int, at time.Time) *time.Location {
	switch name {
	case "UTC":
		return time.UTC
	case "Local":
		return time.Local
	}
	if loc, err := time.LoadLocation(name); err == nil && name != "" {
		if _, off := at.In(loc).Zone(); off == offset {
			return loc
		}
	}
	return time.FixedZone(name, offset)
}
