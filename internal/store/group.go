package store

import (
	"database/sql"
	"time"
)

// GroupRow mirrors adbb/db.py's GroupTable.
type GroupRow struct {
	GID             int
	Name            string
	ShortName       string
	URL             string
	UpdatedAt       time.Time
	LastRefreshRoll time.Time
}

// UpsertGroup inserts or merges g by primary key (gid).
func (s *Store) UpsertGroup(g GroupRow) error {
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO "group" (gid, name, short_name, url, updated_at, last_refresh_roll)
			VALUES (?,?,?,?,?,?)
			ON CONFLICT(gid) DO UPDATE SET
				name=excluded.name,
				short_name=excluded.short_name,
				url=excluded.url,
				updated_at=excluded.updated_at,
				last_refresh_roll=excluded.last_refresh_roll
		`, g.GID, g.Name, g.ShortName, g.URL, g.UpdatedAt.Unix(), nullableUnix(g.LastRefreshRoll))
		return err
	})
}

// GetGroup returns the cached row for gid, or ok=false if absent.
func (s *Store) GetGroup(gid int) (GroupRow, bool, error) {
	row := s.db.QueryRow(`SELECT gid, name, short_name, url, updated_at, last_refresh_roll
		FROM "group" WHERE gid = ?`, gid)
	var g GroupRow
	var updatedAt int64
	var lastRoll sql.NullInt64
	err := row.Scan(&g.GID, &g.Name, &g.ShortName, &g.URL, &updatedAt, &lastRoll)
	if err == sql.ErrNoRows {
		return GroupRow{}, false, nil
	}
	if err != nil {
		return GroupRow{}, false, err
	}
	g.UpdatedAt = time.Unix(updatedAt, 0)
	if lastRoll.Valid {
		g.LastRefreshRoll = time.Unix(lastRoll.Int64, 0)
	}
	return g, true, nil
}
