package store

import (
	"database/sql"
	"time"
)

// EpisodeRow mirrors adbb/db.py's EpisodeTable.
type EpisodeRow struct {
	EID             int
	AID             int
	LengthMinutes   int
	Rating          float64
	VoteCount       int
	EpisodeNumber   string
	EpisodeType     string
	RomajiName      string
	KanjiName       string
	EnglishName     string
	AiredDate       string
	UpdatedAt       time.Time
	LastRefreshRoll time.Time
}

// UpsertEpisode inserts or merges e by primary key (eid).
func (s *Store) UpsertEpisode(e EpisodeRow) error {
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO episode (
				eid, aid, length_minutes, rating, vote_count, episode_number,
				episode_type, romaji_name, kanji_name, english_name, aired_date,
				updated_at, last_refresh_roll
			) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
			ON CONFLICT(eid) DO UPDATE SET
				aid=excluded.aid,
				length_minutes=excluded.length_minutes,
				rating=excluded.rating,
				vote_count=excluded.vote_count,
				episode_number=excluded.episode_number,
				episode_type=excluded.episode_type,
				romaji_name=excluded.romaji_name,
				kanji_name=excluded.kanji_name,
				english_name=excluded.english_name,
				aired_date=excluded.aired_date,
				updated_at=excluded.updated_at,
				last_refresh_roll=excluded.last_refresh_roll
		`,
			e.EID, e.AID, e.LengthMinutes, e.Rating, e.VoteCount, e.EpisodeNumber,
			e.EpisodeType, e.RomajiName, e.KanjiName, e.EnglishName, e.AiredDate,
			e.UpdatedAt.Unix(), nullableUnix(e.LastRefreshRoll),
		)
		return err
	})
}

// GetEpisode returns the cached row for eid, or ok=false if absent.
func (s *Store) GetEpisode(eid int) (EpisodeRow, bool, error) {
	row := s.db.QueryRow(`
		SELECT eid, aid, length_minutes, rating, vote_count, episode_number,
			episode_type, romaji_name, kanji_name, english_name, aired_date,
			updated_at, last_refresh_roll
		FROM episode WHERE eid = ?`, eid)

	var e EpisodeRow
	var updatedAt int64
	var lastRoll sql.NullInt64
	err := row.Scan(
		&e.EID, &e.AID, &e.LengthMinutes, &e.Rating, &e.VoteCount, &e.EpisodeNumber,
		&e.EpisodeType, &e.RomajiName, &e.KanjiName, &e.EnglishName, &e.AiredDate,
		&updatedAt, &lastRoll,
	)
	if err == sql.ErrNoRows {
		return EpisodeRow{}, false, nil
	}
	if err != nil {
		return EpisodeRow{}, false, err
	}
	e.UpdatedAt = time.Unix(updatedAt, 0)
	if lastRoll.Valid {
		e.LastRefreshRoll = time.Unix(lastRoll.Int64, 0)
	}
	return e, true, nil
}

// EpisodesForAnime returns every cached episode belonging to aid.
func (s *Store) EpisodesForAnime(aid int) ([]EpisodeRow, error) {
	rows, err := s.db.Query(`
		SELECT eid, aid, length_minutes, rating, vote_count, episode_number,
			episode_type, romaji_name, kanji_name, english_name, aired_date,
			updated_at, last_refresh_roll
		FROM episode WHERE aid = ? ORDER BY episode_number`, aid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EpisodeRow
	for rows.Next() {
		var e EpisodeRow
		var updatedAt int64
		var lastRoll sql.NullInt64
		if err := rows.Scan(
			&e.EID, &e.AID, &e.LengthMinutes, &e.Rating, &e.VoteCount, &e.EpisodeNumber,
			&e.EpisodeType, &e.RomajiName, &e.KanjiName, &e.EnglishName, &e.AiredDate,
			&updatedAt, &lastRoll,
		); err != nil {
			return nil, err
		}
		e.UpdatedAt = time.Unix(updatedAt, 0)
		if lastRoll.Valid {
			e.LastRefreshRoll = time.Unix(lastRoll.Int64, 0)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
