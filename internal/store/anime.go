package store

import (
	"database/sql"
	"time"
)

// AnimeRow is the persisted row for one anime, column-for-column with
// adbb/db.py's AnimeTable.
type AnimeRow struct {
	AID            int
	RomajiName     string
	KanjiName      string
	EnglishName    string
	OtherName      string
	ShortNames     string
	Synonyms       string
	AnimeType      string
	EpisodeCount   int
	HighestEpisode int
	AirDate        string
	EndDate        string
	URL            string
	Picname        string
	Rating         float64
	VoteCount      int
	TempRating     float64
	TempVoteCount  int
	ReviewRating   float64
	ReviewCount    int
	Is18Restricted bool
	SpecialEpCount int
	Retired        bool
	RegistryUpdated time.Time // server's own last-updated timestamp, used for the Anime class bias (spec.md §4.7)
	UpdatedAt      time.Time
	LastRefreshRoll time.Time
}

// UpsertAnime inserts or merges a by primary key (aid), matching the
// original's SQLAlchemy merge() semantics: existing columns are
// overwritten with the newer values rather than requiring a full row
// replace.
func (s *Store) UpsertAnime(a AnimeRow) error {
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO anime (
				aid, romaji_name, kanji_name, english_name, other_name, short_names,
				synonyms, anime_type, episode_count, highest_episode, air_date, end_date,
				url, picname, rating, vote_count, temp_rating, temp_vote_count,
				review_rating, review_count, is_18_restricted, special_ep_count, retired,
				registry_updated, updated_at, last_refresh_roll
			) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
			ON CONFLICT(aid) DO UPDATE SET
				romaji_name=excluded.romaji_name,
				kanji_name=excluded.kanji_name,
				english_name=excluded.english_name,
				other_name=excluded.other_name,
				short_names=excluded.short_names,
				synonyms=excluded.synonyms,
				anime_type=excluded.anime_type,
				episode_count=excluded.episode_count,
				highest_episode=excluded.highest_episode,
				air_date=excluded.air_date,
				end_date=excluded.end_date,
				url=excluded.url,
				picname=excluded.picname,
				rating=excluded.rating,
				vote_count=excluded.vote_count,
				temp_rating=excluded.temp_rating,
				temp_vote_count=excluded.temp_vote_count,
				review_rating=excluded.review_rating,
				review_count=excluded.review_count,
				is_18_restricted=excluded.is_18_restricted,
				special_ep_count=excluded.special_ep_count,
				retired=excluded.retired,
				registry_updated=excluded.registry_updated,
				updated_at=excluded.updated_at,
				last_refresh_roll=excluded.last_refresh_roll
		`,
			a.AID, a.RomajiName, a.KanjiName, a.EnglishName, a.OtherName, a.ShortNames,
			a.Synonyms, a.AnimeType, a.EpisodeCount, a.HighestEpisode, a.AirDate, a.EndDate,
			a.URL, a.Picname, a.Rating, a.VoteCount, a.TempRating, a.TempVoteCount,
			a.ReviewRating, a.ReviewCount, a.Is18Restricted, a.SpecialEpCount, a.Retired,
			nullableUnix(a.RegistryUpdated), a.UpdatedAt.Unix(), nullableUnix(a.LastRefreshRoll),
		)
		return err
	})
}

// GetAnime returns the cached row for aid, or ok=false if absent.
func (s *Store) GetAnime(aid int) (AnimeRow, bool, error) {
	row := s.db.QueryRow(`
		SELECT aid, romaji_name, kanji_name, english_name, other_name, short_names,
			synonyms, anime_type, episode_count, highest_episode, air_date, end_date,
			url, picname, rating, vote_count, temp_rating, temp_vote_count,
			review_rating, review_count, is_18_restricted, special_ep_count, retired,
			registry_updated, updated_at, last_refresh_roll
		FROM anime WHERE aid = ?`, aid)

	var a AnimeRow
	var registryUpdated sql.NullInt64
	var updatedAt int64
	var lastRoll sql.NullInt64
	err := row.Scan(
		&a.AID, &a.RomajiName, &a.KanjiName, &a.EnglishName, &a.OtherName, &a.ShortNames,
		&a.Synonyms, &a.AnimeType, &a.EpisodeCount, &a.HighestEpisode, &a.AirDate, &a.EndDate,
		&a.URL, &a.Picname, &a.Rating, &a.VoteCount, &a.TempRating, &a.TempVoteCount,
		&a.ReviewRating, &a.ReviewCount, &a.Is18Restricted, &a.SpecialEpCount, &a.Retired,
		&registryUpdated, &updatedAt, &lastRoll,
	)
	if err == sql.ErrNoRows {
		return AnimeRow{}, false, nil
	}
	if err != nil {
		return AnimeRow{}, false, err
	}
	a.UpdatedAt = time.Unix(updatedAt, 0)
	if registryUpdated.Valid {
		a.RegistryUpdated = time.Unix(registryUpdated.Int64, 0)
	}
	if lastRoll.Valid {
		a.LastRefreshRoll = time.Unix(lastRoll.Int64, 0)
	}
	return a, true, nil
}

func nullableUnix(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}
