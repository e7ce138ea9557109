// Package store is the cache layer (spec.md's C6): a sqlite-backed
// relational schema for anime/anime_relation/episode/file/group/
// group_relation with upsert/merge semantics. Grounded on the teacher's
// database/sql + modernc.org/sqlite wiring (internal/plex/dvr.go, no
// ORM, raw SQL) and on adbb/db.py's SQLAlchemy table definitions,
// translated to plain CREATE TABLE/UPSERT statements.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps the cache database. Every exported write method runs in its
// own short-lived transaction and rolls back on any failure, matching the
// original's expire_on_commit=False session-per-operation style; reads
// query the database handle directly.
type Store struct {
	db *sql.DB
}

// Open creates or opens the sqlite database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid SQLITE_BUSY under concurrent goroutines
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS anime (
	aid INTEGER PRIMARY KEY,
	romaji_name TEXT,
	kanji_name TEXT,
	english_name TEXT,
	other_name TEXT,
	short_names TEXT,
	synonyms TEXT,
	anime_type TEXT,
	episode_count INTEGER,
	highest_episode INTEGER,
	air_date TEXT,
	end_date TEXT,
	url TEXT,
	picname TEXT,
	rating REAL,
	vote_count INTEGER,
	temp_rating REAL,
	temp_vote_count INTEGER,
	review_rating REAL,
	review_count INTEGER,
	is_18_restricted INTEGER,
	special_ep_count INTEGER,
	retired INTEGER,
	registry_updated INTEGER,
	updated_at INTEGER NOT NULL,
	last_refresh_roll INTEGER
);

CREATE TABLE IF NOT EXISTS anime_relation (
	aid INTEGER NOT NULL,
	related_aid INTEGER NOT NULL,
	relation_type TEXT NOT NULL,
	PRIMARY KEY (aid, related_aid)
);

CREATE TABLE IF NOT EXISTS episode (
	eid INTEGER PRIMARY KEY,
	aid INTEGER NOT NULL,
	length_minutes INTEGER,
	rating REAL,
	vote_count INTEGER,
	episode_number TEXT,
	episode_type TEXT,
	romaji_name TEXT,
	kanji_name TEXT,
	english_name TEXT,
	aired_date TEXT,
	updated_at INTEGER NOT NULL,
	last_refresh_roll INTEGER
);

CREATE TABLE IF NOT EXISTS "group" (
	gid INTEGER PRIMARY KEY,
	name TEXT,
	short_name TEXT,
	url TEXT,
	updated_at INTEGER NOT NULL,
	last_refresh_roll INTEGER
);

CREATE TABLE IF NOT EXISTS group_relation (
	gid INTEGER NOT NULL,
	related_gid INTEGER NOT NULL,
	relation_type TEXT NOT NULL,
	PRIMARY KEY (gid, related_gid)
);

CREATE TABLE IF NOT EXISTS file (
	fid INTEGER PRIMARY KEY,
	aid INTEGER,
	eid INTEGER,
	gid INTEGER,
	mylist_id INTEGER,
	size INTEGER,
	ed2k TEXT,
	md5 TEXT,
	sha1 TEXT,
	crc32 TEXT,
	quality TEXT,
	source TEXT,
	audio_codec TEXT,
	audio_bitrate INTEGER,
	video_codec TEXT,
	video_bitrate INTEGER,
	video_resolution TEXT,
	file_type TEXT,
	dub_language TEXT,
	sub_language TEXT,
	length_minutes INTEGER,
	description TEXT,
	aired_date TEXT,
	anidb_filename TEXT,
	local_path TEXT,
	mtime INTEGER,
	is_generic INTEGER NOT NULL DEFAULT 0,
	is_deprecated INTEGER NOT NULL DEFAULT 0,
	crc_ok INTEGER,
	file_version INTEGER,
	censored INTEGER,
	part INTEGER,
	mylist_state TEXT,
	mylist_filestate TEXT,
	mylist_viewed INTEGER,
	mylist_view_date INTEGER,
	mylist_storage TEXT,
	mylist_source TEXT,
	mylist_other TEXT,
	updated_at INTEGER NOT NULL,
	last_refresh_roll INTEGER
);
`

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on any error and
// committing otherwise; when fn fails and the rollback also fails, the
// rollback error is folded into the returned error.
func (s *Store) withTx(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("store: %w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}
