package store

import (
	"database/sql"
	"time"
)

// FileRow mirrors adbb/db.py's FileTable, including the mylist columns
// that travel with a concrete file once it's added to the user's list,
// and the is_generic bit spec.md §3.1 requires: a local file AniDB has
// not matched to a content hash yet is tracked by (aid, epno) alone.
type FileRow struct {
	FID             int
	AID             int
	EID             int
	GID             int
	MylistID        int
	Size            int64
	ED2k            string
	MD5             string
	SHA1            string
	CRC32           string
	Quality         string
	Source          string
	AudioCodec      string
	AudioBitrate    int
	VideoCodec      string
	VideoBitrate    int
	VideoResolution string
	FileType        string
	DubLanguage     string
	SubLanguage     string
	LengthMinutes   int
	Description     string
	AiredDate       string
	AniDBFileName   string
	LocalPath       string
	Mtime           time.Time
	IsGeneric       bool // spec.md §3.1: no concrete file record yet, tracked only by (aid, epno)
	IsDeprecated    bool
	CRCOK           bool
	FileVersion     int
	Censored        bool
	Part            int
	MylistState     string
	MylistFilestate string
	MylistViewed    bool
	MylistViewDate  time.Time
	MylistStorage   string
	MylistSource    string
	MylistOther     string
	UpdatedAt       time.Time
	LastRefreshRoll time.Time
}

// UpsertFile inserts or merges f by primary key (fid).
func (s *Store) UpsertFile(f FileRow) error {
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO file (
				fid, aid, eid, gid, mylist_id, size, ed2k, md5, sha1, crc32,
				quality, source, audio_codec, audio_bitrate, video_codec, video_bitrate,
				video_resolution, file_type, dub_language, sub_language, length_minutes,
				description, aired_date, anidb_filename, local_path, mtime,
				is_generic, is_deprecated, crc_ok, file_version, censored, part,
				mylist_state, mylist_filestate, mylist_viewed, mylist_view_date,
				mylist_storage, mylist_source, mylist_other, updated_at, last_refresh_roll
			) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
			ON CONFLICT(fid) DO UPDATE SET
				aid=excluded.aid,
				eid=excluded.eid,
				gid=excluded.gid,
				mylist_id=excluded.mylist_id,
				size=excluded.size,
				ed2k=excluded.ed2k,
				md5=excluded.md5,
				sha1=excluded.sha1,
				crc32=excluded.crc32,
				quality=excluded.quality,
				source=excluded.source,
				audio_codec=excluded.audio_codec,
				audio_bitrate=excluded.audio_bitrate,
				video_codec=excluded.video_codec,
				video_bitrate=excluded.video_bitrate,
				video_resolution=excluded.video_resolution,
				file_type=excluded.file_type,
				dub_language=excluded.dub_language,
				sub_language=excluded.sub_language,
				length_minutes=excluded.length_minutes,
				description=excluded.description,
				aired_date=excluded.aired_date,
				anidb_filename=excluded.anidb_filename,
				local_path=excluded.local_path,
				mtime=excluded.mtime,
				is_generic=excluded.is_generic,
				is_deprecated=excluded.is_deprecated,
				crc_ok=excluded.crc_ok,
				file_version=excluded.file_version,
				censored=excluded.censored,
				part=excluded.part,
				mylist_state=excluded.mylist_state,
				mylist_filestate=excluded.mylist_filestate,
				mylist_viewed=excluded.mylist_viewed,
				mylist_view_date=excluded.mylist_view_date,
				mylist_storage=excluded.mylist_storage,
				mylist_source=excluded.mylist_source,
				mylist_other=excluded.mylist_other,
				updated_at=excluded.updated_at,
				last_refresh_roll=excluded.last_refresh_roll
		`,
			f.FID, f.AID, f.EID, f.GID, f.MylistID, f.Size, f.ED2k, f.MD5, f.SHA1, f.CRC32,
			f.Quality, f.Source, f.AudioCodec, f.AudioBitrate, f.VideoCodec, f.VideoBitrate,
			f.VideoResolution, f.FileType, f.DubLanguage, f.SubLanguage, f.LengthMinutes,
			f.Description, f.AiredDate, f.AniDBFileName, f.LocalPath, nullableUnix(f.Mtime),
			f.IsGeneric, f.IsDeprecated, f.CRCOK, f.FileVersion, f.Censored, f.Part,
			f.MylistState, f.MylistFilestate, f.MylistViewed, nullableUnix(f.MylistViewDate),
			f.MylistStorage, f.MylistSource, f.MylistOther,
			f.UpdatedAt.Unix(), nullableUnix(f.LastRefreshRoll),
		)
		return err
	})
}

const fileColumns = `fid, aid, eid, gid, mylist_id, size, ed2k, md5, sha1, crc32,
	quality, source, audio_codec, audio_bitrate, video_codec, video_bitrate,
	video_resolution, file_type, dub_language, sub_language, length_minutes,
	description, aired_date, anidb_filename, local_path, mtime,
	is_generic, is_deprecated, crc_ok, file_version, censored, part,
	mylist_state, mylist_filestate, mylist_viewed, mylist_view_date,
	mylist_storage, mylist_source, mylist_other, updated_at, last_refresh_roll`

// FileByED2k looks up a cached file by its hash and size, the fallback
// chain the mylist coordinator uses when no fid/aid+epno is known
// (spec.md §4.9).
func (s *Store) FileByED2k(ed2k string, size int64) (FileRow, bool, error) {
	row := s.db.QueryRow(`SELECT `+fileColumns+` FROM file WHERE ed2k = ? AND size = ?`, ed2k, size)
	return scanFileRow(row)
}

// FileByFID looks up a cached file by its server-assigned fid.
func (s *Store) FileByFID(fid int) (FileRow, bool, error) {
	row := s.db.QueryRow(`SELECT `+fileColumns+` FROM file WHERE fid = ?`, fid)
	return scanFileRow(row)
}

// FileByAIDEpno looks up a generic file tracked only by (aid, epno),
// since it has no fid/ed2k yet (spec.md §3.1's Generic file).
func (s *Store) FileByAIDEpno(aid int, epno string) (FileRow, bool, error) {
	row := s.db.QueryRow(`SELECT `+fileColumns+` FROM file WHERE aid = ? AND eid IN (
		SELECT eid FROM episode WHERE aid = ? AND episode_number = ?
	) AND is_generic = 1 LIMIT 1`, aid, aid, epno)
	return scanFileRow(row)
}

// FilesByAID returns every cached file row (generic or concrete) for an
// anime, used by Anime.InMylist (spec.md §4.7.1).
func (s *Store) FilesByAID(aid int) ([]FileRow, error) {
	rows, err := s.db.Query(`SELECT `+fileColumns+` FROM file WHERE aid = ?`, aid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FileRow
	for rows.Next() {
		f, err := scanFileRowCols(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteFile removes a file row by fid, used when reconciling a generic
// entry into its concrete replacement (spec.md §4.9).
func (s *Store) DeleteFile(fid int) error {
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM file WHERE fid = ?`, fid)
		return err
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFileRow(row *sql.Row) (FileRow, bool, error) {
	f, err := scanFileRowCols(row)
	if err == sql.ErrNoRows {
		return FileRow{}, false, nil
	}
	if err != nil {
		return FileRow{}, false, err
	}
	return f, true, nil
}

func scanFileRowCols(row rowScanner) (FileRow, error) {
	var f FileRow
	var mtime, viewDate, updatedAt sql.NullInt64
	var lastRoll sql.NullInt64
	err := row.Scan(
		&f.FID, &f.AID, &f.EID, &f.GID, &f.MylistID, &f.Size, &f.ED2k, &f.MD5, &f.SHA1, &f.CRC32,
		&f.Quality, &f.Source, &f.AudioCodec, &f.AudioBitrate, &f.VideoCodec, &f.VideoBitrate,
		&f.VideoResolution, &f.FileType, &f.DubLanguage, &f.SubLanguage, &f.LengthMinutes,
		&f.Description, &f.AiredDate, &f.AniDBFileName, &f.LocalPath, &mtime,
		&f.IsGeneric, &f.IsDeprecated, &f.CRCOK, &f.FileVersion, &f.Censored, &f.Part,
		&f.MylistState, &f.MylistFilestate, &f.MylistViewed, &viewDate,
		&f.MylistStorage, &f.MylistSource, &f.MylistOther, &updatedAt, &lastRoll,
	)
	if err != nil {
		return FileRow{}, err
	}
	if updatedAt.Valid {
		f.UpdatedAt = time.Unix(updatedAt.Int64, 0)
	}
	if mtime.Valid {
		f.Mtime = time.Unix(mtime.Int64, 0)
	}
	if viewDate.Valid {
		f.MylistViewDate = time.Unix(viewDate.Int64, 0)
	}
	if lastRoll.Valid {
		f.LastRefreshRoll = time.Unix(lastRoll.Int64, 0)
	}
	return f, nil
}
