package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/snapetech/anidbclient/internal/anierrors"
	"github.com/snapetech/anidbclient/internal/anime"
	"github.com/snapetech/anidbclient/internal/episode"
	"github.com/snapetech/anidbclient/internal/file"
	"github.com/snapetech/anidbclient/internal/group"
	"github.com/snapetech/anidbclient/internal/store"
	"github.com/snapetech/anidbclient/internal/wire"
)

// requestAMask selects the anime-level fields this client asks the
// ANIME command for, encoded per adbb/mapper.py's amask byte layout
// (wire.AMask's declaration order is the row field order the server
// returns).
const requestAMask = wire.AMaskAnimeTotalEpisodes | wire.AMaskHighestEpisode | wire.AMaskYear |
	wire.AMaskType | wire.AMaskRelatedAnimeList | wire.AMaskRelatedAnimeType |
	wire.AMaskRomajiName | wire.AMaskKanjiName | wire.AMaskEnglishName |
	wire.AMaskOtherName | wire.AMaskShortNames | wire.AMaskSynonyms

// requestFMask selects the file-level fields this client asks the FILE
// command for.
const requestFMask = wire.FMaskAID | wire.FMaskEID | wire.FMaskGID | wire.FMaskMyListID |
	wire.FMaskIsDeprecated | wire.FMaskState | wire.FMaskSize | wire.FMaskED2k |
	wire.FMaskMD5 | wire.FMaskSHA1 | wire.FMaskCRC32 | wire.FMaskQuality |
	wire.FMaskSource | wire.FMaskAudioCodec | wire.FMaskAudioBitrate |
	wire.FMaskVideoCodec | wire.FMaskVideoBitrate | wire.FMaskVideoResolution |
	wire.FMaskFileType | wire.FMaskDubLanguage | wire.FMaskSubLanguage |
	wire.FMaskLengthMinutes | wire.FMaskDescription | wire.FMaskAiredDate |
	wire.FMaskAniDBFileName | wire.FMaskMyListState | wire.FMaskMyListFileState |
	wire.FMaskMyListViewed | wire.FMaskMyListViewDate | wire.FMaskMyListStorage |
	wire.FMaskMyListSource | wire.FMaskMyListOther

func hexMask(v uint64, bytes int) string {
	return fmt.Sprintf("%0*x", bytes*2, v)
}

// FetchAnime implements anime.Fetcher: sends ANIME and parses the
// subset of fields requestAMask selects, in wire.AMask's declaration
// order.
func (c *Client) FetchAnime(ctx context.Context, aid int) (store.AnimeRow, map[int]string, error) {
	cmd := wire.NewCommand("ANIME").
		Set("aid", strconv.Itoa(aid)).
		Set("amask", hexMask(uint64(requestAMask), 4))
	resp, err := c.sendCommand(ctx, cmd, false)
	c.Metrics.CacheMisses.WithLabelValues("anime").Inc()
	if err != nil {
		if _, ok := err.(*anierrors.NotFound); ok {
			return store.AnimeRow{}, nil, &anierrors.IllegalEntity{Entity: "anime"}
		}
		return store.AnimeRow{}, nil, err
	}
	if len(resp.Rows) == 0 {
		return store.AnimeRow{}, nil, &anierrors.ProtocolViolation{Reason: "ANIME: no data row"}
	}
	f := resp.Rows[0]
	var i int
	next := func() string {
		if i >= len(f) {
			return ""
		}
		v := f[i]
		i++
		return v
	}

	row := store.AnimeRow{AID: aid}
	row.EpisodeCount = atoi(next())
	row.HighestEpisode = atoi(next())
	row.AirDate = next() // "year" field, kept as-is rather than a parsed date
	row.AnimeType = next()
	relatedList := next()
	relatedType := next()
	row.RomajiName = next()
	row.KanjiName = next()
	row.EnglishName = next()
	row.OtherName = next()
	row.ShortNames = next()
	row.Synonyms = next()
	row.RegistryUpdated = time.Now()

	relations := map[int]string{}
	if relatedList != "" {
		ids := strings.Split(relatedList, "'")
		types := strings.Split(relatedType, "'")
		for idx, idStr := range ids {
			relAid := atoi(idStr)
			if relAid == 0 {
				continue
			}
			relType := ""
			if idx < len(types) {
				relType = types[idx]
			}
			relations[relAid] = relType
		}
	}
	return row, relations, nil
}

// FetchEpisode implements episode.Fetcher: sends EPISODE and parses the
// server's fixed pipe-delimited reply (eid|aid|length|rating|votes|
// epno|eng|romaji|kanji|aired|type).
func (c *Client) FetchEpisode(ctx context.Context, eid int) (store.EpisodeRow, error) {
	cmd := wire.NewCommand("EPISODE").Set("eid", strconv.Itoa(eid))
	resp, err := c.sendCommand(ctx, cmd, false)
	c.Metrics.CacheMisses.WithLabelValues("episode").Inc()
	if err != nil {
		if _, ok := err.(*anierrors.NotFound); ok {
			return store.EpisodeRow{}, &anierrors.IllegalEntity{Entity: "episode"}
		}
		return store.EpisodeRow{}, err
	}
	if len(resp.Rows) == 0 {
		return store.EpisodeRow{}, &anierrors.ProtocolViolation{Reason: "EPISODE: no data row"}
	}
	f := resp.Rows[0]
	if len(f) < 11 {
		return store.EpisodeRow{}, &anierrors.ProtocolViolation{Reason: "EPISODE: short row"}
	}
	return store.EpisodeRow{
		EID:           atoi(f[0]),
		AID:           atoi(f[1]),
		LengthMinutes: atoi(f[2]),
		Rating:        atof(f[3]),
		VoteCount:     atoi(f[4]),
		EpisodeNumber: f[5],
		EnglishName:   f[6],
		RomajiName:    f[7],
		KanjiName:     f[8],
		AiredDate:     f[9],
		EpisodeType:   f[10],
	}, nil
}

// FetchFile implements file.Fetcher: sends FILE by fid with
// requestFMask/requestAMask and parses the combined row.
func (c *Client) FetchFile(ctx context.Context, fid int) (store.FileRow, error) {
	cmd := wire.NewCommand("FILE").
		Set("fid", strconv.Itoa(fid)).
		Set("fmask", hexMask(uint64(requestFMask), 5)).
		Set("amask", hexMask(uint64(requestAMask), 4))
	return c.fetchFile(ctx, cmd)
}

// FetchFileByHash implements file.Fetcher for the ed2k+size fallback
// lookup (spec.md §4.9): a file not yet resolved to an fid locally.
func (c *Client) FetchFileByHash(ctx context.Context, ed2k string, size int64) (store.FileRow, error) {
	cmd := wire.NewCommand("FILE").
		Set("size", strconv.FormatInt(size, 10)).
		Set("ed2k", ed2k).
		Set("fmask", hexMask(uint64(requestFMask), 5)).
		Set("amask", hexMask(uint64(requestAMask), 4))
	return c.fetchFile(ctx, cmd)
}

func (c *Client) fetchFile(ctx context.Context, cmd *wire.Command) (store.FileRow, error) {
	resp, err := c.sendCommand(ctx, cmd, false)
	c.Metrics.CacheMisses.WithLabelValues("file").Inc()
	if err != nil {
		if _, ok := err.(*anierrors.NotFound); ok {
			return store.FileRow{}, &anierrors.IllegalEntity{Entity: "file"}
		}
		return store.FileRow{}, err
	}
	if len(resp.Rows) == 0 {
		return store.FileRow{}, &anierrors.ProtocolViolation{Reason: "FILE: no data row"}
	}
	return parseFileRow(resp.Rows[0])
}

func parseFileRow(f []string) (store.FileRow, error) {
	var i int
	next := func() string {
		if i >= len(f) {
			return ""
		}
		v := f[i]
		i++
		return v
	}

	var row store.FileRow
	row.FID = atoi(next())
	row.AID = atoi(next())
	row.EID = atoi(next())
	row.GID = atoi(next())
	row.MylistID = atoi(next())
	row.IsDeprecated = next() == "1"
	state := atoi(next())
	row.CRCOK = state&int(file.StateCRCOK) != 0
	row.Censored = state&int(file.StateCensored) != 0
	switch {
	case state&int(file.StateV5) != 0:
		row.FileVersion = 5
	case state&int(file.StateV4) != 0:
		row.FileVersion = 4
	case state&int(file.StateV3) != 0:
		row.FileVersion = 3
	case state&int(file.StateV2) != 0:
		row.FileVersion = 2
	default:
		row.FileVersion = 1
	}
	row.Size, _ = strconv.ParseInt(next(), 10, 64)
	row.ED2k = next()
	row.MD5 = next()
	row.SHA1 = next()
	row.CRC32 = next()
	row.Quality = next()
	row.Source = next()
	row.AudioCodec = next()
	row.AudioBitrate = atoi(next())
	row.VideoCodec = next()
	row.VideoBitrate = atoi(next())
	row.VideoResolution = next()
	row.FileType = next()
	row.DubLanguage = next()
	row.SubLanguage = next()
	row.LengthMinutes = atoi(next())
	row.Description = next()
	row.AiredDate = next()
	row.AniDBFileName = next()
	row.MylistState = next()
	row.MylistFilestate = next()
	row.MylistViewed = next() == "1"
	if ts := atoi(next()); ts != 0 {
		row.MylistViewDate = time.Unix(int64(ts), 0)
	}
	row.MylistStorage = next()
	row.MylistSource = next()
	row.MylistOther = next()
	return row, nil
}

// FetchGroup implements group.Fetcher: sends GROUP and parses the
// server's fixed reply layout (gid|rating|votes|acount|fcount|name|
// shortname|ircchannel|ircserver|url|...).
func (c *Client) FetchGroup(ctx context.Context, gid int) (store.GroupRow, error) {
	cmd := wire.NewCommand("GROUP").Set("gid", strconv.Itoa(gid))
	resp, err := c.sendCommand(ctx, cmd, false)
	c.Metrics.CacheMisses.WithLabelValues("group").Inc()
	if err != nil {
		if _, ok := err.(*anierrors.NotFound); ok {
			return store.GroupRow{}, &anierrors.IllegalEntity{Entity: "group"}
		}
		return store.GroupRow{}, err
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0]) < 10 {
		return store.GroupRow{}, &anierrors.ProtocolViolation{Reason: "GROUP: short row"}
	}
	f := resp.Rows[0]
	return store.GroupRow{
		GID:       gid,
		Name:      f[5],
		ShortName: f[6],
		URL:       f[9],
	}, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func atof(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

// Anime returns a lazily-refreshed domain handle for aid (spec.md's
// C7).
func (c *Client) Anime(aid int) *anime.Anime { return anime.New(c.Store, c, aid) }

// Episode returns a lazily-refreshed domain handle for eid.
func (c *Client) Episode(eid int) *episode.Episode { return episode.New(c.Store, c, eid) }

// File returns a lazily-refreshed domain handle for fid.
func (c *Client) File(fid int) *file.File { return file.New(c.Store, c, fid) }

// FileByHash resolves (or creates) a File handle from its ed2k+size
// hash, the generic-to-concrete path of spec.md §4.9.
func (c *Client) FileByHash(ctx context.Context, ed2k string, size int64) (*file.File, error) {
	return file.ByHash(ctx, c.Store, c, ed2k, size)
}

// Group returns a lazily-refreshed domain handle for gid.
func (c *Client) Group(gid int) *group.Group { return group.New(c.Store, c, gid) }

// GetTitles ensures the title/mapping catalogs are fresh and returns
// fuzzy-matched candidates for name (spec.md's C10).
func (c *Client) GetTitles(ctx context.Context, name string, threshold float64) ([]struct {
	AID   int
	Title string
	Score float64
}, error) {
	if err := c.Catalog.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	matches := c.Catalog.FindByTitle(name, threshold)
	out := make([]struct {
		AID   int
		Title string
		Score float64
	}, len(matches))
	for i, m := range matches {
		out[i].AID, out[i].Title, out[i].Score = m.AID, m.Title, m.Score
	}
	return out, nil
}
