package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndGetAnime(t *testing.T) {
	s := openTest(t)
	a := AnimeRow{AID: 1, RomajiName: "Example Anime", EpisodeCount: 12, UpdatedAt: time.Unix(1000, 0)}
	if err := s.UpsertAnime(a); err != nil {
		t.Fatalf("UpsertAnime: %v", err)
	}
	got, ok, err := s.GetAnime(1)
	if err != nil {
		t.Fatalf("GetAnime: %v", err)
	}
	if !ok {
		t.Fatalf("GetAnime(1) not found")
	}
	if got.RomajiName != "Example Anime" || got.EpisodeCount != 12 {
		t.Fatalf("GetAnime(1) = %+v", got)
	}
}

func TestUpsertAnimeOverwritesOnConflict(t *testing.T) {
	s := openTest(t)
	s.UpsertAnime(AnimeRow{AID: 1, RomajiName: "First", UpdatedAt: time.Unix(1000, 0)})
	s.UpsertAnime(AnimeRow{AID: 1, RomajiName: "Second", UpdatedAt: time.Unix(2000, 0)})
	got, _, _ := s.GetAnime(1)
	if got.RomajiName != "Second" {
		t.Fatalf("RomajiName = %q, want Second", got.RomajiName)
	}
}

func TestGetAnimeMissing(t *testing.T) {
	s := openTest(t)
	_, ok, err := s.GetAnime(999)
	if err != nil {
		t.Fatalf("GetAnime: %v", err)
	}
	if ok {
		t.Fatalf("GetAnime(999) found, want absent")
	}
}

func TestEpisodesForAnime(t *testing.T) {
	s := openTest(t)
	s.UpsertEpisode(EpisodeRow{EID: 1, AID: 10, EpisodeNumber: "1", UpdatedAt: time.Unix(1, 0)})
	s.UpsertEpisode(EpisodeRow{EID: 2, AID: 10, EpisodeNumber: "2", UpdatedAt: time.Unix(1, 0)})
	s.UpsertEpisode(EpisodeRow{EID: 3, AID: 20, EpisodeNumber: "1", UpdatedAt: time.Unix(1, 0)})

	eps, err := s.EpisodesForAnime(10)
	if err != nil {
		t.Fatalf("EpisodesForAnime: %v", err)
	}
	if len(eps) != 2 {
		t.Fatalf("len(eps) = %d, want 2", len(eps))
	}
}

func TestFileByED2k(t *testing.T) {
	s := openTest(t)
	f := FileRow{FID: 5, ED2k: "abc123", Size: 1024, UpdatedAt: time.Unix(1, 0)}
	if err := s.UpsertFile(f); err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}
	got, ok, err := s.FileByED2k("abc123", 1024)
	if err != nil {
		t.Fatalf("FileByED2k: %v", err)
	}
	if !ok || got.FID != 5 {
		t.Fatalf("FileByED2k = %+v, ok=%v", got, ok)
	}
}

func TestAnimeRelations(t *testing.T) {
	s := openTest(t)
	if err := s.UpsertAnimeRelation(1, 2, RelationSequel); err != nil {
		t.Fatalf("UpsertAnimeRelation: %v", err)
	}
	if err := s.UpsertAnimeRelation(1, 3, RelationSideStory); err != nil {
		t.Fatalf("UpsertAnimeRelation: %v", err)
	}
	rels, err := s.AnimeRelations(1)
	if err != nil {
		t.Fatalf("AnimeRelations: %v", err)
	}
	if rels[2] != RelationSequel || rels[3] != RelationSideStory {
		t.Fatalf("AnimeRelations(1) = %+v", rels)
	}
}
