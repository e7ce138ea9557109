package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseTitleXML(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<animetitles>
  <anime aid="42">
    <title xml:lang="ja" type="official">Foo Bar</title>
    <title xml:lang="en" type="main">Foo Bar EN</title>
  </anime>
</animetitles>`)
	entries, err := parseTitleXML(data)
	if err != nil {
		t.Fatalf("parseTitleXML: %v", err)
	}
	if len(entries) != 1 || entries[0].AID != 42 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if len(entries[0].Titles) != 2 || entries[0].Titles[0].Text != "Foo Bar" {
		t.Fatalf("unexpected titles: %+v", entries[0].Titles)
	}
}

func TestFindByTitleThreshold(t *testing.T) {
	c := New(t.TempDir(), nil)
	c.setTitles([]titleEntry{
		{AID: 1, Titles: []AnimeTitle{{Text: "Cowboy Bebop"}}},
		{AID: 2, Titles: []AnimeTitle{{Text: "Completely Unrelated Show"}}},
	})
	results := c.FindByTitle("Cowboy Bebop", 0.8)
	if len(results) != 1 || results[0].AID != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestWriteAtomicThenIsFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "file.xml")
	if err := writeAtomic(path, []byte("hello")); err != nil {
		t.Fatalf("writeAtomic: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("content = %q", got)
	}
	if !isFresh(path, time.Hour) {
		t.Fatalf("expected fresh file immediately after write")
	}
	if isFresh(path, 0) {
		t.Fatalf("expected stale with zero maxAge")
	}
}

func TestResolveEpisodeExactOverride(t *testing.T) {
	c := New(t.TempDir(), nil)
	c.setMappings(map[int]MappingEntry{
		42: {
			AID:           42,
			DefaultSeason: "1",
			EpisodeMaps: []EpisodeMap{
				{TVDBSeason: 2, AnidbEp: 5, MappedEp: "1"},
			},
		},
	})
	season, ep := c.ResolveEpisode(42, "5")
	if season != "2" || ep != "1" {
		t.Fatalf("ResolveEpisode = (%q, %q), want (2, 1)", season, ep)
	}
}

func TestResolveEpisodeOffsetRange(t *testing.T) {
	c := New(t.TempDir(), nil)
	c.setMappings(map[int]MappingEntry{
		42: {
			AID:           42,
			DefaultSeason: "1",
			EpisodeMaps: []EpisodeMap{
				{TVDBSeason: 2, Start: 10, End: 20, Offset: -9},
			},
		},
	})
	season, ep := c.ResolveEpisode(42, "15")
	if season != "2" || ep != "6" {
		t.Fatalf("ResolveEpisode = (%q, %q), want (2, 6)", season, ep)
	}
	// Outside the range falls through to the default season/offset.
	season, ep = c.ResolveEpisode(42, "5")
	if season != "1" || ep != "5" {
		t.Fatalf("ResolveEpisode fallback = (%q, %q), want (1, 5)", season, ep)
	}
}

func TestResolveEpisodeAbsoluteOrderedSkipsSeasonedRules(t *testing.T) {
	c := New(t.TempDir(), nil)
	c.setMappings(map[int]MappingEntry{
		42: {
			AID:             42,
			DefaultSeason:   "a",
			AbsoluteOrdered: true,
			EpisodeOffset:   0,
			EpisodeMaps: []EpisodeMap{
				{TVDBSeason: 1, Start: 1, End: 12, Offset: 0},
			},
		},
	})
	season, ep := c.ResolveEpisode(42, "13")
	if season != "a" || ep != "13" {
		t.Fatalf("ResolveEpisode = (%q, %q), want (a, 13)", season, ep)
	}
}

func TestResolveEpisodeSpecialsSeason(t *testing.T) {
	c := New(t.TempDir(), nil)
	c.setMappings(map[int]MappingEntry{
		42: {
			AID:           42,
			DefaultSeason: "1",
			EpisodeMaps: []EpisodeMap{
				{TVDBSeason: 0, AnidbEp: 1, MappedEp: "3"},
			},
		},
	})
	season, ep := c.ResolveEpisode(42, "S1")
	if season != "0" || ep != "3" {
		t.Fatalf("ResolveEpisode = (%q, %q), want (0, 3)", season, ep)
	}
}

func TestResolveEpisodeNoMapping(t *testing.T) {
	c := New(t.TempDir(), nil)
	season, ep := c.ResolveEpisode(999, "1")
	if season != "" || ep != "" {
		t.Fatalf("ResolveEpisode = (%q, %q), want empty", season, ep)
	}
}
