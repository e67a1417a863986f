package search

import (
	"testing"
)

func catalog() []Document {
	return []Document{
		{ID: 1, Text: "Trail Tent 2P  Two-person ultralight tent"},
		{ID: 2, Text: "Camp Stove\tCompact gas stove"},
		{ID: 3, Text: "Rain Shell Waterproof breathable jacket"},
		{ID: 4, Text: "   "},
		{ID: 5, Text: "Tents and tarps for the trail"},
	}
}

func TestOptionsAndDefaults(t *testing.T) {
	def := defaultConfig()
	if _, ok := def.stopwords["the"]; !ok || def.minPrefix != 3 || def.matchAll {
		t.Fatalf("defaultConfig unexpected: %#v", def)
	}
	cfg := def
	WithStopwords([]string{"  Camp ", ""})(&cfg)
	if _, ok := cfg.stopwords["camp"]; !ok || len(cfg.stopwords) != 1 {
		t.Fatalf("WithStopwords failed: %#v", cfg.stopwords)
	}
	WithMinPrefix(0)(&cfg)
	WithMatchAll()(&cfg)
	if cfg.minPrefix != 0 || !cfg.matchAll {
		t.Fatalf("options not applied: %#v", cfg)
	}
}

func TestSearch_MatchesAndOrdering(t *testing.T) {
	idx := NewIndex(catalog())
	if len(idx.docs) != 4 {
		t.Fatalf("blank document should be skipped, got %d docs", len(idx.docs))
	}

	res := idx.Search("tent")
	if len(res) != 2 {
		t.Fatalf("expected tent to match doc 1 exactly and doc 5 by prefix, got %+v", res)
	}
	for _, r := range res {
		if r.Score <= 0 || r.Score > 1 {
			t.Fatalf("score out of range: %+v", r)
		}
	}

	if got := idx.Search("STOVE"); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("case-insensitive search failed: %+v", got)
	}
	if got := idx.Search("  "); got != nil {
		t.Fatalf("blank query should match nothing: %+v", got)
	}
	if got := idx.Search("the and"); got != nil {
		t.Fatalf("stop-word query should match nothing: %+v", got)
	}
	if got := idx.Search("ca"); len(got) != 0 {
		t.Fatalf("short tokens must not prefix-match: %+v", got)
	}
}

func TestSearch_MatchAllAndNoPrefix(t *testing.T) {
	idx := NewIndex(catalog(), WithMatchAll())
	got := idx.Search("trail tent")
	if len(got) != 2 {
		t.Fatalf("match-all expected docs 1 and 5, got %+v", got)
	}
	if got := idx.Search("trail stove"); len(got) != 0 {
		t.Fatalf("no doc has both tokens: %+v", got)
	}

	exact := NewIndex(catalog(), WithMinPrefix(0))
	if got := exact.Search("tent"); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("without prefixes only doc 1 matches: %+v", got)
	}
}

func TestSearch_StableTies(t *testing.T) {
	docs := []Document{{ID: 10, Text: "red lamp"}, {ID: 11, Text: "blue lamp"}, {ID: 12, Text: "green lamp"}}
	idx := NewIndex(docs)
	for i := 0; i < 5; i++ {
		got := idx.Search("lamp")
		if len(got) != 3 || got[0].ID != 10 || got[1].ID != 11 || got[2].ID != 12 {
			t.Fatalf("tie order not stable: %+v", got)
		}
	}
	m := idx.Matches("lamp")
	if len(m) != 3 {
		t.Fatalf("Matches = %v", m)
	}
	if len(NewIndex(nil).Matches("lamp")) != 0 {
		t.Fatalf("empty index should match nothing")
	}
}
