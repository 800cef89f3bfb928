package search

import (
	"reflect"
	"testing"
)

func docs(texts ...string) []Document {
	out := make([]Document, len(texts))
	for i, t := range texts {
		out[i] = Document{ID: int64(i + 1), Text: t}
	}
	return out
}

// ---------- Options + defaultConfig ----------
func TestOptionsAndDefaults(t *testing.T) {
	def := defaultConfig()
	if def.snippetRunes != 200 || def.stopwords != nil || def.maxDocs != 0 {
		t.Fatalf("defaultConfig unexpected: %#v", def)
	}

	cfg := def
	WithStopwords([]string{"  The ", "", "An"})(&cfg)
	if _, ok := cfg.stopwords["the"]; !ok {
		t.Fatalf("WithStopwords failed (missing 'the'): %#v", cfg.stopwords)
	}
	if _, ok := cfg.stopwords["an"]; !ok {
		t.Fatalf("WithStopwords failed (missing 'an'): %#v", cfg.stopwords)
	}

	cfg2 := def
	WithStopwords(nil)(&cfg2)
	if cfg2.stopwords != nil {
		t.Fatalf("empty stopwords should remain nil")
	}

	WithMaxDocs(2)(&cfg)
	WithMaxDocs(0)(&cfg) // no-op
	if cfg.maxDocs != 2 {
		t.Fatalf("WithMaxDocs = %d; want 2", cfg.maxDocs)
	}

	WithSnippetRunes(10)(&cfg)
	WithSnippetRunes(-1)(&cfg) // no-op
	if cfg.snippetRunes != 10 {
		t.Fatalf("WithSnippetRunes = %d; want 10", cfg.snippetRunes)
	}
}

func TestNew_MaxDocsAndSnippets(t *testing.T) {
	idx := New(docs("alpha   beta\n gamma", "delta", "epsilon"), WithMaxDocs(2), WithSnippetRunes(7))
	ii := idx.(*index)
	if len(ii.docs) != 2 {
		t.Fatalf("maxDocs cap failed, got %d", len(ii.docs))
	}
	if ii.docs[0].snippet != "alpha b…" {
		t.Fatalf("snippet = %q", ii.docs[0].snippet)
	}
	if ii.docs[1].snippet != "delta" {
		t.Fatalf("short snippet should be untouched: %q", ii.docs[1].snippet)
	}
}

// ---------- TopK branches ----------
func TestTopK_Branches(t *testing.T) {
	empty := &index{cfg: defaultConfig()}
	if res := empty.TopK("x", 3); res != nil {
		t.Fatalf("empty index should return nil")
	}

	idx := New(docs("alpha beta", "alpha beta gamma"))
	if out := idx.TopK("   ", 2); out != nil {
		t.Fatalf("blank query should return nil")
	}

	idxStop := New(docs("alpha beta"), WithStopwords([]string{"alpha", "beta"}))
	if out := idxStop.TopK("alpha beta", 2); out != nil {
		t.Fatalf("query becoming empty should yield nil")
	}

	if out := New(docs("delta epsilon")).TopK("alpha", 5); out != nil {
		t.Fatalf("expected nil for no-overlap case, got %+v", out)
	}
}

func TestTopK_ScoringAndInputOrderTies(t *testing.T) {
	idx := New(docs(
		"alpha beta",       // 1: score 1
		"alpha beta gamma", // 2: score 2/3
		"beta alpha",       // 3: score 1, after 1 by input order
		"delta epsilon",    // 4: no overlap
	))
	got := idx.TopK("alpha beta", 0) // k<=0 defaults to 3
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %#v", got)
	}
	ids := []int64{got[0].ID, got[1].ID, got[2].ID}
	if !reflect.DeepEqual(ids, []int64{1, 3, 2}) {
		t.Fatalf("unexpected order: %#v", got)
	}
	if got[0].Score != 1.0 || got[2].Score <= 0.66 || got[2].Score >= 0.67 {
		t.Fatalf("unexpected scores: %#v", got)
	}
}

func TestRank_KeepsZeroScoreDocsInInputOrder(t *testing.T) {
	idx := New(docs("paracetamol tablets", "new vitamin serum", "paracetamol"))
	got := idx.Rank("paracetamol")
	var ids []int64
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	if !reflect.DeepEqual(ids, []int64{3, 1, 2}) {
		t.Fatalf("rank order = %v; want [3 1 2]", ids)
	}
	if got[2].Score != 0 {
		t.Fatalf("non-matching doc should score 0, got %v", got[2].Score)
	}
	if (&index{}).Rank("x") != nil {
		t.Fatalf("empty index should rank to nil")
	}
}

// ---------- Helpers ----------
func TestTokenize_FoldsCaseAndKeepsNumbers(t *testing.T) {
	got := Tokenize("Hello HELLO Straße 500mg 123 abc123")
	want := []string{"123", "500", "abc123", "hello", "mg", "strasse"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v; want %v", got, want)
	}
	if toks := tokenize("$$$ !!!", nil); toks != nil {
		t.Fatalf("tokenize should return nil when no words")
	}
	stop := map[string]struct{}{"hello": {}}
	if _, ok := tokenize("Hello world", stop)["hello"]; ok {
		t.Fatalf("stop word should be removed")
	}
}

func TestHelpers_OverlapAndWhitespace(t *testing.T) {
	a := map[string]struct{}{"a": {}, "b": {}, "c": {}}
	b := map[string]struct{}{"a": {}}
	if overlap(a, b) != 1 || overlap(nil, a) != 0 {
		t.Fatalf("overlap wrong")
	}
	if got := normalizeWhitespace("alpha\t beta\r\n  gamma"); got != "alpha beta gamma" {
		t.Fatalf("normalizeWhitespace failed: %q", got)
	}
}
