package voice

import (
	"reflect"
	"sort"
	"testing"
)

func TestRankExample(t *testing.T) {
	voices := []Descriptor{
		{Name: "Standard", Lang: "en-GB", Default: false, Local: false},
		{Name: "Natural US", Lang: "en-US", Default: true, Local: true},
	}

	for i := 0; i < 10; i++ {
		ranked := Rank(voices, DefaultPreferences())
		if ranked[0].Name != "Natural US" {
			t.Fatalf("Expected Natural US first, got %q", ranked[0].Name)
		}
	}
}

func TestScore(t *testing.T) {
	p := DefaultPreferences()

	tests := []struct {
		name  string
		voice Descriptor
		want  int
	}{
		{
			name:  "passes everything but second region",
			voice: Descriptor{Name: "Natural Clara", Lang: "en-CA", Default: true, Local: true},
			want:  0b10_000100,
		},
		{
			name:  "fails everything",
			voice: Descriptor{Name: "Hans", Lang: "de-DE"},
			want:  0b10_111111,
		},
		{
			name:  "underscore tag",
			voice: Descriptor{Name: "Alex", Lang: "en_US", Local: true},
			want:  0b10_011010,
		},
		{
			name:  "bare language has no region",
			voice: Descriptor{Name: "Generic", Lang: "en"},
			want:  0b10_011111,
		},
		{
			name:  "garbage tag fails tag criteria",
			voice: Descriptor{Name: "Natural", Lang: "not a tag!", Default: true},
			want:  0b10_101101,
		},
		{
			name:  "empty tag",
			voice: Descriptor{Name: "x", Lang: "", Local: true},
			want:  0b10_111110,
		},
		{
			name:  "lower case region",
			voice: Descriptor{Name: "x", Lang: "en-us"},
			want:  0b10_011011,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.voice, p); got != tt.want {
				t.Errorf("Expected score %b, got %b", tt.want, got)
			}
		})
	}
}

func TestScorePriority(t *testing.T) {
	p := DefaultPreferences()

	// Failing the language family alone must cost more than failing every
	// other criterion.
	foreignPerfect := Descriptor{Name: "Natural", Lang: "fr-CA", Default: true, Local: true}
	englishWorst := Descriptor{Name: "Plain", Lang: "en-AU"}

	if Score(foreignPerfect, p) <= Score(englishWorst, p) {
		t.Errorf("Expected foreign voice to rank below any English voice: %b vs %b",
			Score(foreignPerfect, p), Score(englishWorst, p))
	}
}

func TestRankDistinctScoresStable(t *testing.T) {
	voices := []Descriptor{
		{Name: "D", Lang: "de-DE"},
		{Name: "C", Lang: "en-AU"},
		{Name: "B", Lang: "en-US", Local: true},
		{Name: "A Natural", Lang: "en-CA", Default: true, Local: true},
	}
	want := []string{"A Natural", "B", "C", "D"}

	for i := 0; i < 50; i++ {
		ranked := Rank(voices, DefaultPreferences())
		if got := names(ranked); !reflect.DeepEqual(got, want) {
			t.Fatalf("Run %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestRankTiesKeepMultiset(t *testing.T) {
	voices := []Descriptor{
		{Name: "One", Lang: "en-AU"},
		{Name: "Two", Lang: "en-AU"},
		{Name: "Three", Lang: "en-AU"},
		{Name: "Best", Lang: "en-CA", Local: true},
	}

	for i := 0; i < 50; i++ {
		ranked := Rank(voices, DefaultPreferences())
		if len(ranked) != len(voices) {
			t.Fatalf("Expected %d voices, got %d", len(voices), len(ranked))
		}
		if ranked[0].Name != "Best" {
			t.Fatalf("Expected Best first, got %q", ranked[0].Name)
		}
		got := names(ranked[1:])
		sort.Strings(got)
		if !reflect.DeepEqual(got, []string{"One", "Three", "Two"}) {
			t.Fatalf("Tie multiset changed: %v", got)
		}
	}
}

func TestRankTieBreakerDecidesTies(t *testing.T) {
	voices := []Descriptor{
		{Name: "First", Lang: "en-AU"},
		{Name: "Second", Lang: "en-AU"},
	}
	keys := []float64{0.9, 0.1}
	i := 0
	jitter := func() float64 {
		k := keys[i%len(keys)]
		i++
		return k
	}

	ranked := rank(voices, DefaultPreferences(), jitter)
	if got := names(ranked); !reflect.DeepEqual(got, []string{"Second", "First"}) {
		t.Errorf("Expected tie-breaker order [Second First], got %v", got)
	}
}

func TestRankEmpty(t *testing.T) {
	if got := Rank(nil, DefaultPreferences()); len(got) != 0 {
		t.Errorf("Expected empty ranking, got %v", got)
	}
}

func TestRankDoesNotModifyInput(t *testing.T) {
	voices := []Descriptor{
		{Name: "Worse", Lang: "de-DE"},
		{Name: "Better", Lang: "en-US"},
	}
	Rank(voices, DefaultPreferences())
	if voices[0].Name != "Worse" {
		t.Error("Rank must not reorder its input")
	}
}

func TestQualityKeywords(t *testing.T) {
	p := DefaultPreferences()
	p.Quality = []string{"neural", "natural"}

	plain := Descriptor{Name: "Basic", Lang: "en-US"}
	neural := Descriptor{Name: "Jenny (Neural)", Lang: "en-US"}
	if Score(neural, p) >= Score(plain, p) {
		t.Errorf("Expected neural voice to score better")
	}
}

func names(ds []Descriptor) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Name
	}
	return out
}
