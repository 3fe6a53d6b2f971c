// Package voice ranks the synthesis voices offered by a host platform.
package voice

import (
	"math/rand/v2"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Descriptor describes one host-provided synthesis voice. Fields are taken
// verbatim from the host.
type Descriptor struct {
	Name    string `yaml:"name"`
	Lang    string `yaml:"lang"`
	Default bool   `yaml:"default"`
	Local   bool   `yaml:"local"`
}

// Preferences select what makes a voice better than another.
type Preferences struct {
	Family  string    // Target language family, e.g. "en"
	Regions [2]string // First and second preferred regions, e.g. "CA", "US"
	Quality []string  // Name keywords advertising a higher quality tier
}

// DefaultPreferences returns the preferences used when none are configured.
func DefaultPreferences() Preferences {
	return Preferences{
		Family:  "en",
		Regions: [2]string{"CA", "US"},
		Quality: []string{"natural"},
	}
}

// criteria is the number of ranking criteria packed into a score.
const criteria = 6

// Score packs the ranking criteria into one integer, highest priority first.
// Each failed criterion sets a bit, so a lower score is a better voice and
// failing one criterion always costs more than failing every criterion
// below it. The accumulator starts at 2 so every score has the same width.
func Score(d Descriptor, p Preferences) int {
	tag, ok := parseTag(d.Lang)

	checks := [criteria]bool{
		ok && sameFamily(tag, p.Family),
		hasQuality(d.Name, p.Quality),
		ok && inRegion(tag, p.Regions[0]),
		ok && inRegion(tag, p.Regions[1]),
		d.Default,
		d.Local,
	}

	acc := 2
	for _, pass := range checks {
		acc <<= 1
		if !pass {
			acc |= 1
		}
	}
	return acc
}

// Rank orders voices best first. Voices with equal scores are shuffled by a
// uniform fractional tie-breaker, so their relative order may differ between
// calls while differently scored voices always keep their order. The input
// slice is not modified.
func Rank(voices []Descriptor, p Preferences) []Descriptor {
	return rank(voices, p, rand.Float64)
}

func rank(voices []Descriptor, p Preferences, jitter func() float64) []Descriptor {
	type keyed struct {
		d   Descriptor
		key float64
	}

	ks := make([]keyed, len(voices))
	for i, v := range voices {
		ks[i] = keyed{d: v, key: float64(Score(v, p)) + jitter()}
	}
	sort.SliceStable(ks, func(i, j int) bool { return ks[i].key < ks[j].key })

	out := make([]Descriptor, len(ks))
	for i, k := range ks {
		out[i] = k.d
	}
	return out
}

// parseTag accepts BCP 47 tags as well as the underscore spelling many
// synthesizers use (en_US).
func parseTag(s string) (language.Tag, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "_", "-"))
	if s == "" {
		return language.Und, false
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

func sameFamily(tag language.Tag, family string) bool {
	want, err := language.ParseBase(family)
	if err != nil {
		return false
	}
	base, conf := tag.Base()
	return conf != language.No && base == want
}

// inRegion only counts regions written in the tag; a region inferred from
// the language alone does not match.
func inRegion(tag language.Tag, region string) bool {
	if region == "" {
		return false
	}
	want, err := language.ParseRegion(region)
	if err != nil {
		return false
	}
	got, conf := tag.Region()
	return conf == language.Exact && got == want
}

func hasQuality(name string, keywords []string) bool {
	name = strings.ToLower(name)
	for _, k := range keywords {
		if k != "" && strings.Contains(name, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
