package addressing

import (
	"strings"

	"golang.org/x/text/language"
)

// candidate is one step of a locale fallback chain. Zero subtags mean the
// subtag is absent from the candidate.
type candidate struct {
	base   language.Base
	script language.Script
	region language.Region
}

// MatchCandidates reports whether two locales share a fallback candidate,
// e.g. "en" and "en-US", or "sr-Latn-RS" and "sr". Only subtags written in
// the tags take part; nothing is inferred. Empty, undetermined or
// unparsable locales never match.
func MatchCandidates(first, second string) bool {
	a, ok := localeCandidates(first)
	if !ok {
		return false
	}
	b, ok := localeCandidates(second)
	if !ok {
		return false
	}
	for _, ca := range a {
		for _, cb := range b {
			if ca == cb {
				return true
			}
		}
	}
	return false
}

// localeCandidates returns the chain lang-script-region, lang-script, lang
// with absent subtags skipped.
func localeCandidates(locale string) ([]candidate, bool) {
	locale = strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")
	if locale == "" {
		return nil, false
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, false
	}
	base, script, region := tag.Raw()
	var und language.Base
	if base == und || base.String() == "und" {
		return nil, false
	}
	var noScript language.Script
	var noRegion language.Region

	var chain []candidate
	if script != noScript && region != noRegion {
		chain = append(chain, candidate{base: base, script: script, region: region})
	}
	if script != noScript {
		chain = append(chain, candidate{base: base, script: script})
	} else if region != noRegion {
		chain = append(chain, candidate{base: base, region: region})
	}
	chain = append(chain, candidate{base: base})
	return chain, true
}
