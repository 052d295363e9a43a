// Package phoneme turns input text into the integer token sequence a
// voice model consumes. Encoding is best effort and total: unknown
// symbols degrade through a similarity table down to a placeholder
// vowel, and a completely unusable table still yields a structurally
// valid sequence via the fallback generator.
package phoneme

import (
	"strings"
	"unicode"

	"github.com/glolivercoder/pipertts/internal/voice"
)

// fallbackMaxUnits caps how much input the length-based generator consumes.
const fallbackMaxUnits = 50

// Encode converts text into a token sequence framed by the descriptor's
// BOS and EOS ids, with a separator id after every word. Every id is
// clamped to [0, MaxID]. Encode never fails; empty text encodes to
// [BOS, EOS].
func Encode(text string, d *voice.Descriptor) []int64 {
	if d == nil || len(d.PhonemeIDs) == 0 {
		// No table at all: hand out the deterministic pseudo sequence.
		return FallbackTokens(text, d)
	}

	tokens := make([]int64, 0, len(text)+2)
	tokens = append(tokens, d.BOS())

	for _, word := range strings.Fields(strings.ToLower(text)) {
		tokens = appendWord(tokens, word, d)
		tokens = append(tokens, d.Separator())
	}

	tokens = append(tokens, d.EOS())
	return clamp(tokens, d.MaxID())
}

func appendWord(tokens []int64, word string, d *voice.Descriptor) []int64 {
	for _, r := range word {
		sym, known := letterPhonemes[r]
		if !known {
			if unicode.IsSpace(r) {
				tokens = append(tokens, d.Separator())
				continue
			}
			// Possibly an IPA symbol fed straight through.
			sym = string(r)
		}
		tokens = append(tokens, resolve(sym, d))
	}
	return tokens
}

// resolve looks a symbol up in the voice table, then in the similarity
// table, and finally falls back to the placeholder vowel "a".
func resolve(sym string, d *voice.Descriptor) int64 {
	if id, ok := d.ID(sym); ok {
		return id
	}
	if sub, ok := similarPhonemes[sym]; ok {
		if id, ok := d.ID(sub); ok {
			return id
		}
	}
	if id, ok := d.ID("a"); ok {
		return id
	}
	return voice.FallbackVowelID
}

// FallbackTokens produces a deterministic pseudo-phonetic sequence from
// input length alone: alternating vowel and consonant ids with a
// separator every four units, capped, and framed by BOS/EOS. It is the
// last resort when the phoneme table or linguistic front-end is unusable.
func FallbackTokens(text string, d *voice.Descriptor) []int64 {
	bos, eos, sep := voice.FallbackBOSID, voice.FallbackEOSID, voice.FallbackSeparatorID
	var maxID int64 = -1
	if d != nil && len(d.PhonemeIDs) > 0 {
		bos, eos, sep = d.BOS(), d.EOS(), d.Separator()
		maxID = d.MaxID()
	}

	units := len([]rune(text))
	if units > fallbackMaxUnits {
		units = fallbackMaxUnits
	}

	tokens := make([]int64, 0, units+units/4+2)
	tokens = append(tokens, bos)
	for i := 0; i < units; i++ {
		if i%2 == 0 {
			tokens = append(tokens, fallbackVowelIDs[i%len(fallbackVowelIDs)])
		} else {
			tokens = append(tokens, fallbackConsonantIDs[i%len(fallbackConsonantIDs)])
		}
		if i%4 == 3 {
			tokens = append(tokens, sep)
		}
	}
	tokens = append(tokens, eos)

	if maxID >= 0 {
		return clamp(tokens, maxID)
	}
	return tokens
}

// clamp forces every id into [0, maxID].
func clamp(tokens []int64, maxID int64) []int64 {
	for i, id := range tokens {
		if id < 0 {
			tokens[i] = 0
		} else if id > maxID {
			tokens[i] = maxID
		}
	}
	return tokens
}
