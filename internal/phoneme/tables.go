package phoneme

// letterPhonemes maps lowercase letters and basic punctuation to the
// phoneme symbol looked up in the voice table. Letters without a direct
// phoneme reuse their nearest neighbour (c and q sound as k, x as ks,
// y as i).
var letterPhonemes = map[rune]string{
	'a': "a", 'e': "e", 'i': "i", 'o': "o", 'u': "u",
	'b': "b", 'c': "k", 'd': "d", 'f': "f", 'g': "g",
	'h': "h", 'j': "j", 'k': "k", 'l': "l", 'm': "m",
	'n': "n", 'p': "p", 'q': "k", 'r': "r", 's': "s",
	't': "t", 'v': "v", 'w': "w", 'x': "ks", 'y': "i",
	'z': "z",
	'.': ".", ',': ",", '!': "!", '?': "?",
}

// similarPhonemes maps IPA symbols absent from most voice tables to a
// plain substitute that usually is present: rounded and reduced vowels
// collapse onto the five cardinal vowels, rhotics onto r, and a handful
// of fricatives onto their closest plosive or sibilant.
var similarPhonemes = map[string]string{
	"ɑ": "a", "ɒ": "a", "ʌ": "a", "ə": "a",
	"ɛ": "e", "ɜ": "e",
	"ɪ": "i", "ɨ": "i",
	"ɔ": "o", "ɵ": "o",
	"ʊ": "u", "ʉ": "u",
	"ɹ": "r", "ɾ": "r",
	"ʔ": "t", "θ": "t",
	"ð": "d", "ʒ": "z", "ʃ": "s", "ç": "h",
}

// Id pools for the length-based fallback generator. These are the ids
// the default voice table assigns to its vowels and consonants, so the
// generated sequence stays inside any table derived from it.
var (
	fallbackVowelIDs     = []int64{14, 18, 21, 27, 33}
	fallbackConsonantIDs = []int64{15, 17, 19, 20, 23, 24, 25, 26, 28, 29, 30, 31, 32, 34, 35, 36, 37, 38}
)
