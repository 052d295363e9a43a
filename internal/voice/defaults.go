package voice

// Reserved control symbols every phoneme table must resolve.
const (
	SymbolBOS       = "_"
	SymbolEOS       = "$"
	SymbolSeparator = " "
)

// Fallback ids used when a table is missing even the control symbols.
const (
	FallbackBOSID       int64 = 1
	FallbackEOSID       int64 = 2
	FallbackSeparatorID int64 = 3
	FallbackVowelID     int64 = 14 // "a"
)

// DefaultPhonemeIDs builds the built-in letter + punctuation table used
// when a voice config ships without a phoneme_id_map. Ids follow the
// piper convention of reserving the low range for control symbols.
func DefaultPhonemeIDs() map[string]int64 {
	return map[string]int64{
		"_": 1, "$": 2, " ": 3, ".": 4, ",": 5, "!": 6, "?": 7,
		"a": 14, "b": 15, "c": 16, "d": 17, "e": 18, "f": 19,
		"g": 20, "i": 21, "h": 22, "j": 23, "k": 24, "l": 25,
		"m": 26, "o": 27, "n": 28, "p": 29, "q": 30, "r": 31,
		"s": 32, "u": 33, "t": 34, "v": 35, "w": 36, "x": 37,
		"y": 38, "z": 39,
	}
}

// BOS returns the begin-of-sequence id, defaulting when the symbol is absent.
func (d *Descriptor) BOS() int64 {
	if id, ok := d.PhonemeIDs[SymbolBOS]; ok {
		return id
	}
	return FallbackBOSID
}

// EOS returns the end-of-sequence id, defaulting when the symbol is absent.
func (d *Descriptor) EOS() int64 {
	if id, ok := d.PhonemeIDs[SymbolEOS]; ok {
		return id
	}
	return FallbackEOSID
}

// Separator returns the word-separator id, defaulting when the symbol is absent.
func (d *Descriptor) Separator() int64 {
	if id, ok := d.PhonemeIDs[SymbolSeparator]; ok {
		return id
	}
	return FallbackSeparatorID
}
