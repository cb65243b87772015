package state

// Loop-mode codes as reported by the player firmware. The code packs the
// three orthogonal playback flags into one integer.
const (
	loopModeRepeatAll     = 0
	loopModeRepeatOne     = 1
	loopModeRepeatShuffle = 2
	loopModeShuffle       = 3
	loopModeNone          = 4
	loopModeShuffleOnce   = 5
)

// DecodeLoopMode maps a device-native loop-mode code to the orthogonal
// booleans (repeat, shuffle, loopOnce). Codes outside the known table
// decode to all-false rather than failing: an unknown firmware value must
// not break state reconciliation.
func DecodeLoopMode(code int) (repeat, shuffle, loopOnce bool) {
	switch code {
	case loopModeRepeatAll:
		return true, false, false
	case loopModeRepeatOne:
		return false, false, true
	case loopModeRepeatShuffle:
		return true, true, false
	case loopModeShuffle:
		return false, true, false
	case loopModeNone:
		return false, false, false
	case loopModeShuffleOnce:
		return false, true, true
	default:
		return false, false, false
	}
}

// EncodeLoopMode maps the boolean triple back to the device-native code.
// Combinations without a native code encode as loopModeNone.
func EncodeLoopMode(repeat, shuffle, loopOnce bool) int {
	switch {
	case repeat && !shuffle && !loopOnce:
		return loopModeRepeatAll
	case !repeat && !shuffle && loopOnce:
		return loopModeRepeatOne
	case repeat && shuffle && !loopOnce:
		return loopModeRepeatShuffle
	case !repeat && shuffle && !loopOnce:
		return loopModeShuffle
	case !repeat && shuffle && loopOnce:
		return loopModeShuffleOnce
	default:
		return loopModeNone
	}
}
