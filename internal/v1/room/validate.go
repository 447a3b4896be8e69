package room

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// Bounds from §6.
const (
	nicknameMinLen = 1
	nicknameMaxLen = 20
	itemTextMaxLen = 100
	emojiMaxBytes  = 32

	timerDurationMin  = 10
	timerDurationMax  = 300
	rankingTimeoutMin = 0
	rankingTimeoutMax = 300
	itemsPerGameMin   = 2
	itemsPerGameMax   = 50
)

// NormalizeNickname trims surrounding whitespace; case-folding for
// uniqueness comparisons is applied separately by callers.
func NormalizeNickname(s string) string {
	return strings.TrimSpace(s)
}

// ValidateNickname checks length bounds after trimming (§4.2, §6).
func ValidateNickname(s string) error {
	n := NormalizeNickname(s)
	if len(n) < nicknameMinLen || len([]rune(n)) > nicknameMaxLen {
		return newErr(ErrInvalidNickname, "nickname must be 1-20 characters")
	}
	return nil
}

// FoldNickname is the case-insensitive comparison key for nickname
// uniqueness (§3 invariant 7).
func FoldNickname(s string) string {
	return strings.ToLower(NormalizeNickname(s))
}

// ValidateRoomCode checks the room code shape before lookup.
func ValidateRoomCode(s string) error {
	c := NormalizeCode(s)
	if len(c) != codeLength {
		return newErr(ErrInvalidRoomCode, "room code must be 4 characters")
	}
	for _, r := range string(c) {
		if !strings.ContainsRune(codeAlphabet, r) {
			return newErr(ErrInvalidRoomCode, "room code contains invalid characters")
		}
	}
	return nil
}

// NormalizeItemText trims and collapses internal whitespace, per §3
// invariant 8 ("trim+whitespace-collapse").
func NormalizeItemText(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// ValidateItemText checks length bounds on the normalized text (§4.2, §6).
func ValidateItemText(s string) error {
	n := NormalizeItemText(s)
	if len(n) < 1 || len([]rune(n)) > itemTextMaxLen {
		return newErr(ErrInvalidItemText, "item text must be 1-100 characters")
	}
	return nil
}

// FoldItemText is the case-insensitive comparison key for item-text
// uniqueness (§3 invariant 8).
func FoldItemText(s string) string {
	return strings.ToLower(NormalizeItemText(s))
}

// ValidateRanking checks a rank is within [1, itemsPerGame] (§4.2, §8).
func ValidateRanking(rank, itemsPerGame int) error {
	if rank < 1 || rank > itemsPerGame {
		return newErr(ErrInvalidRanking, "rank out of range")
	}
	return nil
}

// ValidateConfig checks the §4.2 bounds on a fully-populated Config.
func ValidateConfig(c Config) error {
	if c.TimerDurationS < timerDurationMin || c.TimerDurationS > timerDurationMax {
		return newErr(ErrInvalidConfig, "timer_duration_s out of range")
	}
	if c.RankingTimeoutS < rankingTimeoutMin || c.RankingTimeoutS > rankingTimeoutMax {
		return newErr(ErrInvalidConfig, "ranking_timeout_s out of range")
	}
	if c.ItemsPerGame < itemsPerGameMin || c.ItemsPerGame > itemsPerGameMax {
		return newErr(ErrInvalidConfig, "items_per_game out of range")
	}
	switch c.SubmissionMode {
	case SubmissionRoundRobin, SubmissionHostOnly:
	default:
		return newErr(ErrInvalidConfig, "submission_mode invalid")
	}
	return nil
}

// ApplyConfigPatch merges a patch onto a base config, validating the
// result (§4.5 update_config). Returns the merged config unchanged if
// patch is nil.
func ApplyConfigPatch(base Config, patch *ConfigPatch) (Config, error) {
	merged := base
	if patch != nil {
		if patch.SubmissionMode != nil {
			merged.SubmissionMode = *patch.SubmissionMode
		}
		if patch.TimerEnabled != nil {
			merged.TimerEnabled = *patch.TimerEnabled
		}
		if patch.TimerDurationS != nil {
			merged.TimerDurationS = *patch.TimerDurationS
		}
		if patch.RankingTimeoutS != nil {
			merged.RankingTimeoutS = *patch.RankingTimeoutS
		}
		if patch.ItemsPerGame != nil {
			merged.ItemsPerGame = *patch.ItemsPerGame
		}
	}
	if err := ValidateConfig(merged); err != nil {
		return base, err
	}
	return merged, nil
}

// ValidateEmoji enforces §6's emoji validation rule: exactly one grapheme
// cluster, no ASCII letters, and every codepoint drawn from a symbol/
// pictograph, regional-indicator, or variation-selector class, bounded to
// a modest byte length to reject pathological sequences.
func ValidateEmoji(s string) error {
	if len(s) == 0 || len(s) > emojiMaxBytes {
		return newErr(ErrInvalidEmoji, "emoji must be 1-32 bytes")
	}
	for _, r := range s {
		if unicode.IsLetter(r) && r <= unicode.MaxASCII {
			return newErr(ErrInvalidEmoji, "emoji must not contain ASCII letters")
		}
	}

	clusters := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		clusters++
		if clusters > 1 {
			return newErr(ErrInvalidEmoji, "emoji must be exactly one grapheme cluster")
		}
		for _, r := range gr.Runes() {
			if !isEmojiClassRune(r) {
				return newErr(ErrInvalidEmoji, "emoji contains a disallowed codepoint")
			}
		}
	}
	if clusters != 1 {
		return newErr(ErrInvalidEmoji, "emoji must be exactly one grapheme cluster")
	}
	return nil
}

// isEmojiClassRune reports whether r belongs to a symbol/pictograph,
// regional-indicator, or variation-selector class as required by the
// emoji validation rule.
func isEmojiClassRune(r rune) bool {
	switch {
	case unicode.Is(unicode.So, r): // symbol, other (most pictographs)
		return true
	case unicode.Is(unicode.Sk, r): // modifier symbol (skin-tone modifiers)
		return true
	case r == 0xFE0F || r == 0xFE0E: // variation selectors
		return true
	case r == 0x200D: // zero-width joiner, used in multi-part emoji
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicator symbols
		return true
	case r >= 0x1F000 && r <= 0x1FFFF: // supplemental pictograph planes
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x2190 && r <= 0x21FF: // arrows (commonly used as emoji)
		return true
	default:
		return false
	}
}
