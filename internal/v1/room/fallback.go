package room

import "hash/fnv"

// fallbackEmojis is the fixed pool used when the Emoji Provider fails, is
// over budget, or returns something that fails ValidateEmoji (§4.5.5,
// §4.10). Selection is deterministic in the submitted text so the same
// text always degrades to the same emoji.
var fallbackEmojis = []string{
	"⭐", "🎲", "🔥", "✨", "🎯", "🧩", "📦", "🪄", "🎈", "🍀",
}

// fallbackEmojiFor deterministically selects a pool entry for text.
func fallbackEmojiFor(text string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	return fallbackEmojis[h.Sum32()%uint32(len(fallbackEmojis))]
}
