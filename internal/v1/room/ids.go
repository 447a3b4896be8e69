package room

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// codeAlphabet is A-Z minus I and O, the 24-letter set excluding the two
// letters most easily confused with digits (§3, §6 grammar
// ^[A-HJ-NP-Z]{4}$).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"

// codeLength is the number of characters in a generated room code.
const codeLength = 4

// NewCode draws a random room code from codeAlphabet using crypto/rand.
func NewCode() (Code, error) {
	b := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("room: generate code: %w", err)
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return Code(b), nil
}

// NormalizeCode upper-cases and trims a client-supplied room code for
// lookup; codes are case-insensitive on the wire.
func NormalizeCode(s string) Code {
	return Code(strings.ToUpper(strings.TrimSpace(s)))
}

// NewPlayerID returns an opaque, time-ordered player identifier that
// remains stable across a player's reconnects.
func NewPlayerID() PlayerID {
	return PlayerID(fmt.Sprintf("p_%d_%s", time.Now().UnixNano(), uuid.NewString()[:8]))
}

// NewItemID returns an opaque item identifier.
func NewItemID() ItemID {
	return ItemID(fmt.Sprintf("i_%d_%s", time.Now().UnixNano(), uuid.NewString()[:8]))
}

// NewSubscriberID returns an opaque identifier for one live connection.
func NewSubscriberID() SubscriberID {
	return SubscriberID(uuid.NewString())
}
