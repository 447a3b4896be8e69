package emoji

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFallbackFor_Deterministic(t *testing.T) {
	assert.Equal(t, fallbackFor("pizza"), fallbackFor("pizza"))
}

func TestFallbackFor_WithinPool(t *testing.T) {
	got := fallbackFor("tacos")
	found := false
	for _, e := range fallbackPool {
		if e == got {
			found = true
			break
		}
	}
	assert.True(t, found)
}

func TestDayNumber_ChangesAcrossDayBoundary(t *testing.T) {
	day1 := dayNumber(time.Unix(0, 0))
	day2 := dayNumber(time.Unix(86400, 0))
	assert.Equal(t, day1+1, day2)
}

func TestNewProvider_Disabled(t *testing.T) {
	p := NewProvider("sk-test", 0)
	assert.Equal(t, "", p.EmojiFor("pizza"))
}

func TestNewProvider_NilReceiverSafe(t *testing.T) {
	var p *Provider
	assert.Equal(t, "", p.EmojiFor("pizza"))
}

func TestEmojiFor_BudgetExhaustedFallsBackWithoutCalling(t *testing.T) {
	p := NewProvider("sk-test", 1)

	p.used.Store(p.dailyBudget)
	p.budgetDay.Store(dayNumber(time.Now()))

	assert.Equal(t, "", p.EmojiFor("pizza"), "exhausted budget returns empty, letting the room fall back")
}

func TestTakeBudget_ResetsOnDayRollover(t *testing.T) {
	p := NewProvider("sk-test", 2)
	p.budgetDay.Store(dayNumber(time.Now()) - 1)
	p.used.Store(99)

	assert.True(t, p.takeBudget(), "rollover resets the counter before checking the limit")
}

func TestTakeBudget_ExhaustsAtLimit(t *testing.T) {
	p := NewProvider("sk-test", 2)
	assert.True(t, p.takeBudget())
	assert.True(t, p.takeBudget())
	assert.False(t, p.takeBudget())
}
