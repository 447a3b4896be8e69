package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

func TestChecker_Ready_NoItemStore(t *testing.T) {
	c := NewChecker(nil)
	assert.NoError(t, c.Ready(context.Background()))
}

func TestChecker_Ready_HealthyItemStore(t *testing.T) {
	c := NewChecker(stubPinger{})
	assert.NoError(t, c.Ready(context.Background()))
}

func TestChecker_Ready_UnhealthyItemStore(t *testing.T) {
	c := NewChecker(stubPinger{err: errors.New("connection refused")})
	assert.Error(t, c.Ready(context.Background()))
}

func TestChecker_Ready_NilReceiverSafe(t *testing.T) {
	var c *Checker
	assert.NoError(t, c.Ready(context.Background()))
}
