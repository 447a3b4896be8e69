package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
)

func TestItemStoreOperations(t *testing.T) {
	ItemStoreOperations.WithLabelValues("sample", "ok").Inc()
	val := testutil.ToFloat64(ItemStoreOperations.WithLabelValues("sample", "ok"))
	if val < 1 {
		t.Errorf("expected ItemStoreOperations to be at least 1, got %v", val)
	}
}

func TestItemStoreOperationDuration(t *testing.T) {
	ItemStoreOperationDuration.WithLabelValues("sample").Observe(0.05)
}

func TestRoomPlayersGauge(t *testing.T) {
	RoomPlayers.WithLabelValues("ABCD").Set(3)
	val := testutil.ToFloat64(RoomPlayers.WithLabelValues("ABCD"))
	if val != 3 {
		t.Errorf("expected RoomPlayers[ABCD] == 3, got %v", val)
	}
}

func TestConnectionCounters(t *testing.T) {
	before := testutil.ToFloat64(ActiveWebSocketConnections)
	IncConnection()
	IncConnection()
	DecConnection()
	after := testutil.ToFloat64(ActiveWebSocketConnections)
	if after != before+1 {
		t.Errorf("expected ActiveWebSocketConnections to net +1, before=%v after=%v", before, after)
	}
}

func TestSetCircuitBreakerState(t *testing.T) {
	SetCircuitBreakerState("test-service", gobreaker.StateOpen)
	state := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("test-service"))
	if state != float64(gobreaker.StateOpen) {
		t.Errorf("expected state gauge to reflect StateOpen, got %v", state)
	}
	failures := testutil.ToFloat64(CircuitBreakerFailures.WithLabelValues("test-service"))
	if failures < 1 {
		t.Errorf("expected a failure to be recorded on StateOpen, got %v", failures)
	}
}

func TestObserveItemStoreOp(t *testing.T) {
	ObserveItemStoreOp("add", 10*time.Millisecond, true)
	ObserveItemStoreOp("add", 10*time.Millisecond, false)
	ok := testutil.ToFloat64(ItemStoreOperations.WithLabelValues("add", "ok"))
	errCount := testutil.ToFloat64(ItemStoreOperations.WithLabelValues("add", "error"))
	if ok < 1 || errCount < 1 {
		t.Errorf("expected both ok and error outcomes recorded, ok=%v error=%v", ok, errCount)
	}
}

func TestObserveEmojiProviderCall(t *testing.T) {
	before := testutil.ToFloat64(EmojiProviderRequests.WithLabelValues("ok"))
	ObserveEmojiProviderCall(5*time.Millisecond, true)
	after := testutil.ToFloat64(EmojiProviderRequests.WithLabelValues("ok"))
	if after != before+1 {
		t.Errorf("expected EmojiProviderRequests[ok] to increment by 1, before=%v after=%v", before, after)
	}
}
