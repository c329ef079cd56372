package connectivity

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestStartsOnline(t *testing.T) {
	m := NewMonitor(nil, time.Second, nil)
	if !m.IsConnected() {
		t.Error("monitor should start optimistic (online)")
	}
}

func TestSetFiresOnTransitionsOnly(t *testing.T) {
	m := NewMonitor(nil, time.Second, nil)

	var calls []bool
	m.OnChange(func(online bool) { calls = append(calls, online) })

	m.Set(true)  // no-op: already online
	m.Set(false) // transition
	m.Set(false) // no-op
	m.Set(true)  // transition

	if len(calls) != 2 || calls[0] != false || calls[1] != true {
		t.Errorf("listener calls = %v, want [false true]", calls)
	}
}

func TestRunProbesOnInterval(t *testing.T) {
	var probes atomic.Int32
	probe := func(ctx context.Context) bool {
		probes.Add(1)
		return probes.Load() > 2 // offline twice, then online
	}

	m := NewMonitor(probe, 10*time.Millisecond, nil)
	transitions := make(chan bool, 8)
	m.OnChange(func(online bool) { transitions <- online })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	// First transition: optimistic online -> probe says offline.
	select {
	case online := <-transitions:
		if online {
			t.Fatal("first transition should be to offline")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for offline transition")
	}

	// Later probes flip it back online.
	select {
	case online := <-transitions:
		if !online {
			t.Fatal("second transition should be back online")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for online transition")
	}

	if !m.IsConnected() {
		t.Error("monitor should report online after recovery")
	}
}

func TestDialProbeUnreachable(t *testing.T) {
	// Reserved TEST-NET address; nothing listens there.
	probe := DialProbe("192.0.2.1:9", 50*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if probe(ctx) {
		t.Error("probe against unreachable address reported online")
	}
}
