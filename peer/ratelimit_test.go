package peer

import "testing"

func TestRateLimiterAllowsUpToBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < defaultBurst; i++ {
		if !rl.Allow("node-1") {
			t.Fatalf("expected Allow to succeed within the burst (call %d/%d)", i, defaultBurst)
		}
	}
	if rl.Allow("node-1") {
		t.Fatal("expected Allow to reject once the burst is exhausted")
	}
}

func TestRateLimiterTracksNodesIndependently(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < defaultBurst; i++ {
		rl.Allow("node-1")
	}
	if !rl.Allow("node-2") {
		t.Fatal("expected a different nodeID to have its own, unexhausted bucket")
	}
}
