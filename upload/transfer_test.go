package upload

import (
	"testing"

	"github.com/shardbridge/core/model"
)

func TestNextOutcomeRetriesSameFarmerBeforeReassigning(t *testing.T) {
	for retries := 0; retries < model.MaxTransferRetries; retries++ {
		if got := nextOutcome(retries); got != RetrySame {
			t.Fatalf("nextOutcome(%d) = %v, want RetrySame", retries, got)
		}
	}
	if got := nextOutcome(model.MaxTransferRetries); got != RetryOther {
		t.Fatalf("nextOutcome(%d) = %v, want RetryOther", model.MaxTransferRetries, got)
	}
}
