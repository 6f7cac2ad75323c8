package upload

import "github.com/shardbridge/core/model"

// Outcome is the result of one data-channel transfer attempt for a shard,
// expressed as explicit tagged transitions rather than an ad-hoc event
// emitter.
type Outcome int

// Transfer state-machine outcomes.
const (
	// Finished means the shard was pushed and acknowledged successfully.
	Finished Outcome = iota
	// RetrySame means the channel errored and should be retried against
	// the same farmer (transferRetries < MaxTransferRetries).
	RetrySame
	// RetryOther means transferRetries has hit MaxTransferRetries for
	// this farmer; it must be excluded and the shard renegotiated with a
	// different one.
	RetryOther
	// Fatal means every candidate farmer has been excluded for this
	// shard; the upload cannot complete.
	Fatal
)

// nextOutcome decides the next transition after a data-channel error,
// given how many same-farmer retries this shard has already used (spec
// §4.5 step 4c, failure table in §4.5).
func nextOutcome(retries int) Outcome {
	if retries < model.MaxTransferRetries {
		return RetrySame
	}
	return RetryOther
}
