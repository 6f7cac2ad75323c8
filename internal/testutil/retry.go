// Package testutil provides fakes and polling helpers shared by this
// module's package-level tests: a fake bridge HTTP server, a fake farmer
// data channel, and a condition-polling Retry helper.
//
// Grounded on acejam-Sia/modules/renter/contractor/update_test.go's use of
// build.Retry(tries, delay, fn) to wait out asynchronous state in
// integration-style tests without a fixed sleep.
package testutil

import (
	"time"
)

// Retry calls fn up to tries times, sleeping delay between attempts,
// returning nil as soon as fn succeeds or fn's last error otherwise.
func Retry(tries int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < tries; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i != tries-1 {
			time.Sleep(delay)
		}
	}
	return err
}
