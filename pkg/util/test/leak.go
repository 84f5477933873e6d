// SPDX-License-Identifier: AGPL-3.0-only

package test

import (
	"testing"

	"go.uber.org/goleak"
)

// VerifyNoLeak checks at the end of the test that no goroutine outlived it.
func VerifyNoLeak(t testing.TB, opts ...goleak.Option) {
	// Run it as a cleanup function so that "last added, first called" ordering execution is guaranteed.
	t.Cleanup(func() {
		goleak.VerifyNone(t, opts...)
	})
}

// VerifyNoStorageLeak checks at the end of the test that every block
// allocated through p has been freed.
func VerifyNoStorageLeak(t testing.TB, p *TrackingPlatform) {
	t.Cleanup(func() {
		if live := p.Live(); live != 0 {
			t.Errorf("%d blocks allocated through the platform were never freed", live)
		}
	})
}
