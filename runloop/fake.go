// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runloop

import "time"

// Fake is a test Executor. Each Pump call invokes Work (if non-nil, to let a
// test simulate a callback firing) and reports ranWork accordingly; it also
// sleeps a scaled-down fraction of maxWait so WaitUntil's deadline logic
// still exercises real elapsed time in tests, without requiring gettimeofday
// tricks.
type Fake struct {
	// Work runs on every Pump and returns whether it "did work" this tick.
	Work func() bool
	// Scale shrinks the simulated sleep so tests run fast; 0 means 1/1000.
	Scale float64
	Pumps int
}

func (f *Fake) Pump(maxWait time.Duration) bool {
	f.Pumps++
	scale := f.Scale
	if scale <= 0 {
		scale = 0.001
	}
	time.Sleep(time.Duration(float64(maxWait) * scale))
	if f.Work != nil {
		return f.Work()
	}
	return false
}
