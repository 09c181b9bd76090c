// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runloop provides the cooperative-executor abstraction that the
// SBP-2 transport backend and the disk-arbitration coordinator both pump
// while waiting for an asynchronous callback. Treating it as an injected
// interface (rather than calling CFRunLoopRunInMode directly) keeps those
// packages's timeout loops testable without a real run loop.
package runloop

import "time"

// Executor pumps whatever cooperative event dispatcher backs it for up to
// maxWait, returning early as soon as any work runs (a callback fires, a
// timer dispatches). It never blocks longer than maxWait.
type Executor interface {
	Pump(maxWait time.Duration) (ranWork bool)
}

// WaitUntil pumps exec in ticks no larger than tick until done reports true
// or the overall deadline (now + timeout) elapses. It returns true iff done
// became true before the deadline. This is the shape used by both the SBP-2
// ORB wait and the disk-arbitration operation wait (spec: pump granularity
// <=100ms for DA, timeout_ms+1s budget for SBP-2 — callers pick tick/timeout
// accordingly).
func WaitUntil(exec Executor, done func() bool, timeout, tick time.Duration) bool {
	deadline := nowFunc().Add(timeout)
	for {
		if done() {
			return true
		}
		remaining := deadline.Sub(nowFunc())
		if remaining <= 0 {
			return done()
		}
		wait := tick
		if remaining < wait {
			wait = remaining
		}
		exec.Pump(wait)
	}
}

// nowFunc is overridable by tests that use a Fake executor paired with a
// simulated clock; production code always uses time.Now.
var nowFunc = time.Now
