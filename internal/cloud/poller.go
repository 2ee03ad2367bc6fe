// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud provides components for interacting with external services.
// This file implements the bounded readiness poller used to wait for assets
// at the video understanding service to reach their "ready" state. Asset
// ingestion and indexing are asynchronous on the service side, so both the
// upload path and the analysis workflow block on this poller before using
// a handle.
package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// TimeoutError reports that a handle never reached the ready state within
// the attempt budget. It names the handle and the last status observed so
// operators can tell a stuck ingest from a slow one.
type TimeoutError struct {
	Handle     string
	LastStatus string
	Attempts   int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("asset %s did not become ready after %d attempts. Current status: %s", e.Handle, e.Attempts, e.LastStatus)
}

// StatusCheck looks up the current status of a handle. Implementations are
// the asset and indexed-asset lookups on the VideoIntelClient.
type StatusCheck func(ctx context.Context, handle string) (string, error)

// ReadinessPoller waits for a handle to report ready, checking at a fixed
// interval up to a bounded number of attempts. Transient lookup errors are
// tolerated: they are logged, counted, and spend an attempt, but do not
// abort the wait.
type ReadinessPoller struct {
	MaxAttempts int
	Interval    time.Duration

	// Sleep is swapped out in tests; it defaults to time.Sleep.
	Sleep func(time.Duration)

	lookupErrCounter metric.Int64Counter
}

// NewReadinessPoller builds a poller with the given budget.
func NewReadinessPoller(maxAttempts int, interval time.Duration) *ReadinessPoller {
	meter := otel.Meter("github.com/cliplens/video-analysis")
	counter, err := meter.Int64Counter("readiness.poll.lookup_errors")
	if err != nil {
		slog.Warn("failed to create readiness lookup error counter", "error", err)
	}
	return &ReadinessPoller{
		MaxAttempts:      maxAttempts,
		Interval:         interval,
		Sleep:            time.Sleep,
		lookupErrCounter: counter,
	}
}

// Await blocks until the handle reports ready, the attempt budget runs
// out, or the context is cancelled. Each attempt sleeps first, matching
// the service's behavior of never being ready immediately after creation.
func (p *ReadinessPoller) Await(ctx context.Context, handle string, check StatusCheck) error {
	lastStatus := "unknown"

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.Sleep(p.Interval)

		status, err := check(ctx, handle)
		if err != nil {
			// Transient lookup failures spend an attempt but do not abort:
			// the asset may still be progressing on the service side.
			slog.Warn("readiness check failed, continuing", "handle", handle, "attempt", attempt+1, "error", err)
			if p.lookupErrCounter != nil {
				p.lookupErrCounter.Add(ctx, 1)
			}
			continue
		}

		lastStatus = status
		if status == AssetStatusReady {
			return nil
		}
	}

	return &TimeoutError{Handle: handle, LastStatus: lastStatus, Attempts: p.MaxAttempts}
}
