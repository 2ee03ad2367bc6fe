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

// Package cloud_test contains unit tests for the readiness poller: budget
// exhaustion, transient error tolerance, and early exit on ready.
package cloud_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliplens/video-analysis/internal/cloud"
)

// newTestPoller returns a poller with an instant sleep and a counter of
// how often it slept.
func newTestPoller(maxAttempts int) (*cloud.ReadinessPoller, *int) {
	p := cloud.NewReadinessPoller(maxAttempts, 10*time.Second)
	sleeps := 0
	p.Sleep = func(time.Duration) { sleeps++ }
	return p, &sleeps
}

// TestAwaitReadyStopsEarly verifies polling stops at the first ready
// status without exhausting the budget.
func TestAwaitReadyStopsEarly(t *testing.T) {
	p, sleeps := newTestPoller(30)
	statuses := []string{"processing", "processing", "ready"}
	calls := 0

	err := p.Await(context.Background(), "asset-1", func(_ context.Context, _ string) (string, error) {
		s := statuses[calls]
		calls++
		return s, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, *sleeps)
}

// TestAwaitTimeoutNamesHandleAndStatus verifies the attempt budget is
// spent exactly and the timeout error carries the handle and the last
// observed status.
func TestAwaitTimeoutNamesHandleAndStatus(t *testing.T) {
	p, sleeps := newTestPoller(3)
	calls := 0

	err := p.Await(context.Background(), "asset-42", func(_ context.Context, _ string) (string, error) {
		calls++
		return "indexing", nil
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, *sleeps)

	var timeout *cloud.TimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, "asset-42", timeout.Handle)
	assert.Equal(t, "indexing", timeout.LastStatus)
	assert.Equal(t, 3, timeout.Attempts)
	assert.Contains(t, err.Error(), "asset-42")
	assert.Contains(t, err.Error(), "indexing")
}

// TestAwaitToleratesLookupErrors verifies lookup failures spend attempts
// without aborting, and a later ready still succeeds.
func TestAwaitToleratesLookupErrors(t *testing.T) {
	p, _ := newTestPoller(5)
	calls := 0

	err := p.Await(context.Background(), "asset-7", func(_ context.Context, _ string) (string, error) {
		calls++
		if calls <= 2 {
			return "", errors.New("lookup failed")
		}
		return "ready", nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

// TestAwaitAllLookupErrorsTimesOut verifies a run of nothing but lookup
// errors still ends in a timeout, with the status left unknown.
func TestAwaitAllLookupErrorsTimesOut(t *testing.T) {
	p, _ := newTestPoller(2)

	err := p.Await(context.Background(), "asset-9", func(_ context.Context, _ string) (string, error) {
		return "", errors.New("lookup failed")
	})

	var timeout *cloud.TimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, "unknown", timeout.LastStatus)
}

// TestAwaitHonorsCancellation verifies a cancelled context aborts the
// wait before the next check.
func TestAwaitHonorsCancellation(t *testing.T) {
	p, _ := newTestPoller(30)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Await(ctx, "asset-1", func(_ context.Context, _ string) (string, error) {
		t.Fatal("check should not run after cancellation")
		return "", nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}
