// Copyright 2025 Google LLC. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/ctaudit/ctcrypto"
	"github.com/google/ctaudit/merkle"
	"github.com/google/ctaudit/merkle/rfc6962"
	"github.com/google/ctaudit/monitoring"
	"github.com/google/ctaudit/storage"
	"github.com/google/ctaudit/types"
	"github.com/google/ctaudit/util/clock"
	"k8s.io/klog/v2"
)

// Log-integrity failures raised by the tracker. Each one means the log has
// presented evidence incompatible with append-only operation.
var (
	// ErrLogFork means the log presented two different roots for the same
	// tree size.
	ErrLogFork = errors.New("log presented conflicting tree heads")
	// ErrTreeShrank means the log's claimed tree size decreased.
	ErrTreeShrank = errors.New("log tree size decreased")
	// ErrConsistencyProofInvalid means the log could not prove the new tree
	// extends the previously verified one.
	ErrConsistencyProofInvalid = errors.New("consistency proof does not link tree heads")
)

// ConsistencyFetcher obtains a consistency proof between two tree sizes of
// one log, typically via client.LogClient.GetSTHConsistency.
type ConsistencyFetcher func(ctx context.Context, first, second uint64) ([][]byte, error)

// trackedLog holds one log's verified state together with the mutex that
// serializes updates to it. The entry itself is resolved under Tracker.mu;
// everything else is guarded by the entry's own lock.
type trackedLog struct {
	mu     sync.Mutex
	loaded bool
	state  *storage.LogState
}

// Tracker records the last verified tree head per log and enforces that
// every newly observed head extends it. It is the defense against a log
// presenting different histories to different observers or rewinding its
// tree.
//
// Updates for the same log are serialized; different logs proceed
// concurrently.
type Tracker struct {
	verifier    *ctcrypto.Verifier
	logVerifier merkle.LogVerifier
	store       storage.Store

	// TimeSource stamps committed states. Replaceable in tests.
	TimeSource clock.TimeSource

	mu   sync.Mutex
	logs map[types.LogID]*trackedLog

	observations monitoring.Counter
	treeSize     monitoring.Gauge
}

// NewTracker creates a Tracker. store may be nil for purely in-memory
// tracking; store read/write failures are logged and never fail an
// observation, but the in-memory consistency check always runs.
func NewTracker(verifier *ctcrypto.Verifier, store storage.Store, mf monitoring.MetricFactory) *Tracker {
	if mf == nil {
		mf = monitoring.InertMetricFactory{}
	}
	return &Tracker{
		verifier:    verifier,
		logVerifier: merkle.NewLogVerifier(rfc6962.DefaultHasher),
		store:       store,
		TimeSource:  clock.System,
		logs:        make(map[types.LogID]*trackedLog),
		observations: mf.NewCounter("tracker_observations",
			"Number of tree head observations by outcome", "outcome"),
		treeSize: mf.NewGauge("tracker_tree_size",
			"Last verified tree size per log", "log_id"),
	}
}

// entryFor returns the tracked entry for one log, creating it on first use.
// Only the map lookup happens under the tracker-wide lock, so observations
// for different logs never contend with each other.
func (t *Tracker) entryFor(id types.LogID) *trackedLog {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.logs[id]
	if !ok {
		e = new(trackedLog)
		t.logs[id] = e
	}
	return e
}

// loadState fills e from the store on first access. Must be called with
// e.mu held.
func (t *Tracker) loadState(ctx context.Context, id types.LogID, e *trackedLog) *storage.LogState {
	if e.loaded {
		return e.state
	}
	if t.store != nil {
		state, err := t.store.GetState(ctx, id)
		if err != nil {
			klog.Warningf("log %s: reading stored state: %v", id, err)
		} else {
			e.state = state
		}
	}
	e.loaded = true
	return e.state
}

// commit replaces the tracked state in e. Must be called with e.mu held.
// Store failures are non-fatal: the in-memory state is already committed
// and protects the rest of the process lifetime.
func (t *Tracker) commit(ctx context.Context, id types.LogID, e *trackedLog, sth *types.SignedTreeHead) {
	state := &storage.LogState{
		LogID:     id,
		STH:       *sth,
		UpdatedAt: t.TimeSource.Now(),
	}
	e.state = state
	e.loaded = true
	t.treeSize.Set(float64(sth.TreeSize), id.String())
	if t.store != nil {
		if err := t.store.SetState(ctx, state); err != nil {
			klog.Warningf("log %s: persisting state at size %d: %v", id, sth.TreeSize, err)
		}
	}
}

// LastVerified returns a copy of the tracked tree head for id, or nil if
// the log has not been observed.
func (t *Tracker) LastVerified(ctx context.Context, id types.LogID) *types.SignedTreeHead {
	e := t.entryFor(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	state := t.loadState(ctx, id, e)
	if state == nil {
		return nil
	}
	sth := state.STH
	return &sth
}

// Observe submits a candidate tree head for id. The candidate's signature
// is always verified; against a previously tracked head the candidate must
// be byte-identical (same size), prove consistency via fetch (growth), or
// be rejected (shrinkage). On success the candidate atomically replaces the
// tracked head. Resubmitting the tracked head is a no-op success.
func (t *Tracker) Observe(ctx context.Context, id types.LogID, candidate *types.SignedTreeHead, fetch ConsistencyFetcher) error {
	e := t.entryFor(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := t.verifier.VerifySTH(id, candidate); err != nil {
		t.observations.Inc("signature_invalid")
		return err
	}

	prev := t.loadState(ctx, id, e)
	if prev == nil {
		// First observation: the signature is the only possible check.
		t.commit(ctx, id, e, candidate)
		t.observations.Inc("first")
		klog.V(1).Infof("log %s: tracking from size %d", id, candidate.TreeSize)
		return nil
	}

	switch {
	case candidate.TreeSize == prev.STH.TreeSize:
		if candidate.SHA256RootHash != prev.STH.SHA256RootHash {
			t.observations.Inc("fork")
			return fmt.Errorf("%w: size %d, root %x then %x", ErrLogFork,
				candidate.TreeSize, prev.STH.SHA256RootHash, candidate.SHA256RootHash)
		}
		// Same head, possibly reissued with a newer timestamp.
		if candidate.Timestamp > prev.STH.Timestamp {
			t.commit(ctx, id, e, candidate)
		}
		t.observations.Inc("refreshed")
		return nil

	case candidate.TreeSize < prev.STH.TreeSize:
		t.observations.Inc("shrank")
		return fmt.Errorf("%w: size %d after %d", ErrTreeShrank,
			candidate.TreeSize, prev.STH.TreeSize)
	}

	if fetch == nil {
		t.observations.Inc("fetch_error")
		return fmt.Errorf("no consistency fetcher for log %s growth %d -> %d",
			id, prev.STH.TreeSize, candidate.TreeSize)
	}
	proof, err := fetch(ctx, prev.STH.TreeSize, candidate.TreeSize)
	if err != nil {
		t.observations.Inc("fetch_error")
		return err
	}
	if err := t.logVerifier.VerifyConsistency(prev.STH.TreeSize, candidate.TreeSize,
		prev.STH.SHA256RootHash[:], candidate.SHA256RootHash[:], proof); err != nil {
		t.observations.Inc("consistency_invalid")
		return fmt.Errorf("%w: %d -> %d: %v", ErrConsistencyProofInvalid,
			prev.STH.TreeSize, candidate.TreeSize, err)
	}

	t.commit(ctx, id, e, candidate)
	t.observations.Inc("extended")
	klog.V(1).Infof("log %s: verified growth %d -> %d", id, prev.STH.TreeSize, candidate.TreeSize)
	return nil
}
