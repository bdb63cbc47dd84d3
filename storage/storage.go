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

// Package storage persists the last verified tree head observed for each
// log, so fork and rollback detection survives process restarts.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/ctaudit/types"
)

// LogState is the durable per-log audit state: the most recent tree head
// that passed signature and consistency checks.
type LogState struct {
	LogID     types.LogID          `json:"-"`
	STH       types.SignedTreeHead `json:"sth"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Store persists LogState records keyed by log ID. Implementations must be
// safe for concurrent use.
type Store interface {
	// GetState returns the stored state for a log, or (nil, nil) if the log
	// has never been recorded.
	GetState(ctx context.Context, id types.LogID) (*LogState, error)
	// SetState records state for state.LogID, replacing any previous record.
	SetState(ctx context.Context, state *LogState) error
}

// Encoding shared by the file and Redis backends.

func encodeState(state *LogState) ([]byte, error) {
	return json.Marshal(state)
}

func decodeState(id types.LogID, data []byte) (*LogState, error) {
	state := &LogState{LogID: id}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decoding state for log %s: %v", id, err)
	}
	return state, nil
}
