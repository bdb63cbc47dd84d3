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

package storage

import (
	"context"
	"sync"

	"github.com/google/ctaudit/types"
)

// MemoryStore keeps log state in process memory. Useful for tests and for
// one-shot audits where persistence is not wanted.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[types.LogID]LogState
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[types.LogID]LogState)}
}

// GetState implements Store.
func (m *MemoryStore) GetState(_ context.Context, id types.LogID) (*LogState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[id]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

// SetState implements Store.
func (m *MemoryStore) SetState(_ context.Context, state *LogState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.LogID] = *state
	return nil
}
