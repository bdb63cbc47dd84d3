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
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/ctaudit/types"
)

// FileStore keeps one JSON state file per log under a directory. Writes go
// through a temp file and rename so a crash never leaves a torn record.
type FileStore struct {
	dir string
}

// NewFileStore opens (creating if needed) a state directory.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %v", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(id types.LogID) string {
	return filepath.Join(f.dir, hex.EncodeToString(id[:])+".json")
}

// GetState implements Store.
func (f *FileStore) GetState(_ context.Context, id types.LogID) (*LogState, error) {
	data, err := os.ReadFile(f.path(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeState(id, data)
}

// SetState implements Store.
func (f *FileStore) SetState(_ context.Context, state *LogState) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, "state-*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, f.path(state.LogID)); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}
