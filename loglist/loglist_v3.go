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

package loglist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/ctaudit/types"
)

// Structures matching the v3 log_list.json schema published by Chrome and
// Apple. Only the fields the auditor needs are mapped.
type jsonLogList struct {
	Operators []jsonOperator `json:"operators"`
}

type jsonOperator struct {
	Name string    `json:"name"`
	Logs []jsonLog `json:"logs"`
}

type jsonLog struct {
	Description string `json:"description"`
	LogID       []byte `json:"log_id"`
	Key         []byte `json:"key"`
	URL         string `json:"url"`
	MMD         int    `json:"mmd"`
	State       struct {
		Retired  *json.RawMessage `json:"retired"`
		Rejected *json.RawMessage `json:"rejected"`
	} `json:"state"`
}

// ParseLogListJSON builds a Registry from a v3 log_list.json document.
// Retired and rejected logs are kept: SCTs issued while a log was trusted
// still need auditing, and the log may still answer proof queries.
func ParseLogListJSON(data []byte) (*Registry, error) {
	var list jsonLogList
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&list); err != nil {
		return nil, fmt.Errorf("parsing log list: %v", err)
	}
	var logs []*Log
	for _, op := range list.Operators {
		for _, jl := range op.Logs {
			l, err := NewLog(jl.Description, jl.URL, jl.Key, time.Duration(jl.MMD)*time.Second)
			if err != nil {
				return nil, fmt.Errorf("operator %q: %v", op.Name, err)
			}
			// log_id must be consistent with the key it accompanies.
			if len(jl.LogID) > 0 {
				var want types.LogID
				copy(want[:], jl.LogID)
				if l.ID != want {
					return nil, fmt.Errorf("log %q: log_id %s does not match key hash %s",
						jl.Description, want, l.ID)
				}
			}
			logs = append(logs, l)
		}
	}
	if len(logs) == 0 {
		return nil, fmt.Errorf("log list contains no logs")
	}
	return NewRegistry(logs)
}

// ReadLogListFile loads a Registry from a v3 log_list.json file.
func ReadLogListFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	reg, err := ParseLogListJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return reg, nil
}
