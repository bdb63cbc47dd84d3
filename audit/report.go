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
	"encoding/json"
	"fmt"

	"github.com/google/ctaudit/types"
)

// Report is the outcome of auditing one certificate chain: the per-lead
// conclusions and their aggregate.
type Report struct {
	Conclusions []Conclusion `json:"conclusions"`
	Overall     Conclusion   `json:"overall"`
}

// String renders the report for log output.
func (r *Report) String() string {
	s := r.Overall.Verdict.String()
	if r.Overall.Reason != ReasonNone {
		s += fmt.Sprintf(" (%s)", r.Overall.Reason)
	}
	return fmt.Sprintf("%s from %d leads", s, len(r.Conclusions))
}

// MarshalJSON implements json.Marshaler, rendering the log ID in the base64
// form log lists use.
func (c Conclusion) MarshalJSON() ([]byte, error) {
	out := struct {
		Verdict Verdict `json:"verdict"`
		Reason  string  `json:"reason,omitempty"`
		LogID   string  `json:"log_id,omitempty"`
		Detail  string  `json:"detail,omitempty"`
	}{
		Verdict: c.Verdict,
		Detail:  c.Detail,
	}
	if c.Reason != ReasonNone {
		out.Reason = c.Reason.String()
	}
	if c.LogID != (types.LogID{}) {
		out.LogID = c.LogID.String()
	}
	return json.Marshal(out)
}
