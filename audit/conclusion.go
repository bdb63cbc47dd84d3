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

// Package audit turns certificate chain observations into safety
// conclusions: it extracts SCTs, tracks per-log tree heads, verifies
// inclusion and consistency proofs, and aggregates the results.
package audit

import (
	"fmt"

	"github.com/google/ctaudit/types"
)

// Verdict classifies the outcome of an investigation, ordered by severity.
type Verdict int

// Verdict values, least severe first.
const (
	Safe Verdict = iota
	Inconclusive
	Unsafe
)

// String implements fmt.Stringer.
func (v Verdict) String() string {
	switch v {
	case Safe:
		return "safe"
	case Inconclusive:
		return "inconclusive"
	case Unsafe:
		return "unsafe"
	}
	return fmt.Sprintf("verdict(%d)", int(v))
}

// MarshalText implements encoding.TextMarshaler.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Reason is the fixed taxonomy of investigation outcomes. Every conclusion
// other than Safe carries exactly one.
type Reason int

// Reason values.
const (
	ReasonNone Reason = iota

	// Absence-of-evidence cases.
	ReasonNoSCTsPresent
	ReasonUnknownLog

	// Transport failures, safe to retry at a higher layer.
	ReasonNetworkError

	// Trust-establishment failures.
	ReasonUnsupportedAlgorithm
	ReasonSignatureInvalid

	// Log-integrity failures.
	ReasonLogFork
	ReasonTreeShrank
	ReasonConsistencyProofInvalid

	// Per-certificate proof failures.
	ReasonInclusionProofMissingOrInvalid
	ReasonInclusionProofInvalid
)

// String implements fmt.Stringer.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNoSCTsPresent:
		return "no_scts_present"
	case ReasonUnknownLog:
		return "unknown_log"
	case ReasonNetworkError:
		return "network_error"
	case ReasonUnsupportedAlgorithm:
		return "unsupported_algorithm"
	case ReasonSignatureInvalid:
		return "signature_invalid"
	case ReasonLogFork:
		return "log_fork"
	case ReasonTreeShrank:
		return "tree_shrank"
	case ReasonConsistencyProofInvalid:
		return "consistency_proof_invalid"
	case ReasonInclusionProofMissingOrInvalid:
		return "inclusion_proof_missing_or_invalid"
	case ReasonInclusionProofInvalid:
		return "inclusion_proof_invalid"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Conclusion is the outcome of investigating one lead, or the aggregate of
// several.
type Conclusion struct {
	Verdict Verdict
	Reason  Reason
	// LogID identifies the log the conclusion concerns. Zero for aggregates
	// and for leads whose log could not be identified.
	LogID types.LogID
	// Detail is free-form diagnostic context. It is never part of the
	// taxonomy and callers must not branch on it.
	Detail string
}

func safeConclusion(id types.LogID) Conclusion {
	return Conclusion{Verdict: Safe, LogID: id}
}

func unsafeConclusion(id types.LogID, reason Reason, detail string) Conclusion {
	return Conclusion{Verdict: Unsafe, Reason: reason, LogID: id, Detail: detail}
}

func inconclusive(id types.LogID, reason Reason, detail string) Conclusion {
	return Conclusion{Verdict: Inconclusive, Reason: reason, LogID: id, Detail: detail}
}

// Aggregate combines per-lead conclusions into one overall conclusion: the
// most severe verdict present wins, ties resolved in favor of the earliest
// lead. No leads at all is treated as absence of evidence.
func Aggregate(conclusions []Conclusion) Conclusion {
	if len(conclusions) == 0 {
		return inconclusive(types.LogID{}, ReasonNoSCTsPresent, "certificate carries no SCTs")
	}
	worst := conclusions[0]
	for _, c := range conclusions[1:] {
		if c.Verdict > worst.Verdict {
			worst = c
		}
	}
	return worst
}
