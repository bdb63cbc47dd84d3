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
	"crypto/x509"
	"fmt"

	"github.com/google/ctaudit/types"
	"github.com/google/ctaudit/x509ext"
)

// Lead is one investigable claim: an SCT promising that a particular log
// entry is included in the issuing log.
type Lead struct {
	SCT *types.SignedCertificateTimestamp
	// Entry is the log entry the SCT covers, shared between the leads of one
	// chain.
	Entry *types.LogEntry
}

// CollectLeads scans the leaf certificate of a chain for embedded SCTs and
// emits one Lead per SCT found. SCTs for unregistered logs are kept; their
// investigation short-circuits rather than being silently dropped. A leaf
// without SCTs yields no leads.
//
// The chain is ordered leaf first. The issuer certificate is required to
// reconstruct the precertificate entry embedded SCTs were signed over.
func CollectLeads(chain []*x509.Certificate) ([]Lead, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("empty certificate chain")
	}
	leaf := chain[0]
	scts, err := x509ext.ExtractSCTs(leaf)
	if err != nil {
		return nil, fmt.Errorf("extracting SCTs: %v", err)
	}
	if len(scts) == 0 {
		return nil, nil
	}
	var issuer *x509.Certificate
	if len(chain) > 1 {
		issuer = chain[1]
	}
	entry, err := x509ext.BuildEntry(leaf, issuer)
	if err != nil {
		return nil, fmt.Errorf("reconstructing log entry: %v", err)
	}
	leads := make([]Lead, 0, len(scts))
	for _, sct := range scts {
		leads = append(leads, Lead{SCT: sct, Entry: entry})
	}
	return leads, nil
}
