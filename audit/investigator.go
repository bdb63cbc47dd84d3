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
	"crypto/x509"
	"errors"

	"github.com/google/ctaudit/client"
	"github.com/google/ctaudit/ctcrypto"
	"github.com/google/ctaudit/loglist"
	"github.com/google/ctaudit/merkle"
	"github.com/google/ctaudit/merkle/rfc6962"
	"github.com/google/ctaudit/monitoring"
	"github.com/google/ctaudit/types"
	"github.com/google/ctaudit/util/clock"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Investigator resolves leads into conclusions: it fetches the issuing
// log's current tree head, feeds it through the Tracker, and demands an
// inclusion proof for the lead's entry.
type Investigator struct {
	registry    *loglist.Registry
	verifier    *ctcrypto.Verifier
	tracker     *Tracker
	transport   client.Transport
	hasher      merkle.LogHasher
	logVerifier merkle.LogVerifier

	timeSource     clock.TimeSource
	investigations monitoring.Counter
	latency        monitoring.Histogram
}

// NewInvestigator creates an Investigator using the given registry for log
// lookup and key material, tracker for tree head progression, and transport
// for log queries.
func NewInvestigator(registry *loglist.Registry, tracker *Tracker, transport client.Transport, mf monitoring.MetricFactory) *Investigator {
	if mf == nil {
		mf = monitoring.InertMetricFactory{}
	}
	return &Investigator{
		registry:    registry,
		verifier:    ctcrypto.NewVerifier(registry),
		tracker:     tracker,
		transport:   transport,
		hasher:      rfc6962.DefaultHasher,
		logVerifier: merkle.NewLogVerifier(rfc6962.DefaultHasher),
		timeSource:  clock.System,
		investigations: mf.NewCounter("investigations",
			"Number of lead investigations by verdict and reason", "verdict", "reason"),
		latency: mf.NewHistogram("investigation_seconds",
			"Time spent investigating one lead"),
	}
}

// Investigate resolves one lead to a conclusion. All verification and
// transport failures are absorbed into the conclusion's taxonomy; the
// method never fails outright.
func (inv *Investigator) Investigate(ctx context.Context, lead Lead) Conclusion {
	start := inv.timeSource.Now()
	c := inv.investigate(ctx, lead)
	inv.latency.Observe(clock.SecondsSince(inv.timeSource, start))
	inv.investigations.Inc(c.Verdict.String(), c.Reason.String())
	if c.Verdict == Unsafe {
		klog.Warningf("log %s: %s (%s)", c.LogID, c.Reason, c.Detail)
	}
	return c
}

func (inv *Investigator) investigate(ctx context.Context, lead Lead) Conclusion {
	id := lead.SCT.LogID
	log := inv.registry.Lookup(id)
	if log == nil {
		return inconclusive(id, ReasonUnknownLog, "SCT issued by a log not in the registry")
	}

	// The SCT must verify before its promise is worth investigating.
	if err := inv.verifier.VerifySCT(lead.SCT, lead.Entry); err != nil {
		if errors.Is(err, ctcrypto.ErrUnsupportedAlgorithm) {
			return inconclusive(id, ReasonUnsupportedAlgorithm, err.Error())
		}
		return unsafeConclusion(id, ReasonSignatureInvalid, err.Error())
	}

	lc := client.New(log.URL, inv.transport)
	sth, err := lc.GetSTH(ctx)
	if err != nil {
		if transportFailure(err) {
			return inconclusive(id, ReasonNetworkError, err.Error())
		}
		// The log answered with bytes that do not form a tree head.
		return unsafeConclusion(id, ReasonSignatureInvalid, "malformed tree head: "+err.Error())
	}

	if err := inv.tracker.Observe(ctx, id, sth, lc.GetSTHConsistency); err != nil {
		return classifyObserveErr(id, err)
	}

	if sth.TreeSize == 0 {
		return unsafeConclusion(id, ReasonInclusionProofMissingOrInvalid,
			"log issued an SCT but reports an empty tree")
	}

	leafData, err := types.MerkleTreeLeaf(lead.SCT, lead.Entry)
	if err != nil {
		return unsafeConclusion(id, ReasonInclusionProofMissingOrInvalid, err.Error())
	}
	leafHash := inv.hasher.HashLeaf(leafData)

	index, proof, err := lc.GetProofByHash(ctx, leafHash, sth.TreeSize)
	if err != nil {
		switch {
		case errors.Is(err, client.ErrProofNotFound):
			return unsafeConclusion(id, ReasonInclusionProofMissingOrInvalid, err.Error())
		case transportFailure(err):
			return inconclusive(id, ReasonNetworkError, err.Error())
		}
		return unsafeConclusion(id, ReasonInclusionProofMissingOrInvalid, err.Error())
	}

	if err := inv.logVerifier.VerifyInclusion(index, sth.TreeSize, leafHash, proof, sth.SHA256RootHash[:]); err != nil {
		return unsafeConclusion(id, ReasonInclusionProofInvalid, err.Error())
	}
	return safeConclusion(id)
}

// classifyObserveErr maps Tracker failures onto the conclusion taxonomy.
func classifyObserveErr(id types.LogID, err error) Conclusion {
	switch {
	case errors.Is(err, ErrLogFork):
		return unsafeConclusion(id, ReasonLogFork, err.Error())
	case errors.Is(err, ErrTreeShrank):
		return unsafeConclusion(id, ReasonTreeShrank, err.Error())
	case errors.Is(err, ErrConsistencyProofInvalid):
		return unsafeConclusion(id, ReasonConsistencyProofInvalid, err.Error())
	case errors.Is(err, ctcrypto.ErrUnsupportedAlgorithm):
		return inconclusive(id, ReasonUnsupportedAlgorithm, err.Error())
	case errors.Is(err, ctcrypto.ErrUnknownLog):
		return inconclusive(id, ReasonUnknownLog, err.Error())
	case errors.Is(err, ctcrypto.ErrSignatureInvalid):
		return unsafeConclusion(id, ReasonSignatureInvalid, err.Error())
	case transportFailure(err):
		return inconclusive(id, ReasonNetworkError, err.Error())
	}
	return unsafeConclusion(id, ReasonConsistencyProofInvalid, err.Error())
}

// transportFailure reports whether err is a connectivity or non-2xx status
// failure rather than log misbehavior.
func transportFailure(err error) bool {
	var se *client.StatusError
	return client.IsNetworkError(err) || errors.As(err, &se) || errors.Is(err, context.DeadlineExceeded)
}

// InvestigateChain collects the leads of a certificate chain, investigates
// them concurrently and aggregates the results. It returns an error only
// for chains whose SCT extension cannot be parsed; log misbehavior is
// reported through the conclusions.
func (inv *Investigator) InvestigateChain(ctx context.Context, chain []*x509.Certificate) (*Report, error) {
	leads, err := CollectLeads(chain)
	if err != nil {
		return nil, err
	}
	return inv.InvestigateLeads(ctx, leads), nil
}

// InvestigateLeads fans the leads out to concurrent investigations and
// joins the results. The aggregate reflects every lead.
func (inv *Investigator) InvestigateLeads(ctx context.Context, leads []Lead) *Report {
	conclusions := make([]Conclusion, len(leads))
	g, gctx := errgroup.WithContext(ctx)
	for i, lead := range leads {
		i, lead := i, lead
		g.Go(func() error {
			conclusions[i] = inv.Investigate(gctx, lead)
			return nil
		})
	}
	// Investigations never return errors; the group is a join barrier.
	_ = g.Wait()
	return &Report{Conclusions: conclusions, Overall: Aggregate(conclusions)}
}
