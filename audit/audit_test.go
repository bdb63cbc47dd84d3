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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/ctaudit/client"
	"github.com/google/ctaudit/ctcrypto"
	"github.com/google/ctaudit/loglist"
	"github.com/google/ctaudit/merkle/rfc6962"
	"github.com/google/ctaudit/merkle/testonly"
	"github.com/google/ctaudit/monitoring"
	"github.com/google/ctaudit/storage"
	"github.com/google/ctaudit/types"
)

// logBackend simulates one well-behaved CT log: a reference Merkle tree, a
// real signing key, and an RFC 6962 read API served through the Transport
// interface. Failure injection fields let tests turn it hostile.
type logBackend struct {
	t    *testing.T
	key  *ecdsa.PrivateKey
	info *loglist.Log
	tree *testonly.Tree

	timestamp uint64

	// Failure injection.
	sthErr       error                 // Transport error served for get-sth.
	proofErr     error                 // Transport error served for get-proof-by-hash.
	servedSTH    *types.SignedTreeHead // Overrides the honest tree head.
	hideLeaves   bool                  // Answer get-proof-by-hash with HTTP 400.
	corruptProof bool                  // Flip a byte in every audit path.
}

func newLogBackend(t *testing.T, name string) *logBackend {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey(): %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey(): %v", err)
	}
	info, err := loglist.NewLog(name, "https://"+name+".test/", der, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewLog(): %v", err)
	}
	return &logBackend{
		t:         t,
		key:       key,
		info:      info,
		tree:      testonly.NewTree(rfc6962.DefaultHasher),
		timestamp: 1700000000000,
	}
}

func (b *logBackend) sign(msg []byte) types.DigitallySigned {
	b.t.Helper()
	digest := sha256.Sum256(msg)
	sig, err := ecdsa.SignASN1(rand.Reader, b.key, digest[:])
	if err != nil {
		b.t.Fatalf("SignASN1(): %v", err)
	}
	return types.DigitallySigned{
		HashAlgorithm:      types.HashSHA256,
		SignatureAlgorithm: types.SigECDSA,
		Signature:          sig,
	}
}

// currentSTH returns a correctly signed tree head for the tree's current
// size (or for servedSTH's claims when failure injection is active).
func (b *logBackend) currentSTH() *types.SignedTreeHead {
	if b.servedSTH != nil {
		return b.servedSTH
	}
	return b.sthAt(b.tree.Size())
}

// sthAt returns a correctly signed tree head for a past size.
func (b *logBackend) sthAt(size uint64) *types.SignedTreeHead {
	b.timestamp++
	sth := &types.SignedTreeHead{
		TreeSize:  size,
		Timestamp: b.timestamp,
	}
	copy(sth.SHA256RootHash[:], b.tree.RootAt(size))
	sth.TreeHeadSignature = b.sign(types.TreeHeadSignatureInput(sth))
	return sth
}

// forgedSTH returns a signed tree head whose root does not belong to the
// tree's history.
func (b *logBackend) forgedSTH(size uint64) *types.SignedTreeHead {
	b.timestamp++
	sth := &types.SignedTreeHead{
		TreeSize:  size,
		Timestamp: b.timestamp,
	}
	copy(sth.SHA256RootHash[:], b.tree.RootAt(size))
	sth.SHA256RootHash[0] ^= 0xff
	sth.TreeHeadSignature = b.sign(types.TreeHeadSignatureInput(sth))
	return sth
}

// issueSCT signs an SCT over entry and incorporates the corresponding leaf.
func (b *logBackend) issueSCT(entry *types.LogEntry) *types.SignedCertificateTimestamp {
	b.t.Helper()
	b.timestamp++
	sct := &types.SignedCertificateTimestamp{
		SCTVersion: types.V1,
		LogID:      b.info.ID,
		Timestamp:  b.timestamp,
		Extensions: []byte{},
	}
	input, err := types.CertificateTimestampInput(sct, entry)
	if err != nil {
		b.t.Fatalf("CertificateTimestampInput(): %v", err)
	}
	sct.Signature = b.sign(input)

	leaf, err := types.MerkleTreeLeaf(sct, entry)
	if err != nil {
		b.t.Fatalf("MerkleTreeLeaf(): %v", err)
	}
	b.tree.Append(leaf)
	return sct
}

// Fetch implements client.Transport for the backend's own URL space.
func (b *logBackend) Fetch(_ context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &client.NetworkError{URL: rawURL, Err: err}
	}
	prefix := b.info.URL + "ct/v1/"
	if !strings.HasPrefix(rawURL, prefix) {
		return nil, &client.StatusError{URL: rawURL, StatusCode: 404}
	}
	endpoint := strings.SplitN(rawURL[len(prefix):], "?", 2)[0]
	q := u.Query()

	switch endpoint {
	case "get-sth":
		if b.sthErr != nil {
			return nil, b.sthErr
		}
		return json.Marshal(b.currentSTH())

	case "get-sth-consistency":
		first, _ := strconv.ParseUint(q.Get("first"), 10, 64)
		second, _ := strconv.ParseUint(q.Get("second"), 10, 64)
		proof, err := b.tree.ConsistencyProof(first, second)
		if err != nil {
			return nil, &client.StatusError{URL: rawURL, StatusCode: 400}
		}
		return json.Marshal(map[string][][]byte{"consistency": proof})

	case "get-proof-by-hash":
		if b.proofErr != nil {
			return nil, b.proofErr
		}
		if b.hideLeaves {
			return nil, &client.StatusError{URL: rawURL, StatusCode: 400}
		}
		hash, err := base64.StdEncoding.DecodeString(q.Get("hash"))
		if err != nil {
			return nil, &client.StatusError{URL: rawURL, StatusCode: 400}
		}
		size, _ := strconv.ParseUint(q.Get("tree_size"), 10, 64)
		index, ok := b.findLeaf(hash, size)
		if !ok {
			return nil, &client.StatusError{URL: rawURL, StatusCode: 400}
		}
		proof, err := b.tree.InclusionProof(index, size)
		if err != nil {
			return nil, &client.StatusError{URL: rawURL, StatusCode: 400}
		}
		if b.corruptProof && len(proof) > 0 {
			proof[0][0] ^= 1
		}
		return json.Marshal(map[string]interface{}{
			"leaf_index": index,
			"audit_path": proof,
		})
	}
	return nil, &client.StatusError{URL: rawURL, StatusCode: 404}
}

func (b *logBackend) findLeaf(hash []byte, size uint64) (uint64, bool) {
	for i := uint64(0); i < size && i < b.tree.Size(); i++ {
		if string(b.tree.LeafHash(i)) == string(hash) {
			return i, true
		}
	}
	return 0, false
}

// testEntry returns a minimal X509 log entry with distinct content.
func testEntry(n byte) *types.LogEntry {
	return &types.LogEntry{
		Type:        types.X509LogEntryType,
		Certificate: []byte{0x30, 0x03, 0x02, 0x01, n},
	}
}

func newHarness(t *testing.T, backend *logBackend, store storage.Store) (*Tracker, *Investigator) {
	t.Helper()
	reg, err := loglist.NewRegistry([]*loglist.Log{backend.info})
	if err != nil {
		t.Fatalf("NewRegistry(): %v", err)
	}
	verifier := ctcrypto.NewVerifier(reg)
	tracker := NewTracker(verifier, store, monitoring.InertMetricFactory{})
	inv := NewInvestigator(reg, tracker, backend, monitoring.InertMetricFactory{})
	return tracker, inv
}

func TestAggregate(t *testing.T) {
	var id types.LogID
	safe := safeConclusion(id)
	inc := inconclusive(id, ReasonNetworkError, "")
	bad := unsafeConclusion(id, ReasonLogFork, "")

	for _, tc := range []struct {
		desc string
		in   []Conclusion
		want Verdict
	}{
		{desc: "unsafe dominates", in: []Conclusion{safe, inc, bad}, want: Unsafe},
		{desc: "inconclusive beats safe", in: []Conclusion{safe, inc}, want: Inconclusive},
		{desc: "all safe", in: []Conclusion{safe, safe}, want: Safe},
	} {
		if got := Aggregate(tc.in); got.Verdict != tc.want {
			t.Errorf("%s: Aggregate() = %v, want %v", tc.desc, got.Verdict, tc.want)
		}
	}

	empty := Aggregate(nil)
	if empty.Verdict != Inconclusive || empty.Reason != ReasonNoSCTsPresent {
		t.Errorf("Aggregate(nil) = %+v, want Inconclusive(no_scts_present)", empty)
	}
}

func TestTrackerFirstObservationAndIdempotence(t *testing.T) {
	ctx := context.Background()
	backend := newLogBackend(t, "log1")
	for i := byte(0); i < 5; i++ {
		backend.issueSCT(testEntry(i))
	}
	tracker, _ := newHarness(t, backend, nil)

	sth := backend.currentSTH()
	if err := tracker.Observe(ctx, backend.info.ID, sth, nil); err != nil {
		t.Fatalf("Observe(first): %v", err)
	}
	// Resubmitting the identical head is a no-op success.
	if err := tracker.Observe(ctx, backend.info.ID, sth, nil); err != nil {
		t.Fatalf("Observe(same STH again): %v", err)
	}
	if got := tracker.LastVerified(ctx, backend.info.ID); got == nil || got.TreeSize != 5 {
		t.Errorf("LastVerified() = %+v, want size 5", got)
	}
}

func TestTrackerVerifiesGrowth(t *testing.T) {
	ctx := context.Background()
	backend := newLogBackend(t, "log1")
	for i := byte(0); i < 3; i++ {
		backend.issueSCT(testEntry(i))
	}
	tracker, _ := newHarness(t, backend, nil)
	lc := client.New(backend.info.URL, backend)

	if err := tracker.Observe(ctx, backend.info.ID, backend.currentSTH(), lc.GetSTHConsistency); err != nil {
		t.Fatalf("Observe(size 3): %v", err)
	}

	for i := byte(3); i < 8; i++ {
		backend.issueSCT(testEntry(i))
	}
	if err := tracker.Observe(ctx, backend.info.ID, backend.currentSTH(), lc.GetSTHConsistency); err != nil {
		t.Fatalf("Observe(size 8): %v", err)
	}
	if got := tracker.LastVerified(ctx, backend.info.ID); got.TreeSize != 8 {
		t.Errorf("LastVerified().TreeSize = %d, want 8", got.TreeSize)
	}
}

func TestTrackerDetectsFork(t *testing.T) {
	ctx := context.Background()
	backend := newLogBackend(t, "log1")
	for i := byte(0); i < 4; i++ {
		backend.issueSCT(testEntry(i))
	}
	tracker, _ := newHarness(t, backend, nil)

	if err := tracker.Observe(ctx, backend.info.ID, backend.currentSTH(), nil); err != nil {
		t.Fatalf("Observe(): %v", err)
	}
	err := tracker.Observe(ctx, backend.info.ID, backend.forgedSTH(4), nil)
	if !errors.Is(err, ErrLogFork) {
		t.Errorf("Observe(forged same-size head) = %v, want ErrLogFork", err)
	}
	// The forged head must not replace the tracked one.
	if got := tracker.LastVerified(ctx, backend.info.ID); got.SHA256RootHash[0] == backend.forgedSTH(4).SHA256RootHash[0] {
		t.Error("forged head committed after fork detection")
	}
}

func TestTrackerDetectsShrinkage(t *testing.T) {
	ctx := context.Background()
	backend := newLogBackend(t, "log1")
	for i := byte(0); i < 6; i++ {
		backend.issueSCT(testEntry(i))
	}
	tracker, _ := newHarness(t, backend, nil)

	if err := tracker.Observe(ctx, backend.info.ID, backend.currentSTH(), nil); err != nil {
		t.Fatalf("Observe(size 6): %v", err)
	}
	err := tracker.Observe(ctx, backend.info.ID, backend.sthAt(4), nil)
	if !errors.Is(err, ErrTreeShrank) {
		t.Errorf("Observe(size 4 after 6) = %v, want ErrTreeShrank", err)
	}
	if got := tracker.LastVerified(ctx, backend.info.ID); got.TreeSize != 6 {
		t.Errorf("LastVerified().TreeSize = %d after rejected shrink, want 6", got.TreeSize)
	}
}

func TestTrackerRejectsBogusConsistencyProof(t *testing.T) {
	ctx := context.Background()
	backend := newLogBackend(t, "log1")
	for i := byte(0); i < 3; i++ {
		backend.issueSCT(testEntry(i))
	}
	tracker, _ := newHarness(t, backend, nil)
	if err := tracker.Observe(ctx, backend.info.ID, backend.currentSTH(), nil); err != nil {
		t.Fatalf("Observe(): %v", err)
	}
	for i := byte(3); i < 7; i++ {
		backend.issueSCT(testEntry(i))
	}

	badFetch := func(ctx context.Context, first, second uint64) ([][]byte, error) {
		proof, err := backend.tree.ConsistencyProof(first, second)
		if err != nil || len(proof) == 0 {
			return proof, err
		}
		proof[0][0] ^= 1
		return proof, nil
	}
	err := tracker.Observe(ctx, backend.info.ID, backend.currentSTH(), badFetch)
	if !errors.Is(err, ErrConsistencyProofInvalid) {
		t.Errorf("Observe(corrupt proof) = %v, want ErrConsistencyProofInvalid", err)
	}
	if got := tracker.LastVerified(ctx, backend.info.ID); got.TreeSize != 3 {
		t.Errorf("LastVerified().TreeSize = %d after rejected growth, want 3", got.TreeSize)
	}
}

func TestTrackerRejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	backend := newLogBackend(t, "log1")
	backend.issueSCT(testEntry(0))
	tracker, _ := newHarness(t, backend, nil)

	sth := backend.currentSTH()
	sth.TreeHeadSignature.Signature[4] ^= 1
	err := tracker.Observe(ctx, backend.info.ID, sth, nil)
	if !errors.Is(err, ctcrypto.ErrSignatureInvalid) {
		t.Errorf("Observe(tampered signature) = %v, want ErrSignatureInvalid", err)
	}
	if got := tracker.LastVerified(ctx, backend.info.ID); got != nil {
		t.Errorf("LastVerified() = %+v after rejected first observation, want nil", got)
	}
}

// failingStore always errors; tracker behavior must be unaffected.
type failingStore struct{}

func (failingStore) GetState(context.Context, types.LogID) (*storage.LogState, error) {
	return nil, errors.New("store down")
}
func (failingStore) SetState(context.Context, *storage.LogState) error {
	return errors.New("store down")
}

func TestTrackerStoreFailuresAreNonFatal(t *testing.T) {
	ctx := context.Background()
	backend := newLogBackend(t, "log1")
	for i := byte(0); i < 4; i++ {
		backend.issueSCT(testEntry(i))
	}
	tracker, _ := newHarness(t, backend, failingStore{})

	if err := tracker.Observe(ctx, backend.info.ID, backend.currentSTH(), nil); err != nil {
		t.Fatalf("Observe() with failing store: %v", err)
	}
	// The in-memory state still protects the session.
	err := tracker.Observe(ctx, backend.info.ID, backend.forgedSTH(4), nil)
	if !errors.Is(err, ErrLogFork) {
		t.Errorf("Observe(forged head) = %v, want ErrLogFork despite failing store", err)
	}
}

func TestTrackerRestoresStateFromStore(t *testing.T) {
	ctx := context.Background()
	backend := newLogBackend(t, "log1")
	for i := byte(0); i < 6; i++ {
		backend.issueSCT(testEntry(i))
	}
	store := storage.NewMemoryStore()

	tracker, _ := newHarness(t, backend, store)
	if err := tracker.Observe(ctx, backend.info.ID, backend.currentSTH(), nil); err != nil {
		t.Fatalf("Observe(): %v", err)
	}

	// A fresh tracker over the same store inherits the baseline, so a
	// rollback is still detected across restarts.
	tracker2, _ := newHarness(t, backend, store)
	err := tracker2.Observe(ctx, backend.info.ID, backend.sthAt(3), nil)
	if !errors.Is(err, ErrTreeShrank) {
		t.Errorf("Observe(size 3 after restart) = %v, want ErrTreeShrank", err)
	}
}

func TestTrackerConcurrentLogsShareOneTracker(t *testing.T) {
	ctx := context.Background()

	backends := make([]*logBackend, 8)
	infos := make([]*loglist.Log, len(backends))
	for i := range backends {
		b := newLogBackend(t, fmt.Sprintf("log%d", i))
		for j := byte(0); j < 3; j++ {
			b.issueSCT(testEntry(j))
		}
		backends[i] = b
		infos[i] = b.info
	}
	reg, err := loglist.NewRegistry(infos)
	if err != nil {
		t.Fatalf("NewRegistry(): %v", err)
	}
	tracker := NewTracker(ctcrypto.NewVerifier(reg), storage.NewMemoryStore(), monitoring.InertMetricFactory{})

	// One goroutine per log, all hitting the tracker at once, as the
	// monitor binary does.
	var wg sync.WaitGroup
	errs := make([]error, len(backends))
	for i, b := range backends {
		i, b := i, b
		sth := b.currentSTH()
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = tracker.Observe(ctx, b.info.ID, sth, nil)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Observe(%s): %v", backends[i].info.Description, err)
		}
	}
	for _, b := range backends {
		if got := tracker.LastVerified(ctx, b.info.ID); got == nil || got.TreeSize != 3 {
			t.Errorf("LastVerified(%s) = %+v, want size 3", b.info.Description, got)
		}
	}
}

func TestTrackerSerializesSameLogObservations(t *testing.T) {
	ctx := context.Background()
	backend := newLogBackend(t, "log1")

	// Genuine heads of the same log at every size from 1 to 12, submitted
	// in whatever order the scheduler picks.
	var heads []*types.SignedTreeHead
	for i := byte(0); i < 12; i++ {
		backend.issueSCT(testEntry(i))
		heads = append(heads, backend.sthAt(backend.tree.Size()))
	}
	fetch := func(_ context.Context, first, second uint64) ([][]byte, error) {
		return backend.tree.ConsistencyProof(first, second)
	}
	tracker, _ := newHarness(t, backend, nil)

	var wg sync.WaitGroup
	errs := make([]error, len(heads))
	for i, sth := range heads {
		i, sth := i, sth
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = tracker.Observe(ctx, backend.info.ID, sth, fetch)
		}()
	}
	wg.Wait()

	// A head arriving after a larger one is a rejected rollback; every
	// other submission must have verified cleanly.
	for i, err := range errs {
		if err != nil && !errors.Is(err, ErrTreeShrank) {
			t.Errorf("Observe(size %d) = %v, want nil or ErrTreeShrank", i+1, err)
		}
	}
	if got := tracker.LastVerified(ctx, backend.info.ID); got == nil || got.TreeSize != 12 {
		t.Errorf("LastVerified() = %+v, want the largest submitted size 12", got)
	}
}

func leadFor(t *testing.T, backend *logBackend, entry *types.LogEntry) Lead {
	t.Helper()
	sct := backend.issueSCT(entry)
	return Lead{SCT: sct, Entry: entry}
}

func TestInvestigateGenuineLead(t *testing.T) {
	backend := newLogBackend(t, "log1")
	lead := leadFor(t, backend, testEntry(1))
	for i := byte(2); i < 6; i++ {
		backend.issueSCT(testEntry(i))
	}
	_, inv := newHarness(t, backend, nil)

	c := inv.Investigate(context.Background(), lead)
	if c.Verdict != Safe {
		t.Errorf("Investigate() = %+v, want Safe", c)
	}
}

func TestInvestigateTreeShrank(t *testing.T) {
	backend := newLogBackend(t, "log1")
	lead := leadFor(t, backend, testEntry(1))
	for i := byte(2); i < 6; i++ {
		backend.issueSCT(testEntry(i))
	}
	_, inv := newHarness(t, backend, nil)

	if c := inv.Investigate(context.Background(), lead); c.Verdict != Safe {
		t.Fatalf("first Investigate() = %+v, want Safe", c)
	}
	// The log now serves a rolled-back head.
	backend.servedSTH = backend.sthAt(2)
	c := inv.Investigate(context.Background(), lead)
	if c.Verdict != Unsafe || c.Reason != ReasonTreeShrank {
		t.Errorf("Investigate(rolled back log) = %+v, want Unsafe(tree_shrank)", c)
	}
}

func TestInvestigateInclusionProofInvalid(t *testing.T) {
	backend := newLogBackend(t, "log1")
	lead := leadFor(t, backend, testEntry(1))
	backend.issueSCT(testEntry(2))
	backend.corruptProof = true
	_, inv := newHarness(t, backend, nil)

	c := inv.Investigate(context.Background(), lead)
	if c.Verdict != Unsafe || c.Reason != ReasonInclusionProofInvalid {
		t.Errorf("Investigate(corrupt proof) = %+v, want Unsafe(inclusion_proof_invalid)", c)
	}
}

func TestInvestigateInclusionProofMissing(t *testing.T) {
	backend := newLogBackend(t, "log1")
	lead := leadFor(t, backend, testEntry(1))
	backend.hideLeaves = true
	_, inv := newHarness(t, backend, nil)

	c := inv.Investigate(context.Background(), lead)
	if c.Verdict != Unsafe || c.Reason != ReasonInclusionProofMissingOrInvalid {
		t.Errorf("Investigate(hidden leaf) = %+v, want Unsafe(inclusion_proof_missing_or_invalid)", c)
	}
}

func TestInvestigateNetworkErrors(t *testing.T) {
	backend := newLogBackend(t, "log1")
	lead := leadFor(t, backend, testEntry(1))
	_, inv := newHarness(t, backend, nil)

	backend.sthErr = &client.NetworkError{URL: backend.info.URL, Err: errors.New("connection refused")}
	c := inv.Investigate(context.Background(), lead)
	if c.Verdict != Inconclusive || c.Reason != ReasonNetworkError {
		t.Errorf("Investigate(unreachable get-sth) = %+v, want Inconclusive(network_error)", c)
	}

	backend.sthErr = nil
	backend.proofErr = &client.NetworkError{URL: backend.info.URL, Err: errors.New("timeout")}
	c = inv.Investigate(context.Background(), lead)
	if c.Verdict != Inconclusive || c.Reason != ReasonNetworkError {
		t.Errorf("Investigate(unreachable get-proof-by-hash) = %+v, want Inconclusive(network_error)", c)
	}
}

func TestInvestigateUnknownLog(t *testing.T) {
	backend := newLogBackend(t, "log1")
	stranger := newLogBackend(t, "log2")
	// Lead issued by a log absent from the registry.
	entry := testEntry(1)
	lead := Lead{SCT: stranger.issueSCT(entry), Entry: entry}
	_, inv := newHarness(t, backend, nil)

	c := inv.Investigate(context.Background(), lead)
	if c.Verdict != Inconclusive || c.Reason != ReasonUnknownLog {
		t.Errorf("Investigate(unknown log) = %+v, want Inconclusive(unknown_log)", c)
	}
}

func TestInvestigateBadSCTSignature(t *testing.T) {
	backend := newLogBackend(t, "log1")
	entry := testEntry(1)
	sct := backend.issueSCT(entry)
	sct.Timestamp++ // Invalidates the signature.
	_, inv := newHarness(t, backend, nil)

	c := inv.Investigate(context.Background(), Lead{SCT: sct, Entry: entry})
	if c.Verdict != Unsafe || c.Reason != ReasonSignatureInvalid {
		t.Errorf("Investigate(tampered SCT) = %+v, want Unsafe(signature_invalid)", c)
	}
}

func TestInvestigateUnsupportedAlgorithm(t *testing.T) {
	backend := newLogBackend(t, "log1")
	entry := testEntry(1)
	sct := backend.issueSCT(entry)
	sct.Signature.HashAlgorithm = types.HashSHA1
	_, inv := newHarness(t, backend, nil)

	c := inv.Investigate(context.Background(), Lead{SCT: sct, Entry: entry})
	if c.Verdict != Inconclusive || c.Reason != ReasonUnsupportedAlgorithm {
		t.Errorf("Investigate(SHA1 SCT) = %+v, want Inconclusive(unsupported_algorithm)", c)
	}
}

func TestInvestigateLeadsJoinsAllConclusions(t *testing.T) {
	good := newLogBackend(t, "log1")
	entry := testEntry(1)
	goodLead := Lead{SCT: good.issueSCT(entry), Entry: entry}

	stranger := newLogBackend(t, "log2")
	strangeLead := Lead{SCT: stranger.issueSCT(entry), Entry: entry}

	_, inv := newHarness(t, good, nil)
	report := inv.InvestigateLeads(context.Background(), []Lead{goodLead, strangeLead})

	if len(report.Conclusions) != 2 {
		t.Fatalf("got %d conclusions, want 2", len(report.Conclusions))
	}
	if report.Overall.Verdict != Inconclusive || report.Overall.Reason != ReasonUnknownLog {
		t.Errorf("Overall = %+v, want Inconclusive(unknown_log)", report.Overall)
	}

	empty := inv.InvestigateLeads(context.Background(), nil)
	if empty.Overall.Reason != ReasonNoSCTsPresent {
		t.Errorf("Overall for no leads = %+v, want no_scts_present", empty.Overall)
	}
}

func TestReportJSON(t *testing.T) {
	backend := newLogBackend(t, "log1")
	report := &Report{
		Conclusions: []Conclusion{unsafeConclusion(backend.info.ID, ReasonLogFork, "roots differ")},
		Overall:     unsafeConclusion(backend.info.ID, ReasonLogFork, "roots differ"),
	}
	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal(): %v", err)
	}
	s := string(data)
	for _, want := range []string{`"verdict":"unsafe"`, `"reason":"log_fork"`, fmt.Sprintf(`"log_id":%q`, backend.info.ID)} {
		if !strings.Contains(s, want) {
			t.Errorf("report JSON %s missing %s", s, want)
		}
	}
}
