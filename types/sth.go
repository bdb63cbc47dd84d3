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

package types

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/cryptobyte"
)

// SignedTreeHead is a log's signed snapshot of its Merkle root and size
// (RFC 6962 3.5). The JSON form matches the get-sth response (RFC 6962 4.3).
type SignedTreeHead struct {
	TreeSize          uint64
	Timestamp         uint64 // Milliseconds since the epoch.
	SHA256RootHash    [sha256.Size]byte
	TreeHeadSignature DigitallySigned
}

// TimestampTime returns the STH timestamp as a time.Time.
func (sth *SignedTreeHead) TimestampTime() time.Time {
	return time.UnixMilli(int64(sth.Timestamp))
}

// Same reports whether two STHs describe the same tree head.
func (sth *SignedTreeHead) Same(other *SignedTreeHead) bool {
	return sth.TreeSize == other.TreeSize &&
		sth.Timestamp == other.Timestamp &&
		sth.SHA256RootHash == other.SHA256RootHash
}

// TreeHeadSignatureInput returns the canonical TreeHeadSignature structure
// (RFC 6962 3.5) that the log signed: version, tree_hash signature type,
// timestamp, tree size and root hash.
func TreeHeadSignatureInput(sth *SignedTreeHead) []byte {
	var b cryptobyte.Builder
	b.AddValue(V1)
	b.AddValue(TreeHashSignatureType)
	b.AddUint64(sth.Timestamp)
	b.AddUint64(sth.TreeSize)
	b.AddBytes(sth.SHA256RootHash[:])
	return b.BytesOrPanic()
}

// jsonSTH is the wire shape of a get-sth response. encoding/json handles the
// base64 encoding of the []byte fields.
type jsonSTH struct {
	TreeSize  uint64 `json:"tree_size"`
	Timestamp uint64 `json:"timestamp"`
	RootHash  []byte `json:"sha256_root_hash"`
	Signature []byte `json:"tree_head_signature"`
}

// MarshalJSON implements json.Marshaler.
func (sth *SignedTreeHead) MarshalJSON() ([]byte, error) {
	sig, err := sth.TreeHeadSignature.Bytes()
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonSTH{
		TreeSize:  sth.TreeSize,
		Timestamp: sth.Timestamp,
		RootHash:  sth.SHA256RootHash[:],
		Signature: sig,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (sth *SignedTreeHead) UnmarshalJSON(data []byte) error {
	var raw jsonSTH
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if got, want := len(raw.RootHash), sha256.Size; got != want {
		return fmt.Errorf("sha256_root_hash has %d bytes, want %d", got, want)
	}
	sig, err := ParseDigitallySigned(raw.Signature)
	if err != nil {
		return fmt.Errorf("malformed tree_head_signature: %v", err)
	}
	sth.TreeSize = raw.TreeSize
	sth.Timestamp = raw.Timestamp
	copy(sth.SHA256RootHash[:], raw.RootHash)
	sth.TreeHeadSignature = *sig
	return nil
}
