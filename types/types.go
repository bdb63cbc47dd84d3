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

// Package types defines the RFC 6962 data structures exchanged with
// Certificate Transparency logs, and their TLS and JSON serializations.
package types

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/cryptobyte"
)

// LogID identifies a CT log: the SHA-256 hash of the log's public key in
// DER-encoded SubjectPublicKeyInfo form (RFC 6962 3.2).
type LogID [sha256.Size]byte

// LogIDFromPublicKeyDER computes the LogID for a DER-encoded public key.
func LogIDFromPublicKeyDER(der []byte) LogID {
	return sha256.Sum256(der)
}

// String returns the standard base64 form used by log lists.
func (id LogID) String() string {
	return base64.StdEncoding.EncodeToString(id[:])
}

// Marshal implements cryptobyte.MarshalingValue.
func (id LogID) Marshal(b *cryptobyte.Builder) error {
	b.AddBytes(id[:])
	return nil
}

// Unmarshal reads a LogID from s. It returns false on insufficient data.
func (id *LogID) Unmarshal(s *cryptobyte.String) bool {
	return s.CopyBytes(id[:])
}

// Version is the CT protocol version (RFC 6962 3.2).
type Version uint8

// V1 is the only version defined by RFC 6962.
const V1 Version = 0

// Marshal implements cryptobyte.MarshalingValue.
func (v Version) Marshal(b *cryptobyte.Builder) error {
	b.AddUint8(uint8(v))
	return nil
}

// SignatureType distinguishes the structures a log signs (RFC 6962 3.2).
type SignatureType uint8

// Signature type values.
const (
	CertificateTimestampSignatureType SignatureType = 0
	TreeHashSignatureType             SignatureType = 1
)

// Marshal implements cryptobyte.MarshalingValue.
func (t SignatureType) Marshal(b *cryptobyte.Builder) error {
	b.AddUint8(uint8(t))
	return nil
}

// EntryType identifies the kind of entry a leaf holds (RFC 6962 3.1).
type EntryType uint16

// Entry type values.
const (
	X509LogEntryType    EntryType = 0
	PrecertLogEntryType EntryType = 1
)

// Marshal implements cryptobyte.MarshalingValue.
func (t EntryType) Marshal(b *cryptobyte.Builder) error {
	b.AddUint16(uint16(t))
	return nil
}

// MerkleLeafType identifies the MerkleTreeLeaf variant (RFC 6962 3.4).
type MerkleLeafType uint8

// TimestampedEntryLeafType is the only leaf type defined by RFC 6962.
const TimestampedEntryLeafType MerkleLeafType = 0

// Marshal implements cryptobyte.MarshalingValue.
func (t MerkleLeafType) Marshal(b *cryptobyte.Builder) error {
	b.AddUint8(uint8(t))
	return nil
}
