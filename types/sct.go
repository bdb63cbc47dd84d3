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
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

// SignedCertificateTimestamp is a log's signed promise to include a
// certificate (RFC 6962 3.2).
type SignedCertificateTimestamp struct {
	SCTVersion Version
	LogID      LogID
	Timestamp  uint64 // Milliseconds since the epoch.
	Extensions []byte
	Signature  DigitallySigned
}

// Marshal implements cryptobyte.MarshalingValue.
func (sct *SignedCertificateTimestamp) Marshal(b *cryptobyte.Builder) error {
	b.AddValue(sct.SCTVersion)
	b.AddValue(sct.LogID)
	b.AddUint64(sct.Timestamp)
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(sct.Extensions)
	})
	b.AddValue(&sct.Signature)
	return nil
}

// Bytes returns the TLS serialization of the SCT.
func (sct *SignedCertificateTimestamp) Bytes() ([]byte, error) {
	var b cryptobyte.Builder
	b.AddValue(sct)
	return b.Bytes()
}

// Unmarshal reads an SCT from s. It returns false on malformed input or an
// unsupported version.
func (sct *SignedCertificateTimestamp) Unmarshal(s *cryptobyte.String) bool {
	var version uint8
	if !s.ReadUint8(&version) || Version(version) != V1 {
		return false
	}
	sct.SCTVersion = Version(version)
	if !sct.LogID.Unmarshal(s) {
		return false
	}
	if !s.ReadUint64(&sct.Timestamp) {
		return false
	}
	var exts cryptobyte.String
	if !s.ReadUint16LengthPrefixed(&exts) {
		return false
	}
	sct.Extensions = append([]byte{}, exts...)
	return sct.Signature.Unmarshal(s)
}

// ParseSCT parses the TLS serialization of one SCT, rejecting trailing data.
func ParseSCT(data []byte) (*SignedCertificateTimestamp, error) {
	s := cryptobyte.String(data)
	sct := new(SignedCertificateTimestamp)
	if !sct.Unmarshal(&s) {
		return nil, fmt.Errorf("malformed SignedCertificateTimestamp")
	}
	if !s.Empty() {
		return nil, fmt.Errorf("trailing data after SignedCertificateTimestamp")
	}
	return sct, nil
}

// ParseSCTList parses a SignedCertificateTimestampList (RFC 6962 3.3): an
// opaque list of serialized SCTs, each with a 16-bit length prefix.
func ParseSCTList(data []byte) ([]*SignedCertificateTimestamp, error) {
	outer := cryptobyte.String(data)
	var list cryptobyte.String
	if !outer.ReadUint16LengthPrefixed(&list) || !outer.Empty() {
		return nil, fmt.Errorf("malformed SignedCertificateTimestampList")
	}
	var scts []*SignedCertificateTimestamp
	for !list.Empty() {
		var entry cryptobyte.String
		if !list.ReadUint16LengthPrefixed(&entry) {
			return nil, fmt.Errorf("malformed SCT list entry %d", len(scts))
		}
		sct, err := ParseSCT(entry)
		if err != nil {
			return nil, fmt.Errorf("SCT list entry %d: %v", len(scts), err)
		}
		scts = append(scts, sct)
	}
	return scts, nil
}

// SerializeSCTList builds a SignedCertificateTimestampList from scts.
func SerializeSCTList(scts []*SignedCertificateTimestamp) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		for _, sct := range scts {
			b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
				b.AddValue(sct)
			})
		}
	})
	return b.Bytes()
}

// LogEntry is the signed_entry part of a TimestampedEntry (RFC 6962 3.4):
// either a whole X.509 certificate, or the issuer key hash and TBSCertificate
// of a precertificate.
type LogEntry struct {
	Type EntryType

	// Certificate is the DER leaf certificate for X509LogEntryType.
	Certificate []byte

	// IssuerKeyHash and TBS are set for PrecertLogEntryType.
	IssuerKeyHash [sha256.Size]byte
	TBS           []byte
}

// Marshal implements cryptobyte.MarshalingValue. It writes the entry type
// followed by the corresponding body.
func (e *LogEntry) Marshal(b *cryptobyte.Builder) error {
	b.AddValue(e.Type)
	switch e.Type {
	case X509LogEntryType:
		b.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes(e.Certificate)
		})
	case PrecertLogEntryType:
		b.AddBytes(e.IssuerKeyHash[:])
		b.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes(e.TBS)
		})
	default:
		return fmt.Errorf("unknown entry type %d", e.Type)
	}
	return nil
}

// CertificateTimestampInput returns the canonical CertificateTimestamp
// structure (RFC 6962 3.2) the log signed when issuing the SCT.
func CertificateTimestampInput(sct *SignedCertificateTimestamp, entry *LogEntry) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddValue(sct.SCTVersion)
	b.AddValue(CertificateTimestampSignatureType)
	b.AddUint64(sct.Timestamp)
	b.AddValue(entry)
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(sct.Extensions)
	})
	return b.Bytes()
}

// MerkleTreeLeaf returns the serialized MerkleTreeLeaf (RFC 6962 3.4) for the
// given SCT and entry. Hashing this with the RFC 6962 leaf prefix yields the
// leaf hash used by get-proof-by-hash.
func MerkleTreeLeaf(sct *SignedCertificateTimestamp, entry *LogEntry) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddValue(sct.SCTVersion)
	b.AddValue(TimestampedEntryLeafType)
	b.AddUint64(sct.Timestamp)
	b.AddValue(entry)
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(sct.Extensions)
	})
	return b.Bytes()
}
