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
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

// HashAlgorithm is a TLS HashAlgorithm value (RFC 5246 7.4.1.4.1).
type HashAlgorithm uint8

// Hash algorithm values.
const (
	HashNone   HashAlgorithm = 0
	HashMD5    HashAlgorithm = 1
	HashSHA1   HashAlgorithm = 2
	HashSHA224 HashAlgorithm = 3
	HashSHA256 HashAlgorithm = 4
	HashSHA384 HashAlgorithm = 5
	HashSHA512 HashAlgorithm = 6
)

// String names the algorithm for error messages.
func (h HashAlgorithm) String() string {
	switch h {
	case HashNone:
		return "none"
	case HashMD5:
		return "MD5"
	case HashSHA1:
		return "SHA1"
	case HashSHA224:
		return "SHA224"
	case HashSHA256:
		return "SHA256"
	case HashSHA384:
		return "SHA384"
	case HashSHA512:
		return "SHA512"
	}
	return fmt.Sprintf("unknown(%d)", uint8(h))
}

// SignatureAlgorithm is a TLS SignatureAlgorithm value (RFC 5246 7.4.1.4.1).
type SignatureAlgorithm uint8

// Signature algorithm values.
const (
	SigAnonymous SignatureAlgorithm = 0
	SigRSA       SignatureAlgorithm = 1
	SigDSA       SignatureAlgorithm = 2
	SigECDSA     SignatureAlgorithm = 3
)

// String names the algorithm for error messages.
func (s SignatureAlgorithm) String() string {
	switch s {
	case SigAnonymous:
		return "anonymous"
	case SigRSA:
		return "RSA"
	case SigDSA:
		return "DSA"
	case SigECDSA:
		return "ECDSA"
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// DigitallySigned is a TLS DigitallySigned structure (RFC 5246 4.7): the
// algorithm pair followed by an opaque signature.
type DigitallySigned struct {
	HashAlgorithm      HashAlgorithm
	SignatureAlgorithm SignatureAlgorithm
	Signature          []byte
}

// Marshal implements cryptobyte.MarshalingValue.
func (ds *DigitallySigned) Marshal(b *cryptobyte.Builder) error {
	b.AddUint8(uint8(ds.HashAlgorithm))
	b.AddUint8(uint8(ds.SignatureAlgorithm))
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(ds.Signature)
	})
	return nil
}

// Bytes returns the TLS serialization of ds.
func (ds *DigitallySigned) Bytes() ([]byte, error) {
	var b cryptobyte.Builder
	b.AddValue(ds)
	return b.Bytes()
}

// Unmarshal reads a DigitallySigned from s. It returns false on malformed
// input.
func (ds *DigitallySigned) Unmarshal(s *cryptobyte.String) bool {
	var hashAlg, sigAlg uint8
	var sig cryptobyte.String
	if !s.ReadUint8(&hashAlg) || !s.ReadUint8(&sigAlg) || !s.ReadUint16LengthPrefixed(&sig) {
		return false
	}
	ds.HashAlgorithm = HashAlgorithm(hashAlg)
	ds.SignatureAlgorithm = SignatureAlgorithm(sigAlg)
	ds.Signature = append([]byte{}, sig...)
	return true
}

// ParseDigitallySigned parses the TLS serialization of a DigitallySigned,
// rejecting trailing data.
func ParseDigitallySigned(data []byte) (*DigitallySigned, error) {
	s := cryptobyte.String(data)
	ds := new(DigitallySigned)
	if !ds.Unmarshal(&s) {
		return nil, fmt.Errorf("malformed DigitallySigned")
	}
	if !s.Empty() {
		return nil, fmt.Errorf("trailing data after DigitallySigned")
	}
	return ds, nil
}
