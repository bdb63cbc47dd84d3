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

// Package ctcrypto validates STH and SCT signatures against the public keys
// of registered logs.
package ctcrypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/google/ctaudit/types"
)

// Trust-establishment failures.
var (
	// ErrSignatureInvalid means the signature does not verify over the
	// canonical signed structure with the log's key.
	ErrSignatureInvalid = errors.New("signature verification failed")
	// ErrUnsupportedAlgorithm means the declared hash or signature algorithm
	// is not implemented.
	ErrUnsupportedAlgorithm = errors.New("unsupported signature algorithm")
	// ErrUnknownLog means no public key is registered for the log ID.
	ErrUnknownLog = errors.New("unknown log")
)

// KeySource resolves a log ID to the log's public key. It is read-only;
// typically a loglist.Registry.
type KeySource interface {
	PublicKey(id types.LogID) (crypto.PublicKey, bool)
}

// Verifier validates signatures made by logs found in a KeySource.
type Verifier struct {
	keys KeySource
}

// NewVerifier returns a Verifier backed by the given key source.
func NewVerifier(keys KeySource) *Verifier {
	return &Verifier{keys: keys}
}

// VerifySTH checks the tree head signature of sth under the key registered
// for the given log ID.
func (v *Verifier) VerifySTH(id types.LogID, sth *types.SignedTreeHead) error {
	pub, ok := v.keys.PublicKey(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLog, id)
	}
	return VerifySignature(pub, types.TreeHeadSignatureInput(sth), &sth.TreeHeadSignature)
}

// VerifySCT checks the SCT signature over the given log entry under the key
// registered for the SCT's log ID.
func (v *Verifier) VerifySCT(sct *types.SignedCertificateTimestamp, entry *types.LogEntry) error {
	pub, ok := v.keys.PublicKey(sct.LogID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLog, sct.LogID)
	}
	input, err := types.CertificateTimestampInput(sct, entry)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return VerifySignature(pub, input, &sct.Signature)
}

// VerifySignature checks a TLS DigitallySigned signature over msg with the
// given public key. RFC 6962 2.1.4 restricts logs to SHA-256 with either
// ECDSA (NIST P-256) or RSA.
func VerifySignature(pub crypto.PublicKey, msg []byte, ds *types.DigitallySigned) error {
	if ds.HashAlgorithm != types.HashSHA256 {
		return fmt.Errorf("%w: hash algorithm %v", ErrUnsupportedAlgorithm, ds.HashAlgorithm)
	}
	digest := sha256.Sum256(msg)

	switch pub := pub.(type) {
	case *ecdsa.PublicKey:
		if ds.SignatureAlgorithm != types.SigECDSA {
			return fmt.Errorf("%w: algorithm %v does not match ECDSA key", ErrSignatureInvalid, ds.SignatureAlgorithm)
		}
		if !ecdsa.VerifyASN1(pub, digest[:], ds.Signature) {
			return ErrSignatureInvalid
		}
	case *rsa.PublicKey:
		if ds.SignatureAlgorithm != types.SigRSA {
			return fmt.Errorf("%w: algorithm %v does not match RSA key", ErrSignatureInvalid, ds.SignatureAlgorithm)
		}
		if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], ds.Signature); err != nil {
			return ErrSignatureInvalid
		}
	default:
		return fmt.Errorf("%w: key type %T", ErrUnsupportedAlgorithm, pub)
	}
	return nil
}
