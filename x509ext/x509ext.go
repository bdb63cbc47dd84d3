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

// Package x509ext handles the Certificate Transparency X.509v3 extensions
// (RFC 6962 3.3): extracting embedded SCT lists from certificates and
// reconstructing the precertificate TBS a log signed over.
package x509ext

import (
	"crypto/sha256"
	"crypto/x509"
	encasn1 "encoding/asn1"
	"fmt"

	"github.com/google/ctaudit/types"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// Extension OIDs assigned to CT in RFC 6962 3.1 and 3.3.
var (
	// OIDExtensionSCTList marks the embedded SignedCertificateTimestampList.
	OIDExtensionSCTList = encasn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 11129, 2, 4, 2}
	// OIDExtensionCTPoison marks a precertificate; always critical with a
	// NULL value so unaware validators reject the certificate.
	OIDExtensionCTPoison = encasn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 11129, 2, 4, 3}
)

// derNull is the encoded value the poison extension must carry.
var derNull = []byte{0x05, 0x00}

// ExtractSCTs returns the SCTs embedded in cert's SCT list extension, or nil
// if the certificate carries none.
func ExtractSCTs(cert *x509.Certificate) ([]*types.SignedCertificateTimestamp, error) {
	var scts []*types.SignedCertificateTimestamp
	for _, ext := range cert.Extensions {
		if !ext.Id.Equal(OIDExtensionSCTList) {
			continue
		}
		// The extension value is an OCTET STRING holding the TLS-encoded list.
		inner := cryptobyte.String(ext.Value)
		var list cryptobyte.String
		if !inner.ReadASN1(&list, asn1.OCTET_STRING) || !inner.Empty() {
			return nil, fmt.Errorf("malformed SCT list extension")
		}
		parsed, err := types.ParseSCTList(list)
		if err != nil {
			return nil, err
		}
		scts = append(scts, parsed...)
	}
	return scts, nil
}

// IsPrecert reports whether cert is a precertificate: exactly one critical
// poison extension with a NULL value, and no embedded SCT list. A
// certificate with both is malformed.
func IsPrecert(cert *x509.Certificate) (bool, error) {
	var poisons, scts int
	for _, ext := range cert.Extensions {
		switch {
		case ext.Id.Equal(OIDExtensionCTPoison) && ext.Critical && string(ext.Value) == string(derNull):
			poisons++
		case ext.Id.Equal(OIDExtensionSCTList):
			scts++
		}
	}
	switch {
	case poisons == 1 && scts == 0:
		return true, nil
	case poisons == 0:
		return false, nil
	}
	return false, fmt.Errorf("certificate mixes poison and SCT list extensions")
}

// IssuerKeyHash returns the SHA-256 hash of the issuer's public key in
// SubjectPublicKeyInfo form, as used in PreCert entries (RFC 6962 3.2).
func IssuerKeyHash(issuer *x509.Certificate) [sha256.Size]byte {
	return sha256.Sum256(issuer.RawSubjectPublicKeyInfo)
}

// BuildEntry reconstructs the LogEntry a log signed for the given leaf. A
// leaf with embedded SCTs or a poison extension yields a PreCert entry whose
// TBS has the CT extensions stripped; any other leaf yields an X509 entry.
// issuer may be nil only for X509 entries.
func BuildEntry(leaf, issuer *x509.Certificate) (*types.LogEntry, error) {
	precert, err := IsPrecert(leaf)
	if err != nil {
		return nil, err
	}
	embedded, err := ExtractSCTs(leaf)
	if err != nil {
		return nil, err
	}
	if !precert && len(embedded) == 0 {
		return &types.LogEntry{Type: types.X509LogEntryType, Certificate: leaf.Raw}, nil
	}
	if issuer == nil {
		return nil, fmt.Errorf("issuer certificate required to reconstruct a PreCert entry")
	}
	tbs, err := PrecertTBS(leaf)
	if err != nil {
		return nil, err
	}
	return &types.LogEntry{
		Type:          types.PrecertLogEntryType,
		IssuerKeyHash: IssuerKeyHash(issuer),
		TBS:           tbs,
	}, nil
}

// PrecertTBS returns cert's TBSCertificate re-encoded without the SCT list
// and poison extensions, recomputing all enclosing lengths. This is the
// exact byte string a log signs for a PreCert entry.
func PrecertTBS(cert *x509.Certificate) ([]byte, error) {
	input := cryptobyte.String(cert.RawTBSCertificate)
	var tbs cryptobyte.String
	if !input.ReadASN1(&tbs, asn1.SEQUENCE) || !input.Empty() {
		return nil, fmt.Errorf("malformed TBSCertificate")
	}

	extensionsTag := asn1.Tag(3).Constructed().ContextSpecific()
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		for !tbs.Empty() {
			var elem cryptobyte.String
			var tag asn1.Tag
			if !tbs.ReadAnyASN1Element(&elem, &tag) {
				b.SetError(fmt.Errorf("malformed TBSCertificate element"))
				return
			}
			if tag != extensionsTag {
				b.AddBytes(elem)
				continue
			}
			kept, err := stripCTExtensions(elem)
			if err != nil {
				b.SetError(err)
				return
			}
			// An emptied extension list is omitted entirely.
			if len(kept) == 0 {
				continue
			}
			b.AddASN1(extensionsTag, func(b *cryptobyte.Builder) {
				b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
					b.AddBytes(kept)
				})
			})
		}
	})
	return b.Bytes()
}

// stripCTExtensions takes the raw [3] extensions element and returns the
// concatenated encodings of all extensions except the CT ones.
func stripCTExtensions(elem cryptobyte.String) ([]byte, error) {
	var wrapper, exts cryptobyte.String
	if !elem.ReadASN1(&wrapper, asn1.Tag(3).Constructed().ContextSpecific()) ||
		!wrapper.ReadASN1(&exts, asn1.SEQUENCE) || !wrapper.Empty() {
		return nil, fmt.Errorf("malformed extensions field")
	}
	var kept []byte
	for !exts.Empty() {
		var ext cryptobyte.String
		if !exts.ReadASN1Element(&ext, asn1.SEQUENCE) {
			return nil, fmt.Errorf("malformed extension")
		}
		body := ext
		var inner cryptobyte.String
		var oid encasn1.ObjectIdentifier
		if !body.ReadASN1(&inner, asn1.SEQUENCE) || !inner.ReadASN1ObjectIdentifier(&oid) {
			return nil, fmt.Errorf("malformed extension OID")
		}
		if oid.Equal(OIDExtensionSCTList) || oid.Equal(OIDExtensionCTPoison) {
			continue
		}
		kept = append(kept, ext...)
	}
	return kept, nil
}
