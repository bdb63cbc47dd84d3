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

package merkle

import (
	"bytes"
	"errors"
	"fmt"
)

// RootMismatchError occurs when a proof reconstructs a root that differs
// from the expected one.
type RootMismatchError struct {
	ExpectedRoot   []byte
	CalculatedRoot []byte
}

func (e RootMismatchError) Error() string {
	return fmt.Sprintf("calculated root:\n%v\n does not match expected root:\n%v", e.CalculatedRoot, e.ExpectedRoot)
}

// LogVerifier verifies inclusion and consistency proofs for append only logs.
type LogVerifier struct {
	hasher LogHasher
}

// NewLogVerifier returns a new LogVerifier for a tree.
func NewLogVerifier(hasher LogHasher) LogVerifier {
	return LogVerifier{hasher: hasher}
}

// VerifyInclusion verifies the correctness of the proof given the passed in
// information about the tree and leaf. The leafHash must already be the
// RFC 6962 leaf hash of the entry, not the raw entry data.
func (v LogVerifier) VerifyInclusion(leafIndex, treeSize uint64, leafHash []byte, proof [][]byte, root []byte) error {
	calcRoot, err := v.RootFromInclusionProof(leafIndex, treeSize, leafHash, proof)
	if err != nil {
		return err
	}
	if !bytes.Equal(calcRoot, root) {
		return RootMismatchError{
			CalculatedRoot: calcRoot,
			ExpectedRoot:   root,
		}
	}
	return nil
}

// RootFromInclusionProof calculates the expected tree root given the proof
// and leaf hash. leafIndex starts at 0, treeSize starts at 1.
func (v LogVerifier) RootFromInclusionProof(leafIndex, treeSize uint64, leafHash []byte, proof [][]byte) ([]byte, error) {
	if leafIndex >= treeSize {
		return nil, fmt.Errorf("leafIndex %d out of range for treeSize %d", leafIndex, treeSize)
	}
	if got, want := len(leafHash), v.hasher.Size(); got != want {
		return nil, fmt.Errorf("leafHash has unexpected size %d, want %d", got, want)
	}

	index, last := leafIndex, treeSize-1
	hash := leafHash
	proofIndex := 0

	// Climb from the leaf towards the root. At each level the sibling either
	// comes from the proof, or (on the odd right border of the tree) the node
	// carries forward unchanged.
	for last > 0 {
		switch {
		case index%2 == 1:
			if proofIndex == len(proof) {
				return nil, fmt.Errorf("insufficient number of proof components (%d) for treeSize %d", len(proof), treeSize)
			}
			hash = v.hasher.HashChildren(proof[proofIndex], hash)
			proofIndex++
		case index < last:
			if proofIndex == len(proof) {
				return nil, fmt.Errorf("insufficient number of proof components (%d) for treeSize %d", len(proof), treeSize)
			}
			hash = v.hasher.HashChildren(hash, proof[proofIndex])
			proofIndex++
		default:
			// The sibling does not exist and the parent is a dummy copy.
		}
		index, last = index/2, last/2
	}
	if proofIndex != len(proof) {
		return nil, fmt.Errorf("invalid proof, expected %d components, but have %d", proofIndex, len(proof))
	}
	return hash, nil
}

// VerifyConsistency checks that the passed in consistency proof is valid
// between the passed in tree sizes, with respect to the corresponding roots.
func (v LogVerifier) VerifyConsistency(size1, size2 uint64, root1, root2 []byte, proof [][]byte) error {
	if size1 > size2 {
		return fmt.Errorf("size1 (%d) > size2 (%d)", size1, size2)
	}
	if size1 == size2 {
		if !bytes.Equal(root1, root2) {
			return RootMismatchError{
				CalculatedRoot: root1,
				ExpectedRoot:   root2,
			}
		}
		if len(proof) > 0 {
			return errors.New("root1 and root2 match, but proof is non-empty")
		}
		return nil
	}

	if size1 == 0 {
		// Any tree is consistent with the empty tree.
		if len(proof) > 0 {
			return fmt.Errorf("expected empty proof, but got %d components", len(proof))
		}
		return nil
	}

	if len(proof) == 0 {
		return errors.New("empty proof")
	}

	node, lastNode := size1-1, size2-1
	proofIndex := 0

	// Find the node at which the two trees diverge. While the node is a right
	// child its subtree is shared between both trees.
	for node%2 == 1 {
		node /= 2
		lastNode /= 2
	}

	var hash1, hash2 []byte
	if node > 0 {
		hash1 = proof[proofIndex]
		hash2 = proof[proofIndex]
		proofIndex++
	} else {
		// The tree at size1 was balanced, so root1 is a node of the size2 tree.
		hash1 = root1
		hash2 = root1
	}

	// Track two partial hashes: one reconstructing root1, the other root2.
	// They consume the same proof components until the size1 border is passed.
	for node > 0 {
		if proofIndex == len(proof) {
			return errors.New("insufficient number of proof components")
		}
		switch {
		case node%2 == 1:
			hash1 = v.hasher.HashChildren(proof[proofIndex], hash1)
			hash2 = v.hasher.HashChildren(proof[proofIndex], hash2)
			proofIndex++
		case node < lastNode:
			// The sibling only exists in the size2 tree.
			hash2 = v.hasher.HashChildren(hash2, proof[proofIndex])
			proofIndex++
		default:
			// The sibling does not exist in either tree.
		}
		node /= 2
		lastNode /= 2
	}

	if !bytes.Equal(hash1, root1) {
		return RootMismatchError{
			CalculatedRoot: hash1,
			ExpectedRoot:   root1,
		}
	}

	// Continue to the root of the size2 tree.
	for lastNode > 0 {
		if proofIndex == len(proof) {
			return errors.New("can't verify newer root; insufficient number of proof components")
		}
		hash2 = v.hasher.HashChildren(hash2, proof[proofIndex])
		proofIndex++
		lastNode /= 2
	}

	if !bytes.Equal(hash2, root2) {
		return RootMismatchError{
			CalculatedRoot: hash2,
			ExpectedRoot:   root2,
		}
	}
	if proofIndex != len(proof) {
		return errors.New("proof has too many components")
	}
	return nil
}
