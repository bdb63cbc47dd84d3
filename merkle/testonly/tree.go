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

// Package testonly contains a reference Merkle tree implementation built
// directly from the recursive definitions in RFC 6962 section 2.1. It is
// deliberately naive: proofs produced here are the independent ground truth
// that the verifier package is tested against.
package testonly

import (
	"fmt"

	"github.com/google/ctaudit/merkle"
)

// Tree is an in-memory append-only Merkle tree over raw leaf data.
type Tree struct {
	hasher merkle.LogHasher
	leaves [][]byte
}

// NewTree creates an empty reference tree using the given hasher.
func NewTree(hasher merkle.LogHasher) *Tree {
	return &Tree{hasher: hasher}
}

// Append adds one leaf entry to the tree.
func (t *Tree) Append(data []byte) {
	t.leaves = append(t.leaves, data)
}

// Size returns the current number of leaves.
func (t *Tree) Size() uint64 {
	return uint64(len(t.leaves))
}

// LeafHash returns the leaf hash of the entry at the given index.
func (t *Tree) LeafHash(index uint64) []byte {
	return t.hasher.HashLeaf(t.leaves[index])
}

// RootAt returns the root hash of the tree truncated to the given size.
// RFC 6962 2.1: MTH.
func (t *Tree) RootAt(size uint64) []byte {
	if size == 0 {
		return t.hasher.EmptyRoot()
	}
	return t.rootOf(0, size)
}

func (t *Tree) rootOf(begin, end uint64) []byte {
	if end-begin == 1 {
		return t.hasher.HashLeaf(t.leaves[begin])
	}
	k := largestPowerOfTwoBelow(end - begin)
	return t.hasher.HashChildren(t.rootOf(begin, begin+k), t.rootOf(begin+k, end))
}

// InclusionProof returns the audit path for the leaf at index in the tree of
// the given size. RFC 6962 2.1.1: PATH.
func (t *Tree) InclusionProof(index, size uint64) ([][]byte, error) {
	if index >= size || size > t.Size() {
		return nil, fmt.Errorf("index %d or size %d out of range for tree of size %d", index, size, t.Size())
	}
	return t.path(index, 0, size), nil
}

func (t *Tree) path(index, begin, end uint64) [][]byte {
	if end-begin == 1 {
		return nil
	}
	k := largestPowerOfTwoBelow(end - begin)
	if index-begin < k {
		return append(t.path(index, begin, begin+k), t.rootOf(begin+k, end))
	}
	return append(t.path(index, begin+k, end), t.rootOf(begin, begin+k))
}

// ConsistencyProof returns the consistency proof between the two tree sizes.
// RFC 6962 2.1.2: PROOF and SUBPROOF.
func (t *Tree) ConsistencyProof(size1, size2 uint64) ([][]byte, error) {
	if size1 > size2 || size2 > t.Size() {
		return nil, fmt.Errorf("sizes %d, %d out of range for tree of size %d", size1, size2, t.Size())
	}
	if size1 == size2 || size1 == 0 {
		return nil, nil
	}
	return t.subproof(size1, 0, size2, true), nil
}

func (t *Tree) subproof(m, begin, end uint64, complete bool) [][]byte {
	if m == end-begin {
		if complete {
			return nil
		}
		return [][]byte{t.rootOf(begin, end)}
	}
	k := largestPowerOfTwoBelow(end - begin)
	if m <= k {
		return append(t.subproof(m, begin, begin+k, complete), t.rootOf(begin+k, end))
	}
	return append(t.subproof(m-k, begin+k, end, false), t.rootOf(begin, begin+k))
}

// largestPowerOfTwoBelow returns the largest power of two strictly less
// than n. Input must be > 1.
func largestPowerOfTwoBelow(n uint64) uint64 {
	k := uint64(1)
	for k*2 < n {
		k *= 2
	}
	return k
}
