// Copyright © 2024-2025 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package index

import (
	"bytes"
	"math/rand"
	"testing"
)

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func randSeq(r *rand.Rand, n int) []byte {
	bases := []byte("ACGT")
	s := make([]byte, n)
	for i := range s {
		s[i] = bases[r.Intn(4)]
	}
	return s
}

func TestIndexPositions(t *testing.T) {
	idx, err := NewIndex([]byte("ACGTACGTACGT"), 4)
	if err != nil {
		t.Fatal(err)
	}

	if locs := idx.Positions([]byte("ACGT")); !equalInts(locs, []int{0, 4, 8}) {
		t.Errorf("positions of ACGT: %v", locs)
	}
	if locs := idx.Positions([]byte("CGTA")); !equalInts(locs, []int{1, 5, 9}) {
		t.Errorf("positions of CGTA: %v", locs)
	}
	if locs := idx.Positions([]byte("AAAA")); locs != nil {
		t.Errorf("positions of an absent k-mer: %v", locs)
	}
	if locs := idx.Positions([]byte("ACG")); locs != nil {
		t.Errorf("positions of a k-mer of the wrong length: %v", locs)
	}

	// ACGT, CGTA, GTAC, TACG
	if n := idx.NumKmers(); n != 4 {
		t.Errorf("distinct k-mers: %d", n)
	}
}

func TestIndexInvalidArgs(t *testing.T) {
	if _, err := NewIndex([]byte(""), 4); err != ErrEmptyReference {
		t.Errorf("empty reference: %v", err)
	}
	if _, err := NewIndex([]byte("ACGT"), 0); err != ErrInvalidKmerLen {
		t.Errorf("k = 0: %v", err)
	}
	if _, err := NewIndex([]byte("ACGT"), -1); err != ErrInvalidKmerLen {
		t.Errorf("k < 0: %v", err)
	}
	if _, err := NewIndex([]byte("ACGT"), 5); err != ErrInvalidKmerLen {
		t.Errorf("k > reference length: %v", err)
	}
	if _, err := NewIndex([]byte("ACGT"), 4); err != nil {
		t.Errorf("k = reference length: %v", err)
	}
}

func TestIndexCaseNormalization(t *testing.T) {
	idx, err := NewIndex([]byte("acgtAcGtacgt"), 4)
	if err != nil {
		t.Fatal(err)
	}
	if locs := idx.Positions([]byte("ACGT")); !equalInts(locs, []int{0, 4, 8}) {
		t.Errorf("positions of ACGT in a lowercase reference: %v", locs)
	}
	// lookups are case-insensitive too
	if locs := idx.Positions([]byte("acgt")); !equalInts(locs, []int{0, 4, 8}) {
		t.Errorf("positions of acgt: %v", locs)
	}
}

func TestIndexSkipsAmbiguousWindows(t *testing.T) {
	// windows containing the N can never match a clean seed
	idx, err := NewIndex([]byte("ACGTNACGT"), 4)
	if err != nil {
		t.Fatal(err)
	}
	if locs := idx.Positions([]byte("ACGT")); !equalInts(locs, []int{0, 5}) {
		t.Errorf("positions of ACGT: %v", locs)
	}
	if n := idx.NumKmers(); n != 1 {
		t.Errorf("distinct k-mers: %d", n)
	}
}

func TestWalkKmers(t *testing.T) {
	idx, err := NewIndex([]byte("ACGTACGTACGT"), 4)
	if err != nil {
		t.Fatal(err)
	}

	var kms [][]byte
	var locss [][]int
	err = idx.WalkKmers(func(kmer []byte, positions []int) bool {
		kms = append(kms, kmer)
		locss = append(locss, positions)
		return true
	})
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{"ACGT", "CGTA", "GTAC", "TACG"}
	if len(kms) != len(expected) {
		t.Fatalf("walked %d k-mers, expected %d", len(kms), len(expected))
	}
	for i, e := range expected {
		if !bytes.Equal(kms[i], []byte(e)) {
			t.Errorf("k-mer #%d: %s, expected %s", i, kms[i], e)
		}
	}
	if !equalInts(locss[0], []int{0, 4, 8}) {
		t.Errorf("positions of ACGT: %v", locss[0])
	}
}

func TestIndexLargeK(t *testing.T) {
	// k > 32 stores wyhash values instead of 2-bit codes
	r := rand.New(rand.NewSource(1))
	ref := randSeq(r, 200)

	k := 40
	idx, err := NewIndex(ref, k)
	if err != nil {
		t.Fatal(err)
	}
	if !idx.hashed {
		t.Fatal("expected a hashed index for k = 40")
	}

	if err = idx.WalkKmers(func([]byte, []int) bool { return true }); err != ErrKmerTooLarge {
		t.Errorf("walking a hashed index: %v", err)
	}

	if locs := idx.Positions(ref[60 : 60+k]); len(locs) == 0 || locs[0] != 60 {
		t.Errorf("positions of the k-mer at 60: %v", locs)
	}

	// searching still verifies real bytes
	read := make([]byte, 50)
	copy(read, ref[60:110])
	sr, err := idx.Search(read)
	if err != nil {
		t.Fatal(err)
	}
	if sr == nil {
		t.Fatal("read unmapped")
	}
	if sr.Pos != 60 || sr.Mismatches != 0 {
		t.Errorf("got (%d, %d), expected (60, 0)", sr.Pos, sr.Mismatches)
	}
	idx.RecycleSearchResult(sr)
}
