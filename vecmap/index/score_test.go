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
	"math/rand"
	"testing"
)

func naiveMismatches(a, b []byte) (n int) {
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}

func TestCountMismatches(t *testing.T) {
	tests := []struct {
		a, b string
		n    int
	}{
		{"", "", 0},
		{"A", "A", 0},
		{"A", "C", 1},
		{"ACGT", "ACGT", 0},
		{"ACGT", "TGCA", 4},
		{"ACGTACGT", "ACGTACGT", 0},     // exactly one word
		{"ACGTACGT", "ACGTACGA", 1},     // mismatch in the last byte
		{"AACGTACGT", "CACGTACGT", 1},   // mismatch in the first byte
		{"ACGTACGTA", "ACGTACGTC", 1},   // mismatch in the tail
		{"ACGTACGTACGTACGTT", "ACGTACGTACGTACGTA", 1},
		{"NNNN", "ACGT", 4}, // any differing byte counts
	}

	for _, test := range tests {
		if n := countMismatches([]byte(test.a), []byte(test.b)); n != test.n {
			t.Errorf("countMismatches(%s, %s) = %d, expected %d", test.a, test.b, n, test.n)
		}
	}
}

func TestCountMismatchesRandom(t *testing.T) {
	r := rand.New(rand.NewSource(17))
	for l := 0; l <= 64; l++ {
		for i := 0; i < 20; i++ {
			a := randSeq(r, l)
			b := randSeq(r, l)
			if got, want := countMismatches(a, b), naiveMismatches(a, b); got != want {
				t.Fatalf("len %d: got %d, expected %d\na: %s\nb: %s", l, got, want, a, b)
			}
		}
	}
}

func TestScorerBatch(t *testing.T) {
	r := rand.New(rand.NewSource(19))
	ref := randSeq(r, 500)
	read := randSeq(r, 73) // odd length exercises the tail loop

	candidates := []int{0, 7, 123, 400, 427} // 427 = len(ref)-len(read)

	s := poolScorer.Get().(*scorer)
	counts := s.score(ref, read, candidates)

	if len(counts) != len(candidates) {
		t.Fatalf("got %d counts for %d candidates", len(counts), len(candidates))
	}
	for i, c := range candidates {
		if want := naiveMismatches(ref[c:c+len(read)], read); counts[i] != want {
			t.Errorf("candidate %d: got %d, expected %d", c, counts[i], want)
		}
	}

	// scoring is idempotent, buffers are reused
	again := s.score(ref, read, candidates)
	for i := range counts {
		if again[i] != counts[i] {
			t.Fatalf("count of candidate %d changed on rescoring", candidates[i])
		}
	}
	poolScorer.Put(s)

	// a pooled scorer with dirty buffers still scores correctly
	s = poolScorer.Get().(*scorer)
	counts = s.score(ref, read[:10], []int{42})
	if want := naiveMismatches(ref[42:52], read[:10]); counts[0] != want {
		t.Errorf("got %d, expected %d", counts[0], want)
	}
	poolScorer.Put(s)
}
