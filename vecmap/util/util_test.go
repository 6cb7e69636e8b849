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

package util

import (
	"math/rand"
	"sort"
	"testing"
)

func TestUniqInts(t *testing.T) {
	tests := []struct {
		in, out []int
	}{
		{[]int{}, []int{}},
		{[]int{5}, []int{5}},
		{[]int{5, 5}, []int{5}},
		{[]int{3, 1, 2}, []int{1, 2, 3}},
		{[]int{2, 1, 2, 1, 2}, []int{1, 2}},
		{[]int{9, 9, 9, 9}, []int{9}},
		{[]int{4, 0, 4, 8, 0, 12}, []int{0, 4, 8, 12}},
	}

	for _, test := range tests {
		list := make([]int, len(test.in))
		copy(list, test.in)
		UniqInts(&list)

		if len(list) != len(test.out) {
			t.Errorf("UniqInts(%v) = %v, expected %v", test.in, list, test.out)
			continue
		}
		for i := range list {
			if list[i] != test.out[i] {
				t.Errorf("UniqInts(%v) = %v, expected %v", test.in, list, test.out)
				break
			}
		}
	}
}

func TestUniqIntsRandom(t *testing.T) {
	r := rand.New(rand.NewSource(23))
	for i := 0; i < 100; i++ {
		n := r.Intn(200)
		list := make([]int, n)
		seen := make(map[int]struct{}, n)
		for j := range list {
			v := r.Intn(50)
			list[j] = v
			seen[v] = struct{}{}
		}

		UniqInts(&list)

		if len(list) != len(seen) {
			t.Fatalf("kept %d of %d distinct values", len(list), len(seen))
		}
		if !sort.IntsAreSorted(list) {
			t.Fatalf("result not sorted: %v", list)
		}
		for _, v := range list {
			if _, ok := seen[v]; !ok {
				t.Fatalf("unexpected value %d", v)
			}
		}
	}
}
