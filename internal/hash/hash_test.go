/*
Copyright © 2026 the Spresso authors.
This file is part of Spresso.

Spresso is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Spresso is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Spresso.  If not, see <http://www.gnu.org/licenses/>.
*/

package hash

import (
	"math"
	"testing"
)

type shape interface{ area() float64 }

type square struct{ Side float64 }

func (s square) area() float64 { return s.Side * s.Side }

type holder struct {
	Name  string
	Shape shape
}

func TestHash(t *testing.T) {
	a := Hash(struct{ A, B float64 }{1, 2})
	if len(a) != 32 {
		t.Errorf("length: got %d, want 32", len(a))
	}
	if b := Hash(struct{ A, B float64 }{1, 2}); a != b {
		t.Errorf("hash is not stable: %s != %s", a, b)
	}
	if b := Hash(struct{ A, B float64 }{1, 3}); a == b {
		t.Errorf("different values have the same hash %s", a)
	}
}

// Interface fields of unregistered types fall back to spew.
func TestHashFallback(t *testing.T) {
	x := holder{Name: "x", Shape: square{Side: 2}}
	y := holder{Name: "x", Shape: square{Side: 3}}
	if Hash(x) != Hash(x) {
		t.Errorf("fallback hash is not stable")
	}
	if Hash(x) == Hash(y) {
		t.Errorf("fallback hash ignores interface values")
	}
	if Hash(map[float64]int{math.NaN(): 1}) == "" {
		t.Errorf("empty hash")
	}
}

func TestShort(t *testing.T) {
	if s := Short("abc", 8); len(s) != 8 {
		t.Errorf("got %q", s)
	}
	if s := Short("abc", 100); len(s) != 32 {
		t.Errorf("got %q", s)
	}
}
