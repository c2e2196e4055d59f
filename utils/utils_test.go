// utils_test.go - Wiping helper tests.
// Copyright (C) 2025  Rizky Azmi Swandy.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package utils

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExplicitBzero(t *testing.T) {
	b := []byte{0xde, 0xad, 0xbe, 0xef}
	ExplicitBzero(b)
	for i, v := range b {
		require.Zerof(t, v, "byte %d not cleared", i)
	}
}

func TestBigIntWipe(t *testing.T) {
	i := new(big.Int).SetUint64(0xfeedfacecafebeef)
	backing := i.Bits()
	BigIntWipe(i)
	require.Zero(t, i.Sign())
	for _, w := range backing {
		require.Zero(t, uint64(w), "backing word not cleared")
	}

	BigIntWipe(nil) // must not panic
}
