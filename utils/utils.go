// utils.go - Helpers for scrubbing sensitive material.
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

// Package utils provides helpers for explicitly wiping key material.
package utils

import "math/big"

// ExplicitBzero explicitly clears out the buffer b, by filling it with 0x00
// bytes.
func ExplicitBzero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ExplicitBzeroUint32 explicitly clears out the buffer b, by filling it
// with 0x00000000s.
func ExplicitBzeroUint32(b []uint32) {
	for i := range b {
		b[i] = 0
	}
}

// BigIntWipe clears the word backing store of i and resets the value to
// zero, so that secrets held in an arbitrary precision integer do not
// outlive their use.  A nil i is a no-op.
func BigIntWipe(i *big.Int) {
	if i == nil {
		return
	}
	bits := i.Bits()
	for j := range bits {
		bits[j] = 0
	}
	i.SetInt64(0)
}
