// tables.go - Twofish finite field tables.
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

package twofish

// The cipher works over GF(2^8) under two different reduction polynomials,
// one for the MDS matrix multiply and one for the Reed-Solomon fold of the
// key material into the S-box selector words.
const (
	mdsMod = 0x169 // x^8 + x^6 + x^5 + x^3 + 1
	rsMod  = 0x14d // x^8 + x^6 + x^3 + x^2 + 1
)

// The fixed 4x8 Reed-Solomon code matrix.
var rs = [4][8]byte{
	{0x01, 0xA4, 0x55, 0x87, 0x5A, 0x58, 0xDB, 0x9E},
	{0xA4, 0x56, 0x82, 0xF3, 0x1E, 0xC6, 0x68, 0xE5},
	{0x02, 0xA1, 0xFC, 0xC1, 0x47, 0xAE, 0x3D, 0x19},
	{0xA4, 0x55, 0x87, 0x5A, 0x58, 0xDB, 0x9E, 0x03},
}

// Nibble tables defining the two fixed Q permutations.
var q0nib = [4][16]byte{
	{0x8, 0x1, 0x7, 0xD, 0x6, 0xF, 0x3, 0x2, 0x0, 0xB, 0x5, 0x9, 0xE, 0xC, 0xA, 0x4},
	{0xE, 0xC, 0xB, 0x8, 0x1, 0x2, 0x3, 0x5, 0xF, 0x4, 0xA, 0x6, 0x7, 0x0, 0x9, 0xD},
	{0xB, 0xA, 0x5, 0xE, 0x6, 0xD, 0x9, 0x0, 0xC, 0x8, 0xF, 0x3, 0x2, 0x4, 0x7, 0x1},
	{0xD, 0x7, 0xF, 0x4, 0x1, 0x2, 0x6, 0xE, 0x9, 0xB, 0x3, 0x0, 0x8, 0x5, 0xC, 0xA},
}

var q1nib = [4][16]byte{
	{0x2, 0x8, 0xB, 0xD, 0xF, 0x7, 0x6, 0xE, 0x3, 0x1, 0x9, 0x4, 0x0, 0xA, 0xC, 0x5},
	{0x1, 0xE, 0x2, 0xB, 0x4, 0xC, 0x3, 0x7, 0x6, 0xD, 0xA, 0x5, 0xF, 0x9, 0x0, 0x8},
	{0x4, 0xC, 0x7, 0x5, 0x1, 0x6, 0x9, 0xA, 0x0, 0xE, 0xD, 0x8, 0x2, 0xB, 0x3, 0xF},
	{0xB, 0x9, 0x5, 0x1, 0xC, 0x3, 0xD, 0xE, 0x6, 0x4, 0x7, 0xF, 0x2, 0x0, 0x8, 0xA},
}

// Precomputed byte tables, built once at startup and never mutated:
// the expanded Q permutations and the partial MDS column multiplies.
var (
	qt0    [256]byte
	qt1    [256]byte
	mult5B [256]byte
	multEF [256]byte
)

func init() {
	for i := 0; i < 256; i++ {
		qt0[i] = qPermute(byte(i), &q0nib)
		qt1[i] = qPermute(byte(i), &q1nib)
		mult5B[i] = gfMult(0x5B, byte(i), mdsMod)
		multEF[i] = gfMult(0xEF, byte(i), mdsMod)
	}
}

// polyMult multiplies two polynomials over GF(2), represented as the bits
// of a and b, without reduction.
func polyMult(a, b uint32) uint32 {
	var t uint32
	for a != 0 {
		if a&1 != 0 {
			t ^= b
		}
		b <<= 1
		a >>= 1
	}
	return t
}

// gfMod reduces the polynomial t modulo modulus, one bit at a time from the
// top, via conditional XOR.
func gfMod(t, modulus uint32) uint32 {
	modulus <<= 7
	for i := 0; i < 8; i++ {
		tt := t ^ modulus
		if tt < t {
			t = tt
		}
		modulus >>= 1
	}
	return t
}

// gfMult multiplies a and b in GF(2^8) under the given reduction polynomial.
func gfMult(a, b byte, modulus uint32) byte {
	return byte(gfMod(polyMult(uint32(a), uint32(b)), modulus))
}

func ror4(x byte) byte {
	return (x >> 1) | (x&1)<<3
}

// qPermute evaluates one of the fixed Q permutations, defined by its four
// nibble tables, at x.
func qPermute(x byte, q *[4][16]byte) byte {
	a0, b0 := x>>4, x&0xf
	a1 := a0 ^ b0
	b1 := (a0 ^ ror4(b0) ^ a0<<3) & 0xf
	a2, b2 := q[0][a1], q[1][b1]
	a3 := a2 ^ b2
	b3 := (a2 ^ ror4(b2) ^ a2<<3) & 0xf
	a4, b4 := q[2][a3], q[3][b3]
	return b4<<4 | a4
}

// rsMatrixMultiply multiplies the RS code matrix by the 8 byte vector sd,
// folding 64 bits of key material into one S-box selector word.
func rsMatrixMultiply(sd *[8]byte) uint32 {
	var result [4]byte
	for j := 0; j < 4; j++ {
		var t byte
		for k := 0; k < 8; k++ {
			t ^= gfMult(rs[j][k], sd[k], rsMod)
		}
		result[3-j] = t
	}
	return uint32(result[0])<<24 | uint32(result[1])<<16 | uint32(result[2])<<8 | uint32(result[3])
}
