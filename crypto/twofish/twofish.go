// twofish.go - Twofish block cipher.
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

// Package twofish implements the Twofish block cipher with a fully keyed
// substitution table, for 128, 192 and 256 bit keys.
//
// A keyed Twofish is safe for concurrent use, as the block transforms only
// read the schedule and write to caller supplied buffers.  Reset is a
// mutating operation and must be externally serialized.
package twofish

import (
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"math/bits"
	"strconv"

	"github.com/rizkyswandy/pangfish/utils"
)

// BlockSize is the Twofish block size in bytes.
const BlockSize = 16

const (
	numRounds = 16
	rho       = uint32(0x01010101)
)

// ErrBlockSize is the error returned when EncryptBlock or DecryptBlock is
// given an input that is not exactly BlockSize bytes.
var ErrBlockSize = errors.New("twofish: input is not 16 bytes")

// KeySizeError is the error returned when New is given a key of invalid
// length.
type KeySizeError int

func (k KeySizeError) Error() string {
	return "twofish: invalid key size " + strconv.Itoa(int(k))
}

// keyWords enumerates how many 64 bit key word pairs feed the h function.
type keyWords int

const (
	twoWords   keyWords = 2
	threeWords keyWords = 3
	fourWords  keyWords = 4
)

// Twofish is an instance of the cipher keyed with a particular key.  It
// implements crypto/cipher.Block.
type Twofish struct {
	k keyWords
	// roundKeys[0:8] are the input/output whitening keys, the remaining
	// 32 are the per round subkeys.
	roundKeys [40]uint32
	// The fully keyed S-boxes, with one MDS column pre-applied, so that a
	// substitute-and-mix of a word is 4 lookups XORed together.
	sbox [4][256]uint32
}

var _ cipher.Block = (*Twofish)(nil)

// New creates a Twofish instance keyed with key, which must be 16, 24 or
// 32 bytes.
func New(key []byte) (*Twofish, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, KeySizeError(len(key))
	}

	c := new(Twofish)
	c.k = keyWords(len(key) / 8)
	c.scheduleKey(key)
	return c, nil
}

// scheduleKey derives the round keys and the fully keyed S-boxes.  Key
// bytes are consumed in a canonical little endian word order regardless of
// host byte order.
func (c *Twofish) scheduleKey(key []byte) {
	k := int(c.k)

	var me, mo [4]uint32
	for i := 0; i < k; i++ {
		me[i] = binary.LittleEndian.Uint32(key[8*i:])
		mo[i] = binary.LittleEndian.Uint32(key[8*i+4:])
	}

	// Fold each 64 bit pair of key words through the RS matrix into the
	// S-box selector words, innermost pair last.
	var s [4]uint32
	for i := 0; i < k; i++ {
		var vector [8]byte
		for j := 0; j < 4; j++ {
			vector[j] = byte(me[i] >> (8 * j))
			vector[j+4] = byte(mo[i] >> (8 * j))
		}
		s[k-i-1] = rsMatrixMultiply(&vector)
	}

	for i := uint32(0); i < numRounds+4; i++ {
		a := hfun(2*i*rho, me[:], c.k)
		b := bits.RotateLeft32(hfun(2*i*rho+rho, mo[:], c.k), 8)
		c.roundKeys[2*i] = a + b
		c.roundKeys[2*i+1] = bits.RotateLeft32(a+2*b, 9)
	}

	c.buildSbox(s[:])

	utils.ExplicitBzeroUint32(me[:])
	utils.ExplicitBzeroUint32(mo[:])
	utils.ExplicitBzeroUint32(s[:])
}

// Selector tables for the outer fold stages of the h function: the four
// word stage and the three word stage apply different Q permutations per
// byte lane before XORing in their key word.
var outerPerm = [2][4]*[256]byte{
	{&qt1, &qt1, &qt0, &qt0}, // three word stage, folds l[2]
	{&qt1, &qt0, &qt0, &qt1}, // four word stage, folds l[3]
}

// qFold runs the keyed Q permutation cascade of the h function over the
// four bytes of x, folding in as many key words from l as k names, the
// innermost pair last.
func qFold(x uint32, l []uint32, k keyWords) (y0, y1, y2, y3 byte) {
	y0, y1, y2, y3 = byte(x), byte(x>>8), byte(x>>16), byte(x>>24)

	for i := int(k) - 1; i >= 2; i-- {
		p := &outerPerm[i-2]
		y0 = p[0][y0] ^ byte(l[i])
		y1 = p[1][y1] ^ byte(l[i]>>8)
		y2 = p[2][y2] ^ byte(l[i]>>16)
		y3 = p[3][y3] ^ byte(l[i]>>24)
	}

	// The two word core always runs.
	y0 = qt1[qt0[qt0[y0]^byte(l[1])]^byte(l[0])]
	y1 = qt0[qt0[qt1[y1]^byte(l[1]>>8)]^byte(l[0]>>8)]
	y2 = qt1[qt1[qt0[y2]^byte(l[1]>>16)]^byte(l[0]>>16)]
	y3 = qt0[qt1[qt1[y3]^byte(l[1]>>24)]^byte(l[0]>>24)]
	return
}

// hfun is the keyed non-linear mixing function h: the Q permutation
// cascade followed by the full MDS matrix multiply.
func hfun(x uint32, l []uint32, k keyWords) uint32 {
	y0, y1, y2, y3 := qFold(x, l, k)

	z0 := multEF[y0] ^ y1 ^ multEF[y2] ^ mult5B[y3]
	z1 := multEF[y0] ^ mult5B[y1] ^ y2 ^ multEF[y3]
	z2 := mult5B[y0] ^ multEF[y1] ^ multEF[y2] ^ y3
	z3 := y0 ^ multEF[y1] ^ mult5B[y2] ^ mult5B[y3]

	return uint32(z0)<<24 | uint32(z1)<<16 | uint32(z2)<<8 | uint32(z3)
}

// buildSbox materializes the fully keyed S-boxes from the RS-folded
// selector words, pre-applying one MDS column per table.
func (c *Twofish) buildSbox(s []uint32) {
	for i := 0; i < 256; i++ {
		x := uint32(i) | uint32(i)<<8 | uint32(i)<<16 | uint32(i)<<24
		y0, y1, y2, y3 := qFold(x, s, c.k)

		c.sbox[0][i] = uint32(multEF[y0])<<24 | uint32(multEF[y0])<<16 |
			uint32(mult5B[y0])<<8 | uint32(y0)
		c.sbox[1][i] = uint32(y1)<<24 | uint32(mult5B[y1])<<16 |
			uint32(multEF[y1])<<8 | uint32(multEF[y1])
		c.sbox[2][i] = uint32(multEF[y2])<<24 | uint32(y2)<<16 |
			uint32(multEF[y2])<<8 | uint32(mult5B[y2])
		c.sbox[3][i] = uint32(mult5B[y3])<<24 | uint32(multEF[y3])<<16 |
			uint32(y3)<<8 | uint32(mult5B[y3])
	}
}

// g is the fully keyed substitute-and-mix of one 32 bit word.
func (c *Twofish) g(x uint32) uint32 {
	return c.sbox[0][byte(x)] ^ c.sbox[1][byte(x>>8)] ^
		c.sbox[2][byte(x>>16)] ^ c.sbox[3][byte(x>>24)]
}

// BlockSize returns the cipher's block size in bytes.
func (c *Twofish) BlockSize() int {
	return BlockSize
}

// Encrypt encrypts the 16 byte block src into dst, as per cipher.Block.
// Dst and src may overlap entirely or not at all.
func (c *Twofish) Encrypt(dst, src []byte) {
	if len(src) < BlockSize {
		panic("twofish: input not full block")
	}
	if len(dst) < BlockSize {
		panic("twofish: output not full block")
	}
	if c.k == 0 {
		panic("twofish: use of unkeyed cipher")
	}

	k := &c.roundKeys

	// Load and whiten.
	r0 := k[0] ^ binary.LittleEndian.Uint32(src[0:4])
	r1 := k[1] ^ binary.LittleEndian.Uint32(src[4:8])
	r2 := k[2] ^ binary.LittleEndian.Uint32(src[8:12])
	r3 := k[3] ^ binary.LittleEndian.Uint32(src[12:16])

	// Two rounds per iteration, with the word swap folded into which
	// pair each half round writes.
	for r := 0; r < numRounds; r += 2 {
		t0 := c.g(r0)
		t1 := c.g(bits.RotateLeft32(r1, 8))
		r2 = bits.RotateLeft32(r2^(t1+t0+k[2*r+8]), -1)
		r3 = bits.RotateLeft32(r3, 1) ^ (2*t1 + t0 + k[2*r+9])

		t0 = c.g(r2)
		t1 = c.g(bits.RotateLeft32(r3, 8))
		r0 = bits.RotateLeft32(r0^(t1+t0+k[2*r+10]), -1)
		r1 = bits.RotateLeft32(r1, 1) ^ (2*t1 + t0 + k[2*r+11])
	}

	// Undo the last swap and whiten.
	binary.LittleEndian.PutUint32(dst[0:4], r2^k[4])
	binary.LittleEndian.PutUint32(dst[4:8], r3^k[5])
	binary.LittleEndian.PutUint32(dst[8:12], r0^k[6])
	binary.LittleEndian.PutUint32(dst[12:16], r1^k[7])
}

// Decrypt decrypts the 16 byte block src into dst, as per cipher.Block.
// It is the exact mirror of Encrypt: rounds run in reverse, the PHT sums
// swap targets, the rotate directions reverse and the whitening keys trade
// places.
func (c *Twofish) Decrypt(dst, src []byte) {
	if len(src) < BlockSize {
		panic("twofish: input not full block")
	}
	if len(dst) < BlockSize {
		panic("twofish: output not full block")
	}
	if c.k == 0 {
		panic("twofish: use of unkeyed cipher")
	}

	k := &c.roundKeys

	r0 := k[4] ^ binary.LittleEndian.Uint32(src[0:4])
	r1 := k[5] ^ binary.LittleEndian.Uint32(src[4:8])
	r2 := k[6] ^ binary.LittleEndian.Uint32(src[8:12])
	r3 := k[7] ^ binary.LittleEndian.Uint32(src[12:16])

	for r := numRounds - 1; r > 0; r -= 2 {
		t0 := c.g(r0)
		t1 := c.g(bits.RotateLeft32(r1, 8))
		r2 = bits.RotateLeft32(r2, 1) ^ (t0 + t1 + k[2*r+8])
		r3 = bits.RotateLeft32(r3^(t0+2*t1+k[2*r+9]), -1)

		t0 = c.g(r2)
		t1 = c.g(bits.RotateLeft32(r3, 8))
		r0 = bits.RotateLeft32(r0, 1) ^ (t0 + t1 + k[2*r+6])
		r1 = bits.RotateLeft32(r1^(t0+2*t1+k[2*r+7]), -1)
	}

	binary.LittleEndian.PutUint32(dst[0:4], r2^k[0])
	binary.LittleEndian.PutUint32(dst[4:8], r3^k[1])
	binary.LittleEndian.PutUint32(dst[8:12], r0^k[2])
	binary.LittleEndian.PutUint32(dst[12:16], r1^k[3])
}

// EncryptBlock encrypts a single 16 byte block and returns the ciphertext,
// or ErrBlockSize if block is not exactly 16 bytes.
func (c *Twofish) EncryptBlock(block []byte) ([]byte, error) {
	if len(block) != BlockSize {
		return nil, ErrBlockSize
	}
	out := make([]byte, BlockSize)
	c.Encrypt(out, block)
	return out, nil
}

// DecryptBlock decrypts a single 16 byte block and returns the plaintext,
// or ErrBlockSize if block is not exactly 16 bytes.
func (c *Twofish) DecryptBlock(block []byte) ([]byte, error) {
	if len(block) != BlockSize {
		return nil, ErrBlockSize
	}
	out := make([]byte, BlockSize)
	c.Decrypt(out, block)
	return out, nil
}

// Reset clears the key schedule.  The cipher is unusable afterwards.
func (c *Twofish) Reset() {
	c.k = 0
	utils.ExplicitBzeroUint32(c.roundKeys[:])
	for i := range c.sbox {
		utils.ExplicitBzeroUint32(c.sbox[i][:])
	}
}
