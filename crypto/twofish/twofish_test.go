// twofish_test.go - Twofish tests.
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

import (
	"crypto/cipher"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizkyswandy/pangfish/crypto/rand"
)

func mustHex(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// Published ECB known answer vectors, one all zero vector per key size
// plus the full maturity vectors that every Twofish implementation ships.
var katVectors = []struct {
	name       string
	key        string
	plaintext  string
	ciphertext string
}{
	{
		name:       "128 bit zero key",
		key:        "00000000000000000000000000000000",
		plaintext:  "00000000000000000000000000000000",
		ciphertext: "9f589f5cf6122c32b6bfec2f2ae8c35a",
	},
	{
		name:       "192 bit zero key",
		key:        "000000000000000000000000000000000000000000000000",
		plaintext:  "00000000000000000000000000000000",
		ciphertext: "efa71f788965bd4453f860178fc19101",
	},
	{
		name:       "256 bit zero key",
		key:        "0000000000000000000000000000000000000000000000000000000000000000",
		plaintext:  "00000000000000000000000000000000",
		ciphertext: "57ff739d4dc92c1bd7fc01700cc8216f",
	},
	{
		name:       "128 bit",
		key:        "9f589f5cf6122c32b6bfec2f2ae8c35a",
		plaintext:  "d491db16e7b1c39e86cb086b789f5419",
		ciphertext: "019f9809de1711858faac3a3ba20fbc3",
	},
	{
		name:       "192 bit",
		key:        "88b2b2706b105e36b446bb6d731a1e88efa71f788965bd44",
		plaintext:  "39da69d6ba4997d585b6dc073ca341b2",
		ciphertext: "182b02d81497ea45f9daacdc29193a65",
	},
	{
		name:       "256 bit",
		key:        "d43bb7556ea32e46f2a282b7d45b4e0d57ff739d4dc92c1bd7fc01700cc8216f",
		plaintext:  "90afe91bb288544f2c32dc239b2635e6",
		ciphertext: "6cb4561c40bf0a9705931cb6d408e7fa",
	},
}

func TestKnownAnswers(t *testing.T) {
	for _, v := range katVectors {
		t.Run(v.name, func(t *testing.T) {
			c, err := New(mustHex(t, v.key))
			require.NoError(t, err)

			ct, err := c.EncryptBlock(mustHex(t, v.plaintext))
			require.NoError(t, err)
			assert.Equal(t, v.ciphertext, hex.EncodeToString(ct))

			pt, err := c.DecryptBlock(ct)
			require.NoError(t, err)
			assert.Equal(t, v.plaintext, hex.EncodeToString(pt))
		})
	}
}

func TestKeySizes(t *testing.T) {
	for _, n := range []int{16, 24, 32} {
		c, err := New(make([]byte, n))
		require.NoErrorf(t, err, "key size %d", n)
		require.NotNil(t, c)
	}
	for _, n := range []int{0, 1, 15, 17, 23, 25, 31, 33, 64} {
		_, err := New(make([]byte, n))
		require.Errorf(t, err, "key size %d", n)
		var kse KeySizeError
		require.ErrorAs(t, err, &kse)
		require.Equal(t, n, int(kse))
	}
}

func TestBlockSizes(t *testing.T) {
	c, err := New(make([]byte, 16))
	require.NoError(t, err)

	for _, n := range []int{0, 15, 17, 32} {
		_, err = c.EncryptBlock(make([]byte, n))
		assert.ErrorIs(t, err, ErrBlockSize)
		_, err = c.DecryptBlock(make([]byte, n))
		assert.ErrorIs(t, err, ErrBlockSize)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, n := range []int{16, 24, 32} {
		key := make([]byte, n)
		_, err := rand.Reader.Read(key)
		require.NoError(t, err)

		c, err := New(key)
		require.NoError(t, err)

		for i := 0; i < 128; i++ {
			block := make([]byte, BlockSize)
			_, err = rand.Reader.Read(block)
			require.NoError(t, err)

			ct, err := c.EncryptBlock(block)
			require.NoError(t, err)
			pt, err := c.DecryptBlock(ct)
			require.NoError(t, err)
			require.Equal(t, block, pt)
		}
	}
}

// The schedule must not advance between calls: encrypting the same block
// twice yields the same ciphertext.
func TestDeterministic(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Reader.Read(key)
	require.NoError(t, err)

	c, err := New(key)
	require.NoError(t, err)

	block := make([]byte, BlockSize)
	ct1, err := c.EncryptBlock(block)
	require.NoError(t, err)
	ct2, err := c.EncryptBlock(block)
	require.NoError(t, err)
	require.Equal(t, ct1, ct2)
}

func TestCipherBlockInterface(t *testing.T) {
	c, err := New(make([]byte, 16))
	require.NoError(t, err)

	var blk cipher.Block = c
	require.Equal(t, BlockSize, blk.BlockSize())

	src := mustHex(t, "00000000000000000000000000000000")
	dst := make([]byte, BlockSize)
	blk.Encrypt(dst, src)
	assert.Equal(t, "9f589f5cf6122c32b6bfec2f2ae8c35a", hex.EncodeToString(dst))

	// In place operation.
	blk.Encrypt(src, src)
	assert.Equal(t, dst, src)
}

func TestReset(t *testing.T) {
	c, err := New(make([]byte, 16))
	require.NoError(t, err)
	c.Reset()

	block := make([]byte, BlockSize)
	require.Panics(t, func() { c.Encrypt(block, block) })
	require.Panics(t, func() { c.Decrypt(block, block) })
}

func TestTables(t *testing.T) {
	// The expanded Q permutations must be bijections, and must match the
	// published first entries.
	for name, tbl := range map[string]*[256]byte{"q0": &qt0, "q1": &qt1} {
		seen := make(map[byte]bool)
		for _, v := range tbl {
			require.Falsef(t, seen[v], "%s is not a permutation", name)
			seen[v] = true
		}
	}
	assert.Equal(t, byte(0xA9), qt0[0])
	assert.Equal(t, byte(0x75), qt1[0])

	// Field multiplication sanity under both moduli.
	for _, mod := range []uint32{mdsMod, rsMod} {
		for i := 0; i < 256; i++ {
			b := byte(i)
			assert.Equal(t, b, gfMult(1, b, mod))
			assert.Equal(t, gfMult(b, 0x5B, mod), gfMult(0x5B, b, mod))
		}
	}
}

func BenchmarkEncrypt(b *testing.B) {
	c, err := New(make([]byte, 32))
	if err != nil {
		b.Fatal(err)
	}
	block := make([]byte, BlockSize)
	b.SetBytes(BlockSize)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Encrypt(block, block)
	}
}

func BenchmarkDecrypt(b *testing.B) {
	c, err := New(make([]byte, 32))
	if err != nil {
		b.Fatal(err)
	}
	block := make([]byte, BlockSize)
	b.SetBytes(BlockSize)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Decrypt(block, block)
	}
}
