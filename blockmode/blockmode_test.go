// blockmode_test.go - block mode tests.
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

package blockmode

import (
	"crypto/cipher"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizkyswandy/pangfish/crypto/rand"
	"github.com/rizkyswandy/pangfish/crypto/twofish"
)

func newTestBlock(t *testing.T) cipher.Block {
	key := make([]byte, 32)
	_, err := rand.Reader.Read(key)
	require.NoError(t, err)

	b, err := twofish.New(key)
	require.NoError(t, err)
	return b
}

func TestPadding(t *testing.T) {
	for _, length := range []int{0, 1, 15, 16, 17, 31, 32, 100} {
		data := make([]byte, length)
		padded := pad(data, 16)
		require.Zerof(t, len(padded)%16, "length %d", length)
		// Aligned input gets a full extra block.
		wantPad := 16 - length%16
		require.Equalf(t, length+wantPad, len(padded), "length %d", length)
		assert.Equal(t, byte(wantPad), padded[len(padded)-1])

		unpadded, err := unpad(padded, 16)
		require.NoError(t, err)
		assert.Equal(t, data, unpadded)
	}
}

func TestUnpadRejectsGarbage(t *testing.T) {
	_, err := unpad([]byte{}, 16)
	assert.ErrorIs(t, err, ErrNotBlockAligned)
	_, err = unpad(make([]byte, 15), 16)
	assert.ErrorIs(t, err, ErrNotBlockAligned)

	block := make([]byte, 16)
	block[15] = 0 // pad length zero
	_, err = unpad(block, 16)
	assert.ErrorIs(t, err, ErrInvalidPadding)

	block[15] = 17 // pad length over the block size
	_, err = unpad(block, 16)
	assert.ErrorIs(t, err, ErrInvalidPadding)

	block[15] = 4 // trailing bytes disagree with the pad length
	block[14] = 3
	_, err = unpad(block, 16)
	assert.ErrorIs(t, err, ErrInvalidPadding)
}

func TestECBRoundTrip(t *testing.T) {
	b := newTestBlock(t)

	for _, length := range []int{0, 1, 16, 33, 1024} {
		data := make([]byte, length)
		_, err := rand.Reader.Read(data)
		require.NoError(t, err)

		encrypted, err := EncryptECB(b, data)
		require.NoError(t, err)
		require.Zero(t, len(encrypted)%twofish.BlockSize)
		require.NotEqual(t, data, encrypted)

		decrypted, err := DecryptECB(b, encrypted)
		require.NoError(t, err)
		assert.Equal(t, data, decrypted)
	}
}

func TestCBCRoundTrip(t *testing.T) {
	b := newTestBlock(t)

	for _, length := range []int{0, 1, 16, 33, 1024} {
		data := make([]byte, length)
		_, err := rand.Reader.Read(data)
		require.NoError(t, err)

		encrypted, err := EncryptCBC(b, nil, data)
		require.NoError(t, err)
		// IV plus padded payload.
		require.Equal(t, twofish.BlockSize+length+(16-length%16), len(encrypted))

		decrypted, err := DecryptCBC(b, encrypted)
		require.NoError(t, err)
		assert.Equal(t, data, decrypted)
	}
}

func TestCBCExplicitIV(t *testing.T) {
	b := newTestBlock(t)
	data := []byte("attack at dawn")

	iv := make([]byte, twofish.BlockSize)
	for i := range iv {
		iv[i] = byte(i)
	}

	encrypted, err := EncryptCBC(b, iv, data)
	require.NoError(t, err)
	assert.Equal(t, iv, encrypted[:twofish.BlockSize])

	// Same IV and key means the same ciphertext.
	again, err := EncryptCBC(b, iv, data)
	require.NoError(t, err)
	assert.Equal(t, encrypted, again)

	// A fresh random IV means a different one.
	other, err := EncryptCBC(b, nil, data)
	require.NoError(t, err)
	assert.NotEqual(t, encrypted, other)

	_, err = EncryptCBC(b, iv[:15], data)
	assert.ErrorIs(t, err, ErrInvalidIVSize)
}

func TestDecryptRejectsMisaligned(t *testing.T) {
	b := newTestBlock(t)

	_, err := DecryptECB(b, nil)
	assert.ErrorIs(t, err, ErrNotBlockAligned)
	_, err = DecryptECB(b, make([]byte, 17))
	assert.ErrorIs(t, err, ErrNotBlockAligned)

	// CBC needs the IV block and at least one payload block.
	_, err = DecryptCBC(b, make([]byte, 16))
	assert.ErrorIs(t, err, ErrNotBlockAligned)
	_, err = DecryptCBC(b, make([]byte, 24))
	assert.ErrorIs(t, err, ErrNotBlockAligned)
}

func TestDecryptRejectsTampering(t *testing.T) {
	b := newTestBlock(t)
	data := []byte("sixteen byte msg")

	encrypted, err := EncryptCBC(b, nil, data)
	require.NoError(t, err)

	// Corrupting the final block scrambles the padding; on the off
	// chance the garbage still parses as padding, the plaintext is gone.
	encrypted[len(encrypted)-1] ^= 0xFF
	plain, err := DecryptCBC(b, encrypted)
	if err == nil {
		assert.NotEqual(t, data, plain)
	} else {
		assert.ErrorIs(t, err, ErrInvalidPadding)
	}
}
