// blockmode.go - ECB/CBC block cipher modes with PKCS#7 padding.
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

// Package blockmode provides ECB and CBC modes with PKCS#7 padding over
// any cipher.Block.  Block aligned input always receives one full block
// of padding, so encrypted output is never ambiguous about whether
// padding is present.
package blockmode

import (
	"crypto/cipher"
	"errors"
	"io"

	"github.com/rizkyswandy/pangfish/crypto/rand"
)

var (
	// ErrInvalidPadding is the error returned when decrypted data does
	// not end in well formed PKCS#7 padding.
	ErrInvalidPadding = errors.New("blockmode: invalid padding")

	// ErrInvalidIVSize is the error returned when the IV length does not
	// match the cipher's block size.
	ErrInvalidIVSize = errors.New("blockmode: invalid IV size")

	// ErrNotBlockAligned is the error returned when ciphertext is empty
	// or not a multiple of the block size.
	ErrNotBlockAligned = errors.New("blockmode: data is not block aligned")
)

// pad appends PKCS#7 padding, always at least one byte and a full block
// when data is already aligned.
func pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// unpad strips PKCS#7 padding, validating the pad byte range and every
// trailing pad byte.
func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrNotBlockAligned
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-padLen], nil
}

// EncryptECB pads data and encrypts it block by block.
func EncryptECB(b cipher.Block, data []byte) ([]byte, error) {
	blockSize := b.BlockSize()
	padded := pad(data, blockSize)
	for i := 0; i < len(padded); i += blockSize {
		b.Encrypt(padded[i:i+blockSize], padded[i:i+blockSize])
	}
	return padded, nil
}

// DecryptECB decrypts block by block and strips the padding.
func DecryptECB(b cipher.Block, data []byte) ([]byte, error) {
	blockSize := b.BlockSize()
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrNotBlockAligned
	}
	plain := make([]byte, len(data))
	for i := 0; i < len(data); i += blockSize {
		b.Decrypt(plain[i:i+blockSize], data[i:i+blockSize])
	}
	return unpad(plain, blockSize)
}

// EncryptCBC pads data and encrypts it in CBC mode.  The IV is prepended
// to the returned ciphertext; a nil iv is drawn from the package entropy
// source.
func EncryptCBC(b cipher.Block, iv, data []byte) ([]byte, error) {
	blockSize := b.BlockSize()
	if iv == nil {
		iv = make([]byte, blockSize)
		if _, err := io.ReadFull(rand.Reader, iv); err != nil {
			return nil, err
		}
	}
	if len(iv) != blockSize {
		return nil, ErrInvalidIVSize
	}

	padded := pad(data, blockSize)
	out := make([]byte, blockSize+len(padded))
	copy(out, iv)

	prev := out[:blockSize]
	for i := 0; i < len(padded); i += blockSize {
		dst := out[blockSize+i : blockSize+i+blockSize]
		for j := 0; j < blockSize; j++ {
			dst[j] = padded[i+j] ^ prev[j]
		}
		b.Encrypt(dst, dst)
		prev = dst
	}
	return out, nil
}

// DecryptCBC decrypts ciphertext produced by EncryptCBC, consuming the
// prepended IV and stripping the padding.
func DecryptCBC(b cipher.Block, data []byte) ([]byte, error) {
	blockSize := b.BlockSize()
	if len(data) < 2*blockSize || len(data)%blockSize != 0 {
		return nil, ErrNotBlockAligned
	}

	prev := data[:blockSize]
	body := data[blockSize:]
	plain := make([]byte, len(body))
	for i := 0; i < len(body); i += blockSize {
		b.Decrypt(plain[i:i+blockSize], body[i:i+blockSize])
		for j := 0; j < blockSize; j++ {
			plain[i+j] ^= prev[j]
		}
		prev = body[i : i+blockSize]
	}
	return unpad(plain, blockSize)
}
