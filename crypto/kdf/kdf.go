// kdf.go - SHA-256 key derivation helper.
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

// Package kdf derives fixed length block cipher keys from arbitrary key
// material by truncating a SHA-256 digest.
package kdf

import (
	"crypto/sha256"
	"fmt"
)

// ErrKeySize is the error type returned for sizes no Twofish key can
// have.
type ErrKeySize int

func (e ErrKeySize) Error() string {
	return fmt.Sprintf("kdf: invalid derived key size: %d", int(e))
}

// Derive hashes keyMaterial with SHA-256 and truncates the digest to
// size bytes.  size must be 16, 24 or 32.
func Derive(keyMaterial []byte, size int) ([]byte, error) {
	switch size {
	case 16, 24, 32:
	default:
		return nil, ErrKeySize(size)
	}
	digest := sha256.Sum256(keyMaterial)
	derived := make([]byte, size)
	copy(derived, digest[:])
	return derived, nil
}

// Closest rounds n up to the nearest valid derived key size, capping at
// 32.
func Closest(n int) int {
	switch {
	case n <= 16:
		return 16
	case n <= 24:
		return 24
	default:
		return 32
	}
}
