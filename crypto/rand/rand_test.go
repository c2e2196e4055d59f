// rand_test.go - Random number tests.
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

package rand

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader(t *testing.T) {
	b := make([]byte, 64)
	_, err := io.ReadFull(Reader, b)
	require.NoError(t, err)

	bCmp := make([]byte, 64)
	_, err = io.ReadFull(Reader, bCmp)
	require.NoError(t, err)
	require.False(t, bytes.Equal(b, bCmp), "repeated reads produced identical output")
}

func TestNewMath(t *testing.T) {
	r := NewMath()
	require.NotNil(t, r)

	// Drain enough output to force the source to feed forward at least once.
	seen := make(map[uint64]bool)
	for i := 0; i < 64; i++ {
		seen[r.Uint64()] = true
	}
	assert.Greater(t, len(seen), 32, "output repeats far too often")
}

func TestDeterministicRandReader(t *testing.T) {
	assert := assert.New(t)

	skey := make([]byte, 32)
	r1, err := NewDeterministicRandReader(skey)
	require.NoError(t, err)
	r2, err := NewDeterministicRandReader(skey)
	require.NoError(t, err)

	for i := 0; i < 42; i++ {
		tmp := [6]byte{}
		tmp2 := [6]byte{}
		_, err = r1.Read(tmp[:])
		require.NoError(t, err)
		_, err = r2.Read(tmp2[:])
		require.NoError(t, err)
		assert.True(tmp == tmp2)
	}
	for i := 0; i < 42; i++ {
		assert.True(r1.Int63() >= 0)
	}
}
