// rand.go - Entropy source.
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

// Package rand provides various utilities related to generating
// random numbers and byte vectors, with sources that can be swapped
// out for deterministic ones under test.  Consumers needing a
// math/rand.Rand, such as big.Int.Rand, should use NewMath rather than
// seeding one from wall clock time.
package rand

import (
	cryptoRand "crypto/rand"
	"io"
)

// Reader is the default entropy source, backed by the operating system
// CSPRNG.  All key generation in this module draws from an io.Reader so
// that the source can be replaced, never from a hidden global state.
var Reader io.Reader = cryptoRand.Reader
