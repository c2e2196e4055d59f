// mprsa.go - Multi-Power RSA.
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

// Package mprsa implements Multi-Power RSA, an RSA variant whose modulus
// is p^(b-1)*q instead of p*q.  Shrinking p relative to a classical
// modulus of the same size speeds up CRT based decryption, at the cost of
// an iterative Hensel lifting step to recover the plaintext residue
// modulo p^(b-1) from its residue modulo p.
//
// A keyed context is safe for concurrent Encrypt/Decrypt use.  The one
// shot mutating operations (GenerateKeys, ImportPublicKey,
// ImportPrivateKey, Reset) must be externally serialized.
package mprsa

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"

	"gopkg.in/op/go-logging.v1"

	"github.com/rizkyswandy/pangfish/crypto/rand"
	"github.com/rizkyswandy/pangfish/log"
	"github.com/rizkyswandy/pangfish/utils"
)

const (
	// PublicExponent is the fixed RSA public exponent e.
	PublicExponent = 65537

	// keySeparator joins the serialized key fields.
	keySeparator = ':'

	// maxGenerateAttempts bounds the prime regeneration loop.  The
	// coprimality condition gcd(e, phi(n)) == 1 is satisfied with
	// overwhelming probability on each attempt, so hitting this cap
	// means the parameters are pathological.
	maxGenerateAttempts = 128

	// millerRabinRounds is the certainty parameter passed to
	// big.Int.ProbablyPrime.
	millerRabinRounds = 32
)

var (
	// ErrInvalidParameters is the error returned when the key size or
	// power parameter cannot describe a working keypair.
	ErrInvalidParameters = errors.New("mprsa: invalid key size or power parameter")

	// ErrMessageTooLarge is the error returned when the message integer
	// is not smaller than the modulus.
	ErrMessageTooLarge = errors.New("mprsa: message is not smaller than the modulus")

	// ErrCipherTooLarge is the error returned when the ciphertext integer
	// is not smaller than the modulus.
	ErrCipherTooLarge = errors.New("mprsa: ciphertext is not smaller than the modulus")

	// ErrKeyGeneration is the error returned when prime generation cannot
	// satisfy the coprimality condition within the attempt cap.  Retrying
	// with fresh randomness is legitimate.
	ErrKeyGeneration = errors.New("mprsa: key generation failed")

	// ErrMalformedKey is the error returned when an imported key does not
	// parse.
	ErrMalformedKey = errors.New("mprsa: malformed key")

	// ErrDecryption is the error returned when an arithmetic invariant
	// fails mid decryption, indicating a corrupted key.
	ErrDecryption = errors.New("mprsa: decryption failed")

	// ErrNoPublicKey is the error returned when encrypting with a context
	// that holds no public key material.
	ErrNoPublicKey = errors.New("mprsa: no public key material")

	// ErrNoPrivateKey is the error returned when decrypting with a
	// context that holds no private key material.
	ErrNoPrivateKey = errors.New("mprsa: no private key material")
)

var one = big.NewInt(1)

// MPRSA is a Multi-Power RSA context.  A freshly constructed context is
// unkeyed (only e is set) until GenerateKeys succeeds or a key is
// imported.
type MPRSA struct {
	keySize uint
	b       uint

	rng io.Reader
	log *logging.Logger

	p      *big.Int
	q      *big.Int
	n      *big.Int
	e      *big.Int
	d      *big.Int
	r1     *big.Int
	r2     *big.Int
	phi    *big.Int
	pPower *big.Int
}

// New constructs an unkeyed context for the given modulus size in bits
// and power parameter b (the modulus is p^(b-1)*q; b == 2 is classical
// two prime RSA).  rng is the entropy source for key generation; nil
// selects the package default CSPRNG.
func New(keySize, b uint, rng io.Reader) (*MPRSA, error) {
	return NewWithLog(keySize, b, rng, nil)
}

// NewWithLog is New with a logging backend for key generation progress.
func NewWithLog(keySize, b uint, rng io.Reader, logBackend *log.Backend) (*MPRSA, error) {
	if b < 2 {
		return nil, ErrInvalidParameters
	}
	// Both primes must come out with a sane bit length.
	if (keySize*2/3)/b < 16 || keySize/3 < 16 {
		return nil, ErrInvalidParameters
	}
	if rng == nil {
		rng = rand.Reader
	}
	if logBackend == nil {
		logBackend = nopLogBackend
	}
	return &MPRSA{
		keySize: keySize,
		b:       b,
		rng:     rng,
		log:     logBackend.GetLogger("mprsa"),
		e:       big.NewInt(PublicExponent),
	}, nil
}

var nopLogBackend = func() *log.Backend {
	b, err := log.New("", "ERROR", true)
	if err != nil {
		panic(err)
	}
	return b
}()

// generatePrime returns a probable prime of exactly the requested bit
// length: a random candidate with the top and bottom bits forced set,
// advanced to the next probable prime.
func generatePrime(rng io.Reader, bits int) (*big.Int, error) {
	raw := make([]byte, (bits+7)/8)
	defer utils.ExplicitBzero(raw)

	if _, err := io.ReadFull(rng, raw); err != nil {
		return nil, err
	}

	// Truncate to the target length, force the exact bit length and
	// oddness.
	excess := uint(len(raw)*8 - bits)
	raw[0] &= 0xff >> excess

	candidate := new(big.Int).SetBytes(raw)
	candidate.SetBit(candidate, bits-1, 1)
	candidate.SetBit(candidate, 0, 1)

	two := big.NewInt(2)
	for !candidate.ProbablyPrime(millerRabinRounds) {
		candidate.Add(candidate, two)
	}
	return candidate, nil
}

// GenerateKeys generates a fresh keypair and returns the serialized
// public and private keys.  The context is either fully keyed on success
// or left exactly as it was on failure.
func (m *MPRSA) GenerateKeys() (publicKey, privateKey []byte, err error) {
	bitsP := int((m.keySize * 2 / 3) / m.b)
	bitsQ := int(m.keySize / 3)

	m.log.Debugf("generating keypair: |p| = %d bits, |q| = %d bits, b = %d", bitsP, bitsQ, m.b)

	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		var p, q *big.Int
		if p, err = generatePrime(m.rng, bitsP); err != nil {
			return nil, nil, err
		}
		if q, err = generatePrime(m.rng, bitsQ); err != nil {
			return nil, nil, err
		}

		pPower := new(big.Int).Exp(p, big.NewInt(int64(m.b-1)), nil)
		n := new(big.Int).Mul(pPower, q)

		pMinus1 := new(big.Int).Sub(p, one)
		qMinus1 := new(big.Int).Sub(q, one)

		// phi(n) = (p-1)(q-1)p^(b-2) for b > 2, else (p-1)(q-1).
		phi := new(big.Int)
		if m.b > 2 {
			phi.Exp(p, big.NewInt(int64(m.b-2)), nil)
			phi.Mul(phi, pMinus1)
			phi.Mul(phi, qMinus1)
		} else {
			phi.Mul(pMinus1, qMinus1)
		}

		if new(big.Int).GCD(nil, nil, m.e, phi).Cmp(one) != 0 {
			m.log.Debugf("gcd(e, phi(n)) != 1, regenerating primes (attempt %d)", attempt)
			utils.BigIntWipe(p)
			utils.BigIntWipe(q)
			utils.BigIntWipe(phi)
			continue
		}

		d := new(big.Int).ModInverse(m.e, phi)
		if d == nil {
			// Unreachable given the gcd check, but never commit a half
			// built keypair.
			return nil, nil, ErrKeyGeneration
		}

		m.p = p
		m.q = q
		m.n = n
		m.d = d
		m.r1 = new(big.Int).Mod(d, pMinus1)
		m.r2 = new(big.Int).Mod(d, qMinus1)
		m.phi = phi
		m.pPower = pPower

		m.log.Debugf("keypair generated after %d attempt(s), |n| = %d bits", attempt, n.BitLen())

		publicKey, err = m.ExportPublicKey()
		if err != nil {
			return nil, nil, err
		}
		privateKey, err = m.ExportPrivateKey()
		if err != nil {
			return nil, nil, err
		}
		return publicKey, privateKey, nil
	}

	return nil, nil, ErrKeyGeneration
}

// Encrypt computes message^e mod n.  If publicKey is non nil it is
// imported into a temporary context scoped to this call, otherwise the
// receiver's key material is used.  The message must be smaller than the
// modulus; no padding is applied at this layer.
func (m *MPRSA) Encrypt(message *big.Int, publicKey []byte) (*big.Int, error) {
	ctx := m
	if publicKey != nil {
		tmp := &MPRSA{b: m.b, e: new(big.Int)}
		if err := tmp.ImportPublicKey(publicKey); err != nil {
			return nil, err
		}
		ctx = tmp
	}
	if ctx.n == nil {
		return nil, ErrNoPublicKey
	}
	if message.CmpAbs(ctx.n) >= 0 {
		return nil, ErrMessageTooLarge
	}
	return new(big.Int).Exp(message, ctx.e, ctx.n), nil
}

// Decrypt recovers the plaintext integer from cipher using the CRT
// split, Hensel lifting the mod p residue up to mod p^(b-1) when b > 2.
// If privateKey is non nil it is imported into a temporary context
// scoped to this call.
func (m *MPRSA) Decrypt(cipher *big.Int, privateKey []byte) (*big.Int, error) {
	ctx := m
	if privateKey != nil {
		tmp := &MPRSA{e: new(big.Int).Set(m.e)}
		if err := tmp.ImportPrivateKey(privateKey); err != nil {
			return nil, err
		}
		defer tmp.Reset()
		ctx = tmp
	}
	if ctx.p == nil || ctx.q == nil || ctx.r1 == nil || ctx.r2 == nil {
		return nil, ErrNoPrivateKey
	}
	if cipher.CmpAbs(ctx.n) >= 0 {
		return nil, ErrCipherTooLarge
	}

	// CRT split: both exponentiations work on operands far narrower than
	// the full modulus.
	m1 := new(big.Int).Exp(cipher, ctx.r1, ctx.p)
	m2 := new(big.Int).Exp(cipher, ctx.r2, ctx.q)

	mPrime := m1
	if ctx.b > 2 {
		var err error
		if mPrime, err = ctx.henselLift(cipher, m1); err != nil {
			return nil, err
		}
	}

	// CRT recombination modulo p^(b-1) and q.
	qInv := new(big.Int).ModInverse(ctx.q, ctx.pPower)
	pPowerInv := new(big.Int).ModInverse(ctx.pPower, ctx.q)
	if qInv == nil || pPowerInv == nil {
		return nil, ErrDecryption
	}

	term1 := new(big.Int).Mul(mPrime, ctx.q)
	term1.Mul(term1, qInv)
	term1.Mod(term1, ctx.n)

	term2 := new(big.Int).Mul(m2, ctx.pPower)
	term2.Mul(term2, pPowerInv)
	term2.Mod(term2, ctx.n)

	message := term1.Add(term1, term2)
	message.Mod(message, ctx.n)
	return message, nil
}

// DecryptToBytes is Decrypt returning the plaintext's minimal big endian
// byte encoding.
func (m *MPRSA) DecryptToBytes(cipher *big.Int, privateKey []byte) ([]byte, error) {
	message, err := m.Decrypt(cipher, privateKey)
	if err != nil {
		return nil, err
	}
	return message.Bytes(), nil
}

// henselLift extends the solution m1 of x^e == cipher (mod p) to a
// solution modulo p^(b-1), one power of p per iteration: at step i the
// error of the current approximation modulo p^(i+1) is divisible by p^i
// by construction, and dividing it out gives a correction that is solved
// for modulo p via the inverse of the derivative e*x^(e-1).
func (m *MPRSA) henselLift(cipher, m1 *big.Int) (*big.Int, error) {
	mPrime := new(big.Int).Set(m1)
	eMinus1 := new(big.Int).Sub(m.e, one)

	pPowerI := new(big.Int).Set(m.p) // p^i
	for i := uint(1); i <= m.b-2; i++ {
		pPowerNext := new(big.Int).Mul(pPowerI, m.p) // p^(i+1)

		errTerm := new(big.Int).Exp(mPrime, m.e, pPowerNext)
		errTerm.Sub(errTerm, cipher)
		errTerm.Mod(errTerm, pPowerNext)

		// The error is p^i * correction for some correction < p.
		correction := errTerm.Div(errTerm, pPowerI)

		deriv := new(big.Int).Exp(mPrime, eMinus1, m.p)
		deriv.Mul(deriv, m.e)
		deriv.Mod(deriv, m.p)
		inverse := deriv.ModInverse(deriv, m.p)
		if inverse == nil {
			return nil, ErrDecryption
		}

		correction.Mul(correction, inverse)
		correction.Mod(correction, m.p)
		correction.Mul(correction, pPowerI)

		mPrime.Sub(mPrime, correction)
		mPrime.Mod(mPrime, pPowerNext)

		pPowerI = pPowerNext
	}
	return mPrime, nil
}

// ExportPublicKey serializes the public key as "<n-hex>:<e-hex>".
func (m *MPRSA) ExportPublicKey() ([]byte, error) {
	if m.n == nil {
		return nil, ErrNoPublicKey
	}
	return []byte(fmt.Sprintf("%s%c%s", m.n.Text(16), keySeparator, m.e.Text(16))), nil
}

// ExportPrivateKey serializes the private key as
// "<p-hex>:<q-hex>:<r1-hex>:<r2-hex>:<b-decimal>".  The modulus and its
// cofactor are not stored redundantly; import reconstructs them.
func (m *MPRSA) ExportPrivateKey() ([]byte, error) {
	if m.p == nil || m.q == nil || m.r1 == nil || m.r2 == nil {
		return nil, ErrNoPrivateKey
	}
	return []byte(fmt.Sprintf("%s%c%s%c%s%c%s%c%d",
		m.p.Text(16), keySeparator,
		m.q.Text(16), keySeparator,
		m.r1.Text(16), keySeparator,
		m.r2.Text(16), keySeparator,
		m.b)), nil
}

// ImportPublicKey parses a serialized public key into the context.  On
// failure the context is left untouched.
func (m *MPRSA) ImportPublicKey(key []byte) error {
	fields := bytes.Split(key, []byte{keySeparator})
	if len(fields) != 2 {
		return ErrMalformedKey
	}
	n, ok := new(big.Int).SetString(string(fields[0]), 16)
	if !ok {
		return ErrMalformedKey
	}
	e, ok := new(big.Int).SetString(string(fields[1]), 16)
	if !ok {
		return ErrMalformedKey
	}
	m.n = n
	m.e = e
	return nil
}

// ImportPrivateKey parses a serialized private key into the context,
// reconstructing p^(b-1) and n from p, q and b.  On failure the context
// is left untouched.
func (m *MPRSA) ImportPrivateKey(key []byte) error {
	fields := bytes.Split(key, []byte{keySeparator})
	if len(fields) != 5 {
		return ErrMalformedKey
	}
	p, ok := new(big.Int).SetString(string(fields[0]), 16)
	if !ok {
		return ErrMalformedKey
	}
	q, ok := new(big.Int).SetString(string(fields[1]), 16)
	if !ok {
		return ErrMalformedKey
	}
	r1, ok := new(big.Int).SetString(string(fields[2]), 16)
	if !ok {
		return ErrMalformedKey
	}
	r2, ok := new(big.Int).SetString(string(fields[3]), 16)
	if !ok {
		return ErrMalformedKey
	}
	b, err := strconv.ParseUint(string(fields[4]), 10, 32)
	if err != nil || b < 2 {
		return ErrMalformedKey
	}

	m.p = p
	m.q = q
	m.r1 = r1
	m.r2 = r2
	m.b = uint(b)
	m.pPower = new(big.Int).Exp(p, big.NewInt(int64(b-1)), nil)
	m.n = new(big.Int).Mul(m.pPower, q)
	return nil
}

// B returns the power parameter.
func (m *MPRSA) B() uint {
	return m.b
}

// Reset wipes all key material.  The context is unusable afterwards
// except for importing fresh keys.
func (m *MPRSA) Reset() {
	for _, i := range []*big.Int{m.p, m.q, m.n, m.d, m.r1, m.r2, m.phi, m.pPower} {
		utils.BigIntWipe(i)
	}
	m.p, m.q, m.n, m.d, m.r1, m.r2, m.phi, m.pPower = nil, nil, nil, nil, nil, nil, nil, nil
}
