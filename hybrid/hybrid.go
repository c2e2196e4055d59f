// hybrid.go - Twofish + Multi-Power RSA hybrid cryptosystem.
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

// Package hybrid combines the Twofish and Multi-Power RSA engines into a
// hybrid cryptosystem: the payload travels under Twofish-CBC with a fresh
// session key, and the session key travels wrapped by RSA.  Envelopes are
// CBOR encoded.
package hybrid

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/op/go-logging.v1"

	"github.com/rizkyswandy/pangfish/blockmode"
	"github.com/rizkyswandy/pangfish/crypto/mprsa"
	"github.com/rizkyswandy/pangfish/crypto/rand"
	"github.com/rizkyswandy/pangfish/crypto/twofish"
	"github.com/rizkyswandy/pangfish/log"
	"github.com/rizkyswandy/pangfish/utils"
)

const (
	// Algorithm identifies the envelope format.
	Algorithm = "Twofish-MultiPowerRSA"

	// sessionKeySize is the Twofish key length used for payloads.
	sessionKeySize = 32

	// defaultRSAKeySize and defaultPower are the key generation defaults.
	defaultRSAKeySize = 2048
	defaultPower      = 3
)

var (
	// ErrInvalidEnvelope is the error returned when an envelope does not
	// decode or is missing fields.
	ErrInvalidEnvelope = errors.New("hybrid: invalid envelope")

	// ErrUnsupportedAlgorithm is the error returned when an envelope
	// names an algorithm this package does not speak.
	ErrUnsupportedAlgorithm = errors.New("hybrid: unsupported algorithm")

	// ErrNoKeys is the error returned when an operation needs key
	// material the cryptosystem does not hold.
	ErrNoKeys = errors.New("hybrid: no key material, generate or provide keys first")

	// ErrDecryption is the error returned when the unwrapped value cannot
	// be a session key, indicating the envelope was not sealed for this
	// private key.
	ErrDecryption = errors.New("hybrid: decryption failed")
)

// Envelope is the wire form of an encrypted message.
type Envelope struct {
	Algorithm    string `cbor:"algorithm"`
	Ciphertext   []byte `cbor:"ciphertext"`
	IV           []byte `cbor:"iv"`
	EncryptedKey string `cbor:"encrypted_key"`
}

// Cryptosystem holds the RSA context a hybrid session operates under.
// Instances are not safe for concurrent mutation; see the mprsa
// concurrency contract.
type Cryptosystem struct {
	rsa *mprsa.MPRSA
	log *logging.Logger
}

// New constructs a Cryptosystem with RSA parameters keySize and b.  A
// nil logBackend disables logging.
func New(keySize, b uint, logBackend *log.Backend) (*Cryptosystem, error) {
	if keySize == 0 {
		keySize = defaultRSAKeySize
	}
	if b == 0 {
		b = defaultPower
	}
	if logBackend == nil {
		var err error
		if logBackend, err = log.New("", "ERROR", true); err != nil {
			return nil, err
		}
	}
	rsa, err := mprsa.NewWithLog(keySize, b, nil, logBackend)
	if err != nil {
		return nil, err
	}
	return &Cryptosystem{
		rsa: rsa,
		log: logBackend.GetLogger("hybrid"),
	}, nil
}

// GenerateKeys generates the RSA keypair and returns its serialized
// public and private halves.
func (c *Cryptosystem) GenerateKeys() (publicKey, privateKey []byte, err error) {
	publicKey, privateKey, err = c.rsa.GenerateKeys()
	if err != nil {
		return nil, nil, err
	}
	c.log.Debugf("generated keypair, public key fingerprint %s", keyFingerprint(publicKey))
	return publicKey, privateKey, nil
}

// keyFingerprint returns a short blake2b digest of key material for log
// lines.
func keyFingerprint(key []byte) string {
	digest := blake2b.Sum256(key)
	return fmt.Sprintf("%x", digest[:8])
}

// Encrypt encrypts plaintext under a fresh Twofish session key and wraps
// that key with RSA.  A nil publicKey uses the cryptosystem's own key;
// the returned bytes are a CBOR Envelope.
func (c *Cryptosystem) Encrypt(plaintext, publicKey []byte) ([]byte, error) {
	if publicKey != nil {
		c.log.Debugf("encrypting under provided key, fingerprint %s", keyFingerprint(publicKey))
	}

	sessionKey := make([]byte, sessionKeySize)
	defer utils.ExplicitBzero(sessionKey)
	if _, err := io.ReadFull(rand.Reader, sessionKey); err != nil {
		return nil, err
	}

	block, err := twofish.New(sessionKey)
	if err != nil {
		return nil, err
	}
	defer block.Reset()

	sealed, err := blockmode.EncryptCBC(block, nil, plaintext)
	if err != nil {
		return nil, err
	}

	keyInt := new(big.Int).SetBytes(sessionKey)
	defer utils.BigIntWipe(keyInt)
	encryptedKey, err := c.rsa.Encrypt(keyInt, publicKey)
	if err != nil {
		if errors.Is(err, mprsa.ErrNoPublicKey) {
			return nil, ErrNoKeys
		}
		return nil, err
	}

	// The IV travels as its own envelope field.
	envelope := &Envelope{
		Algorithm:    Algorithm,
		Ciphertext:   sealed[twofish.BlockSize:],
		IV:           sealed[:twofish.BlockSize],
		EncryptedKey: encryptedKey.Text(16),
	}
	return cbor.Marshal(envelope)
}

// Decrypt unwraps the session key with RSA and decrypts the payload.  A
// nil privateKey uses the cryptosystem's own key.
func (c *Cryptosystem) Decrypt(envelopeBytes, privateKey []byte) ([]byte, error) {
	var envelope Envelope
	if err := cbor.Unmarshal(envelopeBytes, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if envelope.Algorithm != Algorithm {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, envelope.Algorithm)
	}
	if len(envelope.IV) != twofish.BlockSize || len(envelope.Ciphertext) == 0 {
		return nil, ErrInvalidEnvelope
	}
	encryptedKey, ok := new(big.Int).SetString(envelope.EncryptedKey, 16)
	if !ok {
		return nil, ErrInvalidEnvelope
	}

	keyInt, err := c.rsa.Decrypt(encryptedKey, privateKey)
	if err != nil {
		if errors.Is(err, mprsa.ErrNoPrivateKey) {
			return nil, ErrNoKeys
		}
		return nil, err
	}
	defer utils.BigIntWipe(keyInt)

	// RSA decryption under the wrong key yields an integer anywhere below
	// the modulus, far wider than any session key.
	if keyInt.BitLen() > sessionKeySize*8 {
		return nil, ErrDecryption
	}

	// The integer encoding drops leading zero bytes; restore the fixed
	// session key width.
	sessionKey := make([]byte, sessionKeySize)
	defer utils.ExplicitBzero(sessionKey)
	keyInt.FillBytes(sessionKey)

	block, err := twofish.New(sessionKey)
	if err != nil {
		return nil, err
	}
	defer block.Reset()

	return blockmode.DecryptCBC(block, append(envelope.IV, envelope.Ciphertext...))
}
