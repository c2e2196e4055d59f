// main.go - pangfish command line tool.
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

package main

import (
	"fmt"
	"io"
	stdlog "log"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/rizkyswandy/pangfish/crypto/kdf"
	"github.com/rizkyswandy/pangfish/hybrid"
	"github.com/rizkyswandy/pangfish/log"
)

const (
	flagConfig     = "config"
	flagPublicKey  = "public-key"
	flagPrivateKey = "private-key"
	flagOutput     = "output"
	flagInput      = "input"
)

// Config is the optional TOML configuration holding defaults.
type Config struct {
	RSAKeySize uint
	Power      uint
	LogLevel   string
}

func defaultConfig() *Config {
	return &Config{
		RSAKeySize: 2048,
		Power:      3,
		LogLevel:   "NOTICE",
	}
}

func loadConfig(cmd *cobra.Command) *Config {
	cfg := defaultConfig()
	path, _ := cmd.Flags().GetString(flagConfig)
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		stdlog.Fatalf("failed to read config file %s: %v", path, err)
	}
	if err = toml.Unmarshal(data, cfg); err != nil {
		stdlog.Fatalf("failed to parse config file %s: %v", path, err)
	}
	return cfg
}

func newCryptosystem(cmd *cobra.Command, cfg *Config) *hybrid.Cryptosystem {
	if keySize, _ := cmd.Flags().GetUint("key-size"); keySize != 0 {
		cfg.RSAKeySize = keySize
	}
	if power, _ := cmd.Flags().GetUint("power"); power != 0 {
		cfg.Power = power
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := cfg.LogLevel
	if verbose {
		level = "DEBUG"
	}
	logBackend, err := log.New("", level, false)
	if err != nil {
		stdlog.Fatalf("failed to create log backend: %v", err)
	}
	c, err := hybrid.New(cfg.RSAKeySize, cfg.Power, logBackend)
	if err != nil {
		stdlog.Fatalf("failed to create cryptosystem: %v", err)
	}
	return c
}

// readInput reads the payload from the --input file, or stdin when the
// flag is empty.
func readInput(cmd *cobra.Command) []byte {
	path, _ := cmd.Flags().GetString(flagInput)
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			stdlog.Fatalf("failed to read from stdin: %v", err)
		}
		return data
	}
	data, err := os.ReadFile(path)
	if err != nil {
		stdlog.Fatalf("failed to read input file %s: %v", path, err)
	}
	return data
}

// writeOutput writes data to the --output file, or stdout when the flag
// is empty.
func writeOutput(cmd *cobra.Command, data []byte) {
	path, _ := cmd.Flags().GetString(flagOutput)
	if path == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			stdlog.Fatalf("failed to write to stdout: %v", err)
		}
		return
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		stdlog.Fatalf("failed to write output file %s: %v", path, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s (%d bytes)\n", path, len(data))
}

func mustReadKey(cmd *cobra.Command, flag string) []byte {
	path, _ := cmd.Flags().GetString(flag)
	key, err := os.ReadFile(path)
	if err != nil {
		stdlog.Fatalf("failed to read key file %s: %v", path, err)
	}
	return key
}

var rootCmd = &cobra.Command{
	Use:           "pangfish",
	Short:         "Twofish + Multi-Power RSA hybrid encryption tool",
	Long:          "A CLI tool for generating Multi-Power RSA keypairs and encrypting files under the Twofish + Multi-Power RSA hybrid cryptosystem.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a Multi-Power RSA keypair",
	Long: `Generate a Multi-Power RSA keypair and write the halves to
<out>.public and <out>.private.

Example:
  pangfish keygen --key-size 2048 --power 3 --out mykey`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		c := newCryptosystem(cmd, cfg)

		pub, priv, err := c.GenerateKeys()
		if err != nil {
			stdlog.Fatalf("key generation failed: %v", err)
		}

		out, _ := cmd.Flags().GetString("out")
		if err = os.WriteFile(out+".public", pub, 0644); err != nil {
			stdlog.Fatalf("failed to write public key: %v", err)
		}
		if err = os.WriteFile(out+".private", priv, 0600); err != nil {
			stdlog.Fatalf("failed to write private key: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s.public and %s.private\n", out, out)
	},
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt data under a public key",
	Long: `Encrypt stdin or --input under the given public key, writing a
CBOR envelope to stdout or --output.

Example:
  pangfish encrypt --public-key mykey.public --input plain.txt --output sealed.bin`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		c := newCryptosystem(cmd, cfg)

		envelope, err := c.Encrypt(readInput(cmd), mustReadKey(cmd, flagPublicKey))
		if err != nil {
			stdlog.Fatalf("encryption failed: %v", err)
		}
		writeOutput(cmd, envelope)
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Decrypt an envelope with a private key",
	Long: `Decrypt a CBOR envelope from stdin or --input with the given
private key, writing the plaintext to stdout or --output.

Example:
  pangfish decrypt --private-key mykey.private --input sealed.bin`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		c := newCryptosystem(cmd, cfg)

		plaintext, err := c.Decrypt(readInput(cmd), mustReadKey(cmd, flagPrivateKey))
		if err != nil {
			stdlog.Fatalf("decryption failed: %v", err)
		}
		writeOutput(cmd, plaintext)
	},
}

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive a Twofish key from a passphrase",
	Long: `Derive a fixed size Twofish key from arbitrary key material by
SHA-256 truncation and print it as hex.

Example:
  pangfish derive --size 32 --input passphrase.txt`,
	Run: func(cmd *cobra.Command, args []string) {
		size, _ := cmd.Flags().GetInt("size")
		key, err := kdf.Derive(readInput(cmd), kdf.Closest(size))
		if err != nil {
			stdlog.Fatalf("key derivation failed: %v", err)
		}
		fmt.Printf("%x\n", key)
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(deriveCmd)

	for _, cmd := range []*cobra.Command{keygenCmd, encryptCmd, decryptCmd} {
		cmd.Flags().String(flagConfig, "", "path to TOML config file with defaults")
		cmd.Flags().Uint("key-size", 0, "RSA modulus size in bits (default from config, 2048)")
		cmd.Flags().Uint("power", 0, "Multi-Power RSA power parameter b (default from config, 3)")
		cmd.Flags().Bool("verbose", false, "log at debug level")
	}

	keygenCmd.Flags().String("out", "pangfish", "output key file prefix")

	encryptCmd.Flags().String(flagPublicKey, "", "path to public key file (required)")
	encryptCmd.Flags().String(flagInput, "", "file to read plaintext from (default: stdin)")
	encryptCmd.Flags().String(flagOutput, "", "file to write the envelope to (default: stdout)")
	encryptCmd.MarkFlagRequired(flagPublicKey)

	decryptCmd.Flags().String(flagPrivateKey, "", "path to private key file (required)")
	decryptCmd.Flags().String(flagInput, "", "file to read the envelope from (default: stdin)")
	decryptCmd.Flags().String(flagOutput, "", "file to write plaintext to (default: stdout)")
	decryptCmd.MarkFlagRequired(flagPrivateKey)

	deriveCmd.Flags().Int("size", 32, "derived key size in bytes, rounded up to 16/24/32")
	deriveCmd.Flags().String(flagInput, "", "file to read key material from (default: stdin)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
