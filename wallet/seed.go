// Package wallet holds the BIP32/BIP39 HD wallet that funds inscriptions,
// its Dogecoin network parameters and address encoding.
//
// Key hierarchy: m/44'/{coin}'/{account}'/{chain}/{index}; the funding key
// of an account is its first external key.
package wallet

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bsv-blockchain/go-sdk/compat/bip39"
	"golang.org/x/crypto/argon2"
)

const (
	// Mnemonic entropy sizes.
	Mnemonic12Words = 128 // 12-word mnemonic
	Mnemonic24Words = 256 // 24-word mnemonic

	// Argon2id parameters for seed encryption.
	Argon2Time        = 3
	Argon2Memory      = 64 * 1024 // 64 MB
	Argon2Parallelism = 4
	Argon2KeyLen      = 32

	// Encryption format sizes.
	SaltLen     = 16
	NonceLen    = 12
	ChecksumLen = 4

	seedFileMode = 0o600
)

// seedMagic prefixes every encrypted seed; the last byte is the format version.
var seedMagic = []byte{'D', 'O', 'G', 'S', 0x01}

// GenerateMnemonic creates a new BIP39 mnemonic with the specified entropy bits.
// Use Mnemonic12Words (128) for 12 words or Mnemonic24Words (256) for 24 words.
func GenerateMnemonic(entropyBits int) (string, error) {
	if entropyBits != Mnemonic12Words && entropyBits != Mnemonic24Words {
		return "", ErrInvalidEntropy
	}

	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("wallet: failed to generate entropy: %w", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("wallet: failed to generate mnemonic: %w", err)
	}

	return mnemonic, nil
}

// ValidateMnemonic checks if a mnemonic string is valid BIP39.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// SeedFromMnemonic derives a 64-byte BIP39 seed from mnemonic + optional passphrase.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to derive seed: %w", err)
	}

	return seed, nil
}

func seedCipher(password string, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey([]byte(password), salt, Argon2Time, Argon2Memory, Argon2Parallelism, Argon2KeyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func seedChecksum(seed []byte) []byte {
	sum := sha256.Sum256(seed)
	return sum[:ChecksumLen]
}

// EncryptSeed encrypts the seed with Argon2id + AES-256-GCM.
//
//	magic(5B) || salt(16B) || nonce(12B) || AES-GCM(seed || sha256(seed)[:4])
//
// The magic is bound to the ciphertext as associated data.
func EncryptSeed(seed []byte, password string) ([]byte, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}

	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("wallet: failed to generate salt: %w", err)
	}
	gcm, err := seedCipher(password, salt)
	if err != nil {
		return nil, fmt.Errorf("wallet: cipher setup failed: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("wallet: failed to generate nonce: %w", err)
	}

	plaintext := append(bytes.Clone(seed), seedChecksum(seed)...)

	out := make([]byte, 0, len(seedMagic)+SaltLen+NonceLen+len(plaintext)+gcm.Overhead())
	out = append(out, seedMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, seedMagic), nil
}

// DecryptSeed reverses EncryptSeed. A wrong password and a corrupted file
// are indistinguishable and both return ErrDecryptionFailed.
func DecryptSeed(encrypted []byte, password string) ([]byte, error) {
	header := len(seedMagic) + SaltLen + NonceLen
	if len(encrypted) < header+ChecksumLen || !bytes.HasPrefix(encrypted, seedMagic) {
		return nil, ErrDecryptionFailed
	}
	salt := encrypted[len(seedMagic) : len(seedMagic)+SaltLen]
	nonce := encrypted[len(seedMagic)+SaltLen : header]

	gcm, err := seedCipher(password, salt)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	plaintext, err := gcm.Open(nil, nonce, encrypted[header:], seedMagic)
	if err != nil || len(plaintext) <= ChecksumLen {
		return nil, ErrDecryptionFailed
	}

	seed := plaintext[:len(plaintext)-ChecksumLen]
	if subtle.ConstantTimeCompare(plaintext[len(seed):], seedChecksum(seed)) != 1 {
		return nil, ErrChecksumMismatch
	}
	return seed, nil
}

// SaveSeedFile encrypts seed and writes it to path with owner-only
// permissions. An existing file is never overwritten.
func SaveSeedFile(path string, seed []byte, password string) error {
	enc, err := EncryptSeed(seed, password)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("wallet: create seed dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, seedFileMode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrSeedFileExists, path)
		}
		return fmt.Errorf("wallet: create seed file: %w", err)
	}
	if _, err := f.Write(enc); err != nil {
		_ = f.Close()
		return fmt.Errorf("wallet: write seed file: %w", err)
	}
	return f.Close()
}

// LoadSeedFile reads and decrypts a seed written by SaveSeedFile.
func LoadSeedFile(path, password string) ([]byte, error) {
	enc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wallet: read seed file: %w", err)
	}
	return DecryptSeed(enc, password)
}

// Open loads the seed file and builds a wallet for network.
func Open(path, password string, network *NetworkConfig) (*Wallet, error) {
	seed, err := LoadSeedFile(path, password)
	if err != nil {
		return nil, err
	}
	return NewWallet(seed, network)
}
