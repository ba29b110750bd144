package wallet

import "errors"

var (
	// ErrInvalidMnemonic indicates the mnemonic fails BIP39 validation.
	ErrInvalidMnemonic = errors.New("wallet: invalid BIP39 mnemonic")

	// ErrInvalidEntropy indicates entropy bits is not 128 or 256.
	ErrInvalidEntropy = errors.New("wallet: entropy bits must be 128 or 256")

	// ErrDecryptionFailed indicates wrong password or corrupted wallet data.
	ErrDecryptionFailed = errors.New("wallet: seed decryption failed (wrong password or corrupted data)")

	// ErrChecksumMismatch indicates seed checksum verification failed after decryption.
	ErrChecksumMismatch = errors.New("wallet: seed checksum mismatch")

	// ErrInvalidNetwork indicates unknown network name with no custom config.
	ErrInvalidNetwork = errors.New("wallet: invalid network name")

	// ErrInvalidSeed indicates the seed is empty or invalid.
	ErrInvalidSeed = errors.New("wallet: invalid seed")

	// ErrDerivationFailed indicates BIP32 key derivation failed.
	ErrDerivationFailed = errors.New("wallet: key derivation failed")

	// ErrIndexOutOfRange indicates an account or address index reaches the
	// hardened boundary.
	ErrIndexOutOfRange = errors.New("wallet: index exceeds maximum (2^31-1)")

	// ErrInvalidAddress indicates an address fails Base58Check decoding or
	// is not a P2PKH address.
	ErrInvalidAddress = errors.New("wallet: invalid address")

	// ErrInvalidKey indicates a WIF private key could not be parsed.
	ErrInvalidKey = errors.New("wallet: invalid private key")

	// ErrWrongNetwork indicates an address or key belongs to another network.
	ErrWrongNetwork = errors.New("wallet: address is for a different network")

	// ErrSeedFileExists indicates init would overwrite an existing seed file.
	ErrSeedFileExists = errors.New("wallet: seed file already exists")
)
