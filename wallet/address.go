package wallet

import (
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"github.com/btcsuite/btcd/btcutil/base58"
)

const (
	pubKeyHashLen   = 20
	privKeyLen      = 32
	compressedFlag  = 0x01
	compressedWIFSz = privKeyLen + 1
)

// EncodeAddress returns the Base58Check P2PKH address of a key hash.
func (n *NetworkConfig) EncodeAddress(pubKeyHash []byte) (string, error) {
	if len(pubKeyHash) != pubKeyHashLen {
		return "", fmt.Errorf("%w: key hash must be %d bytes", ErrInvalidAddress, pubKeyHashLen)
	}
	return base58.CheckEncode(pubKeyHash, n.AddressVersion), nil
}

// EncodeScriptAddress returns the Base58Check P2SH address of a script hash.
func (n *NetworkConfig) EncodeScriptAddress(scriptHash []byte) (string, error) {
	if len(scriptHash) != pubKeyHashLen {
		return "", fmt.Errorf("%w: script hash must be %d bytes", ErrInvalidAddress, pubKeyHashLen)
	}
	return base58.CheckEncode(scriptHash, n.P2SHVersion), nil
}

// DecodeAddress returns the key hash of a P2PKH address on this network.
// P2SH addresses are rejected: inscriptions are delivered to a key.
func (n *NetworkConfig) DecodeAddress(address string) ([]byte, error) {
	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, address, err)
	}
	if len(payload) != pubKeyHashLen {
		return nil, fmt.Errorf("%w: %q has a %d-byte payload", ErrInvalidAddress, address, len(payload))
	}
	switch version {
	case n.AddressVersion:
		return payload, nil
	case n.P2SHVersion:
		return nil, fmt.Errorf("%w: %q is a script address", ErrInvalidAddress, address)
	default:
		return nil, fmt.Errorf("%w: %q has version 0x%02x, %s expects 0x%02x",
			ErrWrongNetwork, address, version, n.Name, n.AddressVersion)
	}
}

// PubKeyAddress returns the P2PKH address of a public key.
func (n *NetworkConfig) PubKeyAddress(pub *ec.PublicKey) (string, error) {
	if pub == nil {
		return "", fmt.Errorf("%w: nil public key", ErrInvalidAddress)
	}
	return n.EncodeAddress(bsvhash.Hash160(pub.Compressed()))
}

// EncodeWIF exports a private key in compressed Wallet Import Format, as
// accepted by `dogecoin-cli importprivkey`.
func (n *NetworkConfig) EncodeWIF(priv *ec.PrivateKey) (string, error) {
	if priv == nil {
		return "", fmt.Errorf("%w: nil private key", ErrInvalidKey)
	}
	raw := priv.Serialize()
	payload := make([]byte, 0, compressedWIFSz)
	payload = append(payload, raw...)
	payload = append(payload, compressedFlag)
	return base58.CheckEncode(payload, n.WIFVersion), nil
}

// DecodeWIF parses a compressed WIF private key for this network.
func (n *NetworkConfig) DecodeWIF(wif string) (*ec.PrivateKey, error) {
	payload, version, err := base58.CheckDecode(wif)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	if version != n.WIFVersion {
		return nil, fmt.Errorf("%w: WIF version 0x%02x, %s expects 0x%02x", ErrWrongNetwork, version, n.Name, n.WIFVersion)
	}
	if len(payload) != compressedWIFSz || payload[privKeyLen] != compressedFlag {
		return nil, fmt.Errorf("%w: only compressed WIF keys are supported", ErrInvalidKey)
	}
	priv, _ := ec.PrivateKeyFromBytes(payload[:privKeyLen])
	return priv, nil
}
