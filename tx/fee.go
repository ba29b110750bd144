package tx

import "github.com/bitfsorg/doginals-go/envelope"

const (
	// DustLimit is the smallest output value relayed by default, in koinu
	// (0.001 DOGE).
	DustLimit = uint64(100_000)

	// DefaultFeeRate is the fee rate in koinu per 1000 bytes (0.01 DOGE/kB).
	DefaultFeeRate = uint64(1_000_000)

	// KoinuPerCoin is the number of koinu in one DOGE.
	KoinuPerCoin = 100_000_000
)

// Serialized size components.
const (
	outpointSize = 36 // prev txid + vout
	sequenceSize = 4

	// P2PKHUnlockSize is a DER signature push plus a compressed key push.
	P2PKHUnlockSize = 1 + 73 + 1 + CompressedPubKeyLen

	// P2PKHInputSize is a typical signed P2PKH input.
	P2PKHInputSize = outpointSize + 1 + P2PKHUnlockSize + sequenceSize

	// P2PKHLockSize and P2SHLockSize are locking script lengths.
	P2PKHLockSize = 25
	P2SHLockSize  = 23

	// SignaturePushSize is a worst-case DER signature plus flag, pushed.
	SignaturePushSize = 1 + 73
)

// EstimateFee estimates the transaction fee for a given size and fee rate.
// Returns ceil(txSizeBytes * feeRate / 1000).
func EstimateFee(txSizeBytes int, feeRate uint64) uint64 {
	if feeRate == 0 {
		feeRate = DefaultFeeRate
	}
	fee := uint64(txSizeBytes) * feeRate
	// Ceiling division by 1000
	return (fee + 999) / 1000
}

// InputSize returns the serialized size of an input with an unlocking
// script of unlockLen bytes.
func InputSize(unlockLen int) int {
	return outpointSize + envelope.VarIntSize(unlockLen) + unlockLen + sequenceSize
}

// OutputSize returns the serialized size of an output with a locking
// script of lockLen bytes.
func OutputSize(lockLen int) int {
	return 8 + envelope.VarIntSize(lockLen) + lockLen
}

// TxSize returns the serialized size of a transaction with the given
// per-input and per-output sizes.
func TxSize(inputSizes, outputSizes []int) int {
	size := 4 + 4 // version + locktime
	size += envelope.VarIntSize(len(inputSizes)) + envelope.VarIntSize(len(outputSizes))
	for _, n := range inputSizes {
		size += n
	}
	for _, n := range outputSizes {
		size += n
	}
	return size
}
