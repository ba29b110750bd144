package envelope

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// InscriptionID returns the identifier of the first output of txid.
func InscriptionID(txid string) string {
	return txid + "i0"
}

// LegacyInscriptionID returns the older <txid>:0:0 form.
func LegacyInscriptionID(txid string) string {
	return txid + ":0:0"
}

// PendingInscriptionID derives a placeholder id from the payload hash for
// jobs that have not broadcast yet.
func PendingInscriptionID(payload []byte) string {
	sum := sha256.Sum256(payload)
	return "pending_" + hex.EncodeToString(sum[:16]) + "i0"
}

// ParseInscriptionID accepts either identifier form and returns the txid
// and output index.
func ParseInscriptionID(id string) (string, uint32, error) {
	if txid, ok := strings.CutSuffix(id, ":0:0"); ok && len(txid) == 64 {
		return txid, 0, nil
	}
	if i := strings.LastIndexByte(id, 'i'); i == 64 {
		vout, err := strconv.ParseUint(id[i+1:], 10, 32)
		if err == nil {
			if _, err := hex.DecodeString(id[:i]); err == nil {
				return id[:i], uint32(vout), nil
			}
		}
	}
	return "", 0, fmt.Errorf("envelope: invalid inscription id %q", id)
}
