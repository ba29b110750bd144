// Package journal persists inscription jobs, including the signed
// transactions of each chain, so a partially broadcast chain can be
// inspected and resumed after the process exits.
package journal

import (
	"errors"
	"time"

	"github.com/bitfsorg/doginals-go/chain"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPlanned      Status = "planned"
	StatusBroadcasting Status = "broadcasting"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusPartial      Status = "partial"
)

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusPartial
}

// NoFailure is the FailedIndex of a job that has not failed mid-chain.
const NoFailure = -1

// Job records one inscription request and the chain built for it.
type Job struct {
	ID            string    `json:"id"`
	Status        Status    `json:"status"`
	Network       string    `json:"network,omitempty"`
	Recipient     string    `json:"recipient"`
	RewardKoinu   uint64    `json:"reward_koinu"`
	FeeKoinu      uint64    `json:"fee_koinu"`
	PayloadHash   string    `json:"payload_hash"`
	PayloadSize   int       `json:"payload_size"`
	ContentType   string    `json:"content_type"`
	TxIDs         []string  `json:"txids"`
	RawTxs        []string  `json:"-"` // signed transactions as hex, parallel to TxIDs
	Broadcast     []string  `json:"broadcast"`
	FailedIndex   int       `json:"failed_index"`
	Error         string    `json:"error,omitempty"`
	InscriptionID string    `json:"inscription_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Pending returns the signed transactions not yet accepted, in chain order.
func (j *Job) Pending() (txids, raw []string) {
	n := len(j.Broadcast)
	if n > len(j.TxIDs) || len(j.RawTxs) != len(j.TxIDs) {
		return nil, nil
	}
	return j.TxIDs[n:], j.RawTxs[n:]
}

// finish moves the job to its terminal status. A nil cause completes the
// job; a *chain.BroadcastError marks it partial when part of the chain was
// accepted.
func (j *Job) finish(inscriptionID string, cause error) {
	if cause == nil {
		j.Status = StatusCompleted
		j.InscriptionID = inscriptionID
		j.FailedIndex = NoFailure
		j.Error = ""
		return
	}

	j.Error = cause.Error()
	j.Status = StatusFailed
	var be *chain.BroadcastError
	if errors.As(cause, &be) {
		j.FailedIndex = be.Index
		if len(be.Broadcast) > len(j.Broadcast) {
			j.Broadcast = append([]string(nil), be.Broadcast...)
		}
	}
	if len(j.Broadcast) > 0 {
		j.Status = StatusPartial
	}
}
