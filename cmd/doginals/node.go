package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bitfsorg/doginals-go/journal"
	"github.com/bitfsorg/doginals-go/network"
)

// prepareNode checks that the node answers and registers the funding
// address as watch-only, so listunspent reports its outputs.
func prepareNode(ctx context.Context, node network.BlockchainService, address string, rescan bool, logger *zap.Logger) error {
	height, err := node.GetBestBlockHeight(ctx)
	if err != nil {
		return fmt.Errorf("node unreachable: %w", err)
	}
	if err := node.ImportAddress(ctx, address, rescan); err != nil {
		return fmt.Errorf("import funding address: %w", err)
	}
	logger.Info("node ready",
		zap.Uint64("height", height),
		zap.String("funding_address", address),
		zap.Bool("rescan", rescan))
	return nil
}

type txConfirmation struct {
	TxID          string `json:"txid"`
	Confirmations int64  `json:"confirmations"`
	BlockHeight   uint64 `json:"block_height,omitempty"`
	Error         string `json:"error,omitempty"`
}

type jobConfirmations struct {
	Job *journal.Job     `json:"job"`
	Txs []txConfirmation `json:"txs"`
}

// confirmations looks up every transaction of job the node accepted. A
// failed lookup is reported per transaction.
func confirmations(ctx context.Context, node network.BlockchainService, job *journal.Job) jobConfirmations {
	out := jobConfirmations{Job: job, Txs: make([]txConfirmation, 0, len(job.Broadcast))}
	for _, txid := range job.Broadcast {
		c := txConfirmation{TxID: txid}
		status, err := node.GetTxStatus(ctx, txid)
		if err != nil {
			c.Error = err.Error()
		} else {
			c.Confirmations = status.Confirmations
			c.BlockHeight = status.BlockHeight
		}
		out.Txs = append(out.Txs, c)
	}
	return out
}
