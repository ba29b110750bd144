package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/doginals-go/inscribe"
	"github.com/bitfsorg/doginals-go/network"
	"github.com/bitfsorg/doginals-go/tx"
	"github.com/bitfsorg/doginals-go/wallet"
)

type inscribeFlags struct {
	recipient   string
	contentType string
	rewardFiat  float64
	dryRun      bool
	dryBalance  float64
	rescan      bool
}

func newInscribeCommand(a *app) *cobra.Command {
	var f inscribeFlags
	cmd := &cobra.Command{
		Use:   "inscribe <file>",
		Short: "Inscribe a file and send it to a recipient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.inscribe(cmd, args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.recipient, "recipient", "", "address receiving the inscription (required)")
	cmd.Flags().StringVar(&f.contentType, "content-type", "", "MIME type (default "+inscribe.DefaultContentType+")")
	cmd.Flags().Float64Var(&f.rewardFiat, "reward-fiat", 0, "reward in fiat (default reward.target_fiat)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "build and submit against an in-memory node")
	cmd.Flags().Float64Var(&f.dryBalance, "dry-run-balance", 100, "DOGE available to the in-memory node")
	cmd.Flags().BoolVar(&f.rescan, "rescan", false, "rescan the chain when importing the funding address")
	_ = cmd.MarkFlagRequired("recipient")
	return cmd
}

func (a *app) inscribe(cmd *cobra.Command, path string, f inscribeFlags) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	w, err := a.openWallet()
	if err != nil {
		return err
	}

	var (
		source network.FundingSource
		node   *network.RPCClient
		delay  = a.cfg.Chain.BroadcastDelay
	)
	if f.dryRun {
		source, err = simulatedFunding(w, a.cfg.Wallet.Account, f.dryBalance)
		if err != nil {
			return err
		}
		delay = -1
	} else {
		if node, err = a.newRPC(); err != nil {
			return err
		}
		source = node
	}

	svc, store, err := a.service(w, source, delay)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if node != nil {
		if err := prepareNode(ctx, node, svc.FundingAddress(), f.rescan, a.logger); err != nil {
			return err
		}
	}
	res, err := svc.Inscribe(ctx, inscribe.Request{
		Payload:     payload,
		ContentType: f.contentType,
		Recipient:   f.recipient,
		RewardFiat:  f.rewardFiat,
	})
	if res != nil {
		if perr := printJSON(cmd, res); perr != nil {
			return perr
		}
	}
	if err != nil {
		return fmt.Errorf("inscribe: %w", err)
	}
	return nil
}

func newResumeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <job-id>",
		Short: "Rebroadcast the unsent part of a failed inscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.resume(cmd, args[0])
		},
	}
}

func (a *app) resume(cmd *cobra.Command, id string) error {
	w, err := a.openWallet()
	if err != nil {
		return err
	}
	node, err := a.newRPC()
	if err != nil {
		return err
	}
	svc, store, err := a.service(w, node, a.cfg.Chain.BroadcastDelay)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res, err := svc.Resume(ctx, id)
	if res != nil {
		if perr := printJSON(cmd, res); perr != nil {
			return perr
		}
	}
	if err != nil {
		return fmt.Errorf("resume %s: %w", id, err)
	}
	return nil
}

// simulatedFunding returns an in-memory node holding one UTXO of balance
// DOGE at the wallet's funding address.
func simulatedFunding(w *wallet.Wallet, account uint32, balance float64) (*network.SimulatedService, error) {
	if balance <= 0 {
		return nil, errors.New("--dry-run-balance must be positive")
	}
	key, err := w.FundingKey(account)
	if err != nil {
		return nil, err
	}
	lock, err := tx.BuildP2PKHScript(key.PublicKey)
	if err != nil {
		return nil, err
	}
	address, err := w.FundingAddress(account)
	if err != nil {
		return nil, err
	}
	sim := network.NewSimulatedService()
	sim.Fund(address, lock, uint64(balance*tx.KoinuPerCoin))
	return sim, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
