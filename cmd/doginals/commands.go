package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bitfsorg/doginals-go/config"
	"github.com/bitfsorg/doginals-go/journal"
	"github.com/bitfsorg/doginals-go/wallet"
)

func newQuoteCommand(a *app) *cobra.Command {
	var fiat float64
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price the inscription reward in DOGE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := a.newQuoter()
			if err != nil {
				return err
			}
			if fiat <= 0 {
				fiat = a.cfg.Reward.TargetFiat
			}
			quote := q.QuoteReward(cmd.Context(), fiat)
			fmt.Fprintf(cmd.OutOrStdout(), "%s [%s, %d koinu]\n", quote.Display(), quote.Origin, quote.Koinu)
			return nil
		},
	}
	cmd.Flags().Float64Var(&fiat, "fiat", 0, "fiat amount to convert (default reward.target_fiat)")
	return cmd
}

func newJobsCommand(a *app) *cobra.Command {
	var (
		limit int
		confs bool
	)
	cmd := &cobra.Command{
		Use:   "jobs [id]",
		Short: "List journaled inscription jobs, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := journal.Open(a.cfg.JournalPath())
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				job, err := store.Get(args[0])
				if err != nil {
					return err
				}
				if !confs {
					return printJSON(cmd, job)
				}
				node, err := a.newRPC()
				if err != nil {
					return err
				}
				return printJSON(cmd, confirmations(cmd.Context(), node, job))
			}

			jobs, err := store.List(limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, j := range jobs {
				fmt.Fprintf(out, "%s  %-12s  %s  txs=%d/%d  %s\n",
					j.ID, j.Status, j.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					len(j.Broadcast), len(j.TxIDs), j.InscriptionID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of jobs to list (0 for all)")
	cmd.Flags().BoolVar(&confs, "confirmations", false, "with an id, ask the node how deep each broadcast transaction is")
	return cmd
}

func newAddressCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the funding address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := a.openWallet()
			if err != nil {
				return err
			}
			addr, err := w.FundingAddress(a.cfg.Wallet.Account)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}
}

type initWalletFlags struct {
	mnemonic   string
	passphrase string
	words      int
}

func newInitWalletCommand(a *app) *cobra.Command {
	var f initWalletFlags
	cmd := &cobra.Command{
		Use:   "init-wallet",
		Short: "Create or import the encrypted funding wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.initWallet(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.mnemonic, "mnemonic", "", "import this BIP39 mnemonic instead of generating one")
	cmd.Flags().StringVar(&f.passphrase, "passphrase", "", "optional BIP39 passphrase")
	cmd.Flags().IntVar(&f.words, "words", 12, "mnemonic length when generating (12 or 24)")
	return cmd
}

func (a *app) initWallet(cmd *cobra.Command, f initWalletFlags) error {
	net, err := a.walletNetwork()
	if err != nil {
		return err
	}
	pw, err := a.password()
	if err != nil {
		return err
	}

	mnemonic := strings.TrimSpace(f.mnemonic)
	generated := mnemonic == ""
	if generated {
		bits := wallet.Mnemonic12Words
		switch f.words {
		case 12:
		case 24:
			bits = wallet.Mnemonic24Words
		default:
			return fmt.Errorf("--words must be 12 or 24, got %d", f.words)
		}
		if mnemonic, err = wallet.GenerateMnemonic(bits); err != nil {
			return err
		}
	}

	seed, err := wallet.SeedFromMnemonic(mnemonic, f.passphrase)
	if err != nil {
		return err
	}
	w, err := wallet.NewWallet(seed, net)
	if err != nil {
		return err
	}
	if err := wallet.SaveSeedFile(a.cfg.SeedPath(), seed, pw); err != nil {
		return err
	}

	path := a.configPath
	if path == "" {
		path = config.ConfigPath(a.cfg.DataDir)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := config.SaveConfig(path, a.cfg); err != nil {
			return err
		}
		a.logger.Info("wrote config", zap.String("path", path))
	}

	addr, err := w.FundingAddress(a.cfg.Wallet.Account)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if generated {
		fmt.Fprintf(out, "mnemonic: %s\n", mnemonic)
		fmt.Fprintln(out, "write these words down; they are the only backup of this wallet")
	}
	fmt.Fprintf(out, "seed file: %s\n", a.cfg.SeedPath())
	fmt.Fprintf(out, "funding address (%s): %s\n", net.Name, addr)
	return nil
}
