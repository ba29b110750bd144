package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bitfsorg/doginals-go/config"
	"github.com/bitfsorg/doginals-go/inscribe"
	"github.com/bitfsorg/doginals-go/journal"
	"github.com/bitfsorg/doginals-go/logging"
	"github.com/bitfsorg/doginals-go/network"
	"github.com/bitfsorg/doginals-go/retry"
	"github.com/bitfsorg/doginals-go/reward"
	"github.com/bitfsorg/doginals-go/storage"
	"github.com/bitfsorg/doginals-go/wallet"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	dataDir    string
	network    string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "doginals",
		Short:         "Inscribe files onto Dogecoin",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default <data-dir>/config.yaml)")
	flags.StringVar(&a.dataDir, "data-dir", "", "data directory (default ~/.doginals)")
	flags.StringVar(&a.network, "network", "", "mainnet, testnet or regtest")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newServeCommand(a),
		newInscribeCommand(a),
		newResumeCommand(a),
		newQuoteCommand(a),
		newJobsCommand(a),
		newAddressCommand(a),
		newInitWalletCommand(a),
	)
	return root
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup() error {
	dataDir := a.dataDir
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	path := a.configPath
	if path == "" {
		path = config.ConfigPath(dataDir)
	}

	cfg, err := config.LoadConfig(path)
	switch {
	case errors.Is(err, config.ErrConfigNotFound) && a.configPath == "":
		cfg = config.DefaultConfig()
	case err != nil:
		return err
	}

	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if a.network != "" {
		cfg.Network = a.network
		cfg.RPC.Network = a.network
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) walletNetwork() (*wallet.NetworkConfig, error) {
	return wallet.GetNetwork(a.cfg.Network)
}

func (a *app) password() (string, error) {
	env := a.cfg.Wallet.PasswordEnv
	if env == "" {
		return "", errors.New("wallet.password_env is not set")
	}
	pw := os.Getenv(env)
	if pw == "" {
		return "", fmt.Errorf("wallet password: set %s", env)
	}
	return pw, nil
}

func (a *app) openWallet() (*wallet.Wallet, error) {
	net, err := a.walletNetwork()
	if err != nil {
		return nil, err
	}
	pw, err := a.password()
	if err != nil {
		return nil, err
	}
	w, err := wallet.Open(a.cfg.SeedPath(), pw, net)
	if err != nil {
		return nil, fmt.Errorf("open wallet %s: %w", a.cfg.SeedPath(), err)
	}
	return w, nil
}

func (a *app) newQuoter() (*reward.Quoter, error) {
	client := &http.Client{Timeout: reward.DefaultSourceTimeout}
	return reward.NewQuoter(reward.DefaultSources(client, a.logger.Named("price")), a.cfg.Reward, a.logger.Named("reward"))
}

func (a *app) newRPC() (*network.RPCClient, error) {
	rpcCfg, err := network.ResolveConfig(&a.cfg.RPC, nil, a.cfg.Network)
	if err != nil {
		return nil, err
	}
	return network.NewRPCClient(*rpcCfg), nil
}

// service wires an inscription service. The caller closes the returned
// journal.
func (a *app) service(w *wallet.Wallet, source network.FundingSource, delay time.Duration) (*inscribe.Service, *journal.Store, error) {
	quoter, err := a.newQuoter()
	if err != nil {
		return nil, nil, err
	}
	store, err := journal.Open(a.cfg.JournalPath())
	if err != nil {
		return nil, nil, err
	}
	payloads, err := storage.NewFileStore(a.cfg.PayloadDir())
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	svc, err := inscribe.New(inscribe.Deps{
		Wallet:         w,
		Account:        a.cfg.Wallet.Account,
		Source:         source,
		Executor:       retry.New(a.cfg.Retry, a.logger.Named("retry")),
		Quoter:         quoter,
		Journal:        store,
		Payloads:       payloads,
		Policy:         a.cfg.Chain.Policy,
		ChunkSize:      a.cfg.Chain.ChunkSize,
		BroadcastDelay: delay,
	}, a.logger.Named("inscribe"))
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return svc, store, nil
}
