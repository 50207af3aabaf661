package main

import (
	"errors"
	"fmt"
	"math"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/spf13/cobra"

	"github.com/Metalcape/zebra-flyclient/chain"
	"github.com/Metalcape/zebra-flyclient/finalizedstate"
	"github.com/Metalcape/zebra-flyclient/network"
)

const serviceName = "historynodes"

var ErrDBRequired = errors.New("a database path is required")

type config struct {
	dbPath      string
	networkName string
	tip         int64
	logLevel    string
	metricsAddr string
	sync        bool
}

func newRootCmd() *cobra.Command {
	cfg := &config{}

	root := &cobra.Command{
		Use:          serviceName,
		Short:        "Back fill and verify the per upgrade history tree nodes of a finalized state",
		SilenceUsage: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.dbPath, "db", "", "path of the finalized state database")
	flags.StringVar(&cfg.networkName, "network", "", "Mainnet or Testnet, required when the database is new")
	flags.Int64Var(&cfg.tip, "tip", -1, "tip height to process up to, the stored tip when negative")
	flags.StringVar(&cfg.logLevel, "log-level", "INFO", "log level")
	flags.StringVar(&cfg.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while a pass runs")
	flags.BoolVar(&cfg.sync, "sync", true, "wait for every committed batch to reach stable storage")

	root.AddCommand(
		newRunCmd(cfg),
		newCheckCmd(cfg),
		newUpgradeCmd(cfg),
		newInspectCmd(cfg),
	)
	return root
}

// open starts the logger and opens the database the flags name
func (cfg *config) open() (logger.Logger, *finalizedstate.DB, error) {
	if cfg.dbPath == "" {
		return nil, nil, ErrDBRequired
	}

	logger.New(cfg.logLevel)
	log := logger.Sugar.WithServiceName(serviceName)

	opts := []finalizedstate.Option{finalizedstate.WithSync(cfg.sync)}
	if cfg.networkName != "" {
		n, err := network.ParseNetwork(cfg.networkName)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, finalizedstate.WithNetwork(n))
	}

	db, err := finalizedstate.Open(log, cfg.dbPath, opts...)
	if err != nil {
		return nil, nil, err
	}
	return log, db, nil
}

// tipHeight is the --tip flag, or the stored tip when it is negative. An
// empty database has nothing to process and reports tip 0.
func (cfg *config) tipHeight(db *finalizedstate.DB) (chain.Height, error) {
	if cfg.tip >= 0 {
		if cfg.tip > math.MaxUint32 || chain.Height(cfg.tip) > chain.MaxHeight {
			return 0, fmt.Errorf("%w: --tip %d", chain.ErrHeightRange, cfg.tip)
		}
		return chain.Height(cfg.tip), nil
	}
	tip, _, err := db.TipHeight()
	return tip, err
}
