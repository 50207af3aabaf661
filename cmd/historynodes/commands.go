package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Metalcape/zebra-flyclient/historytree"
	"github.com/Metalcape/zebra-flyclient/network"
	"github.com/Metalcape/zebra-flyclient/upgrade"
)

func newRunCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Rewrite every history node from the finalized blocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, db, err := cfg.open()
			if err != nil {
				return err
			}
			defer db.Close()

			tip, err := cfg.tipHeight(db)
			if err != nil {
				return err
			}
			return runPass(cmd.Context(), log, cfg.metricsAddr, func(cancel <-chan upgrade.CancelFormatChange, opts []upgrade.Option) error {
				return upgrade.Run(tip, db, cancel, opts...)
			})
		},
	}
}

func newCheckCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the stored history nodes reproduce the expected history tree roots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, db, err := cfg.open()
			if err != nil {
				return err
			}
			defer db.Close()

			tip, err := cfg.tipHeight(db)
			if err != nil {
				return err
			}
			return runPass(cmd.Context(), log, cfg.metricsAddr, func(cancel <-chan upgrade.CancelFormatChange, opts []upgrade.Option) error {
				verifyErr, err := upgrade.Check(tip, db, cancel, opts...)
				if err != nil {
					return err
				}
				if verifyErr != nil {
					return fmt.Errorf("history nodes are invalid: %w", verifyErr)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "history nodes up to height %d are valid\n", tip)
				return nil
			})
		},
	}
}

func newUpgradeCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Apply the history nodes disk format change when the database predates it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, db, err := cfg.open()
			if err != nil {
				return err
			}
			defer db.Close()

			return runPass(cmd.Context(), log, cfg.metricsAddr, func(cancel <-chan upgrade.CancelFormatChange, opts []upgrade.Option) error {
				return upgrade.NewDriver(opts...).Apply(db, cancel)
			})
		},
	}
}

func newInspectCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the disk format, the tip and the stored history node counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := cfg.open()
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "network: %s\n", db.Network())

			version, ok, err := db.FormatVersion()
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintf(out, "format: %s\n", version)
			} else {
				fmt.Fprintln(out, "format: unset")
			}

			tip, ok, err := db.TipHeight()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "tip: none")
				return nil
			}
			fmt.Fprintf(out, "tip: %d (%s)\n", tip, db.Network().UpgradeAt(tip))

			tree, err := db.HistoryTree()
			if err != nil {
				return err
			}
			root, err := historytree.RootHash(tree)
			switch {
			case errors.Is(err, historytree.ErrEmptyTree):
				fmt.Fprintln(out, "history tree: empty")
			case err != nil:
				return err
			default:
				fmt.Fprintf(out, "history tree: %s, %d leaves, root %s\n", tree.Upgrade(), tree.Size(), root)
			}

			counts, err := db.HistoryNodeCounts()
			if err != nil {
				return err
			}
			upgrades := make([]network.Upgrade, 0, len(counts))
			for u := range counts {
				upgrades = append(upgrades, u)
			}
			slices.Sort(upgrades)
			for _, u := range upgrades {
				fmt.Fprintf(out, "history nodes %s: %d\n", u, counts[u])
			}
			return nil
		},
	}
}
