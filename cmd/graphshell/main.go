// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command graphshell is the entrypoint tying the control core together:
// store, reducer, control panel, reconciler and workbench, driven by one
// of a handful of cobra subcommands. Grounded on cmd/aleutian/main.go's
// rootCmd/PersistentPreRun shape, trimmed to this domain's much smaller
// command surface (no model backends, no Podman VM, no ingestion
// pipeline).
package main

import (
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mark-ik/graphshell-sub001/internal/config"
	"github.com/mark-ik/graphshell-sub001/internal/graph"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "graphshell",
	Short: "A deterministic, graph-native workspace control core",
	Long: `graphshell drives a causality-ordered intent reducer over a
node/edge graph, with durable journal+snapshot persistence, lifecycle
resource reconciliation, and a tile-pane workbench UI.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to graphshell.yaml (default ~/.graphshell/graphshell.yaml)")
	rootCmd.AddCommand(runCmd, recoverCmd, snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("graphshell: %v", err)
	}
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

// runCmd starts the interactive workbench (spec.md §4.6's frame loop)
// over bubbletea's program runner.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the interactive workbench",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := buildCore(cfg)
		if err != nil {
			return err
		}
		defer c.close()

		ctx := cmd.Context()
		if g, _, err := c.store.Recover(ctx); err != nil {
			c.log.Warn("recover on startup failed, starting from an empty graph", "error", err.Error())
		} else {
			c.ws.Graph = g
		}

		p := tea.NewProgram(c.workbenchModel(), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

// recoverCmd replays the journal against the last snapshot and reports
// the resulting node/edge counts, without starting the UI (spec.md
// §4.2 "Recovery").
var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Replay the journal and report the recovered graph's size",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := buildCore(cfg)
		if err != nil {
			return err
		}
		defer c.close()

		g, seq, err := c.store.Recover(cmd.Context())
		if err != nil {
			return fmt.Errorf("recover: %w", err)
		}
		edges := 0
		g.AllEdges(func(*graph.Edge) { edges++ })
		fmt.Fprintf(os.Stdout, "recovered %d nodes, %d edges at sequence %d from %s\n",
			g.NodeCount(), edges, seq, cfg.Store.DataDir)
		return nil
	},
}

// snapshotCmd forces an immediate snapshot checkpoint, outside the
// running frame loop's conditional cadence (spec.md §4.6 step 7).
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Force an immediate snapshot checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := buildCore(cfg)
		if err != nil {
			return err
		}
		defer c.close()

		ctx := cmd.Context()
		g, _, err := c.store.Recover(ctx)
		if err != nil {
			return fmt.Errorf("recover before snapshot: %w", err)
		}
		seq, err := c.store.TakeSnapshot(ctx, g)
		if err != nil {
			return fmt.Errorf("take_snapshot: %w", err)
		}
		fmt.Fprintf(os.Stdout, "snapshot taken at sequence %d\n", seq)
		return nil
	},
}
