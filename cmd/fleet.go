package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/itzzomkar/navyatra-engine/config"
	"github.com/itzzomkar/navyatra-engine/infra/feeds"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet related commands",
}

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List vehicles answering on the discovery topic",
	RunE:  runFleetLs,
}

func init() {
	fleetCmd.AddCommand(fleetLsCmd)
	rootCmd.AddCommand(fleetCmd)
}

func runFleetLs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	feedCfg := cfg.Feeds
	suffix := time.Now().UnixNano()
	if feedCfg.ClientID != "" {
		feedCfg.ClientID = fmt.Sprintf("%s-%d", feedCfg.ClientID, suffix)
	} else {
		feedCfg.ClientID = fmt.Sprintf("fleet-ls-%d", suffix)
	}
	hub, err := feeds.NewHub(feedCfg)
	if err != nil {
		return fmt.Errorf("feed hub: %w", err)
	}
	defer hub.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	vehicles, err := hub.Discover(ctx, 2*time.Second)
	if err != nil {
		return err
	}
	for _, id := range vehicles {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}
