package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/itzzomkar/navyatra-engine/app"
	"github.com/itzzomkar/navyatra-engine/config"
	"github.com/itzzomkar/navyatra-engine/infra/logger"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run a single optimization pass and exit",
	RunE:  runCycle,
}

func init() {
	rootCmd.AddCommand(cycleCmd)
}

func runCycle(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("cycle-command").Errorf("service close: %v", err)
		}
	}()

	jobID, gateOpen, err := svc.Engine.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("cycle: %w", err)
	}
	if !gateOpen {
		fmt.Fprintln(cmd.OutOrStdout(), "network within nominal bounds, no job submitted")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "submitted job %s\n", jobID)
	svc.Jobs.Wait()
	return nil
}
