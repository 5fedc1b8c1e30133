package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opensar/rescue/config"
	"github.com/opensar/rescue/simulator"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Publish synthetic drone swarm telemetry to the broker",
	RunE:  runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	simCfg := cfg.Simulator
	if simCfg.Broker == "" {
		simCfg.Broker = cfg.MQTT.Broker
	}
	cli, err := simulator.Connect(simCfg.Broker)
	if err != nil {
		return fmt.Errorf("broker connect: %w", err)
	}
	defer cli.Disconnect(250)

	swarm := simulator.NewSwarm(simCfg)
	return swarm.Run(ctx, cli)
}
