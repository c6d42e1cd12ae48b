package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/config"
)

var Version = "dev"

type options struct {
	configPath string
	cfg        *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "mcc",
		Short:         "MyCryptoCheckout merchant client",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")

	cmd.AddCommand(serveCmd(opts))
	cmd.AddCommand(sendCmd(opts))
	cmd.AddCommand(sendUnsentCmd(opts))
	cmd.AddCommand(retrieveAccountCmd(opts))
	cmd.AddCommand(processCmd(opts))
	cmd.AddCommand(purchaseURLCmd(opts))
	cmd.AddCommand(configCmd(opts))

	return cmd
}

// withApp validates the config and runs fn with a fully wired app.
func withApp(opts *options, fn func(*app) error) error {
	if err := opts.cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(opts.cfg)
	if err != nil {
		return err
	}

	a, err := newApp(opts.cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}
