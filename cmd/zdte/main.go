package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/raftroch1/0dte-sub000/config"
	"github.com/raftroch1/0dte-sub000/logger"
)

var cfgFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "zdte",
		Short:         "Intraday option strategy backtester on synthetic 0DTE chains",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default zdte.yaml in the working directory)")
	root.AddCommand(backtestCmd(), sweepCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the runnable configuration: .env file if present,
// optional AWS secret exported into the environment, then the YAML file
// with ZDTE_ overrides applied on top.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	if name := os.Getenv("ZDTE_SECRET_NAME"); name != "" {
		region := os.Getenv("AWS_REGION")
		if region == "" {
			region = "us-east-1"
		}
		if err := config.LoadSecretEnv(name, region); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}
