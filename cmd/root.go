// Package cmd implements the triage command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/crisistriage/app"
	"github.com/kilianp07/crisistriage/auth"
	"github.com/kilianp07/crisistriage/config"
	"github.com/kilianp07/crisistriage/infra/logger"
)

var (
	cfgPath    string
	serverURL  string
	clientAuth auth.Conf
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Emergency triage and resource matching service",
	RunE:  run,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the triage HTTP API",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "triage API base URL for client commands")
	rootCmd.PersistentFlags().StringVar(&clientAuth.TokenURL, "token-url", os.Getenv("TRIAGE_TOKEN_URL"), "OAuth2 token endpoint for client commands")
	rootCmd.PersistentFlags().StringVar(&clientAuth.ClientID, "client-id", os.Getenv("TRIAGE_CLIENT_ID"), "OAuth2 client id")
	rootCmd.PersistentFlags().StringVar(&clientAuth.ClientSecret, "client-secret", os.Getenv("TRIAGE_CLIENT_SECRET"), "OAuth2 client secret")
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads cfgPath. A missing default file yields the defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
