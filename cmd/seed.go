package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/crisistriage/app/plugins"
	"github.com/kilianp07/crisistriage/core/factory"
	"github.com/kilianp07/crisistriage/core/model"
	"github.com/kilianp07/crisistriage/internal/fixture"
)

var (
	seedFile    string
	seedViaHTTP bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load resources from a YAML fixture",
	Long: "Writes the fixture resources to the configured store, or posts them to a running " +
		"server with --http (required for the in-memory store).",
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "fixtures/resources.yaml", "resource fixture")
	seedCmd.Flags().BoolVar(&seedViaHTTP, "http", false, "post resources to --server instead of the store")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	f, err := os.Open(seedFile)
	if err != nil {
		return err
	}
	defer f.Close()
	resources, err := fixture.Decode(f, time.Now().UTC())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()
	save, closeFn, err := seedTarget(cmd)
	if err != nil {
		return err
	}
	defer closeFn()
	for _, r := range resources {
		if err := save(ctx, r); err != nil {
			return fmt.Errorf("resource %s: %w", r.ID, err)
		}
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "loaded %d resources\n", len(resources))
	return err
}

func seedTarget(cmd *cobra.Command) (func(context.Context, model.Resource) error, func(), error) {
	if seedViaHTTP {
		client := newAPIClient(serverURL, clientAuth)
		return func(ctx context.Context, r model.Resource) error {
			_, err := client.CreateResource(ctx, r)
			return err
		}, func() {}, nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Store.Backend == "memory" {
		return nil, nil, fmt.Errorf("the memory store does not outlive this command: use --http")
	}
	st, err := plugins.Stores.Create(factory.ModuleConfig{Type: cfg.Store.Backend, Conf: map[string]any{"dsn": cfg.Store.DSN}})
	if err != nil {
		return nil, nil, err
	}
	return st.SaveResource, func() { _ = st.Close() }, nil
}
