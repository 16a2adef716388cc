package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/memora/memora/internal/observability"
	"github.com/memora/memora/internal/profile"
	"github.com/memora/memora/server"
	"github.com/memora/memora/store/db"
)

const greetingBanner = `
Memora - a resilient memory store
`

var rootCmd = &cobra.Command{
	Use:   "memora",
	Short: "A resilient memory store with transparent fallback",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Version: version,
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		observability.SetupLogger(instanceProfile.Mode)

		memoryStore, err := db.NewStore(instanceProfile)
		if err != nil {
			return fmt.Errorf("failed to create store: %w", err)
		}

		s, err := server.NewServer(ctx, instanceProfile, memoryStore)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		fmt.Print(greetingBanner)
		slog.Info("memora starting",
			"version", version,
			"mode", instanceProfile.Mode,
			"address", instanceProfile.ListenAddr())

		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Start(ctx)
		}()

		select {
		case <-ctx.Done():
		case err := <-errCh:
			if err != nil {
				slog.Error("server stopped unexpectedly", "error", err)
			}
		}

		s.Shutdown(context.Background())
		return nil
	},
}

// version is set at build time via -ldflags "-X main.version=X.Y.Z".
var version = "0.1.0-dev"

func init() {
	rootCmd.PersistentFlags().String("mode", "demo", `mode of the server, can be "prod", "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the server")
	rootCmd.PersistentFlags().Int("port", 8230, "port of the server")
	rootCmd.PersistentFlags().String("data", "", "data directory of the server")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("memora")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
