package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"myshop/internal/catalog"
	"myshop/internal/config"
	"myshop/internal/services"
)

var (
	configFile string
	retries    int
	timeout    time.Duration
	verbose    bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "shopctl",
	Short: "Browse the shop catalog and manage your profile",
	Long: `shopctl reads the same repositories as the API gateway.

Every command shows its slot as it settles: loading, the data, or the
failure with its kind. Failed reads are retried --retries times.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		if configFile == "" {
			configFile = os.Getenv("CONFIG_FILE")
		}
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (or set CONFIG_FILE env)")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", 0, "Retry a failed read this many times")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	profileCmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	profileCmd.Flags().StringVar(&password, "password", "", "Account password (or set SHOPCTL_PASSWORD env)")
	profileCmd.Flags().StringVar(&newName, "set-name", "", "Update the display name, then show the re-read profile")
	profileCmd.Flags().BoolVar(&signOut, "sign-out", false, "Sign out after showing the profile")
	profileCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(productCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(categoryCmd)
	rootCmd.AddCommand(profileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func catalogRepository() (catalog.Repository, error) {
	return catalog.New(cfg.CatalogSource, services.NewCatalogClient(cfg.CatalogServiceURL))
}
