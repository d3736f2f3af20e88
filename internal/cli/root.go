package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Overland-East-Bay/family-health/internal/adapters/snapshot"
	"github.com/Overland-East-Bay/family-health/internal/platform/config"
	"github.com/Overland-East-Bay/family-health/internal/platform/storage"
	"github.com/Overland-East-Bay/family-health/internal/ports/out/kvstore"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Backend    string
	SQLitePath string
	Format     string // "text" | "json"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for familyctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "familyctl",
		Short: "Inspect and maintain the family health record store",
		// main reports the error once.
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (defaults to $CONFIG_FILE)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "storage backend override (memory|sqlite|postgres)")
	cmd.PersistentFlags().StringVar(&opts.SQLitePath, "sqlite-path", "", "sqlite database file override")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// storeHandle is an opened store plus the snapshot repository over it.
type storeHandle struct {
	store kvstore.Store
	repo  *snapshot.Repo
	close func()
}

func openStore(ctx context.Context, opts *RootOptions) (storeHandle, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return storeHandle{}, err
	}
	store, cleanup, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return storeHandle{}, err
	}
	return storeHandle{store: store, repo: snapshot.NewRepo(store), close: cleanup}, nil
}

func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Backend != "" {
		cfg.Storage.Backend = opts.Backend
	}
	if opts.SQLitePath != "" {
		cfg.Storage.SQLitePath = opts.SQLitePath
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
