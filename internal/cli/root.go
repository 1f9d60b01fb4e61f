package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Chicken/VenaaRauhassa/internal/app"
	"github.com/Chicken/VenaaRauhassa/internal/config"
)

type VenaaCtlApp struct {
	ConfigPath string
	EnvFile    string
}

func Execute() error {
	a := &VenaaCtlApp{}
	rootCmd := NewRootCmd(a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func NewRootCmd(a *VenaaCtlApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "venaa-ctl",
		Short:         "CLI tool used to inspect VR seat maps, trains and the upstream session",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(
		&a.ConfigPath,
		"toml",
		"",
		"Path to configuration file",
	)
	cmd.PersistentFlags().StringVar(
		&a.EnvFile,
		"env",
		".env",
		"Path to an optional dotenv file",
	)

	cmd.AddCommand(NewTrainCmd(a))
	cmd.AddCommand(NewTrainsCmd(a))
	cmd.AddCommand(NewSessionCmd(a))
	cmd.AddCommand(NewCheckCmd(a))

	return cmd
}

// open loads the configuration and wires the components
func (a *VenaaCtlApp) open() (*app.App, error) {
	if a.EnvFile != "" {
		// A missing dotenv file is fine, the environment may be set already
		_ = godotenv.Load(a.EnvFile)
	}

	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return nil, err
	}
	return app.New(cfg)
}
