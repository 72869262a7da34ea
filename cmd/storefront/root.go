package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-storefront/internal/config"
	"github.com/tbourn/go-storefront/internal/sysutil"
)

// cli carries what every subcommand shares once the root has loaded it.
type cli struct {
	envFile string
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Chat storefront for digital goods",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", "", "dotenv file seeded into the environment when present (default $STOREFRONT_ENV_FILE or .env)")

	root.AddCommand(serveCmd(c))
	root.AddCommand(migrateCmd(c))
	root.AddCommand(methodsCmd(c))
	root.AddCommand(productCmd(c))
	return root
}

func (c *cli) load() error {
	envFile := sysutil.FirstNonEmpty(c.envFile, os.Getenv("STOREFRONT_ENV_FILE"), ".env")
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	sysutil.SetLogLevel(cfg.LogLevel)
	sysutil.ConfigureLogger(cfg.LogPretty)
	c.cfg = cfg
	return nil
}
