package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/crowdflux/DeckLingo-AI/config"
)

// Version is the decklingo release.
const Version = "0.3.0"

// ServeFunc runs the server until ctx is done.
type ServeFunc func(ctx context.Context, cfg config.Config) error

// CreateRootCommand creates the root command. Running it without a
// subcommand is the same as "decklingo serve".
func CreateRootCommand(flags *Flags, v *viper.Viper, serve ServeFunc) *cobra.Command {
	run := func(cmd *cobra.Command, _ []string) error {
		cfg, err := LoadConfig(cmd, v, flags.CfgFile)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	}

	rootCmd := &cobra.Command{
		Use:   "decklingo",
		Short: "Document translation gateway",
		Long: `decklingo accepts document uploads over HTTP, hands them to the
Papago document translation API and streams the translated file back.

Examples:
  decklingo                         # Serve on :3000 using .env and environment
  decklingo serve --port 8080       # Same, on another port
  decklingo --config prod.env       # Read settings from prod.env`,
		Args:         cobra.NoArgs,
		Version:      Version,
		SilenceUsage: true,
		RunE:         run,
	}

	setupFlags(rootCmd.PersistentFlags(), flags)
	bindFlagsToViper(v, rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			Args:  cobra.NoArgs,
			RunE:  run,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "decklingo", Version)
			},
		},
	)

	return rootCmd
}

func setupFlags(fs *pflag.FlagSet, flags *Flags) {
	fs.StringVar(&flags.CfgFile, "config", "", "dotenv config file (default is ./.env when present)")
	fs.StringVar(&flags.Host, "host", flags.Host, "Listen host")
	fs.IntVarP(&flags.Port, "port", "p", flags.Port, "Listen port")
	fs.StringVar(&flags.UploadDir, "upload-dir", flags.UploadDir, "Directory for temporary uploads")
	fs.StringVar(&flags.PublicDir, "public-dir", flags.PublicDir, "Serve the browser frontend from this directory")
	fs.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&flags.LogFormat, "log-format", flags.LogFormat, "Log format: console or json")
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"host":       config.KeyHost,
	"port":       config.KeyPort,
	"upload-dir": config.KeyUploadDir,
	"public-dir": config.KeyPublicDir,
	"log-level":  config.KeyLogLevel,
	"log-format": config.KeyLogFormat,
}

func bindFlagsToViper(v *viper.Viper, fs *pflag.FlagSet) {
	for name, key := range flagKeys {
		v.BindPFlag(key, fs.Lookup(name))
	}
}

// LoadConfig resolves flags, environment and the config file into a Config.
// Changed flags win over the environment, which wins over the file.
func LoadConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) (config.Config, error) {
	config.SetDefaults(v)

	used, err := config.ReadFile(v, cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if used != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", used)
	}

	return config.Load(v)
}
