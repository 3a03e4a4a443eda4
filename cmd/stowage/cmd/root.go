package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "stowage",
	Short: "Store and fetch named payloads",
	Long: "CLI for the stowage facade: keep payloads in the key/value store or in the " +
		"document, library and cache directories.",
	SilenceUsage: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: $XDG_CONFIG_HOME/stowage/config.yaml)")
	pf.StringP("target", "t", "kv", "kv, document, library or cache")
	pf.String("root", "", "keep every location under this directory instead of the platform defaults")
	pf.String("kv-backend", "", "key/value backend: prefs, sqlite, redis or memory")
	pf.String("kv-path", "", "prefs snapshot file")
	pf.Int("compress", 0, "zstd level for file payloads (0 off, 1-3)")
	pf.String("cache", "", "memory cache: map, ristretto, bigcache or none")
	pf.BoolP("verbose", "v", false, "debug logging and cache event logs")
	pf.String("metrics-file", "", "write prometheus counters to this file on exit")

	viper.BindPFlag("target", pf.Lookup("target"))
	viper.BindPFlag("root", pf.Lookup("root"))
	viper.BindPFlag("kv.backend", pf.Lookup("kv-backend"))
	viper.BindPFlag("kv.path", pf.Lookup("kv-path"))
	viper.BindPFlag("compress", pf.Lookup("compress"))
	viper.BindPFlag("cache", pf.Lookup("cache"))
	viper.BindPFlag("verbose", pf.Lookup("verbose"))
	viper.BindPFlag("metrics_file", pf.Lookup("metrics-file"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(filepath.Join(xdg.ConfigHome, "stowage"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("STOWAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("kv.backend", "prefs")
	viper.SetDefault("kv.path", filepath.Join(xdg.StateHome, "stowage", "prefs.cbor"))
	viper.SetDefault("kv.codec", "cbor")
	viper.SetDefault("sqlite.path", filepath.Join(xdg.StateHome, "stowage", "kv.db"))
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.prefix", "stowage")
	viper.SetDefault("cache", "map")
	viper.SetDefault("cache_max_mb", 64)

	viper.ReadInConfig()
}
