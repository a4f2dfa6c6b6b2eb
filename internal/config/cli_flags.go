package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("json", false, "Write logs as JSON")
	cmd.PersistentFlags().String("config", "", "Path to configuration file (optional)")
	cmd.PersistentFlags().String("sites", "", "Path to a YAML file of site profiles")
	cmd.PersistentFlags().String("store", DefaultStoreDriver, "Store driver (memory, sqlite, postgres)")
	cmd.PersistentFlags().String("dsn", DefaultStoreDSN, "Store data source name")
	cmd.PersistentFlags().Bool("cache", DefaultCacheEnabled, "Cache fetched pages")
	cmd.PersistentFlags().Duration("timeout", DefaultRequestTimeout, "Per-request timeout")
	cmd.PersistentFlags().String("user-agent", "", "Custom user agent string")
	cmd.PersistentFlags().StringSlice("proxy", nil, "Proxy URL (http, https or socks5); repeat to rotate")
	cmd.PersistentFlags().StringSlice("site", nil, "Only crawl these site ids")
	cmd.PersistentFlags().StringArrayP("header", "H", nil, "Extra request header (\"Key: Value\"); repeatable")
}
