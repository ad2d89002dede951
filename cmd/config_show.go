package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"badgereq/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show active configuration values.",
	Long: `Display the currently loaded configuration and the resolved config file path.

This command validates the configuration before printing values. Keys are masked.`,
	Example: `
  # Show active configuration
  badgereq config show
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		source := viper.ConfigFileUsed()
		if source == "" {
			source = "(none, defaults and environment)"
		}
		fmt.Println("Config file loaded from:", source)
		printConfig(os.Stdout, cfg)
		return nil
	},
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintf(w, "server.port: %d\n", cfg.Server.Port)
	fmt.Fprintf(w, "server.request_timeout: %s\n", cfg.Server.RequestTimeout)
	fmt.Fprintf(w, "server.session_ttl: %s\n", cfg.Server.SessionTTL)
	fmt.Fprintf(w, "server.send_rate_limit: %d\n", cfg.Server.SendRateLimit)
	fmt.Fprintf(w, "log.format: %s\n", cfg.Log.Format)
	fmt.Fprintf(w, "log.level: %s\n", cfg.Log.Level)
	fmt.Fprintf(w, "database.driver: %s\n", cfg.Database.Driver)
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		fmt.Fprintf(w, "database.path: %s\n", cfg.Database.Path)
	case config.DriverPostgres:
		fmt.Fprintf(w, "database.dsn: %s\n", mask(cfg.Database.DSN))
	case config.DriverSupabase:
		fmt.Fprintf(w, "database.supabase_url: %s\n", cfg.Database.SupabaseURL)
		fmt.Fprintf(w, "database.supabase_key: %s\n", mask(cfg.Database.SupabaseKey))
		fmt.Fprintf(w, "database.table: %s\n", cfg.Database.Table)
	}
	fmt.Fprintf(w, "mail.base_url: %s\n", cfg.Mail.BaseURL)
	fmt.Fprintf(w, "mail.api_key: %s\n", mask(cfg.Mail.APIKey))
	fmt.Fprintf(w, "mail.from: %s\n", cfg.Mail.From)
	fmt.Fprintf(w, "mail.to: %s\n", cfg.Mail.To)
	fmt.Fprintf(w, "mail.timeout: %s\n", cfg.Mail.Timeout)
	fmt.Fprintf(w, "companies: %s\n", strings.Join(cfg.Companies, ", "))
}

// mask keeps the last four characters of a secret.
func mask(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
