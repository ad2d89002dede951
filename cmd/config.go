package cmd

import "github.com/spf13/cobra"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage badgereq configuration file values.",
	Long: `Create, edit, display, and delete the badgereq configuration file.

The configuration stores server, logging, database, mail and company settings:
- server.port / request_timeout / session_ttl / send_rate_limit
- database.driver (sqlite|postgres|supabase) and its connection values
- mail.api_key / from / to (RESEND_API_KEY, RESEND_FROM, RESEND_TEST_TO also work)
- companies`,
	Example: `
  # Create default config in $HOME/.badgereq.yaml
  badgereq config create

  # Show active config and source file
  badgereq config show

  # Open active config in editor (creates example if missing)
  badgereq config edit

  # Delete active config file
  badgereq config delete
`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
