package cmd

import (
	"context"
	"fmt"

	"badgereq/config"

	"github.com/spf13/cobra"
)

var sendTestCmd = &cobra.Command{
	Use:   "send-test",
	Short: "Send a plain test message through the mail provider",
	Long: `Send a short plain-text message to mail.to using the configured Resend credentials.

Use this to verify mail.api_key, mail.from and mail.to before running the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}

		client, err := newMailClient(cfg.Mail)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if cfg.Mail.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Mail.Timeout)
			defer cancel()
		}

		id, err := client.SendTest(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Test message sent. To: %s, Message ID: %s\n", cfg.Mail.To, id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendTestCmd)
}
