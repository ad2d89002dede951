/*
Copyright © 2025 riad@rsworld.eu

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"badgereq/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "badgereq",
	Short: "Collect badge requests, save each entry and mail the batch to IT.",
	Long: `
**********************************************
*            BADGE REQUEST FORM              *
**********************************************

This CLI serves the badge request form, validates employee identifiers per company,
saves every accepted entry (SQLite, PostgreSQL or Supabase) and mails the finished
batch through Resend.

Identifier rules:
- Link: LDAP, exactly 11 letters or digits
- Impact: LDAP, exactly 10 letters or digits
- Other: LDAP of 7 letters or digits, or a 9-digit Time Clock AIN
`,
	Example: `
  # Create configuration file
  badgereq config create

  # Serve the form on the configured port
  badgereq serve

  # Check mail delivery
  badgereq send-test

  # Submit a batch from the command line without sending
  badgereq submit --requester "Sam Lee" --company Other --entry "Jane Doe|LDAP|AB12345" --dry-run

  # List and export saved requests
  badgereq requests list
  badgereq export --output ./requests.xlsx
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	config.SetDefaults()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "configFile", "", "Config file override (default discovery: $HOME/.badgereq.yaml, then ./.badgereq.yaml)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".badgereq")
	}

	cobra.CheckErr(config.BindEnv(viper.GetViper()))

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "No config file found, using defaults and environment. Create one with: badgereq config create")
	}
}
