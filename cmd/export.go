package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"badgereq/config"
	"badgereq/output"

	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved badge requests to CSV/Excel",
	Long: `Export every saved badge request from the configured database.

Rows are ordered by creation time. Output format can be selected explicitly via --format
or inferred from the --output extension.`,
	Example: `
  # Export to CSV
  badgereq export --output ./requests.csv

  # Export to Excel
  badgereq export --output ./requests.xlsx

  # Force Excel format independent of extension
  badgereq export --format excel --output ./requests.out
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}

		format := exportFormat
		if strings.TrimSpace(format) == "" {
			format = detectExportFormat(exportOutput)
		}
		writer, err := output.WriterForFormat(format)
		if err != nil {
			return err
		}

		store, closer, err := openRequestStore(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer closer.Close()

		entries, err := store.ListRequests(cmd.Context())
		if err != nil {
			return err
		}
		if err := writer.Write(exportOutput, entries); err != nil {
			return err
		}
		fmt.Printf("Export completed. Rows: %d, Format: %s, File: %s\n", len(entries), format, exportOutput)
		return nil
	},
}

func detectExportFormat(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "xlsx", "xlsm", "xls":
		return "excel"
	default:
		return "csv"
	}
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: csv|excel (optional, inferred from output extension)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path")

	_ = exportCmd.MarkFlagRequired("output")
}
