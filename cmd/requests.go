package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"badgereq/badge"
	"badgereq/config"

	"github.com/spf13/cobra"
)

var (
	requestsDeleteID  int64
	requestsDeleteAll bool
)

var (
	deletePromptInput  io.Reader = os.Stdin
	deletePromptOutput io.Writer = os.Stdout
)

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "List or delete saved badge requests",
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print saved badge requests",
	Example: `
  badgereq requests list
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
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
		return printRequests(os.Stdout, entries)
	},
}

var requestsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete one saved request or all of them",
	Long: `Destructive cleanup command for the sqlite and postgres drivers.

Before deletion, an interactive security prompt requires typing exactly "Y".`,
	Example: `
  # Delete request 42
  badgereq requests delete --id 42

  # Delete every saved request
  badgereq requests delete --all
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (requestsDeleteID > 0) == requestsDeleteAll {
			return fmt.Errorf("exactly one of --id or --all is required")
		}

		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}

		target := fmt.Sprintf("request %d", requestsDeleteID)
		if requestsDeleteAll {
			target = "all saved requests"
		}
		confirmed, err := confirmDeletePrompt(deletePromptInput, deletePromptOutput, target)
		if err != nil {
			return err
		}
		if !confirmed {
			return fmt.Errorf("delete aborted: confirmation was not 'Y'")
		}

		repo, err := openRepository(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer repo.Close()

		if requestsDeleteAll {
			count, err := repo.DeleteAllRequests(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Deleted requests: %d\n", count)
			return nil
		}

		found, err := repo.DeleteRequest(cmd.Context(), requestsDeleteID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("request %d not found", requestsDeleteID)
		}
		fmt.Printf("Deleted request: %d\n", requestsDeleteID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(requestsCmd)
	requestsCmd.AddCommand(requestsListCmd)
	requestsCmd.AddCommand(requestsDeleteCmd)

	requestsDeleteCmd.Flags().Int64Var(&requestsDeleteID, "id", 0, "ID of the request to delete")
	requestsDeleteCmd.Flags().BoolVar(&requestsDeleteAll, "all", false, "Delete every saved request")
}

func printRequests(w io.Writer, entries []badge.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No saved requests.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tREQUESTER\tCOMPANY\tEMPLOYEE\tID TYPE\tID VALUE")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			entry.ID,
			entry.CreatedAt.Local().Format("2006-01-02 15:04"),
			entry.RequesterName,
			entry.Company,
			entry.EmployeeName,
			entry.IDKind(),
			entry.IDValue(),
		)
	}
	return tw.Flush()
}

func confirmDeletePrompt(input io.Reader, output io.Writer, target string) (bool, error) {
	if input == nil {
		return false, fmt.Errorf("delete confirmation input is not available")
	}

	if output == nil {
		output = io.Discard
	}

	if _, err := fmt.Fprintf(output, "Delete %s? Type Y to confirm: ", target); err != nil {
		return false, fmt.Errorf("write delete confirmation prompt: %w", err)
	}

	line, err := bufio.NewReader(input).ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return strings.TrimSpace(line) == "Y", nil
		}
		return false, fmt.Errorf("read delete confirmation: %w", err)
	}
	return strings.TrimSpace(line) == "Y", nil
}
