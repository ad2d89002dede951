package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"badgereq/badge"
	"badgereq/config"
	"badgereq/form"
	"badgereq/mail"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	submitRequester string
	submitCompany   string
	submitEntries   []string
	submitDryRun    bool
	submitTimeout   time.Duration
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Validate, save and mail one batch of badge requests",
	Long: `Run the same pipeline as the web form for a batch given on the command line.

Every --entry is validated for the company, checked for duplicates, saved through the
configured database driver and finally mailed as one batch. Processing stops at the
first rejected entry; entries saved before it stay saved.

Entry format: "Employee Name|ID type|value" where ID type is LDAP or Time Clock.
"Employee Name|value" is read as an LDAP entry.

In --dry-run mode nothing is saved or sent; the rendered mail is printed instead.`,
	Example: `
  # Two entries for Other
  badgereq submit --requester "Sam Lee" --company Other \
    --entry "Jane Doe|LDAP|AB12345" --entry "John Roe|Time Clock|123456789"

  # Preview the mail for a Link batch
  badgereq submit --requester "Sam Lee" --company Link --entry "Jane Doe|ABC12345678" --dry-run
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		ctx, cancel := context.WithTimeout(cmd.Context(), submitTimeout)
		defer cancel()

		var (
			persister form.Persister = dryRunPersister{}
			notifier  form.Notifier  = printNotifier{w: os.Stdout}
		)
		if !submitDryRun {
			store, closer, err := openRequestStore(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer closer.Close()

			mailer, err := newMailClient(cfg.Mail)
			if err != nil {
				return err
			}
			persister = store
			notifier = mailer
		}

		ctrl := form.NewController(persister, notifier, form.Options{
			SessionID: "cli-" + uuid.NewString(),
			Companies: cfg.CompanyList(),
			Timeout:   cfg.Server.RequestTimeout,
			Logger:    logger,
		})

		id, err := runSubmit(ctx, ctrl, submitRequester, submitCompany, submitEntries)
		if err != nil {
			return err
		}
		if submitDryRun {
			fmt.Printf("Dry run completed. Entries: %d\n", len(submitEntries))
			return nil
		}
		fmt.Printf("Batch sent. Entries: %d, Message ID: %s\n", len(submitEntries), id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringVar(&submitRequester, "requester", "", "Requester name")
	submitCmd.Flags().StringVar(&submitCompany, "company", "", "Company of all entries")
	submitCmd.Flags().StringArrayVar(&submitEntries, "entry", nil, `Entry "Employee Name|ID type|value" (repeatable)`)
	submitCmd.Flags().BoolVar(&submitDryRun, "dry-run", false, "Validate and print the mail without saving or sending")
	submitCmd.Flags().DurationVar(&submitTimeout, "timeout", 2*time.Minute, "Overall timeout for saving and sending")

	_ = submitCmd.MarkFlagRequired("requester")
	_ = submitCmd.MarkFlagRequired("company")
	_ = submitCmd.MarkFlagRequired("entry")
}

type entryFlag struct {
	employeeName string
	kind         badge.IDKind
	value        string
}

func parseEntryFlag(raw string) (entryFlag, error) {
	parts := strings.Split(raw, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	switch len(parts) {
	case 2:
		return entryFlag{employeeName: parts[0], kind: badge.IDKindLDAP, value: parts[1]}, nil
	case 3:
		kind, ok := badge.ParseIDKind(parts[1])
		if !ok {
			return entryFlag{}, fmt.Errorf("invalid entry %q: unknown ID type %q", raw, parts[1])
		}
		return entryFlag{employeeName: parts[0], kind: kind, value: parts[2]}, nil
	default:
		return entryFlag{}, fmt.Errorf("invalid entry %q (expected \"Employee Name|ID type|value\")", raw)
	}
}

// runSubmit feeds every entry through ctrl and submits the batch.
func runSubmit(ctx context.Context, ctrl *form.Controller, requester, company string, rawEntries []string) (string, error) {
	entries := make([]entryFlag, 0, len(rawEntries))
	for _, raw := range rawEntries {
		entry, err := parseEntryFlag(raw)
		if err != nil {
			return "", err
		}
		entries = append(entries, entry)
	}

	if err := ctrl.Edit(form.InputRequesterName, requester); err != nil {
		return "", err
	}
	if err := ctrl.Edit(form.InputCompany, company); err != nil {
		return "", err
	}

	for i, entry := range entries {
		identifier := form.InputLDAP
		if entry.kind == badge.IDKindTimeClock {
			identifier = form.InputAIN
		}
		edits := []struct {
			input form.Input
			value string
		}{
			{form.InputEmployeeName, entry.employeeName},
			{form.InputIDType, string(entry.kind)},
			{identifier, entry.value},
		}
		for _, edit := range edits {
			if err := ctrl.Edit(edit.input, edit.value); err != nil {
				return "", fmt.Errorf("entry %d: %w", i+1, err)
			}
		}
		if _, err := ctrl.Add(ctx); err != nil {
			return "", fmt.Errorf("entry %d (%s): %w", i+1, entry.employeeName, err)
		}
	}

	return ctrl.Submit(ctx)
}

type dryRunPersister struct{}

func (dryRunPersister) SaveEntry(context.Context, badge.Entry) error { return nil }

// printNotifier writes the rendered mail instead of sending it.
type printNotifier struct {
	w io.Writer
}

func (n printNotifier) Notify(_ context.Context, batch badge.Batch) (string, error) {
	message, err := mail.RenderBatch(batch)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(n.w, "Subject: %s\n\n%s\n", message.Subject, message.Text)
	slog.Debug("dry run batch rendered", slog.Int("entries", len(batch.Entries)))
	return "dry-run", nil
}
