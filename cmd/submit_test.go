package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"badgereq/badge"
	"badgereq/form"
)

type recordingPersister struct {
	saved []badge.Entry
}

func (p *recordingPersister) SaveEntry(_ context.Context, entry badge.Entry) error {
	p.saved = append(p.saved, entry)
	return nil
}

func TestParseEntryFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    entryFlag
		wantErr bool
	}{
		{name: "ldap", raw: "Jane Doe|LDAP|AB12345", want: entryFlag{employeeName: "Jane Doe", kind: badge.IDKindLDAP, value: "AB12345"}},
		{name: "time clock", raw: " John Roe | Time Clock | 123456789 ", want: entryFlag{employeeName: "John Roe", kind: badge.IDKindTimeClock, value: "123456789"}},
		{name: "two parts default ldap", raw: "Jane|ABC12345678", want: entryFlag{employeeName: "Jane", kind: badge.IDKindLDAP, value: "ABC12345678"}},
		{name: "unknown kind", raw: "Jane|Badge|1", wantErr: true},
		{name: "missing parts", raw: "Jane", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseEntryFlag(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestRunSubmit_DryRunPrintsMail(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	persister := &recordingPersister{}
	ctrl := form.NewController(persister, printNotifier{w: &out}, form.Options{SessionID: "cli-test"})

	id, err := runSubmit(context.Background(), ctrl, "Sam", "Other", []string{
		"Jane Doe|LDAP|AB12345",
		"John Roe|Time Clock|123456789",
	})
	if err != nil {
		t.Fatalf("run submit: %v", err)
	}
	if id != "dry-run" {
		t.Fatalf("unexpected id %q", id)
	}
	if len(persister.saved) != 2 || persister.saved[1].AIN != "123456789" {
		t.Fatalf("unexpected saved entries: %+v", persister.saved)
	}

	text := out.String()
	if !strings.Contains(text, "Subject: Badge Request from Sam") || !strings.Contains(text, "2. John Roe | Time Clock | 123456789 | Other") {
		t.Fatalf("unexpected rendered mail:\n%s", text)
	}
}

func TestRunSubmit_StopsAtInvalidEntry(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	persister := &recordingPersister{}
	ctrl := form.NewController(persister, printNotifier{w: &out}, form.Options{SessionID: "cli-test"})

	_, err := runSubmit(context.Background(), ctrl, "Sam", "Impact", []string{
		"Jane Doe|ABCDE12345",
		"John Roe|LDAP|ABC123",
	})
	if err == nil || !strings.Contains(err.Error(), "entry 2") {
		t.Fatalf("expected failure on entry 2, got %v", err)
	}
	var inputErr *badge.InputError
	if !errors.As(err, &inputErr) || inputErr.Message != badge.MsgImpactLDAPFormat {
		t.Fatalf("expected Impact format error, got %v", err)
	}
	if len(persister.saved) != 1 || out.Len() != 0 {
		t.Fatalf("expected one saved entry and no mail, saved=%d mail=%q", len(persister.saved), out.String())
	}
}
