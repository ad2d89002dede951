package badge

import (
	"errors"
	"testing"
)

func TestValidateIdentifier_LDAPLengthPerCompany(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		company Company
		value   string
		wantErr string
	}{
		{name: "link 11", company: CompanyLink, value: "AB123456789"},
		{name: "link 10", company: CompanyLink, value: "AB12345678", wantErr: MsgLinkLDAPFormat},
		{name: "link 12", company: CompanyLink, value: "AB1234567890", wantErr: MsgLinkLDAPFormat},
		{name: "impact 10", company: CompanyImpact, value: "ab12345678"},
		{name: "impact 11", company: CompanyImpact, value: "ab123456789", wantErr: MsgImpactLDAPFormat},
		{name: "other 7", company: CompanyOther, value: "AB12345"},
		{name: "other 8", company: CompanyOther, value: "AB123456", wantErr: MsgLDAPFormat},
		{name: "configured company uses other rule", company: Company("Acme"), value: "zz99999"},
		{name: "punctuation rejected", company: CompanyOther, value: "AB-1234", wantErr: MsgLDAPFormat},
		{name: "non-ascii letter rejected", company: CompanyOther, value: "ÄB12345", wantErr: MsgLDAPFormat},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateIdentifier(tc.company, IDKindLDAP, tc.value)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected %q to be accepted, got %v", tc.value, err)
				}
				return
			}
			var inputErr *InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("expected InputError, got %v", err)
			}
			if inputErr.Field != FieldIdentifier || inputErr.Message != tc.wantErr {
				t.Fatalf("unexpected error: %+v", inputErr)
			}
		})
	}
}

func TestValidateIdentifier_AINIndependentOfCompany(t *testing.T) {
	t.Parallel()

	for _, company := range []Company{CompanyLink, CompanyImpact, CompanyOther} {
		if err := ValidateIdentifier(company, IDKindTimeClock, "123456789"); err != nil {
			t.Fatalf("company %s: expected 9 digits to pass, got %v", company, err)
		}
		for _, bad := range []string{"12345678", "1234567890", "12345678a", "١٢٣٤٥٦٧٨٩"} {
			err := ValidateIdentifier(company, IDKindTimeClock, bad)
			if err == nil || err.Error() != MsgAINFormat {
				t.Fatalf("company %s value %q: expected %q, got %v", company, bad, MsgAINFormat, err)
			}
		}
	}
}

func TestResolveKind_LinkAndImpactForceLDAP(t *testing.T) {
	t.Parallel()

	for _, company := range []Company{CompanyLink, CompanyImpact} {
		if got := ResolveKind(company, IDKindTimeClock); got != IDKindLDAP {
			t.Fatalf("company %s: expected LDAP, got %s", company, got)
		}
		vis := VisibilityFor(company, IDKindTimeClock)
		if vis.KindSelectable || vis.TimeClockVisible || !vis.LDAPVisible {
			t.Fatalf("company %s: unexpected visibility %+v", company, vis)
		}
	}

	if got := ResolveKind(CompanyOther, IDKindTimeClock); got != IDKindTimeClock {
		t.Fatalf("expected other company to keep selection, got %s", got)
	}
	if vis := VisibilityFor(CompanyOther, IDKindTimeClock); !vis.KindSelectable || !vis.TimeClockVisible {
		t.Fatalf("unexpected visibility for other company: %+v", vis)
	}
}

func TestDraftCheck_OrderOfChecks(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		draft     Draft
		wantField Field
		wantMsg   string
	}{
		{
			name:      "employee name first",
			draft:     Draft{Company: CompanyOther, Kind: IDKindLDAP, EmployeeName: "  "},
			wantField: FieldEmployeeName,
			wantMsg:   MsgEmployeeNameRequired,
		},
		{
			name:      "ldap required",
			draft:     Draft{Company: CompanyOther, Kind: IDKindLDAP, EmployeeName: "Jane", AIN: "123456789"},
			wantField: FieldIdentifier,
			wantMsg:   MsgLDAPRequired,
		},
		{
			name:      "ain required",
			draft:     Draft{Company: CompanyOther, Kind: IDKindTimeClock, EmployeeName: "Jane", LDAP: "AB12345"},
			wantField: FieldIdentifier,
			wantMsg:   MsgAINRequired,
		},
		{
			name:      "forced ldap ignores ain",
			draft:     Draft{Company: CompanyLink, Kind: IDKindTimeClock, EmployeeName: "Jane", AIN: "123456789"},
			wantField: FieldIdentifier,
			wantMsg:   MsgLDAPRequired,
		},
		{
			name:      "format after required",
			draft:     Draft{Company: CompanyImpact, Kind: IDKindLDAP, EmployeeName: "Jane", LDAP: "short"},
			wantField: FieldIdentifier,
			wantMsg:   MsgImpactLDAPFormat,
		},
		{
			name:      "unused field is not validated",
			draft:     Draft{Company: CompanyOther, Kind: IDKindTimeClock, EmployeeName: "Jane", LDAP: "bad", AIN: "123456789"},
			wantField: FieldNone,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.draft.Check()
			if tc.wantField == FieldNone && tc.wantMsg == "" {
				if err != nil {
					t.Fatalf("expected draft to pass, got %v", err)
				}
				return
			}
			var inputErr *InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("expected InputError, got %v", err)
			}
			if inputErr.Field != tc.wantField || inputErr.Message != tc.wantMsg {
				t.Fatalf("expected %s/%q, got %s/%q", tc.wantField, tc.wantMsg, inputErr.Field, inputErr.Message)
			}
		})
	}
}

func TestDraftEntry_OnlyOneIdentifierSet(t *testing.T) {
	t.Parallel()

	entry := Draft{
		RequesterName: " Sam ",
		Company:       CompanyImpact,
		EmployeeName:  " Jane Doe ",
		Kind:          IDKindTimeClock,
		LDAP:          " ab12345678 ",
		AIN:           "123456789",
	}.Entry()

	if entry.AIN != "" || entry.LDAP != "ab12345678" {
		t.Fatalf("expected only LDAP populated, got ldap=%q ain=%q", entry.LDAP, entry.AIN)
	}
	if entry.RequesterName != "Sam" || entry.EmployeeName != "Jane Doe" {
		t.Fatalf("expected trimmed names, got %+v", entry)
	}
	if entry.IDKind() != IDKindLDAP || entry.IDValue() != "ab12345678" {
		t.Fatalf("unexpected kind/value: %s/%s", entry.IDKind(), entry.IDValue())
	}
}

func TestParseIDKind(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]IDKind{
		"LDAP":       IDKindLDAP,
		"":           IDKindLDAP,
		"Time Clock": IDKindTimeClock,
		"timeclock":  IDKindTimeClock,
		"AIN":        IDKindTimeClock,
	} {
		got, ok := ParseIDKind(input)
		if !ok || got != want {
			t.Fatalf("ParseIDKind(%q) = %q, %t; want %q", input, got, ok, want)
		}
	}
	if _, ok := ParseIDKind("badge"); ok {
		t.Fatalf("expected unknown kind to be rejected")
	}
}
