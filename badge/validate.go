package badge

import (
	"fmt"
	"regexp"
	"strings"
)

// Field identifies the input a validation message belongs to.
type Field string

const (
	FieldNone          Field = ""
	FieldRequesterName Field = "requesterName"
	FieldCompany       Field = "company"
	FieldEmployeeName  Field = "employeeName"
	FieldIdentifier    Field = "identifier"
)

// InputError is a missing or malformed form field.
type InputError struct {
	Field   Field
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

const (
	MsgEmployeeNameRequired  = "Employee name is required."
	MsgRequesterNameRequired = "Requester name is required."
	MsgLDAPRequired          = "LDAP is required."
	MsgAINRequired           = "AIN is required."
	MsgLinkLDAPFormat        = "Link LDAP must be exactly 11 alphanumeric characters."
	MsgImpactLDAPFormat      = "Impact LDAP must be exactly 10 alphanumeric characters."
	MsgLDAPFormat            = "LDAP must be exactly 7 letters or numbers."
	MsgAINFormat             = "AIN must be exactly 9 digits."
)

var (
	linkLDAPPattern   = regexp.MustCompile(`^[A-Za-z0-9]{11}$`)
	impactLDAPPattern = regexp.MustCompile(`^[A-Za-z0-9]{10}$`)
	otherLDAPPattern  = regexp.MustCompile(`^[A-Za-z0-9]{7}$`)
	ainPattern        = regexp.MustCompile(`^[0-9]{9}$`)
)

type identifierRule struct {
	pattern *regexp.Regexp
	message string
}

func ldapRule(company Company) identifierRule {
	switch company {
	case CompanyLink:
		return identifierRule{pattern: linkLDAPPattern, message: MsgLinkLDAPFormat}
	case CompanyImpact:
		return identifierRule{pattern: impactLDAPPattern, message: MsgImpactLDAPFormat}
	default:
		return identifierRule{pattern: otherLDAPPattern, message: MsgLDAPFormat}
	}
}

// ValidateIdentifier checks value against the format required for company and kind.
// It does not check for emptiness; see Draft.Check.
func ValidateIdentifier(company Company, kind IDKind, value string) error {
	var rule identifierRule
	switch kind {
	case IDKindLDAP:
		rule = ldapRule(company)
	case IDKindTimeClock:
		rule = identifierRule{pattern: ainPattern, message: MsgAINFormat}
	default:
		return fmt.Errorf("unsupported id kind %q", kind)
	}
	if !rule.pattern.MatchString(value) {
		return &InputError{Field: FieldIdentifier, Message: rule.message}
	}
	return nil
}

// ResolveKind returns the kind that governs input for company. Link and Impact
// always use LDAP no matter what the selector holds.
func ResolveKind(company Company, selected IDKind) IDKind {
	if company.ForcesLDAP() {
		return IDKindLDAP
	}
	if selected == IDKindTimeClock {
		return IDKindTimeClock
	}
	return IDKindLDAP
}

// Visibility describes which identifier inputs a form should show.
type Visibility struct {
	Kind             IDKind `json:"idType"`
	KindSelectable   bool   `json:"idTypeSelectable"`
	LDAPVisible      bool   `json:"ldapVisible"`
	TimeClockVisible bool   `json:"timeClockVisible"`
}

func VisibilityFor(company Company, selected IDKind) Visibility {
	kind := ResolveKind(company, selected)
	return Visibility{
		Kind:             kind,
		KindSelectable:   !company.ForcesLDAP(),
		LDAPVisible:      kind == IDKindLDAP,
		TimeClockVisible: kind == IDKindTimeClock,
	}
}

// Draft is the raw content of the entry inputs.
type Draft struct {
	RequesterName string
	Company       Company
	EmployeeName  string
	Kind          IDKind
	LDAP          string
	AIN           string
}

// Normalize trims the text inputs, resolves the effective kind and blanks the
// identifier field that kind does not read.
func (d Draft) Normalize() Draft {
	out := Draft{
		RequesterName: strings.TrimSpace(d.RequesterName),
		Company:       Company(strings.TrimSpace(string(d.Company))),
		EmployeeName:  strings.TrimSpace(d.EmployeeName),
	}
	out.Kind = ResolveKind(out.Company, d.Kind)
	if out.Kind == IDKindLDAP {
		out.LDAP = strings.TrimSpace(d.LDAP)
	} else {
		out.AIN = strings.TrimSpace(d.AIN)
	}
	return out
}

// Check runs the required-field checks and then the format check on the
// identifier the draft's kind selects. The first failure is returned.
func (d Draft) Check() error {
	d = d.Normalize()

	if d.EmployeeName == "" {
		return &InputError{Field: FieldEmployeeName, Message: MsgEmployeeNameRequired}
	}
	if d.Kind == IDKindLDAP && d.LDAP == "" {
		return &InputError{Field: FieldIdentifier, Message: MsgLDAPRequired}
	}
	if d.Kind == IDKindTimeClock && d.AIN == "" {
		return &InputError{Field: FieldIdentifier, Message: MsgAINRequired}
	}

	if d.Kind == IDKindLDAP {
		return ValidateIdentifier(d.Company, d.Kind, d.LDAP)
	}
	return ValidateIdentifier(d.Company, d.Kind, d.AIN)
}

// Entry converts a checked draft into an Entry.
func (d Draft) Entry() Entry {
	d = d.Normalize()
	return Entry{
		RequesterName: d.RequesterName,
		Company:       d.Company,
		EmployeeName:  d.EmployeeName,
		LDAP:          d.LDAP,
		AIN:           d.AIN,
	}
}

// HasPendingInput reports whether any per-entry input the current kind reads is non-empty.
func (d Draft) HasPendingInput() bool {
	d = d.Normalize()
	return d.EmployeeName != "" || d.LDAP != "" || d.AIN != ""
}
