package badge

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

type Company string

const (
	CompanyLink   Company = "Link"
	CompanyImpact Company = "Impact"
	CompanyOther  Company = "Other"
)

// DefaultCompanies is the company set offered when configuration does not override it.
var DefaultCompanies = []Company{CompanyLink, CompanyImpact, CompanyOther}

// ForcesLDAP reports whether the company only accepts LDAP identifiers.
func (c Company) ForcesLDAP() bool {
	return c == CompanyLink || c == CompanyImpact
}

type IDKind string

const (
	IDKindLDAP      IDKind = "LDAP"
	IDKindTimeClock IDKind = "Time Clock"
)

// ParseIDKind accepts the wire labels plus a few spellings used by older clients.
func ParseIDKind(value string) (IDKind, bool) {
	switch strings.ToLower(strings.Join(strings.Fields(value), "")) {
	case "", "ldap":
		return IDKindLDAP, true
	case "timeclock", "ain":
		return IDKindTimeClock, true
	default:
		return "", false
	}
}

// Entry is one accepted identity record. Exactly one of LDAP and AIN is set.
type Entry struct {
	ID            int64     `json:"id,omitempty"`
	SessionID     string    `json:"-"`
	RequesterName string    `json:"requesterName"`
	Company       Company   `json:"company"`
	EmployeeName  string    `json:"employeeName"`
	LDAP          string    `json:"ldap,omitempty"`
	AIN           string    `json:"ain,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (e Entry) IDKind() IDKind {
	if e.LDAP != "" {
		return IDKindLDAP
	}
	return IDKindTimeClock
}

func (e Entry) IDValue() string {
	if e.LDAP != "" {
		return e.LDAP
	}
	return e.AIN
}

// DuplicateOf reports whether e and other describe the same person and identifier.
// LDAP values compare case-insensitively, AIN values exactly; an LDAP entry never
// duplicates an AIN entry.
func (e Entry) DuplicateOf(other Entry) bool {
	if e.Company != other.Company {
		return false
	}
	if fold(e.EmployeeName) != fold(other.EmployeeName) {
		return false
	}
	if e.IDKind() != other.IDKind() {
		return false
	}
	if e.IDKind() == IDKindLDAP {
		return fold(e.LDAP) == fold(other.LDAP)
	}
	return e.AIN == other.AIN
}

func fold(value string) string {
	return cases.Fold().String(value)
}

// BatchEntry is the per-entry projection sent with a Batch.
type BatchEntry struct {
	EmployeeName string `json:"employeeName" validate:"required"`
	IDType       string `json:"idType" validate:"required"`
	IDValue      string `json:"idValue" validate:"required"`
	Company      string `json:"company"`
}

// Batch is the submission built from a session's entries.
type Batch struct {
	RequesterName string       `json:"requesterName" validate:"required"`
	Company       string       `json:"company" validate:"required"`
	Entries       []BatchEntry `json:"entries" validate:"required,min=1,dive"`
}

func NewBatch(requesterName string, company Company, entries []Entry) Batch {
	out := Batch{
		RequesterName: requesterName,
		Company:       string(company),
		Entries:       make([]BatchEntry, 0, len(entries)),
	}
	for _, entry := range entries {
		out.Entries = append(out.Entries, BatchEntry{
			EmployeeName: entry.EmployeeName,
			IDType:       string(entry.IDKind()),
			IDValue:      entry.IDValue(),
			Company:      string(entry.Company),
		})
	}
	return out
}
