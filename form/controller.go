package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"badgereq/badge"
)

const (
	MsgCompanyRequired = "Company is required."
	MsgSaveFailed      = "Failed to save entry to database."
	MsgSendFailed      = "Failed to send email."
)

// Persister saves one accepted entry.
type Persister interface {
	SaveEntry(ctx context.Context, entry badge.Entry) error
}

// Notifier delivers a submitted batch and returns the provider's message id.
type Notifier interface {
	Notify(ctx context.Context, batch badge.Batch) (string, error)
}

// Input names one editable form input.
type Input string

const (
	InputRequesterName Input = "requesterName"
	InputCompany       Input = "company"
	InputEmployeeName  Input = "employeeName"
	InputIDType        Input = "idType"
	InputLDAP          Input = "ldap"
	InputAIN           Input = "ain"
)

type Options struct {
	SessionID string
	// Companies is the selectable company set; badge.DefaultCompanies when empty.
	Companies []badge.Company
	// Timeout bounds each Persister and Notifier call; zero means no extra bound.
	Timeout time.Duration
	Logger  *slog.Logger
	Now     func() time.Time
}

// Message is a user-facing validation or failure message.
type Message struct {
	Field   badge.Field `json:"field,omitempty"`
	Message string      `json:"message"`
}

// State is a snapshot of everything a rendering layer needs to draw the form.
type State struct {
	SessionID      string           `json:"sessionId"`
	RequesterName  string           `json:"requesterName"`
	Company        badge.Company    `json:"company"`
	EmployeeName   string           `json:"employeeName"`
	LDAP           string           `json:"ldap"`
	AIN            string           `json:"ain"`
	Visibility     badge.Visibility `json:"visibility"`
	Companies      []badge.Company  `json:"companies"`
	Entries        []badge.Entry    `json:"entries"`
	Error          *Message         `json:"error,omitempty"`
	PartialWarning bool             `json:"partialWarning"`
	CanSubmit      bool             `json:"canSubmit"`
	Busy           bool             `json:"busy"`
}

// Controller runs the entry acceptance and batch submission pipelines for a
// single session. Add and Submit are rejected with ErrInFlight while an earlier
// Persister or Notifier call has not returned.
type Controller struct {
	persister Persister
	notifier  Notifier

	sessionID string
	companies []badge.Company
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu             sync.Mutex
	busy           bool
	draft          badge.Draft
	store          Store
	lastErr        *Message
	partialWarning bool
}

func NewController(persister Persister, notifier Notifier, opts Options) *Controller {
	companies := opts.Companies
	if len(companies) == 0 {
		companies = badge.DefaultCompanies
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Controller{
		persister: persister,
		notifier:  notifier,
		sessionID: opts.SessionID,
		companies: append([]badge.Company(nil), companies...),
		timeout:   opts.Timeout,
		logger:    logger.With(slog.String("session", opts.SessionID)),
		now:       now,
		draft:     badge.Draft{Kind: badge.IDKindLDAP},
	}
}

// Edit sets one input. Selecting Link or Impact forces the LDAP kind and clears
// the AIN input.
func (c *Controller) Edit(input Input, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return ErrInFlight
	}
	return c.applyLocked(input, value)
}

// Load replaces every input at once, applying the same rules as Edit.
func (c *Controller) Load(draft badge.Draft) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return ErrInFlight
	}

	edits := []struct {
		input Input
		value string
	}{
		{InputRequesterName, draft.RequesterName},
		{InputCompany, string(draft.Company)},
		{InputEmployeeName, draft.EmployeeName},
		{InputIDType, string(draft.Kind)},
		{InputLDAP, draft.LDAP},
		{InputAIN, draft.AIN},
	}
	for _, edit := range edits {
		if err := c.applyLocked(edit.input, edit.value); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) applyLocked(input Input, value string) error {
	switch input {
	case InputRequesterName:
		c.draft.RequesterName = value
	case InputCompany:
		company := badge.Company(strings.TrimSpace(value))
		if company != "" && !c.knownCompany(company) {
			return &badge.InputError{Field: badge.FieldCompany, Message: fmt.Sprintf("Unknown company %q.", value)}
		}
		c.draft.Company = company
	case InputEmployeeName:
		c.draft.EmployeeName = value
	case InputIDType:
		kind, ok := badge.ParseIDKind(value)
		if !ok {
			return &badge.InputError{Field: badge.FieldIdentifier, Message: fmt.Sprintf("Unknown ID type %q.", value)}
		}
		c.draft.Kind = kind
	case InputLDAP:
		c.draft.LDAP = value
	case InputAIN:
		c.draft.AIN = value
	default:
		return fmt.Errorf("%w %q", ErrUnknownInput, input)
	}

	if c.draft.Company.ForcesLDAP() {
		c.draft.Kind = badge.IDKindLDAP
		c.draft.AIN = ""
	}
	return nil
}

// Add validates the current inputs and, when they pass, persists the entry and
// appends it to the session store. A failed save leaves the store unchanged.
func (c *Controller) Add(ctx context.Context) (badge.Entry, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return badge.Entry{}, ErrInFlight
	}
	c.lastErr = nil

	draft := c.draft.Normalize()
	if err := c.checkDraftLocked(draft); err != nil {
		c.failLocked(err)
		c.mu.Unlock()
		return badge.Entry{}, err
	}

	entry := draft.Entry()
	entry.SessionID = c.sessionID
	if c.store.IsDuplicate(entry) {
		err := newDuplicateError(entry.IDKind())
		c.failLocked(err)
		c.mu.Unlock()
		return badge.Entry{}, err
	}
	entry.CreatedAt = c.now()

	c.busy = true
	c.mu.Unlock()

	callCtx, cancel := c.callContext(ctx)
	saveErr := c.persister.SaveEntry(callCtx, entry)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false

	if saveErr != nil {
		err := &PersistenceError{Err: saveErr}
		c.logger.Error("save entry failed", slog.String("company", string(entry.Company)), slog.Any("error", saveErr))
		c.failLocked(err)
		return badge.Entry{}, err
	}

	c.store.Append(entry)
	c.draft.EmployeeName = ""
	c.draft.LDAP = ""
	c.draft.AIN = ""
	c.partialWarning = false

	c.logger.Info("entry accepted",
		slog.String("company", string(entry.Company)),
		slog.String("id_type", string(entry.IDKind())),
		slog.Int("entries", c.store.Len()),
	)
	return entry, nil
}

func (c *Controller) checkDraftLocked(draft badge.Draft) error {
	if draft.Company == "" {
		return &badge.InputError{Field: badge.FieldCompany, Message: MsgCompanyRequired}
	}
	if !c.knownCompany(draft.Company) {
		return &badge.InputError{Field: badge.FieldCompany, Message: fmt.Sprintf("Unknown company %q.", draft.Company)}
	}
	return draft.Check()
}

// Submit sends every stored entry as one batch. On success the store and all
// inputs are cleared and the notifier's message id is returned; on failure the
// session is left as it was so the submit can be retried.
func (c *Controller) Submit(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return "", ErrInFlight
	}
	c.lastErr = nil

	if c.draft.HasPendingInput() {
		c.partialWarning = true
		c.mu.Unlock()
		return "", ErrPartialInput
	}
	c.partialWarning = false

	if c.store.Len() == 0 {
		c.failLocked(ErrNoEntries)
		c.mu.Unlock()
		return "", ErrNoEntries
	}

	draft := c.draft.Normalize()
	if draft.RequesterName == "" {
		err := &badge.InputError{Field: badge.FieldRequesterName, Message: badge.MsgRequesterNameRequired}
		c.failLocked(err)
		c.mu.Unlock()
		return "", err
	}
	if draft.Company == "" {
		err := &badge.InputError{Field: badge.FieldCompany, Message: MsgCompanyRequired}
		c.failLocked(err)
		c.mu.Unlock()
		return "", err
	}

	batch := badge.NewBatch(draft.RequesterName, draft.Company, c.store.Entries())
	c.busy = true
	c.mu.Unlock()

	callCtx, cancel := c.callContext(ctx)
	messageID, notifyErr := c.notifier.Notify(callCtx, batch)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false

	if notifyErr != nil {
		err := &NotificationError{Err: notifyErr}
		c.logger.Error("send batch failed", slog.Int("entries", len(batch.Entries)), slog.Any("error", notifyErr))
		c.failLocked(err)
		return "", err
	}

	c.logger.Info("batch submitted", slog.Int("entries", len(batch.Entries)), slog.String("message_id", messageID))
	c.resetLocked()
	return messageID, nil
}

// Reset discards the stored entries and clears every input.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return ErrInFlight
	}
	c.resetLocked()
	return nil
}

func (c *Controller) resetLocked() {
	c.store.Clear()
	c.draft = badge.Draft{Kind: badge.IDKindLDAP}
	c.lastErr = nil
	c.partialWarning = false
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr *Message
	if c.lastErr != nil {
		copied := *c.lastErr
		lastErr = &copied
	}

	return State{
		SessionID:      c.sessionID,
		RequesterName:  c.draft.RequesterName,
		Company:        c.draft.Company,
		EmployeeName:   c.draft.EmployeeName,
		LDAP:           c.draft.LDAP,
		AIN:            c.draft.AIN,
		Visibility:     badge.VisibilityFor(c.draft.Company, c.draft.Kind),
		Companies:      append([]badge.Company(nil), c.companies...),
		Entries:        c.store.Entries(),
		Error:          lastErr,
		PartialWarning: c.partialWarning,
		CanSubmit:      c.store.Len() > 0,
		Busy:           c.busy,
	}
}

func (c *Controller) failLocked(err error) {
	message := err.Error()
	var persistErr *PersistenceError
	var notifyErr *NotificationError
	switch {
	case errors.As(err, &persistErr):
		message = MsgSaveFailed
	case errors.As(err, &notifyErr):
		message = MsgSendFailed
	}
	c.lastErr = &Message{Field: FieldOf(err), Message: message}
}

func (c *Controller) knownCompany(company badge.Company) bool {
	for _, known := range c.companies {
		if known == company {
			return true
		}
	}
	return false
}

func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
