// Package web serves the badge request form as HTML pages and a JSON API, and
// relays pre-built batches to the mail provider.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"badgereq/badge"
	"badgereq/form"
	"badgereq/mail"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/unrolled/secure"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	MsgMissingFormFields = "Missing required form fields."
	MsgSubmitted         = "Badge request sent."
	MsgInFlight          = "A request is already in progress. Please wait."
)

// TestSender sends the plain-text delivery check.
type TestSender interface {
	SendTest(ctx context.Context) (string, error)
}

type Options struct {
	Persister  form.Persister
	Notifier   form.Notifier
	TestSender TestSender
	Companies  []badge.Company
	// RequestTimeout bounds every Persister and Notifier call.
	RequestTimeout time.Duration
	SessionTTL     time.Duration
	// SendRateLimit is requests per minute per client IP on the send routes; zero disables it.
	SendRateLimit int
	Logger        *slog.Logger
	Metrics       *Metrics
}

type Server struct {
	opts     Options
	logger   *slog.Logger
	metrics  *Metrics
	sessions *sessions
	validate *validator.Validate
	router   chi.Router
}

type apiResponse struct {
	OK    bool         `json:"ok"`
	ID    string       `json:"id,omitempty"`
	Error string       `json:"error,omitempty"`
	Field badge.Field  `json:"field,omitempty"`
	Entry *badge.Entry `json:"entry,omitempty"`
	State *form.State  `json:"state,omitempty"`
}

type editRequest struct {
	Input string `json:"input"`
	Value string `json:"value"`
}

type pageView struct {
	Title   string
	State   form.State
	Flash   *flash
	IDKinds []badge.IDKind
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}

	server := &Server{
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		validate: validator.New(),
	}
	server.sessions = newSessions(ttl, func(id string) *form.Controller {
		return form.NewController(opts.Persister, opts.Notifier, form.Options{
			SessionID: id,
			Companies: opts.Companies,
			Timeout:   opts.RequestTimeout,
			Logger:    logger,
		})
	})
	server.sessions.onCountChange = func(n int) { metrics.activeSessions.Set(float64(n)) }
	server.router = server.routes()
	return server
}

func (s *Server) routes() chi.Router {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
	})

	r := chi.NewRouter()
	r.Use(
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		secureMiddleware.Handler,
		s.metrics.Middleware,
	)

	sendLimit := func(next http.Handler) http.Handler { return next }
	if s.opts.SendRateLimit > 0 {
		sendLimit = httprate.Limit(s.opts.SendRateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
	}

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, apiResponse{OK: true})
	})

	r.Get("/", s.handleIndex)
	r.Post("/form", s.handleFormPost)

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", s.handleAPIState)
		r.Post("/session/edit", s.handleAPIEdit)
		r.Post("/session/entries", s.handleAPIAdd)
		r.Post("/session/reset", s.handleAPIReset)
		r.With(sendLimit).Post("/session/submit", s.handleAPISubmit)
		r.With(sendLimit).Post("/send", s.handleAPISend)
		r.With(sendLimit).Post("/send-test", s.handleAPISendTest)
	})
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RunSessionSweeper drops idle sessions until ctx is cancelled.
func (s *Server) RunSessionSweeper(ctx context.Context) error {
	interval := s.sessions.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return s.sessions.run(ctx, interval)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	_, sess := s.sessions.load(w, r)
	view := pageView{
		Title:   "Badge Request",
		State:   sess.ctrl.State(),
		Flash:   s.sessions.takeFlash(sess),
		IDKinds: []badge.IDKind{badge.IDKindLDAP, badge.IDKindTimeClock},
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderTemplate(w, "index.html", view); err != nil {
		s.logger.Error("render index", slog.Any("error", err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

// handleFormPost applies the posted inputs, runs the chosen action and
// redirects back to the page.
func (s *Server) handleFormPost(w http.ResponseWriter, r *http.Request) {
	_, sess := s.sessions.load(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	draft := badge.Draft{
		RequesterName: r.PostForm.Get(string(form.InputRequesterName)),
		Company:       badge.Company(r.PostForm.Get(string(form.InputCompany))),
		EmployeeName:  r.PostForm.Get(string(form.InputEmployeeName)),
		Kind:          badge.IDKind(r.PostForm.Get(string(form.InputIDType))),
		LDAP:          r.PostForm.Get(string(form.InputLDAP)),
		AIN:           r.PostForm.Get(string(form.InputAIN)),
	}

	if err := sess.ctrl.Load(draft); err != nil {
		s.flashError(sess, err)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	var err error
	switch r.PostForm.Get("action") {
	case "add":
		_, err = sess.ctrl.Add(r.Context())
		s.recordAdd(err)
	case "submit":
		_, err = sess.ctrl.Submit(r.Context())
		s.recordSubmit(err)
		if err == nil {
			s.sessions.setFlash(sess, MsgSubmitted, false)
		}
	case "reset":
		err = sess.ctrl.Reset()
	}
	if err != nil && !isControllerReported(err) {
		s.flashError(sess, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) flashError(sess *session, err error) {
	if errors.Is(err, form.ErrInFlight) {
		s.sessions.setFlash(sess, MsgInFlight, true)
		return
	}
	s.sessions.setFlash(sess, userMessage(err), true)
}

func (s *Server) handleAPIState(w http.ResponseWriter, r *http.Request) {
	_, sess := s.sessions.load(w, r)
	state := sess.ctrl.State()
	writeJSON(w, http.StatusOK, apiResponse{OK: true, State: &state})
}

func (s *Server) handleAPIEdit(w http.ResponseWriter, r *http.Request) {
	_, sess := s.sessions.load(w, r)

	var body editRequest
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: fmt.Sprintf("invalid JSON body: %v", err)})
		return
	}
	if err := sess.ctrl.Edit(form.Input(body.Input), body.Value); err != nil {
		s.writeFormError(w, sess, err)
		return
	}
	state := sess.ctrl.State()
	writeJSON(w, http.StatusOK, apiResponse{OK: true, State: &state})
}

func (s *Server) handleAPIAdd(w http.ResponseWriter, r *http.Request) {
	_, sess := s.sessions.load(w, r)

	entry, err := sess.ctrl.Add(r.Context())
	s.recordAdd(err)
	if err != nil {
		s.writeFormError(w, sess, err)
		return
	}
	state := sess.ctrl.State()
	writeJSON(w, http.StatusCreated, apiResponse{OK: true, Entry: &entry, State: &state})
}

func (s *Server) handleAPISubmit(w http.ResponseWriter, r *http.Request) {
	_, sess := s.sessions.load(w, r)

	id, err := sess.ctrl.Submit(r.Context())
	s.recordSubmit(err)
	if err != nil {
		s.writeFormError(w, sess, err)
		return
	}
	state := sess.ctrl.State()
	writeJSON(w, http.StatusOK, apiResponse{OK: true, ID: id, State: &state})
}

func (s *Server) handleAPIReset(w http.ResponseWriter, r *http.Request) {
	_, sess := s.sessions.load(w, r)

	if err := sess.ctrl.Reset(); err != nil {
		s.writeFormError(w, sess, err)
		return
	}
	state := sess.ctrl.State()
	writeJSON(w, http.StatusOK, apiResponse{OK: true, State: &state})
}

// handleAPISend relays a batch built by a client that keeps its own entry list.
func (s *Server) handleAPISend(w http.ResponseWriter, r *http.Request) {
	var batch badge.Batch
	if err := decodeJSON(r, &batch); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: MsgMissingFormFields})
		return
	}
	if err := s.validate.Struct(batch); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Error: MsgMissingFormFields})
		return
	}
	if s.opts.Notifier == nil {
		writeJSON(w, http.StatusInternalServerError, apiResponse{Error: "mail is not configured"})
		return
	}

	ctx, cancel := s.callContext(r.Context())
	defer cancel()

	id, err := s.opts.Notifier.Notify(ctx, batch)
	if err != nil {
		s.metrics.batchFailures.Inc()
		s.logger.Error("relay batch failed", slog.String("request_id", middleware.GetReqID(r.Context())), slog.Any("error", err))
		writeJSON(w, sendErrorStatus(err), apiResponse{Error: err.Error()})
		return
	}
	s.metrics.batchesSent.Inc()
	s.logger.Info("relayed batch", slog.Int("entries", len(batch.Entries)), slog.String("message_id", id))
	writeJSON(w, http.StatusOK, apiResponse{OK: true, ID: id})
}

func (s *Server) handleAPISendTest(w http.ResponseWriter, r *http.Request) {
	if s.opts.TestSender == nil {
		writeJSON(w, http.StatusInternalServerError, apiResponse{Error: "mail is not configured"})
		return
	}

	ctx, cancel := s.callContext(r.Context())
	defer cancel()

	id, err := s.opts.TestSender.SendTest(ctx)
	if err != nil {
		s.logger.Error("send test mail failed", slog.Any("error", err))
		writeJSON(w, sendErrorStatus(err), apiResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{OK: true, ID: id})
}

func (s *Server) writeFormError(w http.ResponseWriter, sess *session, err error) {
	state := sess.ctrl.State()
	writeJSON(w, formErrorStatus(err), apiResponse{
		Error: userMessage(err),
		Field: form.FieldOf(err),
		State: &state,
	})
}

func (s *Server) recordAdd(err error) {
	if err == nil {
		s.metrics.entriesAccepted.Inc()
		return
	}
	s.metrics.entryRejections.WithLabelValues(rejectionReason(err)).Inc()
}

func (s *Server) recordSubmit(err error) {
	var notifyErr *form.NotificationError
	switch {
	case err == nil:
		s.metrics.batchesSent.Inc()
	case errors.As(err, &notifyErr):
		s.metrics.batchFailures.Inc()
	}
}

func (s *Server) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.RequestTimeout)
}

func rejectionReason(err error) string {
	var (
		inputErr     *badge.InputError
		duplicateErr *form.DuplicateError
		persistErr   *form.PersistenceError
	)
	switch {
	case errors.As(err, &inputErr):
		return "invalid"
	case errors.As(err, &duplicateErr):
		return "duplicate"
	case errors.As(err, &persistErr):
		return "persistence"
	case errors.Is(err, form.ErrInFlight):
		return "in_flight"
	default:
		return "other"
	}
}

// isControllerReported reports whether the controller keeps err in its state,
// so the page renders it next to the offending input.
func isControllerReported(err error) bool {
	var (
		inputErr     *badge.InputError
		duplicateErr *form.DuplicateError
		persistErr   *form.PersistenceError
		notifyErr    *form.NotificationError
	)
	return errors.As(err, &inputErr) ||
		errors.As(err, &duplicateErr) ||
		errors.As(err, &persistErr) ||
		errors.As(err, &notifyErr) ||
		errors.Is(err, form.ErrNoEntries) ||
		errors.Is(err, form.ErrPartialInput)
}

// userMessage hides upstream details behind the generic failure messages.
func userMessage(err error) string {
	var (
		persistErr *form.PersistenceError
		notifyErr  *form.NotificationError
	)
	switch {
	case errors.As(err, &persistErr):
		return form.MsgSaveFailed
	case errors.As(err, &notifyErr):
		return form.MsgSendFailed
	default:
		return err.Error()
	}
}

func formErrorStatus(err error) int {
	var (
		inputErr     *badge.InputError
		duplicateErr *form.DuplicateError
		persistErr   *form.PersistenceError
		notifyErr    *form.NotificationError
	)
	switch {
	case errors.As(err, &inputErr), errors.As(err, &duplicateErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, form.ErrPartialInput), errors.Is(err, form.ErrNoEntries), errors.Is(err, form.ErrInFlight):
		return http.StatusConflict
	case errors.As(err, &persistErr), errors.As(err, &notifyErr):
		return http.StatusBadGateway
	case errors.Is(err, form.ErrUnknownInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func sendErrorStatus(err error) int {
	if errors.Is(err, mail.ErrNoAddress) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func renderTemplate(w http.ResponseWriter, pageTemplate string, data any) error {
	tmpl, err := template.New("base.html").Funcs(template.FuncMap{
		"fieldError": func(state form.State, field string) string {
			if state.Error == nil || string(state.Error.Field) != field {
				return ""
			}
			return state.Error.Message
		},
		"generalError": func(state form.State) string {
			if state.Error == nil || state.Error.Field != badge.FieldNone {
				return ""
			}
			return state.Error.Message
		},
		"inc": func(i int) int { return i + 1 },
	}).ParseFS(templateFS, "templates/base.html", "templates/"+pageTemplate)
	if err != nil {
		return fmt.Errorf("parse template %s: %w", pageTemplate, err)
	}
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		return fmt.Errorf("render template %s: %w", pageTemplate, err)
	}
	return nil
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
