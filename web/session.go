package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"badgereq/form"

	"github.com/google/uuid"
)

const sessionCookieName = "badgereq_session"

// flash is a one-shot message shown on the next page render.
type flash struct {
	Text  string
	Error bool
}

type session struct {
	ctrl     *form.Controller
	lastSeen time.Time
	flash    *flash
}

// sessions owns one form.Controller per browser session. Sessions idle for
// longer than ttl are dropped by sweep.
type sessions struct {
	mu            sync.Mutex
	byID          map[string]*session
	ttl           time.Duration
	now           func() time.Time
	newController func(id string) *form.Controller
	onCountChange func(n int)
}

func newSessions(ttl time.Duration, newController func(id string) *form.Controller) *sessions {
	return &sessions{
		byID:          make(map[string]*session),
		ttl:           ttl,
		now:           time.Now,
		newController: newController,
		onCountChange: func(int) {},
	}
}

// load returns the caller's session, creating it and setting the cookie when
// the request carries no known session id.
func (s *sessions) load(w http.ResponseWriter, r *http.Request) (string, *session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if sess, ok := s.byID[cookie.Value]; ok {
			sess.lastSeen = s.now()
			return cookie.Value, sess
		}
	}

	id := uuid.NewString()
	sess := &session{ctrl: s.newController(id), lastSeen: s.now()}
	s.byID[id] = sess
	s.onCountChange(len(s.byID))

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	return id, sess
}

func (s *sessions) setFlash(sess *session, text string, isError bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.flash = &flash{Text: text, Error: isError}
}

func (s *sessions) takeFlash(sess *session) *flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := sess.flash
	sess.flash = nil
	return out
}

// sweep removes idle sessions and returns how many were dropped. A session
// with a save or send in flight is kept.
func (s *sessions) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, sess := range s.byID {
		if sess.lastSeen.After(cutoff) || sess.ctrl.State().Busy {
			continue
		}
		delete(s.byID, id)
		removed++
	}
	if removed > 0 {
		s.onCountChange(len(s.byID))
	}
	return removed
}

func (s *sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// run sweeps periodically until ctx is done.
func (s *sessions) run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep()
		}
	}
}
