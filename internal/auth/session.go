package auth

import (
	"encoding/gob"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	log "github.com/sirupsen/logrus"
)

const (
	SessionName      = "userhub-session"
	FlashSessionName = "userhub-flash"

	sessionKeyID      = "sid"
	sessionKeyUserID  = "user_id"
	sessionKeyExpires = "expires_at"
)

// FlashMessage is a one-shot user-facing message with a bootstrap-style
// category: info, success, warning or danger.
type FlashMessage struct {
	Category string
	Message  string
}

func init() {
	gob.Register(FlashMessage{})
}

type SessionManager struct {
	store    *sessions.CookieStore
	lifetime time.Duration
	now      func() time.Time
}

// NewSessionManager builds a cookie-backed session manager. lifetime is the
// sliding inactivity window; each authenticated request extends the expiry by
// the same amount.
func NewSessionManager(secret string, lifetime time.Duration) *SessionManager {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(lifetime.Seconds()),
		HttpOnly: true,
		Secure:   false, // set to true in production with HTTPS
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store, lifetime: lifetime, now: time.Now}
}

func (m *SessionManager) Get(r *http.Request) (*sessions.Session, error) {
	return m.store.Get(r, SessionName)
}

// Establish starts an authenticated session for userID. All values of the
// previous (anonymous) session are discarded and a fresh session id is
// issued, so a cookie captured before login does not survive the privilege
// change.
func (m *SessionManager) Establish(w http.ResponseWriter, r *http.Request, userID int64) error {
	session, _ := m.Get(r) // a decode failure still yields a fresh session

	session.Values = make(map[interface{}]interface{})
	session.Values[sessionKeyID] = uuid.NewString()
	session.Values[sessionKeyUserID] = userID
	session.Values[sessionKeyExpires] = m.now().Add(m.lifetime).Unix()
	session.Options.MaxAge = int(m.lifetime.Seconds())

	return session.Save(r, w)
}

// CurrentUserID resolves the session to a user id. It returns false for an
// anonymous session and for one whose sliding window has lapsed.
func (m *SessionManager) CurrentUserID(r *http.Request) (int64, bool) {
	session, err := m.Get(r)
	if err != nil {
		return 0, false
	}

	userID, ok := session.Values[sessionKeyUserID].(int64)
	if !ok {
		return 0, false
	}
	expires, ok := session.Values[sessionKeyExpires].(int64)
	if !ok || m.now().After(time.Unix(expires, 0)) {
		return 0, false
	}
	return userID, true
}

// Touch recomputes the expiry from now, keeping the window sliding. It is a
// no-op for anonymous sessions.
func (m *SessionManager) Touch(w http.ResponseWriter, r *http.Request) error {
	session, err := m.Get(r)
	if err != nil {
		return err
	}
	if _, ok := session.Values[sessionKeyUserID].(int64); !ok {
		return nil
	}
	session.Values[sessionKeyExpires] = m.now().Add(m.lifetime).Unix()
	session.Options.MaxAge = int(m.lifetime.Seconds())
	return session.Save(r, w)
}

// Terminate drops the session and expires its cookie.
func (m *SessionManager) Terminate(w http.ResponseWriter, r *http.Request) error {
	session, err := m.Get(r)
	if err != nil {
		return err
	}

	session.Values = make(map[interface{}]interface{})
	session.Options.MaxAge = -1

	return session.Save(r, w)
}

// Flash queues a one-shot message. Flashes live in their own cookie so that
// terminating the auth session does not drop the logout message.
func (m *SessionManager) Flash(w http.ResponseWriter, r *http.Request, category, message string) {
	session, err := m.store.Get(r, FlashSessionName)
	if err != nil {
		// decode failure only; the returned session is still usable
		log.Debugf("flash session decode: %v", err)
	}
	session.AddFlash(FlashMessage{Category: category, Message: message})
	if err := session.Save(r, w); err != nil {
		log.Errorf("failed to save flash message: %v", err)
	}
}

// Flashes drains and returns the queued messages.
func (m *SessionManager) Flashes(w http.ResponseWriter, r *http.Request) []FlashMessage {
	session, err := m.store.Get(r, FlashSessionName)
	if err != nil {
		return nil
	}

	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := session.Save(r, w); err != nil {
		log.Errorf("failed to clear flash messages: %v", err)
	}

	var flashes []FlashMessage
	for _, f := range raw {
		if msg, ok := f.(FlashMessage); ok {
			flashes = append(flashes, msg)
		}
	}
	return flashes
}
