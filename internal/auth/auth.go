// Package auth provides ESM credentials and session state.
package auth

import (
	"encoding/base64"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Credentials holds ESM login credentials. Password is kept base64 encoded,
// which is the form the appliance expects on the wire.
type Credentials struct {
	Username string
	Password string
}

// NewCredentials encodes a clear text password.
func NewCredentials(username, password string) *Credentials {
	return &Credentials{
		Username: username,
		Password: base64.StdEncoding.EncodeToString([]byte(password)),
	}
}

// EncodedUsername returns the username as sent on login.
func (c *Credentials) EncodedUsername() string {
	return base64.StdEncoding.EncodeToString([]byte(c.Username))
}

// Valid reports whether credentials are configured.
func (c *Credentials) Valid() bool {
	return c != nil && c.Username != "" && c.Password != ""
}

// API version flags derived from the appliance build stamp.
const (
	APIVersionUnknown = 0
	APIVersion1       = 1
	APIVersion2       = 2
)

// VersionFlag maps an appliance version string to its API version flag.
// Releases 9.x, 10.x, 11.0 and 11.1 use the legacy request shapes.
func VersionFlag(version string) int {
	v := strings.TrimSpace(version)
	for _, prefix := range []string{"9", "10", "11.0", "11.1"} {
		if strings.HasPrefix(v, prefix) {
			return APIVersion1
		}
	}
	return APIVersion2
}

// LoginInfo describes the current authenticated session.
type LoginInfo struct {
	Username  string
	LoginTime time.Time
	Version   string
}

// Session is the mutable authentication state shared by every request of a
// client. Concurrent callers that observe an expired session may each log in
// again; the last login wins.
type Session struct {
	mu         sync.RWMutex
	cookie     string
	xsrfToken  string
	loggedIn   bool
	apiVersion int
	info       LoginInfo
}

// NewSession returns a logged out session.
func NewSession() *Session {
	return &Session{}
}

// Establish records the auth headers returned by a successful login.
func (s *Session) Establish(cookie, xsrfToken, username string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookie = cookie
	s.xsrfToken = xsrfToken
	s.loggedIn = true
	s.info.Username = username
	s.info.LoginTime = at
}

// SetVersion stores the appliance version string and its API flag.
func (s *Session) SetVersion(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info.Version = version
	s.apiVersion = VersionFlag(version)
}

// Invalidate clears auth headers, the logged in flag and the version.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookie = ""
	s.xsrfToken = ""
	s.loggedIn = false
	s.apiVersion = APIVersionUnknown
	s.info = LoginInfo{}
}

// LoggedIn reports whether a login has succeeded since the last invalidation.
func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn
}

// APIVersion returns the API version flag, or APIVersionUnknown before login.
func (s *Session) APIVersion() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiVersion
}

// Info returns a copy of the login metadata.
func (s *Session) Info() LoginInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Apply adds session headers to an HTTP request.
func (s *Session) Apply(req *http.Request) {
	if s == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cookie != "" {
		req.Header.Set("Cookie", s.cookie)
	}
	if s.xsrfToken != "" {
		req.Header.Set("X-Xsrf-Token", s.xsrfToken)
	}
}
