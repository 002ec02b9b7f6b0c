package esm_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-esm"
)

// appliance is a fake ESM serving login and the build stamp and dispatching
// every other command, public or private, to registered handlers.
type appliance struct {
	t      *testing.T
	server *httptest.Server

	mu          sync.Mutex
	version     string
	routes      map[string]http.HandlerFunc
	calls       map[string][]string
	logins      int
	loginStatus int
}

func newAppliance(t *testing.T) *appliance {
	t.Helper()
	a := &appliance{
		t:       t,
		version: "11.5.2 20211005104533",
		routes:  make(map[string]http.HandlerFunc),
		calls:   make(map[string][]string),
	}
	a.server = httptest.NewServer(a)
	t.Cleanup(a.server.Close)
	return a
}

func (a *appliance) handle(cmd string, h http.HandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes[cmd] = h
}

// bodies returns the request bodies received for cmd, in arrival order.
func (a *appliance) bodies(cmd string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls[cmd]...)
}

func (a *appliance) setVersion(v string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.version = v
}

func (a *appliance) rejectLogins(status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loginStatus = status
}

func (a *appliance) loginCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.logins
}

func (a *appliance) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	var cmd string
	switch {
	case r.URL.Path == "/rs/esm/login":
		a.mu.Lock()
		a.logins++
		status := a.loginStatus
		a.mu.Unlock()
		if status != 0 {
			http.Error(w, "invalid credentials", status)
			return
		}
		w.Header().Set("Set-Cookie", "JWTToken=tok")
		w.Header().Set("Xsrf-Token", "xsrf")
		w.WriteHeader(http.StatusOK)
		return
	case r.URL.Path == "/rs/esm/essmgtGetBuildStamp":
		a.mu.Lock()
		version := a.version
		a.mu.Unlock()
		writeJSON(w, map[string]any{"return": map[string]any{"buildStamp": version}})
		return
	case strings.HasPrefix(r.URL.Path, "/rs/esm/"):
		cmd = strings.TrimPrefix(r.URL.Path, "/rs/esm/")
	case strings.HasPrefix(r.URL.Path, "/ess"):
		parts := strings.SplitN(string(body), "%13", 3)
		if len(parts) >= 2 {
			cmd = parts[1]
		}
	}

	a.mu.Lock()
	a.calls[cmd] = append(a.calls[cmd], string(body))
	h := a.routes[cmd]
	a.mu.Unlock()

	if h == nil {
		http.Error(w, "unknown command "+cmd, http.StatusNotFound)
		return
	}
	r.Body = io.NopCloser(strings.NewReader(string(body)))
	h(w, r)
}

// client returns a client for the fake appliance. Extra options override
// the defaults.
func (a *appliance) client(opts ...esm.ClientOption) *esm.Client {
	a.t.Helper()
	base := []esm.ClientOption{
		esm.WithHost(a.server.URL),
		esm.WithCredentials("admin", "secret"),
		esm.WithQuiet(true),
		esm.WithRetries(0, 0),
		esm.WithPollInterval(time.Millisecond),
	}
	client, err := esm.NewClient(append(base, opts...)...)
	require.NoError(a.t, err)
	return client
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writePrivate(w http.ResponseWriter, fields [][2]string) {
	var b strings.Builder
	b.WriteString("Response=")
	for _, f := range fields {
		b.WriteString(f[0] + "%13" + f[1] + "%13%14")
	}
	_, _ = io.WriteString(w, b.String())
}

func readBody(r *http.Request) string {
	data, _ := io.ReadAll(r.Body)
	return string(data)
}

func decodeBody(t *testing.T, body string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	return m
}
