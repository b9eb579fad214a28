package adapthttp

import (
	"net/http"
	"time"

	"accounts/internal/app"
)

// Server is the driving HTTP adapter that routes requests to the
// authentication service.
type Server struct {
	auth         *app.AuthService
	oidc         *OIDCConfig
	webDir       string
	cookieSecure bool
	cookieMaxAge int
}

// New creates a Server wired to the given authentication service. The
// session cookie lifetime follows sessionTTL; cookieSecure should be true
// behind HTTPS.
func New(auth *app.AuthService, oidc *OIDCConfig, webDir string, cookieSecure bool, sessionTTL time.Duration) *Server {
	if oidc == nil {
		oidc = &OIDCConfig{}
	}
	if sessionTTL <= 0 {
		sessionTTL = app.DefaultSessionTTL
	}
	return &Server{
		auth:         auth,
		oidc:         oidc,
		webDir:       webDir,
		cookieSecure: cookieSecure,
		cookieMaxAge: int(sessionTTL.Seconds()),
	}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api.HandleFunc("/register", s.handleRegister)
	api.HandleFunc("/login", s.handleLogin)
	api.HandleFunc("/user", s.handleCurrentUser)
	api.HandleFunc("/logout", s.handleLogout)

	api.HandleFunc("/config", s.handleConfig)
	api.HandleFunc("/auth/sso/login", s.handleSSOLogin)
	api.HandleFunc("/auth/sso/callback", s.handleSSOCallback)

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.HandleFunc("/register", s.handleRegisterPage)
	root.HandleFunc("/welcome", s.handleWelcomePage)
	root.Handle("/", s.pagesFromDisk())

	return s.loggingMiddleware(withNoCache(root))
}
