package adapthttp

import (
	"net/http"
	"os"
	"path"
)

// loggedIn reports whether the request carries a valid session cookie.
func (s *Server) loggedIn(r *http.Request) bool {
	_, err := s.sessionFromRequest(r)
	return err == nil
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.loggedIn(r) {
		http.Redirect(w, r, "/welcome", http.StatusFound)
		return
	}
	http.ServeFile(w, r, path.Join(s.webDir, "register.html"))
}

func (s *Server) handleWelcomePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.loggedIn(r) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	http.ServeFile(w, r, path.Join(s.webDir, "welcome.html"))
}

// pagesFromDisk serves the login page at the root and static assets (styles,
// client scripts) from the web directory.
func (s *Server) pagesFromDisk() http.Handler {
	fileServer := http.FileServer(http.Dir(s.webDir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqPath := path.Clean(r.URL.Path)
		if reqPath == "/" {
			if s.loggedIn(r) {
				http.Redirect(w, r, "/welcome", http.StatusFound)
				return
			}
			http.ServeFile(w, r, path.Join(s.webDir, "index.html"))
			return
		}

		staticPath := path.Join(s.webDir, reqPath)
		if info, err := os.Stat(staticPath); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}

		http.NotFound(w, r)
	})
}
