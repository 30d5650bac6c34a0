package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

const uploadsPrefix = "/uploads/"

// HealthChecker reports whether the backing store is reachable.
type HealthChecker func(ctx context.Context) error

type RouterConfig struct {
	Auth         *AuthHandler
	Members      *MemberHandler
	Sessions     *SessionHandler
	Convocations *ConvocationHandler
	Minutes      *MinutesHandler
	Overview     *OverviewHandler
	// Validator guards every route except login, logout, health, metrics and uploads.
	Validator  SessionValidator
	UploadDir  string
	Metrics    http.Handler
	Health     HealthChecker
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	responder := newResponder(cfg.Logger)

	protect := func(h http.HandlerFunc) http.Handler {
		if cfg.Validator == nil {
			return h
		}
		return RequireSession(cfg.Validator, cfg.Logger)(h)
	}
	notFound := func(w http.ResponseWriter, r *http.Request) {
		responder.writeError(r.Context(), w, http.StatusNotFound, nil)
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(r.Context()); err != nil {
				responder.loggerFor(r.Context()).ErrorContext(r.Context(), "health check failed", "error", err)
				responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	if cfg.UploadDir != "" {
		files := http.StripPrefix(uploadsPrefix, http.FileServer(http.Dir(cfg.UploadDir)))
		mux.Handle(uploadsPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/") {
				notFound(w, r)
				return
			}
			files.ServeHTTP(w, r)
		}))
	}

	if cfg.Auth != nil {
		mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Login(w, r)
		})
		mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Logout(w, r)
		})
		mux.Handle("/auth/me", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Auth.Me(w, r)
		}))
	}

	if cfg.Members != nil {
		mux.Handle("/members", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Members.List(w, r)
			case http.MethodPost:
				cfg.Members.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.Handle("/members/", protect(func(w http.ResponseWriter, r *http.Request) {
			id, sub, ok := splitResourcePath(r.URL.Path, "/members/")
			if !ok {
				notFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			switch sub {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Members.Get(w, r)
				case http.MethodPut, http.MethodPatch:
					cfg.Members.Update(w, r)
				case http.MethodDelete:
					cfg.Members.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
				}
			case "photo":
				if r.Method != http.MethodPost && r.Method != http.MethodPut {
					methodNotAllowed(w, http.MethodPost, http.MethodPut)
					return
				}
				cfg.Members.UploadPhoto(w, r)
			default:
				notFound(w, r)
			}
		}))
	}

	if cfg.Sessions != nil {
		mux.Handle("/sessions", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Sessions.List(w, r)
			case http.MethodPost:
				cfg.Sessions.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.Handle("/sessions/", protect(func(w http.ResponseWriter, r *http.Request) {
			id, sub, ok := splitResourcePath(r.URL.Path, "/sessions/")
			if !ok {
				notFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			switch sub {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Sessions.Get(w, r)
				case http.MethodPut, http.MethodPatch:
					cfg.Sessions.Update(w, r)
				case http.MethodDelete:
					cfg.Sessions.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
				}
			case "convocations/send":
				if cfg.Convocations == nil {
					notFound(w, r)
					return
				}
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Convocations.SendForSession(w, r)
			default:
				notFound(w, r)
			}
		}))
	}

	if cfg.Convocations != nil {
		mux.Handle("/convocations", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Convocations.List(w, r)
			case http.MethodPost:
				cfg.Convocations.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.Handle("/convocations/bulk", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Convocations.Bulk(w, r)
		}))
		mux.Handle("/convocations/", protect(func(w http.ResponseWriter, r *http.Request) {
			id, sub, ok := splitResourcePath(r.URL.Path, "/convocations/")
			if !ok {
				notFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			switch sub {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Convocations.Get(w, r)
				case http.MethodPut, http.MethodPatch:
					cfg.Convocations.Update(w, r)
				case http.MethodDelete:
					cfg.Convocations.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
				}
			case "read":
				if r.Method != http.MethodPost && r.Method != http.MethodPut {
					methodNotAllowed(w, http.MethodPost, http.MethodPut)
					return
				}
				cfg.Convocations.MarkRead(w, r)
			case "send-email":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Convocations.SendEmail(w, r)
			default:
				notFound(w, r)
			}
		}))
	}

	if cfg.Minutes != nil {
		mux.Handle("/minutes", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Minutes.List(w, r)
			case http.MethodPost:
				cfg.Minutes.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.Handle("/minutes/", protect(func(w http.ResponseWriter, r *http.Request) {
			id, sub, ok := splitResourcePath(r.URL.Path, "/minutes/")
			if !ok {
				notFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			switch sub {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Minutes.Get(w, r)
				case http.MethodPut, http.MethodPatch:
					cfg.Minutes.Update(w, r)
				case http.MethodDelete:
					cfg.Minutes.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
				}
			case "export":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Minutes.Export(w, r)
			default:
				notFound(w, r)
			}
		}))
	}

	if cfg.Overview != nil {
		mux.Handle("/notifications", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Overview.Notifications(w, r)
		}))
		mux.Handle("/dashboard", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Overview.Dashboard(w, r)
		}))
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}

// splitResourcePath turns "/prefix/12/sub/path" into (12, "sub/path").
func splitResourcePath(path, prefix string) (uint, string, bool) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return 0, "", false
	}
	idPart, sub, _ := strings.Cut(rest, "/")
	id, err := parseID(idPart)
	if err != nil {
		return 0, "", false
	}
	return id, sub, true
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
