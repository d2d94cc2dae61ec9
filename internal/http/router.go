package httpserver

import "net/http"

// Routes groups handlers.
type Routes struct {
	SessionStart    http.HandlerFunc
	SessionEnd      http.HandlerFunc
	SessionTransfer http.HandlerFunc
	SessionExtend   http.HandlerFunc
	SessionsMe      http.HandlerFunc
	ActiveSessions  http.HandlerFunc
	TableSession    http.HandlerFunc
	Tables          http.HandlerFunc
	WalletMe        http.HandlerFunc
	WalletTopup     http.HandlerFunc
	WalletEntries   http.HandlerFunc
	Health          http.HandlerFunc
}

// NewRouter registers endpoints. authn wraps the user-facing routes.
func NewRouter(routes Routes, authn func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	user := func(expected string, handler http.HandlerFunc) http.Handler {
		return authn(method(expected, handler))
	}

	if routes.SessionStart != nil {
		mux.Handle("/sessions/start", user(http.MethodPost, routes.SessionStart))
	}
	if routes.SessionEnd != nil {
		mux.Handle("/sessions/end", user(http.MethodPost, routes.SessionEnd))
	}
	if routes.SessionTransfer != nil {
		mux.Handle("/sessions/transfer", user(http.MethodPost, routes.SessionTransfer))
	}
	if routes.SessionExtend != nil {
		mux.Handle("/sessions/extend", user(http.MethodPost, routes.SessionExtend))
	}
	if routes.SessionsMe != nil {
		mux.Handle("/sessions/me", user(http.MethodGet, routes.SessionsMe))
	}
	if routes.ActiveSessions != nil {
		mux.Handle("/sessions/active", method(http.MethodGet, routes.ActiveSessions))
	}
	if routes.TableSession != nil {
		mux.Handle("/tables/session", method(http.MethodGet, routes.TableSession))
	}
	if routes.Tables != nil {
		mux.Handle("/tables", method(http.MethodGet, routes.Tables))
	}
	if routes.WalletMe != nil {
		mux.Handle("/wallet/me", user(http.MethodGet, routes.WalletMe))
	}
	if routes.WalletTopup != nil {
		mux.Handle("/wallet/topup", user(http.MethodPost, routes.WalletTopup))
	}
	if routes.WalletEntries != nil {
		mux.Handle("/wallet/entries", user(http.MethodGet, routes.WalletEntries))
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
