package auth

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/outlook-mcp/internal/logging"
)

// RouteHandler serves the browser-facing authorization flow: the consent
// redirect, the provider callback, and a human-readable token status page.
type RouteHandler struct {
	manager *Manager
	logger  *slog.Logger

	// onAuthenticated, when set, runs after each successful code exchange.
	// The auth login command uses it to stop waiting for the browser.
	onAuthenticated func(*TokenRecord)
}

// NewRouteHandler returns a handler bound to the given manager.
func NewRouteHandler(m *Manager, logger *slog.Logger) *RouteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RouteHandler{manager: m, logger: logger}
}

// OnAuthenticated registers fn to be called with the record produced by each
// successful callback exchange. Must be set before Register.
func (h *RouteHandler) OnAuthenticated(fn func(*TokenRecord)) {
	h.onAuthenticated = fn
}

// Register mounts the authorization routes on mux.
func (h *RouteHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/auth", h.handleAuthorize)
	mux.HandleFunc("/auth/callback", h.handleCallback)
	mux.HandleFunc("/token-status", h.handleTokenStatus)
}

// handleAuthorize sends the browser to the provider's consent page. It
// requires a configured client id; everything else has a usable default.
func (h *RouteHandler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithOperation(h.logger, "authorize")

	cfg := h.manager.Config()
	if cfg.ClientID == "" {
		logger.Error("authorization requested without a configured client id")
		renderErrorPage(w, http.StatusInternalServerError,
			"Client ID is not configured. Set OUTLOOK_CLIENT_ID and restart the server.")
		return
	}

	q := url.Values{
		"client_id":     {cfg.ClientID},
		"response_type": {"code"},
		"redirect_uri":  {cfg.RedirectURI},
		"scope":         {cfg.ScopeString()},
		"response_mode": {"query"},
		"state":         {uuid.NewString()},
	}

	logger.Info("redirecting browser to provider consent page",
		slog.String("redirect_uri", cfg.RedirectURI))
	http.Redirect(w, r, cfg.AuthorizeURL+"?"+q.Encode(), http.StatusFound)
}

// handleCallback receives the provider redirect and exchanges the
// authorization code. The state parameter must be present; a request
// without one did not come through our /auth redirect.
func (h *RouteHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithOperation(h.logger, "callback")
	q := r.URL.Query()

	if q.Get("state") == "" {
		renderErrorPage(w, http.StatusBadRequest, "Missing state parameter.")
		return
	}

	if errCode := q.Get("error"); errCode != "" {
		msg := errCode
		if desc := q.Get("error_description"); desc != "" {
			msg = fmt.Sprintf("%s: %s", errCode, desc)
		}
		logger.Warn("provider reported an authorization error",
			slog.String("error", errCode))
		renderErrorPage(w, http.StatusBadRequest, msg)
		return
	}

	code := q.Get("code")
	if code == "" {
		renderErrorPage(w, http.StatusBadRequest, "No authorization code in callback.")
		return
	}

	rec, err := h.manager.ExchangeCode(r.Context(), code)
	if err != nil {
		logger.Error("authorization code exchange failed", logging.Err(err))
		renderErrorPage(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("authorization completed, tokens persisted")
	renderSuccessPage(w)

	if h.onAuthenticated != nil {
		h.onAuthenticated(rec)
	}
}

// handleTokenStatus reports whether a usable token is available, refreshing
// a stale one along the way when possible.
func (h *RouteHandler) handleTokenStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := h.manager.GetAccessToken(r.Context()); err != nil {
		detail := err.Error()
		if reason := h.manager.LastReason(); reason != nil {
			detail = fmt.Sprintf("%s (%s)", reason.Message, reason.Code)
		}
		renderStatusPage(w, "No valid token.", detail)
		return
	}

	expiry := time.UnixMilli(h.manager.Cache().ExpiryTime())
	renderStatusPage(w,
		fmt.Sprintf("Token is valid. Expires at %s.", expiry.Format(time.RFC1123)), "")
}

func renderSuccessPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, successPageHTML)
}

func renderErrorPage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, errorPageHTML, html.EscapeString(msg))
}

func renderStatusPage(w http.ResponseWriter, summary, detail string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, statusPageHTML,
		html.EscapeString(summary), html.EscapeString(detail))
}
