package clawhub

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/tinyland-inc/clawhub-channel/pkg/logger"
)

// MessageHandler receives each normalized inbound message.
type MessageHandler func(msg Message)

// NewWebhookHandler returns the inbound webhook endpoint. When a secret
// is configured the bearer check runs before the body is touched;
// callers always get a structured JSON response (401/400/200).
func NewWebhookHandler(secret string, fetcher ChannelInfoFetcher, handle MessageHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, `{"error":"Method not allowed"}`)
			return
		}

		if secret != "" {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token != secret {
				writeJSON(w, http.StatusUnauthorized, `{"error":"Unauthorized"}`)
				return
			}
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, `{"error":"Missing content or sender_name"}`)
			return
		}

		env, err := DecodeEnvelope(body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, `{"error":"Missing content or sender_name"}`)
			return
		}

		msg, err := Normalize(r.Context(), env, fetcher)
		if err != nil {
			if !errors.Is(err, ErrIncompleteMessage) {
				logger.WarnCF("clawhub", "Webhook normalization failed", map[string]any{
					"error": err.Error(),
				})
			}
			writeJSON(w, http.StatusBadRequest, `{"error":"Missing content or sender_name"}`)
			return
		}

		handle(msg)
		writeJSON(w, http.StatusOK, `{"ok":true}`)
	})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body) //nolint:errcheck
}
