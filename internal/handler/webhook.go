package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"filegate/internal/bot"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// secretHeader is set by Telegram when the webhook was registered with
// a secret token.
const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

type WebhookHandler struct {
	bot    *bot.Bot
	secret string
	logger *zap.SugaredLogger
}

func NewWebhookHandler(b *bot.Bot, secret string, logger *zap.SugaredLogger) *WebhookHandler {
	return &WebhookHandler{bot: b, secret: secret, logger: logger}
}

func (h *WebhookHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/webhook", h.handle).Methods("POST")
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" {
		got := r.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			h.logger.Warnw("webhook rejected: bad secret token")
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	r.Body.Close()

	h.bot.HandleUpdate(r.Context(), update)

	// Telegram only needs a 200; errors were already reported to the
	// chat by the bot itself.
	w.WriteHeader(http.StatusOK)
}
