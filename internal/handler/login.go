package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"filegate/internal/config"
	"filegate/internal/pkg/auth"
	"filegate/internal/pkg/httputils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type LoginHandler struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
}

func NewLoginHandler(cfg *config.Config, logger *zap.SugaredLogger) *LoginHandler {
	return &LoginHandler{cfg: cfg, logger: logger}
}

func (h *LoginHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/login", h.login).Methods("POST", "OPTIONS")
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *LoginHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	r.Body.Close()

	if req.Username == "" || req.Password == "" {
		httputils.ResponseError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if !h.credentialsValid(req.Username, req.Password) {
		h.logger.Warnw("failed login attempt", "username", req.Username)
		httputils.ResponseError(w, http.StatusUnauthorized, "wrong username or password")
		return
	}

	if err := auth.SetLoginCookie(w, req.Username, h.cfg.AuthSecret); err != nil {
		httputils.ResponseError(w, http.StatusInternalServerError, "failed to issue session")
		return
	}

	httputils.ResponseOK(w, "logged in")
}

// credentialsValid accepts either a bcrypt hash or a literal password
// in AUTH_PASSWORD; the literal comparison is constant-time.
func (h *LoginHandler) credentialsValid(username, password string) bool {
	if subtle.ConstantTimeCompare([]byte(username), []byte(h.cfg.AuthUser)) != 1 {
		return false
	}
	if strings.HasPrefix(h.cfg.AuthPassword, "$2") {
		return auth.CheckPasswordHash(password, h.cfg.AuthPassword)
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(h.cfg.AuthPassword)) == 1
}
