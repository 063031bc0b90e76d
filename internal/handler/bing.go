package handler

import (
	"io"
	"net/http"
	"time"

	"filegate/internal/pkg/cache"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	bingArchiveURL = "https://www.bing.com/HPImageArchive.aspx?format=js&idx=0&n=8"
	bingCacheKey   = "bing:archive"
	bingCacheTTL   = 6 * time.Hour
)

// BingHandler proxies Bing's daily background-image list for the
// upload page, cached so Bing is hit a few times a day at most.
type BingHandler struct {
	cache  cache.Cache
	logger *zap.SugaredLogger
}

func NewBingHandler(c cache.Cache, logger *zap.SugaredLogger) *BingHandler {
	return &BingHandler{cache: c, logger: logger}
}

func (h *BingHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/bing", h.images).Methods("GET")
}

func (h *BingHandler) images(w http.ResponseWriter, r *http.Request) {
	if data, ok := h.cache.Get(r.Context(), bingCacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, bingArchiveURL, nil)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		h.logger.Warnw("bing fetch failed", "error", err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || resp.StatusCode != http.StatusOK {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}

	if err := h.cache.Set(r.Context(), bingCacheKey, data, bingCacheTTL); err != nil {
		h.logger.Debugw("bing cache set failed", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
