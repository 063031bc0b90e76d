package handler

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strconv"
	"strings"

	"filegate/internal/model"
	"filegate/internal/pkg/httputils"
	"filegate/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type FileHandler struct {
	files      *service.FileService
	categories *service.CategoryService
	logger     *zap.SugaredLogger
}

func NewFileHandler(files *service.FileService, categories *service.CategoryService, logger *zap.SugaredLogger) *FileHandler {
	return &FileHandler{files: files, categories: categories, logger: logger}
}

func (h *FileHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/upload", h.upload).Methods("POST", "OPTIONS")
	router.HandleFunc("/config", h.config).Methods("GET")
	router.HandleFunc("/search", h.search).Methods("POST", "OPTIONS")
	router.HandleFunc("/update-suffix", h.updateSuffix).Methods("POST", "OPTIONS")
	router.HandleFunc("/update-remark", h.updateRemark).Methods("POST", "OPTIONS")
	router.HandleFunc("/change-category", h.changeCategory).Methods("POST", "OPTIONS")
	router.HandleFunc("/delete", h.delete).Methods("POST", "OPTIONS")
	router.HandleFunc("/delete-multiple", h.deleteMultiple).Methods("POST", "OPTIONS")
}

// RegisterCatchAll mounts public file serving; must be registered last
// so explicit routes win.
func (h *FileHandler) RegisterCatchAll(router *mux.Router) {
	router.PathPrefix("/").HandlerFunc(h.serve).Methods("GET")
}

func (h *FileHandler) upload(w http.ResponseWriter, r *http.Request) {
	maxSize := h.files.MaxSize()

	// reject on the declared length before reading anything
	if r.ContentLength > maxSize+1024*1024 {
		httputils.ResponseError(w, http.StatusBadRequest,
			fmt.Sprintf("file exceeds the %d MB limit", maxSize/(1024*1024)))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1024*1024)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer part.Close()

	if header.Size > maxSize {
		httputils.ResponseError(w, http.StatusBadRequest,
			fmt.Sprintf("file exceeds the %d MB limit", maxSize/(1024*1024)))
		return
	}

	data, err := io.ReadAll(part)
	if err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	storageType := model.StorageType(r.FormValue("storage"))
	if !storageType.Valid() {
		storageType = model.StorageTelegram
	}

	var categoryID *uint
	if raw := r.FormValue("category"); raw != "" {
		if id, perr := strconv.ParseUint(raw, 10, 32); perr == nil {
			v := uint(id)
			categoryID = &v
		} else if c, cerr := h.categories.GetByName(raw); cerr == nil {
			categoryID = &c.ID
		}
	}

	mimeType := header.Header.Get("Content-Type")

	file, err := h.files.Upload(r.Context(), data, header.Filename, mimeType, storageType, categoryID, 0)
	if err != nil {
		h.respondError(w, err)
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, httputils.StatusResponse{
		Status: 1,
		Msg:    "uploaded",
		URL:    file.URL(h.files.Domain()),
	})
}

func (h *FileHandler) config(w http.ResponseWriter, r *http.Request) {
	httputils.ResponseJSON(w, http.StatusOK, map[string]int64{
		"maxSizeMB": h.files.MaxSize() / (1024 * 1024),
	})
}

type searchRequest struct {
	Query string `json:"query"`
}

// search answers with an HTML fragment of file cards the admin page
// swaps into the list.
func (h *FileHandler) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	r.Body.Close()

	files, err := h.files.Search(req.Query)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var sb strings.Builder
	for _, f := range files {
		url := f.URL(h.files.Domain())
		sb.WriteString(fmt.Sprintf(
			`<div class="file-card" data-url="%s"><a href="%s">%s</a><span class="remark">%s</span></div>`,
			html.EscapeString(url), html.EscapeString(url),
			html.EscapeString(f.FileName), html.EscapeString(f.Remark)))
	}

	httputils.ResponseJSON(w, http.StatusOK, httputils.StatusResponse{Status: 1, HTML: sb.String()})
}

type updateSuffixRequest struct {
	URL    string `json:"url"`
	Suffix string `json:"suffix"`
}

func (h *FileHandler) updateSuffix(w http.ResponseWriter, r *http.Request) {
	var req updateSuffixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	r.Body.Close()

	file, err := h.files.Resolve(req.URL)
	if err != nil {
		h.respondError(w, err)
		return
	}

	url, err := h.files.Rename(r.Context(), file, req.Suffix)
	if err != nil {
		h.respondError(w, err)
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, httputils.StatusResponse{Status: 1, Msg: "renamed", URL: url})
}

type bulkRemarkRequest struct {
	URLs   []string `json:"urls"`
	Remark string   `json:"remark"`
}

func (h *FileHandler) updateRemark(w http.ResponseWriter, r *http.Request) {
	var req bulkRemarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	r.Body.Close()

	res := h.files.BulkSetRemark(r.Context(), req.URLs, req.Remark)
	httputils.ResponseOK(w, bulkMessage(res))
}

type bulkCategoryRequest struct {
	URLs       []string `json:"urls"`
	CategoryID uint     `json:"categoryId"`
}

func (h *FileHandler) changeCategory(w http.ResponseWriter, r *http.Request) {
	var req bulkCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	r.Body.Close()

	res := h.files.BulkSetCategory(r.Context(), req.URLs, req.CategoryID)
	httputils.ResponseOK(w, bulkMessage(res))
}

type deleteRequest struct {
	ID     uint `json:"id"`
	FileID uint `json:"fileId"`
}

func (h *FileHandler) delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	r.Body.Close()

	id := req.ID
	if id == 0 {
		id = req.FileID
	}
	if id == 0 {
		httputils.ResponseError(w, http.StatusBadRequest, "missing file id")
		return
	}

	if err := h.files.DeleteByID(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httputils.ResponseOK(w, "deleted")
}

type deleteMultipleRequest struct {
	URLs []string `json:"urls"`
}

func (h *FileHandler) deleteMultiple(w http.ResponseWriter, r *http.Request) {
	var req deleteMultipleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	r.Body.Close()

	res := h.files.BulkDelete(r.Context(), req.URLs)
	httputils.ResponseOK(w, bulkMessage(res))
}

// serve streams a stored file by its public path segment.
func (h *FileHandler) serve(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/")
	if name == "" {
		http.NotFound(w, r)
		return
	}

	data, mimeType, err := h.files.Serve(r.Context(), name)
	if err != nil {
		h.logger.Debugw("file serve miss", "name", name, "error", err)
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		h.logger.Debugw("file serve write failed", "name", name, "error", err)
	}
}

func (h *FileHandler) respondError(w http.ResponseWriter, err error) {
	respondServiceError(w, h.logger, err)
}

func bulkMessage(res service.BulkResult) string {
	return fmt.Sprintf("%d succeeded, %d failed", res.OK, res.Failed)
}
