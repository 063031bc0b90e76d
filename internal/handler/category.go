package handler

import (
	"encoding/json"
	"net/http"

	"filegate/internal/pkg/httputils"
	"filegate/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type CategoryHandler struct {
	categories *service.CategoryService
	logger     *zap.SugaredLogger
}

func NewCategoryHandler(categories *service.CategoryService, logger *zap.SugaredLogger) *CategoryHandler {
	return &CategoryHandler{categories: categories, logger: logger}
}

func (h *CategoryHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/create-category", h.create).Methods("POST", "OPTIONS")
	router.HandleFunc("/delete-category", h.delete).Methods("POST", "OPTIONS")
	router.HandleFunc("/categories", h.list).Methods("GET")
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

func (h *CategoryHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	r.Body.Close()

	category, err := h.categories.Create(req.Name)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputils.ResponseOK(w, "category "+category.Name+" created")
}

type deleteCategoryRequest struct {
	ID uint `json:"id"`
}

func (h *CategoryHandler) delete(w http.ResponseWriter, r *http.Request) {
	var req deleteCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	r.Body.Close()

	if err := h.categories.Delete(req.ID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	httputils.ResponseOK(w, "category deleted")
}

func (h *CategoryHandler) list(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List()
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	httputils.ResponseJSON(w, http.StatusOK, categories)
}
