package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/quote-assistant/internal/catalog"
	"github.com/capitalize-ai/quote-assistant/internal/model"
	"github.com/capitalize-ai/quote-assistant/pkg/logger"
)

// CatalogHandler serves catalog listings and name lookups.
type CatalogHandler struct {
	resolver *catalog.Resolver
	logger   *logger.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(resolver *catalog.Resolver, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		resolver: resolver,
		logger:   log,
	}
}

// EntriesResponse is the response for catalog listings.
type EntriesResponse struct {
	Entries []model.CatalogEntry `json:"entries"`
}

// Categories handles GET /api/v1/catalog/categories
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(ctx context.Context) ([]model.CatalogEntry, error) {
		return h.resolver.Store().ListCategories(ctx)
	})
}

// Products handles GET /api/v1/catalog/categories/:categoryID/products
func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	h.listInCategory(w, r, h.resolver.Store().ListProducts)
}

// Materials handles GET /api/v1/catalog/categories/:categoryID/materials
func (h *CatalogHandler) Materials(w http.ResponseWriter, r *http.Request) {
	h.listInCategory(w, r, h.resolver.Store().ListMaterials)
}

// Finishes handles GET /api/v1/catalog/categories/:categoryID/finishes
func (h *CatalogHandler) Finishes(w http.ResponseWriter, r *http.Request) {
	h.listInCategory(w, r, h.resolver.Store().ListFinishes)
}

func (h *CatalogHandler) listInCategory(w http.ResponseWriter, r *http.Request, list func(context.Context, string) ([]model.CatalogEntry, error)) {
	categoryID := chi.URLParam(r, "categoryID")
	if _, err := h.resolver.CategoryByID(r.Context(), categoryID); err != nil {
		h.writeLookupError(w, err)
		return
	}
	h.list(w, r, func(ctx context.Context) ([]model.CatalogEntry, error) {
		return list(ctx, categoryID)
	})
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request, list func(context.Context) ([]model.CatalogEntry, error)) {
	entries, err := list(r.Context())
	if err != nil {
		h.logger.Error("failed to list catalog", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list catalog")
		return
	}
	if entries == nil {
		entries = []model.CatalogEntry{}
	}
	writeJSON(w, http.StatusOK, &EntriesResponse{Entries: entries})
}

// Lookup handles GET /api/v1/catalog/lookup?kind=product&q=...&category=...
//
// category takes a category id and scopes product, material and finish
// lookups. Products without a category are looked up across the catalog.
func (h *CatalogHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	name := q.Get("q")
	categoryID := q.Get("category")
	if name == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	var (
		entry model.CatalogEntry
		err   error
	)
	switch model.CatalogKind(q.Get("kind")) {
	case model.KindCategory:
		entry, err = h.resolver.Category(ctx, name)
	case model.KindProduct:
		entry, err = h.resolver.Product(ctx, name, categoryID)
	case model.KindMaterial:
		entry, err = h.resolver.Material(ctx, name, categoryID)
	case model.KindFinish:
		entry, err = h.resolver.Finish(ctx, name, categoryID)
	default:
		writeError(w, http.StatusBadRequest, "kind must be one of category, product, material, finish")
		return
	}
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (h *CatalogHandler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrNoMatch) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.logger.Error("catalog lookup failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "catalog lookup failed")
}
