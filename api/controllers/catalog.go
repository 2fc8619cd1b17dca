package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const maxSearchQueryLen = 200

// CatalogHome lists the newest products alongside every category.
func CatalogHome(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "catalog", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		params, err := pageParams(r)
		if err != nil {
			return nil, err
		}
		return svc.Home(r.Context(), params)
	})
}

func CatalogCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "catalog", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		categories, err := svc.ListCategories(r.Context())
		return wrap("categories", categories, err)
	})
}

func CatalogCategoryProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "catalog", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		params, err := pageParams(r)
		if err != nil {
			return nil, err
		}
		return svc.CategoryProducts(r.Context(), slugParam(r), params)
	})
}

func CatalogProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "catalog", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		return svc.ProductDetail(r.Context(), slugParam(r))
	})
}

// CatalogSearch matches q against product names and descriptions, optionally
// within one category.
func CatalogSearch(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "catalog", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		categoryID, err := validators.ParseQueryUUID(r, "category_id")
		if err != nil {
			return nil, err
		}
		query := validators.SanitizeString(r.URL.Query().Get("q"), maxSearchQueryLen)
		products, err := svc.Search(r.Context(), catalog.SearchInput{Query: query, CategoryID: categoryID})
		if err != nil {
			return nil, err
		}
		return map[string]any{"query": query, "products": products}, nil
	})
}

func slugParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "slug"))
}
