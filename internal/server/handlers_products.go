package server

import (
	"fmt"
	"net/http"
	"strings"

	"exportal/internal/api"
	"exportal/internal/models"
	"exportal/internal/reconcile"
	"exportal/internal/store"
)

const maxPackagingOptions = 20

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category != "" {
		normalized, err := normalizeProductCategory(category)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		category = normalized
	}

	products, err := s.store.ListProducts(r.Context(), category)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	resp := api.ProductListResponse{Products: make([]api.ProductResponse, 0, len(products))}
	for _, product := range products {
		resp.Products = append(resp.Products, s.productResponse(product))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	product, err := s.store.GetProduct(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if product == nil {
		s.writeServiceError(w, r, notFoundCode(fmt.Errorf("product %s not found", id), ErrCodeEntityNotFound))
		return
	}
	s.writeJSON(w, http.StatusOK, s.productResponse(*product))
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	uploads, retained, err := s.parseSlotUploads(w, r, productSlots)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	fields, err := productFieldsFromForm(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	record, err := s.products.Create(r.Context(), reconcile.Intent{
		Fields:   fields,
		Uploads:  uploads,
		Retained: retained,
	})
	if err != nil {
		s.writeReconcileError(w, r, err)
		return
	}

	product, err := s.store.GetProduct(r.Context(), record.ID)
	if err != nil || product == nil {
		s.writeStoreError(w, r, fmt.Errorf("reloading product %s: %w", record.ID, err))
		return
	}

	s.recordActivity(r, "", models.ActivityActionCreate, "product", product.ID, product.Name)
	s.writeJSON(w, http.StatusCreated, s.productResponse(*product))
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}

	uploads, retained, err := s.parseSlotUploads(w, r, productSlots)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	fields, err := productFieldsFromForm(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	expectedVersion, err := formVersion(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	record, err := s.products.Update(r.Context(), id, reconcile.Intent{
		Fields:          fields,
		Uploads:         uploads,
		Retained:        retained,
		ExpectedVersion: expectedVersion,
	})
	if err != nil {
		s.writeReconcileError(w, r, err)
		return
	}

	product, err := s.store.GetProduct(r.Context(), record.ID)
	if err != nil || product == nil {
		s.writeStoreError(w, r, fmt.Errorf("reloading product %s: %w", record.ID, err))
		return
	}

	s.recordActivity(r, "", models.ActivityActionUpdate, "product", product.ID, product.Name)
	s.writeJSON(w, http.StatusOK, s.productResponse(*product))
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	if err := s.products.Delete(r.Context(), id); err != nil {
		s.writeReconcileError(w, r, err)
		return
	}
	s.recordActivity(r, "", models.ActivityActionDelete, "product", id, "")
	w.WriteHeader(http.StatusNoContent)
}

func productFieldsFromForm(r *http.Request) (store.ProductFields, error) {
	name, err := requireText("name", r.FormValue("name"), maxTitleLength)
	if err != nil {
		return store.ProductFields{}, err
	}
	category, err := normalizeProductCategory(r.FormValue("category"))
	if err != nil {
		return store.ProductFields{}, err
	}
	origin, err := optionalText("origin", r.FormValue("origin"), maxTitleLength)
	if err != nil {
		return store.ProductFields{}, err
	}
	description, err := optionalText("description", r.FormValue("description"), maxTextLength)
	if err != nil {
		return store.ProductFields{}, err
	}
	packaging, err := packagingFromForm(r)
	if err != nil {
		return store.ProductFields{}, err
	}

	return store.ProductFields{
		Name:        name,
		Category:    category,
		Origin:      origin,
		Description: description,
		Packaging:   packaging,
	}, nil
}

// packagingFromForm accepts repeated packaging form values.
func packagingFromForm(r *http.Request) ([]string, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	values := r.MultipartForm.Value["packaging"]
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if len(value) > maxTitleLength {
			return nil, badRequest(fmt.Errorf("packaging option must be at most %d characters", maxTitleLength))
		}
		out = append(out, value)
	}
	if len(out) > maxPackagingOptions {
		return nil, badRequest(fmt.Errorf("at most %d packaging options", maxPackagingOptions))
	}
	return out, nil
}
