package server

import (
	"net/http"

	"exportal/internal/api"
	"exportal/internal/models"
)

func (s *Server) certificateResponse(cert models.Certificate) api.CertificateResponse {
	resp := api.CertificateResponse{Certificate: cert}
	if cert.SrcRef != "" {
		resp.SrcURL = s.blobs.URL(cert.SrcRef)
	}
	if cert.LogoRef != "" {
		resp.LogoURL = s.blobs.URL(cert.LogoRef)
	}
	return resp
}

func (s *Server) productResponse(product models.Product) api.ProductResponse {
	resp := api.ProductResponse{Product: product, ImageURLs: []string{}}
	for _, ref := range product.ImageRefs {
		resp.ImageURLs = append(resp.ImageURLs, s.blobs.URL(ref))
	}
	return resp
}

func (s *Server) carouselResponse(item models.CarouselItem) api.CarouselItemResponse {
	resp := api.CarouselItemResponse{CarouselItem: item}
	if item.ImageRef != "" {
		resp.ImageURL = s.blobs.URL(item.ImageRef)
	}
	return resp
}

func (s *Server) jumbotronResponse(jb models.Jumbotron) api.JumbotronResponse {
	resp := api.JumbotronResponse{Jumbotron: jb}
	if jb.ImageRef != "" {
		resp.ImageURL = s.blobs.URL(jb.ImageRef)
	}
	return resp
}

// recordActivity appends an audit entry. Failures are logged, never
// surfaced; the mutation already succeeded.
func (s *Server) recordActivity(r *http.Request, actor, action, entityType, entityID, detail string) {
	if actor == "" {
		if user, ok := authUserFromContext(r.Context()); ok {
			actor = user.Username
		}
	}
	err := s.store.AppendActivity(r.Context(), models.ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
	})
	if err != nil {
		s.log().Error("record activity", "action", action, "entity_type", entityType, "entity_id", entityID, "error", err)
	}
}
