package server

import (
	"bufio"
	"io"
	"net/http"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
	"github.com/jrsteele09/go-property-market/properties"
)

const (
	imageFormField    = "image"
	sniffLen          = 512
	multipartOverhead = 1 << 20
)

// propertyFilter reads listing filters from the query string
func propertyFilter(r *http.Request) (properties.Filter, error) {
	q := r.URL.Query()
	f := properties.Filter{
		City:        q.Get("city"),
		ListingType: properties.ListingType(q.Get("listing_type")),
		Status:      properties.Status(q.Get("status")),
		Query:       q.Get("q"),
		Sort:        properties.SortOrder(q.Get("sort")),
	}
	var err error
	if f.MinPrice, err = queryInt64(r, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryInt64(r, "max_price"); err != nil {
		return f, err
	}
	if f.MinBedrooms, err = queryInt(r, "min_bedrooms", 0); err != nil {
		return f, err
	}
	if f.Offset, f.Limit, err = pagination(r); err != nil {
		return f, err
	}
	return f, nil
}

// ListPropertiesHandler is the public search. Only available listings show unless a status is asked for.
func (s *Server) ListPropertiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := propertyFilter(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if filter.Status == "" {
			filter.Status = properties.StatusAvailable
		}
		filter.OwnerID = r.URL.Query().Get("owner_id")
		resp, err := s.services.Properties.List(r.Context(), filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// OwnerPropertiesHandler lists the caller's own listings in every status
func (s *Server) OwnerPropertiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := propertyFilter(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.OwnerID = currentUser(r).ID
		resp, err := s.services.Properties.List(r.Context(), filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) GetPropertyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.services.Properties.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) CreatePropertyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req properties.CreateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		p, err := s.services.Properties.Create(r.Context(), currentUser(r), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Location", RouteProperties+"/"+p.ID)
		writeJSON(w, http.StatusCreated, p)
	}
}

func (s *Server) UpdatePropertyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req properties.UpdateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		p, err := s.services.Properties.Update(r.Context(), currentUser(r), r.PathValue("id"), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) DeletePropertyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.services.Properties.Delete(r.Context(), currentUser(r), r.PathValue("id")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AddPropertyImageHandler streams the multipart "image" field into the object store.
// The content type is sniffed from the bytes, not trusted from the client.
func (s *Server) AddPropertyImageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.GetMaxImageBytes()+multipartOverhead)
		mr, err := r.MultipartReader()
		if err != nil {
			writeError(w, r, apperrors.Validationf("multipart/form-data body with an %q field is required", imageFormField))
			return
		}

		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				writeError(w, r, apperrors.Validationf("invalid multipart body: %s", err.Error()))
				return
			}
			if part.FormName() != imageFormField {
				_ = part.Close()
				continue
			}

			br := bufio.NewReaderSize(part, sniffLen)
			head, _ := br.Peek(sniffLen)
			contentType := http.DetectContentType(head)
			if !properties.AllowedImageType(contentType) {
				writeError(w, r, apperrors.Validationf("unsupported image type %q", contentType))
				return
			}

			img, err := s.services.Properties.AddImage(r.Context(), currentUser(r), r.PathValue("id"), part.FileName(), contentType, br)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, img)
			return
		}
		writeError(w, r, apperrors.Validationf("multipart field %q is required", imageFormField))
	}
}

func (s *Server) RemovePropertyImageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.services.Properties.RemoveImage(r.Context(), currentUser(r), r.PathValue("id"), r.PathValue("imageID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
