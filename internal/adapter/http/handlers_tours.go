package adapthttp

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"tourbook/internal/app"
	"tourbook/internal/domain"
)

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(mux.Vars(r)["page"])
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.Invalid("page", "must be a number"))
		return
	}

	var submitted *app.Preferences
	if r.Method == http.MethodPost {
		var body app.Preferences
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := body.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		submitted = &body
	}

	listing, err := s.listing.RenderListing(r.Context(), visitorFrom(r.Context()), page, submitted)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleTourView(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tour, err := s.tours.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tour)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	user := userFrom(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
		return
	}
	applied, err := s.tours.Apply(r.Context(), user.ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": applied})
}
