package adapthttp

import (
	"net/http"
	"strconv"
	"time"

	"tourbook/internal/app"
	"tourbook/internal/domain"
)

func (s *Server) handleCreateTour(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r, s.opts.MaxUploadSize); err != nil {
		s.fail(w, r, err)
		return
	}

	in := app.CreateTourInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		GuideID:     userFrom(r.Context()).ID,
	}
	var err error
	if in.StartDate, err = parseDay("startDate", r.FormValue("startDate"), time.Time{}); err != nil {
		s.fail(w, r, err)
		return
	}
	if in.EndDate, err = parseDay("endDate", r.FormValue("endDate"), time.Time{}); err != nil {
		s.fail(w, r, err)
		return
	}
	if v := r.FormValue("guideId"); v != "" {
		if in.GuideID, err = strconv.ParseInt(v, 10, 64); err != nil {
			s.fail(w, r, domain.Invalid("guideId", "must be a number"))
			return
		}
	}

	images, closeFiles, err := openUploads(r, "images")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer closeFiles()

	tour, err := s.tours.Create(r.Context(), in, images)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tour)
}

func (s *Server) handleEditTour(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tour, err := s.tours.Edit(r.Context(), id, body.Name, body.Description)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tour)
}

// handleStatistics reports over the last 30 days unless from/to are given.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := domain.StatKind(q.Get("type"))
	to, err := parseDay("to", q.Get("to"), time.Now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	from, err := parseDay("from", q.Get("from"), to.AddDate(0, 0, -29))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	points, err := s.stats.Report(r.Context(), kind, from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"type":   kind,
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
		"points": points,
	})
}
