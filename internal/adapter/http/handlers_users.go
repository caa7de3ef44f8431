package adapthttp

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"tourbook/internal/app"
	"tourbook/internal/domain"
)

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, user)
		return
	}

	if err := parseMultipart(w, r, s.opts.MaxUploadSize); err != nil {
		s.fail(w, r, err)
		return
	}
	in := app.SettingsInput{
		OldPassword: r.FormValue("oldPassword"),
		Username:    r.FormValue("username"),
		NewPassword: r.FormValue("newPassword"),
		Email:       r.FormValue("email"),
		Phone:       r.FormValue("phone"),
	}
	if v := r.FormValue("experienceId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.fail(w, r, domain.Invalid("experienceId", "must be a number"))
			return
		}
		in.ExperienceID = id
	}

	files, closeFiles, err := openUploads(r, "avatar")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer closeFiles()
	if len(files) > 0 {
		in.Avatar = &files[0]
	}

	updated, err := s.auth.UpdateSettings(r.Context(), user.ID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleUsernameAvailable answers "1" when the name is free, "0" otherwise.
func (s *Server) handleUsernameAvailable(w http.ResponseWriter, r *http.Request) {
	ok, err := s.auth.UsernameAvailable(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if ok {
		_, _ = w.Write([]byte("1"))
		return
	}
	_, _ = w.Write([]byte("0"))
}

func (s *Server) handleExperiences(w http.ResponseWriter, r *http.Request) {
	exps, err := s.auth.ListExperiences(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": exps})
}
