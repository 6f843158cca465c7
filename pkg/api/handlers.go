package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb/geojson"

	"github.com/et-mohedano/demo-delegados/pkg/catalog"
	"github.com/et-mohedano/demo-delegados/pkg/export"
	"github.com/et-mohedano/demo-delegados/pkg/geo"
	"github.com/et-mohedano/demo-delegados/pkg/report"
	"github.com/et-mohedano/demo-delegados/pkg/session"
)

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// --- Public handlers ---

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Auth handlers ---

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin authenticates a delegate and starts the (single) session.
func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid request body"})

		return
	}

	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"username and password are required"})

		return
	}

	binding, err := s.deps.Sessions.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized,
				errorResponse{"invalid credentials"})

			return
		}

		s.log.WithError(err).Error("Login failed")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"internal error"})

		return
	}

	// A directory entry pointing at a region the index never loaded is a
	// configuration problem; the login aborts, the process carries on.
	if _, err := session.ResolveAssignedGeometry(
		binding, s.deps.Regions,
	); err != nil {
		s.deps.Sessions.Clear()

		s.log.WithError(err).Warn("Login rejected, unassigned region")
		writeJSON(w, http.StatusConflict, errorResponse{err.Error()})

		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    binding.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// The delegate's own region is the default map emphasis, and the stats
	// scope just changed.
	if err := s.deps.Views.SelectRegion(binding.AssignedRegion); err != nil {
		s.log.WithError(err).Warn("Selecting assigned region failed")
	}

	s.deps.Views.Refresh()

	writeJSON(w, http.StatusOK, binding)
}

// handleLogout ends the active session.
func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.deps.Sessions.Clear()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	if err := s.deps.Views.SelectRegion(""); err != nil {
		s.log.WithError(err).Warn("Clearing region selection failed")
	}

	s.deps.Views.Refresh()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMe returns the currently authenticated delegate.
func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	binding, ok := bindingFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized,
			errorResponse{"not authenticated"})

		return
	}

	writeJSON(w, http.StatusOK, binding)
}

// --- Region handlers ---

// handleListRegions returns all region names in collated order.
func (s *server) handleListRegions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"regions": slices.Collect(s.deps.Regions.Names()),
	})
}

// handleRegionBounds returns the envelope of all loaded geometry for
// initial map framing.
func (s *server) handleRegionBounds(w http.ResponseWriter, _ *http.Request) {
	b, ok := s.deps.Regions.Bounds()
	if !ok {
		writeJSON(w, http.StatusNotFound,
			errorResponse{"no geometry loaded"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]float64{
		"min_lng": b.Min[0],
		"min_lat": b.Min[1],
		"max_lng": b.Max[0],
		"max_lat": b.Max[1],
	})
}

// handleRegionGeometry returns one region's geometry as GeoJSON.
func (s *server) handleRegionGeometry(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid region name"})

		return
	}

	g, err := s.deps.Regions.Lookup(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, geojson.NewGeometry(g))
}

// handleIrregularRegions returns the irregular-settlements overlay, which
// may be empty when the secondary source was unavailable.
func (s *server) handleIrregularRegions(
	w http.ResponseWriter, _ *http.Request,
) {
	writeJSON(w, http.StatusOK, s.deps.Irregular.FeatureCollection())
}

type selectRegionRequest struct {
	Name string `json:"name"`
}

// handleSelectRegion emphasizes a region on the map (empty name clears).
func (s *server) handleSelectRegion(w http.ResponseWriter, r *http.Request) {
	var req selectRegionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid request body"})

		return
	}

	if err := s.deps.Views.SelectRegion(req.Name); err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"selected": req.Name})
}

// handleCatalog returns the theme catalog for cascading selects.
func (s *server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"themes": s.deps.Catalog.Themes(),
	})
}

// --- Report handlers ---

type createReportRequest struct {
	Region         string   `json:"region,omitempty"`
	Theme          string   `json:"theme"`
	Variable       string   `json:"variable"`
	ConditionState string   `json:"condition_state"`
	Comment        string   `json:"comment,omitempty"`
	Lat            float64  `json:"lat"`
	Lng            float64  `json:"lng"`
	Attachments    []string `json:"attachments,omitempty"`
}

// handleCreateReport files a new report for the authenticated delegate.
// Multipart requests carry photo files that are read and encoded before the
// draft is committed; aborting the request cancels the reads and nothing is
// stored.
func (s *server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	binding, ok := bindingFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized,
			errorResponse{"not authenticated"})

		return
	}

	var (
		draft report.Draft
		err   error
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		draft, err = s.draftFromMultipart(r)
	} else {
		draft, err = draftFromJSON(r)
	}

	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	if draft.Region == "" {
		draft.Region = binding.AssignedRegion
	}

	author := report.Author{
		Username:    binding.Username,
		DisplayName: binding.DisplayName,
		Region:      binding.AssignedRegion,
	}

	rec, err := s.deps.Reports.Create(r.Context(), author, draft)
	if err != nil {
		s.writeReportError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func draftFromJSON(r *http.Request) (report.Draft, error) {
	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return report.Draft{}, errors.New("invalid request body")
	}

	return report.Draft{
		Region:         req.Region,
		Theme:          req.Theme,
		Variable:       req.Variable,
		ConditionState: req.ConditionState,
		Comment:        req.Comment,
		Coordinate:     report.Coordinate{Lat: req.Lat, Lng: req.Lng},
		Attachments:    req.Attachments,
	}, nil
}

func (s *server) draftFromMultipart(r *http.Request) (report.Draft, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return report.Draft{}, errors.New("invalid multipart body")
	}

	lat, err := strconv.ParseFloat(r.FormValue("lat"), 64)
	if err != nil {
		return report.Draft{}, errors.New("invalid lat")
	}

	lng, err := strconv.ParseFloat(r.FormValue("lng"), 64)
	if err != nil {
		return report.Draft{}, errors.New("invalid lng")
	}

	draft := report.Draft{
		Region:         r.FormValue("region"),
		Theme:          r.FormValue("theme"),
		Variable:       r.FormValue("variable"),
		ConditionState: r.FormValue("condition_state"),
		Comment:        r.FormValue("comment"),
		Coordinate:     report.Coordinate{Lat: lat, Lng: lng},
	}

	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File["photos"]
	}

	inputs := make([]report.AttachmentInput, 0, len(files))

	for _, fh := range files {
		inputs = append(inputs, report.AttachmentInput{
			ContentType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	attachments, err := report.ReadAttachments(r.Context(), inputs)
	if err != nil {
		return report.Draft{}, errors.New("reading photo attachments failed")
	}

	draft.Attachments = attachments

	return draft, nil
}

// handleListReports returns reports, optionally filtered by region or to
// the authenticated delegate's own.
func (s *server) handleListReports(w http.ResponseWriter, r *http.Request) {
	var reports []report.Report

	switch {
	case r.URL.Query().Get("mine") == "true":
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized,
				errorResponse{"authentication required"})

			return
		}

		binding, ok := s.deps.Sessions.ActiveByToken(cookie.Value)
		if !ok {
			writeJSON(w, http.StatusUnauthorized,
				errorResponse{"invalid or replaced session"})

			return
		}

		reports = s.deps.Reports.ListByAuthor(binding.Username)
	case r.URL.Query().Get("region") != "":
		reports = s.deps.Reports.ListByRegion(r.URL.Query().Get("region"))
	default:
		reports = s.deps.Reports.ListAll()
	}

	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// handleResolveReport transitions a report to resolved.
func (s *server) handleResolveReport(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Reports.SetResolved(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeReportError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleDeleteReport removes a report.
func (s *server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Reports.Remove(
		r.Context(), chi.URLParam(r, "id"),
	); err != nil {
		s.writeReportError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleStats returns the coordinator's aggregate snapshot.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Views.Stats())
}

// handleExportCSV streams the flattened extract of the full collection.
func (s *server) handleExportCSV(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		`attachment; filename="reportes.csv"`)

	if err := export.WriteCSV(w, s.deps.Reports.ListAll()); err != nil {
		s.log.WithError(err).Error("CSV export failed")
	}
}

// writeReportError maps store errors onto HTTP statuses.
func (s *server) writeReportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrInvalidSelection),
		errors.Is(err, report.ErrRegionMismatch),
		errors.Is(err, report.ErrOutsideAssignedRegion):
		writeJSON(w, http.StatusUnprocessableEntity,
			errorResponse{err.Error()})
	case errors.Is(err, report.ErrReportNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{err.Error()})
	case errors.Is(err, geo.ErrUnknownRegion):
		writeJSON(w, http.StatusConflict, errorResponse{err.Error()})
	default:
		s.log.WithError(err).Error("Report operation failed")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"internal error"})
	}
}
