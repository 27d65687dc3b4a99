package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/survey-editor/app"
	"github.com/mbolis/survey-editor/diff"
	"github.com/mbolis/survey-editor/httpx"
	"github.com/mbolis/survey-editor/log"
	"github.com/mbolis/survey-editor/model"
	"github.com/mbolis/survey-editor/session"
	"github.com/mbolis/survey-editor/upstream"
)

func CreateSession(app app.App) http.HandlerFunc {
	type request struct {
		Name        string `json:"name"`
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		typ := model.SurveyType(req.Type)
		if req.Name == "" || !typ.Valid() {
			httpx.LogStatusMsg(w, http.StatusUnprocessableEntity, log.DebugLevel, "editor.create_session",
				"name and a valid type (BASELINE, ENDLINE, OTHER) are required")
			return
		}

		s, err := app.Sessions.Create(r.Context(), req.Name, typ, req.Description)
		if err != nil {
			upstreamError(w, "editor.create_session.upstream", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		renderSession(w, r, s)
	}
}

func OpenSession(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		s, err := app.Sessions.Open(r.Context(), surveyId)
		if err != nil {
			upstreamError(w, "editor.open_session.upstream", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		renderSession(w, r, s)
	}
}

func GetSession(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := findSession(app, w, r)
		if !ok {
			return
		}
		renderSession(w, r, s)
	}
}

// ReplaceTree swaps in the whole working tree as edited client-side. The
// snapshot stays server-synced state; nothing is persisted until save.
func ReplaceTree(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := findSession(app, w, r)
		if !ok {
			return
		}

		working := &model.Survey{}
		err := render.DecodeJSON(r.Body, working)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		s.Replace(working)
		app.Sessions.Persist(r.Context(), s)
		w.WriteHeader(http.StatusNoContent)
	}
}

func SaveSession(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := findSession(app, w, r)
		if !ok {
			return
		}

		result, err := s.Save(r.Context(), app.Upstream)
		if err != nil {
			merr, isValidation := err.(*multierror.Error)
			if !isValidation {
				// the survey-level update failed upstream before any tree work
				upstreamError(w, "editor.save_session.upstream", err)
				return
			}
			var messages []string
			for _, e := range merr.Errors {
				messages = append(messages, e.Error())
			}
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, map[string]any{
				"errors": messages,
			})
			return
		}

		app.Sessions.Persist(r.Context(), s)

		if result.NoChanges {
			render.JSON(w, r, map[string]any{
				"message": result.Summary,
			})
			return
		}

		var failures []map[string]any
		for _, f := range result.Report.Failed {
			failures = append(failures, map[string]any{
				"operation": f.Op.String(),
				"error":     f.Err.Error(),
			})
		}
		status := http.StatusOK
		if len(failures) > 0 {
			status = http.StatusMultiStatus
		}
		w.WriteHeader(status)
		render.JSON(w, r, map[string]any{
			"message":   result.Summary,
			"succeeded": len(result.Report.Succeeded),
			"failed":    failures,
		})
	}
}

func DiscardSession(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := findSession(app, w, r)
		if !ok {
			return
		}
		s.Discard()
		app.Sessions.Persist(r.Context(), s)
		renderSession(w, r, s)
	}
}

func CloseSession(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app.Sessions.Close(r.Context(), chi.URLParam(r, "sid"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteSection(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := findSession(app, w, r)
		if !ok {
			return
		}
		index, ok := urlIndex(w, r, "section")
		if !ok {
			return
		}

		err := s.DeleteSection(r.Context(), app.Upstream, index)
		if !actionOutcome(app, w, r, s, "editor.delete_section", err) {
			return
		}
	}
}

func DeleteEntry(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, path, ok := sessionEntryPath(app, w, r)
		if !ok {
			return
		}
		err := s.DeleteEntry(r.Context(), app.Upstream, path)
		if !actionOutcome(app, w, r, s, "editor.delete_entry", err) {
			return
		}
	}
}

func DeleteChoice(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, path, ok := sessionChildPath(app, w, r)
		if !ok {
			return
		}
		err := s.DeleteChoice(r.Context(), app.Upstream, path)
		if !actionOutcome(app, w, r, s, "editor.delete_choice", err) {
			return
		}
	}
}

func DeleteRow(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, path, ok := sessionChildPath(app, w, r)
		if !ok {
			return
		}
		err := s.DeleteRow(r.Context(), app.Upstream, path)
		if !actionOutcome(app, w, r, s, "editor.delete_row", err) {
			return
		}
	}
}

func ReorderSection(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := findSession(app, w, r)
		if !ok {
			return
		}
		index, ok := urlIndex(w, r, "section")
		if !ok {
			return
		}
		to, ok := targetPosition(w, r)
		if !ok {
			return
		}
		err := s.ReorderSection(r.Context(), app.Upstream, index, to)
		if !actionOutcome(app, w, r, s, "editor.reorder_section", err) {
			return
		}
	}
}

func ReorderEntry(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, path, ok := sessionEntryPath(app, w, r)
		if !ok {
			return
		}
		to, ok := targetPosition(w, r)
		if !ok {
			return
		}
		err := s.ReorderEntry(r.Context(), app.Upstream, path, to)
		if !actionOutcome(app, w, r, s, "editor.reorder_entry", err) {
			return
		}
	}
}

func ReorderChoice(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, path, ok := sessionChildPath(app, w, r)
		if !ok {
			return
		}
		to, ok := targetPosition(w, r)
		if !ok {
			return
		}
		err := s.ReorderChoice(r.Context(), app.Upstream, path, to)
		if !actionOutcome(app, w, r, s, "editor.reorder_choice", err) {
			return
		}
	}
}

func ReorderRow(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, path, ok := sessionChildPath(app, w, r)
		if !ok {
			return
		}
		to, ok := targetPosition(w, r)
		if !ok {
			return
		}
		err := s.ReorderRow(r.Context(), app.Upstream, path, to)
		if !actionOutcome(app, w, r, s, "editor.reorder_row", err) {
			return
		}
	}
}

func SetEntryType(app app.App) http.HandlerFunc {
	type request struct {
		Type string `json:"type"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		s, path, ok := sessionEntryPath(app, w, r)
		if !ok {
			return
		}

		var req request
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = s.SetEntryType(path, model.EntryType(req.Type))
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusUnprocessableEntity, log.DebugLevel, "editor.set_entry_type", "%s", err)
			return
		}
		app.Sessions.Persist(r.Context(), s)
		w.WriteHeader(http.StatusNoContent)
	}
}

func findSession(app app.App, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sid := chi.URLParam(r, "sid")
	s, ok := app.Sessions.Get(r.Context(), sid)
	if !ok {
		httpx.LogNotFound(w, "editor.get_session", sid)
		return nil, false
	}
	return s, true
}

func sessionEntryPath(app app.App, w http.ResponseWriter, r *http.Request) (*session.Session, diff.Path, bool) {
	s, ok := findSession(app, w, r)
	if !ok {
		return nil, diff.Path{}, false
	}
	si, ok := urlIndex(w, r, "section")
	if !ok {
		return nil, diff.Path{}, false
	}
	ei, ok := urlIndex(w, r, "entry")
	if !ok {
		return nil, diff.Path{}, false
	}
	return s, diff.EntryPath(si, ei), true
}

func sessionChildPath(app app.App, w http.ResponseWriter, r *http.Request) (*session.Session, diff.Path, bool) {
	s, path, ok := sessionEntryPath(app, w, r)
	if !ok {
		return nil, diff.Path{}, false
	}
	ci, ok := urlIndex(w, r, "child")
	if !ok {
		return nil, diff.Path{}, false
	}
	return s, diff.ChildPath(path.Section, path.Entry, ci), true
}

func targetPosition(w http.ResponseWriter, r *http.Request) (int, bool) {
	var req struct {
		To int `json:"to"`
	}
	err := render.DecodeJSON(r.Body, &req)
	if err != nil {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
		return 0, false
	}
	return req.To, true
}

func urlIndex(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param."+name)
		return 0, false
	}
	return i, true
}

func actionOutcome(app app.App, w http.ResponseWriter, r *http.Request, s *session.Session, code string, err error) bool {
	switch {
	case err == nil:
		app.Sessions.Persist(r.Context(), s)
		w.WriteHeader(http.StatusNoContent)
		return true
	case session.IsNotFound(err):
		httpx.LogNotFound(w, code, r.URL.Path)
		return false
	default:
		upstreamError(w, code+".upstream", err)
		return false
	}
}

func renderSession(w http.ResponseWriter, r *http.Request, s *session.Session) {
	working, orphans := s.View()
	render.JSON(w, r, map[string]any{
		"id":      s.ID,
		"survey":  working,
		"orphans": orphans,
	})
}

// upstreamError relays the backend's status for API errors, 502 otherwise.
func upstreamError(w http.ResponseWriter, code string, err error) {
	if apiErr, ok := upstream.AsAPIError(err); ok {
		httpx.LogStatusMsg(w, apiErr.Status, log.WarnLevel, code, "%s", apiErr.Message)
		return
	}
	httpx.LogStatus(w, http.StatusBadGateway, log.ErrorLevel, code)
	log.Errorf("%s: %s", code, err)
}
