package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/survey-editor/app"
	"github.com/mbolis/survey-editor/httpx"
	"github.com/mbolis/survey-editor/log"
	"github.com/mbolis/survey-editor/model"
	"github.com/mbolis/survey-editor/upstream"
)

// PreviewSurvey serves the live survey as respondents would see it,
// rebuilt into the nested editing shape so the preview page can reuse
// the editor's renderer.
func PreviewSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		src, err := app.Upstream.GetSurvey(r.Context(), surveyId)
		if err != nil {
			upstreamError(w, "preview.get_survey.upstream", err)
			return
		}

		loaded := model.Load(src)
		render.JSON(w, r, loaded.Working)
	}
}

func SubmitSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		var sub upstream.Submission
		err = render.DecodeJSON(r.Body, &sub)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		sub.SurveyID = surveyId

		err = app.Upstream.SubmitResponses(r.Context(), sub)
		if err != nil {
			upstreamError(w, "preview.submit.upstream", err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}
