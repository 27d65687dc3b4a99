package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/mbolis/survey-editor/app"
	"github.com/mbolis/survey-editor/model"
	"github.com/mbolis/survey-editor/session"
	"github.com/mbolis/survey-editor/upstream"
)

// backendCall is one request the fake survey backend received.
type backendCall struct {
	method string
	path   string
	query  string
}

func newEditorApp(t *testing.T, respond func(r *http.Request) (int, string)) (app.App, *[]backendCall) {
	t.Helper()
	calls := &[]backendCall{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls = append(*calls, backendCall{r.Method, r.URL.Path, r.URL.RawQuery})
		status, body := respond(r)
		if strings.HasPrefix(body, "{") {
			w.Header().Set("Content-Type", "application/json")
		} else {
			w.Header().Set("Content-Type", "text/plain")
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client := upstream.NewClient(srv.URL, upstream.StaticToken("secret"))
	return app.App{
		Upstream: client,
		Sessions: session.NewManager(client, nil),
	}, calls
}

func sessionRequest(method, body string, params map[string]string) *http.Request {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, "/", rd)
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestSaveRelaysUpstreamStatus(t *testing.T) {
	a, _ := newEditorApp(t, func(r *http.Request) (int, string) {
		if r.Method == http.MethodPost && r.URL.Path == "/v2/surveys" {
			return http.StatusCreated, `{"id": 1}`
		}
		return http.StatusConflict, `{"code": "survey.locked", "message": "survey is locked"}`
	})
	s, err := a.Sessions.Create(context.Background(), "training", model.SurveyBaseline, "")
	if err != nil {
		t.Fatal(err)
	}
	// a survey-level edit forces the update call, which the backend rejects
	s.Working.Name = "renamed"

	w := httptest.NewRecorder()
	SaveSession(a)(w, sessionRequest(http.MethodPost, "", map[string]string{"sid": s.ID}))
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want the backend's 409 relayed", w.Code)
	}
}

func TestSaveListsValidationErrors(t *testing.T) {
	a, calls := newEditorApp(t, func(r *http.Request) (int, string) {
		return http.StatusCreated, `{"id": 1}`
	})
	s, err := a.Sessions.Create(context.Background(), "training", model.SurveyBaseline, "")
	if err != nil {
		t.Fatal(err)
	}
	s.Working.Sections = []*model.Section{{LocalID: model.NewLocalID(), Title: ""}}

	w := httptest.NewRecorder()
	SaveSession(a)(w, sessionRequest(http.MethodPost, "", map[string]string{"sid": s.ID}))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Errors) == 0 {
		t.Error("violation list missing from the response")
	}
	if len(*calls) != 1 {
		t.Errorf("backend calls = %v, validation must abort before the network", *calls)
	}
}

func TestReorderEntryRoute(t *testing.T) {
	a, calls := newEditorApp(t, func(r *http.Request) (int, string) {
		if r.Method == http.MethodPost && r.URL.Path == "/v2/surveys" {
			return http.StatusCreated, `{"id": 1}`
		}
		return http.StatusOK, `{"message": "ok"}`
	})
	s, err := a.Sessions.Create(context.Background(), "training", model.SurveyBaseline, "")
	if err != nil {
		t.Fatal(err)
	}
	s.Replace(&model.Survey{
		Name: "training", Type: model.SurveyBaseline,
		Sections: []*model.Section{{
			LocalID: model.NewLocalID(), ServerID: 10, Title: "intro", Order: 1,
			Entries: []*model.Entry{
				{LocalID: model.NewLocalID(), ServerID: 100, Text: "one", Type: model.EntryText, Order: 1},
				{LocalID: model.NewLocalID(), ServerID: 101, Text: "two", Type: model.EntryText, Order: 2},
			},
		}},
	})

	w := httptest.NewRecorder()
	ReorderEntry(a)(w, sessionRequest(http.MethodPatch, `{"to": 0}`,
		map[string]string{"sid": s.ID, "section": "0", "entry": "1"}))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}

	last := (*calls)[len(*calls)-1]
	if last.method != http.MethodPatch || last.path != "/v2/survey-entries/101/reorder" || last.query != "newPosition=0" {
		t.Errorf("backend call = %+v", last)
	}
	working, _ := s.View()
	if working.Sections[0].Entries[0].ServerID != 101 {
		t.Error("entry not moved in the working tree")
	}
}
