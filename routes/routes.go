package routes

import (
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"

	"github.com/mbolis/survey-editor/app"
	"github.com/mbolis/survey-editor/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	root.
		With(middlewares.CookieAuth(app.BearerServer), middlewares.Admin(app.TokenSecret)).
		Mount("/admin", servePrivateFiles("/admin"))
	root.Mount("/", servePublicFiles())

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Get(`/surveys/{id:^\d+$}`, PreviewSurvey(app))
	api.Post(`/surveys/{id:^\d+$}/submissions`, SubmitSurvey(app))

	api.Route("/admin/editor", func(r chi.Router) {
		r.Use(middlewares.Admin(app.TokenSecret))

		r.Post("/sessions", CreateSession(app))
		r.Post(`/surveys/{id:^\d+$}/sessions`, OpenSession(app))

		r.Route("/sessions/{sid}", func(r chi.Router) {
			r.Get("/", GetSession(app))
			r.Put("/tree", ReplaceTree(app))
			r.Post("/save", SaveSession(app))
			r.Post("/discard", DiscardSession(app))
			r.Delete("/", CloseSession(app))

			r.Delete(`/sections/{section:^\d+$}`, DeleteSection(app))
			r.Patch(`/sections/{section:^\d+$}/position`, ReorderSection(app))
			r.Delete(`/sections/{section:^\d+$}/entries/{entry:^\d+$}`, DeleteEntry(app))
			r.Patch(`/sections/{section:^\d+$}/entries/{entry:^\d+$}/type`, SetEntryType(app))
			r.Patch(`/sections/{section:^\d+$}/entries/{entry:^\d+$}/position`, ReorderEntry(app))
			r.Delete(`/sections/{section:^\d+$}/entries/{entry:^\d+$}/choices/{child:^\d+$}`, DeleteChoice(app))
			r.Patch(`/sections/{section:^\d+$}/entries/{entry:^\d+$}/choices/{child:^\d+$}/position`, ReorderChoice(app))
			r.Delete(`/sections/{section:^\d+$}/entries/{entry:^\d+$}/grid-rows/{child:^\d+$}`, DeleteRow(app))
			r.Patch(`/sections/{section:^\d+$}/entries/{entry:^\d+$}/grid-rows/{child:^\d+$}/position`, ReorderRow(app))
		})
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}

func servePublicFiles() http.Handler {
	return http.FileServer(http.Dir("public"))
}

func servePrivateFiles(path string) http.Handler {
	return http.StripPrefix(path, http.FileServer(http.Dir("private")))
}
