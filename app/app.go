package app

import (
	"database/sql"

	"github.com/go-chi/oauth"

	"github.com/mbolis/survey-editor/config"
	"github.com/mbolis/survey-editor/session"
	"github.com/mbolis/survey-editor/upstream"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config

	Upstream *upstream.Client
	Sessions *session.Manager
}
