package app

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/gootp/internal/otp/delivery"
	"github.com/shandysiswandi/gootp/internal/otp/worker"
	"github.com/shandysiswandi/gootp/internal/pkg/clock"
	"github.com/shandysiswandi/gootp/internal/pkg/config"
	"github.com/shandysiswandi/gootp/internal/pkg/dbpool"
	"github.com/shandysiswandi/gootp/internal/pkg/goroutine"
	"github.com/shandysiswandi/gootp/internal/pkg/hash"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/jwt"
	"github.com/shandysiswandi/gootp/internal/pkg/mail"
	"github.com/shandysiswandi/gootp/internal/pkg/router"
	"github.com/shandysiswandi/gootp/internal/pkg/uid"
	"github.com/shandysiswandi/gootp/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	bcrypt    hash.Hash
	uuid      uid.StringID
	jwt       jwt.JWT

	// resources
	pool     *dbpool.Pool
	mail     mail.Mail
	registry *delivery.Registry

	// background jobs
	reconciler *worker.Reconciler

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initMail()
	app.initDelivery()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
