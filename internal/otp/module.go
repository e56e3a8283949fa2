package otp

import (
	"github.com/shandysiswandi/gootp/internal/otp/delivery"
	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/otp/inbound"
	"github.com/shandysiswandi/gootp/internal/otp/outbound/db"
	"github.com/shandysiswandi/gootp/internal/otp/usecase"
	"github.com/shandysiswandi/gootp/internal/otp/worker"
	"github.com/shandysiswandi/gootp/internal/pkg/clock"
	"github.com/shandysiswandi/gootp/internal/pkg/config"
	"github.com/shandysiswandi/gootp/internal/pkg/dbpool"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/router"
	"github.com/shandysiswandi/gootp/internal/pkg/uid"
	"github.com/shandysiswandi/gootp/internal/pkg/validator"
)

type Dependency struct {
	Pool       *dbpool.Pool               `validate:"required"`
	Registry   *delivery.Registry         `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

// Module exposes what the rest of the application needs from the code
// engine: the usecase for cross-module calls and the reconciler for
// lifecycle management.
type Module struct {
	Usecase    *usecase.Usecase
	Reconciler *worker.Reconciler
}

func New(dep Dependency) (*Module, error) {
	if err := dep.Validator.Validate(dep); err != nil {
		return nil, err
	}

	dbCodes := db.NewDB(dep.Pool, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:     dbCodes,
		Users:      dbCodes,
		Registry:   dep.Registry,
		Validator:  dep.Validator,
		UUID:       dep.UUID,
		Clock:      dep.Clock,
		Instrument: dep.Instrument,
		DefaultPolicy: entity.Policy{
			Length:       dep.Config.GetInt("modules.otp.default_length"),
			ExpirationMs: dep.Config.GetInt("modules.otp.default_expiration_time_ms"),
		},
	})

	rec := worker.New(worker.Dependency{
		Sweeper:      uc,
		InitialDelay: dep.Config.GetSecond("modules.otp.reconcile_initial_delay_seconds"),
		Interval:     dep.Config.GetSecond("modules.otp.reconcile_interval_seconds"),
		StopGrace:    dep.Config.GetSecond("modules.otp.reconcile_stop_grace_seconds"),
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return &Module{Usecase: uc, Reconciler: rec}, nil
}
