package identity

import (
	"github.com/shandysiswandi/gootp/internal/identity/inbound"
	"github.com/shandysiswandi/gootp/internal/identity/outbound/db"
	"github.com/shandysiswandi/gootp/internal/identity/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/dbpool"
	"github.com/shandysiswandi/gootp/internal/pkg/hash"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/jwt"
	"github.com/shandysiswandi/gootp/internal/pkg/router"
	"github.com/shandysiswandi/gootp/internal/pkg/validator"
)

type Dependency struct {
	Pool       *dbpool.Pool               `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Bcrypt     hash.Hash                  `validate:"required"`
	JWT        jwt.JWT                    `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	PurgeCodes usecase.PurgeFunc          `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	dbUsers := db.NewDB(dep.Pool, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:     dbUsers,
		PurgeCodes: dep.PurgeCodes,
		Bcrypt:     dep.Bcrypt,
		JWT:        dep.JWT,
		Validator:  dep.Validator,
		Instrument: dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
