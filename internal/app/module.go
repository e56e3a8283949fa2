package app

import (
	"context"
	"log/slog"
	"os"

	"github.com/shandysiswandi/gootp/internal/identity"
	identityUC "github.com/shandysiswandi/gootp/internal/identity/usecase"
	"github.com/shandysiswandi/gootp/internal/otp"
	otpUC "github.com/shandysiswandi/gootp/internal/otp/usecase"
)

func (a *App) initModules() {
	otpModule, err := otp.New(otp.Dependency{
		Pool:       a.pool,
		Registry:   a.registry,
		Router:     a.router,
		Config:     a.config,
		Instrument: a.ins,
		UUID:       a.uuid,
		Clock:      a.clock,
		Validator:  a.validator,
	})
	if err != nil {
		slog.Error("failed to init module otp", "error", err)
		os.Exit(1)
	}

	a.reconciler = otpModule.Reconciler
	a.reconciler.Start()

	purge := identityUC.PurgeFunc(func(ctx context.Context, userID int64) (int64, error) {
		out, err := otpModule.Usecase.DeleteForUser(ctx, otpUC.DeleteForUserInput{UserID: userID})
		if err != nil {
			return 0, err
		}

		return out.Deleted, nil
	})

	if err := identity.New(identity.Dependency{
		Pool:       a.pool,
		Router:     a.router,
		Bcrypt:     a.bcrypt,
		JWT:        a.jwt,
		Validator:  a.validator,
		Instrument: a.ins,
		PurgeCodes: purge,
	}); err != nil {
		slog.Error("failed to init module identity", "error", err)
		os.Exit(1)
	}
}
