package inbound

import (
	"context"

	"github.com/shandysiswandi/gootp/internal/otp/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/router"
)

type uc interface {
	Issue(ctx context.Context, in usecase.IssueInput) (*usecase.IssueOutput, error)
	Validate(ctx context.Context, in usecase.ValidateInput) (*usecase.ValidateOutput, error)

	GetPolicy(ctx context.Context) (*usecase.GetPolicyOutput, error)
	UpdatePolicy(ctx context.Context, in usecase.UpdatePolicyInput) error
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Code lifecycle (need authenticated)
	r.POST("/api/v1/otp/generate", end.Generate)
	r.POST("/api/v1/otp/validate", end.Validate)

	// Policy administration (need authenticated & admin role)
	r.GET("/api/v1/admin/config", end.Config)
	r.PUT("/api/v1/admin/config", end.ConfigUpdate)
}
