package inbound

import (
	"github.com/shandysiswandi/gootp/internal/otp/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/jwt"
	"github.com/shandysiswandi/gootp/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for code issuance, validation, and the
// admin policy.
type HTTPEndpoint struct {
	uc uc
}

// Generate issues a code for the authenticated user and delivers it over the
// requested channel.
func (h *HTTPEndpoint) Generate(r *router.Request) (any, error) {
	clm := jwt.GetAuth(r.Context())
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	var req GenerateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Issue(r.Context(), usecase.IssueInput{
		UserID:      clm.UserID,
		OperationID: req.OperationID,
		Channel:     req.Channel,
		Recipient:   req.Recipient,
	})
	if err != nil {
		return nil, err
	}

	return GenerateResponse{
		OperationID: resp.OperationID,
		Channel:     resp.Channel.String(),
		ExpiresAt:   resp.ExpiresAt,
	}, nil
}

// Validate consumes a code for the given operation.
func (h *HTTPEndpoint) Validate(r *router.Request) (any, error) {
	var req ValidateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Validate(r.Context(), usecase.ValidateInput{
		OperationID: req.OperationID,
		Code:        req.Code,
	})
	if err != nil {
		return nil, err
	}

	return ValidateResponse{Valid: resp.Valid}, nil
}

// Config returns the current code policy.
func (h *HTTPEndpoint) Config(r *router.Request) (any, error) {
	resp, err := h.uc.GetPolicy(r.Context())
	if err != nil {
		return nil, err
	}

	return ConfigResponse{
		Length:       resp.Length,
		ExpirationMs: resp.ExpirationMs,
		UpdatedAt:    resp.UpdatedAt,
	}, nil
}

// ConfigUpdate replaces the code policy.
func (h *HTTPEndpoint) ConfigUpdate(r *router.Request) (any, error) {
	var req ConfigUpdateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.UpdatePolicy(r.Context(), usecase.UpdatePolicyInput{
		Length:       req.Length,
		ExpirationMs: req.ExpirationMs,
	}); err != nil {
		return nil, err
	}

	return ConfigResponse{
		Length:       req.Length,
		ExpirationMs: req.ExpirationMs,
	}, nil
}
