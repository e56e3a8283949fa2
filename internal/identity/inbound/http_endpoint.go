package inbound

import (
	"github.com/samber/lo"
	"github.com/shandysiswandi/gootp/internal/identity/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for registration, login, and the admin
// user directory.
type HTTPEndpoint struct {
	uc uc
}

// Register creates a new account.
func (h *HTTPEndpoint) Register(r *router.Request) (any, error) {
	var req RegisterRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Register(r.Context(), usecase.RegisterInput{
		Login:    req.Login,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return nil, err
	}

	return RegisterResponse{
		UserID: resp.UserID,
		Role:   resp.Role.String(),
	}, nil
}

// Login authenticates a user and returns an access token.
func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Login:    req.Login,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return LoginResponse{
		AccessToken: resp.AccessToken,
		Role:        resp.Role.String(),
	}, nil
}

// UserList returns the non-admin accounts.
func (h *HTTPEndpoint) UserList(r *router.Request) (any, error) {
	resp, err := h.uc.UserList(r.Context())
	if err != nil {
		return nil, err
	}

	return UserListResponse{
		Users: lo.Map(resp.Users, func(u usecase.UserListRow, _ int) UserResponse {
			return UserResponse{
				ID:        u.ID,
				Login:     u.Login,
				Role:      u.Role.String(),
				CreatedAt: u.CreatedAt,
			}
		}),
	}, nil
}

// UserDelete removes an account together with its code records.
func (h *HTTPEndpoint) UserDelete(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	if err := h.uc.UserDelete(r.Context(), usecase.UserDeleteInput{UserID: id}); err != nil {
		return nil, err
	}

	return nil, nil
}
