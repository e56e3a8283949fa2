package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/gootp/internal/identity/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/jwt"
	"github.com/shandysiswandi/gootp/internal/pkg/validator"
)

type fakeRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*entity.User
	hashes map[string]string

	deleteCalls []int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:  make(map[int64]*entity.User),
		hashes: make(map[string]string),
	}
}

func (r *fakeRepo) CreateUser(_ context.Context, login, passwordHash string, role entity.Role) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Login == login {
			return nil, goerror.ErrConflict
		}
	}

	r.nextID++
	user := &entity.User{
		ID:        r.nextID,
		Login:     login,
		Role:      role,
		CreatedAt: time.Now(),
	}
	r.users[user.ID] = user
	r.hashes[login] = passwordHash

	out := *user
	return &out, nil
}

func (r *fakeRepo) GetUserByLogin(_ context.Context, login string) (*entity.UserCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Login == login {
			return &entity.UserCredential{
				ID:           u.ID,
				Login:        u.Login,
				PasswordHash: r.hashes[login],
				Role:         u.Role,
			}, nil
		}
	}

	return nil, goerror.ErrNotFound
}

func (r *fakeRepo) GetUserByID(_ context.Context, id int64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}

	out := *u
	return &out, nil
}

func (r *fakeRepo) ListUsersExcludingRole(_ context.Context, role entity.Role) ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var users []entity.User
	for _, u := range r.users {
		if u.Role != role {
			users = append(users, *u)
		}
	}

	return users, nil
}

func (r *fakeRepo) RoleExists(_ context.Context, role entity.Role) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Role == role {
			return true, nil
		}
	}

	return false, nil
}

func (r *fakeRepo) DeleteUser(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleteCalls = append(r.deleteCalls, id)

	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)

	return true, nil
}

// fakeHash reverses the plaintext so Verify can recompute it without bcrypt.
type fakeHash struct{}

func (fakeHash) Hash(plaintext string) ([]byte, error) {
	return []byte("hashed:" + plaintext), nil
}

func (fakeHash) Verify(hashed, plaintext string) bool {
	return hashed == "hashed:"+plaintext
}

type fakeJWT struct {
	token string
	err   error
}

func (j fakeJWT) Generate(int64, string, string) (string, error) {
	return j.token, j.err
}

func (j fakeJWT) Verify(string) (jwt.Claims, error) {
	return jwt.Claims{}, nil
}

type purgeRecorder struct {
	mu    sync.Mutex
	calls []int64
	count int64
	err   error
}

func (p *purgeRecorder) purge(_ context.Context, userID int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, userID)
	return p.count, p.err
}

func newTestUsecase(t *testing.T, repo *fakeRepo, purge PurgeFunc) *Usecase {
	t.Helper()

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("unexpected error building validator: %v", err)
	}

	return New(Dependency{
		RepoDB:     repo,
		PurgeCodes: purge,
		Bcrypt:     fakeHash{},
		JWT:        fakeJWT{token: "signed-token"},
		Validator:  v,
		Instrument: instrument.NewNoop(),
	})
}

func errCode(t *testing.T, err error) goerror.Code {
	t.Helper()

	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected a structured error, got %v", err)
	}

	return gerr.Code()
}

func adminContext() context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{UserID: 1, UserRole: "ADMIN"})
}

const validPassword = "Sup3r-Secret-Pass"

func TestRegister(t *testing.T) {
	t.Run("DefaultsToUserRole", func(t *testing.T) {
		// Arrange
		repo := newFakeRepo()
		uc := newTestUsecase(t, repo, nil)

		// Act
		out, err := uc.Register(context.Background(), RegisterInput{
			Login:    "alice",
			Password: validPassword,
		})

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Role != entity.RoleUser {
			t.Fatalf("expected USER role, got %q", out.Role)
		}
	})

	t.Run("FirstAdminAllowed", func(t *testing.T) {
		// Arrange
		uc := newTestUsecase(t, newFakeRepo(), nil)

		// Act
		out, err := uc.Register(context.Background(), RegisterInput{
			Login:    "root",
			Password: validPassword,
			Role:     "ADMIN",
		})

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Role != entity.RoleAdmin {
			t.Fatalf("expected ADMIN role, got %q", out.Role)
		}
	})

	t.Run("SecondAdminRejected", func(t *testing.T) {
		// Arrange
		uc := newTestUsecase(t, newFakeRepo(), nil)
		if _, err := uc.Register(context.Background(), RegisterInput{
			Login: "root", Password: validPassword, Role: "ADMIN",
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Act
		_, err := uc.Register(context.Background(), RegisterInput{
			Login: "root2", Password: validPassword, Role: "ADMIN",
		})

		// Assert
		if errCode(t, err) != goerror.CodeConflict {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("DuplicateLoginRejected", func(t *testing.T) {
		// Arrange
		uc := newTestUsecase(t, newFakeRepo(), nil)
		if _, err := uc.Register(context.Background(), RegisterInput{
			Login: "alice", Password: validPassword,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Act
		_, err := uc.Register(context.Background(), RegisterInput{
			Login: "alice", Password: validPassword,
		})

		// Assert
		if errCode(t, err) != goerror.CodeConflict {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("WeakPasswordRejected", func(t *testing.T) {
		// Arrange
		uc := newTestUsecase(t, newFakeRepo(), nil)

		// Act
		_, err := uc.Register(context.Background(), RegisterInput{
			Login:    "alice",
			Password: "short",
		})

		// Assert
		if errCode(t, err) != goerror.CodeInvalidInput {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})
}

func TestLogin(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		uc := newTestUsecase(t, newFakeRepo(), nil)
		if _, err := uc.Register(context.Background(), RegisterInput{
			Login: "alice", Password: validPassword,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Act
		out, err := uc.Login(context.Background(), LoginInput{Login: "alice", Password: validPassword})

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.AccessToken != "signed-token" {
			t.Fatalf("unexpected token %q", out.AccessToken)
		}
		if out.Role != entity.RoleUser {
			t.Fatalf("unexpected role %q", out.Role)
		}
	})

	t.Run("UnknownLogin", func(t *testing.T) {
		// Arrange
		uc := newTestUsecase(t, newFakeRepo(), nil)

		// Act
		_, err := uc.Login(context.Background(), LoginInput{Login: "ghost", Password: validPassword})

		// Assert
		if errCode(t, err) != goerror.CodeUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		// Arrange
		uc := newTestUsecase(t, newFakeRepo(), nil)
		if _, err := uc.Register(context.Background(), RegisterInput{
			Login: "alice", Password: validPassword,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Act
		_, err := uc.Login(context.Background(), LoginInput{Login: "alice", Password: "Wrong-Pass-123"})

		// Assert
		if errCode(t, err) != goerror.CodeUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})
}

func TestUserList(t *testing.T) {
	t.Run("ExcludesAdmin", func(t *testing.T) {
		// Arrange
		uc := newTestUsecase(t, newFakeRepo(), nil)
		for _, in := range []RegisterInput{
			{Login: "root", Password: validPassword, Role: "ADMIN"},
			{Login: "alice", Password: validPassword},
			{Login: "bob", Password: validPassword},
		} {
			if _, err := uc.Register(context.Background(), in); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		// Act
		out, err := uc.UserList(adminContext())

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out.Users) != 2 {
			t.Fatalf("expected 2 users, got %d", len(out.Users))
		}
		for _, row := range out.Users {
			if row.Role == entity.RoleAdmin {
				t.Fatalf("expected admin excluded, got %+v", row)
			}
		}
	})

	t.Run("RequiresAdmin", func(t *testing.T) {
		// Arrange
		uc := newTestUsecase(t, newFakeRepo(), nil)
		ctx := jwt.SetAuth(context.Background(), jwt.Claims{UserID: 2, UserRole: "USER"})

		// Act
		_, err := uc.UserList(ctx)

		// Assert
		if errCode(t, err) != goerror.CodeForbidden {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})
}

func TestUserDelete(t *testing.T) {
	t.Run("PurgesCodesBeforeAccount", func(t *testing.T) {
		// Arrange
		repo := newFakeRepo()
		purge := &purgeRecorder{count: 3}
		uc := newTestUsecase(t, repo, purge.purge)

		out, err := uc.Register(context.Background(), RegisterInput{Login: "alice", Password: validPassword})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Act
		err = uc.UserDelete(adminContext(), UserDeleteInput{UserID: out.UserID})

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(purge.calls) != 1 || purge.calls[0] != out.UserID {
			t.Fatalf("expected one purge for user %d, got %v", out.UserID, purge.calls)
		}
		if len(repo.deleteCalls) != 1 {
			t.Fatalf("expected one delete, got %v", repo.deleteCalls)
		}
		if _, err := repo.GetUserByID(context.Background(), out.UserID); !errors.Is(err, goerror.ErrNotFound) {
			t.Fatal("expected account removed")
		}
	})

	t.Run("PurgeFailureKeepsAccount", func(t *testing.T) {
		// Arrange
		repo := newFakeRepo()
		purge := &purgeRecorder{err: errors.New("storage down")}
		uc := newTestUsecase(t, repo, purge.purge)

		out, err := uc.Register(context.Background(), RegisterInput{Login: "alice", Password: validPassword})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Act
		err = uc.UserDelete(adminContext(), UserDeleteInput{UserID: out.UserID})

		// Assert
		if err == nil {
			t.Fatal("expected purge failure to surface")
		}
		if len(repo.deleteCalls) != 0 {
			t.Fatal("expected account untouched after purge failure")
		}
	})

	t.Run("RefusesAdminAccount", func(t *testing.T) {
		// Arrange
		purge := &purgeRecorder{}
		uc := newTestUsecase(t, newFakeRepo(), purge.purge)

		out, err := uc.Register(context.Background(), RegisterInput{
			Login: "root", Password: validPassword, Role: "ADMIN",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Act
		err = uc.UserDelete(adminContext(), UserDeleteInput{UserID: out.UserID})

		// Assert
		if errCode(t, err) != goerror.CodeForbidden {
			t.Fatalf("expected forbidden, got %v", err)
		}
		if len(purge.calls) != 0 {
			t.Fatal("expected no purge for refused delete")
		}
	})

	t.Run("UnknownUser", func(t *testing.T) {
		// Arrange
		uc := newTestUsecase(t, newFakeRepo(), (&purgeRecorder{}).purge)

		// Act
		err := uc.UserDelete(adminContext(), UserDeleteInput{UserID: 404})

		// Assert
		if errCode(t, err) != goerror.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("RequiresAuthentication", func(t *testing.T) {
		// Arrange
		uc := newTestUsecase(t, newFakeRepo(), (&purgeRecorder{}).purge)

		// Act
		err := uc.UserDelete(context.Background(), UserDeleteInput{UserID: 1})

		// Assert
		if errCode(t, err) != goerror.CodeUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})
}
