package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/gootp/internal/otp/delivery"
	"github.com/shandysiswandi/gootp/internal/otp/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/goerror"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/jwt"
	"github.com/shandysiswandi/gootp/internal/pkg/validator"
)

type fakeRepo struct {
	mu     sync.Mutex
	nextID int64
	codes  map[int64]*entity.Code

	policy    *entity.Policy
	saveErr   error
	getErr    error
	updateErr error
	deleted   map[int64]int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		codes:   make(map[int64]*entity.Code),
		deleted: make(map[int64]int64),
	}
}

func (r *fakeRepo) SaveCode(_ context.Context, code entity.Code) (*entity.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saveErr != nil {
		return nil, r.saveErr
	}

	r.nextID++
	code.ID = r.nextID
	code.CreatedAt = time.Now()
	saved := code
	r.codes[code.ID] = &saved

	out := saved
	return &out, nil
}

func (r *fakeRepo) GetCodeByOperationAndValue(_ context.Context, operationID, value string) (*entity.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.getErr != nil {
		return nil, r.getErr
	}

	for _, code := range r.codes {
		if code.OperationID == operationID && code.Value == value {
			out := *code
			return &out, nil
		}
	}

	return nil, goerror.ErrNotFound
}

func (r *fakeRepo) UpdateCodeStatus(_ context.Context, id int64, to entity.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.updateErr != nil {
		return false, r.updateErr
	}

	code, ok := r.codes[id]
	if !ok || code.Status != entity.StatusActive {
		return false, nil
	}

	code.Status = to
	return true, nil
}

func (r *fakeRepo) MarkAllExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var marked int64
	for _, code := range r.codes {
		if code.Status == entity.StatusActive && code.ExpiresAt.Before(now) {
			code.Status = entity.StatusExpired
			marked++
		}
	}

	return marked, nil
}

func (r *fakeRepo) DeleteCodesByUser(_ context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, code := range r.codes {
		if code.UserID == userID {
			delete(r.codes, id)
			deleted++
		}
	}
	r.deleted[userID] = deleted

	return deleted, nil
}

func (r *fakeRepo) GetPolicy(_ context.Context, defaults entity.Policy) (*entity.Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.policy == nil {
		stored := defaults
		stored.UpdatedAt = time.Now()
		r.policy = &stored
	}

	out := *r.policy
	return &out, nil
}

func (r *fakeRepo) UpdatePolicy(_ context.Context, policy entity.Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	policy.UpdatedAt = time.Now()
	r.policy = &policy

	return nil
}

func (r *fakeRepo) statusOf(t *testing.T, id int64) entity.Status {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.codes[id]
	if !ok {
		t.Fatalf("no code with id %d", id)
	}

	return code.Status
}

type fakeUsers struct {
	exists bool
	err    error
}

func (u *fakeUsers) UserExists(context.Context, int64) (bool, error) {
	return u.exists, u.err
}

type fakeChannel struct {
	kind       entity.Channel
	deliverOK  bool
	sendErr    error
	mu         sync.Mutex
	sentCodes  []string
	recipients []string
}

func (c *fakeChannel) Kind() entity.Channel { return c.kind }

func (c *fakeChannel) CanDeliver(context.Context, string) bool { return c.deliverOK }

func (c *fakeChannel) Send(_ context.Context, recipient, code string) error {
	if c.sendErr != nil {
		return c.sendErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sentCodes = append(c.sentCodes, code)
	c.recipients = append(c.recipients, recipient)

	return nil
}

func (c *fakeChannel) Initialize(context.Context) error { return nil }

func (c *fakeChannel) Shutdown(context.Context) error { return nil }

type fakeRegistry struct {
	ch  delivery.Channel
	err error
}

func (r *fakeRegistry) Channel(context.Context, entity.Channel) (delivery.Channel, error) {
	return r.ch, r.err
}

type fakeStringID struct{ value string }

func (f fakeStringID) Generate() string { return f.value }

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestUsecase(t *testing.T, repo *fakeRepo, users *fakeUsers, reg *fakeRegistry) *Usecase {
	t.Helper()

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("unexpected error building validator: %v", err)
	}

	return New(Dependency{
		RepoDB:        repo,
		Users:         users,
		Registry:      reg,
		Validator:     v,
		UUID:          fakeStringID{value: "generated-op"},
		Clock:         fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		Instrument:    instrument.NewNoop(),
		DefaultPolicy: entity.Policy{Length: 6, ExpirationMs: 300_000},
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

func TestIssue(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		repo := newFakeRepo()
		ch := &fakeChannel{kind: entity.ChannelSMS, deliverOK: true}
		uc := newTestUsecase(t, repo, &fakeUsers{exists: true}, &fakeRegistry{ch: ch})

		// Act
		out, err := uc.Issue(context.Background(), IssueInput{
			UserID:      7,
			OperationID: "op-login",
			Channel:     "SMS",
			Recipient:   "+15551234567",
		})

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.OperationID != "op-login" {
			t.Fatalf("expected operation id kept, got %q", out.OperationID)
		}

		wantExpiry := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
		if !out.ExpiresAt.Equal(wantExpiry) {
			t.Fatalf("expected expiry %v, got %v", wantExpiry, out.ExpiresAt)
		}

		if len(ch.sentCodes) != 1 {
			t.Fatalf("expected one delivery, got %d", len(ch.sentCodes))
		}
		code := ch.sentCodes[0]
		if len(code) != 6 {
			t.Fatalf("expected a 6 digit code, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("expected only digits, got %q", code)
			}
		}

		if repo.statusOf(t, 1) != entity.StatusActive {
			t.Fatal("expected record to stay ACTIVE after successful delivery")
		}
	})

	t.Run("GeneratesOperationID", func(t *testing.T) {
		// Arrange
		repo := newFakeRepo()
		ch := &fakeChannel{kind: entity.ChannelSMS, deliverOK: true}
		uc := newTestUsecase(t, repo, &fakeUsers{exists: true}, &fakeRegistry{ch: ch})

		// Act
		out, err := uc.Issue(context.Background(), IssueInput{
			UserID:    7,
			Channel:   "SMS",
			Recipient: "+15551234567",
		})

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.OperationID != "generated-op" {
			t.Fatalf("expected generated operation id, got %q", out.OperationID)
		}
	})

	t.Run("UnknownChannel", func(t *testing.T) {
		// Arrange
		uc := newTestUsecase(t, newFakeRepo(), &fakeUsers{exists: true}, &fakeRegistry{})

		// Act
		_, err := uc.Issue(context.Background(), IssueInput{
			UserID:    7,
			Channel:   "PIGEON",
			Recipient: "+15551234567",
		})

		// Assert
		if errCode(t, err) != goerror.CodeInvalidInput {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})

	t.Run("UnknownUser", func(t *testing.T) {
		// Arrange
		uc := newTestUsecase(t, newFakeRepo(), &fakeUsers{exists: false}, &fakeRegistry{})

		// Act
		_, err := uc.Issue(context.Background(), IssueInput{
			UserID:    404,
			Channel:   "SMS",
			Recipient: "+15551234567",
		})

		// Assert
		if errCode(t, err) != goerror.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("UndeliverableRecipientExpiresRecord", func(t *testing.T) {
		// Arrange
		repo := newFakeRepo()
		ch := &fakeChannel{kind: entity.ChannelSMS, deliverOK: false}
		uc := newTestUsecase(t, repo, &fakeUsers{exists: true}, &fakeRegistry{ch: ch})

		// Act
		_, err := uc.Issue(context.Background(), IssueInput{
			UserID:    7,
			Channel:   "SMS",
			Recipient: "not-a-phone",
		})

		// Assert
		if errCode(t, err) != goerror.CodeInvalidInput {
			t.Fatalf("expected invalid input, got %v", err)
		}
		if repo.statusOf(t, 1) != entity.StatusExpired {
			t.Fatal("expected record EXPIRED after recipient rejection")
		}
	})

	t.Run("DeliveryFailureExpiresRecord", func(t *testing.T) {
		// Arrange
		repo := newFakeRepo()
		ch := &fakeChannel{kind: entity.ChannelSMS, deliverOK: true, sendErr: errors.New("gateway down")}
		uc := newTestUsecase(t, repo, &fakeUsers{exists: true}, &fakeRegistry{ch: ch})

		// Act
		_, err := uc.Issue(context.Background(), IssueInput{
			UserID:    7,
			Channel:   "SMS",
			Recipient: "+15551234567",
		})

		// Assert
		if errCode(t, err) != goerror.CodeDeliveryFailed {
			t.Fatalf("expected delivery failed, got %v", err)
		}
		if repo.statusOf(t, 1) != entity.StatusExpired {
			t.Fatal("expected record EXPIRED after failed delivery")
		}
	})
}

func issueCode(t *testing.T, uc *Usecase, ch *fakeChannel, operationID string) string {
	t.Helper()

	_, err := uc.Issue(context.Background(), IssueInput{
		UserID:      7,
		OperationID: operationID,
		Channel:     "SMS",
		Recipient:   "+15551234567",
	})
	if err != nil {
		t.Fatalf("unexpected error issuing code: %v", err)
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.sentCodes[len(ch.sentCodes)-1]
}

func TestValidate(t *testing.T) {
	t.Run("AcceptsOnce", func(t *testing.T) {
		// Arrange
		repo := newFakeRepo()
		ch := &fakeChannel{kind: entity.ChannelSMS, deliverOK: true}
		uc := newTestUsecase(t, repo, &fakeUsers{exists: true}, &fakeRegistry{ch: ch})
		code := issueCode(t, uc, ch, "op-1")

		// Act
		first, err := uc.Validate(context.Background(), ValidateInput{OperationID: "op-1", Code: code})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := uc.Validate(context.Background(), ValidateInput{OperationID: "op-1", Code: code})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Assert
		if !first.Valid {
			t.Fatal("expected first validation to pass")
		}
		if second.Valid {
			t.Fatal("expected second validation to fail")
		}
		if repo.statusOf(t, 1) != entity.StatusUsed {
			t.Fatal("expected record USED")
		}
	})

	t.Run("UnknownCode", func(t *testing.T) {
		// Arrange
		uc := newTestUsecase(t, newFakeRepo(), &fakeUsers{exists: true}, &fakeRegistry{})

		// Act
		out, err := uc.Validate(context.Background(), ValidateInput{OperationID: "op-x", Code: "000000"})

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Valid {
			t.Fatal("expected unknown code to be rejected")
		}
	})

	t.Run("WrongCodeValue", func(t *testing.T) {
		// Arrange
		repo := newFakeRepo()
		ch := &fakeChannel{kind: entity.ChannelSMS, deliverOK: true}
		uc := newTestUsecase(t, repo, &fakeUsers{exists: true}, &fakeRegistry{ch: ch})
		code := issueCode(t, uc, ch, "op-1")

		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		// Act
		out, err := uc.Validate(context.Background(), ValidateInput{OperationID: "op-1", Code: wrong})

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Valid {
			t.Fatal("expected mismatched code to be rejected")
		}
		if repo.statusOf(t, 1) != entity.StatusActive {
			t.Fatal("expected record to stay ACTIVE after a miss")
		}
	})

	t.Run("StaleRecordRetiredOnRead", func(t *testing.T) {
		// Arrange
		repo := newFakeRepo()
		ch := &fakeChannel{kind: entity.ChannelSMS, deliverOK: true}
		uc := newTestUsecase(t, repo, &fakeUsers{exists: true}, &fakeRegistry{ch: ch})
		code := issueCode(t, uc, ch, "op-1")

		repo.mu.Lock()
		repo.codes[1].ExpiresAt = time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
		repo.mu.Unlock()

		// Act
		out, err := uc.Validate(context.Background(), ValidateInput{OperationID: "op-1", Code: code})

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Valid {
			t.Fatal("expected stale code to be rejected")
		}
		if repo.statusOf(t, 1) != entity.StatusExpired {
			t.Fatal("expected stale record flipped to EXPIRED on read")
		}
	})

	t.Run("ConcurrentValidatorsOneWinner", func(t *testing.T) {
		// Arrange
		repo := newFakeRepo()
		ch := &fakeChannel{kind: entity.ChannelSMS, deliverOK: true}
		uc := newTestUsecase(t, repo, &fakeUsers{exists: true}, &fakeRegistry{ch: ch})
		code := issueCode(t, uc, ch, "op-1")

		// Act
		const validators = 16
		results := make(chan bool, validators)
		var wg sync.WaitGroup
		for i := 0; i < validators; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				out, err := uc.Validate(context.Background(), ValidateInput{OperationID: "op-1", Code: code})
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				results <- out.Valid
			}()
		}
		wg.Wait()
		close(results)

		// Assert
		var wins int
		for ok := range results {
			if ok {
				wins++
			}
		}
		if wins != 1 {
			t.Fatalf("expected exactly one winner, got %d", wins)
		}
	})
}

func TestReconcileExpired(t *testing.T) {
	// Arrange
	repo := newFakeRepo()
	ch := &fakeChannel{kind: entity.ChannelSMS, deliverOK: true}
	uc := newTestUsecase(t, repo, &fakeUsers{exists: true}, &fakeRegistry{ch: ch})

	issueCode(t, uc, ch, "op-live")
	issueCode(t, uc, ch, "op-stale")

	repo.mu.Lock()
	repo.codes[2].ExpiresAt = time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	repo.mu.Unlock()

	// Act
	out, err := uc.ReconcileExpired(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Marked != 1 {
		t.Fatalf("expected 1 record retired, got %d", out.Marked)
	}
	if repo.statusOf(t, 1) != entity.StatusActive {
		t.Fatal("expected live record untouched")
	}
	if repo.statusOf(t, 2) != entity.StatusExpired {
		t.Fatal("expected stale record EXPIRED")
	}

	// A second sweep finds nothing.
	again, err := uc.ReconcileExpired(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Marked != 0 {
		t.Fatalf("expected idempotent sweep, got %d", again.Marked)
	}
}

func TestDeleteForUser(t *testing.T) {
	// Arrange
	repo := newFakeRepo()
	ch := &fakeChannel{kind: entity.ChannelSMS, deliverOK: true}
	uc := newTestUsecase(t, repo, &fakeUsers{exists: true}, &fakeRegistry{ch: ch})

	issueCode(t, uc, ch, "op-1")
	issueCode(t, uc, ch, "op-2")

	// Act
	out, err := uc.DeleteForUser(context.Background(), DeleteForUserInput{UserID: 7})

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Deleted != 2 {
		t.Fatalf("expected 2 records removed, got %d", out.Deleted)
	}

	// Deleting again is a no-op.
	again, err := uc.DeleteForUser(context.Background(), DeleteForUserInput{UserID: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Deleted != 0 {
		t.Fatalf("expected no records on second delete, got %d", again.Deleted)
	}
}

func TestPolicy(t *testing.T) {
	t.Run("GetCreatesDefaults", func(t *testing.T) {
		// Arrange
		uc := newTestUsecase(t, newFakeRepo(), &fakeUsers{exists: true}, &fakeRegistry{})

		// Act
		out, err := uc.GetPolicy(adminContext())

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Length != 6 || out.ExpirationMs != 300_000 {
			t.Fatalf("expected defaults, got %+v", out)
		}
	})

	t.Run("RequiresAuthentication", func(t *testing.T) {
		// Arrange
		uc := newTestUsecase(t, newFakeRepo(), &fakeUsers{exists: true}, &fakeRegistry{})

		// Act
		_, err := uc.GetPolicy(context.Background())

		// Assert
		if errCode(t, err) != goerror.CodeUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	})

	t.Run("RequiresAdminRole", func(t *testing.T) {
		// Arrange
		uc := newTestUsecase(t, newFakeRepo(), &fakeUsers{exists: true}, &fakeRegistry{})
		ctx := jwt.SetAuth(context.Background(), jwt.Claims{UserID: 2, UserRole: "USER"})

		// Act
		_, err := uc.GetPolicy(ctx)

		// Assert
		if errCode(t, err) != goerror.CodeForbidden {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("UpdateRoundTrip", func(t *testing.T) {
		// Arrange
		repo := newFakeRepo()
		uc := newTestUsecase(t, repo, &fakeUsers{exists: true}, &fakeRegistry{})

		// Act
		err := uc.UpdatePolicy(adminContext(), UpdatePolicyInput{Length: 8, ExpirationMs: 120_000})

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out, err := uc.GetPolicy(adminContext())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Length != 8 || out.ExpirationMs != 120_000 {
			t.Fatalf("expected updated policy, got %+v", out)
		}
	})

	t.Run("UpdateOutOfBounds", func(t *testing.T) {
		// Arrange
		uc := newTestUsecase(t, newFakeRepo(), &fakeUsers{exists: true}, &fakeRegistry{})

		cases := []UpdatePolicyInput{
			{Length: 3, ExpirationMs: 300_000},
			{Length: 11, ExpirationMs: 300_000},
			{Length: 6, ExpirationMs: 59_999},
			{Length: 6, ExpirationMs: 3_600_001},
		}

		for _, in := range cases {
			// Act
			err := uc.UpdatePolicy(adminContext(), in)

			// Assert
			if errCode(t, err) != goerror.CodeInvalidInput {
				t.Fatalf("expected invalid input for %+v, got %v", in, err)
			}
		}
	})
}
