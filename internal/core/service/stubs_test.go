package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/compupay/hr-backend/internal/core/domain"
	"github.com/compupay/hr-backend/internal/core/ports"
	"github.com/compupay/hr-backend/internal/core/query"
)

var discardLogger = zerolog.Nop()

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	byEmail  map[string]*domain.User
	seq      int
	lastList query.Descriptor
	listErr  error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byEmail: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := r.byEmail[email]
	if !ok || u.DeletedAt != nil {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string, _ query.Include) (*domain.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id && u.DeletedAt == nil {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	return err == nil, nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, exists := r.byEmail[user.Email]; exists {
		return nil, domain.ErrEmailTaken
	}
	r.seq++
	stored := cloneUser(user)
	stored.ID = fmt.Sprintf("u%d", r.seq)
	r.byEmail[stored.Email] = stored
	return cloneUser(stored), nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, email, hash string) error {
	u, ok := r.byEmail[email]
	if !ok || u.DeletedAt != nil {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *stubUserRepo) SoftDelete(_ context.Context, id string) error {
	for _, u := range r.byEmail {
		if u.ID == id && u.DeletedAt == nil {
			now := time.Now()
			u.DeletedAt = &now
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func (r *stubUserRepo) List(_ context.Context, d query.Descriptor) ([]*domain.User, int64, error) {
	r.lastList = d
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	var out []*domain.User
	for _, u := range r.byEmail {
		if u.DeletedAt == nil {
			out = append(out, cloneUser(u))
		}
	}
	return out, int64(len(out)), nil
}

type stubOtpRepo struct {
	records map[string]domain.Otp
}

func newStubOtpRepo() *stubOtpRepo {
	return &stubOtpRepo{records: make(map[string]domain.Otp)}
}

func (r *stubOtpRepo) Upsert(_ context.Context, otp *domain.Otp) error {
	r.records[otp.Email] = *otp
	return nil
}

func (r *stubOtpRepo) FindByEmail(_ context.Context, email string) (*domain.Otp, error) {
	otp, ok := r.records[email]
	if !ok {
		return nil, nil
	}
	return &otp, nil
}

func (r *stubOtpRepo) Delete(_ context.Context, email string) error {
	delete(r.records, email)
	return nil
}

// stubTx runs fn inline and counts invocations.
type stubTx struct {
	calls int
}

func (t *stubTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type recordingDelivery struct {
	mu   sync.Mutex
	sent []ports.MailMessage
}

func (d *recordingDelivery) Deliver(_ context.Context, msg ports.MailMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, msg)
}

func (d *recordingDelivery) last() ports.MailMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sent) == 0 {
		return ports.MailMessage{}
	}
	return d.sent[len(d.sent)-1]
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type authFixture struct {
	svc       *AuthService
	users     *stubUserRepo
	otps      *stubOtpRepo
	tx        *stubTx
	resetMail *recordingDelivery
	regMail   *recordingDelivery
	tokens    *TokenService
	clock     *fakeClock
}

func newAuthFixture() *authFixture {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	users := newStubUserRepo()
	otps := newStubOtpRepo()

	creds := NewCredentialStore(users, BcryptHasher{Cost: bcrypt.MinCost})
	creds.now = clock.Now
	otpStore := NewOtpStore(otps, DefaultOtpPolicy)
	otpStore.now = clock.Now
	tokens := NewTokenService("test-secret")
	tokens.now = clock.Now

	f := &authFixture{
		users:     users,
		otps:      otps,
		tx:        &stubTx{},
		resetMail: &recordingDelivery{},
		regMail:   &recordingDelivery{},
		tokens:    tokens,
		clock:     clock,
	}
	f.svc = NewAuthService(AuthDeps{
		Credentials:      creds,
		Otps:             otpStore,
		Tokens:           tokens,
		Tx:               f.tx,
		ResetMail:        f.resetMail,
		RegistrationMail: f.regMail,
		FromName:         "CompuPay App",
		Log:              discardLogger,
	})
	return f
}

func (f *authFixture) register(t *testing.T, email, password string) {
	t.Helper()
	err := f.svc.Register(context.Background(), ports.RegisterInput{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Password:  password,
		Role:      domain.RoleEmployee,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
}
