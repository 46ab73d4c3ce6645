package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maurya-kamminana/taskmaster/internal/models"
	"github.com/maurya-kamminana/taskmaster/internal/password"
	"github.com/maurya-kamminana/taskmaster/internal/session"
	"github.com/maurya-kamminana/taskmaster/internal/token"
)

type memUserStore struct {
	mu   sync.Mutex
	byID map[string]models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byID: map[string]models.User{}}
}

func (m *memUserStore) Create(_ context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	m.byID[user.ID] = user
	return user, nil
}

func (m *memUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (m *memUserStore) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == username || strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func newTestService(t *testing.T, mutate func(*token.Config)) (*Service, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := token.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	codec, err := token.NewCodec(cfg)
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := session.NewStore(client, time.Second)

	return NewService(newMemUserStore(), codec, store, password.NewHasher()), mr
}

func TestRegisterThenLoginSameSubject(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice", "a@x.com", "pw123-secret")
	require.NoError(t, err)
	require.NotEmpty(t, reg.User.ID)
	require.NotEmpty(t, reg.AccessToken)
	require.NotEmpty(t, reg.RefreshToken)

	login, err := svc.Login(ctx, "a@x.com", "pw123-secret")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)
}

func TestRegisterDuplicateIsGeneric(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "a@x.com", "pw123-secret")
	require.NoError(t, err)

	// Same username, different email.
	_, err = svc.Register(ctx, "alice", "other@x.com", "pw123-secret")
	assert.ErrorIs(t, err, ErrUserExists)

	// Same email, different username.
	_, err = svc.Register(ctx, "bob", "a@x.com", "pw123-secret")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "a@x.com", "pw123-secret")
	require.NoError(t, err)

	_, unknownErr := svc.Login(ctx, "nobody@x.com", "pw123-secret")
	_, wrongErr := svc.Login(ctx, "a@x.com", "wrong-secret")

	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr, wrongErr)
}

func TestRefreshRotates(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice", "a@x.com", "pw123-secret")
	require.NoError(t, err)

	renewed, err := svc.Refresh(ctx, reg.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, renewed.User.ID)
	assert.NotEqual(t, reg.RefreshToken, renewed.RefreshToken)

	// The consumed token still verifies cryptographically but must be
	// refused: rotation removed its store entry.
	_, err = svc.Refresh(ctx, reg.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// The replacement works.
	_, err = svc.Refresh(ctx, renewed.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshForgedToken(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	forger, err := token.NewCodec(token.Config{
		AccessSecret:  []byte("other-access"),
		RefreshSecret: []byte("other-refresh"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	forged, _, err := forger.IssueRefresh(token.Identity{SubjectID: "u-1"})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, forged)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefreshExpiredToken(t *testing.T) {
	svc, _ := newTestService(t, func(cfg *token.Config) {
		cfg.RefreshTTL = time.Nanosecond
	})
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice", "a@x.com", "pw123-secret")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = svc.Refresh(ctx, reg.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice", "a@x.com", "pw123-secret")
	require.NoError(t, err)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Refresh(ctx, reg.RefreshToken)
		}(i)
	}
	wg.Wait()

	var wins, replays int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, ErrTokenInvalid)
			replays++
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent refresh may succeed")
	assert.Equal(t, attempts-1, replays)
}

func TestLogout(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice", "a@x.com", "pw123-secret")
	require.NoError(t, err)

	removed, err := svc.Logout(ctx, reg.RefreshToken)
	require.NoError(t, err)
	assert.True(t, removed)

	// Idempotent: second logout reports nothing removed.
	removed, err = svc.Logout(ctx, reg.RefreshToken)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = svc.Refresh(ctx, reg.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// Garbage never reaches the store.
	removed, err = svc.Logout(ctx, "not-a-token")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRevokeAllSessions(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice", "a@x.com", "pw123-secret")
	require.NoError(t, err)
	login, err := svc.Login(ctx, "a@x.com", "pw123-secret")
	require.NoError(t, err)

	n, err := svc.RevokeAllSessions(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.Refresh(ctx, reg.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestStoreOutageIsNotAnAuthFailure(t *testing.T) {
	svc, mr := newTestService(t, nil)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice", "a@x.com", "pw123-secret")
	require.NoError(t, err)

	mr.Close()

	_, err = svc.Refresh(ctx, reg.RefreshToken)
	assert.ErrorIs(t, err, session.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.Login(ctx, "a@x.com", "pw123-secret")
	assert.ErrorIs(t, err, session.ErrStoreUnavailable)
}
