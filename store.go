package redisidentity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// UserStore maps the user aggregate and its secondary-key documents onto the
// document store. One store instance owns exactly one unit of work: every
// capability (claims, logins, lockout, e-mail, phone, two-factor) runs
// against the same session and commits atomically at Update.
//
// A store instance is not safe for concurrent use; open one per unit of work.
type UserStore struct {
	session     DocumentSession
	ownsSession bool
	ownedClient *redis.Client
	logger      *zap.Logger
}

// StoreOption configures a UserStore during construction.
type StoreOption func(*UserStore)

// WithLogger attaches a structured logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *UserStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionOwned controls whether Close releases the session. Stores own
// their session by default; pass false when several stores share one unit of
// work managed by the caller.
func WithSessionOwned(owned bool) StoreOption {
	return func(s *UserStore) {
		s.ownsSession = owned
	}
}

// NewUserStore builds a store on top of an explicit document session. The
// session is the unit of work for every operation on the store; it is never
// re-opened behind the caller's back.
func NewUserStore(session DocumentSession, opts ...StoreOption) (*UserStore, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: document session is required", ErrInvalidArgument)
	}

	store := &UserStore{
		session:     session,
		ownsSession: true,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// Open validates cfg, connects to Redis, and returns a store owning both the
// client and its session. Close releases both.
func Open(cfg Config, opts ...StoreOption) (*UserStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		PoolSize:    cfg.Redis.PoolSize,
		DialTimeout: cfg.Redis.DialTimeout,
	})

	store, err := NewUserStore(NewDocumentSession(rdb), opts...)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	store.ownedClient = rdb
	return store, nil
}

// Close releases the session when the store owns it, and the Redis client
// when the store opened it.
func (s *UserStore) Close() error {
	var sessionErr, clientErr error
	if s.ownsSession && s.session != nil {
		sessionErr = s.session.Close()
	}
	if s.ownedClient != nil {
		clientErr = s.ownedClient.Close()
	}
	return errors.Join(sessionErr, clientErr)
}

// Create persists the user immediately, using its derived key as the primary
// key. No lookup round-trip happens: a duplicate username in any casing
// loses the conditional put and surfaces as ErrDuplicateKey.
func (s *UserStore) Create(ctx context.Context, user *User) error {
	if user == nil {
		return fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	if user.UserName == "" {
		return fmt.Errorf("%w: cannot create a user without a user name", ErrInvalidState)
	}
	if user.ID == "" {
		key, err := UserKey(user.UserName)
		if err != nil {
			return err
		}
		user.ID = key
	}

	if err := s.session.Insert(ctx, user.ID, user); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			s.logger.Warn("user name already taken", zap.String("key", user.ID))
		}
		return err
	}

	s.logger.Debug("created user", zap.String("key", user.ID))
	return nil
}

// FindByID loads a user by document key. Absence is (nil, nil).
func (s *UserStore) FindByID(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	return s.loadUser(ctx, id)
}

// FindByUserName loads a user by username, case-insensitively. Absence is
// (nil, nil).
func (s *UserStore) FindByUserName(ctx context.Context, userName string) (*User, error) {
	key, err := UserKey(userName)
	if err != nil {
		return nil, err
	}
	return s.loadUser(ctx, key)
}

// FindByEmail resolves the e-mail secondary-key document to its owning user
// in one round trip. Absence of either is (nil, nil).
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	key, err := EmailKey(email)
	if err != nil {
		return nil, err
	}

	userEmail := &UserEmail{}
	user := &User{}
	found, ownerFound, err := s.session.LoadOwned(ctx, key, userEmail, user)
	if err != nil {
		return nil, err
	}
	if !found || !ownerFound {
		return nil, nil
	}
	return user, nil
}

// FindByLogin resolves an external login to its owning user. Matching is
// case-insensitive on both provider and provider key. Absence is (nil, nil).
func (s *UserStore) FindByLogin(ctx context.Context, loginProvider, providerKey string) (*User, error) {
	key, err := LoginKey(loginProvider, providerKey)
	if err != nil {
		return nil, err
	}

	login := &UserLogin{}
	user := &User{}
	found, ownerFound, err := s.session.LoadOwned(ctx, key, login, user)
	if err != nil {
		return nil, err
	}
	if !found || !ownerFound {
		return nil, nil
	}
	return user, nil
}

// Update flushes every pending in-memory mutation of this unit of work under
// optimistic concurrency. ErrConcurrencyConflict means another writer
// modified a tracked document since it was loaded; the conflict is never
// retried internally.
func (s *UserStore) Update(ctx context.Context, user *User) error {
	if user == nil {
		return fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}

	if err := s.session.SaveChanges(ctx); err != nil {
		if errors.Is(err, ErrConcurrencyConflict) {
			s.logger.Warn("concurrent modification detected", zap.String("key", user.ID))
		}
		return err
	}

	s.logger.Debug("flushed unit of work", zap.String("key", user.ID))
	return nil
}

// Delete removes the user aggregate. Secondary-key documents are left
// behind; see the package documentation for this documented gap.
func (s *UserStore) Delete(ctx context.Context, user *User) error {
	if user == nil {
		return fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	if user.ID == "" {
		return fmt.Errorf("%w: user has no id", ErrInvalidArgument)
	}

	s.session.Delete(user.ID)
	if err := s.session.SaveChanges(ctx); err != nil {
		return err
	}

	s.logger.Debug("deleted user", zap.String("key", user.ID))
	return nil
}

// Users returns a snapshot of every user document. The snapshot is not
// change-tracked. This scans the whole user namespace and is meant for
// administrative use, not request hot paths.
func (s *UserStore) Users(ctx context.Context) ([]*User, error) {
	var users []*User
	err := s.session.Query(ctx, userKeyPrefix, func(raw json.RawMessage) error {
		user := &User{}
		if err := json.Unmarshal(raw, user); err != nil {
			return fmt.Errorf("%w: corrupt user document", ErrStoreUnavailable)
		}
		users = append(users, user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *UserStore) loadUser(ctx context.Context, key string) (*User, error) {
	user := &User{}
	found, err := s.session.Load(ctx, key, user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return user, nil
}
