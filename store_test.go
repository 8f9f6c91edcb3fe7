package redisidentity

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// newTestStore opens a fresh store, its own unit of work, against rdb.
func newTestStore(t *testing.T, rdb *redis.Client) *UserStore {
	t.Helper()

	store, err := NewUserStore(NewDocumentSession(rdb))
	if err != nil {
		t.Fatalf("NewUserStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustCreateUser(t *testing.T, store *UserStore, userName string) *User {
	t.Helper()

	user, err := NewUser(userName)
	if err != nil {
		t.Fatalf("NewUser(%q) failed: %v", userName, err)
	}
	if err := store.Create(context.Background(), user); err != nil {
		t.Fatalf("Create(%q) failed: %v", userName, err)
	}
	return user
}

func TestCreateAndFindByUserName(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := newTestStore(t, rdb)
	ctx := context.Background()

	created := mustCreateUser(t, store, "Tugberk")

	found, err := newTestStore(t, rdb).FindByUserName(ctx, "TUGBERK")
	if err != nil {
		t.Fatalf("FindByUserName failed: %v", err)
	}
	if found == nil {
		t.Fatal("expected a user for a case-insensitive match")
	}
	if found.UserName != "Tugberk" {
		t.Fatalf("expected original casing preserved, got %q", found.UserName)
	}
	if found.ID != created.ID {
		t.Fatalf("expected id %q, got %q", created.ID, found.ID)
	}
	if found.SecurityStamp == "" {
		t.Fatal("expected a security stamp on the created user")
	}
}

func TestFindMissingUserIsNotAnError(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := newTestStore(t, rdb)
	ctx := context.Background()

	mustCreateUser(t, store, "Tugberk")

	user, err := store.FindByUserName(ctx, "Tugberk2")
	if err != nil {
		t.Fatalf("FindByUserName failed: %v", err)
	}
	if user != nil {
		t.Fatal("expected (nil, nil) for a missing user")
	}

	user, err = store.FindByID(ctx, "idu:nosuchuser")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if user != nil {
		t.Fatal("expected (nil, nil) for a missing id")
	}
}

func TestCreateDuplicateUserName(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	mustCreateUser(t, newTestStore(t, rdb), "Tugberk")

	dup, err := NewUser("tugberk")
	if err != nil {
		t.Fatalf("NewUser failed: %v", err)
	}
	err = newTestStore(t, rdb).Create(ctx, dup)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey for a duplicate user name, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := newTestStore(t, rdb)
	ctx := context.Background()

	if err := store.Create(ctx, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for nil user, got %v", err)
	}
	if err := store.Create(ctx, &User{}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for a user without a name, got %v", err)
	}
}

func TestUpdatePersistsDeferredChanges(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	mustCreateUser(t, newTestStore(t, rdb), "Tugberk")

	store := newTestStore(t, rdb)
	user, err := store.FindByUserName(ctx, "Tugberk")
	if err != nil || user == nil {
		t.Fatalf("FindByUserName failed: user=%v err=%v", user, err)
	}
	if err := store.SetPasswordHash(user, "hash-value"); err != nil {
		t.Fatalf("SetPasswordHash failed: %v", err)
	}
	if err := store.Update(ctx, user); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reloaded, err := newTestStore(t, rdb).FindByUserName(ctx, "Tugberk")
	if err != nil || reloaded == nil {
		t.Fatalf("reload failed: user=%v err=%v", reloaded, err)
	}
	if reloaded.PasswordHash != "hash-value" {
		t.Fatalf("expected persisted password hash, got %q", reloaded.PasswordHash)
	}
}

func TestDeleteUser(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	mustCreateUser(t, newTestStore(t, rdb), "Tugberk")

	store := newTestStore(t, rdb)
	user, err := store.FindByUserName(ctx, "Tugberk")
	if err != nil || user == nil {
		t.Fatalf("FindByUserName failed: user=%v err=%v", user, err)
	}
	if err := store.Delete(ctx, user); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	gone, err := newTestStore(t, rdb).FindByUserName(ctx, "Tugberk")
	if err != nil {
		t.Fatalf("FindByUserName after delete failed: %v", err)
	}
	if gone != nil {
		t.Fatal("expected the user to be gone")
	}
}

func TestUsersReturnsOnlyUserDocuments(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	store := newTestStore(t, rdb)
	mustCreateUser(t, store, "alice")
	bob := mustCreateUser(t, store, "bob")
	mustCreateUser(t, store, "carol")
	if err := store.SetEmail(ctx, bob, "bob@example.com"); err != nil {
		t.Fatalf("SetEmail failed: %v", err)
	}

	users, err := newTestStore(t, rdb).Users(ctx)
	if err != nil {
		t.Fatalf("Users failed: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	for _, u := range users {
		if u.UserName == "" {
			t.Fatalf("scan yielded a non-user document: %+v", u)
		}
	}
}

func TestNewUserStoreRequiresSession(t *testing.T) {
	_, err := NewUserStore(nil)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestCloseLeavesBorrowedSessionOpen(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	session := NewDocumentSession(rdb)
	store, err := NewUserStore(session, WithSessionOwned(false))
	if err != nil {
		t.Fatalf("NewUserStore failed: %v", err)
	}
	mustCreateUser(t, store, "Tugberk")
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// The caller still owns the session.
	var user User
	found, err := session.Load(ctx, "idu:tugberk", &user)
	if err != nil {
		t.Fatalf("Load on the borrowed session failed: %v", err)
	}
	if !found {
		t.Fatal("expected the borrowed session to stay usable after Close")
	}
}

func TestCloseReleasesOwnedSession(t *testing.T) {
	_, rdb := newTestRedis(t)

	session := NewDocumentSession(rdb)
	store, err := NewUserStore(session)
	if err != nil {
		t.Fatalf("NewUserStore failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := session.Load(context.Background(), "idu:tugberk", &User{}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed from the owned session, got %v", err)
	}
}

func TestConcurrentUpdateConflict(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	mustCreateUser(t, newTestStore(t, rdb), "Tugberk")

	first := newTestStore(t, rdb)
	second := newTestStore(t, rdb)

	u1, err := first.FindByUserName(ctx, "Tugberk")
	if err != nil || u1 == nil {
		t.Fatalf("first load failed: user=%v err=%v", u1, err)
	}
	u2, err := second.FindByUserName(ctx, "Tugberk")
	if err != nil || u2 == nil {
		t.Fatalf("second load failed: user=%v err=%v", u2, err)
	}

	u1.SetPasswordHash("first-writer")
	if err := first.Update(ctx, u1); err != nil {
		t.Fatalf("first Update failed: %v", err)
	}

	u2.SetPasswordHash("second-writer")
	if err := second.Update(ctx, u2); !errors.Is(err, ErrConcurrencyConflict) {
		t.Fatalf("expected ErrConcurrencyConflict for the stale writer, got %v", err)
	}

	reloaded, err := newTestStore(t, rdb).FindByUserName(ctx, "Tugberk")
	if err != nil || reloaded == nil {
		t.Fatalf("reload failed: user=%v err=%v", reloaded, err)
	}
	if reloaded.PasswordHash != "first-writer" {
		t.Fatalf("expected the first writer's value to survive, got %q", reloaded.PasswordHash)
	}
}
