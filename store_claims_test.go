package redisidentity

import (
	"context"
	"errors"
	"testing"
)

func TestClaimLifecycle(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	store := newTestStore(t, rdb)
	user := mustCreateUser(t, store, "Tugberk")

	if err := store.AddClaim(user, "role", "admin"); err != nil {
		t.Fatalf("AddClaim failed: %v", err)
	}
	if err := store.AddClaim(user, "scope", "read"); err != nil {
		t.Fatalf("AddClaim failed: %v", err)
	}
	if err := store.Update(ctx, user); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fresh := newTestStore(t, rdb)
	reloaded, err := fresh.FindByUserName(ctx, "Tugberk")
	if err != nil || reloaded == nil {
		t.Fatalf("reload failed: user=%v err=%v", reloaded, err)
	}
	claims, err := fresh.GetClaims(reloaded)
	if err != nil {
		t.Fatalf("GetClaims failed: %v", err)
	}
	if len(claims) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(claims))
	}

	if err := fresh.RemoveClaim(reloaded, "role", "admin"); err != nil {
		t.Fatalf("RemoveClaim failed: %v", err)
	}
	if err := fresh.Update(ctx, reloaded); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	final, err := newTestStore(t, rdb).FindByUserName(ctx, "Tugberk")
	if err != nil || final == nil {
		t.Fatalf("reload failed: user=%v err=%v", final, err)
	}
	if len(final.Claims) != 1 {
		t.Fatalf("expected 1 claim after removal, got %d", len(final.Claims))
	}
	if final.Claims[0].ClaimType != "scope" || final.Claims[0].ClaimValue != "read" {
		t.Fatalf("unexpected surviving claim: %+v", final.Claims[0])
	}
}

func TestRemoveClaimRequiresExactMatch(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := newTestStore(t, rdb)
	user := mustCreateUser(t, store, "Tugberk")

	if err := store.AddClaim(user, "role", "admin"); err != nil {
		t.Fatalf("AddClaim failed: %v", err)
	}
	// Same type, different value: nothing is removed.
	if err := store.RemoveClaim(user, "role", "viewer"); err != nil {
		t.Fatalf("RemoveClaim failed: %v", err)
	}
	claims, err := store.GetClaims(user)
	if err != nil {
		t.Fatalf("GetClaims failed: %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("expected claim untouched, got %d claims", len(claims))
	}
}

func TestClaimValidation(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := newTestStore(t, rdb)
	user := mustCreateUser(t, store, "Tugberk")

	if err := store.AddClaim(nil, "role", "admin"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for nil user, got %v", err)
	}
	if err := store.AddClaim(user, "", "admin"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty claim type, got %v", err)
	}
	if _, err := store.GetClaims(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for nil user, got %v", err)
	}
}
