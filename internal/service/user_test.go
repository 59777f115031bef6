package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/friendlylisteh/server/internal/apperror"
	"github.com/friendlylisteh/server/internal/auth"
)

func newTestUserService(t *testing.T) (*UserService, *mockUserRepo) {
	t.Helper()
	users := newMockUserRepo()
	svc := NewUserService(users, auth.NewPasswordServiceForTest(4), nil, testLogger())
	return svc, users
}

func TestUpdateUserSelfOnly(t *testing.T) {
	svc, users := newTestUserService(t)
	ctx := context.Background()

	target := seedUser(t, users, "Nour Hassan", "nour@example.com")

	// Another user may not edit the profile. Neither may an admin — profile
	// edits are strictly self-service.
	for _, id := range []auth.Identity{userID, adminID} {
		_, err := svc.Update(ctx, id, target.ID, UpdateUserInput{FullName: "Hacked"})
		if !errors.Is(err, apperror.ErrForbidden) {
			t.Errorf("identity %+v: error = %v, want ErrForbidden", id, err)
		}
	}

	updated, err := svc.Update(ctx, identityFor(target), target.ID, UpdateUserInput{FullName: "Nour H."})
	if err != nil {
		t.Fatalf("self update: error = %v", err)
	}
	if updated.FullName != "Nour H." {
		t.Errorf("FullName = %q, want %q", updated.FullName, "Nour H.")
	}
	if updated.Email != "nour@example.com" {
		t.Errorf("Email = %q, untouched fields must survive a partial update", updated.Email)
	}
}

func TestUpdateUserRehashesPassword(t *testing.T) {
	svc, users := newTestUserService(t)
	ctx := context.Background()

	user := seedUser(t, users, "Nour Hassan", "nour@example.com")
	oldHash := users.users[user.ID].PasswordHash

	if _, err := svc.Update(ctx, identityFor(user), user.ID, UpdateUserInput{Password: "short"}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("short password: error = %v, want ErrValidation", err)
	}
	if _, err := svc.Update(ctx, identityFor(user), user.ID, UpdateUserInput{Password: strings.Repeat("a", 80)}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("over-long password: error = %v, want ErrValidation (bcrypt caps input at 72 bytes)", err)
	}

	if _, err := svc.Update(ctx, identityFor(user), user.ID, UpdateUserInput{Password: "new-long-password"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	newHash := users.users[user.ID].PasswordHash
	if newHash == oldHash {
		t.Error("password hash should change")
	}
	if newHash == "new-long-password" || !strings.HasPrefix(newHash, "$2a$") {
		t.Errorf("PasswordHash = %q, want a bcrypt hash", newHash)
	}
}

func TestDeleteUserSelfOnly(t *testing.T) {
	svc, users := newTestUserService(t)
	ctx := context.Background()

	target := seedUser(t, users, "Nour Hassan", "nour@example.com")

	if err := svc.Delete(ctx, adminID, target.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("admin via self-delete route: error = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(ctx, identityFor(target), target.ID); err != nil {
		t.Fatalf("self delete: error = %v", err)
	}
	if len(users.users) != 0 {
		t.Error("account should be gone")
	}
}

func TestAdminDelete(t *testing.T) {
	svc, users := newTestUserService(t)
	ctx := context.Background()

	target := seedUser(t, users, "Nour Hassan", "nour@example.com")

	if err := svc.AdminDelete(ctx, userID, target.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("non-admin: error = %v, want ErrForbidden", err)
	}
	if err := svc.AdminDelete(ctx, adminID, target.ID); err != nil {
		t.Fatalf("AdminDelete() error = %v", err)
	}
	if err := svc.AdminDelete(ctx, adminID, target.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second delete: error = %v, want ErrNotFound", err)
	}
}

func TestListUsersRequiresAdmin(t *testing.T) {
	svc, users := newTestUserService(t)
	ctx := context.Background()

	seedUser(t, users, "Nour Hassan", "nour@example.com")
	seedUser(t, users, "Sara Ali", "sara@example.com")

	if _, err := svc.List(ctx, userID, 0, 0, false); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("non-admin: error = %v, want ErrForbidden", err)
	}

	page, err := svc.List(ctx, adminID, 0, 0, false)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2", page.TotalCount)
	}
	if page.LastMonthCount != 2 {
		t.Errorf("LastMonthCount = %d, want 2 (both just created)", page.LastMonthCount)
	}
}

func TestGetUserRequiresAdmin(t *testing.T) {
	svc, users := newTestUserService(t)
	ctx := context.Background()

	target := seedUser(t, users, "Nour Hassan", "nour@example.com")

	if _, err := svc.Get(ctx, userID, target.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("non-admin: error = %v, want ErrForbidden", err)
	}
	got, err := svc.Get(ctx, adminID, target.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != target.ID {
		t.Errorf("ID = %s, want %s", got.ID, target.ID)
	}
}
