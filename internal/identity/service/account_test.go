package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	env.store.addRole("r-user", "user")
	ctx := context.Background()

	u, err := env.svc.Register(ctx, RegisterInput{
		Login: " u1 ", Email: "U1@Example.com", Password: testPassword, FirstName: "Ann",
	})
	if err != nil {
		t.Fatal(err)
	}
	if u.Login != "u1" || u.Email != "u1@example.com" || u.FirstName != "Ann" {
		t.Errorf("user = %+v", u)
	}
	if u.PasswordHash == testPassword || u.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}
	env.store.mu.Lock()
	granted := env.store.st.userRoles[u.ID]["r-user"]
	env.store.mu.Unlock()
	if !granted {
		t.Error("default role should be granted")
	}
}

func TestRegister_WithoutDefaultRole(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.svc.Register(context.Background(), RegisterInput{
		Login: "u1", Email: "u1@example.com", Password: testPassword,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestRegister_Conflicts(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "u1")
	ctx := context.Background()

	_, err := env.svc.Register(ctx, RegisterInput{Login: "u1", Email: "other@example.com", Password: testPassword})
	if !errors.Is(err, ErrLoginTaken) {
		t.Errorf("duplicate login: %v", err)
	}
	_, err = env.svc.Register(ctx, RegisterInput{Login: "u2", Email: "u1@example.com", Password: testPassword})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email: %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, in := range []RegisterInput{
		{Login: "", Email: "a@example.com", Password: "x"},
		{Login: "a", Email: "not-an-email", Password: "x"},
		{Login: "a", Email: "a@example.com", Password: ""},
	} {
		if _, err := env.svc.Register(ctx, in); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Register(%+v) = %v, want ErrInvalidArgument", in, err)
		}
	}
}

func TestChangeLogin(t *testing.T) {
	env := newTestEnv(t)
	uid := env.register(t, "u1")
	env.register(t, "u2")
	ctx := context.Background()

	if err := env.svc.ChangeLogin(ctx, uid, "u2"); !errors.Is(err, ErrLoginTaken) {
		t.Errorf("taken: %v", err)
	}
	if err := env.svc.ChangeLogin(ctx, uid, "u1"); err != nil {
		t.Errorf("unchanged login: %v", err)
	}
	if err := env.svc.ChangeLogin(ctx, uid, "renamed"); err != nil {
		t.Fatalf("ChangeLogin: %v", err)
	}
	env.login(t, "renamed")
	if err := env.svc.ChangeLogin(ctx, "nobody", "x"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user: %v", err)
	}
	if err := env.svc.ChangeLogin(ctx, uid, "  "); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("blank login: %v", err)
	}
}

func TestLoginHistory(t *testing.T) {
	env := newTestEnv(t)
	uid := env.register(t, "u1")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		env.login(t, "u1")
		env.clock.Advance(time.Minute)
	}
	_, _ = env.svc.Login(ctx, "u1", "wrong", Origin{})

	page, err := env.svc.LoginHistory(ctx, uid, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if page.Page != 1 || page.PageSize != DefaultPageSize || page.Total != 4 || len(page.Items) != 4 {
		t.Fatalf("page = %+v", page)
	}
	if page.Items[0].Result != "fail" {
		t.Error("newest event should come first")
	}
	for i := 1; i < len(page.Items); i++ {
		if page.Items[i].Timestamp.After(page.Items[i-1].Timestamp) {
			t.Error("events must be ordered newest first")
		}
	}

	page, err = env.svc.LoginHistory(ctx, uid, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.Total != 4 {
		t.Errorf("second page = %d items, total %d", len(page.Items), page.Total)
	}

	for _, bad := range [][2]int{{-1, 10}, {1, 101}, {1, -5}} {
		if _, err := env.svc.LoginHistory(ctx, uid, bad[0], bad[1]); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("LoginHistory(%d, %d) = %v", bad[0], bad[1], err)
		}
	}
}
