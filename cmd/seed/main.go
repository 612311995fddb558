// seed creates the "user" and "admin" roles and two development accounts.
// Idempotent: existing roles are kept and existing accounts are skipped.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"auth-service/backend/internal/config"
	"auth-service/backend/internal/identity/service"
	"auth-service/backend/internal/logger"
	"auth-service/backend/internal/security"
	"auth-service/backend/internal/store"
	userdomain "auth-service/backend/internal/user/domain"
)

const devPassword = "Password123!dev"

var roles = []userdomain.Role{
	{Name: userdomain.DefaultRole, Description: "Every registered account"},
	{Name: userdomain.AdminRole, Description: "May read any user's login history"},
}

// devAccount is a seeded login. Admin accounts also get the admin role.
type devAccount struct {
	service.RegisterInput
	Admin bool
}

var devAccounts = []devAccount{
	{RegisterInput: service.RegisterInput{Login: "dev", Email: "dev@example.com", Password: devPassword, FirstName: "Dev", LastName: "User"}},
	{RegisterInput: service.RegisterInput{Login: "admin", Email: "admin@example.com", Password: devPassword, FirstName: "Admin", LastName: "User"}, Admin: true},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.LogLevel, cfg.LogFormat, cfg.OTelServiceName+"-seed")

	b, err := store.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("seed: open store")
	}
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := seed(ctx, b, security.NewHasher(cfg.BcryptCost), log); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().Msg("seed completed")
	for _, a := range devAccounts {
		fmt.Printf("login: %s / %s\n", a.Login, a.Password)
	}
}

func seed(ctx context.Context, st service.Store, hasher service.PasswordHasher, log zerolog.Logger) error {
	roleIDs := make(map[string]string, len(roles))
	err := st.InTx(ctx, func(ctx context.Context, r service.Repos) error {
		for _, role := range roles {
			existing, err := r.Roles.GetByName(ctx, role.Name)
			if err != nil {
				return err
			}
			if existing == nil {
				existing = &userdomain.Role{ID: uuid.NewString(), Name: role.Name, Description: role.Description}
				if err := r.Roles.Create(ctx, existing); err != nil {
					return fmt.Errorf("create role %s: %w", role.Name, err)
				}
			}
			roleIDs[role.Name] = existing.ID
		}
		return nil
	})
	if err != nil {
		return err
	}

	auth := service.NewAuthService(service.Deps{Store: st, Hasher: hasher, Logger: log})
	for _, a := range devAccounts {
		u, err := auth.Register(ctx, a.RegisterInput)
		switch {
		case errors.Is(err, service.ErrLoginTaken), errors.Is(err, service.ErrEmailTaken):
			log.Info().Str("login", a.Login).Msg("seed: account exists, skipping")
			continue
		case err != nil:
			return fmt.Errorf("register %s: %w", a.Login, err)
		}
		if !a.Admin {
			continue
		}
		err = st.InTx(ctx, func(ctx context.Context, r service.Repos) error {
			return r.Roles.Assign(ctx, u.ID, roleIDs[userdomain.AdminRole])
		})
		if err != nil {
			return fmt.Errorf("grant admin to %s: %w", a.Login, err)
		}
	}
	return nil
}
