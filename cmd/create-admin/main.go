// Command create-admin creates an ADMIN account. Registration through the
// API only ever creates USER accounts.
//
// Usage:
//
//	APITASK_ADMIN_PASSWORD=... create-admin -email admin@example.com
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/phrazzld/apitask/internal/config"
	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/platform/logger"
	"github.com/phrazzld/apitask/internal/platform/postgres"
	"github.com/phrazzld/apitask/internal/service/auth"
	"github.com/phrazzld/apitask/internal/store"
)

// passwordEnv keeps the password out of the process list.
const passwordEnv = "APITASK_ADMIN_PASSWORD"

func main() {
	email := flag.String("email", "", "email of the admin account")
	flag.Parse()

	if err := run(*email, os.Getenv(passwordEnv)); err != nil {
		log.Fatalf("create-admin: %v", err)
	}
}

func run(email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return errors.New("-email is required")
	}
	if password == "" {
		return fmt.Errorf("%s is required", passwordEnv)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return err
	}

	user, err := domain.NewUser(email, password)
	if err != nil {
		return err
	}
	user.Role = domain.RoleAdmin
	user.HashedPassword, err = auth.HashPassword(password, cfg.Auth.BCryptCost)
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := postgres.Migrate(ctx, db, l); err != nil {
		return err
	}
	if err := postgres.NewPostgresUserStore(db, l).Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return fmt.Errorf("%s is already registered", email)
		}
		return err
	}

	fmt.Printf("Created admin %s (%s)\n", user.Email, user.ID)
	return nil
}
