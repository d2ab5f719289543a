// seed inserts development sample data for local testing: one company, an
// Admin role with the full permission catalog, a Loan Officer role, and a user
// for each. Idempotent: skips inserts when the admin user already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	companydomain "loandesk/internal/company/domain"
	companyrepo "loandesk/internal/company/repository"
	"loandesk/internal/config"
	"loandesk/internal/db"
	identitydomain "loandesk/internal/identity/domain"
	identityrepo "loandesk/internal/identity/repository"
	roledomain "loandesk/internal/role/domain"
	rolerepo "loandesk/internal/role/repository"
	"loandesk/internal/security"
)

const (
	devCompanyName   = "Acme Lending"
	devAdminUsername = "admin"
	devAdminPassword = "Admin$Password1"
	devOfficerUser   = "jdoe"
	devOfficerPass   = "0fficer$Pass1"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		os.Exit(1)
	}
	if cfg.Env == "production" {
		fmt.Fprintln(os.Stderr, "seed: refusing to run with APP_ENV=production")
		os.Exit(1)
	}

	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer sqlDB.Close()

	ctx := context.Background()
	identities := identityrepo.NewPostgresRepository(sqlDB)

	existing, err := identities.GetByUsername(ctx, devAdminUsername)
	if err != nil {
		log.Fatalf("seed: check admin user: %v", err)
	}
	if existing != nil {
		log.Printf("seed: user %q already exists, nothing to do", devAdminUsername)
		return
	}

	now := time.Now().UTC()
	companies := companyrepo.NewPostgresRepository(sqlDB)
	roles := rolerepo.NewPostgresRepository(sqlDB)
	hasher := security.NewHasher(cfg.BcryptCost)

	company := &companydomain.Company{
		ID:        uuid.New().String(),
		Name:      devCompanyName,
		Status:    companydomain.CompanyStatusActive,
		CreatedAt: now,
	}
	if err := companies.Create(ctx, company); err != nil {
		log.Fatalf("seed: create company: %v", err)
	}

	adminRole := &roledomain.Role{
		ID:          uuid.New().String(),
		CompanyID:   company.ID,
		Name:        "Admin",
		Permissions: roledomain.NewPermissionSet(roledomain.Catalog()...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	officerRole := &roledomain.Role{
		ID:        uuid.New().String(),
		CompanyID: company.ID,
		Name:      "Loan Officer",
		Permissions: roledomain.NewPermissionSet(
			roledomain.PermDashboardView,
			roledomain.PermLoansView,
			roledomain.PermLoansCreate,
			roledomain.PermLoansEdit,
			roledomain.PermBorrowersView,
			roledomain.PermBorrowersEdit,
			roledomain.PermIncomeView,
		),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, role := range []*roledomain.Role{adminRole, officerRole} {
		if err := roles.Create(ctx, role); err != nil {
			log.Fatalf("seed: create role %q: %v", role.Name, err)
		}
	}

	users := []struct {
		roleID, username, password, display string
	}{
		{adminRole.ID, devAdminUsername, devAdminPassword, "Administrator"},
		{officerRole.ID, devOfficerUser, devOfficerPass, "Jordan Doe"},
	}
	for _, u := range users {
		hash, err := hasher.Hash([]byte(u.password))
		if err != nil {
			log.Fatalf("seed: hash password: %v", err)
		}
		ident := &identitydomain.Identity{
			ID:           uuid.New().String(),
			CompanyID:    company.ID,
			RoleID:       u.roleID,
			Username:     u.username,
			DisplayName:  u.display,
			PasswordHash: hash,
			Status:       identitydomain.StatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := identities.Create(ctx, ident); err != nil {
			log.Fatalf("seed: create user %q: %v", u.username, err)
		}
	}

	log.Printf("seed: created company %q with Admin and Loan Officer roles", devCompanyName)
	log.Printf("seed: login with %s / %s", devAdminUsername, devAdminPassword)
}
