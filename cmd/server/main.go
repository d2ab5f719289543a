// server runs the loan-dashboard auth API over HTTP.
// Configuration comes from the environment (or .env); see internal/config.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loandesk/internal/access"
	"loandesk/internal/audit"
	auditrepo "loandesk/internal/audit/repository"
	companyrepo "loandesk/internal/company/repository"
	"loandesk/internal/config"
	"loandesk/internal/db"
	identityrepo "loandesk/internal/identity/repository"
	identityservice "loandesk/internal/identity/service"
	"loandesk/internal/policy/engine"
	rolerepo "loandesk/internal/role/repository"
	roleservice "loandesk/internal/role/service"
	"loandesk/internal/security"
	"loandesk/internal/server"
	sessionrepo "loandesk/internal/session/repository"
	sessionservice "loandesk/internal/session/service"
	"loandesk/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "loandesk", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	var (
		identities identityrepo.Repository
		companies  companyrepo.Repository
		roles      rolerepo.Repository
		sessions   sessionrepo.Repository
		auditStore auditrepo.Repository
		dbPinger   server.Pinger
	)
	if cfg.DatabaseURL != "" {
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer sqlDB.Close()
		identities = identityrepo.NewPostgresRepository(sqlDB)
		companies = companyrepo.NewPostgresRepository(sqlDB)
		roles = rolerepo.NewPostgresRepository(sqlDB)
		sessions = sessionrepo.NewPostgresRepository(sqlDB)
		auditStore = auditrepo.NewPostgresRepository(sqlDB)
		dbPinger = sqlDB
	} else {
		log.Println("DATABASE_URL is empty; running on in-memory stores (dev only)")
		identities = identityrepo.NewMemoryRepository()
		companies = companyrepo.NewMemoryRepository()
		roles = rolerepo.NewMemoryRepository()
		sessions = sessionrepo.NewMemoryRepository()
		auditStore = auditrepo.NewMemoryRepository()
	}

	policyEval, err := engine.NewOPAEvaluator(cfg.FingerprintPolicy, cfg.FingerprintRego)
	if err != nil {
		log.Fatalf("policy: %v", err)
	}

	manager := sessionservice.NewManager(sessions, policyEval, cfg.TTL(), cfg.Grace())
	if interval := cfg.SweepInterval(); interval > 0 {
		go manager.RunSweeper(ctx, interval)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	resolver := roleservice.NewResolver(roles)

	var reset *identityservice.ResetService
	if cfg.ResetPrivateKey != "" && cfg.ResetPublicKey != "" {
		priv, err := security.ParsePrivateKey(cfg.ResetPrivateKey)
		if err != nil {
			log.Fatalf("reset keys: %v", err)
		}
		pub, err := security.ParsePublicKey(cfg.ResetPublicKey)
		if err != nil {
			log.Fatalf("reset keys: %v", err)
		}
		tokens := security.NewResetTokenProvider(priv, pub, cfg.ResetTTL())
		reset = identityservice.NewResetService(identities, hasher, tokens, manager)
	} else {
		log.Println("RESET_PRIVATE_KEY/RESET_PUBLIC_KEY not set; password reset disabled")
	}

	auditLogger := audit.Multi(
		audit.NewLogger(auditStore),
		otel.NewAuditEmitter(providers.LoggerProvider),
	)

	srv := server.New(cfg, server.Deps{
		Verifier:      identityservice.NewVerifier(identities, companies, hasher),
		Sessions:      manager,
		Roles:         resolver,
		Gate:          access.NewGate(manager, resolver, identities),
		Reset:         reset,
		Audit:         auditLogger,
		DBPinger:      dbPinger,
		PolicyChecker: policyEval,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
