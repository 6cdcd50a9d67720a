// Command tenantctl provisions tenants and toggles their access.
//
//	tenantctl create -name "Acme"
//	tenantctl deactivate -id <tenant-id>
//	tenantctl reactivate -id <tenant-id>
//
// It writes to DATABASE_URL; without one it only works against a throwaway
// in-memory store, which is useful for checking key generation.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"kycgate/internal/platform/database"
	"kycgate/internal/platform/logger"
	"kycgate/internal/tenant"
	"kycgate/internal/tenant/models"
	tenantservice "kycgate/internal/tenant/service"
	id "kycgate/pkg/domain"
)

const commandTimeout = 30 * time.Second

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "tenantctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return fmt.Errorf("missing command")
	}

	log := logger.New(stderr, os.Getenv("LOG_LEVEL"))
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	db, err := openDatabase(ctx, os.Getenv("DATABASE_URL"), log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	svc, err := tenant.NewService(tenant.NewStore(db), tenantservice.WithLogger(log))
	if err != nil {
		return err
	}
	return dispatch(ctx, svc, args, stdout, stderr)
}

func dispatch(ctx context.Context, svc *tenant.Service, args []string, stdout, stderr io.Writer) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "create":
		fs := flag.NewFlagSet("create", flag.ContinueOnError)
		fs.SetOutput(stderr)
		name := fs.String("name", "", "tenant name (unique, case-insensitive)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		t, err := svc.CreateTenant(ctx, *name)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "tenant_id: %s\nname:      %s\napi_key:   %s\n", t.ID, t.Name, t.APIKey)
		fmt.Fprintln(stderr, "store the api key now; it is not shown again")
		return nil

	case "deactivate", "reactivate":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		fs.SetOutput(stderr)
		rawID := fs.String("id", "", "tenant id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		tenantID, err := id.ParseTenantID(*rawID)
		if err != nil {
			return fmt.Errorf("invalid -id: %w", err)
		}
		var t *models.Tenant
		if cmd == "deactivate" {
			t, err = svc.DeactivateTenant(ctx, tenantID)
		} else {
			t, err = svc.ReactivateTenant(ctx, tenantID)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "tenant %s is now %s\n", t.ID, t.Status)
		return nil

	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func openDatabase(ctx context.Context, url string, log *slog.Logger) (*sql.DB, error) {
	if url == "" {
		log.Warn("DATABASE_URL not set, changes will not be persisted")
		return nil, nil
	}
	db, err := database.Open(url, database.PoolConfig{MaxOpenConns: 2})
	if err != nil {
		return nil, err
	}
	if err := database.Ping(ctx, db, 5*time.Second); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := database.RunMigrations(url); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: tenantctl <create -name NAME | deactivate -id ID | reactivate -id ID>")
}
