package db

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	OrgIDKey  contextKey = "org_id"
	DBConnKey contextKey = "db_conn"
	DBTxKey   contextKey = "db_tx"
)

var orgIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// OrgMiddleware resolves the caller's organization and pins the request to an
// org-scoped database connection. Every organization has its own schema
// (org_<id>); the search path also covers shared lookup tables.
func OrgMiddleware(pool *pgxpool.Pool, defaultOrg string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			orgID := extractOrgID(c, defaultOrg)

			if !orgIDPattern.MatchString(orgID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid organization identifier")
			}

			ctx := c.Request().Context()
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			defer conn.Release()

			schema := fmt.Sprintf("org_%s", orgID)
			_, err = conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, shared, public", schema))
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "organization resolution failed")
			}

			ctx = context.WithValue(ctx, OrgIDKey, orgID)
			ctx = context.WithValue(ctx, DBConnKey, conn)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("org_id", orgID)
			c.Set("db", conn)

			return next(c)
		}
	}
}

func extractOrgID(c echo.Context, defaultOrg string) string {
	// 1. Check JWT claim (set by auth middleware)
	if oid, ok := c.Get("jwt_org_id").(string); ok && oid != "" {
		return oid
	}

	// 2. Check X-Org-ID header
	if oid := c.Request().Header.Get("X-Org-ID"); oid != "" {
		return oid
	}

	// 3. Check query parameter
	if oid := c.QueryParam("org_id"); oid != "" {
		return oid
	}

	return defaultOrg
}

// ConnFromContext retrieves the org-scoped database connection from context.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// OrgFromContext retrieves the organization ID from context.
func OrgFromContext(ctx context.Context) string {
	oid, _ := ctx.Value(OrgIDKey).(string)
	return oid
}

// TxFromContext retrieves a transaction started by WithTx, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// WithTx runs fn inside a transaction. The transaction is stored in the
// context so that repositories called from fn join it instead of using the
// pool directly. Rolls back on error, commits otherwise.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	var tx pgx.Tx
	var err error

	if conn := ConnFromContext(ctx); conn != nil {
		tx, err = conn.Begin(ctx)
	} else {
		tx, err = pool.Begin(ctx)
	}
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txCtx := context.WithValue(ctx, DBTxKey, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CreateOrgSchema creates a new schema for an organization and runs all
// migrations against it. If migrationsDir is empty, migrations are skipped.
func CreateOrgSchema(ctx context.Context, pool *pgxpool.Pool, orgID string, migrationsDir string) error {
	if !orgIDPattern.MatchString(orgID) {
		return fmt.Errorf("invalid organization identifier: %s", orgID)
	}

	schema := fmt.Sprintf("org_%s", orgID)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema))
	if err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}

	if migrationsDir != "" {
		migrator := NewMigrator(pool, migrationsDir)
		if _, err := migrator.Up(ctx, schema); err != nil {
			return fmt.Errorf("run migrations for %s: %w", schema, err)
		}
	}

	return nil
}
