package testhelpers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresImage is the image behind PostgresCatalog.
const PostgresImage = "postgres:16-alpine"

// catalogSeed is what the catalog browsing tests expect to find: two tables
// and a view in the sales schema, plus an empty schema that must still be
// listed.
var catalogSeed = []string{
	`CREATE SCHEMA IF NOT EXISTS sales`,
	`CREATE SCHEMA IF NOT EXISTS staging`,
	`CREATE TABLE IF NOT EXISTS sales.orders (id INT PRIMARY KEY, placed_at TIMESTAMP NOT NULL, total NUMERIC(10,2))`,
	`CREATE TABLE IF NOT EXISTS sales.customers (id INT PRIMARY KEY, name TEXT)`,
	`CREATE OR REPLACE VIEW sales.big_orders AS SELECT * FROM sales.orders WHERE total > 100`,
}

// PostgresCatalog is a running PostgreSQL server seeded with a small sales
// catalog. One container is shared by every test in the binary.
type PostgresCatalog struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string

	// Pool is an admin connection for extra setup.
	Pool *pgxpool.Pool
}

// URI renders a postgresql:// connection string. Extra query parameters are
// given as key, value pairs; sslmode defaults to disable.
func (c *PostgresCatalog) URI(query ...string) string {
	q := url.Values{"sslmode": {"disable"}}
	for i := 0; i+1 < len(query); i += 2 {
		q.Set(query[i], query[i+1])
	}
	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Exec runs setup statements on the admin pool and fails the test on error.
func (c *PostgresCatalog) Exec(t *testing.T, statements ...string) {
	t.Helper()
	ctx := context.Background()
	for _, stmt := range statements {
		if _, err := c.Pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("setup %q: %v", stmt, err)
		}
	}
}

var (
	catalogOnce sync.Once
	catalog     *PostgresCatalog
	catalogErr  error
)

// Postgres returns the shared catalog server, starting it on first use.
// It skips under -short since it needs Docker.
func Postgres(t *testing.T) *PostgresCatalog {
	t.Helper()
	if testing.Short() {
		t.Skip("needs Docker")
	}

	catalogOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		catalog, catalogErr = startPostgres(ctx)
	})
	if catalogErr != nil {
		t.Fatalf("postgres catalog: %v", catalogErr)
	}
	return catalog
}

func startPostgres(ctx context.Context) (*PostgresCatalog, error) {
	c := &PostgresCatalog{User: "ekaya", Password: "dialects", Database: "catalog"}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        PostgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       c.Database,
				"POSTGRES_USER":     c.User,
				"POSTGRES_PASSWORD": c.Password,
			},
			// The entrypoint restarts the server once after init.
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort("5432/tcp"),
			).WithDeadline(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}

	if c.Host, err = container.Host(ctx); err != nil {
		return nil, fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("container port: %w", err)
	}
	c.Port = port.Int()

	if c.Pool, err = pgxpool.New(ctx, c.URI()); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := waitReady(ctx, c.Pool); err != nil {
		c.Pool.Close()
		return nil, err
	}
	for _, stmt := range catalogSeed {
		if _, err := c.Pool.Exec(ctx, stmt); err != nil {
			c.Pool.Close()
			return nil, fmt.Errorf("seed %q: %w", stmt, err)
		}
	}
	return c, nil
}

func waitReady(ctx context.Context, pool *pgxpool.Pool) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		err := pool.Ping(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("server never became ready: %w", err)
		case <-ticker.C:
		}
	}
}
