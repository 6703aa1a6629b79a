package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/clinicq/clinicq/internal/domain/doctor"
	"github.com/clinicq/clinicq/internal/domain/queue"
	"github.com/clinicq/clinicq/internal/platform/db"
	"github.com/clinicq/clinicq/internal/platform/websocket"
)

// testDB holds the shared database infrastructure for integration tests.
type testDB struct {
	Pool          *pgxpool.Pool
	ConnStr       string
	MigrationsDir string
}

// globalDB is the package-level test database, initialized once in TestMain.
var globalDB *testDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	connStr, cleanup, err := startPostgresContainer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup postgres container: %v\n", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}

	migrationsDir := findMigrationsDir()
	if _, err := db.NewMigrator(pool, migrationsDir).Up(ctx); err != nil {
		pool.Close()
		cleanup()
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	globalDB = &testDB{Pool: pool, ConnStr: connStr, MigrationsDir: migrationsDir}
	code := m.Run()
	pool.Close()
	cleanup()
	os.Exit(code)
}

// findMigrationsDir locates the migrations directory relative to this test file.
func findMigrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	// test/integration -> module root
	root := filepath.Join(dir, "..", "..")
	return filepath.Join(root, "migrations")
}

// truncateTables clears queue and doctor state between tests.
func truncateTables(t *testing.T, ctx context.Context) {
	t.Helper()
	_, err := globalDB.Pool.Exec(ctx, `TRUNCATE queue_entry, doctor_profile`)
	if err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

// newQueueService wires a queue service against the real database with the
// same composition the server uses.
func newQueueService(t *testing.T) (*queue.Service, queue.Repository, *doctor.Service) {
	t.Helper()
	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)

	doctorRepo := doctor.NewRepoPG(globalDB.Pool)
	doctorSvc := doctor.NewService(doctorRepo, 15)

	queueRepo := queue.NewRepoPG(globalDB.Pool)
	svc := queue.NewService(queueRepo, doctorSvc,
		db.NewTxRunner(globalDB.Pool), websocket.NewHub(), logger, 3*time.Second)
	return svc, queueRepo, doctorSvc
}

// createTestDoctor inserts a verified, accepting doctor with no schedule
// restriction and returns its ID.
func createTestDoctor(t *testing.T, ctx context.Context, doctorSvc *doctor.Service, name string) uuid.UUID {
	t.Helper()
	p := &doctor.Profile{
		DisplayName:        name,
		VerificationStatus: doctor.VerificationVerified,
		Accepting:          true,
	}
	if err := doctorSvc.Create(ctx, p); err != nil {
		t.Fatalf("create test doctor: %v", err)
	}
	return p.ID
}

// ptrStr returns a pointer to the given string.
func ptrStr(s string) *string { return &s }
