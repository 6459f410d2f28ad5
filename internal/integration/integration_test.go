package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/app"
	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/domain"
	pgstore "github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/infra/postgres"
	pgmigrations "github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/infra/postgres/migrations"
	redisstore "github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/infra/redis"
)

func TestSnapshotSurvivesRestartWithPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	dsn, cleanup := startPostgres(t, ctx)
	defer cleanup()

	runMigrations(t, ctx, dsn)

	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := pgstore.NewSnapshotStore(pool, "literatura-7b")

	// First lesson: a student registers, answers correctly, and the
	// snapshot is flushed to the database.
	flusher := app.NewFlusher(store, nil)
	session := app.NewClassSession()
	service := app.NewClassService(session, flusher, nil)

	teacher := &recordingTransport{}
	teacherConn := service.Connect(app.RoleTeacher, teacher)
	service.HandleMessage(teacherConn, frame(app.ActionRegisterActivity, map[string]any{
		"activityId":      "A1",
		"question":        "¿Quién escribió Eclesiastés?",
		"options":         []string{"Salomón", "Job"},
		"correctIndex":    0,
		"percentageValue": 20,
	}))
	service.HandleMessage(teacherConn, frame(app.ActionUnlockActivity, map[string]any{"activityId": "A1"}))

	student := &recordingTransport{}
	studentConn := service.Connect(app.RoleStudent, student)
	service.HandleMessage(studentConn, frame(app.ActionRegister, map[string]any{"name": "Ana"}))
	service.HandleMessage(studentConn, frame(app.ActionSubmitAnswer, map[string]any{"activityId": "A1", "answer": 0}))
	flusher.Close()

	// Second lesson: a fresh session seeded from the stored snapshot.
	snap, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	ana, ok := snap.Students["Ana"]
	if !ok {
		t.Fatalf("expected ana in snapshot, got %v", snap.Students)
	}
	if ana.AccumulatedPercentage != 20 {
		t.Fatalf("expected accumulated 20, got %v", ana.AccumulatedPercentage)
	}

	restarted := app.NewClassSession()
	restarted.SeedFromSnapshot(snap)
	resumed := app.NewClassService(restarted, nil, nil)

	back := &recordingTransport{}
	backConn := resumed.Connect(app.RoleStudent, back)
	resumed.HandleMessage(backConn, frame(app.ActionRegister, map[string]any{"name": "Ana", "reconnect": true}))

	reg := back.lastOfType(t, app.EventRegistrationSuccess)
	if reg["accumulatedPercentage"] != float64(20) {
		t.Fatalf("expected score carried across restart, got %v", reg)
	}
}

func TestSnapshotStoreWithRealRedis(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	url, cleanup := startRedis(t, ctx)
	defer cleanup()

	opts, err := goredis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := goredis.NewClient(opts)
	defer client.Close()

	store := redisstore.NewSnapshotStore(client, "literatura-7b", time.Hour)

	snap := domain.EmptySnapshot()
	snap.Students["ana"] = domain.StudentSnapshot{AccumulatedPercentage: 60}
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Students["ana"].AccumulatedPercentage != 60 {
		t.Fatalf("unexpected loaded snapshot: %+v", loaded)
	}
}

// recordingTransport captures delivered events for assertions. It stands in
// for a WebSocket connection so the service can be driven in-process.
type recordingTransport struct {
	mu     sync.Mutex
	events []app.Event
}

func (r *recordingTransport) Send(ev app.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingTransport) Close() error { return nil }

func (r *recordingTransport) lastOfType(t *testing.T, eventType string) map[string]any {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == eventType {
			data, ok := r.events[i].Data.(map[string]any)
			if !ok {
				t.Fatalf("event %s data is %T, not a map", eventType, r.events[i].Data)
			}
			return data
		}
	}
	t.Fatalf("no %s event recorded", eventType)
	return nil
}

func frame(action string, payload map[string]any) []byte {
	raw, err := json.Marshal(map[string]any{"action": action, "payload": payload})
	if err != nil {
		panic(err)
	}
	return raw
}

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "class", "POSTGRES_PASSWORD": "classpass", "POSTGRES_DB": "classdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://class:classpass@%s:%s/classdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	return fmt.Sprintf("redis://%s:%s", host, port.Port()), func() {
		_ = container.Terminate(ctx)
	}
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
