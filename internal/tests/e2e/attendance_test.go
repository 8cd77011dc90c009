//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/attendance-hq/apiserver/config"
	"github.com/attendance-hq/apiserver/internal/db"
	"github.com/attendance-hq/apiserver/internal/mq"
	"github.com/attendance-hq/apiserver/internal/server"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const (
	serverPort    = 18080
	eventsChannel = "attendance.e2e"
	adminEmail    = "admin@company.com"
	adminPassword = "Admin123"
	userEmail     = "user@company.com"
	userPassword  = "User123"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	setEnv(root)

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := waitForHealth(ctx, baseURL()+"/health"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		shutdown(srv)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	shutdown(srv)
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func baseURL() string {
	return fmt.Sprintf("http://localhost:%d", serverPort)
}

func TestAttendanceLifecycle(t *testing.T) {
	admin := login(t, adminEmail, adminPassword)
	user := login(t, userEmail, userPassword)
	customID := fmt.Sprintf("E2E-%d", time.Now().UnixNano())

	events := subscribe(t)

	status, body := call(t, http.MethodPost, "/api/employees", admin, map[string]string{
		"customId":    customID,
		"name":        "E2E Employee",
		"designation": "Tester",
	})
	if status != http.StatusCreated {
		t.Fatalf("create employee status %d: %s", status, body)
	}
	var created struct {
		Employee struct {
			ID string `json:"id"`
		} `json:"employee"`
	}
	mustDecode(t, body, &created)

	photoURL := checkInWithPhoto(t, user, customID)
	if !strings.HasPrefix(photoURL, "/api/files/") {
		t.Fatalf("unexpected photo url: %q", photoURL)
	}
	status, body = call(t, http.MethodGet, photoURL, "", nil)
	if status != http.StatusOK || !bytes.Equal([]byte(body), pngBytes) {
		t.Fatalf("serve photo status %d", status)
	}

	status, body = call(t, http.MethodPost, "/api/attendance/check-in", user, map[string]string{"employeeId": created.Employee.ID})
	if status != http.StatusConflict {
		t.Fatalf("expected duplicate check-in conflict, got %d: %s", status, body)
	}

	status, body = call(t, http.MethodPost, "/api/attendance/check-out", user, map[string]string{"employeeId": customID})
	if status != http.StatusCreated {
		t.Fatalf("check-out status %d: %s", status, body)
	}
	status, _ = call(t, http.MethodPost, "/api/attendance/check-out", user, map[string]string{"employeeId": customID})
	if status != http.StatusConflict {
		t.Fatalf("expected duplicate check-out conflict, got %d", status)
	}

	for _, action := range []string{"CHECK_IN", "CHECK_OUT"} {
		if err := expectEvent(events, created.Employee.ID, action); err != nil {
			t.Fatalf("event %s: %v", action, err)
		}
	}

	status, body = call(t, http.MethodGet, "/api/attendance/employee/"+customID, user, nil)
	if status != http.StatusOK {
		t.Fatalf("history status %d: %s", status, body)
	}
	var history struct {
		Records []struct {
			Action string `json:"action"`
		} `json:"records"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	mustDecode(t, body, &history)
	if history.Pagination.Total != 2 || history.Records[0].Action != "CHECK_OUT" {
		t.Fatalf("unexpected history: %s", body)
	}

	status, body = call(t, http.MethodPost, "/api/export/csv", admin, map[string]string{"employeeId": customID})
	if status != http.StatusOK {
		t.Fatalf("export status %d: %s", status, body)
	}
	rows, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 || rows[1][0] != customID {
		t.Fatalf("unexpected export: %q", body)
	}

	status, body = call(t, http.MethodDelete, "/api/employees/"+customID, admin, nil)
	if status != http.StatusOK {
		t.Fatalf("delete status %d: %s", status, body)
	}
	var deleted struct {
		DeletedAttendance int `json:"deletedAttendance"`
	}
	mustDecode(t, body, &deleted)
	if deleted.DeletedAttendance != 2 {
		t.Fatalf("expected 2 cascaded events, got %d", deleted.DeletedAttendance)
	}
}

func TestConcurrentCheckIn(t *testing.T) {
	admin := login(t, adminEmail, adminPassword)
	customID := fmt.Sprintf("E2E-RACE-%d", time.Now().UnixNano())
	status, body := call(t, http.MethodPost, "/api/employees", admin, map[string]string{
		"customId":    customID,
		"name":        "Race Employee",
		"designation": "Tester",
	})
	if status != http.StatusCreated {
		t.Fatalf("create employee status %d: %s", status, body)
	}

	const workers = 8
	statuses := make(chan int, workers)
	for range workers {
		go func() {
			status, _ := call(t, http.MethodPost, "/api/attendance/check-in", admin, map[string]string{"employeeId": customID})
			statuses <- status
		}()
	}

	counts := map[int]int{}
	for range workers {
		counts[<-statuses]++
	}
	if counts[http.StatusCreated] != 1 || counts[http.StatusConflict] != workers-1 {
		t.Fatalf("unexpected status distribution: %v", counts)
	}
}

func TestRoleEnforcement(t *testing.T) {
	user := login(t, userEmail, userPassword)

	status, body := call(t, http.MethodGet, "/api/attendance/stats", user, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected forbidden, got %d: %s", status, body)
	}
	status, _ = call(t, http.MethodGet, "/api/employees", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized, got %d", status)
	}
}

func login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := call(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	if status != http.StatusOK {
		t.Fatalf("login %s status %d: %s", email, status, body)
	}
	var parsed struct {
		AccessToken string `json:"accessToken"`
	}
	mustDecode(t, body, &parsed)
	if parsed.AccessToken == "" {
		t.Fatalf("missing token in login response")
	}
	return parsed.AccessToken
}

func call(t *testing.T, method, path, token string, payload any) (int, string) {
	t.Helper()
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL()+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return do(t, req)
}

func do(t *testing.T, req *http.Request) (int, string) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Errorf("%s %s: %v", req.Method, req.URL.Path, err)
		return 0, ""
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Errorf("read body: %v", err)
	}
	return resp.StatusCode, string(data)
}

func checkInWithPhoto(t *testing.T, token, employeeID string) string {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("employeeId", employeeID); err != nil {
		t.Fatalf("write field: %v", err)
	}
	part, err := writer.CreateFormFile("photoUrl", "capture.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(pngBytes); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL()+"/api/attendance/check-in", &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	status, body := do(t, req)
	if status != http.StatusCreated {
		t.Fatalf("check-in status %d: %s", status, body)
	}
	var parsed struct {
		Attendance struct {
			PhotoURL string `json:"photoUrl"`
		} `json:"attendance"`
	}
	mustDecode(t, body, &parsed)
	return parsed.Attendance.PhotoURL
}

func mustDecode(t *testing.T, body string, dst any) {
	t.Helper()
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
}

type recordedEvent struct {
	EmployeeID string `json:"employeeId"`
	Action     string `json:"action"`
}

func subscribe(t *testing.T) <-chan recordedEvent {
	t.Helper()
	cfg := config.LoadConfig()
	queue, err := mq.Open(context.Background(), cfg.MQ)
	if err != nil || queue == nil {
		t.Fatalf("open mq: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = queue.Close()
	})

	events := make(chan recordedEvent, 16)
	go func() {
		_ = queue.Subscribe(ctx, eventsChannel, func(ctx context.Context, msg mq.Message) error {
			var event recordedEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				return nil
			}
			events <- event
			return nil
		})
	}()
	return events
}

func expectEvent(events <-chan recordedEvent, employeeID, action string) error {
	timeout := time.After(10 * time.Second)
	for {
		select {
		case event := <-events:
			if event.EmployeeID == employeeID && event.Action == action {
				return nil
			}
		case <-timeout:
			return errors.New("timed out waiting for event")
		}
	}
}

func setEnv(root string) {
	_ = os.Setenv("ENV", "test")
	_ = os.Setenv("TZ_NAME", "UTC")
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("RATE_LIMIT", "0")
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "attendance")
	_ = os.Setenv("DB_PASSWORD", "password")
	_ = os.Setenv("DB_NAME", "attendance_db")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("STORAGE_BACKEND", "minio")
	_ = os.Setenv("MINIO_ACCESS_KEY", "minioadmin")
	_ = os.Setenv("MINIO_SECRET_KEY", "minioadmin")
	_ = os.Setenv("MINIO_BUCKET", "attendance-e2e")
	_ = os.Setenv("MQ_BACKEND", "rabbitmq")
	_ = os.Setenv("MQ_CHANNEL", eventsChannel)
	_ = os.Setenv("SEED_FILE", filepath.Join(root, "development", "seed.yaml"))
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	migrationsURL := "file://" + filepath.Join(root, "internal", "db", "migrations")

	migrator, err := migrate.New(migrationsURL, db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func startServer(ctx context.Context) (*server.Server, error) {
	cfg := config.LoadConfig()
	srv, err := server.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func shutdown(srv *server.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
