//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Shavez90/Task-api/config"
	"github.com/Shavez90/Task-api/internal/db"
	"github.com/Shavez90/Task-api/internal/server"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	setTestEnv()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

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

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestTaskLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	owner := fmt.Sprintf("owner_%d", time.Now().UnixNano())
	other := fmt.Sprintf("other_%d", time.Now().UnixNano())
	password := "testpass123!"

	registerUser(t, baseURL, owner, password)
	registerUser(t, baseURL, other, password)
	ownerToken := loginUser(t, baseURL, owner, password)
	otherToken := loginUser(t, baseURL, other, password)

	created := createTask(t, baseURL, ownerToken, "Buy milk", "Two liters, whole.")
	if created.ID == "" {
		t.Fatalf("expected task id to be set")
	}
	if created.Title != "Buy milk" {
		t.Fatalf("unexpected task title: %q", created.Title)
	}

	fetched := getTask(t, baseURL, ownerToken, created.ID, http.StatusOK)
	if fetched.ID != created.ID {
		t.Fatalf("unexpected task id: %q", fetched.ID)
	}

	// Another authenticated user is refused, not told the task is missing.
	status := rawStatus(t, baseURL, otherToken, http.MethodGet, "/tasks/"+created.ID, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign task, got %d", status)
	}

	updated := updateTask(t, baseURL, ownerToken, created.ID, "Buy milk and eggs", "Two liters, a dozen eggs.")
	if updated.Title != "Buy milk and eggs" {
		t.Fatalf("unexpected updated title: %q", updated.Title)
	}

	tasks := listTasks(t, baseURL, ownerToken)
	if len(tasks) != 1 || tasks[0].ID != created.ID {
		t.Fatalf("unexpected task list: %+v", tasks)
	}

	deleteTask(t, baseURL, ownerToken, created.ID)

	status = rawStatus(t, baseURL, ownerToken, http.MethodGet, "/tasks/"+created.ID, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", status)
	}
	status = rawStatus(t, baseURL, ownerToken, http.MethodDelete, "/tasks/"+created.ID, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", status)
	}
}

func TestAuthRejections(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)

	status := rawStatus(t, baseURL, "", http.MethodGet, "/tasks/", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
	status = rawStatus(t, baseURL, "not-a-token", http.MethodGet, "/tasks/", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", status)
	}
}

type taskResponse struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Title   string `json:"title"`
	Body    string `json:"body"`
}

type taskListResponse struct {
	Items []taskResponse `json:"items"`
	Total int            `json:"total"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func registerUser(t *testing.T, baseURL, username, password string) {
	t.Helper()

	payload := map[string]string{
		"username": username,
		"email":    fmt.Sprintf("%s@example.com", username),
		"password": password,
	}
	resp := doJSON(t, baseURL, "", http.MethodPost, "/auth/register", payload)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("register status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}

func loginUser(t *testing.T, baseURL, username, password string) string {
	t.Helper()

	payload := map[string]string{
		"username": username,
		"password": password,
	}
	resp := doJSON(t, baseURL, "", http.MethodPost, "/auth/login", payload)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("login status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if parsed.Token == "" {
		t.Fatalf("missing token in login response")
	}
	return parsed.Token
}

func createTask(t *testing.T, baseURL, token, title, body string) taskResponse {
	t.Helper()

	payload := map[string]string{"title": title, "body": body}
	resp := doJSON(t, baseURL, token, http.MethodPost, "/tasks/", payload)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("create task status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed taskResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode task response: %v", err)
	}
	return parsed
}

func getTask(t *testing.T, baseURL, token, id string, wantStatus int) taskResponse {
	t.Helper()

	resp := doJSON(t, baseURL, token, http.MethodGet, "/tasks/"+id, nil)
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("get task status %d, want %d: %s", resp.StatusCode, wantStatus, strings.TrimSpace(string(msg)))
	}

	var parsed taskResponse
	if wantStatus == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			t.Fatalf("decode task response: %v", err)
		}
	}
	return parsed
}

func updateTask(t *testing.T, baseURL, token, id, title, body string) taskResponse {
	t.Helper()

	payload := map[string]string{"title": title, "body": body}
	resp := doJSON(t, baseURL, token, http.MethodPut, "/tasks/"+id, payload)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("update task status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed taskResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode task response: %v", err)
	}
	return parsed
}

func listTasks(t *testing.T, baseURL, token string) []taskResponse {
	t.Helper()

	resp := doJSON(t, baseURL, token, http.MethodGet, "/tasks/", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("list tasks status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed taskListResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode task list: %v", err)
	}
	return parsed.Items
}

func deleteTask(t *testing.T, baseURL, token, id string) {
	t.Helper()

	resp := doJSON(t, baseURL, token, http.MethodDelete, "/tasks/"+id, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("delete task status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}

func rawStatus(t *testing.T, baseURL, token, method, path string, payload any) int {
	t.Helper()

	resp := doJSON(t, baseURL, token, method, path, payload)
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func doJSON(t *testing.T, baseURL, token, method, path string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.DSN(cfg))
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
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, db.DSN(cfg))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func setTestEnv() {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "taskapi")
	_ = os.Setenv("DB_PASSWORD", "taskapi")
	_ = os.Setenv("DB_NAME", "taskapi")
	_ = os.Setenv("DB_USE_SSL", "false")
}

func startServer() (*server.Server, error) {
	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
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
