package testutil

import (
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dom/doctree/internal/api"
	"github.com/dom/doctree/internal/config"
	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/repository"
	"github.com/dom/doctree/internal/repository/jsonfile"
	"github.com/dom/doctree/internal/repository/memory"
	"github.com/dom/doctree/internal/service"
	"github.com/dom/doctree/internal/websocket"
	"golang.org/x/crypto/bcrypt"
)

const (
	AdminName     = "Administrador"
	AdminPassword = "admin-password"
)

// TestConfig returns a configuration rooted in dataDir
func TestConfig(dataDir string) *config.Config {
	return &config.Config{
		Port:                 "0", // Random port
		Environment:          "test",
		LogLevel:             "error",
		CORSOrigin:           "*",
		SiteDir:              filepath.Join(dataDir, "sitio"),
		DataDir:              dataDir,
		DocumentsFile:        "documentos.json",
		UsersFile:            "usuarios.json",
		AdminName:            AdminName,
		AdminPassword:        AdminPassword,
		JWTSecret:            "test-jwt-secret-key-for-testing-only",
		SessionTTL:           time.Hour,
		SessionSweepInterval: time.Minute,
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	Repos    *repository.Repositories
	Services *service.Services
	Hub      *websocket.Hub
	Config   *config.Config
}

// NewTestServer creates a complete test server backed by a temp directory
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	// Fast digests for tests
	service.PasswordCost = bcrypt.MinCost

	cfg := TestConfig(t.TempDir())
	if err := os.MkdirAll(cfg.SiteDir, 0o755); err != nil {
		t.Fatalf("failed to create site dir: %v", err)
	}

	users, err := jsonfile.NewUserRepository(cfg.UsersPath(), service.SeedAdministrator(cfg.AdminName, cfg.AdminPassword))
	if err != nil {
		t.Fatalf("failed to load users: %v", err)
	}
	repos := &repository.Repositories{
		Document: jsonfile.NewDocumentRepository(cfg.DocumentsPath()),
		User:     users,
		Session:  memory.NewSessionRepository(cfg.SessionTTL),
	}

	hub := websocket.NewHub()
	go hub.Run()

	services := service.NewServices(repos, hub, cfg)
	hub.SetAuthorizer(services.Auth.Permits(domain.RoleEditor))
	router := api.NewRouter(services, hub, cfg)

	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		Repos:    repos,
		Services: services,
		Hub:      hub,
		Config:   cfg,
	}

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}

// WebSocketURL returns the change feed URL with the credential as query token
func (ts *TestServer) WebSocketURL(token string) string {
	wsURL := "ws" + ts.Server.URL[4:] // Replace "http" with "ws"
	return fmt.Sprintf("%s/api/v1/ws?token=%s", wsURL, token)
}
