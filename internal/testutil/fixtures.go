package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/service"
	"github.com/google/uuid"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	name     string
	password string
	roles    []domain.Role
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		name:     fmt.Sprintf("testuser_%s", uuid.New().String()[:8]),
		password: "testpassword123",
	}
}

// WithName sets the login name
func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.name = name
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// WithRoles sets the roles granted on creation
func (b *UserBuilder) WithRoles(roles ...domain.Role) *UserBuilder {
	b.roles = roles
	return b
}

// Build creates the user through the user service and returns it with the raw password
func (b *UserBuilder) Build(t *testing.T, users *service.UserService) (domain.User, string) {
	t.Helper()

	user, err := users.Create(context.Background(), service.CreateUserInput{
		Name:     b.name,
		Password: b.password,
		Roles:    b.roles,
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user, b.password
}

// BuildAndLogin creates the user and returns it with a session credential
func (b *UserBuilder) BuildAndLogin(t *testing.T, ts *TestServer) (domain.User, string) {
	t.Helper()

	user, password := b.Build(t, ts.Services.User)
	return user, ts.Login(t, user.Name, password)
}

// LoginResponse matches the API login response
type LoginResponse struct {
	User struct {
		ID    domain.ID     `json:"id"`
		Name  string        `json:"name"`
		Roles []domain.Role `json:"roles"`
	} `json:"user"`
	Token string `json:"token"`
}

// Login opens a session over HTTP and returns the credential
func (ts *TestServer) Login(t *testing.T, name, password string) string {
	t.Helper()

	resp := ts.Do(t, http.MethodPost, "/session", "", map[string]string{
		"name":     name,
		"password": password,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("login failed with %d: %s", resp.StatusCode, body)
	}

	var result LoginResponse
	AssertJSONResponse(t, resp, &result)
	return result.Token
}

// LoginAdmin opens a session for the seeded administrator
func (ts *TestServer) LoginAdmin(t *testing.T) string {
	t.Helper()
	return ts.Login(t, AdminName, AdminPassword)
}

// Do sends a JSON request to the API. An empty token sends no credential.
func (ts *TestServer) Do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.APIURL(path), reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// CreateDocument creates a document over HTTP and returns its id
func (ts *TestServer) CreateDocument(t *testing.T, token string, parentID domain.ID, title string) domain.ID {
	t.Helper()

	resp := ts.Do(t, http.MethodPost, "/documents", token, map[string]interface{}{
		"parentId": parentID,
		"title":    title,
		"content":  "",
	})
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusCreated)

	var result struct {
		ID domain.ID `json:"id"`
	}
	AssertJSONResponse(t, resp, &result)
	return result.ID
}
