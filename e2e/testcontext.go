// Package e2e runs black-box acceptance tests against a running server.
// Configuration comes from the environment: CINEMATCH_BASE_URL points at the
// server, DATABASE_URL at its database (for seeding groups and members), and
// JWT_SIGNING_KEY must match the server's key so the suite can mint member
// tokens the way the external account system would.
package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// TestContext carries per-scenario state: the seeded group, its members'
// tokens, the last HTTP response, and any open event subscriptions.
type TestContext struct {
	baseURL    string
	db         *sql.DB
	signingKey []byte
	client     *http.Client

	groupID   uuid.UUID
	groupCode string
	members   map[string]uuid.UUID
	tokens    map[string]string

	lastStatus int
	lastBody   map[string]any

	sockets       map[string]*websocket.Conn
	lastCloseCode int
}

func NewTestContext() (*TestContext, error) {
	baseURL := os.Getenv("CINEMATCH_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = "postgres://localhost:5432/cinematch?sslmode=disable"
	}
	signingKey := os.Getenv("JWT_SIGNING_KEY")
	if signingKey == "" {
		signingKey = "dev-secret-key-change-in-production"
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &TestContext{
		baseURL:    strings.TrimRight(baseURL, "/"),
		db:         db,
		signingKey: []byte(signingKey),
		client:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Reset clears per-scenario state and closes any open subscriptions.
func (tc *TestContext) Reset() {
	for _, conn := range tc.sockets {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
	tc.sockets = make(map[string]*websocket.Conn)
	tc.members = make(map[string]uuid.UUID)
	tc.tokens = make(map[string]string)
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastCloseCode = 0
}

// SeedGroup creates a fresh group with the named members. Every scenario gets
// its own group code so scenarios never interfere.
func (tc *TestContext) SeedGroup(code string, names []string) error {
	tc.groupID = uuid.New()
	tc.groupCode = code + "-" + uuid.NewString()[:8]

	ctx := context.Background()
	if _, err := tc.db.ExecContext(ctx,
		`INSERT INTO groups (id, code, is_active, created_at) VALUES ($1, $2, TRUE, NOW())`,
		tc.groupID, tc.groupCode); err != nil {
		return fmt.Errorf("seed group: %w", err)
	}

	for _, name := range names {
		memberID := uuid.New()
		if _, err := tc.db.ExecContext(ctx,
			`INSERT INTO group_members (group_id, member_id, is_active, joined_at) VALUES ($1, $2, TRUE, NOW())`,
			tc.groupID, memberID); err != nil {
			return fmt.Errorf("seed member %s: %w", name, err)
		}
		tc.members[name] = memberID

		token, err := tc.mintToken(memberID)
		if err != nil {
			return err
		}
		tc.tokens[name] = token
	}
	return nil
}

// mintToken signs a member token the way the account system does.
func (tc *TestContext) mintToken(memberID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"member_id": memberID.String(),
		"exp":       time.Now().Add(time.Hour).Unix(),
		"iat":       time.Now().Unix(),
		"iss":       "cinematch",
		"jti":       uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tc.signingKey)
	if err != nil {
		return "", fmt.Errorf("mint token: %w", err)
	}
	return token, nil
}

// StrangerToken mints a valid token for a member who belongs to no group.
func (tc *TestContext) StrangerToken() (string, error) {
	return tc.mintToken(uuid.New())
}

// GroupCode returns the seeded group's join code.
func (tc *TestContext) GroupCode() string { return tc.groupCode }

// TokenFor returns the named member's bearer token.
func (tc *TestContext) TokenFor(name string) (string, error) {
	token, ok := tc.tokens[name]
	if !ok {
		return "", fmt.Errorf("no seeded member named %q", name)
	}
	return token, nil
}

// POST sends an authenticated JSON request and records the response.
func (tc *TestContext) POST(path, token string, body any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, tc.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return tc.do(req)
}

// GET sends an authenticated request and records the response.
func (tc *TestContext) GET(path, token string) error {
	req, err := http.NewRequest(http.MethodGet, tc.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody = nil
	_ = json.NewDecoder(resp.Body).Decode(&tc.lastBody)
	return nil
}

// LastStatus returns the status code of the last HTTP response.
func (tc *TestContext) LastStatus() int { return tc.lastStatus }

// ResponseField reads a top-level field from the last JSON response.
func (tc *TestContext) ResponseField(field string) (any, error) {
	if tc.lastBody == nil {
		return nil, fmt.Errorf("no JSON response recorded")
	}
	value, ok := tc.lastBody[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q", field)
	}
	return value, nil
}

// Subscribe opens the group's event feed as the named connection and waits
// for the connection_established confirmation.
func (tc *TestContext) Subscribe(name, token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, tc.wsURL(token), nil)
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}

	var event map[string]any
	if err := wsjson.Read(ctx, conn, &event); err != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		return fmt.Errorf("read confirmation: %w", err)
	}
	if event["type"] != "connection_established" {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		return fmt.Errorf("expected connection_established, got %v", event["type"])
	}
	tc.sockets[name] = conn
	return nil
}

// SubscribeExpectingClose opens the feed with the given token (empty for
// anonymous) and records the close code the server responds with.
func (tc *TestContext) SubscribeExpectingClose(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, tc.wsURL(token), nil)
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	var event map[string]any
	readErr := wsjson.Read(ctx, conn, &event)
	if readErr == nil {
		return fmt.Errorf("expected the server to close the connection, got event %v", event)
	}
	tc.lastCloseCode = int(websocket.CloseStatus(readErr))
	return nil
}

// NextEvent reads one event from the named connection.
func (tc *TestContext) NextEvent(name string) (map[string]any, error) {
	conn, ok := tc.sockets[name]
	if !ok {
		return nil, fmt.Errorf("no open subscription named %q", name)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var event map[string]any
	if err := wsjson.Read(ctx, conn, &event); err != nil {
		return nil, fmt.Errorf("read event: %w", err)
	}
	return event, nil
}

// LastCloseCode returns the close code of the last rejected subscription.
func (tc *TestContext) LastCloseCode() int { return tc.lastCloseCode }

func (tc *TestContext) wsURL(token string) string {
	url := strings.Replace(tc.baseURL, "http", "ws", 1) + "/ws/groups/" + tc.groupCode
	if token != "" {
		url += "?token=" + token
	}
	return url
}
