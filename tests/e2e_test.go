package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type splitLedgerContainer struct {
	testcontainers.Container
	URI string
}

func setupSplitLedger(ctx context.Context, t *testing.T) (*splitLedgerContainer, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "test-secret"
	}

	natPort := nat.Port(port + "/tcp")

	req := testcontainers.ContainerRequest{
		FromDockerfile: testcontainers.FromDockerfile{
			Context:    "../",
			Dockerfile: "Dockerfile",
		},
		ExposedPorts: []string{string(natPort)},
		Env: map[string]string{
			"PORT":         port,
			"GIN_MODE":     "release",
			"DATABASE_URL": ":memory:",
			"JWT_SECRET":   jwtSecret,
		},
		WaitingFor: wait.ForHTTP("/health").
			WithPort(natPort).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})

	var ledgerC *splitLedgerContainer
	if container != nil {
		ledgerC = &splitLedgerContainer{Container: container}
	}
	if err != nil {
		return ledgerC, err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return ledgerC, err
	}

	mappedPort, err := container.MappedPort(ctx, natPort)
	if err != nil {
		return ledgerC, err
	}

	ledgerC.URI = fmt.Sprintf("http://%s:%s", host, mappedPort.Port())
	return ledgerC, nil
}

func doJSON(t *testing.T, method, url, apiKey string, body string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var result map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			t.Logf("non-JSON response (status=%d): %s", resp.StatusCode, string(raw))
		}
	}
	return resp.StatusCode, result
}

// signUp registers a user and returns its id and raw API key.
func signUp(t *testing.T, baseURL, name, email string) (string, string) {
	t.Helper()

	body := fmt.Sprintf(`{"name": %q, "email": %q, "password": "password123"}`, name, email)
	status, result := doJSON(t, http.MethodPost, baseURL+"/api/v1/users", "", body)
	require.Equal(t, http.StatusCreated, status)

	user := result["user"].(map[string]interface{})
	apiKey := result["api_key"].(string)
	require.NotEmpty(t, apiKey)

	return user["id"].(string), apiKey
}

func TestE2E_SignupAndExpenseFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E test")
	}

	ctx := context.Background()
	ledgerC, err := setupSplitLedger(ctx, t)
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, ledgerC)

	aliceID, aliceKey := signUp(t, ledgerC.URI, "Alice", "alice@example.com")
	bobID, _ := signUp(t, ledgerC.URI, "Bob", "bob@example.com")

	// Create a group; the creator becomes its admin.
	status, result := doJSON(t, http.MethodPost, ledgerC.URI+"/api/v1/groups", aliceKey,
		`{"name": "Roommates", "description": "Apartment 4B"}`)
	require.Equal(t, http.StatusCreated, status)
	group := result["group"].(map[string]interface{})
	groupID := group["id"].(string)

	members := group["members"].([]interface{})
	require.Len(t, members, 1)
	assert.Equal(t, "admin", members[0].(map[string]interface{})["role"].(string))

	// Add Bob as a plain member.
	status, result = doJSON(t, http.MethodPost, ledgerC.URI+"/api/v1/groups/"+groupID+"/members", aliceKey,
		fmt.Sprintf(`{"user_id": %q}`, bobID))
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "member", result["member"].(map[string]interface{})["role"].(string))

	// Record a reconciled expense.
	expenseBody := fmt.Sprintf(`{
		"amount": 150.00,
		"description": "Groceries",
		"category": "Food",
		"participants": [
			{"user_id": %q, "share": 75.00, "paid": 150.00},
			{"user_id": %q, "share": 75.00}
		]
	}`, aliceID, bobID)
	status, result = doJSON(t, http.MethodPost, ledgerC.URI+"/api/v1/groups/"+groupID+"/expenses", aliceKey, expenseBody)
	require.Equal(t, http.StatusCreated, status)
	expense := result["expense"].(map[string]interface{})
	expenseID := expense["id"].(string)
	assert.Equal(t, 150.0, expense["amount"].(float64))

	// Balances are derived per participant.
	status, result = doJSON(t, http.MethodGet, ledgerC.URI+"/api/v1/expenses/"+expenseID+"/participants", "", "")
	require.Equal(t, http.StatusOK, status)
	participants := result["participants"].([]interface{})
	require.Len(t, participants, 2)
	for _, p := range participants {
		entry := p.(map[string]interface{})
		switch entry["user_id"].(string) {
		case aliceID:
			assert.Equal(t, 75.0, entry["balance"].(float64))
		case bobID:
			assert.Equal(t, -75.0, entry["balance"].(float64))
		}
	}
}

func TestE2E_ShareMismatchRejected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E test")
	}

	ctx := context.Background()
	ledgerC, err := setupSplitLedger(ctx, t)
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, ledgerC)

	aliceID, aliceKey := signUp(t, ledgerC.URI, "Alice", "alice@example.com")

	status, result := doJSON(t, http.MethodPost, ledgerC.URI+"/api/v1/groups", aliceKey,
		`{"name": "Solo"}`)
	require.Equal(t, http.StatusCreated, status)
	groupID := result["group"].(map[string]interface{})["id"].(string)

	badBody := fmt.Sprintf(`{
		"amount": 100.00,
		"description": "Dinner",
		"participants": [{"user_id": %q, "share": 50.00}]
	}`, aliceID)
	status, result = doJSON(t, http.MethodPost, ledgerC.URI+"/api/v1/groups/"+groupID+"/expenses", aliceKey, badBody)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, result["error"].(string), "must equal expense amount")

	// Nothing was persisted.
	status, result = doJSON(t, http.MethodGet, ledgerC.URI+"/api/v1/groups/"+groupID+"/expenses", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, result["expenses"].([]interface{}))
}

func TestE2E_AuthRequired(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E test")
	}

	ctx := context.Background()
	ledgerC, err := setupSplitLedger(ctx, t)
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, ledgerC)

	t.Run("reads are public", func(t *testing.T) {
		status, _ := doJSON(t, http.MethodGet, ledgerC.URI+"/api/v1/groups", "", "")
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("mutations without credentials return 401", func(t *testing.T) {
		status, _ := doJSON(t, http.MethodPost, ledgerC.URI+"/api/v1/groups", "", `{"name": "Nope"}`)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("invalid API key returns 401", func(t *testing.T) {
		status, _ := doJSON(t, http.MethodPost, ledgerC.URI+"/api/v1/groups", "bogus-key", `{"name": "Nope"}`)
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestE2E_LoginToken(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E test")
	}

	ctx := context.Background()
	ledgerC, err := setupSplitLedger(ctx, t)
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, ledgerC)

	signUp(t, ledgerC.URI, "Alice", "alice@example.com")

	status, result := doJSON(t, http.MethodPost, ledgerC.URI+"/api/v1/auth/login", "",
		`{"email": "alice@example.com", "password": "password123"}`)
	require.Equal(t, http.StatusOK, status)
	token := result["token"].(string)
	require.NotEmpty(t, token)

	// The session token drives the same endpoints as an API key.
	req, err := http.NewRequest(http.MethodPost, ledgerC.URI+"/api/v1/groups", strings.NewReader(`{"name": "Via JWT"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestE2E_AuthorizationBoundaries(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E test")
	}

	ctx := context.Background()
	ledgerC, err := setupSplitLedger(ctx, t)
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, ledgerC)

	_, aliceKey := signUp(t, ledgerC.URI, "Alice", "alice@example.com")
	bobID, bobKey := signUp(t, ledgerC.URI, "Bob", "bob@example.com")

	status, result := doJSON(t, http.MethodPost, ledgerC.URI+"/api/v1/groups", aliceKey,
		`{"name": "Roommates"}`)
	require.Equal(t, http.StatusCreated, status)
	groupID := result["group"].(map[string]interface{})["id"].(string)

	t.Run("non-admin cannot add members", func(t *testing.T) {
		status, _ := doJSON(t, http.MethodPost, ledgerC.URI+"/api/v1/groups/"+groupID+"/members", bobKey,
			fmt.Sprintf(`{"user_id": %q}`, bobID))
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("non-member cannot record expenses", func(t *testing.T) {
		status, _ := doJSON(t, http.MethodPost, ledgerC.URI+"/api/v1/groups/"+groupID+"/expenses", bobKey,
			`{"amount": 10.00, "description": "Sneaky"}`)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("last admin cannot leave", func(t *testing.T) {
		status, _ = doJSON(t, http.MethodPost, ledgerC.URI+"/api/v1/groups/"+groupID+"/members", aliceKey,
			fmt.Sprintf(`{"user_id": %q}`, bobID))
		require.Equal(t, http.StatusCreated, status)

		aliceID := func() string {
			s, r := doJSON(t, http.MethodGet, ledgerC.URI+"/api/v1/groups/"+groupID+"/members", "", "")
			require.Equal(t, http.StatusOK, s)
			for _, m := range r["members"].([]interface{}) {
				entry := m.(map[string]interface{})
				if entry["role"].(string) == "admin" {
					return entry["user_id"].(string)
				}
			}
			t.Fatal("no admin in group")
			return ""
		}()

		status, result := doJSON(t, http.MethodDelete, ledgerC.URI+"/api/v1/groups/"+groupID+"/members/"+aliceID, aliceKey, "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, result["error"].(string), "last admin")
	})
}
