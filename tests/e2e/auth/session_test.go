package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/contactbox/internal/testutil"
	"github.com/nkiryanov/contactbox/tests/e2e"
)

const (
	RegisterURL = "/auth/register"
	LoginURL    = "/auth/login"
	RefreshURL  = "/auth/refresh"
	LogoutURL   = "/auth/logout"
	MeURL       = "/users/me"
)

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	return string(body)
}

func getMe(t *testing.T, srvURL string, access string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, srvURL+MeURL, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+access)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Full session lifecycle: register, login, refresh, logout
func Test_SessionLifecycle(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	e2e.ServeWithTx(pg.Pool, t, func(tx pgx.Tx, srvURL string, s e2e.Services) {
		// Register alice
		data := `{"username": "alice", "email": "alice@example.com", "password": "StrongEnoughPassword"}`
		resp, err := http.Post(srvURL+RegisterURL, "application/json", strings.NewReader(data))
		require.NoError(t, err)
		body := readBody(t, resp)
		require.Equalf(t, http.StatusCreated, resp.StatusCode, "not expected code. Body: %s", body)
		require.Contains(t, body, `"username":"alice"`)

		// Login with the fresh credentials
		resp, err = http.PostForm(srvURL+LoginURL, url.Values{
			"username": {"alice"},
			"password": {"StrongEnoughPassword"},
		})
		require.NoError(t, err)
		body = readBody(t, resp)
		require.Equalf(t, http.StatusCreated, resp.StatusCode, "not expected code. Body: %s", body)

		var pair tokenPair
		require.NoError(t, json.Unmarshal([]byte(body), &pair))
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
		require.Equal(t, "bearer", pair.TokenType)

		// The access token opens the protected profile
		resp = getMe(t, srvURL, pair.AccessToken)
		body = readBody(t, resp)
		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
		require.Contains(t, body, `"email":"alice@example.com"`)

		// Refresh rotates the pair
		data = `{"refresh_token": "` + pair.RefreshToken + `"}`
		resp, err = http.Post(srvURL+RefreshURL, "application/json", strings.NewReader(data))
		require.NoError(t, err)
		body = readBody(t, resp)
		require.Equalf(t, http.StatusCreated, resp.StatusCode, "not expected code. Body: %s", body)

		var rotated tokenPair
		require.NoError(t, json.Unmarshal([]byte(body), &rotated))
		require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken, "refresh token must rotate")

		// The old refresh token is burned
		resp, err = http.Post(srvURL+RefreshURL, "application/json", strings.NewReader(data))
		require.NoError(t, err)
		body = readBody(t, resp)
		require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
		require.Contains(t, body, "Invalid refresh token")

		// Logout with the rotated pair
		data = `{"refresh_token": "` + rotated.RefreshToken + `"}`
		req, err := http.NewRequest(http.MethodPost, srvURL+LogoutURL, strings.NewReader(data))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+rotated.AccessToken)

		resp, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		body = readBody(t, resp)
		require.Equalf(t, http.StatusNoContent, resp.StatusCode, "not expected code. Body: %s", body)

		// Access token is dead even though it has not expired yet
		resp = getMe(t, srvURL, rotated.AccessToken)
		body = readBody(t, resp)
		require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)

		// And so is the refresh token
		resp, err = http.Post(srvURL+RefreshURL, "application/json", strings.NewReader(data))
		require.NoError(t, err)
		body = readBody(t, resp)
		require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
	})
}

func Test_Login(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	e2e.ServeWithTx(pg.Pool, t, func(tx pgx.Tx, srvURL string, s e2e.Services) {
		t.Run("wrong password rejected", func(t *testing.T) {
			testutil.WithTx(tx, t, func(_ pgx.Tx) {
				_, err := s.AuthService.Register(t.Context(), "nk", "nk@example.com", "StrongEnoughPassword")
				require.NoError(t, err)

				resp, err := http.PostForm(srvURL+LoginURL, url.Values{
					"username": {"nk"},
					"password": {"WrongPassword"},
				})
				require.NoError(t, err)
				body := readBody(t, resp)

				require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
				require.JSONEq(t, `
					{
						"error": "service_error",
						"message": "Incorrect username or password"
					}`, string(body))
			})
		})

		t.Run("login by email ok", func(t *testing.T) {
			testutil.WithTx(tx, t, func(_ pgx.Tx) {
				_, err := s.AuthService.Register(t.Context(), "nk", "nk@example.com", "StrongEnoughPassword")
				require.NoError(t, err)

				resp, err := http.PostForm(srvURL+LoginURL, url.Values{
					"username": {"nk@example.com"},
					"password": {"StrongEnoughPassword"},
				})
				require.NoError(t, err)
				body := readBody(t, resp)

				require.Equalf(t, http.StatusCreated, resp.StatusCode, "not expected code. Body: %s", body)
			})
		})
	})
}
