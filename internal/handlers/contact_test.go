package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/contactbox/internal/service/auth"
	"github.com/nkiryanov/contactbox/internal/testutil"
)

func Test_ContactHandlers(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Register user, login and return the access token
	login := func(t *testing.T, authService *auth.AuthService, username string) string {
		t.Helper()

		_, err := authService.Register(t.Context(), username, username+"@example.com", "StrongEnoughPassword")
		require.NoError(t, err)
		pair, err := authService.Login(t.Context(), username, "StrongEnoughPassword", "", "")
		require.NoError(t, err)
		return pair.Access.Value
	}

	do := func(t *testing.T, method string, url string, access string, body string) *http.Response {
		t.Helper()

		req, err := http.NewRequest(method, url, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+access)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	contactJSON := `{
		"first_name": "Alice",
		"last_name": "Wonder",
		"email": "alice@example.com",
		"phone": "+12025550101",
		"birthday": "1990-05-15",
		"additional_info": "met at conference"
	}`

	t.Run("create contact ok", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			access := login(t, authService, "owner")

			resp := do(t, http.MethodPost, url+"/contacts", access, contactJSON)
			body := readBody(t, resp)

			require.Equalf(t, http.StatusCreated, resp.StatusCode, "not expected code. Body: %s", body)
			require.Contains(t, body, `"first_name":"Alice"`)
			require.Contains(t, body, `"birthday":"1990-05-15"`)
		})
	})

	t.Run("create contact unauthorized", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, _ *auth.AuthService) {
			resp, err := http.Post(url+"/contacts", "application/json", strings.NewReader(contactJSON))
			require.NoError(t, err)
			body := readBody(t, resp)

			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
		})
	})

	t.Run("create contact future birthday rejected", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			access := login(t, authService, "futureowner")
			data := strings.Replace(contactJSON, "1990-05-15", "2999-01-01", 1)

			resp := do(t, http.MethodPost, url+"/contacts", access, data)
			body := readBody(t, resp)

			require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", body)
		})
	})

	t.Run("create duplicate contact", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			access := login(t, authService, "dupowner")

			resp := do(t, http.MethodPost, url+"/contacts", access, contactJSON)
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			_ = readBody(t, resp)

			resp = do(t, http.MethodPost, url+"/contacts", access, contactJSON)
			body := readBody(t, resp)

			require.Equalf(t, http.StatusConflict, resp.StatusCode, "not expected code. Body: %s", body)
		})
	})

	t.Run("list and get contact", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			access := login(t, authService, "listowner")

			resp := do(t, http.MethodPost, url+"/contacts", access, contactJSON)
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			created := readBody(t, resp)

			resp = do(t, http.MethodGet, url+"/contacts", access, "")
			body := readBody(t, resp)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.Contains(t, body, `"first_name":"Alice"`)

			// Pull the id out of the create response
			id := extractID(t, created)
			resp = do(t, http.MethodGet, url+"/contacts/"+id, access, "")
			body = readBody(t, resp)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.Contains(t, body, id)
		})
	})

	t.Run("get contact of another user", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			ownerAccess := login(t, authService, "realowner")
			strangerAccess := login(t, authService, "stranger")

			resp := do(t, http.MethodPost, url+"/contacts", ownerAccess, contactJSON)
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			id := extractID(t, readBody(t, resp))

			resp = do(t, http.MethodGet, url+"/contacts/"+id, strangerAccess, "")
			body := readBody(t, resp)

			require.Equalf(t, http.StatusNotFound, resp.StatusCode, "not expected code. Body: %s", body)
		})
	})

	t.Run("get contact bad id", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			access := login(t, authService, "badidowner")

			resp := do(t, http.MethodGet, url+"/contacts/not-a-uuid", access, "")
			body := readBody(t, resp)

			require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", body)
		})
	})

	t.Run("update contact partial", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			access := login(t, authService, "updowner")

			resp := do(t, http.MethodPost, url+"/contacts", access, contactJSON)
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			id := extractID(t, readBody(t, resp))

			resp = do(t, http.MethodPut, url+"/contacts/"+id, access, `{"first_name": "Alicia"}`)
			body := readBody(t, resp)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.Contains(t, body, `"first_name":"Alicia"`)
			require.Contains(t, body, `"last_name":"Wonder"`, "untouched fields should stay")
		})
	})

	t.Run("delete contact", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			access := login(t, authService, "delowner")

			resp := do(t, http.MethodPost, url+"/contacts", access, contactJSON)
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			id := extractID(t, readBody(t, resp))

			resp = do(t, http.MethodDelete, url+"/contacts/"+id, access, "")
			body := readBody(t, resp)
			require.Equalf(t, http.StatusNoContent, resp.StatusCode, "not expected code. Body: %s", body)

			resp = do(t, http.MethodGet, url+"/contacts/"+id, access, "")
			body = readBody(t, resp)
			require.Equalf(t, http.StatusNotFound, resp.StatusCode, "not expected code. Body: %s", body)
		})
	})

	t.Run("search contacts", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			access := login(t, authService, "searchowner")

			resp := do(t, http.MethodPost, url+"/contacts", access, contactJSON)
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			_ = readBody(t, resp)

			resp = do(t, http.MethodGet, url+"/contacts/search?q=alice", access, "")
			body := readBody(t, resp)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.Contains(t, body, `"first_name":"Alice"`)

			resp = do(t, http.MethodGet, url+"/contacts/search?q=nosuchperson", access, "")
			body = readBody(t, resp)

			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.JSONEq(t, `[]`, body, "no matches should return empty list")
		})
	})

	t.Run("upcoming birthdays empty", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			access := login(t, authService, "bdayowner")

			resp := do(t, http.MethodGet, url+"/contacts/birthdays", access, "")
			body := readBody(t, resp)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `[]`, body)
		})
	})
}

// extractID pulls the "id" value out of a json object body
func extractID(t *testing.T, body string) string {
	t.Helper()

	_, after, found := strings.Cut(body, `"id":"`)
	require.True(t, found, "body should contain an id. Body: %s", body)
	id, _, found := strings.Cut(after, `"`)
	require.True(t, found)
	return id
}
