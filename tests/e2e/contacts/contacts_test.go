package contacts

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/contactbox/internal/testutil"
	"github.com/nkiryanov/contactbox/tests/e2e"
)

const ContactsURL = "/contacts"

type contactResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Birthday  string `json:"birthday"`
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	return string(body)
}

// Register user, login and return the access token
func login(t *testing.T, s e2e.Services, username string) string {
	t.Helper()

	_, err := s.AuthService.Register(t.Context(), username, username+"@example.com", "StrongEnoughPassword")
	require.NoError(t, err)
	pair, err := s.AuthService.Login(t.Context(), username, "StrongEnoughPassword", "", "")
	require.NoError(t, err)
	return pair.Access.Value
}

func do(t *testing.T, method string, url string, access string, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+access)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Full contact lifecycle: create, read, update, search, delete
func Test_ContactLifecycle(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	e2e.ServeWithTx(pg.Pool, t, func(tx pgx.Tx, srvURL string, s e2e.Services) {
		access := login(t, s, "alice")

		// Create a contact
		data := `{
			"first_name": "Bob",
			"last_name": "Smith",
			"email": "bob@example.com",
			"phone": "+12025550101",
			"birthday": "1985-03-20",
			"additional_info": "college friend"
		}`
		resp := do(t, http.MethodPost, srvURL+ContactsURL, access, data)
		body := readBody(t, resp)
		require.Equalf(t, http.StatusCreated, resp.StatusCode, "not expected code. Body: %s", body)

		var created contactResponse
		require.NoError(t, json.Unmarshal([]byte(body), &created))
		require.NotEmpty(t, created.ID)
		require.Equal(t, "1985-03-20", created.Birthday)

		// It shows up in the list
		resp = do(t, http.MethodGet, srvURL+ContactsURL, access, "")
		body = readBody(t, resp)
		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
		require.Contains(t, body, created.ID)

		// And can be fetched directly
		resp = do(t, http.MethodGet, srvURL+ContactsURL+"/"+created.ID, access, "")
		body = readBody(t, resp)
		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
		require.Contains(t, body, `"first_name":"Bob"`)

		// Partial update changes only what was sent
		resp = do(t, http.MethodPut, srvURL+ContactsURL+"/"+created.ID, access, `{"phone": "+12025550999"}`)
		body = readBody(t, resp)
		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
		require.Contains(t, body, `"phone":"+12025550999"`)
		require.Contains(t, body, `"first_name":"Bob"`)

		// Search finds it by name fragment
		resp = do(t, http.MethodGet, srvURL+ContactsURL+"/search?q=smi", access, "")
		body = readBody(t, resp)
		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
		require.Contains(t, body, created.ID)

		// Delete and the contact is gone
		resp = do(t, http.MethodDelete, srvURL+ContactsURL+"/"+created.ID, access, "")
		body = readBody(t, resp)
		require.Equalf(t, http.StatusNoContent, resp.StatusCode, "not expected code. Body: %s", body)

		resp = do(t, http.MethodGet, srvURL+ContactsURL+"/"+created.ID, access, "")
		body = readBody(t, resp)
		require.Equalf(t, http.StatusNotFound, resp.StatusCode, "not expected code. Body: %s", body)
	})
}

func Test_ContactIsolation(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	e2e.ServeWithTx(pg.Pool, t, func(tx pgx.Tx, srvURL string, s e2e.Services) {
		aliceAccess := login(t, s, "alice")
		bobAccess := login(t, s, "bob")

		data := `{
			"first_name": "Carol",
			"last_name": "Jones",
			"email": "carol@example.com",
			"phone": "+12025550102",
			"birthday": "1992-07-01"
		}`
		resp := do(t, http.MethodPost, srvURL+ContactsURL, aliceAccess, data)
		body := readBody(t, resp)
		require.Equalf(t, http.StatusCreated, resp.StatusCode, "not expected code. Body: %s", body)

		var created contactResponse
		require.NoError(t, json.Unmarshal([]byte(body), &created))

		// Bob sees an empty book
		resp = do(t, http.MethodGet, srvURL+ContactsURL, bobAccess, "")
		body = readBody(t, resp)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.JSONEq(t, `[]`, body, "contacts of other users must be invisible")

		// And can not reach the contact by id
		resp = do(t, http.MethodGet, srvURL+ContactsURL+"/"+created.ID, bobAccess, "")
		body = readBody(t, resp)
		require.Equalf(t, http.StatusNotFound, resp.StatusCode, "not expected code. Body: %s", body)

		resp = do(t, http.MethodDelete, srvURL+ContactsURL+"/"+created.ID, bobAccess, "")
		body = readBody(t, resp)
		require.Equalf(t, http.StatusNotFound, resp.StatusCode, "not expected code. Body: %s", body)

		// Alice still owns it
		resp = do(t, http.MethodGet, srvURL+ContactsURL+"/"+created.ID, aliceAccess, "")
		body = readBody(t, resp)
		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
	})
}

func Test_UpcomingBirthdays(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	e2e.ServeWithTx(pg.Pool, t, func(tx pgx.Tx, srvURL string, s e2e.Services) {
		access := login(t, s, "alice")

		// No contacts yet, no birthdays
		resp := do(t, http.MethodGet, srvURL+ContactsURL+"/birthdays", access, "")
		body := readBody(t, resp)
		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
		require.JSONEq(t, `[]`, body)
	})
}
