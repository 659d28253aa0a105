package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/niftybulk/papertrade/internal/clients/backend"
	"github.com/niftybulk/papertrade/internal/domain"
	"github.com/niftybulk/papertrade/internal/modules/session"
	"github.com/niftybulk/papertrade/internal/modules/storage"
	"github.com/niftybulk/papertrade/internal/modules/wallet"
	testutil "github.com/niftybulk/papertrade/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setup wires the handler to a real backend client pointed at a fake API
func setup(t *testing.T, api http.HandlerFunc) (*chi.Mux, *session.Store) {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	db := testutil.NewTestDB(t, "store")
	store := session.NewStore(storage.NewRepository(db.Conn(), zerolog.Nop()), nil, zerolog.Nop())
	store.Load()

	client := backend.NewClient(server.URL, time.Second, store.Token, zerolog.Nop())
	svc := wallet.NewService(store, client, nil, zerolog.Nop())

	r := chi.NewRouter()
	NewHandler(svc, zerolog.Nop()).RegisterRoutes(r)
	return r, store
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestWalletHandlers(t *testing.T) {
	r, store := setup(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/users/wallet":
			_, _ = w.Write([]byte(`{"balance":1000,"transactions":[{"id":"w1","type":"add","amount":1000}]}`))
		case "/users/wallet/add":
			_, _ = w.Write([]byte(`{"balance":1250}`))
		case "/users/wallet/withdraw":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Withdrawals are paused"}`))
		}
	})

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/wallet/", "").Code)

	store.Login("tok", domain.User{ID: "u1", Role: domain.RoleUser, WalletBalance: 1000})

	rec := do(r, http.MethodGet, "/wallet/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, true, got["synced"])
	assert.Len(t, got["transactions"], 1)

	rec = do(r, http.MethodPost, "/wallet/add", `{"amount":250}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1250.0, store.User().WalletBalance)

	rec = do(r, http.MethodPost, "/wallet/withdraw", `{"amount":50}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Withdrawals are paused")
	assert.Equal(t, 1250.0, store.User().WalletBalance)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/wallet/add", `{"amount":0}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(r, http.MethodPost, "/wallet/withdraw", `{"amount":99999}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/wallet/add", `nope`).Code)
}

func TestGetWallet_BackendDown(t *testing.T) {
	r, store := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	store.Login("tok", domain.User{ID: "u1", Role: domain.RoleUser, WalletBalance: 321})

	rec := do(r, http.MethodGet, "/wallet/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, false, got["synced"])
	assert.Equal(t, 321.0, got["balance"])
}
