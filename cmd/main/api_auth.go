package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

type contextKey string

const contextKeyPermissions = contextKey("permissions")

const authHeader = "addr-auth"

// Permissions holds the authentication info for a request. KeyID is zero
// while the API is open.
type Permissions struct {
	KeyID  int64
	Scopes ScopeSet
}

// AuthAPI serves /api/auth and guards the rest of the admin API.
type AuthAPI struct {
	keys   *KeyStore
	logger *slog.Logger
}

func NewAuthAPI(keys *KeyStore, logger *slog.Logger) *AuthAPI {
	return &AuthAPI{
		keys:   keys,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api/auth endpoints on a standard http.ServeMux.
func (a *AuthAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/me", a.handleCheckMe)
	mux.HandleFunc("/api/auth/keys", a.handleKeys)
	mux.HandleFunc("/api/auth/keys/", a.handleKeyByID)
}

// CreateKeyRequest is the expected JSON body for creating a new key.
type CreateKeyRequest struct {
	Scopes      []string `json:"scopes"`
	Description string   `json:"description"`
}

// CreateKeyResponse is the JSON response after creating a key. RawKey is
// only ever returned here.
type CreateKeyResponse struct {
	ID     int64    `json:"id"`
	RawKey string   `json:"raw_key"`
	Scopes []string `json:"scopes"`
}

// MeResponse describes the key used for the request.
type MeResponse struct {
	KeyID  int64    `json:"key_id,omitempty"`
	Open   bool     `json:"open"`
	Scopes []string `json:"scopes"`
}

// Authenticate checks for a valid key in the "addr-auth" header.
// While no key exists the API is open, so the first key can be created.
func (a *AuthAPI) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count, err := a.keys.Count(r.Context())
		if err != nil {
			a.logger.Error("Authenticate failed to count keys", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		perms := &Permissions{Scopes: ScopeSet{scopeMaster: {}}}
		if count > 0 {
			rawKey := r.Header.Get(authHeader)
			if rawKey == "" {
				respondWithError(w, http.StatusUnauthorized, "Invalid or missing API key")
				return
			}
			perms.KeyID, perms.Scopes, err = a.keys.Lookup(r.Context(), rawKey)
			if errors.Is(err, errKeyNotFound) {
				respondWithError(w, http.StatusUnauthorized, "Invalid or missing API key")
				return
			}
			if err != nil {
				a.logger.Error("Authenticate failed to look up API key", "error", err)
				respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}
		}

		ctx := context.WithValue(r.Context(), contextKeyPermissions, perms)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *AuthAPI) handleKeys(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listKeys(w, r)
	case http.MethodPost:
		a.createKey(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (a *AuthAPI) handleKeyByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/auth/keys/"), "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid key ID format in URL")
		return
	}

	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed for this key resource")
		return
	}
	a.deleteKey(w, r, id)
}

func (a *AuthAPI) handleCheckMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	perms := permissionsFrom(r)
	if perms == nil {
		respondWithError(w, http.StatusUnauthorized, "Invalid or missing API key")
		return
	}
	respondWithJSON(w, http.StatusOK, MeResponse{
		KeyID:  perms.KeyID,
		Open:   perms.KeyID == 0,
		Scopes: perms.Scopes.List(),
	})
}

func (a *AuthAPI) listKeys(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, scopeAuthManage) {
		forbidden(w, scopeAuthManage)
		return
	}

	keys, err := a.keys.List(r.Context())
	if err != nil {
		a.logger.Error("Failed to list API keys", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Database query failed")
		return
	}
	respondWithJSON(w, http.StatusOK, keys)
}

func (a *AuthAPI) createKey(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, scopeAuthManage) {
		forbidden(w, scopeAuthManage)
		return
	}

	var req CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	perms := permissionsFrom(r)
	scopes, err := NewScopeSet(req.Scopes)
	switch {
	case err != nil && perms.KeyID != 0:
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		// The first key is a master key whatever it asks for.
		scopes = ScopeSet{scopeMaster: {}}
	case !perms.Scopes.Covers(scopes):
		respondWithError(w, http.StatusForbidden, "Forbidden: a key cannot grant scopes it does not hold")
		return
	}

	key, rawKey, err := a.keys.Create(r.Context(), scopes, req.Description)
	if err != nil {
		a.logger.Error("Failed to create API key", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to save new key")
		return
	}

	a.logger.Info("API key created", "id", key.ID, "scopes", key.Scopes, "by", perms.KeyID)
	respondWithJSON(w, http.StatusCreated, CreateKeyResponse{
		ID:     key.ID,
		RawKey: rawKey,
		Scopes: key.Scopes,
	})
}

func (a *AuthAPI) deleteKey(w http.ResponseWriter, r *http.Request, id int64) {
	if !hasScope(r, scopeAuthManage) {
		forbidden(w, scopeAuthManage)
		return
	}

	err := a.keys.Delete(r.Context(), id)
	switch {
	case errors.Is(err, errKeyNotFound):
		respondWithError(w, http.StatusNotFound, "Key not found")
	case errors.Is(err, errLastMasterKey):
		respondWithError(w, http.StatusConflict, "Cannot delete the last master key")
	case err != nil:
		a.logger.Error("Failed to delete API key", "id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to delete key")
	default:
		a.logger.Info("API key deleted", "id", id, "by", permissionsFrom(r).KeyID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func permissionsFrom(r *http.Request) *Permissions {
	perms, _ := r.Context().Value(contextKeyPermissions).(*Permissions)
	return perms
}

// hasScope checks if the permission set in the request context includes a required scope.
func hasScope(r *http.Request, requiredScope string) bool {
	perms := permissionsFrom(r)
	return perms != nil && perms.Scopes.Has(requiredScope)
}
