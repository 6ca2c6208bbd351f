package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestKeyStore(t *testing.T) *KeyStore {
	t.Helper()
	db, err := initDB(filepath.Join(t.TempDir(), "keys.db"))
	if err != nil {
		t.Fatalf("initDB() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err = setupAuthSchema(db); err != nil {
		t.Fatalf("setupAuthSchema() error = %v", err)
	}
	keys, err := NewKeyStore(db)
	if err != nil {
		t.Fatalf("NewKeyStore() error = %v", err)
	}
	t.Cleanup(keys.Close)
	return keys
}

func TestNewScopeSet(t *testing.T) {
	testCases := []struct {
		name    string
		scopes  []string
		want    []string
		wantErr error
	}{
		{"dedupes and sorts", []string{"stats:read", " formats:read ", "stats:read"}, []string{"formats:read", "stats:read"}, nil},
		{"master", []string{"*"}, []string{"*"}, nil},
		{"unknown scope", []string{"stats:read", "stats:write"}, nil, errUnknownScope},
		{"empty", []string{"", " "}, nil, errNoScopes},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewScopeSet(tc.scopes)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("NewScopeSet() error = %v, want %v", err, tc.wantErr)
			}
			if err != nil {
				return
			}
			if diff := cmp.Diff(tc.want, got.List()); diff != "" {
				t.Errorf("NewScopeSet() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScopeSet_Covers(t *testing.T) {
	manager := ScopeSet{scopeAuthManage: {}, scopeStatsRead: {}}
	master := ScopeSet{scopeMaster: {}}

	if !manager.Covers(ScopeSet{scopeStatsRead: {}}) {
		t.Error("manager should cover stats:read")
	}
	if manager.Covers(ScopeSet{scopeStatsRead: {}, scopeFormatsWrite: {}}) {
		t.Error("manager should not cover formats:write")
	}
	if manager.Covers(master) {
		t.Error("manager should not cover the master scope")
	}
	if !master.Covers(manager) {
		t.Error("master should cover every scope")
	}
}

func TestKeyStore_CreateAndLookup(t *testing.T) {
	keys := newTestKeyStore(t)
	ctx := context.Background()

	first, firstRaw, err := keys.Create(ctx, ScopeSet{scopeStatsRead: {}}, "admin")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if diff := cmp.Diff([]string{scopeMaster}, first.Scopes); diff != "" {
		t.Errorf("first key scopes mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(firstRaw, apiKeyPrefix) {
		t.Errorf("raw key %q lacks prefix %q", firstRaw, apiKeyPrefix)
	}

	second, secondRaw, err := keys.Create(ctx, ScopeSet{scopeStatsRead: {}, scopeFormatsRead: {}}, "reader")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	id, scopes, err := keys.Lookup(ctx, secondRaw)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if id != second.ID {
		t.Errorf("Lookup() id = %d, want %d", id, second.ID)
	}
	if diff := cmp.Diff([]string{scopeFormatsRead, scopeStatsRead}, scopes.List()); diff != "" {
		t.Errorf("Lookup() scopes mismatch (-want +got):\n%s", diff)
	}

	if _, _, err = keys.Lookup(ctx, apiKeyPrefix+"nope"); !errors.Is(err, errKeyNotFound) {
		t.Errorf("Lookup(unknown) error = %v, want errKeyNotFound", err)
	}

	list, err := keys.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() returned %d keys, want 2", len(list))
	}
	if list[0].LastUsedAt != nil {
		t.Errorf("unused key has last_used_at %v", list[0].LastUsedAt)
	}
	if list[1].LastUsedAt == nil {
		t.Error("looked up key has no last_used_at")
	}
	if list[1].Description != "reader" || list[1].CreatedAt.IsZero() {
		t.Errorf("List()[1] = %+v", list[1])
	}
}

func TestKeyStore_DeleteKeepsLastMaster(t *testing.T) {
	keys := newTestKeyStore(t)
	ctx := context.Background()

	first, _, err := keys.Create(ctx, nil, "first")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err = keys.Delete(ctx, first.ID); !errors.Is(err, errLastMasterKey) {
		t.Fatalf("Delete(only master) error = %v, want errLastMasterKey", err)
	}

	second, _, err := keys.Create(ctx, ScopeSet{scopeMaster: {}}, "second")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err = keys.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete(first) error = %v", err)
	}
	if err = keys.Delete(ctx, second.ID); !errors.Is(err, errLastMasterKey) {
		t.Errorf("Delete(second) error = %v, want errLastMasterKey", err)
	}
	if err = keys.Delete(ctx, 999); !errors.Is(err, errKeyNotFound) {
		t.Errorf("Delete(missing) error = %v, want errKeyNotFound", err)
	}
}
