package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAuthenticator_Authenticate(t *testing.T) {
	users := map[string]string{
		"alice": "secret123",
		"bob":   "hunter2",
	}

	tests := []struct {
		name         string
		header       string
		wantIdentity string
		wantOK       bool
	}{
		{
			name:         "valid credential",
			header:       "Bearer alice:secret123",
			wantIdentity: "alice",
			wantOK:       true,
		},
		{
			name:         "wrong key reports raw token for audit",
			header:       "Bearer alice:wrongkey",
			wantIdentity: "alice:wrongkey",
			wantOK:       false,
		},
		{
			name:         "unknown user",
			header:       "Bearer mallory:secret123",
			wantIdentity: "mallory:secret123",
			wantOK:       false,
		},
		{
			name:         "missing header",
			header:       "",
			wantIdentity: AnonymousUser,
			wantOK:       false,
		},
		{
			name:         "wrong scheme",
			header:       "Basic YWxpY2U6c2VjcmV0",
			wantIdentity: AnonymousUser,
			wantOK:       false,
		},
		{
			name:         "token without separator",
			header:       "Bearer alicesecret123",
			wantIdentity: "alicesecret123",
			wantOK:       false,
		},
		{
			name:         "empty token",
			header:       "Bearer ",
			wantIdentity: AnonymousUser,
			wantOK:       false,
		},
	}

	a := NewAuthenticator(users, true)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, ok := a.Authenticate(tt.header)
			if ok != tt.wantOK {
				t.Errorf("Authenticate() ok = %v, want %v", ok, tt.wantOK)
			}
			if identity != tt.wantIdentity {
				t.Errorf("Authenticate() identity = %q, want %q", identity, tt.wantIdentity)
			}
		})
	}
}

func TestAuthenticator_Disabled(t *testing.T) {
	a := NewAuthenticator(map[string]string{"alice": "secret123"}, false)

	// The bypass applies before any parsing: even garbage headers pass.
	for _, header := range []string{"", "Bearer alice:wrongkey", "garbage"} {
		identity, ok := a.Authenticate(header)
		if !ok {
			t.Errorf("Authenticate(%q) with security disabled: ok = false, want true", header)
		}
		if identity != AnonymousUser {
			t.Errorf("Authenticate(%q) identity = %q, want %q", header, identity, AnonymousUser)
		}
	}
}

func TestLoadUsers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "authorized_users.txt")
	content := "alice:secret123\n\nbroken-line-no-colon\nbob:hunter2\n:nokey\nnouser:\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	users, err := LoadUsers(path)
	if err != nil {
		t.Fatalf("LoadUsers() error: %v", err)
	}

	want := map[string]string{"alice": "secret123", "bob": "hunter2"}
	if len(users) != len(want) {
		t.Fatalf("LoadUsers() returned %d users, want %d (malformed lines skipped)", len(users), len(want))
	}
	for user, key := range want {
		if users[user] != key {
			t.Errorf("users[%q] = %q, want %q", user, users[user], key)
		}
	}
}

func TestLoadUsers_MissingFile(t *testing.T) {
	if _, err := LoadUsers(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("LoadUsers() on a missing file returned nil error")
	}
}
