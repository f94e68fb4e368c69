package credential

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func stubKeyring(t *testing.T) map[string]string {
	t.Helper()
	origSet, origGet, origDelete := keyringSet, keyringGet, keyringDelete
	t.Cleanup(func() {
		keyringSet, keyringGet, keyringDelete = origSet, origGet, origDelete
	})

	store := map[string]string{}
	keyringSet = func(service, user, password string) error {
		store[service+"/"+user] = password
		return nil
	}
	keyringGet = func(service, user string) (string, error) {
		pw, ok := store[service+"/"+user]
		if !ok {
			return "", keyring.ErrNotFound
		}
		return pw, nil
	}
	keyringDelete = func(service, user string) error {
		if _, ok := store[service+"/"+user]; !ok {
			return keyring.ErrNotFound
		}
		delete(store, service+"/"+user)
		return nil
	}
	return store
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		in   string
		want Ref
		ok   bool
	}{
		{"probe/svc-account", Ref{"probe", "svc-account"}, true},
		{`CORP\runner`, Ref{DefaultService, `CORP\runner`}, true},
		{" runner ", Ref{DefaultService, "runner"}, true},
		{"", Ref{}, false},
		{"/user", Ref{}, false},
		{"service/", Ref{}, false},
	}
	for _, tt := range tests {
		got, err := ParseRef(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseRef(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRef(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestStorePasswordForget(t *testing.T) {
	store := stubKeyring(t)
	ref := Ref{Service: "probe", User: "runner"}

	if err := Store(ref, "s3cret"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if store["probe/runner"] != "s3cret" {
		t.Fatalf("unexpected store contents: %v", store)
	}

	pw, err := Password(ref)
	if err != nil {
		t.Fatalf("Password: %v", err)
	}
	if pw != "s3cret" {
		t.Errorf("Password = %q", pw)
	}

	if err := Forget(ref); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if err := Forget(ref); err != nil {
		t.Errorf("second Forget should ignore missing entry: %v", err)
	}
	if _, err := Password(ref); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPassword_BackendError(t *testing.T) {
	stubKeyring(t)
	locked := errors.New("keyring locked")
	keyringGet = func(string, string) (string, error) { return "", locked }

	_, err := Password(Ref{Service: "probe", User: "runner"})
	if !errors.Is(err, locked) {
		t.Errorf("expected backend error, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("backend error must not look like a missing entry")
	}
}
