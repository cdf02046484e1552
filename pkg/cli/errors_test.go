package cli

import (
	"errors"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("storage.path", "cannot be empty")
	want := "config error in storage.path: cannot be empty"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := NewConfigError("", "failed to load config")
	if bare.Error() != "config error: failed to load config" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	inner := errors.New("db locked")
	err := NewCommandError("run", inner)

	if !errors.Is(err, inner) {
		t.Error("CommandError does not unwrap to the inner error")
	}
	want := "command run failed: db locked"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
