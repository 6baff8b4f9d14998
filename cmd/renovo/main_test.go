package main

import (
	"net"
	"strconv"
	"testing"

	"renovo/internal/cli"
)

func TestRunClosesAppWhenListenFails(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()

	t.Setenv("RENOVO_CONFIG", "")
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("AMQP_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("PORT", strconv.Itoa(busy.Addr().(*net.TCPAddr).Port))

	closed := 0
	orig := closeApp
	closeApp = func(a *cli.App) error {
		closed++
		return orig(a)
	}
	t.Cleanup(func() { closeApp = orig })

	if code := run(); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if closed != 1 {
		t.Errorf("app closed %d times, want 1", closed)
	}
}
