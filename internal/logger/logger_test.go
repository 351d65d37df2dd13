package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactsCredentialKeys(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.Info("login", "username", "alice", "password", "hunter2", "access_token", "abc.def.ghi")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["username"] != "alice" {
		t.Errorf("username = %v", fields["username"])
	}
	for _, k := range []string{"password", "access_token"} {
		if fields[k] != "[REDACTED]" {
			t.Errorf("%s = %v, want redacted", k, fields[k])
		}
	}
}

func TestWithKeepsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := (&Logger{SugaredLogger: zap.New(core).Sugar()}).With("component", "test")
	l.Warn("hello", "k", 1)
	if got := logs.All()[0].ContextMap()["component"]; got != "test" {
		t.Fatalf("component = %v", got)
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("missing logger should fall back to nop")
	}
	core, logs := observer.New(zap.InfoLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}
	FromContext(IntoContext(context.Background(), l)).Info("hello")
	if logs.Len() != 1 {
		t.Fatalf("want 1 entry, got %d", logs.Len())
	}
}
