package monitoring

import (
	"fmt"
	"log"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) { called = true })
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered the previous callback")
	}
}

func TestWriter(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})

	l := log.New(Writer(), "[realtime] ", 0)
	l.Printf("tier HIGH -> MEDIUM")
	l.Printf("queue drained")

	if len(got) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(got), got)
	}
	if got[0] != "[realtime] tier HIGH -> MEDIUM" {
		t.Errorf("unexpected first line %q", got[0])
	}

	n, err := Writer().Write([]byte("\n"))
	if err != nil || n != 1 {
		t.Errorf("Write(newline) = %d, %v", n, err)
	}
	if len(got) != 2 {
		t.Errorf("blank write should not log, got %q", got)
	}
}
