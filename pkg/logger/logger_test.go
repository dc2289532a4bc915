package logger

import (
	"testing"
	"time"
)

func TestSubscribeReceivesEntries(t *testing.T) {
	l := New("test")
	l.DisableConsoleOutput()

	ch := l.Subscribe()
	l.Infof("hello %s", "world")

	select {
	case entry := <-ch:
		if entry.Level != "INFO" {
			t.Errorf("level = %q, expected INFO", entry.Level)
		}
		if entry.Message != "hello world" {
			t.Errorf("message = %q, expected %q", entry.Message, "hello world")
		}
	case <-time.After(time.Second):
		t.Fatal("no log entry received")
	}
}

func TestWithFields(t *testing.T) {
	l := New("test")
	l.DisableConsoleOutput()

	ch := l.Subscribe()
	l.WithFields(map[string]string{"dsn": "postgres://localhost/app"}).Debug("connecting")

	select {
	case entry := <-ch:
		if entry.Fields["dsn"] != "postgres://localhost/app" {
			t.Errorf("fields = %v, expected dsn field", entry.Fields)
		}
	case <-time.After(time.Second):
		t.Fatal("no log entry received")
	}
}

func TestFormatComponent(t *testing.T) {
	if got := formatComponent("adapter"); len(got) != ComponentWidth {
		t.Errorf("formatComponent padded width = %d, expected %d", len(got), ComponentWidth)
	}
	long := formatComponent("a-very-long-component-name-indeed")
	if len([]rune(long)) != ComponentWidth {
		t.Errorf("formatComponent truncated width = %d, expected %d", len([]rune(long)), ComponentWidth)
	}
}
