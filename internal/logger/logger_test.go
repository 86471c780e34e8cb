package logger

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestWithComponent(t *testing.T) {
	entry := WithComponent("test-component")
	if entry == nil {
		t.Fatal("expected non-nil entry")
	}

	if val, ok := entry.Data["component"]; !ok {
		t.Error("expected component field to be set")
	} else if val != "test-component" {
		t.Errorf("expected component 'test-component', got '%v'", val)
	}
}

func TestWithKey(t *testing.T) {
	entry := WithKey("mutation", "recipe/1")
	if entry.Data["component"] != "mutation" {
		t.Errorf("expected component 'mutation', got '%v'", entry.Data["component"])
	}
	if entry.Data["key"] != "recipe/1" {
		t.Errorf("expected key 'recipe/1', got '%v'", entry.Data["key"])
	}
}

func TestLoggerInit(t *testing.T) {
	if Logger == nil {
		t.Fatal("expected Logger to be initialized")
	}

	if Logger.Out != os.Stdout {
		t.Error("expected Logger output to be os.Stdout")
	}
}

func TestSetLevel(t *testing.T) {
	origLevel := Logger.GetLevel()
	defer Logger.SetLevel(origLevel)

	tests := []struct {
		name          string
		value         string
		ok            bool
		expectedLevel logrus.Level
	}{
		{"debug level", "debug", true, logrus.DebugLevel},
		{"warn level", "warn", true, logrus.WarnLevel},
		{"DEBUG uppercase", "DEBUG", true, logrus.DebugLevel},
		{"invalid level", "invalid", false, logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger.SetLevel(logrus.InfoLevel)

			if got := SetLevel(tt.value); got != tt.ok {
				t.Errorf("SetLevel(%q) = %v, want %v", tt.value, got, tt.ok)
			}
			if Logger.GetLevel() != tt.expectedLevel {
				t.Errorf("expected level %v, got %v", tt.expectedLevel, Logger.GetLevel())
			}
		})
	}
}

func TestWithComponentMultiple(t *testing.T) {
	entry1 := WithComponent("component-a")
	entry2 := WithComponent("component-b")

	if entry1.Data["component"] == entry2.Data["component"] {
		t.Error("expected different component values for different entries")
	}
}
