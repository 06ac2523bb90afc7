package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionFallbacks(t *testing.T) {
	t.Parallel()

	getters := map[string]func() string{
		"version": getVersion,
		"commit":  getCommit,
		"date":    getDate,
	}
	for name, get := range getters {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if get() == "" {
				t.Errorf("%s fell through to an empty value", name)
			}
		})
	}
}

func TestBuildSetting(t *testing.T) {
	t.Parallel()

	if got := buildSetting("no.such.setting"); got != "" {
		t.Errorf("expected empty value for unknown setting, got %q", got)
	}
}

func TestVersionCmdOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	prefixes := []string{"contactscan version ", "  commit: ", "  built:  "}
	for i, prefix := range prefixes {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], prefix)
		}
	}

	if err := NewVersionCmd().Args(cmd, []string{"extra"}); err == nil {
		t.Error("expected version to reject positional arguments")
	}
}
