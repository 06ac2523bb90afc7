package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/nao1215/contactscan/internal/config"
)

func TestNewInitCmdFlags(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()
	if cmd.Use != "init" {
		t.Errorf("expected use 'init', got %q", cmd.Use)
	}

	tests := []struct {
		name      string
		shorthand string
		def       string
	}{
		{name: "output", shorthand: "o", def: configFileName},
		{name: "force", shorthand: "f", def: "false"},
		{name: "stdout", def: "false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("missing --%s", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("shorthand = %q, want %q", flag.Shorthand, tt.shorthand)
			}
			if flag.DefValue != tt.def {
				t.Errorf("default = %q, want %q", flag.DefValue, tt.def)
			}
		})
	}
}

func TestRunInitCmd(t *testing.T) {
	t.Parallel()

	template, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		t.Fatalf("failed to read template: %v", err)
	}

	tests := []struct {
		name     string
		existing string
		relPath  string
		extra    []string
		wantErr  error
		want     string
	}{
		{name: "fresh file", relPath: ".contactscan", want: string(template)},
		{name: "nested directories", relPath: filepath.Join("a", "b", ".contactscan"), want: string(template)},
		{name: "existing file kept", relPath: ".contactscan", existing: "keep me", wantErr: errConfigExists, want: "keep me"},
		{name: "existing file forced", relPath: ".contactscan", existing: "old", extra: []string{"-f"}, want: string(template)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), tt.relPath)
			if tt.existing != "" {
				if err := os.WriteFile(path, []byte(tt.existing), 0600); err != nil {
					t.Fatalf("failed to seed file: %v", err)
				}
			}

			var out bytes.Buffer
			cmd := NewInitCmd()
			cmd.SetOut(&out)
			cmd.SetArgs(append([]string{"-o", path}, tt.extra...))
			err := cmd.Execute()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}

			got, readErr := os.ReadFile(path)
			if readErr != nil {
				t.Fatalf("failed to read %s: %v", path, readErr)
			}
			if string(got) != tt.want {
				t.Errorf("file content mismatch for %s", tt.name)
			}
			if tt.wantErr == nil && !strings.Contains(out.String(), "Created configuration file: "+path) {
				t.Errorf("missing confirmation in %q", out.String())
			}
		})
	}
}

func TestRunInitCmd_Stdout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ".contactscan")

	var out bytes.Buffer
	cmd := NewInitCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--stdout", "-o", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("init --stdout failed: %v", err)
	}

	if !strings.Contains(out.String(), "defaults:") {
		t.Errorf("expected the template on stdout, got %q", out.String())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("--stdout must not write a file")
	}
}

func TestWriteTemplatePermissions(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions only")
	}

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := writeTemplate(path, []byte("a: 1\n"), false); err != nil {
		t.Fatalf("writeTemplate failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}
}

func TestConfigTemplateMatchesDefaults(t *testing.T) {
	t.Parallel()

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		t.Fatalf("failed to read template: %v", err)
	}
	for _, section := range []string{"defaults:", "sites:", "history:", "frontier:"} {
		if !strings.Contains(string(content), section) {
			t.Errorf("template lacks %q", section)
		}
	}

	path := filepath.Join(t.TempDir(), configFileName)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}
	file, err := config.LoadConfigFile(path)
	if err != nil {
		t.Fatalf("failed to load template: %v", err)
	}

	want := config.NewConfig()
	got := config.NewConfig()
	got.ApplyFile(file)

	if got.WebsiteDelayMin != want.WebsiteDelayMin || got.ListingDelayMax != want.ListingDelayMax {
		t.Errorf("delays = %v/%v", got.WebsiteDelayMin, got.ListingDelayMax)
	}
	if got.Timeout != want.Timeout || got.RobotsTimeout != want.RobotsTimeout || got.RetryBaseDelay != want.RetryBaseDelay {
		t.Errorf("timeouts = %v, %v, %v", got.Timeout, got.RobotsTimeout, got.RetryBaseDelay)
	}
	if got.MaxBodySize != want.MaxBodySize || got.MaxRetries != want.MaxRetries {
		t.Errorf("limits = %d, %d", got.MaxBodySize, got.MaxRetries)
	}
	if !reflect.DeepEqual(got.BusinessPrefixes, want.BusinessPrefixes) {
		t.Errorf("prefixes = %v", got.BusinessPrefixes)
	}
	if !reflect.DeepEqual(got.ContactKeywords, want.ContactKeywords) ||
		!reflect.DeepEqual(got.SecondaryKeywords, want.SecondaryKeywords) {
		t.Errorf("keywords = %v / %v", got.ContactKeywords, got.SecondaryKeywords)
	}
	if got.MaxContactPages != want.MaxContactPages || got.MaxSecondaryPages != want.MaxSecondaryPages {
		t.Errorf("page caps = %d, %d", got.MaxContactPages, got.MaxSecondaryPages)
	}
	if got.HistoryBackend != config.HistoryBackendJSON || got.OutputFormat != config.OutputFormatAll {
		t.Errorf("backend/format = %q, %q", got.HistoryBackend, got.OutputFormat)
	}
	if !got.KeepAllWhenNoBusiness || !got.ContactPagesOverrideRobots {
		t.Error("expected the recall policies to stay enabled")
	}
	if got.SiteConfig("example.com").Headers["Accept-Language"] == "" {
		t.Error("expected the default Accept-Language header")
	}
}
