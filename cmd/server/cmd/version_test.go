package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	origVersion := Version
	origGitCommit := GitCommit
	origBuildDate := BuildDate
	defer func() {
		Version = origVersion
		GitCommit = origGitCommit
		BuildDate = origBuildDate
	}()

	Version = "1.0.0"
	GitCommit = "abc123"
	BuildDate = "2026-08-01T12:00:00Z"

	buf := new(bytes.Buffer)
	versionCmd.SetOut(buf)
	versionCmd.SetErr(buf)
	versionCmd.Run(versionCmd, nil)

	output := buf.String()
	expected := []string{
		"VitalPages Server",
		"Version:    1.0.0",
		"Git commit: abc123",
		"Build date: 2026-08-01T12:00:00Z",
		"Go version:",
		"Platform:",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}
}

func TestRootCommandSubcommands(t *testing.T) {
	expected := []string{"serve", "version", "healthcheck", "migrate", "backup", "user"}
	for _, name := range expected {
		found := false
		for _, sub := range rootCmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected subcommand %q to be registered", name)
		}
	}
}

func TestRootCommandPersistentFlags(t *testing.T) {
	for _, flag := range []string{"log-level", "log-format"} {
		if f := rootCmd.PersistentFlags().Lookup(flag); f == nil {
			t.Errorf("expected persistent flag %q to be defined", flag)
		}
	}
}
