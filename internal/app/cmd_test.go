package app

import (
	"bytes"
	"testing"
)

func TestNewRootCmd_RegistersSubcommands(t *testing.T) {
	root := NewRootCmd(&bytes.Buffer{})

	for _, name := range []Command{CommandServe, CommandMigrate, CommandSeed, CommandReport, CommandCleanup, CommandHealthcheck} {
		cmd, _, err := root.Find([]string{string(name)})
		if err != nil {
			t.Errorf("Find(%q) returned error: %v", name, err)
			continue
		}
		if cmd.Name() != string(name) {
			t.Errorf("Find(%q) = %q", name, cmd.Name())
		}
	}
}

func TestNewRootCmd_ReportFlags(t *testing.T) {
	root := NewRootCmd(&bytes.Buffer{})
	cmd, _, err := root.Find([]string{"report"})
	if err != nil {
		t.Fatalf("Find(report) returned error: %v", err)
	}

	for _, flag := range []string{"user", "range", "start", "end"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("report command is missing --%s", flag)
		}
	}
	if got := cmd.Flags().Lookup("user").DefValue; got != "1" {
		t.Errorf("--user default = %q, want 1", got)
	}
}

func TestNewRootCmd_UnknownCommandFails(t *testing.T) {
	root := NewRootCmd(&bytes.Buffer{})
	root.SetArgs([]string{"worker"})

	if err := root.Execute(); err == nil {
		t.Fatal("expected error for unknown command, got nil")
	}
}

func TestCommandString(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{CommandServe, "serve"},
		{CommandMigrate, "migrate"},
		{CommandSeed, "seed"},
		{CommandReport, "report"},
		{CommandCleanup, "cleanup"},
		{CommandHealthcheck, "healthcheck"},
	}

	for _, tt := range tests {
		if string(tt.cmd) != tt.want {
			t.Errorf("Command = %q, want %q", tt.cmd, tt.want)
		}
	}
}
