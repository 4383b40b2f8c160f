package main

import "testing"

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"run":      false,
		"validate": false,
		"version":  false,
	}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q is not registered", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	if versionCmd.Use != "version" {
		t.Errorf("versionCmd.Use = %q", versionCmd.Use)
	}
	if versionCmd.Run == nil {
		t.Error("versionCmd.Run is nil")
	}
	if Version == "" {
		t.Error("Version is empty")
	}
}

func TestRunCommandFlags(t *testing.T) {
	for _, flag := range []string{"listen", "log-level", "dry-run"} {
		if runCmd.Flags().Lookup(flag) == nil {
			t.Errorf("run command is missing the --%s flag", flag)
		}
	}
	if rootCmd.PersistentFlags().Lookup("config") == nil {
		t.Error("root command is missing the --config flag")
	}
}
