package main

import (
	"testing"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"serve", "console"} {
		if !names[want] {
			t.Errorf("missing %q subcommand", want)
		}
	}
}
