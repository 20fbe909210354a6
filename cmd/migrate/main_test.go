package main

import (
	"strings"
	"testing"
)

func TestRootRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"status"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "database url is required") {
		t.Fatalf("expected missing database url error, got %v", err)
	}
}

func TestRootHasSubcommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"up", "down", "status"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Fatalf("expected %s subcommand, got %v %v", name, sub, err)
		}
	}
}
