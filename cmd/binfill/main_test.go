package main

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestRunExitCodes(t *testing.T) {
	env := setupCLIEnv(t)
	env.writeItems(t, "bf-1")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"--config", env.configPath}, &stdout, &stderr); code != 0 {
		t.Fatalf("run exit = %d, stderr: %s", code, stderr.String())
	}
	requireContains(t, stdout.String(), "1 bin touched, 0 unplaced")
	if stderr.Len() != 0 {
		t.Fatalf("unexpected stderr: %s", stderr.String())
	}
}

func TestRunPrefixesErrors(t *testing.T) {
	env := setupCLIEnv(t)
	env.writeItems(t, "bf-1")
	if err := os.Remove(env.cfg.Paths.BinDir); err != nil {
		t.Fatalf("remove bin dir: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"--config", env.configPath}, &stdout, &stderr); code != 1 {
		t.Fatalf("run exit = %d, want 1", code)
	}
	if !strings.HasPrefix(stderr.String(), "binfill: ") {
		t.Fatalf("expected prefixed error, got %q", stderr.String())
	}
	if stdout.Len() != 0 {
		t.Fatalf("unexpected stdout: %s", stdout.String())
	}
}
