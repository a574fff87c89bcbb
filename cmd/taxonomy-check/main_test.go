package main

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
	if err := os.WriteFile(name, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return name
}

func TestBuiltinTablesPass(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := cli(nil, &stdout, &stderr); code != 0 {
		t.Fatalf("code = %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "passed") {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestValidConfigPasses(t *testing.T) {
	path := writeConfig(t, "cascade.json", `{
		"rules": [
			{"trigger": "region", "dependent": "climate", "table": {"north": ["cold"], "south": ["hot", "mild"]}}
		]
	}`)
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-config", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("code = %d, stderr: %s", code, stderr.String())
	}
}

func TestCyclicConfigFails(t *testing.T) {
	path := writeConfig(t, "cascade.json", `{
		"rules": [
			{"trigger": "a", "dependent": "b", "table": {"x": ["y"]}},
			{"trigger": "b", "dependent": "a", "table": {"x": ["y"]}}
		]
	}`)
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-config", path}, &stdout, &stderr); code != 1 {
		t.Fatalf("code = %d", code)
	}
	if !strings.Contains(stderr.String(), "cyclic") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestEmptyOptionSetFails(t *testing.T) {
	path := writeConfig(t, "cascade.json", `{
		"rules": [
			{"trigger": "region", "dependent": "climate", "table": {"north": []}}
		]
	}`)
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-config", path}, &stdout, &stderr); code != 1 {
		t.Fatalf("code = %d", code)
	}
	if !strings.Contains(stderr.String(), "empty option set") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestMalformedJSONFails(t *testing.T) {
	path := writeConfig(t, "cascade.json", `{"rules": [`)
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-config", path}, &stdout, &stderr); code != 1 {
		t.Fatalf("code = %d", code)
	}
}

func TestAbsolutePathRejected(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-config", "/etc/cascade.json"}, &stdout, &stderr); code != 1 {
		t.Fatalf("code = %d", code)
	}
	if !strings.Contains(stderr.String(), "absolute paths not allowed") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestUnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-bogus"}, &stdout, &stderr); code != 2 {
		t.Fatalf("code = %d", code)
	}
}
