// Command taxonomy-check validates a cascade-rule configuration file: the
// trigger/dependent graph must be acyclic, every rule needs a table, and
// table entries must offer at least one option.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"farmcore/pkg/taxonomy"
)

var exitFunc = os.Exit

type ruleConfig struct {
	Trigger   string              `json:"trigger"`
	Dependent string              `json:"dependent"`
	Table     map[string][]string `json:"table"`
}

type cascadeConfig struct {
	Rules []ruleConfig `json:"rules"`
}

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("taxonomy-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var configPath string
	fs.StringVar(&configPath, "config", "", "path to cascade config json (empty validates the built-in tables)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := run(configPath); err != nil {
		fmt.Fprintf(stderr, "Taxonomy validation failed: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "Taxonomy validation passed.")
	return 0
}

// validatePath rejects absolute and traversing paths so the tool only reads
// files under the working tree.
func validatePath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(p) {
		return "", fmt.Errorf("absolute paths not allowed: %s", p)
	}
	clean := filepath.Clean(p)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("path traversal not allowed: %s", p)
	}
	return clean, nil
}

func run(configPath string) error {
	rules := taxonomy.DefaultCascade()
	if configPath != "" {
		loaded, err := loadRules(configPath)
		if err != nil {
			return err
		}
		rules = loaded
	}
	if len(rules) == 0 {
		return fmt.Errorf("no cascade rules configured")
	}
	if _, err := taxonomy.NewResolver(rules...); err != nil {
		return err
	}
	for i, rule := range rules {
		for trigger, options := range rule.Table {
			if len(options) == 0 {
				return fmt.Errorf("rule %d (%s -> %s): trigger value %q has an empty option set", i, rule.Trigger, rule.Dependent, trigger)
			}
		}
	}
	return nil
}

func loadRules(configPath string) ([]taxonomy.CascadeRule, error) {
	safePath, err := validatePath(configPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(safePath) // #nosec G304: path validated by validatePath
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var config cascadeConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	rules := make([]taxonomy.CascadeRule, len(config.Rules))
	for i, rc := range config.Rules {
		rules[i] = taxonomy.CascadeRule{
			Trigger:   rc.Trigger,
			Dependent: rc.Dependent,
			Table:     taxonomy.Table(rc.Table),
		}
	}
	return rules, nil
}
