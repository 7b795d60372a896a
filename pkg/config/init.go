package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// section is one top-level block of a generated config file.
type section struct {
	key     string
	comment []string
	value   any
}

// InitConfig writes a sample configuration to the default location.
//
// Returns the path of the written file. An existing file is only replaced
// when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration to path, creating parent
// directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// generateYAMLWithComments renders cfg as YAML with a short comment above
// each top-level section.
func generateYAMLWithComments(cfg *Config) (string, error) {
	sections := []section{
		{"logging", []string{
			"Logging",
			"level: DEBUG, INFO, WARN, ERROR; format: text, json; output: stdout, stderr or a file path",
		}, cfg.Logging},
		{"server", []string{
			"Server lifecycle and the Prometheus /metrics endpoint",
		}, cfg.Server},
		{"store", []string{
			"File store serving the root directory",
			"filesystem.path is the sandbox root; nothing outside it is ever reachable",
			"filesystem.create makes the directory if it does not exist",
		}, cfg.Store},
		{"dispatch", []string{
			"serialize_writes orders concurrent mutations of the same path",
		}, cfg.Dispatch},
		{"adapters", []string{
			"Transport adapters",
			"http.max_upload_size is in bytes; tls.auto_generate creates a self-signed certificate",
		}, cfg.Adapters},
	}

	var b strings.Builder
	b.WriteString("# wex Configuration File\n")
	b.WriteString("#\n")
	b.WriteString("# Every value can be overridden with a WEX_* environment variable,\n")
	b.WriteString("# e.g. WEX_ADAPTERS_HTTP_PORT=9000 or WEX_STORE_FILESYSTEM_PATH=/srv/files\n")

	for _, s := range sections {
		out, err := yaml.Marshal(map[string]any{s.key: s.value})
		if err != nil {
			return "", fmt.Errorf("failed to marshal %s section: %w", s.key, err)
		}

		b.WriteString("\n")
		for _, line := range s.comment {
			b.WriteString("# ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.Write(out)
	}

	return b.String(), nil
}
