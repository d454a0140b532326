package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads config/<env>.yaml. A .env file in the working directory is loaded
// into the environment first, without overriding variables already set.
func Load(env string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	path := findConfigPath(env)
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse substitutes ${VAR} and ${VAR:-default} in raw YAML, then decodes, defaults and validates it.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(expandEnvVars(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// GetEnv returns $ENV, or "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

func loadDotEnv(path string) error {
	if !fileExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// findConfigPath prefers ./config, then the config directory of the source tree
// (for tests run from a package directory).
func findConfigPath(env string) string {
	name := env + ".yaml"
	local := filepath.Join("config", name)
	if fileExists(local) {
		return local
	}

	_, self, _, ok := runtime.Caller(0)
	if ok {
		root := filepath.Join(filepath.Dir(self), "..", "..")
		if p := filepath.Join(root, "config", name); fileExists(p) {
			return p
		}
	}
	return local
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var envVarRef = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		name, def, hasDef := strings.Cut(string(envVarRef.FindSubmatch(ref)[1]), ":-")
		if v := os.Getenv(name); v != "" || !hasDef {
			return []byte(v)
		}
		return []byte(def)
	})
}
