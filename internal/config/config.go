package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"commas-go/internal/util"

	"gopkg.in/yaml.v2"
)

var ErrRepositoryNotFound = errors.New("repository not found")

// Store backends for run reports
const (
	StoreKuzu  = "kuzu"
	StoreNeo4j = "neo4j"
	StoreNone  = "none"
)

type Config struct {
	App    AppConfig   `yaml:"app"`
	Store  StoreConfig `yaml:"store"`
	Kuzu   KuzuConfig  `yaml:"kuzu"`
	Neo4j  Neo4jConfig `yaml:"neo4j"`
	Source Source      `yaml:"source"`
}

type AppConfig struct {
	Port           int    `yaml:"port"`
	WorkDir        string `yaml:"workdir"`
	NumFileThreads int    `yaml:"num_file_threads"`
	LogLevel       string `yaml:"log_level"`
	Fix            bool   `yaml:"fix"` // rewrite files in place when checking repositories
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
}

type KuzuConfig struct {
	Path string `yaml:"path"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type Source struct {
	Repositories []Repository `yaml:"repositories"`
}

type Repository struct {
	Name     string   `yaml:"name"`
	Path     string   `yaml:"path"`
	Language string   `yaml:"language"`
	Disabled bool     `yaml:"disabled"`
	Exclude  []string `yaml:"exclude"` // glob patterns relative to Path
}

type sourceFile struct {
	Source Source `yaml:"source"`
}

// LoadConfig reads the app configuration and the repository list. Either
// path may be empty, in which case only defaults apply for that part.
func LoadConfig(appPath, sourcePath string) (*Config, error) {
	cfg := &Config{}

	if appPath != "" {
		data, err := os.ReadFile(appPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read app config %s: %w", appPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse app config %s: %w", appPath, err)
		}
	}

	if sourcePath != "" {
		data, err := os.ReadFile(sourcePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read source config %s: %w", sourcePath, err)
		}
		var src sourceFile
		if err := yaml.Unmarshal(data, &src); err != nil {
			return nil, fmt.Errorf("failed to parse source config %s: %w", sourcePath, err)
		}
		cfg.Source.Repositories = append(cfg.Source.Repositories, src.Source.Repositories...)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for _, repo := range c.Source.Repositories {
		for _, pattern := range repo.Exclude {
			if err := util.ValidatePattern(pattern); err != nil {
				return fmt.Errorf("repository %s: exclude pattern %q: %w", repo.Name, pattern, err)
			}
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.App.NumFileThreads <= 0 {
		c.App.NumFileThreads = 4
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = StoreKuzu
	}
	if c.Kuzu.Path == "" {
		c.Kuzu.Path = ":memory:"
	}
	for i := range c.Source.Repositories {
		if c.Source.Repositories[i].Language == "" {
			c.Source.Repositories[i].Language = "python"
		}
	}
}

// GetRepository looks up a configured repository by name
func (c *Config) GetRepository(name string) (*Repository, error) {
	for i := range c.Source.Repositories {
		if c.Source.Repositories[i].Name == name {
			return &c.Source.Repositories[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRepositoryNotFound, name)
}

// ResolveRepositoryPaths makes relative repository paths relative to workDir
func (c *Config) ResolveRepositoryPaths(workDir string) {
	if workDir == "" {
		return
	}
	for i := range c.Source.Repositories {
		if !filepath.IsAbs(c.Source.Repositories[i].Path) {
			c.Source.Repositories[i].Path = filepath.Join(workDir, c.Source.Repositories[i].Path)
		}
	}
}

// NewDefault returns a configuration with defaults only
func NewDefault() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
