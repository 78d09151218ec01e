package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/simp-lee/epubclean"
)

// jobConfig is the content of a --config file. Keys left out of the file
// keep the values they had before loading.
type jobConfig struct {
	Merge     epubclean.Operation       `toml:"merge" yaml:"merge"`
	Headings  epubclean.Operation       `toml:"headings" yaml:"headings"`
	Numbering epubclean.NumberingConfig `toml:"numbering" yaml:"numbering"`
	Current   string                    `toml:"current" yaml:"current"`
}

// defaultJob enables both passes over the whole book and detects the start
// number.
func defaultJob() jobConfig {
	n := epubclean.DefaultNumberingConfig()
	n.Start = 0
	return jobConfig{
		Merge:     epubclean.Operation{Enabled: true, Scope: epubclean.ScopeAll},
		Headings:  epubclean.Operation{Enabled: true, Scope: epubclean.ScopeAll},
		Numbering: n,
	}
}

// loadConfig decodes the file at path over cfg. The format follows the
// extension: .toml, .yaml or .yml.
func loadConfig(path string, cfg *jobConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("config %s: unknown format, want .toml, .yaml or .yml", path)
	}
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// options converts the job into library options. A start number of 0
// selects detection.
func (c jobConfig) options() epubclean.CleanOptions {
	return epubclean.CleanOptions{
		BatchOptions: epubclean.BatchOptions{
			Merge:       c.Merge,
			Headings:    c.Headings,
			Numbering:   c.Numbering,
			DetectStart: c.Numbering.Start == 0,
		},
		Current: c.Current,
	}
}
