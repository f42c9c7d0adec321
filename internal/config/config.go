package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type (
	Config struct {
		Zotero
		Output
	}

	Zotero struct {
		Dir           string // Parent directory of zotero.sqlite and storage/
		LinkedBaseDir string // Base directory for resolving relative linked-attachment paths
	}

	Output struct {
		Dir string // Root of the papis-style output tree
	}
)

// DefaultZoteroDir returns the default Zotero data directory (~/Zotero).
func DefaultZoteroDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, "Zotero")
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("zotero_dir", DefaultZoteroDir())
	v.SetDefault("linked_base_dir", "")
	v.SetDefault("output_dir", "")

	return &Config{
		Zotero: Zotero{
			Dir:           v.GetString("ZOTERO_DIR"),
			LinkedBaseDir: v.GetString("LINKED_BASE_DIR"),
		},
		Output: Output{
			Dir: v.GetString("OUTPUT_DIR"),
		},
	}
}
