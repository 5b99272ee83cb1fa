package medboard

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xerk-dot/medboard/consensus"
	"github.com/xerk-dot/medboard/llm"
	"github.com/xerk-dot/medboard/panel"
)

// Config holds all configuration for a consensus board run.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.medboard/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "medboard". The file will be <DBName>.db inside the
	// storage directory (~/.medboard/ or working dir).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.medboard/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// Voting holds the protocol parameters. Round 1 uses
	// FirstRoundThreshold; every later round uses LaterRoundThreshold.
	Voting consensus.Config `json:"voting" yaml:"voting"`

	// Chat is the LLM endpoint the panel raters speak through.
	Chat llm.Config `json:"chat" yaml:"chat"`

	// Embedding is the LLM endpoint used for code-reference enrichment
	// (enhanced mode). Unused when Mode is "vanilla".
	Embedding llm.Config `json:"embedding" yaml:"embedding"`

	// Raters is the panel membership. Defaults to panel.DefaultRaters().
	Raters []panel.Rater `json:"raters" yaml:"raters"`

	// Mode selects prompt enrichment: "vanilla" or "enhanced".
	Mode string `json:"mode" yaml:"mode"`

	// Workers caps concurrent LLM requests per rater.
	Workers int `json:"workers" yaml:"workers"`

	// EmbeddingDim must match the embedding model's output dimension.
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`

	// EnrichTopK is how many nearest code references are attached to a
	// question prompt in enhanced mode.
	EnrichTopK int `json:"enrich_top_k" yaml:"enrich_top_k"`
}

// Board run modes.
const (
	ModeVanilla  = "vanilla"
	ModeEnhanced = "enhanced"
)

// DefaultConfig returns a Config with the standard two-round protocol:
// 70% agreement in round 1, 85% in round 2.
func DefaultConfig() Config {
	return Config{
		DBName:     "medboard",
		StorageDir: "home",
		Voting: consensus.Config{
			FirstRoundThreshold: 0.70,
			LaterRoundThreshold: 0.85,
			MaxRounds:           2,
		},
		Chat: llm.Config{
			Provider: "openrouter",
		},
		Embedding: llm.Config{
			Provider: "openrouter",
			Model:    "openai/text-embedding-3-small",
		},
		Raters:       panel.DefaultRaters(),
		Mode:         ModeVanilla,
		Workers:      10,
		EmbeddingDim: 1536,
		EnrichTopK:   5,
	}
}

// Validate rejects invalid configuration before any computation begins.
func (c *Config) Validate() error {
	if err := c.Voting.Validate(); err != nil {
		return err
	}
	if c.Mode != ModeVanilla && c.Mode != ModeEnhanced {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidConfig, c.Workers)
	}
	if len(c.Raters) == 0 {
		return fmt.Errorf("%w: empty rater panel", ErrInvalidConfig)
	}
	if c.Mode == ModeEnhanced && c.EmbeddingDim <= 0 {
		return fmt.Errorf("%w: embedding dim must be positive in enhanced mode", ErrInvalidConfig)
	}
	return nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "medboard"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		dir := filepath.Join(home, ".medboard")
		return filepath.Join(dir, name+".db")
	}
}
