package prompts

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/*.yaml
var defaults embed.FS

var agentPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Store resolves prompts from <dir>/<agent>.yaml, falling back to the
// built-in defaults. Files are read on every lookup so edits apply to the
// next stage run.
type Store struct {
	dir string
	log *logger.Logger
}

var _ ports.PromptRepository = (*Store)(nil)

func NewStore(dir string, log *logger.Logger) *Store {
	return &Store{dir: dir, log: log}
}

func (s *Store) Lookup(ctx context.Context, agent, name string) (string, error) {
	if !agentPattern.MatchString(agent) {
		return "", fmt.Errorf("%w: invalid agent %q", domain.ErrPromptNotFound, agent)
	}

	if s.dir != "" {
		text, found, err := readPrompt(os.DirFS(s.dir), agent+".yaml", name)
		if err != nil {
			s.log.Errorw("prompt_file_read_failed", "agent", agent, "dir", s.dir, "error", err)
			return "", err
		}
		if found {
			return text, nil
		}
	}

	text, found, err := readPrompt(defaults, "defaults/"+agent+".yaml", name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: %s/%s", domain.ErrPromptNotFound, agent, name)
	}
	return text, nil
}

// Agents lists the agents that have built-in prompts.
func Agents() []string {
	entries, err := fs.ReadDir(defaults, "defaults")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	return out
}

func readPrompt(fsys fs.FS, file, name string) (string, bool, error) {
	raw, err := fs.ReadFile(fsys, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}

	var doc map[string]string
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return "", false, fmt.Errorf("parse %s: %w", filepath.Base(file), err)
	}
	text, found := doc[name]
	if !found || strings.TrimSpace(text) == "" {
		return "", false, nil
	}
	return strings.TrimSpace(text), true, nil
}
