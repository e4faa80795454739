package prompt

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Prompt represents the structure of a TOML question template
type Prompt struct {
	Description string `toml:"description"`
	Question    string `toml:"question"` // may contain {{input}} and {{key}} placeholders
}

// LoadPrompt loads a template file and returns its contents
func LoadPrompt(filePath string) (*Prompt, error) {
	var prompt Prompt
	if _, err := toml.DecodeFile(filePath, &prompt); err != nil {
		return nil, fmt.Errorf("error decoding prompt file: %w", err)
	}
	if strings.TrimSpace(prompt.Question) == "" {
		return nil, fmt.Errorf("prompt file %s has no question", filePath)
	}
	return &prompt, nil
}

// Entry is a template found on disk.
type Entry struct {
	Name string // path relative to its directory, without .toml, slash separated
	Dir  string
	Path string
}

// List finds every .toml template under dirs, recursively. When a name
// exists in several directories the later directory wins, as in Resolve,
// and the overridden entry is reported in shadowed. Missing directories
// are skipped.
func List(dirs []string) (entries []Entry, shadowed []Entry, err error) {
	seen := make(map[string]int)
	for _, dir := range dirs {
		if _, statErr := os.Stat(dir); os.IsNotExist(statErr) {
			continue
		}

		walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".toml") {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return nil
			}

			e := Entry{
				Name: filepath.ToSlash(strings.TrimSuffix(rel, ".toml")),
				Dir:  dir,
				Path: path,
			}
			if idx, ok := seen[e.Name]; ok {
				shadowed = append(shadowed, entries[idx])
				entries[idx] = e
				return nil
			}
			seen[e.Name] = len(entries)
			entries = append(entries, e)
			return nil
		})
		if walkErr != nil {
			return nil, nil, fmt.Errorf("error walking prompt directory %s: %w", dir, walkErr)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, shadowed, nil
}
