package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePrompt(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFormatQuestion(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "explain.toml", `
description = "Explain a command"
question = "Explain what '{{input}}' does on {{distro}}."
`)
	writePrompt(t, dir, "empty.toml", `description = "no question"`)

	tests := []struct {
		name    string
		message string
		prompt  string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "no template", message: "ls -la", want: "ls -la"},
		{name: "template with arg", message: "tar -xzf a.tgz", prompt: "explain", args: []string{"distro:Debian"}, want: "Explain what 'tar -xzf a.tgz' does on Debian."},
		{name: "explicit extension", message: "df -h", prompt: "explain.toml", args: []string{`"distro:Arch"`}, want: "Explain what 'df -h' does on Arch."},
		{name: "escaped colon", message: "x", prompt: "explain", args: []string{`distro:host\:1`}, want: "Explain what 'x' does on host:1."},
		{name: "missing template", message: "x", prompt: "nope", wantErr: true},
		{name: "template without question", message: "x", prompt: "empty", wantErr: true},
		{name: "reserved key", message: "x", prompt: "explain", args: []string{"input:y"}, wantErr: true},
		{name: "malformed arg", message: "x", prompt: "explain", args: []string{"distro"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatQuestion(tt.message, tt.prompt, []string{dir}, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveLaterDirectoryWins(t *testing.T) {
	system, user := t.TempDir(), t.TempDir()
	writePrompt(t, system, "fix.toml", `question = "system {{input}}"`)
	writePrompt(t, user, "fix.toml", `question = "user {{input}}"`)

	got, err := FormatQuestion("q", "fix", []string{system, user}, nil)
	require.NoError(t, err)
	assert.Equal(t, "user q", got)
}

func TestList(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writePrompt(t, a, "explain.toml", `question = "{{input}}"`)
	writePrompt(t, a, "net/ports.toml", `question = "{{input}}"`)
	writePrompt(t, a, "README.md", "ignored")
	writePrompt(t, b, "explain.toml", `question = "{{input}}"`)
	writePrompt(t, b, "disk.toml", `question = "{{input}}"`)

	entries, shadowed, err := List([]string{a, b, filepath.Join(a, "missing")})
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"disk", "explain", "net/ports"}, names)
	require.Len(t, shadowed, 1)
	assert.Equal(t, "explain", shadowed[0].Name)
	assert.Equal(t, a, shadowed[0].Dir)
	for _, e := range entries {
		if e.Name == "explain" {
			assert.Equal(t, b, e.Dir)
		}
	}
}
