package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const counterScenario = `
name: counter_cli
description: "counter driven from the CLI"
reactor: counter
steps:
  - target: root
    event: inc
  - target: root
    event: stop
assertions:
  - type: final_state
    target: root
    expect: 1
`

const failingScenario = `
name: counter_wrong
description: "expects a count the counter never reaches"
reactor: counter
steps:
  - target: root
    event: inc
assertions:
  - type: final_state
    target: root
    expect: { count: 7 }
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args and returns stdout and the error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
