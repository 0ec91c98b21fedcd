package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI with args and stdin, returning stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "ontocloud.yaml")
	content := "database:\n  driver: sqlite\n  dsn: " + filepath.Join(dir, "ontocloud.db") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "ontocloud dev\n", out)
}

func TestConvertStdin(t *testing.T) {
	out, err := run(t, `{"district": "Gangnam-gu", "population": 561052}`, "convert")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "@prefix ex: <http://example.org/ontology#> .\n"), out)
	assert.Contains(t, out, "ex:Gangnam-gu rdf:type ex:District ;\n")
	assert.Contains(t, out, "    ex:population 561052 ;\n")
}

func TestConvertFlags(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "seoul.json")
	output := filepath.Join(dir, "seoul.nq")
	require.NoError(t, os.WriteFile(input, []byte(`{"district": "Jongno-gu"}`), 0644))

	_, err := run(t, "", "convert", input,
		"--base-uri", "http://seoul.example/#",
		"--namespace", "seoul",
		"--format", "nquads",
		"-o", output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data),
		"<http://seoul.example/#Jongno-gu> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://seoul.example/#District> .")
}

func TestConvertErrors(t *testing.T) {
	_, err := run(t, `[1, 2]`, "convert")
	assert.Error(t, err)

	_, err = run(t, `{}`, "convert", "--format", "rdfxml")
	assert.Error(t, err)

	_, err = run(t, `{"a": {"b": {"c": 1}}}`, "convert", "--max-depth", "2")
	assert.Error(t, err)

	_, err = run(t, "", "convert", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadExportImport(t *testing.T) {
	src := t.TempDir()
	srcConfig := writeConfig(t, src)
	input := filepath.Join(src, "gangnam.json")
	require.NoError(t, os.WriteFile(input, []byte(`{"district":"Gangnam-gu"}`), 0644))

	out, err := run(t, "", "load", input, "--config", srcConfig, "--description", "one district")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	assert.Len(t, id, 36)

	exported, err := run(t, "", "export", "--config", srcConfig)
	require.NoError(t, err)
	assert.Contains(t, exported, `"id":"`+id+`"`)
	assert.Contains(t, exported, `"name":"gangnam"`)
	assert.Contains(t, exported, `"json_data":{"district":"Gangnam-gu"}`)

	exportFile := filepath.Join(src, "export.json")
	require.NoError(t, os.WriteFile(exportFile, []byte(exported), 0644))

	dst := t.TempDir()
	dstConfig := writeConfig(t, dst)
	_, err = run(t, "", "load", exportFile, "--import", "--config", dstConfig)
	require.NoError(t, err)

	reexported, err := run(t, "", "export", "--config", dstConfig)
	require.NoError(t, err)
	assert.Equal(t, exported, reexported)
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: mysql\n"), 0644))

	_, err := run(t, `{}`, "convert", "--config", path)
	assert.Error(t, err)
}
