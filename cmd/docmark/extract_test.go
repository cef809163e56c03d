package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("in", "report_extracted.md"), outputPath(filepath.Join("in", "report.pdf"), ""))
	assert.Equal(t, filepath.Join("out", "scan_extracted.txt"), outputPath(filepath.Join("in", "scan.JPG"), "out"))
}

func TestCheckOutputCollisions_SharedOutDir(t *testing.T) {
	files := []string{
		filepath.Join("a", "report.pdf"),
		filepath.Join("b", "report.pdf"),
		filepath.Join("b", "other.pdf"),
	}

	err := checkOutputCollisions(files, "out")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "report_extracted.md")
	assert.NotContains(t, err.Error(), "other")
}

func TestCheckOutputCollisions_NoClash(t *testing.T) {
	files := []string{
		filepath.Join("a", "report.pdf"),
		filepath.Join("b", "report.pdf"),
		filepath.Join("a", "report.png"),
	}

	assert.NoError(t, checkOutputCollisions(files, ""), "next to each input the names differ by directory")
	assert.NoError(t, checkOutputCollisions(files[1:], "out"), "pdf and image outputs have different extensions")
}
