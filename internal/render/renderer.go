// Package render draws the report artifacts: time-series charts, the
// overview grid image and the overview workbook.
package render

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/abelzeko/stream-report/internal/quality"
)

// Labels is the static presentation metadata shared by every artifact
type Labels struct {
	SiteName   string
	City       string
	County     string
	Watershed  string
	ReportYear int
}

// Location returns the site line printed under every title
func (l Labels) Location() string {
	parts := []string{}
	if l.SiteName != "" {
		parts = append(parts, l.SiteName)
	}
	if l.City != "" {
		parts = append(parts, "City: "+l.City)
	}
	if l.County != "" {
		parts = append(parts, "County: "+l.County)
	}
	if l.Watershed != "" {
		parts = append(parts, l.Watershed)
	}
	return strings.Join(parts, ", ")
}

// Renderer writes report artifacts into one output directory
type Renderer struct {
	outputDir string
	labels    Labels
	rules     quality.Rules
}

// NewRenderer creates a renderer. The directory is created on first write.
func NewRenderer(outputDir string, labels Labels, rules quality.Rules) *Renderer {
	if rules == nil {
		rules = quality.DefaultRules()
	}
	return &Renderer{
		outputDir: outputDir,
		labels:    labels,
		rules:     rules,
	}
}

// writeArtifact renders into memory and writes the file only once encode succeeded,
// so a failed render leaves nothing on disk
func (r *Renderer) writeArtifact(name string, encode func(io.Writer) error) (string, error) {
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}

	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(r.outputDir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// formatValue prints at most two decimals
func formatValue(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
