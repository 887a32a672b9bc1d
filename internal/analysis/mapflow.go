package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Veraticus/tradewinds/internal/model"
)

// Map flow roles.
const (
	RoleExporter = "exporter"
	RoleImporter = "importer"
)

var countryNames = map[string]string{
	"US": "United States of America",
	"IN": "India",
	"CN": "China",
	"DE": "Germany",
	"JP": "Japan",
	"KR": "South Korea",
	"FR": "France",
	"GB": "United Kingdom",
	"IT": "Italy",
	"CA": "Canada",
	"BR": "Brazil",
	"AU": "Australia",
}

// CountryName returns the display name used on the globe, or code itself
// when the country is not mapped.
func CountryName(code string) string {
	if name, ok := countryNames[strings.ToUpper(code)]; ok {
		return name
	}
	return code
}

// BuildMapFlow returns the exporter and importer endpoints for a shipment.
func BuildMapFlow(hsCode, origin, destination string, materials []model.Material) []model.MapFlowEntry {
	material := "Unknown"
	if len(materials) > 0 && materials[0].Name != "" {
		material = materials[0].Name
	}

	return []model.MapFlowEntry{
		{Country: CountryName(origin), Role: RoleExporter, Material: material, HSCode: hsCode},
		{Country: CountryName(destination), Role: RoleImporter, Material: material, HSCode: hsCode},
	}
}

// GlobeWriter saves the latest map flow to a JSON file read by the globe view.
type GlobeWriter struct {
	path string
	mu   sync.Mutex
}

// NewGlobeWriter creates a writer for path. An empty path disables writing.
func NewGlobeWriter(path string) *GlobeWriter {
	return &GlobeWriter{path: path}
}

// Path returns the configured output path.
func (w *GlobeWriter) Path() string {
	if w == nil {
		return ""
	}
	return w.path
}

// Write replaces the globe file with flow.
func (w *GlobeWriter) Write(flow []model.MapFlowEntry) error {
	if w == nil || w.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(flow, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode map flow: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0750); err != nil {
		return fmt.Errorf("failed to create globe directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(w.path), ".globe-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write globe file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close globe file: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace globe file: %w", err)
	}
	return nil
}
