// Package artifact persists the fitted encoder and classifier.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/feature"
	"github.com/Veraticus/spice-categorizer/internal/forest"
)

// File names inside an artifact directory.
const (
	EncoderFile    = "encoder.json"
	ClassifierFile = "classifier.json"
)

// FormatVersion is bumped whenever the on-disk layout changes.
const FormatVersion = 1

type encoderFile struct {
	Terms       []string  `json:"terms"`
	IDF         []float64 `json:"idf"`
	Version     int       `json:"version"`
	MaxFeatures int       `json:"max_features"`
	StopWords   bool      `json:"stop_words"`
}

type classifierFile struct {
	Forest  forest.State `json:"forest"`
	RunID   string       `json:"run_id,omitempty"`
	Version int          `json:"version"`
}

// SaveEncoder writes a fitted encoder to path.
func SaveEncoder(path string, enc *feature.Encoder) error {
	v := enc.Vectorizer()
	if !v.Fitted() {
		return feature.ErrNotFitted
	}
	return writeJSON(path, encoderFile{
		Version:     FormatVersion,
		MaxFeatures: v.MaxFeatures(),
		StopWords:   v.StopWords(),
		Terms:       v.Terms(),
		IDF:         v.IDF(),
	})
}

// LoadEncoder reads an encoder written by SaveEncoder.
func LoadEncoder(path string) (*feature.Encoder, error) {
	var f encoderFile
	if err := readJSON(path, &f); err != nil {
		return nil, err
	}
	if f.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %s has version %d, want %d", common.ErrArtifactCorrupt, path, f.Version, FormatVersion)
	}
	v, err := feature.Restore(f.Terms, f.IDF,
		feature.WithMaxFeatures(f.MaxFeatures),
		feature.WithStopWords(f.StopWords))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrArtifactCorrupt, path, err)
	}
	return feature.NewEncoder(v), nil
}

// SaveForest writes a fitted forest to path, tagged with the training run.
func SaveForest(path string, f *forest.Forest, runID string) error {
	state, err := f.State()
	if err != nil {
		return err
	}
	return writeJSON(path, classifierFile{
		Version: FormatVersion,
		RunID:   runID,
		Forest:  state,
	})
}

// LoadForest reads a forest written by SaveForest and returns it with the
// run ID it was tagged with.
func LoadForest(path string) (*forest.Forest, string, error) {
	var f classifierFile
	if err := readJSON(path, &f); err != nil {
		return nil, "", err
	}
	if f.Version != FormatVersion {
		return nil, "", fmt.Errorf("%w: %s has version %d, want %d", common.ErrArtifactCorrupt, path, f.Version, FormatVersion)
	}
	model, err := forest.FromState(f.Forest)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", common.ErrArtifactCorrupt, path, err)
	}
	return model, f.RunID, nil
}

// Bundle is a loaded encoder and classifier pair.
type Bundle struct {
	Encoder *feature.Encoder
	Forest  *forest.Forest
	RunID   string
}

// Save writes both artifacts into dir, creating it if needed.
func Save(dir string, enc *feature.Encoder, f *forest.Forest, runID string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := SaveEncoder(filepath.Join(dir, EncoderFile), enc); err != nil {
		return fmt.Errorf("failed to save encoder: %w", err)
	}
	if err := SaveForest(filepath.Join(dir, ClassifierFile), f, runID); err != nil {
		return fmt.Errorf("failed to save classifier: %w", err)
	}
	return nil
}

// Load reads both artifacts from dir and checks they agree on row width.
func Load(dir string) (*Bundle, error) {
	enc, err := LoadEncoder(filepath.Join(dir, EncoderFile))
	if err != nil {
		return nil, err
	}
	model, runID, err := LoadForest(filepath.Join(dir, ClassifierFile))
	if err != nil {
		return nil, err
	}
	if enc.Width() != model.NumFeatures() {
		return nil, fmt.Errorf("%w: encoder width %d does not match classifier width %d",
			common.ErrArtifactCorrupt, enc.Width(), model.NumFeatures())
	}
	return &Bundle{Encoder: enc, Forest: model, RunID: runID}, nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // artifact path comes from configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", common.ErrArtifactNotFound, path)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrArtifactCorrupt, path, err)
	}
	return nil
}
