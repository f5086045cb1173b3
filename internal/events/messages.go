// Package events announces finished training runs over AMQP.
package events

import (
	"encoding/json"
	"time"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

// RoutingModelTrained is the routing key of ModelTrained messages.
const RoutingModelTrained = "model.trained"

// ModelTrained tells consumers that new artifacts are available.
type ModelTrained struct {
	Timestamp   time.Time `json:"timestamp"`
	RunID       string    `json:"run_id"`
	ArtifactDir string    `json:"artifact_dir"`
	Categories  []string  `json:"categories"`
	Accuracy    float64   `json:"accuracy"`
	MacroF1     float64   `json:"macro_f1"`
}

// NewModelTrained builds the message for a finished run.
func NewModelTrained(run model.TrainingRun, categories []string) *ModelTrained {
	return &ModelTrained{
		RunID:       run.ID,
		ArtifactDir: run.ArtifactDir,
		Categories:  categories,
		Accuracy:    run.Accuracy,
		MacroF1:     run.MacroF1,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ModelTrained) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ModelTrainedFromJSON decodes a message.
func ModelTrainedFromJSON(data []byte) (*ModelTrained, error) {
	var msg ModelTrained
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
