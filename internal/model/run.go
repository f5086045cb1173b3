package model

import "time"

// TrainingRun summarizes one execution of the training pipeline.
type TrainingRun struct {
	StartedAt      time.Time     `yaml:"started_at"`
	ID             string        `yaml:"id"`
	DatasetPath    string        `yaml:"dataset"`
	ArtifactDir    string        `yaml:"artifact_dir"`
	Duration       time.Duration `yaml:"duration"`
	Seed           int64         `yaml:"seed"`
	TrainRows      int           `yaml:"train_rows"`
	TestRows       int           `yaml:"test_rows"`
	DroppedRows    int           `yaml:"dropped_rows"`
	VocabularySize int           `yaml:"vocabulary_size"`
	Trees          int           `yaml:"trees"`
	Accuracy       float64       `yaml:"accuracy"`
	MacroF1        float64       `yaml:"macro_f1"`
}

// ClassMetrics holds per-category evaluation scores.
type ClassMetrics struct {
	Category  string  `yaml:"category"`
	Precision float64 `yaml:"precision"`
	Recall    float64 `yaml:"recall"`
	F1        float64 `yaml:"f1"`
	Support   int     `yaml:"support"`
}

// Evaluation is the scored result of predicting a labeled set.
type Evaluation struct {
	Classes        []ClassMetrics `yaml:"classes"`
	Samples        int            `yaml:"samples"`
	Accuracy       float64        `yaml:"accuracy"`
	MacroPrecision float64        `yaml:"macro_precision"`
	MacroRecall    float64        `yaml:"macro_recall"`
	MacroF1        float64        `yaml:"macro_f1"`
}
