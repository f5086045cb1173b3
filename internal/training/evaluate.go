package training

import (
	"fmt"
	"sort"

	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/predict"
)

// Score compares true and predicted labels. Classes are the union of both
// label sets, sorted; classes with no predictions get precision 0 and
// classes with no support get recall 0.
func Score(truth, predicted []string) (model.Evaluation, error) {
	if len(truth) != len(predicted) {
		return model.Evaluation{}, fmt.Errorf("got %d predictions for %d labels", len(predicted), len(truth))
	}

	type counts struct{ tp, fp, fn, support int }
	byClass := make(map[string]*counts)
	get := func(label string) *counts {
		c, ok := byClass[label]
		if !ok {
			c = &counts{}
			byClass[label] = c
		}
		return c
	}

	correct := 0
	for i := range truth {
		get(truth[i]).support++
		if truth[i] == predicted[i] {
			correct++
			get(truth[i]).tp++
			continue
		}
		get(truth[i]).fn++
		get(predicted[i]).fp++
	}

	eval := model.Evaluation{Samples: len(truth)}
	if len(truth) == 0 {
		return eval, nil
	}
	eval.Accuracy = float64(correct) / float64(len(truth))

	labels := make([]string, 0, len(byClass))
	for label := range byClass {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		c := byClass[label]
		m := model.ClassMetrics{
			Category:  label,
			Support:   c.support,
			Precision: ratio(c.tp, c.tp+c.fp),
			Recall:    ratio(c.tp, c.tp+c.fn),
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		eval.Classes = append(eval.Classes, m)
		eval.MacroPrecision += m.Precision
		eval.MacroRecall += m.Recall
		eval.MacroF1 += m.F1
	}
	k := float64(len(labels))
	eval.MacroPrecision /= k
	eval.MacroRecall /= k
	eval.MacroF1 /= k
	return eval, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Evaluate predicts every record with its real amount and scores the result.
func Evaluate(p *predict.Predictor, records []model.Record) (model.Evaluation, error) {
	if len(records) == 0 {
		return model.Evaluation{}, nil
	}
	predicted, err := p.PredictBatch(model.Titles(records), model.Amounts(records))
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("failed to predict evaluation set: %w", err)
	}
	return Score(model.Categories(records), predicted)
}
