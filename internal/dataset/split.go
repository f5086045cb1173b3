package dataset

import (
	"math"
	"math/rand"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

// DefaultTestSize is the held-out fraction used by training.
const DefaultTestSize = 0.2

// Split shuffles records with a seeded permutation and holds out
// ceil(n*testSize) of them for testing. The same seed always yields the
// same partition.
func Split(records []model.Record, testSize float64, seed int64) (train, test []model.Record) {
	n := len(records)
	if testSize < 0 {
		testSize = 0
	}
	if testSize > 1 {
		testSize = 1
	}
	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest >= n && n > 1 && testSize < 1 {
		nTest = n - 1
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible split, not security
	perm := rng.Perm(n)

	test = make([]model.Record, 0, nTest)
	train = make([]model.Record, 0, n-nTest)
	for i, idx := range perm {
		if i < nTest {
			test = append(test, records[idx])
		} else {
			train = append(train, records[idx])
		}
	}
	return train, test
}
