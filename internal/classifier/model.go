package classifier

import (
	"errors"
	"math"

	"cyberlaw-advisor/backend/internal/match"
)

// ErrNoMatch is returned when a query shares no vocabulary with the dataset.
var ErrNoMatch = errors.New("no matching section")

// Prediction is the best section for a query.
type Prediction struct {
	Section string
	Score   float64
	Record  Record
}

type sparseVector map[int]float64

// Model is a TF-IDF nearest-centroid classifier over section labels.
type Model struct {
	vocab     map[string]int
	idf       []float64
	labels    []string
	centroids []sparseVector
	records   map[string]Record
}

// Train builds a model from dataset records. Each record contributes its
// "section - offense" text to the centroid of its section.
func Train(records []Record) (*Model, error) {
	if len(records) == 0 {
		return nil, errors.New("no records to train on")
	}

	docs := make([][]string, len(records))
	vocab := make(map[string]int)
	var df []int
	for i, rec := range records {
		tokens := match.Tokens(match.TrainingText(rec.Section, rec.Offense))
		docs[i] = tokens
		seen := make(map[int]struct{}, len(tokens))
		for _, tok := range tokens {
			id, ok := vocab[tok]
			if !ok {
				id = len(vocab)
				vocab[tok] = id
				df = append(df, 0)
			}
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				df[id]++
			}
		}
	}

	n := float64(len(docs))
	idf := make([]float64, len(df))
	for id, count := range df {
		idf[id] = math.Log((1+n)/(1+float64(count))) + 1
	}

	m := &Model{
		vocab:   vocab,
		idf:     idf,
		records: make(map[string]Record),
	}
	labelIndex := make(map[string]int)
	for i, rec := range records {
		key := match.SectionKey(rec.Section)
		idx, ok := labelIndex[key]
		if !ok {
			idx = len(m.labels)
			labelIndex[key] = idx
			m.labels = append(m.labels, rec.Section)
			m.centroids = append(m.centroids, sparseVector{})
			m.records[key] = rec
		}
		for id, w := range m.weigh(docs[i]) {
			m.centroids[idx][id] += w
		}
	}
	for _, c := range m.centroids {
		normalize(c)
	}
	return m, nil
}

// Predict returns the section whose centroid is closest to the query.
func (m *Model) Predict(query string) (Prediction, error) {
	vec := m.weigh(match.Tokens(query))
	if len(vec) == 0 {
		return Prediction{}, ErrNoMatch
	}
	best, bestScore := -1, 0.0
	for i, c := range m.centroids {
		score := dot(vec, c)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Prediction{}, ErrNoMatch
	}
	label := m.labels[best]
	return Prediction{
		Section: label,
		Score:   bestScore,
		Record:  m.records[match.SectionKey(label)],
	}, nil
}

// Lookup returns the first dataset record for section.
func (m *Model) Lookup(section string) (Record, bool) {
	rec, ok := m.records[match.SectionKey(section)]
	return rec, ok
}

// Labels returns the number of distinct sections.
func (m *Model) Labels() int { return len(m.labels) }

// Terms returns the vocabulary size.
func (m *Model) Terms() int { return len(m.vocab) }

func (m *Model) weigh(tokens []string) sparseVector {
	vec := sparseVector{}
	for _, tok := range tokens {
		if id, ok := m.vocab[tok]; ok {
			vec[id]++
		}
	}
	for id, tf := range vec {
		vec[id] = tf * m.idf[id]
	}
	normalize(vec)
	return vec
}

func normalize(v sparseVector) {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for id := range v {
		v[id] /= norm
	}
}

func dot(a, b sparseVector) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for id, w := range a {
		sum += w * b[id]
	}
	return sum
}
