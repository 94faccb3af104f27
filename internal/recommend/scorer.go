package recommend

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/lxplabs/recflow/pkg/models"
)

// TFIDFScorer scores user-course pairs by cosine similarity of their tag
// sets under a shared TF-IDF weighting.
//
// Users and courses are vectorized over one vocabulary built from both
// tables, with smoothed IDF (ln((1+N)/(1+df)) + 1) and L2-normalized
// rows, so cosine similarity reduces to a dot product. The vocabulary is
// assembled in input order (users first, then courses), which makes the
// output bit-stable for identical inputs.
type TFIDFScorer struct {
	logger *logrus.Logger
}

func NewTFIDFScorer(logger *logrus.Logger) *TFIDFScorer {
	return &TFIDFScorer{logger: logger}
}

// tfidfModel holds the fitted state: the shared vocabulary, IDF weights
// and the normalized course matrix. User rows are built per scoring call,
// so chunked execution only ever materializes a chunk-sized block.
type tfidfModel struct {
	vocab     map[int64]int
	idf       []float64
	courseIDs []string
	courses   *mat.Dense
	logger    *logrus.Logger
}

func (s *TFIDFScorer) Fit(users []models.User, courses []models.Course) (FittedScorer, error) {
	model := &tfidfModel{logger: s.logger}
	if len(users) == 0 || len(courses) == 0 {
		return model, nil
	}

	docs := make([][]int64, 0, len(users)+len(courses))
	for i := range users {
		docs = append(docs, users[i].InterestTags)
	}
	for i := range courses {
		docs = append(docs, courses[i].Tags)
	}

	model.vocab = buildVocabulary(docs)
	if len(model.vocab) == 0 {
		// Every document is empty; nothing can score above zero.
		return model, nil
	}
	model.idf = inverseDocumentFrequencies(docs, model.vocab)

	model.courseIDs = make([]string, len(courses))
	for i := range courses {
		model.courseIDs[i] = courses[i].ID
	}
	model.courses = documentMatrix(docs[len(users):], model.vocab, model.idf)

	s.logger.WithFields(logrus.Fields{
		"users":      len(users),
		"courses":    len(courses),
		"vocabulary": len(model.vocab),
	}).Info("TF-IDF model fitted")

	return model, nil
}

func (m *tfidfModel) Score(users []models.User) ([]models.ScoredPair, error) {
	if m.courses == nil || len(users) == 0 {
		return nil, nil
	}

	docs := make([][]int64, len(users))
	for i := range users {
		docs[i] = users[i].InterestTags
	}
	userMatrix := documentMatrix(docs, m.vocab, m.idf)

	var sim mat.Dense
	sim.Mul(userMatrix, m.courses.T())

	var pairs []models.ScoredPair
	for ui := range users {
		row := sim.RawRowView(ui)
		for ci, courseID := range m.courseIDs {
			if row[ci] > 0 {
				pairs = append(pairs, models.ScoredPair{
					UserID:   users[ui].ID,
					CourseID: courseID,
					Score:    row[ci],
				})
			}
		}
	}

	m.logger.WithFields(logrus.Fields{
		"users": len(users),
		"pairs": len(pairs),
	}).Info("TF-IDF scoring complete")

	return pairs, nil
}

// buildVocabulary assigns each distinct tag an index in first-seen order.
func buildVocabulary(docs [][]int64) map[int64]int {
	vocab := make(map[int64]int)
	for _, tags := range docs {
		for _, t := range tags {
			if _, ok := vocab[t]; !ok {
				vocab[t] = len(vocab)
			}
		}
	}
	return vocab
}

func inverseDocumentFrequencies(docs [][]int64, vocab map[int64]int) []float64 {
	df := make([]float64, len(vocab))
	seen := make(map[int64]struct{})
	for _, tags := range docs {
		clear(seen)
		for _, t := range tags {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			df[vocab[t]]++
		}
	}

	n := float64(len(docs))
	idf := make([]float64, len(df))
	for i, d := range df {
		idf[i] = math.Log((1+n)/(1+d)) + 1
	}
	return idf
}

// documentMatrix builds the L2-normalized TF-IDF matrix for one table.
// Empty documents stay zero rows and therefore never emit a pair.
func documentMatrix(docs [][]int64, vocab map[int64]int, idf []float64) *mat.Dense {
	m := mat.NewDense(len(docs), len(vocab), nil)
	for i, tags := range docs {
		row := m.RawRowView(i)
		for _, t := range tags {
			row[vocab[t]] = idf[vocab[t]]
		}
		norm := mat.Norm(m.RowView(i), 2)
		if norm > 0 {
			for j := range row {
				row[j] /= norm
			}
		}
	}
	return m
}
