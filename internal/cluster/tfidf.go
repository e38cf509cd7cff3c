package cluster

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Vectorizer limits.
const (
	maxFeatures = 500
	minDocFreq  = 2
	maxDocRatio = 0.8
)

var (
	errEmptyVocabulary = errors.New("empty vocabulary: documents contain only stop words")
	errNoTermsRemain   = errors.New("no terms remain after document-frequency pruning")
	errDocFreqBounds   = errors.New("max document frequency is below min document frequency")
)

// tfidf holds an L2-normalised document-term matrix.
type tfidf struct {
	vocabulary []string
	matrix     *mat.Dense
}

// ngrams returns the unigrams and adjacent bigrams of tokens.
func ngrams(tokens []string) []string {
	out := make([]string, 0, 2*len(tokens))
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

// vectorize builds a TF-IDF matrix over 1- and 2-grams of the preprocessed
// documents. Terms must appear in at least minDocFreq documents and in no
// more than maxDocRatio of them; the maxFeatures most frequent survive.
// IDF is smoothed: ln((1+n)/(1+df)) + 1.
func vectorize(docs []string) (*tfidf, error) {
	n := len(docs)
	counts := make([]map[string]int, n)
	docFreq := make(map[string]int)
	termFreq := make(map[string]int)
	for i, doc := range docs {
		counts[i] = make(map[string]int)
		for _, term := range ngrams(tokenize(doc)) {
			if counts[i][term] == 0 {
				docFreq[term]++
			}
			counts[i][term]++
			termFreq[term]++
		}
	}
	if len(docFreq) == 0 {
		return nil, errEmptyVocabulary
	}

	maxDocs := maxDocRatio * float64(n)
	if maxDocs < minDocFreq {
		return nil, errDocFreqBounds
	}
	var vocab []string
	for term, df := range docFreq {
		if df >= minDocFreq && float64(df) <= maxDocs {
			vocab = append(vocab, term)
		}
	}
	if len(vocab) == 0 {
		return nil, errNoTermsRemain
	}
	sort.Strings(vocab)
	if len(vocab) > maxFeatures {
		sort.SliceStable(vocab, func(i, j int) bool {
			return termFreq[vocab[i]] > termFreq[vocab[j]]
		})
		vocab = vocab[:maxFeatures]
		sort.Strings(vocab)
	}

	m := mat.NewDense(n, len(vocab), nil)
	for j, term := range vocab {
		idf := math.Log(float64(1+n)/float64(1+docFreq[term])) + 1
		for i := range docs {
			if c := counts[i][term]; c > 0 {
				m.Set(i, j, float64(c)*idf)
			}
		}
	}
	for i := 0; i < n; i++ {
		row := m.RowView(i)
		norm := math.Sqrt(mat.Dot(row, row))
		if norm == 0 {
			continue
		}
		for j := 0; j < len(vocab); j++ {
			m.Set(i, j, m.At(i, j)/norm)
		}
	}
	return &tfidf{vocabulary: vocab, matrix: m}, nil
}

// distances returns 1 - cosine similarity between every pair of rows,
// with similarities clipped to [0,1] and a zero diagonal. Rows are already
// unit length so the Gram matrix holds the cosines.
func (t *tfidf) distances() *mat.SymDense {
	n, _ := t.matrix.Dims()
	var gram mat.Dense
	gram.Mul(t.matrix, t.matrix.T())
	d := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := math.Min(1, math.Max(0, gram.At(i, j)))
			d.SetSym(i, j, 1-sim)
		}
	}
	return d
}
