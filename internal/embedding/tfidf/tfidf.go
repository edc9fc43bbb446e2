package tfidf

import (
	"context"
	"errors"
	"math"
	"regexp"
	"slices"
	"strings"
)

// ModelName is the reserved embedding model name that selects this embedder.
const ModelName = "tfidf"

var (
	tokenRe   = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
	stopwords = wordSet("a an the and or but if then else for to of in on at by with as is are was were be been being " +
		"it this that these those from up down over under again further than so such into about between through " +
		"during before after above below out off own same too very can will just don should now")
)

type term struct {
	index int
	idf   float64
}

// Embedder is a local TF-IDF vectorizer fitted to a single corpus. Vectors are
// L2-normalised and a text with no known terms maps to the zero vector.
type Embedder struct {
	terms map[string]term
	dim   int
	ready bool
}

func NewEmbedder() *Embedder { return &Embedder{} }

func (e *Embedder) Name() string { return ModelName }

// Prepare fits the vocabulary to corpus. The vocabulary is sorted so equal
// corpora give identical vectors. It may only be called once.
func (e *Embedder) Prepare(corpus []string) error {
	switch {
	case e.ready:
		return errors.New("tfidf: embedder already prepared")
	case len(corpus) == 0:
		return errors.New("tfidf: empty corpus")
	}

	df := documentFrequencies(corpus)
	if len(df) == 0 {
		return errors.New("tfidf: corpus has no indexable terms")
	}
	vocab := make([]string, 0, len(df))
	for w := range df {
		vocab = append(vocab, w)
	}
	slices.Sort(vocab)

	n := float64(len(corpus))
	e.terms = make(map[string]term, len(vocab))
	for i, w := range vocab {
		e.terms[w] = term{index: i, idf: 1 + math.Log((1+n)/(1+float64(df[w])))}
	}
	e.dim = len(vocab)
	e.ready = true
	return nil
}

func (e *Embedder) Dimension() int { return e.dim }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !e.ready {
		return nil, errors.New("tfidf: embedder not prepared")
	}
	vec := make([]float64, e.dim)
	for _, w := range tokens(text) {
		if t, ok := e.terms[w]; ok {
			vec[t.index] += t.idf
		}
	}
	normalize(vec)
	return vec, nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func documentFrequencies(corpus []string) map[string]int {
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]bool)
		for _, w := range tokens(text) {
			if !seen[w] {
				seen[w] = true
				df[w]++
			}
		}
	}
	return df
}

// tokens lowercases text and returns its words and numbers minus stopwords.
func tokens(text string) []string {
	words := tokenRe.FindAllString(strings.ToLower(text), -1)
	return slices.DeleteFunc(words, func(w string) bool {
		_, stop := stopwords[w]
		return stop
	})
}

func normalize(vec []float64) {
	var sum float64
	for _, x := range vec {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

func wordSet(words string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(words) {
		set[w] = struct{}{}
	}
	return set
}
