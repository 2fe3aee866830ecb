package recipes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"recipeagent"
)

// MaxCandidates caps how many options a single search or generation round
// puts in front of the user.
const MaxCandidates = 3

const embedCacheSize = 1024

// Embedder turns text into a vector for the semantic fallback.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever ranks cookbook documents against the pantry. The whole corpus is
// rescanned on every call; only embeddings are cached, keyed by content hash,
// since the same text always embeds to the same vector.
type Retriever struct {
	corpus   *Corpus
	embedder Embedder
	cache    *lru.Cache[string, []float32]
}

func NewRetriever(corpus *Corpus, embedder Embedder) (*Retriever, error) {
	cache, err := lru.New[string, []float32](embedCacheSize)
	if err != nil {
		return nil, err
	}
	return &Retriever{corpus: corpus, embedder: embedder, cache: cache}, nil
}

// Search returns up to MaxCandidates documents. With a non-empty pantry the
// ranking is ingredient-overlap count, descending, ties kept in corpus order.
// Documents missing any required ingredient are filtered out first. With an
// empty pantry it falls back to semantic similarity against the query.
func (r *Retriever) Search(ctx context.Context, pantryNames []string, query string, required []string) ([]recipeagent.RecipeCandidate, error) {
	docs, err := r.corpus.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}

	if len(pantryNames) > 0 {
		return r.rankByOverlap(docs, pantryNames, required), nil
	}
	return r.rankBySimilarity(ctx, docs, query, required)
}

func (r *Retriever) rankByOverlap(docs []Document, pantryNames, required []string) []recipeagent.RecipeCandidate {
	type scored struct {
		doc     Document
		overlap int
	}

	results := make([]scored, 0, len(docs))
	for _, doc := range docs {
		ings := ingredientNames(doc)
		if !hasAll(ings, required) {
			continue
		}
		overlap := 0
		for _, name := range pantryNames {
			if matchesAny(name, ings) {
				overlap++
			}
		}
		results = append(results, scored{doc: doc, overlap: overlap})
	}

	// Stable: equal overlap keeps original corpus order.
	sort.SliceStable(results, func(i, j int) bool { return results[i].overlap > results[j].overlap })

	out := make([]recipeagent.RecipeCandidate, 0, MaxCandidates)
	for _, s := range results {
		if len(out) == MaxCandidates {
			break
		}
		out = append(out, s.doc.Candidate())
	}
	return out
}

func (r *Retriever) rankBySimilarity(ctx context.Context, docs []Document, query string, required []string) ([]recipeagent.RecipeCandidate, error) {
	if r.embedder == nil {
		return nil, fmt.Errorf("semantic search unavailable: no embedder configured")
	}

	qv, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	type scored struct {
		doc Document
		sim float64
	}

	results := make([]scored, 0, len(docs))
	for _, doc := range docs {
		if !hasAll(ingredientNames(doc), required) {
			continue
		}
		dv, err := r.embedDoc(ctx, doc)
		if err != nil {
			slog.Warn("RETRIEVER: skipping document, embed failed", "doc", doc.ID, "error", err)
			continue
		}
		results = append(results, scored{doc: doc, sim: cosine(qv, dv)})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].sim > results[j].sim })

	out := make([]recipeagent.RecipeCandidate, 0, MaxCandidates)
	for _, s := range results {
		if len(out) == MaxCandidates {
			break
		}
		out = append(out, s.doc.Candidate())
	}
	return out, nil
}

// embedDoc embeds the document's title plus ingredient list, caching by
// content hash so corpus edits invalidate naturally.
func (r *Retriever) embedDoc(ctx context.Context, doc Document) ([]float32, error) {
	text := doc.Title + ": " + strings.Join(ingredientNames(doc), ", ")
	sum := sha256.Sum256([]byte(text))
	key := hex.EncodeToString(sum[:])

	if vec, ok := r.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, vec)
	return vec, nil
}

func ingredientNames(doc Document) []string {
	names := make([]string, 0, len(doc.Ingredients))
	for _, ing := range doc.Ingredients {
		name := strings.ToLower(strings.TrimSpace(ing.Name))
		if len(name) >= 3 {
			names = append(names, name)
		}
	}
	return names
}

// matchesAny reports whether name matches any recipe ingredient, where a
// match is a substring in either direction ("basil" matches "fresh basil").
func matchesAny(name string, ings []string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	for _, ing := range ings {
		if strings.Contains(ing, name) || strings.Contains(name, ing) {
			return true
		}
	}
	return false
}

// hasAll reports whether every required name matches some recipe ingredient.
func hasAll(ings []string, required []string) bool {
	for _, req := range required {
		if !matchesAny(req, ings) {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
