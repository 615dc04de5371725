package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/kart-io/graphrag/internal/graphrag/metrics"
	"github.com/kart-io/graphrag/internal/graphrag/store"
)

func TestMatcherIsolatesLookupFailures(t *testing.T) {
	vs := newMemVectors().
		on("A", store.ScoredEntity{Name: "Alpha", Score: 0.9, Type: "Org"}, store.ScoredEntity{Name: "Alpine", Score: 0.4}).
		on("BB", store.ScoredEntity{Name: "Beta", Score: 0.8}, store.ScoredEntity{Name: "Alpha", Score: 0.95}).
		on("CCC", store.ScoredEntity{Name: "Gamma", Score: 0.99})
	emb := &hashEmbedder{failOn: map[string]bool{"CCC": true}}
	m := metrics.New()

	got := NewMatcher(vs, emb, 0, m).Match(context.Background(), []string{"A", "BB", "CCC"}, 5)

	assert.Equal(t, []MatchedEntity{
		{Name: "Alpha", Score: 0.95, Type: "unknown"},
		{Name: "Beta", Score: 0.8, Type: "unknown"},
		{Name: "Alpine", Score: 0.4, Type: "unknown"},
	}, got)
	assert.EqualValues(t, 1, m.Stats()["retrieval"].(map[string]any)["lookup_failures"])
}

func TestMatcherUsesQueryEntityForNamelessHits(t *testing.T) {
	vs := newMemVectors().on("刘备", store.ScoredEntity{Score: 0.7, Type: "Person"})
	got := NewMatcher(vs, &hashEmbedder{}, 0, metrics.New()).Match(context.Background(), []string{"刘备"}, 0)
	assert.Equal(t, []MatchedEntity{{Name: "刘备", Score: 0.7, Type: "Person"}}, got)
}

func TestMatcherOnlyFirstThreeEntities(t *testing.T) {
	vs := newMemVectors().
		on("A", store.ScoredEntity{Name: "a", Score: 0.1}).
		on("BB", store.ScoredEntity{Name: "b", Score: 0.2}).
		on("CCC", store.ScoredEntity{Name: "c", Score: 0.3}).
		on("DDDD", store.ScoredEntity{Name: "d", Score: 0.9})
	emb := &hashEmbedder{}

	got := NewMatcher(vs, emb, 0, metrics.New()).Match(context.Background(), []string{"A", "BB", "CCC", "DDDD"}, 5)
	assert.Equal(t, []string{"c", "b", "a"}, names(got))
	assert.Equal(t, 3, emb.calls)
}

func TestMatcherTruncatesToTopK(t *testing.T) {
	vs := newMemVectors().
		on("A", store.ScoredEntity{Name: "a1", Score: 0.5}, store.ScoredEntity{Name: "a2", Score: 0.6}).
		on("BB", store.ScoredEntity{Name: "b1", Score: 0.7}, store.ScoredEntity{Name: "b2", Score: 0.8})
	got := NewMatcher(vs, &hashEmbedder{}, 0, metrics.New()).Match(context.Background(), []string{"A", "BB"}, 3)
	assert.Equal(t, []string{"b2", "b1", "a2"}, names(got))
}

func TestMergeMatchesRanking(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		entities := []string{"q0", "q1", "q2"}
		groups := make([][]store.ScoredEntity, len(entities))
		for i := range groups {
			groups[i] = rapid.SliceOfN(rapid.Custom(func(t *rapid.T) store.ScoredEntity {
				return store.ScoredEntity{
					Name:  rapid.SampledFrom([]string{"", "x", "y", "z", "w"}).Draw(t, "name"),
					Score: rapid.Float64Range(0, 1).Draw(t, "score"),
				}
			}), 0, 2).Draw(t, "hits")
		}
		topK := rapid.IntRange(1, 8).Draw(t, "topK")

		got := mergeMatches(entities, groups, topK)

		if len(got) > topK {
			t.Fatalf("len %d exceeds topK %d", len(got), topK)
		}
		seen := map[string]bool{}
		for i, e := range got {
			if seen[e.Name] {
				t.Fatalf("duplicate name %q", e.Name)
			}
			seen[e.Name] = true
			if i > 0 && got[i-1].Score < e.Score {
				t.Fatalf("not sorted: %v", got)
			}
			// 保留的分数是该名称的最高分
			best := -1.0
			for gi, hits := range groups {
				for _, h := range hits {
					n := h.Name
					if n == "" {
						n = entities[gi]
					}
					if n == e.Name && h.Score > best {
						best = h.Score
					}
				}
			}
			if best != e.Score {
				t.Fatalf("%s kept score %v, max is %v", e.Name, e.Score, best)
			}
		}
	})
}
