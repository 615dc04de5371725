package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	cypher string
	params map[string]any
	rows   []map[string]any
	err    error
}

func (f *fakeRunner) Query(_ context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	f.cypher, f.params = cypher, params
	return f.rows, f.err
}

func (f *fakeRunner) Ping(context.Context) error { return f.err }

func TestNeo4jRelations(t *testing.T) {
	r := &fakeRunner{rows: []map[string]any{
		{"source": "刘备", "rel": "结义", "target": "关羽"},
		{"source": "刘备", "rel": "君臣", "target": "诸葛亮"},
	}}
	s := NewNeo4jStore(r)

	rels, err := s.Relations(context.Background(), []string{"刘备", "关羽"}, 15)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (s:Entity)-[r]-(t:Entity) WHERE s.name IN $names RETURN s.name as source, type(r) as rel, t.name as target LIMIT 15", r.cypher)
	assert.Equal(t, []string{"刘备", "关羽"}, r.params["names"])
	assert.Equal(t, []Relation{
		{Source: "刘备", Rel: "结义", Target: "关羽"},
		{Source: "刘备", Rel: "君臣", Target: "诸葛亮"},
	}, rels)
}

func TestNeo4jRelationsError(t *testing.T) {
	s := NewNeo4jStore(&fakeRunner{err: errors.New("connection refused")})
	_, err := s.Relations(context.Background(), []string{"A"}, 15)
	assert.ErrorContains(t, err, "connection refused")
}

func TestNeo4jEntities(t *testing.T) {
	r := &fakeRunner{rows: []map[string]any{
		{"name": "刘备", "desc": "蜀汉", "labels": []any{"Entity", "Person"}},
		{"name": "荆州", "desc": nil, "labels": []any{"Entity"}},
	}}
	got, err := NewNeo4jStore(r).Entities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entitiesCypher, r.cypher)
	assert.Equal(t, []EntityRecord{
		{Name: "刘备", Description: "蜀汉", Labels: []string{"Entity", "Person"}},
		{Name: "荆州", Labels: []string{"Entity"}},
	}, got)
}

func TestUnavailable(t *testing.T) {
	u := NewUnavailable("qdrant", errors.New("dial timeout"))
	ctx := context.Background()

	_, err := u.Search(ctx, []float32{1}, 2)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorContains(t, err, "dial timeout")
	_, err = u.Relations(ctx, []string{"A"}, 15)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "qdrant", u.Name())

	var nilStore *Unavailable
	assert.ErrorIs(t, nilStore.Ping(ctx), ErrUnavailable)
	assert.Equal(t, "unavailable", nilStore.Name())
}
