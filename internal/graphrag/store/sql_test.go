package store

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newSQLStore(t *testing.T) *SQLGraphStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := NewSQLGraphStore(db, "sqlite")
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLGraphStoreRelationsBothDirections(t *testing.T) {
	ctx := context.Background()
	s := newSQLStore(t)
	require.NoError(t, s.SaveRelations(ctx, []GraphRelation{
		{Source: "刘备", Rel: "结义", Target: "关羽"},
		{Source: "诸葛亮", Rel: "辅佐", Target: "刘备"},
		{Source: "曹操", Rel: "敌对", Target: "孙权"},
	}))

	rels, err := s.Relations(ctx, []string{"刘备"}, 15)
	require.NoError(t, err)
	assert.Equal(t, []Relation{
		{Source: "刘备", Rel: "结义", Target: "关羽"},
		{Source: "刘备", Rel: "辅佐", Target: "诸葛亮"},
	}, rels)
}

func TestSQLGraphStoreRelationsBothEndsMatched(t *testing.T) {
	ctx := context.Background()
	s := newSQLStore(t)
	require.NoError(t, s.SaveRelations(ctx, []GraphRelation{
		{Source: "刘备", Rel: "结义", Target: "关羽"},
		{Source: "曹操", Rel: "敌对", Target: "刘备"},
	}))

	rels, err := s.Relations(ctx, []string{"刘备", "关羽"}, 15)
	require.NoError(t, err)
	assert.Equal(t, []Relation{
		{Source: "刘备", Rel: "结义", Target: "关羽"},
		{Source: "关羽", Rel: "结义", Target: "刘备"},
		{Source: "刘备", Rel: "敌对", Target: "曹操"},
	}, rels)

	rels, err = s.Relations(ctx, []string{"刘备", "关羽"}, 2)
	require.NoError(t, err)
	assert.Len(t, rels, 2)
}

func TestSQLGraphStoreRelationsLimit(t *testing.T) {
	ctx := context.Background()
	s := newSQLStore(t)
	var edges []GraphRelation
	for i := 0; i < 20; i++ {
		edges = append(edges, GraphRelation{Source: "A", Rel: "R", Target: "B"})
	}
	require.NoError(t, s.SaveRelations(ctx, edges))

	rels, err := s.Relations(ctx, []string{"A"}, 15)
	require.NoError(t, err)
	assert.Len(t, rels, 15)

	rels, err = s.Relations(ctx, nil, 15)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestSQLGraphStoreEntitiesUpsert(t *testing.T) {
	ctx := context.Background()
	s := newSQLStore(t)
	require.NoError(t, s.SaveEntities(ctx, []GraphEntity{
		{Name: "刘备", Description: "蜀汉", Labels: []string{"Entity", "Person"}},
		{Name: "荆州", Labels: []string{"Entity"}},
	}))
	require.NoError(t, s.SaveEntities(ctx, []GraphEntity{
		{Name: "刘备", Description: "蜀汉昭烈帝", Labels: []string{"Entity", "Person"}},
	}))

	got, err := s.Entities(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "刘备", got[0].Name)
	assert.Equal(t, "蜀汉昭烈帝", got[0].Description)
	assert.Equal(t, []string{"Entity", "Person"}, got[0].Labels)
	assert.Equal(t, "sqlite", s.Name())
	assert.NoError(t, s.Ping(ctx))
}
