package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GraphEntity 实体节点表。
type GraphEntity struct {
	ID          uint     `gorm:"primaryKey"`
	Name        string   `gorm:"size:255;uniqueIndex;not null"`
	Description string   `gorm:"type:text"`
	Labels      []string `gorm:"serializer:json"`
}

// TableName implements gorm's Tabler.
func (GraphEntity) TableName() string {
	return "graph_entities"
}

// GraphRelation 关系边表，方向为 Source -> Target。
type GraphRelation struct {
	ID     uint   `gorm:"primaryKey"`
	Source string `gorm:"size:255;index;not null"`
	Rel    string `gorm:"size:128;not null"`
	Target string `gorm:"size:255;index;not null"`
}

// TableName implements gorm's Tabler.
func (GraphRelation) TableName() string {
	return "graph_relations"
}

// SQLGraphStore 在关系库中保存知识图谱，适合没有 Neo4j 的部署。
type SQLGraphStore struct {
	db   *gorm.DB
	name string
}

var _ GraphStore = (*SQLGraphStore)(nil)

// NewSQLGraphStore 创建 SQL 图存储，name 为驱动名，用于健康检查展示。
func NewSQLGraphStore(db *gorm.DB, name string) *SQLGraphStore {
	return &SQLGraphStore{db: db, name: name}
}

// Migrate 创建或更新图表结构。
func (s *SQLGraphStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&GraphEntity{}, &GraphRelation{}); err != nil {
		return fmt.Errorf("failed to migrate graph tables: %w", err)
	}
	return nil
}

// Name returns the SQL driver name.
func (s *SQLGraphStore) Name() string {
	return s.name
}

func (s *SQLGraphStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SaveEntities 按名称写入或更新实体。
func (s *SQLGraphStore) SaveEntities(ctx context.Context, entities []GraphEntity) error {
	if len(entities) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "labels"}),
	}).Create(&entities).Error
}

// SaveRelations 追加关系边。
func (s *SQLGraphStore) SaveRelations(ctx context.Context, relations []GraphRelation) error {
	if len(relations) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&relations).Error
}

// Relations 双向匹配 graph_relations，命中端点渲染为 Source。
func (s *SQLGraphStore) Relations(ctx context.Context, names []string, limit int) ([]Relation, error) {
	if len(names) == 0 || limit <= 0 {
		return nil, nil
	}

	var rows []GraphRelation
	err := s.db.WithContext(ctx).
		Where("source IN ? OR target IN ?", names, names).
		Order("id").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}

	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	// 与无向 Cypher 模式一致：两端都命中时每个方向各一行，总数受 limit 约束。
	out := make([]Relation, 0, len(rows))
	for _, r := range rows {
		if _, ok := wanted[r.Source]; ok {
			out = append(out, Relation{Source: r.Source, Rel: r.Rel, Target: r.Target})
		}
		if _, ok := wanted[r.Target]; ok && r.Target != r.Source {
			out = append(out, Relation{Source: r.Target, Rel: r.Rel, Target: r.Source})
		}
		if len(out) >= limit {
			return out[:limit], nil
		}
	}
	return out, nil
}

// Entities 返回全部实体，按写入顺序。
func (s *SQLGraphStore) Entities(ctx context.Context) ([]EntityRecord, error) {
	var rows []GraphEntity
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}

	out := make([]EntityRecord, len(rows))
	for i, r := range rows {
		out[i] = EntityRecord{Name: r.Name, Description: r.Description, Labels: r.Labels}
	}
	return out, nil
}
