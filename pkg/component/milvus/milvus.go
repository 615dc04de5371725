// Package milvus wraps the Milvus SDK for the entity vector collection.
package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/kart-io/graphrag/pkg/component/storage"
	milvusopts "github.com/kart-io/graphrag/pkg/options/milvus"
)

// Field names of the entity collection.
const (
	FieldID          = "id"
	FieldEmbedding   = "embedding"
	FieldName        = "name"
	FieldDescription = "description"
	FieldType        = "type"
)

const (
	idMaxLen   = 64
	textMaxLen = 8192
)

// Client wraps the Milvus SDK client.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

var _ storage.Client = (*Client)(nil)

// New creates a new Milvus client.
func New(ctx context.Context, opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{client: c, opts: opts}, nil
}

// Name returns the storage type identifier.
func (c *Client) Name() string {
	return "milvus"
}

// Ping lists collections as a liveness probe.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.client.ListCollections(ctx, milvusclient.NewListCollectionOption())
	return err
}

// Close closes the Milvus client connection.
func (c *Client) Close() error {
	return c.client.Close(context.Background())
}

// HasCollection reports whether the collection exists.
func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	ok, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return ok, nil
}

// CreateEntityCollection creates the entity collection with a COSINE IVF_FLAT
// index and loads it. It is a no-op when the collection already exists.
func (c *Client) CreateEntityCollection(ctx context.Context, name string, dim int) error {
	exists, err := c.HasCollection(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	schema := entity.NewSchema().
		WithName(name).
		WithDescription("graph entity embeddings").
		WithField(entity.NewField().
			WithName(FieldID).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(idMaxLen).
			WithIsPrimaryKey(true)).
		WithField(entity.NewField().
			WithName(FieldEmbedding).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dim))).
		WithField(entity.NewField().
			WithName(FieldName).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(textMaxLen)).
		WithField(entity.NewField().
			WithName(FieldDescription).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(textMaxLen)).
		WithField(entity.NewField().
			WithName(FieldType).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(256))

	if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(name, schema)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx := index.NewIvfFlatIndex(entity.COSINE, c.opts.NList)
	task, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(name, FieldEmbedding, idx))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for index creation: %w", err)
	}

	return c.load(ctx, name)
}

func (c *Client) load(ctx context.Context, name string) error {
	task, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

// EntityRow is one entity to upsert.
type EntityRow struct {
	ID          string
	Name        string
	Description string
	Type        string
	Vector      []float32
}

// Upsert writes rows keyed by ID and flushes so that counts are accurate.
func (c *Client) Upsert(ctx context.Context, collection string, rows []EntityRow) error {
	if len(rows) == 0 {
		return nil
	}

	ids := make([]string, len(rows))
	names := make([]string, len(rows))
	descs := make([]string, len(rows))
	types := make([]string, len(rows))
	vectors := make([][]float32, len(rows))
	for i, r := range rows {
		ids[i], names[i], descs[i], types[i], vectors[i] = r.ID, r.Name, r.Description, r.Type, r.Vector
	}

	opt := milvusclient.NewColumnBasedInsertOption(collection,
		column.NewColumnVarChar(FieldID, ids),
		column.NewColumnFloatVector(FieldEmbedding, len(vectors[0]), vectors),
		column.NewColumnVarChar(FieldName, names),
		column.NewColumnVarChar(FieldDescription, descs),
		column.NewColumnVarChar(FieldType, types),
	)
	if _, err := c.client.Upsert(ctx, opt); err != nil {
		return fmt.Errorf("failed to upsert entities: %w", err)
	}

	flush, err := c.client.Flush(ctx, milvusclient.NewFlushOption(collection))
	if err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flush.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for flush: %w", err)
	}
	return nil
}

// SearchHit is one similarity hit with its payload.
type SearchHit struct {
	ID    string
	Score float32
	Name  string
	Type  string
}

// Search returns the k nearest entities to vector.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, k int) ([]SearchHit, error) {
	results, err := c.client.Search(ctx, milvusclient.NewSearchOption(
		collection,
		k,
		[]entity.Vector{entity.FloatVector(vector)},
	).WithANNSField(FieldEmbedding).
		WithSearchParam("nprobe", strconv.Itoa(c.opts.NProbe)).
		WithOutputFields(FieldName, FieldType))
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	rs := results[0]
	hits := make([]SearchHit, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		hit := SearchHit{Score: rs.Scores[i]}
		if idCol, ok := rs.IDs.(*column.ColumnVarChar); ok {
			hit.ID = idCol.Data()[i]
		}
		for _, field := range rs.Fields {
			col, ok := field.(*column.ColumnVarChar)
			if !ok {
				continue
			}
			switch col.Name() {
			case FieldName:
				hit.Name = col.Data()[i]
			case FieldType:
				hit.Type = col.Data()[i]
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DropCollection drops a collection.
func (c *Client) DropCollection(ctx context.Context, name string) error {
	if err := c.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(name)); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// RowCount returns the number of entities in a collection.
func (c *Client) RowCount(ctx context.Context, name string) (int64, error) {
	stats, err := c.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(name))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats: %w", err)
	}
	if val, ok := stats["row_count"]; ok {
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, nil
}
