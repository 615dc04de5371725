package store

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
)

func TestScoredEntitiesFromPayload(t *testing.T) {
	points := []*qdrant.ScoredPoint{
		{
			Score: 0.75,
			Payload: map[string]*qdrant.Value{
				payloadName:        qdrant.NewValueString("SpaceX"),
				payloadType:        qdrant.NewValueString("Organization"),
				payloadDescription: qdrant.NewValueString("航天公司"),
			},
		},
		{Score: 0.5, Payload: map[string]*qdrant.Value{payloadName: qdrant.NewValueString("马斯克")}},
		{Score: 0.25},
	}

	got := scoredEntities(points)
	assert.Equal(t, []ScoredEntity{
		{Name: "SpaceX", Type: "Organization", Score: 0.75},
		{Name: "马斯克", Score: 0.5},
		{Score: 0.25},
	}, got)
	assert.Empty(t, scoredEntities(nil))
}
