package response

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/graphrag/pkg/utils/errors"
)

func TestErr(t *testing.T) {
	r := Err(errors.ErrGraphRAGSyncRunning, "zh").WithRequestID("req-1")
	assert.Equal(t, errors.ErrGraphRAGSyncRunning.Code, r.Code)
	assert.Equal(t, "同步任务正在执行", r.Message)
	assert.Equal(t, "req-1", r.RequestID)

	assert.Equal(t, "A sync job is already running", Err(errors.ErrGraphRAGSyncRunning, "en").Message)
	assert.Equal(t, 0, Err(nil, "en").Code)
}

func TestSuccess(t *testing.T) {
	r := Success(map[string]int{"count": 3})
	assert.Equal(t, 0, r.Code)
	assert.Equal(t, "success", r.Message)
	assert.NotNil(t, r.Data)
}
