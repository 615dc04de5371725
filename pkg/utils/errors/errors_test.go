package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestMakeAndParseCode(t *testing.T) {
	code := MakeCode(ServiceGraphRAG, CategoryConflict, 1)
	assert.Equal(t, 2005001, code)

	s, c, q := ParseCode(code)
	assert.Equal(t, ServiceGraphRAG, s)
	assert.Equal(t, CategoryConflict, c)
	assert.Equal(t, 1, q)
	assert.True(t, IsClientError(code))
	assert.False(t, IsClientError(ErrGraphRAGSyncFailed.Code))
}

func TestErrnoWithCauseAndMessage(t *testing.T) {
	cause := stderrors.New("neo4j down")
	e := ErrGraphRAGSyncFailed.WithCause(cause)

	assert.ErrorIs(t, e, cause)
	assert.ErrorIs(t, e, ErrGraphRAGSyncFailed)
	assert.Contains(t, e.Error(), "neo4j down")
	assert.Nil(t, ErrGraphRAGSyncFailed.Unwrap(), "shared errno must stay untouched")

	m := ErrInvalidParam.WithMessagef("field %s", "query")
	assert.Equal(t, "field query", m.MessageEN)
	assert.Equal(t, "参数无效", m.Message("zh"))
	assert.Equal(t, "field query", m.Message("en"))
	assert.Equal(t, http.StatusBadRequest, m.HTTPStatus())
	assert.Equal(t, codes.InvalidArgument, m.GRPCStatus())
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("ctx: %w", ErrGraphRAGSyncRunning)
	assert.Equal(t, ErrGraphRAGSyncRunning.Code, FromError(wrapped).Code)
	assert.True(t, IsCode(wrapped, ErrGraphRAGSyncRunning.Code))

	assert.Equal(t, ErrRequestTimeout.Code, FromError(context.DeadlineExceeded).Code)
	assert.Equal(t, ErrInternal.Code, FromError(stderrors.New("x")).Code)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(New(ErrInternal.Code, 500, codes.Internal, "dup", "重复"))
	})
	assert.Panics(t, func() {
		Register(New(MakeCode(42, CategoryInternal, 0), 500, codes.Internal, "x", "x"))
	})
	_, ok := Lookup(MakeCode(42, CategoryInternal, 0))
	assert.False(t, ok)

	e, ok := Lookup(ErrGraphRAGTimeout.Code)
	assert.True(t, ok)
	assert.Equal(t, ErrGraphRAGTimeout, e)
}

func TestFormat(t *testing.T) {
	e := ErrGraphRAGRunFailed.WithCause(stderrors.New("boom"))
	s := fmt.Sprintf("%+v", e)
	assert.Contains(t, s, "HTTP 500")
	assert.Contains(t, s, "caused by: boom")
	assert.Equal(t, e.Error(), fmt.Sprintf("%s", e))
}
