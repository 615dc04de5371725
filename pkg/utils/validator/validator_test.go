package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Query    string `json:"query" validate:"required,notblank,max=4000"`
	ThreadID string `json:"thread_id" validate:"omitempty,threadid"`
}

func TestValidateAccepts(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(&chatRequest{Query: "刘备和关羽是什么关系？", ThreadID: "01HZX3Y4-thread_1"}, LangZH))
	assert.NoError(t, v.Validate(&chatRequest{Query: "hi"}, LangEN))
}

func TestValidateTranslatesMessages(t *testing.T) {
	v := New()

	err := v.Validate(&chatRequest{Query: "   ", ThreadID: "bad id!"}, LangEN)
	require.Error(t, err)
	verrs, ok := err.(*ValidationErrors)
	require.True(t, ok)
	require.Len(t, verrs.Errors, 2)
	assert.Equal(t, "query", verrs.Errors[0].Field)
	assert.Equal(t, TagNotBlank, verrs.Errors[0].Tag)
	assert.Equal(t, "query must not be blank", verrs.Errors[0].Message)
	assert.Equal(t, "thread_id", verrs.Errors[1].Field)

	err = v.Validate(&chatRequest{}, LangZH)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query")
	assert.Contains(t, err.Error(), "必填")
}

func TestThreadIDLength(t *testing.T) {
	v := New()
	assert.Error(t, v.Validate(&chatRequest{Query: "q", ThreadID: strings.Repeat("a", 129)}, LangEN))
	assert.NoError(t, v.Validate(&chatRequest{Query: "q", ThreadID: strings.Repeat("a", 128)}, LangEN))
}

func TestLangFromAcceptLanguage(t *testing.T) {
	assert.Equal(t, LangZH, LangFromAcceptLanguage("zh-CN,zh;q=0.9,en;q=0.8"))
	assert.Equal(t, LangEN, LangFromAcceptLanguage("en-US"))
	assert.Equal(t, LangEN, LangFromAcceptLanguage(""))
}

func TestGlobal(t *testing.T) {
	g := Global()
	assert.Same(t, g, Global())

	custom := New()
	SetGlobal(custom)
	assert.Same(t, custom, Global())
	SetGlobal(g)
}
