package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theory/pkg/contract"
)

func newClient(t *testing.T, url string) contract.LLMClient {
	t.Helper()
	raw, _ := json.Marshal(Options{BaseURL: url, APIKey: "k", ExtraHeaders: map[string]string{"X-Test": "1"}})
	c, err := New(raw)
	require.NoError(t, err)
	return c
}

var prompt = contract.ChatPrompt{
	{Role: "system", Content: "S"},
	{Role: "user", Content: "U"},
	{Role: "json_schema", Content: `{"type":"object"}`},
}

// 请求体：schema 消息转为 response_format，Bearer 与自定义头注入
func TestInvokeOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.Equal(t, "1", r.Header.Get("X-Test"))
		var body oaReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.Messages, 2)
		require.NotNil(t, body.ResponseFormat)
		assert.Equal(t, "json_schema", body.ResponseFormat.Type)
		assert.Equal(t, "Main.java", body.User)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"code\":\"x\"}"}}]}`))
	}))
	defer srv.Close()

	raw, err := newClient(t, srv.URL).Invoke(context.Background(), contract.LineRequest{FileID: "Main.java"}, prompt)
	require.NoError(t, err)
	assert.Equal(t, `{"code":"x"}`, raw.Text)
}

// 状态码分类
func TestInvokeStatus(t *testing.T) {
	cases := []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusTooManyRequests, func(t *testing.T, err error) { assert.ErrorIs(t, err, contract.ErrRateLimited) }},
		{http.StatusBadRequest, func(t *testing.T, err error) { assert.ErrorIs(t, err, contract.ErrInvalidInput) }},
		{http.StatusBadGateway, func(t *testing.T, err error) {
			var ne net.Error
			require.True(t, errors.As(err, &ne))
			var ue contract.UpstreamError
			require.True(t, errors.As(err, &ue))
			assert.Equal(t, http.StatusBadGateway, ue.UpstreamStatus())
			assert.Equal(t, "boom", ue.UpstreamMessage())
		}},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte("boom"))
		}))
		_, err := newClient(t, srv.URL).Invoke(context.Background(), contract.LineRequest{}, prompt)
		srv.Close()
		require.Error(t, err)
		tc.check(t, err)
	}
}

// 空 choices 与非法载荷
func TestInvokeInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()
	c := newClient(t, srv.URL)
	_, err := c.Invoke(context.Background(), contract.LineRequest{}, prompt)
	assert.ErrorIs(t, err, contract.ErrResponseInvalid)

	_, err = c.Invoke(context.Background(), contract.LineRequest{}, 42)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestNewMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := New(nil)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}
