package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"theory/pkg/contract"
)

var prompt = contract.ChatPrompt{
	{Role: "system", Content: "S"},
	{Role: "user", Content: "U"},
	{Role: "json_schema", Content: `{"type":"object"}`},
}

// system 进入 SystemInstruction，schema 开启 JSON 输出
func TestEncodeChat(t *testing.T) {
	c := &Client{respMIME: "application/json"}
	contents, cfg, err := c.encode(prompt)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.Equal(t, "U", contents[0].Parts[0].Text)
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "S", cfg.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.NotNil(t, cfg.ResponseJsonSchema)

	_, _, err = c.encode(contract.ChatPrompt{{Role: "system", Content: "only"}})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, _, err = c.encode(3)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify(genai.APIError{Code: 429}), contract.ErrRateLimited)
	assert.ErrorIs(t, classify(genai.APIError{Code: 400, Message: "bad"}), contract.ErrInvalidInput)

	err := classify(genai.APIError{Code: 503, Message: "down"})
	var ne net.Error
	require.True(t, errors.As(err, &ne))
	assert.True(t, ne.Temporary())
	var ue contract.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "down", ue.UpstreamMessage())

	plain := errors.New("x")
	assert.Same(t, plain, classify(plain))
}

func TestInvokeHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-2.5-flash:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"code\":\"x\"}"}]}}]}`))
	}))
	defer srv.Close()

	raw, _ := json.Marshal(Options{BaseURL: srv.URL, APIKey: "k"})
	c, err := New(raw)
	require.NoError(t, err)
	out, err := c.Invoke(context.Background(), contract.LineRequest{}, prompt)
	require.NoError(t, err)
	assert.Equal(t, `{"code":"x"}`, out.Text)
}

func TestNewMissingKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	_, err := New(json.RawMessage(`{"api_key_env":"THEORY_NO_SUCH_KEY"}`))
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}
