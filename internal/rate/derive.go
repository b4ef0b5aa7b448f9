package rate

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"

	"theory/pkg/contract"
)

// 调试客户端在未提供 api_key 时共用的分组键来源。
const debugKey = "THEORY_DEBUG_KEY"

// DeriveKeyFromProviderOptions 从客户端名与其原样 Options JSON 提取 API Key，
// 返回 client:sha256(key) 形式的限流分组键。仅识别 "api_key" 与 "api_key_env"。
func DeriveKeyFromProviderOptions(client string, raw json.RawMessage) (LimitKey, error) {
	var obj map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", fmt.Errorf("rate: options of %s: %v: %w", client, err, contract.ErrInvalidInput)
		}
	}
	pick := func(k string) string {
		s, _ := obj[k].(string)
		return s
	}

	key := pick("api_key")
	if key == "" {
		if env := pick("api_key_env"); env != "" {
			key = os.Getenv(env)
		}
	}
	if key == "" {
		switch client {
		case "mock", "flaky":
			key = debugKey
		case "openai":
			key = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			key = os.Getenv("GOOGLE_API_KEY")
		}
	}
	if key == "" {
		return "", fmt.Errorf("rate: missing api key for client %s: %w", client, contract.ErrInvalidInput)
	}
	sum := sha256.Sum256([]byte(key))
	return LimitKey(fmt.Sprintf("%s:%x", client, sum[:8])), nil
}
