// Package linejson 解码单行回退翻译的 {"code": string} 响应。
package linejson

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"theory/pkg/contract"
)

// Options: 解码宽松度。
//   - Lenient: 允许 markdown 代码围栏包裹的 JSON；JSON 解析失败时把整段文本视为译文。
type Options struct {
	Lenient bool `json:"lenient"`
}

type decoder struct {
	lenient bool
}

var (
	maskRe  = regexp.MustCompile(`%mask_(\d+)%`)
	fenceRe = regexp.MustCompile("(?s)^```[A-Za-z0-9_+-]*\\s*\n(.*?)\n?```$")
)

// New 从原样 JSON Options 创建解码器。
func New(raw json.RawMessage) (contract.Decoder, error) {
	var o Options
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, fmt.Errorf("linejson options: %w", err)
		}
	}
	return &decoder{lenient: o.Lenient}, nil
}

// Decode 解析响应并校验掩码引用不越出请求行的相对窗口。
func (d *decoder) Decode(ctx context.Context, req contract.LineRequest, raw contract.Raw) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text := strings.TrimSpace(raw.Text)
	if d.lenient {
		if m := fenceRe.FindStringSubmatch(text); m != nil {
			text = strings.TrimSpace(m[1])
		}
	}
	var out struct {
		Code *string `json:"code"`
	}
	code := ""
	if err := json.Unmarshal([]byte(text), &out); err == nil && out.Code != nil {
		code = *out.Code
	} else if d.lenient && text != "" && !strings.HasPrefix(text, "{") {
		code = text
	} else {
		return "", fmt.Errorf("decode line json: %w", contract.ErrResponseInvalid)
	}
	code = strings.TrimRight(code, "\n")
	if err := checkMasks(req.Text, code); err != nil {
		return "", err
	}
	return code, nil
}

// checkMasks: 译文中的 %mask_N% 必须满足 N < 源行令牌数。
func checkMasks(src, code string) error {
	window := len(maskRe.FindAllStringIndex(src, -1))
	for _, m := range maskRe.FindAllStringSubmatch(code, -1) {
		n, _ := strconv.Atoi(m[1])
		if n >= window {
			return fmt.Errorf("mask %s outside window %d: %w", m[0], window, contract.ErrResponseInvalid)
		}
	}
	return nil
}

var _ contract.Decoder = (*decoder)(nil)
