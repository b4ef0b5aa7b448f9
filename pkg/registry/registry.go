// Package registry 以显式表登记各插件工厂（零反射），按配置名构造组件。
package registry

import (
	"bytes"
	"encoding/json"
	"sort"

	"theory/pkg/contract"
	dlj "theory/plugins/decoder/linejson"
	flaky "theory/plugins/llmclient/flaky"
	gmi "theory/plugins/llmclient/gemini"
	mock "theory/plugins/llmclient/mock"
	oai "theory/plugins/llmclient/openai"
	pline "theory/plugins/prompt/line"
	rfs "theory/plugins/reader/filesystem"
	wfs "theory/plugins/writer/filesystem"
)

// strictUnmarshal: DisallowUnknownFields 严格解码；空输入保持零值。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.Reader, error)

// NewPromptBuilder 工厂签名。
type NewPromptBuilder func(raw json.RawMessage) (contract.PromptBuilder, error)

// NewLLMClient 工厂签名。
type NewLLMClient func(raw json.RawMessage) (contract.LLMClient, error)

// NewDecoder 工厂签名。
type NewDecoder func(raw json.RawMessage) (contract.Decoder, error)

// NewWriter 工厂签名。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// Reader 工厂注册表。
var Reader = map[string]NewReader{
	// fs: 文件系统/STDIN Reader
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

// PromptBuilder 工厂注册表。
var PromptBuilder = map[string]NewPromptBuilder{
	// line: 单行回退翻译（Chat + JSON schema）
	"line": func(raw json.RawMessage) (contract.PromptBuilder, error) {
		var opts pline.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return pline.New(&opts)
	},
}

// LLMClient 工厂注册表（选项由各客户端自行解析）。
var LLMClient = map[string]NewLLMClient{
	"openai": oai.New,
	"gemini": gmi.New,
	"mock":   mock.New,
	"flaky":  flaky.New,
}

// Decoder 工厂注册表。
var Decoder = map[string]NewDecoder{
	// linejson: {"code": string}，校验掩码引用
	"linejson": dlj.New,
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（原子替换，保留目录层级）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
}

// Names 返回某注册表的有序键，用于错误提示与 init-config。
func Names[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
