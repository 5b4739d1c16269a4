package json

import (
	"github.com/bytedance/sonic"
)

// api 使用 sonic 的标准库兼容配置：
// map 键排序、HTML 转义等行为与 encoding/json 保持一致，
// 便于与其它按标准语义产出的 JSON 字节做逐字节比较。
var api = sonic.ConfigStd

// Marshal 将任意对象编码为 JSON 字节序列。
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// MarshalIndent 将任意对象编码为带缩进的 JSON 字节序列。
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// Unmarshal 将 JSON 字节序列解码到目标对象。
//
// v 通常为指针类型，用于接收解码结果。
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}
