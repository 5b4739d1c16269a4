// Package serde 提供序列化的类型擦除桥接层。
//
// 具体编码后端各自暴露互不兼容的具体流式 API（jsoniter.Stream、
// msgpack.Encoder、手写 binary 写入等），Go 的方法又不能携带类型参数，
// 因此无法在运行时以统一的方式持有"某个编码器"或"某个可序列化值"。
// 本包定义一套固定的、非泛型的结构化事件词汇表作为擦除边界：
// 任意后端适配到 Encoder 之后即可被动态分发，任意值包装为 Value 之后
// 即可驱动任意 Encoder，且跨边界不丢失任何结构信息
// （标量位宽、长度提示、字段名、变体名与序号均显式传递）。
package serde

import "io"

// Value 抽象了"某个可序列化值"的最小非泛型能力。
//
// 设计目标：
//   - 调用方无需知道具体类型即可持有、存储并序列化一个值；
//   - 一次 Serialize 调用恰好向 enc 写出一个完整的值；
//   - 出错时立即返回，本次调用对应的编码器状态视为不可继续使用。
type Value interface {
	// Serialize 将值的结构走一遍，并把结构化事件写入 enc。
	Serialize(enc Encoder) error
}

// Encoder 抽象了"某个输出编码器"的最小非泛型能力。
//
// 每种结构化事件对应一个方法。标量按位宽区分方法而非合并成一个，
// 这是擦除边界零信息丢失的关键：JSON 不区分整数位宽，但二进制格式
// 需要原始位宽才能正确编码。
//
// 复合类型的 begin 方法返回一个短生命周期的续写句柄，
// 后续元素/字段调用与配对的 End 调用都发生在该句柄上。
// begin 与 End 必须一一配对；配对错误属于调用方编程缺陷，
// 实现会直接 panic（载荷为 merr.ErrContractViolation 包装的错误），
// 而不是返回可恢复的 error。
type Encoder interface {
	EncodeBool(v bool) error
	EncodeInt8(v int8) error
	EncodeInt16(v int16) error
	EncodeInt32(v int32) error
	EncodeInt64(v int64) error
	EncodeUint8(v uint8) error
	EncodeUint16(v uint16) error
	EncodeUint32(v uint32) error
	EncodeUint64(v uint64) error
	EncodeFloat32(v float32) error
	EncodeFloat64(v float64) error
	EncodeString(v string) error
	EncodeBytes(v []byte) error
	EncodeNil() error

	// EncodeSeq 开始一个序列。hint 为元素个数提示，小于 0 表示未知；
	// 实现不得擅自猜测长度。
	EncodeSeq(hint int) (SeqEncoder, error)

	// EncodeMap 开始一个映射。hint 为条目数提示，小于 0 表示未知。
	EncodeMap(hint int) (MapEncoder, error)

	// EncodeStruct 开始一个具名结构体。numFields 为实际会写出的字段数。
	EncodeStruct(name string, numFields int) (StructEncoder, error)

	// EncodeVariant 开始一个枚举变体。index 为变体在枚举中的序号。
	EncodeVariant(enumName, variantName string, index uint32) (VariantEncoder, error)
}

// SeqEncoder 为序列的续写句柄。
type SeqEncoder interface {
	// EncodeElement 写出一个元素，元素本身是一次完整的递归结构走。
	EncodeElement(v Value) error

	// End 结束该序列。调用后句柄失效。
	End() error
}

// MapEncoder 为映射的续写句柄。
type MapEncoder interface {
	// EncodeEntry 写出一个键值对。
	EncodeEntry(key, value Value) error

	// End 结束该映射。调用后句柄失效。
	End() error
}

// StructEncoder 为结构体的续写句柄。
type StructEncoder interface {
	// EncodeField 写出一个具名字段。
	EncodeField(name string, v Value) error

	// End 结束该结构体。调用后句柄失效。
	End() error
}

// VariantEncoder 为枚举变体的续写句柄。
type VariantEncoder interface {
	// EncodePayload 写出变体负载。单元变体（无负载）直接调用 End。
	EncodePayload(v Value) error

	// End 结束该变体。调用后句柄失效。
	End() error
}

// EncoderFactory 为某种格式构造一个向 w 写出的擦除编码器。
// 注册表按格式名保存该工厂，实现运行期的格式选择。
type EncoderFactory func(w io.Writer) Encoder
