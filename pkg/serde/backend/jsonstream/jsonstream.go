// Package jsonstream 将 json-iterator 的流式写入 API 适配为擦除编码器。
//
// 对普通值的输出与标准库 encoding/json（以及 sonic 的标准兼容配置）
// 逐字节一致：字符串做 HTML 转义，[]byte 编码为 base64 字符串，
// 浮点数使用标准库的最短表示。
package jsonstream

import (
	"encoding/base64"
	"io"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/lk2023060901/serde-garden-go/pkg/serde"
	"github.com/lk2023060901/serde-garden-go/pkg/util/merr"
)

// Name 为该后端在注册表中的格式名。
const Name = "json"

const streamBufferSize = 512

// New 创建一个向 w 写出 JSON 的擦除编码器。
func New(w io.Writer) serde.Encoder {
	return &encoder{
		stream: jsoniter.NewStream(jsoniter.ConfigCompatibleWithStandardLibrary, w, streamBufferSize),
	}
}

// Factory 供注册表使用的编码器工厂。
var Factory serde.EncoderFactory = New

type encoder struct {
	stream *jsoniter.Stream

	// depth 记录当前处于多少层未闭合的复合结构内。
	// 回到 0 表示一个顶层值完成，此时将缓冲区刷出。
	depth int
}

var _ serde.Encoder = (*encoder)(nil)

// finish 统一收口每次写入：检查流错误，并在顶层值完成时刷新缓冲区。
func (e *encoder) finish(op string) error {
	if err := e.stream.Error; err != nil {
		return merr.WrapErrBackend(Name, op, err)
	}
	if e.depth == 0 {
		if err := e.stream.Flush(); err != nil {
			return merr.WrapErrBackend(Name, op, err)
		}
	}
	return nil
}

func (e *encoder) EncodeBool(v bool) error {
	e.stream.WriteBool(v)
	return e.finish("EncodeBool")
}

func (e *encoder) EncodeInt8(v int8) error {
	e.stream.WriteInt8(v)
	return e.finish("EncodeInt8")
}

func (e *encoder) EncodeInt16(v int16) error {
	e.stream.WriteInt16(v)
	return e.finish("EncodeInt16")
}

func (e *encoder) EncodeInt32(v int32) error {
	e.stream.WriteInt32(v)
	return e.finish("EncodeInt32")
}

func (e *encoder) EncodeInt64(v int64) error {
	e.stream.WriteInt64(v)
	return e.finish("EncodeInt64")
}

func (e *encoder) EncodeUint8(v uint8) error {
	e.stream.WriteUint8(v)
	return e.finish("EncodeUint8")
}

func (e *encoder) EncodeUint16(v uint16) error {
	e.stream.WriteUint16(v)
	return e.finish("EncodeUint16")
}

func (e *encoder) EncodeUint32(v uint32) error {
	e.stream.WriteUint32(v)
	return e.finish("EncodeUint32")
}

func (e *encoder) EncodeUint64(v uint64) error {
	e.stream.WriteUint64(v)
	return e.finish("EncodeUint64")
}

func (e *encoder) EncodeFloat32(v float32) error {
	e.stream.WriteFloat32(v)
	return e.finish("EncodeFloat32")
}

func (e *encoder) EncodeFloat64(v float64) error {
	e.stream.WriteFloat64(v)
	return e.finish("EncodeFloat64")
}

func (e *encoder) EncodeString(v string) error {
	e.stream.WriteStringWithHTMLEscaped(v)
	return e.finish("EncodeString")
}

func (e *encoder) EncodeBytes(v []byte) error {
	e.stream.WriteString(base64.StdEncoding.EncodeToString(v))
	return e.finish("EncodeBytes")
}

func (e *encoder) EncodeNil() error {
	e.stream.WriteNil()
	return e.finish("EncodeNil")
}

func (e *encoder) EncodeSeq(hint int) (serde.SeqEncoder, error) {
	// JSON 数组自带定界符，长度提示未知也没有关系。
	e.stream.WriteArrayStart()
	if err := e.stream.Error; err != nil {
		return nil, merr.WrapErrBackend(Name, "EncodeSeq", err)
	}
	e.depth++
	return &seqEncoder{enc: e, depth: e.depth}, nil
}

func (e *encoder) EncodeMap(hint int) (serde.MapEncoder, error) {
	e.stream.WriteObjectStart()
	if err := e.stream.Error; err != nil {
		return nil, merr.WrapErrBackend(Name, "EncodeMap", err)
	}
	e.depth++
	return &mapEncoder{enc: e, depth: e.depth}, nil
}

func (e *encoder) EncodeStruct(name string, numFields int) (serde.StructEncoder, error) {
	e.stream.WriteObjectStart()
	if err := e.stream.Error; err != nil {
		return nil, merr.WrapErrBackend(Name, "EncodeStruct", err)
	}
	e.depth++
	return &structEncoder{enc: e, depth: e.depth}, nil
}

func (e *encoder) EncodeVariant(enumName, variantName string, index uint32) (serde.VariantEncoder, error) {
	// 变体的两种 JSON 表示（单元变体为字符串，带负载变体为单键对象）
	// 要等到 EncodePayload/End 才能确定，这里先不写出任何字节。
	e.depth++
	return &variantEncoder{enc: e, name: variantName, depth: e.depth}, nil
}

// writeField 写出一个对象键及其后的冒号。
func (e *encoder) writeField(name string) {
	e.stream.WriteStringWithHTMLEscaped(name)
	e.stream.WriteRaw(":")
}

type seqEncoder struct {
	enc   *encoder
	depth int
	count int
	done  bool
}

func (s *seqEncoder) EncodeElement(v serde.Value) error {
	s.check()
	if s.count > 0 {
		s.enc.stream.WriteMore()
	}
	s.count++
	return v.Serialize(s.enc)
}

func (s *seqEncoder) End() error {
	s.check()
	s.done = true
	s.enc.stream.WriteArrayEnd()
	s.enc.depth--
	return s.enc.finish("SeqEnd")
}

// 句柄只在其配对的 begin/End 之间有效：End 之后与子复合未闭合时都不可用。
func (s *seqEncoder) check() {
	if s.done {
		panic(merr.WrapErrContractViolation("sequence continuation used after End"))
	}
	if s.enc.depth != s.depth {
		panic(merr.WrapErrContractViolation("sequence continuation used while a nested composite is open"))
	}
}

type mapEncoder struct {
	enc   *encoder
	depth int
	count int
	done  bool
}

func (m *mapEncoder) EncodeEntry(key, value serde.Value) error {
	m.check()
	if m.count > 0 {
		m.enc.stream.WriteMore()
	}
	m.count++

	// JSON 对象的键只能是字符串，键的事件流先渲染为文本再写出。
	var kr keyRender
	if err := key.Serialize(&kr); err != nil {
		return err
	}
	m.enc.writeField(kr.text)
	return value.Serialize(m.enc)
}

func (m *mapEncoder) End() error {
	m.check()
	m.done = true
	m.enc.stream.WriteObjectEnd()
	m.enc.depth--
	return m.enc.finish("MapEnd")
}

func (m *mapEncoder) check() {
	if m.done {
		panic(merr.WrapErrContractViolation("map continuation used after End"))
	}
	if m.enc.depth != m.depth {
		panic(merr.WrapErrContractViolation("map continuation used while a nested composite is open"))
	}
}

type structEncoder struct {
	enc   *encoder
	depth int
	count int
	done  bool
}

func (s *structEncoder) EncodeField(name string, v serde.Value) error {
	s.check()
	if s.count > 0 {
		s.enc.stream.WriteMore()
	}
	s.count++
	s.enc.writeField(name)
	return v.Serialize(s.enc)
}

func (s *structEncoder) End() error {
	s.check()
	s.done = true
	s.enc.stream.WriteObjectEnd()
	s.enc.depth--
	return s.enc.finish("StructEnd")
}

func (s *structEncoder) check() {
	if s.done {
		panic(merr.WrapErrContractViolation("struct continuation used after End"))
	}
	if s.enc.depth != s.depth {
		panic(merr.WrapErrContractViolation("struct continuation used while a nested composite is open"))
	}
}

type variantEncoder struct {
	enc        *encoder
	name       string
	depth      int
	hasPayload bool
	done       bool
}

func (v *variantEncoder) EncodePayload(val serde.Value) error {
	v.check()
	if v.hasPayload {
		panic(merr.WrapErrContractViolation("variant payload encoded twice"))
	}
	v.hasPayload = true
	v.enc.stream.WriteObjectStart()
	v.enc.writeField(v.name)
	if err := val.Serialize(v.enc); err != nil {
		return err
	}
	return v.enc.finish("VariantPayload")
}

func (v *variantEncoder) End() error {
	v.check()
	v.done = true
	if v.hasPayload {
		v.enc.stream.WriteObjectEnd()
	} else {
		v.enc.stream.WriteStringWithHTMLEscaped(v.name)
	}
	v.enc.depth--
	return v.enc.finish("VariantEnd")
}

func (v *variantEncoder) check() {
	if v.done {
		panic(merr.WrapErrContractViolation("variant continuation used after End"))
	}
	if v.enc.depth != v.depth {
		panic(merr.WrapErrContractViolation("variant continuation used while a nested composite is open"))
	}
}

// keyRender 把映射键的事件流渲染为 JSON 对象键文本。
// 仅字符串与整数键可作为对象键，其余事件一律报后端错误。
type keyRender struct {
	text string
}

var _ serde.Encoder = (*keyRender)(nil)

func (k *keyRender) set(text string) error {
	k.text = text
	return nil
}

func (k *keyRender) keyError(kind serde.ScalarKind) error {
	return merr.WrapErrBackendReason(Name, "map key must be a string or integer, got "+kind.String())
}

func (k *keyRender) EncodeBool(v bool) error       { return k.keyError(serde.KindBool) }
func (k *keyRender) EncodeInt8(v int8) error       { return k.set(strconv.FormatInt(int64(v), 10)) }
func (k *keyRender) EncodeInt16(v int16) error     { return k.set(strconv.FormatInt(int64(v), 10)) }
func (k *keyRender) EncodeInt32(v int32) error     { return k.set(strconv.FormatInt(int64(v), 10)) }
func (k *keyRender) EncodeInt64(v int64) error     { return k.set(strconv.FormatInt(v, 10)) }
func (k *keyRender) EncodeUint8(v uint8) error     { return k.set(strconv.FormatUint(uint64(v), 10)) }
func (k *keyRender) EncodeUint16(v uint16) error   { return k.set(strconv.FormatUint(uint64(v), 10)) }
func (k *keyRender) EncodeUint32(v uint32) error   { return k.set(strconv.FormatUint(uint64(v), 10)) }
func (k *keyRender) EncodeUint64(v uint64) error   { return k.set(strconv.FormatUint(v, 10)) }
func (k *keyRender) EncodeFloat32(v float32) error { return k.keyError(serde.KindFloat32) }
func (k *keyRender) EncodeFloat64(v float64) error { return k.keyError(serde.KindFloat64) }
func (k *keyRender) EncodeString(v string) error   { return k.set(v) }
func (k *keyRender) EncodeBytes(v []byte) error    { return k.keyError(serde.KindBytes) }
func (k *keyRender) EncodeNil() error              { return k.keyError(serde.KindNil) }

func (k *keyRender) EncodeSeq(hint int) (serde.SeqEncoder, error) {
	return nil, merr.WrapErrBackendReason(Name, "map key must be a scalar")
}

func (k *keyRender) EncodeMap(hint int) (serde.MapEncoder, error) {
	return nil, merr.WrapErrBackendReason(Name, "map key must be a scalar")
}

func (k *keyRender) EncodeStruct(name string, numFields int) (serde.StructEncoder, error) {
	return nil, merr.WrapErrBackendReason(Name, "map key must be a scalar")
}

func (k *keyRender) EncodeVariant(enumName, variantName string, index uint32) (serde.VariantEncoder, error) {
	return nil, merr.WrapErrBackendReason(Name, "map key must be a scalar")
}
