// Package msgpackenc 将 vmihailenco/msgpack 的编码器适配为擦除编码器。
//
// MessagePack 的复合类型以长度前缀定界，没有结束符，
// 因此该后端要求复合 begin 事件携带确定的长度提示：
// 未知长度（hint < 0）属于该格式无法表示的场景，按后端错误上报。
package msgpackenc

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/lk2023060901/serde-garden-go/pkg/serde"
	"github.com/lk2023060901/serde-garden-go/pkg/util/merr"
)

// Name 为该后端在注册表中的格式名。
const Name = "msgpack"

// New 创建一个向 w 写出 MessagePack 的擦除编码器。
func New(w io.Writer) serde.Encoder {
	enc := msgpack.NewEncoder(w)
	// 整数按值采用最短表示，这是 MessagePack 的惯用编码。
	enc.UseCompactInts(true)
	return &encoder{enc: enc}
}

// Factory 供注册表使用的编码器工厂。
var Factory serde.EncoderFactory = New

type encoder struct {
	enc *msgpack.Encoder

	// open 记录当前未闭合的复合结构层数，用于配对检查。
	open int
}

var _ serde.Encoder = (*encoder)(nil)

func (e *encoder) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return merr.WrapErrBackend(Name, op, err)
}

func (e *encoder) EncodeBool(v bool) error {
	return e.wrap("EncodeBool", e.enc.EncodeBool(v))
}

func (e *encoder) EncodeInt8(v int8) error {
	return e.wrap("EncodeInt8", e.enc.EncodeInt(int64(v)))
}

func (e *encoder) EncodeInt16(v int16) error {
	return e.wrap("EncodeInt16", e.enc.EncodeInt(int64(v)))
}

func (e *encoder) EncodeInt32(v int32) error {
	return e.wrap("EncodeInt32", e.enc.EncodeInt(int64(v)))
}

func (e *encoder) EncodeInt64(v int64) error {
	return e.wrap("EncodeInt64", e.enc.EncodeInt(v))
}

func (e *encoder) EncodeUint8(v uint8) error {
	return e.wrap("EncodeUint8", e.enc.EncodeUint(uint64(v)))
}

func (e *encoder) EncodeUint16(v uint16) error {
	return e.wrap("EncodeUint16", e.enc.EncodeUint(uint64(v)))
}

func (e *encoder) EncodeUint32(v uint32) error {
	return e.wrap("EncodeUint32", e.enc.EncodeUint(uint64(v)))
}

func (e *encoder) EncodeUint64(v uint64) error {
	return e.wrap("EncodeUint64", e.enc.EncodeUint(v))
}

func (e *encoder) EncodeFloat32(v float32) error {
	return e.wrap("EncodeFloat32", e.enc.EncodeFloat32(v))
}

func (e *encoder) EncodeFloat64(v float64) error {
	return e.wrap("EncodeFloat64", e.enc.EncodeFloat64(v))
}

func (e *encoder) EncodeString(v string) error {
	return e.wrap("EncodeString", e.enc.EncodeString(v))
}

func (e *encoder) EncodeBytes(v []byte) error {
	return e.wrap("EncodeBytes", e.enc.EncodeBytes(v))
}

func (e *encoder) EncodeNil() error {
	return e.wrap("EncodeNil", e.enc.EncodeNil())
}

func (e *encoder) EncodeSeq(hint int) (serde.SeqEncoder, error) {
	if hint < 0 {
		return nil, merr.WrapErrBackendReason(Name, "unknown sequence length not supported")
	}
	if err := e.enc.EncodeArrayLen(hint); err != nil {
		return nil, merr.WrapErrBackend(Name, "EncodeSeq", err)
	}
	e.open++
	return &seqEncoder{enc: e, promised: hint, stamp: e.open}, nil
}

func (e *encoder) EncodeMap(hint int) (serde.MapEncoder, error) {
	if hint < 0 {
		return nil, merr.WrapErrBackendReason(Name, "unknown map length not supported")
	}
	if err := e.enc.EncodeMapLen(hint); err != nil {
		return nil, merr.WrapErrBackend(Name, "EncodeMap", err)
	}
	e.open++
	return &mapEncoder{enc: e, promised: hint, stamp: e.open}, nil
}

func (e *encoder) EncodeStruct(name string, numFields int) (serde.StructEncoder, error) {
	// 结构体编码为字段名到字段值的映射，与 msgpack 结构体编码惯例一致。
	if err := e.enc.EncodeMapLen(numFields); err != nil {
		return nil, merr.WrapErrBackend(Name, "EncodeStruct", err)
	}
	e.open++
	return &structEncoder{enc: e, promised: numFields, stamp: e.open}, nil
}

func (e *encoder) EncodeVariant(enumName, variantName string, index uint32) (serde.VariantEncoder, error) {
	// 长度前缀要等到知道有无负载才能写出，这里先不写任何字节。
	e.open++
	return &variantEncoder{enc: e, name: variantName, stamp: e.open}, nil
}

type seqEncoder struct {
	enc      *encoder
	promised int
	stamp    int
	count    int
	done     bool
}

func (s *seqEncoder) EncodeElement(v serde.Value) error {
	s.check()
	s.count++
	if s.count > s.promised {
		panic(merr.WrapErrContractViolation("more sequence elements than announced length"))
	}
	return v.Serialize(s.enc)
}

func (s *seqEncoder) End() error {
	s.check()
	s.done = true
	s.enc.open--
	// 长度前缀已经写出，元素数量必须与承诺一致，否则字节流已不可解码。
	if s.count != s.promised {
		panic(merr.WrapErrContractViolation("sequence ended before announced length"))
	}
	return nil
}

// 句柄只在其配对的 begin/End 之间有效：End 之后与子复合未闭合时都不可用。
func (s *seqEncoder) check() {
	if s.done {
		panic(merr.WrapErrContractViolation("sequence continuation used after End"))
	}
	if s.enc.open != s.stamp {
		panic(merr.WrapErrContractViolation("sequence continuation used while a nested composite is open"))
	}
}

type mapEncoder struct {
	enc      *encoder
	promised int
	stamp    int
	count    int
	done     bool
}

func (m *mapEncoder) EncodeEntry(key, value serde.Value) error {
	m.check()
	m.count++
	if m.count > m.promised {
		panic(merr.WrapErrContractViolation("more map entries than announced length"))
	}
	if err := key.Serialize(m.enc); err != nil {
		return err
	}
	return value.Serialize(m.enc)
}

func (m *mapEncoder) End() error {
	m.check()
	m.done = true
	m.enc.open--
	if m.count != m.promised {
		panic(merr.WrapErrContractViolation("map ended before announced length"))
	}
	return nil
}

func (m *mapEncoder) check() {
	if m.done {
		panic(merr.WrapErrContractViolation("map continuation used after End"))
	}
	if m.enc.open != m.stamp {
		panic(merr.WrapErrContractViolation("map continuation used while a nested composite is open"))
	}
}

type structEncoder struct {
	enc      *encoder
	promised int
	stamp    int
	count    int
	done     bool
}

func (s *structEncoder) EncodeField(name string, v serde.Value) error {
	s.check()
	s.count++
	if s.count > s.promised {
		panic(merr.WrapErrContractViolation("more struct fields than announced count"))
	}
	if err := s.enc.enc.EncodeString(name); err != nil {
		return merr.WrapErrBackend(Name, "EncodeField", err)
	}
	return v.Serialize(s.enc)
}

func (s *structEncoder) End() error {
	s.check()
	s.done = true
	s.enc.open--
	if s.count != s.promised {
		panic(merr.WrapErrContractViolation("struct ended before announced field count"))
	}
	return nil
}

func (s *structEncoder) check() {
	if s.done {
		panic(merr.WrapErrContractViolation("struct continuation used after End"))
	}
	if s.enc.open != s.stamp {
		panic(merr.WrapErrContractViolation("struct continuation used while a nested composite is open"))
	}
}

type variantEncoder struct {
	enc        *encoder
	name       string
	stamp      int
	hasPayload bool
	done       bool
}

func (v *variantEncoder) EncodePayload(val serde.Value) error {
	v.check()
	if v.hasPayload {
		panic(merr.WrapErrContractViolation("variant payload encoded twice"))
	}
	v.hasPayload = true
	// 带负载的变体编码为单键映射 {变体名: 负载}。
	if err := v.enc.enc.EncodeMapLen(1); err != nil {
		return merr.WrapErrBackend(Name, "EncodeVariant", err)
	}
	if err := v.enc.enc.EncodeString(v.name); err != nil {
		return merr.WrapErrBackend(Name, "EncodeVariant", err)
	}
	return val.Serialize(v.enc)
}

func (v *variantEncoder) End() error {
	v.check()
	v.done = true
	v.enc.open--
	if !v.hasPayload {
		// 单元变体编码为变体名字符串。
		if err := v.enc.enc.EncodeString(v.name); err != nil {
			return merr.WrapErrBackend(Name, "EncodeVariant", err)
		}
	}
	return nil
}

func (v *variantEncoder) check() {
	if v.done {
		panic(merr.WrapErrContractViolation("variant continuation used after End"))
	}
	if v.enc.open != v.stamp {
		panic(merr.WrapErrContractViolation("variant continuation used while a nested composite is open"))
	}
}
