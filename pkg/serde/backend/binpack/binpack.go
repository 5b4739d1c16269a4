// Package binpack 实现一个手写的定宽二进制后端。
//
// 它是位宽保真的参照格式：每个标量写出一个类别标签字节，
// 随后是其原始位宽的大端负载。int8 永远占一个标签字节加一个数据字节，
// 不会被悄悄提升为更宽的整数。复合类型有显式的 begin/end 标签，
// 长度提示未知时写入 lenUnknown 哨兵而不是猜测。
package binpack

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/lk2023060901/serde-garden-go/pkg/serde"
	"github.com/lk2023060901/serde-garden-go/pkg/util/merr"
)

// Name 为该后端在注册表中的格式名。
const Name = "binpack"

// 线格式标签。标量标签与 serde.ScalarKind 保持同值，便于排查字节流。
const (
	TagBool    = byte(serde.KindBool)
	TagInt8    = byte(serde.KindInt8)
	TagInt16   = byte(serde.KindInt16)
	TagInt32   = byte(serde.KindInt32)
	TagInt64   = byte(serde.KindInt64)
	TagUint8   = byte(serde.KindUint8)
	TagUint16  = byte(serde.KindUint16)
	TagUint32  = byte(serde.KindUint32)
	TagUint64  = byte(serde.KindUint64)
	TagFloat32 = byte(serde.KindFloat32)
	TagFloat64 = byte(serde.KindFloat64)
	TagString  = byte(serde.KindString)
	TagBytes   = byte(serde.KindBytes)
	TagNil     = byte(serde.KindNil)

	TagSeqBegin     = 0x10
	TagSeqEnd       = 0x11
	TagMapBegin     = 0x12
	TagMapEnd       = 0x13
	TagStructBegin  = 0x14
	TagField        = 0x15
	TagStructEnd    = 0x16
	TagVariantBegin = 0x17
	TagVariantEnd   = 0x18
)

// LenUnknown 为未知长度提示的线上哨兵值。
const LenUnknown = ^uint32(0)

// New 创建一个向 w 写出 binpack 字节流的擦除编码器。
func New(w io.Writer) serde.Encoder {
	return &encoder{w: w}
}

// Factory 供注册表使用的编码器工厂。
var Factory serde.EncoderFactory = New

type encoder struct {
	w io.Writer

	// open 记录当前未闭合的复合结构层数，用于配对检查。
	open int
}

var _ serde.Encoder = (*encoder)(nil)

func (e *encoder) write(op string, p []byte) error {
	if _, err := e.w.Write(p); err != nil {
		return merr.WrapErrBackend(Name, op, err)
	}
	return nil
}

func (e *encoder) writeScalar(op string, tag byte, payload ...byte) error {
	buf := make([]byte, 0, 1+len(payload))
	buf = append(buf, tag)
	buf = append(buf, payload...)
	return e.write(op, buf)
}

func appendUint32(buf []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(buf, v)
}

func appendBlob(buf []byte, tag byte, p []byte) []byte {
	buf = append(buf, tag)
	buf = appendUint32(buf, uint32(len(p)))
	return append(buf, p...)
}

// appendName 写出复合结构携带的名字（字段名、类型名、变体名）。
func appendName(buf []byte, name string) []byte {
	buf = appendUint32(buf, uint32(len(name)))
	return append(buf, name...)
}

func hintToWire(hint int) uint32 {
	if hint < 0 {
		return LenUnknown
	}
	return uint32(hint)
}

func (e *encoder) EncodeBool(v bool) error {
	payload := byte(0)
	if v {
		payload = 1
	}
	return e.writeScalar("EncodeBool", TagBool, payload)
}

func (e *encoder) EncodeInt8(v int8) error {
	return e.writeScalar("EncodeInt8", TagInt8, byte(v))
}

func (e *encoder) EncodeInt16(v int16) error {
	return e.writeScalar("EncodeInt16", TagInt16, byte(uint16(v)>>8), byte(uint16(v)))
}

func (e *encoder) EncodeInt32(v int32) error {
	buf := appendUint32([]byte{TagInt32}, uint32(v))
	return e.write("EncodeInt32", buf)
}

func (e *encoder) EncodeInt64(v int64) error {
	buf := binary.BigEndian.AppendUint64([]byte{TagInt64}, uint64(v))
	return e.write("EncodeInt64", buf)
}

func (e *encoder) EncodeUint8(v uint8) error {
	return e.writeScalar("EncodeUint8", TagUint8, v)
}

func (e *encoder) EncodeUint16(v uint16) error {
	return e.writeScalar("EncodeUint16", TagUint16, byte(v>>8), byte(v))
}

func (e *encoder) EncodeUint32(v uint32) error {
	buf := appendUint32([]byte{TagUint32}, v)
	return e.write("EncodeUint32", buf)
}

func (e *encoder) EncodeUint64(v uint64) error {
	buf := binary.BigEndian.AppendUint64([]byte{TagUint64}, v)
	return e.write("EncodeUint64", buf)
}

func (e *encoder) EncodeFloat32(v float32) error {
	buf := appendUint32([]byte{TagFloat32}, math.Float32bits(v))
	return e.write("EncodeFloat32", buf)
}

func (e *encoder) EncodeFloat64(v float64) error {
	buf := binary.BigEndian.AppendUint64([]byte{TagFloat64}, math.Float64bits(v))
	return e.write("EncodeFloat64", buf)
}

func (e *encoder) EncodeString(v string) error {
	return e.write("EncodeString", appendBlob(nil, TagString, []byte(v)))
}

func (e *encoder) EncodeBytes(v []byte) error {
	return e.write("EncodeBytes", appendBlob(nil, TagBytes, v))
}

func (e *encoder) EncodeNil() error {
	return e.writeScalar("EncodeNil", TagNil)
}

func (e *encoder) EncodeSeq(hint int) (serde.SeqEncoder, error) {
	buf := appendUint32([]byte{TagSeqBegin}, hintToWire(hint))
	if err := e.write("EncodeSeq", buf); err != nil {
		return nil, err
	}
	e.open++
	return &compositeEncoder{enc: e, endTag: TagSeqEnd, what: "sequence", stamp: e.open}, nil
}

func (e *encoder) EncodeMap(hint int) (serde.MapEncoder, error) {
	buf := appendUint32([]byte{TagMapBegin}, hintToWire(hint))
	if err := e.write("EncodeMap", buf); err != nil {
		return nil, err
	}
	e.open++
	return &compositeEncoder{enc: e, endTag: TagMapEnd, what: "map", stamp: e.open}, nil
}

func (e *encoder) EncodeStruct(name string, numFields int) (serde.StructEncoder, error) {
	buf := appendName([]byte{TagStructBegin}, name)
	buf = appendUint32(buf, uint32(numFields))
	if err := e.write("EncodeStruct", buf); err != nil {
		return nil, err
	}
	e.open++
	return &compositeEncoder{enc: e, endTag: TagStructEnd, what: "struct", stamp: e.open}, nil
}

func (e *encoder) EncodeVariant(enumName, variantName string, index uint32) (serde.VariantEncoder, error) {
	buf := appendName([]byte{TagVariantBegin}, enumName)
	buf = appendName(buf, variantName)
	buf = appendUint32(buf, index)
	if err := e.write("EncodeVariant", buf); err != nil {
		return nil, err
	}
	e.open++
	return &compositeEncoder{enc: e, endTag: TagVariantEnd, what: "variant", stamp: e.open}, nil
}

// compositeEncoder 同时满足四种续写句柄接口。
// binpack 的复合结构全部采用"begin 标签 ... end 标签"的通用形状，
// 元素、条目、字段与负载之间不需要分隔符。
type compositeEncoder struct {
	enc    *encoder
	endTag byte
	what   string
	stamp  int

	hasPayload bool
	done       bool
}

var (
	_ serde.SeqEncoder     = (*compositeEncoder)(nil)
	_ serde.MapEncoder     = (*compositeEncoder)(nil)
	_ serde.StructEncoder  = (*compositeEncoder)(nil)
	_ serde.VariantEncoder = (*compositeEncoder)(nil)
)

func (c *compositeEncoder) check() {
	if c.done {
		panic(merr.WrapErrContractViolation(c.what + " continuation used after End"))
	}
	if c.enc.open != c.stamp {
		panic(merr.WrapErrContractViolation(c.what + " continuation used while a nested composite is open"))
	}
}

func (c *compositeEncoder) EncodeElement(v serde.Value) error {
	c.check()
	return v.Serialize(c.enc)
}

func (c *compositeEncoder) EncodeEntry(key, value serde.Value) error {
	c.check()
	if err := key.Serialize(c.enc); err != nil {
		return err
	}
	return value.Serialize(c.enc)
}

func (c *compositeEncoder) EncodeField(name string, v serde.Value) error {
	c.check()
	buf := appendName([]byte{TagField}, name)
	if err := c.enc.write("EncodeField", buf); err != nil {
		return err
	}
	return v.Serialize(c.enc)
}

func (c *compositeEncoder) EncodePayload(v serde.Value) error {
	c.check()
	if c.hasPayload {
		panic(merr.WrapErrContractViolation("variant payload encoded twice"))
	}
	c.hasPayload = true
	return v.Serialize(c.enc)
}

func (c *compositeEncoder) End() error {
	c.check()
	c.done = true
	c.enc.open--
	return c.enc.write("End", []byte{c.endTag})
}
