// Package protowheel 将擦除事件流编码为 protobuf 线格式。
//
// 事件流没有预先分配的字段号，这里按确定规则派生：
// 结构体字段按出现顺序取 1 起的序号，序列元素全部使用字段 1（repeated），
// 映射交替使用字段 1（键）与字段 2（值），变体负载使用"变体序号 + 1"。
// 复合结构编码为带长度前缀的嵌套消息，因此需要一个缓冲栈，
// 子消息在 End 时才能拼回父消息。字段名与变体名是该格式无法表达的信息，
// 按 protobuf 线格式的固有语义丢弃。
package protowheel

import (
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/lk2023060901/serde-garden-go/pkg/serde"
	"github.com/lk2023060901/serde-garden-go/pkg/util/merr"
)

// Name 为该后端在注册表中的格式名。
const Name = "protowheel"

// New 创建一个向 w 写出 protobuf 线格式的擦除编码器。
func New(w io.Writer) serde.Encoder {
	return &encoder{
		w:      w,
		frames: []*frame{{kind: frameRoot}},
	}
}

// Factory 供注册表使用的编码器工厂。
var Factory serde.EncoderFactory = New

type frameKind uint8

const (
	frameRoot frameKind = iota
	frameSeq
	frameMap
	frameStruct
	frameVariant
)

// frame 为一层未闭合的复合结构积累字节。
type frame struct {
	kind frameKind
	buf  []byte

	// count 为已写入的槽位数；字段号由 kind 与 count 推出。
	count int

	// variantNum 仅对 frameVariant 有效，为负载使用的字段号。
	variantNum protowire.Number
}

// next 返回当前槽位的字段号并推进计数。
func (f *frame) next() protowire.Number {
	n := f.count
	f.count++
	switch f.kind {
	case frameRoot, frameSeq:
		// 顶层值与序列元素都是 repeated 语义，固定使用字段 1。
		return 1
	case frameMap:
		// 键值交替：键为字段 1，值为字段 2。
		return protowire.Number(1 + n%2)
	case frameVariant:
		return f.variantNum
	default:
		// 结构体字段按出现顺序编号。
		return protowire.Number(n + 1)
	}
}

type encoder struct {
	w      io.Writer
	frames []*frame
}

var _ serde.Encoder = (*encoder)(nil)

func (e *encoder) top() *frame {
	return e.frames[len(e.frames)-1]
}

// flushRoot 在一个顶层值完成后把根缓冲写出。
func (e *encoder) flushRoot(op string) error {
	root := e.frames[0]
	if len(e.frames) > 1 || len(root.buf) == 0 {
		return nil
	}
	if _, err := e.w.Write(root.buf); err != nil {
		return merr.WrapErrBackend(Name, op, err)
	}
	root.buf = root.buf[:0]
	return nil
}

func (e *encoder) appendVarint(op string, v uint64) error {
	f := e.top()
	f.buf = protowire.AppendTag(f.buf, f.next(), protowire.VarintType)
	f.buf = protowire.AppendVarint(f.buf, v)
	return e.flushRoot(op)
}

func (e *encoder) appendFixed32(op string, v uint32) error {
	f := e.top()
	f.buf = protowire.AppendTag(f.buf, f.next(), protowire.Fixed32Type)
	f.buf = protowire.AppendFixed32(f.buf, v)
	return e.flushRoot(op)
}

func (e *encoder) appendFixed64(op string, v uint64) error {
	f := e.top()
	f.buf = protowire.AppendTag(f.buf, f.next(), protowire.Fixed64Type)
	f.buf = protowire.AppendFixed64(f.buf, v)
	return e.flushRoot(op)
}

func (e *encoder) appendBytes(op string, v []byte) error {
	f := e.top()
	f.buf = protowire.AppendTag(f.buf, f.next(), protowire.BytesType)
	f.buf = protowire.AppendBytes(f.buf, v)
	return e.flushRoot(op)
}

func (e *encoder) EncodeBool(v bool) error {
	n := uint64(0)
	if v {
		n = 1
	}
	return e.appendVarint("EncodeBool", n)
}

// 有符号整数按 protobuf 的 int32/int64 惯例编码为二补码 varint。
func (e *encoder) EncodeInt8(v int8) error   { return e.appendVarint("EncodeInt8", uint64(int64(v))) }
func (e *encoder) EncodeInt16(v int16) error { return e.appendVarint("EncodeInt16", uint64(int64(v))) }
func (e *encoder) EncodeInt32(v int32) error { return e.appendVarint("EncodeInt32", uint64(int64(v))) }
func (e *encoder) EncodeInt64(v int64) error { return e.appendVarint("EncodeInt64", uint64(v)) }

func (e *encoder) EncodeUint8(v uint8) error   { return e.appendVarint("EncodeUint8", uint64(v)) }
func (e *encoder) EncodeUint16(v uint16) error { return e.appendVarint("EncodeUint16", uint64(v)) }
func (e *encoder) EncodeUint32(v uint32) error { return e.appendVarint("EncodeUint32", uint64(v)) }
func (e *encoder) EncodeUint64(v uint64) error { return e.appendVarint("EncodeUint64", v) }

func (e *encoder) EncodeFloat32(v float32) error {
	return e.appendFixed32("EncodeFloat32", math.Float32bits(v))
}

func (e *encoder) EncodeFloat64(v float64) error {
	return e.appendFixed64("EncodeFloat64", math.Float64bits(v))
}

func (e *encoder) EncodeString(v string) error {
	return e.appendBytes("EncodeString", []byte(v))
}

func (e *encoder) EncodeBytes(v []byte) error {
	return e.appendBytes("EncodeBytes", v)
}

func (e *encoder) EncodeNil() error {
	return merr.WrapErrBackendReason(Name, "no wire encoding for nil")
}

func (e *encoder) push(kind frameKind, variantNum protowire.Number) {
	e.frames = append(e.frames, &frame{kind: kind, variantNum: variantNum})
}

func (e *encoder) EncodeSeq(hint int) (serde.SeqEncoder, error) {
	// 嵌套消息带长度前缀，长度在 End 时计算，提示值用不上。
	e.push(frameSeq, 0)
	return &compositeEncoder{enc: e, what: "sequence", level: len(e.frames)}, nil
}

func (e *encoder) EncodeMap(hint int) (serde.MapEncoder, error) {
	e.push(frameMap, 0)
	return &compositeEncoder{enc: e, what: "map", level: len(e.frames)}, nil
}

func (e *encoder) EncodeStruct(name string, numFields int) (serde.StructEncoder, error) {
	e.push(frameStruct, 0)
	return &compositeEncoder{enc: e, what: "struct", level: len(e.frames)}, nil
}

func (e *encoder) EncodeVariant(enumName, variantName string, index uint32) (serde.VariantEncoder, error) {
	e.push(frameVariant, protowire.Number(index+1))
	return &compositeEncoder{enc: e, what: "variant", level: len(e.frames)}, nil
}

// popInto 弹出栈顶帧，并把它作为嵌套消息拼入父帧。
func (e *encoder) popInto(op string) error {
	child := e.top()
	e.frames = e.frames[:len(e.frames)-1]

	parent := e.top()
	parent.buf = protowire.AppendTag(parent.buf, parent.next(), protowire.BytesType)
	parent.buf = protowire.AppendBytes(parent.buf, child.buf)
	return e.flushRoot(op)
}

type compositeEncoder struct {
	enc  *encoder
	what string

	// level 为该复合结构对应的帧在栈中的高度，用于配对检查。
	level int

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
	// 栈高不符说明有子复合尚未闭合；此时弹帧会把子消息拼进错误的父帧。
	if len(c.enc.frames) != c.level {
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
	return c.enc.popInto(c.what + " End")
}
