package protowheel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/suite"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/lk2023060901/serde-garden-go/pkg/serde"
	"github.com/lk2023060901/serde-garden-go/pkg/util/merr"
)

type ProtowheelSuite struct {
	suite.Suite
}

func (s *ProtowheelSuite) encode(v any) []byte {
	var buf bytes.Buffer
	s.Require().NoError(serde.Wrap(v).Serialize(New(&buf)))
	return buf.Bytes()
}

func (s *ProtowheelSuite) TestTopLevelScalar() {
	// 顶层值使用字段 1：tag 0x08 (field 1, varint) + 值。
	s.Equal([]byte{0x08, 0x07}, s.encode(int8(7)))
	s.Equal([]byte{0x08, 0x01}, s.encode(true))
	// 字符串为 bytes 线类型：tag 0x0a + 长度 + 负载。
	s.Equal([]byte{0x0a, 0x02, 'h', 'i'}, s.encode("hi"))
}

func (s *ProtowheelSuite) TestNegativeIntTwosComplement() {
	data := s.encode(int32(-1))

	num, typ, n := protowire.ConsumeTag(data)
	s.Require().Positive(n)
	s.Equal(protowire.Number(1), num)
	s.Equal(protowire.VarintType, typ)

	v, m := protowire.ConsumeVarint(data[n:])
	s.Require().Positive(m)
	s.Equal(int32(-1), int32(v))
}

func (s *ProtowheelSuite) TestFloatWireTypes() {
	data := s.encode(float32(1.0))
	_, typ, n := protowire.ConsumeTag(data)
	s.Require().Positive(n)
	s.Equal(protowire.Fixed32Type, typ)

	data = s.encode(float64(1.0))
	_, typ, n = protowire.ConsumeTag(data)
	s.Require().Positive(n)
	s.Equal(protowire.Fixed64Type, typ)
}

func (s *ProtowheelSuite) TestSeqAsNestedMessage() {
	// 序列是字段全为 1 的嵌套消息：0x0a len (0x08 0x01)(0x08 0x02)。
	s.Equal([]byte{0x0a, 0x04, 0x08, 0x01, 0x08, 0x02}, s.encode([]int16{1, 2}))
}

func (s *ProtowheelSuite) TestStructFieldOrdinals() {
	type pair struct {
		A int8   `json:"a"`
		B string `json:"b"`
	}
	data := s.encode(pair{A: 1, B: "x"})

	// 外层为字段 1 的嵌套消息。
	num, typ, n := protowire.ConsumeTag(data)
	s.Require().Positive(n)
	s.Equal(protowire.Number(1), num)
	s.Equal(protowire.BytesType, typ)

	msg, m := protowire.ConsumeBytes(data[n:])
	s.Require().Positive(m)

	// 字段按出现顺序取 1 起的序号。
	num, typ, n = protowire.ConsumeTag(msg)
	s.Require().Positive(n)
	s.Equal(protowire.Number(1), num)
	s.Equal(protowire.VarintType, typ)
	v, n2 := protowire.ConsumeVarint(msg[n:])
	s.Require().Positive(n2)
	s.EqualValues(1, v)

	rest := msg[n+n2:]
	num, typ, n = protowire.ConsumeTag(rest)
	s.Require().Positive(n)
	s.Equal(protowire.Number(2), num)
	s.Equal(protowire.BytesType, typ)
	payload, n2 := protowire.ConsumeBytes(rest[n:])
	s.Require().Positive(n2)
	s.Equal("x", string(payload))
}

func (s *ProtowheelSuite) TestMapAlternatesKeyValue() {
	data := s.encode(map[uint8]string{3: "x"})

	msg, _ := protowire.ConsumeBytes(data[1:])
	num, _, n := protowire.ConsumeTag(msg)
	s.Equal(protowire.Number(1), num)
	v, n2 := protowire.ConsumeVarint(msg[n:])
	s.EqualValues(3, v)

	rest := msg[n+n2:]
	num, _, n = protowire.ConsumeTag(rest)
	s.Equal(protowire.Number(2), num)
	payload, _ := protowire.ConsumeBytes(rest[n:])
	s.Equal("x", string(payload))
}

func (s *ProtowheelSuite) TestVariantFieldNumber() {
	var buf bytes.Buffer
	enc := New(&buf)

	variant, err := enc.EncodeVariant("Shape", "Circle", 2)
	s.Require().NoError(err)
	s.Require().NoError(variant.EncodePayload(serde.Wrap(uint8(9))))
	s.Require().NoError(variant.End())

	msg, _ := protowire.ConsumeBytes(buf.Bytes()[1:])
	// 负载字段号为变体序号加一。
	num, _, n := protowire.ConsumeTag(msg)
	s.Equal(protowire.Number(3), num)
	v, _ := protowire.ConsumeVarint(msg[n:])
	s.EqualValues(9, v)
}

func (s *ProtowheelSuite) TestNilRejected() {
	var buf bytes.Buffer
	err := New(&buf).EncodeNil()
	s.ErrorIs(err, merr.ErrBackend)
}

func (s *ProtowheelSuite) TestContinuationAfterEndPanics() {
	var buf bytes.Buffer
	seq, err := New(&buf).EncodeSeq(0)
	s.Require().NoError(err)
	s.Require().NoError(seq.End())

	s.Panics(func() { _ = seq.EncodeElement(serde.Wrap(int8(1))) })
}

func (s *ProtowheelSuite) TestEndWithChildOpenPanics() {
	var buf bytes.Buffer
	enc := New(&buf)

	parent, err := enc.EncodeSeq(2)
	s.Require().NoError(err)
	_, err = enc.EncodeSeq(1)
	s.Require().NoError(err)

	// 父帧在子帧未弹出前 End 会把子消息拼进错误的层级，必须快速失败。
	s.Panics(func() { _ = parent.End() })
	s.Panics(func() { _ = parent.EncodeElement(serde.Wrap(int8(1))) })
}

func TestProtowheel(t *testing.T) {
	suite.Run(t, new(ProtowheelSuite))
}
