package serde

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/serde-garden-go/pkg/util/merr"
)

// color 是实现了 Value 的枚举变体示例类型。
type color uint32

const (
	colorRed color = iota
	colorGreen
)

var colorNames = []string{"Red", "Green"}

func (c color) Serialize(enc Encoder) error {
	variant, err := enc.EncodeVariant("Color", colorNames[c], uint32(c))
	if err != nil {
		return err
	}
	return variant.End()
}

type ReflectSuite struct {
	suite.Suite
}

func (s *ReflectSuite) serialize(v any) ([]string, error) {
	rec := &recordEncoder{}
	err := Wrap(v).Serialize(rec)
	return rec.events, err
}

func (s *ReflectSuite) TestScalarWidths() {
	cases := []struct {
		in   any
		want string
	}{
		{true, "bool:true"},
		{int8(-7), "int8:-7"},
		{int16(256), "int16:256"},
		{int32(1 << 20), "int32:1048576"},
		{int64(1 << 40), "int64:1099511627776"},
		{int(42), "int64:42"},
		{uint8(255), "uint8:255"},
		{uint16(65535), "uint16:65535"},
		{uint32(1 << 30), "uint32:1073741824"},
		{uint64(1 << 60), "uint64:1152921504606846976"},
		{uint(7), "uint64:7"},
		{float32(1.5), "float32:1.5"},
		{float64(2.25), "float64:2.25"},
		{"hello", "string:hello"},
		{[]byte{1, 2, 3}, "bytes:3"},
		{nil, "nil"},
	}

	for _, c := range cases {
		events, err := s.serialize(c.in)
		s.NoError(err)
		s.Equal([]string{c.want}, events, "input %v", c.in)
	}
}

func (s *ReflectSuite) TestSeqAndMap() {
	events, err := s.serialize([]string{"a", "b"})
	s.NoError(err)
	s.Equal([]string{"seq:2", "elem", "string:a", "elem", "string:b", "seq-end"}, events)

	// 字符串键排序后输出确定。
	events, err = s.serialize(map[string]int{"b": 2, "a": 1})
	s.NoError(err)
	s.Equal([]string{
		"map:2",
		"entry", "string:a", "int64:1",
		"entry", "string:b", "int64:2",
		"map-end",
	}, events)

	// 整数键按十进制字符串的字典序排序，"10" 排在 "2" 之前，
	// 与标准库对整数键映射的键序一致。
	events, err = s.serialize(map[int8]string{10: "x", 2: "y"})
	s.NoError(err)
	s.Equal([]string{
		"map:2",
		"entry", "int8:10", "string:x",
		"entry", "int8:2", "string:y",
		"map-end",
	}, events)
}

func (s *ReflectSuite) TestArrayIsSeq() {
	// 定长数组不按字节串处理，与标准库 JSON 的语义一致。
	events, err := s.serialize([2]byte{1, 2})
	s.NoError(err)
	s.Equal([]string{"seq:2", "elem", "uint8:1", "elem", "uint8:2", "seq-end"}, events)
}

func (s *ReflectSuite) TestStructTags() {
	type inner struct {
		N int32 `json:"n"`
	}
	type outer struct {
		Name    string `json:"name"`
		Skip    string `json:"-"`
		Omitted string `json:"omitted,omitempty"`
		Plain   int8
		Nested  inner `json:"nested"`
		hidden  int
	}
	_ = outer{}.hidden

	events, err := s.serialize(outer{Name: "x", Skip: "no", Plain: 3, Nested: inner{N: 9}})
	s.NoError(err)
	s.Equal([]string{
		"struct:outer:3",
		"field:name", "string:x",
		"field:Plain", "int8:3",
		"field:nested", "struct:inner:1", "field:n", "int32:9", "struct-end",
		"struct-end",
	}, events)
	s.True(balanced(events))
}

func (s *ReflectSuite) TestPointerAndNil() {
	n := int16(5)
	events, err := s.serialize(&n)
	s.NoError(err)
	s.Equal([]string{"int16:5"}, events)

	var pn *int16
	events, err = s.serialize(pn)
	s.NoError(err)
	s.Equal([]string{"nil"}, events)
}

func (s *ReflectSuite) TestCustomValue() {
	events, err := s.serialize(colorGreen)
	s.NoError(err)
	s.Equal([]string{"variant:Color:Green:1", "variant-end"}, events)

	// 容器内的自定义实现同样生效。
	events, err = s.serialize([]color{colorRed, colorGreen})
	s.NoError(err)
	s.Equal([]string{
		"seq:2",
		"elem", "variant:Color:Red:0", "variant-end",
		"elem", "variant:Color:Green:1", "variant-end",
		"seq-end",
	}, events)
}

// mood 的 Serialize 使用指针接收者，且底层类型为 uint8。
type mood uint8

const (
	moodCalm mood = iota
	moodAngry
)

var moodNames = []string{"Calm", "Angry"}

func (m *mood) Serialize(enc Encoder) error {
	variant, err := enc.EncodeVariant("Mood", moodNames[*m], uint32(*m))
	if err != nil {
		return err
	}
	return variant.End()
}

func (s *ReflectSuite) TestPointerReceiverValue() {
	// 不可寻址的裸值也要走自定义实现。
	events, err := s.serialize(moodAngry)
	s.NoError(err)
	s.Equal([]string{"variant:Mood:Angry:1", "variant-end"}, events)

	// uint8 底层类型的切片不得按原始字节输出，必须逐元素分发。
	events, err = s.serialize([]mood{moodCalm, moodAngry})
	s.NoError(err)
	s.Equal([]string{
		"seq:2",
		"elem", "variant:Mood:Calm:0", "variant-end",
		"elem", "variant:Mood:Angry:1", "variant-end",
		"seq-end",
	}, events)

	// 映射的值不可寻址，同样不能绕过指针接收者实现。
	events, err = s.serialize(map[string]mood{"m": moodCalm})
	s.NoError(err)
	s.Equal([]string{
		"map:1",
		"entry", "string:m", "variant:Mood:Calm:0", "variant-end",
		"map-end",
	}, events)
}

func (s *ReflectSuite) TestKindUnsupported() {
	_, err := s.serialize(make(chan int))
	s.ErrorIs(err, merr.ErrKindUnsupported)

	_, err = s.serialize(func() {})
	s.ErrorIs(err, merr.ErrKindUnsupported)
}

func (s *ReflectSuite) TestDepthExceeded() {
	type node struct {
		Next *node `json:"next"`
	}
	a := &node{}
	b := &node{Next: a}
	a.Next = b

	rec := &recordEncoder{}
	err := WrapWith(a, WrapOptions{MaxDepth: 50}).Serialize(rec)
	s.ErrorIs(err, merr.ErrDepthExceeded)
}

func (s *ReflectSuite) TestShortCircuit() {
	// 第 2 个标量失败后，后续兄弟元素不得再产生任何事件。
	rec := &recordEncoder{failAt: 2}
	err := Wrap([]string{"a", "b", "c"}).Serialize(rec)
	s.ErrorIs(err, errInjected)
	s.Equal([]string{"seq:3", "elem", "string:a", "elem"}, rec.events)
}

func (s *ReflectSuite) TestNestingBalance() {
	v := map[string]any{
		"vec": []string{"a", "b"},
		"obj": map[string]any{"k": []int{1, 2, 3}},
	}
	events, err := s.serialize(v)
	s.NoError(err)
	s.True(balanced(events))
}

func TestReflect(t *testing.T) {
	suite.Run(t, new(ReflectSuite))
}
