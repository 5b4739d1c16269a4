package serde

import (
	"fmt"
	"strconv"
	"strings"
)

// recordEncoder 把收到的结构化事件记录为文本，供测试断言事件序列。
type recordEncoder struct {
	events []string

	// failAt 大于 0 时，第 failAt 个标量事件返回 errInjected。
	failAt  int
	scalars int
}

var errInjected = fmt.Errorf("injected backend failure")

var _ Encoder = (*recordEncoder)(nil)

func (r *recordEncoder) scalar(event string) error {
	r.scalars++
	if r.failAt > 0 && r.scalars >= r.failAt {
		return errInjected
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordEncoder) EncodeBool(v bool) error   { return r.scalar("bool:" + strconv.FormatBool(v)) }
func (r *recordEncoder) EncodeInt8(v int8) error   { return r.scalar("int8:" + strconv.Itoa(int(v))) }
func (r *recordEncoder) EncodeInt16(v int16) error { return r.scalar("int16:" + strconv.Itoa(int(v))) }
func (r *recordEncoder) EncodeInt32(v int32) error { return r.scalar("int32:" + strconv.Itoa(int(v))) }
func (r *recordEncoder) EncodeInt64(v int64) error {
	return r.scalar("int64:" + strconv.FormatInt(v, 10))
}
func (r *recordEncoder) EncodeUint8(v uint8) error {
	return r.scalar("uint8:" + strconv.FormatUint(uint64(v), 10))
}
func (r *recordEncoder) EncodeUint16(v uint16) error {
	return r.scalar("uint16:" + strconv.FormatUint(uint64(v), 10))
}
func (r *recordEncoder) EncodeUint32(v uint32) error {
	return r.scalar("uint32:" + strconv.FormatUint(uint64(v), 10))
}
func (r *recordEncoder) EncodeUint64(v uint64) error {
	return r.scalar("uint64:" + strconv.FormatUint(v, 10))
}
func (r *recordEncoder) EncodeFloat32(v float32) error {
	return r.scalar("float32:" + strconv.FormatFloat(float64(v), 'g', -1, 32))
}
func (r *recordEncoder) EncodeFloat64(v float64) error {
	return r.scalar("float64:" + strconv.FormatFloat(v, 'g', -1, 64))
}
func (r *recordEncoder) EncodeString(v string) error { return r.scalar("string:" + v) }
func (r *recordEncoder) EncodeBytes(v []byte) error {
	return r.scalar("bytes:" + strconv.Itoa(len(v)))
}
func (r *recordEncoder) EncodeNil() error { return r.scalar("nil") }

func (r *recordEncoder) EncodeSeq(hint int) (SeqEncoder, error) {
	r.events = append(r.events, "seq:"+strconv.Itoa(hint))
	return &recordComposite{rec: r, end: "seq-end"}, nil
}

func (r *recordEncoder) EncodeMap(hint int) (MapEncoder, error) {
	r.events = append(r.events, "map:"+strconv.Itoa(hint))
	return &recordComposite{rec: r, end: "map-end"}, nil
}

func (r *recordEncoder) EncodeStruct(name string, numFields int) (StructEncoder, error) {
	r.events = append(r.events, "struct:"+name+":"+strconv.Itoa(numFields))
	return &recordComposite{rec: r, end: "struct-end"}, nil
}

func (r *recordEncoder) EncodeVariant(enumName, variantName string, index uint32) (VariantEncoder, error) {
	r.events = append(r.events, fmt.Sprintf("variant:%s:%s:%d", enumName, variantName, index))
	return &recordComposite{rec: r, end: "variant-end"}, nil
}

type recordComposite struct {
	rec *recordEncoder
	end string
}

func (c *recordComposite) EncodeElement(v Value) error {
	c.rec.events = append(c.rec.events, "elem")
	return v.Serialize(c.rec)
}

func (c *recordComposite) EncodeEntry(key, value Value) error {
	c.rec.events = append(c.rec.events, "entry")
	if err := key.Serialize(c.rec); err != nil {
		return err
	}
	return value.Serialize(c.rec)
}

func (c *recordComposite) EncodeField(name string, v Value) error {
	c.rec.events = append(c.rec.events, "field:"+name)
	return v.Serialize(c.rec)
}

func (c *recordComposite) EncodePayload(v Value) error {
	c.rec.events = append(c.rec.events, "payload")
	return v.Serialize(c.rec)
}

func (c *recordComposite) End() error {
	c.rec.events = append(c.rec.events, c.end)
	return nil
}

// balanced 统计事件流中 begin/end 是否严格配对。
func balanced(events []string) bool {
	depth := 0
	for _, ev := range events {
		switch {
		case strings.HasPrefix(ev, "seq:"),
			strings.HasPrefix(ev, "map:"),
			strings.HasPrefix(ev, "struct:"),
			strings.HasPrefix(ev, "variant:"):
			depth++
		case strings.HasSuffix(ev, "-end"):
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
