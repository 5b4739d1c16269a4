package serde

import (
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/lk2023060901/serde-garden-go/pkg/util/merr"
)

// DefaultMaxDepth 为结构化遍历的默认最大嵌套深度。
// 没有该上限时，自引用的值会导致无限递归直至栈溢出。
const DefaultMaxDepth = 1000

// WrapOptions 控制 Wrap 产生的包装器的行为。
type WrapOptions struct {
	// MaxDepth 为最大嵌套深度，0 或负数表示使用 DefaultMaxDepth。
	MaxDepth int
}

// Wrap 将任意 Go 值包装为擦除后的 Value。
//
// 包装不拷贝也不预编码：返回的 Value 在 Serialize 被调用时
// 才按需反射遍历 v 的结构。已实现 Value 的值原样返回，
// 其自定义事件序列（例如枚举变体）优先于反射遍历。
func Wrap(v any) Value {
	return WrapWith(v, WrapOptions{})
}

// WrapWith 以给定选项包装任意 Go 值。
func WrapWith(v any, opts WrapOptions) Value {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if val, ok := v.(Value); ok {
		return val
	}
	return reflectValue{rv: reflect.ValueOf(v), maxDepth: opts.MaxDepth}
}

// valueType 用于识别字段/元素中实现了 Value 的类型。
var valueType = reflect.TypeOf((*Value)(nil)).Elem()

// reflectValue 是反射驱动的擦除值包装器。
//
// 它把"任意形状的值"这一泛型问题下沉到反射层解决：
// 对外只暴露非泛型的 Serialize，对内针对每种 reflect.Kind
// 发出对应的结构化事件。嵌套值包装为 depth+1 的子包装器，
// 递归在标量处收敛。
type reflectValue struct {
	rv       reflect.Value
	depth    int
	maxDepth int
}

var _ Value = reflectValue{}

func (v reflectValue) child(rv reflect.Value) reflectValue {
	return reflectValue{rv: rv, depth: v.depth + 1, maxDepth: v.maxDepth}
}

func (v reflectValue) Serialize(enc Encoder) error {
	if v.depth > v.maxDepth {
		return merr.WrapErrDepthExceeded(v.maxDepth)
	}

	rv := v.rv
	if !rv.IsValid() {
		return enc.EncodeNil()
	}

	// 自定义实现优先：实现了 Value 的类型自己决定事件序列。
	if rv.Type().Implements(valueType) {
		return rv.Interface().(Value).Serialize(enc)
	}
	// 指针接收者的实现同样生效。不可寻址的值（映射的键值、
	// 接口里的拷贝）先复制一份再取地址。
	if reflect.PointerTo(rv.Type()).Implements(valueType) {
		if !rv.CanAddr() {
			p := reflect.New(rv.Type())
			p.Elem().Set(rv)
			rv = p.Elem()
		}
		return rv.Addr().Interface().(Value).Serialize(enc)
	}

	switch rv.Kind() {
	case reflect.Bool:
		return enc.EncodeBool(rv.Bool())
	case reflect.Int8:
		return enc.EncodeInt8(int8(rv.Int()))
	case reflect.Int16:
		return enc.EncodeInt16(int16(rv.Int()))
	case reflect.Int32:
		return enc.EncodeInt32(int32(rv.Int()))
	case reflect.Int64, reflect.Int:
		// 平台相关的 int 统一按 64 位传递，避免跨平台产生不同输出。
		return enc.EncodeInt64(rv.Int())
	case reflect.Uint8:
		return enc.EncodeUint8(uint8(rv.Uint()))
	case reflect.Uint16:
		return enc.EncodeUint16(uint16(rv.Uint()))
	case reflect.Uint32:
		return enc.EncodeUint32(uint32(rv.Uint()))
	case reflect.Uint64, reflect.Uint:
		return enc.EncodeUint64(rv.Uint())
	case reflect.Float32:
		return enc.EncodeFloat32(float32(rv.Float()))
	case reflect.Float64:
		return enc.EncodeFloat64(rv.Float())
	case reflect.String:
		return enc.EncodeString(rv.String())
	case reflect.Slice:
		if isByteElem(rv.Type().Elem()) {
			return enc.EncodeBytes(rv.Bytes())
		}
		return v.encodeSeq(enc, rv)
	case reflect.Array:
		return v.encodeSeq(enc, rv)
	case reflect.Map:
		return v.encodeMap(enc, rv)
	case reflect.Struct:
		return v.encodeStruct(enc, rv)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return enc.EncodeNil()
		}
		// 解引用计入深度，自引用的值最终会触发 ErrDepthExceeded。
		return v.child(rv.Elem()).Serialize(enc)
	default:
		return merr.WrapErrKindUnsupported(rv.Kind().String())
	}
}

func (v reflectValue) encodeSeq(enc Encoder, rv reflect.Value) error {
	seq, err := enc.EncodeSeq(rv.Len())
	if err != nil {
		return err
	}
	for i := 0; i < rv.Len(); i++ {
		if err := seq.EncodeElement(v.child(rv.Index(i))); err != nil {
			return err
		}
	}
	return seq.End()
}

func (v reflectValue) encodeMap(enc Encoder, rv reflect.Value) error {
	m, err := enc.EncodeMap(rv.Len())
	if err != nil {
		return err
	}
	keys := rv.MapKeys()
	sortMapKeys(keys)
	for _, key := range keys {
		if err := m.EncodeEntry(v.child(key), v.child(rv.MapIndex(key))); err != nil {
			return err
		}
	}
	return m.End()
}

func (v reflectValue) encodeStruct(enc Encoder, rv reflect.Value) error {
	fields := structFields(rv)
	st, err := enc.EncodeStruct(rv.Type().Name(), len(fields))
	if err != nil {
		return err
	}
	for _, f := range fields {
		if err := st.EncodeField(f.name, v.child(f.value)); err != nil {
			return err
		}
	}
	return st.End()
}

// isByteElem 判断切片元素是否按原始字节整体写出。
// 自带 Serialize 实现的 uint8 同名类型仍走逐元素路径。
func isByteElem(t reflect.Type) bool {
	return t.Kind() == reflect.Uint8 &&
		!t.Implements(valueType) &&
		!reflect.PointerTo(t).Implements(valueType)
}

type structField struct {
	name  string
	value reflect.Value
}

// structFields 按声明顺序收集会被写出的字段。
// 支持 json tag 的改名、"-" 跳过与 omitempty；未导出字段被忽略；
// 内嵌字段按具名字段处理，不做打平。
func structFields(rv reflect.Value) []structField {
	t := rv.Type()
	out := make([]structField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}

		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = sf.Name
		}

		fv := rv.Field(i)
		if hasOption(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}
		out = append(out, structField{name: name, value: fv})
	}
	return out
}

func hasOption(opts, option string) bool {
	for opts != "" {
		var cur string
		cur, opts, _ = strings.Cut(opts, ",")
		if cur == option {
			return true
		}
	}
	return false
}

// isEmptyValue 的判定与 encoding/json 的 omitempty 语义一致。
func isEmptyValue(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return rv.Len() == 0
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// sortMapKeys 对可排序的键做排序，保证输出确定。
// 键序与 encoding/json 一致：字符串键按字典序，整数键先渲染为
// 十进制字符串再按字典序（"10" 排在 "2" 之前），使擦除路径的键序
// 与标准语义的直接编码逐字节一致。其余键保持反射遍历顺序。
func sortMapKeys(keys []reflect.Value) {
	if len(keys) == 0 {
		return
	}
	switch keys[0].Kind() {
	case reflect.String:
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sort.Slice(keys, func(i, j int) bool {
			return strconv.FormatInt(keys[i].Int(), 10) < strconv.FormatInt(keys[j].Int(), 10)
		})
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		sort.Slice(keys, func(i, j int) bool {
			return strconv.FormatUint(keys[i].Uint(), 10) < strconv.FormatUint(keys[j].Uint(), 10)
		})
	}
}
