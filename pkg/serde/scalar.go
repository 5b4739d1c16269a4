package serde

// ScalarKind 标识一个标量事件的原始类别。
// 主要用于错误信息与指标标签；事件本身通过独立方法传递，
// 位宽信息不依赖该枚举。
type ScalarKind uint8

const (
	KindBool ScalarKind = iota + 1
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindBytes
	KindNil
)

var scalarKindName = map[ScalarKind]string{
	KindBool:    "bool",
	KindInt8:    "int8",
	KindInt16:   "int16",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindUint8:   "uint8",
	KindUint16:  "uint16",
	KindUint32:  "uint32",
	KindUint64:  "uint64",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindString:  "string",
	KindBytes:   "bytes",
	KindNil:     "nil",
}

func (k ScalarKind) String() string {
	if name, ok := scalarKindName[k]; ok {
		return name
	}
	return "unknown"
}
