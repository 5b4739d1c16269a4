// Package registry 提供按名字在运行期选择擦除值与擦除编码器的查找表。
//
// 这是桥接层之上的消费侧便利设施：桥接本身的正确性不依赖它。
// 表项持有的是动态分发的句柄，值与格式的具体类型在编译期可以完全未知。
package registry

import (
	"io"
	"sort"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/lk2023060901/serde-garden-go/pkg/log"
	"github.com/lk2023060901/serde-garden-go/pkg/metrics"
	"github.com/lk2023060901/serde-garden-go/pkg/serde"
	"github.com/lk2023060901/serde-garden-go/pkg/util/merr"
	"github.com/lk2023060901/serde-garden-go/pkg/util/typeutil"
)

var registerMetricsOnce sync.Once

// Registry 维护两张表：格式名到编码器工厂，值名到擦除值句柄。
//
// 表的读写受互斥锁保护，注册与查找可以并发进行；
// 但由工厂创建出的编码器实例仍遵循"单次序列化调用独占"的约定。
type Registry struct {
	mu      sync.RWMutex
	formats map[string]serde.EncoderFactory
	values  map[string]serde.Value

	logger *zap.Logger
}

// New 创建一个空的 Registry。
func New() *Registry {
	registerMetricsOnce.Do(func() {
		metrics.Register(metrics.GetRegisterer())
	})
	return &Registry{
		formats: make(map[string]serde.EncoderFactory),
		values:  make(map[string]serde.Value),
		logger:  log.With(zap.String("component", "serde.registry")),
	}
}

// RegisterFormat 注册一种输出格式。重名注册返回 ErrFormatDuplicate。
func (r *Registry) RegisterFormat(name string, factory serde.EncoderFactory) error {
	if name == "" || factory == nil {
		return merr.WrapErrParameterInvalidMsg("format name and factory must be non-empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.formats[name]; ok {
		return merr.WrapErrFormatDuplicate(name)
	}
	r.formats[name] = factory
	metrics.RegistryEntries.WithLabelValues("format").Set(float64(len(r.formats)))

	r.logger.Debug("format registered", zap.String("format", name))
	return nil
}

// RegisterValue 注册一个具名的擦除值。重名注册返回 ErrValueDuplicate。
func (r *Registry) RegisterValue(name string, v serde.Value) error {
	if name == "" || v == nil {
		return merr.WrapErrParameterInvalidMsg("value name and handle must be non-empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.values[name]; ok {
		return merr.WrapErrValueDuplicate(name)
	}
	r.values[name] = v
	metrics.RegistryEntries.WithLabelValues("value").Set(float64(len(r.values)))

	r.logger.Debug("value registered", zap.String("value", name))
	return nil
}

// Format 返回给定格式名对应的编码器工厂。
func (r *Registry) Format(name string) (serde.EncoderFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.formats[name]
	if !ok {
		return nil, merr.WrapErrFormatNotFound(name)
	}
	return factory, nil
}

// Value 返回给定名字对应的擦除值句柄。
// 返回的句柄仅供调用方当前操作使用，所有权仍归表项。
func (r *Registry) Value(name string) (serde.Value, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[name]
	if !ok {
		return nil, merr.WrapErrValueNotFound(name)
	}
	return v, nil
}

// Formats 返回已注册格式名的有序列表。
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := lo.Keys(r.formats)
	sort.Strings(names)
	return names
}

// Values 返回已注册值名的有序列表。
func (r *Registry) Values() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := lo.Keys(r.values)
	sort.Strings(names)
	return names
}

// Names 返回两张表名字的快照集合，键名可能在两张表中同时出现。
func (r *Registry) Names() (formats, values typeutil.StringSet) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return typeutil.NewStringSet(lo.Keys(r.formats)...), typeutil.NewStringSet(lo.Keys(r.values)...)
}

// Encode 按名字选出值与格式，并执行一次擦除序列化调用。
//
// 失败时 w 中可能已有部分输出，调用方必须整体丢弃。
func (r *Registry) Encode(format, value string, w io.Writer) error {
	if w == nil {
		return merr.WrapErrParameterMissing("writer")
	}

	factory, err := r.Format(format)
	if err != nil {
		return err
	}
	v, err := r.Value(value)
	if err != nil {
		return err
	}

	if err := v.Serialize(factory(w)); err != nil {
		metrics.SerializeTotal.WithLabelValues(format, metrics.StatusFail).Inc()
		r.logger.Warn("serialize failed",
			zap.String("format", format),
			zap.String("value", value),
			zap.Error(err))
		return err
	}

	metrics.SerializeTotal.WithLabelValues(format, metrics.StatusOK).Inc()
	return nil
}
