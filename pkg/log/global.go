// Copyright 2019 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	_globalL atomic.Pointer[zap.Logger]
	_globalP atomic.Pointer[ZapProperties]
)

func init() {
	l, p, err := InitLogger(&Config{Level: "info", Format: "text", Stdout: true, DisableCaller: true})
	if err != nil {
		panic(err)
	}
	ReplaceGlobals(l, p)
}

// L 返回全局 Logger。
func L() *zap.Logger {
	return _globalL.Load()
}

// ReplaceGlobals 替换全局 Logger 及其属性。
func ReplaceGlobals(logger *zap.Logger, props *ZapProperties) {
	_globalL.Store(logger)
	_globalP.Store(props)
}

// With 基于全局 Logger 创建携带附加字段的子 Logger。
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

// SetLevel 动态调整全局日志级别。
func SetLevel(level zapcore.Level) {
	_globalP.Load().Level.SetLevel(level)
}

// GetLevel 返回全局日志级别。
func GetLevel() zapcore.Level {
	return _globalP.Load().Level.Level()
}

// Debug 在 Debug 级别输出一条日志。
// 消息包含调用处传入的字段以及 Logger 已经携带的字段。
func Debug(msg string, fields ...zap.Field) {
	L().Debug(msg, fields...)
}

// Info 在 Info 级别输出一条日志。
// 消息包含调用处传入的字段以及 Logger 已经携带的字段。
func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

// Warn 在 Warn 级别输出一条日志。
// 消息包含调用处传入的字段以及 Logger 已经携带的字段。
func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

// Error 在 Error 级别输出一条日志。
// 消息包含调用处传入的字段以及 Logger 已经携带的字段。
func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}

// Sync 刷新全局 Logger 的缓冲区。
func Sync() error {
	return L().Sync()
}
