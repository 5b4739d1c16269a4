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
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// InitLogger 根据配置初始化一个 zap Logger。
// 返回的 ZapProperties 中携带可动态调整的日志级别。
func InitLogger(cfg *Config, opts ...zap.Option) (*zap.Logger, *ZapProperties, error) {
	syncer, err := buildSyncer(cfg)
	if err != nil {
		return nil, nil, err
	}

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, nil, err
	}

	core := zapcore.NewCore(cfg.buildEncoder(), syncer, level)
	opts = append(cfg.buildOptions(syncer), opts...)
	lg := zap.New(core, opts...)

	props := &ZapProperties{
		Core:   core,
		Syncer: syncer,
		Level:  level,
	}
	return lg, props, nil
}

// buildSyncer 根据配置组合文件与标准输出两类 WriteSyncer。
func buildSyncer(cfg *Config) (zapcore.WriteSyncer, error) {
	var syncers []zapcore.WriteSyncer

	if len(cfg.File.Filename) > 0 {
		fileSyncer, err := buildFileSyncer(&cfg.File)
		if err != nil {
			return nil, err
		}
		syncers = append(syncers, fileSyncer)
	}

	if cfg.Stdout || len(syncers) == 0 {
		stdout, _, err := zap.Open([]string{"stdout"}...)
		if err != nil {
			return nil, err
		}
		syncers = append(syncers, stdout)
	}

	return zapcore.NewMultiWriteSyncer(syncers...), nil
}

// buildFileSyncer 基于 lumberjack 构造带滚动能力的文件日志输出。
func buildFileSyncer(cfg *FileLogConfig) (zapcore.WriteSyncer, error) {
	if st, err := os.Stat(cfg.Filename); err == nil {
		if st.IsDir() {
			return nil, errors.New("can't use directory as log file name")
		}
	}

	filename := cfg.Filename
	if len(cfg.RootPath) > 0 {
		filename = filepath.Join(cfg.RootPath, filename)
	}

	maxSize := cfg.MaxSize
	if maxSize == 0 {
		maxSize = defaultLogMaxSize
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxDays,
		LocalTime:  true,
	}), nil
}
