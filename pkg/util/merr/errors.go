// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"github.com/cockroachdb/errors"
)

const (
	CanceledCode int32 = 10000
	TimeoutCode  int32 = 10001
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// Define leaf errors here,
// WARN: take care to add new error,
// check whether you can use the errors below before adding a new one.
// Name: Err + related prefix + error name
var (
	// Backend related
	// ErrBackend 表示具体编码后端在结构化写入过程中报告了失败，
	// 桥接层不理解其内部含义，仅原样向上传递。
	ErrBackend = newZeusError("backend error", 1, false)

	// Walk related
	// ErrDepthExceeded 表示结构化遍历的嵌套深度超过了配置的上限。
	ErrDepthExceeded = newZeusError("nesting depth exceeded", 100, false)
	// ErrKindUnsupported 表示值中出现了无法序列化的 Go 类型
	// （chan、func、complex 等），对应“不可表示”的失败语义。
	ErrKindUnsupported = newZeusError("unsupported kind", 101, false, WithErrorType(InputError))

	// Contract related
	// ErrContractViolation 表示调用方破坏了 begin/end 配对约定，
	// 属于编程缺陷。该错误只会作为 panic 的载荷出现，不会通过返回值传播。
	ErrContractViolation = newZeusError("encoder contract violation", 200, false)

	// Registry related
	ErrFormatNotFound  = newZeusError("format not found", 300, false, WithErrorType(InputError))
	ErrFormatDuplicate = newZeusError("format already registered", 301, false, WithErrorType(InputError))
	ErrValueNotFound   = newZeusError("value not found", 302, false, WithErrorType(InputError))
	ErrValueDuplicate  = newZeusError("value already registered", 303, false, WithErrorType(InputError))

	// Parameter related
	ErrParameterInvalid = newZeusError("invalid parameter", 1100, false, WithErrorType(InputError))
	ErrParameterMissing = newZeusError("missing parameter", 1101, false, WithErrorType(InputError))

	errUnexpected = newZeusError("unexpected error", (1<<16)-1, false)
)

type errorOption func(*zeusError)

func WithDetail(detail string) errorOption {
	return func(err *zeusError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *zeusError) {
		err.errType = etype
	}
}

type zeusError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
	errType   ErrorType
}

func newZeusError(msg string, code int32, retriable bool, options ...errorOption) zeusError {
	err := zeusError{
		msg:       msg,
		detail:    msg,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e zeusError) code() int32 {
	return e.errCode
}

func (e zeusError) Error() string {
	return e.msg
}

func (e zeusError) Detail() string {
	return e.detail
}

func (e zeusError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(zeusError); ok {
		return e.errCode == cause.errCode
	}
	return false
}
