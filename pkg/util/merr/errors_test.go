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
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

func (s *ErrSuite) TestCode() {
	err := errors.Wrap(WrapErrFormatNotFound("cbor"), "failed to select format")
	s.ErrorIs(err, ErrFormatNotFound)
	s.Equal(Code(ErrFormatNotFound), Code(err))
	s.Equal(TimeoutCode, Code(context.DeadlineExceeded))
	s.Equal(CanceledCode, Code(context.Canceled))
	s.Equal(errUnexpected.errCode, Code(errUnexpected))

	sameCodeErr := newZeusError("new error", ErrFormatNotFound.errCode, false)
	s.True(sameCodeErr.Is(ErrFormatNotFound))
}

func (s *ErrSuite) TestWrap() {
	// Backend 相关错误。
	s.ErrorIs(WrapErrBackend("jsonstream", "EncodeString", errors.New("write failed")), ErrBackend)
	s.ErrorIs(WrapErrBackendReason("msgpackenc", "unknown length not supported"), ErrBackend)

	// Walk 相关错误。
	s.ErrorIs(WrapErrDepthExceeded(1000), ErrDepthExceeded)
	s.ErrorIs(WrapErrKindUnsupported("chan", "walk struct field"), ErrKindUnsupported)

	// Contract 相关错误。
	s.ErrorIs(WrapErrContractViolation("End called twice"), ErrContractViolation)

	// Registry 相关错误。
	s.ErrorIs(WrapErrFormatNotFound("cbor"), ErrFormatNotFound)
	s.ErrorIs(WrapErrFormatDuplicate("json"), ErrFormatDuplicate)
	s.ErrorIs(WrapErrValueNotFound("profile"), ErrValueNotFound)
	s.ErrorIs(WrapErrValueDuplicate("profile"), ErrValueDuplicate)

	// Parameter 相关错误。
	s.ErrorIs(WrapErrParameterInvalidMsg("writer is %v", nil), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterMissing("encoder"), ErrParameterMissing)
}

func (s *ErrSuite) TestWrapChained() {
	err := WrapErrBackend("jsonstream", "EncodeSeq", errors.New("buffer full"), "outer context")
	s.ErrorIs(err, ErrBackend)
	s.Contains(err.Error(), "outer context")
}

func (s *ErrSuite) TestCombine() {
	var (
		errFirst  = errors.New("first")
		errSecond = errors.New("second")
	)

	err := Combine(errFirst, errSecond)
	s.True(errors.Is(err, errFirst))

	s.NoError(Combine(nil, nil))
	s.ErrorIs(Combine(nil, errFirst), errFirst)
}

func (s *ErrSuite) TestErrorType() {
	s.Equal(SystemError, GetErrorType(ErrBackend))
	s.Equal(InputError, GetErrorType(ErrFormatNotFound))
	s.Equal("input_error", InputError.String())
}

func (s *ErrSuite) TestIsRetryable() {
	s.False(IsRetryableErr(ErrBackend))
	s.False(IsRetryableErr(errors.New("not a zeus error")))
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
