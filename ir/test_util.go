// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ir

import (
	"fmt"
)

// TestModule is a small valid module used by tests across packages.
// %17 is a void entry function with a selection construct and a call to %30,
// %40 is a void function with a loop.
const TestModule = `
; bound 50
%1 = OpTypeVoid
%2 = OpTypeFunction %1
%3 = OpTypeFloat 32
%4 = OpTypeVector %3 4
%5 = OpTypeInt 32 1
%6 = OpTypeBool
%7 = OpConstant %3 0
%8 = OpConstant %3 1065353216
%9 = OpConstant %5 0
%10 = OpConstant %5 1
%11 = OpConstantTrue %6
%12 = OpTypePointer 0 %5
%13 = OpTypeStruct %3 %5
%14 = OpConstant %5 2
%15 = OpTypeArray %5 %14
%16 = OpTypeFunction %5 %5
%17 = OpFunction %1 0 %2
%18 = OpLabel
  %19 = OpVariable %12 0 %9
  %20 = OpIAdd %5 %10 %14
  %21 = OpFAdd %3 %7 %8
  %22 = OpSLessThan %6 %20 %10
  OpSelectionMerge %25 0
  OpBranchConditional %22 %23 %24
%23 = OpLabel
  %26 = OpFunctionCall %5 %30 %20
  OpStore %19 %26
  OpBranch %25
%24 = OpLabel
  %27 = OpIMul %5 %20 %20
  OpBranch %25
%25 = OpLabel
  %28 = OpPhi %5 %26 %23 %27 %24
  %29 = OpLoad %5 %19
  OpReturn
OpFunctionEnd
%30 = OpFunction %5 0 %16
%31 = OpFunctionParameter %5
%32 = OpLabel
  %33 = OpIAdd %5 %31 %10
  OpReturnValue %33
OpFunctionEnd
%40 = OpFunction %1 0 %2
%41 = OpLabel
  OpBranch %42
%42 = OpLabel
  %46 = OpPhi %5 %9 %41 %47 %44
  %48 = OpSLessThan %6 %46 %14
  OpLoopMerge %45 %44 0
  OpBranchConditional %48 %43 %45
%43 = OpLabel
  OpBranch %44
%44 = OpLabel
  %47 = OpIAdd %5 %46 %10
  OpBranch %42
%45 = OpLabel
  OpReturn
OpFunctionEnd
`

// MustDeserialize parses a module and panics on errors, for use in tests.
func MustDeserialize(text string) *Module {
	m, err := Deserialize([]byte(text))
	if err != nil {
		panic(fmt.Sprintf("failed to deserialize test module: %v", err))
	}
	return m
}
