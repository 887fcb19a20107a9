package spv

// OpCode is a SPIR-V instruction opcode, the low 16 bits of an
// instruction's first word (the high 16 bits carry the instruction's
// total word count). Numeric values are the ones assigned by the
// Khronos SPIR-V specification.
type OpCode uint16

const (
	OpNop               OpCode = 0
	OpUndef             OpCode = 1
	OpSourceContinued   OpCode = 2
	OpSource            OpCode = 3
	OpSourceExtension   OpCode = 4
	OpName              OpCode = 5
	OpMemberName        OpCode = 6
	OpString            OpCode = 7
	OpLine              OpCode = 8
	OpExtension         OpCode = 10
	OpExtInstImport     OpCode = 11
	OpExtInst           OpCode = 12
	OpMemoryModel       OpCode = 14
	OpEntryPoint        OpCode = 15
	OpExecutionMode     OpCode = 16
	OpCapability        OpCode = 17

	OpTypeVoid                     OpCode = 19
	OpTypeBool                     OpCode = 20
	OpTypeInt                      OpCode = 21
	OpTypeFloat                    OpCode = 22
	OpTypeVector                   OpCode = 23
	OpTypeMatrix                   OpCode = 24
	OpTypeImage                    OpCode = 25
	OpTypeSampler                  OpCode = 26
	OpTypeSampledImage             OpCode = 27
	OpTypeArray                    OpCode = 28
	OpTypeRuntimeArray             OpCode = 29
	OpTypeStruct                   OpCode = 30
	OpTypeOpaque                   OpCode = 31
	OpTypePointer                  OpCode = 32
	OpTypeFunction                 OpCode = 33

	OpConstantTrue         OpCode = 41
	OpConstantFalse        OpCode = 42
	OpConstant             OpCode = 43
	OpConstantComposite    OpCode = 44
	OpConstantNull         OpCode = 46
	OpSpecConstantTrue     OpCode = 48
	OpSpecConstantFalse    OpCode = 49
	OpSpecConstant         OpCode = 50
	OpSpecConstantComposite OpCode = 51
	OpSpecConstantOp       OpCode = 52

	OpFunction          OpCode = 54
	OpFunctionParameter OpCode = 55
	OpFunctionEnd       OpCode = 56
	OpFunctionCall      OpCode = 57

	OpVariable      OpCode = 59
	OpImageTexelPointer OpCode = 60
	OpLoad          OpCode = 61
	OpStore         OpCode = 62
	OpCopyMemory    OpCode = 63
	OpAccessChain   OpCode = 65

	OpDecorate       OpCode = 71
	OpMemberDecorate OpCode = 72

	OpVectorExtractDynamic OpCode = 77
	OpVectorInsertDynamic  OpCode = 78
	OpVectorShuffle        OpCode = 79
	OpCompositeConstruct   OpCode = 80
	OpCompositeExtract     OpCode = 81
	OpCompositeInsert      OpCode = 82
	OpCopyObject           OpCode = 83
	OpTranspose            OpCode = 84

	OpImageSampleImplicitLod OpCode = 87
	OpImageSampleExplicitLod OpCode = 88
	OpImageFetch             OpCode = 95
	OpImageRead              OpCode = 98
	OpImageWrite             OpCode = 99
	OpImageQuerySizeLod      OpCode = 103
	OpImageQuerySize         OpCode = 104

	OpConvertFToU OpCode = 109
	OpConvertFToS OpCode = 110
	OpConvertSToF OpCode = 111
	OpConvertUToF OpCode = 112
	OpUConvert    OpCode = 113
	OpSConvert    OpCode = 114
	OpFConvert    OpCode = 115
	OpBitcast     OpCode = 124

	OpSNegate OpCode = 126
	OpFNegate OpCode = 127
	OpIAdd    OpCode = 128
	OpFAdd    OpCode = 129
	OpISub    OpCode = 130
	OpFSub    OpCode = 131
	OpIMul    OpCode = 132
	OpFMul    OpCode = 133
	OpUDiv    OpCode = 134
	OpSDiv    OpCode = 135
	OpFDiv    OpCode = 136
	OpUMod    OpCode = 137
	OpSRem    OpCode = 138
	OpSMod    OpCode = 139
	OpFRem    OpCode = 140
	OpFMod    OpCode = 141
	OpVectorTimesScalar OpCode = 142
	OpMatrixTimesScalar OpCode = 143
	OpVectorTimesMatrix OpCode = 144
	OpMatrixTimesVector OpCode = 145
	OpMatrixTimesMatrix OpCode = 146
	OpOuterProduct      OpCode = 147
	OpDot               OpCode = 148
	OpIAddCarry         OpCode = 149
	OpISubBorrow        OpCode = 150
	OpUMulExtended      OpCode = 151
	OpSMulExtended      OpCode = 152

	OpAny  OpCode = 154
	OpAll  OpCode = 155
	OpIsNan OpCode = 156
	OpIsInf OpCode = 157

	OpLogicalEqual     OpCode = 164
	OpLogicalNotEqual  OpCode = 165
	OpLogicalOr        OpCode = 166
	OpLogicalAnd       OpCode = 167
	OpLogicalNot       OpCode = 168
	OpSelect           OpCode = 169
	OpIEqual           OpCode = 170
	OpINotEqual        OpCode = 171
	OpUGreaterThan     OpCode = 172
	OpSGreaterThan     OpCode = 173
	OpUGreaterThanEqual OpCode = 174
	OpSGreaterThanEqual OpCode = 175
	OpULessThan        OpCode = 176
	OpSLessThan        OpCode = 177
	OpULessThanEqual   OpCode = 178
	OpSLessThanEqual   OpCode = 179
	OpFOrdEqual            OpCode = 180
	OpFUnordEqual          OpCode = 181
	OpFOrdNotEqual         OpCode = 182
	OpFUnordNotEqual       OpCode = 183
	OpFOrdLessThan         OpCode = 184
	OpFUnordLessThan       OpCode = 185
	OpFOrdGreaterThan      OpCode = 186
	OpFUnordGreaterThan    OpCode = 187
	OpFOrdLessThanEqual    OpCode = 188
	OpFUnordLessThanEqual  OpCode = 189
	OpFOrdGreaterThanEqual OpCode = 190
	OpFUnordGreaterThanEqual OpCode = 191

	OpShiftRightLogical    OpCode = 194
	OpShiftRightArithmetic OpCode = 195
	OpShiftLeftLogical     OpCode = 196
	OpBitwiseOr            OpCode = 197
	OpBitwiseXor           OpCode = 198
	OpBitwiseAnd           OpCode = 199
	OpNot                  OpCode = 200
	OpBitFieldInsert       OpCode = 201
	OpBitFieldSExtract     OpCode = 202
	OpBitFieldUExtract     OpCode = 203
	OpBitReverse           OpCode = 204
	OpBitCount             OpCode = 205

	OpControlBarrier OpCode = 224
	OpMemoryBarrier  OpCode = 225

	OpAtomicLoad        OpCode = 227
	OpAtomicStore       OpCode = 228
	OpAtomicExchange    OpCode = 229
	OpAtomicIAdd        OpCode = 234
	OpAtomicISub        OpCode = 235

	OpPhi             OpCode = 245
	OpLoopMerge       OpCode = 246
	OpSelectionMerge  OpCode = 247
	OpLabel           OpCode = 248
	OpBranch          OpCode = 249
	OpBranchConditional OpCode = 250
	OpSwitch          OpCode = 251
	OpKill            OpCode = 252
	OpReturn          OpCode = 253
	OpReturnValue     OpCode = 254
	OpUnreachable     OpCode = 255

	OpGroupNonUniformBallot OpCode = 339

	OpTerminateInvocation OpCode = 4416

	OpTraceRayKHR                  OpCode = 4445
	OpExecuteCallableKHR           OpCode = 4446
	OpTypeAccelerationStructureKHR OpCode = 5341
	OpTypeRayQueryKHR              OpCode = 4472
	OpRayQueryInitializeKHR              OpCode = 4473
	OpRayQueryTerminateKHR               OpCode = 4474
	OpRayQueryGenerateIntersectionKHR    OpCode = 4475
	OpRayQueryConfirmIntersectionKHR     OpCode = 4476
	OpRayQueryProceedKHR                 OpCode = 4477
	OpRayQueryGetIntersectionTypeKHR      OpCode = 4479

	OpTypeCooperativeMatrixKHR     OpCode = 4456
	OpCooperativeMatrixLoadKHR     OpCode = 4457
	OpCooperativeMatrixStoreKHR    OpCode = 4458
	OpCooperativeMatrixMulAddKHR   OpCode = 4459
	OpCooperativeMatrixLengthKHR   OpCode = 4460
)

// StorageClass mirrors SPIR-V's numeric storage-class enumerants, used
// while decoding OpTypePointer/OpVariable before they are translated
// into value.StorageClass.
type StorageClass uint32

const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassWorkgroup       StorageClass = 4
	StorageClassCrossWorkgroup  StorageClass = 5
	StorageClassPrivate         StorageClass = 6
	StorageClassFunction        StorageClass = 7
	StorageClassGeneric         StorageClass = 8
	StorageClassPushConstant    StorageClass = 9
	StorageClassAtomicCounter   StorageClass = 10
	StorageClassImage           StorageClass = 11
	StorageClassStorageBuffer   StorageClass = 12

	// RayQueryKHR's own de-facto storage class is Private; RayPayloadKHR
	// etc. are not separately modeled since this interpreter's core
	// treats the accel-struct/ray-query value kinds uniformly via
	// value.AccelStruct regardless of storage class.
)

// ExecutionModel mirrors SPIR-V's numeric execution-model enumerants
// used by OpEntryPoint.
type ExecutionModel uint32

const (
	ExecutionModelVertex        ExecutionModel = 0
	ExecutionModelFragment      ExecutionModel = 4
	ExecutionModelGLCompute     ExecutionModel = 5
	ExecutionModelKernel        ExecutionModel = 6
	ExecutionModelRayGenerationKHR ExecutionModel = 5313
	ExecutionModelIntersectionKHR  ExecutionModel = 5314
	ExecutionModelAnyHitKHR        ExecutionModel = 5315
	ExecutionModelClosestHitKHR    ExecutionModel = 5316
	ExecutionModelMissKHR          ExecutionModel = 5317
	ExecutionModelCallableKHR      ExecutionModel = 5318
)

// HasResult reports whether op produces a result id (preceded by a
// result-type id only when HasResultType also holds), per the SPIR-V
// "A" (has result) / "R" (has result type) instruction table columns.
func (op OpCode) HasResult() bool {
	switch op {
	case OpNop, OpSource, OpSourceContinued, OpSourceExtension, OpName, OpMemberName,
		OpLine, OpExtension, OpMemoryModel, OpEntryPoint, OpExecutionMode, OpCapability,
		OpFunctionEnd, OpStore, OpCopyMemory, OpDecorate, OpMemberDecorate,
		OpLoopMerge, OpSelectionMerge, OpBranch, OpBranchConditional, OpSwitch,
		OpKill, OpReturn, OpReturnValue, OpUnreachable, OpControlBarrier, OpMemoryBarrier,
		OpAtomicStore, OpImageWrite, OpTerminateInvocation, OpCooperativeMatrixStoreKHR,
		OpRayQueryInitializeKHR, OpRayQueryTerminateKHR, OpRayQueryGenerateIntersectionKHR,
		OpRayQueryConfirmIntersectionKHR, OpTraceRayKHR, OpExecuteCallableKHR:
		return false
	default:
		return true
	}
}

// HasResultType reports whether op's result id is preceded by a
// result-type id operand. Type-declaring opcodes, OpString,
// OpExtInstImport, and OpLabel produce an id without a type; every
// other result-producing opcode carries both.
func (op OpCode) HasResultType() bool {
	if !op.HasResult() {
		return false
	}
	switch op {
	case OpLabel, OpString, OpExtInstImport,
		OpTypeVoid, OpTypeBool, OpTypeInt, OpTypeFloat, OpTypeVector, OpTypeMatrix,
		OpTypeImage, OpTypeSampler, OpTypeSampledImage, OpTypeArray, OpTypeRuntimeArray,
		OpTypeStruct, OpTypeOpaque, OpTypePointer, OpTypeFunction,
		OpTypeAccelerationStructureKHR, OpTypeRayQueryKHR, OpTypeCooperativeMatrixKHR:
		return false
	default:
		return true
	}
}
