package wasm

// WebAssembly binary format magic number and version.
const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// Version is the supported WebAssembly binary format version.
	Version uint32 = 0x01
)

// Section IDs define the binary identifiers for each module section.
// Sections must appear in increasing order by ID (custom sections excepted).
const (
	SectionCustom   byte = 0
	SectionType     byte = 1
	SectionImport   byte = 2
	SectionFunction byte = 3
	SectionTable    byte = 4
	SectionMemory   byte = 5
	SectionGlobal   byte = 6
	SectionExport   byte = 7
	SectionStart    byte = 8
	SectionElement  byte = 9
	SectionCode     byte = 10
	SectionData     byte = 11
)

// Import/export descriptor kinds.
const (
	KindFunc   byte = 0
	KindTable  byte = 1
	KindMemory byte = 2
	KindGlobal byte = 3
)

// ValType is a single-byte WASM value type encoding.
type ValType byte

// Value type encodings.
const (
	ValI32     ValType = 0x7F
	ValI64     ValType = 0x7E
	ValF32     ValType = 0x7D
	ValF64     ValType = 0x7C
	ValV128    ValType = 0x7B
	ValFuncRef ValType = 0x70
)

// Block type constants. A block/if/loop whose result is a single value
// type encodes that type directly as a negative one-byte signed LEB128
// (the low 7 bits equal the type's own byte encoding); void uses -64.
const (
	BlockTypeVoid int32 = -64 // 0x40
	BlockTypeI32  int32 = -1  // 0x7F
	BlockTypeI64  int32 = -2  // 0x7E
	BlockTypeF32  int32 = -3  // 0x7D
	BlockTypeF64  int32 = -4  // 0x7C
	BlockTypeV128 int32 = -5  // 0x7B
)

// Control flow opcodes.
const (
	OpUnreachable        byte = 0x00
	OpNop                byte = 0x01
	OpBlock              byte = 0x02
	OpLoop               byte = 0x03
	OpIf                 byte = 0x04
	OpElse               byte = 0x05
	OpEnd                byte = 0x0B
	OpBr                 byte = 0x0C
	OpBrIf               byte = 0x0D
	OpReturn             byte = 0x0F
	OpCall               byte = 0x10
	OpCallIndirect       byte = 0x11
	OpReturnCall         byte = 0x12 // tail-call proposal
	OpReturnCallIndirect byte = 0x13 // tail-call proposal
)

// Parametric opcodes.
const (
	OpDrop   byte = 0x1A
	OpSelect byte = 0x1B
)

// Variable access opcodes.
const (
	OpLocalGet  byte = 0x20
	OpLocalSet  byte = 0x21
	OpLocalTee  byte = 0x22
	OpGlobalGet byte = 0x23
	OpGlobalSet byte = 0x24
)

// Memory load opcodes.
const (
	OpI32Load    byte = 0x28
	OpI64Load    byte = 0x29
	OpF32Load    byte = 0x2A
	OpF64Load    byte = 0x2B
	OpI32Load8S  byte = 0x2C
	OpI32Load8U  byte = 0x2D
	OpI32Load16S byte = 0x2E
	OpI32Load16U byte = 0x2F
	OpI64Load8S  byte = 0x30
	OpI64Load8U  byte = 0x31
	OpI64Load16S byte = 0x32
	OpI64Load16U byte = 0x33
	OpI64Load32S byte = 0x34
	OpI64Load32U byte = 0x35
)

// Memory store opcodes.
const (
	OpI32Store   byte = 0x36
	OpI64Store   byte = 0x37
	OpF32Store   byte = 0x38
	OpF64Store   byte = 0x39
	OpI32Store8  byte = 0x3A
	OpI32Store16 byte = 0x3B
	OpI64Store8  byte = 0x3C
	OpI64Store16 byte = 0x3D
	OpI64Store32 byte = 0x3E
)

// Memory size/grow opcodes.
const (
	OpMemorySize byte = 0x3F
	OpMemoryGrow byte = 0x40
)

// Constant opcodes.
const (
	OpI32Const byte = 0x41
	OpI64Const byte = 0x42
	OpF32Const byte = 0x43
	OpF64Const byte = 0x44
)

// i32 comparison opcodes.
const (
	OpI32Eqz byte = 0x45
	OpI32Eq  byte = 0x46
	OpI32Ne  byte = 0x47
	OpI32LtS byte = 0x48
	OpI32LtU byte = 0x49
	OpI32GtS byte = 0x4A
	OpI32GtU byte = 0x4B
	OpI32LeS byte = 0x4C
	OpI32LeU byte = 0x4D
	OpI32GeS byte = 0x4E
	OpI32GeU byte = 0x4F
)

// i64 comparison opcodes.
const (
	OpI64Eqz byte = 0x50
	OpI64Eq  byte = 0x51
	OpI64Ne  byte = 0x52
	OpI64LtS byte = 0x53
	OpI64LtU byte = 0x54
	OpI64GtS byte = 0x55
	OpI64GtU byte = 0x56
	OpI64LeS byte = 0x57
	OpI64LeU byte = 0x58
	OpI64GeS byte = 0x59
	OpI64GeU byte = 0x5A
)

// f32 comparison opcodes.
const (
	OpF32Eq byte = 0x5B
	OpF32Ne byte = 0x5C
	OpF32Lt byte = 0x5D
	OpF32Gt byte = 0x5E
	OpF32Le byte = 0x5F
	OpF32Ge byte = 0x60
)

// f64 comparison opcodes.
const (
	OpF64Eq byte = 0x61
	OpF64Ne byte = 0x62
	OpF64Lt byte = 0x63
	OpF64Gt byte = 0x64
	OpF64Le byte = 0x65
	OpF64Ge byte = 0x66
)

// i32 numeric opcodes.
const (
	OpI32Clz    byte = 0x67
	OpI32Ctz    byte = 0x68
	OpI32Popcnt byte = 0x69
	OpI32Add    byte = 0x6A
	OpI32Sub    byte = 0x6B
	OpI32Mul    byte = 0x6C
	OpI32DivS   byte = 0x6D
	OpI32DivU   byte = 0x6E
	OpI32RemS   byte = 0x6F
	OpI32RemU   byte = 0x70
	OpI32And    byte = 0x71
	OpI32Or     byte = 0x72
	OpI32Xor    byte = 0x73
	OpI32Shl    byte = 0x74
	OpI32ShrS   byte = 0x75
	OpI32ShrU   byte = 0x76
	OpI32Rotl   byte = 0x77
	OpI32Rotr   byte = 0x78
)

// i64 numeric opcodes.
const (
	OpI64Clz    byte = 0x79
	OpI64Ctz    byte = 0x7A
	OpI64Popcnt byte = 0x7B
	OpI64Add    byte = 0x7C
	OpI64Sub    byte = 0x7D
	OpI64Mul    byte = 0x7E
	OpI64DivS   byte = 0x7F
	OpI64DivU   byte = 0x80
	OpI64RemS   byte = 0x81
	OpI64RemU   byte = 0x82
	OpI64And    byte = 0x83
	OpI64Or     byte = 0x84
	OpI64Xor    byte = 0x85
	OpI64Shl    byte = 0x86
	OpI64ShrS   byte = 0x87
	OpI64ShrU   byte = 0x88
	OpI64Rotl   byte = 0x89
	OpI64Rotr   byte = 0x8A
)

// f32 numeric opcodes.
const (
	OpF32Abs      byte = 0x8B
	OpF32Neg      byte = 0x8C
	OpF32Ceil     byte = 0x8D
	OpF32Floor    byte = 0x8E
	OpF32Trunc    byte = 0x8F
	OpF32Nearest  byte = 0x90
	OpF32Sqrt     byte = 0x91
	OpF32Add      byte = 0x92
	OpF32Sub      byte = 0x93
	OpF32Mul      byte = 0x94
	OpF32Div      byte = 0x95
	OpF32Min      byte = 0x96
	OpF32Max      byte = 0x97
	OpF32Copysign byte = 0x98
)

// f64 numeric opcodes.
const (
	OpF64Abs      byte = 0x99
	OpF64Neg      byte = 0x9A
	OpF64Ceil     byte = 0x9B
	OpF64Floor    byte = 0x9C
	OpF64Trunc    byte = 0x9D
	OpF64Nearest  byte = 0x9E
	OpF64Sqrt     byte = 0x9F
	OpF64Add      byte = 0xA0
	OpF64Sub      byte = 0xA1
	OpF64Mul      byte = 0xA2
	OpF64Div      byte = 0xA3
	OpF64Min      byte = 0xA4
	OpF64Max      byte = 0xA5
	OpF64Copysign byte = 0xA6
)

// Conversion opcodes.
const (
	OpI32WrapI64        byte = 0xA7
	OpI32TruncF32S      byte = 0xA8
	OpI32TruncF32U      byte = 0xA9
	OpI32TruncF64S      byte = 0xAA
	OpI32TruncF64U      byte = 0xAB
	OpI64ExtendI32S     byte = 0xAC
	OpI64ExtendI32U     byte = 0xAD
	OpI64TruncF32S      byte = 0xAE
	OpI64TruncF32U      byte = 0xAF
	OpI64TruncF64S      byte = 0xB0
	OpI64TruncF64U      byte = 0xB1
	OpF32ConvertI32S    byte = 0xB2
	OpF32ConvertI32U    byte = 0xB3
	OpF32ConvertI64S    byte = 0xB4
	OpF32ConvertI64U    byte = 0xB5
	OpF32DemoteF64      byte = 0xB6
	OpF64ConvertI32S    byte = 0xB7
	OpF64ConvertI32U    byte = 0xB8
	OpF64ConvertI64S    byte = 0xB9
	OpF64ConvertI64U    byte = 0xBA
	OpF64PromoteF32     byte = 0xBB
	OpI32ReinterpretF32 byte = 0xBC
	OpI64ReinterpretF64 byte = 0xBD
	OpF32ReinterpretI32 byte = 0xBE
	OpF64ReinterpretI64 byte = 0xBF
)

// Sign extension opcodes.
const (
	OpI32Extend8S  byte = 0xC0
	OpI32Extend16S byte = 0xC1
	OpI64Extend8S  byte = 0xC2
	OpI64Extend16S byte = 0xC3
	OpI64Extend32S byte = 0xC4
)

// OpPrefixSIMD introduces a LEB128-encoded SIMD sub-opcode (the `wasm.*`
// escape hatch and vector arithmetic all live behind this prefix).
const OpPrefixSIMD byte = 0xFD

// OpPrefixMisc introduces the saturating-truncation and bulk-memory
// sub-opcodes reachable from the `wasm.*` escape hatch.
const OpPrefixMisc byte = 0xFC

// Misc opcodes (0xFC prefix): saturating conversions and bulk memory.
const (
	MiscI32TruncSatF32S uint32 = 0x00
	MiscI32TruncSatF32U uint32 = 0x01
	MiscI32TruncSatF64S uint32 = 0x02
	MiscI32TruncSatF64U uint32 = 0x03
	MiscI64TruncSatF32S uint32 = 0x04
	MiscI64TruncSatF32U uint32 = 0x05
	MiscI64TruncSatF64S uint32 = 0x06
	MiscI64TruncSatF64U uint32 = 0x07
	MiscMemoryCopy      uint32 = 0x0A
	MiscMemoryFill      uint32 = 0x0B
)

// SIMD opcodes (0xFD prefix), trimmed to the lane constructors, loads/stores,
// and binary/unary arithmetic Atra's four vector types need.
const (
	SimdV128Load  uint32 = 0x00
	SimdV128Store uint32 = 0x0B
	SimdV128Const uint32 = 0x0C

	SimdI32x4Splat uint32 = 0x11
	SimdI64x2Splat uint32 = 0x12
	SimdF32x4Splat uint32 = 0x13
	SimdF64x2Splat uint32 = 0x14

	SimdI32x4ExtractLane uint32 = 0x1B
	SimdI32x4ReplaceLane uint32 = 0x1C
	SimdI64x2ExtractLane uint32 = 0x1D
	SimdI64x2ReplaceLane uint32 = 0x1E
	SimdF32x4ExtractLane uint32 = 0x1F
	SimdF32x4ReplaceLane uint32 = 0x20
	SimdF64x2ExtractLane uint32 = 0x21
	SimdF64x2ReplaceLane uint32 = 0x22

	SimdV128Not    uint32 = 0x4D
	SimdV128And    uint32 = 0x4E
	SimdV128AndNot uint32 = 0x4F
	SimdV128Or     uint32 = 0x50
	SimdV128Xor    uint32 = 0x51

	SimdF32x4Abs  uint32 = 0xE0
	SimdF32x4Neg  uint32 = 0xE1
	SimdF32x4Sqrt uint32 = 0xE3
	SimdF32x4Add  uint32 = 0xE4
	SimdF32x4Sub  uint32 = 0xE5
	SimdF32x4Mul  uint32 = 0xE6
	SimdF32x4Div  uint32 = 0xE7
	SimdF32x4Min  uint32 = 0xE8
	SimdF32x4Max  uint32 = 0xE9

	SimdF64x2Abs  uint32 = 0xEC
	SimdF64x2Neg  uint32 = 0xED
	SimdF64x2Sqrt uint32 = 0xEF
	SimdF64x2Add  uint32 = 0xF0
	SimdF64x2Sub  uint32 = 0xF1
	SimdF64x2Mul  uint32 = 0xF2
	SimdF64x2Div  uint32 = 0xF3
	SimdF64x2Min  uint32 = 0xF4
	SimdF64x2Max  uint32 = 0xF5

	SimdI32x4Neg  uint32 = 0xA1
	SimdI32x4Add  uint32 = 0xAE
	SimdI32x4Sub  uint32 = 0xB1
	SimdI32x4Mul  uint32 = 0xB5
	SimdI32x4MinS uint32 = 0xB6
	SimdI32x4MaxS uint32 = 0xB8

	SimdI64x2Neg uint32 = 0xC1
	SimdI64x2Add uint32 = 0xCE
	SimdI64x2Sub uint32 = 0xD1
	SimdI64x2Mul uint32 = 0xD5

	SimdI64x2Eq  uint32 = 0xD6
	SimdI64x2Ne  uint32 = 0xD7
	SimdI64x2LtS uint32 = 0xD8
	SimdI64x2GtS uint32 = 0xD9
	SimdI64x2LeS uint32 = 0xDA
	SimdI64x2GeS uint32 = 0xDB

	SimdI32x4Eq  uint32 = 0x37
	SimdI32x4Ne  uint32 = 0x38
	SimdI32x4LtS uint32 = 0x39
	SimdI32x4GtS uint32 = 0x3B
	SimdI32x4LeS uint32 = 0x3D
	SimdI32x4GeS uint32 = 0x3F

	SimdF32x4Eq uint32 = 0x41
	SimdF32x4Ne uint32 = 0x42
	SimdF32x4Lt uint32 = 0x43
	SimdF32x4Gt uint32 = 0x44
	SimdF32x4Le uint32 = 0x45
	SimdF32x4Ge uint32 = 0x46

	SimdF64x2Eq uint32 = 0x47
	SimdF64x2Ne uint32 = 0x48
	SimdF64x2Lt uint32 = 0x49
	SimdF64x2Gt uint32 = 0x4A
	SimdF64x2Le uint32 = 0x4B
	SimdF64x2Ge uint32 = 0x4C
)
