package wasmgen

// Binary format header.
const (
	wasmMagic   uint32 = 0x6D736100 // "\0asm"
	wasmVersion uint32 = 0x01
)

// Section IDs, in the order they must appear.
const (
	sectionType     byte = 1
	sectionImport   byte = 2
	sectionFunction byte = 3
	sectionGlobal   byte = 6
	sectionExport   byte = 7
	sectionCode     byte = 10
)

const (
	kindFunc   byte = 0x00 // import/export descriptor
	funcType   byte = 0x60
	valI32     byte = 0x7F
	valI64     byte = 0x7E
	blockVoid  byte = 0x40
	blockI64   byte = 0x7E
	globalMut  byte = 0x01
	globalInit byte = 0x0B // end of a constant expression
)

// Instruction opcodes used by lowered node functions.
const (
	opIf         byte = 0x04
	opElse       byte = 0x05
	opEnd        byte = 0x0B
	opReturn     byte = 0x0F
	opCall       byte = 0x10
	opDrop       byte = 0x1A
	opGlobalGet  byte = 0x23
	opGlobalSet  byte = 0x24
	opI32Const   byte = 0x41
	opI64Const   byte = 0x42
	opI64Eqz     byte = 0x50
	opI64Eq      byte = 0x51
	opI64Ne      byte = 0x52
	opI64LtS     byte = 0x53
	opI64GtS     byte = 0x55
	opI64LeS     byte = 0x57
	opI64GeS     byte = 0x59
	opI32Xor     byte = 0x73
	opI64Add     byte = 0x7C
	opI64Sub     byte = 0x7D
	opI64Mul     byte = 0x7E
	opI64ExtendU byte = 0xAD // i64.extend_i32_u
)
