package format

// Container magic number and version.
var Magic = [4]byte{0x44, 0x45, 0x52, 0x21} // "DER!"

const (
	// Version is the container format version written by the encoder (1.0).
	Version uint16 = 0x0100

	// HeaderSize is the size of the file header in bytes.
	HeaderSize = 16

	// ChunkHeaderSize is the size of each chunk header in bytes.
	ChunkHeaderSize = 16

	// NodeWireSize is the encoded size of one node record:
	// opcode(2) flags(2) result_id(4) timestamp(8) arg_count(1) args(3*4).
	NodeWireSize = 29

	// MaxArgs is the number of argument slots in a node record.
	MaxArgs = 3

	// DefaultChunkCount is the number of chunks written by the encoder.
	DefaultChunkCount = 3
)

// Chunk tags identify the payload that follows a chunk header.
var (
	ChunkMeta  = [4]byte{'M', 'E', 'T', 'A'} // entry point, capabilities, traits
	ChunkImpl  = [4]byte{'I', 'M', 'P', 'L'} // node records
	ChunkConst = [4]byte{'C', 'N', 'S', 'T'} // constant pool
	ChunkProof = [4]byte{'P', 'R', 'O', 'F'} // reserved, skipped on read
)

// Host argument slots in the value table.
const (
	// ArgcSlot holds the number of host arguments.
	ArgcSlot uint32 = 999

	// ArgBase is the slot of host argument 0; argument i lives at ArgBase+i.
	ArgBase uint32 = 1000
)
