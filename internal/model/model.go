// Package model defines the data types shared by every stage of the
// transfer pipeline: the plan handed down by the command parser, the
// per-file bookkeeping record each component mutates, and the staged
// byte source a worker hands to the object-store adapter.
package model

// Verb is the top-level operation a TransferPlan requests.
type Verb string

const (
	Upload   Verb = "UPLOAD"
	Download Verb = "DOWNLOAD"
)

// StageKind names the backing store a TransferPlan's stage descriptor
// points at. The wire contract (see internal/planparse) spells object
// storage as "S3"; OBJECT_STORE is the general term used in prose.
type StageKind string

const (
	StageLocalFS StageKind = "LOCAL_FS"
	StageS3      StageKind = "S3"
)

// CompressionHint is the caller's declared expectation about a source
// file's compression, separate from what C2 actually detects.
type CompressionHint string

const (
	HintAuto CompressionHint = "AUTO"
	HintNone CompressionHint = "NONE"
)

// Compression identifies a codec. The zero value is CompressionNone.
type Compression string

const (
	CompressionNone        Compression = "NONE"
	CompressionGzip        Compression = "GZIP"
	CompressionDeflate     Compression = "DEFLATE"
	CompressionRawDeflate  Compression = "RAW_DEFLATE"
	CompressionBzip2       Compression = "BZIP2"
	CompressionLzip        Compression = "LZIP"
	CompressionLzma        Compression = "LZMA"
	CompressionLzo         Compression = "LZO"
	CompressionXz          Compression = "XZ"
	CompressionCompress    Compression = "COMPRESS"
	CompressionParquet     Compression = "PARQUET"
)

// CompressionCodec carries the descriptive metadata a Compression value
// maps to, plus whether C2/C3 can actually produce or pass through it.
type CompressionCodec struct {
	Compression Compression
	Extension   string
	MimeType    string
	Supported   bool
}

// SupportedCodecSet lists the codecs C3 knows how to frame or pass
// through untouched. Detected-but-unsupported codecs fail the upload
// with CompressionNotSupportedError.
var SupportedCodecSet = map[Compression]bool{
	CompressionGzip:       true,
	CompressionDeflate:    true,
	CompressionRawDeflate: true,
	CompressionBzip2:      true,
	CompressionParquet:    true,
}

// CodecTable maps every recognized codec to its descriptive metadata,
// keyed by the canonical filename extension C2 matches against.
var CodecTable = []CompressionCodec{
	{Compression: CompressionGzip, Extension: ".gz", MimeType: "application/gzip", Supported: true},
	{Compression: CompressionGzip, Extension: ".gzip", MimeType: "application/gzip", Supported: true},
	{Compression: CompressionDeflate, Extension: ".deflate", MimeType: "application/deflate", Supported: true},
	{Compression: CompressionRawDeflate, Extension: ".rawdeflate", MimeType: "application/deflate", Supported: true},
	{Compression: CompressionBzip2, Extension: ".bz2", MimeType: "application/x-bzip2", Supported: true},
	{Compression: CompressionParquet, Extension: ".parquet", MimeType: "application/octet-stream", Supported: true},
	{Compression: CompressionLzip, Extension: ".lz", MimeType: "application/x-lzip", Supported: false},
	{Compression: CompressionLzma, Extension: ".lzma", MimeType: "application/x-lzma", Supported: false},
	{Compression: CompressionLzo, Extension: ".lzo", MimeType: "application/x-lzop", Supported: false},
	{Compression: CompressionXz, Extension: ".xz", MimeType: "application/x-xz", Supported: false},
	{Compression: CompressionCompress, Extension: ".Z", MimeType: "application/x-compress", Supported: false},
}

// Status is the terminal (or UNKNOWN) outcome of one FileMetadata row.
type Status string

const (
	StatusUnknown     Status = "UNKNOWN"
	StatusUploaded    Status = "UPLOADED"
	StatusDownloaded  Status = "DOWNLOADED"
	StatusSkipped     Status = "SKIPPED"
	StatusError       Status = "ERROR"
	StatusNonexist    Status = "NONEXIST"
	StatusDirectory   Status = "DIRECTORY"
	StatusCollision   Status = "COLLISION"
	StatusUnsupported Status = "UNSUPPORTED"
)

// Terminal reports whether s is one of the states execute() must have
// driven every row to before returning (everything except UNKNOWN).
func (s Status) Terminal() bool {
	return s != StatusUnknown
}

// FileMetadata is the single bookkeeping record for one source file
// (UPLOAD, keyed by local path) or one remote object (DOWNLOAD, keyed
// by stage key). It is created once during orchestrator initialization
// and from then on mutated only by its owning stage: the classifier,
// the skip filter, or the worker that claims it.
type FileMetadata struct {
	SrcName string
	SrcSize int64

	DestName string
	DestSize int64 // -1 until the transfer completes

	SrcCompression  Compression
	DestCompression Compression
	RequireCompress bool

	IsEncrypted bool

	Status       Status
	ErrorDetails string
}

// NewFileMetadata returns a row in its initial UNKNOWN state with
// DestSize primed to the "not yet known" sentinel.
func NewFileMetadata(srcName string, srcSize int64) *FileMetadata {
	return &FileMetadata{
		SrcName:  srcName,
		SrcSize:  srcSize,
		DestSize: -1,
		Status:   StatusUnknown,
	}
}

// TransferFlags are the per-command knobs carried on a TransferPlan.
type TransferFlags struct {
	AutoCompress          bool
	Overwrite             bool
	Parallel              int
	ShowEncryption        bool
	SourceCompressionHint CompressionHint
	// Sort mirrors the connection property of the same name. Only a
	// literal boolean is honored; anything else is treated as false
	// (see DESIGN.md, Open Question decisions).
	Sort bool
}

// StageDescriptor names where the non-local side of the transfer lives.
type StageDescriptor struct {
	Kind        StageKind
	Location    string
	Region      string
	Credentials map[string]string

	// EncryptionMaterial is opaque to the pipeline: a single descriptor
	// for UPLOAD, one per remote file for DOWNLOAD. nil means no
	// client-side envelope encryption is in play.
	EncryptionMaterial interface{}
}

// StreamSource describes an in-memory byte-stream UPLOAD source, used
// instead of SrcLocations when the caller hands the agent a Reader
// rather than a path on disk.
type StreamSource struct {
	Size             int64
	DestName         string
	CompressRequested bool
}

// TransferPlan is the orchestrator's sole input, produced by the
// external command parser (see internal/planparse).
type TransferPlan struct {
	Verb           Verb
	SrcLocations   []string
	Stage          StageDescriptor
	Flags          TransferFlags
	LocalDownloadDir string
	StreamSource   *StreamSource

	// InjectFailure, when non-empty, names a source path suffix that
	// makes C6 raise SimulatedUploadFailureError before calling the
	// object-store adapter. Test hook only.
	InjectFailure string
}
