package model

import (
	"errors"
	"fmt"
)

// ListFilesError is fatal to the command: it comes from C1 enumerating
// a pattern or C4 listing the remote catalog, neither of which has a
// per-file row to attach a local failure to yet.
type ListFilesError struct {
	Path string
	Err  error
}

func (e *ListFilesError) Error() string {
	return fmt.Sprintf("listing %s: %v", e.Path, e.Err)
}

func (e *ListFilesError) Unwrap() error { return e.Err }

// CompressionNotSupportedError is raised per-file by C2 when the
// detected or hinted codec is not in SupportedCodecSet.
type CompressionNotSupportedError struct {
	Codec string
}

func (e *CompressionNotSupportedError) Error() string {
	return fmt.Sprintf("compression codec %s is not supported", e.Codec)
}

// InvalidKeyError is fatal: the object-store adapter cannot satisfy the
// encryption material's key strength with the cryptographic providers
// available to the running process.
type InvalidKeyError struct {
	Detail string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid encryption key material: %s", e.Detail)
}

// PermanentServiceError is surfaced per-file once C5's retry budget is
// exhausted against a non-retryable service response.
type PermanentServiceError struct {
	ServiceErrorType  string
	Code              string
	RequestID         string
	ExtendedRequestID string
	Message           string
}

func (e *PermanentServiceError) Error() string {
	return fmt.Sprintf("%s: %s (code=%s requestId=%s extendedRequestId=%s)",
		e.ServiceErrorType, e.Message, e.Code, e.RequestID, e.ExtendedRequestID)
}

// SimulatedUploadFailureError is C6's test-injection hook.
type SimulatedUploadFailureError struct {
	Path string
}

func (e *SimulatedUploadFailureError) Error() string {
	return fmt.Sprintf("simulated upload failure injected for %s", e.Path)
}

// ErrCanceled is returned up the call stack from any suspension point
// once the orchestrator's cancellation flag has been observed.
var ErrCanceled = errors.New("transfer canceled")
