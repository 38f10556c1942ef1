// Package compression implements C2: deciding a file's source
// compression and whether the worker needs to gzip it before upload.
package compression

import (
	"bufio"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gregakespret/sfagent/internal/model"
)

// sniffedMimeToCodec maps the subset of net/http's content-type sniffer
// output this classifier cares about back to a named codec.
var sniffedMimeToCodec = map[string]model.Compression{
	"application/x-gzip": model.CompressionGzip,
	"application/gzip":   model.CompressionGzip,
}

// parquetMagic is the 4-byte header (and footer) every Parquet file
// starts with.
const parquetMagic = "PAR1"

// ClassifyFile runs C2's detection pipeline for a single UPLOAD file whose
// status is still UNKNOWN. srcPath must be readable; io errors while
// probing content propagate as-is (they indicate a deeper problem the
// caller's NONEXIST/DIRECTORY checks should have already caught).
func ClassifyFile(meta *model.FileMetadata, srcPath string, hint model.CompressionHint, autoCompress bool) error {
	basename := filepath.Base(srcPath)

	detected, hasDetection, err := resolveDetection(srcPath, hint)
	if err != nil {
		return err
	}

	if hasDetection {
		if !model.SupportedCodecSet[detected] {
			return &model.CompressionNotSupportedError{Codec: string(detected)}
		}
		meta.SrcCompression = detected
		meta.DestCompression = detected
		meta.RequireCompress = false
		meta.DestName = basename
		return nil
	}

	meta.SrcCompression = model.CompressionNone
	if autoCompress {
		meta.RequireCompress = true
		meta.DestCompression = model.CompressionGzip
		meta.DestName = ensureSuffix(basename, ".gz")
	} else {
		meta.RequireCompress = false
		meta.DestCompression = model.CompressionNone
		meta.DestName = basename
	}
	return nil
}

// ClassifyStream is the stream-source variant: no file to sniff, so the
// caller's CompressRequested flag is authoritative.
func ClassifyStream(meta *model.FileMetadata, destName string, compressRequested bool) {
	meta.SrcCompression = model.CompressionNone
	meta.RequireCompress = compressRequested
	if compressRequested {
		meta.DestCompression = model.CompressionGzip
		meta.DestName = ensureSuffix(destName, ".gz")
	} else {
		meta.DestCompression = model.CompressionNone
		meta.DestName = destName
	}
}

// resolveDetection implements the hint dispatch: an explicit hint wins,
// AUTO falls through to content probing, everything else passes
// through unclassified.
func resolveDetection(srcPath string, hint model.CompressionHint) (model.Compression, bool, error) {
	switch {
	case hint == model.HintNone:
		return model.CompressionNone, false, nil

	case hint != "" && hint != model.HintAuto:
		codec := model.Compression(hint)
		found := false
		for _, c := range model.CodecTable {
			if c.Compression == codec {
				found = true
				break
			}
		}
		if !found {
			return "", false, &model.CompressionNotSupportedError{Codec: string(hint)}
		}
		return codec, true, nil

	default: // AUTO, or unset
		return probeFile(srcPath)
	}
}

// probeFile detects compression by content-type sniff, then Parquet
// magic bytes, then filename-extension fallback.
func probeFile(srcPath string) (model.Compression, bool, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	header, err := reader.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", false, err
	}

	if mimeType := http.DetectContentType(header); mimeType != "" {
		base := strings.SplitN(mimeType, ";", 2)[0]
		if codec, ok := sniffedMimeToCodec[base]; ok {
			return codec, true, nil
		}
	}

	if len(header) >= 4 && string(header[:4]) == parquetMagic {
		return model.CompressionParquet, true, nil
	}

	ext := strings.ToLower(filepath.Ext(srcPath))
	for _, c := range model.CodecTable {
		if strings.ToLower(c.Extension) == ext {
			return c.Compression, true, nil
		}
	}

	return "", false, nil
}

func ensureSuffix(name, suffix string) string {
	if strings.HasSuffix(name, suffix) {
		return name
	}
	return name + suffix
}
