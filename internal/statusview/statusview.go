// Package statusview implements C8: projecting the terminal
// FileMetadata rows a command produced into a fixed set of columns
// per verb, declared directly rather than reflected off struct tags.
package statusview

import (
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/gregakespret/sfagent/internal/model"
)

// column is one projected field: a header plus the extractor that
// turns a row into its cell value. Declarative, per verb, rather than
// reflected off struct tags.
type column struct {
	header  string
	extract func(*model.FileMetadata) string
}

// Options controls which columns Render emits and how rows are ordered.
type Options struct {
	Verb           model.Verb
	ShowEncryption bool
	Sort           bool
}

// Render writes the column table for files, tab-aligned the way a CLI
// status report reads best.
func Render(w io.Writer, files []*model.FileMetadata, opts Options) error {
	rows := files
	if opts.Sort {
		rows = make([]*model.FileMetadata, len(files))
		copy(rows, files)
		sort.SliceStable(rows, func(i, j int) bool {
			return sortKey(rows[i]) < sortKey(rows[j])
		})
	}

	cols := columnsFor(opts.Verb, opts.ShowEncryption)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, c := range cols {
		if i > 0 {
			if _, err := tw.Write([]byte("\t")); err != nil {
				return err
			}
		}
		if _, err := tw.Write([]byte(c.header)); err != nil {
			return err
		}
	}
	if _, err := tw.Write([]byte("\n")); err != nil {
		return err
	}

	for _, f := range rows {
		for i, c := range cols {
			if i > 0 {
				if _, err := tw.Write([]byte("\t")); err != nil {
					return err
				}
			}
			if _, err := tw.Write([]byte(c.extract(f))); err != nil {
				return err
			}
		}
		if _, err := tw.Write([]byte("\n")); err != nil {
			return err
		}
	}

	return tw.Flush()
}

// sortKey is source/file name, ascending.
func sortKey(f *model.FileMetadata) string {
	return f.SrcName
}

func columnsFor(verb model.Verb, showEncryption bool) []column {
	if verb == model.Download {
		cols := []column{
			{"file", func(f *model.FileMetadata) string { return f.SrcName }},
			{"size", func(f *model.FileMetadata) string { return formatSize(f.DestSize) }},
		}
		if showEncryption {
			cols = append(cols, column{"encryption", encryptionCell(verb)})
		}
		cols = append(cols,
			column{"status", func(f *model.FileMetadata) string { return string(f.Status) }},
			column{"message", func(f *model.FileMetadata) string { return f.ErrorDetails }},
		)
		return cols
	}

	cols := []column{
		{"source", func(f *model.FileMetadata) string { return f.SrcName }},
		{"target", func(f *model.FileMetadata) string { return f.DestName }},
		{"source_size", func(f *model.FileMetadata) string { return formatSize(f.SrcSize) }},
		{"target_size", func(f *model.FileMetadata) string { return formatSize(f.DestSize) }},
		{"source_compression", func(f *model.FileMetadata) string { return formatCompression(f.SrcCompression) }},
		{"target_compression", func(f *model.FileMetadata) string { return formatCompression(f.DestCompression) }},
	}
	if showEncryption {
		cols = append(cols, column{"encryption", encryptionCell(verb)})
	}
	cols = append(cols,
		column{"status", func(f *model.FileMetadata) string { return string(f.Status) }},
		column{"message", func(f *model.FileMetadata) string { return f.ErrorDetails }},
	)
	return cols
}

// encryptionCell reports "" for a row with no client-side encryption in
// play, and otherwise the verb-appropriate verb: an UPLOAD wrapped the
// bytes before sending them (ENCRYPTED); a DOWNLOAD unwrapped what it
// received (DECRYPTED).
func encryptionCell(verb model.Verb) func(*model.FileMetadata) string {
	return func(f *model.FileMetadata) string {
		if !f.IsEncrypted {
			return ""
		}
		if verb == model.Download {
			return "DECRYPTED"
		}
		return "ENCRYPTED"
	}
}

// formatSize emits the -1 "not yet known" sentinel as an empty
// cell rather than a confusing negative number.
func formatSize(n int64) string {
	if n < 0 {
		return ""
	}
	return strconv.FormatInt(n, 10)
}

// formatCompression emits "NONE" for an absent/zero-value codec.
func formatCompression(c model.Compression) string {
	if c == "" {
		return string(model.CompressionNone)
	}
	return string(c)
}
