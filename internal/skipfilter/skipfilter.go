// Package skipfilter implements C4: deciding which UPLOAD candidates
// already exist at the destination with matching content and can be
// marked SKIPPED instead of re-sent.
package skipfilter

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/gregakespret/sfagent/internal/cloud/storage"
	"github.com/gregakespret/sfagent/internal/constants"
	"github.com/gregakespret/sfagent/internal/model"
	"github.com/gregakespret/sfagent/internal/staging"
)

// Candidate is one still-live plan entry eligible for skip detection:
// classified (DestName set), not already terminal.
type Candidate struct {
	SrcPath string
	File    *model.FileMetadata
}

// Run is C4's skip filter. It mutates each candidate's File.Status to
// SKIPPED in place when a matching remote object is found; candidates
// with no match are left untouched for C6 to dispatch. A Head or local
// digest failure for one candidate marks that candidate ERROR and the
// pass continues; only a List failure (or cancellation) is returned.
// Run is a no-op when overwrite is requested or there is nothing to
// check.
func Run(ctx context.Context, store storage.Store, overwrite bool, candidates []Candidate) error {
	if overwrite || len(candidates) == 0 {
		return nil
	}

	destNames := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.File.DestName != "" {
			destNames = append(destNames, c.File.DestName)
		}
	}
	if len(destNames) == 0 {
		return nil
	}

	prefix := commonPrefix(destNames)

	remote, err := store.List(ctx, prefix)
	if err != nil {
		return &model.ListFilesError{Path: prefix, Err: err}
	}
	remoteByName := make(map[string]storage.ObjectMetadata, len(remote))
	for _, obj := range remote {
		remoteByName[basename(obj.Key)] = obj
	}

	for _, c := range candidates {
		if c.File.Status != model.StatusUnknown {
			continue
		}
		listed, ok := remoteByName[c.File.DestName]
		if !ok {
			continue
		}

		if !c.File.RequireCompress {
			diff := listed.Size - c.File.SrcSize
			if diff < 0 {
				diff = -diff
			}
			if diff > constants.SkipFilterSizeToleranceBytes {
				continue
			}
		}

		head, err := store.Head(ctx, listed.Key)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.File.Status = model.StatusError
			c.File.ErrorDetails = err.Error()
			continue
		}

		match, err := matches(c, head)
		if err != nil {
			c.File.Status = model.StatusError
			c.File.ErrorDetails = err.Error()
			continue
		}
		if match {
			c.File.Status = model.StatusSkipped
			c.File.ErrorDetails = fmt.Sprintf("identical content already present at %s", head.Key)
		}
	}

	return nil
}

func matches(c Candidate, head storage.ObjectMetadata) (bool, error) {
	if digest, ok := head.UserMetadata["sfc-digest"]; ok && digest != "" {
		local, err := staging.Digest(c.SrcPath, c.File.RequireCompress)
		if err != nil {
			return false, err
		}
		return local == digest, nil
	}

	if !head.Encrypted {
		localMD5, err := md5File(c.SrcPath)
		if err != nil {
			return false, err
		}
		return strings.EqualFold(localMD5, strings.Trim(head.ETag, `"`)), nil
	}

	return false, nil
}

func md5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// commonPrefix returns the shared leading characters of the
// lexicographically first and last destination names.
func commonPrefix(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	first, last := sorted[0], sorted[len(sorted)-1]

	i := 0
	for i < len(first) && i < len(last) && first[i] == last[i] {
		i++
	}
	return first[:i]
}

func basename(key string) string {
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[idx+1:]
	}
	return key
}

func isNotFound(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "404") ||
		strings.Contains(strings.ToLower(err.Error()), "not found") ||
		strings.Contains(strings.ToLower(err.Error()), "nosuchkey")
}
