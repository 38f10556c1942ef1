// Package planparse turns the external command parser's JSON payload
// into a model.TransferPlan, performing the file:// origin check
// against the original command text before the orchestrator ever sees
// the plan.
package planparse

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/gregakespret/sfagent/internal/model"
	"github.com/gregakespret/sfagent/internal/util/sanitize"
)

// wireStage mirrors the wire contract's stageInfo object.
type wireStage struct {
	LocationType string            `json:"locationType"`
	Location     string            `json:"location"`
	Region       string            `json:"region"`
	Creds        map[string]string `json:"creds"`
}

// wirePlan mirrors the data object executeCommand returns over the
// wire.
type wirePlan struct {
	Command                       string          `json:"command"`
	SrcLocations                  []string        `json:"src_locations"`
	Parallel                      int             `json:"parallel"`
	Overwrite                     bool            `json:"overwrite"`
	AutoCompress                  bool            `json:"autoCompress"`
	SourceCompression             string          `json:"sourceCompression"`
	ClientShowEncryptionParameter bool            `json:"clientShowEncryptionParameter"`
	LocalLocation                 string          `json:"localLocation"`
	StageInfo                     wireStage       `json:"stageInfo"`
	EncryptionMaterial            json.RawMessage `json:"encryptionMaterial"`
	Sort                          bool            `json:"sort"`
	InjectFailure                 string          `json:"injectFailure"`
}

// fileURIPattern extracts the argument of a file:// URI from raw
// command text, e.g. `GET file:///home/user/downloads ...`.
var fileURIPattern = regexp.MustCompile(`file://(\S+)`)

// Parse decodes payload into a TransferPlan and enforces the
// anti-tampering check: the verb's file:// argument in commandText
// must match data.localLocation exactly. A mismatch is fatal — it
// indicates the command text and the parsed plan disagree about where
// local data lives, which is exactly what a tampering middleman would
// produce.
func Parse(commandText string, payload []byte) (*model.TransferPlan, error) {
	var w wirePlan
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("decoding transfer plan: %w", err)
	}

	verb := model.Verb(w.Command)
	if verb != model.Upload && verb != model.Download {
		return nil, fmt.Errorf("unrecognized command verb %q", w.Command)
	}

	if verb == model.Download {
		if err := checkLocalLocationMatch(commandText, w.LocalLocation); err != nil {
			return nil, err
		}
	}

	hint := model.CompressionHint(w.SourceCompression)
	if hint == "" {
		hint = model.HintAuto
	}

	plan := &model.TransferPlan{
		Verb:         verb,
		SrcLocations: w.SrcLocations,
		Stage: model.StageDescriptor{
			Kind:        model.StageKind(w.StageInfo.LocationType),
			Location:    w.StageInfo.Location,
			Region:      w.StageInfo.Region,
			Credentials: w.StageInfo.Creds,
		},
		Flags: model.TransferFlags{
			AutoCompress:          w.AutoCompress,
			Overwrite:             w.Overwrite,
			Parallel:              w.Parallel,
			ShowEncryption:        w.ClientShowEncryptionParameter,
			SourceCompressionHint: hint,
			// Only a literal JSON boolean is honored; anything else
			// decodes to Go's zero value, false (see DESIGN.md, Open
			// Question decisions).
			Sort: w.Sort,
		},
		LocalDownloadDir: w.LocalLocation,
		InjectFailure:    w.InjectFailure,
	}

	if len(w.EncryptionMaterial) > 0 && string(w.EncryptionMaterial) != "null" {
		var decoded interface{}
		if err := json.Unmarshal(w.EncryptionMaterial, &decoded); err != nil {
			return nil, fmt.Errorf("decoding encryption material: %w", err)
		}
		plan.Stage.EncryptionMaterial = decoded
	}

	return plan, nil
}

func checkLocalLocationMatch(commandText, localLocation string) error {
	clean := sanitize.SanitizeCommand(commandText)
	match := fileURIPattern.FindStringSubmatch(clean)
	if match == nil {
		return fmt.Errorf("command text carries no file:// argument to verify against localLocation")
	}
	if match[1] != localLocation {
		return fmt.Errorf("command text file:// argument %q does not match localLocation %q", match[1], localLocation)
	}
	return nil
}
