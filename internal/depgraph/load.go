package depgraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
)

type fileInfo struct {
	RelativePath string `json:"relative_path"`
	Path         string `json:"path"`
	Language     string `json:"language"`
}

type fileEntry struct {
	FileAnalysis
	FileInfo *fileInfo `json:"file_info,omitempty"`
}

type analysisDocument struct {
	FileAnalysis []fileEntry `json:"file_analysis"`
}

// LoadFileAnalyses decodes per-file extraction results. It accepts either a
// bare JSON array of file analyses or an object with a "file_analysis" array
// whose entries may nest path data under "file_info".
func LoadFileAnalyses(r io.Reader) ([]FileAnalysis, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read analyses: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var entries []fileEntry
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode analyses: %w", err)
		}
	} else {
		var doc analysisDocument
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("decode analyses: %w", err)
		}
		entries = doc.FileAnalysis
	}

	out := make([]FileAnalysis, 0, len(entries))
	for _, e := range entries {
		fa := e.FileAnalysis
		if e.FileInfo != nil {
			if fa.RelativePath == "" {
				fa.RelativePath = e.FileInfo.RelativePath
			}
			if fa.Path == "" {
				fa.Path = e.FileInfo.Path
			}
			if fa.Language == "" {
				fa.Language = e.FileInfo.Language
			}
		}
		fillSources(&fa)
		out = append(out, fa)
	}
	return out, nil
}

// fillSources attributes records without a source to the file's directory.
func fillSources(fa *FileAnalysis) {
	dir := path.Dir(strings.ReplaceAll(fa.RelativePath, "\\", "/"))
	for i := range fa.Dependencies {
		if fa.Dependencies[i].Kind == "" {
			fa.Dependencies[i].Kind = KindImport
		}
		if fa.Dependencies[i].SourceModule == "" {
			fa.Dependencies[i].SourceModule = dir
		}
		if fa.Dependencies[i].FilePath == "" {
			fa.Dependencies[i].FilePath = fa.RelativePath
		}
	}
}
