/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: archive.go
Description: Saves structure descriptions to an archive directory. Files are named by
time, sample and request id so repeated runs never overwrite each other.
*/

package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kleascm/structfinder/pkg/structure"
)

// Save writes desc to dir and returns the file path. The text format is archived as JSON.
// Filename: 2024-06-11_01-30-00_<sample>_<request id prefix>.<format>
func Save(dir, source, requestID string, desc *structure.Description, format Format) (string, error) {
	if format == FormatText || format == "" {
		format = FormatJSON
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create archive directory")
	}

	var buf bytes.Buffer
	if err := Render(&buf, desc, format); err != nil {
		return "", err
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := timestamp + "_" + sampleName(source) + "_" + shortID(requestID) + "." + string(format)
	path := filepath.Join(dir, filename)

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", errors.Wrap(err, "failed to write archive file")
	}
	return path, nil
}

// sampleName reduces a sample path to a filename-safe stem
func sampleName(source string) string {
	if source == "" || source == "-" {
		return "stdin"
	}
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	if safe == "" {
		return "sample"
	}
	return safe
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "none"
	}
	return id
}
