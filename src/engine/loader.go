package engine

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"idfstore/src/helpers"
)

// Format selects one of the two model encodings.
type Format string

const (
	FormatIDF    Format = "idf"
	FormatEPJSON Format = "epjson"
)

// DetectFormat infers the encoding from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".idf", ".imf":
		return FormatIDF, nil
	case ".epjson", ".json":
		return FormatEPJSON, nil
	}
	return "", fmt.Errorf("cannot detect model format from path %q", path)
}

// sniffFormat falls back to content sniffing: epJSON starts with '{'.
func sniffFormat(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatEPJSON
	}
	return FormatIDF
}

// LoadFile reads and parses a model file, detecting the format from
// the extension (content sniffing as a fallback). The read is
// synchronous and whole-input; a failed parse yields no document.
func LoadFile(path string, opts ParseOptions, logger *zap.SugaredLogger) (*Document, error) {
	data, err := helpers.ReadDataFile(path)
	if err != nil {
		return nil, err
	}

	format, err := DetectFormat(path)
	if err != nil {
		format = sniffFormat(data)
		logger.Debugf("no extension match for %s, sniffed format %s", path, format)
	}
	return LoadBytes(data, format, opts, logger)
}

// LoadBytes parses in-memory model data in the given format.
func LoadBytes(data []byte, format Format, opts ParseOptions, logger *zap.SugaredLogger) (*Document, error) {
	switch format {
	case FormatIDF:
		parser := NewIDFParser(opts, logger)
		doc, err := parser.Parse(data)
		if err != nil {
			return nil, err
		}
		if warnings := parser.Warnings(); warnings != nil {
			logger.Warnf("IDF parse finished with warnings: %v", warnings)
		}
		return doc, nil
	case FormatEPJSON:
		parser := NewEPJSONParser(opts, logger)
		doc, err := parser.Parse(data)
		if err != nil {
			return nil, err
		}
		if warnings := parser.Warnings(); warnings != nil {
			logger.Warnf("epJSON parse finished with warnings: %v", warnings)
		}
		return doc, nil
	}
	return nil, fmt.Errorf("unknown model format %q", format)
}

// WriteString serializes a document in the given format.
func WriteString(doc *Document, format Format, logger *zap.SugaredLogger) (string, error) {
	switch format {
	case FormatIDF:
		return NewIDFWriter(logger).WriteString(doc)
	case FormatEPJSON:
		return NewEPJSONWriter(logger).WriteString(doc)
	}
	return "", fmt.Errorf("unknown model format %q", format)
}

// WriteFile serializes a document to a file, returning the number of
// bytes written.
func WriteFile(doc *Document, path string, format Format, logger *zap.SugaredLogger) (int, error) {
	out, err := WriteString(doc, format, logger)
	if err != nil {
		return 0, err
	}
	if err := helpers.WriteDataFile(path, []byte(out)); err != nil {
		return 0, err
	}
	return len(out), nil
}
