package engine

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"idfstore/src/helpers"
	"idfstore/src/schema"
)

// ParseOptions controls parser behavior for both input formats.
type ParseOptions struct {
	// Strict turns unknown classes/fields, duplicate names and field
	// count mismatches into errors. The default (lenient) mode keeps
	// excess values as opaque extras, preserves unknown epJSON
	// fields, and lets missing fields fall back to schema defaults.
	Strict bool

	// Version overrides auto-detection from the input.
	Version *schema.Version
}

// IDFParser parses the line-oriented structured-text format. A parse
// either yields a complete document or an error; no partial document
// ever becomes visible.
type IDFParser struct {
	opts     ParseOptions
	logger   *zap.SugaredLogger
	warnings error
}

func NewIDFParser(opts ParseOptions, logger *zap.SugaredLogger) *IDFParser {
	return &IDFParser{opts: opts, logger: logger}
}

// Warnings returns the lenient-mode problems of the last Parse,
// combined into one error, nil when the parse was clean.
func (p *IDFParser) Warnings() error {
	return p.warnings
}

// rawStatement is one "Class, v1, v2, ...;" unit with the line it
// started on, for error context.
type rawStatement struct {
	line   int
	values []string
}

// Parse parses IDF text into a document. The schema version is
// auto-detected from the Version statement unless overridden.
func (p *IDFParser) Parse(data []byte) (*Document, error) {
	p.warnings = nil

	stmts, err := tokenizeIDF(string(data))
	if err != nil {
		return nil, err
	}

	version, err := p.resolveVersion(stmts)
	if err != nil {
		return nil, err
	}
	reg, err := schema.Load(version)
	if err != nil {
		return nil, err
	}

	doc := NewDocument(reg)
	doc.Version = version

	for _, stmt := range stmts {
		if err := p.addStatement(doc, reg, stmt); err != nil {
			return nil, err
		}
	}

	p.logger.Debugf("parsed %d objects (%d reference edges) from IDF input",
		doc.Len(), doc.RefStats()["total_references"])
	return doc, nil
}

// tokenizeIDF splits input into statements: values separated by
// commas, statements terminated by ';', '!' starting a comment that
// runs to end of line. Field label comments ("!- Name") are
// discarded; only values are semantically preserved.
func tokenizeIDF(data string) ([]rawStatement, error) {
	var stmts []rawStatement
	var cur *rawStatement
	var buf strings.Builder

	line := 1
	startLine := 0
	inComment := false

	for _, r := range data {
		switch {
		case r == '\n':
			line++
			inComment = false
		case inComment:
		case r == '!':
			inComment = true
		case r == ',' || r == ';':
			tok := strings.TrimSpace(buf.String())
			buf.Reset()
			if cur == nil {
				if tok == "" && r == ';' {
					continue // stray terminator
				}
				if startLine == 0 {
					startLine = line
				}
				cur = &rawStatement{line: startLine}
			}
			cur.values = append(cur.values, tok)
			if r == ';' {
				stmts = append(stmts, *cur)
				cur = nil
			}
			startLine = 0
		default:
			if unicode.IsSpace(r) && buf.Len() == 0 {
				continue
			}
			if buf.Len() == 0 && cur == nil {
				startLine = line
			}
			buf.WriteRune(r)
		}
	}

	if cur != nil || strings.TrimSpace(buf.String()) != "" {
		errLine := line
		if cur != nil {
			errLine = cur.line
		}
		return nil, &ParseError{Line: errLine, Reason: "unterminated statement: no ';' before end of input"}
	}
	return stmts, nil
}

// resolveVersion finds the Version statement, honoring any explicit
// override first.
func (p *IDFParser) resolveVersion(stmts []rawStatement) (schema.Version, error) {
	if p.opts.Version != nil {
		return *p.opts.Version, nil
	}
	for _, stmt := range stmts {
		if helpers.NormalizeName(stmt.values[0]) != "VERSION" {
			continue
		}
		if len(stmt.values) < 2 || stmt.values[1] == "" {
			return schema.Version{}, &ParseError{Line: stmt.line, Reason: "Version statement has no version identifier"}
		}
		version, err := schema.ParseVersion(stmt.values[1])
		if err != nil {
			return schema.Version{}, &ParseError{Line: stmt.line, Reason: err.Error(), Err: err}
		}
		return version, nil
	}
	return schema.Version{}, &VersionNotFoundError{Source: "IDF input"}
}

// addStatement turns one raw statement into a document object.
func (p *IDFParser) addStatement(doc *Document, reg *schema.Registry, stmt rawStatement) error {
	className := stmt.values[0]
	if helpers.NormalizeName(className) == "VERSION" {
		// The document's Version field is authoritative; the
		// statement is not stored as an object.
		return nil
	}

	spec, err := reg.Class(className)
	if err != nil {
		if p.opts.Strict {
			return &ParseError{Line: stmt.line, Reason: fmt.Sprintf("unknown class %q", className), Err: err}
		}
		p.warn(stmt.line, "skipping unknown class %q", className)
		return nil
	}

	values := stmt.values[1:]
	name := ""
	if spec.HasName {
		if len(values) == 0 {
			return &ParseError{Line: stmt.line, Reason: fmt.Sprintf("%s statement has no name field", spec.Name)}
		}
		name = values[0]
		values = values[1:]
	}

	converted := make([]interface{}, len(values))
	for i, s := range values {
		converted[i] = convertIDFValue(spec.FieldAt(i), s)
	}

	var extras []interface{}
	n := len(converted)
	switch {
	case spec.Extensible == nil && n > spec.NumFixed():
		if p.opts.Strict {
			return &ParseError{
				Line:   stmt.line,
				Reason: "too many field values",
				Err:    &FieldCountMismatchError{Class: spec.Name, Name: name, Got: n, Fixed: spec.NumFixed()},
			}
		}
		extras = converted[spec.NumFixed():]
		converted = converted[:spec.NumFixed()]
		p.warn(stmt.line, "%s %q: keeping %d values beyond the schema field count as extras", spec.Name, name, len(extras))
	case spec.Extensible != nil && n > spec.NumFixed() && (n-spec.NumFixed())%spec.GroupSize() != 0:
		if p.opts.Strict {
			return &ParseError{
				Line:   stmt.line,
				Reason: "field count does not complete the extensible group",
				Err: &FieldCountMismatchError{
					Class: spec.Name, Name: name,
					Got: n, Fixed: spec.NumFixed(), GroupSize: spec.GroupSize(),
				},
			}
		}
		p.warn(stmt.line, "%s %q: %d trailing values do not complete a group of %d", spec.Name, name, n-spec.NumFixed(), spec.GroupSize())
	}
	if n < spec.MinFields {
		if p.opts.Strict {
			return &ParseError{
				Line:   stmt.line,
				Reason: fmt.Sprintf("%s requires at least %d field values, got %d", spec.Name, spec.MinFields, n),
			}
		}
		// Missing fields resolve to schema defaults on read.
	}

	obj := newObject(spec, name, doc.DocumentID)
	for i, v := range converted {
		if v != nil {
			obj.setValue(i, v)
		}
	}
	obj.extras = extras

	if err := doc.addParsed(obj); err != nil {
		if p.opts.Strict {
			return &ParseError{Line: stmt.line, Reason: err.Error(), Err: err}
		}
		p.warn(stmt.line, "skipping duplicate %s %q", spec.Name, name)
	}
	return nil
}

// convertIDFValue types a raw token: numeric fields become float64
// when they parse, everything else stays a string ("autosize" and
// friends are legal in numeric fields). Blank tokens mean unset.
func convertIDFValue(f *schema.FieldSpec, s string) interface{} {
	if s == "" {
		return nil
	}
	if f != nil && f.Type == schema.TypeNumber {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return s
}

func (p *IDFParser) warn(line int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	p.logger.Warnf("line %d: %s", line, msg)
	p.warnings = multierr.Append(p.warnings, fmt.Errorf("line %d: %s", line, msg))
}
