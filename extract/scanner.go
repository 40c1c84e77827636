package extract

import (
	"context"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/minios-linux/wrapkit/jsx"
	"github.com/minios-linux/wrapkit/keygen"
)

// Form tells which lexical convention produced an extracted string.
type Form string

const (
	FormCall    Form = "call"
	FormElement Form = "element"
)

// Config names the marker conventions the scanner looks for.
type Config struct {
	// FunctionName is the translation function identifier (default "t").
	FunctionName string
	// ComponentName is the translation component tag (default "Trans").
	ComponentName string
	// KeyPrefix is prepended to generated keys.
	KeyPrefix string
	// Walk controls directory traversal.
	Walk WalkOptions
}

func (c Config) withDefaults() Config {
	if c.FunctionName == "" {
		c.FunctionName = "t"
	}
	if c.ComponentName == "" {
		c.ComponentName = "Trans"
	}
	return c
}

// ExtractedString is one translatable string found in source.
type ExtractedString struct {
	Key    string
	Value  string // empty when the source already references a key
	File   string
	Line   int
	Column int
	Form   Form
}

// ParseResult is the outcome of scanning one file.
type ParseResult struct {
	Strings []ExtractedString
	// Errors holds recovered syntax problems and, when the tree could not
	// be built at all, the parse failure itself.
	Errors []string
}

// ScanResult aggregates a directory scan.
type ScanResult struct {
	Files   []string
	Strings []ExtractedString
	Errors  []*FileError
}

// Scanner extracts marked strings from UI sources.
type Scanner struct {
	cfg Config
	log *zap.Logger
}

// NewScanner creates a scanner. A nil logger discards output.
func NewScanner(cfg Config, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{cfg: cfg.withDefaults(), log: log}
}

// Parse extracts strings from source. file identifies the source for key
// generation and location records. Parse never fails: problems land in
// ParseResult.Errors.
func (s *Scanner) Parse(ctx context.Context, source []byte, file string) ParseResult {
	res, err := s.parse(ctx, source, file)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
	}
	return res
}

func (s *Scanner) parse(ctx context.Context, source []byte, file string) (ParseResult, error) {
	var res ParseResult

	tree, err := jsx.Parse(ctx, file, source)
	if err != nil {
		return res, MarkParse(err)
	}
	defer tree.Close()

	for _, pos := range tree.SyntaxErrors() {
		res.Errors = append(res.Errors, fmt.Sprintf("syntax error at %d:%d (recovered)", pos.Line, pos.Column))
	}

	ns := keygen.NewNamespace(file, s.cfg.KeyPrefix)
	seen := make(map[jsx.Position]bool)

	add := func(pos jsx.Position, value string, form Form) {
		if seen[pos] {
			return
		}
		seen[pos] = true

		es := ExtractedString{File: file, Line: pos.Line, Column: pos.Column, Form: form}
		if form == FormCall && keygen.LooksLikeKey(value) {
			ns.Reserve(value, "")
			es.Key = value
		} else {
			es.Key = ns.Assign(value)
			es.Value = value
		}
		res.Strings = append(res.Strings, es)
	}

	jsx.Walk(tree.Root(), func(n *sitter.Node) bool {
		switch n.Type() {
		case "call_expression":
			if tree.CalleeName(n) != s.cfg.FunctionName {
				return true
			}
			arg := jsx.FirstArgument(n)
			if value, ok := tree.StaticString(arg); ok && value != "" {
				add(jsx.NodePosition(arg), value, FormCall)
			}
		case "jsx_element":
			el, ok := tree.AsElement(n)
			if !ok || el.Name != s.cfg.ComponentName {
				return true
			}
			runs, plain := tree.TextRuns(el)
			if plain && len(runs) == 1 && runs[0].Text != "" {
				add(tree.PositionAt(runs[0].Start), runs[0].Text, FormElement)
			}
		}
		return true
	})

	return res, nil
}

// ScanFile reads and scans one file.
func (s *Scanner) ScanFile(ctx context.Context, path string) (ParseResult, *FileError) {
	src, err := os.ReadFile(path)
	if err != nil {
		return ParseResult{}, IOError(path, err, "reading")
	}
	res, err := s.parse(ctx, src, path)
	if err != nil {
		return res, &FileError{Path: path, Err: err}
	}
	return res, nil
}

// ScanDirectory scans every supported file under dir. Per-file failures are
// collected in the result; the returned error is non-nil only when the walk
// itself fails or ctx is cancelled.
func (s *Scanner) ScanDirectory(ctx context.Context, dir string) (*ScanResult, error) {
	files, err := FindSources(dir, s.cfg.Walk)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{Files: files}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrap(err, "scan cancelled")
		}

		res, ferr := s.ScanFile(ctx, path)
		if ferr != nil {
			s.log.Warn("skipping file", zap.String("file", path), zap.String("kind", ferr.Kind()), zap.Error(ferr.Err))
			result.Errors = append(result.Errors, ferr)
			continue
		}
		for _, msg := range res.Errors {
			s.log.Debug("recovered syntax error", zap.String("file", path), zap.String("detail", msg))
		}
		result.Strings = append(result.Strings, res.Strings...)
	}

	s.log.Debug("scan finished",
		zap.Int("files", len(files)),
		zap.Int("strings", len(result.Strings)),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}
