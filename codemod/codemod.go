// Package codemod rewrites UI sources so literal text goes through the
// translation function.
//
// JSX text runs become {t('key')} children and string attribute values become
// attr={t('key')}. Anything already inside an expression container is never a
// candidate, so running the rewrite over its own output changes nothing.
// Edits are recorded as byte-span replacements against the parsed source and
// applied in reverse offset order.
package codemod

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/minios-linux/wrapkit/extract"
	"github.com/minios-linux/wrapkit/filter"
	"github.com/minios-linux/wrapkit/jsx"
	"github.com/minios-linux/wrapkit/keygen"
)

// DefaultSkipTags lists elements whose text content is never wrapped.
var DefaultSkipTags = []string{"script", "style", "code", "pre", "noscript", "textarea"}

// Config controls what the wrapper rewrites and how.
type Config struct {
	FunctionName  string // default "t"
	ComponentName string // default "Trans"; its subtree is left alone
	ImportSource  string // default "@/i18n"
	KeyPrefix     string
	Filter        filter.Config
	SkipTags      []string
	Walk          extract.WalkOptions
}

func (c Config) withDefaults() Config {
	if c.FunctionName == "" {
		c.FunctionName = "t"
	}
	if c.ComponentName == "" {
		c.ComponentName = "Trans"
	}
	if c.ImportSource == "" {
		c.ImportSource = "@/i18n"
	}
	if c.SkipTags == nil {
		c.SkipTags = DefaultSkipTags
	}
	return c
}

// WrappedString records one literal the wrapper replaced.
type WrappedString struct {
	Original  string
	Wrapped   string
	Key       string
	Line      int
	Column    int
	Attribute string // empty for element text
}

// Result is the outcome of wrapping one source.
type Result struct {
	Wrapped     []WrappedString
	NewSource   []byte
	ImportAdded bool
	Errors      []string
}

// Changed reports whether NewSource differs from the input.
func (r Result) Changed() bool {
	return len(r.Wrapped) > 0 || r.ImportAdded
}

// Wrapper applies the rewrite. It holds no per-run state and is safe to reuse.
type Wrapper struct {
	cfg      Config
	skipTags map[string]bool
	log      *zap.Logger
}

// New creates a Wrapper. A nil logger discards output.
func New(cfg Config, log *zap.Logger) *Wrapper {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	skip := make(map[string]bool, len(cfg.SkipTags))
	for _, tag := range cfg.SkipTags {
		skip[tag] = true
	}
	return &Wrapper{cfg: cfg, skipTags: skip, log: log}
}

// Config returns the effective configuration.
func (w *Wrapper) Config() Config { return w.cfg }

// Wrap rewrites source. file names the source for key generation and grammar
// selection. Wrap never fails: when no tree can be built, the source is
// returned unchanged with the failure in Result.Errors.
func (w *Wrapper) Wrap(ctx context.Context, source []byte, file string) Result {
	res, err := w.wrap(ctx, source, file, nil)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
	}
	return res
}

// wrap does the work of Wrap. known maps keys already in the catalog to their
// text; they are reserved before any literal is assigned a key.
func (w *Wrapper) wrap(ctx context.Context, source []byte, file string, known map[string]string) (Result, error) {
	res := Result{NewSource: source}

	tree, err := jsx.Parse(ctx, file, source)
	if err != nil {
		return res, extract.MarkParse(err)
	}
	defer tree.Close()

	for _, pos := range tree.SyntaxErrors() {
		res.Errors = append(res.Errors, fmt.Sprintf("syntax error at %d:%d (recovered)", pos.Line, pos.Column))
	}

	ns := keygen.NewNamespace(file, w.cfg.KeyPrefix)
	ns.Seed(known)
	p := &pass{
		w:    w,
		tree: tree,
		ns:   ns,
		seen: make(map[jsx.Position]bool),
	}
	jsx.Walk(tree.Root(), p.visit)

	if len(p.wrapped) == 0 {
		return res, nil
	}

	sites := make([]int, len(p.edits))
	for i, e := range p.edits {
		sites[i] = e.Start
	}
	if plan := planImport(tree, w.cfg.FunctionName, w.cfg.ImportSource, sites); plan.needed {
		p.edits = append(p.edits, plan.edit)
		res.ImportAdded = true
	}

	res.Wrapped = p.wrapped
	res.NewSource = applyReplacements(source, p.edits)
	w.log.Debug("wrapped source",
		zap.String("file", file),
		zap.Int("strings", len(p.wrapped)),
		zap.Int("keys", p.ns.Len()),
		zap.Bool("import_added", res.ImportAdded))
	return res, nil
}

// pass carries the state of one rewrite over one tree.
type pass struct {
	w       *Wrapper
	tree    *jsx.Tree
	ns      *keygen.Namespace
	seen    map[jsx.Position]bool
	edits   []Replacement
	wrapped []WrappedString
}

func (p *pass) visit(n *sitter.Node) bool {
	if n.Type() == "ERROR" {
		return false
	}
	el, ok := p.tree.AsElement(n)
	if !ok {
		return true
	}
	if el.Name == p.w.cfg.ComponentName || p.w.skipTags[el.Name] {
		return false
	}

	for _, attr := range p.tree.StringAttributes(el) {
		if filter.ShouldExcludeAttribute(attr.Name, attr.Text, p.w.cfg.Filter) {
			continue
		}
		start, end := int(attr.Value.StartByte()), int(attr.Value.EndByte())
		p.add(jsx.NodePosition(attr.Value), start, end, attr.Text, attr.Name)
	}

	if n.Type() == "jsx_self_closing_element" {
		return true
	}
	runs, _ := p.tree.TextRuns(el)
	for _, run := range runs {
		if filter.ShouldExclude(run.Text, p.w.cfg.Filter) {
			continue
		}
		p.add(p.tree.PositionAt(run.Start), run.Start, run.End, run.Text, "")
	}
	return true
}

func (p *pass) add(pos jsx.Position, start, end int, text, attribute string) {
	if p.seen[pos] {
		return
	}
	p.seen[pos] = true

	key := p.ns.Assign(text)
	replacement := "{" + p.w.cfg.FunctionName + "(" + jsQuote(key) + ")}"
	p.edits = append(p.edits, Replacement{Start: start, End: end, Text: replacement})
	p.wrapped = append(p.wrapped, WrappedString{
		Original:  text,
		Wrapped:   replacement,
		Key:       key,
		Line:      pos.Line,
		Column:    pos.Column,
		Attribute: attribute,
	})
}

// Keys returns the key→text pairs produced by a set of wraps, suitable for
// merging into the default-locale catalog.
func Keys(wrapped []WrappedString) map[string]string {
	out := make(map[string]string, len(wrapped))
	for _, ws := range wrapped {
		out[ws.Key] = ws.Original
	}
	return out
}
