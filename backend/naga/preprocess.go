package naga

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gogpu/shadercache/backend"
)

// includeRe matches an include directive at the start of a line:
//
//	#include "relative/path.wgsli"
//
// WGSL has no preprocessor of its own; includes and macros are resolved here
// before the source reaches the parser.
var includeRe = regexp.MustCompile(`^\s*#include\s+"([^"]+)"\s*$`)

// preprocessor expands include directives against the session search paths
// and substitutes macro identifiers.
type preprocessor struct {
	searchPaths []string
	macros      []backend.Macro
	macroRes    []*regexp.Regexp
}

func newPreprocessor(searchPaths []string, macros []backend.Macro) *preprocessor {
	p := &preprocessor{
		searchPaths: append([]string(nil), searchPaths...),
		macros:      append([]backend.Macro(nil), macros...),
	}
	p.macroRes = make([]*regexp.Regexp, len(p.macros))
	for i, m := range p.macros {
		p.macroRes[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(m.Name) + `\b`)
	}
	return p
}

// process expands source for the named module. Include files are resolved
// against the search paths in order, first hit wins; a file may be included
// more than once but cycles are rejected.
func (p *preprocessor) process(name, source string) (string, error) {
	expanded, err := p.expand(name, source, nil)
	if err != nil {
		return "", err
	}
	return p.substitute(expanded), nil
}

func (p *preprocessor) expand(origin, source string, stack []string) (string, error) {
	var out strings.Builder
	for _, line := range strings.SplitAfter(source, "\n") {
		m := includeRe.FindStringSubmatch(line)
		if m == nil {
			out.WriteString(line)
			continue
		}

		path, err := p.resolve(m[1])
		if err != nil {
			return "", fmt.Errorf("naga: %s: %w", origin, err)
		}
		for _, open := range stack {
			if open == path {
				return "", fmt.Errorf("naga: %s: include cycle through %s", origin, path)
			}
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("naga: %s: read include: %w", origin, err)
		}
		nested, err := p.expand(path, string(data), append(stack, path))
		if err != nil {
			return "", err
		}
		out.WriteString(nested)
		if !strings.HasSuffix(nested, "\n") {
			out.WriteByte('\n')
		}
	}
	return out.String(), nil
}

func (p *preprocessor) resolve(rel string) (string, error) {
	for _, dir := range p.searchPaths {
		path := filepath.Join(dir, rel)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("include %q not found in search paths %v", rel, p.searchPaths)
}

// substitute replaces whole-identifier occurrences of each macro name with
// its value, in macro declaration order.
func (p *preprocessor) substitute(source string) string {
	for i, m := range p.macros {
		source = p.macroRes[i].ReplaceAllString(source, m.Value)
	}
	return source
}
