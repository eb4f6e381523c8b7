// Package gqlrequest inspects incoming GraphQL documents before execution:
// which operation runs, how large and deep it is, and a stable hash that
// identifies it in logs and traces.
package gqlrequest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/printer"
	"github.com/graphql-go/graphql/language/source"
)

const anonymousOperation = "<anonymous>"

// Analysis describes one GraphQL request. Err is set when the payload could
// not be decoded, parsed or resolved to a single operation; execution then
// reports the error itself.
type Analysis struct {
	Envelope Envelope

	OperationName string
	OperationType string
	OperationHash string

	FieldCount     int
	SelectionDepth int
	VariableCount  int

	Err error
}

// Analyze decodes and analyzes the request.
func Analyze(r *http.Request) *Analysis {
	env, err := DecodeEnvelope(r)
	if err != nil {
		return &Analysis{Envelope: env, Err: err}
	}
	return AnalyzeEnvelope(env)
}

// AnalyzeEnvelope parses the document and selects the requested operation.
func AnalyzeEnvelope(env Envelope) *Analysis {
	a := &Analysis{Envelope: env}
	if strings.TrimSpace(env.Query) == "" {
		return a
	}

	doc, err := parser.Parse(parser.ParseParams{
		Source: source.NewSource(&source.Source{Body: []byte(env.Query), Name: "GraphQL request"}),
	})
	if err != nil {
		a.Err = err
		return a
	}

	fragments := fragmentsOf(doc)
	op, err := selectOperation(doc, env.OperationName)
	if err != nil {
		a.Err = err
		return a
	}

	a.OperationName = operationName(op)
	a.OperationType = string(op.Operation)
	a.VariableCount = len(op.VariableDefinitions)
	a.FieldCount, a.SelectionDepth = measure(op.SelectionSet, fragments, 1, map[string]bool{})

	hash, err := operationHash(op, fragments)
	if err != nil {
		a.Err = err
		return a
	}
	a.OperationHash = hash
	return a
}

// Limits bounds the shape of an accepted operation. Zero disables a bound.
type Limits struct {
	MaxDepth  int
	MaxFields int
}

// ErrLimitExceeded marks operations rejected by Limits.
var ErrLimitExceeded = errors.New("query limit exceeded")

// Check reports whether the analyzed operation stays within limits.
func (a *Analysis) Check(limits Limits) error {
	if a == nil {
		return nil
	}
	if limits.MaxDepth > 0 && a.SelectionDepth > limits.MaxDepth {
		return fmt.Errorf("%w: selection depth %d exceeds %d", ErrLimitExceeded, a.SelectionDepth, limits.MaxDepth)
	}
	if limits.MaxFields > 0 && a.FieldCount > limits.MaxFields {
		return fmt.Errorf("%w: %d fields requested, at most %d allowed", ErrLimitExceeded, a.FieldCount, limits.MaxFields)
	}
	return nil
}

type analysisKey struct{}

// WithAnalysis stores the analysis in ctx.
func WithAnalysis(ctx context.Context, a *Analysis) context.Context {
	return context.WithValue(ctx, analysisKey{}, a)
}

// FromContext returns the analysis stored by WithAnalysis, or nil.
func FromContext(ctx context.Context) *Analysis {
	if ctx == nil {
		return nil
	}
	a, _ := ctx.Value(analysisKey{}).(*Analysis)
	return a
}

func fragmentsOf(doc *ast.Document) map[string]*ast.FragmentDefinition {
	fragments := make(map[string]*ast.FragmentDefinition)
	for _, def := range doc.Definitions {
		if fragment, ok := def.(*ast.FragmentDefinition); ok && fragment.Name != nil {
			fragments[fragment.Name.Value] = fragment
		}
	}
	return fragments
}

func selectOperation(doc *ast.Document, name string) (*ast.OperationDefinition, error) {
	var operations []*ast.OperationDefinition
	for _, def := range doc.Definitions {
		if op, ok := def.(*ast.OperationDefinition); ok {
			operations = append(operations, op)
		}
	}

	if name != "" {
		for _, op := range operations {
			if op.Name != nil && op.Name.Value == name {
				return op, nil
			}
		}
		return nil, fmt.Errorf("unknown operation named %q", name)
	}
	switch len(operations) {
	case 0:
		return nil, errors.New("request does not include an operation")
	case 1:
		return operations[0], nil
	default:
		return nil, errors.New("operationName is required when request has multiple operations")
	}
}

func operationName(op *ast.OperationDefinition) string {
	if op.Name == nil || op.Name.Value == "" {
		return anonymousOperation
	}
	return op.Name.Value
}

// measure counts fields and returns the deepest field nesting. Fragment
// spreads count at the depth they are spread into; a fragment already on the
// current path is skipped.
func measure(set *ast.SelectionSet, fragments map[string]*ast.FragmentDefinition, depth int, onPath map[string]bool) (fields, maxDepth int) {
	if set == nil {
		return 0, depth - 1
	}
	maxDepth = depth
	visit := func(n, d int) {
		fields += n
		maxDepth = max(maxDepth, d)
	}

	for _, selection := range set.Selections {
		switch sel := selection.(type) {
		case *ast.Field:
			fields++
			if sel.SelectionSet != nil {
				visit(measure(sel.SelectionSet, fragments, depth+1, onPath))
			}
		case *ast.InlineFragment:
			visit(measure(sel.SelectionSet, fragments, depth, onPath))
		case *ast.FragmentSpread:
			if sel.Name == nil || onPath[sel.Name.Value] {
				continue
			}
			fragment, ok := fragments[sel.Name.Value]
			if !ok {
				continue
			}
			onPath[sel.Name.Value] = true
			visit(measure(fragment.SelectionSet, fragments, depth, onPath))
			delete(onPath, sel.Name.Value)
		}
	}
	return fields, maxDepth
}

// operationHash prints the operation with the fragments it uses and hashes
// the result together with the operation name. Formatting and unrelated
// operations in the same document do not change the hash.
func operationHash(op *ast.OperationDefinition, fragments map[string]*ast.FragmentDefinition) (string, error) {
	used := map[string]bool{}
	collectFragments(op.SelectionSet, fragments, used)
	names := make([]string, 0, len(used))
	for name := range used {
		names = append(names, name)
	}
	sort.Strings(names)

	definitions := []ast.Node{op}
	for _, name := range names {
		fragment, ok := fragments[name]
		if !ok {
			return "", fmt.Errorf("fragment %q not found", name)
		}
		definitions = append(definitions, fragment)
	}

	printed, ok := printer.Print(ast.NewDocument(&ast.Document{Definitions: definitions})).(string)
	if !ok {
		return "", errors.New("failed to print operation")
	}

	hash := sha256.New()
	for _, part := range []string{printed, operationName(op)} {
		_, _ = fmt.Fprintf(hash, "%d:%s|", len(part), part)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func collectFragments(set *ast.SelectionSet, fragments map[string]*ast.FragmentDefinition, used map[string]bool) {
	if set == nil {
		return
	}
	for _, selection := range set.Selections {
		switch sel := selection.(type) {
		case *ast.Field:
			collectFragments(sel.SelectionSet, fragments, used)
		case *ast.InlineFragment:
			collectFragments(sel.SelectionSet, fragments, used)
		case *ast.FragmentSpread:
			if sel.Name == nil || used[sel.Name.Value] {
				continue
			}
			used[sel.Name.Value] = true
			if fragment, ok := fragments[sel.Name.Value]; ok {
				collectFragments(fragment.SelectionSet, fragments, used)
			}
		}
	}
}
