package schema

import (
	"fmt"
	"strings"

	"github.com/starford/themeschema/internal/apperr"
)

// Resolver dereferences local JSON pointers against a Source.
type Resolver struct {
	root *Node
	defs map[string]*Node
}

// NewResolver creates a resolver over src.
func NewResolver(src *Source) *Resolver {
	return &Resolver{root: src.Root, defs: src.Definitions}
}

// Resolve returns the node a $ref points to. Supported forms are
// "#/definitions/<name>" and "#/properties/<path...>". Anything not starting
// with "#/" yields apperr.ErrNonLocalRef; a missing target yields
// apperr.ErrInvalidRef.
func (r *Resolver) Resolve(ref string) (*Node, error) {
	if !strings.HasPrefix(ref, "#/") {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNonLocalRef, ref)
	}
	tokens := strings.Split(ref[2:], "/")
	for i, t := range tokens {
		tokens[i] = unescapePointer(t)
	}

	switch tokens[0] {
	case "definitions":
		if len(tokens) < 2 {
			return nil, fmt.Errorf("%w: %s", apperr.ErrInvalidRef, ref)
		}
		n, ok := r.defs[strings.Join(tokens[1:], "/")]
		if !ok || n == nil {
			return nil, fmt.Errorf("%w: %s", apperr.ErrInvalidRef, ref)
		}
		return n, nil
	case "properties":
		n := r.walk(r.root, tokens[1:])
		if n == nil {
			return nil, fmt.Errorf("%w: %s", apperr.ErrInvalidRef, ref)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("%w: %s", apperr.ErrInvalidRef, ref)
	}
}

// walk descends through property names. Explicit "properties" and "items"
// pointer tokens are honoured when no property of that name exists.
func (r *Resolver) walk(n *Node, tokens []string) *Node {
	for _, t := range tokens {
		if n == nil {
			return nil
		}
		if child, ok := n.Properties[t]; ok {
			n = child
			continue
		}
		switch {
		case t == "properties":
			continue
		case t == "items" && n.Items != nil:
			n = n.Items
		default:
			return nil
		}
	}
	return n
}

func unescapePointer(s string) string {
	if !strings.Contains(s, "~") {
		return s
	}
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(s)
}
