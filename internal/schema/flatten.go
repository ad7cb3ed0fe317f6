package schema

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/starford/themeschema/internal/apperr"
	"github.com/starford/themeschema/internal/category"
	"github.com/starford/themeschema/internal/checksum"
	"github.com/starford/themeschema/internal/models"
)

const (
	// VisualStylesKey is the root property that holds per-visual styles.
	VisualStylesKey = "visualStyles"
	// VisualWildcard replaces the visual name in canonical property paths.
	VisualWildcard = "*"

	DefaultMaxDepth = 16

	// FormatVersion changes whenever Flatten output changes for the same input.
	FormatVersion = 1
)

// DefaultStateFields are discriminator names marking per-state arrays.
var DefaultStateFields = []string{"$id", "state"}

// Options tunes Flatten.
type Options struct {
	MaxDepth    int
	StateFields []string
	Logger      *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if len(o.StateFields) == 0 {
		o.StateFields = DefaultStateFields
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Fingerprint identifies the output of Flatten for src under these options.
// Processed snapshots are stored under it.
func (o Options) Fingerprint(src *Source) string {
	o = o.withDefaults()
	fields := append([]string(nil), o.StateFields...)
	sort.Strings(fields)
	key := fmt.Sprintf("v%d\n%s\nmax_depth=%d\nstate_fields=%s",
		FormatVersion, src.Checksum, o.MaxDepth, strings.Join(fields, ","))
	return checksum.Sum([]byte(key))
}

// Flatten walks src and returns one PropertyMetadata per property path in
// first-encounter order. Properties whose $ref cannot be resolved are
// logged and omitted together with their subtree.
func Flatten(src *Source, opts Options) []models.PropertyMetadata {
	opts = opts.withDefaults()
	w := &walker{
		res:    NewResolver(src),
		opts:   opts,
		byPath: make(map[string]int),
	}

	for _, key := range sortedKeys(src.Root.Properties) {
		node := src.Root.Properties[key]
		if key == VisualStylesKey {
			w.walkVisualStyles(node)
			continue
		}
		w.walkProperty(key, node, nil, "", nil)
	}
	return w.out
}

type walker struct {
	res    *Resolver
	opts   Options
	out    []models.PropertyMetadata
	byPath map[string]int
}

// walkVisualStyles treats every child of visualStyles as a visual type.
// A "*" style layer directly below the visual is transparent.
func (w *walker) walkVisualStyles(node *Node) {
	vs, stack, ok := w.deref(node, nil, VisualStylesKey)
	if !ok {
		return
	}
	for _, visual := range sortedKeys(vs.Properties) {
		v, vstack, ok := w.deref(vs.Properties[visual], stack, VisualStylesKey+"."+visual)
		if !ok {
			continue
		}
		prefix := []string{VisualStylesKey, VisualWildcard}
		for _, part := range w.containers(v, vstack) {
			for _, key := range sortedKeys(part.node.Properties) {
				child := part.node.Properties[key]
				if key == VisualWildcard {
					style, sstack, ok := w.deref(child, part.stack, VisualStylesKey+"."+visual+".*")
					if !ok {
						continue
					}
					for _, sp := range w.containers(style, sstack) {
						w.walkProperties(sp.node, prefix, visual, sp.stack)
					}
					continue
				}
				w.walkProperty(key, child, prefix, visual, part.stack)
			}
		}
	}
}

func (w *walker) walkProperties(n *Node, prefix []string, visual string, stack []string) {
	for _, key := range sortedKeys(n.Properties) {
		w.walkProperty(key, n.Properties[key], prefix, visual, stack)
	}
}

// walkProperty records the property at prefix+key and descends into it.
func (w *walker) walkProperty(key string, raw *Node, prefix []string, visual string, stack []string) {
	segs := make([]string, len(prefix)+1)
	copy(segs, prefix)
	segs[len(prefix)] = key
	path := strings.Join(segs, ".")

	n, nstack, ok := w.deref(raw, stack, path)
	if !ok {
		return
	}

	w.record(key, segs, path, n, visual, nstack)

	if len(segs) >= w.opts.MaxDepth {
		w.opts.Logger.Debug("ingest: max depth reached", slog.String("path", path))
		return
	}
	for _, part := range w.containers(n, nstack) {
		w.walkProperties(part.node, segs, visual, part.stack)
	}
}

type container struct {
	node  *Node
	stack []string
}

// containers returns n plus every node whose properties live at the same
// path: array items and oneOf/anyOf/allOf alternatives, recursively.
func (w *walker) containers(n *Node, stack []string) []container {
	out := []container{{node: n, stack: stack}}
	if n.Items != nil {
		if item, istack, ok := w.deref(n.Items, stack, "items"); ok {
			out = append(out, w.containers(item, istack)...)
		}
	}
	for _, alt := range n.alternatives() {
		if a, astack, ok := w.deref(alt, stack, "alternative"); ok {
			out = append(out, w.containers(a, astack)...)
		}
	}
	return out
}

// deref follows a $ref chain. The referencing node's title and description
// take precedence over the target's. The returned stack holds every ref
// followed so far on this branch; a ref already on it is a cycle.
func (w *walker) deref(n *Node, stack []string, at string) (*Node, []string, bool) {
	if n == nil {
		return nil, stack, false
	}
	title, desc := n.Title, n.Description
	for n.Ref != "" {
		ref := n.Ref
		for _, seen := range stack {
			if seen == ref {
				w.opts.Logger.Debug("ingest: ref cycle cut",
					slog.String("path", at), slog.String("ref", ref))
				return nil, stack, false
			}
		}
		target, err := w.res.Resolve(ref)
		if err != nil {
			w.opts.Logger.Warn("ingest: ref skipped",
				slog.String("path", at), slog.String("ref", ref),
				slog.Bool("non_local", errors.Is(err, apperr.ErrNonLocalRef)),
				slog.String("error", err.Error()))
			return nil, stack, false
		}
		next := make([]string, len(stack)+1)
		copy(next, stack)
		next[len(stack)] = ref
		stack = next
		n = target
		if title == "" {
			title = n.Title
		}
		if desc == "" {
			desc = n.Description
		}
	}
	if title != n.Title || desc != n.Description {
		cp := *n
		cp.Title, cp.Description = title, desc
		n = &cp
	}
	return n, stack, true
}

func (w *walker) record(key string, segs []string, path string, n *Node, visual string, stack []string) {
	if i, ok := w.byPath[path]; ok {
		if visual != "" && !w.out[i].InVisual(visual) {
			w.out[i].Visuals = append(w.out[i].Visuals, visual)
		}
		return
	}

	types, title, desc, cons := w.describe(n, stack)
	if title == "" {
		title = Humanize(key)
	}

	relPath := path
	if visual != "" {
		relPath = strings.Join(segs[2:], ".")
	}

	p := models.PropertyMetadata{
		ID:             checksum.ID(path),
		Path:           path,
		Name:           key,
		Title:          title,
		Description:    desc,
		Type:           types,
		Category:       category.Categorize(key, relPath),
		Visuals:        []string{},
		Depth:          len(segs) - 1,
		IsStateEnabled: w.isStateArray(n, types, stack),
		Constraints:    cons,
	}
	if visual != "" {
		p.Visuals = append(p.Visuals, visual)
	}
	w.byPath[path] = len(w.out)
	w.out = append(w.out, p)
	w.opts.Logger.Debug("ingest: property",
		slog.String("path", path), slog.String("category", string(p.Category)))
}

// describe collects type, title, description and constraints for n, taking
// whatever n lacks from the first alternative that provides it.
func (w *walker) describe(n *Node, stack []string) ([]string, string, string, *models.Constraints) {
	types := append([]string(nil), n.Type...)
	title, desc := n.Title, n.Description
	cons := constraintsOf(n)

	for _, alt := range n.alternatives() {
		a, _, ok := w.deref(alt, stack, "alternative")
		if !ok {
			continue
		}
		if len(types) == 0 && len(a.Type) > 0 {
			types = append(types, a.Type...)
		}
		if title == "" {
			title = a.Title
		}
		if desc == "" {
			desc = a.Description
		}
		if cons == nil {
			cons = constraintsOf(a)
		}
	}

	if len(types) == 0 {
		switch {
		case len(n.Properties) > 0:
			types = []string{"object"}
		case n.Items != nil:
			types = []string{"array"}
		default:
			types = []string{}
		}
	}
	return types, title, desc, cons
}

func (w *walker) isStateArray(n *Node, types []string, stack []string) bool {
	if !TypeSet(types).Has("array") || n.Items == nil {
		return false
	}
	for _, part := range w.containers(n, stack)[1:] {
		for _, field := range w.opts.StateFields {
			if _, ok := part.node.Properties[field]; ok {
				return true
			}
		}
	}
	return false
}

func constraintsOf(n *Node) *models.Constraints {
	c := &models.Constraints{Minimum: n.Minimum, Maximum: n.Maximum}
	if len(n.Enum) > 0 {
		c.Enum = append([]any(nil), n.Enum...)
	}
	if c.Empty() {
		return nil
	}
	return c
}

func sortedKeys(m map[string]*Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var (
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	wordSeparator = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// Humanize turns a property key such as "fontSize" or "show_all" into a
// display title ("Font Size", "Show All").
func Humanize(key string) string {
	spaced := camelBoundary.ReplaceAllString(key, "$1 $2")
	words := strings.Fields(wordSeparator.ReplaceAllString(spaced, " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	if len(words) == 0 {
		return key
	}
	return strings.Join(words, " ")
}
