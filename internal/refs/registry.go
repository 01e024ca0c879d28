package refs

import (
	"fmt"
	"sort"
	"strings"
)

// Registry is the append-only symbol table for a parse run. Refs are
// registered when their comment block or scope terminates and are never
// destroyed; on name collisions the first registration wins.
type Registry struct {
	ctx *Context

	// byName maps fully qualified names (and @alias names) to refs.
	byName map[string]*Ref
	// byKind keeps registration order per kind.
	byKind map[Kind][]*Ref
	// pages is the ordered list of page refs, with pageIndex enforcing
	// process-wide page name uniqueness.
	pages     []*Ref
	pageIndex map[string]*Ref
	// collections orders the collections belonging to each page symbol.
	collections map[string]*collectionSet
}

type collectionSet struct {
	order  []*Ref
	byName map[string]*Ref
}

// NewRegistry creates an empty symbol table reporting through ctx.
func NewRegistry(ctx *Context) *Registry {
	return &Registry{
		ctx:         ctx,
		byName:      make(map[string]*Ref),
		byKind:      make(map[Kind][]*Ref),
		pageIndex:   make(map[string]*Ref),
		collections: make(map[string]*collectionSet),
	}
}

// Add registers ref with the symbol table. Duplicate names are logged
// and the original ref kept. If ref belongs to a page that has not been
// registered yet, modref (the implicit module ref for the current file)
// is registered first so ref is anchored to some page.
func (reg *Registry) Add(ref, modref *Ref) {
	if ref.Meta["added"] != "" {
		reg.ctx.Logger.Errorf("%s:%d: reference %q with the same name already exists", ref.File, ref.Line, ref.Name())
		return
	}
	if ref.Symbol == "" {
		reg.ctx.Logger.Errorf("%s:%d: cannot register %s reference with an empty symbol", ref.File, ref.Line, ref.Kind)
		return
	}

	// A common pattern: a field assignment documented inside a class
	// method refers to the instance; strip the receiver prefix.
	if ref.Kind == KindField && strings.HasPrefix(ref.Symbol, "self.") {
		ref.Symbol = ref.Symbol[5:]
		ref.Invalidate()
	}

	if ref.Kind.IsPage() {
		if _, ok := reg.pageIndex[ref.Name()]; ok {
			reg.ctx.Logger.Errorf("%s:%d: %s conflicts with another class or module", ref.File, ref.Line, ref.Name())
		} else {
			reg.pageIndex[ref.Name()] = ref
			reg.pages = append(reg.pages, ref)
		}
	} else {
		if len(ref.Scopes) == 0 {
			reg.ctx.Fatalf("could not determine scope for %s", ref.Symbol)
			return
		}
		anchored := false
		for i := len(ref.Scopes) - 1; i >= 0; i-- {
			if _, ok := reg.pageIndex[ref.Scopes[i].Name()]; ok {
				anchored = true
				break
			}
		}
		if !anchored && modref != nil {
			reg.ctx.Logger.Warnf("%s:%d: implicitly adding module %q due to @%s; recommend adding explicit @module beforehand",
				ref.File, ref.Line, modref.Name(), ref.Kind)
			reg.Add(modref, nil)
		}
	}

	topsym, err := ref.Topsym()
	if err != nil {
		reg.ctx.Fatalf("%v", err)
		return
	}

	// Collections are ordered by first occurrence; a repeated @section
	// acts as a position reset for subsequent fields and functions, not
	// a new collection.
	if ref.Kind.IsCollection() {
		set := reg.collections[topsym]
		if set == nil {
			set = &collectionSet{byName: make(map[string]*Ref)}
			reg.collections[topsym] = set
		}
		if _, ok := set.byName[ref.Symbol]; !ok {
			set.byName[ref.Symbol] = ref
			set.order = append(set.order, ref)
		}
	}

	reg.byKind[ref.Kind] = append(reg.byKind[ref.Kind], ref)

	if existing, ok := reg.byName[ref.Name()]; ok && existing != ref {
		conflict := reg.findCollectionConflict(ref, topsym)
		if conflict == nil && ref.Kind != KindSection {
			conflict = existing
		}
		if conflict != nil && conflict != ref {
			reg.ctx.Logger.Errorf("%s:%d: %s %q conflicts with %s name at %s:%d",
				ref.File, ref.Line, ref.Kind, ref.Name(), conflict.Kind, conflict.File, conflict.Line)
		}
	} else {
		reg.byName[ref.Name()] = ref
	}
	ref.Meta["added"] = "true"
}

// findCollectionConflict reports a collection in the same page whose
// name collides with ref. Collections on different pages may share
// names; within one page that is a conflict.
func (reg *Registry) findCollectionConflict(ref *Ref, topsym string) *Ref {
	set := reg.collections[topsym]
	if set == nil {
		return nil
	}
	for _, c := range set.order {
		if c != ref && c.Name() == ref.Name() {
			return c
		}
	}
	return nil
}

// SetAlias registers an extra lookup name for ref, from @alias.
func (reg *Registry) SetAlias(name string, ref *Ref) {
	reg.byName[name] = ref
}

// Lookup returns the ref registered under the given fully qualified
// name or alias.
func (reg *Registry) Lookup(name string) *Ref {
	return reg.byName[name]
}

// Page returns the page ref with the given name.
func (reg *Registry) Page(name string) *Ref {
	return reg.pageIndex[name]
}

// TopRefs returns all page refs ordered by (kind, symbol).
func (reg *Registry) TopRefs() []*Ref {
	out := make([]*Ref, len(reg.pages))
	copy(out, reg.pages)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// ByKind returns refs of the given kind in registration order.
func (reg *Registry) ByKind(kind Kind) []*Ref {
	return reg.byKind[kind]
}

// Collections returns the collections of the given page ref, honoring
// @order placement.
func (reg *Registry) Collections(topref *Ref) []*Ref {
	set := reg.collections[topref.Name()]
	if set == nil {
		return nil
	}
	return reg.Reorder(set.order, topref)
}

// ElementsIn returns the refs of the given kind belonging to the named
// collection, honoring @within redirection and @order placement.
// Collection names are not globally unique, so when the name exists on
// several pages the search is constrained to the collection's own page.
func (reg *Registry) ElementsIn(kind Kind, col *Ref) []*Ref {
	name := col.Symbol
	topsym, err := col.Topsym()
	if err != nil {
		reg.ctx.Logger.Errorf("%v", err)
		return nil
	}

	found := make(map[string]bool)
	for sym, set := range reg.collections {
		for _, c := range set.order {
			if c.Symbol == name {
				found[sym] = true
			}
		}
	}
	if len(found) <= 1 {
		topsym = ""
	} else if !found[topsym] {
		reg.ctx.Logger.Warnf("collection %q referenced by %s is ambiguous as it exists in multiple classes or modules (%s)",
			name, topsym, strings.Join(keys(found), ", "))
	}

	var elems []*Ref
	for _, ref := range reg.byKind[kind] {
		colName := ref.Collection
		if ref.Within != "" {
			colName = ref.Within
		}
		if colName != name {
			continue
		}
		if topsym != "" {
			sym, err := ref.Topsym()
			if err != nil || sym != topsym {
				continue
			}
		}
		elems = append(elems, ref)
	}
	return reg.Reorder(elems, nil)
}

// ID returns the stable identifier renderers use for link targets, in
// the form pagekind#pagename#entityname.
func (reg *Registry) ID(ref *Ref) string {
	topsym, err := ref.Topsym()
	if err != nil {
		topsym = ref.Name()
	}
	// A resolved @within redirects the link path to its effective page.
	if within := ref.Meta[metaWithinTopsym]; within != "" {
		topsym = within
	}
	pageKind := ref.Kind
	if page := reg.pageIndex[topsym]; page != nil {
		pageKind = page.Kind
	}
	return fmt.Sprintf("%s#%s#%s", pageKind, topsym, ref.Name())
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
