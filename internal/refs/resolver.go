package refs

import (
	"strings"
)

// metaWithinTopsym caches the page symbol a ref was redirected to by a
// resolved @within flag.
const metaWithinTopsym = "within_topsym"

// Hierarchy returns the class inheritance chain for ref, ordered root
// ancestor first and ref itself last. The walk follows @inherits links
// through the registry and stops at unresolvable names; a name seen
// twice terminates the walk so @inherits cycles cannot loop.
func (reg *Registry) Hierarchy(ref *Ref) []*Ref {
	if ref.Kind != KindClass {
		return nil
	}
	chain := []*Ref{ref}
	seen := map[string]bool{ref.Name(): true}
	for chain[0].Flags.Inherits != "" {
		super := reg.byName[chain[0].Flags.Inherits]
		if super == nil || seen[super.Name()] {
			break
		}
		seen[super.Name()] = true
		chain = append([]*Ref{super}, chain...)
	}
	return chain
}

// Resolve finds the ref for the given reference name relative to the
// current context. The name is searched up the containing scopes to the
// top level, then globally, then through the class hierarchy when the
// context's page is a class. Returns nil when the name cannot be
// resolved; the caller decides whether that warrants a warning.
func (reg *Registry) Resolve(ctx *Context, name string) *Ref {
	name = strings.NewReplacer(":", ".", "(", "", ")", "").Replace(name)
	var ref *Ref
	if ctx.Ref != nil {
		scopes := append([]string{ctx.Ref.Name()}, scopeNames(ctx.Ref.Scopes)...)
		for _, scope := range scopes {
			if ref = reg.byName[scope+"."+name]; ref != nil {
				break
			}
		}
	}
	if ref == nil {
		ref = reg.byName[name]
	}
	if ref == nil && ctx.Ref != nil {
		if page := reg.contextPage(ctx.Ref); page != nil && page.Kind == KindClass {
			hierarchy := reg.Hierarchy(page)
			for i := len(hierarchy) - 1; i >= 0; i-- {
				if ref = reg.byName[hierarchy[i].Name()+"."+name]; ref != nil {
					break
				}
			}
		}
	}
	if ref == nil {
		return nil
	}
	reg.resolveWithin(ctx, name, ref)
	return ref
}

// contextPage returns the page ref owning the lookup context.
func (reg *Registry) contextPage(ref *Ref) *Ref {
	if ref.Kind.IsPage() {
		return ref
	}
	topsym, err := ref.Topsym()
	if err != nil {
		return nil
	}
	return reg.pageIndex[topsym]
}

// resolveWithin determines which page carries the collection named by a
// ref's @within flag, caching the answer. An ambiguous @within (the
// collection name exists on several pages) is logged and left
// unresolved; the ref then links through its natural page.
func (reg *Registry) resolveWithin(ctx *Context, name string, ref *Ref) {
	if ref.Within == "" || ref.Meta[metaWithinTopsym] != "" {
		return
	}
	topsym, err := ref.Topsym()
	if err != nil {
		ctx.Errorf("%v", err)
		return
	}
	if set := reg.collections[topsym]; set != nil {
		if _, ok := set.byName[ref.Within]; ok {
			// @within names a collection on the ref's own page.
			ref.Meta[metaWithinTopsym] = topsym
			return
		}
	}
	var candidates []string
	for sym, set := range reg.collections {
		if _, ok := set.byName[ref.Within]; ok {
			candidates = append(candidates, sym)
		}
	}
	switch len(candidates) {
	case 0:
		ctx.Errorf("%s is @within %s which does not name a known collection", name, ref.Within)
	case 1:
		ref.Meta[metaWithinTopsym] = candidates[0]
	default:
		ctx.Errorf("%s is @within %s which is ambiguous (in %s)", name, ref.Within, strings.Join(candidates, ", "))
	}
}

func scopeNames(scopes []*Ref) []string {
	out := make([]string, len(scopes))
	for i := len(scopes) - 1; i >= 0; i-- {
		out[len(scopes)-1-i] = scopes[i].Name()
	}
	return out
}
