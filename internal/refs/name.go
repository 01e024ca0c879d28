package refs

import (
	"fmt"
	"strings"
)

// Name returns the fully qualified name by which this ref can be
// linked. Names are unique within the owning page, not globally. The
// result is cached; Invalidate clears it after flag mutations.
func (r *Ref) Name() string {
	if r.name == "" {
		r.deriveNames()
	}
	return r.name
}

// Display returns the human-facing name: the @display flag when set,
// otherwise the possibly requalified symbol.
func (r *Ref) Display() string {
	if r.display == "" {
		r.deriveNames()
	}
	return r.display
}

// Topsym returns the name of the page ref this ref ultimately belongs
// to. A non-page ref with no page ancestor is a structural error.
func (r *Ref) Topsym() (string, error) {
	if r.topsym != "" {
		return r.topsym, nil
	}
	if r.Kind.IsPage() || r.Scope() == nil {
		r.topsym = r.Name()
		return r.topsym, nil
	}
	if r.Scope().Kind == KindManual {
		r.topsym = r.Scope().Symbol
		return r.topsym, nil
	}
	for i := len(r.Scopes) - 1; i >= 0; i-- {
		s := r.Scopes[i]
		if s.Kind == KindClass || s.Kind == KindModule {
			r.topsym = s.Name()
			return r.topsym, nil
		}
	}
	return "", fmt.Errorf("%s:%d: could not determine which class or module %s belongs to", r.File, r.Line, r.Name())
}

// deriveNames computes the qualified name and display name from the
// symbol, flags, and scope stack.
func (r *Ref) deriveNames() {
	symbol := applyRename(r.Symbol, r.Flags.Rename)
	display := r.Flags.Display

	switch {
	case r.Kind == KindField || r.Kind == KindFunction:
		scope := r.Scope()
		scopeName := symbol
		if scope != nil {
			scopeName = scope.Symbol
		}
		// Heuristic: a field under a class's static table is a
		// metatable-style static member; drop the infix.
		if scope != nil && scope.Kind == KindClass && strings.Contains(symbol, ".static.") {
			symbol = strings.Replace(symbol, ".static", "", 1)
		}
		scopeTag := r.Flags.Scope
		if scopeTag == "" && r.CollectionRef != nil {
			scopeTag = r.CollectionRef.Flags.Scope
		}
		norm := strings.ReplaceAll(symbol, ":", ".")
		switch {
		case scopeTag != "":
			// User-defined scope replaces everything but the last
			// component. The "." sentinel means global scope.
			last := lastComponent(symbol)
			if scopeTag != GlobalScope {
				delim := "."
				if strings.Contains(symbol, ":") {
					delim = ":"
				}
				last = scopeTag + delim + last
			}
			symbol = last
			r.name = last
		case !strings.Contains(norm, "."):
			r.name = scopeName + "." + norm
		default:
			r.name = norm
		}
		r.Symbol = symbol
		if display == "" {
			if !strings.ContainsAny(symbol, ".:") && scopeTag != GlobalScope {
				qual := scopeTag
				if qual == "" {
					qual = scopeName
				}
				display = qual + "." + symbol
			} else {
				display = symbol
			}
		}

	case r.Scope() != nil && r.Scope().Kind == KindManual:
		// Section within a manual page.
		r.Symbol = symbol
		r.name = r.Scope().Symbol + "." + symbol
		if display == "" {
			display = symbol
		}

	default:
		r.Symbol = symbol
		r.name = symbol
		if display == "" {
			display = symbol
		}
	}
	r.display = display
}

// GlobalScope is the @scope sentinel that suppresses qualification.
const GlobalScope = "."

// applyRename applies a @rename flag: a dotted rename replaces the
// symbol outright, an undotted one replaces only the last component.
func applyRename(symbol, rename string) string {
	if rename == "" || symbol == "" {
		return symbol
	}
	if strings.Contains(rename, ".") {
		return rename
	}
	if i := strings.LastIndexAny(symbol, ".:"); i >= 0 {
		return symbol[:i+1] + rename
	}
	return rename
}

// lastComponent returns the final dotted or colon-delimited component.
func lastComponent(symbol string) string {
	if i := strings.LastIndexAny(symbol, ".:"); i >= 0 {
		return symbol[i+1:]
	}
	return symbol
}
