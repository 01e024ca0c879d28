package refs

// Reorder applies @order flags to a list of sibling refs. Ordered refs
// are removed from their natural position and reinserted in one pass,
// in original list order: "first" and "last" go to the respective end,
// "before x"/"after x" insert adjacent to the first remaining sibling
// whose symbol is x. A missing anchor is logged and the ref keeps its
// default position. When topref is given, siblings belonging to a
// different page are dropped (the name collision that causes this was
// already reported at registration).
func (reg *Registry) Reorder(siblings []*Ref, topref *Ref) []*Ref {
	ordered := make([]*Ref, len(siblings))
	copy(ordered, siblings)

	remove := func(ref *Ref) {
		for i, r := range ordered {
			if r == ref {
				ordered = append(ordered[:i], ordered[i+1:]...)
				return
			}
		}
	}

	for _, ref := range siblings {
		if topref != nil {
			sym, err := ref.Topsym()
			if err != nil || sym != topref.Name() {
				remove(ref)
				continue
			}
		}
		order := ref.Flags.Order
		if order == nil {
			continue
		}
		remove(ref)
		switch order.Whence {
		case "first":
			ordered = append([]*Ref{ref}, ordered...)
			continue
		case "last":
			ordered = append(ordered, ref)
			continue
		}
		placed := false
		for i, other := range ordered {
			if other.Symbol == order.Anchor {
				pos := i
				if order.Whence == "after" {
					pos = i + 1
				}
				ordered = append(ordered[:pos], append([]*Ref{ref}, ordered[pos:]...)...)
				placed = true
				break
			}
		}
		if !placed {
			reg.ctx.Logger.Errorf("%s:%d: unknown @order anchor reference %s", ref.File, ref.Line, order.Anchor)
			// Restore default position.
			restoreAt(&ordered, siblings, ref)
		}
	}
	return ordered
}

// restoreAt reinserts ref into ordered at the position implied by the
// original sibling order.
func restoreAt(ordered *[]*Ref, siblings []*Ref, ref *Ref) {
	rank := make(map[*Ref]int, len(siblings))
	for i, r := range siblings {
		rank[r] = i
	}
	pos := len(*ordered)
	for i, r := range *ordered {
		if rank[r] > rank[ref] {
			pos = i
			break
		}
	}
	*ordered = append((*ordered)[:pos], append([]*Ref{ref}, (*ordered)[pos:]...)...)
}
