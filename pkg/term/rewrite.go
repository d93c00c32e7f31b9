package term

// MakeVariablesUnique rewrites t so that every distinct variable name is
// prefixed with prefix, returning the re-interned term. Every occurrence
// of the same original variable maps to the same renamed variable; two
// calls with different prefixes never collide. When prefix begins with
// '_' (as the resolver's and planner's prefixes do), CreateVariable treats
// each prefixed name as a don't-care name and mints a fresh "_G<n>"
// variable instead, so the result carries no trace of prefix and
// RemovePrefixFromVariables cannot undo it. This is how the resolver
// freshens a rule's variables on each selection (spec.md §4.4 "Variable
// freshening") so that recursive rule applications never capture each
// other's bindings.
func (f *Factory) MakeVariablesUnique(t *Term, prefix string) *Term {
	seen := make(map[*Term]*Term)
	return f.rewriteVars(t, func(v *Term) *Term {
		if renamed, ok := seen[v]; ok {
			return renamed
		}
		renamed := f.CreateVariable(prefix + v.name)
		seen[v] = renamed
		return renamed
	})
}

// RemovePrefixFromVariables strips prefix from every variable name in t
// that carries it, re-interning the result. It is the inverse operation
// used when presenting internal, freshened variable names back to a host
// in a recognisable form.
func (f *Factory) RemovePrefixFromVariables(t *Term, prefix string) *Term {
	seen := make(map[*Term]*Term)
	return f.rewriteVars(t, func(v *Term) *Term {
		if renamed, ok := seen[v]; ok {
			return renamed
		}
		name := v.name
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			name = name[len(prefix):]
		}
		renamed := f.CreateVariable(name)
		seen[v] = renamed
		return renamed
	})
}

// Substitute replaces every occurrence of variable with replacement in t,
// returning the re-interned term.
func (f *Factory) Substitute(t, variable, replacement *Term) *Term {
	return f.rewriteVars(t, func(v *Term) *Term {
		if v == variable {
			return replacement
		}
		return v
	})
}

// RenameVariables rewrites t according to mapping, a map from variable to
// replacement term (which need not itself be a variable).
func (f *Factory) RenameVariables(t *Term, mapping map[*Term]*Term) *Term {
	return f.rewriteVars(t, func(v *Term) *Term {
		if r, ok := mapping[v]; ok {
			return r
		}
		return v
	})
}

// rewriteVars walks t bottom-up, replacing every Variable leaf with
// replace(v) and re-interning compounds whose arguments changed.
func (f *Factory) rewriteVars(t *Term, replace func(*Term) *Term) *Term {
	switch t.kind {
	case Variable:
		return replace(t)
	case Constant:
		return t
	default:
		changed := false
		args := make([]*Term, len(t.args))
		for i, a := range t.args {
			na := f.rewriteVars(a, replace)
			args[i] = na
			if na != a {
				changed = true
			}
		}
		if !changed {
			return t
		}
		return f.CreateFunctor(t.name, args)
	}
}

// ResolveArithmeticTerms folds every arithmetic subtree of t that
// evaluates cleanly (Eval succeeds) into its numeric/boolean result,
// leaving the rest of the structure untouched. Subtrees containing
// unbound variables, or using an unrecognised functor, are left as-is.
func (f *Factory) ResolveArithmeticTerms(t *Term) *Term {
	switch t.kind {
	case Variable, Constant:
		return t
	default:
		args := make([]*Term, len(t.args))
		changed := false
		for i, a := range t.args {
			na := f.ResolveArithmeticTerms(a)
			args[i] = na
			if na != a {
				changed = true
			}
		}
		rebuilt := t
		if changed {
			rebuilt = f.CreateFunctor(t.name, args)
		}
		if rebuilt.IsArithmetic() {
			if v, ok := f.Eval(rebuilt); ok {
				return v
			}
		}
		return rebuilt
	}
}

// CollectVariables appends every distinct variable in t to out (in
// first-occurrence order) and returns the result.
func CollectVariables(t *Term, out []*Term) []*Term {
	switch t.kind {
	case Variable:
		for _, v := range out {
			if v == t {
				return out
			}
		}
		return append(out, t)
	case Constant:
		return out
	default:
		for _, a := range t.args {
			out = CollectVariables(a, out)
		}
		return out
	}
}
