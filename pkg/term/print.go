package term

import (
	"strconv"
	"strings"
	"unicode"
)

// String renders t in the canonical textual form used by write/writeln,
// serialization and diagnostics (spec.md §6 "Textual term I/O"):
// variables print as "?Name", "[]" prints as the empty list, proper lists
// print flattened as "[e1,e2,...]", and compounds print as
// "name(arg1,arg2,...)".
func (t *Term) String() string {
	var b strings.Builder
	writeTerm(&b, t)
	return b.String()
}

func writeTerm(b *strings.Builder, t *Term) {
	switch {
	case t.kind == Variable:
		b.WriteByte('?')
		b.WriteString(t.name)
	case t.IsList():
		writeListBody(b, t)
	case t.kind == Constant:
		b.WriteString(t.name)
	default:
		b.WriteString(t.name)
		b.WriteByte('(')
		for i, a := range t.args {
			if i > 0 {
				b.WriteByte(',')
			}
			writeTerm(b, a)
		}
		b.WriteByte(')')
	}
}

func writeListBody(b *strings.Builder, t *Term) {
	b.WriteByte('[')
	cur := t
	first := true
	for {
		if cur.IsEmptyList() {
			break
		}
		if cur.kind == Compound && cur.name == "." && len(cur.args) == 2 {
			if !first {
				b.WriteByte(',')
			}
			first = false
			writeTerm(b, cur.args[0])
			cur = cur.args[1]
			continue
		}
		// Improper list tail: render it after a bar, matching common
		// Prolog-family convention for partial lists.
		b.WriteByte('|')
		writeTerm(b, cur)
		break
	}
	b.WriteByte(']')
}

// WriteJSON renders t using the JSON variant named in spec.md §6: each
// term becomes {"<head>":[<args>...]}. Strings, quoted atoms and
// reserved/uppercase-leading names are single-quoted; double-quoted
// string atoms keep their quotes.
func (t *Term) WriteJSON() string {
	var b strings.Builder
	writeJSONTerm(&b, t)
	return b.String()
}

func writeJSONTerm(b *strings.Builder, t *Term) {
	b.WriteByte('{')
	b.WriteString(strconv.Quote(jsonHead(t)))
	b.WriteString(":[")
	for i, a := range t.args {
		if i > 0 {
			b.WriteByte(',')
		}
		if a.kind == Variable || a.kind == Compound {
			writeJSONTerm(b, a)
		} else {
			b.WriteString(strconv.Quote(jsonHead(a)))
		}
	}
	b.WriteByte(']')
	b.WriteByte('}')
}

// jsonHead produces the head text used as the JSON object's single key:
// "?Name" for variables, the functor for compounds, and the constant's
// text for atoms -- with reserved words, uppercase-leading atoms, and
// already double-quoted string atoms wrapped per spec.md §6.
func jsonHead(t *Term) string {
	switch {
	case t.kind == Variable:
		return "?" + t.name
	case t.kind == Compound:
		return quoteAtomIfNeeded(t.name)
	default:
		if strings.HasPrefix(t.name, "\"") && strings.HasSuffix(t.name, "\"") && len(t.name) >= 2 {
			return t.name
		}
		return quoteAtomIfNeeded(t.name)
	}
}

var reservedAtoms = map[string]bool{
	"true": true, "false": true, "fail": true, "nil": true,
}

func quoteAtomIfNeeded(name string) string {
	if name == "" {
		return "''"
	}
	needsQuote := reservedAtoms[name] || unicode.IsUpper(rune(name[0])) || !startsLowerAlpha(name)
	if !needsQuote {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "\\'") + "'"
}

func startsLowerAlpha(s string) bool {
	r := rune(s[0])
	return unicode.IsLower(r)
}
