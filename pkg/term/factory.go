package term

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// Factory is the canonicalising store for every Term and interned string
// used by one logical computation. Terms built through the same Factory
// with structurally identical content share the same *Term value; terms
// from different factories must never be mixed; nothing checks for it.
//
// Factory is safe for concurrent reads and writes from a single logical
// owner; per the resource model it is not meant to be handed to more than
// one in-flight resolve/plan call at a time.
type Factory struct {
	mu       sync.Mutex
	strings  map[string]string // string interning pool; canonical Go strings
	terms    map[string]*Term  // structural key -> canonical term
	nextID   int64
	varSeq   uint64
	oom      atomic.Bool
	keyBuf   sync.Pool // reusable []byte for structural keys (fast path)
	tru      *Term
	fls      *Term
	emptyLst *Term
}

// NewFactory creates an empty term factory.
func NewFactory() *Factory {
	f := &Factory{
		strings: make(map[string]string),
		terms:   make(map[string]*Term),
	}
	f.keyBuf.New = func() any {
		b := make([]byte, 0, 64)
		return &b
	}
	f.tru = f.CreateConstant("true")
	f.fls = f.CreateConstant("false")
	f.emptyLst = f.CreateConstant("[]")
	return f
}

// internString canonicalises s so that repeated text shares one backing
// Go string, mirroring the source's ref-counted string pool. Go's garbage
// collector reclaims the backing array once nothing (including the pool
// entry) still references it; unlike the source there is no explicit
// "release on drop" step, since the Factory, not each Term, owns string
// lifetime for as long as the Factory itself is reachable.
func (f *Factory) internString(s string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if canon, ok := f.strings[s]; ok {
		return canon
	}
	f.strings[s] = s
	return s
}

// structuralKey builds the canonicalisation key for a candidate term.
// Because arguments are themselves always already-interned *Term values
// (Factory methods only ever build compounds out of terms it produced),
// the key only needs each argument's stable integer ID rather than a full
// recursive text walk of the whole subtree -- an O(arity) key instead of
// an O(term size) one. This replaces the source's fixed 4096-slot
// structural-key buffer with a growable one (spec.md Design Notes
// "String interning keyspace"), backed by a pooled small
// buffer for the common low-arity case.
func (f *Factory) structuralKey(kind Kind, name string, args []*Term) string {
	bufp := f.keyBuf.Get().(*[]byte)
	buf := (*bufp)[:0]
	defer func() {
		*bufp = buf
		f.keyBuf.Put(bufp)
	}()

	switch kind {
	case Variable:
		buf = append(buf, 'v', ':')
	case Constant:
		buf = append(buf, 'c', ':')
	case Compound:
		buf = append(buf, 'f', ':')
	}
	buf = append(buf, name...)
	if kind == Compound {
		buf = append(buf, '/')
		buf = appendInt(buf, int64(len(args)))
		for _, a := range args {
			buf = append(buf, '(')
			buf = appendInt(buf, a.id)
			buf = append(buf, ')')
		}
	}
	return string(buf)
}

func appendInt(buf []byte, n int64) []byte {
	if n == 0 {
		return append(buf, '0')
	}
	neg := n < 0
	if neg {
		n = -n
	}
	start := len(buf)
	for n > 0 {
		buf = append(buf, byte('0'+n%10))
		n /= 10
	}
	if neg {
		buf = append(buf, '-')
	}
	// reverse the digits just appended
	for i, j := start, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf
}

func (f *Factory) intern(kind Kind, name string, args []*Term) *Term {
	name = f.internString(name)
	key := f.structuralKey(kind, name, args)

	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.terms[key]; ok {
		return t
	}
	t := &Term{id: f.nextID, kind: kind, name: name, args: args}
	f.nextID++
	f.terms[key] = t
	return t
}

// CreateVariable returns (interning) a variable named name. A leading '?'
// (the HTN surface syntax) is stripped before storage; it is re-added by
// the textual printer. A name starting with '_' denotes a "don't care"
// variable: each call mints a distinct fresh internal name so that every
// textual occurrence of "_" (or "_Foo") is guaranteed to be a different
// variable, per the data model invariant.
func (f *Factory) CreateVariable(name string) *Term {
	name = strings.TrimPrefix(name, "?")
	if strings.HasPrefix(name, "_") {
		seq := atomic.AddUint64(&f.varSeq, 1)
		name = fmt.Sprintf("_G%d", seq)
	}
	return f.intern(Variable, name, nil)
}

// CreateConstant returns (interning) a constant with the given text.
func (f *Factory) CreateConstant(name string) *Term {
	return f.intern(Constant, name, nil)
}

// CreateFunctor returns (interning) a compound with the given functor and
// arguments. Per the data model, an arity-zero compound is equivalent to
// a Constant, so CreateFunctor(name, nil) returns the same term as
// CreateConstant(name).
func (f *Factory) CreateFunctor(name string, args []*Term) *Term {
	if len(args) == 0 {
		return f.CreateConstant(name)
	}
	cp := make([]*Term, len(args))
	copy(cp, args)
	return f.intern(Compound, name, cp)
}

// CreateList builds the right-nested ".(Head,Tail)" encoding of elements,
// terminated by "[]".
func (f *Factory) CreateList(elements []*Term) *Term {
	tail := f.emptyLst
	for i := len(elements) - 1; i >= 0; i-- {
		tail = f.CreateFunctor(".", []*Term{elements[i], tail})
	}
	return tail
}

// EmptyList returns the canonical "[]" atom.
func (f *Factory) EmptyList() *Term { return f.emptyLst }

// True returns the canonical "true" atom.
func (f *Factory) True() *Term { return f.tru }

// False returns the canonical "false" atom.
func (f *Factory) False() *Term { return f.fls }

// OutOfMemory reports whether the memory-budget latch has tripped for
// this factory. Every high-level API on the resolver and planner must be
// checked against this flag by the caller after the call returns; it is
// not retryable within the same call (spec.md §7).
func (f *Factory) OutOfMemory() bool { return f.oom.Load() }

// SetOutOfMemory latches the out-of-memory flag. Once set it is never
// cleared automatically; a caller that wants to reuse the factory for a
// fresh computation must call ResetOutOfMemory first.
func (f *Factory) SetOutOfMemory() { f.oom.Store(true) }

// ResetOutOfMemory clears the latch so the factory can be reused.
func (f *Factory) ResetOutOfMemory() { f.oom.Store(false) }

// DynamicSize estimates the live byte footprint of this factory's
// interning tables, used by the resolver/planner's memory-budget
// accounting loop (spec.md §4.4 "Memory accounting"). It is an estimate,
// not an exact count: each term is charged a fixed per-node overhead plus
// its name length and an 8-byte pointer per argument.
func (f *Factory) DynamicSize() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, t := range f.terms {
		total += 48 + int64(len(t.name)) + 8*int64(len(t.args))
	}
	for s := range f.strings {
		total += int64(len(s)) + 16
	}
	return total
}

// NumInternedTerms returns the number of distinct terms interned so far,
// exposed for diagnostics and tests.
func (f *Factory) NumInternedTerms() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.terms)
}
