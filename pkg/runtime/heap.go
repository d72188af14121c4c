package runtime

import (
	"io"
	"log/slog"

	"sage/interpreter-go/pkg/ast"
)

const (
	DefaultInitialThreshold = 1024 * 1024
	DefaultGrowFactor       = 2

	objectHeaderSize = 32
	slotSize         = 16
)

// HeapConfig tunes the collection threshold policy.
type HeapConfig struct {
	// InitialThreshold is also the floor for the post-collection threshold.
	InitialThreshold int
	GrowFactor       int
	// Disabled turns off automatic collection; Collect still works.
	Disabled bool
}

func DefaultHeapConfig() HeapConfig {
	return HeapConfig{InitialThreshold: DefaultInitialThreshold, GrowFactor: DefaultGrowFactor}
}

func (c HeapConfig) normalized() HeapConfig {
	if c.InitialThreshold <= 0 {
		c.InitialThreshold = DefaultInitialThreshold
	}
	if c.GrowFactor < 1 {
		c.GrowFactor = DefaultGrowFactor
	}
	return c
}

// HeapStats mirrors the counters exposed to programs by gc_stats().
type HeapStats struct {
	BytesAllocated int
	NextGC         int
	NumObjects     int
	Collections    int
	ObjectsFreed   int
}

// ObjectHeader is embedded by every heap-allocated value.
type ObjectHeader struct {
	marked bool
	freed  bool
	size   int
	next   HeapObject
}

func (h *ObjectHeader) header() *ObjectHeader { return h }

// Freed reports whether the object has been swept.
func (h *ObjectHeader) Freed() bool { return h.freed }

// HeapObject is implemented only by the heap kinds of this package.
type HeapObject interface {
	Value
	header() *ObjectHeader
	footprint() int
	trace(*Marker)
	release()
}

// RootScanner marks every root reachable by the running program.
type RootScanner func(*Marker)

// Heap is a mark-and-sweep allocator. It is not safe for concurrent use.
type Heap struct {
	cfg     HeapConfig
	enabled bool
	objects HeapObject
	roots   RootScanner
	logger  *slog.Logger

	bytesAllocated int
	nextGC         int
	numObjects     int
	collections    int
	objectsFreed   int

	pending    bool
	collecting bool
	epoch      uint64
}

// NewHeap builds a heap. A nil logger discards collection records.
func NewHeap(cfg HeapConfig, logger *slog.Logger) *Heap {
	cfg = cfg.normalized()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Heap{
		cfg:     cfg,
		enabled: !cfg.Disabled,
		nextGC:  cfg.InitialThreshold,
		logger:  logger,
	}
}

// SetRoots installs the root scanner consulted by Collect.
func (h *Heap) SetRoots(scan RootScanner) { h.roots = scan }

func (h *Heap) Enable()         { h.enabled = true }
func (h *Heap) Disable()        { h.enabled = false }
func (h *Heap) IsEnabled() bool { return h.enabled }

func (h *Heap) Stats() HeapStats {
	return HeapStats{
		BytesAllocated: h.bytesAllocated,
		NextGC:         h.nextGC,
		NumObjects:     h.numObjects,
		Collections:    h.collections,
		ObjectsFreed:   h.objectsFreed,
	}
}

// CollectionDue reports whether allocation pressure has crossed the
// threshold while automatic collection is enabled.
func (h *Heap) CollectionDue() bool {
	return h.pending && h.enabled && !h.collecting
}

// MaybeCollect runs a collection when one is due. Callers invoke it only at
// points where every live value is reachable from the roots.
func (h *Heap) MaybeCollect() bool {
	if !h.CollectionDue() {
		return false
	}
	h.Collect()
	return true
}

func (h *Heap) track(obj HeapObject) {
	hdr := obj.header()
	hdr.size = obj.footprint()
	hdr.next = h.objects
	h.objects = obj
	h.bytesAllocated += hdr.size
	h.numObjects++
	if h.bytesAllocated > h.nextGC {
		h.pending = true
	}
}

// Resize re-measures obj after its payload grew or shrank.
func (h *Heap) Resize(obj HeapObject) {
	hdr := obj.header()
	if hdr.freed {
		return
	}
	size := obj.footprint()
	h.bytesAllocated += size - hdr.size
	hdr.size = size
	if h.bytesAllocated > h.nextGC {
		h.pending = true
	}
}

// Allocation helpers.

func (h *Heap) NewString(s string) *StringValue {
	v := &StringValue{Val: s}
	h.track(v)
	return v
}

func (h *Heap) NewArray(elements []Value) *ArrayValue {
	v := &ArrayValue{Elements: elements}
	h.track(v)
	return v
}

func (h *Heap) NewTuple(elements []Value) *TupleValue {
	v := &TupleValue{Elements: elements}
	h.track(v)
	return v
}

func (h *Heap) NewDict() *DictValue {
	v := &DictValue{}
	h.track(v)
	return v
}

func (h *Heap) NewClass(name string, parent *ClassValue) *ClassValue {
	v := &ClassValue{Name: name, Parent: parent}
	h.track(v)
	return v
}

func (h *Heap) NewInstance(class *ClassValue) *InstanceValue {
	v := &InstanceValue{Class: class}
	h.track(v)
	return v
}

func (h *Heap) NewException(message string) *ExceptionValue {
	v := &ExceptionValue{Message: message}
	h.track(v)
	return v
}

func (h *Heap) NewFunction(decl *ast.ProcDeclaration, closure *Environment) *FunctionValue {
	v := &FunctionValue{Declaration: decl, Closure: closure}
	h.track(v)
	return v
}

func (h *Heap) NewGenerator(decl *ast.ProcDeclaration, closure *Environment, args []Value) *GeneratorValue {
	v := &GeneratorValue{Declaration: decl, Closure: closure, Args: args}
	h.track(v)
	return v
}

func (h *Heap) NewModule(name, path string, env *Environment) *ModuleValue {
	v := &ModuleValue{Name: name, Path: path, Env: env}
	h.track(v)
	return v
}

// Collect marks from the roots and sweeps everything unmarked.
func (h *Heap) Collect() {
	if h.collecting {
		return
	}
	h.collecting = true
	before := h.numObjects
	bytesBefore := h.bytesAllocated

	h.epoch++
	m := &Marker{epoch: h.epoch}
	if h.roots != nil {
		h.roots(m)
	}
	m.drain()
	closing := h.sweep()

	h.nextGC = h.bytesAllocated * h.cfg.GrowFactor
	if h.nextGC < h.cfg.InitialThreshold {
		h.nextGC = h.cfg.InitialThreshold
	}
	h.collections++
	h.pending = false
	h.collecting = false

	h.logger.Debug("gc collection",
		slog.Int("objects_before", before),
		slog.Int("objects_after", h.numObjects),
		slog.Int("bytes_before", bytesBefore),
		slog.Int("bytes", h.bytesAllocated),
		slog.Int("next_gc", h.nextGC),
	)

	// Suspended generator bodies are abandoned only once the sweep is
	// complete.
	for _, gen := range closing {
		gen()
	}
}

func (h *Heap) sweep() []func() {
	var (
		prev    HeapObject
		closing []func()
	)
	obj := h.objects
	for obj != nil {
		hdr := obj.header()
		next := hdr.next
		if hdr.marked {
			hdr.marked = false
			prev = obj
			obj = next
			continue
		}
		if prev == nil {
			h.objects = next
		} else {
			prev.header().next = next
		}
		h.bytesAllocated -= hdr.size
		h.numObjects--
		h.objectsFreed++
		if gen, ok := obj.(*GeneratorValue); ok && gen.Close != nil {
			closing = append(closing, gen.Close)
		}
		obj.release()
		hdr.freed = true
		hdr.next = nil
		obj = next
	}
	return closing
}

// Marker carries the gray set of one collection.
type Marker struct {
	epoch uint64
	gray  []HeapObject
}

// Mark greys v if it is an unmarked heap object.
func (m *Marker) Mark(v Value) {
	switch val := v.(type) {
	case nil:
		return
	case HeapObject:
		hdr := val.header()
		if hdr.marked || hdr.freed {
			return
		}
		hdr.marked = true
		m.gray = append(m.gray, val)
	case BoundMethodValue:
		m.Mark(val.Receiver)
		if val.Method != nil {
			m.Mark(val.Method)
		}
	}
}

func (m *Marker) MarkAll(values []Value) {
	for _, v := range values {
		m.Mark(v)
	}
}

// MarkEnv marks every binding along the scope chain starting at env. Frames
// already visited in this collection are skipped.
func (m *Marker) MarkEnv(env *Environment) {
	for e := env; e != nil; e = e.parent {
		if e.markEpoch == m.epoch {
			return
		}
		e.markEpoch = m.epoch
		for _, v := range e.values {
			m.Mark(v)
		}
	}
}

func (m *Marker) drain() {
	for len(m.gray) > 0 {
		obj := m.gray[len(m.gray)-1]
		m.gray = m.gray[:len(m.gray)-1]
		obj.trace(m)
	}
}

// Per-kind footprint, tracing and payload release.

func (v *StringValue) footprint() int { return objectHeaderSize + len(v.Val) }
func (v *StringValue) trace(*Marker)  {}
func (v *StringValue) release()       { v.Val = "" }

func (v *ArrayValue) footprint() int  { return objectHeaderSize + slotSize*len(v.Elements) }
func (v *ArrayValue) trace(m *Marker) { m.MarkAll(v.Elements) }
func (v *ArrayValue) release()        { v.Elements = nil }

func (v *TupleValue) footprint() int  { return objectHeaderSize + slotSize*len(v.Elements) }
func (v *TupleValue) trace(m *Marker) { m.MarkAll(v.Elements) }
func (v *TupleValue) release()        { v.Elements = nil }

func (v *DictValue) footprint() int  { return objectHeaderSize + v.Table.footprint() }
func (v *DictValue) trace(m *Marker) { v.Table.trace(m) }
func (v *DictValue) release()        { v.Table.entries = nil }

func (v *ClassValue) footprint() int {
	return objectHeaderSize + len(v.Name) + slotSize*len(v.Methods)
}

func (v *ClassValue) trace(m *Marker) {
	if v.Parent != nil {
		m.Mark(v.Parent)
	}
	for _, method := range v.Methods {
		m.Mark(method.Fn)
	}
}

func (v *ClassValue) release() { v.Methods = nil }

func (v *InstanceValue) footprint() int { return objectHeaderSize + v.Fields.footprint() }

func (v *InstanceValue) trace(m *Marker) {
	if v.Class != nil {
		m.Mark(v.Class)
	}
	v.Fields.trace(m)
}

func (v *InstanceValue) release() { v.Fields.entries = nil }

func (v *ExceptionValue) footprint() int { return objectHeaderSize + len(v.Message) }
func (v *ExceptionValue) trace(*Marker)  {}
func (v *ExceptionValue) release()       {}

func (v *FunctionValue) footprint() int  { return objectHeaderSize * 2 }
func (v *FunctionValue) trace(m *Marker) { m.MarkEnv(v.Closure) }
func (v *FunctionValue) release()        { v.Closure = nil }

func (v *GeneratorValue) footprint() int { return objectHeaderSize*4 + slotSize*len(v.Args) }

func (v *GeneratorValue) trace(m *Marker) {
	m.MarkEnv(v.Closure)
	m.MarkEnv(v.Env)
	m.MarkAll(v.Args)
	if v.Trace != nil {
		v.Trace(m)
	}
}

func (v *GeneratorValue) release() {
	v.Env = nil
	v.Args = nil
	v.Exhausted = true
}

func (v *ModuleValue) footprint() int  { return objectHeaderSize*2 + len(v.Name) }
func (v *ModuleValue) trace(m *Marker) { m.MarkEnv(v.Env) }
func (v *ModuleValue) release()        {}

func (t *Table) footprint() int {
	size := 0
	for _, e := range t.entries {
		size += len(e.Key) + slotSize
	}
	return size
}

func (t *Table) trace(m *Marker) {
	for _, e := range t.entries {
		m.Mark(e.Value)
	}
}
