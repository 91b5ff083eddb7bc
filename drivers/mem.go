package drivers

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nfits/fitsfile/driver"
)

// memBuffer is the growable in-memory backing store shared by the
// "mem://" and "memkeep://" prefixes, the way backend/memory.Object
// wraps a plain []byte behind fs.Object.
type memBuffer struct {
	mu      sync.Mutex
	data    []byte
	pos     int64
	ownsMem bool // false for memkeep://, matching ffomem's reuseflag split
	extern  *[]byte
}

func (b *memBuffer) sizeLocked() int64 { return int64(len(b.data)) }

func (b *memBuffer) syncExternal() {
	if !b.ownsMem && b.extern != nil {
		*b.extern = b.data
	}
}

// memOps implements both mem:// (owns its buffer, grows freely) and
// memkeep:// (backed by a caller-supplied slice pointer, mirroring
// ffomem's "free on close" flag) through the same vtable, distinguished
// only by the ownsMem bit each handle carries.
type memOps struct {
	log   *logrus.Entry
	table *handleTable

	mu     sync.Mutex
	staged map[string]*memBuffer
}

func newMemOps(log *logrus.Entry, name string) *memOps {
	return &memOps{
		log:    log.WithField("driver", name),
		table:  newHandleTable(),
		staged: make(map[string]*memBuffer),
	}
}

// NewMemDrivers builds the linked mem:// / memkeep:// pair and returns
// both the registrable drivers and the staging handle used by
// OpenMemory.
func NewMemDrivers(log *logrus.Entry) *MemDrivers {
	mem := newMemOps(log, "mem")
	memkeep := newMemOps(log, "memkeep")
	return &MemDrivers{
		Mem:     &driver.Driver{Prefix: "mem://", Ops: mem.ops()},
		MemKeep: &driver.Driver{Prefix: "memkeep://", Ops: memkeep.ops()},
		mem:     mem,
		memkeep: memkeep,
	}
}

// MemDrivers bundles the two handle-table owners backing "mem://" and
// "memkeep://" so OpenMemory can stage a caller-supplied buffer before
// routing through the normal dispatcher Open call.
type MemDrivers struct {
	Mem     *driver.Driver
	MemKeep *driver.Driver

	mem     *memOps
	memkeep *memOps
}

// StageBuffer registers data under filename so the next Open of that
// filename through the returned driver picks it up instead of minting a
// fresh empty buffer, mirroring ffomem's caller-supplied-pointer path.
// ownsMem false means the driver must write every growth back through
// extern, as cfileio.c does when the caller retains ownership.
func (d *MemDrivers) StageBuffer(keep bool, filename string, data []byte, ownsMem bool, extern *[]byte) {
	ops := d.mem
	if keep {
		ops = d.memkeep
	}
	ops.mu.Lock()
	defer ops.mu.Unlock()
	ops.staged[filename] = &memBuffer{data: data, ownsMem: ownsMem, extern: extern}
}

func (m *memOps) ops() driver.Ops {
	return driver.Ops{
		Open:     m.open,
		Create:   m.create,
		Truncate: m.truncate,
		Close:    m.close,
		Remove:   m.remove,
		Size:     m.size,
		Seek:     m.seek,
		Read:     m.read,
		Write:    m.write,
	}
}

func (m *memOps) take(filename string) *memBuffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.staged[filename]; ok {
		delete(m.staged, filename)
		return b
	}
	return &memBuffer{ownsMem: true}
}

func (m *memOps) open(ctx context.Context, filename string, mode driver.RWMode) (driver.Handle, error) {
	return m.table.put(m.take(filename)), nil
}

func (m *memOps) create(ctx context.Context, filename string) (driver.Handle, error) {
	return m.table.put(m.take(filename)), nil
}

func (m *memOps) truncate(ctx context.Context, h driver.Handle, newSize int64) error {
	b, err := m.buf(h)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if newSize < int64(len(b.data)) {
		b.data = b.data[:newSize]
	} else {
		b.data = append(b.data, make([]byte, newSize-int64(len(b.data)))...)
	}
	b.syncExternal()
	return nil
}

func (m *memOps) close(ctx context.Context, h driver.Handle) error {
	_, err := m.table.drop(h)
	return err
}

func (m *memOps) remove(ctx context.Context, filename string) error {
	return nil // in-memory buffers have no directory entry to unlink
}

func (m *memOps) size(ctx context.Context, h driver.Handle) (int64, error) {
	b, err := m.buf(h)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sizeLocked(), nil
}

func (m *memOps) seek(ctx context.Context, h driver.Handle, offset int64) error {
	b, err := m.buf(h)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pos = offset
	return nil
}

func (m *memOps) read(ctx context.Context, h driver.Handle, out []byte) error {
	b, err := m.buf(h)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pos+int64(len(out)) > int64(len(b.data)) {
		return fmt.Errorf("mem read past end of buffer")
	}
	n := copy(out, b.data[b.pos:])
	b.pos += int64(n)
	return nil
}

func (m *memOps) write(ctx context.Context, h driver.Handle, in []byte) error {
	b, err := m.buf(h)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	end := b.pos + int64(len(in))
	if end > int64(len(b.data)) {
		b.data = append(b.data, make([]byte, end-int64(len(b.data)))...)
	}
	copy(b.data[b.pos:end], in)
	b.pos = end
	b.syncExternal()
	return nil
}

func (m *memOps) buf(h driver.Handle) (*memBuffer, error) {
	v, err := m.table.lookup(h)
	if err != nil {
		return nil, err
	}
	return v.(*memBuffer), nil
}
