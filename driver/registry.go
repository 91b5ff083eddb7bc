package driver

import (
	"sync"
)

// MaxDrivers bounds the registry table, mirroring cfileio.c's MAX_DRIVERS.
const MaxDrivers = 15

// Registry is the process-wide, append-only table of named drivers.
// Lookup prefers the most recently registered match, so a later
// registration of the same prefix shadows an earlier one (§3, §4.D).
type Registry struct {
	mu      sync.RWMutex
	drivers []*Driver
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{drivers: make([]*Driver, 0, MaxDrivers)}
}

// Register appends d to the table after running its Init hook once. It
// rejects a nil/empty prefix and a full table.
func (r *Registry) Register(d *Driver) error {
	if d == nil || d.Prefix == "" {
		return newErr(BadURLPrefix, "register", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.drivers) >= MaxDrivers {
		return newErr(TooManyDrivers, "register", nil)
	}

	if d.Ops.Init != nil {
		if err := d.Ops.Init(); err != nil {
			return err
		}
	}

	r.drivers = append(r.drivers, d)
	return nil
}

// Lookup finds the most recently registered driver whose prefix equals
// urltype exactly.
func (r *Registry) Lookup(urltype string) (*Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.drivers) - 1; i >= 0; i-- {
		if r.drivers[i].Prefix == urltype {
			return r.drivers[i], nil
		}
	}
	return nil, newErr(NoMatchingDriver, "lookup", nil)
}

// Len reports how many drivers are currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.drivers)
}

// Shutdown runs every registered driver's Shutdown hook, in registration
// order, collecting (not short-circuiting on) errors.
func (r *Registry) Shutdown() error {
	r.mu.RLock()
	drivers := make([]*Driver, len(r.drivers))
	copy(drivers, r.drivers)
	r.mu.RUnlock()

	var errs []error
	for _, d := range drivers {
		if d.Ops.Shutdown != nil {
			if err := d.Ops.Shutdown(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return joinErrors(errs)
}
