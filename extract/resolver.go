// File: extract/resolver.go
package extract

import (
	"context"
	"errors"
	"sort"

	"github.com/edespino/crashscope/backend"
)

// ErrNoModule is returned by identifyPrimaryModule when the backend lists
// no modules.
var ErrNoModule = errors.New("no module loaded")

// resolver answers module and location queries for one build. Results are
// memoized and dropped with the build.
type resolver struct {
	be backend.Backend

	modules       []backend.ModuleInfo
	modulesErr    error
	modulesLoaded bool

	locations map[uint64]backend.Location
}

func newResolver(be backend.Backend) *resolver {
	return &resolver{
		be:        be,
		locations: make(map[uint64]backend.Location),
	}
}

func (r *resolver) listModules(ctx context.Context) ([]backend.ModuleInfo, error) {
	if !r.modulesLoaded {
		r.modules, r.modulesErr = r.be.ListModules(ctx)
		r.modulesLoaded = true
	}
	return r.modules, r.modulesErr
}

// identifyPrimaryModule returns the first module the backend reports.
// This is not necessarily the module holding the faulting instruction.
func (r *resolver) identifyPrimaryModule(ctx context.Context) (backend.ModuleInfo, error) {
	modules, err := r.listModules(ctx)
	if err != nil {
		return backend.ModuleInfo{}, err
	}
	if len(modules) == 0 {
		return backend.ModuleInfo{}, ErrNoModule
	}
	return modules[0], nil
}

// moduleFor returns the module with the highest base address not above pc.
func (r *resolver) moduleFor(ctx context.Context, pc uint64) (backend.ModuleInfo, bool) {
	modules, err := r.listModules(ctx)
	if err != nil || len(modules) == 0 || pc == 0 {
		return backend.ModuleInfo{}, false
	}

	sorted := make([]backend.ModuleInfo, len(modules))
	copy(sorted, modules)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Base < sorted[j].Base })

	idx := sort.Search(len(sorted), func(i int) bool { return sorted[i].Base > pc }) - 1
	if idx < 0 || sorted[idx].Base == 0 {
		return backend.ModuleInfo{}, false
	}
	return sorted[idx], true
}

// resolve maps pc to a location. Missing fields stay empty; an engine error
// yields the empty location together with the error.
func (r *resolver) resolve(ctx context.Context, pc uint64) (backend.Location, error) {
	if loc, ok := r.locations[pc]; ok {
		return loc, nil
	}
	loc, err := r.be.ResolveNameAndLine(ctx, pc)
	if err != nil {
		return backend.Location{}, err
	}
	r.locations[pc] = loc
	return loc, nil
}
