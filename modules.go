package laminar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/boyter/gocodewalker"
)

// ModuleResolver resolves `open path[args] as alias` declarations (§4.1) to
// source files, searching the importing file's own directory first and
// then a configured set of project-wide module roots. It generalizes the
// teacher's module/loader.go, which only ever resolved paths relative to a
// single importing file, to a multi-root search using gocodewalker so a
// project can keep shared modules in one or more library directories.
type ModuleResolver struct {
	Roots []string

	cache map[string]string // open path -> resolved absolute file path
}

// NewModuleResolver builds a resolver over the given module search roots
// (typically Config.ModulePaths).
func NewModuleResolver(roots []string) *ModuleResolver {
	return &ModuleResolver{Roots: roots, cache: make(map[string]string)}
}

// moduleFileName turns a dotted open path ("util.ordering") into the
// relative file name it names ("util/ordering.las").
func moduleFileName(path string) string {
	return strings.ReplaceAll(path, ".", string(filepath.Separator)) + ".las"
}

// Resolve finds the source file for an Open declaration. fromFile is the
// path of the file containing the `open`, used to search its own directory
// before falling back to the configured roots.
func (r *ModuleResolver) Resolve(path, fromFile string) (string, error) {
	if cached, ok := r.cache[path]; ok {
		return cached, nil
	}

	rel := moduleFileName(path)

	if fromFile != "" {
		candidate := filepath.Join(filepath.Dir(fromFile), rel)
		if _, err := os.Stat(candidate); err == nil {
			r.cache[path] = candidate

			return candidate, nil
		}
	}

	for _, root := range r.Roots {
		found, err := r.searchRoot(root, rel)
		if err != nil {
			return "", err
		}
		if found != "" {
			r.cache[path] = found

			return found, nil
		}
	}

	return "", fmt.Errorf("laminar: cannot resolve open %q: no matching module under %v", path, r.Roots)
}

// searchRoot first tries root/rel directly; failing that, it walks the root
// with gocodewalker and returns the first `.las` file whose base name
// equals rel's base name.
func (r *ModuleResolver) searchRoot(root, rel string) (string, error) {
	direct := filepath.Join(root, rel)
	if _, err := os.Stat(direct); err == nil {
		return direct, nil
	}

	fileListQueue := make(chan *gocodewalker.File, 64)
	walker := gocodewalker.NewFileWalker(root, fileListQueue)
	walker.AllowListExtensions = []string{"las"}

	errs := make(chan error, 1)
	go func() {
		errs <- walker.Start()
	}()

	base := filepath.Base(rel)

	var match string
	for f := range fileListQueue {
		if filepath.Base(f.Location) == base {
			match = f.Location

			break
		}
	}

	// Drain the queue so the walker goroutine can finish even if we broke
	// out of the loop early on a match.
	for range fileListQueue {
	}

	if err := <-errs; err != nil {
		return "", fmt.Errorf("laminar: walking module root %q: %w", root, err)
	}

	return match, nil
}
