// Package registry tracks available docstore backends by name.
package registry

import (
	"sort"
	"sync"

	"github.com/autom8ter/querykit/docstore"
	"github.com/autom8ter/querykit/errors"
)

// Opener opens a document store from loosely typed params
type Opener func(params map[string]interface{}) (docstore.Store, error)

var (
	mu                sync.RWMutex
	registeredOpeners = map[string]Opener{}
)

// Register registers a store opener by name. Backends call Register from
// their init functions.
func Register(name string, opener Opener) {
	mu.Lock()
	defer mu.Unlock()
	registeredOpeners[name] = opener
}

// Open opens a registered document store
func Open(name string, params map[string]interface{}) (docstore.Store, error) {
	mu.RLock()
	opener, ok := registeredOpeners[name]
	mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.NotFound, "%s is not registered", name)
	}
	return opener(params)
}

// Drivers returns the sorted names of the registered backends
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registeredOpeners))
	for name := range registeredOpeners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
