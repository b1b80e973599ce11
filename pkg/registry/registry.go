// Package registry provides a central schema registry for table metadata.
package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/nikixstore/storefront/pkg/schema"
)

// Registry is a thread-safe registry for table metadata.
type Registry struct {
	mu     sync.RWMutex
	parser *schema.Parser
	tables map[reflect.Type]*schema.TableMetadata
	names  map[string]*schema.TableMetadata
	order  []string
}

// NewRegistry creates a new Registry instance.
func NewRegistry() *Registry {
	return &Registry{
		parser: schema.NewParser(),
		tables: make(map[reflect.Type]*schema.TableMetadata),
		names:  make(map[string]*schema.TableMetadata),
	}
}

// Register registers a model type and extracts its metadata.
func (r *Registry) Register(model any) error {
	_, err := r.GetOrRegister(model)
	return err
}

// GetOrRegister returns the metadata of model, registering it on first use.
func (r *Registry) GetOrRegister(model any) (*schema.TableMetadata, error) {
	modelType := reflect.TypeOf(model)
	if modelType == nil {
		return nil, fmt.Errorf("model must not be nil")
	}
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}

	r.mu.RLock()
	table, ok := r.tables[modelType]
	r.mu.RUnlock()
	if ok {
		return table, nil
	}

	table, err := r.parser.Parse(modelType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", modelType.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.tables[modelType]; ok {
		return existing, nil
	}
	r.tables[modelType] = table
	r.names[table.Name] = table
	r.order = append(r.order, table.Name)
	return table, nil
}

// Get returns metadata for a registered table name.
func (r *Registry) Get(name string) (*schema.TableMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	table, ok := r.names[name]
	return table, ok
}

// Tables returns every registered table in registration order.
func (r *Registry) Tables() []*schema.TableMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*schema.TableMetadata, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.names[name])
	}
	return out
}

// Names returns the registered table names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var global = NewRegistry()

// Register registers model in the global registry.
func Register(model any) error {
	return global.Register(model)
}

// GetOrRegister resolves model metadata through the global registry.
func GetOrRegister(model any) (*schema.TableMetadata, error) {
	return global.GetOrRegister(model)
}

// Tables returns every table in the global registry.
func Tables() []*schema.TableMetadata {
	return global.Tables()
}
