// Package plugins holds the named backends the service can be assembled
// from. Backends register themselves in init and are selected by config.
package plugins

import (
	"github.com/kilianp07/crisistriage/core/factory"
	"github.com/kilianp07/crisistriage/core/llm"
	corestore "github.com/kilianp07/crisistriage/core/store"
)

var (
	Stores     = factory.NewRegistry[corestore.Store]()
	Generators = factory.NewRegistry[llm.Generator]()
)

func RegisterStore(name string, f factory.Factory[corestore.Store]) error { return Stores.Register(name, f) }
func RegisterGenerator(name string, f factory.Factory[llm.Generator]) error {
	return Generators.Register(name, f)
}
