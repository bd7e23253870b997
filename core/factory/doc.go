// Package factory builds pluggable modules, such as request stores, LLM
// generators and metrics sinks, from a type name and a map of raw settings.
//
//	stores := factory.NewRegistry[store.Store]()
//	_ = stores.Register("postgres", func(conf map[string]any) (store.Store, error) {
//	    var c struct{ DSN string `json:"dsn"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return openPostgres(c.DSN)
//	})
//	st, err := stores.Create(factory.ModuleConfig{Type: "postgres", Conf: map[string]any{"dsn": dsn}})
package factory
