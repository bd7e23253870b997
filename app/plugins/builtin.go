package plugins

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/crisistriage/core/factory"
	"github.com/kilianp07/crisistriage/core/llm"
	corestore "github.com/kilianp07/crisistriage/core/store"
	"github.com/kilianp07/crisistriage/infra/ai/gemini"
	"github.com/kilianp07/crisistriage/infra/store"
)

const connectTimeout = 10 * time.Second

type storeConf struct {
	DSN            string        `json:"dsn"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
}

type generatorConf struct {
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int32   `json:"max_tokens"`
}

func init() {
	_ = RegisterStore("memory", func(map[string]any) (corestore.Store, error) {
		return store.NewMemoryStore(), nil
	})
	_ = RegisterStore("postgres", func(conf map[string]any) (corestore.Store, error) {
		var c storeConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.DSN == "" {
			return nil, fmt.Errorf("postgres: dsn is required")
		}
		if c.ConnectTimeout <= 0 {
			c.ConnectTimeout = connectTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.ConnectTimeout)
		defer cancel()
		s, err := store.OpenPostgres(ctx, c.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	})

	_ = RegisterGenerator("gemini", func(conf map[string]any) (llm.Generator, error) {
		var c generatorConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		g, err := gemini.NewGenerator(ctx, c.APIKey, gemini.Options{
			Model:           c.Model,
			Temperature:     c.Temperature,
			MaxOutputTokens: c.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	})
}
