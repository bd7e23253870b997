package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	DSN     string
	Timeout time.Duration
	Pool    int
}

type backendConf struct {
	DSN     string        `json:"dsn"`
	Timeout time.Duration `json:"connect_timeout"`
	Pool    int           `json:"pool_size"`
}

func newBackend(conf map[string]any) (*backend, error) {
	var c backendConf
	if err := Decode(conf, &c); err != nil {
		return nil, err
	}
	return &backend{DSN: c.DSN, Timeout: c.Timeout, Pool: c.Pool}, nil
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*backend]()
	require.NoError(t, reg.Register("Postgres", newBackend))

	b, err := reg.Create(ModuleConfig{Type: " postgres ", Conf: map[string]any{
		"dsn":             "postgres://triage@db/triage",
		"connect_timeout": "5s",
		"pool_size":       "8",
	}})
	require.NoError(t, err)
	assert.Equal(t, "postgres://triage@db/triage", b.DSN)
	assert.Equal(t, 5*time.Second, b.Timeout)
	assert.Equal(t, 8, b.Pool)

	b, err = reg.Create(ModuleConfig{Type: "postgres"})
	require.NoError(t, err)
	assert.Empty(t, b.DSN)
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[*backend]()
	require.NoError(t, reg.Register("memory", newBackend))
	require.NoError(t, reg.Register("postgres", newBackend))

	assert.Error(t, reg.Register("MEMORY", newBackend))
	assert.Error(t, reg.Register("x", nil))
	assert.Error(t, reg.Register("  ", newBackend))

	_, err := reg.Create(ModuleConfig{Type: "mongo"})
	assert.ErrorContains(t, err, `unknown module type "mongo" (known: memory, postgres)`)
	assert.Equal(t, []string{"memory", "postgres"}, reg.Names())
}

func TestDecode_RejectsWrongShape(t *testing.T) {
	var c backendConf
	err := Decode(map[string]any{"pool_size": []string{"a"}}, &c)
	assert.Error(t, err)
}
