//go:build linux || darwin

package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heap2d/internal/format"
)

func Test_Config_Predefined_Valid(t *testing.T) {
	for _, cfg := range []Config{ConfigDefault, ConfigCompact, ConfigLarge, DefaultConfig()} {
		require.NoError(t, cfg.Validate(), cfg.Name)
	}
}

func Test_Config_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"arena pages not pow2", func(c *Config) { c.ArenaPages = 12 }},
		{"arena pages too small", func(c *Config) { c.ArenaPages = 1 }},
		{"arena pages too large", func(c *Config) { c.ArenaPages = 1 << 20 }},
		{"object size not multiple of 8", func(c *Config) { c.MaxObjectSize = 500 }},
		{"object size too large", func(c *Config) { c.MaxObjectSize = format.MaxObjectMaxSize + 8 }},
		{"object size too large for arena", func(c *Config) { c.ArenaPages = 2; c.MaxObjectSize = 4096 }},
		{"buckets not pow2", func(c *Config) { c.TableBuckets = 1000 }},
		{"buckets zero", func(c *Config) { c.TableBuckets = 0 }},
		{"negative load", func(c *Config) { c.TableMaxLoad = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

			a, err := New(cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)
			require.Nil(t, a)
		})
	}
}

func Test_Config_LayoutDerived(t *testing.T) {
	a := newTestAllocator(t, DefaultConfig())
	require.Equal(t, 64, a.layout.ClassCount)
	require.Equal(t, 16*format.PageSize, a.layout.ArenaSize)
	require.Equal(t, format.DefaultTableBuckets, a.TableBucketCount())
	require.Equal(t, "Default", a.Config().Name)
}

func Test_Config_Geometry(t *testing.T) {
	a := newTestAllocator(t, DefaultConfig())
	g := a.Geometry()
	require.Equal(t, Geometry{
		PageSize:         4096,
		ArenaPages:       16,
		ArenaSize:        65536,
		ClassCount:       64,
		ObjectMaxSize:    512,
		VarlenMaxPayload: 65456,
		SplitThreshold:   536,
	}, g)
}
