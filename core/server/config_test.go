package server_test

import (
	"testing"

	"feed-merger/core/server"

	"github.com/stretchr/testify/assert"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name      string
		cfg       server.Config
		address   string
		bodyLimit int
	}{
		{"Defaults", server.Config{Port: "8080", BodyLimitMB: 4}, ":8080", 4 << 20},
		{"Custom", server.Config{Port: "9090", BodyLimitMB: 16}, ":9090", 16 << 20},
		{"Unset Limit", server.Config{Port: "80"}, ":80", 4 << 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.address, tt.cfg.Address())
			assert.Equal(t, tt.bodyLimit, tt.cfg.BodyLimit())
		})
	}
}
