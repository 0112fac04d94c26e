package loader

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeature struct {
	name    string
	enabled bool
	err     error
	loaded  bool
}

func (s *stubFeature) Name() string    { return s.name }
func (s *stubFeature) IsEnabled() bool { return s.enabled }

func (s *stubFeature) Load(app fiber.Router) error {
	if s.err != nil {
		return s.err
	}
	s.loaded = true
	app.Get("/"+s.name, func(c *fiber.Ctx) error { return c.SendString(s.name) })
	return nil
}

func TestLoadAll(t *testing.T) {
	mgr := NewManager()
	on := &stubFeature{name: "on", enabled: true}
	off := &stubFeature{name: "off"}
	mgr.Register(on)
	mgr.Register(off)

	app := fiber.New()
	require.NoError(t, mgr.LoadAll(app))

	assert.True(t, on.loaded)
	assert.False(t, off.loaded)
	assert.Len(t, mgr.Features(), 2)

	resp, err := app.Test(httptest.NewRequest("GET", "/on", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/off", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestLoadAllErrors(t *testing.T) {
	t.Run("Load Failure", func(t *testing.T) {
		mgr := NewManager()
		boom := errors.New("boom")
		mgr.Register(&stubFeature{name: "bad", enabled: true, err: boom})

		err := mgr.LoadAll(fiber.New())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("Duplicate", func(t *testing.T) {
		mgr := NewManager()
		mgr.Register(&stubFeature{name: "dup", enabled: true})
		mgr.Register(&stubFeature{name: "dup", enabled: true})

		assert.Error(t, mgr.LoadAll(fiber.New()))
	})
}
