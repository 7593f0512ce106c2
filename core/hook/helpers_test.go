package hook_test

import (
	"io"
	"sync/atomic"

	"github.com/dmitrymomot/hookflow/core/hook"
)

type testCtx struct {
	sent     atomic.Bool
	hijacked atomic.Bool
	payload  io.Reader
	trace    []string
}

func (c *testCtx) Sent() bool             { return c.sent.Load() }
func (c *testCtx) Hijacked() bool         { return c.hijacked.Load() }
func (c *testCtx) Payload() io.Reader     { return c.payload }
func (c *testCtx) SetPayload(r io.Reader) { c.payload = r }
func (c *testCtx) record(name string)     { c.trace = append(c.trace, name) }

func newRegistry() *hook.Registry[*testCtx] {
	return hook.NewRegistry[*testCtx](nil)
}

func tracer(name string) func(*testCtx) error {
	return func(c *testCtx) error {
		c.record(name)
		return nil
	}
}
