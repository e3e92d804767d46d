package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// maxSleep caps the duration a plugin can pause for in one sleep() call.
const maxSleep = 5 * time.Second

// request is one execution message sent to the worker.
type request struct {
	id     uint64
	key    string // composite algorithm id, used for log attribution
	fn     string // exported function to invoke: "calculate" or "diff"
	source string
	args   []any
}

// response is one result message sent back by the worker.
type response struct {
	id    uint64
	value any
	err   error
}

// runRequest executes one request on a fresh sandboxed Lua state. The state
// never survives the call: each invocation is stateless from the worker's
// perspective, so any memory the algorithm needs must arrive as arguments.
func (e *Executor) runRequest(req *request) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = v
			case string:
				err = errors.New(v)
			default:
				err = fmt.Errorf("sandbox: lua panic: %v", r)
			}
		}
	}()

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	openSafeLibraries(L)
	e.installSandbox(L, req.key)

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ExecTimeout)
	defer cancel()
	L.SetContext(ctx)

	if err := L.DoString(req.source); err != nil {
		return nil, fmt.Errorf("sandbox: algorithm source failed: %w", err)
	}

	fn := L.GetGlobal(req.fn)
	if fn == lua.LNil || fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: %q", ErrMissingExport, req.fn)
	}

	L.Push(fn)
	for _, arg := range req.args {
		L.Push(toLua(L, arg))
	}
	if err := L.PCall(len(req.args), 1, nil); err != nil {
		return nil, fmt.Errorf("sandbox: %q failed: %w", req.fn, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	return toGo(ret), nil
}

// openSafeLibraries opens only the data/math/collection primitives.
//
// Intentionally NOT opened: io, os, debug, package, channel. The sandbox
// must expose nothing that reaches the filesystem, the process, or module
// loading.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// installSandbox removes the escape hatches base leaves behind and installs
// the wrapped console and the clamped timer primitive.
func (e *Executor) installSandbox(L *lua.LState, key string) {
	dangerous := []string{
		"dofile",
		"loadfile",
		"load",
		"loadstring",
		"require",
		"collectgarbage",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Even though these libraries were never opened, nil the globals so a
	// manifest pointing at hostile source finds nothing usable.
	for _, name := range []string{"io", "os", "debug", "package", "channel"} {
		L.SetGlobal(name, lua.LNil)
	}

	// print forwards out-of-band to the host log channel; it is never
	// correlated with a pending request.
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		e.forwardLog(key, strings.Join(parts, "\t"))
		return 0
	}))

	// now() returns wall-clock milliseconds for interval arithmetic.
	L.SetGlobal("now", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(time.Now().UnixMilli()))
		return 1
	}))

	// sleep(ms) pauses, clamped so a plugin cannot stall the worker past
	// the execution timeout.
	L.SetGlobal("sleep", L.NewFunction(func(L *lua.LState) int {
		d := time.Duration(L.CheckNumber(1)) * time.Millisecond
		if d < 0 {
			d = 0
		}
		if d > maxSleep {
			d = maxSleep
		}
		select {
		case <-time.After(d):
		case <-L.Context().Done():
		}
		return 0
	}))
}
