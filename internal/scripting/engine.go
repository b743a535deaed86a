package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM used for schedule run-conditions and
// per-tick gameplay hooks. Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory. A missing directory yields an empty VM.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if scriptsDir == "" {
		return e, nil
	}

	// Top-level scripts first, then feature subdirectories
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	for _, sub := range []string{"conditions", "systems"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory in name order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua source in the engine's global environment.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

func (e *Engine) Close() {
	e.vm.Close()
}

// SetGlobal publishes a number, string or bool to scripts.
func (e *Engine) SetGlobal(name string, v any) {
	switch t := v.(type) {
	case int:
		e.vm.SetGlobal(name, lua.LNumber(t))
	case uint64:
		e.vm.SetGlobal(name, lua.LNumber(t))
	case float64:
		e.vm.SetGlobal(name, lua.LNumber(t))
	case string:
		e.vm.SetGlobal(name, lua.LString(t))
	case bool:
		e.vm.SetGlobal(name, lua.LBool(t))
	default:
		e.log.Warn("unsupported lua global type", zap.String("name", name), zap.String("type", fmt.Sprintf("%T", v)))
	}
}

// Register exposes a Go function to scripts under name.
func (e *Engine) Register(name string, fn lua.LGFunction) {
	e.vm.SetGlobal(name, e.vm.NewFunction(fn))
}

// HasFunction reports whether a global Lua function with this name exists.
func (e *Engine) HasFunction(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// CallHook calls the global Lua function name with args and discards its
// results. A missing function is not an error.
func (e *Engine) CallHook(name string, args ...lua.LValue) error {
	fn, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		return fmt.Errorf("lua %s: %w", name, err)
	}
	return nil
}

// Condition compiles src into a run-condition. src is either the name of a
// global Lua function or an expression such as "not paused and frame > 10".
// Evaluation errors are logged and read as false.
func (e *Engine) Condition(src string) (func() bool, error) {
	var fn *lua.LFunction
	if isIdentifier(src) {
		if f, ok := e.vm.GetGlobal(src).(*lua.LFunction); ok {
			fn = f
		}
	}
	if fn == nil {
		f, err := e.vm.LoadString("return " + src)
		if err != nil {
			return nil, fmt.Errorf("compile condition %q: %w", src, err)
		}
		fn = f
	}
	return func() bool {
		if err := e.vm.CallByParam(lua.P{
			Fn:      fn,
			NRet:    1,
			Protect: true,
		}); err != nil {
			e.log.Error("lua condition failed", zap.String("condition", src), zap.Error(err))
			return false
		}
		ret := e.vm.Get(-1)
		e.vm.Pop(1)
		return lua.LVAsBool(ret)
	}, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
