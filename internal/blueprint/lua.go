package blueprint

import (
	"context"
	"fmt"
	"math"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/idanshimon/protect-web/internal/platform"
)

// luaGlobalBlueprint is the global a script may assign instead of returning.
const luaGlobalBlueprint = "blueprint"

// DecodeLua runs a blueprint script in a sandboxed Lua VM and converts the
// resulting table into a Map. The script either returns a table or assigns
// the global "blueprint". When info is non-nil a read-only "platform" table
// is available to the script.
func DecodeLua(ctx context.Context, code string, info *platform.Info) (*Map, error) {
	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if info != nil {
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	base := L.GetTop()
	if err := L.DoString(code); err != nil {
		return nil, fmt.Errorf("%w: lua: %v", ErrInvalidBlueprint, err)
	}

	result := L.GetGlobal(luaGlobalBlueprint)
	if result.Type() != lua.LTTable && L.GetTop() > base {
		result = L.Get(-1)
	}
	table, ok := result.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: lua script must return a table or set %q, got %s",
			ErrInvalidBlueprint, luaGlobalBlueprint, result.Type())
	}

	v, err := fromLuaValue(table, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBlueprint, err)
	}
	m, ok := v.(*Map)
	if !ok {
		return nil, fmt.Errorf("%w: top-level lua table must have string keys", ErrInvalidBlueprint)
	}
	return m, nil
}

// newSandboxedVM creates a Lua VM with no access to the OS, filesystem or
// module loading. string, table and math stay available.
func newSandboxedVM() *lua.LState {
	L := lua.NewState()
	L.SetGlobal("os", lua.LNil)
	L.SetGlobal("io", lua.LNil)
	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("loadstring", lua.LNil)
	L.SetGlobal("debug", lua.LNil)
	return L
}

const maxLuaDepth = 64

func fromLuaValue(v lua.LValue, depth int) (any, error) {
	if depth > maxLuaDepth {
		return nil, fmt.Errorf("lua table nesting exceeds %d levels", maxLuaDepth)
	}

	switch t := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(t), nil
	case lua.LString:
		return string(t), nil
	case lua.LNumber:
		f := float64(t)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f), nil
		}
		return f, nil
	case *lua.LTable:
		return fromLuaTable(t, depth)
	default:
		return nil, fmt.Errorf("unsupported lua value of type %s", v.Type())
	}
}

// fromLuaTable converts a sequence-like table (keys 1..n) to []any and any
// other table to a Map. Map keys are sorted; Lua does not preserve
// insertion order.
func fromLuaTable(t *lua.LTable, depth int) (any, error) {
	n := t.MaxN()
	var keys []lua.LValue
	t.ForEach(func(k, _ lua.LValue) {
		keys = append(keys, k)
	})

	if n > 0 && len(keys) == n {
		items := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			item, err := fromLuaValue(t.RawGetInt(i), depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	}

	names := make([]string, 0, len(keys))
	for _, k := range keys {
		s, ok := k.(lua.LString)
		if !ok {
			return nil, fmt.Errorf("mixed lua table: key %s is not a string", k.String())
		}
		names = append(names, string(s))
	}
	sort.Strings(names)

	m := NewMap()
	for _, name := range names {
		item, err := fromLuaValue(t.RawGetString(name), depth+1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		m.Set(name, item)
	}
	return m, nil
}
