package script

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

func (p *Program) register(L *lua.LState) {
	globals := map[string]lua.LGFunction{
		"test":     p.luaTest,
		"subtest":  p.luaSubtest,
		"check":    p.luaCheck,
		"ok":       p.luaOK,
		"fail":     p.luaFail,
		"write":    p.luaWrite,
		"print":    p.luaPrint,
		"end_test": p.luaEndTest,
		"poke":     p.luaPoke,
		"poke16":   p.luaPoke16,
		"peek":     p.luaPeek,
		"exit":     p.luaExit,
	}

	for name, fn := range globals {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

func (p *Program) luaTest(L *lua.LState) int {
	p.h.StartRun(L.OptString(1, ""))
	return L.Yield()
}

func (p *Program) luaSubtest(L *lua.LState) int {
	p.h.StartSubtest(L.OptString(1, ""))
	return L.Yield()
}

func (p *Program) luaCheck(L *lua.LState) int {
	desc := L.CheckString(1)
	cond := L.CheckBool(2)
	p.h.Check(desc, cond)
	return L.Yield()
}

func (p *Program) luaOK(L *lua.LState) int {
	p.h.Pass(L.OptString(1, ""))
	return L.Yield()
}

func (p *Program) luaFail(L *lua.LState) int {
	p.h.Fail(L.OptString(1, ""))
	return L.Yield()
}

func (p *Program) luaWrite(L *lua.LState) int {
	p.h.Note(L.CheckString(1))
	return L.Yield()
}

// luaPrint narrates its arguments on the output register, tab separated
// and newline terminated like the standard print.
func (p *Program) luaPrint(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	p.h.Note(strings.Join(parts, "\t") + "\n")
	return L.Yield()
}

func (p *Program) luaEndTest(L *lua.LState) int {
	p.h.EndRun()
	return L.Yield()
}

func (p *Program) luaPoke(L *lua.LState) int {
	addr := L.CheckInt64(1)
	value := L.CheckInt(2)
	p.bus.Write8(uint64(addr), uint8(value))
	return L.Yield()
}

func (p *Program) luaPoke16(L *lua.LState) int {
	addr := L.CheckInt64(1)
	value := L.CheckInt(2)
	p.bus.Write16(uint64(addr), uint16(value))
	return L.Yield()
}

func (p *Program) luaPeek(L *lua.LState) int {
	addr := L.CheckInt64(1)
	L.Push(lua.LNumber(p.bus.Read8(uint64(addr))))
	return 1
}

func (p *Program) luaExit(L *lua.LState) int {
	p.exitCode = int64(L.OptInt(1, 0))
	p.exited = true
	return L.Yield()
}
