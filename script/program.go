// Package script runs instrumented test programs written in Lua on the
// simulated target.
//
// A program drives the test port through a small set of globals:
//
//	test(desc)          START_RUN
//	subtest(desc)       START_SUBTEST
//	check(desc, cond)   SUBTEST_PASS or SUBTEST_FAIL
//	ok(desc), fail(desc)
//	write(text), print(...)
//	end_test()          END_RUN
//	poke(addr, value), poke16(addr, value), peek(addr)
//	exit(code)
//
// The program runs as a coroutine. Every call that stores to the bus
// completes its writes and then yields, so one runner step is one register
// operation.
package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/sarchlab/testport/harness"
	"github.com/sarchlab/testport/target"
)

// ErrNotBound is returned by Step before Bind has been called.
var ErrNotBound = errors.New("script is not bound to a target")

// Program is a Lua test program.
type Program struct {
	name   string
	source string

	state  *lua.LState
	co     *lua.LState
	fn     *lua.LFunction
	cancel context.CancelFunc

	bus *target.Bus
	h   *harness.Harness

	exited   bool
	exitCode int64
	done     bool
}

// New creates a program from source. name is used in error messages.
func New(name, source string) *Program {
	return &Program{name: name, source: source}
}

// Load reads a program from a file.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return New(filepath.Base(path), string(data)), nil
}

// Name returns the program name.
func (p *Program) Name() string {
	return p.name
}

// Bind compiles the program against bus with the test port at base. ctx
// bounds the execution of Lua code; it may be nil.
func (p *Program) Bind(ctx context.Context, bus *target.Bus, base uint64, opts ...harness.Option) error {
	if p.state != nil {
		return fmt.Errorf("script %s is already bound", p.name)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	if err := openLibs(L); err != nil {
		L.Close()
		return fmt.Errorf("failed to open Lua libraries: %w", err)
	}
	if ctx != nil {
		L.SetContext(ctx)
	}

	p.state = L
	p.bus = bus
	p.h = harness.New(target.NewPort(bus, base), opts...)
	p.register(L)

	fn, err := L.Load(strings.NewReader(p.source), p.name)
	if err != nil {
		p.Close()
		return fmt.Errorf("failed to compile script: %w", err)
	}
	p.fn = fn
	p.co, p.cancel = L.NewThread()

	return nil
}

// Step resumes the program until its next register operation.
func (p *Program) Step() target.StepResult {
	if p.co == nil {
		return target.StepResult{Err: ErrNotBound}
	}
	if p.done {
		return target.StepResult{Exited: true, ExitCode: p.exitCode}
	}

	st, err := p.resume()
	switch st {
	case lua.ResumeError:
		p.done = true
		return target.StepResult{Err: fmt.Errorf("%s: %w", p.name, err)}
	case lua.ResumeOK:
		p.done = true
		return target.StepResult{Exited: true, ExitCode: p.exitCode}
	}

	if p.exited {
		p.done = true
		return target.StepResult{Exited: true, ExitCode: p.exitCode}
	}

	return target.StepResult{}
}

// resume runs the coroutine up to its next yield. gopher-lua panics when a
// global yields across a Go call boundary such as pcall; that ends the
// program with an error.
func (p *Program) resume() (st lua.ResumeState, err error) {
	defer func() {
		if r := recover(); r != nil {
			st = lua.ResumeError
			err = fmt.Errorf("%v", r)
		}
	}()

	st, err, _ = p.state.Resume(p.co, p.fn)
	return st, err
}

// Close releases the Lua state. It is safe to call more than once.
func (p *Program) Close() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.state != nil {
		p.state.Close()
		p.state = nil
	}
	p.co = nil
}

func openLibs(L *lua.LState) error {
	libs := []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}

	for _, lib := range libs {
		err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name))
		if err != nil {
			return err
		}
	}

	return nil
}
