package script_test

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/testport/harness"
	"github.com/sarchlab/testport/observer"
	"github.com/sarchlab/testport/script"
	"github.com/sarchlab/testport/target"
)

var _ = Describe("Program", func() {
	var (
		bus    *target.Bus
		periph *observer.Peripheral
		prog   *script.Program
	)

	BeforeEach(func() {
		prog = nil
		bus = target.NewBus()
		periph = observer.New(observer.DefaultBase,
			observer.WithRunIDs(func() string { return "lua" }))
		bus.MapIO(periph.Base(), periph.End(), periph)
	})

	AfterEach(func() {
		if prog != nil {
			prog.Close()
		}
	})

	bind := func(source string, opts ...harness.Option) {
		prog = script.New("test.lua", source)
		Expect(prog.Bind(context.Background(), bus, observer.DefaultBase, opts...)).To(Succeed())
	}

	run := func(opts ...target.RunnerOption) (target.Result, error) {
		return target.NewRunner(periph, opts...).Run(prog)
	}

	It("should report a simple run", func() {
		bind(`
			test("suite")
			subtest("mul")
			check("7*9", 7*9 == 63)
			end_test()
		`)

		res, err := run()
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Steps).To(Equal(uint64(4)))
		Expect(res.StartStep).To(Equal(uint64(1)))

		r := periph.Report()
		Expect(r.Description).To(Equal("suite"))
		Expect(r.Events).To(Equal([]observer.Event{
			{Seq: 1, Command: harness.StartRun, Label: "suite"},
			{Seq: 2, Command: harness.StartSubtest, Label: "mul", Subtest: 1},
			{Seq: 3, Command: harness.SubtestPass, Label: "7*9", Subtest: 1},
			{Seq: 4, Command: harness.EndRun},
		}))
	})

	It("should run the arithmetic example", func() {
		var err error
		prog, err = script.Load(filepath.Join("testdata", "arith.lua"))
		Expect(err).NotTo(HaveOccurred())
		Expect(prog.Name()).To(Equal("arith.lua"))
		Expect(prog.Bind(context.Background(), bus, observer.DefaultBase)).To(Succeed())

		_, err = run()
		Expect(err).NotTo(HaveOccurred())

		r := periph.Report()
		Expect(r.Subtests).To(Equal(3))
		Expect(r.Passed).To(Equal(5))
		Expect(r.Failed).To(Equal(1))
		Expect(r.Violations).To(BeEmpty())
		Expect(r.OK()).To(BeFalse())
	})

	It("should narrate with write and print", func() {
		var err error
		prog, err = script.Load(filepath.Join("testdata", "narrate.lua"))
		Expect(err).NotTo(HaveOccurred())
		Expect(prog.Bind(context.Background(), bus, observer.DefaultBase)).To(Succeed())

		_, err = run()
		Expect(err).NotTo(HaveOccurred())

		r := periph.Report()
		Expect(r.Description).To(Equal("booting\nnarrate\n"))
		Expect(r.Events[2].Label).To(Equal("total\t55\n1..10\n"))
		Expect(r.OK()).To(BeTrue())
	})

	It("should use the bracketed revision when asked", func() {
		bind(`
			test("r")
			subtest("s")
			write("working")
			ok("done")
			end_test()
		`, harness.WithExecuteBrackets())

		_, err := run()
		Expect(err).NotTo(HaveOccurred())
		Expect(periph.Report().Notes).To(Equal([]string{"working"}))
	})

	It("should report unconditional outcomes", func() {
		bind(`
			test()
			subtest()
			ok("yes")
			fail("no")
			end_test()
		`)

		_, err := run()
		Expect(err).NotTo(HaveOccurred())
		Expect(periph.Report().Passed).To(Equal(1))
		Expect(periph.Report().Failed).To(Equal(1))
	})

	It("should count one step per register operation", func() {
		bind(`
			for i = 1, 5 do poke(0x200 + i, i) end
			test("late")
			end_test()
		`)

		res, err := run(target.WithStartBudget(6))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.StartStep).To(Equal(uint64(6)))
		Expect(bus.Read8(0x203)).To(Equal(uint8(3)))
	})

	It("should reject a program that misses the start budget", func() {
		bind(`
			for i = 1, 100 do poke(0x200, i) end
			test("too late")
		`)

		_, err := run(target.WithStartBudget(50))
		Expect(errors.Is(err, target.ErrNotATestProgram)).To(BeTrue())
	})

	It("should let programs write the registers directly", func() {
		bind(`
			poke(0x01B1, string.byte("r"))
			poke(0x01B0, 0x10)
			peeked = peek(0x01B0)
			poke(0x01B0, 0x11)
		`)

		_, err := run()
		Expect(err).NotTo(HaveOccurred())
		Expect(periph.Report().Description).To(Equal("r"))
		Expect(periph.Ended()).To(BeTrue())
	})

	It("should flag word stores to the port", func() {
		bind(`
			poke16(0x01B0, 0x10)
			end_test()
		`)

		_, err := run()
		Expect(err).NotTo(HaveOccurred())
		Expect(periph.Report().Violations).To(HaveLen(1))
	})

	It("should report a program that exits early", func() {
		bind(`
			test("r")
			exit(4)
			end_test()
		`)

		res, err := run()
		Expect(errors.Is(err, target.ErrExitedEarly)).To(BeTrue())
		Expect(res.ExitCode).To(Equal(int64(4)))
	})

	It("should report a program that returns before END_RUN", func() {
		bind(`test("r")`)

		res, err := run()
		Expect(errors.Is(err, target.ErrExitedEarly)).To(BeTrue())
		Expect(res.Exited).To(BeTrue())
	})

	It("should surface Lua runtime errors", func() {
		bind(`
			test("r")
			check("not a bool", 1)
		`)

		_, err := run()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("test.lua"))
	})

	It("should fail to bind a program that does not compile", func() {
		prog = script.New("broken.lua", "test(")
		err := prog.Bind(context.Background(), bus, observer.DefaultBase)
		Expect(err).To(MatchError(ContainSubstring("failed to compile script")))
	})

	It("should close a program that failed to compile more than once", func() {
		p := script.New("broken.lua", "test(")
		Expect(p.Bind(context.Background(), bus, observer.DefaultBase)).NotTo(Succeed())
		Expect(p.Close).NotTo(Panic())
		Expect(p.Close).NotTo(Panic())
		Expect(p.Step().Err).To(MatchError(script.ErrNotBound))
	})

	It("should turn a yield across pcall into a step error", func() {
		bind(`
			test("r")
			subtest("s")
			print(pcall(check, "c", true))
			end_test()
		`)

		var err error
		Expect(func() { _, err = run() }).NotTo(Panic())
		Expect(err).To(MatchError(ContainSubstring("yield")))
		Expect(periph.Ended()).To(BeFalse())
		Expect(prog.Step().Exited).To(BeTrue())
	})

	It("should not charge peeks against the start budget", func() {
		bind(`
			local sum = 0
			for i = 1, 100 do sum = sum + peek(0x200 + i) end
			test("after peeks")
			end_test()
		`)

		res, err := run(target.WithStartBudget(5))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.StartStep).To(Equal(uint64(1)))
	})

	It("should refuse to step before binding", func() {
		p := script.New("idle.lua", "")
		Expect(p.Step().Err).To(MatchError(script.ErrNotBound))
	})

	It("should refuse to bind twice", func() {
		bind(`end_test()`)
		Expect(prog.Bind(context.Background(), bus, observer.DefaultBase)).To(HaveOccurred())
	})

	It("should stop a runaway program when the context expires", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		prog = script.New("spin.lua", `test("r") while true do end`)
		Expect(prog.Bind(ctx, bus, observer.DefaultBase)).To(Succeed())

		_, err := run()
		Expect(err).To(HaveOccurred())
	})

	It("should fail to load a missing file", func() {
		_, err := script.Load(filepath.Join("testdata", "missing.lua"))
		Expect(err).To(MatchError(ContainSubstring("failed to read script")))
	})
})
