package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/testport/config"
)

var _ = Describe("Config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "testport-config-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tmpDir)
	})

	Describe("DefaultConfig", func() {
		It("should use the classic port layout", func() {
			c := config.DefaultConfig()
			Expect(c.BaseAddress).To(Equal(uint64(0x01B0)))
			Expect(c.Revision).To(Equal(config.RevisionClassic))
			Expect(c.StartBudget).To(Equal(uint64(2000)))
			Expect(c.MaxSteps).To(Equal(uint64(0)))
			Expect(c.Brackets()).To(BeFalse())
			Expect(c.Validate()).To(Succeed())
		})
	})

	Describe("LoadConfig", func() {
		It("should keep defaults for missing fields", func() {
			path := filepath.Join(tmpDir, "port.yaml")
			Expect(os.WriteFile(path, []byte("revision: bracketed\nbase_address: 0x0200\n"), 0644)).To(Succeed())

			c, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Revision).To(Equal(config.RevisionBracketed))
			Expect(c.Brackets()).To(BeTrue())
			Expect(c.BaseAddress).To(Equal(uint64(0x200)))
			Expect(c.StartBudget).To(Equal(uint64(2000)))
			Expect(c.Timeout).To(Equal(10 * time.Second))
		})

		It("should fail for a missing file", func() {
			_, err := config.LoadConfig(filepath.Join(tmpDir, "missing.yaml"))
			Expect(err).To(MatchError(ContainSubstring("failed to read config file")))
		})

		It("should fail for malformed YAML", func() {
			path := filepath.Join(tmpDir, "bad.yaml")
			Expect(os.WriteFile(path, []byte("start_budget: [1, 2\n"), 0644)).To(Succeed())

			_, err := config.LoadConfig(path)
			Expect(err).To(MatchError(ContainSubstring("failed to parse config")))
		})
	})

	Describe("SaveConfig", func() {
		It("should round-trip through a file", func() {
			c := config.DefaultConfig()
			c.MaxSteps = 50000
			c.Revision = config.RevisionBracketed

			path := filepath.Join(tmpDir, "saved.yaml")
			Expect(c.SaveConfig(path)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(c))
		})
	})

	Describe("Validate", func() {
		It("should reject an unknown revision", func() {
			c := config.DefaultConfig()
			c.Revision = "v3"
			Expect(c.Validate()).To(MatchError(ContainSubstring("revision must be")))
		})

		It("should reject a zero start budget", func() {
			c := config.DefaultConfig()
			c.StartBudget = 0
			Expect(c.Validate()).To(MatchError("start_budget must be > 0"))
		})

		It("should reject a ceiling below the start budget", func() {
			c := config.DefaultConfig()
			c.MaxSteps = 10
			Expect(c.Validate()).To(MatchError("max_steps must be 0 or >= start_budget"))
		})

		It("should reject a negative timeout", func() {
			c := config.DefaultConfig()
			c.Timeout = -time.Second
			Expect(c.Validate()).To(MatchError("timeout must be >= 0"))
		})
	})

	It("should clone independently", func() {
		c := config.DefaultConfig()
		clone := c.Clone()
		clone.StartBudget = 1
		Expect(c.StartBudget).To(Equal(uint64(2000)))
	})
})
