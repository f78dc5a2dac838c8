package safety_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/wipeguard/wipeguard/internal/audit"
	"github.com/wipeguard/wipeguard/internal/config"
	"github.com/wipeguard/wipeguard/internal/inventory"
	"github.com/wipeguard/wipeguard/internal/safety"
	"github.com/wipeguard/wipeguard/internal/store"
)

func TestSafety(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Safety Suite")
}

var _ = Describe("validator", Ordered, func() {
	var (
		s     store.Store
		trail *audit.Trail
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		Expect(s.InitialMigration()).To(Succeed())

		trail = audit.NewTrail(s)
	})

	AfterAll(func() {
		s.Close()
	})

	newValidator := func(devices []inventory.Device) *safety.Validator {
		return safety.NewValidator(
			inventory.NewStatic(devices),
			trail,
			safety.NewRateLimiter(3, 10*time.Minute),
			[]string{"C:", "/", "/boot", "/boot/efi", "/var"},
			[]string{"C:", "/dev/sda", "/boot", "EFI"},
		)
	}

	scratchDisk := []inventory.Device{
		{ID: "disk-1", Identifier: "/dev/sdz", Label: "scratch disk", SizeBytes: 1 << 30, Removable: true},
	}

	Context("target existence", func() {
		It("rejects a target missing from the inventory", func() {
			v := newValidator(scratchDisk)
			result, err := v.Validate(context.TODO(), "/dev/sdq", safety.ExpectedPhrase("/dev/sdq"), "caller-a")
			Expect(err).To(BeNil())
			Expect(result.Passed).To(BeFalse())
			Expect(failed(result)).To(ContainElement(safety.CheckTargetExists))
		})

		It("matches inventory identifiers case-insensitively", func() {
			v := newValidator(scratchDisk)
			result, err := v.Validate(context.TODO(), "/DEV/SDZ", safety.ExpectedPhrase("/DEV/SDZ"), "caller-b")
			Expect(err).To(BeNil())
			Expect(failed(result)).ToNot(ContainElement(safety.CheckTargetExists))
		})
	})

	Context("confirmation phrase", func() {
		It("accepts the exact uppercase phrase", func() {
			v := newValidator(scratchDisk)
			result, err := v.Validate(context.TODO(), "/dev/sdz", "/DEV/SDZ YES", "caller-c")
			Expect(err).To(BeNil())
			Expect(result.Passed).To(BeTrue())
		})

		It("rejects a lowercase phrase", func() {
			v := newValidator(scratchDisk)
			result, err := v.Validate(context.TODO(), "/dev/sdz", "/dev/sdz yes", "caller-d")
			Expect(err).To(BeNil())
			Expect(result.Passed).To(BeFalse())
			Expect(failed(result)).To(Equal([]string{safety.CheckConfirmationPhrase}))
		})

		It("rejects a phrase with mixed case", func() {
			v := newValidator(scratchDisk)
			result, err := v.Validate(context.TODO(), "/dev/sdz", "/Dev/Sdz Yes", "caller-e")
			Expect(err).To(BeNil())
			Expect(failed(result)).To(ContainElement(safety.CheckConfirmationPhrase))
		})
	})

	Context("protected resources", func() {
		It("rejects a denylisted target even with a correct phrase", func() {
			devices := append(scratchDisk, inventory.Device{ID: "disk-2", Identifier: "/boot", Label: "boot volume"})
			v := newValidator(devices)
			result, err := v.Validate(context.TODO(), "/boot", safety.ExpectedPhrase("/boot"), "caller-f")
			Expect(err).To(BeNil())
			Expect(result.Passed).To(BeFalse())
			Expect(failed(result)).To(ContainElement(safety.CheckProtectedResource))
		})

		It("rejects a target matching a protected prefix", func() {
			devices := append(scratchDisk, inventory.Device{ID: "disk-3", Identifier: "/dev/sda2", Label: "data"})
			v := newValidator(devices)
			result, err := v.Validate(context.TODO(), "/dev/sda2", safety.ExpectedPhrase("/dev/sda2"), "caller-g")
			Expect(err).To(BeNil())
			Expect(failed(result)).To(ContainElement(safety.CheckProtectedResource))
		})

		It("rejects a device whose label names a system resource", func() {
			devices := []inventory.Device{{ID: "disk-4", Identifier: "/dev/sdy", Label: "System Reserved"}}
			v := newValidator(devices)
			result, err := v.Validate(context.TODO(), "/dev/sdy", safety.ExpectedPhrase("/dev/sdy"), "caller-h")
			Expect(err).To(BeNil())
			Expect(failed(result)).To(ContainElement(safety.CheckProtectedResource))
		})

		It("honours the inventory's advisory protected flag as a deny", func() {
			devices := []inventory.Device{{ID: "disk-5", Identifier: "/dev/sdx", Label: "backup", Protected: true}}
			v := newValidator(devices)
			result, err := v.Validate(context.TODO(), "/dev/sdx", safety.ExpectedPhrase("/dev/sdx"), "caller-i")
			Expect(err).To(BeNil())
			Expect(failed(result)).To(ContainElement(safety.CheckProtectedResource))
		})

		It("writes a single critical audit entry for the rejection", func() {
			devices := append(scratchDisk, inventory.Device{ID: "disk-6", Identifier: "/dev/sda9", Label: "data"})
			v := newValidator(devices)
			_, err := v.Validate(context.TODO(), "/dev/sda9", safety.ExpectedPhrase("/dev/sda9"), "caller-j")
			Expect(err).To(BeNil())

			entries, _, err := trail.Query(context.TODO(), audit.Filter{
				Category: audit.CategorySafety,
				Customer: "caller-j",
			}, 1, 50)
			Expect(err).To(BeNil())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Action).To(Equal(audit.ActionProtectedResource))
			Expect(entries[0].Severity).To(Equal(audit.SeverityCritical))
		})
	})

	Context("rate limiting", func() {
		It("rejects the attempt beyond the limit with a bounded retry-after", func() {
			v := newValidator(scratchDisk)

			for i := 0; i < 3; i++ {
				result, err := v.Validate(context.TODO(), "/dev/sdz", safety.ExpectedPhrase("/dev/sdz"), "caller-k")
				Expect(err).To(BeNil())
				Expect(result.Passed).To(BeTrue())
			}

			result, err := v.Validate(context.TODO(), "/dev/sdz", safety.ExpectedPhrase("/dev/sdz"), "caller-k")
			Expect(err).To(BeNil())
			Expect(result.Passed).To(BeFalse())
			Expect(failed(result)).To(Equal([]string{safety.CheckRateLimit}))
			Expect(result.RetryAfter).To(BeNumerically(">", 0))
			Expect(result.RetryAfter).To(BeNumerically("<=", 10*time.Minute))
		})
	})

	Context("infrastructure faults", func() {
		It("returns an error rather than a rejection when the inventory is unreachable", func() {
			v := safety.NewValidator(
				failingInventory{},
				trail,
				safety.NewRateLimiter(3, 10*time.Minute),
				nil, nil,
			)
			_, err := v.Validate(context.TODO(), "/dev/sdz", safety.ExpectedPhrase("/dev/sdz"), "caller-l")
			Expect(err).ToNot(BeNil())
		})
	})
})

func failed(result safety.Result) []string {
	var names []string
	for _, c := range result.Checks {
		if !c.Passed {
			names = append(names, c.Name)
		}
	}
	return names
}

type failingInventory struct{}

func (failingInventory) ListTargets(ctx context.Context) ([]inventory.Device, error) {
	return nil, context.DeadlineExceeded
}
