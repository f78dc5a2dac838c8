package registry_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/wipeguard/wipeguard/internal/audit"
	"github.com/wipeguard/wipeguard/internal/config"
	"github.com/wipeguard/wipeguard/internal/events"
	"github.com/wipeguard/wipeguard/internal/executor"
	"github.com/wipeguard/wipeguard/internal/inventory"
	"github.com/wipeguard/wipeguard/internal/registry"
	"github.com/wipeguard/wipeguard/internal/safety"
	"github.com/wipeguard/wipeguard/internal/store"
)

func TestRegistry(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Registry Suite")
}

// fakeExecutor lets each test script the executor's output and exit.
type fakeExecutor struct {
	mu   sync.Mutex
	runs map[uuid.UUID]chan executor.Event

	started chan uuid.UUID
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		runs:    make(map[uuid.UUID]chan executor.Event),
		started: make(chan uuid.UUID, 16),
	}
}

func (f *fakeExecutor) Run(ctx context.Context, jobID uuid.UUID, target string) (<-chan executor.Event, error) {
	ch := make(chan executor.Event, 64)
	f.mu.Lock()
	f.runs[jobID] = ch
	f.mu.Unlock()
	f.started <- jobID

	go func() {
		<-ctx.Done()
	}()
	return ch, nil
}

func (f *fakeExecutor) emit(jobID uuid.UUID, line string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[jobID] <- executor.Event{Line: line}
}

func (f *fakeExecutor) exit(jobID uuid.UUID, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[jobID] <- executor.Event{Exited: true, ExitCode: code}
	close(f.runs[jobID])
}

var _ = Describe("registry", Ordered, func() {
	var (
		s           store.Store
		gormdb      *gorm.DB
		trail       *audit.Trail
		broadcaster *events.Broadcaster
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		gormdb = db

		s = store.NewStore(db)
		Expect(s.InitialMigration()).To(Succeed())

		trail = audit.NewTrail(s)
		broadcaster = events.NewBroadcaster(&events.StdoutWriter{})
	})

	AfterAll(func() {
		_ = broadcaster.Close()
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM audit_entries;")
	})

	devices := []inventory.Device{
		{ID: "disk-1", Identifier: "/dev/sdz", Label: "scratch disk"},
		{ID: "disk-2", Identifier: "/dev/sdy", Label: "spare disk"},
	}

	newRegistry := func(cfg registry.Config, exec executor.Executor) *registry.Registry {
		validator := safety.NewValidator(
			inventory.NewStatic(devices),
			trail,
			safety.NewRateLimiter(100, time.Minute),
			[]string{"/"},
			[]string{"C:"},
		)
		return registry.New(cfg, validator, trail, broadcaster, exec)
	}

	request := func(target string) registry.CreateRequest {
		return registry.CreateRequest{
			Target:             target,
			TargetType:         "device",
			ConfirmationPhrase: safety.ExpectedPhrase(target),
			CallerKey:          "caller-a",
		}
	}

	Context("create", func() {
		It("rejects an unsafe request without admitting a job", func() {
			reg := newRegistry(registry.DefaultConfig(), newFakeExecutor())

			_, err := reg.Create(context.TODO(), registry.CreateRequest{
				Target:             "/dev/sdz",
				ConfirmationPhrase: "/dev/sdz yes",
				CallerKey:          "caller-a",
			})
			var rejection *safety.Rejection
			Expect(err).To(BeAssignableToTypeOf(rejection))
			Expect(reg.ListActive()).To(BeEmpty())
		})

		It("runs a job to completion and records the lifecycle", func() {
			exec := newFakeExecutor()
			reg := newRegistry(registry.DefaultConfig(), exec)

			snapshot, err := reg.Create(context.TODO(), request("/dev/sdz"))
			Expect(err).To(BeNil())
			Expect(snapshot.Status).To(Equal(registry.StatusInitializing))

			var jobID uuid.UUID
			Eventually(exec.started, time.Second).Should(Receive(&jobID))
			Expect(jobID).To(Equal(snapshot.ID))

			Eventually(func() registry.JobStatus {
				s, _ := reg.Get(jobID)
				return s.Status
			}, time.Second).Should(Equal(registry.StatusRunning))

			exec.emit(jobID, "starting erase of /dev/sdz")
			exec.emit(jobID, "writing pass 1 of 3")
			exec.emit(jobID, "erase complete")
			exec.exit(jobID, 0)

			Eventually(func() registry.JobStatus {
				s, _ := reg.Get(jobID)
				return s.Status
			}, time.Second).Should(Equal(registry.StatusCompleted))

			final, err := reg.Get(jobID)
			Expect(err).To(BeNil())
			Expect(final.Progress).To(Equal(100))
			Expect(final.CompletedAt).ToNot(BeNil())
			Expect(final.LogLines).To(HaveLen(3))

			entries, _, err := trail.Query(context.TODO(), audit.Filter{JobID: &jobID}, 1, 50)
			Expect(err).To(BeNil())
			actions := make([]string, 0, len(entries))
			for _, e := range entries {
				actions = append(actions, e.Action)
			}
			Expect(actions).To(ContainElements(audit.ActionJobStarted, audit.ActionJobRunning, audit.ActionJobCompleted))
		})

		It("marks a job failed when the executor exits non-zero", func() {
			exec := newFakeExecutor()
			reg := newRegistry(registry.DefaultConfig(), exec)

			snapshot, err := reg.Create(context.TODO(), request("/dev/sdy"))
			Expect(err).To(BeNil())

			var jobID uuid.UUID
			Eventually(exec.started, time.Second).Should(Receive(&jobID))
			exec.emit(jobID, "starting erase of /dev/sdy")
			exec.exit(jobID, 3)

			Eventually(func() registry.JobStatus {
				s, _ := reg.Get(jobID)
				return s.Status
			}, time.Second).Should(Equal(registry.StatusFailed))

			final, _ := reg.Get(snapshot.ID)
			Expect(final.StatusMessage).To(ContainSubstring("code 3"))
		})
	})

	Context("progress", func() {
		It("never moves progress backward", func() {
			exec := newFakeExecutor()
			reg := newRegistry(registry.DefaultConfig(), exec)

			_, err := reg.Create(context.TODO(), request("/dev/sdz"))
			Expect(err).To(BeNil())

			var jobID uuid.UUID
			Eventually(exec.started, time.Second).Should(Receive(&jobID))

			exec.emit(jobID, "writing pass 2 of 3")
			Eventually(func() int {
				s, _ := reg.Get(jobID)
				return s.Progress
			}, time.Second).Should(Equal(45))

			// a regression milestone is dropped
			exec.emit(jobID, "writing pass 1 of 3")
			exec.emit(jobID, "unrelated output")
			Eventually(func() int {
				s, _ := reg.Get(jobID)
				return len(s.LogLines)
			}, time.Second).Should(Equal(3))
			s, _ := reg.Get(jobID)
			Expect(s.Progress).To(Equal(45))

			exec.exit(jobID, 0)
		})

		It("trims the log buffer to the newest half past the cap", func() {
			cfg := registry.DefaultConfig()
			cfg.LogLineCap = 10
			exec := newFakeExecutor()
			reg := newRegistry(cfg, exec)

			_, err := reg.Create(context.TODO(), request("/dev/sdz"))
			Expect(err).To(BeNil())

			var jobID uuid.UUID
			Eventually(exec.started, time.Second).Should(Receive(&jobID))

			for i := 0; i < 11; i++ {
				exec.emit(jobID, "output line")
			}
			exec.emit(jobID, "last line")

			Eventually(func() []string {
				s, _ := reg.Get(jobID)
				return s.LogLines
			}, time.Second).Should(HaveLen(6))

			s, _ := reg.Get(jobID)
			Expect(s.LogLines[len(s.LogLines)-1]).To(Equal("last line"))

			exec.exit(jobID, 0)
		})
	})

	Context("cancel", func() {
		It("cancels a running job when the executor acknowledges", func() {
			exec := newFakeExecutor()
			reg := newRegistry(registry.DefaultConfig(), exec)

			_, err := reg.Create(context.TODO(), request("/dev/sdz"))
			Expect(err).To(BeNil())

			var jobID uuid.UUID
			Eventually(exec.started, time.Second).Should(Receive(&jobID))
			Eventually(func() registry.JobStatus {
				s, _ := reg.Get(jobID)
				return s.Status
			}, time.Second).Should(Equal(registry.StatusRunning))

			snapshot, err := reg.Cancel(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(snapshot.Status).To(Equal(registry.StatusCancelling))

			// the executor acknowledges by closing its event stream
			exec.exit(jobID, 0)

			Eventually(func() registry.JobStatus {
				s, _ := reg.Get(jobID)
				return s.Status
			}, time.Second).Should(Equal(registry.StatusCancelled))
		})

		It("forces termination when the executor ignores the stop request", func() {
			cfg := registry.DefaultConfig()
			cfg.CancelGracePeriod = 50 * time.Millisecond
			exec := newFakeExecutor()
			reg := newRegistry(cfg, exec)

			_, err := reg.Create(context.TODO(), request("/dev/sdz"))
			Expect(err).To(BeNil())

			var jobID uuid.UUID
			Eventually(exec.started, time.Second).Should(Receive(&jobID))
			Eventually(func() registry.JobStatus {
				s, _ := reg.Get(jobID)
				return s.Status
			}, time.Second).Should(Equal(registry.StatusRunning))

			_, err = reg.Cancel(context.TODO(), jobID)
			Expect(err).To(BeNil())

			// no acknowledgement: the grace timer forces the terminal state
			Eventually(func() registry.JobStatus {
				s, _ := reg.Get(jobID)
				return s.Status
			}, time.Second).Should(Equal(registry.StatusCancelled))

			final, _ := reg.Get(jobID)
			Expect(final.StatusMessage).To(ContainSubstring("forced termination"))

			entries, _, err := trail.Query(context.TODO(), audit.Filter{JobID: &jobID, Action: audit.ActionJobCancelForced}, 1, 10)
			Expect(err).To(BeNil())
			Expect(entries).To(HaveLen(1))
		})

		It("is idempotent while cancellation is pending", func() {
			cfg := registry.DefaultConfig()
			cfg.CancelGracePeriod = time.Minute
			exec := newFakeExecutor()
			reg := newRegistry(cfg, exec)

			_, err := reg.Create(context.TODO(), request("/dev/sdz"))
			Expect(err).To(BeNil())

			var jobID uuid.UUID
			Eventually(exec.started, time.Second).Should(Receive(&jobID))
			Eventually(func() registry.JobStatus {
				s, _ := reg.Get(jobID)
				return s.Status
			}, time.Second).Should(Equal(registry.StatusRunning))

			first, err := reg.Cancel(context.TODO(), jobID)
			Expect(err).To(BeNil())
			second, err := reg.Cancel(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(second.Status).To(Equal(first.Status))

			exec.exit(jobID, 0)
		})

		It("conflicts on a terminal job", func() {
			exec := newFakeExecutor()
			reg := newRegistry(registry.DefaultConfig(), exec)

			_, err := reg.Create(context.TODO(), request("/dev/sdz"))
			Expect(err).To(BeNil())

			var jobID uuid.UUID
			Eventually(exec.started, time.Second).Should(Receive(&jobID))
			exec.exit(jobID, 0)

			Eventually(func() registry.JobStatus {
				s, _ := reg.Get(jobID)
				return s.Status
			}, time.Second).Should(Equal(registry.StatusCompleted))

			_, err = reg.Cancel(context.TODO(), jobID)
			Expect(err).To(MatchError(registry.ErrJobConflict))
		})

		It("reports not-found for an unknown job", func() {
			reg := newRegistry(registry.DefaultConfig(), newFakeExecutor())
			_, err := reg.Cancel(context.TODO(), uuid.New())
			Expect(err).To(MatchError(registry.ErrJobNotFound))
		})
	})

	Context("history", func() {
		It("retains terminal jobs through the grace period, then migrates them", func() {
			cfg := registry.DefaultConfig()
			cfg.HistoryGracePeriod = 50 * time.Millisecond
			exec := newFakeExecutor()
			reg := newRegistry(cfg, exec)

			_, err := reg.Create(context.TODO(), request("/dev/sdz"))
			Expect(err).To(BeNil())

			var jobID uuid.UUID
			Eventually(exec.started, time.Second).Should(Receive(&jobID))
			exec.exit(jobID, 0)

			Eventually(func() registry.JobStatus {
				s, _ := reg.Get(jobID)
				return s.Status
			}, time.Second).Should(Equal(registry.StatusCompleted))

			// within the grace period the job is still listed active
			Expect(reg.ListActive()).To(HaveLen(1))
			Expect(reg.ListHistory(0)).To(BeEmpty())

			time.Sleep(60 * time.Millisecond)
			reg.Sweep(time.Now().UTC())

			Expect(reg.ListActive()).To(BeEmpty())
			history := reg.ListHistory(0)
			Expect(history).To(HaveLen(1))
			Expect(history[0].ID).To(Equal(jobID))

			// the job is still retrievable after migration
			s, err := reg.Get(jobID)
			Expect(err).To(BeNil())
			Expect(s.Status).To(Equal(registry.StatusCompleted))
		})

		It("evicts the oldest history entries past the cap", func() {
			cfg := registry.DefaultConfig()
			cfg.HistoryGracePeriod = 0
			cfg.HistoryCap = 4
			exec := newFakeExecutor()
			reg := newRegistry(cfg, exec)

			var ids []uuid.UUID
			for i := 0; i < 5; i++ {
				_, err := reg.Create(context.TODO(), request("/dev/sdz"))
				Expect(err).To(BeNil())

				var jobID uuid.UUID
				Eventually(exec.started, time.Second).Should(Receive(&jobID))
				exec.exit(jobID, 0)
				Eventually(func() registry.JobStatus {
					s, _ := reg.Get(jobID)
					return s.Status
				}, time.Second).Should(Equal(registry.StatusCompleted))

				ids = append(ids, jobID)
				reg.Sweep(time.Now().UTC().Add(time.Second))
			}

			history := reg.ListHistory(0)
			Expect(history).To(HaveLen(2))
			// newest first, oldest entries evicted
			Expect(history[0].ID).To(Equal(ids[4]))
			Expect(history[1].ID).To(Equal(ids[3]))
		})
	})
})
