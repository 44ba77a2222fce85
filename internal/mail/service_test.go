package mail

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/project-console/internal"
	"github.com/frahmantamala/project-console/internal/core/events"
	"github.com/frahmantamala/project-console/internal/realtime"
	"github.com/frahmantamala/project-console/pkg/logger"
)

type mockMailRepo struct {
	mu sync.Mutex

	inboxFunc  func(ctx context.Context) ([]RawThread, error)
	sentFunc   func(ctx context.Context) ([]RawThread, error)
	allFunc    func(ctx context.Context) ([]RawThread, error)
	threadFunc func(ctx context.Context, threadID string) (*RawThread, error)
	sendErr    error
	replyErr   error
	deleteErr  error

	inboxCalls  int32
	sentCalls   int32
	sendCalls   int32
	threadIDs   []string
	markReadIDs []string
	deleteIDs   []string
	replyIDs    []string
}

func (m *mockMailRepo) FetchInbox(ctx context.Context) ([]RawThread, error) {
	atomic.AddInt32(&m.inboxCalls, 1)
	if m.inboxFunc != nil {
		return m.inboxFunc(ctx)
	}
	return nil, nil
}

func (m *mockMailRepo) FetchSent(ctx context.Context) ([]RawThread, error) {
	atomic.AddInt32(&m.sentCalls, 1)
	if m.sentFunc != nil {
		return m.sentFunc(ctx)
	}
	return nil, nil
}

func (m *mockMailRepo) FetchAll(ctx context.Context) ([]RawThread, error) {
	if m.allFunc != nil {
		return m.allFunc(ctx)
	}
	return nil, nil
}

func (m *mockMailRepo) FetchThread(ctx context.Context, threadID string) (*RawThread, error) {
	m.mu.Lock()
	m.threadIDs = append(m.threadIDs, threadID)
	m.mu.Unlock()
	if m.threadFunc != nil {
		return m.threadFunc(ctx, threadID)
	}
	return nil, internal.ErrThreadNotFound
}

func (m *mockMailRepo) Send(_ context.Context, _ ComposeDTO) error {
	atomic.AddInt32(&m.sendCalls, 1)
	return m.sendErr
}

func (m *mockMailRepo) Reply(_ context.Context, threadID, _ string) error {
	m.mu.Lock()
	m.replyIDs = append(m.replyIDs, threadID)
	m.mu.Unlock()
	return m.replyErr
}

func (m *mockMailRepo) MarkRead(_ context.Context, mailID string) error {
	m.mu.Lock()
	m.markReadIDs = append(m.markReadIDs, mailID)
	m.mu.Unlock()
	return nil
}

func (m *mockMailRepo) Delete(_ context.Context, mailID string) error {
	m.mu.Lock()
	m.deleteIDs = append(m.deleteIDs, mailID)
	m.mu.Unlock()
	return m.deleteErr
}

func (m *mockMailRepo) markedRead() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.markReadIDs))
	copy(out, m.markReadIDs)
	return out
}

type allowGate struct{ allow bool }

func (g allowGate) CanDeleteMail() bool { return g.allow }

func inboxOf(raws ...RawThread) func(ctx context.Context) ([]RawThread, error) {
	return func(context.Context) ([]RawThread, error) { return raws, nil }
}

func pushEvent(topic string, data map[string]any) events.BaseEvent {
	if data == nil {
		data = map[string]any{}
	}
	return events.BaseEvent{Type: topic, Data: data}
}

var _ = ginkgo.Describe("MailService", func() {
	var (
		repo    *mockMailRepo
		service *Service
		ctx     context.Context
	)

	ginkgo.BeforeEach(func() {
		repo = &mockMailRepo{}
		service = NewService(repo, allowGate{allow: true}, internal.NopToaster(), logger.LoggerWrapper())
		ctx = context.Background()
	})

	ginkgo.Describe("fetching views", func() {
		ginkgo.It("normalizes, filters deleted threads and activates the view", func() {
			repo.inboxFunc = inboxOf(
				RawThread{ID: "1", Subject: "keep"},
				RawThread{ID: "2", Subject: "drop", IsDeleted: true},
			)

			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())

			threads := service.Threads(ViewInbox)
			gomega.Expect(threads).To(gomega.HaveLen(1))
			gomega.Expect(threads[0].Subject).To(gomega.Equal("keep"))
			gomega.Expect(service.ActiveView()).To(gomega.Equal(ViewInbox))
			gomega.Expect(service.ViewPhase(ViewInbox)).To(gomega.Equal(PhaseReady))
		})

		ginkgo.It("keeps the stale list visible when a refetch fails", func() {
			repo.inboxFunc = inboxOf(RawThread{ID: "1", Subject: "cached"})
			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())

			repo.inboxFunc = func(context.Context) ([]RawThread, error) {
				return nil, internal.NewNetworkError("unreachable", nil)
			}

			gomega.Expect(service.FetchInbox(ctx)).ToNot(gomega.Succeed())
			gomega.Expect(service.Threads(ViewInbox)).To(gomega.HaveLen(1))
			gomega.Expect(service.ViewPhase(ViewInbox)).To(gomega.Equal(PhaseReady))
		})

		ginkgo.It("discards a superseded response", func() {
			firstStarted := make(chan struct{})
			release := make(chan struct{})
			var calls int32
			repo.inboxFunc = func(context.Context) ([]RawThread, error) {
				if atomic.AddInt32(&calls, 1) == 1 {
					close(firstStarted)
					<-release
					return []RawThread{{ID: "stale", Subject: "stale"}}, nil
				}
				return []RawThread{{ID: "fresh", Subject: "fresh"}}, nil
			}

			done := make(chan error, 1)
			go func() { done <- service.FetchInbox(ctx) }()
			<-firstStarted

			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())
			close(release)
			gomega.Expect(<-done).To(gomega.Succeed())

			threads := service.Threads(ViewInbox)
			gomega.Expect(threads).To(gomega.HaveLen(1))
			gomega.Expect(threads[0].ID).To(gomega.Equal("fresh"))
		})
	})

	ginkgo.Describe("SelectThread", func() {
		ginkgo.It("marks an unread inbox thread read locally and calls the endpoint with the message id", func() {
			repo.inboxFunc = inboxOf(RawThread{ID: float64(7), ThreadID: "9", Subject: "unread"})
			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())

			gomega.Expect(service.SelectThread(ctx, "9")).To(gomega.Succeed())

			gomega.Expect(service.Threads(ViewInbox)[0].IsRead).To(gomega.BeTrue())
			gomega.Eventually(repo.markedRead).Should(gomega.Equal([]string{"7"}))
		})

		ginkgo.It("fetches the detail by thread_id, not by display id source", func() {
			repo.inboxFunc = inboxOf(RawThread{ID: float64(7), ThreadID: "9", Subject: "summary"})
			repo.threadFunc = func(_ context.Context, threadID string) (*RawThread, error) {
				return &RawThread{ID: float64(7), ThreadID: threadID, Subject: "summary", Body: "full body"}, nil
			}
			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())

			gomega.Expect(service.SelectThread(ctx, "9")).To(gomega.Succeed())

			gomega.Expect(repo.threadIDs).To(gomega.Equal([]string{"9"}))
			gomega.Expect(service.Selected().Body).To(gomega.Equal("full body"))
		})

		ginkgo.It("keeps the summary when the detail fetch fails", func() {
			repo.inboxFunc = inboxOf(RawThread{ID: "7", ThreadID: "9", Subject: "summary", Preview: "short"})
			repo.threadFunc = func(context.Context, string) (*RawThread, error) {
				return nil, internal.NewNetworkError("unreachable", nil)
			}
			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())

			gomega.Expect(service.SelectThread(ctx, "9")).To(gomega.Succeed())

			gomega.Expect(service.Selected()).ToNot(gomega.BeNil())
			gomega.Expect(service.Selected().Subject).To(gomega.Equal("summary"))
		})

		ginkgo.It("skips the detail fetch for threads without a thread_id", func() {
			repo.inboxFunc = inboxOf(RawThread{ID: "42", Subject: "standalone"})
			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())

			gomega.Expect(service.SelectThread(ctx, "42")).To(gomega.Succeed())

			gomega.Expect(repo.threadIDs).To(gomega.BeEmpty())
		})

		ginkgo.It("returns not-found for unknown ids", func() {
			gomega.Expect(service.SelectThread(ctx, "missing")).To(gomega.MatchError(internal.ErrThreadNotFound))
		})
	})

	ginkgo.Describe("read-state monotonicity", func() {
		ginkgo.It("keeps a locally-read thread read across refetches that say otherwise", func() {
			repo.inboxFunc = inboxOf(RawThread{ID: "7", Subject: "slow server", IsRead: false})
			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())
			gomega.Expect(service.SelectThread(ctx, "7")).To(gomega.Succeed())

			// The server has not caught up yet and still reports unread.
			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())

			gomega.Expect(service.Threads(ViewInbox)[0].IsRead).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("DeleteThread", func() {
		ginkgo.It("removes the exact thread from every view without rollback on failure", func() {
			repo.inboxFunc = inboxOf(
				RawThread{ID: "1", Subject: "stays"},
				RawThread{ID: "2", Subject: "goes"},
			)
			repo.allFunc = func(context.Context) ([]RawThread, error) {
				return []RawThread{{ID: "2", Subject: "goes"}}, nil
			}
			gomega.Expect(service.FetchAll(ctx)).To(gomega.Succeed())
			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())

			repo.deleteErr = internal.NewNetworkError("unreachable", nil)

			gomega.Expect(service.DeleteThread(ctx, "2")).ToNot(gomega.Succeed())

			inbox := service.Threads(ViewInbox)
			gomega.Expect(inbox).To(gomega.HaveLen(1))
			gomega.Expect(inbox[0].ID).To(gomega.Equal("1"))
			gomega.Expect(service.Threads(ViewAll)).To(gomega.BeEmpty())
		})

		ginkgo.It("clears a selection pointing at the deleted thread", func() {
			repo.inboxFunc = inboxOf(RawThread{ID: "2", Subject: "open"})
			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())
			gomega.Expect(service.SelectThread(ctx, "2")).To(gomega.Succeed())

			gomega.Expect(service.DeleteThread(ctx, "2")).To(gomega.Succeed())

			gomega.Expect(service.Selected()).To(gomega.BeNil())
		})

		ginkgo.It("refuses without the delete permission and makes no network call", func() {
			gated := NewService(repo, allowGate{allow: false}, internal.NopToaster(), logger.LoggerWrapper())
			repo.inboxFunc = inboxOf(RawThread{ID: "2"})
			gomega.Expect(gated.FetchInbox(ctx)).To(gomega.Succeed())

			err := gated.DeleteThread(ctx, "2")

			gomega.Expect(err).To(gomega.MatchError(internal.ErrPermissionDenied))
			gomega.Expect(repo.deleteIDs).To(gomega.BeEmpty())
			gomega.Expect(gated.Threads(ViewInbox)).To(gomega.HaveLen(1))
		})

		ginkgo.It("deletes by the message id when it differs from the display id", func() {
			repo.inboxFunc = inboxOf(RawThread{ID: float64(7), ThreadID: "9"})
			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())

			gomega.Expect(service.DeleteThread(ctx, "9")).To(gomega.Succeed())

			gomega.Expect(repo.deleteIDs).To(gomega.Equal([]string{"7"}))
		})
	})

	ginkgo.Describe("ComposeAndSend", func() {
		ginkgo.It("makes no network call for an invalid message", func() {
			err := service.ComposeAndSend(ctx, ComposeDTO{To: "", Subject: "s", Body: "b"})

			gomega.Expect(internal.IsValidationError(err)).To(gomega.BeTrue())
			gomega.Expect(atomic.LoadInt32(&repo.sendCalls)).To(gomega.BeZero())
		})

		ginkgo.It("makes exactly one send call for a valid message", func() {
			gomega.Expect(service.ComposeAndSend(ctx, ComposeDTO{To: "a@b.c", Subject: "s", Body: "b"})).To(gomega.Succeed())

			gomega.Expect(atomic.LoadInt32(&repo.sendCalls)).To(gomega.Equal(int32(1)))
		})

		ginkgo.It("refetches the sent view only when it is active", func() {
			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())
			gomega.Expect(service.ComposeAndSend(ctx, ComposeDTO{To: "a@b.c", Subject: "s", Body: "b"})).To(gomega.Succeed())
			gomega.Expect(atomic.LoadInt32(&repo.sentCalls)).To(gomega.BeZero())

			gomega.Expect(service.FetchSent(ctx)).To(gomega.Succeed())
			before := atomic.LoadInt32(&repo.sentCalls)
			gomega.Expect(service.ComposeAndSend(ctx, ComposeDTO{To: "a@b.c", Subject: "s", Body: "b"})).To(gomega.Succeed())
			gomega.Expect(atomic.LoadInt32(&repo.sentCalls)).To(gomega.Equal(before + 1))
		})
	})

	ginkgo.Describe("SendReply", func() {
		ginkgo.It("replies under the thread id and refetches the active view", func() {
			repo.inboxFunc = inboxOf(RawThread{ID: float64(7), ThreadID: "9", Subject: "t"})
			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())
			before := atomic.LoadInt32(&repo.inboxCalls)

			gomega.Expect(service.SendReply(ctx, "9", "on it")).To(gomega.Succeed())

			gomega.Expect(repo.replyIDs).To(gomega.Equal([]string{"9"}))
			gomega.Expect(atomic.LoadInt32(&repo.inboxCalls)).To(gomega.Equal(before + 1))
		})

		ginkgo.It("rejects an empty body before any network call", func() {
			repo.inboxFunc = inboxOf(RawThread{ID: "1"})
			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())

			err := service.SendReply(ctx, "1", "")

			gomega.Expect(internal.IsValidationError(err)).To(gomega.BeTrue())
			gomega.Expect(repo.replyIDs).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("push events", func() {
		var channel *realtime.Channel

		ginkgo.BeforeEach(func() {
			channel = realtime.NewChannel(nil, logger.LoggerWrapper())
		})

		ginkgo.It("refetches the inbox on new mail only while inbox is active", func() {
			teardown := service.Bind(channel)
			defer teardown()
			repo.inboxFunc = inboxOf(RawThread{ID: "1"})
			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())
			before := atomic.LoadInt32(&repo.inboxCalls)

			channel.Deliver(ctx, pushEvent(realtime.TopicNewMail, nil))
			gomega.Expect(atomic.LoadInt32(&repo.inboxCalls)).To(gomega.Equal(before + 1))

			gomega.Expect(service.FetchSent(ctx)).To(gomega.Succeed())
			channel.Deliver(ctx, pushEvent(realtime.TopicNewMail, nil))
			gomega.Expect(atomic.LoadInt32(&repo.inboxCalls)).To(gomega.Equal(before + 1))
		})

		ginkgo.It("treats a reply push the same as new mail", func() {
			teardown := service.Bind(channel)
			defer teardown()
			repo.inboxFunc = inboxOf(RawThread{ID: "1"})
			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())
			before := atomic.LoadInt32(&repo.inboxCalls)

			channel.Deliver(ctx, pushEvent(realtime.TopicMailReply, nil))

			gomega.Expect(atomic.LoadInt32(&repo.inboxCalls)).To(gomega.Equal(before + 1))
		})

		ginkgo.It("removes a deleted thread from every view regardless of active view", func() {
			teardown := service.Bind(channel)
			defer teardown()
			repo.inboxFunc = inboxOf(RawThread{ID: "2", Subject: "doomed"})
			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())
			gomega.Expect(service.FetchSent(ctx)).To(gomega.Succeed())

			channel.Deliver(ctx, pushEvent(realtime.TopicMailDeleted, map[string]any{"mail_id": float64(2)}))

			gomega.Expect(service.Threads(ViewInbox)).To(gomega.BeEmpty())
		})

		ginkgo.It("stops reacting after teardown", func() {
			teardown := service.Bind(channel)
			repo.inboxFunc = inboxOf(RawThread{ID: "1"})
			gomega.Expect(service.FetchInbox(ctx)).To(gomega.Succeed())
			before := atomic.LoadInt32(&repo.inboxCalls)

			teardown()
			channel.Deliver(ctx, pushEvent(realtime.TopicNewMail, nil))

			gomega.Expect(atomic.LoadInt32(&repo.inboxCalls)).To(gomega.Equal(before))
		})
	})
})
