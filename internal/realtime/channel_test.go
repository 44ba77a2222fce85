package realtime

import (
	"context"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/frahmantamala/project-console/internal/core/events"
	"github.com/frahmantamala/project-console/pkg/logger"
)

func TestRealtime(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Realtime Channel Suite")
}

var _ = ginkgo.Describe("Channel", func() {
	var (
		channel *Channel
		ctx     context.Context
	)

	ginkgo.BeforeEach(func() {
		channel = NewChannel(nil, logger.LoggerWrapper())
		ctx = context.Background()
	})

	ginkgo.Describe("local-only mode", func() {
		ginkgo.It("starts without a transport", func() {
			gomega.Expect(channel.Start(ctx)).To(gomega.Succeed())
		})

		ginkgo.It("dispatches delivered events to topic subscribers", func() {
			var got []string
			unsub := channel.Subscribe(TopicNewMail, func(_ context.Context, event events.Event) error {
				got = append(got, event.EventID())
				return nil
			})
			defer unsub()

			channel.Deliver(ctx, events.BaseEvent{ID: "evt-1", Type: TopicNewMail, Data: map[string]any{}})
			channel.Deliver(ctx, events.BaseEvent{ID: "evt-2", Type: TopicMailDeleted, Data: map[string]any{}})

			gomega.Expect(got).To(gomega.Equal([]string{"evt-1"}))
		})

		ginkgo.It("joins and leaves the user room without a transport", func() {
			gomega.Expect(channel.JoinUserRoom(ctx, "7")).To(gomega.Succeed())
			channel.LeaveUserRoom(ctx)
			gomega.Expect(channel.JoinUserRoom(ctx, "8")).To(gomega.Succeed())
		})
	})
})

var _ = ginkgo.Describe("decodeEvent", func() {
	ginkgo.It("reads the enveloped shape", func() {
		msg := &redis.Message{
			Channel: "console:events:new-mail",
			Payload: `{"id":"evt-1","type":"new-mail","data":{"mail_id":"5"}}`,
		}

		event := decodeEvent(msg)

		gomega.Expect(event.Type).To(gomega.Equal(TopicNewMail))
		gomega.Expect(event.ID).To(gomega.Equal("evt-1"))
		gomega.Expect(event.StringField("mail_id")).To(gomega.Equal("5"))
	})

	ginkgo.It("derives the topic from the channel for bare payloads", func() {
		msg := &redis.Message{
			Channel: "console:events:mail-deleted",
			Payload: `{"mail_id":12}`,
		}

		event := decodeEvent(msg)

		gomega.Expect(event.Type).To(gomega.Equal(TopicMailDeleted))
		gomega.Expect(event.ID).ToNot(gomega.BeEmpty())
		gomega.Expect(event.StringField("mail_id")).To(gomega.Equal("12"))
	})

	ginkgo.It("requires a payload type for user room messages", func() {
		withType := decodeEvent(&redis.Message{
			Channel: "console:user:7",
			Payload: `{"type":"notification-update"}`,
		})
		withoutType := decodeEvent(&redis.Message{
			Channel: "console:user:7",
			Payload: `{"mail_id":"5"}`,
		})

		gomega.Expect(withType.Type).To(gomega.Equal(TopicNotificationUpdate))
		gomega.Expect(withoutType.Type).To(gomega.BeEmpty())
	})

	ginkgo.It("never returns a nil payload map", func() {
		event := decodeEvent(&redis.Message{
			Channel: "console:events:new-mail",
			Payload: `not json`,
		})

		gomega.Expect(event.Data).ToNot(gomega.BeNil())
		gomega.Expect(event.Timestamp.IsZero()).To(gomega.BeFalse())
	})
})
