package rest

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/project-console/internal/api"
	"github.com/frahmantamala/project-console/internal/mail"
)

// MailRepository maps the mail service onto the mail endpoints.
type MailRepository struct {
	client *api.Client
	logger *slog.Logger
}

func NewMailRepository(client *api.Client, logger *slog.Logger) *MailRepository {
	return &MailRepository{client: client, logger: logger}
}

func (r *MailRepository) FetchInbox(ctx context.Context) ([]mail.RawThread, error) {
	var threads []mail.RawThread
	if err := r.client.Get(ctx, "/mails/inbox", &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

func (r *MailRepository) FetchSent(ctx context.Context) ([]mail.RawThread, error) {
	var threads []mail.RawThread
	if err := r.client.Get(ctx, "/mails/sent", &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

func (r *MailRepository) FetchAll(ctx context.Context) ([]mail.RawThread, error) {
	var threads []mail.RawThread
	if err := r.client.Get(ctx, "/mails/admin/all", &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

func (r *MailRepository) FetchThread(ctx context.Context, threadID string) (*mail.RawThread, error) {
	var thread mail.RawThread
	if err := r.client.Get(ctx, "/mails/"+threadID, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// Send posts a new mail: JSON without attachments, multipart with. Both
// bodies carry the same to/subject/body fields.
func (r *MailRepository) Send(ctx context.Context, dto mail.ComposeDTO) error {
	if len(dto.Attachments) == 0 {
		return r.client.Post(ctx, "/mails", dto, nil)
	}

	fields := map[string]string{
		"to":      dto.To,
		"subject": dto.Subject,
		"body":    dto.Body,
	}
	files := make([]api.Upload, 0, len(dto.Attachments))
	for _, a := range dto.Attachments {
		files = append(files, api.Upload{
			Field:    "attachments",
			FileName: a.FileName,
			Content:  a.Content,
		})
	}
	return r.client.PostMultipart(ctx, "/mails", fields, files, nil)
}

func (r *MailRepository) Reply(ctx context.Context, threadID, body string) error {
	payload := map[string]string{"body": body}
	return r.client.Post(ctx, "/mails/"+threadID+"/reply", payload, nil)
}

func (r *MailRepository) MarkRead(ctx context.Context, mailID string) error {
	return r.client.Put(ctx, "/mails/"+mailID+"/read", nil, nil)
}

func (r *MailRepository) Delete(ctx context.Context, mailID string) error {
	return r.client.Delete(ctx, "/mails/"+mailID)
}
