package mail

import (
	"context"
	"log/slog"
	"sync"

	"github.com/frahmantamala/project-console/internal"
	mailDatamodel "github.com/frahmantamala/project-console/internal/core/datamodel/mail"
	"github.com/frahmantamala/project-console/internal/core/events"
	"github.com/frahmantamala/project-console/internal/realtime"
	"github.com/frahmantamala/project-console/pkg/logger"
)

// Service keeps the displayed mail lists consistent with explicit fetches
// and realtime pushes, and keeps the open thread consistent with list
// updates. It is the only writer of this state.
type Service struct {
	repo    RepositoryAPI
	gate    Gate
	toaster internal.Toaster
	logger  *slog.Logger

	mu          sync.Mutex
	activeView  View
	lists       map[View][]mailDatamodel.Thread
	phases      map[View]Phase
	generations map[View]uint64
	selected    *mailDatamodel.Thread
	// readMarked pins read-state monotonicity: once a thread is marked read
	// in this session, refetched copies stay read even if the server is
	// slow to confirm.
	readMarked map[string]bool
	isSending  bool
}

func NewService(repo RepositoryAPI, gate Gate, toaster internal.Toaster, logger *slog.Logger) *Service {
	if toaster == nil {
		toaster = internal.NopToaster()
	}
	return &Service{
		repo:        repo,
		gate:        gate,
		toaster:     toaster,
		logger:      logger,
		activeView:  ViewInbox,
		lists:       make(map[View][]mailDatamodel.Thread),
		phases:      make(map[View]Phase),
		generations: make(map[View]uint64),
		readMarked:  make(map[string]bool),
	}
}

func (s *Service) ActiveView() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeView
}

func (s *Service) ViewPhase(v View) Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phases[v]
}

// Threads returns a copy of the cached list for a view.
func (s *Service) Threads(v View) []mailDatamodel.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mailDatamodel.Thread, len(s.lists[v]))
	copy(out, s.lists[v])
	return out
}

// Selected returns a copy of the open thread, or nil.
func (s *Service) Selected() *mailDatamodel.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return nil
	}
	clone := *s.selected
	return &clone
}

func (s *Service) IsSending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSending
}

func (s *Service) FetchInbox(ctx context.Context) error {
	return s.fetch(ctx, ViewInbox, true, false)
}

func (s *Service) FetchSent(ctx context.Context) error {
	return s.fetch(ctx, ViewSent, true, false)
}

func (s *Service) FetchAll(ctx context.Context) error {
	return s.fetch(ctx, ViewAll, true, false)
}

// fetch drives the per-view state machine. Each fetch bumps the view's
// generation; a response arriving after a newer fetch started is discarded
// so a slow early request cannot overwrite fresher data. quiet suppresses
// toasts for push-triggered background refetches.
func (s *Service) fetch(ctx context.Context, v View, activate, quiet bool) error {
	s.mu.Lock()
	if activate {
		s.activeView = v
	}
	s.phases[v] = PhaseLoading
	s.generations[v]++
	generation := s.generations[v]
	s.mu.Unlock()

	raws, err := s.fetchView(ctx, v)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generations[v] != generation {
		s.logger.Debug("discarding superseded fetch response", "view", v, "generation", generation)
		return nil
	}

	if err != nil {
		// The previous list stays visible: stale-but-valid beats blank.
		if len(s.lists[v]) > 0 {
			s.phases[v] = PhaseReady
		} else {
			s.phases[v] = PhaseIdle
		}
		s.logger.Warn("mail fetch failed", "view", v, "error", err)
		if !quiet {
			s.toaster.Toast(errorMessage(err, "Failed to load mail"))
		}
		return err
	}

	threads := make([]mailDatamodel.Thread, 0, len(raws))
	for _, raw := range raws {
		thread := raw.Normalize()
		if thread.IsDeleted {
			continue
		}
		if s.readMarked[thread.ID] {
			thread.IsRead = true
		}
		threads = append(threads, thread)
	}

	s.lists[v] = threads
	s.phases[v] = PhaseReady
	s.logger.Debug("mail view loaded", "view", v, "count", len(threads))
	return nil
}

func (s *Service) fetchView(ctx context.Context, v View) ([]RawThread, error) {
	switch v {
	case ViewSent:
		return s.repo.FetchSent(ctx)
	case ViewAll:
		return s.repo.FetchAll(ctx)
	default:
		return s.repo.FetchInbox(ctx)
	}
}

// SelectThread opens a thread from the active view. The summary is shown
// immediately; a detail fetch enriches it only when a thread_id exists, and
// a failed detail fetch leaves the summary view in place. Selecting an
// unread inbox thread flips it read locally and fires the mark-read call
// without waiting for confirmation.
func (s *Service) SelectThread(ctx context.Context, displayID string) error {
	s.mu.Lock()
	view := s.activeView
	idx := indexOf(s.lists[view], displayID)
	if idx < 0 {
		s.mu.Unlock()
		return internal.ErrThreadNotFound
	}

	thread := s.lists[view][idx]
	markRead := !thread.IsRead && view == ViewInbox
	if markRead {
		s.lists[view][idx].IsRead = true
		thread.IsRead = true
		s.readMarked[thread.ID] = true
	}
	clone := thread
	s.selected = &clone
	s.mu.Unlock()

	if markRead {
		endpointID := thread.MessageID
		if endpointID == "" {
			endpointID = thread.ID
		}
		go func() {
			// Fire and forget: the local flip already happened. The call
			// outlives the caller's context but still gets a deadline.
			callCtx, cancel := internal.WithTimeout(context.WithoutCancel(ctx), 0)
			defer cancel()
			if err := s.repo.MarkRead(callCtx, endpointID); err != nil {
				s.logger.Debug("mark-read failed", "mail_id", endpointID, "error", err)
			}
		}()
	}

	if thread.ThreadID == "" {
		return nil
	}

	raw, err := s.repo.FetchThread(ctx, thread.ThreadID)
	if err != nil {
		s.logger.Debug("thread detail fetch failed, keeping summary", "thread_id", thread.ThreadID, "error", err)
		return nil
	}

	detail := raw.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	// Deletion may have cleared the selection while the detail was in
	// flight; do not resurrect it.
	if s.selected == nil || s.selected.ID != detail.ID {
		return nil
	}
	if s.readMarked[detail.ID] {
		detail.IsRead = true
	}
	s.selected = &detail
	return nil
}

// DeleteThread removes a thread. The removal is optimistic and is not rolled
// back on failure; the next fetch of the view reconciles.
func (s *Service) DeleteThread(ctx context.Context, displayID string) error {
	if s.gate != nil && !s.gate.CanDeleteMail() {
		s.toaster.Toast("You do not have permission to delete mail")
		return internal.ErrPermissionDenied
	}

	s.mu.Lock()
	var endpointID string
	for v := range s.lists {
		if idx := indexOf(s.lists[v], displayID); idx >= 0 && endpointID == "" {
			t := s.lists[v][idx]
			endpointID = t.MessageID
			if endpointID == "" {
				endpointID = t.ID
			}
		}
	}
	if endpointID == "" {
		s.mu.Unlock()
		return internal.ErrThreadNotFound
	}
	s.removeLocked(displayID)
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, endpointID); err != nil {
		s.logger.Warn("mail delete failed after optimistic removal", "mail_id", endpointID, "error", err)
		s.toaster.Toast(errorMessage(err, "Failed to delete mail"))
		return err
	}

	s.logger.Info("mail deleted", "mail_id", endpointID)
	return nil
}

// ComposeAndSend validates and sends a new mail. Only the sent view is
// refetched afterwards, and only when it is the active view.
func (s *Service) ComposeAndSend(ctx context.Context, dto ComposeDTO) error {
	if err := dto.Validate(); err != nil {
		s.toaster.Toast(errorMessage(err, "Invalid message"))
		return err
	}

	s.mu.Lock()
	if s.isSending {
		s.mu.Unlock()
		return internal.NewValidationError("a send is already in progress", internal.ErrCodeValidationFailed)
	}
	s.isSending = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSending = false
		s.mu.Unlock()
	}()

	if err := s.repo.Send(ctx, dto); err != nil {
		s.logger.Warn("mail send failed", "to", dto.To, "error", err)
		s.toaster.Toast(errorMessage(err, "Failed to send mail"))
		return err
	}

	s.logger.Info("mail sent", "to", dto.To, "attachments", len(dto.Attachments))

	if s.ActiveView() == ViewSent {
		return s.fetch(ctx, ViewSent, false, false)
	}
	return nil
}

// SendReply posts a reply under the thread's id, preferring thread_id over
// the message id, then refetches the active view since reply counts and
// previews live server-side.
func (s *Service) SendReply(ctx context.Context, displayID, body string) error {
	if body == "" {
		err := internal.NewValidationError("reply body is required", internal.ErrCodeMissingBody)
		s.toaster.Toast(err.Message)
		return err
	}

	s.mu.Lock()
	view := s.activeView
	idx := indexOf(s.lists[view], displayID)
	if idx < 0 {
		s.mu.Unlock()
		return internal.ErrThreadNotFound
	}
	threadID := s.lists[view][idx].DetailID()
	if threadID == "" {
		threadID = displayID
	}
	s.mu.Unlock()

	if err := s.repo.Reply(ctx, threadID, body); err != nil {
		s.logger.Warn("reply failed", "thread_id", threadID, "error", err)
		s.toaster.Toast(errorMessage(err, "Failed to send reply"))
		return err
	}

	s.logger.Info("reply sent", "thread_id", threadID)
	return s.fetch(ctx, view, false, false)
}

// Bind subscribes the service to the push topics it reconciles against and
// returns the symmetric teardown.
func (s *Service) Bind(channel *realtime.Channel) (teardown func()) {
	unsubNew := channel.Subscribe(realtime.TopicNewMail, s.handleIncomingMail)
	unsubReply := channel.Subscribe(realtime.TopicMailReply, s.handleIncomingMail)
	unsubDeleted := channel.Subscribe(realtime.TopicMailDeleted, s.handleMailDeleted)
	return func() {
		unsubNew()
		unsubReply()
		unsubDeleted()
	}
}

// handleIncomingMail refetches the inbox only when inbox is the active view.
// Background views stay stale on purpose: they refetch on activation.
func (s *Service) handleIncomingMail(ctx context.Context, _ events.Event) error {
	if s.ActiveView() != ViewInbox {
		return nil
	}
	if err := s.fetch(ctx, ViewInbox, false, true); err != nil {
		logger.From(ctx).Debug("push-triggered inbox refetch failed", "error", err)
	}
	return nil
}

// handleMailDeleted removes the referenced thread everywhere regardless of
// active view: deletion is global and must never leave a dangling reference.
func (s *Service) handleMailDeleted(_ context.Context, event events.Event) error {
	base, ok := event.(events.BaseEvent)
	if !ok {
		return nil
	}
	mailID := base.StringField("mail_id")
	if mailID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(mailID)
	s.logger.Debug("thread removed on push", "mail_id", mailID)
	return nil
}

// removeLocked deletes the thread (by display id or message id) from every
// cached list and clears the selection when it matches. Caller holds mu.
func (s *Service) removeLocked(id string) {
	for v, list := range s.lists {
		filtered := list[:0:0]
		for _, t := range list {
			if t.ID == id || (t.MessageID != "" && t.MessageID == id) {
				continue
			}
			filtered = append(filtered, t)
		}
		s.lists[v] = filtered
	}
	if s.selected != nil && (s.selected.ID == id || s.selected.MessageID == id) {
		s.selected = nil
	}
}

func indexOf(list []mailDatamodel.Thread, displayID string) int {
	for i, t := range list {
		if t.ID == displayID {
			return i
		}
	}
	return -1
}

func errorMessage(err error, fallback string) string {
	if appErr, ok := internal.IsAppError(err); ok && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
