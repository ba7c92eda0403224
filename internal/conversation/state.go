// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/futurebot-ai/chatwidget/internal/citation"
	"github.com/futurebot-ai/chatwidget/internal/config"
	"github.com/futurebot-ai/chatwidget/internal/model"
	"github.com/futurebot-ai/chatwidget/internal/storage"
	"github.com/futurebot-ai/chatwidget/internal/transport"
	"github.com/futurebot-ai/chatwidget/internal/typing"
	"github.com/futurebot-ai/chatwidget/internal/util"
)

// ChatIDLength is the length of client-generated chat ids.
const ChatIDLength = 10

// persistTimeout bounds a single session write.
const persistTimeout = 5 * time.Second

// DefaultStreamGrace is used when Options.StreamGrace is zero.
const DefaultStreamGrace = 10 * time.Second

var (
	// ErrEmpty is returned by Submit for blank input.
	ErrEmpty = errors.New("conversation: empty message")
	// ErrBusy is returned while a reply is being composed.
	ErrBusy = errors.New("conversation: agent is typing")
	// ErrNotMounted is returned before Mount.
	ErrNotMounted = errors.New("conversation: not mounted")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("conversation: closed")
)

// =============================================================================
// PHASE
// =============================================================================

// Phase is the lifecycle state of a conversation.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseReady
	PhaseAwaiting
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseAwaiting:
		return "awaiting"
	default:
		return "idle"
	}
}

// Snapshot is a consistent copy of the read model.
type Snapshot struct {
	Messages        []model.Message
	Phase           Phase
	Mode            transport.Mode
	ChatID          string
	Typing          bool
	ShowClearButton bool
}

// turn tracks one submission until its reply is applied.
type turn struct {
	started bool
	reply   *transport.Reply
	grace   *time.Timer
}

func (t *turn) stopGrace() {
	if t.grace != nil {
		t.grace.Stop()
	}
}

// saveJob is a session write captured under the state lock and performed
// after it is released. A nil session clears the entry.
type saveJob struct {
	seq     uint64
	session *model.Session
}

// =============================================================================
// STATE
// =============================================================================

// State is one widget conversation.
type State struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time

	mountMu sync.Mutex

	mu               sync.Mutex
	conv             *model.Conversation
	phase            Phase
	mode             transport.Mode
	modeResolved     bool
	savedChatID      string
	socketClientID   string
	webRequestChatID string
	timezone         string
	stream           Stream
	started          bool
	turn             *turn
	closed           bool

	// lateStart is set when a turn was answered from its HTTP reply; a start
	// event arriving afterwards belongs to that turn and is dropped along
	// with its tokens.
	lateStart  bool
	discarding bool

	saveSeq  uint64
	saveMu   sync.Mutex
	savedSeq uint64

	token   typing.Token
	updates chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates an idle conversation. Sender and Typing are required.
func New(opts Options) (*State, error) {
	if opts.Sender == nil {
		return nil, errors.New("conversation: sender is required")
	}
	if opts.Typing == nil {
		return nil, errors.New("conversation: typing broadcaster is required")
	}
	if opts.WelcomeMessage == "" {
		opts.WelcomeMessage = config.DefaultWelcomeMessage
	}
	if opts.ErrorMessage == "" {
		opts.ErrorMessage = config.DefaultErrorMessage
	}
	if opts.WebRequestSuffix == "" {
		opts.WebRequestSuffix = transport.DefaultWebRequestSuffix
	}
	if opts.Key == "" {
		opts.Key = storage.KeyPrefix
	}
	if opts.StreamGrace <= 0 {
		opts.StreamGrace = DefaultStreamGrace
	}
	if opts.Store == nil {
		opts.Store = storage.NewSessionStore(storage.NewMemoryBackend(), storage.WithDisabled(true))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &State{
		opts:    opts,
		logger:  opts.Logger.With().Str("component", "conversation").Str("key", opts.Key).Logger(),
		now:     now,
		conv:    model.NewConversation(opts.WelcomeMessage),
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	s.token = opts.Typing.Subscribe(func(bool) { s.notify() })
	return s, nil
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Mount restores the saved session, resolves the delivery mode and, in
// stream mode, connects the event stream. Mounting twice is a no-op.
func (s *State) Mount(ctx context.Context) error {
	s.mountMu.Lock()
	defer s.mountMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.phase != PhaseIdle {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	session, err := s.opts.Store.Load(ctx, s.opts.Key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("session load failed, starting fresh")
		session = nil
	}

	mode := s.resolveMode(ctx)

	var stream Stream
	if mode == transport.ModeStream {
		if s.opts.Connector == nil {
			mode = transport.ModeRequest
		} else if stream, err = s.opts.Connector.Connect(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("stream connect failed, using request mode")
			mode = transport.ModeRequest
			stream = nil
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if stream != nil {
			stream.Disconnect()
		}
		return ErrClosed
	}
	if session != nil && len(session.Messages) > 0 {
		s.conv = model.ConversationFrom(session.Messages)
		s.savedChatID = session.ChatID
		s.webRequestChatID = session.ChatID
	} else {
		s.conv = model.NewConversation(s.opts.WelcomeMessage)
	}
	s.mode = mode
	if mode == transport.ModeRequest {
		s.assignWebRequestLocked()
	} else {
		s.stream = stream
		s.socketClientID = stream.ClientID()
	}
	s.phase = PhaseReady
	s.mu.Unlock()

	if stream != nil {
		s.wg.Add(1)
		go s.consume(stream)
	}

	s.logger.Info().
		Str("mode", mode.String()).
		Bool("restored", session != nil).
		Msg("conversation mounted")
	s.notify()
	return nil
}

func (s *State) resolveMode(ctx context.Context) transport.Mode {
	s.mu.Lock()
	if s.modeResolved {
		m := s.mode
		s.mu.Unlock()
		return m
	}
	s.mu.Unlock()

	var mode transport.Mode
	if s.opts.Mode != nil {
		mode = *s.opts.Mode
		if transport.IsWebRequestHost(s.opts.Host, s.opts.WebRequestSuffix) {
			mode = transport.ModeRequest
		}
	} else {
		mode = transport.NegotiateWithSuffix(ctx, s.opts.Host, s.opts.WebRequestSuffix, s.opts.Prober, s.logger)
	}

	s.mu.Lock()
	s.mode = mode
	s.modeResolved = true
	s.mu.Unlock()
	return mode
}

// assignWebRequestLocked sets the request-mode chat id and timezone.
func (s *State) assignWebRequestLocked() {
	if s.savedChatID != "" {
		s.webRequestChatID = s.savedChatID
	} else {
		s.webRequestChatID = util.RandomAlnum(ChatIDLength)
	}
	if s.opts.UseTimezone {
		s.timezone = transport.Timezone(s.now())
	}
}

// Close disconnects the stream and detaches from the typing flag. Persisted
// messages are kept. Safe to call more than once.
func (s *State) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stream := s.stream
	s.stream = nil
	awaiting := s.phase == PhaseAwaiting
	s.phase = PhaseIdle
	if s.turn != nil {
		s.turn.stopGrace()
		s.turn = nil
	}
	s.mu.Unlock()

	if stream != nil {
		stream.Disconnect()
	}
	s.wg.Wait()
	s.opts.Typing.Unsubscribe(s.token)
	if awaiting {
		s.opts.Typing.Set(false)
	}
	close(s.done)
	s.logger.Debug().Msg("conversation closed")
	return nil
}

// Done is closed once Close has finished.
func (s *State) Done() <-chan struct{} {
	return s.done
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Submit sends text as the user's next message and, in request mode, waits
// for the reply. Blank text and submissions while the agent is typing are
// rejected without touching the log. A transport failure is appended as an
// agent message and also returned.
func (s *State) Submit(ctx context.Context, text string) error {
	text = norm.NFC.String(strings.TrimSpace(text))
	if text == "" {
		return ErrEmpty
	}
	if !s.opts.Typing.CompareAndSet(false, true) {
		return ErrBusy
	}

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		s.opts.Typing.Set(false)
		return ErrClosed
	case s.phase == PhaseIdle:
		s.mu.Unlock()
		s.opts.Typing.Set(false)
		return ErrNotMounted
	case s.phase == PhaseAwaiting:
		s.mu.Unlock()
		s.opts.Typing.Set(false)
		return ErrBusy
	}

	req := &transport.Request{
		Question:       text,
		History:        s.conv.History(s.opts.WelcomeMessage),
		OverrideConfig: s.opts.OverrideConfig,
	}
	mode := s.mode
	if mode == transport.ModeStream {
		req.SocketClientID = s.socketClientID
		req.ChatID = s.savedChatID
	} else {
		req.WebRequestChatID = s.webRequestChatID
		req.Timezone = s.timezone
	}

	s.conv.Append(model.NewUserMessage(text))
	t := &turn{}
	s.turn = t
	s.phase = PhaseAwaiting
	s.lateStart = false
	job := s.saveJobLocked()
	s.mu.Unlock()
	s.save(job)
	s.notify()

	reply, err := s.opts.Sender.Send(ctx, req)
	if mode == transport.ModeStream {
		s.completeStream(t, reply, err)
	} else {
		s.completeRequest(t, reply, err)
	}
	return err
}

func (s *State) completeRequest(t *turn, reply *transport.Reply, err error) {
	s.mu.Lock()
	if s.turn != t {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("submit failed")
		s.conv.Append(model.NewAgentMessage(s.errorText(err), nil))
	} else {
		s.conv.Append(model.NewAgentMessage(reply.Text, citation.Process(reply.Citations)))
	}
	s.finishLocked()
	job := s.saveJobLocked()
	s.mu.Unlock()

	s.save(job)
	s.opts.Typing.Set(false)
	s.notify()
}

// completeStream handles the HTTP half of a stream-mode turn. Message
// content normally arrives as events; the HTTP reply is used when the stream
// went away before producing any, or when no start event shows up within
// the grace period.
func (s *State) completeStream(t *turn, reply *transport.Reply, err error) {
	s.mu.Lock()
	if s.turn != t {
		s.mu.Unlock()
		return
	}
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Msg("submit failed")
		s.conv.Append(model.NewAgentMessage(s.errorText(err), nil))
	case s.stream == nil && !t.started:
		s.conv.Append(model.NewAgentMessage(reply.Text, citation.Process(reply.Citations)))
	default:
		t.reply = reply
		if !t.started && t.grace == nil {
			t.grace = time.AfterFunc(s.opts.StreamGrace, func() { s.expireGrace(t) })
		}
		s.mu.Unlock()
		return
	}
	s.finishLocked()
	job := s.saveJobLocked()
	s.mu.Unlock()

	s.save(job)
	s.opts.Typing.Set(false)
	s.notify()
}

// expireGrace answers t from its HTTP reply when the stream never started it.
func (s *State) expireGrace(t *turn) {
	s.mu.Lock()
	if s.closed || s.turn != t || t.started || t.reply == nil {
		s.mu.Unlock()
		return
	}
	s.logger.Warn().Dur("grace", s.opts.StreamGrace).Msg("stream never started, using HTTP reply")
	s.conv.Append(model.NewAgentMessage(t.reply.Text, citation.Process(t.reply.Citations)))
	s.finishLocked()
	s.lateStart = true
	job := s.saveJobLocked()
	s.mu.Unlock()

	s.save(job)
	s.opts.Typing.Set(false)
	s.notify()
}

// Clear resets the log to the welcome message and forgets the persisted
// session. It is ignored while the agent is typing.
func (s *State) Clear(ctx context.Context) error {
	if s.opts.Typing.Get() {
		return ErrBusy
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.phase == PhaseAwaiting {
		s.mu.Unlock()
		return ErrBusy
	}
	s.conv.Reset(s.opts.WelcomeMessage)
	if s.mode == transport.ModeRequest {
		s.assignWebRequestLocked()
	}
	s.saveSeq++
	job := &saveJob{seq: s.saveSeq}
	s.mu.Unlock()

	if err := s.flush(ctx, job); err != nil {
		s.logger.Warn().Err(err).Msg("session clear failed")
	}

	s.logger.Debug().Msg("conversation cleared")
	s.notify()
	return nil
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

func (s *State) consume(stream Stream) {
	defer s.wg.Done()
	for ev := range stream.Events() {
		s.apply(ev)
	}
}

func (s *State) apply(ev transport.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if s.discarding {
		switch ev.Type {
		case transport.EventToken, transport.EventSourceDocuments:
			s.mu.Unlock()
			return
		case transport.EventEnd:
			s.discarding = false
			s.mu.Unlock()
			return
		case transport.EventDisconnect:
			s.discarding = false
		}
	}

	var (
		typingValue *bool
		job         *saveJob
	)
	switch ev.Type {
	case transport.EventConnect:
		s.socketClientID = ev.ClientID

	case transport.EventStart:
		if s.turn == nil && s.lateStart {
			s.lateStart = false
			s.discarding = true
			s.mu.Unlock()
			return
		}
		s.started = true
		if s.turn != nil {
			s.turn.started = true
			s.turn.stopGrace()
		}
		s.conv.Append(model.NewPendingMessage())
		job = s.saveJobLocked()
		typingValue = boolPtr(true)

	case transport.EventToken:
		s.conv.UpdateLast(func(m *model.Message) { m.AppendToken(ev.Token) })
		job = s.saveJobLocked()

	case transport.EventSourceDocuments:
		processed := citation.Process(ev.Citations)
		s.conv.UpdateLast(func(m *model.Message) { m.SetCitations(processed) })
		job = s.saveJobLocked()

	case transport.EventEnd:
		if !s.started {
			s.mu.Unlock()
			return
		}
		s.settleLocked()
		job = s.saveJobLocked()
		typingValue = boolPtr(false)

	case transport.EventDisconnect:
		s.logger.Warn().Err(ev.Err).Msg("stream disconnected, using request mode")
		s.stream = nil
		s.mode = transport.ModeRequest
		s.assignWebRequestLocked()
		switch {
		case s.started:
			s.settleLocked()
			job = s.saveJobLocked()
			typingValue = boolPtr(false)
		case s.turn != nil && s.turn.reply != nil:
			reply := s.turn.reply
			s.conv.Append(model.NewAgentMessage(reply.Text, citation.Process(reply.Citations)))
			s.finishLocked()
			job = s.saveJobLocked()
			typingValue = boolPtr(false)
		}
	}
	s.mu.Unlock()

	s.save(job)
	if typingValue != nil {
		s.opts.Typing.Set(*typingValue)
	}
	s.notify()
}

// settleLocked closes the streamed reply: the placeholder becomes an agent
// message even if no token arrived, and the turn ends.
func (s *State) settleLocked() {
	s.started = false
	s.conv.UpdateLast(func(m *model.Message) { m.Settle() })
	if s.turn != nil {
		s.finishLocked()
	}
}

func boolPtr(b bool) *bool { return &b }

// finishLocked ends the current turn.
func (s *State) finishLocked() {
	if s.turn != nil {
		s.turn.stopGrace()
	}
	s.turn = nil
	if s.phase == PhaseAwaiting {
		s.phase = PhaseReady
	}
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func (s *State) chatIDLocked() string {
	switch {
	case s.savedChatID != "":
		return s.savedChatID
	case s.socketClientID != "":
		return s.socketClientID
	default:
		return s.webRequestChatID
	}
}

// saveJobLocked captures the session as it is now. The write happens in
// save, outside s.mu, so readers are not blocked on storage I/O.
func (s *State) saveJobLocked() *saveJob {
	s.saveSeq++
	return &saveJob{
		seq:     s.saveSeq,
		session: model.NewSession(s.chatIDLocked(), s.conv.Messages(), s.now()),
	}
}

func (s *State) save(job *saveJob) {
	if job == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.flush(ctx, job); err != nil {
		s.logger.Warn().Err(err).Msg("session save failed")
	}
}

// flush performs job unless a newer job has already been written. Writes
// are serialized so the stored session never goes back in time.
func (s *State) flush(ctx context.Context, job *saveJob) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if job.seq <= s.savedSeq {
		return nil
	}
	s.savedSeq = job.seq
	if job.session == nil {
		return s.opts.Store.Clear(ctx, s.opts.Key)
	}
	return s.opts.Store.Save(ctx, s.opts.Key, job.session)
}

func (s *State) errorText(err error) string {
	summary := transport.Summary(err)
	if summary == transport.DefaultErrorMessage {
		return s.opts.ErrorMessage
	}
	return summary
}

// =============================================================================
// READ MODEL
// =============================================================================

func (s *State) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// Updates signals that the read model changed. Signals are coalesced.
func (s *State) Updates() <-chan struct{} {
	return s.updates
}

// Messages returns a copy of the log.
func (s *State) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Messages()
}

// Phase returns the lifecycle phase.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Mode returns the resolved delivery mode.
func (s *State) Mode() transport.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// ChatID returns the id sessions are saved under: the restored id, else
// the socket client id, else the web-request id.
func (s *State) ChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatIDLocked()
}

// Typing reports the shared typing flag.
func (s *State) Typing() bool {
	return s.opts.Typing.Get()
}

// ShowClearButton reports whether the clear control should be offered.
func (s *State) ShowClearButton() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.ShowClearButton && s.conv.Len() >= 3
}

// Welcome returns the seeded welcome text.
func (s *State) Welcome() string {
	return s.opts.WelcomeMessage
}

// Snapshot returns the whole read model at once.
func (s *State) Snapshot() Snapshot {
	typingNow := s.opts.Typing.Get()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Messages:        s.conv.Messages(),
		Phase:           s.phase,
		Mode:            s.mode,
		ChatID:          s.chatIDLocked(),
		Typing:          typingNow,
		ShowClearButton: s.opts.ShowClearButton && s.conv.Len() >= 3,
	}
}
