package gateway

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/contrib/v3/websocket"
	"github.com/rs/zerolog"

	"github.com/uncord-chat/uncord-server/internal/fanout"
	"github.com/uncord-chat/uncord-server/internal/id"
	"github.com/uncord-chat/uncord-server/internal/identity"
	"github.com/uncord-chat/uncord-server/internal/signing"
)

// SessionState is the position in WebsocketSession's state machine
// (spec.md §4.7).
type SessionState int32

const (
	StateHandshake SessionState = iota
	StateAuthenticated
	StateStreaming
	StateClosed
)

// ErrHandshakeFailed covers a missing/expired/wrongly-signed handshake
// response; the session closes with WsNotAuthenticated.
var ErrHandshakeFailed = errors.New("websocket handshake failed")

// CommandAPI is the subset of internal/command.API a Session needs for
// SEND_MESSAGE; a narrow interface keeps gateway independent of
// command's concrete type (command, in turn, depends on fanout and hub,
// not on gateway).
type CommandAPI interface {
	SendMessage(user, hubID, channelID id.Id, text string) (id.Id, error)
}

// AccountLookup resolves an account by id for handshake verification.
// internal/identity.Store satisfies this directly.
type AccountLookup interface {
	Load(accountID id.Id) (*identity.SignedAccount, error)
}

// TokenIssuer mints the session token handed to a peer once its
// handshake succeeds. internal/oauth.Issuer satisfies this directly.
type TokenIssuer interface {
	IssueSessionToken(accountID id.Id) (string, error)
}

// Session is one websocket connection: it owns the handshake, decodes
// streaming frames into commands, and is the fanout.Writer the actor
// delivers notifications through.
type Session struct {
	conn     *websocket.Conn
	actor    *fanout.Actor
	commands CommandAPI
	accounts AccountLookup
	tokens   TokenIssuer
	serverKP *identity.KeyPair
	log      zerolog.Logger

	handshakeTimeout time.Duration

	writeMu sync.Mutex
	state   SessionState

	connID id.Id
	userID id.Id
}

// NewSession wraps an upgraded websocket connection. Call Run to drive
// its lifecycle; Run blocks until the connection closes.
func NewSession(conn *websocket.Conn, actor *fanout.Actor, commands CommandAPI, accounts AccountLookup, tokens TokenIssuer, serverKP *identity.KeyPair, handshakeTimeout time.Duration, log zerolog.Logger) *Session {
	return &Session{
		conn:             conn,
		actor:            actor,
		commands:         commands,
		accounts:         accounts,
		tokens:           tokens,
		serverKP:         serverKP,
		handshakeTimeout: handshakeTimeout,
		log:              log.With().Str("component", "gateway").Logger(),
		state:            StateHandshake,
	}
}

// Run drives the full Handshake -> Authenticated -> Streaming -> Closed
// lifecycle. It returns once the connection is closed.
func (s *Session) Run() {
	defer s.close()

	if err := s.handshake(); err != nil {
		s.log.Debug().Err(err).Msg("handshake failed")
		s.writeFrame(Frame{Head: "ERROR", Args: []string{ErrKindWsNotAuthenticated.String()}})
		return
	}

	s.state = StateAuthenticated

	if s.tokens != nil {
		token, err := s.tokens.IssueSessionToken(s.userID)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to issue session token")
		} else {
			s.writeFrame(Frame{Head: "AUTH_OK", Args: []string{token}})
		}
	}

	s.connID = s.actor.Connect(s)
	s.state = StateStreaming

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleFrame(string(raw))
	}
}

func (s *Session) close() {
	s.state = StateClosed
	if s.connID != id.Nil {
		s.actor.Disconnect(s.connID)
	}
	_ = s.conn.Close()
}

// handshake sends a signed nonce and waits for an AUTH_RESPONSE frame
// proving control of a registered account key, per spec.md §4.7. This
// implementation resolves the claimed fingerprint through the caller's
// SignedAccount (identity.Store), rather than a bare fingerprint index,
// so a successful handshake always yields a verified account id.
func (s *Session) handshake() error {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	signedNonce, err := signing.SignBytes(nonce, "challenge", s.serverKP.Secret)
	if err != nil {
		return fmt.Errorf("sign challenge: %w", err)
	}
	s.writeFrame(Frame{Head: "CHALLENGE", Args: []string{encodeB64(signedNonce)}})

	_ = s.conn.SetReadDeadline(time.Now().Add(s.handshakeTimeout))
	_, raw, err := s.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	_ = s.conn.SetReadDeadline(time.Time{})

	f, err := ParseFrame(string(raw))
	if err != nil || f.Head != "AUTH_RESPONSE" || len(f.Args) != 3 {
		return fmt.Errorf("%w: malformed AUTH_RESPONSE", ErrHandshakeFailed)
	}

	accountID, err := id.Parse(f.Args[0])
	if err != nil {
		return fmt.Errorf("%w: bad account id", ErrHandshakeFailed)
	}
	fingerprint := f.Args[1]
	signedArmored, err := decodeB64(f.Args[2])
	if err != nil {
		return fmt.Errorf("%w: bad signature encoding", ErrHandshakeFailed)
	}

	sa, err := s.accounts.Load(accountID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	if err := sa.Verify(); err != nil {
		return fmt.Errorf("%w: account signature invalid: %w", ErrHandshakeFailed, err)
	}
	armoredKey, ok := sa.Account.PublicKeys[fingerprint]
	if !ok {
		return fmt.Errorf("%w: fingerprint not registered to account", ErrHandshakeFailed)
	}
	entity, err := identity.ParseArmoredPublicKey(armoredKey)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}

	payload, err := signing.VerifyBytes(signedArmored, entity)
	if err != nil {
		return fmt.Errorf("%w: response signature invalid: %w", ErrHandshakeFailed, err)
	}
	if !bytesEqual(payload, nonce) {
		return fmt.Errorf("%w: nonce mismatch", ErrHandshakeFailed)
	}

	s.userID = accountID
	return nil
}

func (s *Session) handleFrame(raw string) {
	f, err := ParseFrame(raw)
	if err != nil {
		s.writeFrame(Frame{Head: "INVALID_COMMAND"})
		return
	}
	cmd, err := DecodeCommand(f)
	if err != nil {
		s.writeFrame(Frame{Head: "INVALID_COMMAND"})
		return
	}
	s.dispatch(cmd)
}

func (s *Session) dispatch(cmd Command) {
	switch cmd.Kind {
	case CmdSubscribeHub:
		s.reply(s.actor.SubscribeHub(s.userID, cmd.HubID, s.connID))
	case CmdUnsubscribeHub:
		s.actor.UnsubscribeHub(cmd.HubID, s.connID)
		s.writeFrame(Frame{Head: "RESULT", Args: []string{"SUCCESS"}})
	case CmdSubscribeChannel:
		s.reply(s.actor.SubscribeChannel(s.userID, cmd.HubID, cmd.ChannelID, s.connID))
	case CmdUnsubscribeChannel:
		s.actor.UnsubscribeChannel(cmd.HubID, cmd.ChannelID, s.connID)
		s.writeFrame(Frame{Head: "RESULT", Args: []string{"SUCCESS"}})
	case CmdStartTyping:
		s.reply(s.actor.StartTyping(s.userID, cmd.HubID, cmd.ChannelID))
	case CmdStopTyping:
		s.reply(s.actor.StopTyping(s.userID, cmd.HubID, cmd.ChannelID))
	case CmdSendMessage:
		messageID, err := s.commands.SendMessage(s.userID, cmd.HubID, cmd.ChannelID, cmd.Text)
		if err != nil {
			s.writeFrame(Frame{Head: "RESULT", Args: []string{"ERROR", kindOf(err)}})
			return
		}
		s.writeFrame(Frame{Head: "RESULT", Args: []string{"ID", messageID.String()}})
	}
}

// kindOf extracts the wire ErrorKind name from a CommandAPI error.
// internal/command's CommandError implements Kind() string so gateway
// never needs to import command; command in turn satisfies gateway's
// CommandAPI interface without importing gateway.
func kindOf(err error) string {
	if ke, ok := err.(interface{ Kind() string }); ok {
		return ke.Kind()
	}
	return ErrKindInternalError.String()
}

func (s *Session) reply(err error) {
	if err != nil {
		s.writeFrame(Frame{Head: "RESULT", Args: []string{"ERROR", KindForFanoutError(err).String()}})
		return
	}
	s.writeFrame(Frame{Head: "RESULT", Args: []string{"SUCCESS"}})
}

// Deliver implements fanout.Writer, translating an OutboundEvent into
// its wire Frame.
func (s *Session) Deliver(event fanout.OutboundEvent) error {
	var f Frame
	switch e := event.(type) {
	case fanout.ChatMessageEvent:
		f = Frame{Head: "CHAT_MESSAGE", Args: []string{e.Hub.String(), e.Channel.String(), e.MessageID.String()}}
	case fanout.TypingEvent:
		head := "USER_STOPPED_TYPING"
		if e.Started {
			head = "USER_STARTED_TYPING"
		}
		f = Frame{Head: head, Args: []string{e.User.String(), e.Hub.String(), e.Channel.String()}}
	case fanout.HubUpdatedEvent:
		f = encodeHubUpdated(e.Hub, e.Notification)
	default:
		return fmt.Errorf("unknown outbound event type %T", event)
	}
	return s.writeFrameErr(f)
}

func (s *Session) writeFrame(f Frame) {
	if err := s.writeFrameErr(f); err != nil {
		s.log.Debug().Err(err).Msg("write failed")
	}
}

func (s *Session) writeFrameErr(f Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(f.String()))
}

func encodeB64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func decodeB64(s string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
