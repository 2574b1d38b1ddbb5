package net

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"gungnir/internal/common"
	"gungnir/internal/exchange"
)

const (
	MAX_RECV_SIZE      = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = 30 * time.Second
)

var ErrImproperConversion = errors.New("improper type conversion")

// session is one connected TCP client. Writes to the connection are
// serialized through mu because command resolutions and event reports come
// from different goroutines.
type session struct {
	id   string
	conn net.Conn
	r    *bufio.Reader
	mu   sync.Mutex
}

func (s *session) send(r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.conn.Write(r.Serialize()); err != nil {
		return fmt.Errorf("unable to send report: %w", err)
	}
	return nil
}

// Server is the TCP gateway in front of the exchange gateway: it parses
// wire messages into commands, submits them, and writes command results and
// per-account execution reports back to the owning sessions.
type Server struct {
	address string
	port    int
	exch    *exchange.Exchange
	pool    *workerPool
	cancel  context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*session
	owners   map[common.UserID]string
}

func New(address string, port int, exch *exchange.Exchange) *Server {
	return &Server{
		address:  address,
		port:     port,
		exch:     exch,
		pool:     newWorkerPool(defaultNWorkers),
		sessions: make(map[string]*session),
		owners:   make(map[common.UserID]string),
	}
}

// SetExchange wires the command gateway. The server is constructed before
// the exchange so it can be handed in as the exchange's event handler.
func (s *Server) SetExchange(exch *exchange.Exchange) {
	s.exch = exch
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	s.cancel()
}

func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	s.pool.start(t, s.handleSession)

	log.Info().Str("address", s.address).Int("port", s.port).Msg("server running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}

			sess := &session{id: uuid.New().String(), conn: conn, r: bufio.NewReader(conn)}
			s.addSession(sess)
			log.Info().
				Str("session", sess.id).
				Str("address", conn.RemoteAddr().String()).
				Msg("new client added")

			s.pool.addTask(sess)
		}
	}
}

// handleSession is a short-lived worker pass: it reads the next message off
// the session's connection, submits the parsed command, and requeues the
// session for its next message. A dead connection tears the session down.
func (s *Server) handleSession(t *tomb.Tomb, task any) error {
	sess, ok := task.(*session)
	if !ok {
		return ErrImproperConversion
	}

	if err := sess.conn.SetReadDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().Str("session", sess.id).Err(err).Msg("failed setting deadline")
		s.dropSession(sess)
		return nil
	}

	select {
	case <-t.Dying():
		return nil
	default:
		payload, err := readFrame(sess.r)
		if err != nil {
			log.Error().Err(err).Str("session", sess.id).Msg("error reading frame from connection")
			s.dropSession(sess)
			return nil
		}

		msg, err := parseMessage(payload)
		if err != nil {
			log.Error().Err(err).Str("session", sess.id).Msg("error parsing message")
			// Malformed input never reaches the pipeline; report and move on.
			_ = sess.send(Report{TypeOf: ResultReport, Code: common.ResultMalformed})
			s.pool.addTask(sess)
			return nil
		}

		if msg.Cmd != nil {
			s.dispatch(t, sess, msg)
		}

		s.pool.addTask(sess)
	}
	return nil
}

// dispatch submits one command and resolves its result back to the session
// asynchronously, tagging the session as owner of the command's uid so
// trade and reduce events can be routed to it later.
func (s *Server) dispatch(t *tomb.Tomb, sess *session, msg Message) {
	if uid, ok := commandUID(msg.Cmd); ok {
		s.claimOwner(uid, sess.id)
	}

	handle, err := s.exch.Submit(msg.Cmd)
	if err != nil {
		_ = sess.send(Report{TypeOf: ResultReport, Corr: msg.Corr, Code: common.ResultShutdown})
		return
	}
	t.Go(func() error {
		select {
		case r := <-handle:
			if err := sess.send(Report{TypeOf: ResultReport, Corr: msg.Corr, Seq: r.Seq, Code: r.Code}); err != nil {
				s.dropSession(sess)
			}
		case <-t.Dying():
		}
		return nil
	})
}

// HandleEvent routes pipeline events to the sessions owning the affected
// accounts. Unrouted event kinds (rejections resolve through the command
// handle, snapshots through the query handle) are dropped here.
func (s *Server) HandleEvent(ev common.Event) {
	switch ev.Kind {
	case common.EventTrade:
		s.report(ev.Trade.TakerUID, Report{
			TypeOf:  TradeReport,
			Seq:     ev.Seq,
			Symbol:  ev.Trade.Symbol,
			OrderID: ev.Trade.TakerID,
			Price:   ev.Trade.Price,
			Size:    ev.Trade.Size,
			Fee:     ev.Trade.FeeOf(ev.Trade.TakerSide),
		})
		s.report(ev.Trade.MakerUID, Report{
			TypeOf:  TradeReport,
			Seq:     ev.Seq,
			Symbol:  ev.Trade.Symbol,
			OrderID: ev.Trade.MakerID,
			Price:   ev.Trade.Price,
			Size:    ev.Trade.Size,
			Fee:     ev.Trade.FeeOf(ev.Trade.TakerSide.Opposite()),
		})
	case common.EventReduce:
		s.report(ev.Reduce.UID, Report{
			TypeOf:  ReduceReport,
			Seq:     ev.Seq,
			Symbol:  ev.Reduce.Symbol,
			OrderID: ev.Reduce.OrderID,
			Size:    ev.Reduce.Size,
			Reason:  byte(ev.Reduce.Reason),
		})
	}
}

func (s *Server) report(uid common.UserID, r Report) {
	s.mu.Lock()
	sess, ok := s.sessions[s.owners[uid]]
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := sess.send(r); err != nil {
		s.dropSession(sess)
	}
}

func commandUID(cmd common.Command) (common.UserID, bool) {
	switch cmd := cmd.(type) {
	case common.OpenAccount:
		return cmd.UID, true
	case common.AdjustBalance:
		return cmd.UID, true
	case common.PlaceOrder:
		return cmd.UID, true
	case common.MoveOrder:
		return cmd.UID, true
	case common.CancelOrder:
		return cmd.UID, true
	}
	return 0, false
}

func (s *Server) addSession(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.id] = sess
}

func (s *Server) claimOwner(uid common.UserID, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[uid] = sessionID
}

func (s *Server) dropSession(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.id]; !ok {
		return
	}
	delete(s.sessions, sess.id)
	if err := sess.conn.Close(); err != nil {
		log.Error().Str("session", sess.id).Err(err).Msg("error closing connection")
	}
}
