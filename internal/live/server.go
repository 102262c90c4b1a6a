package live

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/recera/binder/pkg/dom"
)

const (
	// LivePath is the websocket endpoint; the session ID follows it
	LivePath = "/live/"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// Server serves the preview page and its websocket sessions. Every session
// sees the same render target.
type Server struct {
	upgrader websocket.Upgrader
	host     *Host
	logger   *slog.Logger
	title    string

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Session represents a live connection session
type Session struct {
	ID        string
	conn      *websocket.Conn
	server    *Server
	sendChan  chan []byte
	closeChan chan struct{}
	closeOnce sync.Once
}

// NewServer creates a live preview server over host
func NewServer(host *Host, title string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		host:     host,
		logger:   logger,
		title:    title,
		sessions: make(map[string]*Session),
	}
	host.OnFlush(s.broadcast)
	return s
}

// Handler returns the HTTP handler for the page and the websocket endpoint
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePage)
	mux.HandleFunc(LivePath, s.HandleWebSocket)
	return mux
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	snap, err := s.host.Snapshot()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	var buf bytes.Buffer
	err = pageTemplate.Execute(&buf, pageData{
		Title:  s.title,
		Markup: template.HTML(snap.Markup),
		Path:   LivePath,
	})
	if err != nil {
		s.logger.Error("failed to render page", "err", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// HandleWebSocket handles WebSocket upgrade and session management
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, LivePath)
	if sessionID == "" || strings.Contains(sessionID, "/") {
		http.Error(w, "Session ID required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", "err", err)
		return
	}

	session := &Session{
		ID:        sessionID,
		conn:      conn,
		server:    s,
		sendChan:  make(chan []byte, sendBuffer),
		closeChan: make(chan struct{}),
	}
	s.mu.Lock()
	if old, ok := s.sessions[sessionID]; ok {
		old.close()
	}
	s.sessions[sessionID] = session
	s.mu.Unlock()

	go session.handleConnection()
}

// SessionCount returns the number of connected sessions
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) remove(session *Session) {
	s.mu.Lock()
	if s.sessions[session.ID] == session {
		delete(s.sessions, session.ID)
	}
	s.mu.Unlock()
}

// broadcast pushes a flush to every session
func (s *Server) broadcast(patches []dom.Patch, r Render) {
	var frames [][]byte
	if len(patches) > 0 {
		data, err := EncodePatches(patches)
		if err != nil {
			s.logger.Error("failed to encode patches", "err", err)
		} else {
			frames = append(frames, data)
		}
	}
	data, err := EncodeRender(r)
	if err != nil {
		s.logger.Error("failed to encode render", "err", err)
		return
	}
	frames = append(frames, data)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		for _, f := range frames {
			session.send(f)
		}
	}
	s.logger.Debug("flushed", "seq", r.Seq, "patches", len(patches), "sessions", len(s.sessions))
}

// Close disconnects every session
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		session.close()
		delete(s.sessions, id)
	}
}

// send queues a frame without blocking
func (s *Session) send(frame []byte) {
	select {
	case <-s.closeChan:
	case s.sendChan <- frame:
	default:
		s.server.logger.Warn("send buffer full, dropping frame", "session", s.ID)
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.closeChan)
		s.conn.Close()
	})
}

// handleConnection manages the WebSocket connection for a session
func (s *Session) handleConnection() {
	logger := s.server.logger.With("session", s.ID)
	defer func() {
		s.close()
		s.server.remove(s)
		logger.Debug("session closed")
	}()

	go s.writer()

	snap, err := s.server.host.Snapshot()
	if err != nil {
		logger.Warn("failed to snapshot target", "err", err)
		return
	}
	s.send(encodeControl("HELLO", snap.Seq))
	if data, err := EncodeRender(snap); err == nil {
		s.send(data)
	}

	s.conn.SetReadLimit(1 << 20)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("unexpected close", "err", err)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		if messageType != websocket.BinaryMessage {
			logger.Debug("ignoring text message", "size", len(data))
			continue
		}
		s.handleBinaryMessage(data, logger)
	}
}

// handleBinaryMessage processes binary protocol messages
func (s *Session) handleBinaryMessage(data []byte, logger *slog.Logger) {
	if len(data) == 0 {
		return
	}
	switch MessageType(data[0]) {
	case FrameEvent:
		evt, err := DecodeEvent(data)
		if err != nil {
			logger.Warn("failed to decode event", "err", err)
			return
		}
		if err := s.server.host.Dispatch(*evt); err != nil {
			logger.Warn("failed to dispatch event", "event", evt.Type, "path", evt.Path, "err", err)
		}
	case FrameControl:
		msg, err := NewDecoder(data[1:]).ReadString()
		if err != nil {
			logger.Warn("failed to decode control message", "err", err)
			return
		}
		if msg == "PING" {
			s.send(encodeControl("PONG"))
		}
	default:
		logger.Debug("unknown frame", "type", data[0])
	}
}

// writer handles writing messages to the WebSocket
func (s *Session) writer() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-s.sendChan:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		case <-s.closeChan:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
