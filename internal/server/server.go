// Package server hosts game sessions over telnet and WebSocket. Each
// connection gets its own session; commands from one connection run one
// at a time on that connection's goroutine.
package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/lawnchairsociety/xianmud/internal/command"
	"github.com/lawnchairsociety/xianmud/internal/config"
	"github.com/lawnchairsociety/xianmud/internal/logger"
	"github.com/lawnchairsociety/xianmud/internal/namefilter"
	"github.com/lawnchairsociety/xianmud/internal/session"
	"github.com/lawnchairsociety/xianmud/internal/state"
)

const (
	maxNameAttempts = 3
	adminCommand    = "admin"
)

var errNoName = errors.New("no acceptable name")

// Server accepts connections and runs one session per player.
type Server struct {
	cfg        *config.GameConfig
	content    *command.Content
	store      state.SlotStore
	tracer     trace.Tracer
	nameFilter *namefilter.NameFilter

	connLimiter *ConnLimiter
	lockout     *Lockout

	listener net.Listener
	httpSrv  *http.Server

	mu       sync.RWMutex
	sessions map[string]*connection // keyed by player name

	wg           sync.WaitGroup
	shutdown     chan struct{}
	shutdownOnce sync.Once
	StartTime    time.Time
}

type connection struct {
	client  Client
	session *session.Session
	ip      string
}

// Options carries the shared services every session uses.
type Options struct {
	Content    *command.Content
	Store      state.SlotStore
	Tracer     trace.Tracer
	NameFilter *namefilter.NameFilter
}

// NewServer creates a server. NPC names are reserved in the name filter.
func NewServer(cfg *config.GameConfig, opts Options) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	content := opts.Content
	if content == nil {
		content = command.DefaultContent()
	}
	nf := opts.NameFilter
	if nf == nil {
		nf = namefilter.New(namefilter.DefaultConfig())
	}
	if content.NPCs != nil {
		nf.Reserve(content.NPCs.Names()...)
	}
	return &Server{
		cfg:         cfg,
		content:     content,
		store:       opts.Store,
		tracer:      opts.Tracer,
		nameFilter:  nf,
		connLimiter: NewConnLimiter(cfg.Server),
		lockout:     NewLockout(cfg.Server.AdminLockout),
		sessions:    make(map[string]*connection),
		shutdown:    make(chan struct{}),
		StartTime:   time.Now(),
	}
}

// Start listens for telnet connections on address and blocks until
// Shutdown.
func (s *Server) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return s.Serve(listener)
}

// Serve accepts telnet connections on listener until Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	logger.Info("Server listening", "address", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return nil
			default:
				logger.Error("Error accepting connection", "error", err)
				continue
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()
	ip := extractIP(remoteAddr)

	release, err := s.connLimiter.Acquire(ip)
	if err != nil {
		logger.Warning("Connection rejected", "remote_addr", remoteAddr, "ip", ip, "reason", err)
		conn.Write([]byte(limitMessage(err) + "\r\n"))
		conn.Close()
		return
	}
	defer func() {
		release()
		conn.Close()
	}()

	s.handleClient(NewTelnetClient(conn), ip)
}

// Handler returns the WebSocket endpoint, mounted at /ws by StartWebSocket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocketUpgrade)
	return mux
}

// StartWebSocket serves WebSocket clients on address until Shutdown.
func (s *Server) StartWebSocket(address string) error {
	srv := &http.Server{Addr: address, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	logger.Info("WebSocket server listening", "address", address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	clientIP := getRealIP(r)

	release, err := s.connLimiter.Acquire(clientIP)
	if err != nil {
		logger.Warning("WebSocket connection rejected",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP,
			"reason", err)
		http.Error(w, limitMessage(err), http.StatusTooManyRequests)
		return
	}

	wsCfg := s.cfg.Server.WebSocket
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := wsCfg.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		release()
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			release()
			wsConn.Close()
		}()
		s.handleClient(NewWebSocketClient(wsConn, wsCfg.MaxMessageSize), clientIP)
	}()
}

// getRealIP extracts the real client IP from an HTTP request.
// It checks X-Forwarded-For header first (for reverse proxy setups),
// then falls back to the direct remote address.
func getRealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// The first address is the original client
		if clientIP := strings.TrimSpace(strings.Split(xff, ",")[0]); clientIP != "" {
			return clientIP
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return extractIP(r.RemoteAddr)
}

// handleClient is the shared client handling logic for both telnet and WebSocket.
func (s *Server) handleClient(client Client, ip string) {
	logger.Info("Client connected", "remote_addr", client.RemoteAddr())

	name, err := s.askName(client)
	if err != nil {
		logger.Info("Client left before naming", "remote_addr", client.RemoteAddr(), "error", err)
		return
	}

	conn := &connection{client: client, ip: ip}
	conn.session = session.New(session.Options{
		Config:     s.cfg,
		Content:    s.sessionContent(),
		Store:      s.playerStore(name),
		Output:     newClientSink(client),
		Tracer:     s.tracer,
		PlayerName: name,
	})

	if !s.register(name, conn) {
		client.WriteLine("该道号已在游戏中。")
		return
	}
	defer s.unregister(name, conn)

	logger.Info("Player joined", "player", name, "session", conn.session.ID)
	client.WriteLine(fmt.Sprintf("欢迎，%s！输入 '帮助' 查看可用命令。", name))
	if s.store != nil {
		if _, err := conn.session.State().Store().LoadSlot(s.cfg.Session.AutoSaveSlot); err == nil {
			client.WriteLine(fmt.Sprintf("发现自动存档，输入 '读取 %s' 继续上次的修行。", s.cfg.Session.AutoSaveSlot))
		}
	}

	s.runSession(conn)
}

// askName prompts until the filter accepts a name.
func (s *Server) askName(client Client) (string, error) {
	for i := 0; i < maxNameAttempts; i++ {
		if err := client.WriteLine("请输入你的道号："); err != nil {
			return "", err
		}
		line, err := client.ReadLine()
		if err != nil {
			return "", err
		}
		name := strings.TrimSpace(line)
		result := s.nameFilter.Check(name)
		if result.Allowed {
			return name, nil
		}
		client.WriteLine(result.Reason)
	}
	client.WriteLine("再会。")
	return "", errNoName
}

// runSession reads commands until the client quits or disconnects.
func (s *Server) runSession(conn *connection) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		line, err := conn.client.ReadLine()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, adminCommand+" "); ok {
			s.elevate(conn, strings.TrimSpace(rest))
			continue
		}
		conn.session.Handle(ctx, line)
		if conn.session.QuitRequested() || ctx.Err() != nil {
			break
		}
	}
	s.saveOnDisconnect(conn)
}

// elevate switches the connection to the system source when password
// matches the configured bcrypt hash.
func (s *Server) elevate(conn *connection, password string) {
	hash := s.cfg.Server.AdminPasswordHash
	if hash == "" {
		conn.client.WriteLine("管理员登录未开启。")
		return
	}
	if locked, wait := s.lockout.IsLocked(conn.ip); locked {
		conn.client.WriteLine(fmt.Sprintf("尝试次数过多，请在%d秒后再试。", int(wait.Seconds())+1))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		locked, _ := s.lockout.RecordFailure(conn.ip)
		logger.Warning("Admin login failed", "ip", conn.ip, "locked", locked)
		conn.client.WriteLine("密码错误。")
		return
	}
	s.lockout.RecordSuccess(conn.ip)
	conn.session.SetSource(command.SourceSystem)
	logger.Info("Admin elevated", "ip", conn.ip, "session", conn.session.ID)
	conn.client.WriteLine("已获得管理员权限。")
}

func (s *Server) saveOnDisconnect(conn *connection) {
	sm := conn.session.State()
	if sm.Store() == nil {
		return
	}
	if err := sm.SaveSlot(s.cfg.Session.AutoSaveSlot); err != nil {
		logger.Warning("Save on disconnect failed", "session", conn.session.ID, "error", err)
	}
}

// sessionContent gives each session its own random source over the shared
// read-only game data; math/rand/v2 generators are not safe to share.
func (s *Server) sessionContent() *command.Content {
	c := *s.content
	c.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	return &c
}

// playerStore namespaces slot names by player.
func (s *Server) playerStore(name string) state.SlotStore {
	if s.store == nil {
		return nil
	}
	return &prefixStore{next: s.store, prefix: name + "-"}
}

func (s *Server) register(name string, conn *connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.sessions[name]; taken {
		return false
	}
	s.sessions[name] = conn
	return true
}

func (s *Server) unregister(name string, conn *connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[name] == conn {
		delete(s.sessions, name)
	}
	logger.Info("Client disconnected", "player", name)
}

// OnlinePlayers returns the names of connected players.
func (s *Server) OnlinePlayers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.sessions))
	for name := range s.sessions {
		names = append(names, name)
	}
	return names
}

// BroadcastToAll sends a system line to every connected player.
func (s *Server) BroadcastToAll(message string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, conn := range s.sessions {
		conn.client.WriteLine(message)
	}
}

// GetUptime returns how long the server has been running.
func (s *Server) GetUptime() time.Duration {
	return time.Since(s.StartTime)
}

// Shutdown stops the listeners, closes every connection and waits for the
// sessions to save.
func (s *Server) Shutdown(ctx context.Context) {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)

		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		httpSrv := s.httpSrv
		for _, conn := range s.sessions {
			conn.client.WriteLine("【系统】服务器即将关闭，进度将自动保存。")
			conn.client.Close()
		}
		s.mu.Unlock()

		if httpSrv != nil {
			httpSrv.Shutdown(ctx)
		}

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			logger.Info("Server shutdown complete, all players saved")
		case <-ctx.Done():
			logger.Warning("Server shutdown timed out", "error", ctx.Err())
		}
	})
}
