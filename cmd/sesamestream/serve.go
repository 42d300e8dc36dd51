package main

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sesamestream/sesamestream/internal/sparqllite"
	"github.com/sesamestream/sesamestream/pkg/config"
	"github.com/sesamestream/sesamestream/pkg/query"
	"github.com/sesamestream/sesamestream/pkg/rdf"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsServer holds the configuration and logger the websocket handler uses to
// build one engine per connection. All of
// the engine's calls for a given connection happen on that connection's
// own goroutine, which is the single-writer discipline pkg/index.Index
// requires — this demo server does not share one index across connections
// concurrently. (A production deployment would front the index with one
// serialized actor goroutine and fan connections into its inbox instead.)
type wsServer struct {
	cfg    *config.Config
	logger *zap.Logger
}

func runServe(cfg *config.Config, logger *zap.Logger) error {
	s := &wsServer{cfg: cfg, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	logger.Info("sesamestream serve starting", zap.String("listen", cfg.Server.Listen))
	return http.ListenAndServe(cfg.Server.Listen, mux)
}

// subscribeRequest is the one client->server message type this demo
// understands: open a continuous query over the connection's own index.
type subscribeRequest struct {
	Type  string `json:"type"`
	Query string `json:"query"`
	TTL   int64  `json:"ttl"`
}

type solutionFrame struct {
	Type    string            `json:"type"`
	ID      string            `json:"id"`
	Binding map[string]string `json:"binding"`
}

// handleWS upgrades the connection, then treats every message it receives
// as a new continuous query to subscribe to. Each connection gets its own
// engine (and so its own index) rather than sharing one across clients —
// this demo favors isolation and simplicity over a shared dataset.
func (s *wsServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	logger := s.logger.With(zap.String("connection", connID))

	e, err := buildEngine(s.cfg, logger)
	if err != nil {
		logger.Error("failed to build engine for connection", zap.Error(err))
		return
	}
	e.Start()
	defer e.Shutdown()

	var writeMu sync.Mutex
	send := func(v any) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(v); err != nil {
			logger.Warn("websocket write failed", zap.Error(err))
		}
	}

	for {
		var req subscribeRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info("websocket closed")
			} else {
				logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		if req.Type != "subscribe" || req.Query == "" {
			send(map[string]string{"type": "error", "error": "expected {type: subscribe, query: ...}"})
			continue
		}

		q, err := sparqllite.Parse(req.Query)
		if err != nil {
			send(map[string]string{"type": "error", "error": err.Error()})
			continue
		}

		sub, err := e.Index.AddQuery(req.TTL, q, s.handlerFor(send))
		if err != nil {
			send(map[string]string{"type": "error", "error": err.Error()})
			continue
		}

		send(map[string]string{"type": "subscribed", "id": sub.Query.ID})
	}
}

// handlerFor builds a query.Handler that renders each solution to a JSON
// frame and sends it over send, grounded on the reactive push pattern of
// the WSHandler.registerLiveQuery/wsSend pairing used for live SQL
// subscriptions.
func (s *wsServer) handlerFor(send func(any)) query.Handler {
	return func(result map[string]rdf.Term) {
		binding := make(map[string]string, len(result))
		for k, v := range result {
			binding[k] = v.String()
		}
		send(solutionFrame{Type: "solution", Binding: binding})
	}
}
