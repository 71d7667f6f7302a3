package wire

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// DebugServer exposes a health check and a websocket signal fan-out
// for browser-based supervisory dashboards, mirroring the framed
// stream but as JSON text frames.
type DebugServer struct {
	Healthy func() bool

	clientsMux sync.Mutex
	clients    map[*websocket.Conn]bool
}

// NewDebugServer constructs a DebugServer ready to register routes.
func NewDebugServer(healthy func() bool) *DebugServer {
	return &DebugServer{Healthy: healthy, clients: make(map[*websocket.Conn]bool)}
}

// Router builds the mux.Router serving /healthz, /debug/vars, and /ws.
func (d *DebugServer) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", d.handleHealthz)
	router.HandleFunc("/debug/vars", d.handleDebugVars)
	router.HandleFunc("/ws", d.handleWebsocket)
	return router
}

func (d *DebugServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ok := d.Healthy == nil || d.Healthy()
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("unhealthy"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (d *DebugServer) handleDebugVars(w http.ResponseWriter, r *http.Request) {
	d.clientsMux.Lock()
	n := len(d.clients)
	d.clientsMux.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"websocket_clients": n,
	})
}

func (d *DebugServer) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[wire] websocket upgrade error: %v", err)
		return
	}

	d.clientsMux.Lock()
	d.clients[ws] = true
	d.clientsMux.Unlock()

	defer func() {
		d.clientsMux.Lock()
		delete(d.clients, ws)
		d.clientsMux.Unlock()
		ws.Close()
	}()

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
}

// Broadcast fans a JSON-encoded signal out to every connected
// websocket client, dropping connections that fail to accept it.
func (d *DebugServer) Broadcast(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("[wire] error marshaling broadcast payload: %v", err)
		return
	}

	d.clientsMux.Lock()
	defer d.clientsMux.Unlock()
	for client := range d.clients {
		if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("[wire] error sending to websocket client: %v", err)
			client.Close()
			delete(d.clients, client)
		}
	}
}
