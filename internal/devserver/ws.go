package devserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

var errDriverNotConnected = errors.New("driver not connected")

// pushHub tracks connected driver websockets and pushes offer payloads to
// them.
type pushHub struct {
	mu     sync.Mutex
	conns  map[int]*websocket.Conn
	logger *slog.Logger
}

func newPushHub(logger *slog.Logger) *pushHub {
	return &pushHub{
		conns:  make(map[int]*websocket.Conn),
		logger: logger,
	}
}

func (h *pushHub) register(driverID int, conn *websocket.Conn) {
	h.mu.Lock()
	if old, ok := h.conns[driverID]; ok {
		old.Close()
	}
	h.conns[driverID] = conn
	h.mu.Unlock()
	h.logger.Info("driver websocket connected", "driver_id", driverID)
}

func (h *pushHub) unregister(driverID int, conn *websocket.Conn) {
	h.mu.Lock()
	if h.conns[driverID] == conn {
		delete(h.conns, driverID)
	}
	h.mu.Unlock()
	conn.Close()
}

// pushOffer sends one offer payload to the driver's socket.
func (h *pushHub) pushOffer(driverID int, payload any) error {
	h.mu.Lock()
	conn, ok := h.conns[driverID]
	h.mu.Unlock()
	if !ok {
		return errDriverNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
