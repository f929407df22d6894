package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/pkg/errors"
	"wallet-activity-stats/pkg/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// Scan frame types
const (
	FrameProgress = "progress"
	FrameResult   = "result"
	FrameError    = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ScanFrame is one server message on the scan socket
type ScanFrame struct {
	Type    string               `json:"type"`
	Message string               `json:"message,omitempty"`
	Data    *entity.AddressStats `json:"data,omitempty"`
}

// handleScan streams progress of a direct scan, then one result or error frame.
// Closing the socket cancels the scan.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	address := utils.ExtractAddress(q.Get("address"))
	window, windowErr := parseWindow(q)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var writeMu sync.Mutex
	send := func(f ScanFrame) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(f); err != nil {
			s.logger.Debug("Failed to write scan frame", zap.Error(err))
			cancel()
		}
	}

	switch {
	case address == "":
		send(ScanFrame{Type: FrameError, Message: "Invalid address"})
		return
	case windowErr != nil:
		send(ScanFrame{Type: FrameError, Message: "Invalid time window"})
		return
	}

	// the client never sends anything; a read error means it went away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug("Scan socket read error", zap.Error(err))
				}
				cancel()
				return
			}
		}
	}()

	log := s.logger.WithAddress(address)
	log.Info("Direct scan started", zap.String("remote_addr", r.RemoteAddr))

	stats, err := s.scanner.Scan(ctx, address, window, func(msg string) {
		send(ScanFrame{Type: FrameProgress, Message: msg})
	})
	if err != nil {
		switch {
		case errors.IsCancelled(err):
			log.Debug("Direct scan cancelled")
			return
		case errors.IsValidation(err):
			send(ScanFrame{Type: FrameError, Message: "Invalid address"})
		default:
			log.Error("Direct scan failed", zap.Error(err))
			send(ScanFrame{Type: FrameError, Message: "Scan failed"})
		}
		return
	}

	send(ScanFrame{Type: FrameResult, Data: stats})

	writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	writeMu.Unlock()
}
