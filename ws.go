package main

import (
	"net/http"
	"time"

	"songwriter-go/logcolors"
	"songwriter-go/services/notifier"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// streamBuffer bounds events queued for one slow client.
	streamBuffer = 32
)

// streamNotices upgrades to a websocket, replays the active notices and then
// forwards every bus event until the client goes away.
func (a *App) streamNotices(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("%s Upgrade failed for %s: %v", logcolors.LogStream, r.RemoteAddr, err)
		return
	}
	defer conn.Close()

	events := make(chan *notifier.Event, streamBuffer)
	subID := a.bus.SubscribeAll(func(event *notifier.Event) {
		select {
		case events <- event:
		default:
			log.Debugf("%s Dropped %s for slow client %s", logcolors.LogStream, event.Type, r.RemoteAddr)
		}
	})
	defer a.bus.Unsubscribe(subID)

	log.Infof("%s Client connected: %s", logcolors.LogStream, r.RemoteAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warnf("%s Read error from %s: %v", logcolors.LogStream, r.RemoteAddr, err)
				}
				return
			}
		}
	}()

	for _, notice := range a.bus.Active(time.Now()) {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(notice); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				log.Debugf("%s Write to %s failed: %v", logcolors.LogStream, r.RemoteAddr, err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			log.Infof("%s Client disconnected: %s", logcolors.LogStream, r.RemoteAddr)
			return
		}
	}
}
