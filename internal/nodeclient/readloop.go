package nodeclient

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ryxu-xo/euralink/logger"
)

const resumeTimeoutSeconds = 60

// readLoop reads frames off conn until it errors or ctx is canceled,
// decoding each as an envelope and dispatching by op. A non-nil return
// triggers runLoop's reconnect-with-backoff.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			c.setState(Connecting)
			return err
		}

		c.handleMessage(ctx, data)
	}
}

func (c *Client) handleMessage(ctx context.Context, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		logger.Warn("nodeclient: malformed frame", logger.String("node", c.cfg.Name), logger.ErrorField(err))
		return
	}

	switch env.Op {
	case OpReady:
		c.handleReady(ctx, data)
	case OpStats:
		var payload StatsPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			logger.Warn("nodeclient: malformed stats frame", logger.String("node", c.cfg.Name), logger.ErrorField(err))
			return
		}
		c.stats.RecordStats(payload)
	case OpPlayerUpdate:
		var update PlayerUpdate
		if err := json.Unmarshal(data, &update); err != nil {
			logger.Warn("nodeclient: malformed playerUpdate frame", logger.String("node", c.cfg.Name), logger.ErrorField(err))
			return
		}
		if update.GuildID == "" {
			return
		}
		c.stats.RecordPing(update.State.Ping)
		if c.dispatcher != nil {
			c.dispatcher.DispatchPlayerUpdate(c.cfg.Name, update.GuildID, update)
		}
	case OpEvent:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.Warn("nodeclient: malformed event frame", logger.String("node", c.cfg.Name), logger.ErrorField(err))
			return
		}
		if ev.GuildID == "" {
			return
		}
		if c.dispatcher != nil {
			c.dispatcher.DispatchGuildEvent(c.cfg.Name, ev.GuildID, ev)
		}
	default:
		logger.Debug("nodeclient: unknown op", logger.String("node", c.cfg.Name), logger.String("op", string(env.Op)))
	}
}

// handleReady absorbs the first (or resumed) ready message: records the
// session id, bumps the migration-fence token, resets the reconnect
// counter, enables resume for future reconnects, and transitions to Ready.
func (c *Client) handleReady(ctx context.Context, data []byte) {
	var ready ReadyPayload
	if err := json.Unmarshal(data, &ready); err != nil {
		logger.Warn("nodeclient: malformed ready frame", logger.String("node", c.cfg.Name), logger.ErrorField(err))
		return
	}

	c.mu.Lock()
	c.sessionID = ready.SessionID
	c.reconnectN = 0
	c.fenceID = uuid.NewString()
	c.mu.Unlock()
	c.setState(Ready)

	logger.Info("nodeclient: ready",
		logger.String("node", c.cfg.Name), logger.String("sessionId", ready.SessionID), logger.Bool("resumed", ready.Resumed))

	if !c.resumeEnabled {
		if err := c.Rest.ConfigureResume(ctx, ready.SessionID, true, resumeTimeoutSeconds); err != nil {
			logger.Warn("nodeclient: configure-resume failed", logger.String("node", c.cfg.Name), logger.ErrorField(err))
		} else {
			c.mu.Lock()
			c.resumeEnabled = true
			c.mu.Unlock()
		}
	}
}
