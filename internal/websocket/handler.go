package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"tara-tutor-be/internal/constant"
	"tara-tutor-be/internal/dto"
	"tara-tutor-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches the socket to sessionID and runs tutoring turns for its frames until the
// socket closes. Deltas go only to this socket; completed turns are broadcast by the service.
// Closing the socket cancels the turn in progress, which is then not recorded.
func ServeWs(hub *Hub, svc service.ITutorService, c *websocket.Conn, sessionID string) {
	client := &Client{Hub: hub, Conn: c, SessionID: sessionID, Send: make(chan []byte, sendBuffer)}
	if !hub.attach(client) {
		c.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	inbound := make(chan []byte, 1)
	turnsDone := make(chan struct{})

	go client.writePump()
	go func() {
		defer close(turnsDone)
		for data := range inbound {
			runTurn(ctx, svc, client, data)
		}
	}()

	client.readPump(func(data []byte) {
		select {
		case inbound <- data:
		default:
			frame, _ := json.Marshal(dto.WsOutbound{Type: "error", SessionId: sessionID, Text: constant.TurnInProgressMessage})
			client.enqueue(frame)
		}
	})

	cancel()
	close(inbound)
	<-turnsDone
	hub.detach(client)
	c.Close()
}

// runTurn streams one turn to the client. Every delta is delivered in order before the next
// one is pulled; a client that stops reading ends the turn without recording it.
func runTurn(ctx context.Context, svc service.ITutorService, client *Client, data []byte) {
	var in dto.WsInbound
	if err := json.Unmarshal(data, &in); err != nil || (in.Chat == "" && in.Option == "") {
		client.deliver(ctx, dto.WsOutbound{Type: "error", SessionId: client.SessionID, Text: constant.InvalidFrameMessage})
		return
	}

	stream, err := svc.StreamChat(ctx, &dto.SendChatRequest{SessionId: client.SessionID, Chat: in.Chat, Option: in.Option})
	if err != nil {
		msg := err.Error()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			msg = fe.Message
		}
		client.deliver(ctx, dto.WsOutbound{Type: "error", SessionId: client.SessionID, Text: msg})
		return
	}
	defer stream.Close()

	for {
		chunk, ok := stream.Next()
		if !ok {
			break
		}
		if err := client.deliver(ctx, dto.WsOutbound{Type: "delta", SessionId: client.SessionID, Text: chunk}); err != nil {
			client.Hub.logger.Warn("Client", "Stream abandoned, turn discarded", map[string]interface{}{
				"session_id": client.SessionID,
				"error":      err.Error(),
			})
			return
		}
	}
	if ctx.Err() != nil {
		return
	}
	if err := client.deliver(ctx, dto.WsOutbound{Type: "done", SessionId: client.SessionID, Reply: stream.Final()}); err != nil {
		client.Hub.logger.Warn("Client", "Failed to deliver done frame", map[string]interface{}{
			"session_id": client.SessionID,
			"error":      err.Error(),
		})
	}
}
