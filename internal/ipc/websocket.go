/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package ipc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	ws "nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/friendsincode/playcore/internal/apierr"
	"github.com/friendsincode/playcore/internal/auth"
	"github.com/friendsincode/playcore/internal/engine"
	"github.com/friendsincode/playcore/internal/events"
	"github.com/friendsincode/playcore/internal/telemetry"
)

// wsRequest is one line of the websocket protocol.
type wsRequest struct {
	Command   []any  `json:"command"`
	RequestID uint64 `json:"request_id"`
}

// session serves one websocket connection through its own engine client.
type session struct {
	srv    *Server
	conn   *ws.Conn
	client *engine.Client
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("client_name")
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && name == "" {
		name = claims.ClientName
	}
	if name == "" {
		name = "ipc"
	}
	client, err := s.engine.CreateClient(name)
	if err != nil {
		writeCode(w, apierr.From(err, apierr.Uninitialized), nil)
		return
	}
	defer client.Destroy()

	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.IPCWebSocketConnections.Inc()
	defer telemetry.IPCWebSocketConnections.Dec()
	s.logger.Debug().Str("client", client.Name()).Msg("websocket session opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := &session{srv: s, conn: conn, client: client}
	go func() {
		defer cancel()
		sess.readLoop(ctx)
	}()

	if err := sess.writeLoop(ctx); err != nil {
		s.logger.Debug().Err(err).Str("client", client.Name()).Msg("websocket session ended")
		return
	}
	conn.Close(ws.StatusNormalClosure, "shutdown")
}

// writeLoop forwards client events until the engine shuts down. Replies to
// requests are rendered in the request/response shape.
func (sess *session) writeLoop(ctx context.Context) error {
	stop := context.AfterFunc(ctx, sess.client.Wakeup)
	defer stop()

	for {
		ev := sess.client.WaitEvent(engine.WaitForever)
		if err := ctx.Err(); err != nil {
			return err
		}
		if ev.Kind == events.None {
			continue
		}
		if err := sess.write(ctx, renderEvent(ev)); err != nil {
			return err
		}
		if ev.Kind == events.Shutdown {
			return nil
		}
	}
}

func (sess *session) readLoop(ctx context.Context) {
	for {
		var req wsRequest
		if err := wsjson.Read(ctx, sess.conn, &req); err != nil {
			var ce ws.CloseError
			if !errors.As(err, &ce) && ctx.Err() == nil {
				sess.srv.logger.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}
		if code := sess.handle(ctx, req); code != apierr.Success {
			if err := sess.write(ctx, map[string]any{"request_id": req.RequestID, "error": apierr.String(code)}); err != nil {
				return
			}
		}
	}
}

// handle runs one request. Requests answered through the client's event
// queue return Success; anything else is answered directly.
func (sess *session) handle(ctx context.Context, req wsRequest) apierr.Code {
	if len(req.Command) == 0 {
		return apierr.InvalidParameter
	}
	name, ok := req.Command[0].(string)
	if !ok {
		return apierr.InvalidParameter
	}
	params := req.Command[1:]
	c := sess.client

	switch name {
	case "get_property":
		prop, ok := stringParam(params, 0, 1)
		if !ok {
			return apierr.InvalidParameter
		}
		return apierr.From(c.GetPropertyAsync(req.RequestID, prop), apierr.Generic)
	case "set_property":
		prop, ok := stringParam(params, 0, 2)
		if !ok {
			return apierr.InvalidParameter
		}
		// The value keeps its JSON type.
		return apierr.From(c.SetPropertyAsync(req.RequestID, prop, params[1]), apierr.Generic)
	case "observe_property":
		id, ok := idParam(params, 0, 2)
		prop, ok2 := stringParam(params, 1, 2)
		if !ok || !ok2 {
			return apierr.InvalidParameter
		}
		return sess.ack(ctx, req.RequestID, c.ObserveProperty(id, prop), nil)
	case "unobserve_property":
		id, ok := idParam(params, 0, 1)
		if !ok {
			return apierr.InvalidParameter
		}
		return sess.ack(ctx, req.RequestID, nil, c.UnobserveProperty(id))
	case "request_log_messages":
		level, ok := stringParam(params, 0, 1)
		if !ok {
			return apierr.InvalidParameter
		}
		return sess.ack(ctx, req.RequestID, c.RequestLogMessages(level), nil)
	case "enable_event", "disable_event":
		kind, ok := stringParam(params, 0, 1)
		if !ok {
			return apierr.InvalidParameter
		}
		return sess.ack(ctx, req.RequestID, setEvents(c, kind, name == "enable_event"), nil)
	case "client_name":
		return sess.ack(ctx, req.RequestID, nil, c.Name())
	case "hook_add":
		hook, ok := stringParam(params, 0, 3)
		id, ok2 := idParam(params, 1, 3)
		if !ok || !ok2 {
			return apierr.InvalidParameter
		}
		prio, ok := params[2].(float64)
		if !ok {
			return apierr.InvalidParameter
		}
		return sess.ack(ctx, req.RequestID, c.HookAdd(ctx, id, hook, int(prio)), nil)
	case "hook_ack":
		id, ok := idParam(params, 0, 1)
		if !ok {
			return apierr.InvalidParameter
		}
		return sess.ack(ctx, req.RequestID, c.HookContinue(ctx, id), nil)
	}

	args, err := commandArgs(req.Command)
	if err != nil {
		return apierr.InvalidParameter
	}
	return apierr.From(c.CommandAsync(req.RequestID, args...), apierr.Generic)
}

// stringParam returns params[i] as a string when params has exactly n
// entries.
func stringParam(params []any, i, n int) (string, bool) {
	if len(params) != n {
		return "", false
	}
	s, ok := params[i].(string)
	return s, ok && s != ""
}

// idParam returns params[i] as a positive integer id.
func idParam(params []any, i, n int) (uint64, bool) {
	if len(params) != n {
		return 0, false
	}
	f, ok := params[i].(float64)
	if !ok || f < 1 || f != float64(uint64(f)) {
		return 0, false
	}
	return uint64(f), true
}

// ack answers a request that completes synchronously.
func (sess *session) ack(ctx context.Context, requestID uint64, err error, data any) apierr.Code {
	code := apierr.From(err, apierr.InvalidParameter)
	if code != apierr.Success {
		return code
	}
	out := map[string]any{"request_id": requestID, "error": apierr.String(apierr.Success)}
	if data != nil {
		out["data"] = data
	}
	if werr := sess.write(ctx, out); werr != nil {
		return apierr.Generic
	}
	return apierr.Success
}

func setEvents(c *engine.Client, name string, enable bool) error {
	if name == "all" {
		for k := events.Shutdown + 1; k <= events.Hook; k++ {
			if !k.Valid() {
				continue
			}
			if err := c.RequestEvent(k, enable); err != nil {
				return err
			}
		}
		return nil
	}
	kind, ok := events.Parse(name)
	if !ok {
		return fmt.Errorf("event %q: %w", name, apierr.InvalidParameter)
	}
	return c.RequestEvent(kind, enable)
}

func (sess *session) write(ctx context.Context, v any) error {
	wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return wsjson.Write(wctx, sess.conn, v)
}

// renderEvent maps replies to the request/response shape and everything
// else to the event shape.
func renderEvent(ev events.Event) map[string]any {
	switch ev.Kind {
	case events.GetPropertyReply, events.SetPropertyReply, events.CommandReply:
		out := map[string]any{
			"request_id": ev.ReplyUserdata,
			"error":      apierr.String(ev.Error),
		}
		switch data := ev.Data.(type) {
		case events.PropertyData:
			if data.Valid {
				out["data"] = data.Value
			}
		case events.CommandReplyData:
			if data.Result != nil {
				out["data"] = data.Result
			}
		}
		return out
	}
	return events.ToMap(ev)
}
