// Package ws provides the WebSocket stream between the playground and its
// browser clients.
//
// A client receives every workspace event (status changes, mounts, console
// lines, notices) and drives the workspace over the same connection. A host
// page that renders the preview iframe sends attach first: from then on
// documents are mounted for the browser instead of running headless, and the
// messages the iframe posts to its parent are forwarded tagged with the
// handle of the document that sent them. Console frames for a handle that
// runs headless are dropped, so each execution is logged once.
//
// Message Types (Client → Server):
//   - attach: claim the preview; acked with the handle to load
//   - console: {"type":"console","handle":…,"method":…,"args":[…]}
//   - edit: {"type":"edit","fragment":"html|css|js","value":…}
//   - save: request an immediate save
//   - clear: empty the console
//   - ping: keep-alive ping
//
// Message Types (Server → Client):
//   - hello: client id, current status and the request's trace context
//   - status, mounted, log, console_cleared, notice: workspace events
//   - ack: result of attach, edit, save and clear
//   - pong: reply to ping
//   - error: the message could not be handled
//
// Example Usage:
//
//	handler := ws.NewHandler(controller, host.Bus(), ws.Options{Logger: logger})
//	router.GET("/stream", handler.HandleConnection)
package ws
