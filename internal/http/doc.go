// Package http serves the Takt pages, form actions and JSON API.
//
// The router exposes the following endpoints:
//   - GET /: event creation form. POST /events creates an event and redirects
//     to its editor.
//   - GET /e/{slug}?t=...: public viewer filtered by target or assignee labels.
//   - GET /e/{slug}/edit: editor, or the unlock form while locked. POST
//     /e/{slug}/unlock and /e/{slug}/lock manage the access cookie.
//   - POST /e/{slug}/event, /items, /items/{id}, /items/{id}/delete,
//     /materials, /materials/{id}, /materials/{id}/delete, /contacts,
//     /labels/rename, /labels/remove: editor actions, edit access required.
//   - GET and POST /e/{slug}/broadcast, POST /e/{slug}/broadcast/clear:
//     announcement panel, broadcast access required.
//   - GET /e/{slug}/print?t=...: printable timeline with a QR code.
//   - GET /e/{slug}/calendar.ics?t=..., GET /e/{slug}/qr.png?t=...: exports.
//   - GET /e/{slug}/ws: change feed over a websocket.
//   - GET /api/events/{slug}?t=...: the view model as JSON.
//   - GET /healthz: storage liveness.
//
// Form actions answer with 303 See Other back to the page they came from,
// carrying a short status text in the msg or err query parameter.
package http
