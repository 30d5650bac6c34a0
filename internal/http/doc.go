// Package http provides HTTP handlers and middleware for the council portal API.
//
// The router exposes the following endpoints:
//   - POST /auth/login: body {"email","password"}. Sets the HTTP-only `token`
//     cookie and returns {"membre","token","expires_at"}.
//   - POST /auth/logout clears the cookie; GET /auth/me returns the caller.
//   - /members, /members/{id}: member directory. Mutations are admin only except
//     a member editing their own nom, email, fonction or password.
//     POST /members/{id}/photo takes a multipart "photo" file (JPEG, PNG or WebP).
//   - /sessions, /sessions/{id}: council sessions with their ordered
//     `ordre_du_jour`. POST /sessions/{id}/convocations/send convokes the
//     listed `membre_ids`, or every active member when the body is empty.
//   - /convocations, /convocations/{id}: convocation CRUD. POST
//     /convocations/bulk, POST /convocations/{id}/read and POST
//     /convocations/{id}/send-email drive the envoyée, lue, confirmée lifecycle.
//   - /minutes, /minutes/{id}: procès-verbaux; GET /minutes/{id}/export
//     downloads the rendered HTML document.
//   - GET /notifications and GET /dashboard: derived read-only views.
//   - /uploads/..., /metrics and /healthz are served without authentication.
//
// Errors are answered as {"error_code","message","errors"} with French
// messages. Request/response DTOs live alongside their respective handlers.
package http
