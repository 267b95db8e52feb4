// Package webhook receives Slack slash commands and Events API callbacks.
//
// Every POST is authenticated with Slack's request signing scheme before any
// parsing happens:
//
//   - X-Slack-Request-Timestamp must be within five minutes of now
//   - X-Slack-Signature must equal "v0=" + hex(HMAC-SHA256(secret, "v0:<ts>:<body>"))
//   - comparison uses crypto/subtle and failures return a generic 403
//   - bodies larger than max_body_size are rejected with 413
//
// # Routes
//
//	POST /slack/commands   form-encoded slash command, answered with a JSON reply
//	POST /slack/events     Events API: url_verification and app_mention
//	GET  /slack/health     liveness
//
// Slash commands are handed to a CommandHandler (see package command). An
// app_mention is answered with a usage hint; messages from bots and retried
// deliveries are acknowledged and otherwise ignored.
package webhook
