// Package api serves the podpress HTTP interface on top of echo.
//
// # Routes
//
// POST /api/process: submit {file_url, episode_url, settings}; returns the
// task id immediately. 400 for a bad request, 429 once the daily limit is
// used up.
//
// GET /api/status/:id: task snapshot with step, label, status and log.
//
// GET /api/result/:id: the generated article, or 404 until it exists.
//
// GET /api/usage-info: today's quota from the caller's point of view.
//
// GET /api/debug/tasks: compact listing of every tracked task.
//
// POST /api/debug/wordpress-test: log in with the configured credentials and
// submit a test post.
//
// GET /api/health: external binary availability.
//
// # Design Notes
//
// When paths.api_token is set every route requires "Authorization: Bearer
// <token>". The caller identity used for quota accounting is the client IP as
// resolved by echo's X-Forwarded-For extractor, trusting loopback and private
// proxies only.
package api
