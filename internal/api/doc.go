// Package api serves the AI features over HTTP: match analysis and
// feedback, criteria extraction for announcements, streamed drafts and
// chat, prompt metrics and batch job submission. Handlers translate
// service errors into status codes and Korean user-facing messages.
package api
