package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/raunerlucas/app-gestao-projetos/internal/audit"
)

// auditChanSize bounds the in-flight audit queue. Request handlers never
// block on audit writes; when the queue is full the entry is dropped.
const auditChanSize = 256

// auditLog queues an audit entry for asynchronous persistence.
func (s *Server) auditLog(action, entityType, entityID, username string, details map[string]any) {
	if s.auditRepo == nil || s.auditCh == nil {
		return
	}

	entry := &audit.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Username:   username,
		Source:     "api",
		Details:    details,
	}

	select {
	case s.auditCh <- entry:
	default:
		s.logger.Warn("audit queue full, entry dropped",
			"action", action,
			"entity_type", entityType,
		)
	}
}

// drainAuditLog persists queued audit entries one at a time, matching
// SQLite's single-writer model. On shutdown it flushes whatever is still
// queued before returning.
func (s *Server) drainAuditLog(ctx context.Context) {
	for {
		select {
		case entry := <-s.auditCh:
			s.persistAuditEntry(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-s.auditCh:
					s.persistAuditEntry(entry)
				default:
					return
				}
			}
		}
	}
}

// persistAuditEntry writes one entry, detached from any request context so
// shutdown flushing still works after request contexts are cancelled.
func (s *Server) persistAuditEntry(entry *audit.AuditLog) {
	if err := s.auditRepo.Create(context.Background(), entry); err != nil {
		s.logger.Error("audit write failed",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"error", err,
		)
	}
}

// handleListAuditLogs returns a filtered, paginated slice of the audit
// trail. Supported query parameters: action, entity_type, entity_id,
// limit (default 50, capped by the repository), offset.
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeInternalError(w, "audit logging not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		Limit:      intParam(q.Get("limit")),
		Offset:     intParam(q.Get("offset")),
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		writeInternalError(w, "failed to list audit logs")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// intParam parses a query parameter as a non-negative int, returning 0 for
// anything unparsable so the repository defaults apply.
func intParam(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
