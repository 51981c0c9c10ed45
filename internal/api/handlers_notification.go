package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/scholarbridge/request-service/internal/domain"
)

func normalizeNotificationStatusFilter(raw string) (unreadOnly bool, ok bool) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "", "all":
		return false, true
	case "unread":
		return true, true
	default:
		return false, false
	}
}

// ListNotificationsHandler lists inbox notifications for the authenticated user.
func (h *Handlers) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}
	limit, offset, ok := h.parsePagination(w, r, 50)
	if !ok {
		return
	}
	unreadOnly, ok := normalizeNotificationStatusFilter(r.URL.Query().Get("status"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "Invalid status filter")
		return
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("unreadOnly")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid unreadOnly")
			return
		}
		unreadOnly = unreadOnly || parsed
	}

	items, err := h.service.ListNotifications(r.Context(), user, domain.NotificationListOptions{
		Limit:      limit,
		Offset:     offset,
		UnreadOnly: unreadOnly,
	})
	if err != nil {
		h.writeServiceError(w, "list_notifications", err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "", items)
}

func (h *Handlers) GetUnreadNotificationCountHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}

	count, err := h.service.UnreadNotificationCount(r.Context(), user)
	if err != nil {
		h.writeServiceError(w, "unread_notification_count", err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "", map[string]int64{"unreadCount": count})
}

func (h *Handlers) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}
	notificationID, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.MarkNotificationRead(r.Context(), user, notificationID); err != nil {
		h.writeServiceError(w, "mark_notification_read", err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "Notification marked as read", nil)
}

func (h *Handlers) MarkAllNotificationsReadHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}

	updated, err := h.service.MarkAllNotificationsRead(r.Context(), user)
	if err != nil {
		h.writeServiceError(w, "mark_all_notifications_read", err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "All notifications marked as read", map[string]int64{"updated": updated})
}

func (h *Handlers) DeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticatedUser(w, r)
	if !ok {
		return
	}
	notificationID, ok := h.uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteNotification(r.Context(), user, notificationID); err != nil {
		h.writeServiceError(w, "delete_notification", err)
		return
	}
	h.writeSuccess(w, http.StatusOK, "Notification deleted", nil)
}
