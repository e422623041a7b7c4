package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"workflow-api/domain"
)

// jsonBodyMaxSize bounds JSON request bodies. Blob uploads go through the
// multipart routes with their own limit.
const jsonBodyMaxSize = 1 << 20

var errUnknownMember = errors.New("token subject is not a board member")

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, d Deps) {
	h := &handlers{Deps: d}

	e.GET("/healthz", h.healthz)

	e.POST("/api/auth/signin", h.signIn)
	e.POST("/api/auth/signup", h.signUp)

	e.GET("/api/tasks", h.listTasks)
	e.GET("/api/tasks/archived", h.listArchivedTasks)
	e.POST("/api/tasks", h.createTask)
	e.PUT("/api/tasks/:id", h.updateTask)
	e.POST("/api/tasks/:id/move", h.moveTask)
	e.POST("/api/tasks/archive", h.archiveTasks)
	e.POST("/api/tasks/:id/unarchive", h.unarchiveTask)
	e.DELETE("/api/tasks/:id", h.deleteTask)
	e.DELETE("/api/tasks", h.clearTasks)

	e.POST("/api/tasks/:id/attachments", h.uploadAttachment)
	e.POST("/api/tasks/:id/voice-notes", h.uploadVoiceNote)
	e.GET("/api/blobs/:key", h.downloadBlob)

	e.GET("/api/members", h.listMembers)
	e.POST("/api/members", h.addMember)
	e.PUT("/api/members/:id", h.updateMember)
	e.DELETE("/api/members/:id", h.deleteMember)
	e.POST("/api/members/:id/avatar", h.uploadAvatar)

	e.GET("/api/notifications", h.listNotifications)
	e.POST("/api/notifications/:id/read", h.markNotificationRead)
	e.POST("/api/notifications/read-all", h.markAllNotificationsRead)

	e.GET("/api/config", h.getConfig)
	e.PUT("/api/config", h.updateConfig)
	e.POST("/api/board/reset", h.resetBoard)

	e.GET("/api/stream", h.streamChanges)
}

type handlers struct {
	Deps
}

func (h *handlers) healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// actor resolves the request's bearer token to a roster member. In the hosted
// variant an authenticated subject missing from the roster is enrolled from
// its token claims on first contact.
func (h *handlers) actor(c echo.Context) (*domain.Member, error) {
	sub, err := h.Auth.SubjectFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return nil, err
	}
	ctx := c.Request().Context()
	m, err := h.Store.GetMember(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	if m != nil {
		return m, nil
	}
	if h.LocalIdentity {
		// Locally issued token for a member that no longer exists.
		return nil, errUnknownMember
	}
	return h.enroll(c, sub)
}

func (h *handlers) enroll(c echo.Context, sub *Subject) (*domain.Member, error) {
	ctx := c.Request().Context()
	roster, err := h.Store.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	role := domain.RoleMember
	if len(roster) == 0 {
		role = domain.RoleAdmin
	}
	now := time.Now()
	m := domain.Member{
		ID:        sub.ID,
		Name:      sub.Name,
		Email:     sub.Email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if m.Name == "" {
		m.Name = sub.Email
	}
	if err := h.Store.PutMember(ctx, m); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"member": m.ID, "role": m.Role}).Info("enrolled member from token claims")
	return &m, nil
}

func unauthorized(c echo.Context, err error) error {
	return c.JSON(http.StatusUnauthorized, errorBody(err))
}

// decodeBody decodes a JSON request body, rejecting unknown fields and
// oversized payloads.
func decodeBody(c echo.Context, v any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, jsonBodyMaxSize))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// wake nudges the notification evaluator after writes that may affect
// due-date alarms.
func (h *handlers) wake() {
	if h.Wake == nil {
		return
	}
	select {
	case h.Wake <- struct{}{}:
	default:
	}
}

func (h *handlers) listTasks(c echo.Context) error {
	return h.listTasksFiltered(c, false)
}

func (h *handlers) listArchivedTasks(c echo.Context) error {
	return h.listTasksFiltered(c, true)
}

func (h *handlers) listTasksFiltered(c echo.Context, archived bool) (err error) {
	metrics := newRequestMetrics(c.Path())
	defer func() { metrics.Log(c.Response().Status, err) }()

	authStart := time.Now()
	_, authErr := h.actor(c)
	metrics.ObserveAuth(time.Since(authStart))
	if authErr != nil {
		metrics.SetErrorStage("auth")
		err = unauthorized(c, authErr)
		return err
	}

	fetchStart := time.Now()
	all, listErr := h.Store.ListTasks(c.Request().Context())
	metrics.ObserveApply(time.Since(fetchStart))
	if listErr != nil {
		metrics.SetErrorStage("storage")
		err = respondError(c, listErr)
		return err
	}
	tasks := make([]domain.Task, 0, len(all))
	for _, t := range all {
		if t.IsArchived == archived {
			tasks = append(tasks, t)
		}
	}
	metrics.SetItemsReturned(len(tasks))
	err = c.JSON(http.StatusOK, tasks)
	return err
}

func (h *handlers) createTask(c echo.Context) (err error) {
	metrics := newRequestMetrics(c.Path())
	defer func() { metrics.Log(c.Response().Status, err) }()

	authStart := time.Now()
	actor, authErr := h.actor(c)
	metrics.ObserveAuth(time.Since(authStart))
	if authErr != nil {
		metrics.SetErrorStage("auth")
		err = unauthorized(c, authErr)
		return err
	}

	var t domain.Task
	if decErr := decodeBody(c, &t); decErr != nil {
		metrics.SetErrorStage("decode")
		err = c.JSON(http.StatusBadRequest, errorBody(errors.New("invalid body")))
		return err
	}

	applyStart := time.Now()
	created, createErr := h.Tasks.Create(c.Request().Context(), actor, t, nil, nil)
	metrics.ObserveApply(time.Since(applyStart))
	if createErr != nil {
		metrics.SetErrorStage("apply")
		err = respondError(c, createErr)
		return err
	}
	h.wake()
	err = c.JSON(http.StatusCreated, created)
	return err
}

func (h *handlers) updateTask(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return unauthorized(c, err)
	}
	var t domain.Task
	if err := decodeBody(c, &t); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(errors.New("invalid body")))
	}
	t.ID = c.Param("id")

	ctx := c.Request().Context()
	original, err := h.Store.GetTask(ctx, t.ID)
	if err != nil {
		return respondError(c, err)
	}
	if original == nil {
		return respondError(c, domain.ErrNotFound)
	}
	// The payload is the whole document; anything it no longer lists is a
	// removal and its blob must go.
	removeAtts := missingAttachments(original.Attachments, t.Attachments)
	removeVNs := missingVoiceNotes(original.VoiceNotes, t.VoiceNotes)

	updated, err := h.Tasks.Update(ctx, actor, t, nil, removeAtts, nil, removeVNs)
	if err != nil {
		return respondError(c, err)
	}
	h.wake()
	return c.JSON(http.StatusOK, updated)
}

func (h *handlers) moveTask(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return unauthorized(c, err)
	}
	var req struct {
		Status domain.TaskStatus `json:"status"`
	}
	if err := decodeBody(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(errors.New("invalid body")))
	}
	moved, err := h.Tasks.Move(c.Request().Context(), actor, c.Param("id"), req.Status)
	if err != nil {
		return respondError(c, err)
	}
	h.wake()
	return c.JSON(http.StatusOK, moved)
}

func (h *handlers) archiveTasks(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return unauthorized(c, err)
	}
	var req struct {
		TaskIDs []string `json:"taskIds"`
	}
	if err := decodeBody(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(errors.New("invalid body")))
	}
	archived, err := h.Tasks.Archive(c.Request().Context(), actor, req.TaskIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"archived": archived})
}

func (h *handlers) unarchiveTask(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return unauthorized(c, err)
	}
	restored, err := h.Tasks.Unarchive(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, restored)
}

func (h *handlers) deleteTask(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return unauthorized(c, err)
	}
	if err := h.Tasks.Delete(c.Request().Context(), actor, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) clearTasks(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return unauthorized(c, err)
	}
	if err := h.Board.ClearAllTasks(c.Request().Context(), actor); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) listMembers(c echo.Context) error {
	if _, err := h.actor(c); err != nil {
		return unauthorized(c, err)
	}
	members, err := h.Store.ListMembers(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, members)
}

type memberRequest struct {
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Role      domain.MemberRole `json:"role"`
	AvatarURL string            `json:"avatarUrl,omitempty"`
	Password  string            `json:"password,omitempty"`
}

func (h *handlers) addMember(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return unauthorized(c, err)
	}
	var req memberRequest
	if err := decodeBody(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(errors.New("invalid body")))
	}
	m, err := h.Members.Add(c.Request().Context(), actor, domain.NewMemberInput{
		Name:      req.Name,
		Email:     req.Email,
		Role:      req.Role,
		AvatarURL: req.AvatarURL,
		Password:  req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *handlers) updateMember(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return unauthorized(c, err)
	}
	var m domain.Member
	if err := decodeBody(c, &m); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(errors.New("invalid body")))
	}
	m.ID = c.Param("id")
	updated, err := h.Members.Update(c.Request().Context(), actor, m, nil, "")
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *handlers) deleteMember(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return unauthorized(c, err)
	}
	if err := h.Members.Delete(c.Request().Context(), actor, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) listNotifications(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return unauthorized(c, err)
	}
	feed, err := h.Notifications.Feed(c.Request().Context(), actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, feed)
}

func (h *handlers) markNotificationRead(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return unauthorized(c, err)
	}
	if err := h.Notifications.MarkRead(c.Request().Context(), actor, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) markAllNotificationsRead(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return unauthorized(c, err)
	}
	if err := h.Notifications.MarkAllRead(c.Request().Context(), actor); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) getConfig(c echo.Context) error {
	if _, err := h.actor(c); err != nil {
		return unauthorized(c, err)
	}
	cfg, err := h.Board.Config(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *handlers) updateConfig(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return unauthorized(c, err)
	}
	var req struct {
		ColumnNames map[domain.TaskStatus]string `json:"columnNames"`
	}
	if err := decodeBody(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(errors.New("invalid body")))
	}
	cfg, err := h.Board.UpdateColumnNames(c.Request().Context(), actor, req.ColumnNames)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *handlers) resetBoard(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return unauthorized(c, err)
	}
	if err := h.Board.Reset(c.Request().Context(), actor); err != nil {
		return respondError(c, err)
	}
	h.wake()
	return c.NoContent(http.StatusNoContent)
}

func missingAttachments(original, updated []domain.Attachment) []domain.Attachment {
	kept := make(map[string]struct{}, len(updated))
	for _, a := range updated {
		kept[a.ID] = struct{}{}
	}
	var removed []domain.Attachment
	for _, a := range original {
		if _, ok := kept[a.ID]; !ok {
			removed = append(removed, a)
		}
	}
	return removed
}

func missingVoiceNotes(original, updated []domain.VoiceNote) []domain.VoiceNote {
	kept := make(map[string]struct{}, len(updated))
	for _, v := range updated {
		kept[v.ID] = struct{}{}
	}
	var removed []domain.VoiceNote
	for _, v := range original {
		if _, ok := kept[v.ID]; !ok {
			removed = append(removed, v)
		}
	}
	return removed
}
