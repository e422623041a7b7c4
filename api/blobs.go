package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"workflow-api/domain"
)

// blobMaxSize bounds uploaded attachment, voice-note and avatar payloads.
const blobMaxSize = 10 << 20

func (h *handlers) uploadAttachment(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return unauthorized(c, err)
	}
	data, fileName, mimeType, err := formFileBytes(c, "file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}

	ctx := c.Request().Context()
	t, err := h.Store.GetTask(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if t == nil {
		return respondError(c, domain.ErrNotFound)
	}

	att := domain.NewAttachment{FileName: fileName, MimeType: mimeType, Data: data}
	updated, err := h.Tasks.Update(ctx, actor, *t, []domain.NewAttachment{att}, nil, nil, nil)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *handlers) uploadVoiceNote(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return unauthorized(c, err)
	}
	data, _, _, err := formFileBytes(c, "file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}
	durationMs := int64(0)
	if raw := c.FormValue("durationMs"); raw != "" {
		durationMs, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || durationMs < 0 {
			return c.JSON(http.StatusBadRequest, errorBody(errors.New("invalid durationMs")))
		}
	}

	ctx := c.Request().Context()
	t, err := h.Store.GetTask(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if t == nil {
		return respondError(c, domain.ErrNotFound)
	}

	vn := domain.NewVoiceNote{DurationMs: durationMs, Data: data}
	updated, err := h.Tasks.Update(ctx, actor, *t, nil, nil, []domain.NewVoiceNote{vn}, nil)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *handlers) uploadAvatar(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return unauthorized(c, err)
	}
	data, _, mimeType, err := formFileBytes(c, "file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}

	ctx := c.Request().Context()
	current, err := h.Store.GetMember(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if current == nil {
		return respondError(c, domain.ErrNotFound)
	}
	updated, err := h.Members.Update(ctx, actor, *current, data, mimeType)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *handlers) downloadBlob(c echo.Context) error {
	if _, err := h.actor(c); err != nil {
		return unauthorized(c, err)
	}
	ctx := c.Request().Context()
	key := c.Param("key")
	data, err := h.Blobs.Download(ctx, key)
	if err != nil {
		return respondError(c, err)
	}
	if data == nil {
		return c.NoContent(http.StatusNotFound)
	}
	contentType := "application/octet-stream"
	if ct, ok := h.Blobs.(ContentTyper); ok {
		if stored := ct.ContentType(ctx, key); stored != "" {
			contentType = stored
		}
	}
	return c.Blob(http.StatusOK, contentType, data)
}

func formFileBytes(c echo.Context, field string) (data []byte, fileName, mimeType string, err error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, "", "", errors.New("missing file")
	}
	if fh.Size > blobMaxSize {
		return nil, "", "", errors.New("file too large")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", "", err
	}
	defer f.Close()
	data, err = io.ReadAll(io.LimitReader(f, blobMaxSize))
	if err != nil {
		return nil, "", "", err
	}
	return data, fh.Filename, fh.Header.Get(echo.HeaderContentType), nil
}
