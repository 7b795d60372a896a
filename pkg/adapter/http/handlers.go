package http

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/marmos91/wex/pkg/dispatch"
	"github.com/marmos91/wex/pkg/listing"
)

// UploadField is the multipart field carrying uploaded files.
const UploadField = "files"

type handlers struct {
	adapter *Adapter
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *handlers) run(c echo.Context, req dispatch.Request) (dispatch.Outcome, error) {
	d := h.adapter.dispatcher
	if d == nil {
		return dispatch.Outcome{}, echo.NewHTTPError(http.StatusServiceUnavailable, "no dispatcher")
	}
	return d.DispatchRequest(c.Request().Context(), req), nil
}

// get serves GET and HEAD: file contents, or a directory listing as HTML
// (JSON when the client accepts application/json).
func (h *handlers) get(c echo.Context) error {
	out, err := h.run(c, dispatch.Request{Method: dispatch.MethodRead, Path: c.Request().URL.Path})
	if err != nil {
		return err
	}
	if !out.OK() {
		return respondError(c, out)
	}

	switch out.Result {
	case dispatch.ResultListing:
		return respondListing(c, out.Listing)
	case dispatch.ResultFile:
		return respondFile(c, out)
	default:
		return c.NoContent(http.StatusNoContent)
	}
}

// put replaces the file at the request path with the body.
func (h *handlers) put(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return bodyError(c, err)
	}

	out, err := h.run(c, dispatch.Request{Method: dispatch.MethodWrite, Path: c.Request().URL.Path, Payload: body})
	if err != nil {
		return err
	}
	return respondAccepted(c, out)
}

// post creates a directory (?op=mkdir) or stores a multipart upload in the
// directory at the request path.
func (h *handlers) post(c echo.Context) error {
	switch c.QueryParam("op") {
	case "mkdir":
		out, err := h.run(c, dispatch.Request{Method: dispatch.MethodMkdir, Path: c.Request().URL.Path})
		if err != nil {
			return err
		}
		return respondAccepted(c, out)
	case "":
	default:
		return respondError(c, dispatch.Outcome{Status: dispatch.StatusRejected, Error: dispatch.ErrorBadRequest})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return bodyError(c, err)
	}

	var parts []dispatch.Part
	for _, fh := range form.File[UploadField] {
		f, err := fh.Open()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return bodyError(c, err)
		}
		parts = append(parts, dispatch.Part{Filename: fh.Filename, Data: data})
	}

	out, err := h.run(c, dispatch.Request{Method: dispatch.MethodUpload, Path: c.Request().URL.Path, Parts: parts})
	if err != nil {
		return err
	}

	// Browsers posting the listing form go back to the listing.
	if out.OK() && accepts(c, echo.MIMETextHTML) {
		return c.Redirect(http.StatusSeeOther, listing.Href(out.Target))
	}
	return respondAccepted(c, out)
}

// patch moves the request path to the destination given as the body.
func (h *handlers) patch(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return bodyError(c, err)
	}

	out, err := h.run(c, dispatch.Request{
		Method:      dispatch.MethodMove,
		Path:        c.Request().URL.Path,
		Destination: strings.TrimSpace(string(body)),
	})
	if err != nil {
		return err
	}
	return respondAccepted(c, out)
}

func (h *handlers) delete(c echo.Context) error {
	out, err := h.run(c, dispatch.Request{Method: dispatch.MethodDelete, Path: c.Request().URL.Path})
	if err != nil {
		return err
	}
	return respondAccepted(c, out)
}

// ============================================================================
// Responses
// ============================================================================

// StatusCode maps an Outcome onto the HTTP status sent to the client.
func StatusCode(out dispatch.Outcome) int {
	if out.OK() {
		if out.Result != dispatch.ResultAccepted {
			return http.StatusOK
		}
		if out.Created {
			return http.StatusCreated
		}
		return http.StatusNoContent
	}

	switch out.Error {
	case dispatch.ErrorNotFound:
		return http.StatusNotFound
	case dispatch.ErrorRootProtected, dispatch.ErrorPermissionDenied:
		return http.StatusForbidden
	case dispatch.ErrorBadRequest:
		return http.StatusBadRequest
	case dispatch.ErrorNotADirectory, dispatch.ErrorNotAFile, dispatch.ErrorCrossVolume:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondAccepted(c echo.Context, out dispatch.Outcome) error {
	if !out.OK() {
		return respondError(c, out)
	}
	return c.NoContent(StatusCode(out))
}

// respondError writes the fixed message for the outcome's error kind.
func respondError(c echo.Context, out dispatch.Outcome) error {
	code := StatusCode(out)
	msg := out.Error.Message()

	if accepts(c, echo.MIMEApplicationJSON) {
		return c.JSON(code, errorBody{Error: out.Error.String(), Message: msg})
	}
	return c.String(code, msg)
}

func respondListing(c echo.Context, l *dispatch.Listing) error {
	page := listing.Page{Host: c.Request().Host, Path: l.Path, Entries: l.Entries}

	var buf bytes.Buffer
	if accepts(c, echo.MIMEApplicationJSON) {
		if err := listing.RenderJSON(&buf, page); err != nil {
			return err
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, buf.Bytes())
	}

	if err := listing.RenderHTML(&buf, page); err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// respondFile sends file contents with a type derived from the extension
// and the file name as the suggested download name.
func respondFile(c echo.Context, out dispatch.Outcome) error {
	ctype := mime.TypeByExtension(path.Ext(out.Filename))
	if ctype == "" {
		ctype = echo.MIMEOctetStream
	}

	disposition := mime.FormatMediaType("inline", map[string]string{"filename": out.Filename})
	if disposition == "" {
		disposition = "inline"
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentDisposition, disposition)
	header.Set(echo.HeaderXContentTypeOptions, "nosniff")
	return c.Blob(http.StatusOK, ctype, out.Data)
}

// bodyError passes echo errors (such as the body limit) through and
// reports anything else as a bad request.
func bodyError(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	return respondError(c, dispatch.Outcome{Status: dispatch.StatusRejected, Error: dispatch.ErrorBadRequest})
}

func accepts(c echo.Context, mimeType string) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), mimeType)
}
