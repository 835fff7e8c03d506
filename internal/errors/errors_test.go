package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteErrorFormatting(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := ErrContentMalformed("content/devlog.json", cause)

	assert.Equal(t, "[ERR_CONTENT_MALFORMED] content/devlog.json malformed content file: unexpected EOF", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, IsContent(err))
	assert.Equal(t, "malformed content file", PublicMessage(err))
}

func TestSiteErrorIs(t *testing.T) {
	wrapped := fmt.Errorf("loading: %w", ErrContentUnavailable(nil))

	assert.True(t, errors.Is(wrapped, ErrContentUnavailable(errors.New("other cause"))))
	assert.False(t, errors.Is(wrapped, ErrInvalidPath("x")))
}

func TestHTTPStatus(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", ErrInvalidPath("a;b"), http.StatusBadRequest},
		{"field validation", NewFieldValidationError("minScore", 9, "out of range"), http.StatusBadRequest},
		{"content", ErrContentUnavailable(nil), http.StatusServiceUnavailable},
		{"forbidden origin", ErrInvalidOrigin("https://evil.example"), http.StatusForbidden},
		{"generic", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestValidationErrorCollection(t *testing.T) {
	var vec ValidationErrorCollection
	assert.NoError(t, vec.Err())

	vec.AddField("sortBy", "size", "unknown sort field", "date", "title", "version")
	require.Error(t, vec.Err())
	assert.Equal(t, "validation error in field 'sortBy': unknown sort field", vec.Error())

	vec.AddField("sortOrder", "up", "unknown sort order")
	assert.Contains(t, vec.Error(), "validation failed with 2 errors")
	assert.True(t, IsValidation(vec.Err()))
	assert.Equal(t, ErrCodeValidationFailed, Code(vec.Err()))
	assert.Equal(t, ErrCodeValidationFailed, Code(NewFieldValidationError("q", "", "too short")))
}

func TestSuggestions(t *testing.T) {
	var vec ValidationErrorCollection
	vec.AddField("sortBy", "size", "unknown sort field", "use one of: date, title, version")
	vec.AddField("sortOrder", "up", "unknown sort order", "use asc or desc")

	wrapped := fmt.Errorf("bad request: %w", vec.Err())
	assert.Equal(t, []string{"use one of: date, title, version", "use asc or desc"}, Suggestions(wrapped))
	assert.Equal(t, []string{"pick 0-5"}, Suggestions(NewFieldValidationError("minScore", 9, "out of range", "pick 0-5")))
	assert.Nil(t, Suggestions(errors.New("plain")))
}

func TestPublicMessageHidesPathsAndCauses(t *testing.T) {
	err := fmt.Errorf("reload: %w", ErrContentUnavailable(errors.New("stat /srv/secret: no such file")).WithFile("/srv/secret"))

	assert.Equal(t, "content is not available", PublicMessage(err))
	assert.Equal(t, "internal server error", PublicMessage(errors.New("open /etc/passwd")))
	assert.Equal(t, "validation error in field 'q': too short", PublicMessage(NewFieldValidationError("q", "", "too short")))
	assert.Empty(t, PublicMessage(nil))
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse(NewFieldValidationError("sortBy", "size", "unknown sort field", "use one of: date, title, version"))
	assert.Equal(t, ErrCodeValidationFailed, resp.Error.Code)
	assert.Equal(t, []string{"use one of: date, title, version"}, resp.Error.Suggestions)

	resp = NewResponse(ErrInvalidOrigin("https://evil.example"))
	assert.Equal(t, ErrCodeInvalidOrigin, resp.Error.Code)
	assert.Equal(t, "origin not allowed: https://evil.example", resp.Error.Message)
	assert.Empty(t, resp.Error.Suggestions)
}

type recordingLogger struct {
	errors []string
	warns  []string
}

func (r *recordingLogger) Error(_ context.Context, _ error, msg string, _ ...interface{}) {
	r.errors = append(r.errors, msg)
}

func (r *recordingLogger) Warn(_ context.Context, _ error, msg string, _ ...interface{}) {
	r.warns = append(r.warns, msg)
}

func TestErrorHandlerRoutesByType(t *testing.T) {
	logger := &recordingLogger{}
	h := NewErrorHandler(logger)
	ctx := context.Background()

	h.Handle(ctx, nil)
	h.Handle(ctx, ErrPathTraversal("../etc"))
	h.Handle(ctx, ErrInvalidOrigin("https://evil.example"))
	h.Handle(ctx, ErrContentUnavailable(nil))
	h.Handle(ctx, errors.New("plain"))

	assert.Equal(t, []string{"Validation error occurred", "Request rejected"}, logger.warns)
	assert.Equal(t, []string{"Content error occurred", "Unhandled error occurred"}, logger.errors)
}
