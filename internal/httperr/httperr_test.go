package httperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusOf(NotFound()))
	assert.Equal(t, http.StatusTooManyRequests, StatusOf(fmt.Errorf("outer: %w", TooManyRequests("slow down"))))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(&Error{Status: 200}))
}

func TestWrapKeepsCauseAndStack(t *testing.T) {
	base := errors.New("disk full")
	err := Wrap(base, http.StatusServiceUnavailable, "storage unavailable")

	assert.ErrorIs(t, err, base)
	assert.Equal(t, "storage unavailable: disk full", err.Error())
	assert.Contains(t, fmt.Sprintf("%+v", err.Cause()), "httperr_test.go")
}

func TestExposeOnlyForRateLimit(t *testing.T) {
	assert.True(t, TooManyRequests("x").Expose)
	assert.False(t, NotFound().Expose)
	assert.Equal(t, "Not Found", NotFound().Error())
}
