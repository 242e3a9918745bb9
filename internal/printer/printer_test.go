package printer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"

	"github.com/hay-kot/huddle/internal/core/chat"
)

func TestPrinter_NoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Successf("done %d", 3)
	p.Warnf("careful")
	p.FailItem("server", "unreachable")

	out := buf.String()
	assert.NotContains(t, out, "\033[")
	assert.Contains(t, out, Check+" done 3\n")
	assert.Contains(t, out, Dot+" careful\n")
	assert.Contains(t, out, "  "+Cross+" server: unreachable\n")
}

func TestPrinter_Ctx(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	ctx := NewContext(context.Background(), p)
	assert.Same(t, p, Ctx(ctx))
	assert.NotNil(t, Ctx(context.Background()))
}

func TestFatalError_ValidationErrors(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	var b criterio.FieldErrorsBuilder
	fieldErrs := b.Append("server.base_url", errors.New("must be http or https")).ToError()

	p.FatalError(fmt.Errorf("load config: %w", fieldErrs))

	out := buf.String()
	assert.Contains(t, out, "Validation Error")
	assert.Contains(t, out, "load config")
	assert.Contains(t, out, "server.base_url: must be http or https")
}

func TestFatalError_Hints(t *testing.T) {
	tests := []struct {
		name string
		err  error
		hint string
	}{
		{
			name: "not found",
			err:  fmt.Errorf("leave room: %w", &chat.NetworkError{Op: "leave room", StatusCode: 404}),
			hint: "does not exist",
		},
		{
			name: "server error",
			err:  &chat.NetworkError{Op: "list rooms", StatusCode: 503},
			hint: "try again later",
		},
		{
			name: "transport",
			err:  fmt.Errorf("list rooms: %w", &url.Error{Op: "Get", URL: "http://localhost:8080", Err: errors.New("connection refused")}),
			hint: "huddle doctor",
		},
		{
			name: "not connected",
			err:  chat.ErrNotConnected,
			hint: "server.ws_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			New(&buf).FatalError(tt.err)
			assert.Contains(t, buf.String(), tt.hint)
		})
	}
}

func TestFatalError_Plain(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).FatalError(errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[1], "boom")

	buf.Reset()
	New(&buf).FatalError(nil)
	assert.Empty(t, buf.String())
}
