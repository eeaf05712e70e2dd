package resilience

import (
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient_Explicit(t *testing.T) {
	err := fmt.Errorf("load: %w", NewTransientError(errors.New("busy")))
	assert.True(t, IsTransient(err))
}

func TestIsTransient_Nil(t *testing.T) {
	assert.False(t, IsTransient(nil))
}

func TestIsTransient_PlainError(t *testing.T) {
	assert.False(t, IsTransient(errors.New("invalid input syntax")))
}

func TestIsTransient_PgCodes(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"40001", true},
		{"40P01", true},
		{"08006", true},
		{"57P01", true},
		{"23505", false},
		{"42P01", false},
		{"22P02", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := eris.Wrap(&pgconn.PgError{Code: tt.code}, "promote: copy")
			assert.Equal(t, tt.want, IsTransient(err))
		})
	}
}

func TestIsTransient_FTPReplies(t *testing.T) {
	assert.True(t, IsTransient(&textproto.Error{Code: 421, Msg: "service not available"}))
	assert.True(t, IsTransient(&textproto.Error{Code: 450, Msg: "file busy"}))
	assert.False(t, IsTransient(&textproto.Error{Code: 550, Msg: "no such file"}))
	assert.False(t, IsTransient(&textproto.Error{Code: 530, Msg: "not logged in"}))
}

func TestIsTransient_Network(t *testing.T) {
	assert.True(t, IsTransient(&net.DNSError{IsTimeout: true, Err: "timeout"}))
	assert.True(t, IsTransient(fmt.Errorf("dial: %w", syscall.ECONNREFUSED)))
	assert.True(t, IsTransient(fmt.Errorf("write: %w", syscall.ECONNRESET)))
	assert.True(t, IsTransient(errors.New("read tcp: i/o timeout")))
	assert.True(t, IsTransient(errors.New("write: Broken Pipe")))
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	te := NewTransientError(inner)
	assert.ErrorIs(t, te, inner)
	assert.Equal(t, "root cause", te.Error())
}
