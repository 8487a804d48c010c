package log

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_EnabledFiltersByLevel(t *testing.T) {
	h := NewHandler(WithLevel(slog.LevelWarn))
	ctx := context.Background()
	assert.False(t, h.Enabled(ctx, slog.LevelInfo))
	assert.True(t, h.Enabled(ctx, slog.LevelWarn))
	assert.True(t, h.Enabled(ctx, slog.LevelError))
}

func TestHandler_SerializeCarriesPluginAndAttrs(t *testing.T) {
	h := NewHandler(WithPlugin("fz"))
	withAttrs, ok := h.WithAttrs([]slog.Attr{slog.String("mode", "server")}).(*Handler)
	require.True(t, ok)

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "race started", 0)
	record.AddAttrs(slog.Int("laps", 3))

	msg := withAttrs.serialize(record)
	assert.Equal(t, "fz", msg.Context.Plugin)
	assert.Equal(t, "INFO", msg.Level)
	assert.Equal(t, "race started", msg.Message)
	require.Len(t, msg.Attrs, 2)
	assert.Equal(t, "mode", msg.Attrs[0].Key)
	assert.Equal(t, "server", msg.Attrs[0].Value)
	assert.Equal(t, "laps", msg.Attrs[1].Key)
	assert.Equal(t, "3", msg.Attrs[1].Value)
	assert.Equal(t, "int64", msg.Attrs[1].Type)
}

func TestHandler_WithGroupQualifiesKeys(t *testing.T) {
	h := NewHandler()
	grouped, ok := h.WithGroup("ship").(*Handler)
	require.True(t, ok)

	attr := grouped.toLogAttr(slog.Float64("throttle", 0.5))
	assert.Equal(t, "ship.throttle", attr.Key)
	assert.Equal(t, "0.5", attr.Value)
}

func TestToLogAttr_Kinds(t *testing.T) {
	h := NewHandler()
	cases := []struct {
		attr      slog.Attr
		wantType  string
		wantValue string
	}{
		{slog.String("s", "v"), "string", "v"},
		{slog.Int("i", -7), "int64", "-7"},
		{slog.Uint64("u", 7), "uint64", "7"},
		{slog.Bool("b", true), "bool", "true"},
		{slog.Duration("d", 2*time.Second), "duration", "2s"},
		{slog.Any("e", errors.New("bad")), "error", "bad"},
		{slog.Any("j", map[string]int{"n": 1}), "json", `{"n":1}`},
		{slog.Any("nil", nil), "any", "<nil>"},
	}
	for _, tc := range cases {
		got := h.toLogAttr(tc.attr)
		assert.Equal(t, tc.wantType, got.Type, tc.attr.Key)
		assert.Equal(t, tc.wantValue, got.Value, tc.attr.Key)
	}
}
