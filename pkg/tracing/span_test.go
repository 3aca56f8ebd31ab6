package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartChildWithoutRootIsNoop(t *testing.T) {
	ctx := context.Background()
	got, span := StartChild(ctx, "store.postings")
	assert.Nil(t, span)
	assert.Equal(t, ctx, got)

	// nil spans accept every call
	span.SetAttr("k", "v")
	span.End()
	span.Log(ctx, slog.Default())
	assert.Zero(t, span.Duration())
}

func TestSpanTreeLogsDepthFirst(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := Start(context.Background(), "search", "req-1")
	var wg sync.WaitGroup
	for _, name := range []string{"store.rank_page", "store.count"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, child := StartChild(ctx, name)
			child.SetAttr("ok", true)
			child.End()
		}()
	}
	wg.Wait()
	root.End()

	require.Len(t, root.Children(), 2)
	root.Log(ctx, l)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "search", first["span"])
	assert.Equal(t, "req-1", first["trace_id"])
	assert.Equal(t, 0.0, first["depth"])
	assert.Contains(t, lines[1], `"trace_id":"req-1"`)
	assert.Contains(t, lines[1], `"ok":true`)
}

func TestLogSkippedAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, root := Start(context.Background(), "search", "req-2")
	root.End()
	root.Log(ctx, l)
	assert.Empty(t, buf.String())
}
