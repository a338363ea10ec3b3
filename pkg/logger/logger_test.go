package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContextAddsKnownKeys(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("debug", "json", &buf)
	t.Cleanup(func() { Init("info", "json") })

	ctx := WithContext(context.Background(), ProjectIDKey, "PRJ_ABCD1234")
	ctx = WithContext(ctx, AssetIDKey, "AST_00000001")
	Error(ctx, "generation failed", errors.New("boom"), "seed", 42)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "generation failed", line["msg"])
	assert.Equal(t, "PRJ_ABCD1234", line["project_id"])
	assert.Equal(t, "AST_00000001", line["asset_id"])
	assert.Equal(t, "boom", line["error"])
	assert.EqualValues(t, 42, line["seed"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("warning").String())
	assert.Equal(t, "INFO", parseLevel("nonsense").String())
}

func TestCopyContext(t *testing.T) {
	src := WithContext(context.Background(), RequestIDKey, "req-1")
	src = WithContext(src, SceneIDKey, "SCN_1")

	dst := CopyContext(context.Background(), src)
	assert.Equal(t, "req-1", StringFromContext(dst, RequestIDKey))
	assert.Equal(t, "SCN_1", StringFromContext(dst, SceneIDKey))
	assert.Empty(t, StringFromContext(dst, AssetIDKey))
}
