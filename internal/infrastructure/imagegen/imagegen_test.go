package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyforge-api/internal/domain/entity"
)

func TestSnapDimension(t *testing.T) {
	cases := map[int]int{
		1024: 1024,
		720:  704,
		1280: 1280,
		576:  576,
		100:  320,
		9000: 4096,
		1000: 1024,
	}
	for in, want := range cases {
		assert.Equal(t, want, SnapDimension(in), "SnapDimension(%d)", in)
	}
}

func TestAspectRatio(t *testing.T) {
	cases := []struct {
		w, h int
		want string
	}{
		{2560, 1080, "21:9"},
		{1024, 576, "16:9"},
		{1280, 704, "16:9"},
		{1500, 1000, "3:2"},
		{1200, 1000, "4:3"},
		{1024, 1024, "1:1"},
		{800, 1000, "5:4"},
		{600, 1000, "2:3"},
		{500, 1000, "9:16"},
		{400, 1000, "9:21"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, AspectRatio(tc.w, tc.h), "AspectRatio(%d, %d)", tc.w, tc.h)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 1024))

	long := strings.Repeat("a", 1100)
	got := Truncate(long, PromptLimit("amazon.nova-canvas-v1:0"))
	assert.Len(t, got, 1024)
	assert.True(t, strings.HasSuffix(got, "..."))

	assert.Equal(t, long, Truncate(long, PromptLimit("stability.sd3-5-large-v1:0")))
}

func TestAssetDimensions(t *testing.T) {
	w, h := AssetDimensions(entity.AssetTypeEnvironment)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 704, h)

	w, h = AssetDimensions(entity.AssetTypeCharacter)
	assert.Equal(t, 1024, w)
	assert.Equal(t, 1024, h)

	w, h = SceneDimensions()
	assert.Equal(t, 1024, w)
	assert.Equal(t, 576, h)
}

func decodePayload(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	return m
}

func TestBuildPayloadNovaTextImage(t *testing.T) {
	body, err := buildPayload("amazon.nova-canvas-v1:0", &Request{
		Prompt: "a knight", Seed: 2147483650, Width: 1024, Height: 1024,
	})
	require.NoError(t, err)

	m := decodePayload(t, body)
	assert.Equal(t, "TEXT_IMAGE", m["taskType"])
	params := m["textToImageParams"].(map[string]any)
	assert.Equal(t, "a knight", params["text"])
	assert.Equal(t, DefaultNegativePrompt, params["negativeText"])

	cfg := m["imageGenerationConfig"].(map[string]any)
	assert.Equal(t, "premium", cfg["quality"])
	assert.Equal(t, 7.5, cfg["cfgScale"])
	assert.Equal(t, float64(3), cfg["seed"])
	assert.Nil(t, m["imageVariationParams"])
}

func TestBuildPayloadNovaVariation(t *testing.T) {
	body, err := buildPayload("amazon.nova-canvas-v1:0", &Request{
		Prompt:          "scene",
		NegativePrompt:  SceneNegativePrompt,
		Width:           1024,
		Height:          576,
		ReferenceImages: [][]byte{[]byte("img")},
	})
	require.NoError(t, err)

	m := decodePayload(t, body)
	assert.Equal(t, "IMAGE_VARIATION", m["taskType"])
	params := m["imageVariationParams"].(map[string]any)
	assert.Equal(t, 0.9, params["similarityStrength"])
	assert.Equal(t, SceneNegativePrompt, params["negativeText"])
	assert.Equal(t, []any{base64.StdEncoding.EncodeToString([]byte("img"))}, params["images"])
}

func TestBuildPayloadStability(t *testing.T) {
	body, err := buildPayload("stability.sd3-5-large-v1:0", &Request{
		Prompt: "castle", Seed: 4294967296, Width: 1024, Height: 576,
	})
	require.NoError(t, err)
	m := decodePayload(t, body)
	assert.Equal(t, "16:9", m["aspect_ratio"])
	assert.Equal(t, "png", m["output_format"])
	assert.Equal(t, "text-to-image", m["mode"])
	assert.Equal(t, float64(1), m["seed"])

	body, err = buildPayload(sdxlModelID, &Request{Prompt: "castle", Seed: 5, Width: 1024, Height: 1024})
	require.NoError(t, err)
	m = decodePayload(t, body)
	assert.Equal(t, float64(10), m["cfg_scale"])
	assert.Equal(t, float64(50), m["steps"])
	assert.Equal(t, "cinematic", m["style_preset"])
	prompts := m["text_prompts"].([]any)
	require.Len(t, prompts, 2)
	assert.Equal(t, float64(-1), prompts[1].(map[string]any)["weight"])
}

func TestParseResponse(t *testing.T) {
	png := base64.StdEncoding.EncodeToString([]byte("png-bytes"))

	img, err := parseResponse("amazon.nova-canvas-v1:0", []byte(`{"images":["`+png+`"],"error":null}`))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), img)

	img, err = parseResponse(sdxlModelID, []byte(`{"artifacts":[{"base64":"`+png+`"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), img)

	_, err = parseResponse("amazon.nova-canvas-v1:0", []byte(`{"error":"content blocked"}`))
	assert.ErrorContains(t, err, "content blocked")

	_, err = parseResponse("amazon.nova-canvas-v1:0", []byte(`{"images":[]}`))
	assert.ErrorIs(t, err, ErrEmptyImage)
}

type fakeInvoker struct {
	input *bedrockruntime.InvokeModelInput
	body  []byte
	err   error
}

func (f *fakeInvoker) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestBedrockGenerator(t *testing.T) {
	png := base64.StdEncoding.EncodeToString([]byte("img"))
	inv := &fakeInvoker{body: []byte(`{"images":["` + png + `"]}`)}
	g := newBedrockGenerator(inv, "amazon.nova-canvas-v1:0")

	res, err := g.Generate(context.Background(), &Request{Prompt: "p", Seed: 42, Width: 1024, Height: 1024})
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), res.Image)
	assert.Equal(t, int64(42), res.Seed)
	assert.Equal(t, "amazon.nova-canvas-v1:0", *inv.input.ModelId)
	assert.Equal(t, "application/json", *inv.input.ContentType)

	inv.err = errors.New("throttled")
	_, err = g.Generate(context.Background(), &Request{Prompt: "p"})
	assert.ErrorContains(t, err, "throttled")
}

func TestMockGenerator(t *testing.T) {
	g := Instrument(NewMockGenerator())
	res, err := g.Generate(context.Background(), &Request{Prompt: "x", Seed: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.Seed)
	assert.True(t, strings.HasPrefix(string(res.Image), "\x89PNG"))
	assert.Equal(t, "mock", g.Name())

	m := NewMockGenerator()
	m.FailWith(errors.New("boom"))
	_, err = m.Generate(context.Background(), &Request{})
	assert.EqualError(t, err, "boom")
	assert.Len(t, m.Requests(), 1)
}

func TestImagenAspectRatio(t *testing.T) {
	assert.Equal(t, "16:9", imagenAspectRatio(1024, 576))
	assert.Equal(t, "1:1", imagenAspectRatio(1024, 1024))
	assert.Equal(t, "16:9", imagenAspectRatio(1280, 704))
}
