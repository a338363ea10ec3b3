package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyforge-api/internal/application/generation"
	"storyforge-api/internal/application/storyboard"
	"storyforge-api/internal/config"
	"storyforge-api/internal/infrastructure/imagegen"
	"storyforge-api/internal/infrastructure/persistence/postgres"
	"storyforge-api/internal/infrastructure/persistence/redis"
	"storyforge-api/internal/infrastructure/storage"
	"storyforge-api/internal/interfaces/http/dto"
	"storyforge-api/internal/interfaces/http/handler"
	"storyforge-api/internal/testutil"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type envelope struct {
	Code    int              `json:"code"`
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
	Meta    *dto.PageMeta    `json:"meta"`
	Error   *dto.ErrorDetail `json:"error"`
}

type harness struct {
	engine     *gin.Engine
	dispatcher *generation.InlineDispatcher
}

type harnessOptions struct {
	redis             *redis.Client
	generatePerMinute int
}

func newHarness(t *testing.T, hopts harnessOptions) *harness {
	t.Helper()
	client := testutil.NewDB(t)
	store, err := storage.NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)
	gen := imagegen.NewMockGenerator()
	tx := postgres.NewTxManager(client)

	var (
		cache   *redis.Cache
		opts    Options
		statsDB storyboard.StatsCache
		invalid generation.CacheInvalidator
	)
	if hopts.redis != nil {
		cache = redis.NewCache(hopts.redis)
		statsDB = cache
		invalid = cache
		opts.Limiter = redis.NewRateLimiter(hopts.redis)
		opts.Invalidator = cache
	}
	opts.StaticRoot = store.Root()

	executor := generation.NewExecutor(generation.Deps{
		Projects:    postgres.NewProjectRepository(client),
		Assets:      postgres.NewAssetRepository(client),
		Versions:    postgres.NewAssetVersionRepository(client),
		Variants:    postgres.NewAssetVariantRepository(client),
		Scenes:      postgres.NewSceneRepository(client),
		Exports:     postgres.NewExportRepository(client),
		Transactor:  tx,
		Generator:   gen,
		Store:       store,
		Invalidator: invalid,
	}, generation.Options{})
	dispatcher := generation.NewInlineDispatcher(executor)

	svc := storyboard.NewService(storyboard.Deps{
		Projects:   postgres.NewProjectRepository(client),
		Assets:     postgres.NewAssetRepository(client),
		Versions:   postgres.NewAssetVersionRepository(client),
		Variants:   postgres.NewAssetVariantRepository(client),
		Scripts:    postgres.NewScriptRepository(client),
		Scenes:     postgres.NewSceneRepository(client),
		Exports:    postgres.NewExportRepository(client),
		Transactor: tx,
		Dispatcher: dispatcher,
		StatsCache: statsDB,
	}, storyboard.Options{Provider: gen.Name()})

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.Observability.Metrics.Enabled = true
	cfg.Observability.Metrics.Path = "/metrics"
	if hopts.generatePerMinute > 0 {
		cfg.Security.RateLimit.Enabled = true
		cfg.Security.RateLimit.RequestsPerSecond = 1000
		cfg.Security.RateLimit.GeneratePerMinute = hopts.generatePerMinute
	}

	r := New(cfg, Handlers{
		Health:  handler.NewHealthHandler(client, hopts.redis, store, gen, "test"),
		Project: handler.NewProjectHandler(svc),
		Asset:   handler.NewAssetHandler(svc),
		Script:  handler.NewScriptHandler(svc),
		Scene:   handler.NewSceneHandler(svc),
		Export:  handler.NewExportHandler(svc),
	}, opts)

	// 后台任务必须在数据库与临时目录清理之前结束
	t.Cleanup(dispatcher.Wait)
	return &harness{engine: r.Engine(), dispatcher: dispatcher}
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return redis.NewClientWithRedis(rdb)
}

func (h *harness) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	var req *http.Request
	if reader != nil {
		req = httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

type idOnly struct {
	ID string `json:"id"`
}

type assetView struct {
	GenerationStatus string `json:"generation_status"`
	ThumbnailURL     string `json:"thumbnail_url"`
	Versions         []struct {
		Version int `json:"version"`
	} `json:"versions"`
}

func (h *harness) createProject(t *testing.T) string {
	t.Helper()
	w, env := h.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"name": "Harbor"})
	require.Equal(t, http.StatusCreated, w.Code)
	return decode[idOnly](t, env).ID
}

func (h *harness) createAsset(t *testing.T, pid, name string) string {
	t.Helper()
	w, env := h.do(t, http.MethodPost, "/api/v1/projects/"+pid+"/assets", map[string]any{
		"name":          name,
		"type":          "prop",
		"visual_prompt": "weathered wooden " + name,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	h.dispatcher.Wait()
	return decode[idOnly](t, env).ID
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	w, _ := h.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = h.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = h.do(t, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ready struct {
		Status   string `json:"status"`
		Storage  string `json:"storage"`
		ImageGen string `json:"image_provider"`
		Checks   map[string]struct {
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	assert.Equal(t, "ok", ready.Status)
	assert.Equal(t, "ok", ready.Checks["postgres"].Status)
	assert.Equal(t, "disabled", ready.Checks["redis"].Status)
	assert.Equal(t, "local", ready.Storage)
	assert.Equal(t, "mock / mock-1x1", ready.ImageGen)

	w, _ = h.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProjectEndpoints(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	w, env := h.do(t, http.MethodPost, "/api/v1/projects", map[string]any{"visual_style": "noir"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name is required", env.Message)

	pid := h.createProject(t)
	h.createProject(t)

	w, env = h.do(t, http.MethodGet, "/api/v1/projects?page=1&page_size=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 2, env.Meta.Total)
	assert.Equal(t, 2, env.Meta.TotalPages)
	assert.Len(t, decode[[]dto.ProjectResponse](t, env), 1)

	w, env = h.do(t, http.MethodPatch, "/api/v1/projects/"+pid, map[string]any{"visual_style": "noir"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "noir", decode[dto.ProjectResponse](t, env).VisualStyle)

	w, env = h.do(t, http.MethodGet, "/api/v1/projects/PRJ_missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Project not found", env.Message)
	require.NotNil(t, env.Error)
	assert.Equal(t, "3001", env.Error.ErrorCode)

	w, env = h.do(t, http.MethodDelete, "/api/v1/projects/"+pid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[dto.Deleted](t, env).Success)
}

func TestAssetLifecycleEndpoints(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	pid := h.createProject(t)

	w, env := h.do(t, http.MethodPost, "/api/v1/projects/"+pid+"/assets", map[string]any{"name": "Crate", "type": "vehicle"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid asset type", env.Message)

	aid := h.createAsset(t, pid, "Crate")

	w, env = h.do(t, http.MethodGet, "/api/v1/projects/"+pid+"/assets/"+aid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[assetView](t, env)
	assert.Equal(t, "completed", detail.GenerationStatus)
	require.Len(t, detail.Versions, 1)
	require.True(t, strings.HasPrefix(detail.ThumbnailURL, "/generated/assets/"+aid+"_"))

	img, _ := h.do(t, http.MethodGet, detail.ThumbnailURL, nil)
	assert.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, "image/png", img.Header().Get("Content-Type"))

	// 空请求体按单张重新生成处理
	w, env = h.do(t, http.MethodPost, "/api/v1/projects/"+pid+"/assets/"+aid+"/generate", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	result := decode[storyboard.GenerateResult](t, env)
	assert.Equal(t, "Regenerating via mock...", result.Message)
	h.dispatcher.Wait()

	w, env = h.do(t, http.MethodPost, "/api/v1/projects/"+pid+"/assets/"+aid+"/generate", map[string]any{"variants": 9})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "Generating 4 variants via mock...", decode[storyboard.GenerateResult](t, env).Message)
	h.dispatcher.Wait()

	w, env = h.do(t, http.MethodPost, "/api/v1/projects/"+pid+"/assets/"+aid+"/variants", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "variant_id is required", env.Message)

	w, _ = h.do(t, http.MethodPost, "/api/v1/projects/"+pid+"/assets/"+aid+"/lock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, env = h.do(t, http.MethodPost, "/api/v1/projects/"+pid+"/assets/"+aid+"/lock", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Asset is already locked", env.Message)

	w, env = h.do(t, http.MethodPatch, "/api/v1/projects/"+pid+"/assets/"+aid, map[string]any{"name": "Barrel"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Cannot edit a locked asset", env.Message)

	w, env = h.do(t, http.MethodPost, "/api/v1/projects/"+pid+"/assets/"+aid+"/generate", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Cannot regenerate a locked asset", env.Message)

	w, env = h.do(t, http.MethodDelete, "/api/v1/projects/"+pid+"/assets/"+aid, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Cannot delete a locked asset", env.Message)
}

func TestSceneRenderAndExportEndpoints(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	pid := h.createProject(t)
	aid := h.createAsset(t, pid, "Crate")

	w, env := h.do(t, http.MethodPost, "/api/v1/projects/"+pid+"/scenes", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	scid := decode[idOnly](t, env).ID
	base := "/api/v1/projects/" + pid + "/scenes/" + scid

	w, env = h.do(t, http.MethodPost, base+"/render", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Scene has no assets assigned. Add assets before rendering.", env.Message)

	w, env = h.do(t, http.MethodPut, base+"/assets", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "assets array is required", env.Message)

	w, env = h.do(t, http.MethodPut, base+"/assets", map[string]any{"assets": []map[string]string{{"asset_id": "AST_other"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Asset AST_other not found in project", env.Message)

	w, env = h.do(t, http.MethodPut, base+"/assets", map[string]any{"assets": []map[string]string{{"asset_id": aid}}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[dto.SceneAssetsResponse](t, env).Assets, 1)

	w, env = h.do(t, http.MethodPost, base+"/render", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "All assets must be locked before rendering", env.Message)
	require.NotNil(t, env.Error)
	assert.Equal(t, []string{"Crate"}, env.Error.UnlockedAssets)
	assert.Equal(t, "Crate", env.Error.Details)

	w, env = h.do(t, http.MethodDelete, "/api/v1/projects/"+pid+"/assets/"+aid, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Cannot delete asset used in scenes", env.Message)

	w, env = h.do(t, http.MethodPost, "/api/v1/projects/"+pid+"/exports", map[string]any{"type": "pdf"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No rendered scenes to export", env.Message)

	w, _ = h.do(t, http.MethodPost, "/api/v1/projects/"+pid+"/assets/"+aid+"/lock", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = h.do(t, http.MethodPost, base+"/render", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "rendering", decode[struct {
		RenderStatus string `json:"render_status"`
	}](t, env).RenderStatus)
	h.dispatcher.Wait()

	w, env = h.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	scene := decode[struct {
		RenderStatus string `json:"render_status"`
		RenderedURL  string `json:"rendered_url"`
		Versions     []struct {
			Version  int      `json:"version"`
			AssetIDs []string `json:"asset_ids"`
		} `json:"versions"`
	}](t, env)
	assert.Equal(t, "completed", scene.RenderStatus)
	assert.True(t, strings.HasPrefix(scene.RenderedURL, "/generated/scenes/"+scid+"_"))
	require.Len(t, scene.Versions, 1)
	assert.Equal(t, []string{aid}, scene.Versions[0].AssetIDs)

	w, env = h.do(t, http.MethodPost, "/api/v1/projects/"+pid+"/exports", map[string]any{"type": "docx"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Valid type required: pdf, image_sequence, metadata_bundle", env.Message)

	w, env = h.do(t, http.MethodPost, "/api/v1/projects/"+pid+"/exports", map[string]any{"type": "pdf"})
	require.Equal(t, http.StatusCreated, w.Code)
	eid := decode[idOnly](t, env).ID
	h.dispatcher.Wait()

	w, env = h.do(t, http.MethodGet, "/api/v1/projects/"+pid+"/exports/"+eid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	export := decode[struct {
		Status  string `json:"status"`
		FileURL string `json:"file_url"`
	}](t, env)
	assert.Equal(t, "completed", export.Status)
	require.True(t, strings.HasSuffix(export.FileURL, ".pdf"))

	file, _ := h.do(t, http.MethodGet, export.FileURL, nil)
	require.Equal(t, http.StatusOK, file.Code)
	assert.True(t, bytes.HasPrefix(file.Body.Bytes(), []byte("%PDF-")))

	w, env = h.do(t, http.MethodGet, "/api/v1/projects/"+pid+"/exports/EXP_missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Export not found", env.Message)
}

func TestScriptCompileEndpoint(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	pid := h.createProject(t)

	w, env := h.do(t, http.MethodPost, "/api/v1/projects/"+pid+"/scripts", map[string]any{"content": "EXT. DOCK"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "title is required", env.Message)

	w, env = h.do(t, http.MethodPost, "/api/v1/projects/"+pid+"/scripts", map[string]any{
		"title":   "Pilot",
		"content": "SCENE 1: Dawn\nThe harbor wakes.\n\nSCENE 2: Noon\nGulls circle.",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	sid := decode[idOnly](t, env).ID

	w, env = h.do(t, http.MethodPost, "/api/v1/projects/"+pid+"/scripts/"+sid+"/compile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[storyboard.CompileResult](t, env).Count)

	w, env = h.do(t, http.MethodGet, "/api/v1/projects/"+pid+"/scripts/"+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[struct {
		Compiled bool `json:"compiled"`
		Scenes   []struct {
			SceneNumber int `json:"scene_number"`
		} `json:"scenes"`
	}](t, env)
	assert.True(t, detail.Compiled)
	require.Len(t, detail.Scenes, 2)
	assert.Equal(t, 1, detail.Scenes[0].SceneNumber)

	w, _ = h.do(t, http.MethodPatch, "/api/v1/projects/"+pid+"/scripts/"+sid, map[string]any{"content": "   "})
	require.Equal(t, http.StatusOK, w.Code)
	w, env = h.do(t, http.MethodPost, "/api/v1/projects/"+pid+"/scripts/"+sid+"/compile", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Script content is empty", env.Message)
}

func TestGenerateRateLimitPerProject(t *testing.T) {
	h := newHarness(t, harnessOptions{redis: newRedis(t), generatePerMinute: 1})
	pid := h.createProject(t)
	aid := h.createAsset(t, pid, "Crate")

	path := "/api/v1/projects/" + pid + "/assets/" + aid + "/generate"
	w, _ := h.do(t, http.MethodPost, path, nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	h.dispatcher.Wait()

	w, env := h.do(t, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate limit exceeded", env.Message)

	// 其它项目不受影响
	other := h.createProject(t)
	otherAsset := h.createAsset(t, other, "Lantern")
	w, _ = h.do(t, http.MethodPost, "/api/v1/projects/"+other+"/assets/"+otherAsset+"/generate", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestProjectStatsCacheInvalidatedOnWrite(t *testing.T) {
	h := newHarness(t, harnessOptions{redis: newRedis(t)})
	pid := h.createProject(t)
	statsPath := "/api/v1/projects/" + pid + "/stats"

	type stats struct {
		ScriptCount int64 `json:"script_count"`
	}

	w, env := h.do(t, http.MethodGet, statsPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[stats](t, env).ScriptCount)

	w, _ = h.do(t, http.MethodPost, "/api/v1/projects/"+pid+"/scripts", map[string]any{"title": "Pilot"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env = h.do(t, http.MethodGet, statsPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[stats](t, env).ScriptCount)
}

func TestRequestIDEchoed(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	w, env := h.do(t, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "resource not found", env.Message)
	require.NotNil(t, env.Error)
	assert.Equal(t, "1004", env.Error.ErrorCode)
}
