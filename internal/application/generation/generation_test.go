package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/infrastructure/imagegen"
	"storyforge-api/internal/infrastructure/persistence/postgres"
	"storyforge-api/internal/infrastructure/storage"
	"storyforge-api/internal/testutil"
	apperrors "storyforge-api/pkg/errors"
)

type recordingInvalidator struct {
	mu       sync.Mutex
	projects []string
}

func (r *recordingInvalidator) InvalidateProject(_ context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects = append(r.projects, projectID)
	return nil
}

type harness struct {
	projects    *postgres.ProjectRepository
	assets      *postgres.AssetRepository
	versions    *postgres.AssetVersionRepository
	variants    *postgres.AssetVariantRepository
	scenes      *postgres.SceneRepository
	exports     *postgres.ExportRepository
	gen         *imagegen.MockGenerator
	store       *storage.LocalStore
	invalidator *recordingInvalidator
	executor    *Executor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client := testutil.NewDB(t)
	store, err := storage.NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	h := &harness{
		projects:    postgres.NewProjectRepository(client),
		assets:      postgres.NewAssetRepository(client),
		versions:    postgres.NewAssetVersionRepository(client),
		variants:    postgres.NewAssetVariantRepository(client),
		scenes:      postgres.NewSceneRepository(client),
		exports:     postgres.NewExportRepository(client),
		gen:         imagegen.NewMockGenerator(),
		store:       store,
		invalidator: &recordingInvalidator{},
	}
	h.executor = NewExecutor(Deps{
		Projects:    h.projects,
		Assets:      h.assets,
		Versions:    h.versions,
		Variants:    h.variants,
		Scenes:      h.scenes,
		Exports:     h.exports,
		Transactor:  postgres.NewTxManager(client),
		Generator:   h.gen,
		Store:       h.store,
		Invalidator: h.invalidator,
	}, Options{})
	return h
}

func (h *harness) project(t *testing.T) *entity.Project {
	t.Helper()
	p := entity.NewProject("Harbor")
	require.NoError(t, h.projects.Create(context.Background(), p))
	return p
}

func (h *harness) asset(t *testing.T, projectID, name string, typ entity.AssetType) *entity.Asset {
	t.Helper()
	ctx := context.Background()
	a := entity.NewAsset(projectID, name, typ, 1234)
	a.VisualPrompt = "a weathered lighthouse keeper"
	a.GenerationStatus = entity.GenerationStatusGenerating
	require.NoError(t, h.assets.Create(ctx, a))
	require.NoError(t, h.versions.Create(ctx, a.Snapshot()))
	return a
}

func (h *harness) reload(t *testing.T, a *entity.Asset) *entity.Asset {
	t.Helper()
	got, err := h.assets.GetByID(context.Background(), a.ProjectID, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	return got
}

func TestExecuteAssetInitial(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.project(t)
	a := h.asset(t, p.ID, "Keeper", entity.AssetTypeCharacter)

	job := entity.NewGenerationJob(entity.JobTypeAssetInitial, p.ID, a.ID)
	require.NoError(t, h.executor.Execute(ctx, job))

	got := h.reload(t, a)
	assert.Equal(t, entity.GenerationStatusCompleted, got.GenerationStatus)
	assert.Equal(t, "/generated/assets/"+a.ID+"_1234.png", got.ThumbnailURL)
	assert.Equal(t, 1, got.Version)

	versions, err := h.versions.ListByAsset(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, got.ThumbnailURL, versions[0].ThumbnailURL)

	key, ok := h.store.KeyFromURL(got.ThumbnailURL)
	require.True(t, ok)
	_, err = h.store.Get(ctx, key)
	require.NoError(t, err)

	reqs := h.gen.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 1024, reqs[0].Width)
	assert.Equal(t, entity.InitialNegativePrompt, reqs[0].NegativePrompt)
	assert.Equal(t, []string{p.ID}, h.invalidator.projects)
}

func TestExecuteAssetRegenerate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.project(t)
	a := h.asset(t, p.ID, "Coast", entity.AssetTypeEnvironment)

	job := entity.NewGenerationJob(entity.JobTypeAssetRegenerate, p.ID, a.ID).WithSeed(42)
	require.NoError(t, h.executor.Execute(ctx, job))

	got := h.reload(t, a)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, int64(42), got.Seed)
	assert.Equal(t, entity.GenerationStatusCompleted, got.GenerationStatus)
	assert.True(t, strings.HasSuffix(got.ThumbnailURL, a.ID+"_42.png"))

	versions, err := h.versions.ListByAsset(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Version)
	assert.Equal(t, int64(42), versions[0].Seed)
	assert.Equal(t, got.ThumbnailURL, versions[0].ThumbnailURL)

	reqs := h.gen.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 1280, reqs[0].Width)
	assert.Equal(t, 704, reqs[0].Height)
}

func TestExecuteAssetVariants(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.project(t)
	a := h.asset(t, p.ID, "Keeper", entity.AssetTypeCharacter)

	job := entity.NewGenerationJob(entity.JobTypeAssetVariants, p.ID, a.ID).WithSeed(100).WithVariants(3)
	require.NoError(t, h.executor.Execute(ctx, job))

	variants, err := h.variants.ListByAsset(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, variants, 3)
	for i, v := range variants {
		assert.Equal(t, i+1, v.VariantIndex)
		assert.Equal(t, entity.VariantSeed(100, i), v.Seed)
		assert.False(t, v.Selected)
		assert.Contains(t, v.ThumbnailURL, "/generated/variants/")
	}

	got := h.reload(t, a)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, entity.GenerationStatusCompleted, got.GenerationStatus)

	// 新一批替换旧的
	job = entity.NewGenerationJob(entity.JobTypeAssetVariants, p.ID, a.ID).WithSeed(5).WithVariants(2)
	require.NoError(t, h.executor.Execute(ctx, job))
	variants, err = h.variants.ListByAsset(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, variants, 2)
}

func TestExecuteFailureMarksAssetFailed(t *testing.T) {
	h := newHarness(t)
	p := h.project(t)
	a := h.asset(t, p.ID, "Keeper", entity.AssetTypeCharacter)
	h.gen.FailWith(errors.New("throttled"))

	job := entity.NewGenerationJob(entity.JobTypeAssetRegenerate, p.ID, a.ID).WithSeed(7)
	err := h.executor.Execute(context.Background(), job)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrGenerationFailed)
	assert.Contains(t, err.Error(), "throttled")

	got := h.reload(t, a)
	assert.Equal(t, entity.GenerationStatusFailed, got.GenerationStatus)
	assert.Equal(t, 1, got.Version)
	assert.Empty(t, got.ThumbnailURL)
}

func TestExecuteMissingTarget(t *testing.T) {
	h := newHarness(t)
	p := h.project(t)

	job := entity.NewGenerationJob(entity.JobTypeAssetInitial, p.ID, "AST_MISSING")
	err := h.executor.Execute(context.Background(), job)
	assert.ErrorIs(t, err, ErrTargetNotFound)
	assert.Empty(t, h.gen.Requests())
}

// renderableScene 准备一个关联了已锁定且有缩略图资产的场景
func renderableScene(t *testing.T, h *harness, p *entity.Project) (*entity.Scene, []*entity.Asset) {
	t.Helper()
	ctx := context.Background()

	var assets []*entity.Asset
	for _, spec := range []struct {
		name string
		typ  entity.AssetType
	}{{"Mara", entity.AssetTypeCharacter}, {"Old Pier", entity.AssetTypeEnvironment}} {
		a := h.asset(t, p.ID, spec.name, spec.typ)
		require.NoError(t, h.executor.Execute(ctx, entity.NewGenerationJob(entity.JobTypeAssetInitial, p.ID, a.ID)))
		a = h.reload(t, a)
		require.NoError(t, a.Lock())
		require.NoError(t, h.assets.Update(ctx, a))
		assets = append(assets, a)
	}

	scene := entity.NewScene(p.ID, 1)
	scene.Description = "Mara waits at the end of the pier"
	require.NoError(t, h.scenes.Create(ctx, scene))
	links := make([]*entity.SceneAsset, 0, len(assets))
	for _, a := range assets {
		links = append(links, entity.NewSceneAsset(scene.ID, a.ID, "", ""))
	}
	require.NoError(t, h.scenes.ReplaceAssets(ctx, scene.ID, links))
	return scene, assets
}

func TestExecuteSceneRender(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.project(t)
	scene, assets := renderableScene(t, h, p)

	job := entity.NewGenerationJob(entity.JobTypeSceneRender, p.ID, scene.ID).WithSeed(99)
	require.NoError(t, h.executor.Execute(ctx, job))

	got, err := h.scenes.GetByID(ctx, p.ID, scene.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RenderStatusCompleted, got.RenderStatus)
	assert.Equal(t, "/generated/scenes/"+scene.ID+"_99.png", got.RenderedURL)
	assert.Equal(t, "mock / mock-1x1", got.RenderMetadata["render_engine"])
	assert.Equal(t, "2", fmt.Sprint(got.RenderMetadata["assets_used"]))

	versions, err := h.scenes.ListVersions(ctx, scene.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].Version)
	assert.ElementsMatch(t, []string{assets[0].ID, assets[1].ID}, []string(versions[0].AssetIDs))

	reqs := h.gen.Requests()
	last := reqs[len(reqs)-1]
	assert.Len(t, last.ReferenceImages, 2)
	assert.Equal(t, imagegen.SceneNegativePrompt, last.NegativePrompt)
	assert.Equal(t, 1024, last.Width)
	assert.Equal(t, 576, last.Height)
	assert.Contains(t, last.Prompt, "set in Old Pier")

	require.NoError(t, h.executor.Execute(ctx, entity.NewGenerationJob(entity.JobTypeSceneRender, p.ID, scene.ID).WithSeed(3)))
	versions, err = h.scenes.ListVersions(ctx, scene.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Version)
}

func TestExecuteSceneRenderFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.project(t)
	scene, _ := renderableScene(t, h, p)
	h.gen.FailWith(errors.New("model unavailable"))

	err := h.executor.Execute(ctx, entity.NewGenerationJob(entity.JobTypeSceneRender, p.ID, scene.ID).WithSeed(1))
	require.Error(t, err)

	got, err := h.scenes.GetByID(ctx, p.ID, scene.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RenderStatusFailed, got.RenderStatus)
	n, err := h.scenes.CountVersions(ctx, scene.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExecuteExportBuild(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.project(t)
	scene, _ := renderableScene(t, h, p)
	require.NoError(t, h.executor.Execute(ctx, entity.NewGenerationJob(entity.JobTypeSceneRender, p.ID, scene.ID).WithSeed(8)))

	exp := entity.NewExport(p.ID, entity.ExportTypeImageSequence)
	exp.Status = entity.ExportStatusProcessing
	require.NoError(t, h.exports.Create(ctx, exp))

	require.NoError(t, h.executor.Execute(ctx, entity.NewGenerationJob(entity.JobTypeExportBuild, p.ID, exp.ID)))

	got, err := h.exports.GetByID(ctx, p.ID, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ExportStatusCompleted, got.Status)
	assert.True(t, strings.HasPrefix(got.FileURL, "/exports/"+p.ID+"_image_sequence_"))
	assert.True(t, strings.HasSuffix(got.FileURL, ".zip"))

	key, ok := h.store.KeyFromURL(got.FileURL)
	require.True(t, ok)
	data, err := h.store.Get(ctx, key)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestExecuteUnknownJobType(t *testing.T) {
	h := newHarness(t)
	err := h.executor.Execute(context.Background(), entity.NewGenerationJob(entity.JobType("bogus"), "PRJ_1", "X"))
	assert.Error(t, err)
}

func TestInlineDispatcherDetachesFromRequest(t *testing.T) {
	h := newHarness(t)
	p := h.project(t)
	a := h.asset(t, p.ID, "Keeper", entity.AssetTypeCharacter)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	d := NewInlineDispatcher(h.executor)
	require.NoError(t, d.Dispatch(ctx, entity.NewGenerationJob(entity.JobTypeAssetInitial, p.ID, a.ID)))
	cancel()
	d.Wait()

	got := h.reload(t, a)
	assert.Equal(t, entity.GenerationStatusCompleted, got.GenerationStatus)
}

type failingPublisher struct{}

func (failingPublisher) PublishJob(context.Context, *entity.GenerationJob) (string, error) {
	return "", errors.New("redis down")
}

func TestStreamDispatcherPublishFailure(t *testing.T) {
	h := newHarness(t)
	p := h.project(t)
	a := h.asset(t, p.ID, "Keeper", entity.AssetTypeCharacter)

	d := NewStreamDispatcher(failingPublisher{}, h.executor)
	err := d.Dispatch(context.Background(), entity.NewGenerationJob(entity.JobTypeAssetInitial, p.ID, a.ID))
	require.Error(t, err)

	got := h.reload(t, a)
	assert.Equal(t, entity.GenerationStatusFailed, got.GenerationStatus)
}

func TestScenePrompt(t *testing.T) {
	scene := entity.NewScene("PRJ_1", 1)
	scene.Description = "Storm over the harbor"
	assets := []*entity.AssignedAsset{
		{Asset: entity.Asset{Name: "Mara", Type: entity.AssetTypeCharacter}},
		{Asset: entity.Asset{Name: "Old Pier", Type: entity.AssetTypeEnvironment}},
	}

	got := ScenePrompt("noir", scene, assets, "amazon.nova-canvas-v1:0")
	assert.Equal(t, "noir style cinematic storyboard frame, Storm over the harbor, neutral mood, medium shot, "+
		"natural lighting, highly detailed, sharp focus, Mara, set in Old Pier", got)

	scene.Description = ""
	scene.Mood = ""
	got = ScenePrompt("", scene, nil, "amazon.nova-canvas-v1:0")
	assert.Equal(t, "cinematic storyboard frame, medium shot, natural lighting, highly detailed, sharp focus", got)

	scene.Description = strings.Repeat("x", 2000)
	got = ScenePrompt("noir", scene, nil, "amazon.nova-canvas-v1:0")
	assert.Len(t, got, 1024)
	assert.True(t, strings.HasSuffix(got, "..."))
}
