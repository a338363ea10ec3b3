package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
	"storyforge-api/internal/infrastructure/persistence/postgres"
	"storyforge-api/internal/testutil"
)

type repos struct {
	tx       *postgres.TxManager
	projects *postgres.ProjectRepository
	assets   *postgres.AssetRepository
	versions *postgres.AssetVersionRepository
	variants *postgres.AssetVariantRepository
	scripts  *postgres.ScriptRepository
	scenes   *postgres.SceneRepository
	exports  *postgres.ExportRepository
}

func newRepos(t *testing.T) *repos {
	client := testutil.NewDB(t)
	return &repos{
		tx:       postgres.NewTxManager(client),
		projects: postgres.NewProjectRepository(client),
		assets:   postgres.NewAssetRepository(client),
		versions: postgres.NewAssetVersionRepository(client),
		variants: postgres.NewAssetVariantRepository(client),
		scripts:  postgres.NewScriptRepository(client),
		scenes:   postgres.NewSceneRepository(client),
		exports:  postgres.NewExportRepository(client),
	}
}

func seedProject(t *testing.T, r *repos) *entity.Project {
	p := entity.NewProject("Pilot")
	require.NoError(t, r.projects.Create(context.Background(), p))
	return p
}

func seedAsset(t *testing.T, r *repos, projectID, name string, typ entity.AssetType) *entity.Asset {
	a := entity.NewAsset(projectID, name, typ, 42)
	require.NoError(t, r.assets.Create(context.Background(), a))
	return a
}

func TestProjectCRUD(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)

	p := seedProject(t, r)
	got, err := r.projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Pilot", got.Name)

	got.Name = "Renamed"
	got.Status = entity.ProjectStatusArchived
	require.NoError(t, r.projects.Update(ctx, got))

	page, err := r.projects.List(ctx, repository.NewPagination(1, 10))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Renamed", page.Items[0].Name)
	assert.Equal(t, entity.ProjectStatusArchived, page.Items[0].Status)

	missing, err := r.projects.GetByID(ctx, "PRJ_NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProjectDeleteCascades(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	p := seedProject(t, r)
	a := seedAsset(t, r, p.ID, "Hero", entity.AssetTypeCharacter)
	require.NoError(t, r.versions.Create(ctx, a.Snapshot()))
	s := entity.NewScene(p.ID, 1)
	require.NoError(t, r.scenes.Create(ctx, s))
	require.NoError(t, r.scenes.ReplaceAssets(ctx, s.ID, []*entity.SceneAsset{entity.NewSceneAsset(s.ID, a.ID, "", "")}))

	require.NoError(t, r.projects.Delete(ctx, p.ID))

	gotAsset, err := r.assets.GetByID(ctx, p.ID, a.ID)
	require.NoError(t, err)
	assert.Nil(t, gotAsset)
	versions, err := r.versions.ListByAsset(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)
	n, err := r.assets.CountUsage(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAssetUsageCountAndFilter(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	p := seedProject(t, r)
	hero := seedAsset(t, r, p.ID, "Hero", entity.AssetTypeCharacter)
	seedAsset(t, r, p.ID, "Forest", entity.AssetTypeEnvironment)

	s1 := entity.NewScene(p.ID, 1)
	s2 := entity.NewScene(p.ID, 2)
	require.NoError(t, r.scenes.CreateBatch(ctx, []*entity.Scene{s1, s2}))
	require.NoError(t, r.scenes.ReplaceAssets(ctx, s1.ID, []*entity.SceneAsset{entity.NewSceneAsset(s1.ID, hero.ID, "", "")}))
	require.NoError(t, r.scenes.ReplaceAssets(ctx, s2.ID, []*entity.SceneAsset{entity.NewSceneAsset(s2.ID, hero.ID, "background", "left")}))

	got, err := r.assets.GetByID(ctx, p.ID, hero.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.UsageCount)

	chars, err := r.assets.ListByProject(ctx, p.ID, &repository.AssetFilter{Type: entity.AssetTypeCharacter})
	require.NoError(t, err)
	require.Len(t, chars, 1)
	assert.Equal(t, hero.ID, chars[0].ID)
	assert.EqualValues(t, 2, chars[0].UsageCount)

	used, err := r.assets.ListUsedInScenes(ctx, hero.ID)
	require.NoError(t, err)
	require.Len(t, used, 2)
	assert.Equal(t, 1, used[0].SceneNumber)

	// 其他项目不可见
	other, err := r.assets.GetByID(ctx, "PRJ_OTHER", hero.ID)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestAssetVersionPairedUpdateRollsBack(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	p := seedProject(t, r)
	a := seedAsset(t, r, p.ID, "Hero", entity.AssetTypeCharacter)

	boom := errors.New("boom")
	err := r.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		v := a.ApplyImage("/generated/assets/x.png", 7)
		require.NoError(t, r.assets.Update(txCtx, a))
		require.NoError(t, r.versions.Create(txCtx, v))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := r.assets.GetByID(ctx, p.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	versions, err := r.versions.ListByAsset(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestVariantsReplaceAndSelect(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	p := seedProject(t, r)
	a := seedAsset(t, r, p.ID, "Hero", entity.AssetTypeCharacter)

	mk := func(i int) *entity.AssetVariant {
		return &entity.AssetVariant{ID: entity.NewID(entity.PrefixAssetVariant), AssetID: a.ID, VariantIndex: i, Seed: int64(i)}
	}
	require.NoError(t, r.variants.ReplaceAll(ctx, a.ID, []*entity.AssetVariant{mk(1), mk(2), mk(3)}))
	second := []*entity.AssetVariant{mk(2), mk(1)}
	require.NoError(t, r.variants.ReplaceAll(ctx, a.ID, second))

	list, err := r.variants.ListByAsset(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].VariantIndex)
	assert.Equal(t, 2, list[1].VariantIndex)

	require.NoError(t, r.variants.MarkSelected(ctx, a.ID, list[1].ID))
	require.NoError(t, r.variants.MarkSelected(ctx, a.ID, list[0].ID))
	list, err = r.variants.ListByAsset(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, list[0].Selected)
	assert.False(t, list[1].Selected)
}

func TestSceneNumberingAndAssets(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	p := seedProject(t, r)

	n, err := r.scenes.NextSceneNumber(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, r.scenes.Create(ctx, entity.NewScene(p.ID, 4)))
	n, err = r.scenes.NextSceneNumber(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	s := entity.NewScene(p.ID, 5)
	require.NoError(t, r.scenes.Create(ctx, s))
	hero := seedAsset(t, r, p.ID, "Hero", entity.AssetTypeCharacter)
	require.NoError(t, r.scenes.ReplaceAssets(ctx, s.ID, []*entity.SceneAsset{entity.NewSceneAsset(s.ID, hero.ID, "lead", "left")}))

	assigned, err := r.scenes.ListAssets(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, "Hero", assigned[0].Name)
	assert.Equal(t, "lead", assigned[0].Role)
	assert.Equal(t, "left", assigned[0].PositionHint)

	byScene, err := r.scenes.ListAssetsByScenes(ctx, []string{s.ID})
	require.NoError(t, err)
	assert.Len(t, byScene[s.ID], 1)

	require.NoError(t, r.scenes.ReplaceAssets(ctx, s.ID, nil))
	assigned, err = r.scenes.ListAssets(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, assigned)
}

func TestSceneVersions(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	p := seedProject(t, r)
	s := entity.NewScene(p.ID, 1)
	require.NoError(t, r.scenes.Create(ctx, s))

	for i := 1; i <= 2; i++ {
		require.NoError(t, r.scenes.CreateVersion(ctx, &entity.SceneVersion{
			ID:       entity.NewID(entity.PrefixSceneVersion),
			SceneID:  s.ID,
			Version:  i,
			AssetIDs: entity.StringList{"AST_1", "AST_2"},
		}))
	}
	count, err := r.scenes.CountVersions(ctx, s.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	versions, err := r.scenes.ListVersions(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Version)
	assert.Equal(t, entity.StringList{"AST_1", "AST_2"}, versions[0].AssetIDs)
}

func TestScriptDeleteDetachesScenes(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	p := seedProject(t, r)
	sc := entity.NewScript(p.ID, "Draft", "SCENE 1: hi")
	require.NoError(t, r.scripts.Create(ctx, sc))

	s := entity.NewScene(p.ID, 1)
	s.ScriptID = &sc.ID
	require.NoError(t, r.scenes.Create(ctx, s))

	require.NoError(t, r.scripts.MarkCompiled(ctx, sc.ID))
	got, err := r.scripts.GetByID(ctx, p.ID, sc.ID)
	require.NoError(t, err)
	assert.True(t, got.Compiled)

	require.NoError(t, r.scripts.Delete(ctx, sc.ID))
	scene, err := r.scenes.GetByID(ctx, p.ID, s.ID)
	require.NoError(t, err)
	require.NotNil(t, scene)
	assert.Nil(t, scene.ScriptID)
}

func TestProjectStats(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	p := seedProject(t, r)
	hero := seedAsset(t, r, p.ID, "Hero", entity.AssetTypeCharacter)
	seedAsset(t, r, p.ID, "Villain", entity.AssetTypeCharacter)
	seedAsset(t, r, p.ID, "Forest", entity.AssetTypeEnvironment)
	require.NoError(t, hero.Lock())
	require.NoError(t, r.assets.Update(ctx, hero))

	s := entity.NewScene(p.ID, 1)
	s.RenderStatus = entity.RenderStatusCompleted
	s.RenderedURL = "/generated/scenes/a.png"
	require.NoError(t, r.scenes.Create(ctx, s))
	require.NoError(t, r.scripts.Create(ctx, entity.NewScript(p.ID, "Draft", "")))

	stats, err := r.projects.GetStats(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.AssetCount)
	assert.EqualValues(t, 1, stats.SceneCount)
	assert.EqualValues(t, 1, stats.ScriptCount)
	assert.EqualValues(t, 1, stats.LockedAssets)
	assert.EqualValues(t, 1, stats.RenderedScenes)
	assert.Len(t, stats.RecentAssets, 3)
	assert.Equal(t, []repository.TypeCount{
		{Type: entity.AssetTypeCharacter, Count: 2},
		{Type: entity.AssetTypeEnvironment, Count: 1},
	}, stats.AssetsByType)
}

func TestExportStatus(t *testing.T) {
	ctx := context.Background()
	r := newRepos(t)
	p := seedProject(t, r)
	e := entity.NewExport(p.ID, entity.ExportTypePDF)
	require.NoError(t, r.exports.Create(ctx, e))
	require.NoError(t, r.exports.UpdateStatus(ctx, e.ID, entity.ExportStatusCompleted, "/exports/x.pdf", ""))

	got, err := r.exports.GetByID(ctx, p.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ExportStatusCompleted, got.Status)
	assert.Equal(t, "/exports/x.pdf", got.FileURL)

	list, err := r.exports.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
