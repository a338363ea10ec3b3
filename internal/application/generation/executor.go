package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"storyforge-api/internal/application/export"
	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/domain/repository"
	"storyforge-api/internal/infrastructure/imagegen"
	"storyforge-api/internal/infrastructure/storage"
	apperrors "storyforge-api/pkg/errors"
	"storyforge-api/pkg/logger"
	"storyforge-api/pkg/metrics"
)

var tracer = otel.Tracer("generation")

// DefaultMaxReferences 场景渲染最多携带的参考图数量
const DefaultMaxReferences = 5

// ErrTargetNotFound 任务目标已被删除
var ErrTargetNotFound = errors.New("generation target not found")

// CacheInvalidator 项目级缓存失效接口
type CacheInvalidator interface {
	InvalidateProject(ctx context.Context, projectID string) error
}

// Deps 执行器依赖
type Deps struct {
	Projects    repository.ProjectRepository
	Assets      repository.AssetRepository
	Versions    repository.AssetVersionRepository
	Variants    repository.AssetVariantRepository
	Scenes      repository.SceneRepository
	Exports     repository.ExportRepository
	Transactor  repository.Transactor
	Generator   imagegen.Generator
	Store       storage.Store
	Builder     *export.Builder
	Invalidator CacheInvalidator
}

// Options 执行器参数
type Options struct {
	// Timeout 单次图像生成调用的超时，0 表示不限
	Timeout       time.Duration
	MaxReferences int
}

// Executor 执行生成任务并写回终态
type Executor struct {
	Deps
	opts Options
}

// NewExecutor 创建执行器
func NewExecutor(deps Deps, opts Options) *Executor {
	if opts.MaxReferences <= 0 {
		opts.MaxReferences = DefaultMaxReferences
	}
	if deps.Builder == nil {
		deps.Builder = export.NewBuilder()
	}
	return &Executor{Deps: deps, opts: opts}
}

// Execute 执行任务；失败时记录日志并将目标置为 failed，不重试
func (e *Executor) Execute(ctx context.Context, job *entity.GenerationJob) error {
	ctx, span := tracer.Start(ctx, "generation.Executor.Execute",
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("job.type", string(job.Type)),
			attribute.String("job.target_id", job.TargetID),
		),
	)
	defer span.End()

	ctx = logger.WithContext(ctx, logger.JobIDKey, job.ID)
	ctx = logger.WithContext(ctx, logger.ProjectIDKey, job.ProjectID)

	jobType := string(job.Type)
	metrics.JobsInFlight.WithLabelValues(jobType).Inc()
	defer metrics.JobsInFlight.WithLabelValues(jobType).Dec()

	start := time.Now()
	err := e.run(ctx, job)
	defer e.invalidate(ctx, job.ProjectID)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.JobsTotal.WithLabelValues(jobType, "failed").Inc()
		logger.Error(ctx, "generation job failed", err,
			"job_type", jobType,
			"target_id", job.TargetID,
		)
		e.MarkFailed(ctx, job, err)
		return err
	}

	metrics.JobsTotal.WithLabelValues(jobType, "completed").Inc()
	logger.Info(ctx, "generation job completed",
		"job_type", jobType,
		"target_id", job.TargetID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (e *Executor) run(ctx context.Context, job *entity.GenerationJob) error {
	switch job.Type {
	case entity.JobTypeAssetInitial:
		return e.runAssetInitial(ctx, job)
	case entity.JobTypeAssetRegenerate:
		return e.runAssetRegenerate(ctx, job)
	case entity.JobTypeAssetVariants:
		return e.runAssetVariants(ctx, job)
	case entity.JobTypeSceneRender:
		return e.runSceneRender(ctx, job)
	case entity.JobTypeExportBuild:
		return e.runExportBuild(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// MarkFailed 将任务目标置为失败
func (e *Executor) MarkFailed(ctx context.Context, job *entity.GenerationJob, cause error) {
	var err error
	switch job.Type {
	case entity.JobTypeAssetInitial, entity.JobTypeAssetRegenerate, entity.JobTypeAssetVariants:
		err = e.Assets.UpdateGenerationStatus(ctx, job.TargetID, entity.GenerationStatusFailed)
	case entity.JobTypeSceneRender:
		err = e.Scenes.UpdateRenderStatus(ctx, job.TargetID, entity.RenderStatusFailed)
	case entity.JobTypeExportBuild:
		msg := ""
		if cause != nil {
			msg = cause.Error()
		}
		err = e.Exports.UpdateStatus(ctx, job.TargetID, entity.ExportStatusFailed, "", msg)
	}
	if err != nil {
		logger.Error(ctx, "failed to record job failure", err, "target_id", job.TargetID)
	}
}

func (e *Executor) invalidate(ctx context.Context, projectID string) {
	if e.Invalidator == nil {
		return
	}
	if err := e.Invalidator.InvalidateProject(ctx, projectID); err != nil {
		logger.Warn(ctx, "failed to invalidate project cache", "error", err.Error())
	}
}

// generate 调用生成器，受单次超时约束
func (e *Executor) generate(ctx context.Context, req *imagegen.Request) (*imagegen.Result, error) {
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}
	res, err := e.Generator.Generate(ctx, req)
	if err != nil {
		return nil, apperrors.ErrGenerationFailed.WithError(err)
	}
	return res, nil
}

func (e *Executor) put(ctx context.Context, dir, name string, res *imagegen.Result) (string, error) {
	contentType := res.MimeType
	if contentType == "" {
		contentType = "image/png"
	}
	url, err := e.Store.Put(ctx, storage.Key(dir, name), res.Image, contentType)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeStorageError, "failed to store image")
	}
	return url, nil
}

func (e *Executor) loadAsset(ctx context.Context, job *entity.GenerationJob) (*entity.Asset, error) {
	asset, err := e.Assets.GetByID(ctx, job.ProjectID, job.TargetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("asset %s: %w", job.TargetID, ErrTargetNotFound)
	}
	return asset, nil
}

func (e *Executor) assetRequest(asset *entity.Asset, seed int64) *imagegen.Request {
	w, h := imagegen.AssetDimensions(asset.Type)
	return &imagegen.Request{
		Prompt:         imagegen.Truncate(asset.VisualPrompt, imagegen.PromptLimit(e.Generator.ModelID())),
		NegativePrompt: asset.EffectiveNegativePrompt(),
		Seed:           seed,
		Width:          w,
		Height:         h,
	}
}

// runAssetInitial 首次生成，只回填缩略图，不推进版本
func (e *Executor) runAssetInitial(ctx context.Context, job *entity.GenerationJob) error {
	ctx = logger.WithContext(ctx, logger.AssetIDKey, job.TargetID)

	asset, err := e.loadAsset(ctx, job)
	if err != nil {
		return err
	}

	req := e.assetRequest(asset, asset.Seed)
	req.NegativePrompt = asset.InitialNegativePrompt()
	res, err := e.generate(ctx, req)
	if err != nil {
		return err
	}
	url, err := e.put(ctx, storage.DirAssets, fmt.Sprintf("%s_%d.png", asset.ID, asset.Seed), res)
	if err != nil {
		return err
	}

	return e.Transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := e.loadAsset(txCtx, job)
		if err != nil {
			return err
		}
		current.ThumbnailURL = url
		current.GenerationStatus = entity.GenerationStatusCompleted
		current.UpdatedAt = time.Now()
		if err := e.Assets.Update(txCtx, current); err != nil {
			return err
		}
		return e.Versions.SetThumbnail(txCtx, current.ID, 1, url)
	})
}

// runAssetRegenerate 重新生成，版本号加一并追加版本记录
func (e *Executor) runAssetRegenerate(ctx context.Context, job *entity.GenerationJob) error {
	ctx = logger.WithContext(ctx, logger.AssetIDKey, job.TargetID)

	asset, err := e.loadAsset(ctx, job)
	if err != nil {
		return err
	}

	seed := job.Seed
	res, err := e.generate(ctx, e.assetRequest(asset, seed))
	if err != nil {
		return err
	}
	url, err := e.put(ctx, storage.DirAssets, fmt.Sprintf("%s_%d.png", asset.ID, seed), res)
	if err != nil {
		return err
	}

	return e.Transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := e.loadAsset(txCtx, job)
		if err != nil {
			return err
		}
		version := current.ApplyImage(url, seed)
		version.VisualPrompt = asset.VisualPrompt
		version.NegativePrompt = asset.EffectiveNegativePrompt()
		if err := e.Assets.Update(txCtx, current); err != nil {
			return err
		}
		return e.Versions.Create(txCtx, version)
	})
}

// runAssetVariants 依次生成一批候选图并整体替换旧的候选图
func (e *Executor) runAssetVariants(ctx context.Context, job *entity.GenerationJob) error {
	ctx = logger.WithContext(ctx, logger.AssetIDKey, job.TargetID)

	asset, err := e.loadAsset(ctx, job)
	if err != nil {
		return err
	}

	count := job.Variants
	if count < 1 {
		count = 1
	}
	variants := make([]*entity.AssetVariant, 0, count)
	for i := 0; i < count; i++ {
		seed := entity.VariantSeed(job.Seed, i)
		res, err := e.generate(ctx, e.assetRequest(asset, seed))
		if err != nil {
			return fmt.Errorf("variant %d: %w", i+1, err)
		}
		url, err := e.put(ctx, storage.DirVariants, fmt.Sprintf("%s_var%d_%d.png", asset.ID, i+1, seed), res)
		if err != nil {
			return err
		}
		variants = append(variants, &entity.AssetVariant{
			ID:           entity.NewID(entity.PrefixAssetVariant),
			AssetID:      asset.ID,
			VariantIndex: i + 1,
			Seed:         seed,
			ThumbnailURL: url,
			CreatedAt:    time.Now(),
		})
	}

	return e.Transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.Variants.ReplaceAll(txCtx, asset.ID, variants); err != nil {
			return err
		}
		return e.Assets.UpdateGenerationStatus(txCtx, asset.ID, entity.GenerationStatusCompleted)
	})
}

// runSceneRender 以已锁定资产为参考渲染场景
func (e *Executor) runSceneRender(ctx context.Context, job *entity.GenerationJob) error {
	ctx = logger.WithContext(ctx, logger.SceneIDKey, job.TargetID)

	scene, err := e.Scenes.GetByID(ctx, job.ProjectID, job.TargetID)
	if err != nil {
		return err
	}
	if scene == nil {
		return fmt.Errorf("scene %s: %w", job.TargetID, ErrTargetNotFound)
	}
	assets, err := e.Scenes.ListAssets(ctx, scene.ID)
	if err != nil {
		return err
	}

	style := entity.DefaultVisualStyle
	project, err := e.Projects.GetByID(ctx, job.ProjectID)
	if err != nil {
		return err
	}
	if project != nil {
		style = project.VisualStyle
	}

	w, h := imagegen.SceneDimensions()
	req := &imagegen.Request{
		Prompt: ScenePrompt(style, scene, assets, e.Generator.ModelID()),
		Seed:   job.Seed,
		Width:  w,
		Height: h,
	}
	if refs := e.referenceImages(ctx, assets); len(refs) > 0 {
		req.ReferenceImages = refs
		req.SimilarityStrength = imagegen.DefaultSimilarityStrength
		req.NegativePrompt = imagegen.SceneNegativePrompt
	}

	res, err := e.generate(ctx, req)
	if err != nil {
		return err
	}
	outSeed := job.Seed % entity.MaxSeed
	url, err := e.put(ctx, storage.DirScenes, fmt.Sprintf("%s_%d.png", scene.ID, outSeed), res)
	if err != nil {
		return err
	}

	assetIDs := make([]string, 0, len(assets))
	for _, a := range assets {
		assetIDs = append(assetIDs, a.ID)
	}
	meta := datatypes.JSONMap{
		"render_engine": e.Generator.Name() + " / " + e.Generator.ModelID(),
		"seed":          outSeed,
		"rendered_at":   time.Now().UTC().Format(time.RFC3339),
		"assets_used":   len(assets),
		"asset_ids":     assetIDs,
	}

	return e.Transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := e.Scenes.GetByID(txCtx, job.ProjectID, job.TargetID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("scene %s: %w", job.TargetID, ErrTargetNotFound)
		}
		count, err := e.Scenes.CountVersions(txCtx, current.ID)
		if err != nil {
			return err
		}

		current.RenderStatus = entity.RenderStatusCompleted
		current.RenderedURL = url
		current.RenderMetadata = meta
		current.UpdatedAt = time.Now()
		if err := e.Scenes.Update(txCtx, current); err != nil {
			return err
		}
		return e.Scenes.CreateVersion(txCtx, &entity.SceneVersion{
			ID:             entity.NewID(entity.PrefixSceneVersion),
			SceneID:        current.ID,
			Version:        int(count) + 1,
			RenderedURL:    url,
			RenderMetadata: meta,
			AssetIDs:       entity.StringList(assetIDs),
			CreatedAt:      time.Now(),
		})
	})
}

// referenceImages 读取前若干个资产的缩略图，读取失败的跳过
func (e *Executor) referenceImages(ctx context.Context, assets []*entity.AssignedAsset) [][]byte {
	refs := make([][]byte, 0, e.opts.MaxReferences)
	for _, a := range assets {
		if len(refs) >= e.opts.MaxReferences {
			break
		}
		if a.ThumbnailURL == "" {
			continue
		}
		key, ok := e.Store.KeyFromURL(a.ThumbnailURL)
		if !ok {
			continue
		}
		data, err := e.Store.Get(ctx, key)
		if err != nil {
			logger.Warn(ctx, "reference image unavailable", "asset_id", a.ID, "error", err.Error())
			continue
		}
		refs = append(refs, data)
	}
	return refs
}

// runExportBuild 打包已渲染场景并写入存储
func (e *Executor) runExportBuild(ctx context.Context, job *entity.GenerationJob) (err error) {
	exp, err := e.Exports.GetByID(ctx, job.ProjectID, job.TargetID)
	if err != nil {
		return err
	}
	if exp == nil {
		return fmt.Errorf("export %s: %w", job.TargetID, ErrTargetNotFound)
	}
	defer func() {
		status := "completed"
		if err != nil {
			status = "failed"
		}
		metrics.ExportsTotal.WithLabelValues(string(exp.Type), status).Inc()
	}()

	project, err := e.Projects.GetByID(ctx, job.ProjectID)
	if err != nil {
		return err
	}
	if project == nil {
		return fmt.Errorf("project %s: %w", job.ProjectID, ErrTargetNotFound)
	}
	scenes, err := e.Scenes.ListRendered(ctx, job.ProjectID)
	if err != nil {
		return err
	}
	assets, err := e.Assets.ListByProject(ctx, job.ProjectID, nil)
	if err != nil {
		return err
	}

	images := make(map[string][]byte, len(scenes))
	for _, scene := range scenes {
		key, ok := e.Store.KeyFromURL(scene.RenderedURL)
		if !ok {
			continue
		}
		data, err := e.Store.Get(ctx, key)
		if err != nil {
			logger.Warn(ctx, "rendered frame unavailable", "scene_id", scene.ID, "error", err.Error())
			continue
		}
		images[scene.ID] = data
	}

	data, err := e.Builder.Build(exp.Type, &export.Bundle{
		Project: project,
		Scenes:  scenes,
		Assets:  assets,
		Images:  images,
	})
	if err != nil {
		return err
	}

	url, err := e.Store.Put(ctx, storage.Key(storage.DirExports, exp.FileName(time.Now())), data, export.ContentType(exp.Type))
	if err != nil {
		return fmt.Errorf("failed to store export: %w", err)
	}
	return e.Exports.UpdateStatus(ctx, exp.ID, entity.ExportStatusCompleted, url, "")
}
