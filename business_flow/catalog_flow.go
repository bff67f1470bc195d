package businessflow

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	"github.com/amirphl/Kuruma-no-Ichiba/config"
	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/repository"
	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CatalogFlow reads and replaces the filter catalog
type CatalogFlow interface {
	GetFilterCatalog(ctx context.Context) (*dto.FilterCatalogDTO, error)
	UpdateFilterCatalog(ctx context.Context, req *dto.UpdateFilterCatalogRequest, actor Actor, metadata *ClientMetadata) (*dto.FilterCatalogDTO, error)
	ApplyOperation(ctx context.Context, req *dto.CatalogOperationRequest, actor Actor, metadata *ClientMetadata) (*dto.FilterCatalogDTO, error)
	Snapshot(ctx context.Context) (models.FilterCatalog, error)
}

// CatalogFlowImpl implements CatalogFlow.
// With a redis client, writes are serialized by a short SETNX lock and the
// snapshot is cached write-through. Without one, only the version check applies.
type CatalogFlowImpl struct {
	catalogRepo repository.FilterCatalogRepository
	audit       auditor
	rc          *redis.Client
	cacheConfig config.CacheConfig
	logger      *zap.Logger
}

func NewCatalogFlow(
	catalogRepo repository.FilterCatalogRepository,
	auditRepo repository.AuditLogRepository,
	rc *redis.Client,
	cacheConfig config.CacheConfig,
	logger *zap.Logger,
) CatalogFlow {
	logger = loggerOrNop(logger)
	return &CatalogFlowImpl{
		catalogRepo: catalogRepo,
		audit:       newAuditor(auditRepo, logger),
		rc:          rc,
		cacheConfig: cacheConfig,
		logger:      logger,
	}
}

func redisKey(cfg config.CacheConfig, key string) string {
	if cfg.RedisPrefix == "" {
		return key
	}
	return cfg.RedisPrefix + ":" + key
}

// Snapshot returns an immutable copy of the stored catalog straight from the database.
// A catalog that was never written is an empty document at version 0.
func (f *CatalogFlowImpl) Snapshot(ctx context.Context) (models.FilterCatalog, error) {
	row, err := f.catalogRepo.Current(ctx)
	if err != nil {
		return models.FilterCatalog{}, err
	}
	if row == nil {
		return models.FilterCatalog{ID: models.FilterCatalogID, Document: models.NewCatalogDocument()}, nil
	}
	return row.Snapshot(), nil
}

func (f *CatalogFlowImpl) GetFilterCatalog(ctx context.Context) (*dto.FilterCatalogDTO, error) {
	if cached, ok := f.readCache(ctx); ok {
		return cached, nil
	}

	row, err := f.Snapshot(ctx)
	if err != nil {
		return nil, NewBusinessError("GET_FILTER_CATALOG_FAILED", "Failed to load filter catalog", err)
	}

	out := ToFilterCatalogDTO(row)
	f.writeCache(ctx, out)
	return &out, nil
}

func (f *CatalogFlowImpl) UpdateFilterCatalog(ctx context.Context, req *dto.UpdateFilterCatalogRequest, actor Actor, metadata *ClientMetadata) (*dto.FilterCatalogDTO, error) {
	if err := authorize(actor, access{any: CapCatalogWrite}); err != nil {
		return nil, err
	}

	doc := models.CatalogDocument{Brands: req.Brands, Models: req.Models, Years: req.Years}.Normalize()
	if err := doc.Validate(); err != nil {
		return nil, NewBusinessError("INVALID_FILTER_CATALOG", "Filter catalog is invalid", catalogValidationError(err))
	}

	return f.compareAndSwap(ctx, req.Version, doc, actor, metadata, "replace")
}

// ApplyOperation applies one mutation to the stored document at the version the caller read
func (f *CatalogFlowImpl) ApplyOperation(ctx context.Context, req *dto.CatalogOperationRequest, actor Actor, metadata *ClientMetadata) (*dto.FilterCatalogDTO, error) {
	if err := authorize(actor, access{any: CapCatalogWrite}); err != nil {
		return nil, err
	}

	current, err := f.Snapshot(ctx)
	if err != nil {
		return nil, NewBusinessError("CATALOG_OPERATION_FAILED", "Failed to load filter catalog", err)
	}
	if current.Version != req.Version {
		catalogUpdateConflictsTotal.Inc()
		return nil, NewBusinessErrorf("STALE_CATALOG", "Filter catalog is at version %d, not %d", ErrStaleCatalog, current.Version, req.Version)
	}

	doc := current.Document.Clone()
	if err := applyCatalogOp(&doc, req); err != nil {
		return nil, NewBusinessErrorf("INVALID_CATALOG_OPERATION", "Cannot apply %s", catalogValidationError(err), req.Op)
	}

	return f.compareAndSwap(ctx, req.Version, doc.Normalize(), actor, metadata, req.Op)
}

func applyCatalogOp(doc *models.CatalogDocument, req *dto.CatalogOperationRequest) error {
	switch req.Op {
	case dto.CatalogOpAddBrand:
		return doc.AddBrand(req.Brand)
	case dto.CatalogOpRenameBrand:
		return doc.RenameBrand(req.Brand, req.NewName)
	case dto.CatalogOpRemoveBrand:
		return doc.RemoveBrand(req.Brand)
	case dto.CatalogOpAddModel:
		return doc.AddModel(req.Brand, req.Model)
	case dto.CatalogOpRenameModel:
		return doc.RenameModel(req.Brand, req.Model, req.NewName)
	case dto.CatalogOpRemoveModel:
		return doc.RemoveModel(req.Brand, req.Model)
	case dto.CatalogOpAddYear:
		return doc.AddYear(req.Year)
	case dto.CatalogOpRemoveYear:
		return doc.RemoveYear(req.Year)
	default:
		return &ValidationError{Err: ErrInvalidCatalog, Fields: map[string]string{"op": "unknown operation " + req.Op}}
	}
}

// catalogValidationError maps document errors onto the flow taxonomy
func catalogValidationError(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	switch {
	case errors.Is(err, models.ErrCatalogUnknownBrand):
		return &ValidationError{Err: ErrUnknownBrand, Fields: map[string]string{"brand": err.Error()}}
	case errors.Is(err, models.ErrCatalogUnknownModel):
		return &ValidationError{Err: ErrUnknownModel, Fields: map[string]string{"model": err.Error()}}
	case errors.Is(err, models.ErrCatalogUnknownYear), errors.Is(err, models.ErrCatalogInvalidYear):
		return &ValidationError{Err: ErrInvalidCatalog, Fields: map[string]string{"year": err.Error()}}
	case errors.Is(err, models.ErrCatalogOrphanModels):
		return &ValidationError{Err: ErrInvalidCatalog, Fields: map[string]string{"models": err.Error()}}
	default:
		return &ValidationError{Err: ErrInvalidCatalog, Fields: map[string]string{"catalog": err.Error()}}
	}
}

func (f *CatalogFlowImpl) compareAndSwap(ctx context.Context, version int64, doc models.CatalogDocument, actor Actor, metadata *ClientMetadata, op string) (*dto.FilterCatalogDTO, error) {
	if f.rc != nil {
		lockKey := redisKey(f.cacheConfig, utils.FilterCatalogLockKey)
		token := uuid.NewString()
		ok, err := f.rc.SetNX(ctx, lockKey, token, utils.FilterCatalogLockTTL).Result()
		if err != nil {
			return nil, NewBusinessError("CATALOG_LOCK_FAILED", "Failed to acquire catalog lock", err)
		}
		if !ok {
			return nil, NewBusinessError("CATALOG_LOCK_BUSY", "Another writer is updating the filter catalog", ErrCatalogBusy)
		}
		defer func() {
			if err := releaseLock(context.WithoutCancel(ctx), f.rc, lockKey, token); err != nil {
				f.logger.Warn("failed to release catalog lock", zap.String("key", lockKey), zap.Error(err))
			}
		}()
	}

	row, err := f.catalogRepo.CompareAndSwap(ctx, version, doc, actorIDPtr(actor))
	if err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			catalogUpdateConflictsTotal.Inc()
			f.audit.record(ctx, actor, metadata, auditEntry{
				action:     models.AuditActionCatalogUpdateStale,
				entityType: models.AuditEntityCatalog,
				message:    "Stale filter catalog write rejected",
				err:        ErrStaleCatalog,
				details:    map[string]any{"version": version, "op": op},
			})
			return nil, NewBusinessErrorf("STALE_CATALOG", "Filter catalog changed since version %d", ErrStaleCatalog, version)
		}
		return nil, NewBusinessError("UPDATE_FILTER_CATALOG_FAILED", "Failed to write filter catalog", err)
	}

	out := ToFilterCatalogDTO(row.Snapshot())
	f.writeCache(ctx, out)

	f.audit.record(ctx, actor, metadata, auditEntry{
		action:     models.AuditActionCatalogUpdated,
		entityType: models.AuditEntityCatalog,
		entityID:   utils.ToPtr(row.ID),
		message:    "Filter catalog updated",
		success:    true,
		details:    map[string]any{"version": row.Version, "op": op},
	})
	f.logger.Info("filter catalog updated",
		zap.Int64("version", row.Version),
		zap.String("op", op),
		zap.Stringer("actor", actor),
	)

	return &out, nil
}

func (f *CatalogFlowImpl) readCache(ctx context.Context) (*dto.FilterCatalogDTO, bool) {
	if f.rc == nil {
		return nil, false
	}
	bs, err := f.rc.Get(ctx, redisKey(f.cacheConfig, utils.FilterCatalogCacheKey)).Bytes()
	if err != nil || len(bs) == 0 {
		return nil, false
	}
	var out dto.FilterCatalogDTO
	if err := json.Unmarshal(bs, &out); err != nil {
		return nil, false
	}
	return &out, true
}

func (f *CatalogFlowImpl) writeCache(ctx context.Context, snapshot dto.FilterCatalogDTO) {
	if f.rc == nil {
		return
	}
	bs, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := f.rc.Set(ctx, redisKey(f.cacheConfig, utils.FilterCatalogCacheKey), bs, f.cacheConfig.DefaultTTL).Err(); err != nil {
		f.logger.Warn("failed to cache filter catalog", zap.Error(err))
	}
}

func actorIDPtr(actor Actor) *uint {
	if actor.IsAnonymous() {
		return nil
	}
	return utils.ToPtr(actor.ID)
}

// releaseLockScript deletes the lock only while it still holds the caller's token
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// releaseLock drops a lock taken with SETNX. A lock that expired and was taken by another writer is left alone.
func releaseLock(ctx context.Context, rc redis.Scripter, key, token string) error {
	return releaseLockScript.Run(ctx, rc, []string{key}, token).Err()
}
