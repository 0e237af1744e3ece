package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cdeck95/filament-tracking/repository/models"
	"github.com/cdeck95/filament-tracking/storage"
	"go.uber.org/zap"
)

// Repository error codes.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeStorageError = "STORAGE_ERROR"
	CodeDecodeError  = "DECODE_ERROR"
)

// RepositoryError represents repository layer errors
type RepositoryError struct {
	Code    string
	Message string
	Detail  string
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Detail)
}

// Retryable reports whether the failure is a transient storage problem. A
// decode failure means the stored document itself is malformed and retrying
// will not help.
func (e *RepositoryError) Retryable() bool {
	return e.Code == CodeStorageError
}

// Revision is an opaque token identifying the exact document bytes a
// collection was loaded from. Save checks it so that two callers working
// from the same snapshot cannot silently overwrite each other.
type Revision string

// Repository loads and saves whole collection documents from blob storage.
// It holds no collection state between calls; every load re-reads the
// document. Writers on the same document path are serialized in-process and
// checked against the revision they loaded.
type Repository struct {
	store  storage.BlobStore
	logger *zap.SugaredLogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRepository creates a repository on top of the given blob store.
func NewRepository(store storage.BlobStore, logger *zap.SugaredLogger) *Repository {
	return &Repository{
		store:  store,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// pathLock returns the mutex guarding one document path.
func (r *Repository) pathLock(path string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[path] = lock
	}
	return lock
}

// resolveDocument finds the stored document for an entity. The tenant-scoped
// pathname wins when it exists; otherwise the shared default document is
// used; otherwise there is no document yet and the collection is empty.
func (r *Repository) resolveDocument(ctx context.Context, entity, tenant string) ([]byte, Revision, *RepositoryError) {
	infos, err := r.store.List(ctx)
	if err != nil {
		return nil, "", &RepositoryError{
			Code:    CodeStorageError,
			Message: "Failed to list blobs",
			Detail:  err.Error(),
		}
	}

	candidates := []string{models.DocumentPath(entity, tenant)}
	if tenant != "" {
		candidates = append(candidates, models.DocumentPath(entity, ""))
	}

	for _, pathname := range candidates {
		for _, info := range infos {
			if info.Pathname != pathname {
				continue
			}
			data, err := r.store.Fetch(ctx, info.URL)
			if err != nil {
				return nil, "", &RepositoryError{
					Code:    CodeStorageError,
					Message: "Failed to fetch document",
					Detail:  fmt.Sprintf("%s: %v", pathname, err),
				}
			}
			return data, revisionOf(data), nil
		}
	}

	return nil, "", nil
}

// writeDocument encodes and overwrites the document for an entity. When a
// tenant is known the write always targets the tenant-scoped path, never the
// shared default.
func (r *Repository) writeDocument(ctx context.Context, entity, tenant string, data []byte) *RepositoryError {
	pathname := models.DocumentPath(entity, tenant)
	err := r.store.Put(ctx, pathname, data, storage.PutOptions{
		Public:      true,
		ContentType: "application/json",
	})
	if err != nil {
		return &RepositoryError{
			Code:    CodeStorageError,
			Message: "Failed to save document",
			Detail:  fmt.Sprintf("%s: %v", pathname, err),
		}
	}
	return nil
}

// saveDocument re-resolves the current document under the path lock and
// rejects the write with a conflict when the caller's base revision no
// longer matches what is stored.
func (r *Repository) saveDocument(ctx context.Context, entity, tenant string, data []byte, base Revision) *RepositoryError {
	lock := r.pathLock(models.DocumentPath(entity, tenant))
	lock.Lock()
	defer lock.Unlock()

	_, current, repoErr := r.resolveDocument(ctx, entity, tenant)
	if repoErr != nil {
		return repoErr
	}
	if current != base {
		return &RepositoryError{
			Code:    CodeConflict,
			Message: "Document was modified concurrently",
			Detail:  fmt.Sprintf("%s changed since it was loaded, reload and retry", models.DocumentPath(entity, tenant)),
		}
	}

	return r.writeDocument(ctx, entity, tenant, data)
}

func revisionOf(data []byte) Revision {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return Revision(hex.EncodeToString(sum[:]))
}

func decodeError(entity string, err error) *RepositoryError {
	return &RepositoryError{
		Code:    CodeDecodeError,
		Message: "Malformed collection document",
		Detail:  fmt.Sprintf("%s: %v", entity, err),
	}
}

// loadCollection resolves and decodes one collection document. A missing
// document is an empty collection, not an error.
func loadCollection[T any](ctx context.Context, r *Repository, entity, tenant string) ([]T, Revision, *RepositoryError) {
	data, rev, repoErr := r.resolveDocument(ctx, entity, tenant)
	if repoErr != nil {
		return nil, "", repoErr
	}
	if data == nil {
		return []T{}, "", nil
	}

	var collection []T
	if err := json.Unmarshal(data, &collection); err != nil {
		return nil, "", decodeError(entity, err)
	}
	return collection, rev, nil
}

// saveCollection encodes and writes one collection document, guarded by the
// caller's base revision.
func saveCollection[T any](ctx context.Context, r *Repository, entity, tenant string, collection []T, base Revision) *RepositoryError {
	data, err := json.Marshal(collection)
	if err != nil {
		return decodeError(entity, err)
	}
	return r.saveDocument(ctx, entity, tenant, data, base)
}

// LoadBrands loads the brand collection for a tenant.
func (r *Repository) LoadBrands(ctx context.Context, tenant string) ([]string, Revision, *RepositoryError) {
	return loadCollection[string](ctx, r, models.EntityBrands, tenant)
}

// SaveBrands overwrites the brand collection for a tenant.
func (r *Repository) SaveBrands(ctx context.Context, tenant string, brands []string, base Revision) *RepositoryError {
	return saveCollection(ctx, r, models.EntityBrands, tenant, brands, base)
}

// LoadMaterials loads the material collection for a tenant.
func (r *Repository) LoadMaterials(ctx context.Context, tenant string) ([]string, Revision, *RepositoryError) {
	return loadCollection[string](ctx, r, models.EntityMaterials, tenant)
}

// SaveMaterials overwrites the material collection for a tenant.
func (r *Repository) SaveMaterials(ctx context.Context, tenant string, materials []string, base Revision) *RepositoryError {
	return saveCollection(ctx, r, models.EntityMaterials, tenant, materials, base)
}

// LoadColors loads the color collection for a tenant.
func (r *Repository) LoadColors(ctx context.Context, tenant string) ([]models.Color, Revision, *RepositoryError) {
	return loadCollection[models.Color](ctx, r, models.EntityColors, tenant)
}

// SaveColors overwrites the color collection for a tenant.
func (r *Repository) SaveColors(ctx context.Context, tenant string, colors []models.Color, base Revision) *RepositoryError {
	return saveCollection(ctx, r, models.EntityColors, tenant, colors, base)
}

// LoadFilaments loads the filament collection for a tenant and lazily
// repairs records that predate some fields: missing timestamps are set to
// now, the starting weight is snapshotted the first time a record is seen
// with a weight, and the status field is derived from the weight. When any
// record was repaired the whole document is persisted immediately so the
// backfill only ever happens once per record.
func (r *Repository) LoadFilaments(ctx context.Context, tenant string) ([]models.Filament, Revision, *RepositoryError) {
	filaments, rev, repoErr := loadCollection[models.Filament](ctx, r, models.EntityFilaments, tenant)
	if repoErr != nil {
		return nil, "", repoErr
	}

	now := time.Now().UTC()
	changed := false
	for i := range filaments {
		f := &filaments[i]
		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
			changed = true
		}
		if f.UpdatedAt.IsZero() {
			f.UpdatedAt = now
			changed = true
		}
		if f.StartingWeight == 0 && f.Weight != nil && *f.Weight > 0 {
			f.StartingWeight = *f.Weight
			changed = true
		}
		if derived := models.DeriveStatus(f.Weight); f.Status != derived {
			f.Status = derived
			changed = true
		}
	}

	if !changed {
		return filaments, rev, nil
	}

	data, err := json.Marshal(filaments)
	if err != nil {
		return nil, "", decodeError(models.EntityFilaments, err)
	}
	if repoErr := r.saveDocument(ctx, models.EntityFilaments, tenant, data, rev); repoErr != nil {
		// A concurrent writer already replaced the document; serve the
		// repaired view and let the next load persist the backfill.
		if repoErr.Code != CodeConflict {
			return nil, "", repoErr
		}
		r.logger.Debugw("skipped backfill save after concurrent write", "tenant", tenant)
		return filaments, rev, nil
	}
	r.logger.Infow("backfilled filament records", "tenant", tenant, "count", len(filaments))

	return filaments, revisionOf(data), nil
}

// SaveFilaments overwrites the filament collection for a tenant.
func (r *Repository) SaveFilaments(ctx context.Context, tenant string, filaments []models.Filament, base Revision) *RepositoryError {
	return saveCollection(ctx, r, models.EntityFilaments, tenant, filaments, base)
}

// NextFilamentID assigns the id for a new filament: one past the highest id
// in the collection, starting at 1.
func NextFilamentID(filaments []models.Filament) int {
	maxID := 0
	for _, f := range filaments {
		if f.ID > maxID {
			maxID = f.ID
		}
	}
	return maxID + 1
}
