// Package cors enforces the per-project origin trust boundary. Origins are
// resolved through a short-lived ephemeral-store cache so hot tenants do not
// hit the project store on every preflight.
package cors

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smallbiznis/portal-auth/internal/domain"
	"github.com/smallbiznis/portal-auth/internal/domain/oauth"
	"github.com/smallbiznis/portal-auth/internal/repository"
)

const (
	originCachePrefix = "origins:"
	originCacheTTL    = time.Minute
)

// Resolver resolves a project's allowed origins by public key.
type Resolver struct {
	projects repository.ProjectRepository
	store    repository.EphemeralStore
	logger   *zap.Logger
}

// NewResolver constructs an origin resolver.
func NewResolver(projects repository.ProjectRepository, store repository.EphemeralStore, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.L()
	}
	return &Resolver{projects: projects, store: store, logger: logger}
}

// AllowedOrigins returns the allowlist for the tenant identified by
// publicKey. Cache and project lookups fail open: an unknown or unreadable
// project resolves to an empty allowlist, which is permissive, rather than
// blocking traffic.
func (r *Resolver) AllowedOrigins(ctx context.Context, publicKey string) []string {
	publicKey = strings.TrimSpace(publicKey)
	if publicKey == "" {
		return nil
	}

	key := originCachePrefix + publicKey
	if data, err := r.store.Get(ctx, key); err != nil {
		r.logger.Warn("origin cache read failed", zap.String("public_key", publicKey), zap.Error(err))
	} else if data != nil {
		var origins []string
		if err := json.Unmarshal(data, &origins); err == nil {
			return origins
		}
		r.logger.Warn("origin cache entry corrupt", zap.String("public_key", publicKey))
	}

	project, err := r.projects.GetByPublicKey(ctx, publicKey)
	if err != nil {
		r.logger.Warn("origin lookup: project not resolved", zap.String("public_key", publicKey), zap.Error(err))
		return nil
	}

	origins := project.AllowedOrigins
	if origins == nil {
		origins = []string{}
	}
	if payload, err := json.Marshal(origins); err == nil {
		if err := r.store.Set(ctx, key, payload, originCacheTTL); err != nil {
			r.logger.Warn("origin cache write failed", zap.String("public_key", publicKey), zap.Error(err))
		}
	}
	return origins
}

// Invalidate drops the cached allowlist for a tenant. The project CRUD layer
// calls this whenever a developer edits the allowlist.
func (r *Resolver) Invalidate(ctx context.Context, publicKey string) {
	key := originCachePrefix + strings.TrimSpace(publicKey)
	if err := r.store.Delete(ctx, key); err != nil {
		r.logger.Warn("origin cache invalidation failed", zap.String("public_key", publicKey), zap.Error(err))
	}
}

// Check applies the trust model to an already-resolved project: no Origin
// header or an unconfigured allowlist passes; a configured allowlist must
// contain the origin.
func Check(project domain.Project, origin string) error {
	if strings.TrimSpace(origin) == "" {
		return nil
	}
	if len(project.AllowedOrigins) == 0 {
		return nil
	}
	if originAllowed(origin, project.AllowedOrigins) {
		return nil
	}
	return oauth.ErrOriginNotAllowed
}

func originAllowed(origin string, allowed []string) bool {
	for _, candidate := range allowed {
		if strings.EqualFold(strings.TrimSpace(candidate), origin) {
			return true
		}
	}
	return false
}
