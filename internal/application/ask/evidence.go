package ask

import (
	"context"
	"strings"
	"time"

	"memora-api/internal/config"
	"memora-api/internal/domain/entity"
	"memora-api/pkg/logger"
	"memora-api/pkg/metrics"
)

// EvidenceResolver 把附件引用转换为带时限签名 URL 的证据条目。
// 逐条处理：单条签名失败不影响其余条目。
type EvidenceResolver struct {
	signer Signer
	ttl    time.Duration
}

func NewEvidenceResolver(signer Signer, cfg *config.Config) *EvidenceResolver {
	minutes := cfg.Evidence.SignTTLMinutes
	if minutes <= 0 {
		minutes = 10
	}
	return &EvidenceResolver{
		signer: signer,
		ttl:    time.Duration(minutes) * time.Minute,
	}
}

// Resolve 最多处理前 MaxSurfacedArtifacts 条附件引用。
func (r *EvidenceResolver) Resolve(ctx context.Context, artifacts []entity.ArtifactReference) []entity.EvidenceItem {
	if len(artifacts) == 0 {
		return []entity.EvidenceItem{}
	}
	if len(artifacts) > entity.MaxSurfacedArtifacts {
		artifacts = artifacts[:entity.MaxSurfacedArtifacts]
	}

	items := make([]entity.EvidenceItem, 0, len(artifacts))
	for _, ref := range artifacts {
		item, ok := r.resolveOne(ctx, ref)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items
}

func (r *EvidenceResolver) resolveOne(ctx context.Context, ref entity.ArtifactReference) (entity.EvidenceItem, bool) {
	if r == nil || r.signer == nil || strings.TrimSpace(ref.GCSPath) == "" {
		return entity.EvidenceItem{}, false
	}

	signedURL, err := r.signer.SignRead(ctx, ref.GCSPath, r.ttl)
	if err != nil {
		metrics.EvidenceSignFailures.Inc()
		logger.Warn(ctx, "failed to sign artifact url", "artifact_id", ref.ArtifactID, "error", err.Error())
		return entity.EvidenceItem{}, false
	}

	item := entity.EvidenceItem{
		Kind:      ref.Kind,
		Name:      evidenceName(ref),
		SignedURL: signedURL,
		Mime:      ref.Mime,
	}

	// 缩略图缺失或签名失败都是单条降级
	if strings.TrimSpace(ref.ThumbPath) != "" {
		thumbURL, err := r.signer.SignRead(ctx, ref.ThumbPath, r.ttl)
		if err != nil {
			metrics.EvidenceSignFailures.Inc()
			logger.Warn(ctx, "failed to sign thumbnail url", "artifact_id", ref.ArtifactID, "error", err.Error())
		} else {
			item.ThumbURL = thumbURL
		}
	}

	return item, true
}

// evidenceName 无显式名称时取存储路径的最后一段。
func evidenceName(ref entity.ArtifactReference) string {
	if name := strings.TrimSpace(ref.Name); name != "" {
		return name
	}
	path := strings.TrimSuffix(ref.GCSPath, "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
