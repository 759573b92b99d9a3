package blob

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"tienda-be/internal/apperr"
	"tienda-be/internal/logger"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Prune removes stored files that no reference in referenced points to and
// returns their names. With dryRun nothing is removed. Product deletion
// leaves its image behind; this is the cleanup for that.
func (s *DiskStore) Prune(ctx context.Context, referenced []string, dryRun bool) ([]string, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("component", "blob"),
		zap.String("method", "Prune"),
		zap.Bool("dry_run", dryRun),
	)

	keep := make(map[string]struct{}, len(referenced))
	for _, ref := range referenced {
		if name, ok := s.NameOf(ref); ok {
			keep[name] = struct{}{}
		}
	}

	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	var orphans []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return orphans, err
		}
		if e.IsDir() || strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		if _, ok := keep[e.Name()]; ok {
			continue
		}

		if !dryRun {
			if err := s.fs.Remove(filepath.Join(s.dir, e.Name())); err != nil {
				log.Error("failed to remove orphan", zap.String("file", e.Name()), zap.Error(err))
				return orphans, apperr.Storage(err)
			}
		}
		orphans = append(orphans, e.Name())
	}

	sort.Strings(orphans)
	log.Info("prune finished", zap.Int("orphans", len(orphans)), zap.Int("referenced", len(keep)))
	return orphans, nil
}
