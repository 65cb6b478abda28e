package workflow

import (
	"context"

	"parallax/internal/config"
	"parallax/internal/pairscan"
	"parallax/internal/queue"
	"parallax/internal/services"
)

// EnqueueReport summarizes a folder enqueue pass.
type EnqueueReport struct {
	// Added holds the queued items in scan order.
	Added []*queue.Item
	// Skipped holds output paths that already existed.
	Skipped []string
	// Unmatched holds source files whose twin was missing.
	Unmatched []string
}

// EnqueueFolder scans dir for capture pairs and queues a merge item for
// each pair whose output does not already exist. Outputs land next to the
// sources, tagged with the merge format.
func EnqueueFolder(ctx context.Context, store *queue.Store, cfg *config.Config, dir string) (EnqueueReport, error) {
	result, err := pairscan.Scan(dir, cfg.Batch.Extensions)
	if err != nil {
		return EnqueueReport{}, err
	}

	tag := MergeTag(cfg)
	report := EnqueueReport{Unmatched: result.Unmatched}
	for _, pair := range result.Pairs {
		output := pair.OutputPath(dir, tag)
		if pairscan.ShouldSkip(output, cfg.Batch.OverwriteExisting) {
			report.Skipped = append(report.Skipped, output)
			continue
		}
		item, err := store.NewMerge(ctx, pair.LeftPath, pair.RightPath, output)
		if err != nil {
			return report, err
		}
		report.Added = append(report.Added, item)
	}
	return report, nil
}

// EnqueueConversions scans dir for side-by-side masters and queues a
// conversion item per master whose output does not already exist. An empty
// format selects the configured default.
func EnqueueConversions(ctx context.Context, store *queue.Store, cfg *config.Config, dir, format string) (EnqueueReport, error) {
	spec, err := cfg.FormatSpec(format)
	if err != nil {
		return EnqueueReport{}, services.Wrap(services.ErrConfiguration, "workflow", "enqueue", format, err)
	}
	masters, err := pairscan.ScanMasters(dir, cfg.Batch.Extensions)
	if err != nil {
		return EnqueueReport{}, err
	}

	tag := spec.OutputTag()
	var report EnqueueReport
	for _, source := range masters {
		output := pairscan.ConvertOutputPath(source, dir, tag)
		if pairscan.ShouldSkip(output, cfg.Batch.OverwriteExisting) {
			report.Skipped = append(report.Skipped, output)
			continue
		}
		item, err := store.NewConvert(ctx, source, output, string(spec.Kind))
		if err != nil {
			return report, err
		}
		report.Added = append(report.Added, item)
	}
	return report, nil
}
