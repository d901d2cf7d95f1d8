package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

// UnitFn processes one input artifact and returns the artifacts it produced.
type UnitFn func(ctx context.Context, input model.Artifact) (model.Manifest, error)

// PerFile runs unitFn once per input artifact, at most info.Concurrent at a time. The
// returned manifest follows the input order whatever order the units complete in. The first
// failing unit cancels the others and its error is returned.
func PerFile(ctx context.Context, info *model.StageInfo, input model.Manifest, report Reporter, unitFn UnitFn) (model.Manifest, error) {
	concurrent := info.Concurrent
	if concurrent < 1 {
		concurrent = 1
	}

	results := make([]model.Manifest, len(input))

	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(concurrent)

	for idx, in := range input {
		localIdx, localIn := idx, in

		errGrp.Go(func() error {
			// units queued behind the limit must not start once a unit failed
			err := dCtx.Err()
			if err != nil {
				return errors.Wrapf(err, "sample %s", localIn.Sample)
			}

			start := time.Now()

			out, err := unitFn(dCtx, localIn)
			if err != nil {
				return errors.Wrapf(err, "sample %s", localIn.Sample)
			}

			elapsed := time.Since(start)

			for _, artifact := range out {
				if report == nil {
					break
				}

				err := report(artifact, elapsed)
				if err != nil {
					return err
				}
			}

			results[localIdx] = out

			return nil
		})
	}

	err := errGrp.Wait()
	if err != nil {
		return nil, err
	}

	produced := model.Manifest{}
	for _, out := range results {
		produced = append(produced, out...)
	}

	return produced, nil
}
