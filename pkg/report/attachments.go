package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// AttachmentInput is one pending photo attachment. Open is called at most
// once, from the reading goroutine.
type AttachmentInput struct {
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// ReadAttachments reads every input concurrently and encodes each as a
// data URL. All reads complete before the caller may construct the report
// record. Cancelling ctx (the draft is no longer current) aborts the whole
// batch with an error, so an abandoned draft can never reach the store.
func ReadAttachments(
	ctx context.Context, inputs []AttachmentInput,
) ([]string, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	encoded := make([]string, len(inputs))

	g, gCtx := errgroup.WithContext(ctx)

	for i, in := range inputs {
		g.Go(func() error {
			rc, err := in.Open()
			if err != nil {
				return fmt.Errorf("opening attachment %d: %w", i, err)
			}
			defer rc.Close()

			data, err := io.ReadAll(rc)
			if err != nil {
				return fmt.Errorf("reading attachment %d: %w", i, err)
			}

			if err := gCtx.Err(); err != nil {
				return err
			}

			ct := in.ContentType
			if ct == "" {
				ct = http.DetectContentType(data)
			}

			encoded[i] = "data:" + ct + ";base64," +
				base64.StdEncoding.EncodeToString(data)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return encoded, nil
}
