package report_test

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/et-mohedano/demo-delegados/pkg/report"
)

func stringInput(contentType, data string) report.AttachmentInput {
	return report.AttachmentInput{
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(data)), nil
		},
	}
}

func TestReadAttachments(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("encodes in input order", func(t *testing.T) {
		t.Parallel()

		got, err := report.ReadAttachments(ctx, []report.AttachmentInput{
			stringInput("image/png", "first"),
			stringInput("image/jpeg", "second"),
		})
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, "data:image/png;base64,"+
			base64.StdEncoding.EncodeToString([]byte("first")), got[0])
		assert.Equal(t, "data:image/jpeg;base64,"+
			base64.StdEncoding.EncodeToString([]byte("second")), got[1])
	})

	t.Run("no inputs", func(t *testing.T) {
		t.Parallel()

		got, err := report.ReadAttachments(ctx, nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("content type is sniffed when absent", func(t *testing.T) {
		t.Parallel()

		got, err := report.ReadAttachments(ctx, []report.AttachmentInput{
			stringInput("", "plain text payload"),
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, strings.HasPrefix(got[0], "data:text/plain"))
	})

	t.Run("open failure fails the batch", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")

		_, err := report.ReadAttachments(ctx, []report.AttachmentInput{
			stringInput("image/png", "fine"),
			{Open: func() (io.ReadCloser, error) { return nil, boom }},
		})
		require.ErrorIs(t, err, boom)
	})

	t.Run("cancelled draft never yields payloads", func(t *testing.T) {
		t.Parallel()

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		got, err := report.ReadAttachments(cancelled,
			[]report.AttachmentInput{stringInput("image/png", "late")})
		require.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, got)
	})
}
