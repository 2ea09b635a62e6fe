package inboundmail

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/goliatone/go-ses-events/core"
)

// maxObjectSize caps how much of a stored message we read. SES tops out well
// below this for received mail.
const maxObjectSize = 40 << 20

// ObjectGetter is the slice of the S3 API the handler needs.
type ObjectGetter interface {
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
}

// S3Handler fetches the stored raw message from the bucket named in the
// receipt action and parses it into structured content.
type S3Handler struct {
	client ObjectGetter
	logger core.Logger
}

type S3HandlerOption func(*S3Handler)

func WithS3Logger(logger core.Logger) S3HandlerOption {
	return func(h *S3Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func NewS3Handler(client ObjectGetter, opts ...S3HandlerOption) *S3Handler {
	handler := &S3Handler{
		client: client,
		logger: core.ResolveLogger("inboundmail", nil, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}
	return handler
}

// NewS3Client builds a regional S3 client from the default credential chain.
func NewS3Client(region string) (*s3.S3, error) {
	sess, err := session.NewSession(aws.NewConfig().WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("inboundmail: new aws session: %w", err)
	}
	return s3.New(sess), nil
}

func (h *S3Handler) Name() string { return HandlerS3 }

func (h *S3Handler) Handle(ctx context.Context, req Request) (Result, error) {
	action := req.Receipt.Action
	if !strings.EqualFold(action.Type, actionTypeS3) {
		return Unprocessable(fmt.Sprintf("action type %q is not a bucket delivery", action.Type)), nil
	}
	if action.BucketName == "" || action.ObjectKey == "" {
		return Unprocessable("bucket delivery is missing bucket name or object key"), nil
	}
	if h.client == nil {
		return Result{}, core.InternalError("inboundmail: s3 handler has no client", nil)
	}

	output, err := h.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(action.BucketName),
		Key:    aws.String(action.ObjectKey),
	})
	if err != nil {
		return Result{}, core.WrapOperationError(err, "inboundmail: fetch stored message", map[string]any{
			"bucket": action.BucketName,
			"key":    action.ObjectKey,
		})
	}
	defer output.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(output.Body, maxObjectSize))
	if err != nil {
		return Result{}, core.WrapOperationError(err, "inboundmail: read stored message", map[string]any{
			"bucket": action.BucketName,
			"key":    action.ObjectKey,
		})
	}

	content, err := ParseEmail(raw)
	if err != nil {
		h.logger.Info("stored message is not parsable email", "bucket", action.BucketName, "key", action.ObjectKey)
		return Unprocessable("stored message is not a parsable email message"), nil
	}
	applyCommonHeaders(content, req)
	return Processed(content), nil
}
