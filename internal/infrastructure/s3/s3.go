package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"go.uber.org/zap"

	"media-portfolio-api/config"
	"media-portfolio-api/internal/domain/media"
)

var ErrForeignURL = errors.New("url does not belong to the uploads bucket")

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Client stores media objects in any S3 compatible bucket (AWS, MinIO, R2)
// and hands out their public URLs.
type Client struct {
	logger  *zap.Logger
	api     objectAPI
	bucket  string
	baseURL string
}

func New(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.S3,
) (*Client, error) {
	if cfg.BucketUploads == "" {
		return nil, fmt.Errorf("s3: uploads bucket is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	base, err := publicBaseURL(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("s3 client configured",
		zap.String("bucket", cfg.BucketUploads),
		zap.String("region", cfg.Region),
		zap.String("public_base_url", base),
	)

	return newClient(logger, client, cfg.BucketUploads, base), nil
}

func newClient(logger *zap.Logger, api objectAPI, bucket, baseURL string) *Client {
	return &Client{
		logger:  logger,
		api:     api,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// publicBaseURL is the prefix every object URL of the bucket starts with.
func publicBaseURL(cfg config.S3) (string, error) {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/"), nil
	}
	if cfg.Endpoint == "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.BucketUploads, cfg.Region), nil
	}

	u, err := url.Parse(strings.TrimRight(cfg.Endpoint, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("s3: invalid endpoint %q", cfg.Endpoint)
	}
	if cfg.UsePathStyle {
		return u.String() + "/" + cfg.BucketUploads, nil
	}
	u.Host = cfg.BucketUploads + "." + u.Host
	return u.String(), nil
}

func (c *Client) PublicURL(key string) string { return c.baseURL + "/" + key }

func (c *Client) GetBucket() string { return c.bucket }

// Put uploads body under key and returns the object's public URL.
func (c *Client) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}

	// the body is a plain stream, so the payload is not hashed up front
	_, err := c.api.PutObject(ctx, in, s3.WithAPIOptions(v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware))
	if err != nil {
		return "", classify(fmt.Errorf("put object %q: %w", key, err))
	}

	return c.PublicURL(key), nil
}

// Delete removes the object behind rawURL. Missing objects are not an error.
func (c *Client) Delete(ctx context.Context, rawURL string) error {
	key, err := c.keyFromURL(rawURL)
	if err != nil {
		return err
	}

	_, err = c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			c.logger.Debug("s3 object already gone", zap.String("key", key))
			return nil
		}
		return classify(fmt.Errorf("delete object %q: %w", key, err))
	}

	return nil
}

func (c *Client) keyFromURL(rawURL string) (string, error) {
	prefix := c.baseURL + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, rawURL)
	}

	key := strings.TrimPrefix(rawURL, prefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	if key == "" {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, rawURL)
	}
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}

	return key, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// classify marks transport level failures, where the store was never
// reached, with media.ErrUnavailable.
func classify(err error) error {
	var (
		sendErr *smithyhttp.RequestSendError
		netErr  net.Error
	)
	if errors.As(err, &sendErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", media.ErrUnavailable, err)
	}
	return err
}
