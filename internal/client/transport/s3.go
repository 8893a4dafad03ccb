package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/logging"
	"github.com/dmitrijs2005/readersync/internal/models"
	"github.com/dmitrijs2005/readersync/internal/timex"
)

// S3API is the part of *s3.Client the transport uses.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Timeout   time.Duration
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) S3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Transport keeps each group as one JSON object, groups/<CODE>.json.
// The object's ETag is the revision token and writes are conditional on
// it, so two devices cannot overwrite each other's push.
type S3Transport struct {
	api     S3API
	bucket  string
	timeout time.Duration
	logger  logging.Logger
	now     func() int64
}

// NewS3 builds a client for opts. Static credentials are used when an
// access key is given, otherwise the default AWS credential chain. A custom
// endpoint (MinIO and friends) switches to path-style addressing.
func NewS3(ctx context.Context, opts S3Options, l logging.Logger) (*S3Transport, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, wrap("s3", "connect", err)
	}

	api := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3WithClient(api, opts.Bucket, opts.Timeout, l), nil
}

func NewS3WithClient(api S3API, bucket string, timeout time.Duration, l logging.Logger) *S3Transport {
	return &S3Transport{
		api:     api,
		bucket:  bucket,
		timeout: timeout,
		logger:  l.With("module", "transport.s3"),
		now:     timex.NowMillis,
	}
}

func objectKey(code string) string {
	return "groups/" + code + ".json"
}

func (t *S3Transport) Name() string { return "s3" }
func (t *S3Transport) Remote() bool { return true }

func (t *S3Transport) GroupExists(ctx context.Context, code string) (bool, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	_, err := t.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(objectKey(code)),
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(mapS3Error(err), common.ErrGroupNotFound) {
		return false, nil
	}
	return false, wrap(t.Name(), "exists", mapS3Error(err))
}

func (t *S3Transport) CreateGroup(ctx context.Context, code, deviceID string) error {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	_, err := t.put(ctx, models.NewGroupRecord(code, deviceID, t.now()), "")
	if errors.Is(err, common.ErrRevisionConflict) {
		err = common.ErrGroupExists
	}
	return wrap(t.Name(), "create", err)
}

func (t *S3Transport) FetchGroup(ctx context.Context, code string) (*Snapshot, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	rec, etag, err := t.get(ctx, code)
	if errors.Is(err, common.ErrGroupNotFound) {
		return &Snapshot{DeviceCount: 1}, nil
	}
	if err != nil {
		return nil, wrap(t.Name(), "fetch", err)
	}

	snap := &Snapshot{Revision: etag, DeviceCount: rec.DeviceCount()}
	if rec == nil || len(rec.Data) == 0 {
		return snap, nil
	}
	env, err := rec.Envelope()
	if err != nil {
		t.logger.Warn(ctx, "stored envelope unusable, treating as empty", "code", code, "error", err)
		return snap, nil
	}
	snap.Envelope = env
	return snap, nil
}

func (t *S3Transport) PutGroup(ctx context.Context, code string, env *models.Envelope, revision string) (*PutResult, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	data, err := env.Encode()
	if err != nil {
		return nil, wrap(t.Name(), "put", err)
	}
	now := t.now()

	var rec *models.GroupRecord
	if revision != "" {
		current, etag, err := t.get(ctx, code)
		if errors.Is(err, common.ErrGroupNotFound) {
			return nil, wrap(t.Name(), "put", common.ErrRevisionConflict)
		}
		if err != nil {
			return nil, wrap(t.Name(), "put", err)
		}
		if etag != revision {
			return nil, wrap(t.Name(), "put", common.ErrRevisionConflict)
		}
		rec = current
	}
	if rec == nil {
		rec = models.NewGroupRecord(code, env.DeviceID, now)
	} else {
		rec.Revision++
		rec.Touch(env.DeviceID, now)
	}
	rec.Data = data
	rec.UpdatedAt = now

	etag, err := t.put(ctx, rec, revision)
	if err != nil {
		return nil, wrap(t.Name(), "put", err)
	}
	return &PutResult{Revision: etag, DeviceCount: rec.DeviceCount()}, nil
}

func (t *S3Transport) Close() error { return nil }

// get loads the group object. A record that does not decode is returned as
// nil together with its ETag so it can be overwritten.
func (t *S3Transport) get(ctx context.Context, code string) (*models.GroupRecord, string, error) {
	out, err := t.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(objectKey(code)),
	})
	if err != nil {
		return nil, "", mapS3Error(err)
	}
	defer out.Body.Close()

	etag := aws.ToString(out.ETag)
	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", unavailable(err)
	}

	var rec models.GroupRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		t.logger.Warn(ctx, "group object unusable, treating as empty", "code", code, "error", err)
		return nil, etag, nil
	}
	return &rec, etag, nil
}

// put writes rec. An empty revision requires the object to be absent,
// otherwise its ETag must still equal revision.
func (t *S3Transport) put(ctx context.Context, rec *models.GroupRecord, revision string) (string, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(t.bucket),
		Key:         aws.String(objectKey(rec.SyncCode)),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
	}
	if revision == "" {
		in.IfNoneMatch = aws.String("*")
	} else {
		in.IfMatch = aws.String(revision)
	}

	out, err := t.api.PutObject(ctx, in)
	if err != nil {
		return "", mapS3Error(err)
	}
	return aws.ToString(out.ETag), nil
}

// mapS3Error turns S3 API error codes into the common sentinels. Errors
// without an API code never reached the service and count as the backend
// being unavailable.
func mapS3Error(err error) error {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return unavailable(err)
	}
	switch ae.ErrorCode() {
	case "NoSuchKey", "NotFound":
		return common.ErrGroupNotFound
	case "PreconditionFailed", "ConditionalRequestConflict":
		return common.ErrRevisionConflict
	default:
		return fmt.Errorf("s3 error: %w", err)
	}
}
