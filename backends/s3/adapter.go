// Package s3 implements the blocking branch of the dualfs contract on an S3
// bucket. Directories are "key/" marker objects; a prefix with children is a
// directory too.
package s3

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"go.uber.org/zap"

	"github.com/ebogdum/dualfs/backends"
	"github.com/ebogdum/dualfs/config"
	"github.com/ebogdum/dualfs/fserr"
)

// S3Adapter implements backends.Blocking for AWS S3 and compatible stores
type S3Adapter struct {
	client               s3iface.S3API
	bucketName           string
	serverSideEncryption string
	logger               *zap.Logger
}

var (
	_ backends.Backend  = (*S3Adapter)(nil)
	_ backends.Blocking = (*S3Adapter)(nil)
)

// NewS3Adapter creates a new S3 storage adapter
func NewS3Adapter(cfg config.BackendConfig, logger *zap.Logger) (*S3Adapter, error) {
	if cfg.S3BucketName == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}

	awsConfig := &aws.Config{
		Region: aws.String(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.S3AccessKey, cfg.S3SecretKey, "")
	}

	// Set custom endpoint if provided (for MinIO compatibility)
	if cfg.S3Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.S3Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
		awsConfig.DisableSSL = aws.Bool(strings.HasPrefix(cfg.S3Endpoint, "http://"))
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	client := s3.New(sess)

	// Verify bucket access
	if _, err := client.HeadBucket(&s3.HeadBucketInput{Bucket: aws.String(cfg.S3BucketName)}); err != nil {
		return nil, fmt.Errorf("failed to access S3 bucket %s: %w", cfg.S3BucketName, err)
	}

	return NewS3AdapterWithClient(client, cfg.S3BucketName, cfg.S3ServerSideEncryption, logger), nil
}

// NewS3AdapterWithClient creates an adapter around an existing client
func NewS3AdapterWithClient(client s3iface.S3API, bucketName, serverSideEncryption string, logger *zap.Logger) *S3Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Adapter{
		client:               client,
		bucketName:           bucketName,
		serverSideEncryption: serverSideEncryption,
		logger:               logger,
	}
}

// Name returns "s3"
func (a *S3Adapter) Name() string { return "s3" }

// Close closes any resources used by the S3 adapter
func (a *S3Adapter) Close() error {
	// No resources to close for S3
	return nil
}

// pathToKey converts a filesystem path to an S3 key
func pathToKey(p string) string {
	return strings.Trim(p, "/")
}

// parentKey returns the key of the directory containing key; "" is the bucket root
func parentKey(key string) string {
	parent := path.Dir("/" + key)
	return strings.TrimPrefix(parent, "/")
}

// isS3NotFound checks if an error indicates the object was not found
func isS3NotFound(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	switch aerr.Code() {
	case s3.ErrCodeNoSuchKey, "NotFound":
		return true
	}
	return false
}

func isInvalidRange(err error) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == "InvalidRange"
}

// translate maps an S3 error into the taxonomy
func translate(op, p string, err error) error {
	if isS3NotFound(err) {
		return fserr.NoEntry(op, p, err)
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return fserr.IOCode(op, p, aerr.Code(), err)
	}
	return fserr.IO(op, p, err)
}

// posixError builds the provider-style error for conditions S3 itself does
// not report
func posixError(op, p string, errno syscall.Errno) error {
	return &os.PathError{Op: op, Path: p, Err: errno}
}
