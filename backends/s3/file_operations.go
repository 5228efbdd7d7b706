package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"go.uber.org/zap"

	"github.com/ebogdum/dualfs/fserr"
)

// ReadFile returns the object contents as text
func (a *S3Adapter) ReadFile(ctx context.Context, path string) (string, error) {
	key := pathToKey(path)

	result, err := a.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", a.missing(ctx, "readFile", "read", path, key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return "", fserr.IO("readFile", path, err)
	}
	return string(data), nil
}

// WriteFile puts the object. The parent prefix must exist unless it is the
// bucket root.
func (a *S3Adapter) WriteFile(ctx context.Context, path, data string) error {
	key := pathToKey(path)
	if key == "" {
		return fserr.IO("writeFile", path, posixError("open", path, syscall.EISDIR))
	}
	isDir, err := a.dirExists(ctx, "writeFile", path, key)
	if err != nil {
		return err
	}
	if isDir {
		return fserr.IO("writeFile", path, posixError("open", path, syscall.EISDIR))
	}
	parentExists, err := a.dirExists(ctx, "writeFile", path, parentKey(key))
	if err != nil {
		return err
	}
	if !parentExists {
		return fserr.NoEntry("writeFile", path, posixError("open", path, syscall.ENOENT))
	}

	putInput := &s3.PutObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
		Body:   bytes.NewReader([]byte(data)),
	}

	// Set server-side encryption if configured
	if a.serverSideEncryption != "" {
		putInput.ServerSideEncryption = aws.String(a.serverSideEncryption)
	}

	// Set content type based on file extension
	if contentType := getContentType(path); contentType != "" {
		putInput.ContentType = aws.String(contentType)
	}

	if _, err := a.client.PutObjectWithContext(ctx, putInput); err != nil {
		return translate("writeFile", path, err)
	}

	a.logger.Debug("File written to S3",
		zap.String("bucket", a.bucketName),
		zap.String("key", key),
		zap.Int("size", len(data)))
	return nil
}

// Unlink deletes the object. S3 deletes are idempotent, so existence is
// checked first.
func (a *S3Adapter) Unlink(ctx context.Context, filename string) error {
	key := pathToKey(filename)

	if _, err := a.head(ctx, key); err != nil {
		return a.missing(ctx, "unlink", "unlink", filename, key, err)
	}

	_, err := a.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return translate("unlink", filename, err)
	}

	a.logger.Debug("File deleted from S3",
		zap.String("bucket", a.bucketName),
		zap.String("key", key))
	return nil
}

// ReadBytes fetches the first n bytes with a ranged GET
func (a *S3Adapter) ReadBytes(ctx context.Context, path string, n int) ([]byte, error) {
	key := pathToKey(path)

	if n == 0 {
		if _, err := a.head(ctx, key); err != nil {
			return nil, a.missing(ctx, "readBytes", "read", path, key, err)
		}
		return []byte{}, nil
	}

	result, err := a.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
		Range:  aws.String(fmt.Sprintf("bytes=0-%d", n-1)),
	})
	if err != nil {
		// empty object
		if isInvalidRange(err) {
			return []byte{}, nil
		}
		return nil, a.missing(ctx, "readBytes", "read", path, key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(io.LimitReader(result.Body, int64(n)))
	if err != nil {
		return nil, fserr.IO("readBytes", path, err)
	}
	return data, nil
}

// GetMtime returns LastModified of the object, of the directory marker, or
// of the first object below an implicit directory
func (a *S3Adapter) GetMtime(ctx context.Context, path string) (time.Time, error) {
	key := pathToKey(path)

	head, err := a.head(ctx, key)
	if err != nil && isS3NotFound(err) && key != "" {
		head, err = a.head(ctx, key+"/")
	}
	if err == nil {
		return aws.TimeValue(head.LastModified), nil
	}
	if !isS3NotFound(err) {
		return time.Time{}, translate("getMtime", path, err)
	}

	list, listErr := a.list(ctx, key, 1)
	if listErr != nil {
		return time.Time{}, translate("getMtime", path, listErr)
	}
	if len(list.Contents) == 0 {
		return time.Time{}, translate("getMtime", path, err)
	}
	return aws.TimeValue(list.Contents[0].LastModified), nil
}

func (a *S3Adapter) head(ctx context.Context, key string) (*s3.HeadObjectOutput, error) {
	return a.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
	})
}

// getContentType returns the MIME type based on file extension
func getContentType(path string) string {
	ext := filepath.Ext(path)
	switch strings.ToLower(ext) {
	case ".html", ".htm":
		return "text/html"
	case ".css":
		return "text/css"
	case ".js":
		return "application/javascript"
	case ".json":
		return "application/json"
	case ".xml":
		return "application/xml"
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	default:
		return "application/octet-stream"
	}
}
