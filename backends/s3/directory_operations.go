package s3

import (
	"context"
	"syscall"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"go.uber.org/zap"

	"github.com/ebogdum/dualfs/fserr"
)

// PathExists reports whether an object, a marker or any object below the
// prefix exists. Lookup failures read as absent.
func (a *S3Adapter) PathExists(ctx context.Context, path string) (bool, error) {
	key := pathToKey(path)
	if _, err := a.head(ctx, key); err == nil {
		return true, nil
	}
	ok, err := a.dirExists(ctx, "pathExists", path, key)
	if err != nil {
		a.logger.Debug("Existence check failed", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return ok, nil
}

// MkDir writes the "key/" marker. An existing entry is success; a missing
// parent is an IOError.
func (a *S3Adapter) MkDir(ctx context.Context, path string) error {
	key := pathToKey(path)
	if key == "" {
		return nil
	}
	if _, err := a.head(ctx, key); err == nil {
		return nil
	} else if !isS3NotFound(err) {
		return translate("mkDir", path, err)
	}
	exists, err := a.dirExists(ctx, "mkDir", path, key)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	parentExists, err := a.dirExists(ctx, "mkDir", path, parentKey(key))
	if err != nil {
		return err
	}
	if !parentExists {
		return fserr.IO("mkDir", path, posixError("mkdir", path, syscall.ENOENT))
	}

	putInput := &s3.PutObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key + "/"),
	}
	if a.serverSideEncryption != "" {
		putInput.ServerSideEncryption = aws.String(a.serverSideEncryption)
	}
	if _, err := a.client.PutObjectWithContext(ctx, putInput); err != nil {
		return translate("mkDir", path, err)
	}

	a.logger.Debug("Directory marker created in S3",
		zap.String("bucket", a.bucketName),
		zap.String("key", key+"/"))
	return nil
}

// RmDir deletes the marker of an empty directory. A missing directory is
// success.
func (a *S3Adapter) RmDir(ctx context.Context, path string) error {
	key := pathToKey(path)
	if key == "" {
		return fserr.IO("rmDir", path, posixError("rmdir", path, syscall.EBUSY))
	}

	if _, err := a.head(ctx, key); err == nil {
		return fserr.IO("rmDir", path, posixError("rmdir", path, syscall.ENOTDIR))
	} else if !isS3NotFound(err) {
		return translate("rmDir", path, err)
	}

	list, err := a.list(ctx, key, 2)
	if err != nil {
		return translate("rmDir", path, err)
	}
	for _, obj := range list.Contents {
		if aws.StringValue(obj.Key) != key+"/" {
			return fserr.IO("rmDir", path, posixError("rmdir", path, syscall.ENOTEMPTY))
		}
	}
	if len(list.Contents) == 0 {
		return nil
	}

	_, err = a.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key + "/"),
	})
	if err != nil {
		return translate("rmDir", path, err)
	}
	return nil
}

// dirExists reports whether key is the bucket root or a non-empty prefix.
// List failures are translated for op on path.
func (a *S3Adapter) dirExists(ctx context.Context, op, path, key string) (bool, error) {
	if key == "" {
		return true, nil
	}
	list, err := a.list(ctx, key, 1)
	if err != nil {
		return false, translate(op, path, err)
	}
	return len(list.Contents) > 0, nil
}

// missing translates a failed lookup of key. A not-found key that is a
// directory becomes an EISDIR IOError.
func (a *S3Adapter) missing(ctx context.Context, op, sysOp, path, key string, err error) error {
	if !isS3NotFound(err) {
		return translate(op, path, err)
	}
	isDir, dirErr := a.dirExists(ctx, op, path, key)
	if dirErr != nil {
		return dirErr
	}
	if isDir {
		return fserr.IO(op, path, posixError(sysOp, path, syscall.EISDIR))
	}
	return translate(op, path, err)
}

// list returns up to max objects below "key/"
func (a *S3Adapter) list(ctx context.Context, key string, max int64) (*s3.ListObjectsV2Output, error) {
	prefix := ""
	if key != "" {
		prefix = key + "/"
	}
	return a.client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(a.bucketName),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int64(max),
	})
}
