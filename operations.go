package s3bridge

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/engine"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/bridge"
	copyop "github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/operations/copy"
	deleteop "github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/operations/delete"
	getop "github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/operations/get"
	listop "github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/operations/list"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/s3types"
)

// listPageSize is the page size used by ListAll.
const listPageSize = 1000

// execute builds a request and runs it through the engine, recording the
// outcome in the operation metrics.
func execute[T any](
	ctx context.Context,
	c *Client,
	op bridge.Operation[T],
	build func() (*engine.Request, error),
) (T, error) {
	var zero T
	if c.closed.Load() {
		return zero, errors.ErrClientClosed
	}

	finish := c.metrics.Start(op.Name)
	req, err := build()
	if err != nil {
		finish(err)
		return zero, err
	}

	v, err := bridge.Do(ctx, c.engine, req, op, bridge.WithLogger(c.logger))
	finish(err)
	return v, err
}

// CopyObject copies an object within the service without downloading it.
// The copy is atomic from the caller's perspective.
func (c *Client) CopyObject(
	ctx context.Context,
	srcBucket, srcKey, dstBucket, dstKey string,
	opts ...s3types.CopyOption,
) (*s3types.CopyResult, error) {
	cfg := s3types.CopyOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	res, err := execute(ctx, c, copyop.Operation, func() (*engine.Request, error) {
		return copyop.Build(copyop.Input{
			SourceBucket: srcBucket,
			SourceKey:    srcKey,
			Bucket:       dstBucket,
			Key:          dstKey,
			Options:      cfg,
		})
	})
	if err != nil {
		return nil, errors.NewObjectError("copyObject", dstBucket, dstKey, err)
	}
	return &res, nil
}

// DeleteObject removes an object. Deleting a key that does not exist succeeds.
func (c *Client) DeleteObject(
	ctx context.Context,
	bucket, key string,
	opts ...s3types.DeleteOption,
) (*s3types.DeleteResult, error) {
	cfg := s3types.DeleteOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	res, err := execute(ctx, c, deleteop.Operation, func() (*engine.Request, error) {
		return deleteop.Build(bucket, key, cfg)
	})
	if err != nil {
		return nil, errors.NewObjectError("deleteObject", bucket, key, err)
	}
	return &res, nil
}

// GetObject reads an object into memory.
func (c *Client) GetObject(
	ctx context.Context,
	bucket, key string,
	opts ...s3types.GetOption,
) (*s3types.GetResult, error) {
	cfg := s3types.GetOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	res, err := execute(ctx, c, getop.Operation, func() (*engine.Request, error) {
		return getop.Build(bucket, key, cfg)
	})
	if err != nil {
		return nil, errors.NewObjectError("getObject", bucket, key, err)
	}
	return &res, nil
}

// ListObjects returns one page of the objects in a bucket.
func (c *Client) ListObjects(
	ctx context.Context,
	bucket string,
	opts ...s3types.ListOption,
) (*s3types.ListResult, error) {
	cfg := s3types.ListOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	res, err := execute(ctx, c, listop.Operation, func() (*engine.Request, error) {
		return listop.Build(bucket, cfg)
	})
	if err != nil {
		return nil, errors.NewBucketError("listObjects", bucket, err)
	}
	return &res, nil
}

// Move copies an object to a new location and then deletes the original.
// If the delete fails the copy is left in place.
func (c *Client) Move(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	if err := validation.ValidateBucketName(srcBucket); err != nil {
		return errors.NewError("move", err).
			WithBucket(srcBucket).
			WithKey(srcKey).
			WithMessage("invalid source bucket")
	}
	if err := validation.ValidateObjectKey(srcKey); err != nil {
		return errors.NewError("move", err).
			WithBucket(srcBucket).
			WithKey(srcKey).
			WithMessage("invalid source key")
	}
	if err := validation.ValidateBucketName(dstBucket); err != nil {
		return errors.NewError("move", err).
			WithBucket(dstBucket).
			WithKey(dstKey).
			WithMessage("invalid destination bucket")
	}
	if err := validation.ValidateObjectKey(dstKey); err != nil {
		return errors.NewError("move", err).
			WithBucket(dstBucket).
			WithKey(dstKey).
			WithMessage("invalid destination key")
	}

	// Prevent moving to the same location
	if srcBucket == dstBucket && srcKey == dstKey {
		return errors.NewError("move", errors.ErrInvalidInput).
			WithBucket(srcBucket).
			WithKey(srcKey).
			WithMessage("cannot move object to itself")
	}

	finish := c.metrics.Start("move")

	if _, err := c.CopyObject(ctx, srcBucket, srcKey, dstBucket, dstKey); err != nil {
		finish(err)
		return errors.NewError("move", err).
			WithBucket(srcBucket).
			WithKey(srcKey).
			WithMessage("failed to copy object during move")
	}

	if _, err := c.DeleteObject(ctx, srcBucket, srcKey); err != nil {
		finish(err)
		return errors.NewError("move", err).
			WithBucket(srcBucket).
			WithKey(srcKey).
			WithMessage("failed to delete original object after copy")
	}

	finish(nil)
	c.logger.Debug("object moved",
		"src_bucket", srcBucket,
		"src_key", srcKey,
		"dst_bucket", dstBucket,
		"dst_key", dstKey,
	)
	return nil
}

// ListAll streams every object under prefix, following continuation tokens.
// The channel is closed when the listing ends or ctx is cancelled. A failed
// page is reported as a final element with Err set.
func (c *Client) ListAll(ctx context.Context, bucket, prefix string) <-chan s3types.ObjectResult {
	results := make(chan s3types.ObjectResult, 100)

	go func() {
		defer close(results)

		opts := []s3types.ListOption{WithMaxKeys(listPageSize)}
		if prefix != "" {
			opts = append(opts, WithPrefix(prefix))
		}

		var token *string
		for {
			if ctx.Err() != nil {
				return
			}

			pageOpts := opts
			if token != nil {
				pageOpts = append(slices.Clone(opts), WithContinuationToken(*token))
			}

			page, err := c.ListObjects(ctx, bucket, pageOpts...)
			if err != nil {
				c.send(ctx, results, s3types.ObjectResult{Err: err})
				return
			}

			for _, obj := range page.Objects {
				if !c.send(ctx, results, s3types.ObjectResult{Object: obj}) {
					return
				}
			}

			if !page.IsTruncated {
				return
			}
			if aws.ToString(page.NextContinuationToken) == "" {
				err := errors.NewBucketError("listAll", bucket, &errors.InternalError{
					Err: fmt.Errorf("truncated listing without a continuation token"),
				})
				c.send(ctx, results, s3types.ObjectResult{Err: err})
				return
			}
			token = page.NextContinuationToken
		}
	}()

	return results
}

func (c *Client) send(ctx context.Context, ch chan<- s3types.ObjectResult, r s3types.ObjectResult) bool {
	select {
	case ch <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

// DeleteMany deletes keys concurrently, bounded by the client's concurrency.
// Per-key failures are collected in the result; the returned error is only
// set for invalid input or a cancelled context.
func (c *Client) DeleteMany(ctx context.Context, bucket string, keys []string) (*s3types.DeleteManyResult, error) {
	start := time.Now()

	if bucket == "" {
		return nil, errors.NewError("deleteMany", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithMessage("bucket name cannot be empty")
	}
	if len(keys) == 0 {
		return nil, errors.NewError("deleteMany", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithMessage("keys cannot be empty")
	}
	for _, key := range keys {
		if key == "" {
			return nil, errors.NewError("deleteMany", errors.ErrInvalidInput).
				WithBucket(bucket).
				WithMessage("empty key in keys slice")
		}
	}

	failures := make([]error, len(keys))

	var g errgroup.Group
	g.SetLimit(c.config.Concurrency)
	for i, key := range keys {
		g.Go(func() error {
			_, failures[i] = c.DeleteObject(ctx, bucket, key)
			return nil
		})
	}
	_ = g.Wait()

	result := &s3types.DeleteManyResult{}
	for i, key := range keys {
		if failures[i] != nil {
			result.Errors = append(result.Errors, s3types.DeleteError{Key: key, Err: failures[i]})
			continue
		}
		result.Deleted = append(result.Deleted, key)
	}
	result.Duration = time.Since(start)

	c.logger.Debug("batch delete finished",
		"bucket", bucket,
		"deleted", len(result.Deleted),
		"failed", len(result.Errors),
		"duration", result.Duration,
	)

	if err := ctx.Err(); err != nil {
		return result, errors.NewBucketError("deleteMany", bucket, err)
	}
	return result, nil
}

// DownloadFile writes an object to path on the client's filesystem. Objects
// larger than the part size are fetched as concurrent ranged reads pinned to
// the ETag of the first part. Each part is written as soon as it arrives, so
// at most Concurrency parts are held in memory. The object is assembled in a
// sibling file that replaces path only once every part has been written.
// Parent directories are created as needed.
func (c *Client) DownloadFile(
	ctx context.Context,
	bucket, key, path string,
	opts ...s3types.GetOption,
) (*s3types.DownloadResult, error) {
	start := time.Now()

	if path == "" {
		return nil, errors.NewObjectError("downloadFile", bucket, key, errors.ErrInvalidInput).
			WithMessage("file path cannot be empty")
	}

	out, err := c.openPartial(path)
	if err != nil {
		return nil, errors.NewObjectError("downloadFile", bucket, key, err).
			WithMessage("failed to write file")
	}

	etag, err := c.fetchParts(ctx, bucket, key, out, opts)
	if err != nil {
		out.discard()
		return nil, errors.NewObjectError("downloadFile", bucket, key, err)
	}
	if err := out.commit(); err != nil {
		return nil, errors.NewObjectError("downloadFile", bucket, key, err).
			WithMessage("failed to write file")
	}

	return &s3types.DownloadResult{
		Key:      key,
		Path:     path,
		Size:     out.size,
		ETag:     etag,
		Duration: time.Since(start),
	}, nil
}

// fetchParts reads the object into w and returns the ETag it was pinned to.
func (c *Client) fetchParts(
	ctx context.Context,
	bucket, key string,
	w io.WriterAt,
	opts []s3types.GetOption,
) (*string, error) {
	cfg := s3types.GetOptionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	partSize := c.config.PartSize
	if cfg.Range != nil || partSize <= 0 {
		obj, err := c.GetObject(ctx, bucket, key, opts...)
		if err != nil {
			return nil, err
		}
		if _, err := w.WriteAt(obj.Body, 0); err != nil {
			return nil, err
		}
		return obj.ETag, nil
	}

	first, err := c.GetObject(ctx, bucket, key, append(slices.Clone(opts), WithByteRange(0, partSize-1))...)
	if errors.IsInvalidRange(err) {
		// Empty objects reject every range.
		first, err = c.GetObject(ctx, bucket, key, opts...)
	}
	if err != nil {
		return nil, err
	}
	etag := first.ETag

	total, ok := contentRangeTotal(first.ContentRange)
	if ok {
		if err := checkPartLength(0, first.Body, min(partSize, total)); err != nil {
			return nil, err
		}
	}
	if _, err := w.WriteAt(first.Body, 0); err != nil {
		return nil, err
	}
	if !ok || total <= partSize {
		return etag, nil
	}

	count := int((total + partSize - 1) / partSize)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Concurrency)
	for i := 1; i < count; i++ {
		from := int64(i) * partSize
		to := min(from+partSize, total) - 1

		partOpts := append(slices.Clone(opts), WithByteRange(from, to))
		if etag != nil {
			partOpts = append(partOpts, WithIfMatch(*etag))
		}

		g.Go(func() error {
			obj, err := c.GetObject(gctx, bucket, key, partOpts...)
			if err != nil {
				return err
			}
			if err := checkPartLength(i, obj.Body, to-from+1); err != nil {
				return err
			}
			_, err = w.WriteAt(obj.Body, from)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return etag, nil
}

func checkPartLength(part int, body []byte, want int64) error {
	if int64(len(body)) != want {
		return &errors.InternalError{
			Err: fmt.Errorf("part %d returned %d bytes, want %d", part, len(body), want),
		}
	}
	return nil
}

// partialFile collects the parts of a download at their offsets in a
// temporary file next to path.
type partialFile struct {
	fs   billy.Filesystem
	path string
	tmp  string

	mu   sync.Mutex
	file billy.File
	size int64
}

func (c *Client) openPartial(path string) (*partialFile, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "/" {
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	tmp := fmt.Sprintf("%s.%s.part", path, uuid.NewString())
	f, err := c.fs.Create(tmp)
	if err != nil {
		return nil, err
	}
	return &partialFile{fs: c.fs, path: path, tmp: tmp, file: f}, nil
}

// WriteAt implements io.WriterAt.
func (p *partialFile) WriteAt(b []byte, off int64) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.file.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := p.file.Write(b)
	p.size += int64(n)
	return n, err
}

// commit closes the temporary file and moves it over path.
func (p *partialFile) commit() error {
	if err := p.file.Close(); err != nil {
		_ = p.fs.Remove(p.tmp)
		return err
	}
	if err := p.fs.Rename(p.tmp, p.path); err != nil {
		_ = p.fs.Remove(p.tmp)
		return err
	}
	return nil
}

// discard drops the temporary file, leaving path untouched.
func (p *partialFile) discard() {
	_ = p.file.Close()
	_ = p.fs.Remove(p.tmp)
}

// contentRangeTotal returns the complete length from a Content-Range value
// such as "bytes 0-99/1000".
func contentRangeTotal(contentRange *string) (int64, bool) {
	if contentRange == nil {
		return 0, false
	}
	_, total, ok := strings.Cut(*contentRange, "/")
	if !ok || total == "*" {
		return 0, false
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
