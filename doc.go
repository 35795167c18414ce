// Package s3bridge provides a typed client for S3-compatible object storage.
//
// Each operation builds a request, hands it to a callback-driven transport
// engine and turns the engine's report into either a typed result or a
// structured error. Requests are signed with SigV4 and sent by the built-in
// HTTP engine unless another engine.Engine is supplied.
//
// Supported operations:
//   - CopyObject, DeleteObject, GetObject and ListObjects
//   - Move, which copies and then deletes the source
//   - ListAll, which streams every object under a prefix
//   - DeleteMany, which deletes keys concurrently
//   - DownloadFile, which writes an object into a filesystem
//
// Errors are *errors.Error values wrapping one of the operation error types
// in the errors package, so they can be matched with errors.Is against
// sentinels such as errors.ErrObjectNotFound or inspected with errors.As.
//
// Example usage:
//
//	client, err := s3bridge.New(ctx,
//	    s3bridge.WithRegion("us-west-2"),
//	    s3bridge.WithMaxRetries(5),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	obj, err := client.GetObject(ctx, "my-bucket", "path/file.txt")
//	if errors.IsObjectNotFound(err) {
//	    // handle missing object
//	}
package s3bridge
