// Package list builds and interprets ListObjectsV2 requests.
package list

import (
	"net/http"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/engine"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/bridge"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/classify"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/parse"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/request"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/s3types"
)

// Errors lists the failures a listing recognises.
var Errors = classify.Table{
	classify.FamilyNotFound:  {"NoSuchBucket": errors.KindNoSuchBucket},
	classify.FamilyForbidden: {"AccessDenied": errors.KindAccessDenied},
}

// Operation interprets listing responses.
var Operation = bridge.Operation[s3types.ListResult]{
	Name:   "list_objects",
	Parser: bridge.BodyParser[s3types.ListResult](Parse),
	Errors: Errors,
}

// Build returns the request for one page of a listing.
func Build(bucket string, opts s3types.ListOptionConfig) (*engine.Request, error) {
	if opts.Prefix != nil {
		if err := validation.ValidatePrefix(*opts.Prefix); err != nil {
			return nil, &errors.ConstructionError{Field: "prefix", Reason: "prefix rejected", Err: err}
		}
	}
	if opts.MaxKeys != nil && *opts.MaxKeys < 0 {
		return nil, &errors.ConstructionError{Field: "max-keys", Reason: "must not be negative", Err: errors.ErrInvalidInput}
	}

	b := request.New(http.MethodGet, bucket, "").
		Query("list-type", "2").
		OptionalQuery("prefix", opts.Prefix).
		OptionalQuery("delimiter", opts.Delimiter).
		OptionalQuery("continuation-token", opts.ContinuationToken).
		OptionalQuery("start-after", opts.StartAfter)
	if opts.MaxKeys != nil {
		b.Query("max-keys", strconv.FormatInt(int64(*opts.MaxKeys), 10))
	}
	if opts.FetchOwner {
		b.Query("fetch-owner", "true")
	}
	return b.Build()
}

// Parse reads a ListBucketResult document.
func Parse(_ engine.Headers, body []byte) (s3types.ListResult, error) {
	root, err := parse.ParseXML(body)
	if err != nil {
		return s3types.ListResult{}, err
	}
	if err := parse.ExpectRoot(root, "ListBucketResult"); err != nil {
		return s3types.ListResult{}, err
	}

	var r s3types.ListResult
	if r.Name, err = parse.RequiredText(root, "Name"); err != nil {
		return s3types.ListResult{}, err
	}
	if r.IsTruncated, err = parse.RequiredBool(root, "IsTruncated"); err != nil {
		return s3types.ListResult{}, err
	}
	r.Prefix = parse.OptionalRawText(root, "Prefix")
	r.Delimiter = parse.OptionalRawText(root, "Delimiter")
	r.StartAfter = parse.OptionalRawText(root, "StartAfter")
	if r.MaxKeys, err = parse.OptionalInt64(root, "MaxKeys"); err != nil {
		return s3types.ListResult{}, err
	}
	if r.KeyCount, err = parse.OptionalInt64(root, "KeyCount"); err != nil {
		return s3types.ListResult{}, err
	}
	if r.ContinuationToken, err = parse.OptionalText(root, "ContinuationToken"); err != nil {
		return s3types.ListResult{}, err
	}
	if r.NextContinuationToken, err = parse.OptionalText(root, "NextContinuationToken"); err != nil {
		return s3types.ListResult{}, err
	}

	for _, n := range root.Children("Contents") {
		obj, err := parseObject(n)
		if err != nil {
			return s3types.ListResult{}, err
		}
		r.Objects = append(r.Objects, obj)
	}
	for _, n := range root.Children("CommonPrefixes") {
		p, err := parse.RequiredText(n, "Prefix")
		if err != nil {
			return s3types.ListResult{}, err
		}
		r.CommonPrefixes = append(r.CommonPrefixes, s3types.CommonPrefix{Prefix: p})
	}
	return r, nil
}

func parseObject(n *parse.Node) (s3types.Object, error) {
	var o s3types.Object
	var err error

	if o.Key, err = parse.RequiredText(n, "Key"); err != nil {
		return s3types.Object{}, err
	}
	if o.LastModified, err = parse.RequiredTime(n, "LastModified"); err != nil {
		return s3types.Object{}, err
	}
	if o.Size, err = parse.RequiredInt64(n, "Size"); err != nil {
		return s3types.Object{}, err
	}
	if o.ETag, err = parse.OptionalText(n, "ETag"); err != nil {
		return s3types.Object{}, err
	}

	sc, err := parse.OptionalText(n, "StorageClass")
	if err != nil {
		return s3types.Object{}, err
	}
	if sc != nil {
		v := types.ObjectStorageClass(*sc)
		o.StorageClass = &v
	}

	for _, c := range n.Children("ChecksumAlgorithm") {
		text, ok := c.Text()
		if !ok {
			return s3types.Object{}, &errors.ParseError{Kind: errors.MalformedBody, Field: "ChecksumAlgorithm"}
		}
		o.ChecksumAlgorithms = append(o.ChecksumAlgorithms, types.ChecksumAlgorithm(text))
	}

	ct, err := parse.OptionalText(n, "ChecksumType")
	if err != nil {
		return s3types.Object{}, err
	}
	if ct != nil {
		v := types.ChecksumType(*ct)
		o.ChecksumType = &v
	}

	if owner := n.Child("Owner"); owner != nil {
		o.Owner = &s3types.Owner{}
		if o.Owner.ID, err = parse.OptionalText(owner, "ID"); err != nil {
			return s3types.Object{}, err
		}
		if o.Owner.DisplayName, err = parse.OptionalText(owner, "DisplayName"); err != nil {
			return s3types.Object{}, err
		}
	}
	return o, nil
}
