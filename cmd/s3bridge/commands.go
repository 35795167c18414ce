package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/s3types"
)

func newGetCmd(a *app) *cobra.Command {
	var (
		out       string
		byteRange string
		versionID string
	)

	cmd := &cobra.Command{
		Use:   "get BUCKET KEY",
		Short: "Read an object to stdout or a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []s3types.GetOption
			if byteRange != "" {
				opts = append(opts, s3bridge.WithRange(byteRange))
			}
			if versionID != "" {
				opts = append(opts, s3bridge.WithVersionID(versionID))
			}

			if out != "" {
				path, err := filepath.Abs(out)
				if err != nil {
					return err
				}
				res, err := a.client.DownloadFile(cmd.Context(), args[0], args[1], path, opts...)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stderr, "wrote %d bytes to %s in %s\n", res.Size, res.Path, res.Duration.Round(time.Millisecond))
				return nil
			}

			obj, err := a.client.GetObject(cmd.Context(), args[0], args[1], opts...)
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(obj.Body)
			return err
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "write the object to this file instead of stdout")
	cmd.Flags().StringVar(&byteRange, "range", "", `byte range to read, e.g. "bytes=0-99"`)
	cmd.Flags().StringVar(&versionID, "version-id", "", "object version to read")
	return cmd
}

func newCopyCmd(a *app) *cobra.Command {
	var (
		sourceVersionID string
		storageClass    string
		metadata        map[string]string
	)

	cmd := &cobra.Command{
		Use:   "copy SRC_BUCKET SRC_KEY DST_BUCKET DST_KEY",
		Short: "Copy an object without downloading it",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []s3types.CopyOption
			if sourceVersionID != "" {
				opts = append(opts, s3bridge.WithSourceVersionID(sourceVersionID))
			}
			if storageClass != "" {
				opts = append(opts, s3bridge.WithStorageClass(types.StorageClass(storageClass)))
			}
			if cmd.Flags().Changed("metadata") {
				opts = append(opts, s3bridge.WithReplaceMetadata(metadata))
			}

			res, err := a.client.CopyObject(cmd.Context(), args[0], args[1], args[2], args[3], opts...)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, aws.ToString(res.ETag))
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceVersionID, "source-version-id", "", "source object version to copy")
	cmd.Flags().StringVar(&storageClass, "storage-class", "", "storage class of the new object")
	cmd.Flags().StringToStringVar(&metadata, "metadata", nil, "replace metadata with key=value pairs")
	return cmd
}

func newMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move SRC_BUCKET SRC_KEY DST_BUCKET DST_KEY",
		Short: "Copy an object and delete the original",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client.Move(cmd.Context(), args[0], args[1], args[2], args[3])
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	var versionID string

	cmd := &cobra.Command{
		Use:   "delete BUCKET KEY...",
		Short: "Delete one or more objects",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, keys := args[0], args[1:]

			if len(keys) == 1 {
				var opts []s3types.DeleteOption
				if versionID != "" {
					opts = append(opts, s3bridge.WithDeleteVersionID(versionID))
				}
				_, err := a.client.DeleteObject(cmd.Context(), bucket, keys[0], opts...)
				return err
			}

			if versionID != "" {
				return fmt.Errorf("--version-id applies to a single key")
			}
			res, err := a.client.DeleteMany(cmd.Context(), bucket, keys)
			if err != nil {
				return err
			}
			for _, failed := range res.Errors {
				fmt.Fprintf(a.stderr, "failed to delete %s: %v\n", failed.Key, failed.Err)
			}
			if len(res.Errors) > 0 {
				return fmt.Errorf("%d of %d deletes failed", len(res.Errors), len(keys))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&versionID, "version-id", "", "object version to delete")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var (
		prefix    string
		delimiter string
		maxKeys   int32
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "list BUCKET",
		Short: "List objects in a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)

			if all {
				for r := range a.client.ListAll(cmd.Context(), args[0], prefix) {
					if r.Err != nil {
						_ = w.Flush()
						return r.Err
					}
					writeObject(w, r.Object)
				}
				return w.Flush()
			}

			opts := []s3types.ListOption{s3bridge.WithPrefix(prefix)}
			if delimiter != "" {
				opts = append(opts, s3bridge.WithDelimiter(delimiter))
			}
			if maxKeys > 0 {
				opts = append(opts, s3bridge.WithMaxKeys(maxKeys))
			}

			page, err := a.client.ListObjects(cmd.Context(), args[0], opts...)
			if err != nil {
				return err
			}
			for _, p := range page.CommonPrefixes {
				fmt.Fprintf(w, "PRE\t\t%s\n", p.Prefix)
			}
			for _, obj := range page.Objects {
				writeObject(w, obj)
			}
			if page.IsTruncated {
				fmt.Fprintf(a.stderr, "listing truncated, next token %s\n", aws.ToString(page.NextContinuationToken))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "only list keys with this prefix")
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "group keys sharing a prefix up to this delimiter")
	cmd.Flags().Int32Var(&maxKeys, "max-keys", 0, "maximum keys to return")
	cmd.Flags().BoolVar(&all, "all", false, "follow continuation tokens and list every key")
	return cmd
}

func writeObject(w *tabwriter.Writer, obj s3types.Object) {
	fmt.Fprintf(w, "%s\t%d\t%s\n", obj.LastModified.UTC().Format(time.RFC3339), obj.Size, obj.Key)
}
