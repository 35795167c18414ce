package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/engine"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/s3types"
)

type testApp struct {
	*app
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestApp(eng engine.Engine, extra ...s3types.Option) *testApp {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	a := newApp()
	a.stdout = stdout
	a.stderr = stderr
	a.newClient = func(_ context.Context, opts ...s3types.Option) (*s3bridge.Client, error) {
		return s3bridge.NewWithEngine(eng, append(opts, extra...)...)
	}
	return &testApp{app: a, stdout: stdout, stderr: stderr}
}

func (a *testApp) run(args ...string) error {
	return execute(context.Background(), a.app, args)
}

func TestGetCmd(t *testing.T) {
	eng := testutil.NewScriptedEngine(
		testutil.Respond(200).WithHeader("Content-Length", "5").WithBody("hello").Script(),
	)
	a := newTestApp(eng)

	require.NoError(t, a.run("get", "my-bucket", "greeting.txt", "--range", "bytes=0-4"))
	assert.Equal(t, "hello", a.stdout.String())

	req := eng.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "/my-bucket/greeting.txt", req.Path)
	rng, _ := req.Headers.Get("Range")
	assert.Equal(t, "bytes=0-4", rng)
}

func TestGetCmd_Output(t *testing.T) {
	fs := memfs.New()
	eng := testutil.NewScriptedEngine(
		testutil.Respond(206).
			WithHeader("Content-Length", "5").
			WithHeader("Content-Range", "bytes 0-4/5").
			WithBody("hello").
			Script(),
	)
	a := newTestApp(eng, s3bridge.WithFilesystem(fs))

	out := filepath.Join(t.TempDir(), "greeting.txt")
	require.NoError(t, a.run("get", "my-bucket", "greeting.txt", "-o", out))

	got, err := util.ReadFile(fs, out)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	assert.Contains(t, a.stderr.String(), "wrote 5 bytes")
}

func TestCopyCmd(t *testing.T) {
	eng := testutil.NewScriptedEngine(
		testutil.Respond(200).WithHeader("ETag", `"abc"`).Script(),
	)
	a := newTestApp(eng)

	require.NoError(t, a.run("copy", "src", "a.txt", "dst", "b.txt", "--metadata", "team=infra", "--storage-class", "STANDARD_IA"))
	assert.Equal(t, "\"abc\"\n", a.stdout.String())

	req := eng.LastRequest()
	meta, _ := req.Headers.Get("x-amz-meta-team")
	assert.Equal(t, "infra", meta)
	class, _ := req.Headers.Get("x-amz-storage-class")
	assert.Equal(t, "STANDARD_IA", class)
}

func TestMoveCmd(t *testing.T) {
	eng := testutil.NewScriptedEngine(
		testutil.Respond(200).Script(),
		testutil.Respond(204).Script(),
	)
	a := newTestApp(eng)

	require.NoError(t, a.run("move", "src", "a.txt", "dst", "b.txt"))
	assert.Len(t, eng.Requests(), 2)
}

func deleteEngine() *testutil.ScriptedEngine {
	return testutil.NewRespondingEngine(func(req *engine.Request) testutil.Script {
		if strings.HasSuffix(req.Path, "/locked") {
			return testutil.Respond(403).WithBody(`<Error><Code>AccessDenied</Code></Error>`).Script()
		}
		return testutil.Respond(204).Script()
	})
}

func TestDeleteCmd(t *testing.T) {
	t.Run("single key", func(t *testing.T) {
		eng := deleteEngine()
		a := newTestApp(eng)
		require.NoError(t, a.run("delete", "my-bucket", "a", "--version-id", "v1"))
		assert.Equal(t, "/my-bucket/a?versionId=v1", eng.LastRequest().Path)
	})

	t.Run("many keys", func(t *testing.T) {
		a := newTestApp(deleteEngine())
		err := a.run("delete", "my-bucket", "a", "locked", "b")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 3 deletes failed")
		assert.Contains(t, a.stderr.String(), "failed to delete locked")
	})

	t.Run("version with many keys", func(t *testing.T) {
		a := newTestApp(deleteEngine())
		assert.Error(t, a.run("delete", "my-bucket", "a", "b", "--version-id", "v1"))
	})
}

const listing = `<ListBucketResult>
  <Name>my-bucket</Name>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>logs/a.txt</Key><LastModified>2024-01-02T03:04:05Z</LastModified><Size>12</Size></Contents>
  <CommonPrefixes><Prefix>logs/old/</Prefix></CommonPrefixes>
</ListBucketResult>`

func TestListCmd(t *testing.T) {
	t.Run("page", func(t *testing.T) {
		eng := testutil.NewScriptedEngine(testutil.Respond(200).WithBody(listing).Script())
		a := newTestApp(eng)

		require.NoError(t, a.run("list", "my-bucket", "--prefix", "logs/", "--delimiter", "/"))
		out := a.stdout.String()
		assert.Contains(t, out, "PRE")
		assert.Contains(t, out, "logs/old/")
		assert.Contains(t, out, "2024-01-02T03:04:05Z  12")
		assert.Contains(t, out, "logs/a.txt")
	})

	t.Run("all", func(t *testing.T) {
		eng := testutil.NewScriptedEngine(testutil.Respond(200).WithBody(listing).Script())
		a := newTestApp(eng)

		require.NoError(t, a.run("list", "my-bucket", "--all"))
		assert.Contains(t, a.stdout.String(), "logs/a.txt")
		assert.Contains(t, eng.LastRequest().Path, "max-keys=1000")
	})

	t.Run("missing bucket", func(t *testing.T) {
		eng := testutil.NewScriptedEngine(
			testutil.Respond(404).WithBody(`<Error><Code>NoSuchBucket</Code></Error>`).Script(),
		)
		a := newTestApp(eng)

		err := a.run("list", "my-bucket")
		require.Error(t, err)
		assert.Contains(t, a.stderr.String(), "NoSuchBucket")
	})
}

func TestLoadSettings(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		addSettingsFlags(flags)
		require.NoError(t, flags.Parse(nil))

		s, err := loadSettings(viper.New(), flags)
		require.NoError(t, err)
		assert.Equal(t, 10.0, s.ThroughputGbps)
		assert.Equal(t, int64(8*1024*1024), s.PartSize)
		assert.Equal(t, 5, s.Concurrency)
		assert.Equal(t, 3, s.MaxRetries)
		assert.Equal(t, "warn", s.LogLevel)
	})

	t.Run("precedence", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "s3bridge.yaml")
		require.NoError(t, os.WriteFile(file, []byte("region: eu-central-1\nmax-retries: 7\nendpoint: http://file:4566\n"), 0o600))
		t.Setenv("S3BRIDGE_ENDPOINT", "http://env:4566")
		t.Setenv("S3BRIDGE_PART_SIZE", "1024")
		t.Setenv("S3BRIDGE_TIMEOUT", "5s")

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		addSettingsFlags(flags)
		require.NoError(t, flags.Parse([]string{"--config", file, "--max-retries", "9", "--path-style"}))

		s, err := loadSettings(viper.New(), flags)
		require.NoError(t, err)
		assert.Equal(t, "eu-central-1", s.Region)
		assert.Equal(t, "http://env:4566", s.Endpoint)
		assert.Equal(t, 9, s.MaxRetries)
		assert.Equal(t, int64(1024), s.PartSize)
		assert.Equal(t, 5*time.Second, s.Timeout)
		assert.True(t, s.PathStyle)
	})

	t.Run("missing config file", func(t *testing.T) {
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		addSettingsFlags(flags)
		require.NoError(t, flags.Parse([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}))

		_, err := loadSettings(viper.New(), flags)
		assert.Error(t, err)
	})
}

func TestSettings_Logger(t *testing.T) {
	_, err := settings{LogLevel: "debug"}.logger()
	assert.NoError(t, err)

	_, err = settings{LogLevel: "loud"}.logger()
	assert.Error(t, err)
}

func TestRootCmd_InvalidLogLevel(t *testing.T) {
	a := newTestApp(testutil.NewScriptedEngine())
	err := a.run("list", "my-bucket", "--log-level", "loud")
	require.Error(t, err)
	assert.Nil(t, a.client)
}
