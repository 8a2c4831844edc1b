package reject

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	s3iface.S3API
	failures int
	calls    int
	objects  map[string]string
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("slow down")
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	f.objects[*in.Bucket+"/"+*in.Key] = string(b)
	return &s3.PutObjectOutput{}, nil
}

func TestRejectAppendsCSV(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStore(fs, "rejects")

	require.NoError(t, s.Reject("run-1", "FC07000", 3, []any{int64(3), "bad\xff", nil}, errors.New("invalid byte sequence")))
	require.NoError(t, s.Reject("run-1", "FC07000", 9, []any{int64(9), "x,y", nil}, errors.New("other")))

	b, err := afero.ReadFile(fs, "rejects/run-1/FC07000.csv")
	require.NoError(t, err)
	assert.Equal(t, "3,invalid byte sequence,3,bad\xff,\n9,other,9,\"x,y\",\n", string(b))
}

func TestFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStore(fs, "rejects")

	files, err := s.Files("run-1")
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, s.Reject("run-1", "FC11100", 1, []any{"a"}, errors.New("e")))
	require.NoError(t, s.Reject("run-1", "FC01000", 1, []any{"a"}, errors.New("e")))

	files, err = s.Files("run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"rejects/run-1/FC01000.csv", "rejects/run-1/FC11100.csv"}, files)
}

func TestUploadWithoutS3IsNoop(t *testing.T) {
	s := NewStore(afero.NewMemMapFs(), "rejects")
	require.NoError(t, s.Reject("run-1", "T", 1, []any{"a"}, errors.New("e")))

	assert.NoError(t, s.Upload(context.Background(), "run-1"))
}

func TestUploadRetries(t *testing.T) {
	fs := afero.NewMemMapFs()
	api := &fakeS3{failures: 1}
	s := NewStore(fs, "rejects").WithS3(api, "bucket", "bronze/rejects", 3)
	require.NoError(t, s.Reject("run-1", "T", 1, []any{"a"}, errors.New("e")))

	require.NoError(t, s.Upload(context.Background(), "run-1"))

	assert.Equal(t, 2, api.calls)
	assert.Equal(t, "1,e,a\n", api.objects["bucket/bronze/rejects/run_id=run-1/T.csv"])
}

func TestUploadGivesUp(t *testing.T) {
	fs := afero.NewMemMapFs()
	api := &fakeS3{failures: 10}
	s := NewStore(fs, "rejects").WithS3(api, "bucket", "", 2)
	require.NoError(t, s.Reject("run-1", "T", 1, []any{"a"}, errors.New("e")))

	err := s.Upload(context.Background(), "run-1")

	assert.ErrorContains(t, err, "2 times")
	assert.Equal(t, 2, api.calls)
}
