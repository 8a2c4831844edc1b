// Package reject keeps rows that could not be loaded even one at a time.
package reject

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/baderkha/fb-bronze/pkg/migrate/table/colmap"
)

// Store : appends rejected rows to <dir>/<run id>/<table>.csv
type Store struct {
	fs       afero.Fs
	dir      string
	targetFs s3iface.S3API
	bucket   string
	prefix   string
	maxRetry int
	mu       sync.Mutex
}

func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{
		fs:       fs,
		dir:      dir,
		maxRetry: 1,
	}
}

// WithS3 : enables Upload to bucket under prefix
func (s *Store) WithS3(api s3iface.S3API, bucket string, prefix string, maxRetry int) *Store {
	s.targetFs = api
	s.bucket = bucket
	s.prefix = prefix
	if maxRetry > 0 {
		s.maxRetry = maxRetry
	}
	return s
}

func (s *Store) runDir(runID string) string {
	return filepath.Join(s.dir, runID)
}

// Reject : records one row with its source row number and the failure
func (s *Store) Reject(runID string, tableName string, rowNumber int, row []any, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(s.runDir(runID), 0755); err != nil {
		return err
	}
	f, err := s.fs.OpenFile(filepath.Join(s.runDir(runID), tableName+".csv"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	record := make([]string, 0, len(row)+2)
	record = append(record, fmt.Sprint(rowNumber), fmt.Sprint(cause))
	for _, v := range row {
		text, err := colmap.Convert(colmap.FirebirdToText, v)
		switch {
		case err != nil:
			record = append(record, fmt.Sprintf("%v", v))
		case text == nil:
			record = append(record, "")
		default:
			record = append(record, *text)
		}
	}
	w := csv.NewWriter(f)
	if err := w.Write(record); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Files : reject files written for a run, sorted
func (s *Store) Files(runID string) ([]string, error) {
	infos, err := afero.ReadDir(s.fs, s.runDir(runID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var res []string
	for _, inf := range infos {
		if !inf.IsDir() {
			res = append(res, filepath.Join(s.runDir(runID), inf.Name()))
		}
	}
	sort.Strings(res)
	return res, nil
}

// Upload : pushes every reject file of the run to s3, a no-op without WithS3
func (s *Store) Upload(ctx context.Context, runID string) error {
	if s.targetFs == nil || s.bucket == "" {
		return nil
	}
	files, err := s.Files(runID)
	if err != nil {
		return err
	}
	var finalErr error
	for _, name := range files {
		key := path.Join(s.prefix, "run_id="+runID, filepath.Base(name))
		if err := s.uploadFile(ctx, name, key); err != nil {
			finalErr = multierror.Append(finalErr, err)
		}
	}
	return finalErr
}

func (s *Store) uploadFile(ctx context.Context, name string, key string) error {
	var (
		retryCtr int
		err      error
	)
	for retryCtr < s.maxRetry {
		err = s.putObject(ctx, name, key)
		if err == nil {
			return nil
		}
		retryCtr++
	}
	return fmt.Errorf("Attempted uploading key (%s) %d times with no success : original_err=%w", key, retryCtr, err)
}

func (s *Store) putObject(ctx context.Context, name string, key string) error {
	f, err := s.fs.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = s.targetFs.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Body:   f,
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}
