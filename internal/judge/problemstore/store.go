// Package problemstore resolves problem identifiers to test-case manifests.
package problemstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"streamjudge/internal/common/cache"
	"streamjudge/internal/common/storage"
	"streamjudge/internal/judge/model"
	appErr "streamjudge/pkg/errors"
)

const (
	defaultProblemsKey   = "problems.json"
	defaultMappingKey    = "mapping.json"
	defaultDatasetPrefix = "datasets"

	cacheKeyPrefix = "judge:problem:"
)

// Config holds problem store settings.
type Config struct {
	Bucket   string `yaml:"bucket"`
	IDPrefix string `yaml:"idPrefix"`

	ProblemsKey   string `yaml:"problemsKey"`
	MappingKey    string `yaml:"mappingKey"`
	DatasetPrefix string `yaml:"datasetPrefix"`

	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// Store looks up problem manifests and test data in object storage, with an
// optional cache in front of manifest resolution.
type Store struct {
	storage  storage.ObjectStorage
	cache    cache.Cache
	bucket   string
	idPrefix string

	problemsKey   string
	mappingKey    string
	datasetPrefix string
	cacheTTL      time.Duration
}

// NewStore creates a problem store. The cache is optional; pass nil to
// resolve from storage on every run.
func NewStore(storageClient storage.ObjectStorage, cacheClient cache.Cache, cfg Config) (*Store, error) {
	if storageClient == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if cfg.ProblemsKey == "" {
		cfg.ProblemsKey = defaultProblemsKey
	}
	if cfg.MappingKey == "" {
		cfg.MappingKey = defaultMappingKey
	}
	if cfg.DatasetPrefix == "" {
		cfg.DatasetPrefix = defaultDatasetPrefix
	}
	return &Store{
		storage:       storageClient,
		cache:         cacheClient,
		bucket:        cfg.Bucket,
		idPrefix:      cfg.IDPrefix,
		problemsKey:   cfg.ProblemsKey,
		mappingKey:    cfg.MappingKey,
		datasetPrefix: cfg.DatasetPrefix,
		cacheTTL:      cfg.CacheTTL,
	}, nil
}

// Resolve maps a problem identifier to its test-case manifest.
// Unknown identifiers fail with ProblemNotFound; identifiers known but
// lacking a test-data mapping fail with TestDataNotFound. The two conditions
// are deliberately distinct.
func (s *Store) Resolve(ctx context.Context, problemID string) (model.Problem, error) {
	if s.idPrefix != "" {
		if !strings.HasPrefix(problemID, s.idPrefix) {
			return model.Problem{}, appErr.Newf(appErr.InvalidParams, "problem id must start with %q", s.idPrefix)
		}
		problemID = strings.TrimPrefix(problemID, s.idPrefix)
	}
	if problemID == "" {
		return model.Problem{}, appErr.ValidationError("problem_id", "required")
	}

	if s.cache == nil || s.cacheTTL <= 0 {
		return s.resolve(ctx, problemID)
	}
	return cache.GetWithCached(ctx, s.cache, cacheKeyPrefix+problemID,
		s.cacheTTL, 0,
		func(p model.Problem) bool { return false },
		func(p model.Problem) string {
			data, _ := json.Marshal(p)
			return string(data)
		},
		func(data string) (model.Problem, error) {
			var p model.Problem
			err := json.Unmarshal([]byte(data), &p)
			return p, err
		},
		func(ctx context.Context) (model.Problem, error) {
			return s.resolve(ctx, problemID)
		},
	)
}

func (s *Store) resolve(ctx context.Context, problemID string) (model.Problem, error) {
	known, err := s.knownProblems(ctx)
	if err != nil {
		return model.Problem{}, err
	}
	if _, ok := known[problemID]; !ok {
		return model.Problem{}, appErr.New(appErr.ProblemNotFound)
	}

	mapping, err := s.datasetMapping(ctx)
	if err != nil {
		return model.Problem{}, err
	}
	datasetID, ok := mapping[problemID]
	if !ok || datasetID == "" {
		return model.Problem{}, appErr.New(appErr.TestDataNotFound)
	}

	config, err := s.datasetConfig(ctx, datasetID)
	if err != nil {
		return model.Problem{}, err
	}
	if len(config.Tests) == 0 {
		return model.Problem{}, appErr.New(appErr.TestDataInvalid).WithMessage("dataset has no test cases")
	}

	tests := make([]model.TestCase, 0, len(config.Tests))
	for i, tc := range config.Tests {
		if tc.Input == "" || tc.Output == "" {
			return model.Problem{}, appErr.Newf(appErr.TestDataInvalid, "test %d is missing input or output", i+1)
		}
		tests = append(tests, model.TestCase{
			Index:     i + 1,
			InputKey:  tc.Input,
			AnswerKey: tc.Output,
		})
	}

	return model.Problem{
		ID:          problemID,
		DatasetID:   datasetID,
		TimeLimitMS: config.TimeLimitMS,
		FileIOName:  config.Shortname,
		Tests:       tests,
	}, nil
}

// ReadTestFile fetches one test-data file (input or answer) for a problem.
func (s *Store) ReadTestFile(ctx context.Context, problem model.Problem, name string) (string, error) {
	key, err := s.datasetKey(problem.DatasetID, name)
	if err != nil {
		return "", err
	}
	data, err := s.readObject(ctx, key)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.JudgeSystemError, "read test file %s failed", name)
	}
	return string(data), nil
}

// ProblemsDocument returns the raw known-problems document for listing.
func (s *Store) ProblemsDocument(ctx context.Context) (json.RawMessage, error) {
	data, err := s.readObject(ctx, s.problemsKey)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.JudgeSystemError, "read problems document failed")
	}
	return json.RawMessage(data), nil
}

func (s *Store) knownProblems(ctx context.Context) (map[string]json.RawMessage, error) {
	data, err := s.readObject(ctx, s.problemsKey)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.JudgeSystemError, "read problems document failed")
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(data, &known); err != nil {
		return nil, appErr.Wrapf(err, appErr.JudgeSystemError, "decode problems document failed")
	}
	return known, nil
}

func (s *Store) datasetMapping(ctx context.Context) (map[string]string, error) {
	data, err := s.readObject(ctx, s.mappingKey)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.JudgeSystemError, "read dataset mapping failed")
	}
	var mapping map[string]string
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, appErr.Wrapf(err, appErr.JudgeSystemError, "decode dataset mapping failed")
	}
	return mapping, nil
}

func (s *Store) datasetConfig(ctx context.Context, datasetID string) (model.DatasetConfig, error) {
	key, err := s.datasetKey(datasetID, "config.json")
	if err != nil {
		return model.DatasetConfig{}, err
	}
	data, err := s.readObject(ctx, key)
	if err != nil {
		return model.DatasetConfig{}, appErr.Wrapf(err, appErr.JudgeSystemError, "read dataset config failed")
	}
	var config model.DatasetConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return model.DatasetConfig{}, appErr.Wrapf(err, appErr.JudgeSystemError, "decode dataset config failed")
	}
	return config, nil
}

// datasetKey joins a dataset-relative name onto the dataset prefix, rejecting
// absolute names and traversal outside the dataset.
func (s *Store) datasetKey(datasetID, name string) (string, error) {
	if datasetID == "" {
		return "", appErr.ValidationError("dataset_id", "required")
	}
	if name == "" {
		return "", appErr.ValidationError("name", "required")
	}
	clean := path.Clean(name)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", appErr.New(appErr.InvalidParams).WithMessage("invalid test file name")
	}
	return path.Join(s.datasetPrefix, datasetID, clean), nil
}

func (s *Store) readObject(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.storage.GetObject(ctx, s.bucket, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
