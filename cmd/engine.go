package cmd

import (
	"context"
	"strings"

	"github.com/foomo/gitdb/pkg/snapshot"
	"github.com/foomo/gitdb/pkg/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	engineGit        = "git"
	engineFilesystem = "filesystem"
	engineBlob       = "blob"
)

// supportedBlobSchemes lists the URL schemes supported by blob storage
var supportedBlobSchemes = []string{"gs://", "s3://", "azblob://", "file://", "mem://"}

// openStore opens the configured engine and checks that its history resolves
func openStore(ctx context.Context, v *viper.Viper, l *zap.Logger) (*store.Store, error) {
	engine, err := openEngine(ctx, v, l)
	if err != nil {
		return nil, err
	}
	s := store.New(l, engine)
	if _, err := s.Head(ctx); err != nil {
		return nil, multierr.Append(errors.Wrap(store.ErrStorageInit, "failed to resolve latest snapshot"), multierr.Append(err, s.Close()))
	}
	return s, nil
}

// withStore runs fn against a store opened for the duration of a command
func withStore(cmd *cobra.Command, v *viper.Viper, fn func(ctx context.Context, s *store.Store) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openStore(ctx, v, zap.L())
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, s.Close())
	}()
	return fn(ctx, s)
}

func openEngine(ctx context.Context, v *viper.Viper, l *zap.Logger) (snapshot.Engine, error) {
	engineType := engineFlag(v)
	blobBucket := blobBucketFlag(v)
	blobPrefix := blobPrefixFlag(v)

	if engineType != engineBlob && (blobBucket != "" || blobPrefix != "") {
		l.Warn("blob flags are set but engine is not 'blob'; blob config will be ignored",
			zap.String("engine", engineType),
			zap.String("blob-bucket", blobBucket),
			zap.String("blob-prefix", blobPrefix),
		)
	}

	switch engineType {
	case engineGit, "":
		l.Debug("using git engine", zap.String("repo", repoFlag(v)))
		engine, err := snapshot.OpenGit(l, repoFlag(v), snapshot.GitWithAuthor(authorNameFlag(v), authorEmailFlag(v)))
		if err != nil {
			return nil, err
		}
		return engine, nil
	case engineFilesystem:
		l.Debug("using filesystem engine", zap.String("repo", repoFlag(v)))
		storage, err := snapshot.NewFilesystemStorage(repoFlag(v))
		if err != nil {
			return nil, errors.Wrap(store.ErrStorageInit, err.Error())
		}
		return openBlobEngine(ctx, v, l, storage)
	case engineBlob:
		if blobBucket == "" {
			return nil, errors.Wrap(store.ErrStorageInit, "blob bucket URL is required when engine is 'blob' (supported schemes: "+strings.Join(supportedBlobSchemes, ", ")+")")
		}
		if !isValidBlobScheme(blobBucket) {
			return nil, errors.Wrapf(store.ErrStorageInit, "unsupported blob storage URL scheme in %q", blobBucket)
		}
		l.Debug("using blob engine",
			zap.String("bucket", blobBucket),
			zap.String("prefix", blobPrefix),
			zap.String("provider", detectBlobProvider(blobBucket)),
		)
		storage, err := snapshot.NewBlobStorage(ctx, blobBucket, blobPrefix)
		if err != nil {
			return nil, errors.Wrap(store.ErrStorageInit, err.Error())
		}
		return openBlobEngine(ctx, v, l, storage)
	default:
		return nil, errors.Errorf("unknown engine: %s (supported: git, filesystem, blob)", engineType)
	}
}

func openBlobEngine(ctx context.Context, v *viper.Viper, l *zap.Logger, storage snapshot.Storage) (snapshot.Engine, error) {
	engine, err := snapshot.OpenBlob(ctx, l, storage, snapshot.BlobWithAuthor(authorNameFlag(v)))
	if err != nil {
		return nil, multierr.Append(err, storage.Close())
	}
	return engine, nil
}

// isValidBlobScheme checks if the bucket URL has a supported scheme
func isValidBlobScheme(bucketURL string) bool {
	for _, scheme := range supportedBlobSchemes {
		if strings.HasPrefix(bucketURL, scheme) {
			return true
		}
	}
	return false
}

// detectBlobProvider returns a human-readable provider name from the URL scheme
func detectBlobProvider(bucketURL string) string {
	switch {
	case strings.HasPrefix(bucketURL, "gs://"):
		return "Google Cloud Storage"
	case strings.HasPrefix(bucketURL, "s3://"):
		return "AWS S3"
	case strings.HasPrefix(bucketURL, "azblob://"):
		return "Azure Blob Storage"
	case strings.HasPrefix(bucketURL, "file://"):
		return "Local Filesystem"
	case strings.HasPrefix(bucketURL, "mem://"):
		return "Memory"
	default:
		return "unknown"
	}
}
