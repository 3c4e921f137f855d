// Package archive writes finalized tournament results to S3-compatible
// object storage (AWS S3, Cloudflare R2, MinIO).
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"casino-tournaments/internal/config"
	"casino-tournaments/internal/model"
)

const (
	queueSize       = 64
	uploadTimeout   = 30 * time.Second
	resultsFile     = "results.json"
	jsonContentType = "application/json"
)

// ObjectPutter is the part of *s3.Client the archive uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive uploads one JSON document per finalized tournament.
type Archive struct {
	client ObjectPutter
	bucket string
	prefix string
	queue  chan *model.FinalizationResult
}

// New creates an Archive backed by an S3 client built from cfg. Static
// credentials are used when both keys are set; otherwise the default AWS
// credential chain applies.
func New(ctx context.Context, cfg config.ArchiveConfig) (*Archive, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	sdkCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient creates an Archive that uploads through client.
func NewWithClient(client ObjectPutter, bucket, prefix string) *Archive {
	return &Archive{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		queue:  make(chan *model.FinalizationResult, queueSize),
	}
}

// Key returns the object key for a tournament's results.
func (a *Archive) Key(tournamentID string) string {
	return path.Join(a.prefix, tournamentID, resultsFile)
}

// Publish queues finalized results for upload. Other events are ignored.
func (a *Archive) Publish(evt model.Event) {
	if evt.Type != model.EventTournamentFinalized {
		return
	}
	res, ok := evt.Payload.(*model.FinalizationResult)
	if !ok || res == nil {
		return
	}

	select {
	case a.queue <- res:
	default:
		log.Warn().Str("tournament_id", res.TournamentID).Msg("Archive queue full, dropping results")
	}
}

// Run uploads queued results until ctx is cancelled.
func (a *Archive) Run(ctx context.Context) error {
	log.Info().Str("bucket", a.bucket).Str("prefix", a.prefix).Msg("Results archive started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case res := <-a.queue:
			uctx, cancel := context.WithTimeout(ctx, uploadTimeout)
			if err := a.Upload(uctx, res); err != nil {
				log.Error().Err(err).Str("tournament_id", res.TournamentID).Msg("Failed to archive results")
			}
			cancel()
		}
	}
}

// Upload writes res as JSON, replacing any earlier object for the same
// tournament.
func (a *Archive) Upload(ctx context.Context, res *model.FinalizationResult) error {
	body, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	key := a.Key(res.TournamentID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(jsonContentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object (key: %s): %w", key, err)
	}

	log.Info().
		Str("tournament_id", res.TournamentID).
		Str("bucket", a.bucket).
		Str("key", key).
		Msg("Tournament results archived")
	return nil
}
