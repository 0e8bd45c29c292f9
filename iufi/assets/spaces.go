package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/iufi-bot/iufi/iufi/cardpool"
)

type SpacesConfig struct {
	Key      string `toml:"key"`
	Secret   string `toml:"secret"`
	Region   string `toml:"region"`
	Bucket   string `toml:"bucket"`
	CardRoot string `toml:"card_root"`
	// Endpoint overrides the DigitalOcean endpoint, e.g. for a local MinIO.
	Endpoint string `toml:"endpoint"`
}

// SpacesSource reads assets from an S3 compatible bucket using the same layout
// as LocalSource below CardRoot.
type SpacesSource struct {
	client   *s3.Client
	bucket   string
	cardRoot string
	exts     []string
	keys     *keyCache
}

func NewSpacesSource(ctx context.Context, cfg SpacesConfig, exts []string) (*SpacesSource, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.digitaloceanspaces.com", cfg.Region)
	}
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{URL: endpoint, HostnameImmutable: true}, nil
	})

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, "")),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load Spaces config: %w", err)
	}
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	return &SpacesSource{
		client: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.Endpoint != ""
		}),
		bucket:   cfg.Bucket,
		cardRoot: strings.Trim(cfg.CardRoot, "/"),
		exts:     exts,
		keys:     newKeyCache(),
	}, nil
}

func (s *SpacesSource) prefix(parts ...string) string {
	p := path.Join(append([]string{s.cardRoot}, parts...)...)
	return strings.TrimPrefix(p, "/") + "/"
}

func (s *SpacesSource) list(ctx context.Context, prefix string, fn func(key, name string)) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1000),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			name := strings.TrimPrefix(*obj.Key, prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			fn(*obj.Key, name)
		}
	}
	return nil
}

func (s *SpacesSource) ListCards(ctx context.Context, tier cardpool.Tier) ([]Asset, error) {
	var assets []Asset
	err := s.list(ctx, s.prefix("cards", tier.String()), func(key, name string) {
		id, ok := parseCardName(name, s.exts)
		if !ok {
			slog.Debug("Skipping non card object", slog.String("type", "sys"), slog.String("key", key))
			return
		}
		a := Asset{ID: id, Tier: tier, Key: key}
		s.keys.putCard(a)
		assets = append(assets, a)
	})
	return assets, err
}

func (s *SpacesSource) ListFrames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.list(ctx, s.prefix("frames"), func(key, name string) {
		frame, ok := trimExt(name, s.exts)
		if !ok || frame == "" {
			return
		}
		s.keys.putFrame(frame, key)
		names = append(names, frame)
	})
	return names, err
}

func (s *SpacesSource) OpenCard(ctx context.Context, tier cardpool.Tier, id string) (io.ReadCloser, error) {
	key, ok := s.keys.card(tier, id)
	if !ok {
		return nil, notFound(cardKey(tier, id))
	}
	return s.get(ctx, key)
}

func (s *SpacesSource) OpenFrame(ctx context.Context, frame string) (io.ReadCloser, error) {
	key, ok := s.keys.frame(frame)
	if !ok {
		return nil, notFound("frames/" + frame)
	}
	return s.get(ctx, key)
}

func (s *SpacesSource) get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, notFound(key)
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", key, err)
	}
	return out.Body, nil
}
