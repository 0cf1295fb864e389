package backing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3 stores data in AWS S3.
type S3 struct {
	bucket    string
	namespace string
	client    *s3.Client
	context   context.Context
}

// S3Args are the arguments for creating a new S3 backing.
type S3Args struct {
	Bucket    string          // Required. The name of the S3 bucket to use.
	Namespace string          // Optional. The namespace prefixed to all keys when stored in S3.
	Client    *s3.Client      // Optional. The S3 client to use. If not provided, a client will be automatically configured from your environment.
	Endpoint  string          // Optional. A custom endpoint for S3-compatible servers, used only when Client is not provided. Enables path-style addressing.
	Context   context.Context // Optional. The context to use for S3 operations. If not provided, defaults to context.Background().
}

// NewS3 creates a new backing which stores data in AWS S3.
func NewS3(args S3Args) (*S3, error) {
	if args.Bucket == "" {
		return nil, errors.New("s3 backing requires a bucket")
	}
	if args.Context == nil {
		args.Context = context.Background()
	}
	if args.Client == nil {
		opts := []func(*config.LoadOptions) error{}
		if args.Endpoint != "" {
			endpoint := args.Endpoint
			resolver := aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{URL: endpoint}, nil
			})
			opts = append(opts, config.WithEndpointResolver(resolver))
		}
		cfg, err := config.LoadDefaultConfig(args.Context, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		args.Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.UsePathStyle = args.Endpoint != ""
		})
	}
	return &S3{
		client:    args.Client,
		context:   args.Context,
		bucket:    args.Bucket,
		namespace: args.Namespace,
	}, nil
}

// ns appends the namespace prefix to the given key.
func (s *S3) ns(key Key) Key {
	if s.namespace == "" {
		return key
	}
	return fmt.Sprintf("%s/%s", s.namespace, key)
}

// List lists all keys in the store with the given prefix. This is likely a very slow operation, so use with caution.
func (s *S3) List(prefix string) ([]Key, error) {
	keys := []Key{}
	full := s.ns(prefix)
	strip := s.ns("")
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(full),
	})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(s.context)
		if err != nil {
			return nil, err
		}
		for _, c := range output.Contents {
			keys = append(keys, strings.TrimPrefix(aws.ToString(c.Key), strip))
		}
	}
	return keys, nil
}

// Get returns the value for the given key and whether the key exists.
func (s *S3) Get(key Key) (string, bool, error) {
	r, err := s.client.GetObject(s.context, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.ns(key)),
	})
	if notFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	defer r.Body.Close()

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", true, err
	}
	return string(data), true, nil
}

// Set sets the value for the given key.
func (s *S3) Set(key Key, value string) error {
	_, err := s.client.PutObject(s.context, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.ns(key)),
		Body:   bytes.NewReader([]byte(value)),
	})
	return err
}

// Del deletes the key-value pair for the given key.
func (s *S3) Del(key Key) error {
	_, err := s.client.DeleteObject(s.context, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.ns(key)),
	})
	return err
}

// notFound checks if an error is an S3 NoSuchKey error.
func notFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var aerr smithy.APIError
	if !errors.As(err, &aerr) {
		return false
	}
	switch aerr.ErrorCode() {
	case "NoSuchKey", "NotFound":
		return true
	default:
		return false
	}
}
