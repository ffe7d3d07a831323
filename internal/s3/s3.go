package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Hollis36/smolvlm-anti-drone/internal/models"
)

// Buckets names the object stores the system writes to.
type Buckets struct {
	Frames    string
	Verdicts  string
	Annotated string
}

type Client struct {
	client  *minio.Client
	buckets Buckets
}

func NewMinioClient(endpoint, accessKey, secretKey string, buckets Buckets) (*Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &Client{client: client, buckets: buckets}, nil
}

func (c *Client) EnsureBucketExists(ctx context.Context, bucketName string) error {
	exists, err := c.client.BucketExists(ctx, bucketName)
	if err != nil {
		return err
	}
	if !exists {
		return c.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
	}
	return nil
}

// UploadFrame stores one extracted frame under {streamID}/{name} in the
// frame bucket and returns its source URL.
func (c *Client) UploadFrame(ctx context.Context, streamID, name string, reader io.Reader, size int64) (string, error) {
	if err := c.EnsureBucketExists(ctx, c.buckets.Frames); err != nil {
		return "", fmt.Errorf("bucket error: %w", err)
	}

	objectName := fmt.Sprintf("%s/%s", streamID, name)
	_, err := c.client.PutObject(
		ctx,
		c.buckets.Frames,
		objectName,
		reader,
		size,
		minio.PutObjectOptions{
			ContentType: "image/jpeg",
		},
	)
	if err != nil {
		return "", fmt.Errorf("upload error: %w", err)
	}

	url := fmt.Sprintf("http://%s/%s/%s", c.client.EndpointURL().Host, c.buckets.Frames, objectName)
	return url, nil
}

// FrameSourceURL is the source URL handed to the engine for a stream.
func (c *Client) FrameSourceURL(streamID string) string {
	return fmt.Sprintf("http://%s/%s/%s", c.client.EndpointURL().Host, c.buckets.Frames, streamID)
}

// DownloadFrames fetches every object under a frame source URL, in key
// order.
func (c *Client) DownloadFrames(ctx context.Context, sourceURL string) ([][]byte, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return nil, err
	}

	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("frame source %q has no bucket/folder path", sourceURL)
	}
	bucket, folder := parts[0], parts[1]

	objectCh := c.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    folder,
		Recursive: true,
	})

	var files [][]byte
	for object := range objectCh {
		if object.Err != nil {
			return nil, object.Err
		}

		if strings.HasSuffix(object.Key, "/") {
			continue
		}

		obj, err := c.client.GetObject(ctx, bucket, object.Key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}

		buf := new(bytes.Buffer)
		_, err = io.Copy(buf, obj)
		obj.Close()
		if err != nil {
			return nil, err
		}

		files = append(files, buf.Bytes())
	}

	return files, nil
}

// SaveVerdict stores one assessment as {streamID}/{frameIndex}.json in
// the verdict bucket.
func (c *Client) SaveVerdict(ctx context.Context, streamID string, frameIndex int64, assessment models.ThreatAssessment) error {
	jsonData, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("failed to marshal assessment: %w", err)
	}

	if err := c.EnsureBucketExists(ctx, c.buckets.Verdicts); err != nil {
		return fmt.Errorf("bucket error: %w", err)
	}

	objectPath := fmt.Sprintf("%s/%d.json", streamID, frameIndex)
	_, err = c.client.PutObject(
		ctx,
		c.buckets.Verdicts,
		objectPath,
		bytes.NewReader(jsonData),
		int64(len(jsonData)),
		minio.PutObjectOptions{
			ContentType: "application/json",
		},
	)
	if err != nil {
		return fmt.Errorf("failed to save verdict to S3: %w", err)
	}

	return nil
}

// SaveAnnotatedFrame stores a rendered frame as {streamID}/{frameIndex}.jpg
// in the annotated bucket.
func (c *Client) SaveAnnotatedFrame(ctx context.Context, streamID string, frameIndex int64, frame []byte) error {
	if err := c.EnsureBucketExists(ctx, c.buckets.Annotated); err != nil {
		return fmt.Errorf("bucket error: %w", err)
	}

	objectPath := fmt.Sprintf("%s/%d.jpg", streamID, frameIndex)
	_, err := c.client.PutObject(
		ctx,
		c.buckets.Annotated,
		objectPath,
		bytes.NewReader(frame),
		int64(len(frame)),
		minio.PutObjectOptions{
			ContentType: "image/jpeg",
		},
	)
	if err != nil {
		return fmt.Errorf("failed to save annotated frame to S3: %w", err)
	}

	return nil
}

// CountVerdicts returns how many verdict objects a stream already has,
// used to resume interrupted runs.
func (c *Client) CountVerdicts(ctx context.Context, streamID string) (int, error) {
	count := 0
	objectCh := c.client.ListObjects(ctx, c.buckets.Verdicts, minio.ListObjectsOptions{
		Prefix:    streamID,
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return 0, fmt.Errorf("error listing objects: %w", object.Err)
		}

		if strings.HasSuffix(object.Key, "/") {
			continue
		}

		count++
	}

	return count, nil
}
