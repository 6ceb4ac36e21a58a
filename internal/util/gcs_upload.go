package util

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// UploadBase64ToGCS stores a base64-encoded blob (optionally carrying a
// "data:<mime>;base64," prefix) and returns its gs:// URL and size.
func UploadBase64ToGCS(base64Data, bucketName, objectName, contentType string) (string, int64, error) {
	ctx := context.Background()
	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", 0, err
	}
	defer client.Close()

	if strings.Contains(base64Data, ",") {
		parts := strings.Split(base64Data, ",")
		base64Data = parts[1]
	}

	data, err := base64.StdEncoding.DecodeString(base64Data)
	if err != nil {
		return "", 0, err
	}

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.ContentType = contentType

	sizeBytes, err := w.Write(data)
	if err != nil {
		return "", 0, err
	}
	if err := w.Close(); err != nil {
		return "", 0, err
	}

	return fmt.Sprintf("gs://%s/%s", bucketName, objectName), int64(sizeBytes), nil
}

var sanitizeRe = regexp.MustCompile(`[^a-z0-9_\-]`)

func SanitizePart(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.ReplaceAll(s, " ", "_")
	s = sanitizeRe.ReplaceAllString(s, "")
	if s == "" {
		return "unknown"
	}
	return s
}

// ParseGSURL splits a gs://bucket/object URL.
func ParseGSURL(gsURL string) (bucket string, objectPath string, err error) {
	gsURL = strings.TrimSpace(gsURL)
	if gsURL == "" {
		return "", "", fmt.Errorf("empty gs url")
	}
	if !strings.HasPrefix(gsURL, "gs://") {
		return "", "", fmt.Errorf("invalid gs url (must start with gs://): %s", gsURL)
	}

	rest := strings.TrimPrefix(gsURL, "gs://")
	slash := strings.Index(rest, "/")
	if slash < 0 || slash == len(rest)-1 {
		return "", "", fmt.Errorf("invalid gs url format: %s", gsURL)
	}

	bucket = strings.TrimSpace(rest[:slash])
	objectPath = strings.TrimSpace(rest[slash+1:])
	if bucket == "" || objectPath == "" {
		return "", "", fmt.Errorf("invalid gs url format: %s", gsURL)
	}
	return bucket, objectPath, nil
}

// DeleteGCSPrefix removes every object under prefix/ and returns how many
// were deleted. Used when purging expired field data.
func DeleteGCSPrefix(bucketName, prefix string) (int, error) {
	ctx := context.Background()
	client, err := storage.NewClient(ctx)
	if err != nil {
		return 0, err
	}
	defer client.Close()

	bkt := client.Bucket(bucketName)
	prefix = strings.TrimSuffix(prefix, "/")

	deleted := 0
	it := bkt.Objects(ctx, &storage.Query{Prefix: prefix + "/"})
	for {
		obj, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return deleted, err
		}
		if err := bkt.Object(obj.Name).Delete(ctx); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
