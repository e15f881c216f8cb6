package oss

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSStorage 阿里云OSS存储
type OSSStorage struct {
	bucket     *oss.Bucket
	bucketName string
}

// NewOSSStorage 创建阿里云OSS存储
func NewOSSStorage(endpoint, bucketName, accessKeyID, accessKeySecret string) (*OSSStorage, error) {
	client, err := oss.New(endpoint, accessKeyID, accessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("create OSS client: %w", err)
	}

	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("get bucket: %w", err)
	}

	return &OSSStorage{
		bucket:     bucket,
		bucketName: bucketName,
	}, nil
}

// Save 保存图片字节
func (s *OSSStorage) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	options := []oss.Option{
		oss.ContentType(contentType),
	}

	if err := s.bucket.PutObject(key, bytes.NewReader(data), options...); err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}

	return key, nil
}

// Load 按 key 读取图片字节
func (s *OSSStorage) Load(ctx context.Context, key string) ([]byte, error) {
	body, err := s.bucket.GetObject(key)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	return data, nil
}

// Delete 删除图片
func (s *OSSStorage) Delete(ctx context.Context, key string) error {
	if err := s.bucket.DeleteObject(key); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// DeletePrefix 删除指定前缀下的全部对象（分页列举 + 批量删除）
func (s *OSSStorage) DeletePrefix(ctx context.Context, prefix string) error {
	marker := oss.Marker("")
	for {
		lsRes, err := s.bucket.ListObjects(oss.Prefix(prefix), marker)
		if err != nil {
			return fmt.Errorf("list objects: %w", err)
		}

		if len(lsRes.Objects) > 0 {
			keys := make([]string, 0, len(lsRes.Objects))
			for _, obj := range lsRes.Objects {
				keys = append(keys, obj.Key)
			}
			if _, err := s.bucket.DeleteObjects(keys); err != nil {
				return fmt.Errorf("delete objects: %w", err)
			}
		}

		if !lsRes.IsTruncated {
			return nil
		}
		marker = oss.Marker(lsRes.NextMarker)
	}
}

// Exists 检查图片是否存在
func (s *OSSStorage) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.bucket.IsObjectExist(key)
	if err != nil {
		return false, fmt.Errorf("check file existence: %w", err)
	}
	return exists, nil
}

// Type 存储类型
func (s *OSSStorage) Type() string { return "oss" }
