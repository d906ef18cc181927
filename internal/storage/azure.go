// Package storage uploads exported workbooks to Azure blob storage and
// generates time-limited, read-only download links for them.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
	"github.com/JonMunkholm/sheets/internal/config"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Client wraps an Azure blob service client scoped to one container.
type Client struct {
	client    *azblob.Client
	cred      *azblob.SharedKeyCredential
	account   string
	container string
	linkTTL   time.Duration
}

// Link is a generated time-limited download URL.
type Link struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// New creates a storage client from configuration. The container is
// created on first use if it does not exist.
func New(cfg config.StorageConfig) (*Client, error) {
	cred, err := azblob.NewSharedKeyCredential(cfg.Account, cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("storage credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", cfg.Account)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &Client{
		client:    client,
		cred:      cred,
		account:   cfg.Account,
		container: cfg.Container,
		linkTTL:   cfg.LinkTTL,
	}, nil
}

// UploadWorkbook uploads an xlsx byte buffer under the given blob name
// and returns a read-only SAS link that expires after the configured TTL.
func (c *Client) UploadWorkbook(ctx context.Context, blobName string, data []byte) (*Link, error) {
	if _, err := c.client.CreateContainer(ctx, c.container, nil); err != nil {
		if !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil, fmt.Errorf("create container %q: %w", c.container, err)
		}
	}

	contentType := xlsxContentType
	_, err := c.client.UploadBuffer(ctx, c.container, blobName, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return nil, fmt.Errorf("upload blob %q: %w", blobName, err)
	}

	return c.signedLink(blobName)
}

// signedLink generates a read-only SAS URL for an uploaded blob.
func (c *Client) signedLink(blobName string) (*Link, error) {
	expires := time.Now().UTC().Add(c.linkTTL)
	values := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		ExpiryTime:    expires,
		ContainerName: c.container,
		BlobName:      blobName,
		Permissions:   (&sas.BlobPermissions{Read: true}).String(),
	}
	qp, err := values.SignWithSharedKey(c.cred)
	if err != nil {
		return nil, fmt.Errorf("sign download link: %w", err)
	}

	blobURL := fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s?%s",
		c.account, c.container, url.PathEscape(blobName), qp.Encode())
	return &Link{URL: blobURL, ExpiresAt: expires}, nil
}
