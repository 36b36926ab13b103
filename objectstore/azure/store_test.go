package azure_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/sagarc03/storegate"
	"github.com/sagarc03/storegate/objectstore/azure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// Azurite default credentials.
	accountName = "devstoreaccount1"
	accountKey  = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
)

func connectionString(host, port string) string {
	return fmt.Sprintf(
		"DefaultEndpointsProtocol=http;AccountName=%s;AccountKey=%s;BlobEndpoint=http://%s:%s/%s;",
		accountName, accountKey, host, port, accountName,
	)
}

func TestStore_PresignURL_SharedKey(t *testing.T) {
	store, err := azure.NewFromConnectionString(connectionString("127.0.0.1", "10000"))
	require.NoError(t, err)

	expiresAt := time.Now().Add(storegate.GrantTTL)
	ref := storegate.ObjectRef{Container: "uploads", Name: "report.pdf"}

	uri, err := store.PresignURL(context.Background(), ref, storegate.PermissionWrite, expiresAt)
	require.NoError(t, err)

	u, err := url.Parse(uri)
	require.NoError(t, err)
	assert.Equal(t, "/devstoreaccount1/uploads/report.pdf", u.Path)

	q := u.Query()
	assert.Equal(t, "cw", q.Get("sp"))
	assert.Equal(t, "b", q.Get("sr"))
	assert.NotEmpty(t, q.Get("sig"))

	se, err := time.Parse(time.RFC3339, q.Get("se"))
	require.NoError(t, err)
	assert.WithinDuration(t, expiresAt, se, time.Second)
}

func TestStore_PresignURL_WithoutSharedKey(t *testing.T) {
	client, err := azblob.NewClientWithNoCredential("http://127.0.0.1:10000/devstoreaccount1", nil)
	require.NoError(t, err)

	store := azure.New(client)

	_, err = store.PresignURL(context.Background(), storegate.ObjectRef{Container: "uploads", Name: "a.txt"}, storegate.PermissionWrite, time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, storegate.ErrInvalidConfiguration)
}

func TestNewFromConnectionString_Invalid(t *testing.T) {
	_, err := azure.NewFromConnectionString("not a connection string")
	assert.ErrorIs(t, err, storegate.ErrInvalidConfiguration)
}

func setupAzurite(t *testing.T) *azure.Store {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping azurite integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mcr.microsoft.com/azure-storage/azurite:latest",
			ExposedPorts: []string{"10000/tcp"},
			Cmd:          []string{"azurite-blob", "--blobHost", "0.0.0.0"},
			WaitingFor: wait.ForListeningPort("10000/tcp").
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, container)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "10000/tcp")
	require.NoError(t, err)

	store, err := azure.NewFromConnectionString(connectionString(host, port.Port()))
	require.NoError(t, err)

	_, err = store.Client().CreateContainer(ctx, "uploads", nil)
	require.NoError(t, err)

	return store
}

func TestStore_Azurite(t *testing.T) {
	store := setupAzurite(t)
	ctx := context.Background()

	t.Run("container exists", func(t *testing.T) {
		ok, err := store.ContainerExists(ctx, "uploads")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.ContainerExists(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("upload and read back", func(t *testing.T) {
		ref := storegate.ObjectRef{Container: "uploads", Name: "report.pdf"}
		payload := bytes.Repeat([]byte("x"), 2048)

		result, err := store.Upload(ctx, ref, bytes.NewReader(payload), storegate.UploadOptions{Overwrite: true})
		require.NoError(t, err)
		assert.Equal(t, int64(2048), result.BytesWritten)
		assert.NotEmpty(t, result.ETag)

		resp, err := store.Client().DownloadStream(ctx, "uploads", "report.pdf", nil)
		require.NoError(t, err)
		defer resp.Body.Close()

		got, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("no overwrite", func(t *testing.T) {
		ref := storegate.ObjectRef{Container: "uploads", Name: "once.txt"}

		_, err := store.Upload(ctx, ref, bytes.NewReader([]byte("first")), storegate.UploadOptions{})
		require.NoError(t, err)

		_, err = store.Upload(ctx, ref, bytes.NewReader([]byte("second")), storegate.UploadOptions{})
		assert.ErrorIs(t, err, storegate.ErrObjectExists)
	})

	t.Run("missing container", func(t *testing.T) {
		ref := storegate.ObjectRef{Container: "ghost", Name: "a.txt"}

		_, err := store.Upload(ctx, ref, bytes.NewReader([]byte("x")), storegate.UploadOptions{Overwrite: true})
		assert.ErrorIs(t, err, storegate.ErrContainerNotFound)
	})
}
