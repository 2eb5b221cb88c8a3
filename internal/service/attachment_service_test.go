package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/ficha-clinica-api/pkg/storage"
)

func newIngestFixture(t *testing.T) (*AttachmentService, string, string) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewLocalStorage(root)
	require.NoError(t, err)
	svc := NewAttachmentService(store, 0, zap.NewNop())

	source := filepath.Join(t.TempDir(), "informe.txt")
	require.NoError(t, os.WriteFile(source, []byte("contenido clinico de prueba"), 0o644))
	return svc, root, source
}

func TestAttachmentServiceIngestHashesContent(t *testing.T) {
	svc, root, source := newIngestFixture(t)

	attachments, err := svc.Ingest(context.Background(), "p-1", "s-1", []string{source})
	require.NoError(t, err)
	require.Len(t, attachments, 1)

	att := attachments[0]
	assert.Equal(t, "informe.txt", att.DisplayName)
	assert.Equal(t, "s-1", att.SessionID)
	assert.NotEqual(t, att.DisplayName, att.StoredName)
	assert.Contains(t, att.StoredName, "_informe.txt")

	require.NotNil(t, att.Sha256)
	assert.Equal(t, "0bc3c0236039591cbdc42de5beeeb9d09c6a93af456c101c32a8031d6175902b", *att.Sha256)
	require.NotNil(t, att.SizeBytes)
	assert.Equal(t, int64(len("contenido clinico de prueba")), *att.SizeBytes)
	require.NotNil(t, att.MimeType)
	assert.Contains(t, *att.MimeType, "text/plain")

	stored := filepath.Join(root, "p-1", "s-1", att.StoredName)
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "contenido clinico de prueba", string(data))
}

func TestAttachmentServiceSkipsMissingSources(t *testing.T) {
	svc, _, source := newIngestFixture(t)

	attachments, err := svc.Ingest(context.Background(), "p-1", "s-1", []string{
		filepath.Join(t.TempDir(), "desaparecido.txt"),
		source,
	})
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "informe.txt", attachments[0].DisplayName)
}

func TestAttachmentServiceUniqueStoredNames(t *testing.T) {
	svc, _, source := newIngestFixture(t)

	first, err := svc.Ingest(context.Background(), "p-1", "s-1", []string{source})
	require.NoError(t, err)
	second, err := svc.Ingest(context.Background(), "p-1", "s-1", []string{source})
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].StoredName, second[0].StoredName)
}

func TestAttachmentServiceEnforcesSizeLimit(t *testing.T) {
	root := t.TempDir()
	store, err := storage.NewLocalStorage(root)
	require.NoError(t, err)
	svc := NewAttachmentService(store, 4, zap.NewNop())

	source := filepath.Join(t.TempDir(), "grande.bin")
	require.NoError(t, os.WriteFile(source, []byte("demasiado grande"), 0o644))

	attachments, err := svc.Ingest(context.Background(), "p-1", "s-1", []string{source})
	require.NoError(t, err)
	assert.Empty(t, attachments)
}
