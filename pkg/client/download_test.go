package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/UACoreFacilitiesIT/clarity-client/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func artifactDetails(host string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<art:details xmlns:art="http://genologics.com/ri/artifact" xmlns:file="http://genologics.com/ri/file">
<art:artifact uri="%[1]sartifacts/92-1?state=11" limsid="92-1"><name>run report</name><type>ResultFile</type><file:file uri="%[1]sfiles/40-7" limsid="40-7"/></art:artifact>
<art:artifact uri="%[1]sartifacts/92-2?state=12" limsid="92-2"><name>pending</name><type>ResultFile</type></art:artifact>
</art:details>`, host)
}

func TestDownloadFiles_FileURIs(t *testing.T) {
	mock := testutil.NewMockLIMS()
	defer mock.Close()
	mock.SetResponse("/api/v2/files/40-1/download", testutil.NewBinaryResponse([]byte("one")))
	mock.SetResponse("/api/v2/files/40-2/download", testutil.NewBinaryResponse([]byte("two")))

	c := newTestClient(t, mock)
	files, err := c.DownloadFiles(context.Background(), []string{"files/40-1", "files/40-2"}, true)
	require.NoError(t, err)

	assert.Equal(t, map[string][]byte{
		mock.Host() + "files/40-1": []byte("one"),
		mock.Host() + "files/40-2": []byte("two"),
	}, files)
	assert.Equal(t, 2, mock.CountMethod(http.MethodGet))
}

func TestDownloadFiles_ArtifactURIs(t *testing.T) {
	mock := testutil.NewMockLIMS()
	defer mock.Close()
	mock.SetResponse("POST /api/v2/artifacts/batch/retrieve", testutil.NewXMLResponse(artifactDetails(mock.Host())))
	mock.SetResponse("/api/v2/files/40-7/download", testutil.NewBinaryResponse([]byte{0x00, 0x01, 0x02}))

	c := newTestClient(t, mock)
	ctx := context.Background()
	arts := []string{"artifacts/92-1", "artifacts/92-2"}

	byArtifact, err := c.DownloadFiles(ctx, arts, false)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{
		mock.Host() + "artifacts/92-1": {0x00, 0x01, 0x02},
	}, byArtifact)

	byFile, err := c.DownloadFiles(ctx, arts, true)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{
		mock.Host() + "files/40-7": {0x00, 0x01, 0x02},
	}, byFile)
}

func TestDownloadFiles_NotFileURI(t *testing.T) {
	mock := testutil.NewMockLIMS()
	defer mock.Close()

	c := newTestClient(t, mock)
	_, err := c.DownloadFiles(context.Background(), []string{"files/40-1", "containers/27-1"}, true)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFileURI))

	var nf *NotFileURIError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, []string{mock.Host() + "containers/27-1"}, nf.URIs)
	assert.Equal(t, 0, mock.GetRequestCount())
}

func TestDownloadFiles_DownloadFailure(t *testing.T) {
	mock := testutil.NewMockLIMS()
	defer mock.Close()

	c := newTestClient(t, mock)
	_, err := c.DownloadFiles(context.Background(), []string{"files/40-404"}, true)

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusNotFound, terr.StatusCode)
}

func TestDownloadFiles_Empty(t *testing.T) {
	mock := testutil.NewMockLIMS()
	defer mock.Close()

	c := newTestClient(t, mock)
	files, err := c.DownloadFiles(context.Background(), nil, true)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Equal(t, 0, mock.GetRequestCount())
}

func TestIsArtifactURI(t *testing.T) {
	assert.True(t, isArtifactURI("https://lims/api/v2/artifacts/2-1"))
	assert.True(t, isArtifactURI("https://lims/api/v2/somewhere/92-5?state=3"))
	assert.False(t, isArtifactURI("https://lims/api/v2/files/40-1"))
}
