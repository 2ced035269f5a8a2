package client

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/UACoreFacilitiesIT/clarity-client/pkg/document"
	"github.com/UACoreFacilitiesIT/clarity-client/pkg/pagination"
	"github.com/UACoreFacilitiesIT/clarity-client/pkg/resource"
)

const (
	artifactTag = "art:artifact"
	fileTag     = resource.Tag("file:file")

	// resultFilePrefix is the LIMS id prefix of result file artifacts.
	resultFilePrefix = "92-"
)

type artifactFile struct {
	URI  string `xml:"uri,attr"`
	File *struct {
		URI string `xml:"uri,attr"`
	} `xml:"file"`
}

// DownloadFiles returns the content of every file behind uris.
//
// uris may be file uris or result file artifact uris; artifacts are resolved
// to their attached file, and artifacts without one are skipped. The result
// is keyed by file uri, or by the originating artifact uri when keyByFile is
// false and the file was reached through an artifact.
func (c *Client) DownloadFiles(ctx context.Context, uris []string, keyByFile bool) (map[string][]byte, error) {
	var (
		artifactURIs []string
		fileURIs     []string
		seen         = make(map[string]bool)
	)

	for _, uri := range c.normalize(uris) {
		if seen[uri] {
			continue
		}
		seen[uri] = true

		if isArtifactURI(uri) {
			artifactURIs = append(artifactURIs, uri)
		} else {
			fileURIs = append(fileURIs, uri)
		}
	}

	origin := make(map[string]string)
	if len(artifactURIs) > 0 {
		body, err := c.Get(ctx, artifactURIs)
		if err != nil {
			return nil, fmt.Errorf("resolve artifact files: %w", err)
		}

		links, err := artifactFiles(body)
		if err != nil {
			return nil, err
		}

		for _, link := range links {
			if seen[link.file] {
				continue
			}
			seen[link.file] = true
			origin[link.file] = link.artifact
			fileURIs = append(fileURIs, link.file)
		}
	}

	var invalid []string
	for _, uri := range fileURIs {
		if !isFileURI(uri) {
			invalid = append(invalid, uri)
		}
	}
	if len(invalid) > 0 {
		return nil, &NotFileURIError{URIs: invalid}
	}

	files := make(map[string][]byte, len(fileURIs))
	if len(fileURIs) == 0 {
		return files, nil
	}

	dispatcher := pagination.NewDispatcher(pagination.FetcherFunc(c.download), pagination.Config{
		MaxConcurrency: c.config.MaxConcurrency,
		Timeout:        c.config.RequestTimeout,
	})

	results, err := dispatcher.FetchAll(ctx, fileURIs)
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		key := r.URI
		if art, ok := origin[r.URI]; ok && !keyByFile {
			key = art
		}
		files[key] = r.Body
	}

	c.logger.Info().
		Int("files", len(files)).
		Int("artifacts", len(artifactURIs)).
		Msg("Downloaded files")

	return files, nil
}

// download GETs the raw content of a file resource, bypassing the cache.
func (c *Client) download(ctx context.Context, fileURI string) ([]byte, error) {
	_, body, err := c.do(ctx, http.MethodGet, strings.TrimRight(fileURI, "/")+"/download", nil)
	return body, err
}

type fileLink struct {
	artifact string
	file     string
}

// artifactFiles lists the file attached to every artifact in body, in
// document order.
func artifactFiles(body []byte) ([]fileLink, error) {
	fragments, err := document.Extract(body, artifactTag)
	if err != nil {
		return nil, fmt.Errorf("parse artifacts: %w", err)
	}

	var links []fileLink
	for _, f := range fragments {
		var art artifactFile
		if err := xml.Unmarshal(f, &art); err != nil {
			return nil, fmt.Errorf("%w: artifact: %v", document.ErrMalformedDocument, err)
		}
		if art.File == nil || art.File.URI == "" {
			continue
		}
		links = append(links, fileLink{
			artifact: stripQuery(art.URI),
			file:     art.File.URI,
		})
	}
	return links, nil
}

func isArtifactURI(uri string) bool {
	return strings.Contains(uri, "artifacts/") ||
		strings.HasPrefix(path.Base(stripQuery(uri)), resultFilePrefix)
}

func isFileURI(uri string) bool {
	tag, err := resource.Resolve(uri)
	return err == nil && tag == fileTag && !resource.IsAction(uri)
}

func stripQuery(uri string) string {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		return uri[:i]
	}
	return uri
}
