package client

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/UACoreFacilitiesIT/clarity-client/pkg/resource"
)

// RINamespace is the namespace of the batch links document.
const RINamespace = "http://genologics.com/ri"

type batchLinks struct {
	XMLName xml.Name    `xml:"ri:links"`
	NS      string      `xml:"xmlns:ri,attr"`
	Links   []batchLink `xml:"link"`
}

type batchLink struct {
	URI string `xml:"uri,attr"`
	Rel string `xml:"rel,attr"`
}

// batchPayload renders the links document posted to batch/retrieve.
func batchPayload(batch resource.Batch) ([]byte, error) {
	doc := batchLinks{NS: RINamespace}
	for _, uri := range batch.URIs {
		doc.Links = append(doc.Links, batchLink{URI: uri, Rel: batch.Family})
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal batch payload: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// batchRetrieve fetches every uri of batch with a single POST and returns
// the service's aggregate document unmodified.
func (c *Client) batchRetrieve(ctx context.Context, batch resource.Batch) ([]byte, error) {
	payload, err := batchPayload(batch)
	if err != nil {
		return nil, err
	}

	endpoint := c.config.Host + batch.Family + "/batch/retrieve"

	c.logger.Debug().
		Str("family", batch.Family).
		Int("uris", len(batch.URIs)).
		Msg("Batch retrieve")

	_, body, err := c.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, err
	}
	return body, nil
}
