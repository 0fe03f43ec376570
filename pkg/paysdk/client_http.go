package paysdk

import (
	"bytes"
	"context"
)

// configurationEndpoint is the synthetic analytics label for the
// configuration fetch itself.
const configurationEndpoint = "/v1/configuration"

// GetConfiguration retrieves the remote gateway configuration for this
// client's credential. When the load performed a real fetch and succeeded,
// exactly one timing event is emitted for it. A failed load emits nothing:
// without a configuration there is no analytics destination, and emitting
// here would re-enter the loader for every retried event.
func (c *Client) GetConfiguration(ctx context.Context) (*Configuration, error) {
	if err := c.invalidAuth(); err != nil {
		return nil, err
	}

	cfg, timing, err := c.loader.Load(ctx, c.authorization)
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}
	if timing != nil {
		c.sendTimingEvent(ctx, cfg, configurationEndpoint, *timing)
	}
	return cfg, nil
}

// Get issues a gated GET against the gateway. Exactly one of the returned
// body and error is non-nil.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if err := c.invalidAuth(); err != nil {
		return nil, err
	}

	cfg, err := c.GetConfiguration(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.Get(ctx, url, cfg, c.authorization)
	if err != nil {
		return nil, err
	}

	if err := validateBody(resp.Body); err != nil {
		return nil, err
	}
	c.sendTimingEvent(ctx, cfg, normalizeEndpoint(url), resp.Timing)
	return resp.Body, nil
}

// Post issues a gated POST against the gateway. Exactly one of the returned
// body and error is non-nil.
func (c *Client) Post(
	ctx context.Context,
	url string,
	body []byte,
	headers map[string]string,
) ([]byte, error) {
	if err := c.invalidAuth(); err != nil {
		return nil, err
	}

	cfg, err := c.GetConfiguration(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.Post(ctx, url, body, cfg, c.authorization, headers)
	if err != nil {
		return nil, err
	}

	if err := validateBody(resp.Body); err != nil {
		return nil, err
	}
	c.sendTimingEvent(ctx, cfg, normalizeEndpoint(url), resp.Timing)
	return resp.Body, nil
}

// GraphQLPost issues a gated POST against the single GraphQL endpoint. The
// timing event is labeled with a fragment of the request's query text rather
// than a URL; a payload with no query field produces no event, but the body
// is still returned.
func (c *Client) GraphQLPost(ctx context.Context, payload []byte) ([]byte, error) {
	if err := c.invalidAuth(); err != nil {
		return nil, err
	}

	cfg, err := c.GetConfiguration(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.GraphQLPost(ctx, payload, cfg, c.authorization)
	if err != nil {
		return nil, err
	}

	if err := validateBody(resp.Body); err != nil {
		return nil, err
	}
	if label, ok := graphQLEndpointLabel(payload); ok {
		c.sendTimingEvent(ctx, cfg, label, resp.Timing)
	}
	return resp.Body, nil
}

// validateBody checks that a transport-level success carried decodable JSON.
// Empty bodies are fine (204-style responses); anything else must parse.
func validateBody(body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}
