package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/radieske/live-odds-sync/pkg/contracts/events"
)

// Client é o contrato de fetch consumido pelo cache repository.
// Duas listas lógicas: partidas e odds, ambas arrays JSON.
type Client interface {
	FetchMatches(ctx context.Context) ([]events.Match, error)
	FetchOdds(ctx context.Context) ([]events.Odds, error)
}

// HTTPClient busca matches e odds nos endpoints REST do backend
// (GET <base>/matches e GET <base>/odds) e traduz falhas de transporte
// e de status pro erro tipado do pacote.
type HTTPClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) FetchMatches(ctx context.Context) ([]events.Match, error) {
	var out []events.Match
	if err := c.getJSON(ctx, c.BaseURL+"/matches", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) FetchOdds(ctx context.Context) ([]events.Odds, error) {
	var out []events.Odds
	if err := c.getJSON(ctx, c.BaseURL+"/odds", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &Error{Kind: KindInvalidRequest, Cause: err}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &Error{Kind: transportKind(err), Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &Error{Kind: KindNoData, StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusBadRequest:
		return &Error{Kind: KindInvalidRequest, StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &Error{Kind: KindServerError, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: transportKind(err), Cause: err}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return &Error{Kind: KindDecodeFailure, Cause: err}
	}
	return nil
}

// transportKind separa timeout de indisponibilidade genérica
func transportKind(err error) Kind {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnavailable
}
