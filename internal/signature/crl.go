package signature

import (
	"context"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// CRLFetcher retrieves the certificate revocation list from a distribution
// point over HTTP. Fetching happens per lookup; caching, if any, belongs to
// the caller.
type CRLFetcher struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

func NewCRLFetcher(url string, logger zerolog.Logger) *CRLFetcher {
	return &CRLFetcher{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// RevocationList fetches and parses the distribution point's current CRL.
func (f *CRLFetcher) RevocationList(ctx context.Context) (*x509.RevocationList, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("signature: building CRL request: %w", err)
	}
	response, err := f.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("signature: fetching CRL: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signature: CRL distribution point returned %d", response.StatusCode)
	}
	der, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("signature: reading CRL response: %w", err)
	}
	revocationList, err := x509.ParseRevocationList(der)
	if err != nil {
		return nil, fmt.Errorf("signature: parsing CRL: %w", err)
	}
	f.logger.Debug().Int("revoked", len(revocationList.RevokedCertificateEntries)).Msg("fetched certificate revocation list")
	return revocationList, nil
}
