package network

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"gold-monitor/src/helpers"
	"gold-monitor/src/logger"
	"gold-monitor/src/models"
)

// -----------------------------------------------------------------------------
// AsyncNetworkManager performs GET requests with retries and backoff. Used by
// the polling producers; failures surface as UpstreamError and are never fatal.
// -----------------------------------------------------------------------------

type AsyncNetworkManager struct {
	Config *models.MConfig
	Client *http.Client
	Logger *logger.Logger

	baseDelay time.Duration
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	return &AsyncNetworkManager{
		Config: cfg,
		Logger: log,
		Client: &http.Client{
			Timeout: time.Duration(cfg.Network.RequestTimeout) * time.Second,
		},
		baseDelay: time.Second,
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request, retrying transient failures with exponential
// backoff before giving up with an UpstreamError.
func (nm *AsyncNetworkManager) Get(urlStr string, params map[string]string, headers map[string]string) ([]byte, error) {
	reqUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqUrl.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	reqUrl.RawQuery = q.Encode()

	finalUrl := reqUrl.String()

	attempts := nm.Config.Network.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var body []byte
	err = helpers.RetryWithBackoff(nm.Logger, "GET "+reqUrl.Host, attempts, nm.baseDelay, func() error {
		b, err := nm.fetch(finalUrl, headers)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// -----------------------------------------------------------------------------

// fetch performs one attempt.
func (nm *AsyncNetworkManager) fetch(finalUrl string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, finalUrl, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", nm.Config.Network.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := nm.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
