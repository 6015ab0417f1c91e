package client

import (
	"fmt"
	"net/http"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// tlsTransport adapts a tls-client to net/http so that libraries built on
// *http.Client get a browser TLS fingerprint.
type tlsTransport struct {
	innerClient tls_client.HttpClient
}

func (t *tlsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	fReq := &fhttp.Request{
		Method:        req.Method,
		URL:           req.URL,
		Proto:         req.Proto,
		ProtoMajor:    req.ProtoMajor,
		ProtoMinor:    req.ProtoMinor,
		Header:        make(fhttp.Header),
		Body:          req.Body,
		GetBody:       req.GetBody,
		ContentLength: req.ContentLength,
		Host:          req.Host,
	}
	fReq = fReq.WithContext(req.Context())

	for k, v := range req.Header {
		fReq.Header[k] = v
	}

	resp, err := t.innerClient.Do(fReq)
	if err != nil {
		return nil, err
	}

	netResp := &http.Response{
		Status:           resp.Status,
		StatusCode:       resp.StatusCode,
		Proto:            resp.Proto,
		ProtoMajor:       resp.ProtoMajor,
		ProtoMinor:       resp.ProtoMinor,
		ContentLength:    resp.ContentLength,
		Body:             resp.Body,
		Header:           make(http.Header),
		Uncompressed:     resp.Uncompressed,
		TransferEncoding: resp.TransferEncoding,
		Request:          req,
	}

	for k, v := range resp.Header {
		netResp.Header[k] = v
	}

	return netResp, nil
}

// NewTransport returns a RoundTripper backed by tls-client. Redirects and cookies
// are left to the wrapping *http.Client.
func NewTransport(timeout time.Duration) (http.RoundTripper, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(int(timeout.Seconds())),
		tls_client.WithClientProfile(profiles.DefaultClientProfile),
		tls_client.WithRandomTLSExtensionOrder(),
		tls_client.WithNotFollowRedirects(),
	}

	c, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tls client: %w", err)
	}

	return &tlsTransport{innerClient: c}, nil
}

// NewHttpClient builds the client used for all upstream calls. jar may be nil.
func NewHttpClient(timeout time.Duration, jar http.CookieJar) (*http.Client, error) {
	transport, err := NewTransport(timeout)
	if err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   timeout,
	}, nil
}
