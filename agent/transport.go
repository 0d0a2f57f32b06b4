package agent

import (
	"errors"
	"time"

	"github.com/valyala/fasthttp"
)

// FetchFunc performs the remote configuration POST and returns the
// response body.
type FetchFunc func(url string, body []byte) ([]byte, error)

const sendTimeout = 3 * time.Second

// HTTPSender is the fallback transport: a plain POST with a short timeout.
// It shares the service's fasthttp stack rather than pulling in net/http.
type HTTPSender struct {
	client *fasthttp.Client
}

// NewHTTPSender returns a sender backed by a dedicated fasthttp client.
func NewHTTPSender() *HTTPSender {
	return &HTTPSender{
		client: &fasthttp.Client{Name: "sitepulse-agent"},
	}
}

// Send POSTs the payload. The caller treats any error as a dropped event.
func (s *HTTPSender) Send(endpoint string, body []byte) error {
	_, err := s.do(endpoint, body)
	return err
}

// post is Send plus the response body, for the configuration fetch.
func (s *HTTPSender) post(url string, body []byte) ([]byte, error) {
	return s.do(url, body)
}

func (s *HTTPSender) do(url string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBodyRaw(body)

	if err := s.client.DoTimeout(req, resp, sendTimeout); err != nil {
		return nil, err
	}
	if code := resp.StatusCode(); code >= fasthttp.StatusBadRequest {
		return nil, errors.New("collector rejected payload: " + fasthttp.StatusMessage(code))
	}
	return append([]byte(nil), resp.Body()...), nil
}
