// Package mpesa is a client for the Daraja STK push API.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmehra2102/sofa-storefront/internal/payment/application"
	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
	"github.com/dmehra2102/sofa-storefront/pkg/config"
)

const (
	tokenPath = "/oauth/v1/generate?grant_type=client_credentials"
	pushPath  = "/mpesa/stkpush/v1/processrequest"

	transactionType = "CustomerPayBillOnline"
	maxBody         = 1 << 20
	// tokens are refreshed this long before the gateway says they expire
	tokenSlack = time.Minute
)

// EAT is the gateway's local time zone; timestamps are read in it.
var EAT = time.FixedZone("EAT", 3*60*60)

type Client struct {
	log  *slog.Logger
	cfg  config.MpesaConfig
	http *http.Client
	now  func() time.Time

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewClient(log *slog.Logger, cfg config.MpesaConfig) *Client {
	return &Client{
		log:  log,
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		now:  time.Now,
	}
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// Timestamp formats t as YYYYMMDDHHmmss in East Africa Time.
func Timestamp(t time.Time) string {
	return t.In(EAT).Format("20060102150405")
}

// Password is base64(shortcode + passkey + timestamp).
func Password(shortCode, passKey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passKey + timestamp))
}

func (c *Client) STKPush(ctx context.Context, req application.PushRequest) (application.PushAck, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return application.PushAck{}, err
	}

	ts := Timestamp(c.now())
	body, err := json.Marshal(stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          Password(c.cfg.ShortCode, c.cfg.PassKey, ts),
		Timestamp:         ts,
		TransactionType:   transactionType,
		Amount:            req.Amount,
		PartyA:            req.Phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       req.Phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  c.cfg.AccountReference,
		TransactionDesc:   c.cfg.TransactionDesc,
	})
	if err != nil {
		return application.PushAck{}, apperr.Internal(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(pushPath), bytes.NewReader(body))
	if err != nil {
		return application.PushAck{}, apperr.Internal(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	status, raw, err := c.do(httpReq)
	if err != nil {
		return application.PushAck{}, apperr.UpstreamGateway("gateway_unreachable", 0, err)
	}
	if status == http.StatusUnauthorized {
		c.dropToken()
	}
	if status < 200 || status > 299 {
		return application.PushAck{}, upstream(apperr.UpstreamGateway("stk_push_rejected", status,
			fmt.Errorf("stk push returned %d", status)), raw)
	}

	var resp stkPushResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return application.PushAck{}, upstream(apperr.UpstreamGateway("stk_push_malformed", 0, err), raw)
	}
	if resp.ResponseCode != "0" || resp.CheckoutRequestID == "" {
		return application.PushAck{}, upstream(apperr.UpstreamGateway("stk_push_rejected", 0,
			fmt.Errorf("stk push response code %q", resp.ResponseCode)), raw)
	}

	return application.PushAck{
		MerchantRequestID:   resp.MerchantRequestID,
		CheckoutRequestID:   resp.CheckoutRequestID,
		ResponseCode:        resp.ResponseCode,
		ResponseDescription: resp.ResponseDescription,
		CustomerMessage:     resp.CustomerMessage,
		Raw:                 json.RawMessage(raw),
	}, nil
}

// accessToken returns a cached token or fetches a new one with the consumer
// key and secret.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExp) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(tokenPath), nil)
	if err != nil {
		return "", apperr.Internal(err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	status, raw, err := c.do(req)
	if err != nil {
		return "", apperr.UpstreamAuth(0, err)
	}
	if status < 200 || status > 299 {
		return "", upstream(apperr.UpstreamAuth(status, fmt.Errorf("token endpoint returned %d", status)), raw)
	}
	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil || tr.AccessToken == "" {
		return "", upstream(apperr.UpstreamAuth(0, errors.New("no access token in response")), raw)
	}

	ttl := time.Hour
	if secs, err := strconv.Atoi(tr.ExpiresIn); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	c.token = tr.AccessToken
	c.tokenExp = c.now().Add(ttl - tokenSlack)
	return c.token, nil
}

func (c *Client) dropToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return 0, nil, err
	}
	c.log.Debug("mpesa response", "path", req.URL.Path, "status", resp.StatusCode)
	return resp.StatusCode, raw, nil
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

// upstream attaches the gateway's body to e, verbatim when it is JSON.
func upstream(e *apperr.Error, raw []byte) *apperr.Error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return e.WithDetail("error", e.Err.Error())
	}
	if json.Valid(raw) {
		return e.WithDetail("error", json.RawMessage(raw))
	}
	return e.WithDetail("error", string(raw))
}
