package mpesa

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/sofa-storefront/internal/payment/domain"
)

type callbackEnvelope struct {
	Body struct {
		STKCallback *struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value json.RawMessage `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// ParseCallback decodes the body the gateway posts to the callback URL.
func ParseCallback(body []byte) (domain.CallbackResult, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.CallbackResult{}, fmt.Errorf("decode stk callback: %w", err)
	}
	cb := env.Body.STKCallback
	if cb == nil || cb.CheckoutRequestID == "" {
		return domain.CallbackResult{}, errors.New("stk callback without CheckoutRequestID")
	}

	res := domain.CallbackResult{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
	}
	for _, item := range cb.CallbackMetadata.Item {
		v := scalar(item.Value)
		switch item.Name {
		case "Amount":
			if d, err := decimal.NewFromString(v); err == nil {
				res.Amount = d
			}
		case "MpesaReceiptNumber":
			res.ReceiptNumber = v
		case "TransactionDate":
			res.TransactionDate = v
		case "PhoneNumber":
			res.Phone = v
		}
	}
	return res, nil
}

// scalar renders a metadata value, which the gateway sends as either a JSON
// string or a bare number, as text.
func scalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
