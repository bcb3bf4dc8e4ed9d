package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"quiklii/internal/payment/domain/models"
	"quiklii/internal/xpkg/config"
	"quiklii/internal/xpkg/errs"
)

// Callback is the provider-neutral view of a webhook after parsing.
type Callback struct {
	Reference     string
	ProviderTxnID string
	RawStatus     string
}

// statusMaps translate each provider's status vocabulary into ours. These
// tables are fixed; only secrets live in config.
var statusMaps = map[models.Provider]map[string]models.PaymentStatus{
	models.ProviderWompi: {
		"APPROVED": models.PaymentCompleted,
		"DECLINED": models.PaymentFailed,
		"ERROR":    models.PaymentFailed,
		"VOIDED":   models.PaymentCancelled,
		"PENDING":  models.PaymentProcessing,
	},
	models.ProviderMercadoPago: {
		"approved":     models.PaymentCompleted,
		"rejected":     models.PaymentFailed,
		"cancelled":    models.PaymentCancelled,
		"refunded":     models.PaymentRefunded,
		"in_process":   models.PaymentProcessing,
		"pending":      models.PaymentProcessing,
		"charged_back": models.PaymentRefunded,
	},
	models.ProviderInternal: {
		"completed": models.PaymentCompleted,
		"failed":    models.PaymentFailed,
		"cancelled": models.PaymentCancelled,
		"refunded":  models.PaymentRefunded,
	},
}

var defaultSignatureHeaders = map[models.Provider]string{
	models.ProviderWompi:       "X-Event-Checksum",
	models.ProviderMercadoPago: "X-Signature",
	models.ProviderInternal:    "X-Webhook-Signature",
}

type Registry struct {
	providers map[models.Provider]config.Provider
}

func NewRegistry(providers map[string]config.Provider) *Registry {
	byName := make(map[models.Provider]config.Provider, len(providers))
	for name, p := range providers {
		byName[models.Provider(name)] = p
	}
	return &Registry{providers: byName}
}

func (r *Registry) Known(p models.Provider) bool {
	_, ok := r.providers[p]
	return ok && models.ValidProvider(p)
}

func (r *Registry) SignatureHeader(p models.Provider) string {
	if cfg, ok := r.providers[p]; ok && cfg.SignatureHeader != "" {
		return cfg.SignatureHeader
	}
	return defaultSignatureHeaders[p]
}

// Verify checks the webhook signature against the provider's shared secret.
// Every supported gateway signs the raw body with HMAC-SHA256, hex encoded.
func (r *Registry) Verify(p models.Provider, signature string, body []byte) error {
	cfg, ok := r.providers[p]
	if !ok {
		return errs.Authentication("unknown payment provider: %s", p)
	}
	if signature == "" {
		return errs.Authentication("missing webhook signature")
	}

	mac := hmac.New(sha256.New, []byte(cfg.WebhookSecret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(want), []byte(signature)) {
		return errs.Authentication("webhook signature mismatch for provider %s", p)
	}
	return nil
}

// Parse extracts the reference, transaction id, and raw status from the
// provider's payload shape.
func (r *Registry) Parse(p models.Provider, body []byte) (Callback, error) {
	switch p {
	case models.ProviderWompi:
		var payload struct {
			Event string `json:"event"`
			Data  struct {
				Transaction struct {
					ID        string `json:"id"`
					Reference string `json:"reference"`
					Status    string `json:"status"`
				} `json:"transaction"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return Callback{}, errs.Validation("malformed wompi payload")
		}
		t := payload.Data.Transaction
		if t.Reference == "" || t.Status == "" {
			return Callback{}, errs.Validation("wompi payload missing reference or status")
		}
		return Callback{Reference: t.Reference, ProviderTxnID: t.ID, RawStatus: t.Status}, nil

	case models.ProviderMercadoPago:
		var payload struct {
			Action string `json:"action"`
			Data   struct {
				ID                string `json:"id"`
				ExternalReference string `json:"external_reference"`
				Status            string `json:"status"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return Callback{}, errs.Validation("malformed mercadopago payload")
		}
		if payload.Data.ExternalReference == "" || payload.Data.Status == "" {
			return Callback{}, errs.Validation("mercadopago payload missing reference or status")
		}
		return Callback{
			Reference:     payload.Data.ExternalReference,
			ProviderTxnID: payload.Data.ID,
			RawStatus:     payload.Data.Status,
		}, nil

	case models.ProviderInternal:
		var payload struct {
			Reference     string `json:"reference"`
			TransactionID string `json:"transaction_id"`
			Status        string `json:"status"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return Callback{}, errs.Validation("malformed webhook payload")
		}
		if payload.Reference == "" || payload.Status == "" {
			return Callback{}, errs.Validation("webhook payload missing reference or status")
		}
		return Callback{
			Reference:     payload.Reference,
			ProviderTxnID: payload.TransactionID,
			RawStatus:     payload.Status,
		}, nil
	}

	return Callback{}, errs.Validation("unsupported payment provider: %s", p)
}

// MapStatus translates the provider vocabulary; an unknown word is a
// validation error, not a silent default.
func (r *Registry) MapStatus(p models.Provider, raw string) (models.PaymentStatus, error) {
	table, ok := statusMaps[p]
	if !ok {
		return "", errs.Validation("unsupported payment provider: %s", p)
	}
	status, ok := table[raw]
	if !ok {
		return "", errs.Validation("provider %s reported unknown status %q", p, raw)
	}
	return status, nil
}

// Sign computes a webhook signature; the test harness and the internal
// provider share it with the verifier.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
