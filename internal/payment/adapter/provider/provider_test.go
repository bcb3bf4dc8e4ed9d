package provider

import (
	"testing"

	"quiklii/internal/payment/domain/models"
	"quiklii/internal/xpkg/config"
	"quiklii/internal/xpkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	return NewRegistry(map[string]config.Provider{
		"wompi":       {WebhookSecret: "wompi-secret"},
		"mercadopago": {WebhookSecret: "mp-secret"},
		"internal":    {WebhookSecret: "internal-secret"},
	})
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	r := testRegistry()
	body := []byte(`{"event":"transaction.updated"}`)

	sig := Sign("wompi-secret", body)
	assert.NoError(t, r.Verify(models.ProviderWompi, sig, body))
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	r := testRegistry()
	body := []byte(`{"event":"transaction.updated"}`)

	err := r.Verify(models.ProviderWompi, "deadbeef", body)
	assert.True(t, errs.IsKind(err, errs.KindAuthentication))

	err = r.Verify(models.ProviderWompi, "", body)
	assert.True(t, errs.IsKind(err, errs.KindAuthentication))
}

func TestVerifyRejectsUnknownProvider(t *testing.T) {
	r := testRegistry()
	err := r.Verify(models.Provider("paypal"), "sig", []byte("{}"))
	assert.True(t, errs.IsKind(err, errs.KindAuthentication))
}

func TestParseWompi(t *testing.T) {
	r := testRegistry()
	body := []byte(`{
		"event": "transaction.updated",
		"data": {"transaction": {"id": "txn-1", "reference": "ref-1", "status": "APPROVED"}}
	}`)

	cb, err := r.Parse(models.ProviderWompi, body)
	require.NoError(t, err)
	assert.Equal(t, "ref-1", cb.Reference)
	assert.Equal(t, "txn-1", cb.ProviderTxnID)
	assert.Equal(t, "APPROVED", cb.RawStatus)
}

func TestParseMercadoPago(t *testing.T) {
	r := testRegistry()
	body := []byte(`{
		"action": "payment.updated",
		"data": {"id": "mp-9", "external_reference": "ref-9", "status": "approved"}
	}`)

	cb, err := r.Parse(models.ProviderMercadoPago, body)
	require.NoError(t, err)
	assert.Equal(t, "ref-9", cb.Reference)
	assert.Equal(t, "approved", cb.RawStatus)
}

func TestParseRejectsMissingFields(t *testing.T) {
	r := testRegistry()

	_, err := r.Parse(models.ProviderWompi, []byte(`{"data":{"transaction":{"id":"x"}}}`))
	assert.True(t, errs.IsKind(err, errs.KindValidation))

	_, err = r.Parse(models.ProviderInternal, []byte(`not json`))
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}

func TestMapStatus(t *testing.T) {
	r := testRegistry()

	tests := []struct {
		provider models.Provider
		raw      string
		want     models.PaymentStatus
	}{
		{models.ProviderWompi, "APPROVED", models.PaymentCompleted},
		{models.ProviderWompi, "DECLINED", models.PaymentFailed},
		{models.ProviderWompi, "VOIDED", models.PaymentCancelled},
		{models.ProviderWompi, "PENDING", models.PaymentProcessing},
		{models.ProviderMercadoPago, "approved", models.PaymentCompleted},
		{models.ProviderMercadoPago, "refunded", models.PaymentRefunded},
		{models.ProviderInternal, "completed", models.PaymentCompleted},
	}
	for _, tt := range tests {
		got, err := r.MapStatus(tt.provider, tt.raw)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s/%s", tt.provider, tt.raw)
	}
}

func TestMapStatusRejectsUnknownVocabulary(t *testing.T) {
	r := testRegistry()
	_, err := r.MapStatus(models.ProviderWompi, "MAYBE")
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}
