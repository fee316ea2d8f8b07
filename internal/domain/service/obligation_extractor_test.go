package service_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bureau-service/internal/domain/service"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	v, err := service.DecodePayload([]byte(raw))
	require.NoError(t, err)
	return v
}

func TestObligationExtractor_Extract(t *testing.T) {
	extractor := service.NewObligationExtractor()

	t.Run("duplicate tradelines are counted once", func(t *testing.T) {
		root := decode(t, `{
			"summary": {"accounts": [
				{"SubscriberCode": "HDFC01", "AccountNumber": "XX1234", "EMIAmount": "12,500", "CurrentBalance": "400000"}
			]},
			"detail": {"RetailAccountDetails": [
				{"SubscriberCode": "HDFC01", "AccountNumber": "XX1234", "EMIAmount": "12,500", "CurrentBalance": "400000"},
				{"SubscriberCode": "ICICI9", "AccountNumber": "XX1234", "EMIAmount": "3000", "CurrentBalance": "90000"}
			]}
		}`)
		total, tradelines := extractor.Extract(root)
		assert.Len(t, tradelines, 2)
		assert.True(t, decimal.NewFromInt(15500).Equal(total), "got %s", total)
	})

	t.Run("a sentinel copy does not hide a valid duplicate", func(t *testing.T) {
		root := decode(t, `{
			"a": [{"SubscriberCode": "S", "AccountNumber": "X", "EMIAmount": "-1", "CurrentBalance": "1000"}],
			"b": [{"SubscriberCode": "S", "AccountNumber": "X", "EMIAmount": "5000", "CurrentBalance": "1000"}]
		}`)
		total, tradelines := extractor.Extract(root)
		require.Len(t, tradelines, 1)
		assert.True(t, tradelines[0].HasEMI)
		assert.True(t, decimal.NewFromInt(5000).Equal(total), "got %s", total)
	})

	t.Run("a summary copy without an installment does not hide the detail", func(t *testing.T) {
		root := decode(t, `{
			"detail": [{"SubscriberCode": "S", "AccountNumber": "X", "InstallmentAmount": "7200", "CurrentBalance": "52000"}],
			"accounts": [{"SubscriberCode": "S", "AccountNumber": "X", "CurrentBalance": "52000"}]
		}`)
		total, _ := extractor.Extract(root)
		assert.True(t, decimal.NewFromInt(7200).Equal(total), "got %s", total)
	})

	t.Run("closed and zero balance accounts are excluded", func(t *testing.T) {
		root := decode(t, `[
			{"accountNumber": "1", "emiAmount": 1000, "currentBalance": 5000, "dateClosed": "2022-03-01"},
			{"accountNumber": "2", "emiAmount": 2000, "currentBalance": "0"},
			{"accountNumber": "3", "emiAmount": 4000, "currentBalance": 100}
		]`)
		total, tradelines := extractor.Extract(root)
		require.Len(t, tradelines, 3)
		assert.True(t, decimal.NewFromInt(4000).Equal(total))
		assert.False(t, tradelines[0].IsOpen())
		assert.False(t, tradelines[1].IsOpen())
		assert.True(t, tradelines[2].IsOpen())
	})

	t.Run("sentinel emi values are skipped", func(t *testing.T) {
		root := decode(t, `{"Accounts": [
			{"AccountNumber": "1", "InstallmentAmount": "-1", "Balance": "10"},
			{"AccountNumber": "2", "InstallmentAmount": "", "Balance": "10"},
			{"AccountNumber": "3", "InstallmentAmount": "N/A", "Balance": "10"},
			{"AccountNumber": "4", "InstallmentAmount": "₹ 1,250.50", "Balance": "10"}
		]}`)
		total, _ := extractor.Extract(root)
		assert.Equal(t, "1250.5", total.String())
	})

	t.Run("tradelines nested at any depth are found", func(t *testing.T) {
		root := decode(t, `{"a": {"b": [{"c": {"d": {
			"TradeLine": {"accountNumber": "77", "subscriberCode": "SBI", "currentBalance": "1000",
				"GrantedTrade": {"EMIAmount": "2200"}}
		}}}]}}`)
		total, tradelines := extractor.Extract(root)
		require.Len(t, tradelines, 1)
		assert.Equal(t, "SBI", tradelines[0].SubscriberCode)
		assert.True(t, decimal.NewFromInt(2200).Equal(total))
	})

	t.Run("payload without tradelines totals zero", func(t *testing.T) {
		total, tradelines := extractor.Extract(decode(t, `{"result": {"cibilScore": 780}}`))
		assert.Empty(t, tradelines)
		assert.True(t, total.IsZero())
	})
}

func TestObligationExtractor_ActiveEMITotalNeverNegative(t *testing.T) {
	extractor := service.NewObligationExtractor()
	root := decode(t, `[{"AccountNumber": "1", "EMIAmount": "0", "CurrentBalance": "-50"}]`)
	total, _ := extractor.Extract(root)
	assert.False(t, total.IsNegative())
}
