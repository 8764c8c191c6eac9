package provider

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// VerifyCallbackSignature checks a Duitku callback signature, the hex MD5 of
// merchantCode + amount + merchantOrderId + apiKey. amount must be the exact
// string the gateway posted.
func VerifyCallbackSignature(merchantCode, amount, merchantOrderID, apiKey, signature string) bool {
	if merchantCode == "" || amount == "" || merchantOrderID == "" || apiKey == "" {
		return false
	}

	provided, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(provided) != md5.Size {
		return false
	}

	expected := md5.Sum([]byte(merchantCode + amount + merchantOrderID + apiKey))
	return subtle.ConstantTimeCompare(expected[:], provided) == 1
}

func callbackSignature(merchantCode, amount, merchantOrderID, apiKey string) string {
	return md5Hex(merchantCode + amount + merchantOrderID + apiKey)
}

func inquirySignature(merchantCode, merchantOrderID string, amountMinor int64, apiKey string) string {
	return md5Hex(merchantCode + merchantOrderID + FormatAmount(amountMinor) + apiKey)
}

func statusSignature(merchantCode, merchantOrderID, apiKey string) string {
	return md5Hex(merchantCode + merchantOrderID + apiKey)
}

func md5Hex(value string) string {
	sum := md5.Sum([]byte(value))
	return hex.EncodeToString(sum[:])
}
