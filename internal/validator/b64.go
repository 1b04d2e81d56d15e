package validator

import (
	"encoding/base64"
)

// Largest accepted audio file, before base64 encoding
const MaxAudioSize = 1 << 24

// ensure the data length is less than the maximum base64 length for a given length without decoding the base64
func validateBase64Len(dataLen int, length int) bool {
	return dataLen <= base64.StdEncoding.EncodedLen(length)
}

// ensures an encoded audio file is less than the maximum length for the allowable max audio size
func ValidateAudioSize(dataLen int) bool {
	return validateBase64Len(dataLen, MaxAudioSize)
}
