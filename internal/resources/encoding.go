package resources

import "encoding/base64"

// base64Encode is the encoding EC2's RunInstances API requires for the
// UserData field.
func base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
