package ws

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// PlayerToken is the HELLO token for a player id: hex HMAC-SHA256 of the id
// keyed by the server's player secret. The game host issues it to clients.
func PlayerToken(secret, playerID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(playerID))
	return hex.EncodeToString(mac.Sum(nil))
}

func validPlayerToken(secret, playerID, token string) bool {
	if secret == "" {
		return false
	}
	want := PlayerToken(secret, playerID)
	return hmac.Equal([]byte(token), []byte(want))
}
